package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voidshard/tillcounter/pkg/domain"
	"github.com/voidshard/tillcounter/pkg/ledger"
	"github.com/voidshard/tillcounter/pkg/query"
	"github.com/voidshard/tillcounter/pkg/server"
	"github.com/voidshard/tillcounter/pkg/store"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newClient(t *testing.T) *Client {
	l, err := ledger.New(context.Background(), store.NewMemory())
	require.NoError(t, err)
	s := server.NewServer(l, ":0", zerolog.Nop())
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		ts.Close()
		s.Shutdown(context.Background())
	})

	c, err := New(ts.URL, zerolog.Nop())
	require.NoError(t, err)
	return c
}

func TestClientScenario(t *testing.T) {
	ctx := context.Background()
	c := newClient(t)

	st, err := c.Open(ctx, d("500.00"))
	require.NoError(t, err)
	assert.True(t, st.IsOpen)

	now := time.Now()
	_, err = c.Record(ctx, domain.TransactionInput{Type: domain.TypeIncome, Category: domain.CategorySales, Description: "Venda", Amount: d("389.80"), Timestamp: now})
	require.NoError(t, err)
	_, err = c.Record(ctx, domain.TransactionInput{Type: domain.TypeExpense, Category: domain.CategoryExpenses, Description: "Material", Amount: d("85.50"), Timestamp: now})
	require.NoError(t, err)

	st, err = c.Status(ctx)
	require.NoError(t, err)
	assert.True(t, st.CurrentBalance.Equal(d("804.30")))

	page, err := c.Query(ctx, query.Criteria{Type: domain.TypeExpense}, 10, 1)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, int64(3), page.Items[0].ID)

	txn, err := c.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, domain.TypeOpening, txn.Type)
}

func TestClientErrorsMatchSentinels(t *testing.T) {
	ctx := context.Background()
	c := newClient(t)

	_, err := c.Close(ctx)
	assert.ErrorIs(t, err, ledger.ErrAlreadyClosed)

	_, err = c.Open(ctx, d("500"))
	require.NoError(t, err)

	_, err = c.Record(ctx, domain.TransactionInput{Type: domain.TypeWithdrawal, Category: domain.CategoryOther, Description: "Sangria", Amount: d("1000"), Timestamp: time.Now()})
	assert.ErrorIs(t, err, ledger.ErrInsufficientFunds)

	_, err = c.Get(ctx, 42)
	assert.ErrorIs(t, err, ledger.ErrNotFound)
}

func TestClientRetriesGetOn5xx(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"is_open":true,"current_balance":"12.5"}`))
	}))
	defer ts.Close()

	c, err := New(ts.URL, zerolog.Nop())
	require.NoError(t, err)

	st, err := c.Status(context.Background())
	require.NoError(t, err)
	assert.True(t, st.IsOpen)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestClientDoesNotRetryPost(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer ts.Close()

	c, err := New(ts.URL, zerolog.Nop())
	require.NoError(t, err)

	_, err = c.Close(context.Background())
	assert.Error(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestNewRejectsBadURL(t *testing.T) {
	_, err := New("localhost", zerolog.Nop())
	assert.Error(t, err)
}

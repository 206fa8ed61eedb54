package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voidshard/tillcounter/pkg/crypto"
	"github.com/voidshard/tillcounter/pkg/domain"
)

func opening(id int64, amount string) *domain.Transaction {
	a := decimal.RequireFromString(amount)
	return &domain.Transaction{
		ID:           id,
		Timestamp:    time.Date(2025, 7, 30, 8, 0, 0, 0, time.UTC),
		Type:         domain.TypeOpening,
		Description:  "Abertura do caixa",
		Category:     domain.CategoryOther,
		Amount:       a,
		BalanceAfter: a,
		User:         "Admin",
	}
}

func openStatus(balance string) *domain.RegisterStatus {
	b := decimal.RequireFromString(balance)
	return &domain.RegisterStatus{IsOpen: true, OpeningBalance: b, CurrentBalance: b}
}

func TestWrite(t *testing.T) {
	jf := NewJSONFile(filepath.Join(t.TempDir(), "test.json"))

	err := jf.Write([]*domain.Transaction{
		&domain.Transaction{ID: 2},
		&domain.Transaction{ID: 1},
	})
	require.NoError(t, err)

	txns, err := jf.List(context.Background())
	require.NoError(t, err)
	require.Len(t, txns, 2)
	assert.Equal(t, int64(2), txns[0].ID)
}

func TestJSONFileMissingFileIsEmpty(t *testing.T) {
	jf := NewJSONFile(filepath.Join(t.TempDir(), "nope.json"))

	txns, err := jf.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, txns)

	st, err := jf.LoadStatus(context.Background())
	require.NoError(t, err)
	assert.Nil(t, st)
}

func TestJSONFileAppendPrepends(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "caixa.json")
	jf := NewJSONFile(path)

	require.NoError(t, jf.Append(ctx, opening(1, "500.00"), openStatus("500.00")))

	income := &domain.Transaction{
		ID:           2,
		Type:         domain.TypeIncome,
		Category:     domain.CategorySales,
		Description:  "Venda #001",
		Amount:       decimal.RequireFromString("389.80"),
		BalanceAfter: decimal.RequireFromString("889.80"),
	}
	require.NoError(t, jf.Append(ctx, income, openStatus("889.80")))

	// a fresh handle sees the same data
	txns, err := NewJSONFile(path).List(ctx)
	require.NoError(t, err)
	require.Len(t, txns, 2)
	assert.Equal(t, int64(2), txns[0].ID)
	assert.Equal(t, int64(1), txns[1].ID)
	assert.True(t, txns[0].BalanceAfter.Equal(decimal.RequireFromString("889.8")))

	st, err := jf.LoadStatus(ctx)
	require.NoError(t, err)
	require.NotNil(t, st)
	assert.True(t, st.CurrentBalance.Equal(decimal.RequireFromString("889.80")))
}

func TestJSONFileSaveStatus(t *testing.T) {
	ctx := context.Background()
	jf := NewJSONFile(filepath.Join(t.TempDir(), "caixa.json"))
	require.NoError(t, jf.Append(ctx, opening(1, "500.00"), openStatus("500.00")))

	closed := openStatus("500.00")
	closed.IsOpen = false
	require.NoError(t, jf.SaveStatus(ctx, closed))

	st, err := jf.LoadStatus(ctx)
	require.NoError(t, err)
	assert.False(t, st.IsOpen)

	txns, err := jf.List(ctx)
	require.NoError(t, err)
	assert.Len(t, txns, 1)
}

func TestJSONFileCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "caixa.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	_, err := NewJSONFile(path).List(context.Background())
	assert.ErrorIs(t, err, ErrCorrupt)
}

func TestSealedFile(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "caixa.sealed")
	key, _ := crypto.NewRandomKey()
	sig, _ := crypto.NewRandomKey()

	sf, err := NewSealedFile(path, key, sig)
	require.NoError(t, err)
	require.NoError(t, sf.Append(ctx, opening(1, "500.00"), openStatus("500.00")))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "Abertura")

	txns, err := sf.List(ctx)
	require.NoError(t, err)
	require.Len(t, txns, 1)
	assert.Equal(t, "Abertura do caixa", txns[0].Description)

	other, _ := crypto.NewRandomKey()
	wrong, err := NewSealedFile(path, key, other)
	require.NoError(t, err)
	_, err = wrong.List(ctx)
	assert.ErrorIs(t, err, ErrCorrupt)
}

func TestSealedFileShortKey(t *testing.T) {
	_, err := NewSealedFile("x", "short", "short")
	assert.Error(t, err)
}

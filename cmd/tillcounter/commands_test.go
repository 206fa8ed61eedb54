package main

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voidshard/tillcounter/pkg/domain"
	"github.com/voidshard/tillcounter/pkg/ledger"
	"github.com/voidshard/tillcounter/pkg/notify"
	"github.com/voidshard/tillcounter/pkg/store"
)

func TestParseAmount(t *testing.T) {
	for in, want := range map[string]string{
		"500":        "500",
		"500.00":     "500",
		"1.234,50":   "1234.5",
		"R$ 85,50":   "85.5",
		" 389.80 ":   "389.8",
		"R$1.000,00": "1000",
	} {
		got, err := parseAmount(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got.String(), in)
	}

	_, err := parseAmount("abc")
	assert.Error(t, err)
}

func TestParseTime(t *testing.T) {
	got, err := parseTime("2025-07-30 14:30")
	require.NoError(t, err)
	assert.Equal(t, 14, got.Hour())
	assert.Equal(t, time.July, got.Month())

	got, err = parseTime("30/07/2025 08:00")
	require.NoError(t, err)
	assert.Equal(t, 30, got.Day())

	_, err = parseTime("yesterday")
	assert.Error(t, err)
}

func TestDefaultCategory(t *testing.T) {
	assert.Equal(t, domain.CategorySales, defaultCategory(domain.TypeIncome))
	assert.Equal(t, domain.CategoryExpenses, defaultCategory(domain.TypeExpense))
	assert.Equal(t, domain.CategoryOther, defaultCategory(domain.TypeWithdrawal))
}

func TestGetStore(t *testing.T) {
	ctx := context.Background()
	g := &globals{}

	s, _, err := getStore(ctx, "memory:", g, zerolog.Nop())
	require.NoError(t, err)
	assert.IsType(t, &store.Memory{}, s)

	s, _, err = getStore(ctx, "jsonfile:"+filepath.Join(t.TempDir(), "x.json"), g, zerolog.Nop())
	require.NoError(t, err)
	assert.IsType(t, &store.JSONFile{}, s)

	_, _, err = getStore(ctx, "sealed:/tmp/x.bin", g, zerolog.Nop())
	assert.Error(t, err, "sealed store needs keys")

	_, _, err = getStore(ctx, "nonsense", g, zerolog.Nop())
	assert.Error(t, err)

	_, _, err = getStore(ctx, "ftp:somewhere", g, zerolog.Nop())
	assert.Error(t, err)
}

func TestLocalRegisterAgainstFile(t *testing.T) {
	ctx := context.Background()
	g := &globals{
		Store:    "jsonfile:" + filepath.Join(t.TempDir(), "caixa.json"),
		Operator: "Carla",
		log:      zerolog.Nop(),
	}

	reg, closer, err := connect(ctx, g)
	require.NoError(t, err)
	amount, _ := parseAmount("500,00")
	_, err = reg.Open(ctx, amount)
	require.NoError(t, err)
	closer()

	// a second invocation sees the open register
	reg, closer, err = connect(ctx, g)
	require.NoError(t, err)
	defer closer()

	st, err := reg.Status(ctx)
	require.NoError(t, err)
	assert.True(t, st.IsOpen)

	txn, err := reg.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Carla", txn.User)
}

func TestLogEvents(t *testing.T) {
	ctx := context.Background()
	buf := &bytes.Buffer{}

	l, err := ledger.New(ctx, store.NewMemory())
	require.NoError(t, err)
	stop := logEvents(l, notify.NewLog(zerolog.New(buf)))

	amount, _ := parseAmount("500")
	_, err = l.Open(ctx, amount)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Caixa aberto com sucesso!")

	stop()
	buf.Reset()
	_, err = l.Close(ctx)
	require.NoError(t, err)
	assert.Empty(t, buf.String())
}

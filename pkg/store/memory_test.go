package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryReturnsCopies(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	txn := opening(1, "500.00")
	st := openStatus("500.00")
	require.NoError(t, m.Append(ctx, txn, st))

	txn.Description = "changed"
	st.IsOpen = false

	txns, err := m.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Abertura do caixa", txns[0].Description)

	txns[0].Description = "changed again"
	again, _ := m.List(ctx)
	assert.Equal(t, "Abertura do caixa", again[0].Description)

	loaded, err := m.LoadStatus(ctx)
	require.NoError(t, err)
	assert.True(t, loaded.IsOpen)
}

func TestMemoryEmptyStatus(t *testing.T) {
	st, err := NewMemory().LoadStatus(context.Background())
	require.NoError(t, err)
	assert.Nil(t, st)
}

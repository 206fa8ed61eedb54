package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestParseType(t *testing.T) {
	for in, want := range map[string]TransactionType{
		"entrada":  TypeIncome,
		"Saida":    TypeExpense,
		"sangria":  TypeWithdrawal,
		"abertura": TypeOpening,
		"expense":  TypeExpense,
	} {
		got, err := ParseType(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}

	_, err := ParseType("transferencia")
	assert.Error(t, err)
}

func TestParseCategory(t *testing.T) {
	c, err := ParseCategory("suprimento")
	require.NoError(t, err)
	assert.Equal(t, CategorySupply, c)
	assert.Equal(t, "Suprimento", c.Label())

	_, err = ParseCategory("food")
	assert.Error(t, err)
}

func TestTypeDisplay(t *testing.T) {
	assert.Equal(t, "Saída", TypeExpense.Label())
	assert.Equal(t, "-", TypeWithdrawal.Prefix())
	assert.Equal(t, "+", TypeIncome.Prefix())
	assert.Equal(t, "", TypeOpening.Prefix())
}

func TestApply(t *testing.T) {
	assert.True(t, TypeIncome.Apply(d("500"), d("389.80")).Equal(d("889.80")))
	assert.True(t, TypeExpense.Apply(d("500"), d("85.50")).Equal(d("414.50")))
	assert.True(t, TypeWithdrawal.Apply(d("500"), d("1000")).Equal(d("-500")))
	assert.True(t, TypeOpening.Apply(d("500"), d("20")).Equal(d("20")))
}

func TestVerifyChain(t *testing.T) {
	txns := []*Transaction{
		{ID: 4, Type: TypeWithdrawal, Amount: d("100"), BalanceAfter: d("700")},
		{ID: 3, Type: TypeIncome, Amount: d("300"), BalanceAfter: d("800")},
		{ID: 2, Type: TypeOpening, Amount: d("500"), BalanceAfter: d("500")},
		{ID: 1, Type: TypeOpening, Amount: d("50"), BalanceAfter: d("50")},
	}
	assert.NoError(t, VerifyChain(txns))
	assert.NoError(t, VerifyChain(nil))

	txns[1].BalanceAfter = d("801")
	assert.Error(t, VerifyChain(txns))

	assert.Error(t, VerifyChain([]*Transaction{{ID: 1, Type: TypeIncome, Amount: d("1"), BalanceAfter: d("1")}}))
}

func TestStatusFromChain(t *testing.T) {
	txns := []*Transaction{
		{ID: 5, Type: TypeExpense, Amount: d("85.50"), BalanceAfter: d("804.30")},
		{ID: 4, Type: TypeIncome, Amount: d("389.80"), BalanceAfter: d("889.80")},
		{ID: 3, Type: TypeOpening, Amount: d("500"), BalanceAfter: d("500")},
		{ID: 2, Type: TypeIncome, Amount: d("10"), BalanceAfter: d("60")},
		{ID: 1, Type: TypeOpening, Amount: d("50"), BalanceAfter: d("50")},
	}
	st := StatusFromChain(txns)
	assert.True(t, st.IsOpen)
	assert.True(t, st.OpeningBalance.Equal(d("500")))
	assert.True(t, st.TotalIncome.Equal(d("389.80")))
	assert.True(t, st.TotalExpense.Equal(d("85.50")))
	assert.True(t, st.CurrentBalance.Equal(d("804.30")))

	empty := StatusFromChain(nil)
	assert.False(t, empty.IsOpen)
}

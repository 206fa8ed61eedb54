package currency

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestFormatBRL(t *testing.T) {
	cases := map[string]string{
		"0":                    "R$ 0,00",
		"0.01":                 "R$ 0,01",
		"804.3":                "R$ 804,30",
		"85.5":                 "R$ 85,50",
		"1234.5":               "R$ 1.234,50",
		"2800":                 "R$ 2.800,00",
		"-150":                 "-R$ 150,00",
		"389.805":              "R$ 389,81",
		"999.999":              "R$ 1.000,00",
		"12345678901234567.89": "R$ 12.345.678.901.234.567,89",
		"9007199254740993.07":  "R$ 9.007.199.254.740.993,07",
	}
	for in, want := range cases {
		assert.Equal(t, want, FormatBRL(decimal.RequireFromString(in)), in)
	}
}

func TestSigned(t *testing.T) {
	assert.Equal(t, "-R$ 85,50", Signed("-", decimal.RequireFromString("85.50")))
	assert.Equal(t, "+R$ 389,80", Signed("+", decimal.RequireFromString("389.80")))
}

package currency

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var (
	printer = message.NewPrinter(language.BrazilianPortuguese)

	maxGrouped = decimal.NewFromInt(math.MaxInt64)
)

// FormatBRL renders d as Brazilian reais, eg. "R$ 1.234,50". Amounts are
// rounded to the cent; the reais are grouped by the pt-BR printer and never
// pass through a float.
func FormatBRL(d decimal.Decimal) string {
	r := d.Abs().Round(2)
	whole := r.Truncate(0)
	cents := r.Sub(whole).Shift(2).IntPart()

	reais := whole.String()
	if whole.LessThanOrEqual(maxGrouped) {
		reais = printer.Sprintf("%d", whole.IntPart())
	}

	s := fmt.Sprintf("R$ %s,%02d", reais, cents)
	if d.Round(2).IsNegative() {
		return "-" + s
	}
	return s
}

// Signed prefixes the formatted amount with prefix ("+", "-" or "").
func Signed(prefix string, d decimal.Decimal) string {
	return prefix + FormatBRL(d)
}

package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType says how a movement affects the register balance.
type TransactionType string

const (
	TypeOpening    TransactionType = "opening"
	TypeIncome     TransactionType = "income"
	TypeExpense    TransactionType = "expense"
	TypeWithdrawal TransactionType = "withdrawal"
)

var typeAliases = map[string]TransactionType{
	"opening":    TypeOpening,
	"abertura":   TypeOpening,
	"income":     TypeIncome,
	"entrada":    TypeIncome,
	"expense":    TypeExpense,
	"saida":      TypeExpense,
	"saída":      TypeExpense,
	"withdrawal": TypeWithdrawal,
	"sangria":    TypeWithdrawal,
}

var typeLabels = map[TransactionType]string{
	TypeOpening:    "Abertura",
	TypeIncome:     "Entrada",
	TypeExpense:    "Saída",
	TypeWithdrawal: "Sangria",
}

// ParseType accepts the english names as well as the portuguese ones used
// at the till (abertura, entrada, saida, sangria).
func ParseType(s string) (TransactionType, error) {
	t, ok := typeAliases[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return "", fmt.Errorf("unknown transaction type %q", s)
	}
	return t, nil
}

func (t TransactionType) Valid() bool {
	_, ok := typeLabels[t]
	return ok
}

// Outflow reports whether the type takes money out of the register.
func (t TransactionType) Outflow() bool {
	return t == TypeExpense || t == TypeWithdrawal
}

// Label is the display name shown to operators.
func (t TransactionType) Label() string {
	if l, ok := typeLabels[t]; ok {
		return l
	}
	return typeLabels[TypeIncome]
}

// Prefix is the sign printed in front of an amount of this type.
func (t TransactionType) Prefix() string {
	switch {
	case t == TypeOpening:
		return ""
	case t.Outflow():
		return "-"
	}
	return "+"
}

// Apply returns the balance after moving amount of this type on top of
// balance. An opening resets the chain to amount.
func (t TransactionType) Apply(balance, amount decimal.Decimal) decimal.Decimal {
	switch {
	case t == TypeOpening:
		return amount
	case t.Outflow():
		return balance.Sub(amount)
	}
	return balance.Add(amount)
}

// Category groups movements for reporting.
type Category string

const (
	CategorySales    Category = "sales"
	CategoryExpenses Category = "expenses"
	CategorySupply   Category = "supply"
	CategoryOther    Category = "other"
)

var categoryAliases = map[string]Category{
	"sales":      CategorySales,
	"vendas":     CategorySales,
	"expenses":   CategoryExpenses,
	"despesas":   CategoryExpenses,
	"supply":     CategorySupply,
	"suprimento": CategorySupply,
	"other":      CategoryOther,
	"outros":     CategoryOther,
}

var categoryLabels = map[Category]string{
	CategorySales:    "Vendas",
	CategoryExpenses: "Despesas",
	CategorySupply:   "Suprimento",
	CategoryOther:    "Outros",
}

func ParseCategory(s string) (Category, error) {
	c, ok := categoryAliases[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return "", fmt.Errorf("unknown category %q", s)
	}
	return c, nil
}

func (c Category) Valid() bool {
	_, ok := categoryLabels[c]
	return ok
}

func (c Category) Label() string {
	if l, ok := categoryLabels[c]; ok {
		return l
	}
	return categoryLabels[CategoryOther]
}

// Transaction is a single register movement. Once recorded it is never
// changed; BalanceAfter is the register balance right after it applied.
type Transaction struct {
	ID int64 `json:"id"`

	Timestamp   time.Time       `json:"timestamp"`
	Type        TransactionType `json:"type"`
	Description string          `json:"description"`
	Category    Category        `json:"category"`
	Amount      decimal.Decimal `json:"amount"`

	BalanceAfter decimal.Decimal `json:"balance_after"`

	User  string `json:"user"`
	Notes string `json:"notes,omitempty"`
}

func (t *Transaction) JSON() ([]byte, error) {
	return json.Marshal(t)
}

// TransactionInput is what an operator supplies when recording a movement.
type TransactionInput struct {
	Type        TransactionType `json:"type"`
	Category    Category        `json:"category"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	Timestamp   time.Time       `json:"timestamp"`
	Notes       string          `json:"notes,omitempty"`
}

// VerifyChain checks that every BalanceAfter in txns (most recent first)
// follows from the one before it.
func VerifyChain(txns []*Transaction) error {
	var prev *Transaction
	for i := len(txns) - 1; i >= 0; i-- {
		t := txns[i]
		if t.Type != TypeOpening && prev == nil {
			return fmt.Errorf("transaction %d precedes any opening", t.ID)
		}

		var want decimal.Decimal
		if prev != nil {
			want = t.Type.Apply(prev.BalanceAfter, t.Amount)
		} else {
			want = t.Amount
		}
		if !want.Equal(t.BalanceAfter) {
			return fmt.Errorf("transaction %d: balance after is %s, expected %s", t.ID, t.BalanceAfter, want)
		}
		prev = t
	}
	return nil
}

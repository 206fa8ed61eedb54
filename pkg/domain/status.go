package domain

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// RegisterStatus is the till state. All balances are maintained
// incrementally as transactions are applied.
type RegisterStatus struct {
	IsOpen bool `json:"is_open"`

	OpeningBalance decimal.Decimal `json:"opening_balance"`
	TotalIncome    decimal.Decimal `json:"total_income"`
	TotalExpense   decimal.Decimal `json:"total_expense"`
	CurrentBalance decimal.Decimal `json:"current_balance"`

	OpenedAt time.Time  `json:"opened_at,omitempty"`
	ClosedAt *time.Time `json:"closed_at,omitempty"`
}

// OpenTime is the time of day the register was opened, as HH:MM.
func (s *RegisterStatus) OpenTime() string {
	if s.OpenedAt.IsZero() {
		return ""
	}
	return s.OpenedAt.Format("15:04")
}

func (s *RegisterStatus) JSON() ([]byte, error) {
	return json.Marshal(s)
}

// StatusFromChain rebuilds a status from transactions (most recent first),
// counting only the session started by the latest opening.
func StatusFromChain(txns []*Transaction) *RegisterStatus {
	st := &RegisterStatus{}
	for i, t := range txns {
		if t.Type != TypeOpening {
			continue
		}
		st.IsOpen = true
		st.OpeningBalance = t.Amount
		st.OpenedAt = t.Timestamp
		st.CurrentBalance = txns[0].BalanceAfter
		for _, s := range txns[:i] {
			switch {
			case s.Type == TypeIncome:
				st.TotalIncome = st.TotalIncome.Add(s.Amount)
			case s.Type.Outflow():
				st.TotalExpense = st.TotalExpense.Add(s.Amount)
			}
		}
		break
	}
	return st
}

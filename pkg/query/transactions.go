package query

import (
	"fmt"
	"strings"
	"time"

	"github.com/voidshard/tillcounter/pkg/domain"
)

// Period is a coarse time bucket ending at the end of the current day.
type Period string

const (
	PeriodAll   Period = ""
	PeriodToday Period = "today"
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
)

func ParsePeriod(s string) (Period, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "all":
		return PeriodAll, nil
	case "today", "hoje":
		return PeriodToday, nil
	case "week", "semana":
		return PeriodWeek, nil
	case "month", "mes", "mês":
		return PeriodMonth, nil
	}
	return "", fmt.Errorf("unknown period %q", s)
}

// Window returns the half open interval [from, to) the period covers
// relative to now: today, the last 7 days, or the last 30 days, all in
// now's location. ok is false for PeriodAll.
func (p Period) Window(now time.Time) (from, to time.Time, ok bool) {
	y, m, d := now.Date()
	sod := time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	to = sod.AddDate(0, 0, 1)

	switch p {
	case PeriodToday:
		return sod, to, true
	case PeriodWeek:
		return sod.AddDate(0, 0, -6), to, true
	case PeriodMonth:
		return sod.AddDate(0, 0, -29), to, true
	}
	return time.Time{}, time.Time{}, false
}

// Criteria selects transactions. Empty fields match everything.
type Criteria struct {
	Type     domain.TransactionType `json:"type,omitempty"`
	Category domain.Category        `json:"category,omitempty"`
	Search   string                 `json:"search,omitempty"`
	Period   Period                 `json:"period,omitempty"`
}

// Predicates turns the criteria into filters, evaluating Period against now.
func (c Criteria) Predicates(now time.Time) []Predicate[*domain.Transaction] {
	var ps []Predicate[*domain.Transaction]

	if c.Type != "" {
		ps = append(ps, func(t *domain.Transaction) bool { return t.Type == c.Type })
	}
	if c.Category != "" {
		ps = append(ps, func(t *domain.Transaction) bool { return t.Category == c.Category })
	}
	if term := strings.ToLower(c.Search); term != "" {
		ps = append(ps, func(t *domain.Transaction) bool {
			return strings.Contains(strings.ToLower(t.Description), term) ||
				strings.Contains(strings.ToLower(t.User), term)
		})
	}
	if from, to, ok := c.Period.Window(now); ok {
		ps = append(ps, func(t *domain.Transaction) bool {
			return !t.Timestamp.Before(from) && t.Timestamp.Before(to)
		})
	}

	return ps
}

// Transactions filters txns by c and returns the requested page. Store
// order is kept.
func Transactions(txns []*domain.Transaction, c Criteria, now time.Time, pageSize, pageNumber int) Page[*domain.Transaction] {
	return Paginate(Filter(txns, c.Predicates(now)...), pageSize, pageNumber)
}

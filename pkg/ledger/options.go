package ledger

import (
	"time"

	"github.com/rs/zerolog"
)

const (
	DefaultOperator = "Admin"
)

type Option func(*Ledger)

// WithOperator sets the user every new transaction is attributed to.
func WithOperator(name string) Option {
	return func(l *Ledger) {
		if name != "" {
			l.operator = name
		}
	}
}

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) {
		if now != nil {
			l.now = now
		}
	}
}

func WithLogger(log zerolog.Logger) Option {
	return func(l *Ledger) {
		l.log = log
	}
}

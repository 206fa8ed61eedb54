package store

import (
	"context"
	"errors"

	"github.com/voidshard/tillcounter/pkg/domain"
)

var ErrCorrupt = errors.New("stored data is corrupt")

// Store persists register transactions and status. List returns the most
// recent transaction first. Append writes a transaction together with the
// status it produced; when it fails neither should be visible.
type Store interface {
	List(context.Context) ([]*domain.Transaction, error)
	Append(context.Context, *domain.Transaction, *domain.RegisterStatus) error
	LoadStatus(context.Context) (*domain.RegisterStatus, error)
	SaveStatus(context.Context, *domain.RegisterStatus) error
}

// Exporter bulk writes transactions somewhere else, eg. for reporting.
type Exporter interface {
	Write([]*domain.Transaction) error
}

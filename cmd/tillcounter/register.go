package main

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/voidshard/tillcounter/pkg/api"
	"github.com/voidshard/tillcounter/pkg/client"
	"github.com/voidshard/tillcounter/pkg/domain"
	"github.com/voidshard/tillcounter/pkg/ledger"
	"github.com/voidshard/tillcounter/pkg/query"
)

// register is what the commands drive: a local ledger or a remote server.
type register interface {
	Open(context.Context, decimal.Decimal) (domain.RegisterStatus, error)
	Close(context.Context) (domain.RegisterStatus, error)
	Record(context.Context, domain.TransactionInput) (*domain.Transaction, error)
	Query(context.Context, query.Criteria, int, int) (api.TransactionPage, error)
	Get(context.Context, int64) (*domain.Transaction, error)
	Status(context.Context) (domain.RegisterStatus, error)
}

var _ register = &client.Client{}
var _ register = &local{}

// local adapts a Ledger to register.
type local struct {
	*ledger.Ledger
}

func (l *local) Query(_ context.Context, c query.Criteria, pageSize, pageNumber int) (api.TransactionPage, error) {
	return l.Ledger.Query(c, pageSize, pageNumber), nil
}

func (l *local) Get(_ context.Context, id int64) (*domain.Transaction, error) {
	return l.Ledger.Get(id)
}

func (l *local) Status(_ context.Context) (domain.RegisterStatus, error) {
	return l.Ledger.Status(), nil
}

// openLedger restores the ledger from the configured store.
func openLedger(ctx context.Context, g *globals) (*ledger.Ledger, func(), error) {
	s, closer, err := getStore(ctx, g.Store, g, g.log)
	if err != nil {
		return nil, closer, err
	}
	l, err := ledger.New(ctx, s, ledger.WithOperator(g.Operator), ledger.WithLogger(g.log))
	if err != nil {
		closer()
		return nil, func() {}, err
	}
	return l, closer, nil
}

// connect picks the server when one is configured, else the local store.
func connect(ctx context.Context, g *globals) (register, func(), error) {
	if g.Server != "" {
		c, err := client.New(g.Server, g.log)
		return c, func() {}, err
	}
	l, closer, err := openLedger(ctx, g)
	if err != nil {
		return nil, closer, fmt.Errorf("failed to open store %s: %w", g.Store, err)
	}
	return &local{l}, closer, nil
}

package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shopspring/decimal"

	"github.com/voidshard/tillcounter/pkg/domain"
)

const pgSchema = `
CREATE TABLE IF NOT EXISTS register_transactions (
	id            BIGINT PRIMARY KEY,
	ts            TIMESTAMPTZ NOT NULL,
	type          TEXT NOT NULL,
	description   TEXT NOT NULL,
	category      TEXT NOT NULL,
	amount        NUMERIC(12,2) NOT NULL,
	balance_after NUMERIC(12,2) NOT NULL,
	username      TEXT NOT NULL,
	notes         TEXT NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS register_status (
	id     SMALLINT PRIMARY KEY DEFAULT 1,
	status JSONB NOT NULL
);`

// Postgres stores transactions as rows and the status as a single JSONB
// row; Append writes both in one SQL transaction.
type Postgres struct {
	pool *pgxpool.Pool
}

var _ Store = &Postgres{}

// NewPostgres connects to url and makes sure the tables exist.
func NewPostgres(ctx context.Context, url string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}
	if _, err := pool.Exec(ctx, pgSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

func (p *Postgres) List(ctx context.Context) ([]*domain.Transaction, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT id, ts, type, description, category, amount::text, balance_after::text, username, notes
		FROM register_transactions ORDER BY id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	txns := []*domain.Transaction{}
	for rows.Next() {
		t := &domain.Transaction{}
		var kind, category, amount, balance string
		err := rows.Scan(&t.ID, &t.Timestamp, &kind, &t.Description, &category, &amount, &balance, &t.User, &t.Notes)
		if err != nil {
			return nil, err
		}
		t.Type = domain.TransactionType(kind)
		t.Category = domain.Category(category)
		if t.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
		}
		if t.BalanceAfter, err = decimal.NewFromString(balance); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
		}
		txns = append(txns, t)
	}
	return txns, rows.Err()
}

func (p *Postgres) Append(ctx context.Context, t *domain.Transaction, st *domain.RegisterStatus) error {
	return pgx.BeginFunc(ctx, p.pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO register_transactions
				(id, ts, type, description, category, amount, balance_after, username, notes)
			VALUES ($1, $2, $3, $4, $5, $6::numeric, $7::numeric, $8, $9)`,
			t.ID, t.Timestamp, string(t.Type), t.Description, string(t.Category),
			t.Amount.String(), t.BalanceAfter.String(), t.User, t.Notes,
		)
		if err != nil {
			return err
		}
		return saveStatus(ctx, tx, st)
	})
}

func (p *Postgres) LoadStatus(ctx context.Context) (*domain.RegisterStatus, error) {
	st := &domain.RegisterStatus{}
	err := p.pool.QueryRow(ctx, `SELECT status FROM register_status WHERE id = 1`).Scan(st)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return st, nil
}

func (p *Postgres) SaveStatus(ctx context.Context, st *domain.RegisterStatus) error {
	return saveStatus(ctx, p.pool, st)
}

func (p *Postgres) Close() {
	p.pool.Close()
}

// execer is satisfied by both the pool and a pgx.Tx.
type execer interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
}

func saveStatus(ctx context.Context, db execer, st *domain.RegisterStatus) error {
	data, err := st.JSON()
	if err != nil {
		return err
	}
	_, err = db.Exec(ctx, `
		INSERT INTO register_status (id, status) VALUES (1, $1)
		ON CONFLICT (id) DO UPDATE SET status = EXCLUDED.status`,
		data,
	)
	return err
}

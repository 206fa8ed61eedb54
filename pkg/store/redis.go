package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/voidshard/tillcounter/pkg/domain"
)

const (
	redisPrefix = "tillcounter"
)

// Redis keeps transactions in a list (newest at the head, so LRANGE gives
// store order) and the status under its own key. Append runs both writes
// in one MULTI.
type Redis struct {
	rdb       *redis.Client
	txnsKey   string
	statusKey string
}

var _ Store = &Redis{}

// NewRedis connects to addr and checks the connection.
func NewRedis(ctx context.Context, addr string) (*Redis, error) {
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}
	return &Redis{
		rdb:       rdb,
		txnsKey:   redisPrefix + ":transactions",
		statusKey: redisPrefix + ":status",
	}, nil
}

func (r *Redis) List(ctx context.Context) ([]*domain.Transaction, error) {
	raw, err := r.rdb.LRange(ctx, r.txnsKey, 0, -1).Result()
	if err != nil {
		return nil, err
	}

	txns := make([]*domain.Transaction, 0, len(raw))
	for _, s := range raw {
		t := &domain.Transaction{}
		if err := json.Unmarshal([]byte(s), t); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
		}
		txns = append(txns, t)
	}
	return txns, nil
}

func (r *Redis) Append(ctx context.Context, t *domain.Transaction, st *domain.RegisterStatus) error {
	txn, err := t.JSON()
	if err != nil {
		return err
	}
	status, err := st.JSON()
	if err != nil {
		return err
	}

	_, err = r.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.LPush(ctx, r.txnsKey, txn)
		p.Set(ctx, r.statusKey, status, 0)
		return nil
	})
	return err
}

func (r *Redis) LoadStatus(ctx context.Context) (*domain.RegisterStatus, error) {
	raw, err := r.rdb.Get(ctx, r.statusKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	} else if err != nil {
		return nil, err
	}

	st := &domain.RegisterStatus{}
	if err := json.Unmarshal(raw, st); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return st, nil
}

func (r *Redis) SaveStatus(ctx context.Context, st *domain.RegisterStatus) error {
	data, err := st.JSON()
	if err != nil {
		return err
	}
	return r.rdb.Set(ctx, r.statusKey, data, 0).Err()
}

func (r *Redis) Close() error {
	return r.rdb.Close()
}

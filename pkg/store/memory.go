package store

import (
	"context"
	"sync"

	"github.com/voidshard/tillcounter/pkg/domain"
)

// Memory keeps everything in process. Nothing survives a restart.
type Memory struct {
	mu     sync.RWMutex
	txns   []*domain.Transaction
	status *domain.RegisterStatus
}

var _ Store = &Memory{}
var _ Exporter = &Memory{}

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) List(_ context.Context) ([]*domain.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*domain.Transaction, len(m.txns))
	for i, t := range m.txns {
		c := *t
		out[i] = &c
	}
	return out, nil
}

func (m *Memory) Append(_ context.Context, t *domain.Transaction, st *domain.RegisterStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	c := *t
	m.txns = append([]*domain.Transaction{&c}, m.txns...)
	m.status = copyStatus(st)
	return nil
}

func (m *Memory) LoadStatus(_ context.Context) (*domain.RegisterStatus, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return copyStatus(m.status), nil
}

func (m *Memory) SaveStatus(_ context.Context, st *domain.RegisterStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.status = copyStatus(st)
	return nil
}

// Write replaces the stored transactions.
func (m *Memory) Write(txns []*domain.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.txns = make([]*domain.Transaction, len(txns))
	for i, t := range txns {
		c := *t
		m.txns[i] = &c
	}
	return nil
}

func copyStatus(st *domain.RegisterStatus) *domain.RegisterStatus {
	if st == nil {
		return nil
	}
	c := *st
	if st.ClosedAt != nil {
		t := *st.ClosedAt
		c.ClosedAt = &t
	}
	return &c
}

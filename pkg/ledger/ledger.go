package ledger

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/voidshard/tillcounter/pkg/domain"
	"github.com/voidshard/tillcounter/pkg/query"
	"github.com/voidshard/tillcounter/pkg/store"
)

const (
	openingDescription = "Abertura do caixa"
	openingNotes       = "Abertura do caixa para o dia"

	centPlaces = 2
)

var minAmount = decimal.New(1, -centPlaces)

// Ledger owns the register transactions and status. Transactions are
// append only: every entry is persisted to the store before it becomes
// visible, and a failed write changes nothing.
type Ledger struct {
	mu sync.Mutex

	store  store.Store
	txns   []*domain.Transaction // most recent first
	status domain.RegisterStatus
	nextID int64

	operator string
	now      func() time.Time
	log      zerolog.Logger

	// pubMu is taken before mu is released on every change and held
	// until its event is delivered, so subscribers see changes in order.
	pubMu  sync.Mutex
	subMu  sync.Mutex
	subs   map[int]func(domain.Event)
	subSeq int
}

// New restores a ledger from s.
func New(ctx context.Context, s store.Store, opts ...Option) (*Ledger, error) {
	l := &Ledger{
		store:    s,
		operator: DefaultOperator,
		now:      time.Now,
		log:      zerolog.Nop(),
		subs:     map[int]func(domain.Event){},
		nextID:   1,
	}
	for _, o := range opts {
		o(l)
	}

	txns, err := s.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load transactions: %w", err)
	}
	txns = query.Sort(txns, func(a, b *domain.Transaction) int {
		switch {
		case a.ID > b.ID:
			return -1
		case a.ID < b.ID:
			return 1
		}
		return 0
	})
	if err := domain.VerifyChain(txns); err != nil {
		l.log.Warn().Err(err).Msg("stored transactions do not form a valid balance chain")
	}

	st, err := s.LoadStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load register status: %w", err)
	}
	if st != nil && len(txns) > 0 && !st.CurrentBalance.Equal(txns[0].BalanceAfter) {
		l.log.Warn().
			Str("saved", st.CurrentBalance.StringFixed(2)).
			Str("chain", txns[0].BalanceAfter.StringFixed(2)).
			Msg("saved register status is behind the transactions, rebuilding")
		st = nil
	}
	if st == nil {
		st = domain.StatusFromChain(txns)
	}

	l.txns = txns
	l.status = *st
	if len(txns) > 0 {
		l.nextID = txns[0].ID + 1
	}

	l.log.Info().Int("transactions", len(txns)).Bool("open", st.IsOpen).Msg("ledger restored")
	return l, nil
}

// Open moves the register from closed to open, seeding the balance with
// amount and recording the opening transaction.
func (l *Ledger) Open(ctx context.Context, amount decimal.Decimal) (domain.RegisterStatus, error) {
	l.mu.Lock()

	if l.status.IsOpen {
		l.mu.Unlock()
		return domain.RegisterStatus{}, ErrAlreadyOpen
	}
	if reason := checkAmount(amount); reason != "" {
		l.mu.Unlock()
		return domain.RegisterStatus{}, fmt.Errorf("%w: opening amount %s, got %s", ErrInvalidAmount, reason, amount)
	}

	now := l.now()
	txn := &domain.Transaction{
		ID:           l.nextID,
		Timestamp:    now,
		Type:         domain.TypeOpening,
		Description:  openingDescription,
		Category:     domain.CategoryOther,
		Amount:       amount,
		BalanceAfter: amount,
		User:         l.operator,
		Notes:        openingNotes,
	}
	next := domain.RegisterStatus{
		IsOpen:         true,
		OpeningBalance: amount,
		CurrentBalance: amount,
		OpenedAt:       now,
	}

	if err := l.store.Append(ctx, txn, &next); err != nil {
		l.mu.Unlock()
		return domain.RegisterStatus{}, fmt.Errorf("failed to persist opening: %w", err)
	}
	l.commit(txn, next)
	snap := l.snapshot()
	l.handoff()

	l.log.Info().Int64("id", txn.ID).Str("amount", amount.StringFixed(2)).Msg("register opened")
	l.publish(domain.Event{Kind: domain.EventOpened, Status: snap, Transaction: copyTxn(txn), At: now})
	return snap, nil
}

// Close moves the register from open to closed. Balances are untouched.
func (l *Ledger) Close(ctx context.Context) (domain.RegisterStatus, error) {
	l.mu.Lock()

	if !l.status.IsOpen {
		l.mu.Unlock()
		return domain.RegisterStatus{}, ErrAlreadyClosed
	}

	now := l.now()
	next := l.status
	next.IsOpen = false
	next.ClosedAt = &now

	if err := l.store.SaveStatus(ctx, &next); err != nil {
		l.mu.Unlock()
		return domain.RegisterStatus{}, fmt.Errorf("failed to persist closing: %w", err)
	}
	l.status = next
	snap := l.snapshot()
	l.handoff()

	l.log.Info().Str("balance", snap.CurrentBalance.StringFixed(2)).Msg("register closed")
	l.publish(domain.Event{Kind: domain.EventClosed, Status: snap, At: now})
	return snap, nil
}

// Record appends a movement to an open register. Expenses and withdrawals
// may not take the balance below zero.
func (l *Ledger) Record(ctx context.Context, in domain.TransactionInput) (*domain.Transaction, error) {
	l.mu.Lock()

	if !l.status.IsOpen {
		l.mu.Unlock()
		return nil, ErrRegisterClosed
	}
	if err := validate(in); err != nil {
		l.mu.Unlock()
		l.log.Debug().Err(err).Msg("transaction rejected")
		return nil, err
	}

	next := l.status
	next.CurrentBalance = in.Type.Apply(l.status.CurrentBalance, in.Amount)
	if in.Type.Outflow() {
		if next.CurrentBalance.IsNegative() {
			l.mu.Unlock()
			l.log.Debug().Str("amount", in.Amount.StringFixed(2)).Msg("transaction rejected, insufficient funds")
			return nil, fmt.Errorf("%w: balance %s, requested %s", ErrInsufficientFunds, l.status.CurrentBalance.StringFixed(2), in.Amount.StringFixed(2))
		}
		next.TotalExpense = next.TotalExpense.Add(in.Amount)
	} else {
		next.TotalIncome = next.TotalIncome.Add(in.Amount)
	}

	txn := &domain.Transaction{
		ID:           l.nextID,
		Timestamp:    in.Timestamp,
		Type:         in.Type,
		Description:  strings.TrimSpace(in.Description),
		Category:     in.Category,
		Amount:       in.Amount,
		BalanceAfter: next.CurrentBalance,
		User:         l.operator,
		Notes:        in.Notes,
	}

	if err := l.store.Append(ctx, txn, &next); err != nil {
		l.mu.Unlock()
		return nil, fmt.Errorf("failed to persist transaction: %w", err)
	}
	l.commit(txn, next)
	snap := l.snapshot()
	l.handoff()

	l.log.Info().
		Int64("id", txn.ID).
		Str("type", string(txn.Type)).
		Str("amount", txn.Amount.StringFixed(2)).
		Str("balance", txn.BalanceAfter.StringFixed(2)).
		Msg("transaction recorded")

	out := copyTxn(txn)
	l.publish(domain.Event{Kind: domain.EventRecorded, Status: snap, Transaction: copyTxn(txn), At: l.now()})
	return out, nil
}

// Query filters and pages the transactions, keeping most recent first.
func (l *Ledger) Query(c query.Criteria, pageSize, pageNumber int) query.Page[*domain.Transaction] {
	l.mu.Lock()
	page := query.Transactions(l.txns, c, l.now(), pageSize, pageNumber)
	l.mu.Unlock()

	for i, t := range page.Items {
		page.Items[i] = copyTxn(t)
	}
	return page
}

// Get returns the transaction with the given id.
func (l *Ledger) Get(id int64) (*domain.Transaction, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, t := range l.txns {
		if t.ID == id {
			return copyTxn(t), nil
		}
	}
	return nil, fmt.Errorf("%w: %d", ErrNotFound, id)
}

// Transactions returns every transaction, most recent first.
func (l *Ledger) Transactions() []*domain.Transaction {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]*domain.Transaction, len(l.txns))
	for i, t := range l.txns {
		out[i] = copyTxn(t)
	}
	return out
}

// Status returns a snapshot of the register state.
func (l *Ledger) Status() domain.RegisterStatus {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.snapshot()
}

// Subscribe registers fn to receive every event published after a
// successful change, in the order the changes happened. fn may read the
// ledger but must not change it. The returned func removes it.
func (l *Ledger) Subscribe(fn func(domain.Event)) func() {
	l.subMu.Lock()
	defer l.subMu.Unlock()

	id := l.subSeq
	l.subSeq++
	l.subs[id] = fn

	return func() {
		l.subMu.Lock()
		delete(l.subs, id)
		l.subMu.Unlock()
	}
}

// handoff swaps mu for pubMu. publish must follow.
func (l *Ledger) handoff() {
	l.pubMu.Lock()
	l.mu.Unlock()
}

// publish delivers e and releases pubMu.
func (l *Ledger) publish(e domain.Event) {
	defer l.pubMu.Unlock()

	l.subMu.Lock()
	fns := make([]func(domain.Event), 0, len(l.subs))
	for _, fn := range l.subs {
		fns = append(fns, fn)
	}
	l.subMu.Unlock()

	for _, fn := range fns {
		fn(e)
	}
}

// commit must be called with mu held.
func (l *Ledger) commit(txn *domain.Transaction, next domain.RegisterStatus) {
	l.txns = append([]*domain.Transaction{txn}, l.txns...)
	l.status = next
	l.nextID = txn.ID + 1
}

func (l *Ledger) snapshot() domain.RegisterStatus {
	s := l.status
	if s.ClosedAt != nil {
		t := *s.ClosedAt
		s.ClosedAt = &t
	}
	return s
}

func copyTxn(t *domain.Transaction) *domain.Transaction {
	c := *t
	return &c
}

func validate(in domain.TransactionInput) error {
	switch {
	case in.Type == "":
		return invalid("type", "is required")
	case in.Type == domain.TypeOpening:
		return invalid("type", "opening entries are created by opening the register")
	case !in.Type.Valid():
		return invalid("type", fmt.Sprintf("%q is not a known type", in.Type))
	case in.Category == "":
		return invalid("category", "is required")
	case !in.Category.Valid():
		return invalid("category", fmt.Sprintf("%q is not a known category", in.Category))
	case strings.TrimSpace(in.Description) == "":
		return invalid("description", "is required")
	case checkAmount(in.Amount) != "":
		return invalid("amount", checkAmount(in.Amount))
	case in.Timestamp.IsZero():
		return invalid("timestamp", "is required")
	}
	return nil
}

// checkAmount explains why amount is not a valid till amount, or returns "".
// Amounts are whole cents of at least minAmount.
func checkAmount(amount decimal.Decimal) string {
	switch {
	case amount.LessThan(minAmount):
		return "must be at least " + minAmount.StringFixed(2)
	case !amount.Equal(amount.Round(centPlaces)):
		return "must not have fractions of a cent"
	}
	return ""
}

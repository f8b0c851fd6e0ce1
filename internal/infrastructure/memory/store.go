// Package memory holds in-process implementations of the repository and
// collaborator ports. They back the mock data source and the tests.
package memory

import (
	"context"
	"maps"
	"sync"

	"github.com/jecoplus/lending/internal/domain/model"
	"github.com/jecoplus/lending/pkg/events"
)

// Store is the shared state behind every repository in this package.
type Store struct {
	mu           sync.RWMutex
	creditScores map[string][]model.CreditScoreResult
	identities   map[string]model.IdentitySnapshot
	applications map[string]model.LoanApplication
	loans        map[string]model.LoanAccount
	cases        map[string]model.CollectionCase
	outbox       map[string]events.OutboxEntry
	outboxOrder  []string

	// txMu serialises transactions.
	txMu sync.Mutex
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		creditScores: make(map[string][]model.CreditScoreResult),
		identities:   make(map[string]model.IdentitySnapshot),
		applications: make(map[string]model.LoanApplication),
		loans:        make(map[string]model.LoanAccount),
		cases:        make(map[string]model.CollectionCase),
		outbox:       make(map[string]events.OutboxEntry),
	}
}

type snapshot struct {
	creditScores map[string][]model.CreditScoreResult
	identities   map[string]model.IdentitySnapshot
	applications map[string]model.LoanApplication
	loans        map[string]model.LoanAccount
	cases        map[string]model.CollectionCase
	outbox       map[string]events.OutboxEntry
	outboxOrder  []string
}

func (s *Store) snapshot() snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	scores := make(map[string][]model.CreditScoreResult, len(s.creditScores))
	for k, v := range s.creditScores {
		scores[k] = append([]model.CreditScoreResult(nil), v...)
	}
	return snapshot{
		creditScores: scores,
		identities:   maps.Clone(s.identities),
		applications: maps.Clone(s.applications),
		loans:        maps.Clone(s.loans),
		cases:        maps.Clone(s.cases),
		outbox:       maps.Clone(s.outbox),
		outboxOrder:  append([]string(nil), s.outboxOrder...),
	}
}

func (s *Store) restore(snap snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.creditScores = snap.creditScores
	s.identities = snap.identities
	s.applications = snap.applications
	s.loans = snap.loans
	s.cases = snap.cases
	s.outbox = snap.outbox
	s.outboxOrder = snap.outboxOrder
}

// ---------------------------------------------------------------------------
// Transactor
// ---------------------------------------------------------------------------

type txKey struct{}

// Transactor implements port.Transactor over a Store. Transactions run one
// at a time; a failed one restores the state it started from. Calls made
// outside a transaction can observe uncommitted writes.
type Transactor struct {
	store *Store
}

func NewTransactor(store *Store) *Transactor {
	return &Transactor{store: store}
}

// WithinTransaction runs fn; a nested call joins the outer transaction.
func (t *Transactor) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(struct{}); ok {
		return fn(ctx)
	}

	t.store.txMu.Lock()
	defer t.store.txMu.Unlock()

	snap := t.store.snapshot()
	if err := fn(context.WithValue(ctx, txKey{}, struct{}{})); err != nil {
		t.store.restore(snap)
		return err
	}
	return nil
}

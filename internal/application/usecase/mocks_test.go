package usecase_test

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/jecoplus/lending/internal/domain/apperr"
	"github.com/jecoplus/lending/internal/domain/event"
	"github.com/jecoplus/lending/internal/domain/model"
	"github.com/jecoplus/lending/internal/domain/valueobject"
)

// --- Mock implementations ---

type mockCreditScoreRepository struct {
	saveFunc   func(ctx context.Context, r model.CreditScoreResult) error
	latestFunc func(ctx context.Context, userID string) (model.CreditScoreResult, error)
	saved      []model.CreditScoreResult
}

func (m *mockCreditScoreRepository) Save(ctx context.Context, r model.CreditScoreResult) error {
	if m.saveFunc != nil {
		return m.saveFunc(ctx, r)
	}
	m.saved = append(m.saved, r)
	return nil
}

func (m *mockCreditScoreRepository) LatestByUserID(ctx context.Context, userID string) (model.CreditScoreResult, error) {
	if m.latestFunc != nil {
		return m.latestFunc(ctx, userID)
	}
	for k := len(m.saved) - 1; k >= 0; k-- {
		if m.saved[k].UserID() == userID {
			return m.saved[k], nil
		}
	}
	return model.CreditScoreResult{}, apperr.NotFound("no credit score for user %s", userID)
}

type mockIdentityRepository struct {
	saveFunc func(ctx context.Context, s model.IdentitySnapshot) error
	byUser   map[string]model.IdentitySnapshot
	saved    []model.IdentitySnapshot
}

func (m *mockIdentityRepository) Save(ctx context.Context, s model.IdentitySnapshot) error {
	if m.saveFunc != nil {
		return m.saveFunc(ctx, s)
	}
	if m.byUser == nil {
		m.byUser = make(map[string]model.IdentitySnapshot)
	}
	m.byUser[s.UserID] = s
	m.saved = append(m.saved, s)
	return nil
}

func (m *mockIdentityRepository) FindByUserID(_ context.Context, userID string) (model.IdentitySnapshot, error) {
	s, ok := m.byUser[userID]
	if !ok {
		return model.IdentitySnapshot{}, apperr.NotFound("no identity for user %s", userID)
	}
	return s, nil
}

type mockLoanApplicationRepository struct {
	saveFunc  func(ctx context.Context, app model.LoanApplication) error
	apps      map[string]model.LoanApplication
	savedApps []model.LoanApplication
}

func (m *mockLoanApplicationRepository) Save(ctx context.Context, app model.LoanApplication) error {
	if m.saveFunc != nil {
		return m.saveFunc(ctx, app)
	}
	if m.apps == nil {
		m.apps = make(map[string]model.LoanApplication)
	}
	m.apps[app.ID()] = app.ClearEvents()
	m.savedApps = append(m.savedApps, app)
	return nil
}

func (m *mockLoanApplicationRepository) FindByID(_ context.Context, id string) (model.LoanApplication, error) {
	app, ok := m.apps[id]
	if !ok {
		return model.LoanApplication{}, apperr.NotFound("application %s not found", id)
	}
	return app, nil
}

func (m *mockLoanApplicationRepository) FindByUserID(_ context.Context, userID string) ([]model.LoanApplication, error) {
	var out []model.LoanApplication
	for _, app := range m.apps {
		if app.UserID() == userID {
			out = append(out, app)
		}
	}
	return out, nil
}

type mockLoanRepository struct {
	saveFunc   func(ctx context.Context, loan model.LoanAccount) error
	loans      map[string]model.LoanAccount
	order      []string
	savedLoans []model.LoanAccount
}

func (m *mockLoanRepository) put(loan model.LoanAccount) {
	if m.loans == nil {
		m.loans = make(map[string]model.LoanAccount)
	}
	if _, ok := m.loans[loan.ID()]; !ok {
		m.order = append(m.order, loan.ID())
	}
	m.loans[loan.ID()] = loan.ClearEvents()
}

func (m *mockLoanRepository) Save(ctx context.Context, loan model.LoanAccount) error {
	if m.saveFunc != nil {
		return m.saveFunc(ctx, loan)
	}
	m.put(loan)
	m.savedLoans = append(m.savedLoans, loan)
	return nil
}

func (m *mockLoanRepository) FindByID(_ context.Context, id string) (model.LoanAccount, error) {
	loan, ok := m.loans[id]
	if !ok {
		return model.LoanAccount{}, apperr.NotFound("loan %s not found", id)
	}
	return loan, nil
}

func (m *mockLoanRepository) FindByApplicationID(_ context.Context, applicationID string) (model.LoanAccount, error) {
	for _, loan := range m.loans {
		if loan.ApplicationID() == applicationID {
			return loan, nil
		}
	}
	return model.LoanAccount{}, apperr.NotFound("no loan for application %s", applicationID)
}

func (m *mockLoanRepository) ListByStatus(_ context.Context, status valueobject.LoanStatus) ([]model.LoanAccount, error) {
	var out []model.LoanAccount
	for _, id := range m.order {
		if loan := m.loans[id]; loan.Status().Equal(status) {
			out = append(out, loan)
		}
	}
	return out, nil
}

type mockCollectionCaseRepository struct {
	saved []model.CollectionCase
}

func (m *mockCollectionCaseRepository) Save(_ context.Context, c model.CollectionCase) error {
	m.saved = append(m.saved, c)
	return nil
}

func (m *mockCollectionCaseRepository) FindByLoanID(_ context.Context, loanID string) ([]model.CollectionCase, error) {
	var out []model.CollectionCase
	for _, c := range m.saved {
		if c.LoanID() == loanID {
			out = append(out, c)
		}
	}
	return out, nil
}

type mockEventPublisher struct {
	publishFunc     func(ctx context.Context, events ...event.DomainEvent) error
	publishedEvents []event.DomainEvent
}

func (m *mockEventPublisher) Publish(ctx context.Context, evts ...event.DomainEvent) error {
	if m.publishFunc != nil {
		return m.publishFunc(ctx, evts...)
	}
	m.publishedEvents = append(m.publishedEvents, evts...)
	return nil
}

func (m *mockEventPublisher) types() []string {
	out := make([]string, 0, len(m.publishedEvents))
	for _, e := range m.publishedEvents {
		out = append(out, e.EventType())
	}
	return out
}

type mockTransactor struct {
	calls int
}

func (m *mockTransactor) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	m.calls++
	return fn(ctx)
}

type mockContractNumbers struct {
	next int
	err  error
}

func (m *mockContractNumbers) Next(context.Context) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	m.next++
	return "JC-" + strconv.Itoa(m.next), nil
}

type mockSessionStore struct {
	mu      sync.Mutex
	entries map[string][]byte
	ttls    map[string]time.Duration
}

func newMockSessionStore() *mockSessionStore {
	return &mockSessionStore{entries: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (m *mockSessionStore) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.entries[key]
	if !ok {
		return nil, apperr.NotFound("session key %s not found", key)
	}
	return v, nil
}

func (m *mockSessionStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = value
	m.ttls[key] = ttl
	return nil
}

func (m *mockSessionStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	return nil
}

type mockDocumentParser struct {
	text string
	err  error
}

func (m *mockDocumentParser) Parse(context.Context, []byte) (string, error) {
	return m.text, m.err
}

type mockIdentityReader struct {
	doc model.IdentityDocument
	err error
}

func (m *mockIdentityReader) Read(context.Context, []byte) (model.IdentityDocument, error) {
	return m.doc, m.err
}

var errStorage = errors.New("storage unavailable")

// --- Fixtures ---

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func day(y int, m time.Month, dd int) time.Time { return time.Date(y, m, dd, 0, 0, 0, 0, time.UTC) }

// newLoan opens a loan with payment day 1, so installment k falls due on the
// first of the k-th month after start.
func newLoan(t *testing.T, principal, rate string, term int, start time.Time) model.LoanAccount {
	t.Helper()
	loan, err := model.NewLoanAccount(model.NewLoanAccountParams{
		UserID:            "user-1",
		ApplicationID:     "app-" + start.Format("20060102") + "-" + principal,
		ContractNo:        "JC-1",
		Principal:         d(principal),
		AnnualRatePercent: d(rate),
		TermMonths:        term,
		PaymentDay:        1,
		StartDate:         start,
	}, start)
	require.NoError(t, err)
	return loan.ClearEvents()
}

func identity(userID string) model.IdentitySnapshot {
	return model.IdentitySnapshot{
		UserID:     userID,
		CitizenID:  "1103700012345",
		FirstName:  "Somchai",
		LastName:   "Jaidee",
		BirthDate:  day(1990, 5, 14),
		VerifiedAt: day(2024, 1, 1),
	}
}

package memory

import (
	"context"
	"sort"

	"github.com/jecoplus/lending/internal/domain/apperr"
	"github.com/jecoplus/lending/internal/domain/model"
	"github.com/jecoplus/lending/internal/domain/valueobject"
)

// ---------------------------------------------------------------------------
// Credit scores
// ---------------------------------------------------------------------------

// CreditScoreRepo implements port.CreditScoreRepository. Records are
// append-only.
type CreditScoreRepo struct {
	store *Store
}

func NewCreditScoreRepo(store *Store) *CreditScoreRepo {
	return &CreditScoreRepo{store: store}
}

func (r *CreditScoreRepo) Save(_ context.Context, result model.CreditScoreResult) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	for _, existing := range r.store.creditScores[result.UserID()] {
		if existing.ID() == result.ID() {
			return apperr.Conflict("credit score %s already recorded", result.ID())
		}
	}
	r.store.creditScores[result.UserID()] = append(r.store.creditScores[result.UserID()], result)
	return nil
}

// LatestByUserID returns the most recent record; ties keep insertion order.
func (r *CreditScoreRepo) LatestByUserID(_ context.Context, userID string) (model.CreditScoreResult, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	records := r.store.creditScores[userID]
	if len(records) == 0 {
		return model.CreditScoreResult{}, apperr.NotFound("no credit score for user %s", userID)
	}
	latest := records[0]
	for _, rec := range records[1:] {
		if !rec.CreatedAt().Before(latest.CreatedAt()) {
			latest = rec
		}
	}
	return latest, nil
}

// ---------------------------------------------------------------------------
// Identities
// ---------------------------------------------------------------------------

// IdentityRepo implements port.IdentityRepository.
type IdentityRepo struct {
	store *Store
}

func NewIdentityRepo(store *Store) *IdentityRepo {
	return &IdentityRepo{store: store}
}

func (r *IdentityRepo) Save(_ context.Context, snapshot model.IdentitySnapshot) error {
	if err := snapshot.Validate(); err != nil {
		return err
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.identities[snapshot.UserID] = snapshot
	return nil
}

func (r *IdentityRepo) FindByUserID(_ context.Context, userID string) (model.IdentitySnapshot, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	snap, ok := r.store.identities[userID]
	if !ok {
		return model.IdentitySnapshot{}, apperr.NotFound("no identity record for user %s", userID)
	}
	return snap, nil
}

// ---------------------------------------------------------------------------
// Loan applications
// ---------------------------------------------------------------------------

// LoanApplicationRepo implements port.LoanApplicationRepository with the
// same optimistic version check as the SQL store.
type LoanApplicationRepo struct {
	store *Store
}

func NewLoanApplicationRepo(store *Store) *LoanApplicationRepo {
	return &LoanApplicationRepo{store: store}
}

func (r *LoanApplicationRepo) Save(_ context.Context, app model.LoanApplication) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	version := app.Version()
	if existing, ok := r.store.applications[app.ID()]; ok {
		if existing.Version() != app.Version() {
			return apperr.Conflict("loan application %s was modified concurrently", app.ID())
		}
		version++
	}
	r.store.applications[app.ID()] = model.ReconstructLoanApplication(
		app.ID(), app.UserID(), app.Amount(), app.TermMonths(), app.Purpose(),
		app.Status(), app.CreditScoreID(), app.CreditScore(), app.Applicant(),
		app.DecisionReason(), app.ContractNo(), version, app.CreatedAt(), app.UpdatedAt(),
	)
	return nil
}

func (r *LoanApplicationRepo) FindByID(_ context.Context, id string) (model.LoanApplication, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	app, ok := r.store.applications[id]
	if !ok {
		return model.LoanApplication{}, apperr.NotFound("loan application %s not found", id)
	}
	return app, nil
}

// FindByUserID returns the user's applications, newest first.
func (r *LoanApplicationRepo) FindByUserID(_ context.Context, userID string) ([]model.LoanApplication, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var out []model.LoanApplication
	for _, app := range r.store.applications {
		if app.UserID() == userID {
			out = append(out, app)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt().After(out[j].CreatedAt()) })
	return out, nil
}

// ---------------------------------------------------------------------------
// Loan accounts
// ---------------------------------------------------------------------------

// LoanRepo implements port.LoanRepository.
type LoanRepo struct {
	store *Store
}

func NewLoanRepo(store *Store) *LoanRepo {
	return &LoanRepo{store: store}
}

func (r *LoanRepo) Save(_ context.Context, loan model.LoanAccount) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	snap := loan.Snapshot()
	if existing, ok := r.store.loans[loan.ID()]; ok {
		if existing.Version() != loan.Version() {
			return apperr.Conflict("loan %s was modified concurrently", loan.ID())
		}
		snap.Version++
	} else {
		for _, other := range r.store.loans {
			if other.ApplicationID() == loan.ApplicationID() {
				return apperr.Conflict("application %s already has loan %s", loan.ApplicationID(), other.ID())
			}
		}
	}
	r.store.loans[loan.ID()] = model.ReconstructLoanAccount(snap)
	return nil
}

func (r *LoanRepo) FindByID(_ context.Context, id string) (model.LoanAccount, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	loan, ok := r.store.loans[id]
	if !ok {
		return model.LoanAccount{}, apperr.NotFound("loan %s not found", id)
	}
	return loan, nil
}

func (r *LoanRepo) FindByApplicationID(_ context.Context, applicationID string) (model.LoanAccount, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	for _, loan := range r.store.loans {
		if loan.ApplicationID() == applicationID {
			return loan, nil
		}
	}
	return model.LoanAccount{}, apperr.NotFound("no loan for application %s", applicationID)
}

// ListByStatus returns matching loans ordered by disbursement.
func (r *LoanRepo) ListByStatus(_ context.Context, status valueobject.LoanStatus) ([]model.LoanAccount, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var out []model.LoanAccount
	for _, loan := range r.store.loans {
		if loan.Status().Equal(status) {
			out = append(out, loan)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DisbursedAt().Equal(out[j].DisbursedAt()) {
			return out[i].ID() < out[j].ID()
		}
		return out[i].DisbursedAt().Before(out[j].DisbursedAt())
	})
	return out, nil
}

// ---------------------------------------------------------------------------
// Collection cases
// ---------------------------------------------------------------------------

// CollectionCaseRepo implements port.CollectionCaseRepository.
type CollectionCaseRepo struct {
	store *Store
}

func NewCollectionCaseRepo(store *Store) *CollectionCaseRepo {
	return &CollectionCaseRepo{store: store}
}

func (r *CollectionCaseRepo) Save(_ context.Context, c model.CollectionCase) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.cases[c.ID()] = c
	return nil
}

// FindByLoanID returns the loan's cases, newest first.
func (r *CollectionCaseRepo) FindByLoanID(_ context.Context, loanID string) ([]model.CollectionCase, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var out []model.CollectionCase
	for _, c := range r.store.cases {
		if c.LoanID() == loanID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt().After(out[j].CreatedAt()) })
	return out, nil
}

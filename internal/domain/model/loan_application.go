package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jecoplus/lending/internal/domain/apperr"
	"github.com/jecoplus/lending/internal/domain/event"
	"github.com/jecoplus/lending/internal/domain/valueobject"
)

// ---------------------------------------------------------------------------
// LoanApplication aggregate root
// ---------------------------------------------------------------------------

// LoanApplication is an immutable aggregate. Every mutation returns a new copy.
type LoanApplication struct {
	id             string
	userID         string
	amount         decimal.Decimal
	termMonths     int
	purpose        string
	status         valueobject.LoanStatus
	creditScoreID  string
	creditScore    int
	applicant      IdentitySnapshot
	decisionReason string
	contractNo     string
	version        int
	createdAt      time.Time
	updatedAt      time.Time
	domainEvents   []event.DomainEvent
}

// NewLoanApplication creates an application in APPLIED status.
func NewLoanApplication(userID string, amount decimal.Decimal, termMonths int, purpose string, now time.Time) (LoanApplication, error) {
	if userID == "" {
		return LoanApplication{}, apperr.Validation("user ID is required")
	}
	if !amount.IsPositive() {
		return LoanApplication{}, apperr.Validation("requested amount must be positive, got %s", amount)
	}
	if termMonths <= 0 {
		return LoanApplication{}, apperr.Validation("term months must be positive, got %d", termMonths)
	}

	return LoanApplication{
		id:         uuid.New().String(),
		userID:     userID,
		amount:     amount,
		termMonths: termMonths,
		purpose:    strings.TrimSpace(purpose),
		status:     valueobject.LoanStatusApplied,
		version:    1,
		createdAt:  now,
		updatedAt:  now,
	}, nil
}

// ReconstructLoanApplication rebuilds from persistence.
func ReconstructLoanApplication(
	id, userID string,
	amount decimal.Decimal,
	termMonths int,
	purpose string,
	status valueobject.LoanStatus,
	creditScoreID string,
	creditScore int,
	applicant IdentitySnapshot,
	decisionReason, contractNo string,
	version int,
	createdAt, updatedAt time.Time,
) LoanApplication {
	return LoanApplication{
		id:             id,
		userID:         userID,
		amount:         amount,
		termMonths:     termMonths,
		purpose:        purpose,
		status:         status,
		creditScoreID:  creditScoreID,
		creditScore:    creditScore,
		applicant:      applicant,
		decisionReason: decisionReason,
		contractNo:     contractNo,
		version:        version,
		createdAt:      createdAt,
		updatedAt:      updatedAt,
	}
}

// ---------------------------------------------------------------------------
// State transitions
// ---------------------------------------------------------------------------

// Underwrite attaches the score and identity and decides the next stage: an
// APPROVED score forwards to the partner, a REJECTED score rejects outright.
func (a LoanApplication) Underwrite(score CreditScoreResult, applicant IdentitySnapshot, now time.Time) (LoanApplication, error) {
	if !a.status.Equal(valueobject.LoanStatusApplied) {
		return a, valueobject.ErrInvalidStatusTransition
	}
	if score.UserID() != a.userID {
		return a, apperr.Validation("credit score %s belongs to another user", score.ID())
	}
	if err := applicant.Validate(); err != nil {
		return a, err
	}

	next := a
	next.creditScoreID = score.ID()
	next.creditScore = score.Score()
	next.applicant = applicant
	next.updatedAt = now
	next.domainEvents = copyEvents(a.domainEvents)

	if score.Decision().Equal(valueobject.CreditDecisionApproved) {
		next.status = valueobject.LoanStatusPendingPartner
		next.domainEvents = append(next.domainEvents, event.NewLoanApplicationSubmitted(
			a.id, a.userID, a.amount, a.termMonths, a.purpose, score.ID(), now,
		))
		return next, nil
	}

	next.status = valueobject.LoanStatusRejected
	next.decisionReason = fmt.Sprintf("credit score %d is below the approval threshold", score.Score())
	next.domainEvents = append(next.domainEvents, event.NewLoanApplicationRejected(a.id, a.userID, next.decisionReason, now))
	return next, nil
}

// FormatContractNo renders the partner contract number JC-YYYYMM-NNNNNN.
func FormatContractNo(at time.Time, seq int64) string {
	return fmt.Sprintf("JC-%s-%06d", at.Format("200601"), seq)
}

// Approve records the partner's approval and the contract number.
func (a LoanApplication) Approve(contractNo string, now time.Time) (LoanApplication, error) {
	if !a.status.CanTransitionTo(valueobject.LoanStatusApproved) {
		return a, valueobject.ErrInvalidStatusTransition
	}
	if contractNo == "" {
		return a, apperr.Validation("contract number is required")
	}
	next := a
	next.status = valueobject.LoanStatusApproved
	next.contractNo = contractNo
	next.decisionReason = "approved by partner"
	next.updatedAt = now
	next.domainEvents = copyEvents(a.domainEvents)
	next.domainEvents = append(next.domainEvents, event.NewLoanApplicationApproved(a.id, a.userID, contractNo, now))
	return next, nil
}

// Reject records a partner rejection.
func (a LoanApplication) Reject(reason string, now time.Time) (LoanApplication, error) {
	if !a.status.Equal(valueobject.LoanStatusPendingPartner) {
		return a, valueobject.ErrInvalidStatusTransition
	}
	if strings.TrimSpace(reason) == "" {
		return a, apperr.Validation("rejection reason is required")
	}
	next := a
	next.status = valueobject.LoanStatusRejected
	next.decisionReason = reason
	next.updatedAt = now
	next.domainEvents = copyEvents(a.domainEvents)
	next.domainEvents = append(next.domainEvents, event.NewLoanApplicationRejected(a.id, a.userID, reason, now))
	return next, nil
}

// MarkDisbursed transitions APPROVED -> ACTIVE once the loan account exists.
// The LoanDisbursed event is raised by the account, not here.
func (a LoanApplication) MarkDisbursed(now time.Time) (LoanApplication, error) {
	if !a.status.CanTransitionTo(valueobject.LoanStatusActive) {
		return a, valueobject.ErrInvalidStatusTransition
	}
	next := a
	next.status = valueobject.LoanStatusActive
	next.updatedAt = now
	next.domainEvents = copyEvents(a.domainEvents)
	return next, nil
}

// ---------------------------------------------------------------------------
// Accessors
// ---------------------------------------------------------------------------

func (a LoanApplication) ID() string                          { return a.id }
func (a LoanApplication) UserID() string                      { return a.userID }
func (a LoanApplication) Amount() decimal.Decimal             { return a.amount }
func (a LoanApplication) TermMonths() int                     { return a.termMonths }
func (a LoanApplication) Purpose() string                     { return a.purpose }
func (a LoanApplication) Status() valueobject.LoanStatus      { return a.status }
func (a LoanApplication) CreditScoreID() string               { return a.creditScoreID }
func (a LoanApplication) CreditScore() int                    { return a.creditScore }
func (a LoanApplication) Applicant() IdentitySnapshot         { return a.applicant }
func (a LoanApplication) DecisionReason() string              { return a.decisionReason }
func (a LoanApplication) ContractNo() string                  { return a.contractNo }
func (a LoanApplication) Version() int                        { return a.version }
func (a LoanApplication) CreatedAt() time.Time                { return a.createdAt }
func (a LoanApplication) UpdatedAt() time.Time                { return a.updatedAt }
func (a LoanApplication) DomainEvents() []event.DomainEvent   { return a.domainEvents }

// ClearEvents returns a copy with an empty event list.
func (a LoanApplication) ClearEvents() LoanApplication {
	next := a
	next.domainEvents = nil
	return next
}

// ---------------------------------------------------------------------------
// helpers
// ---------------------------------------------------------------------------

func copyEvents(src []event.DomainEvent) []event.DomainEvent {
	if len(src) == 0 {
		return nil
	}
	dst := make([]event.DomainEvent, len(src))
	copy(dst, src)
	return dst
}

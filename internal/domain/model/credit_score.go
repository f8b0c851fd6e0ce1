package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jecoplus/lending/internal/domain/event"
	"github.com/jecoplus/lending/internal/domain/valueobject"
)

// CreditProfile is the financial snapshot a score is computed from.
type CreditProfile struct {
	MonthlyIncome   decimal.Decimal
	MonthlyExpenses decimal.Decimal
	AvgBalance      decimal.Decimal
}

// ScoringFactor is one line of the score breakdown.
type ScoringFactor struct {
	Name   string
	Ratio  decimal.Decimal
	Points int
}

// CreditScoreResult is immutable once created; a new calculation is a new record.
type CreditScoreResult struct {
	id           string
	userID       string
	score        int
	decision     valueobject.CreditDecision
	profile      CreditProfile
	factors      []ScoringFactor
	createdAt    time.Time
	domainEvents []event.DomainEvent
}

// NewCreditScoreResult stamps a fresh score record.
func NewCreditScoreResult(
	userID string,
	score int,
	decision valueobject.CreditDecision,
	profile CreditProfile,
	factors []ScoringFactor,
	now time.Time,
) CreditScoreResult {
	id := uuid.New().String()
	return CreditScoreResult{
		id:        id,
		userID:    userID,
		score:     score,
		decision:  decision,
		profile:   profile,
		factors:   append([]ScoringFactor(nil), factors...),
		createdAt: now,
		domainEvents: []event.DomainEvent{
			event.NewCreditScoreCalculated(id, userID, score, decision.String(), now),
		},
	}
}

// ReconstructCreditScoreResult rebuilds from persistence.
func ReconstructCreditScoreResult(
	id, userID string,
	score int,
	decision valueobject.CreditDecision,
	profile CreditProfile,
	factors []ScoringFactor,
	createdAt time.Time,
) CreditScoreResult {
	return CreditScoreResult{
		id:        id,
		userID:    userID,
		score:     score,
		decision:  decision,
		profile:   profile,
		factors:   factors,
		createdAt: createdAt,
	}
}

func (r CreditScoreResult) ID() string                           { return r.id }
func (r CreditScoreResult) UserID() string                       { return r.userID }
func (r CreditScoreResult) Score() int                           { return r.score }
func (r CreditScoreResult) Decision() valueobject.CreditDecision { return r.decision }
func (r CreditScoreResult) Profile() CreditProfile               { return r.profile }
func (r CreditScoreResult) CreatedAt() time.Time                 { return r.createdAt }
func (r CreditScoreResult) DomainEvents() []event.DomainEvent    { return r.domainEvents }

// Factors returns a copy of the breakdown.
func (r CreditScoreResult) Factors() []ScoringFactor {
	return append([]ScoringFactor(nil), r.factors...)
}

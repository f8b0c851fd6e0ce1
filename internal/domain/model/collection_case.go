package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jecoplus/lending/internal/domain/apperr"
	"github.com/jecoplus/lending/internal/domain/valueobject"
)

// CollectionCase tracks collections work on a loan that went IN_COLLECTION.
type CollectionCase struct {
	id          string
	loanID      string
	status      valueobject.CollectionCaseStatus
	daysOverdue int
	amountDue   decimal.Decimal
	assignedTo  string
	notes       []string
	createdAt   time.Time
	updatedAt   time.Time
}

// OpenCollectionCase opens a case for loan, which must be IN_COLLECTION.
func OpenCollectionCase(loan LoanAccount, now time.Time) (CollectionCase, error) {
	if !loan.Status().Equal(valueobject.LoanStatusInCollection) {
		return CollectionCase{}, apperr.InvalidState("loan %s is %s, not IN_COLLECTION", loan.ID(), loan.Status())
	}
	return CollectionCase{
		id:          uuid.New().String(),
		loanID:      loan.ID(),
		status:      valueobject.CollectionCaseStatusOpen,
		daysOverdue: loan.Aggregates().DaysOverdue,
		amountDue:   loan.amountOverdue(),
		createdAt:   now,
		updatedAt:   now,
	}, nil
}

// ReconstructCollectionCase rebuilds from persistence.
func ReconstructCollectionCase(
	id, loanID string,
	status valueobject.CollectionCaseStatus,
	daysOverdue int,
	amountDue decimal.Decimal,
	assignedTo string,
	notes []string,
	createdAt, updatedAt time.Time,
) CollectionCase {
	return CollectionCase{
		id:          id,
		loanID:      loanID,
		status:      status,
		daysOverdue: daysOverdue,
		amountDue:   amountDue,
		assignedTo:  assignedTo,
		notes:       notes,
		createdAt:   createdAt,
		updatedAt:   updatedAt,
	}
}

// AddNote appends a note to the case.
func (c CollectionCase) AddNote(note string, now time.Time) CollectionCase {
	next := c
	next.notes = append(append([]string(nil), c.notes...), note)
	next.updatedAt = now
	return next
}

// Assign sets an agent and moves an OPEN case to IN_PROGRESS.
func (c CollectionCase) Assign(agentID string, now time.Time) (CollectionCase, error) {
	if agentID == "" {
		return c, apperr.Validation("agent ID is required")
	}
	next := c
	next.assignedTo = agentID
	next.updatedAt = now
	if c.status.Equal(valueobject.CollectionCaseStatusOpen) {
		next.status = valueobject.CollectionCaseStatusInProgress
	}
	return next, nil
}

// Resolve transitions to RESOLVED.
func (c CollectionCase) Resolve(now time.Time) (CollectionCase, error) {
	if !c.status.Equal(valueobject.CollectionCaseStatusOpen) && !c.status.Equal(valueobject.CollectionCaseStatusInProgress) {
		return c, valueobject.ErrInvalidStatusTransition
	}
	next := c
	next.status = valueobject.CollectionCaseStatusResolved
	next.updatedAt = now
	return next, nil
}

func (c CollectionCase) ID() string                               { return c.id }
func (c CollectionCase) LoanID() string                           { return c.loanID }
func (c CollectionCase) Status() valueobject.CollectionCaseStatus { return c.status }
func (c CollectionCase) DaysOverdue() int                         { return c.daysOverdue }
func (c CollectionCase) AmountDue() decimal.Decimal               { return c.amountDue }
func (c CollectionCase) AssignedTo() string                       { return c.assignedTo }
func (c CollectionCase) CreatedAt() time.Time                     { return c.createdAt }
func (c CollectionCase) UpdatedAt() time.Time                     { return c.updatedAt }

// Notes returns a copy of the case notes.
func (c CollectionCase) Notes() []string {
	return append([]string(nil), c.notes...)
}

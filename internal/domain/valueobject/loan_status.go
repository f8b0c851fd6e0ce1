package valueobject

import (
	"errors"
	"fmt"
)

// ---------------------------------------------------------------------------
// LoanStatus – immutable value object
// ---------------------------------------------------------------------------

// LoanStatus is the lifecycle stage shared by applications and loan accounts.
type LoanStatus struct {
	value string
}

const (
	loanStatusApplied        = "APPLIED"
	loanStatusPendingPartner = "PENDING_PARTNER"
	loanStatusApproved       = "APPROVED"
	loanStatusRejected       = "REJECTED"
	loanStatusActive         = "ACTIVE"
	loanStatusPaidOff        = "PAID_OFF"
	loanStatusInCollection   = "IN_COLLECTION"
)

var (
	LoanStatusApplied        = LoanStatus{value: loanStatusApplied}
	LoanStatusPendingPartner = LoanStatus{value: loanStatusPendingPartner}
	LoanStatusApproved       = LoanStatus{value: loanStatusApproved}
	LoanStatusRejected       = LoanStatus{value: loanStatusRejected}
	LoanStatusActive         = LoanStatus{value: loanStatusActive}
	LoanStatusPaidOff        = LoanStatus{value: loanStatusPaidOff}
	LoanStatusInCollection   = LoanStatus{value: loanStatusInCollection}
)

var validLoanStatuses = map[string]LoanStatus{
	loanStatusApplied:        LoanStatusApplied,
	loanStatusPendingPartner: LoanStatusPendingPartner,
	loanStatusApproved:       LoanStatusApproved,
	loanStatusRejected:       LoanStatusRejected,
	loanStatusActive:         LoanStatusActive,
	loanStatusPaidOff:        LoanStatusPaidOff,
	loanStatusInCollection:   LoanStatusInCollection,
}

// loanTransitions is the lifecycle graph. APPROVED -> ACTIVE is disbursement.
var loanTransitions = map[string][]string{
	loanStatusApplied:        {loanStatusPendingPartner, loanStatusRejected},
	loanStatusPendingPartner: {loanStatusApproved, loanStatusRejected},
	loanStatusApproved:       {loanStatusActive},
	loanStatusActive:         {loanStatusPaidOff, loanStatusInCollection},
}

// NewLoanStatus creates a LoanStatus from a raw string.
func NewLoanStatus(s string) (LoanStatus, error) {
	v, ok := validLoanStatuses[s]
	if !ok {
		return LoanStatus{}, fmt.Errorf("invalid loan status: %q", s)
	}
	return v, nil
}

// String returns the string representation of the status.
func (s LoanStatus) String() string { return s.value }

// IsZero returns true if the status has not been initialised.
func (s LoanStatus) IsZero() bool { return s.value == "" }

// Equal returns true when both statuses carry the same value.
func (s LoanStatus) Equal(other LoanStatus) bool { return s.value == other.value }

// CanTransitionTo reports whether next is reachable in one step.
func (s LoanStatus) CanTransitionTo(next LoanStatus) bool {
	for _, v := range loanTransitions[s.value] {
		if v == next.value {
			return true
		}
	}
	return false
}

// IsTerminal is true for PAID_OFF, REJECTED and IN_COLLECTION.
func (s LoanStatus) IsTerminal() bool {
	return len(loanTransitions[s.value]) == 0 && !s.IsZero()
}

// ---------------------------------------------------------------------------
// AccountStatus – immutable value object
// ---------------------------------------------------------------------------

// AccountStatus is the servicing state of a loan account, independent of LoanStatus.
type AccountStatus struct {
	value string
}

const (
	accountStatusActive    = "ACTIVE"
	accountStatusClosed    = "CLOSED"
	accountStatusSuspended = "SUSPENDED"
	accountStatusFrozen    = "FROZEN"
)

var (
	AccountStatusActive    = AccountStatus{value: accountStatusActive}
	AccountStatusClosed    = AccountStatus{value: accountStatusClosed}
	AccountStatusSuspended = AccountStatus{value: accountStatusSuspended}
	AccountStatusFrozen    = AccountStatus{value: accountStatusFrozen}
)

var validAccountStatuses = map[string]AccountStatus{
	accountStatusActive:    AccountStatusActive,
	accountStatusClosed:    AccountStatusClosed,
	accountStatusSuspended: AccountStatusSuspended,
	accountStatusFrozen:    AccountStatusFrozen,
}

// NewAccountStatus creates an AccountStatus from a raw string.
func NewAccountStatus(s string) (AccountStatus, error) {
	v, ok := validAccountStatuses[s]
	if !ok {
		return AccountStatus{}, fmt.Errorf("invalid account status: %q", s)
	}
	return v, nil
}

func (s AccountStatus) String() string { return s.value }

func (s AccountStatus) IsZero() bool { return s.value == "" }

func (s AccountStatus) Equal(other AccountStatus) bool { return s.value == other.value }

// ---------------------------------------------------------------------------
// CreditDecision – immutable value object
// ---------------------------------------------------------------------------

// CreditDecision is the binary outcome of scoring. There is no third state.
type CreditDecision struct {
	value string
}

const (
	creditDecisionApproved = "APPROVED"
	creditDecisionRejected = "REJECTED"
)

var (
	CreditDecisionApproved = CreditDecision{value: creditDecisionApproved}
	CreditDecisionRejected = CreditDecision{value: creditDecisionRejected}
)

// NewCreditDecision creates a CreditDecision from a raw string.
func NewCreditDecision(s string) (CreditDecision, error) {
	switch s {
	case creditDecisionApproved:
		return CreditDecisionApproved, nil
	case creditDecisionRejected:
		return CreditDecisionRejected, nil
	}
	return CreditDecision{}, fmt.Errorf("invalid credit decision: %q", s)
}

func (d CreditDecision) String() string { return d.value }

func (d CreditDecision) IsZero() bool { return d.value == "" }

func (d CreditDecision) Equal(other CreditDecision) bool { return d.value == other.value }

// ---------------------------------------------------------------------------
// CollectionCaseStatus – immutable value object
// ---------------------------------------------------------------------------

// CollectionCaseStatus represents the lifecycle stage of a collection case.
type CollectionCaseStatus struct {
	value string
}

const (
	collectionStatusOpen       = "OPEN"
	collectionStatusInProgress = "IN_PROGRESS"
	collectionStatusResolved   = "RESOLVED"
	collectionStatusClosed     = "CLOSED"
)

var (
	CollectionCaseStatusOpen       = CollectionCaseStatus{value: collectionStatusOpen}
	CollectionCaseStatusInProgress = CollectionCaseStatus{value: collectionStatusInProgress}
	CollectionCaseStatusResolved   = CollectionCaseStatus{value: collectionStatusResolved}
	CollectionCaseStatusClosed     = CollectionCaseStatus{value: collectionStatusClosed}
)

var validCollectionCaseStatuses = map[string]CollectionCaseStatus{
	collectionStatusOpen:       CollectionCaseStatusOpen,
	collectionStatusInProgress: CollectionCaseStatusInProgress,
	collectionStatusResolved:   CollectionCaseStatusResolved,
	collectionStatusClosed:     CollectionCaseStatusClosed,
}

// NewCollectionCaseStatus creates a CollectionCaseStatus from a raw string.
func NewCollectionCaseStatus(s string) (CollectionCaseStatus, error) {
	v, ok := validCollectionCaseStatuses[s]
	if !ok {
		return CollectionCaseStatus{}, fmt.Errorf("invalid collection case status: %q", s)
	}
	return v, nil
}

func (s CollectionCaseStatus) String() string { return s.value }

func (s CollectionCaseStatus) IsZero() bool { return s.value == "" }

func (s CollectionCaseStatus) Equal(other CollectionCaseStatus) bool { return s.value == other.value }

// ---------------------------------------------------------------------------
// Sentinel errors
// ---------------------------------------------------------------------------

var (
	ErrInvalidStatusTransition = errors.New("invalid status transition")
)

package model

import (
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jecoplus/lending/internal/domain/apperr"
	"github.com/jecoplus/lending/internal/domain/event"
	"github.com/jecoplus/lending/internal/domain/valueobject"
)

// SuspensionThresholdDays is the delinquency age at which the account must be
// SUSPENDED and the loan handed to collections.
const SuspensionThresholdDays = 90

// ---------------------------------------------------------------------------
// LoanAccount aggregate root
// ---------------------------------------------------------------------------

// LoanAccount is an immutable aggregate. Mutations return a new copy.
type LoanAccount struct {
	id             string
	userID         string
	applicationID  string
	contractNo     string
	principal      decimal.Decimal
	interestRate   decimal.Decimal
	originalTerm   int
	currentTerm    int
	paymentDay     int
	monthlyPayment decimal.Decimal
	status         valueobject.LoanStatus
	accountStatus  valueobject.AccountStatus
	ledger         Ledger
	aggregates     Aggregates
	modification   Modification
	earlySavings   decimal.Decimal
	disbursedAt    time.Time
	version        int
	createdAt      time.Time
	updatedAt      time.Time
	domainEvents   []event.DomainEvent
}

// Modification holds the pre-restructuring terms. They are captured on the
// first restructuring and never overwritten.
type Modification struct {
	IsModified             bool
	ModificationDate       *time.Time
	OriginalInterestRate   decimal.Decimal
	OriginalMonthlyPayment decimal.Decimal
	OriginalMaturityDate   *time.Time
	// SegmentStarts lists the sequence opening each restructured segment,
	// one entry per restructuring.
	SegmentStarts          []int
}

// LoanAccountSnapshot is the flat persistence form of a LoanAccount.
type LoanAccountSnapshot struct {
	ID             string
	UserID         string
	ApplicationID  string
	ContractNo     string
	Principal      decimal.Decimal
	InterestRate   decimal.Decimal
	OriginalTerm   int
	CurrentTerm    int
	PaymentDay     int
	MonthlyPayment decimal.Decimal
	Status         valueobject.LoanStatus
	AccountStatus  valueobject.AccountStatus
	Ledger         Ledger
	Aggregates     Aggregates
	Modification   Modification
	EarlySavings   decimal.Decimal
	DisbursedAt    time.Time
	Version        int
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// NewLoanAccountParams are the disbursement inputs.
type NewLoanAccountParams struct {
	UserID            string
	ApplicationID     string
	ContractNo        string
	Principal         decimal.Decimal
	AnnualRatePercent decimal.Decimal
	TermMonths        int
	PaymentDay        int
	StartDate         time.Time
}

// ---------------------------------------------------------------------------
// Constructors
// ---------------------------------------------------------------------------

// NewLoanAccount opens an ACTIVE loan with a freshly generated schedule.
func NewLoanAccount(p NewLoanAccountParams, now time.Time) (LoanAccount, error) {
	if p.UserID == "" {
		return LoanAccount{}, apperr.Validation("user ID is required")
	}
	if p.ApplicationID == "" {
		return LoanAccount{}, apperr.Validation("application ID is required")
	}
	if !p.Principal.IsPositive() {
		return LoanAccount{}, apperr.Validation("principal must be positive")
	}
	if p.TermMonths <= 0 {
		return LoanAccount{}, apperr.Validation("term months must be positive")
	}

	id := uuid.New().String()
	payment, err := ComputeMonthlyPayment(p.Principal, p.AnnualRatePercent, p.TermMonths)
	if err != nil {
		return LoanAccount{}, err
	}
	schedule, err := GenerateSchedule(
		LoanTerms{LoanID: id, Principal: p.Principal, AnnualRatePercent: p.AnnualRatePercent},
		ScheduleOptions{StartDate: p.StartDate, TermMonths: p.TermMonths, PaymentDay: p.PaymentDay},
	)
	if err != nil {
		return LoanAccount{}, err
	}
	paymentDay := p.PaymentDay
	if paymentDay == 0 {
		paymentDay = p.StartDate.Day()
	}

	ledger := Ledger{Installments: schedule}
	loan := LoanAccount{
		id:             id,
		userID:         p.UserID,
		applicationID:  p.ApplicationID,
		contractNo:     p.ContractNo,
		principal:      p.Principal,
		interestRate:   p.AnnualRatePercent,
		originalTerm:   p.TermMonths,
		currentTerm:    p.TermMonths,
		paymentDay:     paymentDay,
		monthlyPayment: payment,
		status:         valueobject.LoanStatusActive,
		accountStatus:  valueobject.AccountStatusActive,
		ledger:         ledger,
		aggregates:     ComputeAggregates(schedule),
		earlySavings:   decimal.Zero,
		disbursedAt:    now,
		version:        1,
		createdAt:      now,
		updatedAt:      now,
	}

	loan.domainEvents = append(loan.domainEvents, event.NewLoanDisbursed(
		id, p.UserID, p.ApplicationID, p.ContractNo,
		p.Principal, p.AnnualRatePercent, p.TermMonths, payment,
		schedule[0].DueDate, now,
	))
	return loan, nil
}

// ReconstructLoanAccount rebuilds the aggregate from persistence. Stored
// aggregates are kept as-is so they can be checked against a recomputation.
func ReconstructLoanAccount(s LoanAccountSnapshot) LoanAccount {
	return LoanAccount{
		id:             s.ID,
		userID:         s.UserID,
		applicationID:  s.ApplicationID,
		contractNo:     s.ContractNo,
		principal:      s.Principal,
		interestRate:   s.InterestRate,
		originalTerm:   s.OriginalTerm,
		currentTerm:    s.CurrentTerm,
		paymentDay:     s.PaymentDay,
		monthlyPayment: s.MonthlyPayment,
		status:         s.Status,
		accountStatus:  s.AccountStatus,
		ledger:         s.Ledger.Clone(),
		aggregates:     s.Aggregates,
		modification:   s.Modification.clone(),
		earlySavings:   s.EarlySavings,
		disbursedAt:    s.DisbursedAt,
		version:        s.Version,
		createdAt:      s.CreatedAt,
		updatedAt:      s.UpdatedAt,
	}
}

// Snapshot flattens the aggregate for persistence.
func (l LoanAccount) Snapshot() LoanAccountSnapshot {
	return LoanAccountSnapshot{
		ID:             l.id,
		UserID:         l.userID,
		ApplicationID:  l.applicationID,
		ContractNo:     l.contractNo,
		Principal:      l.principal,
		InterestRate:   l.interestRate,
		OriginalTerm:   l.originalTerm,
		CurrentTerm:    l.currentTerm,
		PaymentDay:     l.paymentDay,
		MonthlyPayment: l.monthlyPayment,
		Status:         l.status,
		AccountStatus:  l.accountStatus,
		Ledger:         l.ledger.Clone(),
		Aggregates:     l.aggregates,
		Modification:   l.modification.clone(),
		EarlySavings:   l.earlySavings,
		DisbursedAt:    l.disbursedAt,
		Version:        l.version,
		CreatedAt:      l.createdAt,
		UpdatedAt:      l.updatedAt,
	}
}

// ---------------------------------------------------------------------------
// State transitions
// ---------------------------------------------------------------------------

// servicing accepts ledger changes on ACTIVE and IN_COLLECTION loans.
func (l LoanAccount) servicing() error {
	if l.status.Equal(valueobject.LoanStatusActive) || l.status.Equal(valueobject.LoanStatusInCollection) {
		return nil
	}
	return apperr.InvalidState("loan %s is %s and not being serviced", l.id, l.status)
}

// withLedger swaps the ledger, recomputes aggregates and closes the loan
// once nothing is left unresolved.
func (l LoanAccount) withLedger(ledger Ledger, now time.Time) LoanAccount {
	next := l
	next.ledger = ledger.Clone()
	next.aggregates = ComputeAggregates(next.ledger.Installments)
	next.updatedAt = now
	next.domainEvents = copyEvents(l.domainEvents)

	if next.ledger.FirstUnresolved() == len(next.ledger.Installments) && len(next.ledger.Installments) > 0 &&
		next.status.CanTransitionTo(valueobject.LoanStatusPaidOff) {
		next.status = valueobject.LoanStatusPaidOff
		next.accountStatus = valueobject.AccountStatusClosed
		next.domainEvents = append(next.domainEvents, event.NewLoanPaidOff(l.id, next.aggregates.TotalPaid, now))
	}
	return next
}

// Reconcile replaces the ledger without recording payment events. Used by
// policy ticks and scenario replays.
func (l LoanAccount) Reconcile(ledger Ledger, now time.Time) (LoanAccount, error) {
	if err := l.servicing(); err != nil {
		return l, err
	}
	return l.withLedger(ledger, now), nil
}

// PostPayments replaces the ledger and records one PaymentApplied per posted
// transaction.
func (l LoanAccount) PostPayments(ledger Ledger, posted []Transaction, now time.Time) (LoanAccount, error) {
	if err := l.servicing(); err != nil {
		return l, err
	}
	next := l.withLedger(ledger, now)
	for _, tx := range posted {
		seq := 0
		if k, ok := indexOfInstallmentID(ledger, tx.InstallmentID); ok {
			seq = ledger.Installments[k].Sequence
		}
		next.domainEvents = append(next.domainEvents, event.NewPaymentApplied(
			l.id, tx.ID, seq, tx.Amount,
			tx.Allocation.Principal, tx.Allocation.Interest, tx.Allocation.LateFee, now,
		))
	}
	return next, nil
}

// PostReversal replaces the ledger after a reversal. A PAID_OFF loan whose
// reversal leaves an installment owing is reopened as ACTIVE.
func (l LoanAccount) PostReversal(ledger Ledger, original, reversal Transaction, now time.Time) (LoanAccount, error) {
	reopen := l.status.Equal(valueobject.LoanStatusPaidOff)
	if !reopen {
		if err := l.servicing(); err != nil {
			return l, err
		}
	}
	next := l.withLedger(ledger, now)
	if reopen {
		if next.ledger.FirstUnresolved() == len(next.ledger.Installments) {
			return l, apperr.InvalidState("reversal leaves loan %s with nothing owing", l.id)
		}
		next.status = valueobject.LoanStatusActive
		next.accountStatus = valueobject.AccountStatusActive
	}
	next.domainEvents = append(next.domainEvents, event.NewPaymentReversed(l.id, original.ID, reversal.ID, reversal.Amount, now))
	return next, nil
}

// RecordWaiver replaces the ledger after a late-fee waiver.
func (l LoanAccount) RecordWaiver(ledger Ledger, sequence int, record LateFeeRecord, now time.Time) (LoanAccount, error) {
	if err := l.servicing(); err != nil {
		return l, err
	}
	if record.Waiver == nil {
		return l, apperr.Validation("late fee record %s carries no waiver", record.ID)
	}
	next := l.withLedger(ledger, now)
	next.domainEvents = append(next.domainEvents, event.NewLateFeeWaived(
		l.id, sequence, record.CalculatedFee, record.AppliedFee, record.Waiver.Actor, record.Waiver.Reason, now,
	))
	return next, nil
}

// SettleEarly applies a lump-sum settlement. The ledger must already hold the
// WAIVED installments and the EARLY_REPAYMENT transaction.
func (l LoanAccount) SettleEarly(ledger Ledger, cutoverSequence int, settlement Transaction, savings decimal.Decimal, now time.Time) (LoanAccount, error) {
	if !l.status.Equal(valueobject.LoanStatusActive) {
		return l, apperr.InvalidState("only ACTIVE loans can be settled early, loan %s is %s", l.id, l.status)
	}
	next := l.withLedger(ledger, now)
	if !next.status.Equal(valueobject.LoanStatusPaidOff) {
		return l, apperr.InvalidState("settlement left installments unresolved on loan %s", l.id)
	}
	next.earlySavings = savings
	next.domainEvents = append(next.domainEvents, event.NewLoanSettledEarly(l.id, cutoverSequence, settlement.Amount, savings, now))
	return next, nil
}

// Restructure installs a modified schedule. currentTerm becomes the total
// number of installments across both segments.
func (l LoanAccount) Restructure(ledger Ledger, newRate decimal.Decimal, newPayment decimal.Decimal, now time.Time) (LoanAccount, error) {
	if !l.status.Equal(valueobject.LoanStatusActive) {
		return l, apperr.InvalidState("only ACTIVE loans can be modified, loan %s is %s", l.id, l.status)
	}

	next := l.withLedger(ledger, now)
	if !l.modification.IsModified {
		modified := now
		next.modification = Modification{
			IsModified:             true,
			OriginalInterestRate:   l.interestRate,
			OriginalMonthlyPayment: l.monthlyPayment,
			OriginalMaturityDate:   l.MaturityDate(),
			ModificationDate:       &modified,
		}
	}
	next.modification.SegmentStarts = slices.Clone(l.modification.SegmentStarts)
	if k, ok := firstReplaced(l.ledger, ledger); ok {
		next.modification.SegmentStarts = append(next.modification.SegmentStarts, ledger.Installments[k].Sequence)
	}
	next.interestRate = newRate
	next.monthlyPayment = newPayment
	next.currentTerm = len(ledger.Installments)
	next.domainEvents = append(next.domainEvents, event.NewLoanModified(
		l.id, l.interestRate, newRate, next.currentTerm, newPayment, now,
	))
	return next, nil
}

// Suspend moves the account to SUSPENDED.
func (l LoanAccount) Suspend(now time.Time) (LoanAccount, error) {
	if !l.accountStatus.Equal(valueobject.AccountStatusActive) {
		return l, valueobject.ErrInvalidStatusTransition
	}
	next := l
	next.accountStatus = valueobject.AccountStatusSuspended
	next.updatedAt = now
	next.domainEvents = copyEvents(l.domainEvents)
	next.domainEvents = append(next.domainEvents, event.NewAccountSuspended(l.id, l.aggregates.DaysOverdue, now))
	return next, nil
}

// SendToCollection moves a seriously delinquent ACTIVE loan to IN_COLLECTION.
func (l LoanAccount) SendToCollection(now time.Time) (LoanAccount, error) {
	if !l.status.CanTransitionTo(valueobject.LoanStatusInCollection) {
		return l, valueobject.ErrInvalidStatusTransition
	}
	if l.aggregates.DaysOverdue < SuspensionThresholdDays {
		return l, apperr.InvalidState("loan %s is %d days overdue, collection starts at %d",
			l.id, l.aggregates.DaysOverdue, SuspensionThresholdDays)
	}
	next := l
	next.status = valueobject.LoanStatusInCollection
	next.updatedAt = now
	next.domainEvents = copyEvents(l.domainEvents)
	next.domainEvents = append(next.domainEvents, event.NewLoanSentToCollection(l.id, l.aggregates.DaysOverdue, l.amountOverdue(), now))
	return next, nil
}

func (l LoanAccount) amountOverdue() decimal.Decimal {
	total := decimal.Zero
	for _, inst := range l.ledger.Installments {
		if inst.Status.Equal(valueobject.InstallmentOverdue) {
			total = total.Add(inst.AmountDue())
		}
	}
	return total
}

func (m Modification) clone() Modification {
	next := m
	next.SegmentStarts = slices.Clone(m.SegmentStarts)
	return next
}

// firstReplaced is the index of the first installment of next that is not
// carried over from prev.
func firstReplaced(prev, next Ledger) (int, bool) {
	for k, inst := range next.Installments {
		if k >= len(prev.Installments) || prev.Installments[k].ID != inst.ID {
			return k, true
		}
	}
	return -1, false
}

func indexOfInstallmentID(l Ledger, id string) (int, bool) {
	for k, inst := range l.Installments {
		if inst.ID == id {
			return k, true
		}
	}
	return -1, false
}

// ---------------------------------------------------------------------------
// Accessors
// ---------------------------------------------------------------------------

func (l LoanAccount) ID() string                               { return l.id }
func (l LoanAccount) UserID() string                           { return l.userID }
func (l LoanAccount) ApplicationID() string                    { return l.applicationID }
func (l LoanAccount) ContractNo() string                       { return l.contractNo }
func (l LoanAccount) Principal() decimal.Decimal               { return l.principal }
func (l LoanAccount) InterestRate() decimal.Decimal            { return l.interestRate }
func (l LoanAccount) OriginalTerm() int                        { return l.originalTerm }
func (l LoanAccount) CurrentTerm() int                         { return l.currentTerm }
func (l LoanAccount) PaymentDay() int                          { return l.paymentDay }
func (l LoanAccount) MonthlyPayment() decimal.Decimal          { return l.monthlyPayment }
func (l LoanAccount) Status() valueobject.LoanStatus           { return l.status }
func (l LoanAccount) AccountStatus() valueobject.AccountStatus { return l.accountStatus }
func (l LoanAccount) Aggregates() Aggregates                   { return l.aggregates }
func (l LoanAccount) Modification() Modification               { return l.modification.clone() }
func (l LoanAccount) EarlyRepaymentSavings() decimal.Decimal   { return l.earlySavings }
func (l LoanAccount) DisbursedAt() time.Time                   { return l.disbursedAt }
func (l LoanAccount) Version() int                             { return l.version }
func (l LoanAccount) CreatedAt() time.Time                     { return l.createdAt }
func (l LoanAccount) UpdatedAt() time.Time                     { return l.updatedAt }
func (l LoanAccount) DomainEvents() []event.DomainEvent        { return l.domainEvents }

// Ledger returns a copy of the installment-level state.
func (l LoanAccount) Ledger() Ledger { return l.ledger.Clone() }

// Installments returns a copy of the schedule.
func (l LoanAccount) Installments() []Installment { return cloneInstallments(l.ledger.Installments) }

// MaturityDate is the due date of the last installment.
func (l LoanAccount) MaturityDate() *time.Time {
	n := len(l.ledger.Installments)
	if n == 0 {
		return nil
	}
	d := l.ledger.Installments[n-1].DueDate
	return &d
}

// ClearEvents returns a copy with no pending domain events.
func (l LoanAccount) ClearEvents() LoanAccount {
	next := l
	next.domainEvents = nil
	return next
}

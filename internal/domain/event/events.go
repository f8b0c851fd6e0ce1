package event

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/jecoplus/lending/pkg/events"
)

// DomainEvent is an alias for the shared pkg/events.DomainEvent interface.
type DomainEvent = events.DomainEvent

// Event types published on the outbox.
const (
	TypeCreditScoreCalculated    = "lending.credit_score.calculated"
	TypeIdentityConfirmed        = "lending.identity.confirmed"
	TypeLoanApplicationSubmitted = "lending.loan_application.submitted"
	TypeLoanApplicationApproved  = "lending.loan_application.approved"
	TypeLoanApplicationRejected  = "lending.loan_application.rejected"
	TypeLoanDisbursed            = "lending.loan.disbursed"
	TypePaymentApplied           = "lending.payment.applied"
	TypePaymentReversed          = "lending.payment.reversed"
	TypeLateFeeWaived            = "lending.late_fee.waived"
	TypeLoanPaidOff              = "lending.loan.paid_off"
	TypeLoanSettledEarly         = "lending.loan.settled_early"
	TypeLoanModified             = "lending.loan.modified"
	TypeAccountSuspended         = "lending.account.suspended"
	TypeLoanSentToCollection     = "lending.loan.sent_to_collection"
)

const (
	aggregateCreditScore = "CreditScore"
	aggregateApplication = "LoanApplication"
	aggregateLoan        = "LoanAccount"
	aggregateIdentity    = "IdentitySnapshot"
)

// ---------------------------------------------------------------------------
// Scoring and origination
// ---------------------------------------------------------------------------

// CreditScoreCalculated is raised for every new, immutable score record.
type CreditScoreCalculated struct {
	events.BaseEvent
	UserID   string `json:"user_id"`
	Score    int    `json:"score"`
	Decision string `json:"decision"`
}

func NewCreditScoreCalculated(scoreID, userID string, score int, decision string, at time.Time) CreditScoreCalculated {
	return CreditScoreCalculated{
		BaseEvent: events.NewBaseEvent(TypeCreditScoreCalculated, scoreID, aggregateCreditScore, at),
		UserID:    userID,
		Score:     score,
		Decision:  decision,
	}
}

// IdentityConfirmed is raised when a scanned document becomes the KYC snapshot.
type IdentityConfirmed struct {
	events.BaseEvent
	UserID     string `json:"user_id"`
	IsFallback bool   `json:"is_fallback"`
}

func NewIdentityConfirmed(userID string, fallback bool, at time.Time) IdentityConfirmed {
	return IdentityConfirmed{
		BaseEvent:  events.NewBaseEvent(TypeIdentityConfirmed, userID, aggregateIdentity, at),
		UserID:     userID,
		IsFallback: fallback,
	}
}

// LoanApplicationSubmitted is raised when an application is forwarded to the partner.
type LoanApplicationSubmitted struct {
	events.BaseEvent
	UserID        string          `json:"user_id"`
	Amount        decimal.Decimal `json:"amount"`
	TermMonths    int             `json:"term_months"`
	Purpose       string          `json:"purpose"`
	CreditScoreID string          `json:"credit_score_id"`
}

func NewLoanApplicationSubmitted(
	applicationID, userID string,
	amount decimal.Decimal, termMonths int, purpose, creditScoreID string,
	at time.Time,
) LoanApplicationSubmitted {
	return LoanApplicationSubmitted{
		BaseEvent:     events.NewBaseEvent(TypeLoanApplicationSubmitted, applicationID, aggregateApplication, at),
		UserID:        userID,
		Amount:        amount,
		TermMonths:    termMonths,
		Purpose:       purpose,
		CreditScoreID: creditScoreID,
	}
}

// LoanApplicationApproved is raised on the partner's approval.
type LoanApplicationApproved struct {
	events.BaseEvent
	UserID     string `json:"user_id"`
	ContractNo string `json:"contract_no"`
}

func NewLoanApplicationApproved(applicationID, userID, contractNo string, at time.Time) LoanApplicationApproved {
	return LoanApplicationApproved{
		BaseEvent:  events.NewBaseEvent(TypeLoanApplicationApproved, applicationID, aggregateApplication, at),
		UserID:     userID,
		ContractNo: contractNo,
	}
}

// LoanApplicationRejected is raised for automatic and partner rejections.
type LoanApplicationRejected struct {
	events.BaseEvent
	UserID string `json:"user_id"`
	Reason string `json:"reason"`
}

func NewLoanApplicationRejected(applicationID, userID, reason string, at time.Time) LoanApplicationRejected {
	return LoanApplicationRejected{
		BaseEvent: events.NewBaseEvent(TypeLoanApplicationRejected, applicationID, aggregateApplication, at),
		UserID:    userID,
		Reason:    reason,
	}
}

// ---------------------------------------------------------------------------
// Servicing
// ---------------------------------------------------------------------------

// LoanDisbursed is raised when a loan account is opened.
type LoanDisbursed struct {
	events.BaseEvent
	UserID         string          `json:"user_id"`
	ApplicationID  string          `json:"application_id"`
	ContractNo     string          `json:"contract_no"`
	Principal      decimal.Decimal `json:"principal"`
	InterestRate   decimal.Decimal `json:"interest_rate"`
	TermMonths     int             `json:"term_months"`
	MonthlyPayment decimal.Decimal `json:"monthly_payment"`
	FirstDueDate   time.Time       `json:"first_due_date"`
}

func NewLoanDisbursed(
	loanID, userID, applicationID, contractNo string,
	principal, rate decimal.Decimal, termMonths int,
	payment decimal.Decimal, firstDue, at time.Time,
) LoanDisbursed {
	return LoanDisbursed{
		BaseEvent:      events.NewBaseEvent(TypeLoanDisbursed, loanID, aggregateLoan, at),
		UserID:         userID,
		ApplicationID:  applicationID,
		ContractNo:     contractNo,
		Principal:      principal,
		InterestRate:   rate,
		TermMonths:     termMonths,
		MonthlyPayment: payment,
		FirstDueDate:   firstDue,
	}
}

// PaymentApplied is raised once per ledger transaction posted against an installment.
type PaymentApplied struct {
	events.BaseEvent
	TransactionID string          `json:"transaction_id"`
	Sequence      int             `json:"installment_sequence"`
	Amount        decimal.Decimal `json:"amount"`
	Principal     decimal.Decimal `json:"principal"`
	Interest      decimal.Decimal `json:"interest"`
	LateFee       decimal.Decimal `json:"late_fee"`
}

func NewPaymentApplied(
	loanID, transactionID string, sequence int,
	amount, principal, interest, lateFee decimal.Decimal,
	at time.Time,
) PaymentApplied {
	return PaymentApplied{
		BaseEvent:     events.NewBaseEvent(TypePaymentApplied, loanID, aggregateLoan, at),
		TransactionID: transactionID,
		Sequence:      sequence,
		Amount:        amount,
		Principal:     principal,
		Interest:      interest,
		LateFee:       lateFee,
	}
}

// PaymentReversed is raised when a REVERSAL transaction is posted.
type PaymentReversed struct {
	events.BaseEvent
	OriginalTransactionID string          `json:"original_transaction_id"`
	ReversalID            string          `json:"reversal_id"`
	Amount                decimal.Decimal `json:"amount"`
}

func NewPaymentReversed(loanID, originalID, reversalID string, amount decimal.Decimal, at time.Time) PaymentReversed {
	return PaymentReversed{
		BaseEvent:             events.NewBaseEvent(TypePaymentReversed, loanID, aggregateLoan, at),
		OriginalTransactionID: originalID,
		ReversalID:            reversalID,
		Amount:                amount,
	}
}

// LateFeeWaived records who overrode an assessed fee and why.
type LateFeeWaived struct {
	events.BaseEvent
	Sequence      int             `json:"installment_sequence"`
	CalculatedFee decimal.Decimal `json:"calculated_fee"`
	AppliedFee    decimal.Decimal `json:"applied_fee"`
	Actor         string          `json:"actor"`
	Reason        string          `json:"reason"`
}

func NewLateFeeWaived(
	loanID string, sequence int, calculated, applied decimal.Decimal,
	actor, reason string, at time.Time,
) LateFeeWaived {
	return LateFeeWaived{
		BaseEvent:     events.NewBaseEvent(TypeLateFeeWaived, loanID, aggregateLoan, at),
		Sequence:      sequence,
		CalculatedFee: calculated,
		AppliedFee:    applied,
		Actor:         actor,
		Reason:        reason,
	}
}

// LoanPaidOff is raised when no installment is left unresolved.
type LoanPaidOff struct {
	events.BaseEvent
	TotalPaid decimal.Decimal `json:"total_paid"`
}

func NewLoanPaidOff(loanID string, totalPaid decimal.Decimal, at time.Time) LoanPaidOff {
	return LoanPaidOff{
		BaseEvent: events.NewBaseEvent(TypeLoanPaidOff, loanID, aggregateLoan, at),
		TotalPaid: totalPaid,
	}
}

// LoanSettledEarly is raised by a lump-sum early repayment.
type LoanSettledEarly struct {
	events.BaseEvent
	CutoverSequence int             `json:"cutover_sequence"`
	Amount          decimal.Decimal `json:"amount"`
	Savings         decimal.Decimal `json:"savings"`
}

func NewLoanSettledEarly(loanID string, cutover int, amount, savings decimal.Decimal, at time.Time) LoanSettledEarly {
	return LoanSettledEarly{
		BaseEvent:       events.NewBaseEvent(TypeLoanSettledEarly, loanID, aggregateLoan, at),
		CutoverSequence: cutover,
		Amount:          amount,
		Savings:         savings,
	}
}

// LoanModified is raised when a loan is restructured.
type LoanModified struct {
	events.BaseEvent
	PreviousRate   decimal.Decimal `json:"previous_rate"`
	NewRate        decimal.Decimal `json:"new_rate"`
	NewTermMonths  int             `json:"new_term_months"`
	MonthlyPayment decimal.Decimal `json:"monthly_payment"`
}

func NewLoanModified(loanID string, prevRate, newRate decimal.Decimal, newTerm int, payment decimal.Decimal, at time.Time) LoanModified {
	return LoanModified{
		BaseEvent:      events.NewBaseEvent(TypeLoanModified, loanID, aggregateLoan, at),
		PreviousRate:   prevRate,
		NewRate:        newRate,
		NewTermMonths:  newTerm,
		MonthlyPayment: payment,
	}
}

// AccountSuspended is raised when delinquency crosses the suspension threshold.
type AccountSuspended struct {
	events.BaseEvent
	DaysOverdue int `json:"days_overdue"`
}

func NewAccountSuspended(loanID string, daysOverdue int, at time.Time) AccountSuspended {
	return AccountSuspended{
		BaseEvent:   events.NewBaseEvent(TypeAccountSuspended, loanID, aggregateLoan, at),
		DaysOverdue: daysOverdue,
	}
}

// LoanSentToCollection is raised when a collection case is opened.
type LoanSentToCollection struct {
	events.BaseEvent
	DaysOverdue int             `json:"days_overdue"`
	AmountDue   decimal.Decimal `json:"amount_due"`
}

func NewLoanSentToCollection(loanID string, daysOverdue int, amountDue decimal.Decimal, at time.Time) LoanSentToCollection {
	return LoanSentToCollection{
		BaseEvent:   events.NewBaseEvent(TypeLoanSentToCollection, loanID, aggregateLoan, at),
		DaysOverdue: daysOverdue,
		AmountDue:   amountDue,
	}
}

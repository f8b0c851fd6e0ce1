package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// ---------------------------------------------------------------------------
// Request DTOs
// ---------------------------------------------------------------------------

// CalculateCreditScoreRequest carries the raw financial profile. Figures are
// strings so that non-numeric input can be rejected explicitly.
type CalculateCreditScoreRequest struct {
	UserID          string `json:"user_id"`
	MonthlyIncome   string `json:"monthly_income"`
	MonthlyExpenses string `json:"monthly_expenses"`
	AvgBalance      string `json:"avg_balance"`
}

// SubmitApplicationRequest carries the data needed to submit a new loan application.
type SubmitApplicationRequest struct {
	UserID     string          `json:"user_id"`
	Amount     decimal.Decimal `json:"amount"`
	TermMonths int             `json:"term_months"`
	Purpose    string          `json:"purpose"`
}

// DecideApplicationRequest records the partner's decision.
type DecideApplicationRequest struct {
	ApplicationID string `json:"application_id"`
	Approve       bool   `json:"approve"`
	Reason        string `json:"reason"`
}

// DisburseLoanRequest turns an approved application into a loan account.
// A nil rate is priced from the underwriting tier; a zero StartDate means now.
type DisburseLoanRequest struct {
	ApplicationID     string           `json:"application_id"`
	AnnualRatePercent *decimal.Decimal `json:"annual_rate_percent,omitempty"`
	PaymentDay        int              `json:"payment_day"`
	StartDate         time.Time        `json:"start_date"`
}

// GetLoanRequest identifies a loan to retrieve.
type GetLoanRequest struct {
	LoanID string `json:"loan_id"`
}

// MakePaymentRequest carries a borrower payment. A zero PaidAt means now.
type MakePaymentRequest struct {
	LoanID string          `json:"loan_id"`
	Amount decimal.Decimal `json:"amount"`
	PaidAt time.Time       `json:"paid_at"`
}

// ReversePaymentRequest identifies the payment transaction to cancel.
type ReversePaymentRequest struct {
	LoanID        string `json:"loan_id"`
	TransactionID string `json:"transaction_id"`
}

// WaiveLateFeeRequest overrides the late fee of one installment.
type WaiveLateFeeRequest struct {
	LoanID              string          `json:"loan_id"`
	InstallmentSequence int             `json:"installment_sequence"`
	AppliedFee          decimal.Decimal `json:"applied_fee"`
	Actor               string          `json:"actor"`
	Reason              string          `json:"reason"`
}

// SettleEarlyRequest settles a loan in one lump sum. A zero SettledAt means now.
type SettleEarlyRequest struct {
	LoanID    string    `json:"loan_id"`
	SettledAt time.Time `json:"settled_at"`
}

// ModifyLoanRequest restructures a loan. A zero EffectiveDate means now.
type ModifyLoanRequest struct {
	LoanID               string          `json:"loan_id"`
	NewAnnualRatePercent decimal.Decimal `json:"new_annual_rate_percent"`
	NewTermMonths        int             `json:"new_term_months"`
	EffectiveDate        time.Time       `json:"effective_date"`
}

// ExtractStatementRequest carries either a PDF document or already extracted
// text. When LoanID is set, debits are matched against the loan's payments.
type ExtractStatementRequest struct {
	Document []byte `json:"document,omitempty"`
	Text     string `json:"text,omitempty"`
	LoanID   string `json:"loan_id,omitempty"`
}

// ScanIdentityDocumentRequest carries an ID card image for a KYC session.
type ScanIdentityDocumentRequest struct {
	SessionID string `json:"session_id"`
	Image     []byte `json:"image"`
}

// ConfirmIdentityRequest promotes a scanned document to the user's KYC record.
type ConfirmIdentityRequest struct {
	SessionID string `json:"session_id"`
	UserID    string `json:"user_id"`
}

// SweepPortfolioRequest runs the periodic portfolio sweep. A zero AsOf means now.
type SweepPortfolioRequest struct {
	AsOf time.Time `json:"as_of"`
}

// ---------------------------------------------------------------------------
// Response DTOs
// ---------------------------------------------------------------------------

// ScoringFactorResponse is one line of a score breakdown.
type ScoringFactorResponse struct {
	Name   string          `json:"name"`
	Ratio  decimal.Decimal `json:"ratio"`
	Points int             `json:"points"`
}

// CreditScoreResponse is the external representation of a score record.
type CreditScoreResponse struct {
	ID              string                  `json:"id"`
	UserID          string                  `json:"user_id"`
	Score           int                     `json:"score"`
	Status          string                  `json:"status"`
	MonthlyIncome   decimal.Decimal         `json:"monthly_income"`
	MonthlyExpenses decimal.Decimal         `json:"monthly_expenses"`
	AvgBalance      decimal.Decimal         `json:"avg_balance"`
	Factors         []ScoringFactorResponse `json:"factors"`
	CreatedAt       time.Time               `json:"created_at"`
}

// LoanApplicationResponse is the external representation of a loan application.
type LoanApplicationResponse struct {
	ID             string          `json:"id"`
	UserID         string          `json:"user_id"`
	Amount         decimal.Decimal `json:"amount"`
	TermMonths     int             `json:"term_months"`
	Purpose        string          `json:"purpose"`
	Status         string          `json:"status"`
	DecisionReason string          `json:"decision_reason,omitempty"`
	CreditScoreID  string          `json:"credit_score_id,omitempty"`
	CreditScore    int             `json:"credit_score"`
	ApplicantName  string          `json:"applicant_name,omitempty"`
	ContractNo     string          `json:"contract_no,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// InstallmentResponse is one row of the schedule.
type InstallmentResponse struct {
	ID            string          `json:"id"`
	Sequence      int             `json:"sequence"`
	DueDate       time.Time       `json:"due_date"`
	Principal     decimal.Decimal `json:"principal"`
	Interest      decimal.Decimal `json:"interest"`
	Total         decimal.Decimal `json:"total"`
	Status        string          `json:"status"`
	PaidAmount    decimal.Decimal `json:"paid_amount"`
	PaymentDate   *time.Time      `json:"payment_date,omitempty"`
	DaysLate      int             `json:"days_late"`
	IsPaidOnTime  bool            `json:"is_paid_on_time"`
	LateFee       decimal.Decimal `json:"late_fee"`
	LateFeeWaived bool            `json:"late_fee_waived"`
}

// TransactionResponse is one ledger transaction.
type TransactionResponse struct {
	ID            string          `json:"id"`
	InstallmentID string          `json:"installment_id,omitempty"`
	Type          string          `json:"type"`
	Status        string          `json:"status"`
	Amount        decimal.Decimal `json:"amount"`
	Principal     decimal.Decimal `json:"principal"`
	Interest      decimal.Decimal `json:"interest"`
	LateFee       decimal.Decimal `json:"late_fee"`
	OtherFees     decimal.Decimal `json:"other_fees"`
	ReversalOf    string          `json:"reversal_of,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

// LateFeeResponse is one late-fee record.
type LateFeeResponse struct {
	ID            string          `json:"id"`
	InstallmentID string          `json:"installment_id"`
	DaysLate      int             `json:"days_late"`
	CalculatedFee decimal.Decimal `json:"calculated_fee"`
	AppliedFee    decimal.Decimal `json:"applied_fee"`
	IsWaived      bool            `json:"is_waived"`
	WaivedBy      string          `json:"waived_by,omitempty"`
	WaiverReason  string          `json:"waiver_reason,omitempty"`
}

// AggregatesResponse are the loan-level figures.
type AggregatesResponse struct {
	RemainingPrincipal decimal.Decimal `json:"remaining_principal"`
	RemainingInterest  decimal.Decimal `json:"remaining_interest"`
	TotalRemaining     decimal.Decimal `json:"total_remaining"`
	TotalPaid          decimal.Decimal `json:"total_paid"`
	TotalLateFees      decimal.Decimal `json:"total_late_fees"`
	PaidInstallments   int             `json:"paid_installments"`
	OverdueCount       int             `json:"overdue_count"`
	DaysOverdue        int             `json:"days_overdue"`
	PaymentSuccessRate decimal.Decimal `json:"payment_success_rate"`
	NextDueDate        *time.Time      `json:"next_due_date,omitempty"`
}

// ModificationResponse holds the terms before restructuring.
type ModificationResponse struct {
	ModificationDate       *time.Time      `json:"modification_date,omitempty"`
	OriginalInterestRate   decimal.Decimal `json:"original_interest_rate"`
	OriginalMonthlyPayment decimal.Decimal `json:"original_monthly_payment"`
	OriginalMaturityDate   *time.Time      `json:"original_maturity_date,omitempty"`
	SegmentStarts          []int           `json:"segment_starts,omitempty"`
}

// LoanResponse is the external representation of a loan account.
type LoanResponse struct {
	ID                    string                `json:"id"`
	UserID                string                `json:"user_id"`
	ApplicationID         string                `json:"application_id"`
	ContractNo            string                `json:"contract_no"`
	Principal             decimal.Decimal       `json:"principal"`
	InterestRate          decimal.Decimal       `json:"interest_rate"`
	OriginalTerm          int                   `json:"original_term"`
	CurrentTerm           int                   `json:"current_term"`
	PaymentDay            int                   `json:"payment_day"`
	MonthlyPayment        decimal.Decimal       `json:"monthly_payment"`
	Status                string                `json:"status"`
	AccountStatus         string                `json:"account_status"`
	Aggregates            AggregatesResponse    `json:"aggregates"`
	Modification          *ModificationResponse `json:"modification,omitempty"`
	EarlyRepaymentSavings decimal.Decimal       `json:"early_repayment_savings"`
	MaturityDate          *time.Time            `json:"maturity_date,omitempty"`
	Installments          []InstallmentResponse `json:"installments"`
	Transactions          []TransactionResponse `json:"transactions"`
	LateFees              []LateFeeResponse     `json:"late_fees"`
	DisbursedAt           time.Time             `json:"disbursed_at"`
	Version               int                   `json:"version"`
}

// PaymentResponse returns the loan together with the transactions just posted.
type PaymentResponse struct {
	Loan         LoanResponse          `json:"loan"`
	Transactions []TransactionResponse `json:"transactions"`
}

// SettleEarlyResponse describes a lump-sum settlement.
type SettleEarlyResponse struct {
	Loan            LoanResponse    `json:"loan"`
	CutoverSequence int             `json:"cutover_sequence"`
	Amount          decimal.Decimal `json:"amount"`
	InterestCharged decimal.Decimal `json:"interest_charged"`
	Savings         decimal.Decimal `json:"savings"`
}

// StatementTransactionResponse is one extracted statement row.
type StatementTransactionResponse struct {
	Date        string          `json:"date"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	Type        string          `json:"type"`
}

// ExtractStatementResponse lists the extracted rows in source order.
type ExtractStatementResponse struct {
	Transactions []StatementTransactionResponse `json:"transactions"`
	Count        int                            `json:"count"`
	// MatchedTransactionIDs are ledger payments found on the statement.
	MatchedTransactionIDs []string `json:"matched_transaction_ids,omitempty"`
	UnmatchedDebits       int      `json:"unmatched_debits,omitempty"`
}

// IdentityDocumentResponse is a cached OCR reading.
type IdentityDocumentResponse struct {
	SessionID  string    `json:"session_id"`
	IDNumber   string    `json:"id_number"`
	FirstName  string    `json:"first_name"`
	LastName   string    `json:"last_name"`
	BirthDate  string    `json:"birth_date"`
	IsFallback bool      `json:"is_fallback"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// IdentityResponse is a confirmed KYC snapshot.
type IdentityResponse struct {
	UserID     string    `json:"user_id"`
	CitizenID  string    `json:"citizen_id"`
	FirstName  string    `json:"first_name"`
	LastName   string    `json:"last_name"`
	BirthDate  time.Time `json:"birth_date"`
	IsFallback bool      `json:"is_fallback"`
	VerifiedAt time.Time `json:"verified_at"`
}

// InconsistencyResponse is one consistency warning.
type InconsistencyResponse struct {
	LoanID   string `json:"loan_id"`
	Rule     string `json:"rule"`
	Expected string `json:"expected"`
	Actual   string `json:"actual"`
	Message  string `json:"message"`
}

// SweepPortfolioResponse summarises a sweep.
type SweepPortfolioResponse struct {
	Processed        int                     `json:"processed"`
	Failed           int                     `json:"failed"`
	Suspended        int                     `json:"suspended"`
	SentToCollection int                     `json:"sent_to_collection"`
	Inconsistencies  []InconsistencyResponse `json:"inconsistencies"`
}

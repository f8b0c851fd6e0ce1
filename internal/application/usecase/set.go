package usecase

import (
	"log/slog"
	"time"

	"github.com/jecoplus/lending/internal/domain/port"
	"github.com/jecoplus/lending/internal/domain/service"
)

// Dependencies are the ports and collaborators the use cases draw from.
// Parser and IdentityReader may be nil.
type Dependencies struct {
	CreditScores    port.CreditScoreRepository
	Identities      port.IdentityRepository
	Applications    port.LoanApplicationRepository
	Loans           port.LoanRepository
	CollectionCases port.CollectionCaseRepository
	Transactor      port.Transactor
	Publisher       port.EventPublisher
	Sessions        port.SessionStore
	ContractNumbers port.ContractNumberGenerator

	Parser         port.DocumentParser
	IdentityReader port.IdentityDocumentReader
	ScanTTL        time.Duration
	Policy         *service.LateFeePolicy
	Instruments    *Instruments
	Logger         *slog.Logger
}

// Set holds one instance of every use case, sharing domain services.
type Set struct {
	CalculateCreditScore *CalculateCreditScoreUseCase
	SubmitApplication    *SubmitLoanApplicationUseCase
	DecideApplication    *DecideApplicationUseCase
	DisburseLoan         *DisburseLoanUseCase
	GetLoan              *GetLoanUseCase
	MakePayment          *MakePaymentUseCase
	ReversePayment       *ReversePaymentUseCase
	WaiveLateFee         *WaiveLateFeeUseCase
	SettleEarly          *SettleEarlyUseCase
	ModifyLoan           *ModifyLoanUseCase
	ExtractStatement     *ExtractStatementUseCase
	ScanIdentityDocument *ScanIdentityDocumentUseCase
	ConfirmIdentity      *ConfirmIdentityUseCase
	SweepPortfolio       *SweepPortfolioUseCase
}

// NewSet wires every use case. A nil Policy means DefaultLateFeePolicy.
func NewSet(d Dependencies) *Set {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	policy := service.DefaultLateFeePolicy()
	if d.Policy != nil {
		policy = *d.Policy
	}
	reconciler := service.NewReconciler(policy)

	return &Set{
		CalculateCreditScore: NewCalculateCreditScoreUseCase(d.CreditScores, d.Publisher, d.Transactor, service.NewCreditScoring(), d.Instruments),
		SubmitApplication:    NewSubmitLoanApplicationUseCase(d.Applications, d.CreditScores, d.Identities, d.Publisher, d.Transactor),
		DecideApplication:    NewDecideApplicationUseCase(d.Applications, d.ContractNumbers, d.Publisher, d.Transactor),
		DisburseLoan:         NewDisburseLoanUseCase(d.Applications, d.Loans, d.Publisher, d.Transactor, service.NewUnderwritingEngine()),
		GetLoan:              NewGetLoanUseCase(d.Loans),
		MakePayment:          NewMakePaymentUseCase(d.Loans, d.Publisher, d.Transactor, reconciler, d.Instruments),
		ReversePayment:       NewReversePaymentUseCase(d.Loans, d.Publisher, d.Transactor, reconciler),
		WaiveLateFee:         NewWaiveLateFeeUseCase(d.Loans, d.Publisher, d.Transactor, reconciler),
		SettleEarly:          NewSettleEarlyUseCase(d.Loans, d.Publisher, d.Transactor, reconciler),
		ModifyLoan:           NewModifyLoanUseCase(d.Loans, d.Publisher, d.Transactor, reconciler),
		ExtractStatement:     NewExtractStatementUseCase(d.Parser, service.NewStatementExtractor(d.Logger), d.Loans, d.Instruments, d.Logger),
		ScanIdentityDocument: NewScanIdentityDocumentUseCase(d.IdentityReader, d.Sessions, d.ScanTTL, d.Logger),
		ConfirmIdentity:      NewConfirmIdentityUseCase(d.Sessions, d.Identities, d.Publisher, d.Transactor, d.Logger),
		SweepPortfolio:       NewSweepPortfolioUseCase(d.Loans, d.CollectionCases, d.Publisher, d.Transactor, policy, d.Instruments, d.Logger),
	}
}

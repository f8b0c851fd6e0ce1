// Package scenario builds fully reconciled demo and test loans from a
// declarative description of how the borrower paid.
package scenario

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jecoplus/lending/internal/domain/apperr"
	"github.com/jecoplus/lending/internal/domain/model"
	"github.com/jecoplus/lending/internal/domain/service"
)

type modification struct {
	atIndex int
	rate    decimal.Decimal
	term    int
}

// Builder describes one loan. The zero value is not usable; start with New.
type Builder struct {
	userID     string
	contractNo string
	principal  decimal.Decimal
	rate       decimal.Decimal
	term       int
	start      time.Time
	paymentDay int
	behavior   service.PaymentBehavior
	early      *int
	mod        *modification
	policy     service.LateFeePolicy
}

// New starts a scenario for userID: 100,000 at 15% over 12 months, starting
// on the first of the current month, with nothing paid yet.
func New(userID string) *Builder {
	now := time.Now().UTC()
	return &Builder{
		userID:     userID,
		principal:  decimal.NewFromInt(100_000),
		rate:       decimal.NewFromInt(15),
		term:       12,
		start:      time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC),
		paymentDay: 1,
		policy:     service.DefaultLateFeePolicy(),
	}
}

func (b *Builder) Principal(p decimal.Decimal) *Builder {
	b.principal = p
	return b
}

func (b *Builder) Rate(annualPercent decimal.Decimal) *Builder {
	b.rate = annualPercent
	return b
}

func (b *Builder) Term(months int) *Builder {
	b.term = months
	return b
}

func (b *Builder) StartDate(t time.Time) *Builder {
	b.start = t
	return b
}

func (b *Builder) PaymentDay(day int) *Builder {
	b.paymentDay = day
	return b
}

func (b *Builder) ContractNo(no string) *Builder {
	b.contractNo = no
	return b
}

func (b *Builder) Policy(p service.LateFeePolicy) *Builder {
	b.policy = p
	return b
}

// Behavior sets how the due installments were paid.
func (b *Builder) Behavior(pb service.PaymentBehavior) *Builder {
	b.behavior = pb
	return b
}

// EarlyRepayment settles the loan with installment index cutover as the
// first waived installment, the day after the previous installment fell due.
func (b *Builder) EarlyRepayment(cutover int) *Builder {
	b.early = &cutover
	return b
}

// Modification restructures the loan the day after installment atIndex-1 fell
// due. Every installment before atIndex must be resolved by then.
func (b *Builder) Modification(atIndex int, rate decimal.Decimal, term int) *Builder {
	b.mod = &modification{atIndex: atIndex, rate: rate, term: term}
	return b
}

// Build runs amortization, the payment behavior, the optional restructuring
// and the optional settlement, in that order. The returned loan carries no
// pending events.
func (b *Builder) Build() (model.LoanAccount, error) {
	contractNo := b.contractNo
	if contractNo == "" {
		contractNo = "SCN-" + b.start.Format("200601")
	}

	// 1. Disburse.
	loan, err := model.NewLoanAccount(model.NewLoanAccountParams{
		UserID:            b.userID,
		ApplicationID:     "scenario:" + b.userID + ":" + contractNo,
		ContractNo:        contractNo,
		Principal:         b.principal,
		AnnualRatePercent: b.rate,
		TermMonths:        b.term,
		PaymentDay:        b.paymentDay,
		StartDate:         b.start,
	}, b.start)
	if err != nil {
		return model.LoanAccount{}, fmt.Errorf("disburse: %w", err)
	}

	// 2. Replay payments.
	r := service.NewReconciler(b.policy)
	ledger, err := r.ApplyBehavior(loan.ID(), loan.Installments(), b.behavior)
	if err != nil {
		return model.LoanAccount{}, fmt.Errorf("apply behavior: %w", err)
	}
	loan, err = loan.Reconcile(ledger, b.asOf(loan.Installments()))
	if err != nil {
		return model.LoanAccount{}, fmt.Errorf("reconcile: %w", err)
	}

	// 3. Restructure.
	if b.mod != nil {
		if loan, err = b.restructure(r, loan); err != nil {
			return model.LoanAccount{}, err
		}
	}

	// 4. Settle.
	if b.early != nil {
		if loan, err = b.settle(r, loan, *b.early); err != nil {
			return model.LoanAccount{}, err
		}
	}

	return loan.ClearEvents(), nil
}

// MustBuild is Build for fixtures known to be valid.
func (b *Builder) MustBuild() model.LoanAccount {
	loan, err := b.Build()
	if err != nil {
		panic(fmt.Sprintf("scenario %s: %v", b.userID, err))
	}
	return loan
}

func (b *Builder) asOf(schedule []model.Installment) time.Time {
	if !b.behavior.AsOf.IsZero() {
		return b.behavior.AsOf
	}
	if k := b.behavior.CurrentInstallmentIndex; k > 0 && k <= len(schedule) {
		return schedule[k-1].DueDate.AddDate(0, 1, 0)
	}
	return b.start
}

// dayAfter is the day after installment k-1 fell due, or the start date.
func (b *Builder) dayAfter(schedule []model.Installment, k int) time.Time {
	if k <= 0 {
		return b.start.AddDate(0, 0, 1)
	}
	return schedule[k-1].DueDate.AddDate(0, 0, 1)
}

func (b *Builder) restructure(r *service.Reconciler, loan model.LoanAccount) (model.LoanAccount, error) {
	ledger := loan.Ledger()
	if first := ledger.FirstUnresolved(); first != b.mod.atIndex {
		return model.LoanAccount{}, apperr.Validation(
			"modification at index %d, but the first unresolved installment is %d", b.mod.atIndex, first)
	}
	effective := b.dayAfter(ledger.Installments, b.mod.atIndex)

	next, res, err := r.Modify(loan.ID(), ledger, service.ModificationTerms{
		NewAnnualRatePercent: b.mod.rate,
		NewTermMonths:        b.mod.term,
		EffectiveDate:        effective,
		PaymentDay:           loan.PaymentDay(),
	})
	if err != nil {
		return model.LoanAccount{}, fmt.Errorf("modify: %w", err)
	}
	loan, err = loan.Restructure(next, b.mod.rate, res.MonthlyPayment, effective)
	if err != nil {
		return model.LoanAccount{}, fmt.Errorf("restructure: %w", err)
	}
	return loan, nil
}

func (b *Builder) settle(r *service.Reconciler, loan model.LoanAccount, cut int) (model.LoanAccount, error) {
	ledger := loan.Ledger()
	if cut < 0 || cut >= len(ledger.Installments) {
		return model.LoanAccount{}, apperr.Validation("early repayment cutover %d is outside the schedule", cut)
	}
	settledAt := b.dayAfter(ledger.Installments, cut)

	next, er, err := r.SettleEarlyAt(loan.ID(), ledger, cut, settledAt)
	if err != nil {
		return model.LoanAccount{}, fmt.Errorf("settle early: %w", err)
	}
	loan, err = loan.SettleEarly(next, er.CutoverSequence, er.Transaction, er.Savings, settledAt)
	if err != nil {
		return model.LoanAccount{}, fmt.Errorf("close loan: %w", err)
	}
	return loan, nil
}

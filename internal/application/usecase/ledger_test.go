package usecase_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jecoplus/lending/internal/application/dto"
	"github.com/jecoplus/lending/internal/application/usecase"
	"github.com/jecoplus/lending/internal/domain/apperr"
	"github.com/jecoplus/lending/internal/domain/event"
	"github.com/jecoplus/lending/internal/domain/service"
	"github.com/jecoplus/lending/internal/domain/valueobject"
)

func reconciler() *service.Reconciler {
	return service.NewReconciler(service.DefaultLateFeePolicy())
}

func TestGetLoan_Execute(t *testing.T) {
	loans := &mockLoanRepository{}
	loan := newLoan(t, "12000", "12", 12, day(2024, 1, 1))
	loans.put(loan)
	uc := usecase.NewGetLoanUseCase(loans)

	resp, err := uc.Execute(context.Background(), dto.GetLoanRequest{LoanID: loan.ID()})
	require.NoError(t, err)
	assert.Equal(t, loan.ID(), resp.ID)
	assert.Len(t, resp.Installments, 12)
	assert.True(t, d("1066.19").Equal(resp.MonthlyPayment))
	assert.Nil(t, resp.Modification)

	_, err = uc.Execute(context.Background(), dto.GetLoanRequest{LoanID: "missing"})
	assert.True(t, apperr.IsNotFound(err))

	_, err = uc.Execute(context.Background(), dto.GetLoanRequest{})
	assert.True(t, apperr.IsValidation(err))
}

func TestMakePayment_Execute(t *testing.T) {
	t.Run("on-time payment settles the first installment", func(t *testing.T) {
		loans := &mockLoanRepository{}
		pub := &mockEventPublisher{}
		loan := newLoan(t, "12000", "12", 12, day(2024, 1, 1))
		loans.put(loan)
		uc := usecase.NewMakePaymentUseCase(loans, pub, &mockTransactor{}, reconciler(), nil)

		resp, err := uc.Execute(context.Background(), dto.MakePaymentRequest{
			LoanID: loan.ID(), Amount: d("1066.19"), PaidAt: day(2024, 2, 1),
		})
		require.NoError(t, err)
		require.Len(t, resp.Transactions, 1)
		assert.Equal(t, "PAYMENT", resp.Transactions[0].Type)
		assert.True(t, d("946.19").Equal(resp.Transactions[0].Principal))
		assert.True(t, d("120").Equal(resp.Transactions[0].Interest))
		assert.Equal(t, "PAID", resp.Loan.Installments[0].Status)
		assert.True(t, resp.Loan.Installments[0].IsPaidOnTime)
		assert.Equal(t, 1, resp.Loan.Aggregates.PaidInstallments)
		assert.True(t, d("100").Equal(resp.Loan.Aggregates.PaymentSuccessRate))
		assert.Equal(t, []string{event.TypePaymentApplied}, pub.types())
	})

	t.Run("payment spanning installments posts one transaction each", func(t *testing.T) {
		loans := &mockLoanRepository{}
		loan := newLoan(t, "12000", "12", 12, day(2024, 1, 1))
		loans.put(loan)
		uc := usecase.NewMakePaymentUseCase(loans, &mockEventPublisher{}, &mockTransactor{}, reconciler(), nil)

		resp, err := uc.Execute(context.Background(), dto.MakePaymentRequest{
			LoanID: loan.ID(), Amount: d("1500"), PaidAt: day(2024, 2, 1),
		})
		require.NoError(t, err)
		require.Len(t, resp.Transactions, 2)
		assert.Equal(t, "PAID", resp.Loan.Installments[0].Status)
		assert.Equal(t, "PARTIALLY_PAID", resp.Loan.Installments[1].Status)
		assert.True(t, d("433.81").Equal(resp.Loan.Installments[1].PaidAmount))
	})

	t.Run("overpayment writes nothing", func(t *testing.T) {
		loans := &mockLoanRepository{}
		pub := &mockEventPublisher{}
		loan := newLoan(t, "12000", "12", 12, day(2024, 1, 1))
		loans.put(loan)
		uc := usecase.NewMakePaymentUseCase(loans, pub, &mockTransactor{}, reconciler(), nil)

		_, err := uc.Execute(context.Background(), dto.MakePaymentRequest{LoanID: loan.ID(), Amount: d("20000"), PaidAt: day(2024, 2, 1)})
		require.Error(t, err)
		assert.True(t, apperr.IsValidation(err))
		assert.Empty(t, loans.savedLoans)
		assert.Empty(t, pub.publishedEvents)
	})
}

func TestReversePayment_Execute(t *testing.T) {
	loans := &mockLoanRepository{}
	pub := &mockEventPublisher{}
	loan := newLoan(t, "12000", "12", 12, day(2024, 1, 1))
	loans.put(loan)

	paid, err := usecase.NewMakePaymentUseCase(loans, pub, &mockTransactor{}, reconciler(), nil).
		Execute(context.Background(), dto.MakePaymentRequest{LoanID: loan.ID(), Amount: d("1066.19"), PaidAt: day(2024, 2, 1)})
	require.NoError(t, err)
	txID := paid.Transactions[0].ID

	uc := usecase.NewReversePaymentUseCase(loans, pub, &mockTransactor{}, reconciler())
	resp, err := uc.Execute(context.Background(), dto.ReversePaymentRequest{LoanID: loan.ID(), TransactionID: txID})
	require.NoError(t, err)
	require.Len(t, resp.Transactions, 1)
	assert.Equal(t, "REVERSAL", resp.Transactions[0].Type)
	assert.Equal(t, txID, resp.Transactions[0].ReversalOf)
	assert.Equal(t, "OVERDUE", resp.Loan.Installments[0].Status)
	assert.True(t, resp.Loan.Installments[0].PaidAmount.IsZero())
	assert.Equal(t, []string{event.TypePaymentApplied, event.TypePaymentReversed}, pub.types())

	_, err = uc.Execute(context.Background(), dto.ReversePaymentRequest{LoanID: loan.ID(), TransactionID: txID})
	assert.Equal(t, apperr.CodeInvalidState, apperr.CodeOf(err))

	_, err = uc.Execute(context.Background(), dto.ReversePaymentRequest{LoanID: loan.ID(), TransactionID: "nope"})
	assert.True(t, apperr.IsNotFound(err))
}

func TestReversePayment_ReopensPaidOffLoan(t *testing.T) {
	loans := &mockLoanRepository{}
	pub := &mockEventPublisher{}
	loan := newLoan(t, "1000", "0", 1, day(2024, 1, 1))
	loans.put(loan)

	paid, err := usecase.NewMakePaymentUseCase(loans, pub, &mockTransactor{}, reconciler(), nil).
		Execute(context.Background(), dto.MakePaymentRequest{LoanID: loan.ID(), Amount: d("1000"), PaidAt: day(2024, 2, 1)})
	require.NoError(t, err)
	require.Equal(t, "PAID_OFF", paid.Loan.Status)
	require.Equal(t, "CLOSED", paid.Loan.AccountStatus)

	resp, err := usecase.NewReversePaymentUseCase(loans, pub, &mockTransactor{}, reconciler()).
		Execute(context.Background(), dto.ReversePaymentRequest{LoanID: loan.ID(), TransactionID: paid.Transactions[0].ID})
	require.NoError(t, err)
	assert.Equal(t, "ACTIVE", resp.Loan.Status)
	assert.Equal(t, "ACTIVE", resp.Loan.AccountStatus)
	assert.True(t, d("1000").Equal(resp.Loan.Aggregates.RemainingPrincipal))
	assert.Equal(t, "OVERDUE", resp.Loan.Installments[0].Status)
	assert.Equal(t, []string{event.TypeLoanPaidOff, event.TypePaymentApplied, event.TypePaymentReversed}, pub.types())

	stored, err := loans.FindByID(context.Background(), loan.ID())
	require.NoError(t, err)
	assert.True(t, stored.Status().Equal(valueobject.LoanStatusActive))
}

func TestWaiveLateFee_Execute(t *testing.T) {
	loans := &mockLoanRepository{}
	pub := &mockEventPublisher{}
	policy := service.DefaultLateFeePolicy()
	loan := newLoan(t, "12000", "12", 12, day(2024, 1, 1))
	loan, err := loan.Reconcile(policy.Tick(loan.ID(), loan.Ledger(), day(2024, 2, 20)), day(2024, 2, 20))
	require.NoError(t, err)
	require.True(t, d("1000").Equal(loan.Installments()[0].LateFee))
	loans.put(loan)

	uc := usecase.NewWaiveLateFeeUseCase(loans, pub, &mockTransactor{}, reconciler())

	t.Run("attributed waiver clears the applied fee", func(t *testing.T) {
		resp, err := uc.Execute(context.Background(), dto.WaiveLateFeeRequest{
			LoanID: loan.ID(), InstallmentSequence: 1, AppliedFee: d("0"), Actor: "ops-7", Reason: "hospitalised",
		})
		require.NoError(t, err)
		assert.True(t, resp.Installments[0].LateFee.IsZero())
		assert.True(t, resp.Installments[0].LateFeeWaived)
		require.Len(t, resp.LateFees, 1)
		assert.True(t, d("1000").Equal(resp.LateFees[0].CalculatedFee))
		assert.Equal(t, "ops-7", resp.LateFees[0].WaivedBy)
		assert.Equal(t, []string{event.TypeLateFeeWaived}, pub.types())
	})

	t.Run("waiver above the calculated fee", func(t *testing.T) {
		_, err := uc.Execute(context.Background(), dto.WaiveLateFeeRequest{
			LoanID: loan.ID(), InstallmentSequence: 1, AppliedFee: d("5000"), Actor: "ops-7", Reason: "typo",
		})
		assert.True(t, apperr.IsValidation(err))
	})
}

func TestSettleEarly_Execute(t *testing.T) {
	loans := &mockLoanRepository{}
	pub := &mockEventPublisher{}
	loan := newLoan(t, "12000", "12", 12, day(2024, 1, 1))
	loans.put(loan)
	uc := usecase.NewSettleEarlyUseCase(loans, pub, &mockTransactor{}, reconciler())

	resp, err := uc.Execute(context.Background(), dto.SettleEarlyRequest{LoanID: loan.ID(), SettledAt: day(2024, 3, 15)})
	require.NoError(t, err)
	assert.Equal(t, "PAID_OFF", resp.Loan.Status)
	assert.Equal(t, "CLOSED", resp.Loan.AccountStatus)
	assert.Equal(t, 3, resp.CutoverSequence)
	assert.True(t, resp.Loan.Aggregates.RemainingPrincipal.IsZero())
	assert.True(t, resp.Savings.IsPositive())
	assert.True(t, resp.Savings.Equal(resp.Loan.EarlyRepaymentSavings))
	for _, inst := range resp.Loan.Installments[2:] {
		assert.Equal(t, "WAIVED", inst.Status, "installment %d", inst.Sequence)
	}
	for _, inst := range resp.Loan.Installments[:2] {
		assert.Equal(t, "PAID", inst.Status, "installment %d", inst.Sequence)
	}

	var settlements int
	for _, tx := range resp.Loan.Transactions {
		if tx.Type == "EARLY_REPAYMENT" {
			settlements++
		}
	}
	assert.Equal(t, 1, settlements)
	assert.Contains(t, pub.types(), event.TypeLoanSettledEarly)
	assert.Contains(t, pub.types(), event.TypeLoanPaidOff)

	_, err = uc.Execute(context.Background(), dto.SettleEarlyRequest{LoanID: loan.ID(), SettledAt: day(2024, 3, 16)})
	assert.Equal(t, apperr.CodeInvalidState, apperr.CodeOf(err))
}

func TestModifyLoan_Execute(t *testing.T) {
	loans := &mockLoanRepository{}
	pub := &mockEventPublisher{}
	loan := newLoan(t, "12000", "12", 12, day(2024, 1, 1))
	loans.put(loan)
	uc := usecase.NewModifyLoanUseCase(loans, pub, &mockTransactor{}, reconciler())

	resp, err := uc.Execute(context.Background(), dto.ModifyLoanRequest{
		LoanID:               loan.ID(),
		NewAnnualRatePercent: d("6"),
		NewTermMonths:        24,
		EffectiveDate:        day(2024, 1, 15),
	})
	require.NoError(t, err)
	assert.Equal(t, 24, resp.CurrentTerm)
	assert.Equal(t, 12, resp.OriginalTerm)
	assert.True(t, d("6").Equal(resp.InterestRate))
	assert.True(t, d("531.85").Equal(resp.MonthlyPayment))
	require.NotNil(t, resp.Modification)
	assert.True(t, d("12").Equal(resp.Modification.OriginalInterestRate))
	assert.True(t, d("1066.19").Equal(resp.Modification.OriginalMonthlyPayment))
	assert.True(t, d("12000").Equal(resp.Aggregates.RemainingPrincipal))
	assert.Equal(t, []string{event.TypeLoanModified}, pub.types())

	_, err = uc.Execute(context.Background(), dto.ModifyLoanRequest{LoanID: loan.ID(), NewAnnualRatePercent: d("6")})
	assert.True(t, apperr.IsValidation(err))
}

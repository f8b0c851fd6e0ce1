package usecase_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jecoplus/lending/internal/application/dto"
	"github.com/jecoplus/lending/internal/application/usecase"
	"github.com/jecoplus/lending/internal/domain/apperr"
	"github.com/jecoplus/lending/internal/domain/event"
	"github.com/jecoplus/lending/internal/domain/model"
	"github.com/jecoplus/lending/internal/domain/service"
	"github.com/jecoplus/lending/internal/domain/valueobject"
)

func scoreFor(userID string, score int) model.CreditScoreResult {
	decision := valueobject.CreditDecisionRejected
	if score >= 700 {
		decision = valueobject.CreditDecisionApproved
	}
	return model.NewCreditScoreResult(userID, score, decision, model.CreditProfile{}, nil, time.Now().UTC())
}

func TestCalculateCreditScore_Execute(t *testing.T) {
	t.Run("scores and persists a new record", func(t *testing.T) {
		repo := &mockCreditScoreRepository{}
		pub := &mockEventPublisher{}
		tx := &mockTransactor{}
		uc := usecase.NewCalculateCreditScoreUseCase(repo, pub, tx, service.NewCreditScoring(), nil)

		resp, err := uc.Execute(context.Background(), dto.CalculateCreditScoreRequest{
			UserID:          "user-1",
			MonthlyIncome:   "50000",
			MonthlyExpenses: "10000",
			AvgBalance:      "100000",
		})
		require.NoError(t, err)
		assert.Equal(t, 850, resp.Score)
		assert.Equal(t, "APPROVED", resp.Status)
		assert.Len(t, resp.Factors, 2)
		require.Len(t, repo.saved, 1)
		assert.Equal(t, resp.ID, repo.saved[0].ID())
		assert.Equal(t, []string{event.TypeCreditScoreCalculated}, pub.types())
		assert.Equal(t, 1, tx.calls)
	})

	t.Run("every calculation is a new record", func(t *testing.T) {
		repo := &mockCreditScoreRepository{}
		uc := usecase.NewCalculateCreditScoreUseCase(repo, &mockEventPublisher{}, &mockTransactor{}, service.NewCreditScoring(), nil)
		req := dto.CalculateCreditScoreRequest{UserID: "user-1", MonthlyIncome: "10000", MonthlyExpenses: "3000", AvgBalance: "0"}

		first, err := uc.Execute(context.Background(), req)
		require.NoError(t, err)
		second, err := uc.Execute(context.Background(), req)
		require.NoError(t, err)
		assert.NotEqual(t, first.ID, second.ID)
		assert.Len(t, repo.saved, 2)
	})

	t.Run("non-numeric income is a validation error", func(t *testing.T) {
		repo := &mockCreditScoreRepository{}
		uc := usecase.NewCalculateCreditScoreUseCase(repo, &mockEventPublisher{}, &mockTransactor{}, service.NewCreditScoring(), nil)

		_, err := uc.Execute(context.Background(), dto.CalculateCreditScoreRequest{
			UserID: "user-1", MonthlyIncome: "lots", MonthlyExpenses: "100", AvgBalance: "0",
		})
		require.Error(t, err)
		assert.True(t, apperr.IsValidation(err))
		assert.Empty(t, repo.saved)
	})

	t.Run("missing user is a validation error", func(t *testing.T) {
		uc := usecase.NewCalculateCreditScoreUseCase(&mockCreditScoreRepository{}, &mockEventPublisher{}, &mockTransactor{}, service.NewCreditScoring(), nil)
		_, err := uc.Execute(context.Background(), dto.CalculateCreditScoreRequest{MonthlyIncome: "1", MonthlyExpenses: "1", AvgBalance: "1"})
		assert.True(t, apperr.IsValidation(err))
	})
}

func TestSubmitLoanApplication_Execute(t *testing.T) {
	req := dto.SubmitApplicationRequest{UserID: "user-1", Amount: d("50000"), TermMonths: 12, Purpose: "working capital"}

	setup := func() (*usecase.SubmitLoanApplicationUseCase, *mockLoanApplicationRepository, *mockCreditScoreRepository, *mockIdentityRepository, *mockEventPublisher, *mockTransactor) {
		apps := &mockLoanApplicationRepository{}
		scores := &mockCreditScoreRepository{}
		ids := &mockIdentityRepository{}
		pub := &mockEventPublisher{}
		tx := &mockTransactor{}
		return usecase.NewSubmitLoanApplicationUseCase(apps, scores, ids, pub, tx), apps, scores, ids, pub, tx
	}

	t.Run("approved score forwards to the partner", func(t *testing.T) {
		uc, apps, scores, ids, pub, _ := setup()
		scores.saved = append(scores.saved, scoreFor("user-1", 760))
		_ = ids.Save(context.Background(), identity("user-1"))

		resp, err := uc.Execute(context.Background(), req)
		require.NoError(t, err)
		assert.Equal(t, "PENDING_PARTNER", resp.Status)
		assert.Equal(t, 760, resp.CreditScore)
		assert.Equal(t, "Somchai Jaidee", resp.ApplicantName)
		require.Len(t, apps.savedApps, 1)
		assert.Equal(t, []string{event.TypeLoanApplicationSubmitted}, pub.types())
	})

	t.Run("rejected score auto-rejects", func(t *testing.T) {
		uc, apps, scores, ids, pub, _ := setup()
		scores.saved = append(scores.saved, scoreFor("user-1", 640))
		_ = ids.Save(context.Background(), identity("user-1"))

		resp, err := uc.Execute(context.Background(), req)
		require.NoError(t, err)
		assert.Equal(t, "REJECTED", resp.Status)
		assert.Contains(t, resp.DecisionReason, "640")
		assert.Len(t, apps.savedApps, 1)
		assert.Equal(t, []string{event.TypeLoanApplicationRejected}, pub.types())
	})

	t.Run("no credit score performs zero writes", func(t *testing.T) {
		uc, apps, _, ids, pub, tx := setup()
		_ = ids.Save(context.Background(), identity("user-1"))

		_, err := uc.Execute(context.Background(), req)
		require.Error(t, err)
		assert.Equal(t, "No credit score found", err.Error())
		assert.True(t, apperr.IsNotFound(err))
		assert.Empty(t, apps.savedApps)
		assert.Empty(t, pub.publishedEvents)
		assert.Zero(t, tx.calls)
	})

	t.Run("missing identity is not defaulted", func(t *testing.T) {
		uc, apps, scores, _, _, tx := setup()
		scores.saved = append(scores.saved, scoreFor("user-1", 760))

		_, err := uc.Execute(context.Background(), req)
		require.Error(t, err)
		assert.True(t, apperr.IsNotFound(err))
		assert.Empty(t, apps.savedApps)
		assert.Zero(t, tx.calls)
	})

	t.Run("fallback identity is refused", func(t *testing.T) {
		uc, apps, scores, ids, _, _ := setup()
		scores.saved = append(scores.saved, scoreFor("user-1", 760))
		snap := identity("user-1")
		snap.IsFallback = true
		_ = ids.Save(context.Background(), snap)

		_, err := uc.Execute(context.Background(), req)
		require.Error(t, err)
		assert.Equal(t, apperr.CodeInvalidState, apperr.CodeOf(err))
		assert.Empty(t, apps.savedApps)
	})

	t.Run("invalid amount fails before any lookup", func(t *testing.T) {
		uc, _, scores, _, _, _ := setup()
		scores.latestFunc = func(context.Context, string) (model.CreditScoreResult, error) {
			t.Fatal("score lookup must not run")
			return model.CreditScoreResult{}, nil
		}
		_, err := uc.Execute(context.Background(), dto.SubmitApplicationRequest{UserID: "user-1", Amount: d("-1"), TermMonths: 12})
		assert.True(t, apperr.IsValidation(err))
	})

	t.Run("save failure does not publish", func(t *testing.T) {
		uc, apps, scores, ids, pub, _ := setup()
		scores.saved = append(scores.saved, scoreFor("user-1", 760))
		_ = ids.Save(context.Background(), identity("user-1"))
		apps.saveFunc = func(context.Context, model.LoanApplication) error { return errStorage }

		_, err := uc.Execute(context.Background(), req)
		require.ErrorIs(t, err, errStorage)
		assert.Empty(t, pub.publishedEvents)
	})
}

// pendingApplication stores an application awaiting the partner's decision.
func pendingApplication(t *testing.T, apps *mockLoanApplicationRepository, score int, amount string) model.LoanApplication {
	t.Helper()
	now := time.Now().UTC()
	app, err := model.NewLoanApplication("user-1", d(amount), 12, "equipment", now)
	require.NoError(t, err)
	app, err = app.Underwrite(scoreFor("user-1", score), identity("user-1"), now)
	require.NoError(t, err)
	require.NoError(t, apps.Save(context.Background(), app))
	apps.savedApps = nil
	return app
}

func TestDecideApplication_Execute(t *testing.T) {
	t.Run("approval assigns a contract number", func(t *testing.T) {
		apps := &mockLoanApplicationRepository{}
		pub := &mockEventPublisher{}
		app := pendingApplication(t, apps, 760, "50000")
		uc := usecase.NewDecideApplicationUseCase(apps, &mockContractNumbers{}, pub, &mockTransactor{})

		resp, err := uc.Execute(context.Background(), dto.DecideApplicationRequest{ApplicationID: app.ID(), Approve: true})
		require.NoError(t, err)
		assert.Equal(t, "APPROVED", resp.Status)
		assert.Equal(t, "JC-1", resp.ContractNo)
		assert.Equal(t, []string{event.TypeLoanApplicationApproved}, pub.types())
	})

	t.Run("rejection needs a reason", func(t *testing.T) {
		apps := &mockLoanApplicationRepository{}
		app := pendingApplication(t, apps, 760, "50000")
		uc := usecase.NewDecideApplicationUseCase(apps, &mockContractNumbers{}, &mockEventPublisher{}, &mockTransactor{})

		_, err := uc.Execute(context.Background(), dto.DecideApplicationRequest{ApplicationID: app.ID()})
		assert.True(t, apperr.IsValidation(err))
		assert.Empty(t, apps.savedApps)

		resp, err := uc.Execute(context.Background(), dto.DecideApplicationRequest{ApplicationID: app.ID(), Reason: "income not verified"})
		require.NoError(t, err)
		assert.Equal(t, "REJECTED", resp.Status)
		assert.Equal(t, "income not verified", resp.DecisionReason)
	})

	t.Run("unknown application", func(t *testing.T) {
		uc := usecase.NewDecideApplicationUseCase(&mockLoanApplicationRepository{}, &mockContractNumbers{}, &mockEventPublisher{}, &mockTransactor{})
		_, err := uc.Execute(context.Background(), dto.DecideApplicationRequest{ApplicationID: "missing", Approve: true})
		assert.True(t, apperr.IsNotFound(err))
	})
}

func approvedApplication(t *testing.T, apps *mockLoanApplicationRepository, score int, amount string) model.LoanApplication {
	t.Helper()
	app := pendingApplication(t, apps, score, amount)
	app, err := app.Approve("JC-77", time.Now().UTC())
	require.NoError(t, err)
	require.NoError(t, apps.Save(context.Background(), app))
	apps.savedApps = nil
	return app
}

func TestDisburseLoan_Execute(t *testing.T) {
	t.Run("prices from the score tier and activates the application", func(t *testing.T) {
		apps := &mockLoanApplicationRepository{}
		loans := &mockLoanRepository{}
		pub := &mockEventPublisher{}
		tx := &mockTransactor{}
		app := approvedApplication(t, apps, 760, "120000")
		uc := usecase.NewDisburseLoanUseCase(apps, loans, pub, tx, service.NewUnderwritingEngine())

		resp, err := uc.Execute(context.Background(), dto.DisburseLoanRequest{
			ApplicationID: app.ID(),
			PaymentDay:    5,
			StartDate:     day(2024, 1, 10),
		})
		require.NoError(t, err)
		assert.Equal(t, "ACTIVE", resp.Status)
		assert.True(t, d("15").Equal(resp.InterestRate))
		assert.Equal(t, "JC-77", resp.ContractNo)
		require.Len(t, resp.Installments, 12)
		assert.Equal(t, day(2024, 2, 5), resp.Installments[0].DueDate)
		assert.True(t, d("120000").Equal(resp.Aggregates.RemainingPrincipal))

		require.Len(t, apps.savedApps, 1)
		assert.True(t, apps.savedApps[0].Status().Equal(valueobject.LoanStatusActive))
		require.Len(t, loans.savedLoans, 1)
		assert.Equal(t, []string{event.TypeLoanDisbursed}, pub.types())
		assert.Equal(t, 1, tx.calls)
	})

	t.Run("explicit rate overrides the tier", func(t *testing.T) {
		apps := &mockLoanApplicationRepository{}
		app := approvedApplication(t, apps, 820, "120000")
		rate := d("9.5")
		uc := usecase.NewDisburseLoanUseCase(apps, &mockLoanRepository{}, &mockEventPublisher{}, &mockTransactor{}, service.NewUnderwritingEngine())

		resp, err := uc.Execute(context.Background(), dto.DisburseLoanRequest{ApplicationID: app.ID(), AnnualRatePercent: &rate})
		require.NoError(t, err)
		assert.True(t, rate.Equal(resp.InterestRate))
	})

	t.Run("amount above the tier cap", func(t *testing.T) {
		apps := &mockLoanApplicationRepository{}
		loans := &mockLoanRepository{}
		app := approvedApplication(t, apps, 710, "250000")
		uc := usecase.NewDisburseLoanUseCase(apps, loans, &mockEventPublisher{}, &mockTransactor{}, service.NewUnderwritingEngine())

		_, err := uc.Execute(context.Background(), dto.DisburseLoanRequest{ApplicationID: app.ID()})
		require.Error(t, err)
		assert.Equal(t, apperr.CodeInvalidState, apperr.CodeOf(err))
		assert.Empty(t, loans.savedLoans)
	})

	t.Run("second disbursement conflicts", func(t *testing.T) {
		apps := &mockLoanApplicationRepository{}
		loans := &mockLoanRepository{}
		app := approvedApplication(t, apps, 760, "50000")
		uc := usecase.NewDisburseLoanUseCase(apps, loans, &mockEventPublisher{}, &mockTransactor{}, service.NewUnderwritingEngine())

		_, err := uc.Execute(context.Background(), dto.DisburseLoanRequest{ApplicationID: app.ID()})
		require.NoError(t, err)
		_, err = uc.Execute(context.Background(), dto.DisburseLoanRequest{ApplicationID: app.ID()})
		assert.Equal(t, apperr.CodeConflict, apperr.CodeOf(err))
		assert.Len(t, loans.savedLoans, 1)
	})

	t.Run("pending application cannot be disbursed", func(t *testing.T) {
		apps := &mockLoanApplicationRepository{}
		loans := &mockLoanRepository{}
		app := pendingApplication(t, apps, 760, "50000")
		uc := usecase.NewDisburseLoanUseCase(apps, loans, &mockEventPublisher{}, &mockTransactor{}, service.NewUnderwritingEngine())

		_, err := uc.Execute(context.Background(), dto.DisburseLoanRequest{ApplicationID: app.ID()})
		assert.ErrorIs(t, err, valueobject.ErrInvalidStatusTransition)
		assert.Empty(t, loans.savedLoans)
	})
}

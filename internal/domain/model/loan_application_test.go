package model_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jecoplus/lending/internal/domain/apperr"
	"github.com/jecoplus/lending/internal/domain/event"
	"github.com/jecoplus/lending/internal/domain/model"
	"github.com/jecoplus/lending/internal/domain/valueobject"
)

var appliedAt = time.Date(2024, 2, 1, 9, 0, 0, 0, time.UTC)

func applicant() model.IdentitySnapshot {
	return model.IdentitySnapshot{UserID: "user-1", CitizenID: "1101700203451", FirstName: "Somchai", LastName: "Jaidee"}
}

func score(userID string, s int, decision valueobject.CreditDecision) model.CreditScoreResult {
	return model.NewCreditScoreResult(userID, s, decision, model.CreditProfile{}, nil, appliedAt)
}

func TestNewLoanApplication(t *testing.T) {
	app, err := model.NewLoanApplication("user-1", d("50000"), 12, "  home repair ", appliedAt)
	require.NoError(t, err)
	assert.True(t, app.Status().Equal(valueobject.LoanStatusApplied))
	assert.Equal(t, "home repair", app.Purpose())

	_, err = model.NewLoanApplication("", d("50000"), 12, "", appliedAt)
	assert.True(t, apperr.IsValidation(err))
	_, err = model.NewLoanApplication("user-1", d("0"), 12, "", appliedAt)
	assert.True(t, apperr.IsValidation(err))
	_, err = model.NewLoanApplication("user-1", d("100"), 0, "", appliedAt)
	assert.True(t, apperr.IsValidation(err))
}

func TestLoanApplication_Underwrite(t *testing.T) {
	app, err := model.NewLoanApplication("user-1", d("50000"), 12, "", appliedAt)
	require.NoError(t, err)

	t.Run("approved score goes to partner", func(t *testing.T) {
		next, err := app.Underwrite(score("user-1", 760, valueobject.CreditDecisionApproved), applicant(), appliedAt)
		require.NoError(t, err)
		assert.True(t, next.Status().Equal(valueobject.LoanStatusPendingPartner))
		assert.Equal(t, 760, next.CreditScore())
		require.Len(t, next.DomainEvents(), 1)
		assert.Equal(t, event.TypeLoanApplicationSubmitted, next.DomainEvents()[0].EventType())
	})

	t.Run("rejected score rejects", func(t *testing.T) {
		next, err := app.Underwrite(score("user-1", 640, valueobject.CreditDecisionRejected), applicant(), appliedAt)
		require.NoError(t, err)
		assert.True(t, next.Status().Equal(valueobject.LoanStatusRejected))
		assert.Contains(t, next.DecisionReason(), "640")
	})

	t.Run("score of another user", func(t *testing.T) {
		_, err := app.Underwrite(score("user-2", 760, valueobject.CreditDecisionApproved), applicant(), appliedAt)
		assert.True(t, apperr.IsValidation(err))
	})

	t.Run("incomplete identity", func(t *testing.T) {
		_, err := app.Underwrite(score("user-1", 760, valueobject.CreditDecisionApproved), model.IdentitySnapshot{UserID: "user-1"}, appliedAt)
		assert.True(t, apperr.IsValidation(err))
	})
}

func TestLoanApplication_PartnerDecision(t *testing.T) {
	app, err := model.NewLoanApplication("user-1", d("50000"), 12, "", appliedAt)
	require.NoError(t, err)

	_, err = app.Approve("JC-1", appliedAt)
	assert.ErrorIs(t, err, valueobject.ErrInvalidStatusTransition)

	pending, err := app.Underwrite(score("user-1", 720, valueobject.CreditDecisionApproved), applicant(), appliedAt)
	require.NoError(t, err)

	_, err = pending.Approve("", appliedAt)
	assert.True(t, apperr.IsValidation(err))

	approved, err := pending.Approve("JC-1", appliedAt)
	require.NoError(t, err)
	assert.Equal(t, "JC-1", approved.ContractNo())

	active, err := approved.MarkDisbursed(appliedAt)
	require.NoError(t, err)
	assert.True(t, active.Status().Equal(valueobject.LoanStatusActive))

	_, err = pending.Reject(" ", appliedAt)
	assert.True(t, apperr.IsValidation(err))
	rejected, err := pending.Reject("partner declined", appliedAt)
	require.NoError(t, err)
	assert.True(t, rejected.Status().Equal(valueobject.LoanStatusRejected))

	_, err = rejected.MarkDisbursed(appliedAt)
	assert.ErrorIs(t, err, valueobject.ErrInvalidStatusTransition)
}

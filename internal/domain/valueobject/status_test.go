package valueobject_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	vo "github.com/jecoplus/lending/internal/domain/valueobject"
)

func TestLoanStatusTransitions(t *testing.T) {
	tests := []struct {
		from, to vo.LoanStatus
		ok       bool
	}{
		{vo.LoanStatusApplied, vo.LoanStatusPendingPartner, true},
		{vo.LoanStatusApplied, vo.LoanStatusRejected, true},
		{vo.LoanStatusPendingPartner, vo.LoanStatusApproved, true},
		{vo.LoanStatusApproved, vo.LoanStatusActive, true},
		{vo.LoanStatusActive, vo.LoanStatusPaidOff, true},
		{vo.LoanStatusActive, vo.LoanStatusInCollection, true},
		{vo.LoanStatusApplied, vo.LoanStatusActive, false},
		{vo.LoanStatusRejected, vo.LoanStatusPendingPartner, false},
		{vo.LoanStatusPaidOff, vo.LoanStatusActive, false},
		{vo.LoanStatusInCollection, vo.LoanStatusPaidOff, false},
	}
	for _, tt := range tests {
		t.Run(tt.from.String()+"->"+tt.to.String(), func(t *testing.T) {
			assert.Equal(t, tt.ok, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestLoanStatusTerminal(t *testing.T) {
	assert.True(t, vo.LoanStatusPaidOff.IsTerminal())
	assert.True(t, vo.LoanStatusRejected.IsTerminal())
	assert.True(t, vo.LoanStatusInCollection.IsTerminal())
	assert.False(t, vo.LoanStatusActive.IsTerminal())
	assert.False(t, vo.LoanStatus{}.IsTerminal())
}

func TestNewStatusRoundTrip(t *testing.T) {
	s, err := vo.NewLoanStatus("PENDING_PARTNER")
	require.NoError(t, err)
	assert.True(t, s.Equal(vo.LoanStatusPendingPartner))

	_, err = vo.NewLoanStatus("DISBURSED")
	assert.Error(t, err)

	a, err := vo.NewAccountStatus("SUSPENDED")
	require.NoError(t, err)
	assert.True(t, a.Equal(vo.AccountStatusSuspended))

	i, err := vo.NewInstallmentStatus("WAIVED")
	require.NoError(t, err)
	assert.True(t, i.IsResolved())
	assert.False(t, vo.InstallmentOverdue.IsResolved())

	_, err = vo.NewCreditDecision("MAYBE")
	assert.Error(t, err)
}

func TestParseEntryType(t *testing.T) {
	tests := map[string]vo.EntryType{
		"CREDIT":      vo.EntryCredit,
		"deposit":     vo.EntryCredit,
		"DEBIT":       vo.EntryDebit,
		" Withdrawal": vo.EntryDebit,
	}
	for in, want := range tests {
		got, err := vo.ParseEntryType(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}

	_, err := vo.ParseEntryType("TRANSFER")
	assert.Error(t, err)
}

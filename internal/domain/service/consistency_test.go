package service_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jecoplus/lending/internal/domain/model"
	"github.com/jecoplus/lending/internal/domain/service"
	"github.com/jecoplus/lending/internal/domain/valueobject"
)

func rules(found []service.Inconsistency) []string {
	out := make([]string, 0, len(found))
	for _, f := range found {
		out = append(out, f.Rule)
	}
	return out
}

func TestConsistencyChecker(t *testing.T) {
	policy := service.DefaultLateFeePolicy()
	checker := service.NewConsistencyChecker(policy)
	r := service.NewReconciler(policy)

	t.Run("fresh loan is consistent", func(t *testing.T) {
		assert.Empty(t, checker.Check(loanWith(t, "200000", "15", 24)))
	})

	t.Run("45 days overdue on an active account is flagged", func(t *testing.T) {
		loan := loanWith(t, "200000", "15", 24)
		ledger, err := r.ApplyBehavior(loan.ID(), loan.Installments(), service.PaymentBehavior{
			OnTimeRate:              1,
			OverdueDays:             map[int]int{3: 45, 4: 20, 5: 10},
			CurrentInstallmentIndex: 6,
		})
		require.NoError(t, err)
		loan, err = loan.Reconcile(ledger, day(2024, 7, 2))
		require.NoError(t, err)

		found := checker.Check(loan)
		assert.Equal(t, 45, loan.Aggregates().DaysOverdue)
		assert.Equal(t, []string{service.RuleOverdueReview}, rules(found))
		assert.Equal(t, loan.ID(), found[0].LoanID)
		assert.Equal(t, "ACTIVE", found[0].Actual)
	})

	t.Run("90 days overdue requires suspension", func(t *testing.T) {
		loan := loanWith(t, "200000", "15", 24)
		ledger, err := r.ApplyBehavior(loan.ID(), loan.Installments(), service.PaymentBehavior{
			OverdueDays:             map[int]int{0: 95},
			CurrentInstallmentIndex: 1,
		})
		require.NoError(t, err)
		loan, err = loan.Reconcile(ledger, day(2024, 5, 6))
		require.NoError(t, err)
		assert.Equal(t, []string{service.RuleSuspensionRequired}, rules(checker.Check(loan)))

		suspended, err := loan.Suspend(day(2024, 5, 6))
		require.NoError(t, err)
		assert.Empty(t, checker.Check(suspended))
	})

	t.Run("stale stored aggregates", func(t *testing.T) {
		loan := loanWith(t, "12000", "0", 12)
		snap := loan.Snapshot()
		snap.Aggregates.RemainingPrincipal = snap.Aggregates.RemainingPrincipal.Sub(d("5"))
		snap.Aggregates.PaidInstallments = 2

		found := checker.Check(model.ReconstructLoanAccount(snap))
		assert.Contains(t, rules(found), service.RuleAggregateMismatch)
		assert.Contains(t, rules(found), service.RuleTotalRemaining)
	})

	t.Run("rounding within tolerance is accepted", func(t *testing.T) {
		loan := loanWith(t, "12000", "0", 12)
		snap := loan.Snapshot()
		snap.Aggregates.RemainingPrincipal = snap.Aggregates.RemainingPrincipal.Add(d("0.5"))
		assert.Empty(t, checker.Check(model.ReconstructLoanAccount(snap)))
	})

	t.Run("fee rules", func(t *testing.T) {
		loan := loanWith(t, "12000", "0", 12)
		snap := loan.Snapshot()
		snap.Ledger.Installments[0].LateFee = d("1200")
		snap.Ledger.Installments[0].DaysLate = 20
		snap.Ledger.Installments[1].LateFee = d("200")
		snap.Ledger.Installments[1].DaysLate = 3
		snap.Aggregates = model.ComputeAggregates(snap.Ledger.Installments)

		found := rules(checker.Check(model.ReconstructLoanAccount(snap)))
		assert.Contains(t, found, service.RuleLateFeeCap)
		assert.Contains(t, found, service.RuleLateFeeGrace)
	})

	t.Run("paid off with principal", func(t *testing.T) {
		loan := loanWith(t, "12000", "0", 12)
		snap := loan.Snapshot()
		snap.Status = valueobject.LoanStatusPaidOff
		assert.Contains(t, rules(checker.Check(model.ReconstructLoanAccount(snap))), service.RulePaidOffBalance)
	})

	t.Run("irregular due dates", func(t *testing.T) {
		loan := loanWith(t, "12000", "0", 12)
		snap := loan.Snapshot()
		snap.Ledger.Installments[5].DueDate = snap.Ledger.Installments[5].DueDate.AddDate(0, 0, 12)
		found := checker.Check(model.ReconstructLoanAccount(snap))
		assert.Equal(t, []string{service.RuleDueDateGap, service.RuleDueDateGap}, rules(found))
	})

	t.Run("restructured segment boundaries", func(t *testing.T) {
		loan := loanWith(t, "12000", "0", 12)
		snap := loan.Snapshot()
		for k := 5; k < len(snap.Ledger.Installments); k++ {
			snap.Ledger.Installments[k].DueDate = snap.Ledger.Installments[k].DueDate.AddDate(0, 0, 12)
		}
		assert.Equal(t, []string{service.RuleDueDateGap}, rules(checker.Check(model.ReconstructLoanAccount(snap))))

		snap.Modification = model.Modification{IsModified: true, SegmentStarts: []int{3, 6}}
		assert.Empty(t, checker.Check(model.ReconstructLoanAccount(snap)))
	})
}

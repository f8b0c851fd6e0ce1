package service

import (
	"fmt"
	"slices"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/jecoplus/lending/internal/domain/model"
	"github.com/jecoplus/lending/internal/domain/valueobject"
)

// ---------------------------------------------------------------------------
// ConsistencyChecker – ledger validation sweep
// ---------------------------------------------------------------------------

// Rules reported by the consistency checker.
const (
	RuleAggregateMismatch  = "aggregate_mismatch"
	RulePaidOffBalance     = "paid_off_balance"
	RuleActiveBalance      = "active_balance"
	RuleTotalRemaining     = "total_remaining"
	RuleLateFeeCap         = "late_fee_cap"
	RuleLateFeeGrace       = "late_fee_grace"
	RuleDueDateGap         = "due_date_gap"
	RuleOverdueReview      = "overdue_review"
	RuleSuspensionRequired = "suspension_required"
)

const (
	minDueDateGap     = 25
	maxDueDateGap     = 35
	reviewOverdueDays = 30
)

// Inconsistency is a warning about a loan whose state breaks a ledger rule.
// It is reported, never returned as an error.
type Inconsistency struct {
	LoanID   string
	Rule     string
	Expected string
	Actual   string
	Message  string
}

// ConsistencyChecker recomputes a loan's aggregates and checks its ledger
// rules.
type ConsistencyChecker struct {
	policy    LateFeePolicy
	tolerance decimal.Decimal
}

// NewConsistencyChecker uses a tolerance of one currency unit.
func NewConsistencyChecker(policy LateFeePolicy) *ConsistencyChecker {
	return &ConsistencyChecker{policy: policy, tolerance: decimal.NewFromInt(1)}
}

// Check returns every rule loan breaks, in a stable order.
func (c *ConsistencyChecker) Check(loan model.LoanAccount) []Inconsistency {
	var out []Inconsistency
	add := func(rule, expected, actual, format string, args ...any) {
		out = append(out, Inconsistency{
			LoanID:   loan.ID(),
			Rule:     rule,
			Expected: expected,
			Actual:   actual,
			Message:  fmt.Sprintf(format, args...),
		})
	}

	stored := loan.Aggregates()
	installments := loan.Installments()
	fresh := model.ComputeAggregates(installments)

	c.compareAggregates(stored, fresh, add)

	switch {
	case loan.Status().Equal(valueobject.LoanStatusPaidOff) && !stored.RemainingPrincipal.IsZero():
		add(RulePaidOffBalance, "0", stored.RemainingPrincipal.String(), "paid off loan still carries principal")
	case loan.Status().Equal(valueobject.LoanStatusActive) && !stored.RemainingPrincipal.IsPositive():
		add(RuleActiveBalance, "> 0", stored.RemainingPrincipal.String(), "active loan has no remaining principal")
	}

	sum := stored.RemainingPrincipal.Add(stored.RemainingInterest)
	if sum.Sub(stored.TotalRemaining).Abs().GreaterThan(c.tolerance) {
		add(RuleTotalRemaining, sum.String(), stored.TotalRemaining.String(), "total remaining differs from principal plus interest")
	}

	mod := loan.Modification()
	for k, inst := range installments {
		if inst.LateFee.GreaterThan(c.policy.Cap) {
			add(RuleLateFeeCap, "<= "+c.policy.Cap.String(), inst.LateFee.String(),
				"installment %d late fee exceeds the cap", inst.Sequence)
		}
		if inst.LateFee.IsPositive() && inst.DaysLate <= c.policy.GraceDays {
			add(RuleLateFeeGrace, "0", inst.LateFee.String(),
				"installment %d charged a fee %d days late, within grace", inst.Sequence, inst.DaysLate)
		}
		if k == 0 {
			continue
		}
		prev := installments[k-1]
		if slices.Contains(mod.SegmentStarts, inst.Sequence) {
			continue
		}
		gap := DaysBetween(prev.DueDate, inst.DueDate)
		if gap < minDueDateGap || gap > maxDueDateGap {
			add(RuleDueDateGap, fmt.Sprintf("%d..%d", minDueDateGap, maxDueDateGap), strconv.Itoa(gap),
				"installments %d and %d are %d days apart", prev.Sequence, inst.Sequence, gap)
		}
	}

	days := stored.DaysOverdue
	suspended := loan.AccountStatus().Equal(valueobject.AccountStatusSuspended)
	switch {
	case days >= model.SuspensionThresholdDays && !suspended:
		add(RuleSuspensionRequired, valueobject.AccountStatusSuspended.String(), loan.AccountStatus().String(),
			"loan is %d days overdue but the account is not suspended", days)
	case days > reviewOverdueDays && loan.AccountStatus().Equal(valueobject.AccountStatusActive):
		add(RuleOverdueReview, valueobject.AccountStatusSuspended.String(), loan.AccountStatus().String(),
			"loan is %d days overdue and the account is still active", days)
	}
	return out
}

// CheckAggregates reports only drift between the stored aggregates and a
// recomputation from the installments. Run it on a loan as loaded, before any
// transition refreshes its aggregates.
func (c *ConsistencyChecker) CheckAggregates(loan model.LoanAccount) []Inconsistency {
	var out []Inconsistency
	c.compareAggregates(loan.Aggregates(), model.ComputeAggregates(loan.Installments()),
		func(rule, expected, actual, format string, args ...any) {
			out = append(out, Inconsistency{
				LoanID:   loan.ID(),
				Rule:     rule,
				Expected: expected,
				Actual:   actual,
				Message:  fmt.Sprintf(format, args...),
			})
		})
	return out
}

func (c *ConsistencyChecker) compareAggregates(stored, fresh model.Aggregates, add func(rule, expected, actual, format string, args ...any)) {
	amounts := []struct {
		name          string
		stored, fresh decimal.Decimal
	}{
		{"remaining_principal", stored.RemainingPrincipal, fresh.RemainingPrincipal},
		{"remaining_interest", stored.RemainingInterest, fresh.RemainingInterest},
		{"total_remaining", stored.TotalRemaining, fresh.TotalRemaining},
		{"total_paid", stored.TotalPaid, fresh.TotalPaid},
		{"total_late_fees", stored.TotalLateFees, fresh.TotalLateFees},
		{"payment_success_rate", stored.PaymentSuccessRate, fresh.PaymentSuccessRate},
	}
	for _, a := range amounts {
		if a.stored.Sub(a.fresh).Abs().GreaterThan(c.tolerance) {
			add(RuleAggregateMismatch, a.fresh.String(), a.stored.String(), "%s differs from the ledger", a.name)
		}
	}

	counts := []struct {
		name          string
		stored, fresh int
	}{
		{"paid_installments", stored.PaidInstallments, fresh.PaidInstallments},
		{"on_time_installments", stored.OnTimeInstallments, fresh.OnTimeInstallments},
		{"overdue_count", stored.OverdueCount, fresh.OverdueCount},
		{"days_overdue", stored.DaysOverdue, fresh.DaysOverdue},
	}
	for _, n := range counts {
		if n.stored != n.fresh {
			add(RuleAggregateMismatch, strconv.Itoa(n.fresh), strconv.Itoa(n.stored), "%s differs from the ledger", n.name)
		}
	}
}

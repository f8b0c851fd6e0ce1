package model_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jecoplus/lending/internal/domain/apperr"
	"github.com/jecoplus/lending/internal/domain/model"
	"github.com/jecoplus/lending/internal/domain/valueobject"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestComputeMonthlyPayment(t *testing.T) {
	tests := []struct {
		name      string
		principal string
		rate      string
		term      int
		want      string
	}{
		{"200k at 15% over 24 months", "200000", "15", 24, "9697.33"},
		{"100k at 12% over 12 months", "100000", "12", 12, "8884.88"},
		{"zero rate splits evenly", "12000", "0", 12, "1000"},
		{"zero term yields zero", "12000", "10", 0, "0"},
		{"zero principal yields zero", "0", "10", 12, "0"},
		{"tiny principal at zero rate floors at a cent", "1", "0", 360, "0.01"},
		{"tiny principal with interest floors at a cent", "0.05", "1", 360, "0.01"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := model.ComputeMonthlyPayment(d(tt.principal), d(tt.rate), tt.term)
			require.NoError(t, err)
			assert.True(t, d(tt.want).Equal(got), "want %s, got %s", tt.want, got)
		})
	}
}

func TestComputeMonthlyPayment_Validation(t *testing.T) {
	tests := []struct {
		name      string
		principal string
		rate      string
		term      int
	}{
		{"negative principal", "-1", "10", 12},
		{"negative term", "1000", "10", -1},
		{"negative rate", "1000", "-0.5", 12},
		{"rate of 100 percent", "1000", "100", 12},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := model.ComputeMonthlyPayment(d(tt.principal), d(tt.rate), tt.term)
			require.Error(t, err)
			assert.True(t, apperr.IsValidation(err))
		})
	}
}

func TestComputeMonthlyPayment_AlwaysPositive(t *testing.T) {
	for _, principal := range []string{"0.01", "0.99", "1", "17.5", "1000"} {
		for _, rate := range []string{"0", "0.01", "5", "99.99"} {
			for _, term := range []int{1, 12, 120, 360, 480} {
				p, err := model.ComputeMonthlyPayment(d(principal), d(rate), term)
				require.NoError(t, err)
				assert.True(t, p.IsPositive(), "principal %s rate %s term %d gave %s", principal, rate, term, p)
			}
		}
	}
}

func TestGenerateSchedule_Properties(t *testing.T) {
	start := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	cases := []struct {
		principal string
		rate      string
		term      int
		day       int
	}{
		{"200000", "15", 24, 5},
		{"100000", "12", 12, 31},
		{"5000", "0", 7, 0},
		{"999999.99", "99.99", 60, 28},
		{"1500.50", "3.25", 1, 15},
		{"750000", "7.5", 360, 1},
		{"1", "0", 360, 1},
	}

	for _, c := range cases {
		t.Run(c.principal+"@"+c.rate, func(t *testing.T) {
			principal := d(c.principal)
			payment, err := model.ComputeMonthlyPayment(principal, d(c.rate), c.term)
			require.NoError(t, err)
			assert.True(t, payment.IsPositive())

			sched, err := model.GenerateSchedule(
				model.LoanTerms{LoanID: "loan-1", Principal: principal, AnnualRatePercent: d(c.rate)},
				model.ScheduleOptions{StartDate: start, TermMonths: c.term, PaymentDay: c.day},
			)
			require.NoError(t, err)
			require.Len(t, sched, c.term)

			sum := decimal.Zero
			balance := principal
			for k, inst := range sched {
				assert.Equal(t, k+1, inst.Sequence)
				assert.Equal(t, "loan-1", inst.LoanID)
				assert.True(t, inst.Status.Equal(valueobject.InstallmentUpcoming))
				assert.True(t, inst.Total.Equal(inst.Principal.Add(inst.Interest)))
				assert.False(t, inst.Principal.IsNegative())
				sum = sum.Add(inst.Principal)
				balance = balance.Sub(inst.Principal)

				if k > 0 {
					gap := int(inst.DueDate.Sub(sched[k-1].DueDate).Hours() / 24)
					assert.GreaterOrEqual(t, gap, 25)
					assert.LessOrEqual(t, gap, 35)
				}
			}
			assert.True(t, sum.Equal(principal), "principal sum %s", sum)
			assert.True(t, balance.IsZero(), "ending balance %s", balance)
		})
	}
}

func TestGenerateSchedule_DueDates(t *testing.T) {
	start := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)

	sched, err := model.GenerateSchedule(
		model.LoanTerms{Principal: d("3000"), AnnualRatePercent: d("12")},
		model.ScheduleOptions{StartDate: start, TermMonths: 3, PaymentDay: 31},
	)
	require.NoError(t, err)

	assert.Equal(t, time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC), sched[0].DueDate)
	assert.Equal(t, time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC), sched[1].DueDate)
	assert.Equal(t, time.Date(2024, 4, 30, 0, 0, 0, 0, time.UTC), sched[2].DueDate)
}

func TestGenerateSchedule_EmptyAndOffset(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	t.Run("zero term", func(t *testing.T) {
		sched, err := model.GenerateSchedule(model.LoanTerms{Principal: d("1000"), AnnualRatePercent: d("5")},
			model.ScheduleOptions{StartDate: start})
		require.NoError(t, err)
		assert.Empty(t, sched)
	})

	t.Run("zero principal", func(t *testing.T) {
		sched, err := model.GenerateSchedule(model.LoanTerms{Principal: decimal.Zero, AnnualRatePercent: d("5")},
			model.ScheduleOptions{StartDate: start, TermMonths: 12})
		require.NoError(t, err)
		assert.Empty(t, sched)
	})

	t.Run("bad payment day", func(t *testing.T) {
		_, err := model.GenerateSchedule(model.LoanTerms{Principal: d("1000"), AnnualRatePercent: d("5")},
			model.ScheduleOptions{StartDate: start, TermMonths: 12, PaymentDay: 32})
		assert.True(t, apperr.IsValidation(err))
	})

	t.Run("first sequence offset", func(t *testing.T) {
		sched, err := model.GenerateSchedule(model.LoanTerms{Principal: d("1000"), AnnualRatePercent: d("5")},
			model.ScheduleOptions{StartDate: start, TermMonths: 3, FirstSequence: 10})
		require.NoError(t, err)
		assert.Equal(t, []int{10, 11, 12}, []int{sched[0].Sequence, sched[1].Sequence, sched[2].Sequence})
	})
}

func TestInstallmentAllocation(t *testing.T) {
	inst := model.Installment{Principal: d("800"), Interest: d("200"), Total: d("1000"), LateFee: d("400")}

	a := inst.AllocationOf(d("900"))
	assert.True(t, a.Principal.Equal(d("800")))
	assert.True(t, a.Interest.Equal(d("100")))
	assert.True(t, a.LateFee.IsZero())

	a = inst.AllocationOf(d("1500"))
	assert.True(t, a.LateFee.Equal(d("400")))
	assert.True(t, a.OtherFees.Equal(d("100")))
	assert.True(t, a.Total().Equal(d("1500")))

	inst.PaidAmount = d("300")
	assert.True(t, inst.AmountDue().Equal(d("1100")))
	assert.True(t, inst.PrincipalPaid().Equal(d("300")))
	assert.True(t, inst.InterestPaid().IsZero())
}

package model_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jecoplus/lending/internal/domain/model"
	"github.com/jecoplus/lending/internal/domain/valueobject"
)

func TestComputeAggregates(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	sched, err := model.GenerateSchedule(
		model.LoanTerms{Principal: d("12000"), AnnualRatePercent: d("0")},
		model.ScheduleOptions{StartDate: start, TermMonths: 12},
	)
	require.NoError(t, err)

	for k := 0; k < 4; k++ {
		sched[k].Status = valueobject.InstallmentPaid
		sched[k].PaidAmount = sched[k].Total
		sched[k].IsPaidOnTime = k != 3
	}
	sched[4].Status = valueobject.InstallmentOverdue
	sched[4].DaysLate = 20
	sched[4].LateFee = d("1000")
	sched[5].Status = valueobject.InstallmentPartiallyPaid
	sched[5].PaidAmount = d("400")
	sched[11].Status = valueobject.InstallmentWaived

	agg := model.ComputeAggregates(sched)

	assert.Equal(t, 4, agg.PaidInstallments)
	assert.Equal(t, 3, agg.OnTimeInstallments)
	assert.True(t, agg.PaymentSuccessRate.Equal(d("75")))
	assert.Equal(t, 1, agg.OverdueCount)
	assert.Equal(t, 20, agg.DaysOverdue)
	assert.True(t, agg.TotalPaid.Equal(d("4000")))
	assert.True(t, agg.TotalLateFees.Equal(d("1000")))
	// 7 open installments of 1000, 400 already paid, the waived one excluded
	assert.True(t, agg.RemainingPrincipal.Equal(d("6600")), agg.RemainingPrincipal.String())
	assert.True(t, agg.RemainingInterest.IsZero())
	require.NotNil(t, agg.NextDueDate)
	assert.Equal(t, sched[4].DueDate, *agg.NextDueDate)

	assert.True(t, agg.Equal(model.ComputeAggregates(sched)))
}

func TestComputeAggregates_Empty(t *testing.T) {
	agg := model.ComputeAggregates(nil)
	assert.True(t, agg.TotalRemaining.IsZero())
	assert.True(t, agg.PaymentSuccessRate.IsZero())
	assert.Nil(t, agg.NextDueDate)
}

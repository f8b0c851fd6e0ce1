package service_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/jecoplus/lending/internal/domain/model"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func day(y int, m time.Month, dd int) time.Time { return time.Date(y, m, dd, 0, 0, 0, 0, time.UTC) }

// schedule builds a schedule starting 2024-01-01 with payment day 1, so the
// k-th installment is due on the first of month k+1.
func schedule(t *testing.T, principal, rate string, term int) []model.Installment {
	t.Helper()
	s, err := model.GenerateSchedule(
		model.LoanTerms{LoanID: "loan-1", Principal: d(principal), AnnualRatePercent: d(rate)},
		model.ScheduleOptions{StartDate: day(2024, 1, 1), TermMonths: term, PaymentDay: 1},
	)
	require.NoError(t, err)
	return s
}

func loanWith(t *testing.T, principal, rate string, term int) model.LoanAccount {
	t.Helper()
	loan, err := model.NewLoanAccount(model.NewLoanAccountParams{
		UserID:            "user-1",
		ApplicationID:     "app-1",
		ContractNo:        "JC-1",
		Principal:         d(principal),
		AnnualRatePercent: d(rate),
		TermMonths:        term,
		PaymentDay:        1,
		StartDate:         day(2024, 1, 1),
	}, day(2024, 1, 1))
	require.NoError(t, err)
	return loan.ClearEvents()
}

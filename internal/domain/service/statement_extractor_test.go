package service_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jecoplus/lending/internal/domain/model"
	"github.com/jecoplus/lending/internal/domain/service"
	"github.com/jecoplus/lending/internal/domain/valueobject"
	"github.com/jecoplus/lending/pkg/observability"
)

func TestStatementExtractor_ParseTransactions(t *testing.T) {
	x := service.NewStatementExtractor(observability.NopLogger())

	t.Run("no matches", func(t *testing.T) {
		got := x.ParseTransactions("No transactions here.")
		assert.NotNil(t, got)
		assert.Empty(t, got)
	})

	t.Run("three signed lines in order", func(t *testing.T) {
		text := "STATEMENT OF ACCOUNT\n" +
			"01/03/2024   Salary ACME Co     +50,000.00\n" +
			"05/03/2024\tRent payment\t-12,500.00\n" +
			"09/03/2024  Coffee   -500.00\n" +
			"Closing balance 37,000.00\n"

		got := x.ParseTransactions(text)
		require.Len(t, got, 3)

		assert.Equal(t, "01/03/2024", got[0].Date)
		assert.Equal(t, "Salary ACME Co", got[0].Description)
		assert.True(t, d("50000").Equal(got[0].Amount))
		assert.Equal(t, valueobject.EntryCredit, got[0].Type)

		assert.Equal(t, "Rent payment", got[1].Description)
		assert.Equal(t, valueobject.EntryDebit, got[1].Type)

		assert.Equal(t, "Coffee", got[2].Description)
		assert.True(t, d("500").Equal(got[2].Amount))
		assert.Equal(t, valueobject.EntryDebit, got[2].Type)

		for _, row := range got {
			assert.False(t, row.Amount.IsNegative())
		}
	})

	t.Run("unsigned amounts are credits", func(t *testing.T) {
		got := x.ParseTransactions("15/04/2024 Refund 1,000.00")
		require.Len(t, got, 1)
		assert.Equal(t, valueobject.EntryCredit, got[0].Type)
		assert.True(t, d("1000").Equal(got[0].Amount))
	})

	t.Run("amounts need two decimals", func(t *testing.T) {
		assert.Empty(t, x.ParseTransactions("15/04/2024 Refund 1000"))
	})
}

func TestMatchPayments(t *testing.T) {
	r := service.NewReconciler(service.DefaultLateFeePolicy())
	ledger, err := r.ApplyBehavior("loan-1", schedule(t, "3000", "0", 3), service.PaymentBehavior{
		OnTimeRate:              1,
		CurrentInstallmentIndex: 2,
	})
	require.NoError(t, err)

	rows := []model.ParsedStatementTransaction{
		{Date: "02/02/2024", Description: "LOAN", Amount: d("1000"), Type: valueobject.EntryDebit},
		{Date: "01/03/2024", Description: "LOAN", Amount: d("1000"), Type: valueobject.EntryDebit},
		{Date: "01/03/2024", Description: "LOAN", Amount: d("1000"), Type: valueobject.EntryDebit},
		{Date: "05/03/2024", Description: "SALARY", Amount: d("1000"), Type: valueobject.EntryCredit},
		{Date: "bad", Description: "X", Amount: d("1"), Type: valueobject.EntryDebit},
	}

	res := service.MatchPayments(ledger, rows, 3)
	assert.Len(t, res.Matched, 2)
	assert.Len(t, res.Unmatched, 2)
	assert.Equal(t, "bad", res.Unmatched[1].Date)
}

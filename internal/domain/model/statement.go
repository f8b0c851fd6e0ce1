package model

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/jecoplus/lending/internal/domain/valueobject"
)

// StatementDateLayout is the DD/MM/YYYY format bank statements use.
const StatementDateLayout = "02/01/2006"

// ParsedStatementTransaction is one line extracted from a bank statement.
// Amount is a magnitude; the direction lives in Type.
type ParsedStatementTransaction struct {
	Date        string
	Description string
	Amount      decimal.Decimal
	Type        valueobject.EntryType
}

// Time parses Date.
func (t ParsedStatementTransaction) Time() (time.Time, error) {
	return time.Parse(StatementDateLayout, t.Date)
}

// Signed returns Amount negated for debits.
func (t ParsedStatementTransaction) Signed() decimal.Decimal {
	if t.Type == valueobject.EntryDebit {
		return t.Amount.Neg()
	}
	return t.Amount
}

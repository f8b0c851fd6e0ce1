package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jecoplus/lending/internal/domain/valueobject"
)

// Allocation is how a transaction amount splits across what was owed.
type Allocation struct {
	Principal decimal.Decimal
	Interest  decimal.Decimal
	LateFee   decimal.Decimal
	OtherFees decimal.Decimal
}

// Total sums every bucket.
func (a Allocation) Total() decimal.Decimal {
	return a.Principal.Add(a.Interest).Add(a.LateFee).Add(a.OtherFees)
}

// Sub returns the bucket-wise difference a - b.
func (a Allocation) Sub(b Allocation) Allocation {
	return Allocation{
		Principal: a.Principal.Sub(b.Principal),
		Interest:  a.Interest.Sub(b.Interest),
		LateFee:   a.LateFee.Sub(b.LateFee),
		OtherFees: a.OtherFees.Sub(b.OtherFees),
	}
}

// Transaction is a ledger-visible money movement on a loan.
type Transaction struct {
	ID     string
	LoanID string
	// InstallmentID is empty for lump-sum settlements.
	InstallmentID string
	Type          valueobject.TransactionType
	Amount        decimal.Decimal
	Allocation    Allocation
	Status        valueobject.TransactionStatus
	// ReversalOf links a REVERSAL to the transaction it cancels.
	ReversalOf  string
	CreatedAt   time.Time
	CompletedAt *time.Time
}

// NewCompletedTransaction builds a settled transaction stamped at at.
func NewCompletedTransaction(
	loanID, installmentID string,
	txType valueobject.TransactionType,
	alloc Allocation,
	at time.Time,
) Transaction {
	completed := at
	return Transaction{
		ID:            uuid.New().String(),
		LoanID:        loanID,
		InstallmentID: installmentID,
		Type:          txType,
		Amount:        alloc.Total(),
		Allocation:    alloc,
		Status:        valueobject.TransactionCompleted,
		CreatedAt:     at,
		CompletedAt:   &completed,
	}
}

func cloneTransactions(src []Transaction) []Transaction {
	if src == nil {
		return nil
	}
	out := make([]Transaction, len(src))
	copy(out, src)
	for k := range out {
		if out[k].CompletedAt != nil {
			d := *out[k].CompletedAt
			out[k].CompletedAt = &d
		}
	}
	return out
}

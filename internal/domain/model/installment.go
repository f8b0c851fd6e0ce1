package model

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/jecoplus/lending/internal/domain/valueobject"
)

// Installment is one scheduled obligation. It is a value: ledger operations
// return modified copies rather than mutating in place.
type Installment struct {
	ID        string
	LoanID    string
	Sequence  int
	DueDate   time.Time
	Principal decimal.Decimal
	Interest  decimal.Decimal
	Total     decimal.Decimal

	Status        valueobject.InstallmentStatus
	PaidAmount    decimal.Decimal
	PaymentDate   *time.Time
	DaysLate      int
	IsPaidOnTime  bool
	LateFee       decimal.Decimal
	LateFeeWaived bool
}

// IsResolved is true once nothing more is owed on the installment.
func (i Installment) IsResolved() bool { return i.Status.IsResolved() }

// AmountDue is what is still owed including the assessed late fee.
func (i Installment) AmountDue() decimal.Decimal {
	due := i.Total.Add(i.LateFee).Sub(i.PaidAmount)
	if due.IsNegative() {
		return decimal.Zero
	}
	return due
}

// AllocationOf splits a cumulative paid amount principal first, then interest,
// then late fee. Anything beyond lands in OtherFees.
func (i Installment) AllocationOf(paid decimal.Decimal) Allocation {
	rest := decimal.Max(paid, decimal.Zero)
	take := func(limit decimal.Decimal) decimal.Decimal {
		part := decimal.Min(rest, limit)
		rest = rest.Sub(part)
		return part
	}
	return Allocation{
		Principal: take(i.Principal),
		Interest:  take(i.Interest),
		LateFee:   take(i.LateFee),
		OtherFees: rest,
	}
}

// PrincipalPaid is the principal portion of PaidAmount.
func (i Installment) PrincipalPaid() decimal.Decimal { return i.AllocationOf(i.PaidAmount).Principal }

// InterestPaid is the interest portion of PaidAmount.
func (i Installment) InterestPaid() decimal.Decimal { return i.AllocationOf(i.PaidAmount).Interest }

// cloneInstallments deep-copies the slice including PaymentDate pointers.
func cloneInstallments(src []Installment) []Installment {
	if src == nil {
		return nil
	}
	out := make([]Installment, len(src))
	copy(out, src)
	for k := range out {
		if out[k].PaymentDate != nil {
			d := *out[k].PaymentDate
			out[k].PaymentDate = &d
		}
	}
	return out
}

package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jecoplus/lending/internal/domain/apperr"
)

// Waiver attributes a fee override to a person and a reason.
type Waiver struct {
	Actor    string
	Reason   string
	WaivedAt time.Time
}

// LateFeeRecord tracks the penalty assessed on one installment. The calculated
// fee always reflects current lateness; AppliedFee is what the borrower owes.
type LateFeeRecord struct {
	ID            string
	LoanID        string
	InstallmentID string
	BaseFee       decimal.Decimal
	// DaysLate counts days past the grace period.
	DaysLate      int
	CalculatedFee decimal.Decimal
	AppliedFee    decimal.Decimal
	IsWaived      bool
	Waiver        *Waiver
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// NewLateFeeRecord opens a record when an installment first leaves grace.
func NewLateFeeRecord(loanID, installmentID string, baseFee decimal.Decimal, daysPastGrace int, fee decimal.Decimal, now time.Time) LateFeeRecord {
	return LateFeeRecord{
		ID:            uuid.New().String(),
		LoanID:        loanID,
		InstallmentID: installmentID,
		BaseFee:       baseFee,
		DaysLate:      daysPastGrace,
		CalculatedFee: fee,
		AppliedFee:    fee,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// Reassess replaces the calculated fee. A waived record keeps its override,
// capped by the new calculation.
func (r LateFeeRecord) Reassess(daysPastGrace int, fee decimal.Decimal, now time.Time) LateFeeRecord {
	next := r
	next.DaysLate = daysPastGrace
	next.CalculatedFee = fee
	if r.IsWaived {
		next.AppliedFee = decimal.Min(r.AppliedFee, fee)
	} else {
		next.AppliedFee = fee
	}
	next.UpdatedAt = now
	return next
}

// Waive overrides AppliedFee. CalculatedFee is left untouched.
func (r LateFeeRecord) Waive(applied decimal.Decimal, actor, reason string, now time.Time) (LateFeeRecord, error) {
	if strings.TrimSpace(actor) == "" {
		return r, apperr.Validation("waiver actor is required")
	}
	if strings.TrimSpace(reason) == "" {
		return r, apperr.Validation("waiver reason is required")
	}
	if applied.IsNegative() || applied.GreaterThan(r.CalculatedFee) {
		return r, apperr.Validation("applied fee must be between 0 and %s, got %s", r.CalculatedFee, applied)
	}

	next := r
	next.AppliedFee = applied
	next.IsWaived = true
	next.Waiver = &Waiver{Actor: actor, Reason: reason, WaivedAt: now}
	next.UpdatedAt = now
	return next, nil
}

func cloneLateFees(src []LateFeeRecord) []LateFeeRecord {
	if src == nil {
		return nil
	}
	out := make([]LateFeeRecord, len(src))
	copy(out, src)
	for k := range out {
		if out[k].Waiver != nil {
			w := *out[k].Waiver
			out[k].Waiver = &w
		}
	}
	return out
}

package model

import (
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jecoplus/lending/internal/domain/apperr"
	"github.com/jecoplus/lending/internal/domain/valueobject"
)

var (
	hundred      = decimal.NewFromInt(100)
	monthsInYear = decimal.NewFromInt(12)
	cent         = decimal.New(1, -2)
)

// LoanTerms are the inputs that fix an annuity.
type LoanTerms struct {
	LoanID            string
	Principal         decimal.Decimal
	AnnualRatePercent decimal.Decimal
}

// ScheduleOptions place the installments on the calendar.
type ScheduleOptions struct {
	StartDate  time.Time
	TermMonths int
	// PaymentDay is the day of month installments fall due, clamped to the
	// month's last day. Zero means the day of StartDate.
	PaymentDay int
	// FirstSequence numbers the first installment. Zero means 1. Restructured
	// schedules continue the sequence of the segment they replace.
	FirstSequence int
}

// MonthlyRate converts an annual percentage to a periodic rate.
func MonthlyRate(annualRatePercent decimal.Decimal) decimal.Decimal {
	return annualRatePercent.Div(hundred).Div(monthsInYear)
}

func validateTerms(principal, annualRatePercent decimal.Decimal, termMonths int) error {
	if principal.IsNegative() {
		return apperr.Validation("principal must not be negative, got %s", principal)
	}
	if termMonths < 0 {
		return apperr.Validation("term must not be negative, got %d", termMonths)
	}
	if annualRatePercent.IsNegative() || annualRatePercent.GreaterThanOrEqual(hundred) {
		return apperr.Validation("annual rate must be in [0, 100), got %s", annualRatePercent)
	}
	return nil
}

// ComputeMonthlyPayment returns the fixed annuity payment rounded to cents.
//
//	r       = annualRatePercent / 100 / 12
//	payment = P / n                     when r = 0
//	payment = P * r / (1 - (1+r)^-n)    otherwise
func ComputeMonthlyPayment(principal, annualRatePercent decimal.Decimal, termMonths int) (decimal.Decimal, error) {
	if err := validateTerms(principal, annualRatePercent, termMonths); err != nil {
		return decimal.Zero, err
	}
	if termMonths == 0 || principal.IsZero() {
		return decimal.Zero, nil
	}

	r := MonthlyRate(annualRatePercent)
	if r.IsZero() {
		return decimal.Max(principal.Div(decimal.NewFromInt(int64(termMonths))).Round(2), cent), nil
	}

	// float64 for the power only; money stays decimal.
	rf := r.InexactFloat64()
	payment := principal.InexactFloat64() * rf / (1 - math.Pow(1+rf, -float64(termMonths)))
	return decimal.Max(decimal.NewFromFloat(payment).Round(2), cent), nil
}

// GenerateSchedule lays out the installments of a fixed-payment loan. Interest
// accrues on the declining balance; the last installment takes whatever
// principal is left so the ending balance is exactly zero.
func GenerateSchedule(terms LoanTerms, opts ScheduleOptions) ([]Installment, error) {
	payment, err := ComputeMonthlyPayment(terms.Principal, terms.AnnualRatePercent, opts.TermMonths)
	if err != nil {
		return nil, err
	}
	if opts.PaymentDay < 0 || opts.PaymentDay > 31 {
		return nil, apperr.Validation("payment day must be in [1, 31], got %d", opts.PaymentDay)
	}
	if opts.TermMonths == 0 || terms.Principal.IsZero() {
		return []Installment{}, nil
	}

	day := opts.PaymentDay
	if day == 0 {
		day = opts.StartDate.Day()
	}
	first := opts.FirstSequence
	if first == 0 {
		first = 1
	}

	r := MonthlyRate(terms.AnnualRatePercent)
	remaining := terms.Principal
	schedule := make([]Installment, 0, opts.TermMonths)

	for k := 1; k <= opts.TermMonths; k++ {
		interest := remaining.Mul(r).Round(2)
		principal := payment.Sub(interest)
		if k == opts.TermMonths || principal.GreaterThan(remaining) {
			principal = remaining
		}
		remaining = remaining.Sub(principal)

		schedule = append(schedule, Installment{
			ID:         uuid.New().String(),
			LoanID:     terms.LoanID,
			Sequence:   first + k - 1,
			DueDate:    DueDate(opts.StartDate, k, day),
			Principal:  principal,
			Interest:   interest,
			Total:      principal.Add(interest),
			Status:     valueobject.InstallmentUpcoming,
			PaidAmount: decimal.Zero,
			LateFee:    decimal.Zero,
		})
	}

	return schedule, nil
}

// DueDate is the paymentDay of the month offset months after start, clamped
// to that month's length.
func DueDate(start time.Time, offset, paymentDay int) time.Time {
	firstOfMonth := time.Date(start.Year(), start.Month()+time.Month(offset), 1, 0, 0, 0, 0, start.Location())
	last := firstOfMonth.AddDate(0, 1, -1).Day()
	return firstOfMonth.AddDate(0, 0, min(paymentDay, last)-1)
}

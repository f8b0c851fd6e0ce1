package service

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/jecoplus/lending/internal/domain/apperr"
	"github.com/jecoplus/lending/internal/domain/model"
	"github.com/jecoplus/lending/internal/domain/valueobject"
)

// ---------------------------------------------------------------------------
// CreditScoring – income/expense/balance scoring model
// ---------------------------------------------------------------------------

// Factor names reported in the score breakdown.
const (
	FactorExpenseRatio = "expense_to_income"
	FactorBalanceRatio = "balance_to_income"
)

var (
	expenseRatioBest   = decimal.RequireFromString("0.3")
	expenseRatioWorst  = decimal.RequireFromString("0.9")
	expensePointsBest  = decimal.NewFromInt(150)
	expensePointsWorst = decimal.NewFromInt(-200)
	zeroIncomeRatio    = decimal.NewFromInt(2)
	balanceRatioCap    = decimal.NewFromInt(2)
	balancePointsBase  = decimal.NewFromInt(-50)
	balancePointsStep  = decimal.NewFromInt(75)
)

// ScoreBreakdown is the outcome of a scoring run.
type ScoreBreakdown struct {
	Score    int
	Decision valueobject.CreditDecision
	Factors  []model.ScoringFactor
}

// CreditScoring computes a score in [MinScore, MaxScore] from a baseline and
// two linear adjustments.
//
// Adjustments:
//
//	expenses/income <= 0.3   -> +150
//	expenses/income >= 0.9   -> -200, linear in between
//	avgBalance/income in [0, 2] -> -50 + 75 x ratio
type CreditScoring struct {
	Baseline          int
	MinScore          int
	MaxScore          int
	ApprovalThreshold int
}

// NewCreditScoring returns the production model: baseline 600, range
// 300..850, approval at 700.
func NewCreditScoring() *CreditScoring {
	return &CreditScoring{
		Baseline:          600,
		MinScore:          300,
		MaxScore:          850,
		ApprovalThreshold: 700,
	}
}

// Calculate scores profile. Negative income or expenses are rejected; zero
// income is scored as the worst expense ratio.
func (s *CreditScoring) Calculate(profile model.CreditProfile) (ScoreBreakdown, error) {
	if profile.MonthlyIncome.IsNegative() {
		return ScoreBreakdown{}, apperr.Validation("monthly income must not be negative, got %s", profile.MonthlyIncome)
	}
	if profile.MonthlyExpenses.IsNegative() {
		return ScoreBreakdown{}, apperr.Validation("monthly expenses must not be negative, got %s", profile.MonthlyExpenses)
	}

	expenseRatio := zeroIncomeRatio
	balanceRatio := decimal.Zero
	if profile.MonthlyIncome.IsPositive() {
		expenseRatio = profile.MonthlyExpenses.Div(profile.MonthlyIncome)
		balanceRatio = profile.AvgBalance.Div(profile.MonthlyIncome)
	}
	balanceRatio = decimal.Min(decimal.Max(balanceRatio, decimal.Zero), balanceRatioCap)

	expensePoints := expenseAdjustment(expenseRatio)
	balancePoints := balancePointsBase.Add(balanceRatio.Mul(balancePointsStep))

	raw := decimal.NewFromInt(int64(s.Baseline)).Add(expensePoints).Add(balancePoints).Round(0).IntPart()
	score := min(max(int(raw), s.MinScore), s.MaxScore)

	decision := valueobject.CreditDecisionRejected
	if score >= s.ApprovalThreshold {
		decision = valueobject.CreditDecisionApproved
	}

	return ScoreBreakdown{
		Score:    score,
		Decision: decision,
		Factors: []model.ScoringFactor{
			{Name: FactorExpenseRatio, Ratio: expenseRatio.Round(4), Points: int(expensePoints.Round(0).IntPart())},
			{Name: FactorBalanceRatio, Ratio: balanceRatio.Round(4), Points: int(balancePoints.Round(0).IntPart())},
		},
	}, nil
}

func expenseAdjustment(ratio decimal.Decimal) decimal.Decimal {
	switch {
	case ratio.LessThanOrEqual(expenseRatioBest):
		return expensePointsBest
	case ratio.GreaterThanOrEqual(expenseRatioWorst):
		return expensePointsWorst
	}
	span := expensePointsBest.Sub(expensePointsWorst)
	progress := ratio.Sub(expenseRatioBest).Div(expenseRatioWorst.Sub(expenseRatioBest))
	return expensePointsBest.Sub(span.Mul(progress))
}

// ParseCreditProfile parses raw form values. Non-numeric input is a
// validation error, never a silent zero.
func ParseCreditProfile(income, expenses, avgBalance string) (model.CreditProfile, error) {
	parse := func(field, raw string) (decimal.Decimal, error) {
		v, err := decimal.NewFromString(strings.TrimSpace(raw))
		if err != nil {
			return decimal.Zero, apperr.Validation("%s must be numeric, got %q", field, raw)
		}
		return v, nil
	}

	inc, err := parse("monthly income", income)
	if err != nil {
		return model.CreditProfile{}, err
	}
	exp, err := parse("monthly expenses", expenses)
	if err != nil {
		return model.CreditProfile{}, err
	}
	bal, err := parse("average balance", avgBalance)
	if err != nil {
		return model.CreditProfile{}, err
	}
	return model.CreditProfile{MonthlyIncome: inc, MonthlyExpenses: exp, AvgBalance: bal}, nil
}

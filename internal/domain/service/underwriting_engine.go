package service

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// ---------------------------------------------------------------------------
// UnderwritingEngine – pricing tiers for approved applications
// ---------------------------------------------------------------------------

// MaxTermMonths is the longest term any tier will price.
const MaxTermMonths = 360

// UnderwritingTier prices one band of credit scores.
type UnderwritingTier struct {
	Name              string
	MinScore          int
	AnnualRatePercent decimal.Decimal
	MaxAmount         decimal.Decimal
}

// UnderwritingResult holds the outcome of the underwriting evaluation.
type UnderwritingResult struct {
	Tier     UnderwritingTier
	Reason   string
	Approved bool
}

// UnderwritingEngine maps a credit score to a pricing tier.
type UnderwritingEngine struct {
	tiers []UnderwritingTier
}

// NewUnderwritingEngine returns the standard tiers.
//
// Tiers:
//
//	score >= 800  -> 12%, max 1,000,000
//	score >= 750  -> 15%, max   500,000
//	score >= 700  -> 18%, max   200,000
//	score <  700  -> no tier
func NewUnderwritingEngine() *UnderwritingEngine {
	return &UnderwritingEngine{tiers: []UnderwritingTier{
		{Name: "prime", MinScore: 800, AnnualRatePercent: decimal.NewFromInt(12), MaxAmount: decimal.NewFromInt(1_000_000)},
		{Name: "near-prime", MinScore: 750, AnnualRatePercent: decimal.NewFromInt(15), MaxAmount: decimal.NewFromInt(500_000)},
		{Name: "standard", MinScore: 700, AnnualRatePercent: decimal.NewFromInt(18), MaxAmount: decimal.NewFromInt(200_000)},
	}}
}

// TierFor returns the highest tier whose floor score reaches.
func (e *UnderwritingEngine) TierFor(score int) (UnderwritingTier, bool) {
	for _, t := range e.tiers {
		if score >= t.MinScore {
			return t, true
		}
	}
	return UnderwritingTier{}, false
}

// Evaluate checks a requested amount and term against the tier of score.
func (e *UnderwritingEngine) Evaluate(score int, requestedAmount decimal.Decimal, termMonths int) UnderwritingResult {
	tier, ok := e.TierFor(score)
	if !ok {
		return UnderwritingResult{Reason: fmt.Sprintf("credit score %d is below every pricing tier", score)}
	}
	if requestedAmount.GreaterThan(tier.MaxAmount) {
		return UnderwritingResult{
			Tier:   tier,
			Reason: fmt.Sprintf("requested amount %s exceeds the %s tier maximum %s", requestedAmount, tier.Name, tier.MaxAmount),
		}
	}
	if termMonths > MaxTermMonths {
		return UnderwritingResult{Tier: tier, Reason: fmt.Sprintf("term exceeds maximum %d months", MaxTermMonths)}
	}
	return UnderwritingResult{Tier: tier, Reason: tier.Name + " credit tier", Approved: true}
}

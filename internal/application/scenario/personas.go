package scenario

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/jecoplus/lending/internal/domain/model"
	"github.com/jecoplus/lending/internal/domain/service"
)

// Persona is a demo borrower with a KYC snapshot, a financial profile to
// score and any number of loans.
type Persona struct {
	UserID   string
	Identity model.IdentitySnapshot
	Profile  model.CreditProfile
	Loans    []*Builder
}

func monthsBefore(asOf time.Time, n int) time.Time {
	first := time.Date(asOf.Year(), asOf.Month(), 1, 0, 0, 0, 0, time.UTC)
	return first.AddDate(0, -n, 0)
}

func snapshot(userID, citizenID, first, last string, birth time.Time) model.IdentitySnapshot {
	return model.IdentitySnapshot{
		UserID:     userID,
		CitizenID:  citizenID,
		FirstName:  first,
		LastName:   last,
		BirthDate:  birth,
		VerifiedAt: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
	}
}

func profile(income, expenses, balance int64) model.CreditProfile {
	return model.CreditProfile{
		MonthlyIncome:   decimal.NewFromInt(income),
		MonthlyExpenses: decimal.NewFromInt(expenses),
		AvgBalance:      decimal.NewFromInt(balance),
	}
}

// Personas returns the demo portfolio with loan dates anchored to asOf.
func Personas(asOf time.Time) []Persona {
	asOf = asOf.UTC()
	return []Persona{
		{
			UserID:   "demo-ontime",
			Identity: snapshot("demo-ontime", "1100100000011", "Anong", "Srisuk", time.Date(1988, 3, 9, 0, 0, 0, 0, time.UTC)),
			Profile:  profile(85_000, 20_000, 150_000),
			Loans: []*Builder{
				New("demo-ontime").
					Principal(decimal.NewFromInt(200_000)).Rate(decimal.NewFromInt(15)).Term(24).
					StartDate(monthsBefore(asOf, 18)).
					Behavior(service.PaymentBehavior{OnTimeRate: 1, CurrentInstallmentIndex: 18, AsOf: asOf}),
			},
		},
		{
			UserID:   "demo-late",
			Identity: snapshot("demo-late", "1100100000022", "Krit", "Wongsa", time.Date(1993, 11, 21, 0, 0, 0, 0, time.UTC)),
			Profile:  profile(40_000, 26_000, 30_000),
			Loans: []*Builder{
				New("demo-late").
					Principal(decimal.NewFromInt(60_000)).Rate(decimal.NewFromInt(18)).Term(12).
					StartDate(monthsBefore(asOf, 8)).
					Behavior(service.PaymentBehavior{
						OnTimeRate:              0.5,
						LateDaysMin:             3,
						LateDaysMax:             12,
						PartialPaymentRate:      0.25,
						CurrentInstallmentIndex: 8,
						AsOf:                    asOf,
					}),
			},
		},
		{
			UserID:   "demo-delinquent",
			Identity: snapshot("demo-delinquent", "1100100000033", "Malee", "Chaiyo", time.Date(1985, 7, 2, 0, 0, 0, 0, time.UTC)),
			Profile:  profile(30_000, 29_000, 2_000),
			Loans: []*Builder{
				New("demo-delinquent").
					Principal(decimal.NewFromInt(50_000)).Rate(decimal.NewFromInt(18)).Term(12).
					StartDate(monthsBefore(asOf, 6)).
					Behavior(service.PaymentBehavior{
						OnTimeRate:              1,
						CurrentInstallmentIndex: 6,
						OverdueDays:             map[int]int{3: 45, 4: 20, 5: 10},
						AsOf:                    asOf,
					}),
			},
		},
		{
			UserID:   "demo-settled",
			Identity: snapshot("demo-settled", "1100100000044", "Prasert", "Boonmee", time.Date(1979, 1, 30, 0, 0, 0, 0, time.UTC)),
			Profile:  profile(120_000, 30_000, 400_000),
			Loans: []*Builder{
				New("demo-settled").
					Principal(decimal.NewFromInt(200_000)).Rate(decimal.NewFromInt(15)).Term(24).
					StartDate(monthsBefore(asOf, 8)).
					Behavior(service.PaymentBehavior{OnTimeRate: 1, CurrentInstallmentIndex: 6}).
					EarlyRepayment(6),
			},
		},
		{
			UserID:   "demo-restructured",
			Identity: snapshot("demo-restructured", "1100100000055", "Suda", "Thongdee", time.Date(1990, 9, 12, 0, 0, 0, 0, time.UTC)),
			Profile:  profile(45_000, 25_000, 20_000),
			Loans: []*Builder{
				New("demo-restructured").
					Principal(decimal.NewFromInt(120_000)).Rate(decimal.NewFromInt(18)).Term(12).
					StartDate(monthsBefore(asOf, 6)).
					Behavior(service.PaymentBehavior{OnTimeRate: 1, CurrentInstallmentIndex: 4}).
					Modification(4, decimal.NewFromInt(12), 24),
			},
		},
		{
			UserID:   "demo-applicant",
			Identity: snapshot("demo-applicant", "1100100000066", "Niran", "Kaewmanee", time.Date(1996, 4, 18, 0, 0, 0, 0, time.UTC)),
			Profile:  profile(60_000, 15_000, 90_000),
		},
	}
}

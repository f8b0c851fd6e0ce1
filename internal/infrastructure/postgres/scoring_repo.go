package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/jecoplus/lending/internal/domain/apperr"
	"github.com/jecoplus/lending/internal/domain/model"
	"github.com/jecoplus/lending/internal/domain/valueobject"
	pgpkg "github.com/jecoplus/lending/pkg/postgres"
)

// CreditScoreRepo implements port.CreditScoreRepository. Rows are never
// updated.
type CreditScoreRepo struct {
	pool *pgxpool.Pool
}

func NewCreditScoreRepo(pool *pgxpool.Pool) *CreditScoreRepo {
	return &CreditScoreRepo{pool: pool}
}

type factorRow struct {
	Name   string          `json:"name"`
	Ratio  decimal.Decimal `json:"ratio"`
	Points int             `json:"points"`
}

func (r *CreditScoreRepo) Save(ctx context.Context, result model.CreditScoreResult) error {
	factors := make([]factorRow, 0, len(result.Factors()))
	for _, f := range result.Factors() {
		factors = append(factors, factorRow{Name: f.Name, Ratio: f.Ratio, Points: f.Points})
	}
	factorsJSON, err := json.Marshal(factors)
	if err != nil {
		return fmt.Errorf("marshal factors: %w", err)
	}

	query := `
		INSERT INTO credit_scores (
			id, user_id, score, decision,
			monthly_income, monthly_expenses, avg_balance,
			factors, created_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`
	profile := result.Profile()
	_, err = querier(ctx, r.pool).Exec(ctx, query,
		result.ID(), result.UserID(), result.Score(), result.Decision().String(),
		profile.MonthlyIncome, profile.MonthlyExpenses, profile.AvgBalance,
		factorsJSON, result.CreatedAt(),
	)
	if pgpkg.IsUniqueViolation(err) {
		return apperr.Conflict("credit score %s already recorded", result.ID())
	}
	if err != nil {
		return wrap("save credit score", err)
	}
	return nil
}

func (r *CreditScoreRepo) LatestByUserID(ctx context.Context, userID string) (model.CreditScoreResult, error) {
	query := `
		SELECT id, user_id, score, decision,
		       monthly_income, monthly_expenses, avg_balance,
		       factors, created_at
		FROM credit_scores
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT 1
	`
	result, err := scanCreditScore(querier(ctx, r.pool).QueryRow(ctx, query, userID))
	if err != nil {
		return model.CreditScoreResult{}, notFound(err, "load credit score", "no credit score for user %s", userID)
	}
	return result, nil
}

func scanCreditScore(s scannable) (model.CreditScoreResult, error) {
	var (
		id, userID, decisionStr string
		score                   int
		profile                 model.CreditProfile
		factorsJSON             []byte
		createdAt               time.Time
	)
	err := s.Scan(
		&id, &userID, &score, &decisionStr,
		&profile.MonthlyIncome, &profile.MonthlyExpenses, &profile.AvgBalance,
		&factorsJSON, &createdAt,
	)
	if err != nil {
		return model.CreditScoreResult{}, err
	}

	decision, err := valueobject.NewCreditDecision(decisionStr)
	if err != nil {
		return model.CreditScoreResult{}, fmt.Errorf("parse credit decision: %w", err)
	}
	var rows []factorRow
	if err := json.Unmarshal(factorsJSON, &rows); err != nil {
		return model.CreditScoreResult{}, fmt.Errorf("unmarshal factors: %w", err)
	}
	factors := make([]model.ScoringFactor, 0, len(rows))
	for _, f := range rows {
		factors = append(factors, model.ScoringFactor{Name: f.Name, Ratio: f.Ratio, Points: f.Points})
	}

	return model.ReconstructCreditScoreResult(id, userID, score, decision, profile, factors, createdAt.UTC()), nil
}

// ---------------------------------------------------------------------------
// Identities
// ---------------------------------------------------------------------------

// IdentityRepo implements port.IdentityRepository.
type IdentityRepo struct {
	pool *pgxpool.Pool
}

func NewIdentityRepo(pool *pgxpool.Pool) *IdentityRepo {
	return &IdentityRepo{pool: pool}
}

// Save upserts the user's snapshot; the latest confirmation wins.
func (r *IdentityRepo) Save(ctx context.Context, s model.IdentitySnapshot) error {
	if err := s.Validate(); err != nil {
		return err
	}
	var birth *time.Time
	if !s.BirthDate.IsZero() {
		birth = &s.BirthDate
	}

	query := `
		INSERT INTO identities (user_id, citizen_id, first_name, last_name, birth_date, is_fallback, verified_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		ON CONFLICT (user_id) DO UPDATE SET
			citizen_id  = EXCLUDED.citizen_id,
			first_name  = EXCLUDED.first_name,
			last_name   = EXCLUDED.last_name,
			birth_date  = EXCLUDED.birth_date,
			is_fallback = EXCLUDED.is_fallback,
			verified_at = EXCLUDED.verified_at
	`
	if _, err := querier(ctx, r.pool).Exec(ctx, query,
		s.UserID, s.CitizenID, s.FirstName, s.LastName, birth, s.IsFallback, s.VerifiedAt,
	); err != nil {
		return wrap("save identity", err)
	}
	return nil
}

func (r *IdentityRepo) FindByUserID(ctx context.Context, userID string) (model.IdentitySnapshot, error) {
	query := `
		SELECT user_id, citizen_id, first_name, last_name, birth_date, is_fallback, verified_at
		FROM identities
		WHERE user_id = $1
	`
	var (
		s     model.IdentitySnapshot
		birth *time.Time
	)
	err := querier(ctx, r.pool).QueryRow(ctx, query, userID).Scan(
		&s.UserID, &s.CitizenID, &s.FirstName, &s.LastName, &birth, &s.IsFallback, &s.VerifiedAt,
	)
	if err != nil {
		return model.IdentitySnapshot{}, notFound(err, "load identity", "no identity record for user %s", userID)
	}
	if birth != nil {
		s.BirthDate = birth.UTC()
	}
	s.VerifiedAt = s.VerifiedAt.UTC()
	return s, nil
}

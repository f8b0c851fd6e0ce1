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
)

// LoanApplicationRepo implements port.LoanApplicationRepository.
type LoanApplicationRepo struct {
	pool *pgxpool.Pool
}

// NewLoanApplicationRepo creates a PostgreSQL-backed application repository.
func NewLoanApplicationRepo(pool *pgxpool.Pool) *LoanApplicationRepo {
	return &LoanApplicationRepo{pool: pool}
}

// applicantRow is the JSONB form of the identity copied onto the application.
type applicantRow struct {
	UserID     string     `json:"user_id"`
	CitizenID  string     `json:"citizen_id"`
	FirstName  string     `json:"first_name"`
	LastName   string     `json:"last_name"`
	BirthDate  *time.Time `json:"birth_date,omitempty"`
	IsFallback bool       `json:"is_fallback"`
	VerifiedAt time.Time  `json:"verified_at"`
}

// Save inserts or updates an application. Updates carry an optimistic
// version check.
func (r *LoanApplicationRepo) Save(ctx context.Context, app model.LoanApplication) error {
	a := app.Applicant()
	row := applicantRow{
		UserID: a.UserID, CitizenID: a.CitizenID, FirstName: a.FirstName, LastName: a.LastName,
		IsFallback: a.IsFallback, VerifiedAt: a.VerifiedAt,
	}
	if !a.BirthDate.IsZero() {
		row.BirthDate = &a.BirthDate
	}
	applicantJSON, err := json.Marshal(row)
	if err != nil {
		return fmt.Errorf("marshal applicant: %w", err)
	}

	query := `
		INSERT INTO loan_applications (
			id, user_id, amount, term_months, purpose, status,
			credit_score_id, credit_score, applicant, decision_reason, contract_no,
			version, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
		ON CONFLICT (id) DO UPDATE SET
			status          = EXCLUDED.status,
			credit_score_id = EXCLUDED.credit_score_id,
			credit_score    = EXCLUDED.credit_score,
			applicant       = EXCLUDED.applicant,
			decision_reason = EXCLUDED.decision_reason,
			contract_no     = EXCLUDED.contract_no,
			version         = loan_applications.version + 1,
			updated_at      = EXCLUDED.updated_at
		WHERE loan_applications.version = $12
	`
	tag, err := querier(ctx, r.pool).Exec(ctx, query,
		app.ID(), app.UserID(), app.Amount(), app.TermMonths(), app.Purpose(), app.Status().String(),
		app.CreditScoreID(), app.CreditScore(), applicantJSON, app.DecisionReason(), app.ContractNo(),
		app.Version(), app.CreatedAt(), app.UpdatedAt(),
	)
	if err != nil {
		return wrap("save loan application", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.Conflict("loan application %s was modified concurrently", app.ID())
	}
	return nil
}

const selectApplication = `
	SELECT id, user_id, amount, term_months, purpose, status,
	       credit_score_id, credit_score, applicant, decision_reason, contract_no,
	       version, created_at, updated_at
	FROM loan_applications
`

func (r *LoanApplicationRepo) FindByID(ctx context.Context, id string) (model.LoanApplication, error) {
	app, err := scanApplication(querier(ctx, r.pool).QueryRow(ctx, selectApplication+" WHERE id = $1", id))
	if err != nil {
		return model.LoanApplication{}, notFound(err, "load loan application", "loan application %s not found", id)
	}
	return app, nil
}

func (r *LoanApplicationRepo) FindByUserID(ctx context.Context, userID string) ([]model.LoanApplication, error) {
	rows, err := querier(ctx, r.pool).Query(ctx, selectApplication+" WHERE user_id = $1 ORDER BY created_at DESC", userID)
	if err != nil {
		return nil, wrap("query loan applications", err)
	}
	defer rows.Close()

	var result []model.LoanApplication
	for rows.Next() {
		app, err := scanApplication(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, app)
	}
	return result, rows.Err()
}

func scanApplication(s scannable) (model.LoanApplication, error) {
	var (
		id, userID, purpose, statusStr string
		amount                         decimal.Decimal
		termMonths, creditScore        int
		creditScoreID                  string
		applicantJSON                  []byte
		decisionReason, contractNo     string
		version                        int
		createdAt, updatedAt           time.Time
	)
	err := s.Scan(
		&id, &userID, &amount, &termMonths, &purpose, &statusStr,
		&creditScoreID, &creditScore, &applicantJSON, &decisionReason, &contractNo,
		&version, &createdAt, &updatedAt,
	)
	if err != nil {
		return model.LoanApplication{}, err
	}

	status, err := valueobject.NewLoanStatus(statusStr)
	if err != nil {
		return model.LoanApplication{}, fmt.Errorf("parse status: %w", err)
	}
	var row applicantRow
	if err := json.Unmarshal(applicantJSON, &row); err != nil {
		return model.LoanApplication{}, fmt.Errorf("unmarshal applicant: %w", err)
	}
	applicant := model.IdentitySnapshot{
		UserID: row.UserID, CitizenID: row.CitizenID, FirstName: row.FirstName, LastName: row.LastName,
		IsFallback: row.IsFallback, VerifiedAt: row.VerifiedAt,
	}
	if row.BirthDate != nil {
		applicant.BirthDate = *row.BirthDate
	}

	return model.ReconstructLoanApplication(
		id, userID, amount, termMonths, purpose, status,
		creditScoreID, creditScore, applicant, decisionReason, contractNo,
		version, createdAt.UTC(), updatedAt.UTC(),
	), nil
}

package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/jecoplus/lending/internal/domain/model"
	"github.com/jecoplus/lending/internal/domain/valueobject"
)

// CollectionCaseRepo implements port.CollectionCaseRepository.
type CollectionCaseRepo struct {
	pool *pgxpool.Pool
}

// NewCollectionCaseRepo creates a PostgreSQL-backed collection case repository.
func NewCollectionCaseRepo(pool *pgxpool.Pool) *CollectionCaseRepo {
	return &CollectionCaseRepo{pool: pool}
}

// Save persists a collection case (upsert).
func (r *CollectionCaseRepo) Save(ctx context.Context, c model.CollectionCase) error {
	notesJSON, err := json.Marshal(c.Notes())
	if err != nil {
		return fmt.Errorf("marshal notes: %w", err)
	}

	query := `
		INSERT INTO collection_cases (
			id, loan_id, status, days_overdue, amount_due, assigned_to, notes, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		ON CONFLICT (id) DO UPDATE SET
			status      = EXCLUDED.status,
			assigned_to = EXCLUDED.assigned_to,
			notes       = EXCLUDED.notes,
			updated_at  = EXCLUDED.updated_at
	`
	if _, err := querier(ctx, r.pool).Exec(ctx, query,
		c.ID(), c.LoanID(), c.Status().String(), c.DaysOverdue(), c.AmountDue(),
		c.AssignedTo(), notesJSON, c.CreatedAt(), c.UpdatedAt(),
	); err != nil {
		return wrap("save collection case", err)
	}
	return nil
}

// FindByLoanID retrieves all collection cases for a loan, newest first.
func (r *CollectionCaseRepo) FindByLoanID(ctx context.Context, loanID string) ([]model.CollectionCase, error) {
	query := `
		SELECT id, loan_id, status, days_overdue, amount_due, assigned_to, notes, created_at, updated_at
		FROM collection_cases
		WHERE loan_id = $1
		ORDER BY created_at DESC
	`
	rows, err := querier(ctx, r.pool).Query(ctx, query, loanID)
	if err != nil {
		return nil, wrap("query collection cases", err)
	}
	defer rows.Close()

	var cases []model.CollectionCase
	for rows.Next() {
		c, err := scanCollectionCase(rows)
		if err != nil {
			return nil, err
		}
		cases = append(cases, c)
	}
	return cases, rows.Err()
}

func scanCollectionCase(s scannable) (model.CollectionCase, error) {
	var (
		id, loanID, statusStr, assignedTo string
		daysOverdue                       int
		amountDue                         decimal.Decimal
		notesJSON                         []byte
		createdAt, updatedAt              time.Time
	)
	if err := s.Scan(&id, &loanID, &statusStr, &daysOverdue, &amountDue, &assignedTo, &notesJSON, &createdAt, &updatedAt); err != nil {
		return model.CollectionCase{}, wrap("scan collection case", err)
	}

	status, err := valueobject.NewCollectionCaseStatus(statusStr)
	if err != nil {
		return model.CollectionCase{}, fmt.Errorf("parse status: %w", err)
	}
	var notes []string
	if err := json.Unmarshal(notesJSON, &notes); err != nil {
		return model.CollectionCase{}, fmt.Errorf("unmarshal notes: %w", err)
	}

	return model.ReconstructCollectionCase(
		id, loanID, status, daysOverdue, amountDue, assignedTo, notes, createdAt.UTC(), updatedAt.UTC(),
	), nil
}

package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/jecoplus/lending/internal/domain/apperr"
	"github.com/jecoplus/lending/internal/domain/model"
	"github.com/jecoplus/lending/internal/domain/valueobject"
	pgpkg "github.com/jecoplus/lending/pkg/postgres"
)

// LoanRepo implements port.LoanRepository. The ledger lives in the
// installments, loan_transactions and late_fee_records tables and is
// rewritten in full on every save.
type LoanRepo struct {
	pool *pgxpool.Pool
	tx   *Transactor
}

// NewLoanRepo creates a PostgreSQL-backed loan repository.
func NewLoanRepo(pool *pgxpool.Pool) *LoanRepo {
	return &LoanRepo{pool: pool, tx: NewTransactor(pool)}
}

type aggregatesRow struct {
	RemainingPrincipal decimal.Decimal `json:"remaining_principal"`
	RemainingInterest  decimal.Decimal `json:"remaining_interest"`
	TotalRemaining     decimal.Decimal `json:"total_remaining"`
	TotalPaid          decimal.Decimal `json:"total_paid"`
	TotalLateFees      decimal.Decimal `json:"total_late_fees"`
	PaidInstallments   int             `json:"paid_installments"`
	OnTimeInstallments int             `json:"on_time_installments"`
	OverdueCount       int             `json:"overdue_count"`
	DaysOverdue        int             `json:"days_overdue"`
	PaymentSuccessRate decimal.Decimal `json:"payment_success_rate"`
	NextDueDate        *time.Time      `json:"next_due_date,omitempty"`
}

type modificationRow struct {
	IsModified             bool            `json:"is_modified"`
	ModificationDate       *time.Time      `json:"modification_date,omitempty"`
	OriginalInterestRate   decimal.Decimal `json:"original_interest_rate"`
	OriginalMonthlyPayment decimal.Decimal `json:"original_monthly_payment"`
	OriginalMaturityDate   *time.Time      `json:"original_maturity_date,omitempty"`
	SegmentStarts          []int           `json:"segment_starts,omitempty"`
}

// Save persists the loan and its ledger atomically, joining the caller's
// transaction when there is one.
func (r *LoanRepo) Save(ctx context.Context, loan model.LoanAccount) error {
	s := loan.Snapshot()
	aggJSON, err := json.Marshal(aggregatesRow(s.Aggregates))
	if err != nil {
		return fmt.Errorf("marshal aggregates: %w", err)
	}
	modJSON, err := json.Marshal(modificationRow(s.Modification))
	if err != nil {
		return fmt.Errorf("marshal modification: %w", err)
	}

	return r.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		tx := ctx.Value(txKey{}).(pgx.Tx)

		query := `
			INSERT INTO loan_accounts (
				id, user_id, application_id, contract_no,
				principal, interest_rate, original_term, current_term, payment_day, monthly_payment,
				status, account_status, aggregates, modification, early_savings,
				disbursed_at, version, created_at, updated_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19)
			ON CONFLICT (id) DO UPDATE SET
				interest_rate   = EXCLUDED.interest_rate,
				current_term    = EXCLUDED.current_term,
				monthly_payment = EXCLUDED.monthly_payment,
				status          = EXCLUDED.status,
				account_status  = EXCLUDED.account_status,
				aggregates      = EXCLUDED.aggregates,
				modification    = EXCLUDED.modification,
				early_savings   = EXCLUDED.early_savings,
				version         = loan_accounts.version + 1,
				updated_at      = EXCLUDED.updated_at
			WHERE loan_accounts.version = $17
		`
		tag, err := tx.Exec(ctx, query,
			s.ID, s.UserID, s.ApplicationID, s.ContractNo,
			s.Principal, s.InterestRate, s.OriginalTerm, s.CurrentTerm, s.PaymentDay, s.MonthlyPayment,
			s.Status.String(), s.AccountStatus.String(), aggJSON, modJSON, s.EarlySavings,
			s.DisbursedAt, s.Version, s.CreatedAt, s.UpdatedAt,
		)
		if pgpkg.IsUniqueViolation(err) {
			return apperr.Conflict("application %s already has a loan", s.ApplicationID)
		}
		if err != nil {
			return wrap("save loan", err)
		}
		if tag.RowsAffected() == 0 {
			return apperr.Conflict("loan %s was modified concurrently", s.ID)
		}

		return saveLedger(ctx, tx, s.ID, s.Ledger)
	})
}

func saveLedger(ctx context.Context, tx pgx.Tx, loanID string, ledger model.Ledger) error {
	batch := &pgx.Batch{}
	batch.Queue(`DELETE FROM late_fee_records WHERE loan_id = $1`, loanID)
	batch.Queue(`DELETE FROM loan_transactions WHERE loan_id = $1`, loanID)
	batch.Queue(`DELETE FROM installments WHERE loan_id = $1`, loanID)

	for _, inst := range ledger.Installments {
		batch.Queue(`
			INSERT INTO installments (
				id, loan_id, sequence, due_date, principal, interest, total,
				status, paid_amount, payment_date, days_late, is_paid_on_time, late_fee, late_fee_waived
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`,
			inst.ID, loanID, inst.Sequence, inst.DueDate, inst.Principal, inst.Interest, inst.Total,
			inst.Status.String(), inst.PaidAmount, inst.PaymentDate, inst.DaysLate, inst.IsPaidOnTime,
			inst.LateFee, inst.LateFeeWaived,
		)
	}
	for i, t := range ledger.Transactions {
		batch.Queue(`
			INSERT INTO loan_transactions (
				id, loan_id, installment_id, type, amount, principal, interest, late_fee, other_fees,
				status, reversal_of, position, created_at, completed_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`,
			t.ID, loanID, t.InstallmentID, string(t.Type), t.Amount,
			t.Allocation.Principal, t.Allocation.Interest, t.Allocation.LateFee, t.Allocation.OtherFees,
			string(t.Status), t.ReversalOf, i, t.CreatedAt, t.CompletedAt,
		)
	}
	for i, f := range ledger.LateFees {
		var waivedBy, reason *string
		var waivedAt *time.Time
		if f.Waiver != nil {
			waivedBy, reason, waivedAt = &f.Waiver.Actor, &f.Waiver.Reason, &f.Waiver.WaivedAt
		}
		batch.Queue(`
			INSERT INTO late_fee_records (
				id, loan_id, installment_id, base_fee, days_late, calculated_fee, applied_fee,
				is_waived, waived_by, waiver_reason, waived_at, position, created_at, updated_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`,
			f.ID, loanID, f.InstallmentID, f.BaseFee, f.DaysLate, f.CalculatedFee, f.AppliedFee,
			f.IsWaived, waivedBy, reason, waivedAt, i, f.CreatedAt, f.UpdatedAt,
		)
	}

	results := tx.SendBatch(ctx, batch)
	for i := 0; i < batch.Len(); i++ {
		if _, err := results.Exec(); err != nil {
			_ = results.Close()
			return wrap("save ledger", err)
		}
	}
	if err := results.Close(); err != nil {
		return wrap("save ledger", err)
	}
	return nil
}

const selectLoan = `
	SELECT id, user_id, application_id, contract_no,
	       principal, interest_rate, original_term, current_term, payment_day, monthly_payment,
	       status, account_status, aggregates, modification, early_savings,
	       disbursed_at, version, created_at, updated_at
	FROM loan_accounts
`

func (r *LoanRepo) FindByID(ctx context.Context, id string) (model.LoanAccount, error) {
	return r.findOne(ctx, selectLoan+" WHERE id = $1", id, "loan %s not found")
}

func (r *LoanRepo) FindByApplicationID(ctx context.Context, applicationID string) (model.LoanAccount, error) {
	return r.findOne(ctx, selectLoan+" WHERE application_id = $1", applicationID, "no loan for application %s")
}

// ListByStatus returns matching loans in disbursement order.
func (r *LoanRepo) ListByStatus(ctx context.Context, status valueobject.LoanStatus) ([]model.LoanAccount, error) {
	q := querier(ctx, r.pool)
	rows, err := q.Query(ctx, selectLoan+" WHERE status = $1 ORDER BY disbursed_at, id", status.String())
	if err != nil {
		return nil, wrap("query loans", err)
	}

	var snaps []model.LoanAccountSnapshot
	for rows.Next() {
		s, err := scanLoanRow(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		snaps = append(snaps, s)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, wrap("query loans", err)
	}

	loans := make([]model.LoanAccount, 0, len(snaps))
	for _, s := range snaps {
		if s.Ledger, err = loadLedger(ctx, q, s.ID); err != nil {
			return nil, err
		}
		loans = append(loans, model.ReconstructLoanAccount(s))
	}
	return loans, nil
}

func (r *LoanRepo) findOne(ctx context.Context, query, arg, missing string) (model.LoanAccount, error) {
	q := querier(ctx, r.pool)
	s, err := scanLoanRow(q.QueryRow(ctx, query, arg))
	if err != nil {
		return model.LoanAccount{}, notFound(err, "load loan", missing, arg)
	}
	if s.Ledger, err = loadLedger(ctx, q, s.ID); err != nil {
		return model.LoanAccount{}, err
	}
	return model.ReconstructLoanAccount(s), nil
}

func scanLoanRow(row scannable) (model.LoanAccountSnapshot, error) {
	var (
		s                      model.LoanAccountSnapshot
		statusStr, accountStr  string
		aggJSON, modJSON       []byte
		disbursed, created, up time.Time
	)
	err := row.Scan(
		&s.ID, &s.UserID, &s.ApplicationID, &s.ContractNo,
		&s.Principal, &s.InterestRate, &s.OriginalTerm, &s.CurrentTerm, &s.PaymentDay, &s.MonthlyPayment,
		&statusStr, &accountStr, &aggJSON, &modJSON, &s.EarlySavings,
		&disbursed, &s.Version, &created, &up,
	)
	if err != nil {
		return s, err
	}

	if s.Status, err = valueobject.NewLoanStatus(statusStr); err != nil {
		return s, fmt.Errorf("parse loan status: %w", err)
	}
	if s.AccountStatus, err = valueobject.NewAccountStatus(accountStr); err != nil {
		return s, fmt.Errorf("parse account status: %w", err)
	}
	var agg aggregatesRow
	if err := json.Unmarshal(aggJSON, &agg); err != nil {
		return s, fmt.Errorf("unmarshal aggregates: %w", err)
	}
	var mod modificationRow
	if err := json.Unmarshal(modJSON, &mod); err != nil {
		return s, fmt.Errorf("unmarshal modification: %w", err)
	}
	s.Aggregates = model.Aggregates(agg)
	s.Modification = model.Modification(mod)
	s.DisbursedAt, s.CreatedAt, s.UpdatedAt = disbursed.UTC(), created.UTC(), up.UTC()
	return s, nil
}

func loadLedger(ctx context.Context, q pgpkg.Querier, loanID string) (model.Ledger, error) {
	var ledger model.Ledger
	var err error
	if ledger.Installments, err = loadInstallments(ctx, q, loanID); err != nil {
		return ledger, err
	}
	if ledger.Transactions, err = loadTransactions(ctx, q, loanID); err != nil {
		return ledger, err
	}
	if ledger.LateFees, err = loadLateFees(ctx, q, loanID); err != nil {
		return ledger, err
	}
	return ledger, nil
}

func loadInstallments(ctx context.Context, q pgpkg.Querier, loanID string) ([]model.Installment, error) {
	rows, err := q.Query(ctx, `
		SELECT id, sequence, due_date, principal, interest, total,
		       status, paid_amount, payment_date, days_late, is_paid_on_time, late_fee, late_fee_waived
		FROM installments
		WHERE loan_id = $1
		ORDER BY sequence
	`, loanID)
	if err != nil {
		return nil, wrap("query installments", err)
	}
	defer rows.Close()

	var out []model.Installment
	for rows.Next() {
		inst := model.Installment{LoanID: loanID}
		var statusStr string
		if err := rows.Scan(
			&inst.ID, &inst.Sequence, &inst.DueDate, &inst.Principal, &inst.Interest, &inst.Total,
			&statusStr, &inst.PaidAmount, &inst.PaymentDate, &inst.DaysLate, &inst.IsPaidOnTime,
			&inst.LateFee, &inst.LateFeeWaived,
		); err != nil {
			return nil, wrap("scan installment", err)
		}
		if inst.Status, err = valueobject.NewInstallmentStatus(statusStr); err != nil {
			return nil, fmt.Errorf("parse installment status: %w", err)
		}
		inst.DueDate = inst.DueDate.UTC()
		inst.PaymentDate = utcPtr(inst.PaymentDate)
		out = append(out, inst)
	}
	return out, rows.Err()
}

func loadTransactions(ctx context.Context, q pgpkg.Querier, loanID string) ([]model.Transaction, error) {
	rows, err := q.Query(ctx, `
		SELECT id, installment_id, type, amount, principal, interest, late_fee, other_fees,
		       status, reversal_of, created_at, completed_at
		FROM loan_transactions
		WHERE loan_id = $1
		ORDER BY position
	`, loanID)
	if err != nil {
		return nil, wrap("query transactions", err)
	}
	defer rows.Close()

	var out []model.Transaction
	for rows.Next() {
		t := model.Transaction{LoanID: loanID}
		var typeStr, statusStr string
		if err := rows.Scan(
			&t.ID, &t.InstallmentID, &typeStr, &t.Amount,
			&t.Allocation.Principal, &t.Allocation.Interest, &t.Allocation.LateFee, &t.Allocation.OtherFees,
			&statusStr, &t.ReversalOf, &t.CreatedAt, &t.CompletedAt,
		); err != nil {
			return nil, wrap("scan transaction", err)
		}
		if t.Type, err = valueobject.ParseTransactionType(typeStr); err != nil {
			return nil, err
		}
		if t.Status, err = valueobject.ParseTransactionStatus(statusStr); err != nil {
			return nil, err
		}
		t.CreatedAt = t.CreatedAt.UTC()
		t.CompletedAt = utcPtr(t.CompletedAt)
		out = append(out, t)
	}
	return out, rows.Err()
}

func loadLateFees(ctx context.Context, q pgpkg.Querier, loanID string) ([]model.LateFeeRecord, error) {
	rows, err := q.Query(ctx, `
		SELECT id, installment_id, base_fee, days_late, calculated_fee, applied_fee,
		       is_waived, waived_by, waiver_reason, waived_at, created_at, updated_at
		FROM late_fee_records
		WHERE loan_id = $1
		ORDER BY position
	`, loanID)
	if err != nil {
		return nil, wrap("query late fees", err)
	}
	defer rows.Close()

	var out []model.LateFeeRecord
	for rows.Next() {
		f := model.LateFeeRecord{LoanID: loanID}
		var (
			waivedBy, reason *string
			waivedAt         *time.Time
		)
		if err := rows.Scan(
			&f.ID, &f.InstallmentID, &f.BaseFee, &f.DaysLate, &f.CalculatedFee, &f.AppliedFee,
			&f.IsWaived, &waivedBy, &reason, &waivedAt, &f.CreatedAt, &f.UpdatedAt,
		); err != nil {
			return nil, wrap("scan late fee", err)
		}
		if waivedBy != nil && waivedAt != nil {
			w := model.Waiver{Actor: *waivedBy, WaivedAt: waivedAt.UTC()}
			if reason != nil {
				w.Reason = *reason
			}
			f.Waiver = &w
		}
		f.CreatedAt, f.UpdatedAt = f.CreatedAt.UTC(), f.UpdatedAt.UTC()
		out = append(out, f)
	}
	return out, rows.Err()
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

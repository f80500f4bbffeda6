package period

import (
	"context"

	"github.com/google/uuid"
	pgx "github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/localsupportslocal/backend/internal/models"
)

const periodColumns = `id, realtor_id, month, year, closed_count, obligation_cents, status, submitted_at`

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Begin(ctx context.Context) (pgx.Tx, error) {
	return r.pool.Begin(ctx)
}

// CreateTx inserts a report. The unique (realtor_id, month, year) constraint
// rejects concurrent duplicates; callers map the violation to a conflict.
func (r *Repository) CreateTx(ctx context.Context, tx pgx.Tx, report *models.PeriodReport) error {
	return tx.QueryRow(ctx, `
		INSERT INTO period_reports (realtor_id, month, year, closed_count, obligation_cents, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, submitted_at`,
		report.RealtorID, report.Month, report.Year, report.ClosedCount, report.ObligationCents, report.Status,
	).Scan(&report.ID, &report.SubmittedAt)
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.PeriodReport, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+periodColumns+` FROM period_reports WHERE id = $1`, id)
	return scanPeriod(row)
}

// GetByIDTx locks the report row for the duration of the transaction so a
// settlement decision reads a stable status.
func (r *Repository) GetByIDTx(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.PeriodReport, error) {
	row := tx.QueryRow(ctx, `SELECT `+periodColumns+` FROM period_reports WHERE id = $1 FOR UPDATE`, id)
	return scanPeriod(row)
}

func (r *Repository) FindByPeriod(ctx context.Context, realtorID uuid.UUID, month, year int) (*models.PeriodReport, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+periodColumns+` FROM period_reports
		WHERE realtor_id = $1 AND month = $2 AND year = $3`,
		realtorID, month, year)
	return scanPeriod(row)
}

// History lists all reports for a realtor, most recent period first.
func (r *Repository) History(ctx context.Context, realtorID uuid.UUID) ([]*models.PeriodReport, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+periodColumns+` FROM period_reports
		WHERE realtor_id = $1
		ORDER BY year DESC, month DESC`,
		realtorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPeriods(rows)
}

// ListPending lists reports still awaiting settlement, most recent first.
func (r *Repository) ListPending(ctx context.Context, realtorID uuid.UUID) ([]*models.PeriodReport, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+periodColumns+` FROM period_reports
		WHERE realtor_id = $1 AND status = 'pending'
		ORDER BY year DESC, month DESC`,
		realtorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPeriods(rows)
}

// SetSettledTx flips a pending report to settled. Returns false when the
// report was not pending, which the caller treats as a conflict.
func (r *Repository) SetSettledTx(ctx context.Context, tx pgx.Tx, id uuid.UUID) (bool, error) {
	tag, err := tx.Exec(ctx, `
		UPDATE period_reports SET status = 'settled'
		WHERE id = $1 AND status = 'pending'`,
		id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func scanPeriod(row pgx.Row) (*models.PeriodReport, error) {
	var p models.PeriodReport
	err := row.Scan(&p.ID, &p.RealtorID, &p.Month, &p.Year, &p.ClosedCount, &p.ObligationCents, &p.Status, &p.SubmittedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func scanPeriods(rows pgx.Rows) ([]*models.PeriodReport, error) {
	var out []*models.PeriodReport
	for rows.Next() {
		p, err := scanPeriod(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

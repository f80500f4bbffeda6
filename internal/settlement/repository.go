package settlement

import (
	"context"

	"github.com/google/uuid"
	pgx "github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/localsupportslocal/backend/internal/models"
)

// HistoryEntry joins a settlement with the period it paid for.
type HistoryEntry struct {
	Settlement *models.Settlement
	Month      int
	Year       int
}

// Stats aggregates a realtor's giving for the dashboard.
type Stats struct {
	TotalCents      int64
	YearToDateCents int64
	Count           int64
	Monthly         []MonthlyTotal
}

// MonthlyTotal is one month's settled amount, keyed by the reported period.
type MonthlyTotal struct {
	Month       int
	Year        int
	AmountCents int64
}

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Begin(ctx context.Context) (pgx.Tx, error) {
	return r.pool.Begin(ctx)
}

// CreateTx inserts a settlement. The unique period_id constraint guarantees
// at most one settlement per report even under concurrent submissions.
func (r *Repository) CreateTx(ctx context.Context, tx pgx.Tx, s *models.Settlement) error {
	return tx.QueryRow(ctx, `
		INSERT INTO settlements (realtor_id, period_id, amount_cents, method, reference, status)
		VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''), $6)
		RETURNING id, paid_at, created_at`,
		s.RealtorID, s.PeriodID, s.AmountCents, s.Method, s.Reference, s.Status,
	).Scan(&s.ID, &s.PaidAt, &s.CreatedAt)
}

// ExistsForPeriodTx reports whether the period already has a settlement.
func (r *Repository) ExistsForPeriodTx(ctx context.Context, tx pgx.Tx, periodID uuid.UUID) (bool, error) {
	var exists bool
	err := tx.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM settlements WHERE period_id = $1)`,
		periodID).Scan(&exists)
	return exists, err
}

// ListByRealtor returns the realtor's settlements newest first, each joined
// with its period.
func (r *Repository) ListByRealtor(ctx context.Context, realtorID uuid.UUID) ([]HistoryEntry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT s.id, s.realtor_id, s.period_id, s.amount_cents,
		       COALESCE(s.method, ''), COALESCE(s.reference, ''),
		       s.status, s.shared, s.paid_at, s.created_at,
		       p.month, p.year
		FROM settlements s
		JOIN period_reports p ON p.id = s.period_id
		WHERE s.realtor_id = $1
		ORDER BY s.paid_at DESC`,
		realtorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []HistoryEntry
	for rows.Next() {
		var s models.Settlement
		var e HistoryEntry
		if err := rows.Scan(
			&s.ID, &s.RealtorID, &s.PeriodID, &s.AmountCents,
			&s.Method, &s.Reference, &s.Status, &s.Shared, &s.PaidAt, &s.CreatedAt,
			&e.Month, &e.Year,
		); err != nil {
			return nil, err
		}
		e.Settlement = &s
		out = append(out, e)
	}
	return out, rows.Err()
}

// StatsByRealtor aggregates completed settlements for a realtor. Year-scoped
// figures key on the settled period's year rather than paid_at.
func (r *Repository) StatsByRealtor(ctx context.Context, realtorID uuid.UUID, year int) (*Stats, error) {
	var stats Stats
	err := r.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(s.amount_cents), 0),
		       COALESCE(SUM(s.amount_cents) FILTER (WHERE p.year = $2), 0),
		       COUNT(*)
		FROM settlements s
		JOIN period_reports p ON p.id = s.period_id
		WHERE s.realtor_id = $1 AND s.status = 'completed'`,
		realtorID, year).Scan(&stats.TotalCents, &stats.YearToDateCents, &stats.Count)
	if err != nil {
		return nil, err
	}

	rows, err := r.pool.Query(ctx, `
		SELECT p.month, p.year, SUM(s.amount_cents)
		FROM settlements s
		JOIN period_reports p ON p.id = s.period_id
		WHERE s.realtor_id = $1 AND s.status = 'completed' AND p.year = $2
		GROUP BY p.year, p.month
		ORDER BY p.month DESC`,
		realtorID, year)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var m MonthlyTotal
		if err := rows.Scan(&m.Month, &m.Year, &m.AmountCents); err != nil {
			return nil, err
		}
		stats.Monthly = append(stats.Monthly, m)
	}
	return &stats, rows.Err()
}

// SetShared toggles whether a settlement shows on the public supporter feed.
func (r *Repository) SetShared(ctx context.Context, realtorID, settlementID uuid.UUID, shared bool) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE settlements SET shared = $3
		WHERE id = $1 AND realtor_id = $2`,
		settlementID, realtorID, shared)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

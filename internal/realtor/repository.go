package realtor

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/localsupportslocal/backend/internal/models"
)

const realtorColumns = `id, email, password_hash, first_name, last_name,
	COALESCE(phone, ''), COALESCE(brokerage, ''), COALESCE(license_number, ''),
	pledge_rate_cents, COALESCE(headshot_url, ''), COALESCE(bio, ''),
	is_active, is_admin, is_approved, approval_status, approved_at, created_at, updated_at`

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Begin(ctx context.Context) (pgx.Tx, error) {
	return r.pool.Begin(ctx)
}

// CreateTx inserts a new realtor inside the caller's transaction. The email
// unique constraint decides the winner between concurrent registrations.
func (r *Repository) CreateTx(ctx context.Context, tx pgx.Tx, realtor *models.Realtor) error {
	return tx.QueryRow(ctx, `
		INSERT INTO realtors (email, password_hash, first_name, last_name, phone, brokerage,
			license_number, pledge_rate_cents, bio, is_admin, is_approved, approval_status, approved_at)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), NULLIF($6, ''), NULLIF($7, ''), $8, NULLIF($9, ''), $10, $11, $12, $13)
		RETURNING id, created_at, updated_at
	`, realtor.Email, realtor.PasswordHash, realtor.FirstName, realtor.LastName, realtor.Phone,
		realtor.Brokerage, realtor.LicenseNumber, realtor.PledgeRateCents, realtor.Bio,
		realtor.IsAdmin, realtor.IsApproved, realtor.ApprovalStatus, realtor.ApprovedAt,
	).Scan(&realtor.ID, &realtor.CreatedAt, &realtor.UpdatedAt)
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Realtor, error) {
	return scanRealtor(r.pool.QueryRow(ctx, `SELECT `+realtorColumns+` FROM realtors WHERE id = $1`, id))
}

// GetByIDTx reads a realtor inside a transaction, locking the row so the
// pledge rate used for an obligation cannot change mid-computation.
func (r *Repository) GetByIDTx(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.Realtor, error) {
	return scanRealtor(tx.QueryRow(ctx, `SELECT `+realtorColumns+` FROM realtors WHERE id = $1 FOR UPDATE`, id))
}

func (r *Repository) GetByEmail(ctx context.Context, email string) (*models.Realtor, error) {
	return scanRealtor(r.pool.QueryRow(ctx, `SELECT `+realtorColumns+` FROM realtors WHERE email = $1`, email))
}

// ListAdminsTx returns approved admin accounts for broadcast notifications.
// The list is read at event time; a concurrently approved admin may miss an
// in-flight broadcast.
func (r *Repository) ListAdminsTx(ctx context.Context, tx pgx.Tx) ([]*models.Realtor, error) {
	rows, err := tx.Query(ctx, `
		SELECT `+realtorColumns+` FROM realtors
		WHERE is_admin AND approval_status = 'approved' AND is_active
	`)
	if err != nil {
		return nil, err
	}
	return scanRealtors(rows)
}

func (r *Repository) ListApproved(ctx context.Context) ([]*models.Realtor, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+realtorColumns+` FROM realtors
		WHERE approval_status = 'approved' AND is_active
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	return scanRealtors(rows)
}

// ListByStatus returns realtors filtered by admission state; an empty status
// returns everyone. Newest registrations first.
func (r *Repository) ListByStatus(ctx context.Context, status string) ([]*models.Realtor, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+realtorColumns+` FROM realtors
		WHERE $1 = '' OR approval_status = $1
		ORDER BY created_at DESC
	`, status)
	if err != nil {
		return nil, err
	}
	return scanRealtors(rows)
}

// SetDecisionTx applies an admission decision. The WHERE clause only matches
// pending rows, so a second decision affects zero rows and the caller can
// report the state conflict.
func (r *Repository) SetDecisionTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, status string, approved bool, approvedAt *time.Time) (bool, error) {
	tag, err := tx.Exec(ctx, `
		UPDATE realtors
		SET approval_status = $1, is_approved = $2, approved_at = $3, updated_at = now()
		WHERE id = $4 AND approval_status = 'pending'
	`, status, approved, approvedAt, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *Repository) UpdateProfile(ctx context.Context, realtor *models.Realtor) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE realtors
		SET first_name = $2, last_name = $3, phone = NULLIF($4, ''), brokerage = NULLIF($5, ''),
			license_number = NULLIF($6, ''), bio = NULLIF($7, ''), pledge_rate_cents = $8, updated_at = now()
		WHERE id = $1
	`, realtor.ID, realtor.FirstName, realtor.LastName, realtor.Phone, realtor.Brokerage,
		realtor.LicenseNumber, realtor.Bio, realtor.PledgeRateCents)
	return err
}

func (r *Repository) SetHeadshotURL(ctx context.Context, id uuid.UUID, url string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE realtors SET headshot_url = $2, updated_at = now() WHERE id = $1
	`, id, url)
	return err
}

func scanRealtor(row pgx.Row) (*models.Realtor, error) {
	var m models.Realtor
	err := row.Scan(&m.ID, &m.Email, &m.PasswordHash, &m.FirstName, &m.LastName, &m.Phone,
		&m.Brokerage, &m.LicenseNumber, &m.PledgeRateCents, &m.HeadshotURL, &m.Bio,
		&m.IsActive, &m.IsAdmin, &m.IsApproved, &m.ApprovalStatus, &m.ApprovedAt, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func scanRealtors(rows pgx.Rows) ([]*models.Realtor, error) {
	defer rows.Close()
	var list []*models.Realtor
	for rows.Next() {
		var m models.Realtor
		err := rows.Scan(&m.ID, &m.Email, &m.PasswordHash, &m.FirstName, &m.LastName, &m.Phone,
			&m.Brokerage, &m.LicenseNumber, &m.PledgeRateCents, &m.HeadshotURL, &m.Bio,
			&m.IsActive, &m.IsAdmin, &m.IsApproved, &m.ApprovalStatus, &m.ApprovedAt, &m.CreatedAt, &m.UpdatedAt)
		if err != nil {
			return nil, err
		}
		list = append(list, &m)
	}
	return list, rows.Err()
}

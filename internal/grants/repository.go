package grants

import (
	"context"

	"github.com/google/uuid"
	pgx "github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/localsupportslocal/backend/internal/models"
)

const grantColumns = `id, application_type, applicant_first_name, applicant_last_name,
	applicant_address, applicant_email, applicant_phone, applicant_birthday, applicant_story,
	COALESCE(submitter_first_name, ''), COALESCE(submitter_last_name, ''),
	COALESCE(submitter_address, ''), COALESCE(submitter_email, ''),
	COALESCE(submitter_phone, ''), COALESCE(submitter_relationship, ''),
	status, COALESCE(admin_notes, ''), reviewed_by, reviewed_at, created_at, updated_at`

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Begin(ctx context.Context) (pgx.Tx, error) {
	return r.pool.Begin(ctx)
}

func (r *Repository) CreateTx(ctx context.Context, tx pgx.Tx, g *models.GrantApplication) error {
	return tx.QueryRow(ctx, `
		INSERT INTO grant_applications (
			application_type, applicant_first_name, applicant_last_name,
			applicant_address, applicant_email, applicant_phone, applicant_birthday, applicant_story,
			submitter_first_name, submitter_last_name, submitter_address,
			submitter_email, submitter_phone, submitter_relationship
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8,
			NULLIF($9, ''), NULLIF($10, ''), NULLIF($11, ''),
			NULLIF($12, ''), NULLIF($13, ''), NULLIF($14, '')
		)
		RETURNING id, status, created_at, updated_at`,
		g.ApplicationType, g.ApplicantFirstName, g.ApplicantLastName,
		g.ApplicantAddress, g.ApplicantEmail, g.ApplicantPhone, g.ApplicantBirthday, g.ApplicantStory,
		g.SubmitterFirstName, g.SubmitterLastName, g.SubmitterAddress,
		g.SubmitterEmail, g.SubmitterPhone, g.SubmitterRelationship,
	).Scan(&g.ID, &g.Status, &g.CreatedAt, &g.UpdatedAt)
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.GrantApplication, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+grantColumns+` FROM grant_applications WHERE id = $1`, id)
	return scanGrant(row)
}

// List returns applications newest first, optionally filtered by status.
func (r *Repository) List(ctx context.Context, status string) ([]*models.GrantApplication, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+grantColumns+` FROM grant_applications
		WHERE ($1 = '' OR status = $1)
		ORDER BY created_at DESC`,
		status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.GrantApplication
	for rows.Next() {
		g, err := scanGrant(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

// SetReview records a decision. Approved and denied are terminal states, so
// the update only matches applications still open for review.
func (r *Repository) SetReview(ctx context.Context, id uuid.UUID, status, notes string, reviewerID uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE grant_applications
		SET status = $2, admin_notes = NULLIF($3, ''), reviewed_by = $4,
		    reviewed_at = now(), updated_at = now()
		WHERE id = $1 AND status IN ('pending', 'under_review')`,
		id, status, notes, reviewerID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func scanGrant(row pgx.Row) (*models.GrantApplication, error) {
	var g models.GrantApplication
	err := row.Scan(
		&g.ID, &g.ApplicationType, &g.ApplicantFirstName, &g.ApplicantLastName,
		&g.ApplicantAddress, &g.ApplicantEmail, &g.ApplicantPhone, &g.ApplicantBirthday, &g.ApplicantStory,
		&g.SubmitterFirstName, &g.SubmitterLastName, &g.SubmitterAddress,
		&g.SubmitterEmail, &g.SubmitterPhone, &g.SubmitterRelationship,
		&g.Status, &g.AdminNotes, &g.ReviewedBy, &g.ReviewedAt, &g.CreatedAt, &g.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &g, nil
}

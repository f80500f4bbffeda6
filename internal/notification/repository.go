package notification

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/localsupportslocal/backend/internal/models"
)

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// CreateTx inserts a notification inside the caller's transaction so the
// record commits or rolls back with the workflow step that raised it.
func (r *Repository) CreateTx(ctx context.Context, tx pgx.Tx, n *models.Notification) error {
	return tx.QueryRow(ctx, `
		INSERT INTO notifications (realtor_id, type, subject, message, action_url, email_sent)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6)
		RETURNING id, sent_at
	`, n.RealtorID, n.Type, n.Subject, n.Message, n.ActionURL, n.EmailSent).Scan(&n.ID, &n.SentAt)
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Notification, error) {
	var n models.Notification
	var actionURL *string
	err := r.pool.QueryRow(ctx, `
		SELECT id, realtor_id, type, subject, message, action_url, is_read, email_sent, sent_at, read_at
		FROM notifications WHERE id = $1
	`, id).Scan(&n.ID, &n.RealtorID, &n.Type, &n.Subject, &n.Message, &actionURL, &n.IsRead, &n.EmailSent, &n.SentAt, &n.ReadAt)
	if err != nil {
		return nil, err
	}
	if actionURL != nil {
		n.ActionURL = *actionURL
	}
	return &n, nil
}

// MarkRead flips is_read once; already-read rows are left untouched.
func (r *Repository) MarkRead(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE notifications SET is_read = TRUE, read_at = now()
		WHERE id = $1 AND NOT is_read
	`, id)
	return err
}

func (r *Repository) MarkAllRead(ctx context.Context, realtorID uuid.UUID) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE notifications SET is_read = TRUE, read_at = now()
		WHERE realtor_id = $1 AND NOT is_read
	`, realtorID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *Repository) UnreadCount(ctx context.Context, realtorID uuid.UUID) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx, `
		SELECT count(*) FROM notifications WHERE realtor_id = $1 AND NOT is_read
	`, realtorID).Scan(&count)
	return count, err
}

func (r *Repository) List(ctx context.Context, realtorID uuid.UUID, unreadOnly bool, limit int) ([]*models.Notification, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, realtor_id, type, subject, message, action_url, is_read, email_sent, sent_at, read_at
		FROM notifications
		WHERE realtor_id = $1 AND (NOT $2 OR NOT is_read)
		ORDER BY sent_at DESC
		LIMIT $3
	`, realtorID, unreadOnly, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.Notification
	for rows.Next() {
		var n models.Notification
		var actionURL *string
		if err := rows.Scan(&n.ID, &n.RealtorID, &n.Type, &n.Subject, &n.Message, &actionURL, &n.IsRead, &n.EmailSent, &n.SentAt, &n.ReadAt); err != nil {
			return nil, err
		}
		if actionURL != nil {
			n.ActionURL = *actionURL
		}
		list = append(list, &n)
	}
	return list, rows.Err()
}

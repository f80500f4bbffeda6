package notification

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/localsupportslocal/backend/internal/mailer"
	"github.com/localsupportslocal/backend/internal/models"
)

// ErrNotFound is returned when a notification does not exist or belongs to a
// different realtor; the two cases are indistinguishable to the caller.
var ErrNotFound = errors.New("notification not found")

// InsertEmailTxFunc enqueues an outbound email within the given transaction.
// Provided by main as a closure over river.Client.InsertTx.
type InsertEmailTxFunc func(ctx context.Context, tx pgx.Tx, args mailer.SendEmailArgs) error

// Store is the subset of Repository the service needs.
type Store interface {
	CreateTx(ctx context.Context, tx pgx.Tx, n *models.Notification) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Notification, error)
	MarkRead(ctx context.Context, id uuid.UUID) error
	MarkAllRead(ctx context.Context, realtorID uuid.UUID) (int64, error)
	UnreadCount(ctx context.Context, realtorID uuid.UUID) (int64, error)
	List(ctx context.Context, realtorID uuid.UUID, unreadOnly bool, limit int) ([]*models.Notification, error)
}

type Service interface {
	EmitTx(ctx context.Context, tx pgx.Tx, n *models.Notification) error
	EmailTx(ctx context.Context, tx pgx.Tx, to, subject, html string) error
	MarkRead(ctx context.Context, realtorID, notificationID uuid.UUID) (*models.Notification, error)
	MarkAllRead(ctx context.Context, realtorID uuid.UUID) (int64, error)
	UnreadCount(ctx context.Context, realtorID uuid.UUID) (int64, error)
	List(ctx context.Context, realtorID uuid.UUID, unreadOnly bool, limit int) ([]*models.Notification, error)
}

type service struct {
	repo        Store
	insertEmail InsertEmailTxFunc
}

// NewService creates the notification emitter. insertEmail is typically a
// closure over river.Client.InsertTx.
func NewService(repo Store, insertEmail InsertEmailTxFunc) Service {
	return &service{repo: repo, insertEmail: insertEmail}
}

var _ Service = (*service)(nil)

// EmitTx appends a notification row inside the caller's transaction.
func (s *service) EmitTx(ctx context.Context, tx pgx.Tx, n *models.Notification) error {
	return s.repo.CreateTx(ctx, tx, n)
}

// EmailTx enqueues an email delivery job inside the caller's transaction.
// The job is processed after commit; delivery failures are logged by the
// worker and never surface here.
func (s *service) EmailTx(ctx context.Context, tx pgx.Tx, to, subject, html string) error {
	return s.insertEmail(ctx, tx, mailer.SendEmailArgs{To: to, Subject: subject, HTML: html})
}

// MarkRead sets the read flag once. Re-reading an already-read notification
// is a no-op, not an error.
func (s *service) MarkRead(ctx context.Context, realtorID, notificationID uuid.UUID) (*models.Notification, error) {
	n, err := s.repo.GetByID(ctx, notificationID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if n.RealtorID != realtorID {
		return nil, ErrNotFound
	}
	if n.IsRead {
		return n, nil
	}
	if err := s.repo.MarkRead(ctx, notificationID); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, notificationID)
}

func (s *service) MarkAllRead(ctx context.Context, realtorID uuid.UUID) (int64, error) {
	return s.repo.MarkAllRead(ctx, realtorID)
}

func (s *service) UnreadCount(ctx context.Context, realtorID uuid.UUID) (int64, error) {
	return s.repo.UnreadCount(ctx, realtorID)
}

func (s *service) List(ctx context.Context, realtorID uuid.UUID, unreadOnly bool, limit int) ([]*models.Notification, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.repo.List(ctx, realtorID, unreadOnly, limit)
}

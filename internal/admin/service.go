package admin

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	pgx "github.com/jackc/pgx/v5"

	"github.com/localsupportslocal/backend/internal/mailer"
	"github.com/localsupportslocal/backend/internal/models"
)

var (
	// ErrForbidden is returned when the acting account lacks admin privileges.
	ErrForbidden = errors.New("admin access required")
	// ErrNotPending is returned when a decision targets an account that has
	// already been approved or denied. Admission moves out of pending exactly
	// once.
	ErrNotPending = errors.New("realtor is not pending approval")
	// ErrNotFound is returned when the target realtor does not exist.
	ErrNotFound = errors.New("realtor not found")
	// ErrBadDecision rejects decisions other than approve or deny.
	ErrBadDecision = errors.New("decision must be approve or deny")
)

const (
	DecisionApprove = "approve"
	DecisionDeny    = "deny"
)

// Store is the identity repository surface the admission service needs.
type Store interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Realtor, error)
	SetDecisionTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, status string, approved bool, approvedAt *time.Time) (bool, error)
	ListByStatus(ctx context.Context, status string) ([]*models.Realtor, error)
	ListApproved(ctx context.Context) ([]*models.Realtor, error)
}

// Notifier emits in-app notifications and queues emails within a transaction.
type Notifier interface {
	EmitTx(ctx context.Context, tx pgx.Tx, n *models.Notification) error
	EmailTx(ctx context.Context, tx pgx.Tx, to, subject, html string) error
}

type Service interface {
	Decide(ctx context.Context, actorID, realtorID uuid.UUID, decision, reason string) (*models.Realtor, error)
	ListPending(ctx context.Context, actorID uuid.UUID) ([]*models.Realtor, error)
	List(ctx context.Context, actorID uuid.UUID, status string) ([]*models.Realtor, error)
	SendMonthlyReminders(ctx context.Context, actorID uuid.UUID) (int, error)
}

type service struct {
	repo        Store
	notifier    Notifier
	frontendURL string
	now         func() time.Time
}

func NewService(repo Store, notifier Notifier, frontendURL string) Service {
	return &service{repo: repo, notifier: notifier, frontendURL: frontendURL, now: time.Now}
}

var _ Service = (*service)(nil)

// requireAdmin resolves the actor fresh on every call; cached or stale
// privilege is never trusted.
func (s *service) requireAdmin(ctx context.Context, actorID uuid.UUID) (*models.Realtor, error) {
	actor, err := s.repo.GetByID(ctx, actorID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrForbidden
		}
		return nil, err
	}
	if !actor.IsAdmin {
		return nil, ErrForbidden
	}
	return actor, nil
}

// Decide applies an admission decision. The status update, the notification
// to the realtor and the email enqueue commit as one unit; the pending-only
// guard in the update makes repeat decisions fail without side effects.
func (s *service) Decide(ctx context.Context, actorID, realtorID uuid.UUID, decision, reason string) (*models.Realtor, error) {
	if decision != DecisionApprove && decision != DecisionDeny {
		return nil, ErrBadDecision
	}
	if _, err := s.requireAdmin(ctx, actorID); err != nil {
		return nil, err
	}
	target, err := s.repo.GetByID(ctx, realtorID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	tx, err := s.repo.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	var applied bool
	if decision == DecisionApprove {
		approvedAt := s.now()
		applied, err = s.repo.SetDecisionTx(ctx, tx, realtorID, models.ApprovalApproved, true, &approvedAt)
		if err == nil && applied {
			target.ApprovalStatus = models.ApprovalApproved
			target.IsApproved = true
			target.ApprovedAt = &approvedAt
		}
	} else {
		applied, err = s.repo.SetDecisionTx(ctx, tx, realtorID, models.ApprovalDenied, false, nil)
		if err == nil && applied {
			target.ApprovalStatus = models.ApprovalDenied
			target.IsApproved = false
		}
	}
	if err != nil {
		return nil, err
	}
	if !applied {
		return nil, ErrNotPending
	}

	if decision == DecisionApprove {
		if err := s.notifier.EmitTx(ctx, tx, &models.Notification{
			RealtorID: target.ID,
			Type:      models.NotifAccountApproved,
			Subject:   "Account Approved",
			Message:   "Congratulations! Your realtor account has been approved. You can now access the full dashboard.",
			ActionURL: "/dashboard",
			EmailSent: true,
		}); err != nil {
			return nil, err
		}
		subject, html := mailer.AccountApproved(target.FirstName, s.frontendURL)
		if err := s.notifier.EmailTx(ctx, tx, target.Email, subject, html); err != nil {
			return nil, err
		}
	} else {
		message := "Your realtor account application has been denied."
		if reason != "" {
			message += " " + reason
		}
		if err := s.notifier.EmitTx(ctx, tx, &models.Notification{
			RealtorID: target.ID,
			Type:      models.NotifAccountDenied,
			Subject:   "Account Application Denied",
			Message:   message,
			EmailSent: true,
		}); err != nil {
			return nil, err
		}
		subject, html := mailer.AccountDenied(target.FirstName, reason)
		if err := s.notifier.EmailTx(ctx, tx, target.Email, subject, html); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return target, nil
}

func (s *service) ListPending(ctx context.Context, actorID uuid.UUID) ([]*models.Realtor, error) {
	if _, err := s.requireAdmin(ctx, actorID); err != nil {
		return nil, err
	}
	return s.repo.ListByStatus(ctx, models.ApprovalPending)
}

func (s *service) List(ctx context.Context, actorID uuid.UUID, status string) ([]*models.Realtor, error) {
	if _, err := s.requireAdmin(ctx, actorID); err != nil {
		return nil, err
	}
	return s.repo.ListByStatus(ctx, status)
}

// SendMonthlyReminders broadcasts a report reminder for the previous calendar
// month to every approved realtor.
func (s *service) SendMonthlyReminders(ctx context.Context, actorID uuid.UUID) (int, error) {
	if _, err := s.requireAdmin(ctx, actorID); err != nil {
		return 0, err
	}
	realtors, err := s.repo.ListApproved(ctx)
	if err != nil {
		return 0, err
	}
	month, year := previousMonth(s.now())
	label := models.PeriodLabel(month, year)

	tx, err := s.repo.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	for _, realtor := range realtors {
		if err := s.notifier.EmitTx(ctx, tx, &models.Notification{
			RealtorID: realtor.ID,
			Type:      models.NotifReminder,
			Subject:   "Monthly Transaction Report Reminder",
			Message:   "Please submit your closed transactions for " + label + ".",
			ActionURL: "/transactions/submit",
			EmailSent: true,
		}); err != nil {
			return 0, err
		}
		subject, html := mailer.MonthlyReminder(realtor.FirstName, label, s.frontendURL)
		if err := s.notifier.EmailTx(ctx, tx, realtor.Email, subject, html); err != nil {
			return 0, err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return len(realtors), nil
}

func previousMonth(now time.Time) (month, year int) {
	if now.Month() == time.January {
		return 12, now.Year() - 1
	}
	return int(now.Month()) - 1, now.Year()
}

package settlement

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	pgx "github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/localsupportslocal/backend/internal/mailer"
	"github.com/localsupportslocal/backend/internal/models"
)

var (
	ErrNotFound = errors.New("period report not found")
	// ErrForbidden hides other realtors' periods behind the same message as a
	// missing one at the HTTP layer; see the handler mapping.
	ErrForbidden = errors.New("period belongs to another realtor")
	// ErrAlreadySettled is returned when the period is settled or already has
	// a settlement recorded. Settlement happens exactly once.
	ErrAlreadySettled = errors.New("period is already settled")
)

// Store is the settlement repository surface the service needs.
type Store interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	CreateTx(ctx context.Context, tx pgx.Tx, s *models.Settlement) error
	ExistsForPeriodTx(ctx context.Context, tx pgx.Tx, periodID uuid.UUID) (bool, error)
	ListByRealtor(ctx context.Context, realtorID uuid.UUID) ([]HistoryEntry, error)
	StatsByRealtor(ctx context.Context, realtorID uuid.UUID, year int) (*Stats, error)
	SetShared(ctx context.Context, realtorID, settlementID uuid.UUID, shared bool) (bool, error)
}

// PeriodStore reads and settles period reports inside the recording
// transaction.
type PeriodStore interface {
	GetByIDTx(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.PeriodReport, error)
	SetSettledTx(ctx context.Context, tx pgx.Tx, id uuid.UUID) (bool, error)
	ListPending(ctx context.Context, realtorID uuid.UUID) ([]*models.PeriodReport, error)
}

type RealtorStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Realtor, error)
}

type Notifier interface {
	EmitTx(ctx context.Context, tx pgx.Tx, n *models.Notification) error
	EmailTx(ctx context.Context, tx pgx.Tx, to, subject, html string) error
}

type Service interface {
	Record(ctx context.Context, actorID, periodID uuid.UUID, method, reference string) (*models.Settlement, error)
	History(ctx context.Context, realtorID uuid.UUID) ([]HistoryEntry, error)
	Unsettled(ctx context.Context, realtorID uuid.UUID) ([]*models.PeriodReport, error)
	Stats(ctx context.Context, realtorID uuid.UUID) (*Stats, error)
	SetShared(ctx context.Context, realtorID, settlementID uuid.UUID, shared bool) error
}

type service struct {
	repo        Store
	periods     PeriodStore
	realtors    RealtorStore
	notifier    Notifier
	frontendURL string
	now         func() time.Time
}

func NewService(repo Store, periods PeriodStore, realtors RealtorStore, notifier Notifier, frontendURL string) Service {
	return &service{
		repo:        repo,
		periods:     periods,
		realtors:    realtors,
		notifier:    notifier,
		frontendURL: frontendURL,
		now:         time.Now,
	}
}

var _ Service = (*service)(nil)

// Record settles a pending period. The amount is copied from the period's
// stored obligation rather than recomputed, so a later pledge rate change
// never alters a past settlement. The settlement insert, the status flip and
// the thank-you notification commit together.
func (s *service) Record(ctx context.Context, actorID, periodID uuid.UUID, method, reference string) (*models.Settlement, error) {
	tx, err := s.repo.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	period, err := s.periods.GetByIDTx(ctx, tx, periodID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if period.RealtorID != actorID {
		return nil, ErrForbidden
	}
	if period.Status == models.PeriodStatusSettled {
		return nil, ErrAlreadySettled
	}
	if exists, err := s.repo.ExistsForPeriodTx(ctx, tx, periodID); err != nil {
		return nil, err
	} else if exists {
		return nil, ErrAlreadySettled
	}

	settlement := &models.Settlement{
		RealtorID:   actorID,
		PeriodID:    periodID,
		AmountCents: period.ObligationCents,
		Method:      method,
		Reference:   reference,
		Status:      models.SettlementCompleted,
	}
	if err := s.repo.CreateTx(ctx, tx, settlement); err != nil {
		if isUniqueViolation(err) {
			return nil, ErrAlreadySettled
		}
		return nil, err
	}
	if ok, err := s.periods.SetSettledTx(ctx, tx, periodID); err != nil {
		return nil, err
	} else if !ok {
		return nil, ErrAlreadySettled
	}

	realtor, err := s.realtors.GetByID(ctx, actorID)
	if err != nil {
		return nil, err
	}
	amount := fmt.Sprintf("$%.2f", models.Dollars(settlement.AmountCents))
	if err := s.notifier.EmitTx(ctx, tx, &models.Notification{
		RealtorID: actorID,
		Type:      models.NotifThankYou,
		Subject:   "Thank You for Your Donation",
		Message:   fmt.Sprintf("Thank you for your donation of %s for %s.", amount, period.Label()),
		EmailSent: true,
	}); err != nil {
		return nil, err
	}
	subject, html := mailer.ThankYou(realtor.FirstName, period.Label(), amount)
	if err := s.notifier.EmailTx(ctx, tx, realtor.Email, subject, html); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return settlement, nil
}

func (s *service) History(ctx context.Context, realtorID uuid.UUID) ([]HistoryEntry, error) {
	return s.repo.ListByRealtor(ctx, realtorID)
}

func (s *service) Unsettled(ctx context.Context, realtorID uuid.UUID) ([]*models.PeriodReport, error) {
	return s.periods.ListPending(ctx, realtorID)
}

// Stats aggregates by the settled period's year, not the payment date, so a
// January payment for a December period counts toward the prior year.
func (s *service) Stats(ctx context.Context, realtorID uuid.UUID) (*Stats, error) {
	return s.repo.StatsByRealtor(ctx, realtorID, s.now().Year())
}

func (s *service) SetShared(ctx context.Context, realtorID, settlementID uuid.UUID, shared bool) error {
	ok, err := s.repo.SetShared(ctx, realtorID, settlementID, shared)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

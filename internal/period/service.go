package period

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
	ErrBadMonth      = errors.New("month must be between 1 and 12")
	ErrBadYear       = fmt.Errorf("year must be between %d and the current year", models.FloorYear)
	ErrNegativeCount = errors.New("closed transaction count cannot be negative")
	// ErrDuplicatePeriod is returned when a report already exists for the
	// realtor and month. A period is submitted exactly once; amendments are
	// not supported through this path.
	ErrDuplicatePeriod = errors.New("report already submitted for this period")
	ErrNotFound        = errors.New("period report not found")
)

// Store is the period repository surface the service needs.
type Store interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	CreateTx(ctx context.Context, tx pgx.Tx, report *models.PeriodReport) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.PeriodReport, error)
	FindByPeriod(ctx context.Context, realtorID uuid.UUID, month, year int) (*models.PeriodReport, error)
	History(ctx context.Context, realtorID uuid.UUID) ([]*models.PeriodReport, error)
	ListPending(ctx context.Context, realtorID uuid.UUID) ([]*models.PeriodReport, error)
}

// RealtorStore resolves the submitting realtor. The locked read pins the
// pledge rate for the duration of the submission transaction.
type RealtorStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Realtor, error)
	GetByIDTx(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.Realtor, error)
}

type Notifier interface {
	EmitTx(ctx context.Context, tx pgx.Tx, n *models.Notification) error
	EmailTx(ctx context.Context, tx pgx.Tx, to, subject, html string) error
}

// SubmitInput carries an optional explicit period. When Month and Year are
// nil the report targets the calendar month before the current one.
type SubmitInput struct {
	Month       *int
	Year        *int
	ClosedCount int
}

// UnreportedPeriod marks a month the realtor has not reported yet.
type UnreportedPeriod struct {
	Month int
	Year  int
}

func (u UnreportedPeriod) Label() string {
	return models.PeriodLabel(u.Month, u.Year)
}

type Service interface {
	Submit(ctx context.Context, realtorID uuid.UUID, in SubmitInput) (*models.PeriodReport, error)
	History(ctx context.Context, realtorID uuid.UUID) ([]*models.PeriodReport, error)
	Pending(ctx context.Context, realtorID uuid.UUID) ([]*models.PeriodReport, *UnreportedPeriod, error)
}

type service struct {
	repo        Store
	realtors    RealtorStore
	notifier    Notifier
	frontendURL string
	now         func() time.Time
}

func NewService(repo Store, realtors RealtorStore, notifier Notifier, frontendURL string) Service {
	return &service{
		repo:        repo,
		realtors:    realtors,
		notifier:    notifier,
		frontendURL: frontendURL,
		now:         time.Now,
	}
}

var _ Service = (*service)(nil)

// Submit records a month's closed-transaction count. The obligation is the
// count times the realtor's pledge rate read under lock inside the same
// transaction, so a concurrent rate change cannot split the computation. A
// zero obligation settles the period immediately; otherwise the report starts
// pending and a payment request goes out with the commit.
func (s *service) Submit(ctx context.Context, realtorID uuid.UUID, in SubmitInput) (*models.PeriodReport, error) {
	now := s.now()
	month, year := previousMonth(now)
	if in.Month != nil {
		month = *in.Month
	}
	if in.Year != nil {
		year = *in.Year
	}
	if month < 1 || month > 12 {
		return nil, ErrBadMonth
	}
	if year < models.FloorYear || year > now.Year() {
		return nil, ErrBadYear
	}
	if in.ClosedCount < 0 {
		return nil, ErrNegativeCount
	}

	tx, err := s.repo.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	realtor, err := s.realtors.GetByIDTx(ctx, tx, realtorID)
	if err != nil {
		return nil, err
	}

	report := &models.PeriodReport{
		RealtorID:       realtorID,
		Month:           month,
		Year:            year,
		ClosedCount:     in.ClosedCount,
		ObligationCents: int64(in.ClosedCount) * realtor.PledgeRateCents,
		Status:          models.PeriodStatusPending,
	}
	if report.ObligationCents == 0 {
		report.Status = models.PeriodStatusSettled
	}
	if err := s.repo.CreateTx(ctx, tx, report); err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicatePeriod
		}
		return nil, err
	}

	if report.ObligationCents > 0 {
		amount := fmt.Sprintf("$%.2f", models.Dollars(report.ObligationCents))
		if err := s.notifier.EmitTx(ctx, tx, &models.Notification{
			RealtorID: realtorID,
			Type:      models.NotifPaymentRequest,
			Subject:   "Monthly Donation Due",
			Message:   fmt.Sprintf("Your donation of %s for %s is ready to be paid.", amount, report.Label()),
			ActionURL: "/payments",
			EmailSent: true,
		}); err != nil {
			return nil, err
		}
		subject, html := mailer.PaymentRequest(realtor.FirstName, report.Label(), amount, s.frontendURL)
		if err := s.notifier.EmailTx(ctx, tx, realtor.Email, subject, html); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return report, nil
}

func (s *service) History(ctx context.Context, realtorID uuid.UUID) ([]*models.PeriodReport, error) {
	return s.repo.History(ctx, realtorID)
}

// Pending returns reports still awaiting settlement, plus a marker for the
// previous calendar month when no report exists for it and the account
// already existed before that month began.
func (s *service) Pending(ctx context.Context, realtorID uuid.UUID) ([]*models.PeriodReport, *UnreportedPeriod, error) {
	reports, err := s.repo.ListPending(ctx, realtorID)
	if err != nil {
		return nil, nil, err
	}

	month, year := previousMonth(s.now())
	if _, err := s.repo.FindByPeriod(ctx, realtorID, month, year); err == nil {
		return reports, nil, nil
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, nil, err
	}

	realtor, err := s.realtors.GetByID(ctx, realtorID)
	if err != nil {
		return nil, nil, err
	}
	firstOfMonth := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	if realtor.CreatedAt.Before(firstOfMonth) {
		return reports, &UnreportedPeriod{Month: month, Year: year}, nil
	}
	return reports, nil, nil
}

func previousMonth(now time.Time) (month, year int) {
	if now.Month() == time.January {
		return 12, now.Year() - 1
	}
	return int(now.Month()) - 1, now.Year()
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

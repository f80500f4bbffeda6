package grants

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	pgx "github.com/jackc/pgx/v5"

	"github.com/localsupportslocal/backend/internal/mailer"
	"github.com/localsupportslocal/backend/internal/models"
)

// Applicant stories are capped at 500 words to keep review manageable.
const maxStoryWords = 500

var (
	ErrMissingFields    = errors.New("required application fields are missing")
	ErrBadType          = errors.New("application type must be self or someone_else")
	ErrStoryTooLong     = errors.New("story exceeds the 500 word limit")
	ErrMissingSubmitter = errors.New("submitter details are required when applying for someone else")
	ErrNotFound         = errors.New("application not found")
	ErrForbidden        = errors.New("admin access required")
	ErrBadStatus        = errors.New("invalid application status")
	ErrAlreadyDecided   = errors.New("application has already been decided")
)

type Store interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	CreateTx(ctx context.Context, tx pgx.Tx, g *models.GrantApplication) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.GrantApplication, error)
	List(ctx context.Context, status string) ([]*models.GrantApplication, error)
	SetReview(ctx context.Context, id uuid.UUID, status, notes string, reviewerID uuid.UUID) (bool, error)
}

type RealtorStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Realtor, error)
	ListAdminsTx(ctx context.Context, tx pgx.Tx) ([]*models.Realtor, error)
}

type Notifier interface {
	EmitTx(ctx context.Context, tx pgx.Tx, n *models.Notification) error
	EmailTx(ctx context.Context, tx pgx.Tx, to, subject, html string) error
}

// AddressValidator normalizes a street address through a third-party lookup.
// A nil validator or a lookup failure leaves the address as submitted.
type AddressValidator interface {
	Normalize(ctx context.Context, address string) (string, error)
}

type SubmitInput struct {
	ApplicationType       string
	ApplicantFirstName    string
	ApplicantLastName     string
	ApplicantAddress      string
	ApplicantEmail        string
	ApplicantPhone        string
	ApplicantBirthday     time.Time
	ApplicantStory        string
	SubmitterFirstName    string
	SubmitterLastName     string
	SubmitterAddress      string
	SubmitterEmail        string
	SubmitterPhone        string
	SubmitterRelationship string
}

type Service interface {
	Submit(ctx context.Context, in SubmitInput) (*models.GrantApplication, error)
	List(ctx context.Context, actorID uuid.UUID, status string) ([]*models.GrantApplication, error)
	Get(ctx context.Context, actorID, applicationID uuid.UUID) (*models.GrantApplication, error)
	Review(ctx context.Context, actorID, applicationID uuid.UUID, status, notes string) (*models.GrantApplication, error)
}

type service struct {
	repo        Store
	realtors    RealtorStore
	notifier    Notifier
	addresses   AddressValidator
	frontendURL string
}

func NewService(repo Store, realtors RealtorStore, notifier Notifier, addresses AddressValidator, frontendURL string) Service {
	return &service{repo: repo, realtors: realtors, notifier: notifier, addresses: addresses, frontendURL: frontendURL}
}

var _ Service = (*service)(nil)

// Submit files a grant application from the public form. No authentication is
// required. Admins are notified and the applicant gets a confirmation email,
// all committed with the application row.
func (s *service) Submit(ctx context.Context, in SubmitInput) (*models.GrantApplication, error) {
	if in.ApplicationType != models.GrantTypeSelf && in.ApplicationType != models.GrantTypeSomeoneElse {
		return nil, ErrBadType
	}
	if in.ApplicantFirstName == "" || in.ApplicantLastName == "" || in.ApplicantAddress == "" ||
		in.ApplicantEmail == "" || in.ApplicantPhone == "" || in.ApplicantBirthday.IsZero() ||
		strings.TrimSpace(in.ApplicantStory) == "" {
		return nil, ErrMissingFields
	}
	if len(strings.Fields(in.ApplicantStory)) > maxStoryWords {
		return nil, ErrStoryTooLong
	}
	if in.ApplicationType == models.GrantTypeSomeoneElse {
		if in.SubmitterFirstName == "" || in.SubmitterLastName == "" ||
			in.SubmitterEmail == "" || in.SubmitterRelationship == "" {
			return nil, ErrMissingSubmitter
		}
	}

	if s.addresses != nil {
		if normalized, err := s.addresses.Normalize(ctx, in.ApplicantAddress); err == nil && normalized != "" {
			in.ApplicantAddress = normalized
		}
	}

	app := &models.GrantApplication{
		ApplicationType:       in.ApplicationType,
		ApplicantFirstName:    in.ApplicantFirstName,
		ApplicantLastName:     in.ApplicantLastName,
		ApplicantAddress:      in.ApplicantAddress,
		ApplicantEmail:        strings.ToLower(strings.TrimSpace(in.ApplicantEmail)),
		ApplicantPhone:        in.ApplicantPhone,
		ApplicantBirthday:     in.ApplicantBirthday,
		ApplicantStory:        in.ApplicantStory,
		SubmitterFirstName:    in.SubmitterFirstName,
		SubmitterLastName:     in.SubmitterLastName,
		SubmitterAddress:      in.SubmitterAddress,
		SubmitterEmail:        in.SubmitterEmail,
		SubmitterPhone:        in.SubmitterPhone,
		SubmitterRelationship: in.SubmitterRelationship,
	}

	tx, err := s.repo.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	if err := s.repo.CreateTx(ctx, tx, app); err != nil {
		return nil, err
	}

	admins, err := s.realtors.ListAdminsTx(ctx, tx)
	if err != nil {
		return nil, err
	}
	applicantName := app.ApplicantFirstName + " " + app.ApplicantLastName
	adminSubject, adminHTML := mailer.AdminNewApplication(applicantName, s.frontendURL)
	for _, admin := range admins {
		if err := s.notifier.EmitTx(ctx, tx, &models.Notification{
			RealtorID: admin.ID,
			Type:      models.NotifGrantApplication,
			Subject:   "New Grant Application",
			Message:   applicantName + " has submitted a grant application.",
			ActionURL: "/admin/applications",
		}); err != nil {
			return nil, err
		}
		if err := s.notifier.EmailTx(ctx, tx, admin.Email, adminSubject, adminHTML); err != nil {
			return nil, err
		}
	}

	subject, html := mailer.ApplicationConfirmation(app.ApplicantFirstName)
	if err := s.notifier.EmailTx(ctx, tx, app.ApplicantEmail, subject, html); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return app, nil
}

func (s *service) List(ctx context.Context, actorID uuid.UUID, status string) ([]*models.GrantApplication, error) {
	if err := s.requireAdmin(ctx, actorID); err != nil {
		return nil, err
	}
	return s.repo.List(ctx, status)
}

func (s *service) Get(ctx context.Context, actorID, applicationID uuid.UUID) (*models.GrantApplication, error) {
	if err := s.requireAdmin(ctx, actorID); err != nil {
		return nil, err
	}
	app, err := s.repo.GetByID(ctx, applicationID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return app, nil
}

// Review records an admin's decision on an application.
func (s *service) Review(ctx context.Context, actorID, applicationID uuid.UUID, status, notes string) (*models.GrantApplication, error) {
	if err := s.requireAdmin(ctx, actorID); err != nil {
		return nil, err
	}
	switch status {
	case models.GrantStatusUnderReview, models.GrantStatusApproved, models.GrantStatusDenied:
	default:
		return nil, ErrBadStatus
	}
	ok, err := s.repo.SetReview(ctx, applicationID, status, notes, actorID)
	if err != nil {
		return nil, err
	}
	if !ok {
		// The guarded update skips applications already approved or denied;
		// tell those apart from ids that never existed.
		if _, err := s.repo.GetByID(ctx, applicationID); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, ErrNotFound
			}
			return nil, err
		}
		return nil, ErrAlreadyDecided
	}
	return s.repo.GetByID(ctx, applicationID)
}

func (s *service) requireAdmin(ctx context.Context, actorID uuid.UUID) error {
	actor, err := s.realtors.GetByID(ctx, actorID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrForbidden
		}
		return err
	}
	if !actor.IsAdmin {
		return ErrForbidden
	}
	return nil
}

package realtor

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	pgx "github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"golang.org/x/crypto/bcrypt"

	"github.com/localsupportslocal/backend/internal/mailer"
	"github.com/localsupportslocal/backend/internal/models"
)

var (
	// ErrDuplicateEmail is returned when registering with an email that already exists.
	ErrDuplicateEmail = errors.New("email already registered")
	// ErrInvalidCredentials collapses unknown email, wrong password and
	// inactive account into one answer so login failures leak nothing.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrNegativeRate rejects pledge rates below zero.
	ErrNegativeRate = errors.New("pledge rate must be non-negative")
	// ErrMissingFields is returned when a required registration field is empty.
	ErrMissingFields = errors.New("missing required fields")
	// ErrNotFound is returned when the referenced realtor does not exist.
	ErrNotFound = errors.New("realtor not found")
)

// Store is the repository surface the service needs.
type Store interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	CreateTx(ctx context.Context, tx pgx.Tx, realtor *models.Realtor) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Realtor, error)
	GetByEmail(ctx context.Context, email string) (*models.Realtor, error)
	ListAdminsTx(ctx context.Context, tx pgx.Tx) ([]*models.Realtor, error)
	UpdateProfile(ctx context.Context, realtor *models.Realtor) error
	SetHeadshotURL(ctx context.Context, id uuid.UUID, url string) error
}

// Notifier is the notification emitter surface used during registration.
type Notifier interface {
	EmitTx(ctx context.Context, tx pgx.Tx, n *models.Notification) error
	EmailTx(ctx context.Context, tx pgx.Tx, to, subject, html string) error
}

// RegisterInput carries the registration form. Rate is in cents per closed
// transaction.
type RegisterInput struct {
	Email           string
	Password        string
	FirstName       string
	LastName        string
	Phone           string
	Brokerage       string
	LicenseNumber   string
	Bio             string
	PledgeRateCents int64
}

// ProfilePatch whitelists the mutable profile fields. Nil means unchanged.
type ProfilePatch struct {
	FirstName       *string
	LastName        *string
	Phone           *string
	Brokerage       *string
	LicenseNumber   *string
	Bio             *string
	PledgeRateCents *int64
}

type Service interface {
	Register(ctx context.Context, in RegisterInput) (*models.Realtor, string, error)
	Authenticate(ctx context.Context, email, password string) (*models.Realtor, string, error)
	VerifyToken(ctx context.Context, token string) (uuid.UUID, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Realtor, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, patch ProfilePatch) (*models.Realtor, error)
	SetHeadshot(ctx context.Context, id uuid.UUID, url string) (*models.Realtor, error)
	CreateApproved(ctx context.Context, in RegisterInput, admin bool) (*models.Realtor, error)
}

type service struct {
	repo        Store
	notifier    Notifier
	secret      []byte
	frontendURL string
}

// NewService creates the identity service. secret signs the HS256 tokens;
// frontendURL is the base for email buttons and notification links.
func NewService(repo Store, notifier Notifier, secret []byte, frontendURL string) Service {
	return &service{repo: repo, notifier: notifier, secret: secret, frontendURL: frontendURL}
}

var _ Service = (*service)(nil)

// NormalizeEmail lowercases and trims an address so uniqueness is
// case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates a pending account and, in the same transaction, the
// welcome notification plus a broadcast to every approved admin. Emails ride
// the queue and are delivered after commit.
func (s *service) Register(ctx context.Context, in RegisterInput) (*models.Realtor, string, error) {
	in.Email = NormalizeEmail(in.Email)
	if in.Email == "" || in.Password == "" || in.FirstName == "" || in.LastName == "" {
		return nil, "", ErrMissingFields
	}
	if in.PledgeRateCents < 0 {
		return nil, "", ErrNegativeRate
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", err
	}

	realtor := &models.Realtor{
		Email:           in.Email,
		PasswordHash:    string(hash),
		FirstName:       in.FirstName,
		LastName:        in.LastName,
		Phone:           in.Phone,
		Brokerage:       in.Brokerage,
		LicenseNumber:   in.LicenseNumber,
		Bio:             in.Bio,
		PledgeRateCents: in.PledgeRateCents,
		IsActive:        true,
		ApprovalStatus:  models.ApprovalPending,
	}

	tx, err := s.repo.Begin(ctx)
	if err != nil {
		return nil, "", err
	}
	defer tx.Rollback(ctx)

	if err := s.repo.CreateTx(ctx, tx, realtor); err != nil {
		if isUniqueViolation(err) {
			return nil, "", ErrDuplicateEmail
		}
		return nil, "", err
	}

	if err := s.notifier.EmitTx(ctx, tx, &models.Notification{
		RealtorID: realtor.ID,
		Type:      models.NotifWelcome,
		Subject:   "Welcome to Local Supports Local",
		Message:   "Thanks for registering! Your account is pending approval by our admin team.",
		EmailSent: true,
	}); err != nil {
		return nil, "", err
	}
	subject, html := mailer.Welcome(realtor.FirstName, s.frontendURL)
	if err := s.notifier.EmailTx(ctx, tx, realtor.Email, subject, html); err != nil {
		return nil, "", err
	}

	admins, err := s.repo.ListAdminsTx(ctx, tx)
	if err != nil {
		return nil, "", err
	}
	for _, admin := range admins {
		if err := s.notifier.EmitTx(ctx, tx, &models.Notification{
			RealtorID: admin.ID,
			Type:      models.NotifRealtorRegistration,
			Subject:   "New Realtor Registration",
			Message:   "New realtor registration: " + realtor.FullName() + " (" + realtor.Email + ") - requires approval.",
			ActionURL: "/admin/realtors",
			EmailSent: true,
		}); err != nil {
			return nil, "", err
		}
		adminSubject, adminHTML := mailer.AdminNewRegistration(realtor.FullName(), realtor.Email, s.frontendURL)
		if err := s.notifier.EmailTx(ctx, tx, admin.Email, adminSubject, adminHTML); err != nil {
			return nil, "", err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, "", err
	}

	token, err := s.issueToken(realtor.ID)
	if err != nil {
		return nil, "", err
	}
	return realtor, token, nil
}

func (s *service) Authenticate(ctx context.Context, email, password string) (*models.Realtor, string, error) {
	realtor, err := s.repo.GetByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(realtor.PasswordHash), []byte(password)); err != nil {
		return nil, "", ErrInvalidCredentials
	}
	if !realtor.IsActive {
		return nil, "", ErrInvalidCredentials
	}
	token, err := s.issueToken(realtor.ID)
	if err != nil {
		return nil, "", err
	}
	return realtor, token, nil
}

func (s *service) issueToken(realtorID uuid.UUID) (string, error) {
	claims := jwt.RegisteredClaims{
		Subject:   realtorID.String(),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(24 * time.Hour)),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return tok.SignedString(s.secret)
}

func (s *service) VerifyToken(ctx context.Context, token string) (uuid.UUID, error) {
	tok, err := jwt.ParseWithClaims(token, &jwt.RegisteredClaims{}, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	})
	if err != nil {
		return uuid.Nil, err
	}
	claims, ok := tok.Claims.(*jwt.RegisteredClaims)
	if !ok || !tok.Valid {
		return uuid.Nil, errors.New("invalid token")
	}
	return uuid.Parse(claims.Subject)
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Realtor, error) {
	realtor, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return realtor, nil
}

// UpdateProfile applies the whitelisted fields. Rate changes affect future
// period submissions only; stored obligations keep the rate they were
// computed with.
func (s *service) UpdateProfile(ctx context.Context, id uuid.UUID, patch ProfilePatch) (*models.Realtor, error) {
	realtor, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if patch.FirstName != nil {
		realtor.FirstName = *patch.FirstName
	}
	if patch.LastName != nil {
		realtor.LastName = *patch.LastName
	}
	if patch.Phone != nil {
		realtor.Phone = *patch.Phone
	}
	if patch.Brokerage != nil {
		realtor.Brokerage = *patch.Brokerage
	}
	if patch.LicenseNumber != nil {
		realtor.LicenseNumber = *patch.LicenseNumber
	}
	if patch.Bio != nil {
		realtor.Bio = *patch.Bio
	}
	if patch.PledgeRateCents != nil {
		if *patch.PledgeRateCents < 0 {
			return nil, ErrNegativeRate
		}
		realtor.PledgeRateCents = *patch.PledgeRateCents
	}
	if err := s.repo.UpdateProfile(ctx, realtor); err != nil {
		return nil, err
	}
	return realtor, nil
}

func (s *service) SetHeadshot(ctx context.Context, id uuid.UUID, url string) (*models.Realtor, error) {
	realtor, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.repo.SetHeadshotURL(ctx, id, url); err != nil {
		return nil, err
	}
	realtor.HeadshotURL = url
	return realtor, nil
}

// CreateApproved is the bootstrap path: the account skips the pending state
// entirely. It never runs through the public API; cmd/createadmin is its only
// caller.
func (s *service) CreateApproved(ctx context.Context, in RegisterInput, admin bool) (*models.Realtor, error) {
	in.Email = NormalizeEmail(in.Email)
	if in.Email == "" || in.Password == "" || in.FirstName == "" || in.LastName == "" {
		return nil, ErrMissingFields
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	realtor := &models.Realtor{
		Email:           in.Email,
		PasswordHash:    string(hash),
		FirstName:       in.FirstName,
		LastName:        in.LastName,
		PledgeRateCents: in.PledgeRateCents,
		IsActive:        true,
		IsAdmin:         admin,
		IsApproved:      true,
		ApprovalStatus:  models.ApprovalApproved,
		ApprovedAt:      &now,
	}
	tx, err := s.repo.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)
	if err := s.repo.CreateTx(ctx, tx, realtor); err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateEmail
		}
		return nil, err
	}
	return realtor, tx.Commit(ctx)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

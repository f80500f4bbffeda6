package realtor

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	pgx "github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/localsupportslocal/backend/internal/models"
)

// ---------------------------------------------------------------------------
// Mocks
// ---------------------------------------------------------------------------

// --- noopTx satisfies pgx.Tx for test use; only Commit/Rollback are called. ---

type noopTx struct{}

func (noopTx) Begin(context.Context) (pgx.Tx, error) { return noopTx{}, nil }
func (noopTx) Commit(context.Context) error          { return nil }
func (noopTx) Rollback(context.Context) error        { return nil }
func (noopTx) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	return pgconn.NewCommandTag(""), nil
}
func (noopTx) Query(context.Context, string, ...any) (pgx.Rows, error) { return nil, nil }
func (noopTx) QueryRow(context.Context, string, ...any) pgx.Row        { return nil }
func (noopTx) CopyFrom(context.Context, pgx.Identifier, []string, pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (noopTx) SendBatch(context.Context, *pgx.Batch) pgx.BatchResults { return nil }
func (noopTx) LargeObjects() pgx.LargeObjects                         { return pgx.LargeObjects{} }
func (noopTx) Prepare(context.Context, string, string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (noopTx) Conn() *pgx.Conn { return nil }

// --- realtor store mock ---

type mockStore struct {
	mu       sync.Mutex
	realtors map[uuid.UUID]*models.Realtor
}

func newMockStore(realtors ...*models.Realtor) *mockStore {
	m := &mockStore{realtors: make(map[uuid.UUID]*models.Realtor)}
	for _, r := range realtors {
		cp := *r
		m.realtors[r.ID] = &cp
	}
	return m
}

func (m *mockStore) Begin(context.Context) (pgx.Tx, error) { return noopTx{}, nil }

func (m *mockStore) CreateTx(_ context.Context, _ pgx.Tx, realtor *models.Realtor) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.realtors {
		if existing.Email == realtor.Email {
			return &pgconn.PgError{Code: "23505", ConstraintName: "realtors_email_key"}
		}
	}
	realtor.ID = uuid.New()
	realtor.CreatedAt = time.Now()
	realtor.UpdatedAt = realtor.CreatedAt
	cp := *realtor
	m.realtors[realtor.ID] = &cp
	return nil
}

func (m *mockStore) GetByID(_ context.Context, id uuid.UUID) (*models.Realtor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.realtors[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *r
	return &cp, nil
}

func (m *mockStore) GetByEmail(_ context.Context, email string) (*models.Realtor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.realtors {
		if r.Email == email {
			cp := *r
			return &cp, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (m *mockStore) ListAdminsTx(_ context.Context, _ pgx.Tx) ([]*models.Realtor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Realtor
	for _, r := range m.realtors {
		if r.IsAdmin && r.ApprovalStatus == models.ApprovalApproved {
			cp := *r
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *mockStore) UpdateProfile(_ context.Context, realtor *models.Realtor) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *realtor
	m.realtors[realtor.ID] = &cp
	return nil
}

func (m *mockStore) SetHeadshotURL(_ context.Context, id uuid.UUID, url string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.realtors[id]; ok {
		r.HeadshotURL = url
	}
	return nil
}

// --- notifier mock ---

type mockNotifier struct {
	mu            sync.Mutex
	notifications []*models.Notification
	emails        []string
}

func (m *mockNotifier) EmitTx(_ context.Context, _ pgx.Tx, n *models.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *n
	m.notifications = append(m.notifications, &cp)
	return nil
}

func (m *mockNotifier) EmailTx(_ context.Context, _ pgx.Tx, to, _, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.emails = append(m.emails, to)
	return nil
}

func (m *mockNotifier) byType(typ string) []*models.Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Notification
	for _, n := range m.notifications {
		if n.Type == typ {
			out = append(out, n)
		}
	}
	return out
}

// ---------------------------------------------------------------------------
// Test helpers
// ---------------------------------------------------------------------------

var testSecret = []byte("test-secret")

func validInput() RegisterInput {
	return RegisterInput{
		Email:           "Agent@Example.com",
		Password:        "s3cure-password",
		FirstName:       "Pat",
		LastName:        "Realtor",
		PledgeRateCents: 10000,
	}
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestRegister_CreatesPendingAccountAndNotifies(t *testing.T) {
	adminID := uuid.New()
	store := newMockStore(&models.Realtor{
		ID:             adminID,
		Email:          "admin@example.com",
		IsActive:       true,
		IsAdmin:        true,
		ApprovalStatus: models.ApprovalApproved,
	})
	notifier := &mockNotifier{}
	svc := NewService(store, notifier, testSecret, "http://localhost:3000")

	account, token, err := svc.Register(context.Background(), validInput())
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if account.Email != "agent@example.com" {
		t.Errorf("email not normalized: %q", account.Email)
	}
	if account.ApprovalStatus != models.ApprovalPending {
		t.Errorf("status: got %q, want pending", account.ApprovalStatus)
	}
	if account.PasswordHash == "" || strings.Contains(account.PasswordHash, "s3cure") {
		t.Error("password must be stored hashed")
	}
	if token == "" {
		t.Error("registration should return a token")
	}

	welcome := notifier.byType(models.NotifWelcome)
	if len(welcome) != 1 || welcome[0].RealtorID != account.ID {
		t.Errorf("welcome notification: got %+v", welcome)
	}
	broadcast := notifier.byType(models.NotifRealtorRegistration)
	if len(broadcast) != 1 || broadcast[0].RealtorID != adminID {
		t.Errorf("admin broadcast: got %+v", broadcast)
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	store := newMockStore()
	svc := NewService(store, &mockNotifier{}, testSecret, "http://localhost:3000")

	if _, _, err := svc.Register(context.Background(), validInput()); err != nil {
		t.Fatalf("first Register: %v", err)
	}
	// Same address with different casing still collides.
	in := validInput()
	in.Email = "AGENT@example.com"
	if _, _, err := svc.Register(context.Background(), in); err != ErrDuplicateEmail {
		t.Fatalf("got %v, want ErrDuplicateEmail", err)
	}
}

func TestRegister_Validation(t *testing.T) {
	svc := NewService(newMockStore(), &mockNotifier{}, testSecret, "http://localhost:3000")
	ctx := context.Background()

	missing := validInput()
	missing.FirstName = ""
	if _, _, err := svc.Register(ctx, missing); err != ErrMissingFields {
		t.Errorf("missing field: got %v, want ErrMissingFields", err)
	}

	negative := validInput()
	negative.PledgeRateCents = -1
	if _, _, err := svc.Register(ctx, negative); err != ErrNegativeRate {
		t.Errorf("negative rate: got %v, want ErrNegativeRate", err)
	}
}

func TestAuthenticate_CollapsesFailures(t *testing.T) {
	store := newMockStore()
	svc := NewService(store, &mockNotifier{}, testSecret, "http://localhost:3000")
	ctx := context.Background()

	if _, _, err := svc.Register(ctx, validInput()); err != nil {
		t.Fatalf("Register: %v", err)
	}

	if _, _, err := svc.Authenticate(ctx, "agent@example.com", "s3cure-password"); err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if _, _, err := svc.Authenticate(ctx, "agent@example.com", "wrong"); err != ErrInvalidCredentials {
		t.Errorf("wrong password: got %v, want ErrInvalidCredentials", err)
	}
	if _, _, err := svc.Authenticate(ctx, "nobody@example.com", "whatever"); err != ErrInvalidCredentials {
		t.Errorf("unknown email: got %v, want ErrInvalidCredentials", err)
	}

	// Deactivated accounts fail the same way.
	for _, r := range store.realtors {
		r.IsActive = false
	}
	if _, _, err := svc.Authenticate(ctx, "agent@example.com", "s3cure-password"); err != ErrInvalidCredentials {
		t.Errorf("inactive account: got %v, want ErrInvalidCredentials", err)
	}
}

func TestTokenRoundTrip(t *testing.T) {
	svc := NewService(newMockStore(), &mockNotifier{}, testSecret, "http://localhost:3000")
	ctx := context.Background()

	account, token, err := svc.Register(ctx, validInput())
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	id, err := svc.VerifyToken(ctx, token)
	if err != nil {
		t.Fatalf("VerifyToken: %v", err)
	}
	if id != account.ID {
		t.Errorf("token subject: got %s, want %s", id, account.ID)
	}

	if _, err := svc.VerifyToken(ctx, "not-a-token"); err == nil {
		t.Error("garbage token should not verify")
	}

	other := NewService(newMockStore(), &mockNotifier{}, []byte("different-secret"), "http://localhost:3000")
	if _, err := other.VerifyToken(ctx, token); err == nil {
		t.Error("token signed with another secret should not verify")
	}
}

func TestUpdateProfile_Whitelist(t *testing.T) {
	store := newMockStore()
	svc := NewService(store, &mockNotifier{}, testSecret, "http://localhost:3000")
	ctx := context.Background()

	account, _, err := svc.Register(ctx, validInput())
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	phone := "555-0100"
	rate := int64(20000)
	updated, err := svc.UpdateProfile(ctx, account.ID, ProfilePatch{Phone: &phone, PledgeRateCents: &rate})
	if err != nil {
		t.Fatalf("UpdateProfile: %v", err)
	}
	if updated.Phone != "555-0100" || updated.PledgeRateCents != 20000 {
		t.Errorf("patch not applied: %+v", updated)
	}
	if updated.FirstName != "Pat" {
		t.Errorf("untouched field changed: %q", updated.FirstName)
	}
	if updated.ApprovalStatus != models.ApprovalPending {
		t.Error("profile update must not change admission state")
	}

	bad := int64(-5)
	if _, err := svc.UpdateProfile(ctx, account.ID, ProfilePatch{PledgeRateCents: &bad}); err != ErrNegativeRate {
		t.Errorf("negative rate: got %v, want ErrNegativeRate", err)
	}
}

func TestCreateApproved_SkipsPending(t *testing.T) {
	store := newMockStore()
	svc := NewService(store, &mockNotifier{}, testSecret, "http://localhost:3000")

	account, err := svc.CreateApproved(context.Background(), validInput(), true)
	if err != nil {
		t.Fatalf("CreateApproved: %v", err)
	}
	if account.ApprovalStatus != models.ApprovalApproved || !account.IsApproved || !account.IsAdmin {
		t.Errorf("bootstrap account state: %+v", account)
	}
	if account.ApprovedAt == nil {
		t.Error("bootstrap account should carry an approval timestamp")
	}
}

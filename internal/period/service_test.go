package period

import (
	"context"
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

// --- period store mock ---

type periodKey struct {
	realtor     uuid.UUID
	month, year int
}

type mockStore struct {
	mu      sync.Mutex
	reports map[periodKey]*models.PeriodReport
}

func newMockStore() *mockStore {
	return &mockStore{reports: make(map[periodKey]*models.PeriodReport)}
}

func (m *mockStore) Begin(context.Context) (pgx.Tx, error) { return noopTx{}, nil }

func (m *mockStore) CreateTx(_ context.Context, _ pgx.Tx, report *models.PeriodReport) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := periodKey{report.RealtorID, report.Month, report.Year}
	if _, exists := m.reports[key]; exists {
		return &pgconn.PgError{Code: "23505", ConstraintName: "period_reports_realtor_month_year_key"}
	}
	report.ID = uuid.New()
	report.SubmittedAt = time.Now()
	cp := *report
	m.reports[key] = &cp
	return nil
}

func (m *mockStore) GetByID(_ context.Context, id uuid.UUID) (*models.PeriodReport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.reports {
		if p.ID == id {
			cp := *p
			return &cp, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (m *mockStore) FindByPeriod(_ context.Context, realtorID uuid.UUID, month, year int) (*models.PeriodReport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.reports[periodKey{realtorID, month, year}]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, pgx.ErrNoRows
}

func (m *mockStore) History(_ context.Context, realtorID uuid.UUID) ([]*models.PeriodReport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.PeriodReport
	for _, p := range m.reports {
		if p.RealtorID == realtorID {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *mockStore) ListPending(_ context.Context, realtorID uuid.UUID) ([]*models.PeriodReport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.PeriodReport
	for _, p := range m.reports {
		if p.RealtorID == realtorID && p.Status == models.PeriodStatusPending {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *mockStore) get(realtorID uuid.UUID, month, year int) *models.PeriodReport {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reports[periodKey{realtorID, month, year}]
}

// --- realtor store mock ---

type mockRealtors struct {
	realtors map[uuid.UUID]*models.Realtor
}

func (m *mockRealtors) GetByID(_ context.Context, id uuid.UUID) (*models.Realtor, error) {
	r, ok := m.realtors[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *r
	return &cp, nil
}

func (m *mockRealtors) GetByIDTx(ctx context.Context, _ pgx.Tx, id uuid.UUID) (*models.Realtor, error) {
	return m.GetByID(ctx, id)
}

// --- notifier mock ---

type sentEmail struct {
	to, subject string
}

type mockNotifier struct {
	mu            sync.Mutex
	notifications []*models.Notification
	emails        []sentEmail
}

func (m *mockNotifier) EmitTx(_ context.Context, _ pgx.Tx, n *models.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *n
	m.notifications = append(m.notifications, &cp)
	return nil
}

func (m *mockNotifier) EmailTx(_ context.Context, _ pgx.Tx, to, subject, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.emails = append(m.emails, sentEmail{to: to, subject: subject})
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

func newTestService(rateCents int64, now time.Time) (*service, *mockStore, *mockNotifier, uuid.UUID) {
	realtorID := uuid.New()
	store := newMockStore()
	realtors := &mockRealtors{realtors: map[uuid.UUID]*models.Realtor{
		realtorID: {
			ID:              realtorID,
			Email:           "agent@example.com",
			FirstName:       "Pat",
			PledgeRateCents: rateCents,
			CreatedAt:       now.AddDate(-1, 0, 0),
		},
	}}
	notifier := &mockNotifier{}
	svc := NewService(store, realtors, notifier, "http://localhost:3000").(*service)
	svc.now = func() time.Time { return now }
	return svc, store, notifier, realtorID
}

func intPtr(v int) *int { return &v }

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestSubmit_ComputesObligationAndNotifies(t *testing.T) {
	now := time.Date(2024, time.April, 15, 12, 0, 0, 0, time.UTC)
	svc, store, notifier, realtorID := newTestService(10000, now)

	report, err := svc.Submit(context.Background(), realtorID, SubmitInput{
		Month: intPtr(3), Year: intPtr(2024), ClosedCount: 5,
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if report.ObligationCents != 50000 {
		t.Errorf("obligation: got %d, want 50000", report.ObligationCents)
	}
	if report.Status != models.PeriodStatusPending {
		t.Errorf("status: got %q, want pending", report.Status)
	}
	if stored := store.get(realtorID, 3, 2024); stored == nil || stored.ClosedCount != 5 {
		t.Error("report not persisted with count 5")
	}

	requests := notifier.byType(models.NotifPaymentRequest)
	if len(requests) != 1 {
		t.Fatalf("payment request notifications: got %d, want 1", len(requests))
	}
	if requests[0].RealtorID != realtorID {
		t.Error("payment request should go to the submitting realtor")
	}
	if len(notifier.emails) != 1 || notifier.emails[0].to != "agent@example.com" {
		t.Errorf("expected one email to the realtor, got %v", notifier.emails)
	}
}

func TestSubmit_DuplicatePeriodLeavesOriginalIntact(t *testing.T) {
	now := time.Date(2024, time.April, 15, 12, 0, 0, 0, time.UTC)
	svc, store, _, realtorID := newTestService(10000, now)

	in := SubmitInput{Month: intPtr(3), Year: intPtr(2024), ClosedCount: 5}
	if _, err := svc.Submit(context.Background(), realtorID, in); err != nil {
		t.Fatalf("first Submit: %v", err)
	}

	in.ClosedCount = 9
	if _, err := svc.Submit(context.Background(), realtorID, in); err != ErrDuplicatePeriod {
		t.Fatalf("second Submit: got %v, want ErrDuplicatePeriod", err)
	}

	stored := store.get(realtorID, 3, 2024)
	if stored.ClosedCount != 5 || stored.ObligationCents != 50000 {
		t.Errorf("original report changed: count=%d obligation=%d", stored.ClosedCount, stored.ObligationCents)
	}
}

func TestSubmit_ZeroObligationSettlesImmediately(t *testing.T) {
	now := time.Date(2024, time.April, 15, 12, 0, 0, 0, time.UTC)
	svc, _, notifier, realtorID := newTestService(10000, now)

	report, err := svc.Submit(context.Background(), realtorID, SubmitInput{
		Month: intPtr(3), Year: intPtr(2024), ClosedCount: 0,
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if report.Status != models.PeriodStatusSettled {
		t.Errorf("status: got %q, want settled", report.Status)
	}
	if len(notifier.notifications) != 0 {
		t.Errorf("zero obligation should emit no payment request, got %d notifications", len(notifier.notifications))
	}
}

func TestSubmit_DefaultsToPreviousMonth(t *testing.T) {
	now := time.Date(2024, time.April, 15, 12, 0, 0, 0, time.UTC)
	svc, store, _, realtorID := newTestService(10000, now)

	if _, err := svc.Submit(context.Background(), realtorID, SubmitInput{ClosedCount: 2}); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if store.get(realtorID, 3, 2024) == nil {
		t.Error("default period should be March 2024")
	}
}

func TestSubmit_JanuaryDefaultsToPriorDecember(t *testing.T) {
	now := time.Date(2025, time.January, 3, 9, 0, 0, 0, time.UTC)
	svc, store, _, realtorID := newTestService(10000, now)

	if _, err := svc.Submit(context.Background(), realtorID, SubmitInput{ClosedCount: 1}); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if store.get(realtorID, 12, 2024) == nil {
		t.Error("January submission should default to December of the prior year")
	}
}

func TestSubmit_Validation(t *testing.T) {
	now := time.Date(2024, time.April, 15, 12, 0, 0, 0, time.UTC)
	svc, _, _, realtorID := newTestService(10000, now)
	ctx := context.Background()

	cases := []struct {
		name string
		in   SubmitInput
		want error
	}{
		{"month too high", SubmitInput{Month: intPtr(13), Year: intPtr(2024), ClosedCount: 1}, ErrBadMonth},
		{"month too low", SubmitInput{Month: intPtr(0), Year: intPtr(2024), ClosedCount: 1}, ErrBadMonth},
		{"year before floor", SubmitInput{Month: intPtr(5), Year: intPtr(2019), ClosedCount: 1}, ErrBadYear},
		{"year in future", SubmitInput{Month: intPtr(5), Year: intPtr(2025), ClosedCount: 1}, ErrBadYear},
		{"negative count", SubmitInput{Month: intPtr(3), Year: intPtr(2024), ClosedCount: -1}, ErrNegativeCount},
	}
	for _, tc := range cases {
		if _, err := svc.Submit(ctx, realtorID, tc.in); err != tc.want {
			t.Errorf("%s: got %v, want %v", tc.name, err, tc.want)
		}
	}
}

func TestSubmit_RateChangeDoesNotAffectPastReports(t *testing.T) {
	now := time.Date(2024, time.April, 15, 12, 0, 0, 0, time.UTC)
	svc, store, _, realtorID := newTestService(10000, now)
	realtors := svc.realtors.(*mockRealtors)

	if _, err := svc.Submit(context.Background(), realtorID, SubmitInput{
		Month: intPtr(2), Year: intPtr(2024), ClosedCount: 3,
	}); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	realtors.realtors[realtorID].PledgeRateCents = 25000

	if _, err := svc.Submit(context.Background(), realtorID, SubmitInput{
		Month: intPtr(3), Year: intPtr(2024), ClosedCount: 3,
	}); err != nil {
		t.Fatalf("Submit after rate change: %v", err)
	}

	if got := store.get(realtorID, 2, 2024).ObligationCents; got != 30000 {
		t.Errorf("February obligation changed: got %d, want 30000", got)
	}
	if got := store.get(realtorID, 3, 2024).ObligationCents; got != 75000 {
		t.Errorf("March obligation: got %d, want 75000", got)
	}
}

func TestPending_SuggestsUnreportedPreviousMonth(t *testing.T) {
	now := time.Date(2024, time.April, 15, 12, 0, 0, 0, time.UTC)
	svc, _, _, realtorID := newTestService(10000, now)

	_, unreported, err := svc.Pending(context.Background(), realtorID)
	if err != nil {
		t.Fatalf("Pending: %v", err)
	}
	if unreported == nil || unreported.Month != 3 || unreported.Year != 2024 {
		t.Fatalf("unreported period: got %+v, want March 2024", unreported)
	}
	if unreported.Label() != "March 2024" {
		t.Errorf("label: got %q", unreported.Label())
	}
}

func TestPending_NoSuggestionForNewAccounts(t *testing.T) {
	now := time.Date(2024, time.April, 15, 12, 0, 0, 0, time.UTC)
	svc, _, _, realtorID := newTestService(10000, now)
	realtors := svc.realtors.(*mockRealtors)
	// Account created mid-April; March predates it.
	realtors.realtors[realtorID].CreatedAt = time.Date(2024, time.April, 2, 0, 0, 0, 0, time.UTC)

	_, unreported, err := svc.Pending(context.Background(), realtorID)
	if err != nil {
		t.Fatalf("Pending: %v", err)
	}
	if unreported != nil {
		t.Errorf("no suggestion expected for an account newer than the period, got %+v", unreported)
	}
}

func TestPending_NoSuggestionWhenAlreadyReported(t *testing.T) {
	now := time.Date(2024, time.April, 15, 12, 0, 0, 0, time.UTC)
	svc, _, _, realtorID := newTestService(10000, now)

	if _, err := svc.Submit(context.Background(), realtorID, SubmitInput{ClosedCount: 2}); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	_, unreported, err := svc.Pending(context.Background(), realtorID)
	if err != nil {
		t.Fatalf("Pending: %v", err)
	}
	if unreported != nil {
		t.Errorf("no suggestion expected once the month is reported, got %+v", unreported)
	}
}

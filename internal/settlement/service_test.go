package settlement

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

// --- settlement store mock ---

type mockStore struct {
	mu          sync.Mutex
	settlements map[uuid.UUID]*models.Settlement // keyed by period id
	periods     *mockPeriods                     // joined for stats
}

func newMockStore() *mockStore {
	return &mockStore{settlements: make(map[uuid.UUID]*models.Settlement)}
}

func (m *mockStore) Begin(context.Context) (pgx.Tx, error) { return noopTx{}, nil }

func (m *mockStore) CreateTx(_ context.Context, _ pgx.Tx, s *models.Settlement) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.settlements[s.PeriodID]; exists {
		return &pgconn.PgError{Code: "23505", ConstraintName: "settlements_period_id_key"}
	}
	s.ID = uuid.New()
	s.PaidAt = time.Now()
	s.CreatedAt = s.PaidAt
	cp := *s
	m.settlements[s.PeriodID] = &cp
	return nil
}

func (m *mockStore) ExistsForPeriodTx(_ context.Context, _ pgx.Tx, periodID uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.settlements[periodID]
	return ok, nil
}

func (m *mockStore) ListByRealtor(_ context.Context, realtorID uuid.UUID) ([]HistoryEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []HistoryEntry
	for _, s := range m.settlements {
		if s.RealtorID == realtorID {
			cp := *s
			out = append(out, HistoryEntry{Settlement: &cp})
		}
	}
	return out, nil
}

func (m *mockStore) StatsByRealtor(_ context.Context, realtorID uuid.UUID, year int) (*Stats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.periods.mu.Lock()
	defer m.periods.mu.Unlock()
	stats := &Stats{}
	monthly := make(map[int]int64)
	for periodID, s := range m.settlements {
		if s.RealtorID != realtorID || s.Status != models.SettlementCompleted {
			continue
		}
		p, ok := m.periods.reports[periodID]
		if !ok {
			continue
		}
		stats.TotalCents += s.AmountCents
		stats.Count++
		if p.Year == year {
			stats.YearToDateCents += s.AmountCents
			monthly[p.Month] += s.AmountCents
		}
	}
	for month := 12; month >= 1; month-- {
		if cents, ok := monthly[month]; ok {
			stats.Monthly = append(stats.Monthly, MonthlyTotal{Month: month, Year: year, AmountCents: cents})
		}
	}
	return stats, nil
}

func (m *mockStore) SetShared(_ context.Context, realtorID, settlementID uuid.UUID, shared bool) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.settlements {
		if s.ID == settlementID && s.RealtorID == realtorID {
			s.Shared = shared
			return true, nil
		}
	}
	return false, nil
}

// --- period store mock ---

type mockPeriods struct {
	mu      sync.Mutex
	reports map[uuid.UUID]*models.PeriodReport
}

func (m *mockPeriods) GetByIDTx(_ context.Context, _ pgx.Tx, id uuid.UUID) (*models.PeriodReport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.reports[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *p
	return &cp, nil
}

func (m *mockPeriods) SetSettledTx(_ context.Context, _ pgx.Tx, id uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.reports[id]
	if !ok || p.Status != models.PeriodStatusPending {
		return false, nil
	}
	p.Status = models.PeriodStatusSettled
	return true, nil
}

func (m *mockPeriods) ListPending(_ context.Context, realtorID uuid.UUID) ([]*models.PeriodReport, error) {
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

func (m *mockPeriods) status(id uuid.UUID) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reports[id].Status
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

// ---------------------------------------------------------------------------
// Test helpers
// ---------------------------------------------------------------------------

func newTestService(obligationCents int64) (Service, *mockStore, *mockPeriods, *mockNotifier, uuid.UUID, uuid.UUID) {
	realtorID := uuid.New()
	periodID := uuid.New()

	periods := &mockPeriods{reports: map[uuid.UUID]*models.PeriodReport{
		periodID: {
			ID:              periodID,
			RealtorID:       realtorID,
			Month:           3,
			Year:            2024,
			ClosedCount:     5,
			ObligationCents: obligationCents,
			Status:          models.PeriodStatusPending,
		},
	}}
	realtors := &mockRealtors{realtors: map[uuid.UUID]*models.Realtor{
		realtorID: {ID: realtorID, Email: "agent@example.com", FirstName: "Pat"},
	}}
	store := newMockStore()
	store.periods = periods
	notifier := &mockNotifier{}
	svc := NewService(store, periods, realtors, notifier, "http://localhost:3000")
	return svc, store, periods, notifier, realtorID, periodID
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestRecord_CopiesObligationAndSettlesPeriod(t *testing.T) {
	svc, store, periods, notifier, realtorID, periodID := newTestService(50000)

	settlement, err := svc.Record(context.Background(), realtorID, periodID, "check", "chk-100")
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if settlement.AmountCents != 50000 {
		t.Errorf("amount: got %d, want 50000", settlement.AmountCents)
	}
	if settlement.Status != models.SettlementCompleted {
		t.Errorf("status: got %q, want completed", settlement.Status)
	}
	if got := periods.status(periodID); got != models.PeriodStatusSettled {
		t.Errorf("period status: got %q, want settled", got)
	}
	if len(store.settlements) != 1 {
		t.Errorf("settlements stored: got %d, want 1", len(store.settlements))
	}

	if len(notifier.notifications) != 1 || notifier.notifications[0].Type != models.NotifThankYou {
		t.Fatalf("expected one thank-you notification, got %+v", notifier.notifications)
	}
	if len(notifier.emails) != 1 || notifier.emails[0] != "agent@example.com" {
		t.Errorf("expected thank-you email to realtor, got %v", notifier.emails)
	}
}

func TestRecord_RepeatAttemptConflicts(t *testing.T) {
	svc, _, _, notifier, realtorID, periodID := newTestService(50000)

	if _, err := svc.Record(context.Background(), realtorID, periodID, "check", ""); err != nil {
		t.Fatalf("first Record: %v", err)
	}
	if _, err := svc.Record(context.Background(), realtorID, periodID, "check", ""); err != ErrAlreadySettled {
		t.Fatalf("second Record: got %v, want ErrAlreadySettled", err)
	}
	if len(notifier.notifications) != 1 {
		t.Errorf("repeat attempt must not emit another notification, got %d", len(notifier.notifications))
	}
}

func TestRecord_UnknownPeriod(t *testing.T) {
	svc, _, _, _, realtorID, _ := newTestService(50000)

	if _, err := svc.Record(context.Background(), realtorID, uuid.New(), "check", ""); err != ErrNotFound {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}

func TestRecord_OtherRealtorsPeriodIsForbidden(t *testing.T) {
	svc, store, periods, notifier, _, periodID := newTestService(50000)

	intruder := uuid.New()
	if _, err := svc.Record(context.Background(), intruder, periodID, "check", ""); err != ErrForbidden {
		t.Fatalf("got %v, want ErrForbidden", err)
	}
	if len(store.settlements) != 0 || len(notifier.notifications) != 0 {
		t.Error("forbidden attempt must leave no side effects")
	}
	if got := periods.status(periodID); got != models.PeriodStatusPending {
		t.Errorf("period status changed to %q", got)
	}
}

func TestRecord_AlreadySettledPeriod(t *testing.T) {
	svc, _, periods, _, realtorID, periodID := newTestService(50000)
	periods.reports[periodID].Status = models.PeriodStatusSettled

	if _, err := svc.Record(context.Background(), realtorID, periodID, "check", ""); err != ErrAlreadySettled {
		t.Fatalf("got %v, want ErrAlreadySettled", err)
	}
}

func TestSetShared_UnknownSettlement(t *testing.T) {
	svc, _, _, _, realtorID, _ := newTestService(50000)

	if err := svc.SetShared(context.Background(), realtorID, uuid.New(), true); err != ErrNotFound {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}

// A January payment for a December period belongs to the prior year: year
// figures follow the period, not the payment date.
func TestStats_KeyedOnPeriodYear(t *testing.T) {
	svc, store, periods, _, realtorID, _ := newTestService(50000)
	svc.(*service).now = func() time.Time {
		return time.Date(2025, time.January, 15, 12, 0, 0, 0, time.UTC)
	}

	decID, janID := uuid.New(), uuid.New()
	periods.reports[decID] = &models.PeriodReport{
		ID: decID, RealtorID: realtorID, Month: 12, Year: 2024,
		ObligationCents: 30000, Status: models.PeriodStatusSettled,
	}
	periods.reports[janID] = &models.PeriodReport{
		ID: janID, RealtorID: realtorID, Month: 1, Year: 2025,
		ObligationCents: 20000, Status: models.PeriodStatusSettled,
	}
	store.settlements[decID] = &models.Settlement{
		ID: uuid.New(), RealtorID: realtorID, PeriodID: decID, AmountCents: 30000,
		Status: models.SettlementCompleted,
		PaidAt: time.Date(2025, time.January, 5, 9, 0, 0, 0, time.UTC),
	}
	store.settlements[janID] = &models.Settlement{
		ID: uuid.New(), RealtorID: realtorID, PeriodID: janID, AmountCents: 20000,
		Status: models.SettlementCompleted,
		PaidAt: time.Date(2025, time.January, 10, 9, 0, 0, 0, time.UTC),
	}

	stats, err := svc.Stats(context.Background(), realtorID)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.TotalCents != 50000 || stats.Count != 2 {
		t.Fatalf("lifetime = (%d cents, %d settlements), want (50000, 2)", stats.TotalCents, stats.Count)
	}
	if stats.YearToDateCents != 20000 {
		t.Errorf("year to date = %d cents, want 20000 (December 2024 payment excluded)", stats.YearToDateCents)
	}
	if len(stats.Monthly) != 1 {
		t.Fatalf("monthly rows = %d, want 1", len(stats.Monthly))
	}
	if m := stats.Monthly[0]; m.Month != 1 || m.Year != 2025 || m.AmountCents != 20000 {
		t.Errorf("monthly row = %+v, want January 2025 for 20000 cents", m)
	}
}

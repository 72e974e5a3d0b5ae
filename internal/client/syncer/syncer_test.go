package syncer

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"sports_club_backend/internal/client/cache"
	"sports_club_backend/internal/models"
	"sports_club_backend/pkg/utils"
)

// fakeSource serves fixed rows, filtered by sinceID like the server does.
type fakeSource struct {
	mu         sync.Mutex
	members    []models.Member
	attendance []models.Attendance
	payments   []models.Payment
	expenses   []models.Expense
	err        error
	since      map[string][]string
	block      chan struct{}
	started    chan struct{}
	calls      int32
}

func newFakeSource() *fakeSource {
	return &fakeSource{since: map[string][]string{}}
}

func after[T any](rows []T, sinceID string, id func(T) string) []T {
	out := []T{}
	for _, r := range rows {
		if sinceID == "" || utils.CompareIDs(id(r), sinceID) > 0 {
			out = append(out, r)
		}
	}
	return out
}

func (f *fakeSource) record(domain, sinceID string) error {
	f.mu.Lock()
	f.since[domain] = append(f.since[domain], sinceID)
	err := f.err
	f.mu.Unlock()
	return err
}

func (f *fakeSource) FetchMembers(_ context.Context, sinceID string) ([]models.Member, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.started != nil {
		f.started <- struct{}{}
	}
	if f.block != nil {
		<-f.block
	}
	if err := f.record(DomainMembers, sinceID); err != nil {
		return nil, err
	}
	return after(f.members, sinceID, func(m models.Member) string { return m.ID }), nil
}

func (f *fakeSource) FetchAttendance(_ context.Context, sinceID string) ([]models.Attendance, error) {
	if err := f.record(DomainAttendance, sinceID); err != nil {
		return nil, err
	}
	return after(f.attendance, sinceID, func(a models.Attendance) string { return a.ID }), nil
}

func (f *fakeSource) FetchPayments(_ context.Context, sinceID string) ([]models.Payment, error) {
	if err := f.record(DomainPayments, sinceID); err != nil {
		return nil, err
	}
	return after(f.payments, sinceID, func(p models.Payment) string { return p.ID }), nil
}

func (f *fakeSource) FetchExpenses(_ context.Context, sinceID string) ([]models.Expense, error) {
	if err := f.record(DomainExpenses, sinceID); err != nil {
		return nil, err
	}
	return after(f.expenses, sinceID, func(e models.Expense) string { return e.ID }), nil
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestService(t *testing.T, src Source) (*Service, *cache.Store, *clock) {
	t.Helper()
	store, err := cache.Open(filepath.Join(t.TempDir(), "client.db"))
	if err != nil {
		t.Fatalf("cache.Open failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	c := &clock{now: time.Date(2025, 1, 20, 10, 0, 0, 0, time.UTC)}
	return NewService(src, store, zerolog.New(io.Discard), c.Now), store, c
}

func visit(id, member, date string) models.Attendance {
	return models.Attendance{ID: id, MemberID: member, Date: date, MembershipStatus: models.MembershipActive}
}

func TestIncrementalSyncMergesByID(t *testing.T) {
	ctx := context.Background()
	src := newFakeSource()
	src.attendance = []models.Attendance{visit("1", "1", "2025-01-10"), visit("2", "1", "2025-01-11"), visit("3", "1", "2025-01-12")}
	svc, store, _ := newTestService(t, src)

	res, err := svc.Sync(ctx, DomainAttendance, false)
	if err != nil {
		t.Fatalf("first Sync failed: %v", err)
	}
	if !res.Full || res.Total != 3 || res.LastSyncedID != "3" {
		t.Fatalf("unexpected first result %+v", res)
	}

	// The server now reports an edited row 3 again together with a new row 4.
	edited := visit("3", "1", "2025-01-12")
	edited.Notes = "edited"
	src.attendance = []models.Attendance{visit("1", "1", "2025-01-10"), visit("2", "1", "2025-01-11"), edited, visit("4", "1", "2025-01-13")}
	fetchAll := func(_ context.Context, sinceID string) ([]models.Attendance, error) {
		return []models.Attendance{edited, visit("4", "1", "2025-01-13")}, nil
	}
	res, err = syncDomain(ctx, svc, DomainAttendance, "3", fetchAll, func(a models.Attendance) string { return a.ID }, svc.relinkAttendance)
	if err != nil {
		t.Fatalf("incremental syncDomain failed: %v", err)
	}
	if res.Fetched != 2 || res.Total != 4 || res.LastSyncedID != "4" {
		t.Fatalf("unexpected incremental result %+v", res)
	}

	rows, err := cache.Load[models.Attendance](ctx, store, DomainAttendance)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(rows) != 4 {
		t.Fatalf("expected 4 cached rows, got %d", len(rows))
	}
	for i, want := range []string{"1", "2", "3", "4"} {
		if rows[i].ID != want {
			t.Errorf("row %d: expected id %s, got %s", i, want, rows[i].ID)
		}
	}
	if rows[2].Notes != "edited" {
		t.Errorf("expected the fetched row 3 to win, got %+v", rows[2])
	}
	if v, _ := store.Meta(ctx, LastSyncedIDKey(DomainAttendance)); v != "4" {
		t.Errorf("expected marker 4, got %q", v)
	}

	t.Run("next sync asks for rows after the marker", func(t *testing.T) {
		if _, err := svc.Sync(ctx, DomainAttendance, false); err != nil {
			t.Fatalf("Sync failed: %v", err)
		}
		calls := src.since[DomainAttendance]
		if got := calls[len(calls)-1]; got != "4" {
			t.Errorf("expected sinceId 4, got %q", got)
		}
	})

	t.Run("forced full sync replaces the cache", func(t *testing.T) {
		src.attendance = []models.Attendance{visit("1", "1", "2025-01-10")}
		res, err := svc.Sync(ctx, DomainAttendance, true)
		if err != nil {
			t.Fatalf("Sync failed: %v", err)
		}
		if !res.Full || res.Total != 1 {
			t.Errorf("unexpected result %+v", res)
		}
		calls := src.since[DomainAttendance]
		if got := calls[len(calls)-1]; got != "" {
			t.Errorf("expected a full fetch, got sinceId %q", got)
		}
	})
}

func TestMergeByID(t *testing.T) {
	id := func(s string) string { return s[:1] }
	got := mergeByID([]string{"1a", "2a", "3a"}, []string{"3b", "4b"}, id)
	want := []string{"1a", "2a", "3b", "4b"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("expected %v, got %v", want, got)
			break
		}
	}
}

func TestRelinkUsesCachedMembers(t *testing.T) {
	ctx := context.Background()
	src := newFakeSource()
	src.members = []models.Member{{ID: "1", FirstName: "Ann", LastName: "Lee"}}
	src.attendance = []models.Attendance{visit("1", "1", "2025-01-10"), visit("2", "99", "2025-01-10")}
	src.payments = []models.Payment{{ID: "1", MemberID: "99", Date: "2025-01-02", Amount: decimal.NewFromInt(5), Status: models.PaymentStatusPaid}}
	svc, store, _ := newTestService(t, src)

	if _, err := svc.SyncAll(ctx, false); err != nil {
		t.Fatalf("SyncAll failed: %v", err)
	}
	rows, _ := cache.Load[models.Attendance](ctx, store, DomainAttendance)
	if len(rows) != 2 || rows[0].MemberName != "Ann Lee" || rows[1].MemberName != UnknownMember {
		t.Errorf("unexpected member names %+v", rows)
	}
	payments, _ := cache.Load[models.Payment](ctx, store, DomainPayments)
	if len(payments) != 1 || payments[0].MemberName != UnknownMember {
		t.Errorf("unexpected payment names %+v", payments)
	}

	snap, err := svc.Analytics(ctx)
	if err != nil {
		t.Fatalf("Analytics failed: %v", err)
	}
	if snap.Attendance.Total != 2 || snap.Members.Total != 1 {
		t.Errorf("unexpected analytics %+v", snap)
	}
}

func TestFailedSyncKeepsCache(t *testing.T) {
	ctx := context.Background()
	src := newFakeSource()
	src.expenses = []models.Expense{{ID: "1", Date: "2025-01-01", Amount: decimal.NewFromInt(9), Category: "Rent"}}
	svc, store, _ := newTestService(t, src)
	if _, err := svc.Sync(ctx, DomainExpenses, false); err != nil {
		t.Fatalf("Sync failed: %v", err)
	}

	src.err = errors.New("connection refused")
	if _, err := svc.Sync(ctx, DomainExpenses, true); err == nil {
		t.Fatalf("expected the sync to fail")
	}
	rows, _ := cache.Load[models.Expense](ctx, store, DomainExpenses)
	if len(rows) != 1 {
		t.Errorf("expected the cached expense to survive, got %d rows", len(rows))
	}
	if v, _ := store.Meta(ctx, LastSyncedIDKey(DomainExpenses)); v != "1" {
		t.Errorf("expected the marker to survive, got %q", v)
	}

	if _, err := svc.Sync(ctx, "invoices", false); !errors.Is(err, ErrUnknownDomain) {
		t.Errorf("expected ErrUnknownDomain, got %v", err)
	}
}

func TestConcurrentSyncsShareOneRun(t *testing.T) {
	ctx := context.Background()
	src := newFakeSource()
	src.members = []models.Member{{ID: "1", FirstName: "Ann"}}
	src.block = make(chan struct{})
	src.started = make(chan struct{}, 8)
	svc, _, _ := newTestService(t, src)

	const callers = 5
	var wg sync.WaitGroup
	results := make(chan *Result, callers)
	errs := make(chan error, callers)
	run := func() {
		defer wg.Done()
		r, err := svc.Sync(ctx, DomainMembers, false)
		results <- r
		errs <- err
	}

	wg.Add(1)
	go run()
	<-src.started
	for i := 1; i < callers; i++ {
		wg.Add(1)
		go run()
	}
	time.Sleep(100 * time.Millisecond)
	close(src.block)
	wg.Wait()
	close(results)
	close(errs)

	for err := range errs {
		if err != nil {
			t.Fatalf("Sync failed: %v", err)
		}
	}
	var first *Result
	for r := range results {
		if first == nil {
			first = r
		} else if r != first {
			t.Errorf("expected every caller to get the shared result")
		}
	}
	if n := atomic.LoadInt32(&src.calls); n != 1 {
		t.Errorf("expected one fetch, got %d", n)
	}
}

func TestForcedSyncDoesNotSettleForIncremental(t *testing.T) {
	ctx := context.Background()
	src := newFakeSource()
	src.members = []models.Member{{ID: "1", FirstName: "Ann"}, {ID: "2", FirstName: "Bob"}}
	svc, _, _ := newTestService(t, src)
	if _, err := svc.Sync(ctx, DomainMembers, false); err != nil {
		t.Fatalf("initial Sync failed: %v", err)
	}

	src.block = make(chan struct{})
	src.started = make(chan struct{}, 8)
	incremental := make(chan *Result, 1)
	go func() {
		r, _ := svc.Sync(ctx, DomainMembers, false)
		incremental <- r
	}()
	<-src.started

	forced := make(chan *Result, 1)
	forcedErr := make(chan error, 1)
	go func() {
		r, err := svc.Sync(ctx, DomainMembers, true)
		forced <- r
		forcedErr <- err
	}()
	time.Sleep(100 * time.Millisecond)
	close(src.block)

	if r := <-incremental; r == nil || r.Full {
		t.Errorf("expected an incremental result, got %+v", r)
	}
	if err := <-forcedErr; err != nil {
		t.Fatalf("forced Sync failed: %v", err)
	}
	r := <-forced
	if !r.Full || r.Total != 2 {
		t.Errorf("expected a full result with 2 rows, got %+v", r)
	}
	src.mu.Lock()
	since := append([]string(nil), src.since[DomainMembers]...)
	src.mu.Unlock()
	if len(since) != 3 || since[1] != "2" || since[2] != "" {
		t.Errorf("expected an initial, an incremental and a full fetch, got %q", since)
	}
}

func TestSyncIfStale(t *testing.T) {
	ctx := context.Background()
	src := newFakeSource()
	svc, _, clk := newTestService(t, src)

	results, err := svc.SyncIfStale(ctx, time.Hour)
	if err != nil {
		t.Fatalf("SyncIfStale failed: %v", err)
	}
	if len(results) != len(Domains) {
		t.Fatalf("expected every domain to sync the first time, got %d", len(results))
	}

	clk.Advance(30 * time.Minute)
	results, _ = svc.SyncIfStale(ctx, time.Hour)
	if len(results) != 0 {
		t.Errorf("expected nothing to sync, got %d", len(results))
	}

	clk.Advance(time.Hour)
	results, _ = svc.SyncIfStale(ctx, time.Hour)
	if len(results) != len(Domains) {
		t.Errorf("expected every domain to sync again, got %d", len(results))
	}
}

func TestSelectClub(t *testing.T) {
	ctx := context.Background()
	src := newFakeSource()
	src.members = []models.Member{{ID: "1", FirstName: "Ann"}}
	svc, store, _ := newTestService(t, src)

	if err := svc.SelectClub(ctx, "club-a"); err != nil {
		t.Fatalf("SelectClub failed: %v", err)
	}
	if _, err := svc.Sync(ctx, DomainMembers, false); err != nil {
		t.Fatalf("Sync failed: %v", err)
	}

	if err := svc.SelectClub(ctx, "club-a"); err != nil {
		t.Fatalf("SelectClub failed: %v", err)
	}
	if rows, _ := store.All(ctx, DomainMembers); len(rows) != 1 {
		t.Errorf("re-selecting the same club must keep the cache, got %d rows", len(rows))
	}

	if err := svc.SelectClub(ctx, "club-b"); err != nil {
		t.Fatalf("SelectClub failed: %v", err)
	}
	if rows, _ := store.All(ctx, DomainMembers); len(rows) != 0 {
		t.Errorf("switching clubs must empty the cache, got %d rows", len(rows))
	}
	if _, err := store.Meta(ctx, LastSyncedIDKey(DomainMembers)); !errors.Is(err, cache.ErrNotFound) {
		t.Errorf("switching clubs must drop the markers, got %v", err)
	}
	if id, _ := svc.SelectedClub(ctx); id != "club-b" {
		t.Errorf("expected club-b, got %q", id)
	}
}

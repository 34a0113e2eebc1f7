package schedule_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"reel/internal/ledger"
	"reel/internal/logging"
	"reel/internal/schedule"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

type fakeChecker struct {
	mu        sync.Mutex
	published map[string]bool
	err       error
	calls     int
}

func (f *fakeChecker) HasPublishedOn(ctx context.Context, date string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return false, f.err
	}
	return f.published[date], nil
}

func (f *fakeChecker) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type triggerRecorder struct {
	mu    sync.Mutex
	count int
}

func (r *triggerRecorder) fire(context.Context) {
	r.mu.Lock()
	r.count++
	r.mu.Unlock()
}

func (r *triggerRecorder) fired() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func mustTable(t *testing.T, entries map[string]string) schedule.Table {
	t.Helper()
	table, err := schedule.ParseTable(entries)
	if err != nil {
		t.Fatalf("ParseTable failed: %v", err)
	}
	return table
}

// monday 2026-03-02 09:00:10 local to the test.
func matchingMoment() time.Time {
	return time.Date(2026, time.March, 2, 9, 0, 10, 0, time.UTC)
}

func TestSchedulerFiresOnceForMatchingMinute(t *testing.T) {
	clock := &fakeClock{now: matchingMoment()}
	checker := &fakeChecker{}
	recorder := &triggerRecorder{}

	s := schedule.New(
		mustTable(t, map[string]string{"monday": "09:00"}),
		checker,
		recorder.fire,
		logging.NewNop(),
		schedule.WithClock(clock.Now),
		schedule.WithInterval(2*time.Millisecond),
	)
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer s.Stop()

	waitFor(t, 2*time.Second, func() bool { return recorder.fired() == 1 })

	// Many more ticks land in the same minute; none may re-fire.
	time.Sleep(30 * time.Millisecond)
	if got := recorder.fired(); got != 1 {
		t.Fatalf("expected exactly one trigger for the matching minute, got %d", got)
	}
}

func TestSchedulerSkipsWhenPublishedToday(t *testing.T) {
	clock := &fakeClock{now: matchingMoment()}
	checker := &fakeChecker{published: map[string]bool{ledger.DateKey(matchingMoment()): true}}
	recorder := &triggerRecorder{}

	s := schedule.New(
		mustTable(t, map[string]string{"monday": "09:00"}),
		checker,
		recorder.fire,
		logging.NewNop(),
		schedule.WithClock(clock.Now),
		schedule.WithInterval(2*time.Millisecond),
	)
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer s.Stop()

	waitFor(t, 2*time.Second, func() bool { return checker.callCount() >= 1 })
	time.Sleep(10 * time.Millisecond)
	if got := recorder.fired(); got != 0 {
		t.Fatalf("expected no trigger when today already published, got %d", got)
	}
}

func TestSchedulerFiresAgainOnNewDate(t *testing.T) {
	clock := &fakeClock{now: matchingMoment()}
	checker := &fakeChecker{}
	recorder := &triggerRecorder{}

	s := schedule.New(
		mustTable(t, map[string]string{"monday": "09:00"}),
		checker,
		recorder.fire,
		logging.NewNop(),
		schedule.WithClock(clock.Now),
		schedule.WithInterval(2*time.Millisecond),
	)
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer s.Stop()

	waitFor(t, 2*time.Second, func() bool { return recorder.fired() == 1 })

	// The next minute no longer matches.
	clock.Set(matchingMoment().Add(time.Minute))
	time.Sleep(20 * time.Millisecond)
	if got := recorder.fired(); got != 1 {
		t.Fatalf("expected no trigger at 09:01, got %d", got)
	}

	// The same weekday and minute one week later fires again.
	clock.Set(matchingMoment().AddDate(0, 0, 7))
	waitFor(t, 2*time.Second, func() bool { return recorder.fired() == 2 })
}

func TestSchedulerNoEntryForToday(t *testing.T) {
	tuesday := time.Date(2026, time.March, 3, 9, 0, 10, 0, time.UTC)
	clock := &fakeClock{now: tuesday}
	checker := &fakeChecker{}
	recorder := &triggerRecorder{}

	s := schedule.New(
		mustTable(t, map[string]string{"monday": "09:00"}),
		checker,
		recorder.fire,
		logging.NewNop(),
		schedule.WithClock(clock.Now),
		schedule.WithInterval(2*time.Millisecond),
	)
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer s.Stop()

	time.Sleep(20 * time.Millisecond)
	if got := recorder.fired(); got != 0 {
		t.Fatalf("expected no trigger on an unscheduled day, got %d", got)
	}
	if got := checker.callCount(); got != 0 {
		t.Fatalf("expected no dedup check without a match, got %d", got)
	}
}

func TestSchedulerWithholdsTriggerOnLedgerError(t *testing.T) {
	clock := &fakeClock{now: matchingMoment()}
	checker := &fakeChecker{err: errors.New("ledger unavailable")}
	recorder := &triggerRecorder{}

	s := schedule.New(
		mustTable(t, map[string]string{"monday": "09:00"}),
		checker,
		recorder.fire,
		logging.NewNop(),
		schedule.WithClock(clock.Now),
		schedule.WithInterval(2*time.Millisecond),
	)
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer s.Stop()

	waitFor(t, 2*time.Second, func() bool { return checker.callCount() >= 1 })
	time.Sleep(10 * time.Millisecond)
	if got := recorder.fired(); got != 0 {
		t.Fatalf("expected trigger withheld on ledger error, got %d", got)
	}
}

func TestSchedulerStartTwice(t *testing.T) {
	s := schedule.New(
		mustTable(t, map[string]string{"monday": "09:00"}),
		&fakeChecker{},
		(&triggerRecorder{}).fire,
		logging.NewNop(),
		schedule.WithInterval(time.Hour),
	)
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer s.Stop()

	if err := s.Start(context.Background()); err == nil {
		t.Fatal("expected error starting twice")
	}
}

func TestSchedulerStopIdempotent(t *testing.T) {
	s := schedule.New(
		mustTable(t, map[string]string{"monday": "09:00"}),
		&fakeChecker{},
		(&triggerRecorder{}).fire,
		logging.NewNop(),
		schedule.WithInterval(time.Hour),
	)

	s.Stop() // before Start

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if !s.Running() {
		t.Fatal("expected scheduler running after Start")
	}

	s.Stop()
	if s.Running() {
		t.Fatal("expected scheduler stopped")
	}
	s.Stop() // second stop is a no-op
}

func TestSchedulerRequiresTrigger(t *testing.T) {
	s := schedule.New(
		mustTable(t, map[string]string{"monday": "09:00"}),
		&fakeChecker{},
		nil,
		logging.NewNop(),
	)
	if err := s.Start(context.Background()); err == nil {
		t.Fatal("expected error when trigger callback missing")
	}
}

package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/Outreach/internal/domain"
	"github.com/shaiso/Outreach/internal/orchestrator"
	"github.com/shaiso/Outreach/internal/repo/memory"
	"github.com/shaiso/Outreach/internal/telemetry"
)

type fakeRuns struct {
	now    time.Time
	before []time.Time
	n      int
	err    error
}

func (f *fakeRuns) CancelStaleRuns(ctx context.Context, before time.Time, limit int) (int, error) {
	f.before = append(f.before, before)
	return f.n, f.err
}

func (f *fakeRuns) Now() time.Time { return f.now }

type fakeLock struct {
	free     bool
	err      error
	attempts int
	unlocked bool
}

func (l *fakeLock) TryAdvisoryLock(ctx context.Context, key int64) (bool, error) {
	l.attempts++
	return l.free, l.err
}

func (l *fakeLock) AdvisoryUnlock(ctx context.Context, key int64) error {
	l.unlocked = true
	return nil
}

func newSweeper(t *testing.T, runs Canceller, lock Locker) *Sweeper {
	t.Helper()
	sw, err := New(Config{Runs: runs, Lock: lock, Logger: telemetry.Discard()})
	if err != nil {
		t.Fatalf("new sweeper: %v", err)
	}
	return sw
}

func TestCutoff(t *testing.T) {
	sw := newSweeper(t, &fakeRuns{}, &fakeLock{})

	tests := []struct {
		now  time.Time
		want time.Time
	}{
		{time.Date(2025, 10, 26, 10, 0, 0, 0, time.UTC), time.Date(2025, 10, 25, 0, 0, 0, 0, time.UTC)},
		{time.Date(2025, 10, 26, 0, 0, 0, 0, time.UTC), time.Date(2025, 10, 25, 0, 0, 0, 0, time.UTC)},
		{time.Date(2025, 11, 1, 23, 59, 0, 0, time.UTC), time.Date(2025, 10, 31, 0, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		if got := sw.Cutoff(tt.now); !got.Equal(tt.want) {
			t.Errorf("Cutoff(%s): expected %s, got %s", tt.now, tt.want, got)
		}
	}
}

func TestTickNotLeader(t *testing.T) {
	runs := &fakeRuns{n: 3}
	lock := &fakeLock{free: false}
	sw := newSweeper(t, runs, lock)

	n, err := sw.Tick(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 0 || len(runs.before) != 0 {
		t.Error("non-leader must not sweep")
	}
}

func TestTickKeepsLeadership(t *testing.T) {
	runs := &fakeRuns{n: 2, now: time.Date(2025, 10, 26, 10, 0, 0, 0, time.UTC)}
	lock := &fakeLock{free: true}
	sw := newSweeper(t, runs, lock)

	for i := 0; i < 3; i++ {
		n, err := sw.Tick(context.Background())
		if err != nil {
			t.Fatalf("tick %d: %v", i, err)
		}
		if n != 2 {
			t.Errorf("tick %d: expected 2 cancelled, got %d", i, n)
		}
	}

	if lock.attempts != 1 {
		t.Errorf("lock should be taken once, got %d attempts", lock.attempts)
	}
	if want := time.Date(2025, 10, 25, 0, 0, 0, 0, time.UTC); !runs.before[0].Equal(want) {
		t.Errorf("expected cutoff %s, got %s", want, runs.before[0])
	}
}

func TestTickErrors(t *testing.T) {
	sw := newSweeper(t, &fakeRuns{}, &fakeLock{err: errors.New("db down")})
	if _, err := sw.Tick(context.Background()); err == nil {
		t.Error("expected lock error")
	}

	sw = newSweeper(t, &fakeRuns{err: domain.ErrInternal}, &fakeLock{free: true})
	if _, err := sw.Tick(context.Background()); !errors.Is(err, domain.ErrInternal) {
		t.Errorf("expected wrapped ErrInternal, got %v", err)
	}
}

func TestNewInvalidCron(t *testing.T) {
	_, err := New(Config{Runs: &fakeRuns{}, Lock: &fakeLock{}, Cron: "every day"})
	if err == nil {
		t.Error("expected error for invalid cron")
	}
}

func TestNextRun(t *testing.T) {
	from := time.Date(2025, 10, 26, 10, 7, 0, 0, time.UTC)
	next, err := NextRun("*/15 * * * *", from)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := time.Date(2025, 10, 26, 10, 15, 0, 0, time.UTC); !next.Equal(want) {
		t.Errorf("expected %s, got %s", want, next)
	}

	if _, err := NextRun("@daily", from); err != nil {
		t.Errorf("descriptors should parse: %v", err)
	}
}

func TestRunReleasesLock(t *testing.T) {
	lock := &fakeLock{free: true}
	sw := newSweeper(t, &fakeRuns{}, lock)
	sw.hasLock = true

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- sw.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not stop")
	}

	if !lock.unlocked {
		t.Error("leadership should be released on shutdown")
	}
}

func TestSweepCancelsStaleRuns(t *testing.T) {
	store := memory.New()
	route := domain.Route{ID: uuid.New(), Name: "AACo"}
	store.AddRoute(route, domain.Location{ID: uuid.New(), Name: "Library", RouteOrder: 1})

	now := time.Date(2025, 10, 26, 10, 0, 0, 0, time.UTC)
	orch := orchestrator.New(orchestrator.Config{
		Store:  store,
		Logger: telemetry.Discard(),
		Now:    func() time.Time { return now },
	})
	ctx := context.Background()
	user := uuid.New()

	create := func(date string) *domain.Run {
		run, err := orch.CreateRun(ctx, domain.NewRunInput{RouteID: route.ID, ScheduledDate: date, CreatedBy: user})
		if err != nil {
			t.Fatalf("create run %s: %v", date, err)
		}
		return run
	}
	old := create("2025-10-20")
	yesterday := create("2025-10-25")
	started := create("2025-10-19")
	if _, err := orch.StartRun(ctx, started.ID, user); err != nil {
		t.Fatalf("start: %v", err)
	}

	sw := newSweeper(t, orch, store)
	n, err := sw.Tick(ctx)
	if err != nil {
		t.Fatalf("tick: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 cancelled run, got %d", n)
	}

	want := map[uuid.UUID]domain.RunStatus{
		old.ID:       domain.RunStatusCancelled,
		yesterday.ID: domain.RunStatusScheduled,
		started.ID:   domain.RunStatusInProgress,
	}
	for id, status := range want {
		run, err := orch.GetRun(ctx, id)
		if err != nil {
			t.Fatalf("get run: %v", err)
		}
		if run.Status != status {
			t.Errorf("run %s: expected %s, got %s", run.Name, status, run.Status)
		}
	}
}

package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/Outreach/internal/domain"
	"github.com/shaiso/Outreach/internal/repo"
)

func TestInTx_RollbackOnError(t *testing.T) {
	s := New()
	ctx := context.Background()
	run := domain.Run{ID: uuid.New(), Status: domain.RunStatusScheduled}

	boom := errors.New("boom")
	err := s.InTx(ctx, func(r repo.Repos) error {
		if err := r.Runs.Create(ctx, &run); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	if _, err := s.Repos().Runs.GetByID(ctx, run.ID); !errors.Is(err, repo.ErrNotFound) {
		t.Errorf("expected ErrNotFound after rollback, got %v", err)
	}
}

func TestInTx_Commit(t *testing.T) {
	s := New()
	ctx := context.Background()
	run := domain.Run{ID: uuid.New(), Name: "AACo Friday 2025-10-24", Status: domain.RunStatusScheduled}

	err := s.InTx(ctx, func(r repo.Repos) error {
		return r.Runs.Create(ctx, &run)
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := s.Repos().Runs.GetByID(ctx, run.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Name != run.Name {
		t.Errorf("expected name %q, got %q", run.Name, got.Name)
	}
}

func TestInTx_ReadersSeeLastCommit(t *testing.T) {
	s := New()
	ctx := context.Background()
	run := domain.Run{ID: uuid.New(), Status: domain.RunStatusScheduled}

	inside := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- s.InTx(ctx, func(r repo.Repos) error {
			if err := r.Runs.Create(ctx, &run); err != nil {
				return err
			}
			close(inside)
			<-release
			return nil
		})
	}()

	<-inside
	// Чтение не ждёт открытую транзакцию и не видит её запись
	if _, err := s.Repos().Runs.GetByID(ctx, run.ID); !errors.Is(err, repo.ErrNotFound) {
		t.Errorf("expected ErrNotFound before commit, got %v", err)
	}
	close(release)
	if err := <-done; err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := s.Repos().Runs.GetByID(ctx, run.ID); err != nil {
		t.Errorf("expected run after commit, got %v", err)
	}
}

func TestSightingClientID_ScopedToFriend(t *testing.T) {
	s := New()
	ctx := context.Background()
	jay, sam := uuid.New(), uuid.New()

	first := domain.FriendSighting{ID: uuid.New(), FriendID: jay, ClientRequestID: "device-1:1"}
	if err := s.Repos().Sightings.Create(ctx, &first); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	other := domain.FriendSighting{ID: uuid.New(), FriendID: sam, ClientRequestID: "device-1:1"}
	if err := s.Repos().Sightings.Create(ctx, &other); err != nil {
		t.Fatalf("same key for another friend should be accepted, got %v", err)
	}
	again := domain.FriendSighting{ID: uuid.New(), FriendID: jay, ClientRequestID: "device-1:1"}
	if err := s.Repos().Sightings.Create(ctx, &again); !errors.Is(err, repo.ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}

	got, err := s.Repos().Sightings.GetByClientID(ctx, sam, "device-1:1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ID != other.ID {
		t.Errorf("expected sam's sighting, got %v", got.ID)
	}
}

func TestRunUpdate_KeepsName(t *testing.T) {
	s := New()
	ctx := context.Background()
	run := domain.Run{ID: uuid.New(), Name: "original"}
	_ = s.Repos().Runs.Create(ctx, &run)

	run.Name = "changed"
	run.MealCount = 50
	if err := s.Repos().Runs.Update(ctx, &run); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, _ := s.Repos().Runs.GetByID(ctx, run.ID)
	if got.Name != "original" {
		t.Errorf("expected name to stay 'original', got %q", got.Name)
	}
	if got.MealCount != 50 {
		t.Errorf("expected meal count 50, got %d", got.MealCount)
	}
}

func TestTeamAdd_Duplicate(t *testing.T) {
	s := New()
	ctx := context.Background()
	runID, userID := uuid.New(), uuid.New()
	joined := time.Date(2025, 10, 24, 18, 0, 0, 0, time.UTC)

	first := domain.TeamMember{RunID: runID, UserID: userID, JoinedAt: joined}
	if err := s.Repos().Team.Add(ctx, &first); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	again := domain.TeamMember{RunID: runID, UserID: userID, JoinedAt: joined.Add(time.Hour)}
	if err := s.Repos().Team.Add(ctx, &again); !errors.Is(err, repo.ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}
	if !again.JoinedAt.Equal(joined) {
		t.Errorf("expected stored joined_at, got %v", again.JoinedAt)
	}

	members, _ := s.Repos().Team.List(ctx, runID)
	if len(members) != 1 {
		t.Errorf("expected 1 member, got %d", len(members))
	}
}

func TestDeliveryUpsert_SingleRow(t *testing.T) {
	s := New()
	ctx := context.Background()
	runID, locID := uuid.New(), uuid.New()

	first := domain.RunStopDelivery{ID: uuid.New(), RunID: runID, LocationID: locID, MealsDelivered: 10}
	_ = s.Repos().Deliveries.Upsert(ctx, &first)

	second := domain.RunStopDelivery{ID: uuid.New(), RunID: runID, LocationID: locID, MealsDelivered: 12}
	_ = s.Repos().Deliveries.Upsert(ctx, &second)

	if second.ID != first.ID {
		t.Errorf("expected upsert to keep first id")
	}

	all, _ := s.Repos().Deliveries.ListByRun(ctx, runID)
	if len(all) != 1 {
		t.Fatalf("expected 1 delivery, got %d", len(all))
	}
	if all[0].MealsDelivered != 12 {
		t.Errorf("expected 12 meals, got %d", all[0].MealsDelivered)
	}
}

func TestListStops_Ordered(t *testing.T) {
	s := New()
	ctx := context.Background()
	route := domain.Route{ID: uuid.New(), Name: "AACo"}
	a := domain.Location{ID: uuid.New(), Name: "A", RouteOrder: 2}
	b := domain.Location{ID: uuid.New(), Name: "B", RouteOrder: 1}
	s.AddRoute(route, a, b)

	stops, err := s.Repos().Routes.ListStops(ctx, route.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(stops) != 2 || stops[0].Name != "B" || stops[1].Name != "A" {
		t.Errorf("unexpected order: %+v", stops)
	}
}

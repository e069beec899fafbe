package engine

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/Outreach/internal/domain"
)

// --- Roster ---

func TestLead_EarliestJoiner(t *testing.T) {
	runID := uuid.New()
	base := time.Date(2025, 10, 24, 17, 0, 0, 0, time.UTC)

	a := domain.TeamMember{RunID: runID, UserID: uuid.New(), JoinedAt: base.Add(2 * time.Minute), Seq: 1}
	b := domain.TeamMember{RunID: runID, UserID: uuid.New(), JoinedAt: base, Seq: 2}
	c := domain.TeamMember{RunID: runID, UserID: uuid.New(), JoinedAt: base.Add(time.Minute), Seq: 3}

	lead, ok := Lead([]domain.TeamMember{a, b, c})
	if !ok {
		t.Fatal("expected a lead")
	}
	if lead.UserID != b.UserID {
		t.Errorf("expected earliest joiner to lead")
	}

	// Лидер ушёл — следующий по времени становится лидером
	lead, _ = Lead([]domain.TeamMember{a, c})
	if lead.UserID != c.UserID {
		t.Errorf("expected next-earliest member to be promoted")
	}
}

func TestOrderMembers_TieUsesSeq(t *testing.T) {
	at := time.Now()
	first := domain.TeamMember{UserID: uuid.New(), JoinedAt: at, Seq: 10}
	second := domain.TeamMember{UserID: uuid.New(), JoinedAt: at, Seq: 11}

	ordered := OrderMembers([]domain.TeamMember{second, first})
	if ordered[0].UserID != first.UserID {
		t.Error("equal joined_at should fall back to insertion order")
	}
}

func TestLead_Empty(t *testing.T) {
	if _, ok := Lead(nil); ok {
		t.Error("empty team should have no lead")
	}
}

// --- Sightings ---

func TestLatestSightings(t *testing.T) {
	friend := uuid.New()
	other := uuid.New()
	locA, locB := uuid.New(), uuid.New()
	base := time.Date(2025, 10, 1, 18, 0, 0, 0, time.UTC)

	sightings := []domain.FriendSighting{
		{FriendID: friend, LocationID: locA, CreatedAt: base, Notes: "old"},
		{FriendID: friend, LocationID: locA, CreatedAt: base.Add(time.Hour), Notes: "new"},
		{FriendID: friend, LocationID: locB, CreatedAt: base.Add(30 * time.Minute)},
		{FriendID: other, LocationID: locA, CreatedAt: base.Add(2 * time.Hour)},
	}
	names := map[uuid.UUID]string{friend: "Sam", other: "Jo"}

	got := LatestSightings(sightings, names)

	if len(got) != 3 {
		t.Fatalf("expected 3 (friend, location) pairs, got %d", len(got))
	}
	if got[0].FriendID != other || got[0].FriendName != "Jo" {
		t.Error("most recent sighting should come first")
	}
	for _, e := range got {
		if e.FriendID == friend && e.LocationID == locA && e.Notes != "new" {
			t.Errorf("expected latest sighting notes, got %q", e.Notes)
		}
	}
}

// --- Context ---

func TestBuildExecutionContext(t *testing.T) {
	stops := makeStops(3)
	route := NewRoute(stops)

	run := domain.Run{ID: uuid.New(), Status: domain.RunStatusInProgress}
	run.CurrentLocationID = &stops[1].ID

	taken := []domain.Request{
		{ID: uuid.New(), LocationID: stops[0].ID, Status: domain.RequestStatusTaken},
		{ID: uuid.New(), LocationID: stops[0].ID, Status: domain.RequestStatusTaken},
	}
	expected := []domain.ExpectedFriend{{FriendID: uuid.New(), LocationID: stops[2].ID}}
	deliveries := []domain.RunStopDelivery{{RunID: run.ID, LocationID: stops[0].ID, MealsDelivered: 12}}

	ctx := BuildExecutionContext(run, route, expected, taken, deliveries)

	if ctx.CurrentStopIndex != 1 {
		t.Errorf("expected current stop index 1, got %d", ctx.CurrentStopIndex)
	}
	if len(ctx.Stops) != 3 {
		t.Fatalf("expected 3 stops, got %d", len(ctx.Stops))
	}
	if len(ctx.Stops[0].Requests) != 2 {
		t.Errorf("expected 2 requests at first stop, got %d", len(ctx.Stops[0].Requests))
	}
	if ctx.Stops[0].Delivery == nil || ctx.Stops[0].Delivery.MealsDelivered != 12 {
		t.Error("expected delivery at first stop")
	}
	if ctx.Stops[1].Delivery != nil {
		t.Error("second stop should have no delivery")
	}
	if len(ctx.Stops[2].ExpectedFriends) != 1 {
		t.Error("expected friend at third stop")
	}
	if ctx.Stops[1].Requests == nil || ctx.Stops[1].ExpectedFriends == nil {
		t.Error("empty collections should be non-nil for JSON")
	}
	for i, s := range ctx.Stops {
		if s.StopNumber != i+1 {
			t.Errorf("stop %d: expected number %d, got %d", i, i+1, s.StopNumber)
		}
	}
}

func TestBuildPreparation(t *testing.T) {
	run := domain.Run{MealCount: 40}
	ready := []domain.Request{{ID: uuid.New()}, {ID: uuid.New()}}

	prep := BuildPreparation(run, ready, 6)

	want := Supplies{Meals: 40, Utensils: 40, Napkins: 40, Requests: 2}
	if prep.Supplies != want {
		t.Errorf("expected supplies %+v, got %+v", want, prep.Supplies)
	}
	if prep.TotalStops != 6 {
		t.Errorf("expected 6 stops, got %d", prep.TotalStops)
	}

	empty := BuildPreparation(run, nil, 0)
	if empty.Requests == nil {
		t.Error("requests should be non-nil")
	}
}

package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestRunName(t *testing.T) {
	date := time.Date(2025, 10, 24, 0, 0, 0, 0, time.UTC)
	if got := RunName("AACo", date); got != "AACo Friday 2025-10-24" {
		t.Errorf("unexpected name %q", got)
	}
}

func TestNewRunInput_Validate(t *testing.T) {
	route := uuid.New()

	tests := []struct {
		name  string
		in    NewRunInput
		field string
	}{
		{"missing route", NewRunInput{ScheduledDate: "2025-10-24"}, "route_id"},
		{"missing date", NewRunInput{RouteID: route}, "scheduled_date"},
		{"bad date", NewRunInput{RouteID: route, ScheduledDate: "24/10/2025"}, "scheduled_date"},
		{"negative meals", NewRunInput{RouteID: route, ScheduledDate: "2025-10-24", MealCount: -5}, "meal_count"},
		{"valid", NewRunInput{RouteID: route, ScheduledDate: "2025-10-24", MealCount: 30}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.in.Validate()
			if tt.field == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			ve, ok := err.(*ValidationError)
			if !ok {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if ve.Field != tt.field {
				t.Errorf("expected field %s, got %s", tt.field, ve.Field)
			}
		})
	}
}

func TestRun_Transitions(t *testing.T) {
	now := time.Now()
	run := &Run{Status: RunStatusScheduled}

	if err := run.CanMove(); err == nil {
		t.Error("scheduled run should not move")
	}
	if err := run.CanComplete(); err == nil {
		t.Error("scheduled run should not complete")
	}

	run.MarkStarted(uuid.New(), now)
	if *run.CurrentStopNumber != 1 {
		t.Errorf("expected stop 1, got %d", *run.CurrentStopNumber)
	}
	if err := run.CanStart(); err == nil {
		t.Error("started run should not start again")
	}

	run.MarkCompleted(now)
	for name, check := range map[string]func() error{
		"start":    run.CanStart,
		"move":     run.CanMove,
		"complete": run.CanComplete,
		"cancel":   run.CanCancel,
	} {
		if err := check(); !IsValidation(err) {
			t.Errorf("%s on completed run: expected validation error, got %v", name, err)
		}
	}
}

func TestRunPatch_DoesNotTouchName(t *testing.T) {
	run := &Run{Name: "AACo Friday 2025-10-24", MealCount: 10}
	meals := 50

	RunPatch{MealCount: &meals}.Apply(run, time.Now())

	if run.Name != "AACo Friday 2025-10-24" {
		t.Errorf("name changed to %q", run.Name)
	}
	if run.MealCount != 50 {
		t.Errorf("expected meal count 50, got %d", run.MealCount)
	}
}

func TestRequest_ApplyHistory(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name         string
		from         RequestStatus
		append       HistoryStatus
		wantStatus   RequestStatus
		wantAttempts int
	}{
		{"delivered from pending", RequestStatusPending, HistoryDelivered, RequestStatusDelivered, 0},
		{"delivered from taken", RequestStatusTaken, HistoryDelivered, RequestStatusDelivered, 0},
		{"backward is recorded", RequestStatusDelivered, HistoryTaken, RequestStatusTaken, 0},
		{"failed attempt keeps status", RequestStatusReadyForDelivery, HistoryDeliveryAttemptFailed, RequestStatusReadyForDelivery, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := &Request{Status: tt.from}
			req.ApplyHistory(tt.append, now)

			if req.Status != tt.wantStatus {
				t.Errorf("expected status %s, got %s", tt.wantStatus, req.Status)
			}
			if req.DeliveryAttempts != tt.wantAttempts {
				t.Errorf("expected %d attempts, got %d", tt.wantAttempts, req.DeliveryAttempts)
			}
			if !req.UpdatedAt.Equal(now) {
				t.Error("updated_at should be bumped")
			}
		})
	}
}

func TestProjectRequest_MatchesIncremental(t *testing.T) {
	history := []StatusHistory{
		{Status: HistoryPending},
		{Status: HistoryTaken},
		{Status: HistoryDeliveryAttemptFailed},
		{Status: HistoryReadyForDelivery},
		{Status: HistoryDeliveryAttemptFailed},
	}

	req := &Request{Status: RequestStatusPending}
	for _, h := range history {
		req.ApplyHistory(h.Status, time.Now())
	}

	status, attempts := ProjectRequest(history)
	if status != req.Status || attempts != req.DeliveryAttempts {
		t.Errorf("projection (%s, %d) differs from incremental (%s, %d)",
			status, attempts, req.Status, req.DeliveryAttempts)
	}
	if attempts != 2 {
		t.Errorf("expected 2 attempts, got %d", attempts)
	}

	if got := DeliveryAttempts(history); len(got) != 2 {
		t.Errorf("expected 2 delivery attempts, got %d", len(got))
	}
}

func TestParseHistoryStatus(t *testing.T) {
	for _, s := range []string{"pending", "taken", "ready_for_delivery", "delivered", "delivery_attempt_failed"} {
		if _, ok := ParseHistoryStatus(s); !ok {
			t.Errorf("%s should parse", s)
		}
	}
	if _, ok := ParseHistoryStatus("lost"); ok {
		t.Error("unknown status should not parse")
	}
}

func TestIsForward(t *testing.T) {
	if !IsForward(RequestStatusPending, HistoryDelivered) {
		t.Error("skipping ahead is forward")
	}
	if IsForward(RequestStatusDelivered, HistoryTaken) {
		t.Error("delivered → taken is backward")
	}
	if !IsForward(RequestStatusDelivered, HistoryDeliveryAttemptFailed) {
		t.Error("failed attempt never moves status")
	}
}

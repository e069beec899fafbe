package mq

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestDeliveryEvent(t *testing.T) {
	runID, userID := uuid.New(), uuid.New()
	at := time.Date(2025, 10, 24, 18, 30, 0, 0, time.UTC)

	msg := NewEventMessage(Event{
		Key:        RoutingKeyRunAdvanced,
		RunID:      runID,
		UserID:     userID,
		Status:     "in_progress",
		StopNumber: 2,
		OccurredAt: at,
	})
	if msg.Type != RoutingKeyRunAdvanced || !msg.Timestamp.Equal(at) {
		t.Errorf("unexpected envelope: %+v", msg)
	}

	body, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	d := &Delivery{Key: RoutingKeyRunAdvanced, Body: body}
	ev, err := d.Event()
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	if ev.Key != RoutingKeyRunAdvanced {
		t.Errorf("key must come from the delivery, got %q", ev.Key)
	}
	if ev.RunID != runID || ev.UserID != userID || ev.StopNumber != 2 || !ev.OccurredAt.Equal(at) {
		t.Errorf("unexpected event: %+v", ev)
	}
	if ev.RequestID != nil {
		t.Error("request_id should stay empty for run events")
	}
}

func TestNewEventMessageDefaultsTimestamp(t *testing.T) {
	before := time.Now().UTC()
	msg := NewEventMessage(Event{Key: RoutingKeyTeamJoined})
	if msg.Timestamp.Before(before) {
		t.Errorf("timestamp should default to now, got %s", msg.Timestamp)
	}
	if _, err := uuid.Parse(msg.ID); err != nil {
		t.Errorf("message id should be a UUID: %v", err)
	}
}

func TestDeliveryEventMalformed(t *testing.T) {
	d := &Delivery{Key: RoutingKeyRunCreated, Body: []byte("not json")}
	if _, err := d.Event(); err == nil {
		t.Error("expected decode error")
	}
}

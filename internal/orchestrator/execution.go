package orchestrator

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/Outreach/internal/domain"
	"github.com/shaiso/Outreach/internal/mq"
	"github.com/shaiso/Outreach/internal/repo"
)

// DeliveryInput — что команда записала на остановке.
type DeliveryInput struct {
	RunID          uuid.UUID
	LocationID     uuid.UUID
	MealsDelivered int
	Notes          string
	UserID         uuid.UUID
}

// SightingInput — встреча с friend.
type SightingInput struct {
	FriendID   uuid.UUID
	LocationID uuid.UUID

	// RunID — выезд, во время которого встретили. Nil — запись вне выезда.
	RunID *uuid.UUID

	Notes  string
	UserID uuid.UUID

	// ClientRequestID — ключ идемпотентности офлайн-очереди устройства.
	ClientRequestID string
}

// RecordStopDelivery записывает доставку на остановке.
//
// Одна запись на пару (run, location): повторный вызов перезаписывает
// предыдущий, выигрывает последняя запись. Принимается для in_progress
// и для completed (досинхронизация офлайн-устройства после завершения).
func (o *Orchestrator) RecordStopDelivery(ctx context.Context, in DeliveryInput) (*domain.RunStopDelivery, error) {
	if in.MealsDelivered < 0 {
		return nil, o.finish("record_stop_delivery", ErrNegativeMeals)
	}

	d := &domain.RunStopDelivery{
		ID:             uuid.New(),
		RunID:          in.RunID,
		LocationID:     in.LocationID,
		MealsDelivered: in.MealsDelivered,
		Notes:          in.Notes,
		RecordedBy:     in.UserID,
	}

	err := o.inFeedTx(ctx, func(r repo.Repos, now time.Time) error {
		d.VisitedAt, d.UpdatedAt = now, now

		run, err := loadRun(ctx, r, in.RunID, false)
		if err != nil {
			return err
		}
		switch run.Status {
		case domain.RunStatusScheduled:
			return domain.NewValidationError("status", "run not started")
		case domain.RunStatusCancelled:
			return domain.NewValidationError("status", "run is cancelled")
		}

		route, err := loadRoute(ctx, r, run.RouteID)
		if err != nil {
			return err
		}
		if !route.Contains(in.LocationID) {
			return ErrLocationNotOnRoute
		}

		return r.Deliveries.Upsert(ctx, d)
	})
	if err := o.finish("record_stop_delivery", err, "run_id", in.RunID, "location_id", in.LocationID); err != nil {
		return nil, err
	}

	o.publish(ctx, mq.Event{
		Key:        mq.RoutingKeyDeliveryRecorded,
		RunID:      d.RunID,
		LocationID: &d.LocationID,
		UserID:     in.UserID,
	})
	return d, nil
}

// SpotFriend записывает встречу с friend во время выезда.
// Остановка должна принадлежать маршруту выезда.
func (o *Orchestrator) SpotFriend(ctx context.Context, in SightingInput) (*domain.FriendSighting, error) {
	if in.RunID == nil || *in.RunID == uuid.Nil {
		return nil, o.finish("spot_friend", domain.NewValidationError("run_id", "run is required"))
	}

	runID := *in.RunID
	r := o.store.Repos()

	check := func() error {
		run, err := loadRun(ctx, r, runID, false)
		if err != nil {
			return err
		}
		route, err := loadRoute(ctx, r, run.RouteID)
		if err != nil {
			return err
		}
		if !route.Contains(in.LocationID) {
			return ErrLocationNotOnRoute
		}
		return nil
	}
	if err := o.finish("spot_friend", check(), "run_id", runID); err != nil {
		return nil, err
	}

	return o.RecordSighting(ctx, in)
}

// RecordSighting добавляет запись о встрече и обновляет last_contact friend
// в одной транзакции. Повтор с тем же ClientRequestID возвращает
// сохранённую запись.
func (o *Orchestrator) RecordSighting(ctx context.Context, in SightingInput) (*domain.FriendSighting, error) {
	if in.FriendID == uuid.Nil {
		return nil, o.finish("record_sighting", domain.NewValidationError("friend_id", "friend is required"))
	}
	if in.LocationID == uuid.Nil {
		return nil, o.finish("record_sighting", domain.NewValidationError("location_id", "location is required"))
	}

	s := &domain.FriendSighting{
		ID:              uuid.New(),
		FriendID:        in.FriendID,
		LocationID:      in.LocationID,
		RunID:           in.RunID,
		Notes:           in.Notes,
		RecordedBy:      in.UserID,
		ClientRequestID: in.ClientRequestID,
	}

	var existing *domain.FriendSighting
	err := o.inFeedTx(ctx, func(r repo.Repos, now time.Time) error {
		s.CreatedAt = now

		if in.ClientRequestID != "" {
			prev, err := r.Sightings.GetByClientID(ctx, in.FriendID, in.ClientRequestID)
			if err == nil {
				existing = prev
				return nil
			}
			if !errors.Is(err, repo.ErrNotFound) {
				return err
			}
		}

		if _, err := r.Routes.GetLocation(ctx, in.LocationID); err != nil {
			return notFound(err, "location", in.LocationID)
		}
		if err := r.Sightings.TouchFriend(ctx, in.FriendID, now); err != nil {
			return notFound(err, "friend", in.FriendID)
		}

		err := r.Sightings.Create(ctx, s)
		if errors.Is(err, repo.ErrAlreadyExists) {
			return errDuplicate
		}
		return err
	})
	if errors.Is(err, errDuplicate) {
		existing, err = o.store.Repos().Sightings.GetByClientID(ctx, in.FriendID, in.ClientRequestID)
	}
	if err := o.finish("record_sighting", err, "friend_id", in.FriendID, "location_id", in.LocationID); err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	event := mq.Event{
		Key:        mq.RoutingKeyFriendSighted,
		LocationID: &s.LocationID,
		FriendID:   &s.FriendID,
		UserID:     in.UserID,
	}
	if s.RunID != nil {
		event.RunID = *s.RunID
	}
	o.publish(ctx, event)
	return s, nil
}

// ExpectedFriends возвращает последнюю встречу с каждым friend на каждой
// остановке маршрута.
func (o *Orchestrator) ExpectedFriends(ctx context.Context, routeID uuid.UUID) ([]domain.ExpectedFriend, error) {
	r := o.store.Repos()

	list := func() ([]domain.ExpectedFriend, error) {
		if _, err := r.Routes.GetRoute(ctx, routeID); err != nil {
			return nil, notFound(err, "route", routeID)
		}
		return r.Sightings.LatestOnRoute(ctx, routeID)
	}

	expected, err := list()
	if err := o.finish("expected_friends", err, "route_id", routeID); err != nil {
		return nil, err
	}
	return expected, nil
}

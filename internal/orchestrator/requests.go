package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/Outreach/internal/domain"
	"github.com/shaiso/Outreach/internal/mq"
	"github.com/shaiso/Outreach/internal/repo"
	"github.com/shaiso/Outreach/internal/telemetry"
)

// StatusInput — новая запись журнала статусов запроса.
type StatusInput struct {
	RequestID uuid.UUID
	Status    string
	Note      string
	UserID    uuid.UUID

	// ClientRequestID — ключ идемпотентности офлайн-очереди устройства.
	ClientRequestID string
}

// StatusResult — запись журнала и запрос после её проекции.
type StatusResult struct {
	Entry   domain.StatusHistory `json:"entry"`
	Request domain.Request       `json:"request"`

	// Replayed — запись с этим ClientRequestID уже была, ничего не добавлено.
	Replayed bool `json:"replayed"`
}

// CreateRequest создаёт запрос friend'а в статусе pending.
// Первая запись журнала — pending, чтобы журнал был полным.
func (o *Orchestrator) CreateRequest(ctx context.Context, in domain.NewRequestInput) (*domain.Request, error) {
	if err := in.Validate(); err != nil {
		return nil, o.finish("create_request", err)
	}

	req := &domain.Request{
		ID:          uuid.New(),
		FriendID:    in.FriendID,
		LocationID:  in.LocationID,
		RunID:       in.RunID,
		Description: in.Description,
		Status:      domain.RequestStatusPending,
		CreatedBy:   in.CreatedBy,
	}

	err := o.inFeedTx(ctx, func(r repo.Repos, now time.Time) error {
		req.CreatedAt, req.UpdatedAt = now, now

		if _, err := r.Routes.GetFriend(ctx, in.FriendID); err != nil {
			return notFound(err, "friend", in.FriendID)
		}
		if _, err := r.Routes.GetLocation(ctx, in.LocationID); err != nil {
			return notFound(err, "location", in.LocationID)
		}
		if in.RunID != nil {
			if _, err := loadRun(ctx, r, *in.RunID, false); err != nil {
				return err
			}
		}

		if err := r.Requests.Create(ctx, req); err != nil {
			return err
		}
		return r.Requests.AppendHistory(ctx, &domain.StatusHistory{
			ID:        uuid.New(),
			RequestID: req.ID,
			Status:    domain.HistoryPending,
			UserID:    in.CreatedBy,
			CreatedAt: now,
		})
	})
	if err := o.finish("create_request", err, "friend_id", in.FriendID); err != nil {
		return nil, err
	}

	event := mq.Event{
		Key:        mq.RoutingKeyRequestCreated,
		RequestID:  &req.ID,
		LocationID: &req.LocationID,
		FriendID:   &req.FriendID,
		UserID:     in.CreatedBy,
		Status:     string(req.Status),
	}
	if req.RunID != nil {
		event.RunID = *req.RunID
	}
	o.publish(ctx, event)
	return req, nil
}

// GetRequest возвращает запрос по ID.
func (o *Orchestrator) GetRequest(ctx context.Context, requestID uuid.UUID) (*domain.Request, error) {
	req, err := o.store.Repos().Requests.GetByID(ctx, requestID)
	if err := o.finish("get_request", notFound(err, "request", requestID), "request_id", requestID); err != nil {
		return nil, err
	}
	return req, nil
}

// AppendStatus добавляет запись в журнал статусов и пересчитывает проекцию.
//
// delivered делает запрос доставленным из любого статуса;
// delivery_attempt_failed статус не меняет и увеличивает счётчик попыток.
// Переход назад принимается и логируется, если не включён строгий порядок.
func (o *Orchestrator) AppendStatus(ctx context.Context, in StatusInput) (*StatusResult, error) {
	status, ok := domain.ParseHistoryStatus(in.Status)
	if !ok {
		return nil, o.finish("append_status", domain.NewValidationError("status", fmt.Sprintf("unknown status %q", in.Status)))
	}

	logger := telemetry.WithRequestID(o.logger, in.RequestID.String())
	h := &domain.StatusHistory{
		ID:              uuid.New(),
		RequestID:       in.RequestID,
		Status:          status,
		Note:            in.Note,
		UserID:          in.UserID,
		ClientRequestID: in.ClientRequestID,
	}

	var result *StatusResult
	err := o.inFeedTx(ctx, func(r repo.Repos, now time.Time) error {
		h.CreatedAt = now

		req, err := r.Requests.GetForUpdate(ctx, in.RequestID)
		if err != nil {
			return notFound(err, "request", in.RequestID)
		}

		if in.ClientRequestID != "" {
			prev, err := r.Requests.GetHistoryByClientID(ctx, in.RequestID, in.ClientRequestID)
			if err == nil {
				result = &StatusResult{Entry: *prev, Request: *req, Replayed: true}
				return nil
			}
			if !errors.Is(err, repo.ErrNotFound) {
				return err
			}
		}

		if !domain.IsForward(req.Status, status) {
			if o.strictStatusOrder {
				return domain.NewValidationError("status",
					fmt.Sprintf("cannot move request from %s back to %s", req.Status, status))
			}
			logger.Info("out-of-order status accepted", "from", req.Status, "to", status)
		}

		if err := r.Requests.AppendHistory(ctx, h); err != nil {
			if errors.Is(err, repo.ErrAlreadyExists) {
				return errDuplicate
			}
			return err
		}

		req.ApplyHistory(h.Status, now)
		if err := r.Requests.UpdateProjection(ctx, req); err != nil {
			return err
		}

		result = &StatusResult{Entry: *h, Request: *req}
		return nil
	})
	if errors.Is(err, errDuplicate) {
		result, err = o.replayStatus(ctx, in)
	}
	if err := o.finish("append_status", err, "request_id", in.RequestID); err != nil {
		return nil, err
	}
	if result.Replayed {
		return result, nil
	}
	telemetry.StatusAppends.WithLabelValues(string(result.Entry.Status)).Inc()

	event := mq.Event{
		Key:       mq.RoutingKeyRequestStatus,
		RequestID: &result.Request.ID,
		UserID:    in.UserID,
		Status:    string(result.Entry.Status),
	}
	if result.Request.RunID != nil {
		event.RunID = *result.Request.RunID
	}
	o.publish(ctx, event)
	return result, nil
}

// replayStatus читает запись, которую параллельный повтор успел вставить первым.
func (o *Orchestrator) replayStatus(ctx context.Context, in StatusInput) (*StatusResult, error) {
	r := o.store.Repos()
	prev, err := r.Requests.GetHistoryByClientID(ctx, in.RequestID, in.ClientRequestID)
	if err != nil {
		return nil, err
	}
	req, err := r.Requests.GetByID(ctx, in.RequestID)
	if err != nil {
		return nil, notFound(err, "request", in.RequestID)
	}
	return &StatusResult{Entry: *prev, Request: *req, Replayed: true}, nil
}

// GetHistory возвращает журнал статусов запроса от старых записей к новым.
func (o *Orchestrator) GetHistory(ctx context.Context, requestID uuid.UUID) ([]domain.StatusHistory, error) {
	r := o.store.Repos()

	list := func() ([]domain.StatusHistory, error) {
		if _, err := r.Requests.GetByID(ctx, requestID); err != nil {
			return nil, notFound(err, "request", requestID)
		}
		return r.Requests.ListHistory(ctx, requestID)
	}

	history, err := list()
	if err := o.finish("get_history", err, "request_id", requestID); err != nil {
		return nil, err
	}
	return history, nil
}

// GetDeliveryAttempts возвращает только попытки доставки:
// delivered и delivery_attempt_failed, в порядке журнала.
func (o *Orchestrator) GetDeliveryAttempts(ctx context.Context, requestID uuid.UUID) ([]domain.StatusHistory, error) {
	history, err := o.GetHistory(ctx, requestID)
	if err != nil {
		return nil, err
	}
	return domain.DeliveryAttempts(history), nil
}

// ListRunRequests возвращает запросы в статусе status, прикреплённые к
// выезду или не назначенные, но стоящие на остановках его маршрута.
func (o *Orchestrator) ListRunRequests(ctx context.Context, runID uuid.UUID, status domain.RequestStatus) ([]domain.Request, error) {
	if !status.Valid() {
		return nil, o.finish("list_run_requests", domain.NewValidationError("status", fmt.Sprintf("unknown request status %q", status)))
	}

	r := o.store.Repos()
	list := func() ([]domain.Request, error) {
		run, err := loadRun(ctx, r, runID, false)
		if err != nil {
			return nil, err
		}
		return r.Requests.ListForRunOrUnassigned(ctx, run.ID, run.RouteID, status)
	}

	requests, err := list()
	if err := o.finish("list_run_requests", err, "run_id", runID); err != nil {
		return nil, err
	}
	return requests, nil
}

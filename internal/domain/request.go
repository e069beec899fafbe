package domain

import (
	"time"

	"github.com/google/uuid"
)

// Request — запрос friend'а на конкретную вещь, привязанный к остановке.
//
// Status — материализованная проекция журнала StatusHistory. Источник
// истины — журнал; поле пересчитывается при каждой записи в него.
type Request struct {
	ID         uuid.UUID `json:"id"`
	FriendID   uuid.UUID `json:"friend_id"`
	LocationID uuid.UUID `json:"location_id"`

	// RunID — выезд, к которому запрос прикреплён явно.
	// Nil — запрос не назначен и попадает в любой выезд по своему маршруту.
	RunID *uuid.UUID `json:"run_id,omitempty"`

	Description string        `json:"description"`
	Status      RequestStatus `json:"status"`

	// DeliveryAttempts — сколько раз записан delivery_attempt_failed.
	DeliveryAttempts int `json:"delivery_attempts"`

	CreatedBy uuid.UUID `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// StatusHistory — неизменяемая запись журнала статусов запроса.
type StatusHistory struct {
	// Seq — монотонный номер записи; задаёт строгий порядок журнала.
	Seq int64 `json:"seq"`

	ID        uuid.UUID     `json:"id"`
	RequestID uuid.UUID     `json:"request_id"`
	Status    HistoryStatus `json:"status"`
	Note      string        `json:"note,omitempty"`
	UserID    uuid.UUID     `json:"user_id"`

	// ClientRequestID — ключ идемпотентности от клиента (повтор offline-очереди).
	ClientRequestID string `json:"client_request_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// ApplyHistory проецирует новую запись журнала на запрос.
//
// Прямой статус становится текущим, delivery_attempt_failed только
// увеличивает счётчик попыток.
func (r *Request) ApplyHistory(h HistoryStatus, at time.Time) {
	if h.IsAttemptFailure() {
		r.DeliveryAttempts++
	} else if s, ok := h.RequestStatus(); ok {
		r.Status = s
	}
	r.UpdatedAt = at
}

// ProjectRequest пересчитывает статус и счётчик попыток по всему журналу.
// Журнал должен быть упорядочен от старых записей к новым.
func ProjectRequest(history []StatusHistory) (RequestStatus, int) {
	status := RequestStatusPending
	attempts := 0
	for _, h := range history {
		if h.Status.IsAttemptFailure() {
			attempts++
			continue
		}
		if s, ok := h.Status.RequestStatus(); ok {
			status = s
		}
	}
	return status, attempts
}

// DeliveryAttempts фильтрует журнал до попыток доставки
// (delivered и delivery_attempt_failed), сохраняя порядок.
func DeliveryAttempts(history []StatusHistory) []StatusHistory {
	out := make([]StatusHistory, 0, len(history))
	for _, h := range history {
		if h.Status.IsDeliveryAttempt() {
			out = append(out, h)
		}
	}
	return out
}

// NewRequestInput — входные данные для нового запроса.
type NewRequestInput struct {
	FriendID    uuid.UUID
	LocationID  uuid.UUID
	RunID       *uuid.UUID
	Description string
	CreatedBy   uuid.UUID
}

// Validate проверяет обязательные поля.
func (in NewRequestInput) Validate() error {
	if in.FriendID == uuid.Nil {
		return NewValidationError("friend_id", "friend is required")
	}
	if in.LocationID == uuid.Nil {
		return NewValidationError("location_id", "location is required")
	}
	if in.Description == "" {
		return NewValidationError("description", "description is required")
	}
	return nil
}

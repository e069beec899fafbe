package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/shaiso/Outreach/internal/domain"
)

// Ответы отдают доменные типы как есть: у них уже есть json теги.

// Run DTOs

// CreateRunRequest — запрос на создание run.
type CreateRunRequest struct {
	RouteID       uuid.UUID `json:"route_id"`
	ScheduledDate string    `json:"scheduled_date"`
	StartTime     string    `json:"start_time,omitempty"`
	EndTime       string    `json:"end_time,omitempty"`
	MealCount     int       `json:"meal_count"`
	Notes         string    `json:"notes,omitempty"`

	// Name принимается, но игнорируется: имя вычисляется сервером.
	Name string `json:"name,omitempty"`
}

// Input конвертирует запрос во вход оркестратора.
func (req CreateRunRequest) Input(createdBy uuid.UUID) domain.NewRunInput {
	return domain.NewRunInput{
		RouteID:       req.RouteID,
		ScheduledDate: req.ScheduledDate,
		StartTime:     req.StartTime,
		EndTime:       req.EndTime,
		MealCount:     req.MealCount,
		Notes:         req.Notes,
		Name:          req.Name,
		CreatedBy:     createdBy,
	}
}

// UpdateRunRequest — частичное обновление run.
type UpdateRunRequest struct {
	// Name принимается, но игнорируется.
	Name *string `json:"name,omitempty"`

	RouteID       *uuid.UUID `json:"route_id,omitempty"`
	ScheduledDate *string    `json:"scheduled_date,omitempty"`
	StartTime     *string    `json:"start_time,omitempty"`
	EndTime       *string    `json:"end_time,omitempty"`
	MealCount     *int       `json:"meal_count,omitempty"`
	Notes         *string    `json:"notes,omitempty"`
}

// Patch конвертирует запрос в domain.RunPatch.
func (req UpdateRunRequest) Patch() (domain.RunPatch, error) {
	patch := domain.RunPatch{
		RouteID:   req.RouteID,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
		MealCount: req.MealCount,
		Notes:     req.Notes,
	}
	if req.ScheduledDate != nil {
		date, err := domain.ParseDate(*req.ScheduledDate)
		if err != nil {
			return domain.RunPatch{}, domain.NewValidationError("scheduled_date", "scheduled date must be YYYY-MM-DD")
		}
		patch.ScheduledDate = &date
	}
	return patch, nil
}

// Execution DTOs

// DeliveryRequest — запись о доставке на остановке.
type DeliveryRequest struct {
	MealsDelivered int    `json:"meals_delivered"`
	Notes          string `json:"notes,omitempty"`
}

// SightingRequest — встреча с friend.
type SightingRequest struct {
	FriendID        uuid.UUID  `json:"friend_id"`
	LocationID      uuid.UUID  `json:"location_id"`
	RunID           *uuid.UUID `json:"run_id,omitempty"`
	Notes           string     `json:"notes,omitempty"`
	ClientRequestID string     `json:"client_request_id,omitempty"`
}

// JoinTeamRequest — добавление в команду. Пустой user_id — текущий пользователь.
type JoinTeamRequest struct {
	UserID *uuid.UUID `json:"user_id,omitempty"`
}

// Request DTOs

// CreateRequestRequest — новый запрос friend'а.
type CreateRequestRequest struct {
	FriendID    uuid.UUID  `json:"friend_id"`
	LocationID  uuid.UUID  `json:"location_id"`
	RunID       *uuid.UUID `json:"run_id,omitempty"`
	Description string     `json:"description"`
}

// AppendStatusRequest — новая запись журнала статусов.
type AppendStatusRequest struct {
	Status          string `json:"status"`
	Note            string `json:"note,omitempty"`
	ClientRequestID string `json:"client_request_id,omitempty"`
}

// HeaderIdempotencyKey — альтернатива client_request_id в теле.
const HeaderIdempotencyKey = "Idempotency-Key"

// decode читает JSON тело. Пустое тело допустимо, если allowEmpty.
func decode(r *http.Request, dst any, allowEmpty bool) error {
	err := json.NewDecoder(r.Body).Decode(dst)
	if errors.Is(err, io.EOF) && allowEmpty {
		return nil
	}
	if err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

// pathID парсит UUID из параметра пути.
func pathID(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(r.PathValue(name))
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid %s", name)
	}
	return id, nil
}

// clientRequestID берёт ключ идемпотентности из тела или заголовка.
func clientRequestID(r *http.Request, fromBody string) string {
	if fromBody != "" {
		return fromBody
	}
	return r.Header.Get(HeaderIdempotencyKey)
}

package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/Outreach/internal/domain"
)

// RunFilter — параметры фильтрации runs.
type RunFilter struct {
	RouteID *uuid.UUID
	Status  domain.RunStatus
	From    *time.Time // scheduled_date >= From
	To      *time.Time // scheduled_date <= To
	Limit   int
	Offset  int
}

// RunStore — хранилище выездов.
type RunStore interface {
	Create(ctx context.Context, run *domain.Run) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Run, error)

	// GetForUpdate читает run с блокировкой строки до конца транзакции.
	GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.Run, error)

	Update(ctx context.Context, run *domain.Run) error
	List(ctx context.Context, filter RunFilter) ([]domain.Run, error)

	// ListStaleScheduled возвращает scheduled runs с датой раньше before.
	ListStaleScheduled(ctx context.Context, before time.Time, limit int) ([]domain.Run, error)
}

// RouteStore — чтение справочных данных: маршруты, остановки, friends.
type RouteStore interface {
	GetRoute(ctx context.Context, id uuid.UUID) (*domain.Route, error)
	ListStops(ctx context.Context, routeID uuid.UUID) ([]domain.Location, error)
	GetLocation(ctx context.Context, id uuid.UUID) (*domain.Location, error)
	GetFriend(ctx context.Context, id uuid.UUID) (*domain.Friend, error)
}

// RequestStore — запросы и их журнал статусов.
type RequestStore interface {
	Create(ctx context.Context, req *domain.Request) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Request, error)
	GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.Request, error)

	// UpdateProjection сохраняет status, delivery_attempts и updated_at.
	UpdateProjection(ctx context.Context, req *domain.Request) error

	// AppendHistory добавляет запись журнала.
	// Возвращает ErrAlreadyExists, если запись с тем же client_request_id уже есть.
	AppendHistory(ctx context.Context, h *domain.StatusHistory) error

	GetHistoryByClientID(ctx context.Context, requestID uuid.UUID, clientRequestID string) (*domain.StatusHistory, error)

	// ListHistory возвращает журнал от старых записей к новым.
	ListHistory(ctx context.Context, requestID uuid.UUID) ([]domain.StatusHistory, error)

	// ListForRunOrUnassigned — запросы, прикреплённые к run, или не назначенные,
	// но стоящие на остановках маршрута run, в заданном статусе.
	ListForRunOrUnassigned(ctx context.Context, runID, routeID uuid.UUID, status domain.RequestStatus) ([]domain.Request, error)

	// ListUpdatedSince — запросы, прикреплённые к run, с updated_at > since.
	ListUpdatedSince(ctx context.Context, runID uuid.UUID, since time.Time) ([]domain.Request, error)
}

// TeamStore — состав команды выезда.
type TeamStore interface {
	// Add добавляет участника. Если он уже в команде, возвращает ErrAlreadyExists
	// и заполняет m сохранённой записью.
	Add(ctx context.Context, m *domain.TeamMember) error

	Remove(ctx context.Context, runID, userID uuid.UUID) error

	// List возвращает участников по joined_at (затем по порядку вставки).
	List(ctx context.Context, runID uuid.UUID) ([]domain.TeamMember, error)
}

// DeliveryStore — записи о доставке на остановках.
type DeliveryStore interface {
	// Upsert вставляет или перезаписывает запись по (run_id, location_id).
	// После вызова d содержит сохранённую строку.
	Upsert(ctx context.Context, d *domain.RunStopDelivery) error

	ListByRun(ctx context.Context, runID uuid.UUID) ([]domain.RunStopDelivery, error)
	ListUpdatedSince(ctx context.Context, runID uuid.UUID, since time.Time) ([]domain.RunStopDelivery, error)
}

// SightingStore — журнал встреч с friends.
type SightingStore interface {
	// Create добавляет запись. ErrAlreadyExists — повтор client_request_id
	// для того же friend.
	Create(ctx context.Context, s *domain.FriendSighting) error

	// GetByClientID ищет запись по ключу идемпотентности в пределах friend.
	GetByClientID(ctx context.Context, friendID uuid.UUID, clientRequestID string) (*domain.FriendSighting, error)

	// TouchFriend обновляет last_contact. ErrNotFound, если friend нет.
	TouchFriend(ctx context.Context, friendID uuid.UUID, at time.Time) error

	// LatestOnRoute — последняя встреча на каждую пару (friend, location) маршрута.
	LatestOnRoute(ctx context.Context, routeID uuid.UUID) ([]domain.ExpectedFriend, error)

	// ListOnRouteSince — встречи на остановках маршрута с created_at > since.
	ListOnRouteSince(ctx context.Context, routeID uuid.UUID, since time.Time) ([]domain.FriendSighting, error)
}

// Repos — набор репозиториев, привязанных к одному соединению или транзакции.
type Repos struct {
	Runs       RunStore
	Routes     RouteStore
	Requests   RequestStore
	Team       TeamStore
	Deliveries DeliveryStore
	Sightings  SightingStore
}

// Store — точка входа в хранилище.
//
// Каждая мутирующая операция orchestrator'а выполняется целиком внутри InTx:
// либо всё записано, либо ничего.
type Store interface {
	// Repos возвращает репозитории вне транзакции (для чтения).
	Repos() Repos

	// InTx выполняет fn в одной транзакции. Ошибка из fn откатывает транзакцию.
	InTx(ctx context.Context, fn func(r Repos) error) error
}

// OpenTxWatcher — хранилище, которое видит открытые транзакции всех
// процессов, а не только текущего.
type OpenTxWatcher interface {
	// OldestOpenTx возвращает начало самой старой открытой транзакции
	// или nil, если открытых нет.
	OldestOpenTx(ctx context.Context) (*time.Time, error)
}

package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shaiso/Outreach/internal/domain"
)

const requestColumns = `
	r.id, r.friend_id, r.location_id, r.run_id, r.description, r.status,
	r.delivery_attempts, r.created_by, r.created_at, r.updated_at`

const historyColumns = `seq, id, request_id, status, note, user_id, client_request_id, created_at`

// RequestRepo — репозиторий запросов и журнала их статусов.
type RequestRepo struct {
	db DBTX
}

// NewRequestRepo создаёт новый RequestRepo.
func NewRequestRepo(db DBTX) *RequestRepo {
	return &RequestRepo{db: db}
}

// Create создаёт новый запрос.
func (r *RequestRepo) Create(ctx context.Context, req *domain.Request) error {
	query := `
		INSERT INTO requests (id, friend_id, location_id, run_id, description, status,
		                      delivery_attempts, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := r.db.Exec(ctx, query,
		req.ID,
		req.FriendID,
		req.LocationID,
		nullUUID(req.RunID),
		req.Description,
		req.Status,
		req.DeliveryAttempts,
		req.CreatedBy,
		req.CreatedAt,
		req.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert request: %w", err)
	}
	return nil
}

// GetByID возвращает запрос по ID.
func (r *RequestRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Request, error) {
	query := `SELECT ` + requestColumns + ` FROM requests r WHERE r.id = $1`
	return scanRequest(r.db.QueryRow(ctx, query, id))
}

// GetForUpdate возвращает запрос и блокирует строку до конца транзакции.
func (r *RequestRepo) GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.Request, error) {
	query := `SELECT ` + requestColumns + ` FROM requests r WHERE r.id = $1 FOR UPDATE`
	return scanRequest(r.db.QueryRow(ctx, query, id))
}

// UpdateProjection сохраняет проекцию журнала на запрос.
func (r *RequestRepo) UpdateProjection(ctx context.Context, req *domain.Request) error {
	result, err := r.db.Exec(ctx, `
		UPDATE requests
		SET status = $2, delivery_attempts = $3, updated_at = $4
		WHERE id = $1
	`, req.ID, req.Status, req.DeliveryAttempts, req.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update request projection: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// AppendHistory добавляет запись в журнал. Seq назначает БД.
func (r *RequestRepo) AppendHistory(ctx context.Context, h *domain.StatusHistory) error {
	query := `
		INSERT INTO request_status_history (id, request_id, status, note, user_id, client_request_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (request_id, client_request_id) WHERE client_request_id IS NOT NULL DO NOTHING
		RETURNING seq
	`
	err := r.db.QueryRow(ctx, query,
		h.ID,
		h.RequestID,
		h.Status,
		h.Note,
		h.UserID,
		nullString(h.ClientRequestID),
		h.CreatedAt,
	).Scan(&h.Seq)
	if errors.Is(err, pgx.ErrNoRows) {
		// ON CONFLICT DO NOTHING не возвращает строк
		return ErrAlreadyExists
	}
	if err != nil {
		return fmt.Errorf("insert status history: %w", err)
	}
	return nil
}

// GetHistoryByClientID возвращает запись журнала по ключу идемпотентности.
func (r *RequestRepo) GetHistoryByClientID(ctx context.Context, requestID uuid.UUID, clientRequestID string) (*domain.StatusHistory, error) {
	query := `SELECT ` + historyColumns + `
		FROM request_status_history
		WHERE request_id = $1 AND client_request_id = $2
	`
	return scanHistory(r.db.QueryRow(ctx, query, requestID, clientRequestID))
}

// ListHistory возвращает журнал запроса от старых записей к новым.
func (r *RequestRepo) ListHistory(ctx context.Context, requestID uuid.UUID) ([]domain.StatusHistory, error) {
	query := `SELECT ` + historyColumns + `
		FROM request_status_history
		WHERE request_id = $1
		ORDER BY seq ASC
	`
	rows, err := r.db.Query(ctx, query, requestID)
	if err != nil {
		return nil, fmt.Errorf("list status history: %w", err)
	}
	return collect(rows, scanHistory)
}

// ListForRunOrUnassigned возвращает запросы в статусе status, которые либо
// прикреплены к runID, либо не назначены и стоят на остановках routeID.
func (r *RequestRepo) ListForRunOrUnassigned(ctx context.Context, runID, routeID uuid.UUID, status domain.RequestStatus) ([]domain.Request, error) {
	query := `SELECT ` + requestColumns + `
		FROM requests r
		WHERE r.status = $3
		  AND (r.run_id = $1
		       OR (r.run_id IS NULL AND r.location_id IN (SELECT id FROM locations WHERE route_id = $2)))
		ORDER BY r.created_at ASC
	`
	rows, err := r.db.Query(ctx, query, runID, routeID, status)
	if err != nil {
		return nil, fmt.Errorf("list requests for run: %w", err)
	}
	return collect(rows, scanRequest)
}

// ListUpdatedSince возвращает запросы run, изменённые строго после since.
func (r *RequestRepo) ListUpdatedSince(ctx context.Context, runID uuid.UUID, since time.Time) ([]domain.Request, error) {
	query := `SELECT ` + requestColumns + `
		FROM requests r
		WHERE r.run_id = $1 AND r.updated_at > $2
		ORDER BY r.updated_at ASC
	`
	rows, err := r.db.Query(ctx, query, runID, since)
	if err != nil {
		return nil, fmt.Errorf("list updated requests: %w", err)
	}
	return collect(rows, scanRequest)
}

func scanRequest(row pgx.Row) (*domain.Request, error) {
	var req domain.Request
	err := row.Scan(
		&req.ID,
		&req.FriendID,
		&req.LocationID,
		&req.RunID,
		&req.Description,
		&req.Status,
		&req.DeliveryAttempts,
		&req.CreatedBy,
		&req.CreatedAt,
		&req.UpdatedAt,
	)
	if err != nil {
		return nil, notFound(err, "request")
	}
	return &req, nil
}

func scanHistory(row pgx.Row) (*domain.StatusHistory, error) {
	var h domain.StatusHistory
	var clientID *string
	err := row.Scan(
		&h.Seq,
		&h.ID,
		&h.RequestID,
		&h.Status,
		&h.Note,
		&h.UserID,
		&clientID,
		&h.CreatedAt,
	)
	if err != nil {
		return nil, notFound(err, "status history")
	}
	h.ClientRequestID = derefString(clientID)
	return &h, nil
}

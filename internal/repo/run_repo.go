package repo

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shaiso/Outreach/internal/domain"
)

const runColumns = `
	id, route_id, name, status, scheduled_date, start_time, end_time, meal_count, notes,
	current_location_id, current_stop_number, created_by, started_at, finished_at,
	created_at, updated_at`

// RunRepo — репозиторий для работы с runs.
type RunRepo struct {
	db DBTX
}

// NewRunRepo создаёт новый RunRepo.
func NewRunRepo(db DBTX) *RunRepo {
	return &RunRepo{db: db}
}

// Create создаёт новый run.
func (r *RunRepo) Create(ctx context.Context, run *domain.Run) error {
	query := `
		INSERT INTO runs (id, route_id, name, status, scheduled_date, start_time, end_time,
		                  meal_count, notes, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err := r.db.Exec(ctx, query,
		run.ID,
		run.RouteID,
		run.Name,
		run.Status,
		run.ScheduledDate,
		nullString(run.StartTime),
		nullString(run.EndTime),
		run.MealCount,
		nullString(run.Notes),
		run.CreatedBy,
		run.CreatedAt,
		run.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// GetByID возвращает run по ID.
func (r *RunRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs WHERE id = $1`
	return scanRun(r.db.QueryRow(ctx, query, id))
}

// GetForUpdate возвращает run и блокирует строку до конца транзакции.
// Два параллельных advance на одном run выполняются строго по очереди.
func (r *RunRepo) GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs WHERE id = $1 FOR UPDATE`
	return scanRun(r.db.QueryRow(ctx, query, id))
}

// Update обновляет run. name не обновляется никогда.
func (r *RunRepo) Update(ctx context.Context, run *domain.Run) error {
	query := `
		UPDATE runs
		SET route_id = $2, status = $3, scheduled_date = $4, start_time = $5, end_time = $6,
		    meal_count = $7, notes = $8, current_location_id = $9, current_stop_number = $10,
		    started_at = $11, finished_at = $12, updated_at = $13
		WHERE id = $1
	`
	result, err := r.db.Exec(ctx, query,
		run.ID,
		run.RouteID,
		run.Status,
		run.ScheduledDate,
		nullString(run.StartTime),
		nullString(run.EndTime),
		run.MealCount,
		nullString(run.Notes),
		nullUUID(run.CurrentLocationID),
		run.CurrentStopNumber,
		run.StartedAt,
		run.FinishedAt,
		run.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update run: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// List возвращает список runs с фильтрацией.
func (r *RunRepo) List(ctx context.Context, filter RunFilter) ([]domain.Run, error) {
	query := `SELECT ` + runColumns + `
		FROM runs
		WHERE ($1::uuid IS NULL OR route_id = $1)
		  AND ($2::text IS NULL OR status = $2)
		  AND ($3::date IS NULL OR scheduled_date >= $3)
		  AND ($4::date IS NULL OR scheduled_date <= $4)
		ORDER BY scheduled_date DESC, created_at DESC
		LIMIT $5 OFFSET $6
	`
	rows, err := r.db.Query(ctx, query,
		nullUUID(filter.RouteID),
		nullString(string(filter.Status)),
		filter.From,
		filter.To,
		filter.Limit,
		filter.Offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return collect(rows, scanRun)
}

// ListStaleScheduled возвращает runs в статусе scheduled с датой раньше before.
func (r *RunRepo) ListStaleScheduled(ctx context.Context, before time.Time, limit int) ([]domain.Run, error) {
	query := `SELECT ` + runColumns + `
		FROM runs
		WHERE status = 'scheduled' AND scheduled_date < $1
		ORDER BY scheduled_date ASC
		LIMIT $2
	`
	rows, err := r.db.Query(ctx, query, before, limit)
	if err != nil {
		return nil, fmt.Errorf("list stale runs: %w", err)
	}
	return collect(rows, scanRun)
}

// scanRun сканирует одну строку в Run.
func scanRun(row pgx.Row) (*domain.Run, error) {
	var run domain.Run
	var startTime, endTime, notes *string

	err := row.Scan(
		&run.ID,
		&run.RouteID,
		&run.Name,
		&run.Status,
		&run.ScheduledDate,
		&startTime,
		&endTime,
		&run.MealCount,
		&notes,
		&run.CurrentLocationID,
		&run.CurrentStopNumber,
		&run.CreatedBy,
		&run.StartedAt,
		&run.FinishedAt,
		&run.CreatedAt,
		&run.UpdatedAt,
	)
	if err != nil {
		return nil, notFound(err, "run")
	}

	run.StartTime = derefString(startTime)
	run.EndTime = derefString(endTime)
	run.Notes = derefString(notes)

	return &run, nil
}

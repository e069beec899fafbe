package repo

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shaiso/Outreach/internal/domain"
)

const deliveryColumns = `id, run_id, location_id, meals_delivered, notes, recorded_by, visited_at, updated_at`

// DeliveryRepo — репозиторий записей о доставке на остановках.
type DeliveryRepo struct {
	db DBTX
}

// NewDeliveryRepo создаёт новый DeliveryRepo.
func NewDeliveryRepo(db DBTX) *DeliveryRepo {
	return &DeliveryRepo{db: db}
}

// Upsert вставляет запись или перезаписывает существующую по (run_id, location_id).
// id первой записи сохраняется.
func (r *DeliveryRepo) Upsert(ctx context.Context, d *domain.RunStopDelivery) error {
	query := `
		INSERT INTO run_stop_deliveries (` + deliveryColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (run_id, location_id) DO UPDATE
		SET meals_delivered = EXCLUDED.meals_delivered,
		    notes           = EXCLUDED.notes,
		    recorded_by     = EXCLUDED.recorded_by,
		    visited_at      = EXCLUDED.visited_at,
		    updated_at      = EXCLUDED.updated_at
		RETURNING ` + deliveryColumns
	row := r.db.QueryRow(ctx, query,
		d.ID,
		d.RunID,
		d.LocationID,
		d.MealsDelivered,
		nullString(d.Notes),
		d.RecordedBy,
		d.VisitedAt,
		d.UpdatedAt,
	)
	stored, err := scanDelivery(row)
	if err != nil {
		return fmt.Errorf("upsert delivery: %w", err)
	}
	*d = *stored
	return nil
}

// ListByRun возвращает все записи run.
func (r *DeliveryRepo) ListByRun(ctx context.Context, runID uuid.UUID) ([]domain.RunStopDelivery, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+deliveryColumns+`
		FROM run_stop_deliveries
		WHERE run_id = $1
		ORDER BY visited_at ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("list deliveries: %w", err)
	}
	return collect(rows, scanDelivery)
}

// ListUpdatedSince возвращает записи run, изменённые строго после since.
func (r *DeliveryRepo) ListUpdatedSince(ctx context.Context, runID uuid.UUID, since time.Time) ([]domain.RunStopDelivery, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+deliveryColumns+`
		FROM run_stop_deliveries
		WHERE run_id = $1 AND updated_at > $2
		ORDER BY updated_at ASC
	`, runID, since)
	if err != nil {
		return nil, fmt.Errorf("list updated deliveries: %w", err)
	}
	return collect(rows, scanDelivery)
}

func scanDelivery(row pgx.Row) (*domain.RunStopDelivery, error) {
	var d domain.RunStopDelivery
	var notes *string
	err := row.Scan(
		&d.ID,
		&d.RunID,
		&d.LocationID,
		&d.MealsDelivered,
		&notes,
		&d.RecordedBy,
		&d.VisitedAt,
		&d.UpdatedAt,
	)
	if err != nil {
		return nil, notFound(err, "delivery")
	}
	d.Notes = derefString(notes)
	return &d, nil
}

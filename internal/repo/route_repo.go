package repo

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shaiso/Outreach/internal/domain"
)

// RouteRepo — чтение маршрутов, остановок и friends.
type RouteRepo struct {
	db DBTX
}

// NewRouteRepo создаёт новый RouteRepo.
func NewRouteRepo(db DBTX) *RouteRepo {
	return &RouteRepo{db: db}
}

// GetRoute возвращает маршрут по ID.
func (r *RouteRepo) GetRoute(ctx context.Context, id uuid.UUID) (*domain.Route, error) {
	var route domain.Route
	err := r.db.QueryRow(ctx, `SELECT id, name FROM routes WHERE id = $1`, id).
		Scan(&route.ID, &route.Name)
	if err != nil {
		return nil, notFound(err, "route")
	}
	return &route, nil
}

// ListStops возвращает остановки маршрута в порядке обхода.
// Совпадающий route_order разрешается по created_at, затем по id.
func (r *RouteRepo) ListStops(ctx context.Context, routeID uuid.UUID) ([]domain.Location, error) {
	query := `
		SELECT id, route_id, name, address, route_order, created_at
		FROM locations
		WHERE route_id = $1
		ORDER BY route_order ASC, created_at ASC, id ASC
	`
	rows, err := r.db.Query(ctx, query, routeID)
	if err != nil {
		return nil, fmt.Errorf("list stops: %w", err)
	}
	return collect(rows, scanLocation)
}

// GetLocation возвращает остановку по ID.
func (r *RouteRepo) GetLocation(ctx context.Context, id uuid.UUID) (*domain.Location, error) {
	query := `
		SELECT id, route_id, name, address, route_order, created_at
		FROM locations
		WHERE id = $1
	`
	return scanLocation(r.db.QueryRow(ctx, query, id))
}

// GetFriend возвращает friend по ID.
func (r *RouteRepo) GetFriend(ctx context.Context, id uuid.UUID) (*domain.Friend, error) {
	var f domain.Friend
	err := r.db.QueryRow(ctx, `
		SELECT id, name, nickname, last_contact, updated_at
		FROM friends
		WHERE id = $1
	`, id).Scan(&f.ID, &f.Name, &f.Nickname, &f.LastContact, &f.UpdatedAt)
	if err != nil {
		return nil, notFound(err, "friend")
	}
	return &f, nil
}

func scanLocation(row pgx.Row) (*domain.Location, error) {
	var loc domain.Location
	err := row.Scan(
		&loc.ID,
		&loc.RouteID,
		&loc.Name,
		&loc.Address,
		&loc.RouteOrder,
		&loc.CreatedAt,
	)
	if err != nil {
		return nil, notFound(err, "location")
	}
	return &loc, nil
}

package repo

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shaiso/Outreach/internal/domain"
)

const sightingColumns = `id, friend_id, location_id, run_id, notes, recorded_by, client_request_id, created_at`

// SightingRepo — журнал встреч с friends.
type SightingRepo struct {
	db DBTX
}

// NewSightingRepo создаёт новый SightingRepo.
func NewSightingRepo(db DBTX) *SightingRepo {
	return &SightingRepo{db: db}
}

// Create добавляет запись о встрече.
func (r *SightingRepo) Create(ctx context.Context, s *domain.FriendSighting) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO friend_sightings (`+sightingColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`,
		s.ID,
		s.FriendID,
		s.LocationID,
		nullUUID(s.RunID),
		nullString(s.Notes),
		s.RecordedBy,
		nullString(s.ClientRequestID),
		s.CreatedAt,
	)
	if isUniqueViolation(err) {
		return ErrAlreadyExists
	}
	if err != nil {
		return fmt.Errorf("insert sighting: %w", err)
	}
	return nil
}

// GetByClientID возвращает встречу friend по ключу идемпотентности.
func (r *SightingRepo) GetByClientID(ctx context.Context, friendID uuid.UUID, clientRequestID string) (*domain.FriendSighting, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+sightingColumns+` FROM friend_sightings
		WHERE friend_id = $1 AND client_request_id = $2
	`, friendID, clientRequestID)
	return scanSighting(row)
}

// TouchFriend обновляет last_contact friend.
func (r *SightingRepo) TouchFriend(ctx context.Context, friendID uuid.UUID, at time.Time) error {
	result, err := r.db.Exec(ctx, `
		UPDATE friends SET last_contact = $2, updated_at = $2 WHERE id = $1
	`, friendID, at)
	if err != nil {
		return fmt.Errorf("touch friend: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// LatestOnRoute возвращает последнюю встречу для каждой пары (friend, location)
// на остановках маршрута.
func (r *SightingRepo) LatestOnRoute(ctx context.Context, routeID uuid.UUID) ([]domain.ExpectedFriend, error) {
	rows, err := r.db.Query(ctx, `
		SELECT DISTINCT ON (s.friend_id, s.location_id)
		       s.friend_id, f.name, s.location_id, s.created_at, s.notes
		FROM friend_sightings s
		JOIN friends f   ON f.id = s.friend_id
		JOIN locations l ON l.id = s.location_id
		WHERE l.route_id = $1
		ORDER BY s.friend_id, s.location_id, s.created_at DESC
	`, routeID)
	if err != nil {
		return nil, fmt.Errorf("latest sightings: %w", err)
	}
	return collect(rows, func(row pgx.Row) (*domain.ExpectedFriend, error) {
		var e domain.ExpectedFriend
		var notes *string
		if err := row.Scan(&e.FriendID, &e.FriendName, &e.LocationID, &e.LastSeenAt, &notes); err != nil {
			return nil, fmt.Errorf("scan expected friend: %w", err)
		}
		e.Notes = derefString(notes)
		return &e, nil
	})
}

// ListOnRouteSince возвращает встречи на остановках маршрута после since.
func (r *SightingRepo) ListOnRouteSince(ctx context.Context, routeID uuid.UUID, since time.Time) ([]domain.FriendSighting, error) {
	rows, err := r.db.Query(ctx, `
		SELECT s.id, s.friend_id, s.location_id, s.run_id, s.notes, s.recorded_by, s.client_request_id, s.created_at
		FROM friend_sightings s
		JOIN locations l ON l.id = s.location_id
		WHERE l.route_id = $1 AND s.created_at > $2
		ORDER BY s.created_at ASC
	`, routeID, since)
	if err != nil {
		return nil, fmt.Errorf("list sightings: %w", err)
	}
	return collect(rows, scanSighting)
}

func scanSighting(row pgx.Row) (*domain.FriendSighting, error) {
	var s domain.FriendSighting
	var notes, clientID *string
	err := row.Scan(
		&s.ID,
		&s.FriendID,
		&s.LocationID,
		&s.RunID,
		&notes,
		&s.RecordedBy,
		&clientID,
		&s.CreatedAt,
	)
	if err != nil {
		return nil, notFound(err, "sighting")
	}
	s.Notes = derefString(notes)
	s.ClientRequestID = derefString(clientID)
	return &s, nil
}

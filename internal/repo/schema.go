package repo

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// schema — DDL всех таблиц. Идемпотентен (IF NOT EXISTS).
//
// routes/locations/friends — справочные данные, их CRUD живёт вне сервиса;
// здесь они объявлены, чтобы работали внешние ключи.
const schema = `
CREATE TABLE IF NOT EXISTS routes (
	id   UUID PRIMARY KEY,
	name TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS locations (
	id          UUID PRIMARY KEY,
	route_id    UUID NOT NULL REFERENCES routes(id),
	name        TEXT NOT NULL,
	address     TEXT NOT NULL DEFAULT '',
	route_order INT NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_locations_route_order ON locations(route_id, route_order);

CREATE TABLE IF NOT EXISTS friends (
	id           UUID PRIMARY KEY,
	name         TEXT NOT NULL,
	nickname     TEXT NOT NULL DEFAULT '',
	last_contact TIMESTAMPTZ,
	updated_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS runs (
	id                  UUID PRIMARY KEY,
	route_id            UUID NOT NULL REFERENCES routes(id),
	name                TEXT NOT NULL,
	status              TEXT NOT NULL CHECK (status IN ('scheduled', 'in_progress', 'completed', 'cancelled')),
	scheduled_date      DATE NOT NULL,
	start_time          TEXT,
	end_time            TEXT,
	meal_count          INT NOT NULL DEFAULT 0 CHECK (meal_count >= 0),
	notes               TEXT,
	current_location_id UUID REFERENCES locations(id),
	current_stop_number INT,
	created_by          UUID NOT NULL,
	started_at          TIMESTAMPTZ,
	finished_at         TIMESTAMPTZ,
	created_at          TIMESTAMPTZ NOT NULL,
	updated_at          TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_runs_status_date ON runs(status, scheduled_date);

CREATE TABLE IF NOT EXISTS requests (
	id                UUID PRIMARY KEY,
	friend_id         UUID NOT NULL REFERENCES friends(id),
	location_id       UUID NOT NULL REFERENCES locations(id),
	run_id            UUID REFERENCES runs(id),
	description       TEXT NOT NULL,
	status            TEXT NOT NULL,
	delivery_attempts INT NOT NULL DEFAULT 0,
	created_by        UUID NOT NULL,
	created_at        TIMESTAMPTZ NOT NULL,
	updated_at        TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_requests_run_updated ON requests(run_id, updated_at);
CREATE INDEX IF NOT EXISTS idx_requests_location_status ON requests(location_id, status);

CREATE TABLE IF NOT EXISTS request_status_history (
	seq               BIGSERIAL PRIMARY KEY,
	id                UUID NOT NULL UNIQUE,
	request_id        UUID NOT NULL REFERENCES requests(id),
	status            TEXT NOT NULL,
	note              TEXT NOT NULL DEFAULT '',
	user_id           UUID NOT NULL,
	client_request_id TEXT,
	created_at        TIMESTAMPTZ NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS uq_history_client_request
	ON request_status_history(request_id, client_request_id)
	WHERE client_request_id IS NOT NULL;

CREATE TABLE IF NOT EXISTS team_members (
	seq       BIGSERIAL,
	run_id    UUID NOT NULL REFERENCES runs(id),
	user_id   UUID NOT NULL,
	joined_at TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (run_id, user_id)
);

CREATE TABLE IF NOT EXISTS run_stop_deliveries (
	id              UUID PRIMARY KEY,
	run_id          UUID NOT NULL REFERENCES runs(id),
	location_id     UUID NOT NULL REFERENCES locations(id),
	meals_delivered INT NOT NULL CHECK (meals_delivered >= 0),
	notes           TEXT,
	recorded_by     UUID NOT NULL,
	visited_at      TIMESTAMPTZ NOT NULL,
	updated_at      TIMESTAMPTZ NOT NULL,
	UNIQUE (run_id, location_id)
);
CREATE INDEX IF NOT EXISTS idx_deliveries_run_updated ON run_stop_deliveries(run_id, updated_at);

CREATE TABLE IF NOT EXISTS friend_sightings (
	id                UUID PRIMARY KEY,
	friend_id         UUID NOT NULL REFERENCES friends(id),
	location_id       UUID NOT NULL REFERENCES locations(id),
	run_id            UUID REFERENCES runs(id),
	notes             TEXT,
	recorded_by       UUID NOT NULL,
	client_request_id TEXT,
	created_at        TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_sightings_location_created ON friend_sightings(location_id, created_at);
ALTER TABLE friend_sightings DROP CONSTRAINT IF EXISTS friend_sightings_client_request_id_key;
CREATE UNIQUE INDEX IF NOT EXISTS uq_sightings_client_request
	ON friend_sightings(friend_id, client_request_id)
	WHERE client_request_id IS NOT NULL;
`

// Migrate применяет схему.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shaiso/Outreach/internal/domain"
)

func env(vars map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := vars[key]
		return v, ok
	}
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "outreach.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := LoadFrom("", env(nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Store != StorePostgres {
		t.Errorf("expected store %q, got %q", StorePostgres, cfg.Store)
	}
	if cfg.API.Port != "8080" {
		t.Errorf("expected port 8080, got %q", cfg.API.Port)
	}
	if cfg.Sweeper.StaleAfter != 24*time.Hour {
		t.Errorf("expected stale_after 24h, got %v", cfg.Sweeper.StaleAfter)
	}
	if cfg.Requests.StrictStatusOrder {
		t.Error("strict status order should be off by default")
	}
	if cfg.API.ChangeFeedLag != 2*time.Second {
		t.Errorf("expected change feed lag 2s, got %v", cfg.API.ChangeFeedLag)
	}
}

func TestLoadFileAndEnv(t *testing.T) {
	path := writeFile(t, `
store: postgres
database:
  url: postgresql://file
api:
  port: "9000"
log:
  level: debug
requests:
  strict_status_order: true
sweeper:
  cron: "0 * * * *"
  stale_after: 2h
`)

	cfg, err := LoadFrom(path, env(map[string]string{
		"API_PORT":          "9100",
		"SWEEP_STALE_AFTER": "30m",
		"JWT_SECRET":        "s3cret",
		"CHANGE_FEED_LAG":   "500ms",
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Database.URL != "postgresql://file" {
		t.Errorf("expected db url from file, got %q", cfg.Database.URL)
	}
	if cfg.API.Port != "9100" {
		t.Errorf("env should override file port, got %q", cfg.API.Port)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("expected level debug, got %q", cfg.Log.Level)
	}
	if !cfg.Requests.StrictStatusOrder {
		t.Error("expected strict status order from file")
	}
	if cfg.Sweeper.Cron != "0 * * * *" {
		t.Errorf("expected cron from file, got %q", cfg.Sweeper.Cron)
	}
	if cfg.Sweeper.StaleAfter != 30*time.Minute {
		t.Errorf("expected stale_after 30m, got %v", cfg.Sweeper.StaleAfter)
	}
	if cfg.API.JWTSecret != "s3cret" {
		t.Errorf("expected jwt secret from env, got %q", cfg.API.JWTSecret)
	}
	if cfg.API.ChangeFeedLag != 500*time.Millisecond {
		t.Errorf("expected change feed lag from env, got %v", cfg.API.ChangeFeedLag)
	}
	// Значение по умолчанию, не заданное ни в файле, ни в env
	if cfg.Sweeper.Port != "8082" {
		t.Errorf("expected default sweeper port, got %q", cfg.Sweeper.Port)
	}
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name string
		file string
		env  map[string]string
	}{
		{"unknown store", "", map[string]string{"STORE": "redis"}},
		{"bad bool", "", map[string]string{"STRICT_STATUS_ORDER": "maybe"}},
		{"bad duration", "", map[string]string{"SWEEP_STALE_AFTER": "soon"}},
		{"negative change feed lag", "", map[string]string{"CHANGE_FEED_LAG": "-1s"}},
		{"broken yaml", "store: [", nil},
		{"seed without memory", "seed:\n  friends:\n    - name: Jay\n", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := ""
			if tt.file != "" {
				path = writeFile(t, tt.file)
			}
			if _, err := LoadFrom(path, env(tt.env)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := LoadFrom(filepath.Join(t.TempDir(), "nope.yaml"), env(nil)); err == nil {
		t.Error("expected error for missing file")
	}
}

type seedRecorder struct {
	routes  []domain.Route
	stops   [][]domain.Location
	friends []domain.Friend
}

func (r *seedRecorder) AddRoute(route domain.Route, stops ...domain.Location) {
	r.routes = append(r.routes, route)
	r.stops = append(r.stops, stops)
}

func (r *seedRecorder) AddFriend(f domain.Friend) {
	r.friends = append(r.friends, f)
}

func TestSeedApply(t *testing.T) {
	path := writeFile(t, `
store: memory
seed:
  routes:
    - id: 6f1c2a1e-8a4e-4a55-9d7e-2b1d7f0c9a10
      name: AACo
      stops:
        - name: Library
        - name: Park
          address: 1 Main St
  friends:
    - name: Jay
      nickname: J
`)

	cfg, err := LoadFrom(path, env(nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Seed == nil {
		t.Fatal("expected seed")
	}

	rec := &seedRecorder{}
	if err := cfg.Seed.Apply(rec); err != nil {
		t.Fatalf("apply: %v", err)
	}

	if len(rec.routes) != 1 || rec.routes[0].Name != "AACo" {
		t.Fatalf("unexpected routes: %+v", rec.routes)
	}
	if rec.routes[0].ID.String() != "6f1c2a1e-8a4e-4a55-9d7e-2b1d7f0c9a10" {
		t.Errorf("route id not preserved: %s", rec.routes[0].ID)
	}
	stops := rec.stops[0]
	if len(stops) != 2 || stops[0].RouteOrder != 1 || stops[1].RouteOrder != 2 {
		t.Errorf("stops should be ordered by list position: %+v", stops)
	}
	if stops[1].Address != "1 Main St" {
		t.Errorf("expected address, got %q", stops[1].Address)
	}
	if len(rec.friends) != 1 || rec.friends[0].Nickname != "J" {
		t.Errorf("unexpected friends: %+v", rec.friends)
	}
}

func TestSeedApplyInvalidID(t *testing.T) {
	seed := &Seed{Routes: []SeedRoute{{ID: "not-a-uuid", Name: "R"}}}
	if err := seed.Apply(&seedRecorder{}); err == nil {
		t.Error("expected error for invalid id")
	}
}

package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/shaiso/Outreach/internal/domain"
	"github.com/shaiso/Outreach/internal/orchestrator"
	"github.com/shaiso/Outreach/internal/repo/memory"
	"github.com/shaiso/Outreach/internal/telemetry"
)

// --- Helpers ---

type envelope[T any] struct {
	Data  T           `json:"data"`
	Total int         `json:"total"`
	Error ErrorDetail `json:"error"`
}

type apiFixture struct {
	mux    *http.ServeMux
	route  domain.Route
	stops  []domain.Location
	friend domain.Friend
	user   uuid.UUID
}

func newAPIFixture(t *testing.T, secret string) *apiFixture {
	t.Helper()

	store := memory.New()
	route := domain.Route{ID: uuid.New(), Name: "AACo"}
	stops := []domain.Location{
		{ID: uuid.New(), Name: "Library", RouteOrder: 1},
		{ID: uuid.New(), Name: "Park", RouteOrder: 2},
		{ID: uuid.New(), Name: "Bridge", RouteOrder: 3},
	}
	store.AddRoute(route, stops...)
	friend := domain.Friend{ID: uuid.New(), Name: "Jay"}
	store.AddFriend(friend)

	h := NewHandler(Config{
		Orchestrator: orchestrator.New(orchestrator.Config{
			Store:  store,
			Logger: telemetry.Discard(),
		}),
		JWTSecret: secret,
		Logger:    telemetry.Discard(),
	})
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)

	return &apiFixture{mux: mux, route: route, stops: stops, friend: friend, user: uuid.New()}
}

func (f *apiFixture) request(t *testing.T, method, path string, body any) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(HeaderUserID, f.user.String())
	return req
}

func (f *apiFixture) serve(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	f.mux.ServeHTTP(rec, req)
	return rec
}

func (f *apiFixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	return f.serve(f.request(t, method, path, body))
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) envelope[T] {
	t.Helper()
	var env envelope[T]
	if err := json.NewDecoder(rec.Body).Decode(&env); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return env
}

func expectStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("expected status %d, got %d: %s", want, rec.Code, rec.Body.String())
	}
}

func (f *apiFixture) createRun(t *testing.T) domain.Run {
	t.Helper()
	rec := f.do(t, http.MethodPost, "/api/v1/runs", map[string]any{
		"route_id":       f.route.ID,
		"scheduled_date": "2025-10-24",
		"meal_count":     40,
	})
	expectStatus(t, rec, http.StatusCreated)
	return decodeBody[domain.Run](t, rec).Data
}

// --- Runs ---

func TestCreateRunDerivesName(t *testing.T) {
	f := newAPIFixture(t, "")

	rec := f.do(t, http.MethodPost, "/api/v1/runs", map[string]any{
		"route_id":       f.route.ID,
		"scheduled_date": "2025-10-24",
		"meal_count":     40,
		"name":           "My Custom Name",
	})
	expectStatus(t, rec, http.StatusCreated)

	run := decodeBody[domain.Run](t, rec).Data
	if run.Name != "AACo Friday 2025-10-24" {
		t.Errorf("expected derived name, got %q", run.Name)
	}
	if run.CreatedBy != f.user {
		t.Errorf("expected created_by %s, got %s", f.user, run.CreatedBy)
	}
	if run.Status != domain.RunStatusScheduled {
		t.Errorf("expected scheduled, got %s", run.Status)
	}
}

func TestUpdateRunKeepsName(t *testing.T) {
	f := newAPIFixture(t, "")
	run := f.createRun(t)

	rec := f.do(t, http.MethodPatch, "/api/v1/runs/"+run.ID.String(), map[string]any{
		"name":       "X",
		"meal_count": 50,
	})
	expectStatus(t, rec, http.StatusOK)

	updated := decodeBody[domain.Run](t, rec).Data
	if updated.Name != "AACo Friday 2025-10-24" {
		t.Errorf("name must not change, got %q", updated.Name)
	}
	if updated.MealCount != 50 {
		t.Errorf("expected meal_count 50, got %d", updated.MealCount)
	}
}

func TestCreateRunValidation(t *testing.T) {
	f := newAPIFixture(t, "")

	tests := []struct {
		name  string
		body  map[string]any
		field string
	}{
		{"negative meals", map[string]any{"route_id": f.route.ID, "scheduled_date": "2025-10-24", "meal_count": -5}, "meal_count"},
		{"missing date", map[string]any{"route_id": f.route.ID}, "scheduled_date"},
		{"bad date", map[string]any{"route_id": f.route.ID, "scheduled_date": "24/10/2025"}, "scheduled_date"},
		{"missing route", map[string]any{"scheduled_date": "2025-10-24"}, "route_id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(t, http.MethodPost, "/api/v1/runs", tt.body)
			expectStatus(t, rec, http.StatusUnprocessableEntity)

			env := decodeBody[any](t, rec)
			if env.Error.Code != ErrCodeValidation {
				t.Errorf("expected code %s, got %s", ErrCodeValidation, env.Error.Code)
			}
			if env.Error.Field != tt.field {
				t.Errorf("expected field %q, got %q", tt.field, env.Error.Field)
			}
		})
	}
}

func TestMalformedRequests(t *testing.T) {
	f := newAPIFixture(t, "")
	run := f.createRun(t)

	tests := []struct {
		name   string
		method string
		path   string
		raw    string
	}{
		{"invalid run id", http.MethodGet, "/api/v1/runs/not-a-uuid", ""},
		{"broken json", http.MethodPost, "/api/v1/runs", "{"},
		{"bad since", http.MethodGet, "/api/v1/runs/" + run.ID.String() + "/changes?since=yesterday", ""},
		{"bad route filter", http.MethodGet, "/api/v1/runs?route_id=nope", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, bytes.NewBufferString(tt.raw))
			req.Header.Set(HeaderUserID, f.user.String())
			rec := f.serve(req)
			expectStatus(t, rec, http.StatusBadRequest)
		})
	}
}

func TestGetRunNotFound(t *testing.T) {
	f := newAPIFixture(t, "")

	rec := f.do(t, http.MethodGet, "/api/v1/runs/"+uuid.NewString(), nil)
	expectStatus(t, rec, http.StatusNotFound)

	if env := decodeBody[any](t, rec); env.Error.Code != ErrCodeNotFound {
		t.Errorf("expected NOT_FOUND, got %s", env.Error.Code)
	}
}

func TestListRuns(t *testing.T) {
	f := newAPIFixture(t, "")
	f.createRun(t)
	f.createRun(t)

	rec := f.do(t, http.MethodGet, "/api/v1/runs?status=scheduled", nil)
	expectStatus(t, rec, http.StatusOK)

	env := decodeBody[[]domain.Run](t, rec)
	if env.Total != 2 || len(env.Data) != 2 {
		t.Errorf("expected 2 runs, got total=%d len=%d", env.Total, len(env.Data))
	}

	rec = f.do(t, http.MethodGet, "/api/v1/runs?status=flying", nil)
	expectStatus(t, rec, http.StatusUnprocessableEntity)
}

func TestSequencerOverHTTP(t *testing.T) {
	f := newAPIFixture(t, "")
	run := f.createRun(t)
	base := "/api/v1/runs/" + run.ID.String()

	// advance до старта
	rec := f.do(t, http.MethodPost, base+"/advance", nil)
	expectStatus(t, rec, http.StatusUnprocessableEntity)

	rec = f.do(t, http.MethodPost, base+"/start", nil)
	expectStatus(t, rec, http.StatusOK)
	started := decodeBody[domain.Run](t, rec).Data
	if started.CurrentStopNumber == nil || *started.CurrentStopNumber != 1 {
		t.Fatalf("expected stop 1 after start, got %v", started.CurrentStopNumber)
	}

	steps := []struct {
		action string
		stop   int
		status int
	}{
		{"advance", 2, http.StatusOK},
		{"advance", 3, http.StatusOK},
		{"advance", 3, http.StatusUnprocessableEntity},
		{"retreat", 2, http.StatusOK},
	}
	for _, s := range steps {
		rec := f.do(t, http.MethodPost, base+"/"+s.action, nil)
		expectStatus(t, rec, s.status)
		if s.status != http.StatusOK {
			continue
		}
		got := decodeBody[domain.Run](t, rec).Data
		if got.CurrentStopNumber == nil || *got.CurrentStopNumber != s.stop {
			t.Fatalf("%s: expected stop %d, got %v", s.action, s.stop, got.CurrentStopNumber)
		}
		if *got.CurrentLocationID != f.stops[s.stop-1].ID {
			t.Errorf("%s: location does not match stop number", s.action)
		}
	}

	rec = f.do(t, http.MethodPost, base+"/complete", nil)
	expectStatus(t, rec, http.StatusOK)
	if got := decodeBody[domain.Run](t, rec).Data; got.Status != domain.RunStatusCompleted {
		t.Errorf("expected completed, got %s", got.Status)
	}
}

func TestExecutionContextAndPreparation(t *testing.T) {
	f := newAPIFixture(t, "")
	run := f.createRun(t)
	base := "/api/v1/runs/" + run.ID.String()

	rec := f.do(t, http.MethodGet, base+"/preparation", nil)
	expectStatus(t, rec, http.StatusOK)
	prep := decodeBody[struct {
		Supplies struct {
			Meals    int `json:"meals"`
			Utensils int `json:"utensils"`
		} `json:"supplies"`
		TotalStops int `json:"total_stops"`
	}](t, rec).Data
	if prep.Supplies.Meals != 40 || prep.Supplies.Utensils != 40 {
		t.Errorf("unexpected supplies: %+v", prep.Supplies)
	}
	if prep.TotalStops != 3 {
		t.Errorf("expected 3 stops, got %d", prep.TotalStops)
	}

	rec = f.do(t, http.MethodGet, base+"/context", nil)
	expectStatus(t, rec, http.StatusOK)
	ec := decodeBody[struct {
		Stops []json.RawMessage `json:"stops"`
	}](t, rec).Data
	if len(ec.Stops) != 3 {
		t.Errorf("expected 3 stops in context, got %d", len(ec.Stops))
	}
}

// --- Execution ---

func TestRecordDelivery(t *testing.T) {
	f := newAPIFixture(t, "")
	run := f.createRun(t)
	base := "/api/v1/runs/" + run.ID.String()
	path := base + "/deliveries/" + f.stops[0].ID.String()

	// Выезд не начат
	rec := f.do(t, http.MethodPut, path, map[string]any{"meals_delivered": 5})
	expectStatus(t, rec, http.StatusUnprocessableEntity)

	expectStatus(t, f.do(t, http.MethodPost, base+"/start", nil), http.StatusOK)

	expectStatus(t, f.do(t, http.MethodPut, path, map[string]any{"meals_delivered": 5}), http.StatusOK)
	rec = f.do(t, http.MethodPut, path, map[string]any{"meals_delivered": 8, "notes": "second visit"})
	expectStatus(t, rec, http.StatusOK)

	d := decodeBody[domain.RunStopDelivery](t, rec).Data
	if d.MealsDelivered != 8 {
		t.Errorf("last write should win, got %d", d.MealsDelivered)
	}

	rec = f.do(t, http.MethodPut, path, map[string]any{"meals_delivered": -1})
	expectStatus(t, rec, http.StatusUnprocessableEntity)
	if env := decodeBody[any](t, rec); env.Error.Field != "meals_delivered" {
		t.Errorf("expected field meals_delivered, got %q", env.Error.Field)
	}
}

func TestSightingsAndExpectedFriends(t *testing.T) {
	f := newAPIFixture(t, "")
	run := f.createRun(t)

	body := map[string]any{
		"friend_id":         f.friend.ID,
		"location_id":       f.stops[1].ID,
		"notes":             "by the bench",
		"client_request_id": "sight-1",
	}
	rec := f.do(t, http.MethodPost, "/api/v1/runs/"+run.ID.String()+"/sightings", body)
	expectStatus(t, rec, http.StatusCreated)
	first := decodeBody[domain.FriendSighting](t, rec).Data

	// Повтор из офлайн-очереди
	rec = f.do(t, http.MethodPost, "/api/v1/runs/"+run.ID.String()+"/sightings", body)
	expectStatus(t, rec, http.StatusCreated)
	if again := decodeBody[domain.FriendSighting](t, rec).Data; again.ID != first.ID {
		t.Errorf("replay should return the stored sighting")
	}

	rec = f.do(t, http.MethodGet, "/api/v1/routes/"+f.route.ID.String()+"/expected-friends", nil)
	expectStatus(t, rec, http.StatusOK)
	expected := decodeBody[[]domain.ExpectedFriend](t, rec).Data
	if len(expected) != 1 || expected[0].FriendName != "Jay" || expected[0].LocationID != f.stops[1].ID {
		t.Errorf("unexpected expected friends: %+v", expected)
	}

	rec = f.do(t, http.MethodPost, "/api/v1/sightings", map[string]any{
		"friend_id":   uuid.New(),
		"location_id": f.stops[0].ID,
	})
	expectStatus(t, rec, http.StatusNotFound)
}

func TestTeam(t *testing.T) {
	f := newAPIFixture(t, "")
	run := f.createRun(t)
	base := "/api/v1/runs/" + run.ID.String() + "/team"

	other := uuid.New()
	expectStatus(t, f.do(t, http.MethodPost, base, map[string]any{"user_id": other}), http.StatusOK)

	rec := f.do(t, http.MethodGet, base, nil)
	expectStatus(t, rec, http.StatusOK)
	team := decodeBody[[]domain.TeamMember](t, rec).Data
	if len(team) != 2 || team[0].UserID != f.user {
		t.Fatalf("creator should lead the team: %+v", team)
	}

	expectStatus(t, f.do(t, http.MethodDelete, base+"/"+f.user.String(), nil), http.StatusNoContent)
	expectStatus(t, f.do(t, http.MethodDelete, base+"/"+f.user.String(), nil), http.StatusNotFound)

	rec = f.do(t, http.MethodGet, base, nil)
	team = decodeBody[[]domain.TeamMember](t, rec).Data
	if len(team) != 1 || team[0].UserID != other {
		t.Errorf("next member should lead after removal: %+v", team)
	}

	// Пустое тело — добавить текущего пользователя
	req := f.request(t, http.MethodPost, base, nil)
	expectStatus(t, f.serve(req), http.StatusOK)
}

// --- Requests ---

func TestRequestStatusLifecycle(t *testing.T) {
	f := newAPIFixture(t, "")
	run := f.createRun(t)

	rec := f.do(t, http.MethodPost, "/api/v1/requests", map[string]any{
		"friend_id":   f.friend.ID,
		"location_id": f.stops[0].ID,
		"run_id":      run.ID,
		"description": "size 10 boots",
	})
	expectStatus(t, rec, http.StatusCreated)
	req := decodeBody[domain.Request](t, rec).Data
	statusPath := "/api/v1/requests/" + req.ID.String() + "/status"

	for _, s := range []string{"taken", "ready_for_delivery"} {
		expectStatus(t, f.do(t, http.MethodPost, statusPath, map[string]any{"status": s}), http.StatusCreated)
	}

	rec = f.do(t, http.MethodGet, "/api/v1/runs/"+run.ID.String()+"/requests", nil)
	expectStatus(t, rec, http.StatusOK)
	if ready := decodeBody[[]domain.Request](t, rec).Data; len(ready) != 1 {
		t.Errorf("expected 1 ready request, got %d", len(ready))
	}

	failed := map[string]any{"status": "delivery_attempt_failed", "note": "not there"}
	httpReq := f.request(t, http.MethodPost, statusPath, failed)
	httpReq.Header.Set(HeaderIdempotencyKey, "attempt-1")
	expectStatus(t, f.serve(httpReq), http.StatusCreated)

	// Повтор с тем же ключом: 200 и ничего нового
	httpReq = f.request(t, http.MethodPost, statusPath, failed)
	httpReq.Header.Set(HeaderIdempotencyKey, "attempt-1")
	rec = f.serve(httpReq)
	expectStatus(t, rec, http.StatusOK)
	result := decodeBody[orchestrator.StatusResult](t, rec).Data
	if !result.Replayed {
		t.Error("expected replayed result")
	}
	if result.Request.DeliveryAttempts != 1 {
		t.Errorf("expected 1 attempt, got %d", result.Request.DeliveryAttempts)
	}

	expectStatus(t, f.do(t, http.MethodPost, statusPath, map[string]any{"status": "delivered"}), http.StatusCreated)

	rec = f.do(t, http.MethodGet, "/api/v1/requests/"+req.ID.String()+"/history", nil)
	expectStatus(t, rec, http.StatusOK)
	history := decodeBody[[]domain.StatusHistory](t, rec).Data
	want := []domain.HistoryStatus{"pending", "taken", "ready_for_delivery", "delivery_attempt_failed", "delivered"}
	if len(history) != len(want) {
		t.Fatalf("expected %d history entries, got %d", len(want), len(history))
	}
	for i, h := range history {
		if h.Status != want[i] {
			t.Errorf("history[%d]: expected %s, got %s", i, want[i], h.Status)
		}
	}

	rec = f.do(t, http.MethodGet, "/api/v1/requests/"+req.ID.String()+"/attempts", nil)
	expectStatus(t, rec, http.StatusOK)
	if attempts := decodeBody[[]domain.StatusHistory](t, rec).Data; len(attempts) != 2 {
		t.Errorf("expected 2 attempts, got %d", len(attempts))
	}

	rec = f.do(t, http.MethodGet, "/api/v1/requests/"+req.ID.String(), nil)
	expectStatus(t, rec, http.StatusOK)
	if got := decodeBody[domain.Request](t, rec).Data; got.Status != domain.RequestStatusDelivered {
		t.Errorf("expected delivered, got %s", got.Status)
	}

	rec = f.do(t, http.MethodPost, statusPath, map[string]any{"status": "lost"})
	expectStatus(t, rec, http.StatusUnprocessableEntity)
}

func TestChangesFeed(t *testing.T) {
	f := newAPIFixture(t, "")
	run := f.createRun(t)
	path := "/api/v1/runs/" + run.ID.String() + "/changes"

	rec := f.do(t, http.MethodGet, path, nil)
	expectStatus(t, rec, http.StatusOK)
	first := decodeBody[struct {
		Timestamp time.Time `json:"timestamp"`
	}](t, rec).Data
	if first.Timestamp.IsZero() {
		t.Fatal("expected cursor timestamp")
	}

	rec = f.do(t, http.MethodGet, path+"?since="+first.Timestamp.Format(time.RFC3339Nano), nil)
	expectStatus(t, rec, http.StatusOK)
}

// --- Auth ---

func TestAuthJWT(t *testing.T) {
	const secret = "test-secret"
	f := newAPIFixture(t, secret)

	sign := func(key string, p Principal, exp time.Time) string {
		t.Helper()
		token, err := NewAuthenticator(key).Sign(p, jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(exp)})
		if err != nil {
			t.Fatalf("sign: %v", err)
		}
		return token
	}

	body := map[string]any{"route_id": f.route.ID, "scheduled_date": "2025-10-24"}
	user := uuid.New()

	tests := []struct {
		name   string
		token  string
		status int
	}{
		{"no token", "", http.StatusUnauthorized},
		{"wrong key", sign("other", Principal{UserID: user}, time.Now().Add(time.Hour)), http.StatusUnauthorized},
		{"expired", sign(secret, Principal{UserID: user}, time.Now().Add(-time.Hour)), http.StatusUnauthorized},
		{"valid", sign(secret, Principal{UserID: user, Role: "volunteer"}, time.Now().Add(time.Hour)), http.StatusCreated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := f.request(t, http.MethodPost, "/api/v1/runs", body)
			req.Header.Del(HeaderUserID)
			if tt.token != "" {
				req.Header.Set("Authorization", "Bearer "+tt.token)
			}
			rec := f.serve(req)
			expectStatus(t, rec, tt.status)

			if tt.status == http.StatusCreated {
				if run := decodeBody[domain.Run](t, rec).Data; run.CreatedBy != user {
					t.Errorf("created_by should come from token subject, got %s", run.CreatedBy)
				}
			}
		})
	}
}

func TestAuthDevModeRequiresUser(t *testing.T) {
	f := newAPIFixture(t, "")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/runs", nil)
	rec := f.serve(req)
	expectStatus(t, rec, http.StatusUnauthorized)
}

func TestRecoveryMiddleware(t *testing.T) {
	h := Chain(Recovery(telemetry.Discard()))(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	expectStatus(t, rec, http.StatusInternalServerError)
}

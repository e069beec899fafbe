package cli

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

type recorded struct {
	method, path, query string
	auth, userID        string
	body                map[string]any
}

func newTestServer(t *testing.T, status int, response string) (*httptest.Server, *recorded) {
	t.Helper()
	rec := &recorded{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec.method = r.Method
		rec.path = r.URL.Path
		rec.query = r.URL.RawQuery
		rec.auth = r.Header.Get("Authorization")
		rec.userID = r.Header.Get("X-User-ID")
		if data, _ := io.ReadAll(r.Body); len(data) > 0 {
			json.Unmarshal(data, &rec.body)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		io.WriteString(w, response)
	}))
	t.Cleanup(srv.Close)
	return srv, rec
}

func TestClientListRuns(t *testing.T) {
	srv, rec := newTestServer(t, http.StatusOK,
		`{"data":[{"id":"r1","name":"AACo Friday 2025-10-24","status":"scheduled","scheduled_date":"2025-10-24T00:00:00Z","meal_count":40}],"total":1}`)

	client := NewClient(ClientConfig{BaseURL: srv.URL, Token: "tok"})
	runs, err := client.ListRuns(ListRunsOpts{Status: "scheduled", Limit: 5})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if rec.method != http.MethodGet || rec.path != "/api/v1/runs" {
		t.Errorf("unexpected request %s %s", rec.method, rec.path)
	}
	if rec.query != "limit=5&status=scheduled" {
		t.Errorf("unexpected query %q", rec.query)
	}
	if rec.auth != "Bearer tok" {
		t.Errorf("expected bearer token, got %q", rec.auth)
	}
	if len(runs) != 1 || runs[0].Date() != "2025-10-24" || runs[0].Stop() != "-" {
		t.Errorf("unexpected runs: %+v", runs)
	}
}

func TestClientDevModeHeader(t *testing.T) {
	srv, rec := newTestServer(t, http.StatusOK, `{"data":{"id":"r1","status":"in_progress","current_stop_number":1}}`)

	client := NewClient(ClientConfig{BaseURL: srv.URL, UserID: "u1"})
	run, err := client.RunAction("r1", "start")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if rec.method != http.MethodPost || rec.path != "/api/v1/runs/r1/start" {
		t.Errorf("unexpected request %s %s", rec.method, rec.path)
	}
	if rec.userID != "u1" || rec.auth != "" {
		t.Errorf("expected X-User-ID only, got auth=%q user=%q", rec.auth, rec.userID)
	}
	if run.Stop() != "1" {
		t.Errorf("expected stop 1, got %s", run.Stop())
	}
}

func TestClientAppendStatus(t *testing.T) {
	srv, rec := newTestServer(t, http.StatusOK,
		`{"data":{"entry":{"seq":2,"status":"taken"},"request":{"id":"q1","status":"taken"},"replayed":true}}`)

	client := NewClient(ClientConfig{BaseURL: srv.URL})
	res, err := client.AppendStatus("q1", StatusRequest{Status: "taken", ClientRequestID: "k1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if rec.path != "/api/v1/requests/q1/status" {
		t.Errorf("unexpected path %s", rec.path)
	}
	if rec.body["client_request_id"] != "k1" {
		t.Errorf("client_request_id not sent: %v", rec.body)
	}
	if !res.Replayed || res.Entry.Seq != 2 {
		t.Errorf("unexpected result: %+v", res)
	}
}

func TestClientRecordSightingPath(t *testing.T) {
	tests := []struct {
		name string
		req  SightingRequest
		want string
	}{
		{"standalone", SightingRequest{FriendID: "f1", LocationID: "l1"}, "/api/v1/sightings"},
		{"during run", SightingRequest{FriendID: "f1", LocationID: "l1", RunID: "r1"}, "/api/v1/runs/r1/sightings"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, rec := newTestServer(t, http.StatusCreated, `{"data":{"id":"s1"}}`)
			if _, err := NewClient(ClientConfig{BaseURL: srv.URL}).RecordSighting(tt.req); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if rec.path != tt.want {
				t.Errorf("expected %s, got %s", tt.want, rec.path)
			}
		})
	}
}

func TestClientLeaveTeam(t *testing.T) {
	srv, rec := newTestServer(t, http.StatusNoContent, "")

	if err := NewClient(ClientConfig{BaseURL: srv.URL}).LeaveTeam("r1", "u2"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.method != http.MethodDelete || rec.path != "/api/v1/runs/r1/team/u2" {
		t.Errorf("unexpected request %s %s", rec.method, rec.path)
	}
}

func TestClientAPIError(t *testing.T) {
	srv, _ := newTestServer(t, http.StatusUnprocessableEntity,
		`{"error":{"code":"VALIDATION_ERROR","message":"meal count must not be negative","field":"meals_delivered"}}`)

	_, err := NewClient(ClientConfig{BaseURL: srv.URL}).RecordDelivery("r1", "l1", DeliveryRequest{MealsDelivered: -1})

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Status != http.StatusUnprocessableEntity || apiErr.Field != "meals_delivered" {
		t.Errorf("unexpected error: %+v", apiErr)
	}
}

func TestClientNonJSONError(t *testing.T) {
	srv, _ := newTestServer(t, http.StatusBadGateway, "upstream down")

	_, err := NewClient(ClientConfig{BaseURL: srv.URL}).GetRun("r1")
	if err == nil || err.Error() != "API error: HTTP 502" {
		t.Errorf("unexpected error: %v", err)
	}
}

package api

import (
	"net/http"
)

// RegisterRoutes регистрирует все маршруты API.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	// Middleware chain
	chain := Chain(
		Recovery(h.logger),
		Metrics(),
		Logging(h.logger),
		Auth(h.auth),
	)
	handle := func(pattern string, fn http.HandlerFunc) {
		mux.Handle(pattern, chain(fn))
	}

	// Runs
	handle("GET /api/v1/runs", h.ListRuns)
	handle("POST /api/v1/runs", h.CreateRun)
	handle("GET /api/v1/runs/{id}", h.GetRun)
	handle("PATCH /api/v1/runs/{id}", h.UpdateRun)

	// Run lifecycle и секвенсор остановок
	handle("POST /api/v1/runs/{id}/start", h.transition(h.orch.StartRun))
	handle("POST /api/v1/runs/{id}/advance", h.transition(h.orch.Advance))
	handle("POST /api/v1/runs/{id}/retreat", h.transition(h.orch.Retreat))
	handle("POST /api/v1/runs/{id}/complete", h.transition(h.orch.CompleteRun))
	handle("POST /api/v1/runs/{id}/cancel", h.transition(h.orch.CancelRun))

	// Чтение для устройств
	handle("GET /api/v1/runs/{id}/context", h.GetExecutionContext)
	handle("GET /api/v1/runs/{id}/preparation", h.GetPreparation)
	handle("GET /api/v1/runs/{id}/changes", h.GetChanges)
	handle("GET /api/v1/runs/{id}/requests", h.ListRunRequests)

	// Во время выезда
	handle("PUT /api/v1/runs/{id}/deliveries/{location_id}", h.RecordDelivery)
	handle("POST /api/v1/runs/{id}/sightings", h.SpotFriend)

	// Team
	handle("GET /api/v1/runs/{id}/team", h.ListTeam)
	handle("POST /api/v1/runs/{id}/team", h.JoinTeam)
	handle("DELETE /api/v1/runs/{id}/team/{user_id}", h.LeaveTeam)

	// Requests
	handle("POST /api/v1/requests", h.CreateRequest)
	handle("GET /api/v1/requests/{id}", h.GetRequest)
	handle("POST /api/v1/requests/{id}/status", h.AppendStatus)
	handle("GET /api/v1/requests/{id}/history", h.GetHistory)
	handle("GET /api/v1/requests/{id}/attempts", h.GetAttempts)

	// Sightings
	handle("POST /api/v1/sightings", h.RecordSighting)
	handle("GET /api/v1/routes/{id}/expected-friends", h.ExpectedFriends)
}

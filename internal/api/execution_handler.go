package api

import (
	"net/http"

	"github.com/shaiso/Outreach/internal/orchestrator"
)

// RecordDelivery записывает доставку на остановке (last-write-wins).
// PUT /api/v1/runs/{id}/deliveries/{location_id}
func (h *Handler) RecordDelivery(w http.ResponseWriter, r *http.Request) {
	runID, err := pathID(r, "id")
	if err != nil {
		BadRequest(w, err.Error())
		return
	}
	locationID, err := pathID(r, "location_id")
	if err != nil {
		BadRequest(w, err.Error())
		return
	}

	var req DeliveryRequest
	if err := decode(r, &req, false); err != nil {
		BadRequest(w, err.Error())
		return
	}

	d, err := h.orch.RecordStopDelivery(r.Context(), orchestrator.DeliveryInput{
		RunID:          runID,
		LocationID:     locationID,
		MealsDelivered: req.MealsDelivered,
		Notes:          req.Notes,
		UserID:         userID(r),
	})
	if HandleError(w, h.logger, err) {
		return
	}
	Success(w, d)
}

// SpotFriend записывает встречу с friend во время выезда.
// POST /api/v1/runs/{id}/sightings
func (h *Handler) SpotFriend(w http.ResponseWriter, r *http.Request) {
	runID, err := pathID(r, "id")
	if err != nil {
		BadRequest(w, err.Error())
		return
	}

	var req SightingRequest
	if err := decode(r, &req, false); err != nil {
		BadRequest(w, err.Error())
		return
	}

	s, err := h.orch.SpotFriend(r.Context(), orchestrator.SightingInput{
		FriendID:        req.FriendID,
		LocationID:      req.LocationID,
		RunID:           &runID,
		Notes:           req.Notes,
		UserID:          userID(r),
		ClientRequestID: clientRequestID(r, req.ClientRequestID),
	})
	if HandleError(w, h.logger, err) {
		return
	}
	Created(w, s)
}

// RecordSighting записывает встречу с friend, в том числе вне выезда.
// POST /api/v1/sightings
func (h *Handler) RecordSighting(w http.ResponseWriter, r *http.Request) {
	var req SightingRequest
	if err := decode(r, &req, false); err != nil {
		BadRequest(w, err.Error())
		return
	}

	s, err := h.orch.RecordSighting(r.Context(), orchestrator.SightingInput{
		FriendID:        req.FriendID,
		LocationID:      req.LocationID,
		RunID:           req.RunID,
		Notes:           req.Notes,
		UserID:          userID(r),
		ClientRequestID: clientRequestID(r, req.ClientRequestID),
	})
	if HandleError(w, h.logger, err) {
		return
	}
	Created(w, s)
}

// ExpectedFriends возвращает, кого ожидать на остановках маршрута.
// GET /api/v1/routes/{id}/expected-friends
func (h *Handler) ExpectedFriends(w http.ResponseWriter, r *http.Request) {
	routeID, err := pathID(r, "id")
	if err != nil {
		BadRequest(w, err.Error())
		return
	}

	expected, err := h.orch.ExpectedFriends(r.Context(), routeID)
	if HandleError(w, h.logger, err) {
		return
	}
	List(w, expected)
}

// Team

// ListTeam возвращает команду; первый участник — лидер.
// GET /api/v1/runs/{id}/team
func (h *Handler) ListTeam(w http.ResponseWriter, r *http.Request) {
	runID, err := pathID(r, "id")
	if err != nil {
		BadRequest(w, err.Error())
		return
	}

	members, err := h.orch.ListTeam(r.Context(), runID)
	if HandleError(w, h.logger, err) {
		return
	}
	List(w, members)
}

// JoinTeam добавляет пользователя в команду (по умолчанию текущего).
// POST /api/v1/runs/{id}/team
func (h *Handler) JoinTeam(w http.ResponseWriter, r *http.Request) {
	runID, err := pathID(r, "id")
	if err != nil {
		BadRequest(w, err.Error())
		return
	}

	var req JoinTeamRequest
	if err := decode(r, &req, true); err != nil {
		BadRequest(w, err.Error())
		return
	}
	member := userID(r)
	if req.UserID != nil {
		member = *req.UserID
	}

	m, err := h.orch.AddMember(r.Context(), runID, member)
	if HandleError(w, h.logger, err) {
		return
	}
	Success(w, m)
}

// LeaveTeam удаляет пользователя из команды.
// DELETE /api/v1/runs/{id}/team/{user_id}
func (h *Handler) LeaveTeam(w http.ResponseWriter, r *http.Request) {
	runID, err := pathID(r, "id")
	if err != nil {
		BadRequest(w, err.Error())
		return
	}
	member, err := pathID(r, "user_id")
	if err != nil {
		BadRequest(w, err.Error())
		return
	}

	if HandleError(w, h.logger, h.orch.RemoveMember(r.Context(), runID, member)) {
		return
	}
	NoContent(w)
}

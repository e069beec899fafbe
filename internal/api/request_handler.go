package api

import (
	"net/http"

	"github.com/shaiso/Outreach/internal/domain"
	"github.com/shaiso/Outreach/internal/orchestrator"
)

// ListRunRequests возвращает запросы выезда в заданном статусе
// (по умолчанию ready_for_delivery).
// GET /api/v1/runs/{id}/requests?status=...
func (h *Handler) ListRunRequests(w http.ResponseWriter, r *http.Request) {
	runID, err := pathID(r, "id")
	if err != nil {
		BadRequest(w, err.Error())
		return
	}

	status := domain.RequestStatus(r.URL.Query().Get("status"))
	if status == "" {
		status = domain.RequestStatusReadyForDelivery
	}

	requests, err := h.orch.ListRunRequests(r.Context(), runID, status)
	if HandleError(w, h.logger, err) {
		return
	}
	List(w, requests)
}

// CreateRequest создаёт запрос friend'а.
// POST /api/v1/requests
func (h *Handler) CreateRequest(w http.ResponseWriter, r *http.Request) {
	var req CreateRequestRequest
	if err := decode(r, &req, false); err != nil {
		BadRequest(w, err.Error())
		return
	}

	created, err := h.orch.CreateRequest(r.Context(), domain.NewRequestInput{
		FriendID:    req.FriendID,
		LocationID:  req.LocationID,
		RunID:       req.RunID,
		Description: req.Description,
		CreatedBy:   userID(r),
	})
	if HandleError(w, h.logger, err) {
		return
	}
	Created(w, created)
}

// GetRequest возвращает запрос по ID.
// GET /api/v1/requests/{id}
func (h *Handler) GetRequest(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		BadRequest(w, err.Error())
		return
	}

	req, err := h.orch.GetRequest(r.Context(), id)
	if HandleError(w, h.logger, err) {
		return
	}
	Success(w, req)
}

// AppendStatus добавляет запись в журнал статусов запроса.
// Повтор с тем же client_request_id отвечает 200 и сохранённой записью.
// POST /api/v1/requests/{id}/status
func (h *Handler) AppendStatus(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		BadRequest(w, err.Error())
		return
	}

	var req AppendStatusRequest
	if err := decode(r, &req, false); err != nil {
		BadRequest(w, err.Error())
		return
	}

	result, err := h.orch.AppendStatus(r.Context(), orchestrator.StatusInput{
		RequestID:       id,
		Status:          req.Status,
		Note:            req.Note,
		UserID:          userID(r),
		ClientRequestID: clientRequestID(r, req.ClientRequestID),
	})
	if HandleError(w, h.logger, err) {
		return
	}
	if result.Replayed {
		Success(w, result)
		return
	}
	Created(w, result)
}

// GetHistory возвращает журнал статусов от старых записей к новым.
// GET /api/v1/requests/{id}/history
func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		BadRequest(w, err.Error())
		return
	}

	history, err := h.orch.GetHistory(r.Context(), id)
	if HandleError(w, h.logger, err) {
		return
	}
	List(w, history)
}

// GetAttempts возвращает только попытки доставки.
// GET /api/v1/requests/{id}/attempts
func (h *Handler) GetAttempts(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		BadRequest(w, err.Error())
		return
	}

	attempts, err := h.orch.GetDeliveryAttempts(r.Context(), id)
	if HandleError(w, h.logger, err) {
		return
	}
	List(w, attempts)
}

package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/Outreach/internal/domain"
	"github.com/shaiso/Outreach/internal/repo"
)

// ListRuns возвращает список runs с фильтрацией.
// GET /api/v1/runs?route_id=...&status=...&from=...&to=...&limit=...&offset=...
func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := repo.RunFilter{
		Status: domain.RunStatus(q.Get("status")),
		Limit:  parseInt(q.Get("limit"), 0),
		Offset: parseInt(q.Get("offset"), 0),
	}

	if s := q.Get("route_id"); s != "" {
		routeID, err := uuid.Parse(s)
		if err != nil {
			BadRequest(w, "invalid route_id")
			return
		}
		filter.RouteID = &routeID
	}

	for name, dst := range map[string]**time.Time{"from": &filter.From, "to": &filter.To} {
		s := q.Get(name)
		if s == "" {
			continue
		}
		date, err := domain.ParseDate(s)
		if err != nil {
			BadRequest(w, "invalid "+name+": expected YYYY-MM-DD")
			return
		}
		*dst = &date
	}

	runs, err := h.orch.ListRuns(r.Context(), filter)
	if HandleError(w, h.logger, err) {
		return
	}
	List(w, runs)
}

// CreateRun создаёт новый run.
// POST /api/v1/runs
func (h *Handler) CreateRun(w http.ResponseWriter, r *http.Request) {
	var req CreateRunRequest
	if err := decode(r, &req, false); err != nil {
		BadRequest(w, err.Error())
		return
	}

	run, err := h.orch.CreateRun(r.Context(), req.Input(userID(r)))
	if HandleError(w, h.logger, err) {
		return
	}
	Created(w, run)
}

// GetRun возвращает run по ID.
// GET /api/v1/runs/{id}
func (h *Handler) GetRun(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		BadRequest(w, err.Error())
		return
	}

	run, err := h.orch.GetRun(r.Context(), id)
	if HandleError(w, h.logger, err) {
		return
	}
	Success(w, run)
}

// UpdateRun применяет частичное обновление. Поле name игнорируется.
// PATCH /api/v1/runs/{id}
func (h *Handler) UpdateRun(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		BadRequest(w, err.Error())
		return
	}

	var req UpdateRunRequest
	if err := decode(r, &req, false); err != nil {
		BadRequest(w, err.Error())
		return
	}
	patch, err := req.Patch()
	if HandleError(w, h.logger, err) {
		return
	}

	run, err := h.orch.UpdateRun(r.Context(), id, patch, userID(r))
	if HandleError(w, h.logger, err) {
		return
	}
	Success(w, run)
}

// runAction — переход состояния или шаг секвенсора.
type runAction func(ctx context.Context, runID, userID uuid.UUID) (*domain.Run, error)

// transition оборачивает runAction в обработчик POST /api/v1/runs/{id}/...
func (h *Handler) transition(action runAction) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "id")
		if err != nil {
			BadRequest(w, err.Error())
			return
		}

		run, err := action(r.Context(), id, userID(r))
		if HandleError(w, h.logger, err) {
			return
		}
		Success(w, run)
	}
}

// GetExecutionContext возвращает всё, что нужно устройству во время выезда.
// GET /api/v1/runs/{id}/context
func (h *Handler) GetExecutionContext(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		BadRequest(w, err.Error())
		return
	}

	ec, err := h.orch.GetExecutionContext(r.Context(), id)
	if HandleError(w, h.logger, err) {
		return
	}
	Success(w, ec)
}

// GetPreparation возвращает набор для загрузки перед выездом.
// GET /api/v1/runs/{id}/preparation
func (h *Handler) GetPreparation(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		BadRequest(w, err.Error())
		return
	}

	prep, err := h.orch.GetPreparationData(r.Context(), id)
	if HandleError(w, h.logger, err) {
		return
	}
	Success(w, prep)
}

// GetChanges возвращает дельту с момента since (RFC3339).
// Без since отдаётся всё; timestamp ответа — курсор следующего опроса.
// GET /api/v1/runs/{id}/changes?since=...
func (h *Handler) GetChanges(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		BadRequest(w, err.Error())
		return
	}

	var since time.Time
	if s := r.URL.Query().Get("since"); s != "" {
		since, err = time.Parse(time.RFC3339Nano, s)
		if err != nil {
			BadRequest(w, "invalid since: expected RFC3339")
			return
		}
	}

	cs, err := h.orch.ChangesSince(r.Context(), id, since)
	if HandleError(w, h.logger, err) {
		return
	}
	Success(w, cs)
}

// parseInt парсит строку в int с дефолтным значением.
func parseInt(s string, defaultVal int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return defaultVal
	}
	return n
}

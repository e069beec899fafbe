package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/Outreach/internal/domain"
	"github.com/shaiso/Outreach/internal/engine"
	"github.com/shaiso/Outreach/internal/repo"
)

// --- runs ---

type runRepo struct{ v *view }

func (r *runRepo) Create(ctx context.Context, run *domain.Run) error {
	return r.v.write(func(st *state) error {
		if _, ok := st.runs[run.ID]; ok {
			return repo.ErrAlreadyExists
		}
		st.runs[run.ID] = *run
		return nil
	})
}

func (r *runRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Run, error) {
	var out domain.Run
	err := r.v.read(func(st *state) error {
		run, ok := st.runs[id]
		if !ok {
			return repo.ErrNotFound
		}
		out = run
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *runRepo) GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.Run, error) {
	return r.GetByID(ctx, id)
}

func (r *runRepo) Update(ctx context.Context, run *domain.Run) error {
	return r.v.write(func(st *state) error {
		stored, ok := st.runs[run.ID]
		if !ok {
			return repo.ErrNotFound
		}
		updated := *run
		updated.Name = stored.Name
		st.runs[run.ID] = updated
		return nil
	})
}

func (r *runRepo) List(ctx context.Context, filter repo.RunFilter) ([]domain.Run, error) {
	out := make([]domain.Run, 0)
	err := r.v.read(func(st *state) error {
		for _, run := range st.runs {
			if filter.RouteID != nil && run.RouteID != *filter.RouteID {
				continue
			}
			if filter.Status != "" && run.Status != filter.Status {
				continue
			}
			if filter.From != nil && run.ScheduledDate.Before(*filter.From) {
				continue
			}
			if filter.To != nil && run.ScheduledDate.After(*filter.To) {
				continue
			}
			out = append(out, run)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].ScheduledDate.Equal(out[j].ScheduledDate) {
			return out[i].ScheduledDate.After(out[j].ScheduledDate)
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return page(out, filter.Offset, filter.Limit), nil
}

func (r *runRepo) ListStaleScheduled(ctx context.Context, before time.Time, limit int) ([]domain.Run, error) {
	out := make([]domain.Run, 0)
	err := r.v.read(func(st *state) error {
		for _, run := range st.runs {
			if run.Status == domain.RunStatusScheduled && run.ScheduledDate.Before(before) {
				out = append(out, run)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ScheduledDate.Before(out[j].ScheduledDate)
	})
	return page(out, 0, limit), nil
}

// --- routes ---

type routeRepo struct{ v *view }

func (r *routeRepo) GetRoute(ctx context.Context, id uuid.UUID) (*domain.Route, error) {
	var out domain.Route
	err := r.v.read(func(st *state) error {
		route, ok := st.routes[id]
		if !ok {
			return repo.ErrNotFound
		}
		out = route
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *routeRepo) ListStops(ctx context.Context, routeID uuid.UUID) ([]domain.Location, error) {
	var stops []domain.Location
	err := r.v.read(func(st *state) error {
		stops = stopsOf(st, routeID)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return stops, nil
}

func (r *routeRepo) GetLocation(ctx context.Context, id uuid.UUID) (*domain.Location, error) {
	var out domain.Location
	err := r.v.read(func(st *state) error {
		loc, ok := st.locations[id]
		if !ok {
			return repo.ErrNotFound
		}
		out = loc
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *routeRepo) GetFriend(ctx context.Context, id uuid.UUID) (*domain.Friend, error) {
	var out domain.Friend
	err := r.v.read(func(st *state) error {
		f, ok := st.friends[id]
		if !ok {
			return repo.ErrNotFound
		}
		out = f
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// --- requests ---

type requestRepo struct{ v *view }

func (r *requestRepo) Create(ctx context.Context, req *domain.Request) error {
	return r.v.write(func(st *state) error {
		if _, ok := st.requests[req.ID]; ok {
			return repo.ErrAlreadyExists
		}
		st.requests[req.ID] = *req
		return nil
	})
}

func (r *requestRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Request, error) {
	var out domain.Request
	err := r.v.read(func(st *state) error {
		req, ok := st.requests[id]
		if !ok {
			return repo.ErrNotFound
		}
		out = req
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *requestRepo) GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.Request, error) {
	return r.GetByID(ctx, id)
}

func (r *requestRepo) UpdateProjection(ctx context.Context, req *domain.Request) error {
	return r.v.write(func(st *state) error {
		stored, ok := st.requests[req.ID]
		if !ok {
			return repo.ErrNotFound
		}
		stored.Status = req.Status
		stored.DeliveryAttempts = req.DeliveryAttempts
		stored.UpdatedAt = req.UpdatedAt
		st.requests[req.ID] = stored
		return nil
	})
}

func (r *requestRepo) AppendHistory(ctx context.Context, h *domain.StatusHistory) error {
	return r.v.write(func(st *state) error {
		if h.ClientRequestID != "" {
			for _, existing := range st.history {
				if existing.RequestID == h.RequestID && existing.ClientRequestID == h.ClientRequestID {
					return repo.ErrAlreadyExists
				}
			}
		}
		h.Seq = st.nextSeq()
		st.history = append(st.history, *h)
		return nil
	})
}

func (r *requestRepo) GetHistoryByClientID(ctx context.Context, requestID uuid.UUID, clientRequestID string) (*domain.StatusHistory, error) {
	var out *domain.StatusHistory
	err := r.v.read(func(st *state) error {
		for _, h := range st.history {
			if h.RequestID == requestID && h.ClientRequestID == clientRequestID {
				h := h
				out = &h
				return nil
			}
		}
		return repo.ErrNotFound
	})
	return out, err
}

func (r *requestRepo) ListHistory(ctx context.Context, requestID uuid.UUID) ([]domain.StatusHistory, error) {
	out := make([]domain.StatusHistory, 0)
	err := r.v.read(func(st *state) error {
		for _, h := range st.history {
			if h.RequestID == requestID {
				out = append(out, h)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *requestRepo) ListForRunOrUnassigned(ctx context.Context, runID, routeID uuid.UUID, status domain.RequestStatus) ([]domain.Request, error) {
	out := make([]domain.Request, 0)
	err := r.v.read(func(st *state) error {
		for _, req := range st.requests {
			if req.Status != status {
				continue
			}
			if req.RunID != nil {
				if *req.RunID == runID {
					out = append(out, req)
				}
				continue
			}
			if loc, ok := st.locations[req.LocationID]; ok && loc.RouteID == routeID {
				out = append(out, req)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (r *requestRepo) ListUpdatedSince(ctx context.Context, runID uuid.UUID, since time.Time) ([]domain.Request, error) {
	out := make([]domain.Request, 0)
	err := r.v.read(func(st *state) error {
		for _, req := range st.requests {
			if req.RunID != nil && *req.RunID == runID && req.UpdatedAt.After(since) {
				out = append(out, req)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].UpdatedAt.Before(out[j].UpdatedAt)
	})
	return out, nil
}

// --- team ---

type teamRepo struct{ v *view }

func (r *teamRepo) Add(ctx context.Context, m *domain.TeamMember) error {
	return r.v.write(func(st *state) error {
		for _, existing := range st.team {
			if existing.RunID == m.RunID && existing.UserID == m.UserID {
				*m = existing
				return repo.ErrAlreadyExists
			}
		}
		m.Seq = st.nextSeq()
		st.team = append(st.team, *m)
		return nil
	})
}

func (r *teamRepo) Remove(ctx context.Context, runID, userID uuid.UUID) error {
	return r.v.write(func(st *state) error {
		for i, m := range st.team {
			if m.RunID == runID && m.UserID == userID {
				st.team = append(st.team[:i:i], st.team[i+1:]...)
				return nil
			}
		}
		return repo.ErrNotFound
	})
}

func (r *teamRepo) List(ctx context.Context, runID uuid.UUID) ([]domain.TeamMember, error) {
	out := make([]domain.TeamMember, 0)
	err := r.v.read(func(st *state) error {
		for _, m := range st.team {
			if m.RunID == runID {
				out = append(out, m)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return engine.OrderMembers(out), nil
}

// --- deliveries ---

type deliveryRepo struct{ v *view }

func (r *deliveryRepo) Upsert(ctx context.Context, d *domain.RunStopDelivery) error {
	return r.v.write(func(st *state) error {
		key := deliveryKey{run: d.RunID, location: d.LocationID}
		if existing, ok := st.deliveries[key]; ok {
			d.ID = existing.ID
		}
		st.deliveries[key] = *d
		return nil
	})
}

func (r *deliveryRepo) ListByRun(ctx context.Context, runID uuid.UUID) ([]domain.RunStopDelivery, error) {
	return r.list(runID, time.Time{})
}

func (r *deliveryRepo) ListUpdatedSince(ctx context.Context, runID uuid.UUID, since time.Time) ([]domain.RunStopDelivery, error) {
	return r.list(runID, since)
}

func (r *deliveryRepo) list(runID uuid.UUID, since time.Time) ([]domain.RunStopDelivery, error) {
	out := make([]domain.RunStopDelivery, 0)
	err := r.v.read(func(st *state) error {
		for _, d := range st.deliveries {
			if d.RunID == runID && (since.IsZero() || d.UpdatedAt.After(since)) {
				out = append(out, d)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].UpdatedAt.Before(out[j].UpdatedAt)
	})
	return out, nil
}

// --- sightings ---

type sightingRepo struct{ v *view }

func (r *sightingRepo) Create(ctx context.Context, s *domain.FriendSighting) error {
	return r.v.write(func(st *state) error {
		if s.ClientRequestID != "" {
			for _, existing := range st.sightings {
				if existing.FriendID == s.FriendID && existing.ClientRequestID == s.ClientRequestID {
					return repo.ErrAlreadyExists
				}
			}
		}
		st.sightings = append(st.sightings, *s)
		return nil
	})
}

func (r *sightingRepo) GetByClientID(ctx context.Context, friendID uuid.UUID, clientRequestID string) (*domain.FriendSighting, error) {
	var out *domain.FriendSighting
	err := r.v.read(func(st *state) error {
		for _, s := range st.sightings {
			if s.FriendID == friendID && s.ClientRequestID == clientRequestID {
				s := s
				out = &s
				return nil
			}
		}
		return repo.ErrNotFound
	})
	return out, err
}

func (r *sightingRepo) TouchFriend(ctx context.Context, friendID uuid.UUID, at time.Time) error {
	return r.v.write(func(st *state) error {
		f, ok := st.friends[friendID]
		if !ok {
			return repo.ErrNotFound
		}
		f.LastContact = &at
		f.UpdatedAt = at
		st.friends[friendID] = f
		return nil
	})
}

func (r *sightingRepo) LatestOnRoute(ctx context.Context, routeID uuid.UUID) ([]domain.ExpectedFriend, error) {
	var out []domain.ExpectedFriend
	err := r.v.read(func(st *state) error {
		onRoute := make([]domain.FriendSighting, 0)
		names := make(map[uuid.UUID]string)
		for _, s := range st.sightings {
			if loc, ok := st.locations[s.LocationID]; ok && loc.RouteID == routeID {
				onRoute = append(onRoute, s)
				names[s.FriendID] = st.friends[s.FriendID].Name
			}
		}
		out = engine.LatestSightings(onRoute, names)
		return nil
	})
	return out, err
}

func (r *sightingRepo) ListOnRouteSince(ctx context.Context, routeID uuid.UUID, since time.Time) ([]domain.FriendSighting, error) {
	out := make([]domain.FriendSighting, 0)
	err := r.v.read(func(st *state) error {
		for _, s := range st.sightings {
			loc, ok := st.locations[s.LocationID]
			if ok && loc.RouteID == routeID && s.CreatedAt.After(since) {
				out = append(out, s)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// --- helpers ---

func stopsOf(st *state, routeID uuid.UUID) []domain.Location {
	stops := make([]domain.Location, 0)
	for _, loc := range st.locations {
		if loc.RouteID == routeID {
			stops = append(stops, loc)
		}
	}
	return engine.NewRoute(stops).Stops
}

func page[T any](items []T, offset, limit int) []T {
	if offset >= len(items) {
		return items[:0]
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

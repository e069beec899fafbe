package engine

import (
	"bytes"
	"sort"

	"github.com/google/uuid"
	"github.com/shaiso/Outreach/internal/domain"
)

// Route — остановки одного маршрута в порядке обхода.
type Route struct {
	Stops []domain.Location
}

// NewRoute упорядочивает остановки: route_order по возрастанию,
// при совпадении — по времени создания, затем по ID.
// Входной слайс не меняется.
func NewRoute(stops []domain.Location) *Route {
	ordered := make([]domain.Location, len(stops))
	copy(ordered, stops)

	sort.SliceStable(ordered, func(i, j int) bool {
		a, b := ordered[i], ordered[j]
		if a.RouteOrder != b.RouteOrder {
			return a.RouteOrder < b.RouteOrder
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return bytes.Compare(a.ID[:], b.ID[:]) < 0
	})

	return &Route{Stops: ordered}
}

// Len возвращает количество остановок.
func (r *Route) Len() int {
	return len(r.Stops)
}

// First возвращает первую остановку.
func (r *Route) First() (domain.Location, error) {
	if len(r.Stops) == 0 {
		return domain.Location{}, ErrEmptyRoute
	}
	return r.Stops[0], nil
}

// IndexOf возвращает индекс остановки (с 0) или -1.
func (r *Route) IndexOf(locationID uuid.UUID) int {
	for i := range r.Stops {
		if r.Stops[i].ID == locationID {
			return i
		}
	}
	return -1
}

// Contains проверяет, что остановка принадлежит маршруту.
func (r *Route) Contains(locationID uuid.UUID) bool {
	return r.IndexOf(locationID) >= 0
}

// Position — позиция выезда на маршруте.
type Position struct {
	Location   domain.Location
	StopNumber int // с 1
}

// Next возвращает следующую остановку после current.
func (r *Route) Next(current uuid.UUID) (Position, error) {
	i := r.IndexOf(current)
	if i < 0 {
		return Position{}, ErrNotOnRoute
	}
	if i+1 >= len(r.Stops) {
		return Position{}, ErrNoMoreStops
	}
	return Position{Location: r.Stops[i+1], StopNumber: i + 2}, nil
}

// Prev возвращает предыдущую остановку перед current.
func (r *Route) Prev(current uuid.UUID) (Position, error) {
	i := r.IndexOf(current)
	if i < 0 {
		return Position{}, ErrNotOnRoute
	}
	if i == 0 {
		return Position{}, ErrAtFirstStop
	}
	return Position{Location: r.Stops[i-1], StopNumber: i}, nil
}

// CurrentIndex возвращает индекс текущей остановки выезда (с 0),
// или -1, если выезд не стоит на остановке этого маршрута.
func (r *Route) CurrentIndex(run *domain.Run) int {
	if run.CurrentLocationID == nil {
		return -1
	}
	return r.IndexOf(*run.CurrentLocationID)
}

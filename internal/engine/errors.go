package engine

import "github.com/shaiso/Outreach/internal/domain"

// Ошибки секвенсора остановок.
var (
	// ErrNoMoreStops — текущая остановка последняя на маршруте.
	ErrNoMoreStops = domain.NewValidationError("current_location_id", "no more stops")

	// ErrAtFirstStop — текущая остановка первая на маршруте.
	ErrAtFirstStop = domain.NewValidationError("current_location_id", "already at first stop")

	// ErrEmptyRoute — у маршрута нет остановок.
	ErrEmptyRoute = domain.NewValidationError("route_id", "route has no stops")

	// ErrNotOnRoute — текущая остановка выезда не найдена на маршруте.
	ErrNotOnRoute = domain.NewValidationError("current_location_id", "current stop is not on the run's route")
)

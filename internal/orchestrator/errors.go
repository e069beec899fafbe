package orchestrator

import (
	"errors"

	"github.com/shaiso/Outreach/internal/domain"
)

// Ошибки оркестратора.
var (
	// ErrRouteLocked — маршрут нельзя менять после старта выезда.
	ErrRouteLocked = domain.NewValidationError("route_id", "route can only change before the run starts")

	// ErrNegativeMeals — отрицательное количество порций.
	ErrNegativeMeals = domain.NewValidationError("meals_delivered", "meals delivered must be >= 0")

	// ErrLocationNotOnRoute — остановка не принадлежит маршруту выезда.
	ErrLocationNotOnRoute = domain.NewValidationError("location_id", "location is not on the run's route")

	// ErrUserRequired — операция требует идентифицированного пользователя.
	ErrUserRequired = domain.NewValidationError("user_id", "user is required")
)

// errDuplicate — вставка упёрлась в ключ идемпотентности; транзакция
// откатывается, а сохранённая запись читается заново вне её.
var errDuplicate = errors.New("duplicate client request id")

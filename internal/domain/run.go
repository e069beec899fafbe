package domain

import (
	"time"

	"github.com/google/uuid"
)

// DateLayout — формат даты выезда (scheduled_date).
const DateLayout = "2006-01-02"

// Run — выезд команды по маршруту.
//
// Run создаётся один раз на каждое решение о планировании и меняется
// только через orchestrator. Позиция на маршруте (CurrentLocationID,
// CurrentStopNumber) принадлежит секвенсору остановок и не патчится напрямую.
type Run struct {
	// ID — уникальный идентификатор run.
	ID uuid.UUID `json:"id"`

	// RouteID — маршрут, по которому идёт выезд.
	RouteID uuid.UUID `json:"route_id"`

	// Name — отображаемое имя "{route} {Weekday} {YYYY-MM-DD}".
	// Вычисляется один раз при создании и больше не меняется.
	Name string `json:"name"`

	// Status — текущий статус выезда.
	Status RunStatus `json:"status"`

	// ScheduledDate — дата выезда (время отброшено, UTC).
	ScheduledDate time.Time `json:"scheduled_date"`

	// StartTime / EndTime — плановое время начала и конца ("18:30").
	StartTime string `json:"start_time,omitempty"`
	EndTime   string `json:"end_time,omitempty"`

	// MealCount — сколько порций везёт команда.
	MealCount int `json:"meal_count"`

	// Notes — произвольные заметки координатора.
	Notes string `json:"notes,omitempty"`

	// CurrentLocationID — текущая остановка. Nil, пока выезд не начат.
	CurrentLocationID *uuid.UUID `json:"current_location_id,omitempty"`

	// CurrentStopNumber — номер текущей остановки, начиная с 1.
	// Всегда согласован с позицией CurrentLocationID в списке остановок маршрута.
	CurrentStopNumber *int `json:"current_stop_number,omitempty"`

	// CreatedBy — кто создал выезд.
	CreatedBy uuid.UUID `json:"created_by"`

	// StartedAt — когда выезд перешёл в in_progress.
	StartedAt *time.Time `json:"started_at,omitempty"`

	// FinishedAt — когда выезд завершён или отменён.
	FinishedAt *time.Time `json:"finished_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RunName вычисляет имя выезда: "{routeName} {Weekday} {YYYY-MM-DD}".
func RunName(routeName string, date time.Time) string {
	return routeName + " " + date.Weekday().String() + " " + date.Format(DateLayout)
}

// ParseDate парсит дату выезда в формате YYYY-MM-DD.
func ParseDate(s string) (time.Time, error) {
	return time.Parse(DateLayout, s)
}

// IsFrozen возвращает true, если выезд завершён или отменён.
func (r *Run) IsFrozen() bool {
	return r.Status.IsTerminal()
}

// CanStart проверяет, можно ли начать выезд.
func (r *Run) CanStart() error {
	switch r.Status {
	case RunStatusScheduled:
		return nil
	case RunStatusInProgress:
		return NewValidationError("status", "run already started")
	default:
		return NewValidationError("status", "run is "+string(r.Status))
	}
}

// CanMove проверяет, может ли секвенсор двигать позицию.
func (r *Run) CanMove() error {
	switch r.Status {
	case RunStatusInProgress:
		return nil
	case RunStatusScheduled:
		return NewValidationError("status", "run not started")
	default:
		return NewValidationError("status", "run is "+string(r.Status))
	}
}

// CanComplete проверяет, можно ли завершить выезд.
func (r *Run) CanComplete() error {
	if r.Status == RunStatusInProgress {
		return nil
	}
	if r.IsFrozen() {
		return NewValidationError("status", "run is "+string(r.Status))
	}
	return NewValidationError("status", "run not started")
}

// CanCancel проверяет, можно ли отменить выезд.
func (r *Run) CanCancel() error {
	if r.IsFrozen() {
		return NewValidationError("status", "run is "+string(r.Status))
	}
	return nil
}

// MarkStarted переводит run в in_progress и ставит его на первую остановку.
func (r *Run) MarkStarted(first uuid.UUID, now time.Time) {
	r.Status = RunStatusInProgress
	r.StartedAt = &now
	r.MoveTo(first, 1, now)
}

// MoveTo ставит run на остановку с номером stopNumber (с 1).
func (r *Run) MoveTo(locationID uuid.UUID, stopNumber int, now time.Time) {
	r.CurrentLocationID = &locationID
	r.CurrentStopNumber = &stopNumber
	r.UpdatedAt = now
}

// MarkCompleted переводит run в completed.
func (r *Run) MarkCompleted(now time.Time) {
	r.Status = RunStatusCompleted
	r.FinishedAt = &now
	r.UpdatedAt = now
}

// MarkCancelled переводит run в cancelled.
func (r *Run) MarkCancelled(now time.Time) {
	r.Status = RunStatusCancelled
	r.FinishedAt = &now
	r.UpdatedAt = now
}

// RunPatch — изменяемые поля выезда.
//
// Name сюда намеренно не входит, как и позиция на маршруте и статус:
// ими владеют деривация имени, секвенсор и переходы состояний.
type RunPatch struct {
	RouteID       *uuid.UUID
	ScheduledDate *time.Time
	StartTime     *string
	EndTime       *string
	MealCount     *int
	Notes         *string
}

// Apply применяет патч к run. Валидация — до вызова.
func (p RunPatch) Apply(r *Run, now time.Time) {
	if p.RouteID != nil {
		r.RouteID = *p.RouteID
	}
	if p.ScheduledDate != nil {
		r.ScheduledDate = *p.ScheduledDate
	}
	if p.StartTime != nil {
		r.StartTime = *p.StartTime
	}
	if p.EndTime != nil {
		r.EndTime = *p.EndTime
	}
	if p.MealCount != nil {
		r.MealCount = *p.MealCount
	}
	if p.Notes != nil {
		r.Notes = *p.Notes
	}
	r.UpdatedAt = now
}

// NewRunInput — входные данные для создания выезда.
type NewRunInput struct {
	RouteID       uuid.UUID
	ScheduledDate string
	StartTime     string
	EndTime       string
	MealCount     int
	Notes         string

	// Name принимается от клиента, но игнорируется: имя всегда вычисляется.
	Name string

	CreatedBy uuid.UUID
}

// Validate проверяет вход и возвращает первую ошибку.
func (in NewRunInput) Validate() (time.Time, error) {
	if in.RouteID == uuid.Nil {
		return time.Time{}, NewValidationError("route_id", "route is required")
	}
	if in.ScheduledDate == "" {
		return time.Time{}, NewValidationError("scheduled_date", "scheduled date is required")
	}
	date, err := ParseDate(in.ScheduledDate)
	if err != nil {
		return time.Time{}, NewValidationError("scheduled_date", "scheduled date must be YYYY-MM-DD")
	}
	if in.MealCount < 0 {
		return time.Time{}, NewValidationError("meal_count", "meal count must be >= 0")
	}
	return date, nil
}

package domain

// RunStatus — статус выезда (run).
//
// Жизненный цикл:
//
//	scheduled → in_progress → completed
//	          ↘             ↘ cancelled
//	           cancelled
//
// Из completed и cancelled переходов нет.
type RunStatus string

const (
	// RunStatusScheduled — выезд запланирован, команда ещё не выехала.
	RunStatusScheduled RunStatus = "scheduled"

	// RunStatusInProgress — выезд идёт, есть текущая остановка.
	RunStatusInProgress RunStatus = "in_progress"

	// RunStatusCompleted — выезд завершён.
	RunStatusCompleted RunStatus = "completed"

	// RunStatusCancelled — выезд отменён.
	RunStatusCancelled RunStatus = "cancelled"
)

// IsTerminal возвращает true, если статус финальный (состояние заморожено).
func (s RunStatus) IsTerminal() bool {
	switch s {
	case RunStatusCompleted, RunStatusCancelled:
		return true
	default:
		return false
	}
}

// Valid проверяет, что значение входит в перечисление.
func (s RunStatus) Valid() bool {
	switch s {
	case RunStatusScheduled, RunStatusInProgress, RunStatusCompleted, RunStatusCancelled:
		return true
	default:
		return false
	}
}

// RequestStatus — статус запроса (request) на вещь для friend.
//
// Жизненный цикл:
//
//	pending → taken → ready_for_delivery → delivered
//
// Статус — проекция журнала RequestStatusHistory: всегда равен
// статусу последней записи (кроме delivery_attempt_failed).
type RequestStatus string

const (
	// RequestStatusPending — запрос создан, никто не взял.
	RequestStatusPending RequestStatus = "pending"

	// RequestStatusTaken — волонтёр взял запрос в работу.
	RequestStatusTaken RequestStatus = "taken"

	// RequestStatusReadyForDelivery — вещь готова, ждёт загрузки в выезд.
	RequestStatusReadyForDelivery RequestStatus = "ready_for_delivery"

	// RequestStatusDelivered — вещь передана.
	RequestStatusDelivered RequestStatus = "delivered"
)

// Valid проверяет, что значение входит в перечисление.
func (s RequestStatus) Valid() bool {
	return s.rank() > 0
}

// rank — порядковый номер статуса в прямом направлении (0 — неизвестный).
func (s RequestStatus) rank() int {
	switch s {
	case RequestStatusPending:
		return 1
	case RequestStatusTaken:
		return 2
	case RequestStatusReadyForDelivery:
		return 3
	case RequestStatusDelivered:
		return 4
	default:
		return 0
	}
}

// HistoryStatus — значение, которое можно записать в журнал запроса.
//
// Это RequestStatus плюс боковая ветка delivery_attempt_failed,
// которая не двигает статус вперёд, а только увеличивает счётчик попыток.
type HistoryStatus string

const (
	HistoryPending          HistoryStatus = HistoryStatus(RequestStatusPending)
	HistoryTaken            HistoryStatus = HistoryStatus(RequestStatusTaken)
	HistoryReadyForDelivery HistoryStatus = HistoryStatus(RequestStatusReadyForDelivery)
	HistoryDelivered        HistoryStatus = HistoryStatus(RequestStatusDelivered)

	// HistoryDeliveryAttemptFailed — попытка доставки не удалась (friend не найден на месте и т.п.).
	HistoryDeliveryAttemptFailed HistoryStatus = "delivery_attempt_failed"
)

// ParseHistoryStatus парсит строку в HistoryStatus.
func ParseHistoryStatus(s string) (HistoryStatus, bool) {
	h := HistoryStatus(s)
	if h == HistoryDeliveryAttemptFailed || RequestStatus(h).Valid() {
		return h, true
	}
	return "", false
}

// IsAttemptFailure возвращает true для боковой ветки delivery_attempt_failed.
func (h HistoryStatus) IsAttemptFailure() bool {
	return h == HistoryDeliveryAttemptFailed
}

// IsDeliveryAttempt возвращает true для записей, которые считаются попыткой доставки.
func (h HistoryStatus) IsDeliveryAttempt() bool {
	return h == HistoryDelivered || h == HistoryDeliveryAttemptFailed
}

// RequestStatus возвращает статус, в который переводит запись.
// Для delivery_attempt_failed ok=false — статус не меняется.
func (h HistoryStatus) RequestStatus() (RequestStatus, bool) {
	if h.IsAttemptFailure() {
		return "", false
	}
	s := RequestStatus(h)
	return s, s.Valid()
}

// IsForward возвращает true, если переход from → to не идёт назад.
// Повтор того же статуса считается допустимым.
func IsForward(from RequestStatus, to HistoryStatus) bool {
	if to.IsAttemptFailure() {
		return true
	}
	return RequestStatus(to).rank() >= from.rank()
}

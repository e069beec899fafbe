package engine

import (
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/Outreach/internal/domain"
)

// StopContext — остановка маршрута, обогащённая данными для команды.
type StopContext struct {
	Location   domain.Location `json:"location"`
	StopNumber int             `json:"stop_number"`

	// ExpectedFriends — friends, которых последний раз видели именно здесь.
	ExpectedFriends []domain.ExpectedFriend `json:"expected_friends"`

	// Requests — запросы в статусе taken, которые надо отдать на этой остановке.
	Requests []domain.Request `json:"requests"`

	// Delivery — что уже записано по этой остановке (nil — ещё ничего).
	Delivery *domain.RunStopDelivery `json:"delivery,omitempty"`
}

// ExecutionContext — всё, что нужно команде во время выезда.
type ExecutionContext struct {
	Run   domain.Run    `json:"run"`
	Stops []StopContext `json:"stops"`

	// CurrentStopIndex — индекс текущей остановки в Stops (с 0), -1 до старта.
	CurrentStopIndex int `json:"current_stop_index"`
}

// BuildExecutionContext собирает контекст исполнения. Только чтение, без побочных эффектов.
func BuildExecutionContext(
	run domain.Run,
	route *Route,
	expected []domain.ExpectedFriend,
	taken []domain.Request,
	deliveries []domain.RunStopDelivery,
) ExecutionContext {
	friendsAt := make(map[uuid.UUID][]domain.ExpectedFriend)
	for _, f := range expected {
		friendsAt[f.LocationID] = append(friendsAt[f.LocationID], f)
	}

	requestsAt := make(map[uuid.UUID][]domain.Request)
	for _, req := range taken {
		requestsAt[req.LocationID] = append(requestsAt[req.LocationID], req)
	}

	deliveryAt := make(map[uuid.UUID]domain.RunStopDelivery, len(deliveries))
	for _, d := range deliveries {
		deliveryAt[d.LocationID] = d
	}

	stops := make([]StopContext, len(route.Stops))
	for i, loc := range route.Stops {
		sc := StopContext{
			Location:        loc,
			StopNumber:      i + 1,
			ExpectedFriends: friendsAt[loc.ID],
			Requests:        requestsAt[loc.ID],
		}
		if sc.ExpectedFriends == nil {
			sc.ExpectedFriends = []domain.ExpectedFriend{}
		}
		if sc.Requests == nil {
			sc.Requests = []domain.Request{}
		}
		if d, ok := deliveryAt[loc.ID]; ok {
			sc.Delivery = &d
		}
		stops[i] = sc
	}

	return ExecutionContext{
		Run:              run,
		Stops:            stops,
		CurrentStopIndex: route.CurrentIndex(&run),
	}
}

// Supplies — что загрузить в машину перед выездом.
type Supplies struct {
	Meals    int `json:"meals"`
	Utensils int `json:"utensils"`
	Napkins  int `json:"napkins"`
	Requests int `json:"requests"`
}

// PreparationData — данные для подготовки к выезду.
type PreparationData struct {
	Run        domain.Run       `json:"run"`
	Requests   []domain.Request `json:"requests"`
	Supplies   Supplies         `json:"supplies"`
	TotalStops int              `json:"total_stops"`
}

// BuildPreparation считает набор для загрузки: по комплекту приборов
// и салфеток на каждую порцию плюс готовые к доставке запросы.
func BuildPreparation(run domain.Run, ready []domain.Request, totalStops int) PreparationData {
	if ready == nil {
		ready = []domain.Request{}
	}
	return PreparationData{
		Run:      run,
		Requests: ready,
		Supplies: Supplies{
			Meals:    run.MealCount,
			Utensils: run.MealCount,
			Napkins:  run.MealCount,
			Requests: len(ready),
		},
		TotalStops: totalStops,
	}
}

// ChangeSet — дельта для polling-синхронизации устройств.
//
// Снимки сущностей целиком, а не по полям: повторный опрос с тем же
// курсором безопасен и даёт тот же результат.
type ChangeSet struct {
	Run               domain.Run               `json:"run"`
	UpdatedRequests   []domain.Request         `json:"updated_requests"`
	RecentSightings   []domain.FriendSighting  `json:"recent_sightings"`
	UpdatedDeliveries []domain.RunStopDelivery `json:"updated_deliveries"`

	// Timestamp — серверное время чтения, курсор для следующего опроса.
	Timestamp time.Time `json:"timestamp"`
}

// IsEmpty возвращает true, если кроме снимка run ничего не изменилось.
func (c *ChangeSet) IsEmpty() bool {
	return len(c.UpdatedRequests) == 0 && len(c.RecentSightings) == 0 && len(c.UpdatedDeliveries) == 0
}

package orchestrator

import (
	"context"

	"github.com/google/uuid"
	"github.com/shaiso/Outreach/internal/domain"
	"github.com/shaiso/Outreach/internal/engine"
	"github.com/shaiso/Outreach/internal/mq"
	"github.com/shaiso/Outreach/internal/repo"
	"github.com/shaiso/Outreach/internal/telemetry"
)

// step — шаг секвенсора: следующая или предыдущая остановка.
type step func(route *engine.Route, current uuid.UUID) (engine.Position, error)

// Advance переводит выезд на следующую остановку маршрута.
// На последней остановке возвращает ValidationError "no more stops".
func (o *Orchestrator) Advance(ctx context.Context, runID, userID uuid.UUID) (*domain.Run, error) {
	return o.move(ctx, "advance", runID, userID, (*engine.Route).Next, mq.RoutingKeyRunAdvanced)
}

// Retreat возвращает выезд на предыдущую остановку маршрута.
// На первой остановке возвращает ValidationError "already at first stop".
func (o *Orchestrator) Retreat(ctx context.Context, runID, userID uuid.UUID) (*domain.Run, error) {
	return o.move(ctx, "retreat", runID, userID, (*engine.Route).Prev, mq.RoutingKeyRunRetreated)
}

// move вычисляет переход от сохранённой позиции под блокировкой строки run,
// поэтому два одновременных advance дают два последовательных шага.
func (o *Orchestrator) move(ctx context.Context, op string, runID, userID uuid.UUID, next step, key mq.RoutingKey) (*domain.Run, error) {
	var run *domain.Run
	err := o.store.InTx(ctx, func(r repo.Repos) error {
		var err error
		run, err = loadRun(ctx, r, runID, true)
		if err != nil {
			return err
		}
		if err := run.CanMove(); err != nil {
			return err
		}
		if run.CurrentLocationID == nil {
			return engine.ErrNotOnRoute
		}

		route, err := loadRoute(ctx, r, run.RouteID)
		if err != nil {
			return err
		}
		pos, err := next(route, *run.CurrentLocationID)
		if err != nil {
			return err
		}

		run.MoveTo(pos.Location.ID, pos.StopNumber, o.now())
		return r.Runs.Update(ctx, run)
	})
	if err := o.finish(op, err, "run_id", runID); err != nil {
		return nil, err
	}

	telemetry.WithRunID(o.logger, run.ID.String()).Debug("run moved",
		"op", op,
		"stop_number", *run.CurrentStopNumber,
		"location_id", *run.CurrentLocationID,
	)
	o.publish(ctx, mq.Event{
		Key:        key,
		RunID:      run.ID,
		LocationID: run.CurrentLocationID,
		UserID:     userID,
		Status:     string(run.Status),
		StopNumber: *run.CurrentStopNumber,
	})
	return run, nil
}

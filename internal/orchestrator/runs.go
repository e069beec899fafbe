package orchestrator

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/Outreach/internal/domain"
	"github.com/shaiso/Outreach/internal/engine"
	"github.com/shaiso/Outreach/internal/mq"
	"github.com/shaiso/Outreach/internal/repo"
	"github.com/shaiso/Outreach/internal/telemetry"
)

// CreateRun создаёт выезд в статусе scheduled.
//
// Имя вычисляется из маршрута и даты; имя от клиента игнорируется.
// Создатель сразу становится первым участником команды, то есть лидером.
func (o *Orchestrator) CreateRun(ctx context.Context, in domain.NewRunInput) (*domain.Run, error) {
	date, err := in.Validate()
	if err != nil {
		return nil, o.finish("create_run", err)
	}

	now := o.now()
	run := &domain.Run{
		ID:            uuid.New(),
		RouteID:       in.RouteID,
		Status:        domain.RunStatusScheduled,
		ScheduledDate: date,
		StartTime:     in.StartTime,
		EndTime:       in.EndTime,
		MealCount:     in.MealCount,
		Notes:         in.Notes,
		CreatedBy:     in.CreatedBy,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	err = o.store.InTx(ctx, func(r repo.Repos) error {
		route, err := r.Routes.GetRoute(ctx, in.RouteID)
		if err != nil {
			return notFound(err, "route", in.RouteID)
		}
		run.Name = domain.RunName(route.Name, date)

		if err := r.Runs.Create(ctx, run); err != nil {
			return err
		}

		if in.CreatedBy == uuid.Nil {
			return nil
		}
		m := domain.TeamMember{RunID: run.ID, UserID: in.CreatedBy, JoinedAt: now}
		if err := r.Team.Add(ctx, &m); err != nil && !errors.Is(err, repo.ErrAlreadyExists) {
			return err
		}
		return nil
	})
	if err := o.finish("create_run", err, "route_id", in.RouteID); err != nil {
		return nil, err
	}

	o.logger.Info("run created", "run_id", run.ID, "name", run.Name)
	o.publish(ctx, mq.Event{
		Key:    mq.RoutingKeyRunCreated,
		RunID:  run.ID,
		UserID: in.CreatedBy,
		Status: string(run.Status),
	})
	return run, nil
}

// GetRun возвращает выезд по ID.
func (o *Orchestrator) GetRun(ctx context.Context, runID uuid.UUID) (*domain.Run, error) {
	run, err := loadRun(ctx, o.store.Repos(), runID, false)
	if err := o.finish("get_run", err, "run_id", runID); err != nil {
		return nil, err
	}
	return run, nil
}

// ListRuns возвращает выезды по фильтру.
func (o *Orchestrator) ListRuns(ctx context.Context, filter repo.RunFilter) ([]domain.Run, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, o.finish("list_runs", domain.NewValidationError("status", "unknown run status "+string(filter.Status)))
	}
	if filter.Limit <= 0 {
		filter.Limit = defaultListLimit
	}
	if filter.Limit > maxListLimit {
		filter.Limit = maxListLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	runs, err := o.store.Repos().Runs.List(ctx, filter)
	if err := o.finish("list_runs", err); err != nil {
		return nil, err
	}
	return runs, nil
}

// UpdateRun применяет патч к выезду.
//
// Имя, статус и позиция патчем не меняются. Маршрут можно сменить только
// до старта: иначе позиция секвенсора потеряет смысл. Остальные поля
// правятся и у завершённого или отменённого выезда.
func (o *Orchestrator) UpdateRun(ctx context.Context, runID uuid.UUID, patch domain.RunPatch, userID uuid.UUID) (*domain.Run, error) {
	if patch.MealCount != nil && *patch.MealCount < 0 {
		return nil, o.finish("update_run", domain.NewValidationError("meal_count", "meal count must be >= 0"))
	}

	var run *domain.Run
	err := o.store.InTx(ctx, func(r repo.Repos) error {
		var err error
		run, err = loadRun(ctx, r, runID, true)
		if err != nil {
			return err
		}
		if patch.RouteID != nil && *patch.RouteID != run.RouteID {
			if run.Status != domain.RunStatusScheduled {
				return ErrRouteLocked
			}
			if _, err := r.Routes.GetRoute(ctx, *patch.RouteID); err != nil {
				return notFound(err, "route", *patch.RouteID)
			}
		}

		patch.Apply(run, o.now())
		return r.Runs.Update(ctx, run)
	})
	if err := o.finish("update_run", err, "run_id", runID); err != nil {
		return nil, err
	}

	o.publish(ctx, mq.Event{
		Key:    mq.RoutingKeyRunUpdated,
		RunID:  run.ID,
		UserID: userID,
		Status: string(run.Status),
	})
	return run, nil
}

// StartRun переводит выезд в in_progress и ставит его на первую остановку.
func (o *Orchestrator) StartRun(ctx context.Context, runID, userID uuid.UUID) (*domain.Run, error) {
	var run *domain.Run
	err := o.store.InTx(ctx, func(r repo.Repos) error {
		var err error
		run, err = loadRun(ctx, r, runID, true)
		if err != nil {
			return err
		}
		if err := run.CanStart(); err != nil {
			return err
		}

		route, err := loadRoute(ctx, r, run.RouteID)
		if err != nil {
			return err
		}
		first, err := route.First()
		if err != nil {
			return err
		}

		run.MarkStarted(first.ID, o.now())
		return r.Runs.Update(ctx, run)
	})
	if err := o.finish("start_run", err, "run_id", runID); err != nil {
		return nil, err
	}

	telemetry.RunTransitions.WithLabelValues(string(run.Status)).Inc()
	telemetry.WithRunID(o.logger, run.ID.String()).Info("run started", "stop_number", *run.CurrentStopNumber)
	o.publish(ctx, mq.Event{
		Key:        mq.RoutingKeyRunStarted,
		RunID:      run.ID,
		LocationID: run.CurrentLocationID,
		UserID:     userID,
		Status:     string(run.Status),
		StopNumber: *run.CurrentStopNumber,
	})
	return run, nil
}

// CompleteRun завершает выезд. Только из in_progress.
func (o *Orchestrator) CompleteRun(ctx context.Context, runID, userID uuid.UUID) (*domain.Run, error) {
	return o.finishRun(ctx, "complete_run", runID, userID, (*domain.Run).CanComplete, (*domain.Run).MarkCompleted, mq.RoutingKeyRunCompleted)
}

// CancelRun отменяет выезд. Из scheduled или in_progress.
func (o *Orchestrator) CancelRun(ctx context.Context, runID, userID uuid.UUID) (*domain.Run, error) {
	return o.finishRun(ctx, "cancel_run", runID, userID, (*domain.Run).CanCancel, (*domain.Run).MarkCancelled, mq.RoutingKeyRunCancelled)
}

// finishRun — общий переход в терминальный статус.
func (o *Orchestrator) finishRun(
	ctx context.Context,
	op string,
	runID, userID uuid.UUID,
	check func(*domain.Run) error,
	mark func(*domain.Run, time.Time),
	key mq.RoutingKey,
) (*domain.Run, error) {
	var run *domain.Run
	err := o.store.InTx(ctx, func(r repo.Repos) error {
		var err error
		run, err = loadRun(ctx, r, runID, true)
		if err != nil {
			return err
		}
		if err := check(run); err != nil {
			return err
		}
		mark(run, o.now())
		return r.Runs.Update(ctx, run)
	})
	if err := o.finish(op, err, "run_id", runID); err != nil {
		return nil, err
	}

	telemetry.RunTransitions.WithLabelValues(string(run.Status)).Inc()
	telemetry.WithRunID(o.logger, run.ID.String()).Info("run finished", "status", run.Status)
	o.publish(ctx, mq.Event{
		Key:    key,
		RunID:  run.ID,
		UserID: userID,
		Status: string(run.Status),
	})
	return run, nil
}

// GetExecutionContext собирает всё, что нужно команде на маршруте:
// остановки по порядку, ожидаемых friends, запросы к выдаче и записи о доставке.
func (o *Orchestrator) GetExecutionContext(ctx context.Context, runID uuid.UUID) (*engine.ExecutionContext, error) {
	r := o.store.Repos()

	build := func() (*engine.ExecutionContext, error) {
		run, err := loadRun(ctx, r, runID, false)
		if err != nil {
			return nil, err
		}
		route, err := loadRoute(ctx, r, run.RouteID)
		if err != nil {
			return nil, err
		}
		expected, err := r.Sightings.LatestOnRoute(ctx, run.RouteID)
		if err != nil {
			return nil, err
		}
		taken, err := r.Requests.ListForRunOrUnassigned(ctx, run.ID, run.RouteID, domain.RequestStatusTaken)
		if err != nil {
			return nil, err
		}
		deliveries, err := r.Deliveries.ListByRun(ctx, run.ID)
		if err != nil {
			return nil, err
		}

		ec := engine.BuildExecutionContext(*run, route, expected, taken, deliveries)
		return &ec, nil
	}

	ec, err := build()
	if err := o.finish("get_execution_context", err, "run_id", runID); err != nil {
		return nil, err
	}
	return ec, nil
}

// GetPreparationData считает, что загрузить в машину перед выездом.
func (o *Orchestrator) GetPreparationData(ctx context.Context, runID uuid.UUID) (*engine.PreparationData, error) {
	r := o.store.Repos()

	build := func() (*engine.PreparationData, error) {
		run, err := loadRun(ctx, r, runID, false)
		if err != nil {
			return nil, err
		}
		stops, err := r.Routes.ListStops(ctx, run.RouteID)
		if err != nil {
			return nil, err
		}
		ready, err := r.Requests.ListForRunOrUnassigned(ctx, run.ID, run.RouteID, domain.RequestStatusReadyForDelivery)
		if err != nil {
			return nil, err
		}

		prep := engine.BuildPreparation(*run, ready, len(stops))
		return &prep, nil
	}

	prep, err := build()
	if err := o.finish("get_preparation_data", err, "run_id", runID); err != nil {
		return nil, err
	}
	return prep, nil
}

// CancelStaleRuns отменяет scheduled выезды с датой раньше before.
// Каждый выезд — отдельная транзакция; возвращает число отменённых.
func (o *Orchestrator) CancelStaleRuns(ctx context.Context, before time.Time, limit int) (int, error) {
	stale, err := o.store.Repos().Runs.ListStaleScheduled(ctx, before, limit)
	if err := o.finish("list_stale_runs", err); err != nil {
		return 0, err
	}

	cancelled := 0
	for i := range stale {
		runID := stale[i].ID

		var run *domain.Run
		err := o.store.InTx(ctx, func(r repo.Repos) error {
			var err error
			run, err = loadRun(ctx, r, runID, true)
			if err != nil {
				return err
			}
			// Могли стартовать, пока мы читали список
			if run.Status != domain.RunStatusScheduled {
				run = nil
				return nil
			}
			run.MarkCancelled(o.now())
			return r.Runs.Update(ctx, run)
		})
		if err := o.finish("cancel_stale_run", err, "run_id", runID); err != nil {
			if ctx.Err() != nil {
				return cancelled, err
			}
			continue
		}
		if run == nil {
			continue
		}

		cancelled++
		telemetry.SweptRuns.Inc()
		telemetry.RunTransitions.WithLabelValues(string(run.Status)).Inc()
		o.publish(ctx, mq.Event{
			Key:    mq.RoutingKeyRunCancelled,
			RunID:  run.ID,
			Status: string(run.Status),
		})
	}

	return cancelled, nil
}

// loadRoute читает остановки маршрута в порядке обхода.
func loadRoute(ctx context.Context, r repo.Repos, routeID uuid.UUID) (*engine.Route, error) {
	stops, err := r.Routes.ListStops(ctx, routeID)
	if err != nil {
		return nil, err
	}
	return engine.NewRoute(stops), nil
}

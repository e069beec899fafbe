package orchestrator

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/Outreach/internal/domain"
	"github.com/shaiso/Outreach/internal/mq"
	"github.com/shaiso/Outreach/internal/repo"
	"github.com/shaiso/Outreach/internal/telemetry"
)

// Default configuration values.
const (
	defaultListLimit = 50
	maxListLimit     = 200
)

// EventPublisher публикует доменные события. Реализация — *mq.Publisher.
type EventPublisher interface {
	PublishEvent(ctx context.Context, ev mq.Event) error
}

// Orchestrator управляет выездами и всем, что происходит во время них.
//
// Orchestrator — единственная точка записи:
//   - Жизненный цикл run (create, start, complete, cancel, update)
//   - Секвенсор остановок (advance, retreat)
//   - Журнал статусов запросов и проекция статуса
//   - Состав команды
//   - Записи о доставке и встречах с friends
//
// Каждая мутирующая операция — одна транзакция хранилища. События
// публикуются после коммита; сбой публикации операцию не откатывает.
type Orchestrator struct {
	store     repo.Store
	publisher EventPublisher
	logger    *slog.Logger
	now       func() time.Time

	strictStatusOrder bool
	changeFeedLag     time.Duration
	pending           pendingWrites
}

// Config — конфигурация Orchestrator.
type Config struct {
	// Store — хранилище (PostgreSQL или память).
	Store repo.Store

	// Publisher — публикация событий. nil — события не публикуются.
	Publisher EventPublisher

	// Logger
	Logger *slog.Logger

	// Now — часы сервиса. По умолчанию time.Now в UTC с точностью до микросекунд.
	Now func() time.Time

	// StrictStatusOrder — отклонять переходы статуса запроса назад.
	// По умолчанию такие записи принимаются и только логируются.
	StrictStatusOrder bool

	// ChangeFeedLag — насколько курсор ленты изменений отстаёт от часов.
	// Покрывает расхождение часов между репликами API и БД; клиенты
	// дедуплицируют повторно пришедшие записи по id.
	ChangeFeedLag time.Duration
}

// New создаёт новый Orchestrator.
func New(cfg Config) *Orchestrator {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	now := cfg.Now
	if now == nil {
		now = func() time.Time {
			// PostgreSQL хранит timestamptz с точностью до микросекунд
			return time.Now().UTC().Truncate(time.Microsecond)
		}
	}

	o := &Orchestrator{
		store:             cfg.Store,
		logger:            logger,
		now:               now,
		strictStatusOrder: cfg.StrictStatusOrder,
		changeFeedLag:     cfg.ChangeFeedLag,
	}
	// Типизированный nil в интерфейсе дал бы панику при публикации
	if p, ok := cfg.Publisher.(*mq.Publisher); !ok || p != nil {
		o.publisher = cfg.Publisher
	}
	return o
}

// Now возвращает текущее время по часам сервиса.
func (o *Orchestrator) Now() time.Time {
	return o.now()
}

// finish учитывает исход операции и переводит ошибку в публичный вид.
//
// ValidationError и NotFoundError возвращаются как есть и не логируются.
// Всё остальное — сбой хранилища: логируется один раз с операцией и
// идентификаторами, наружу уходит domain.ErrInternal.
func (o *Orchestrator) finish(op string, err error, attrs ...any) error {
	switch {
	case err == nil:
		telemetry.Operations.WithLabelValues(op, "ok").Inc()
		return nil
	case domain.IsValidation(err):
		telemetry.Operations.WithLabelValues(op, "validation").Inc()
		return err
	case domain.IsNotFound(err):
		telemetry.Operations.WithLabelValues(op, "not_found").Inc()
		return err
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		telemetry.Operations.WithLabelValues(op, "cancelled").Inc()
		return err
	}

	telemetry.Operations.WithLabelValues(op, "internal").Inc()
	args := append([]any{"op", op, "error", err}, attrs...)
	o.logger.Error("operation failed", args...)
	return domain.ErrInternal
}

// publish отправляет событие, если publisher настроен.
func (o *Orchestrator) publish(ctx context.Context, ev mq.Event) {
	if o.publisher == nil {
		return
	}
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = o.now()
	}

	if err := o.publisher.PublishEvent(ctx, ev); err != nil {
		telemetry.EventsPublished.WithLabelValues(string(ev.Key), "error").Inc()
		o.logger.Warn("failed to publish event",
			"routing_key", ev.Key,
			"run_id", ev.RunID,
			"error", err,
		)
		return
	}
	telemetry.EventsPublished.WithLabelValues(string(ev.Key), "ok").Inc()
}

// notFound переводит repo.ErrNotFound в NotFoundError для entity.
func notFound(err error, entity string, id uuid.UUID) error {
	if errors.Is(err, repo.ErrNotFound) {
		return domain.NewNotFoundError(entity, id)
	}
	return err
}

// loadRun читает run; forUpdate блокирует строку до конца транзакции.
func loadRun(ctx context.Context, r repo.Repos, id uuid.UUID, forUpdate bool) (*domain.Run, error) {
	var (
		run *domain.Run
		err error
	)
	if forUpdate {
		run, err = r.Runs.GetForUpdate(ctx, id)
	} else {
		run, err = r.Runs.GetByID(ctx, id)
	}
	if err != nil {
		return nil, notFound(err, "run", id)
	}
	return run, nil
}

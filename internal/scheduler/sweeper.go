package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// LockKey — ключ advisory lock для выбора лидера среди реплик sweeper'а.
const LockKey int64 = 424242

// Canceller отменяет просроченные выезды. Реализация — *orchestrator.Orchestrator.
type Canceller interface {
	CancelStaleRuns(ctx context.Context, before time.Time, limit int) (int, error)
	Now() time.Time
}

// Locker — блокировка лидера. Реализации — *repo.PgStore и *memory.Store.
type Locker interface {
	TryAdvisoryLock(ctx context.Context, key int64) (bool, error)
	AdvisoryUnlock(ctx context.Context, key int64) error
}

// Sweeper — отменяет scheduled выезды, дата которых давно прошла.
type Sweeper struct {
	runs       Canceller
	lock       Locker
	logger     *slog.Logger
	cronExpr   string
	staleAfter time.Duration
	batchSize  int

	// hasLock меняется только из Tick; cron не запускает тики параллельно.
	hasLock bool
}

// Config — конфигурация Sweeper.
type Config struct {
	Runs   Canceller
	Lock   Locker
	Logger *slog.Logger

	// Cron — расписание тиков (стандартный 5-полевой формат, default: каждые 15 минут).
	Cron string

	// StaleAfter — сколько ждать после даты выезда (default: 24h).
	StaleAfter time.Duration

	BatchSize int // выездов за один тик (default: 100)
}

// New создаёт новый Sweeper.
func New(cfg Config) (*Sweeper, error) {
	expr := cfg.Cron
	if expr == "" {
		expr = "*/15 * * * *"
	}
	if err := ValidateCronExpr(expr); err != nil {
		return nil, err
	}

	staleAfter := cfg.StaleAfter
	if staleAfter <= 0 {
		staleAfter = 24 * time.Hour
	}
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 100
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Sweeper{
		runs:       cfg.Runs,
		lock:       cfg.Lock,
		logger:     logger,
		cronExpr:   expr,
		staleAfter: staleAfter,
		batchSize:  batchSize,
	}, nil
}

// Cutoff возвращает границу: выезды с датой строго раньше неё просрочены.
// Граница — полночь UTC того дня, который был staleAfter назад.
func (s *Sweeper) Cutoff(now time.Time) time.Time {
	t := now.UTC().Add(-s.staleAfter)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Tick выполняет один проход sweeper'а.
//
// 1. Берёт (или подтверждает) лидерство через advisory lock
// 2. Отменяет scheduled выезды с датой раньше Cutoff
//
// Не лидер пропускает тик без ошибки.
func (s *Sweeper) Tick(ctx context.Context) (int, error) {
	if !s.hasLock {
		ok, err := s.lock.TryAdvisoryLock(ctx, LockKey)
		if err != nil {
			return 0, fmt.Errorf("leader lock: %w", err)
		}
		if !ok {
			s.logger.Debug("not a leader, skipping tick")
			return 0, nil
		}
		s.hasLock = true
		s.logger.Info("acquired sweeper leadership")
	}

	before := s.Cutoff(s.runs.Now())
	n, err := s.runs.CancelStaleRuns(ctx, before, s.batchSize)
	if err != nil {
		return n, fmt.Errorf("cancel stale runs: %w", err)
	}

	if n > 0 {
		s.logger.Info("sweeper tick completed", "cancelled", n, "before", before.Format(time.DateOnly))
	} else {
		s.logger.Debug("sweeper tick completed", "cancelled", 0)
	}
	return n, nil
}

// Run запускает тики по cron-расписанию до отмены ctx и отпускает лидерство.
func (s *Sweeper) Run(ctx context.Context) error {
	c := cron.New(
		cron.WithParser(cronParser),
		cron.WithLocation(time.UTC),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)

	_, err := c.AddFunc(s.cronExpr, func() {
		if _, err := s.Tick(ctx); err != nil && ctx.Err() == nil {
			s.logger.Error("sweeper tick failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("schedule sweeper: %w", err)
	}

	if next, err := NextRun(s.cronExpr, time.Now()); err == nil {
		s.logger.Info("sweeper started", "cron", s.cronExpr, "stale_after", s.staleAfter, "next_run", next)
	}
	c.Start()

	<-ctx.Done()
	<-c.Stop().Done()

	if s.hasLock {
		unlockCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.lock.AdvisoryUnlock(unlockCtx, LockKey); err != nil {
			s.logger.Warn("failed to release sweeper lock", "error", err)
		}
		s.hasLock = false
	}
	return nil
}

// Package scheduler реализует sweeper просроченных выездов.
//
// Sweeper по cron-расписанию отменяет выезды, которые так и остались
// в статусе scheduled, хотя их дата прошла больше чем staleAfter назад.
//
// Структура:
//   - sweeper.go — Sweeper (Tick, Run) и выбор лидера
//   - cron.go    — парсинг cron-выражений и вычисление следующего тика
//
// Использование:
//
//	sw, err := scheduler.New(scheduler.Config{
//	    Runs:       orch,
//	    Lock:       store,
//	    Logger:     logger,
//	    Cron:       "*/15 * * * *",
//	    StaleAfter: 24 * time.Hour,
//	})
//	go sw.Run(ctx)
//
// Leader Election:
//
// Tick выполняет работу только при удержании pg_try_advisory_lock(LockKey);
// остальные реплики пропускают тики, пока лидер жив.
package scheduler

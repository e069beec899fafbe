// Package telemetry обеспечивает наблюдаемость сервисов Outreach.
//
// Включает:
//   - logging.go — slog с уровнем и форматом из конфигурации (LOG_LEVEL, LOG_FORMAT)
//   - metrics.go — Prometheus метрики с префиксом outreach_
//
// outreach-api и outreach-sweeper отдают метрики на /metrics:
// HTTP-запросы по шаблону маршрута, переходы выездов, записи статусов
// запросов, исходы операций движка, опубликованные события и
// отменённые sweeper'ом выезды.
package telemetry

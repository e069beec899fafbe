// Package api содержит HTTP API сервер.
//
// Структура:
//   - handler.go           — Handler с DI (orchestrator, authenticator, logger)
//   - routes.go            — регистрация маршрутов
//   - middleware.go        — middleware (recovery, metrics, logging)
//   - auth.go              — проверка HS256 bearer токенов
//   - response.go          — унифицированные JSON-ответы и обработка ошибок
//   - dto.go               — Data Transfer Objects (request)
//   - run_handler.go       — обработчики для /runs
//   - execution_handler.go — доставки, встречи, команда
//   - request_handler.go   — обработчики для /requests
//
// Ошибки: неразборчивый запрос — 400, ValidationError — 422 с полем,
// NotFoundError — 404, всё остальное — 500 без деталей.
package api

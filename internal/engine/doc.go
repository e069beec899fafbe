// Package engine содержит чистые функции исполнения выезда.
//
// Включает:
//   - route.go    — порядок остановок маршрута и пошаговый обход (секвенсор)
//   - roster.go   — порядок команды и вычисление лидера
//   - sightings.go — "ожидаемые friends" по последнему появлению на остановке
//   - context.go  — сборка контекста исполнения и данных подготовки
//
// Engine не ходит в хранилище: orchestrator загружает данные в транзакции,
// а engine решает, что с ними делать. Поэтому всё здесь тестируется без БД.
package engine

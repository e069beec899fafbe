// Package cli реализует инструмент командной строки Outreach.
//
// # Обзор
//
// CLI — клиентская утилита для волонтёров и координаторов. Ресурсы API
// доступны через HTTP, ответы дублируются собственными типами и не
// зависят от domain. Исключения: events читает RabbitMQ через mq,
// token выпускает токен тем же api.Authenticator, что проверяет сервер.
//
// # Ключевые компоненты
//
// ## Client
//
// HTTP-клиент для Outreach API. Инкапсулирует запросы, парсинг
// конвертов ({"data": ...}, {"error": ...}) и аутентификацию:
// Bearer-токен, если задан, иначе X-User-ID для dev-режима.
//
//	client := cli.NewClient(cli.ClientConfig{BaseURL: "http://localhost:8080", Token: token})
//	runs, err := client.ListRuns(cli.ListRunsOpts{Status: "scheduled"})
//
// ## Output
//
// Форматирование вывода. Поддерживает два режима:
//   - Таблицы (text/tabwriter) — по умолчанию
//   - JSON (json.MarshalIndent) — с флагом --json
//
// Данные выводятся в stdout, сообщения (Success/Error) — в stderr.
// Это позволяет использовать pipe: outreach run list --json | jq .
//
// ## Commands
//
// Cobra-команды организованы по ресурсам:
//   - run: list, create, show, update, start, advance, retreat, complete,
//     cancel, context, prep, changes, deliver
//   - team: list, join, leave
//   - request: list, create, status, history, attempts
//   - sighting: record, expected
//   - events: хвост outreach.events
//   - token: выпуск bearer-токена
//
// Каждая группа создаётся через фабричную функцию (NewRunCmd и т.д.),
// принимающую clientFn и outputFn — замыкания для ленивого создания
// Client и Output после парсинга PersistentFlags.
package cli

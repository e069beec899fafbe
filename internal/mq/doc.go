// Package mq предоставляет инфраструктуру для работы с RabbitMQ.
//
// Структура:
//   - connection.go — управление соединением с RabbitMQ (reconnect, graceful shutdown)
//   - topology.go   — объявление exchange, очереди ленты активности, bindings
//   - publisher.go  — публикация доменных событий
//   - consumer.go   — подписка на события (outreach-cli events)
//
// События публикуются в topic exchange outreach.events после коммита
// операции. Routing key — "<сущность>.<событие>":
//   - run.created, run.started, run.advanced, run.retreated, run.completed, ...
//   - request.created, request.status
//   - delivery.recorded, friend.sighted
//   - team.joined, team.left
package mq

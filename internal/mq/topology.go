package mq

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Exchange — тип для имени обменника.
type Exchange string

// Queue — тип для имени очереди.
type Queue string

// RoutingKey — тип для ключа маршрутизации.
type RoutingKey string

// Exchanges — имена обменников.
const (
	ExchangeEvents Exchange = "outreach.events"
)

// Queues — имена очередей.
const (
	// QueueActivity — лента активности для внешних подписчиков
	// (уведомления координаторам, аналитика).
	QueueActivity Queue = "outreach.activity"
)

// Routing keys событий. Формат "<сущность>.<событие>".
const (
	RoutingKeyRunCreated   RoutingKey = "run.created"
	RoutingKeyRunUpdated   RoutingKey = "run.updated"
	RoutingKeyRunStarted   RoutingKey = "run.started"
	RoutingKeyRunAdvanced  RoutingKey = "run.advanced"
	RoutingKeyRunRetreated RoutingKey = "run.retreated"
	RoutingKeyRunCompleted RoutingKey = "run.completed"
	RoutingKeyRunCancelled RoutingKey = "run.cancelled"

	RoutingKeyDeliveryRecorded RoutingKey = "delivery.recorded"
	RoutingKeyFriendSighted    RoutingKey = "friend.sighted"

	RoutingKeyRequestCreated RoutingKey = "request.created"
	RoutingKeyRequestStatus  RoutingKey = "request.status"

	RoutingKeyTeamJoined RoutingKey = "team.joined"
	RoutingKeyTeamLeft   RoutingKey = "team.left"
)

// activityPatterns — что попадает в ленту активности.
var activityPatterns = []RoutingKey{"run.*", "delivery.*", "friend.*", "request.*", "team.*"}

// SetupTopology объявляет exchange, очередь ленты и привязки. Идемпотентна.
func SetupTopology(ctx context.Context, conn *Connection) error {
	return conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		err := ch.ExchangeDeclare(
			string(ExchangeEvents), // name
			"topic",                // type
			true,                   // durable
			false,                  // auto-deleted
			false,                  // internal
			false,                  // no-wait
			nil,                    // arguments
		)
		if err != nil {
			return fmt.Errorf("declare exchange %s: %w", ExchangeEvents, err)
		}

		_, err = ch.QueueDeclare(
			string(QueueActivity), // name
			true,                  // durable
			false,                 // delete when unused
			false,                 // exclusive
			false,                 // no-wait
			nil,                   // arguments
		)
		if err != nil {
			return fmt.Errorf("declare queue %s: %w", QueueActivity, err)
		}

		for _, pattern := range activityPatterns {
			err := ch.QueueBind(
				string(QueueActivity),  // queue name
				string(pattern),        // routing key
				string(ExchangeEvents), // exchange
				false,                  // no-wait
				nil,                    // arguments
			)
			if err != nil {
				return fmt.Errorf("bind queue %s to %s: %w", QueueActivity, pattern, err)
			}
		}

		return nil
	})
}

// TopologyInfo возвращает описание топологии для логирования.
func TopologyInfo() string {
	return `
  Outreach RabbitMQ Topology:

    outreach.events (topic)
    └── outreach.activity [run.* delivery.* friend.* request.* team.*]
            Consumers: external (notifications, analytics)
  `
}

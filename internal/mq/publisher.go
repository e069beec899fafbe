package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// Publisher публикует события в RabbitMQ.
type Publisher struct {
	conn   *Connection
	logger *slog.Logger
}

// NewPublisher создаёт новый Publisher.
func NewPublisher(conn *Connection, logger *slog.Logger) *Publisher {
	return &Publisher{
		conn:   conn,
		logger: logger,
	}
}

// Message — конверт сообщения.
type Message struct {
	// ID — уникальный идентификатор сообщения.
	ID string `json:"id"`

	// Type — тип события, совпадает с routing key.
	Type RoutingKey `json:"type"`

	// Payload — полезная нагрузка.
	Payload any `json:"payload"`

	// Timestamp — время создания.
	Timestamp time.Time `json:"timestamp"`
}

// Event — доменное событие, опубликованное после коммита операции.
// Заполняются только поля, относящиеся к событию.
type Event struct {
	Key RoutingKey `json:"-"`

	RunID      uuid.UUID  `json:"run_id,omitempty"`
	RequestID  *uuid.UUID `json:"request_id,omitempty"`
	LocationID *uuid.UUID `json:"location_id,omitempty"`
	FriendID   *uuid.UUID `json:"friend_id,omitempty"`
	UserID     uuid.UUID  `json:"user_id"`

	// Status — новый статус run или запись журнала запроса.
	Status string `json:"status,omitempty"`

	// StopNumber — номер остановки после перехода секвенсора.
	StopNumber int `json:"stop_number,omitempty"`

	OccurredAt time.Time `json:"occurred_at"`
}

// Publish публикует сообщение в указанный exchange с routing key.
func (p *Publisher) Publish(ctx context.Context, exchange Exchange, routingKey RoutingKey, msg *Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	return p.conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		err := ch.PublishWithContext(
			ctx,
			string(exchange),   // exchange
			string(routingKey), // routing key
			false,
			false,
			amqp.Publishing{
				ContentType:  "application/json",
				DeliveryMode: amqp.Persistent, // сообщение переживёт рестарт RabbitMQ
				MessageId:    msg.ID,
				Timestamp:    msg.Timestamp,
				Body:         body,
			},
		)
		if err != nil {
			return fmt.Errorf("publish to %s/%s: %w", exchange, routingKey, err)
		}

		p.logger.Debug("published message",
			"exchange", exchange,
			"routing_key", routingKey,
			"message_id", msg.ID,
		)

		return nil
	})
}

// PublishEvent публикует доменное событие в outreach.events.
func (p *Publisher) PublishEvent(ctx context.Context, ev Event) error {
	return p.Publish(ctx, ExchangeEvents, ev.Key, NewEventMessage(ev))
}

// NewEventMessage заворачивает событие в конверт.
func NewEventMessage(ev Event) *Message {
	ts := ev.OccurredAt
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	return &Message{
		ID:        uuid.New().String(),
		Type:      ev.Key,
		Payload:   ev,
		Timestamp: ts,
	}
}

// ParsePayload декодирует payload конверта в T.
func ParsePayload[T any](body []byte) (*T, error) {
	var envelope struct {
		Payload json.RawMessage `json:"payload"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("unmarshal message: %w", err)
	}
	var payload T
	if err := json.Unmarshal(envelope.Payload, &payload); err != nil {
		return nil, fmt.Errorf("unmarshal payload: %w", err)
	}
	return &payload, nil
}

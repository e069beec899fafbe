package mq

import (
	"context"
	"fmt"
	"log/slog"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Handler — функция обработки события.
// Возвращает error, если обработка не удалась (сообщение будет nack).
type Handler func(ctx context.Context, d *Delivery) error

// Delivery — доставленное событие.
type Delivery struct {
	// Key — routing key, с которым событие опубликовано.
	Key RoutingKey

	// Body — сырой JSON конверта; payload читается через ParsePayload.
	Body []byte

	// Raw — сырое AMQP сообщение.
	Raw amqp.Delivery
}

// Event декодирует payload как Event и заполняет Key.
func (d *Delivery) Event() (*Event, error) {
	ev, err := ParsePayload[Event](d.Body)
	if err != nil {
		return nil, err
	}
	ev.Key = d.Key
	return ev, nil
}

// Tailer подписывается на outreach.events через временную эксклюзивную
// очередь и передаёт события обработчику. Общую очередь ленты не трогает.
type Tailer struct {
	conn    *Connection
	logger  *slog.Logger
	pattern RoutingKey
	handler Handler
}

// TailerConfig — конфигурация Tailer.
type TailerConfig struct {
	// Pattern — topic-шаблон routing key ("run.*", "#"). По умолчанию "#".
	Pattern RoutingKey

	// Handler — обработчик событий.
	Handler Handler
}

// NewTailer создаёт новый Tailer.
func NewTailer(conn *Connection, logger *slog.Logger, cfg TailerConfig) *Tailer {
	pattern := cfg.Pattern
	if pattern == "" {
		pattern = "#"
	}

	return &Tailer{
		conn:    conn,
		logger:  logger,
		pattern: pattern,
		handler: cfg.Handler,
	}
}

// Run потребляет события до отмены ctx или закрытия канала.
func (t *Tailer) Run(ctx context.Context) error {
	var deliveries <-chan amqp.Delivery

	err := t.conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		q, err := ch.QueueDeclare(
			"",    // name (server-generated)
			false, // durable
			true,  // delete when unused
			true,  // exclusive
			false, // no-wait
			nil,   // arguments
		)
		if err != nil {
			return fmt.Errorf("declare tail queue: %w", err)
		}

		if err := ch.QueueBind(q.Name, string(t.pattern), string(ExchangeEvents), false, nil); err != nil {
			return fmt.Errorf("bind tail queue: %w", err)
		}

		deliveries, err = ch.Consume(
			q.Name, // queue
			"",     // consumer tag (auto-generated)
			false,  // auto-ack (мы ack вручную)
			true,   // exclusive
			false,  // no-local
			false,  // no-wait
			nil,    // args
		)
		if err != nil {
			return fmt.Errorf("consume: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	t.logger.Debug("tailing events", "pattern", t.pattern)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case raw, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("deliveries channel closed")
			}
			t.handle(ctx, raw)
		}
	}
}

// handle обрабатывает одно сообщение.
func (t *Tailer) handle(ctx context.Context, raw amqp.Delivery) {
	d := &Delivery{
		Key:  RoutingKey(raw.RoutingKey),
		Body: raw.Body,
		Raw:  raw,
	}

	if err := t.handler(ctx, d); err != nil {
		t.logger.Warn("event handler failed",
			"routing_key", raw.RoutingKey,
			"message_id", raw.MessageId,
			"error", err,
		)
		// Временная очередь без DLQ: битое событие просто отбрасываем
		raw.Nack(false, false)
		return
	}

	raw.Ack(false)
}

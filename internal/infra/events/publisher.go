package events

import (
	"context"
	"log/slog"
	"time"

	"storefront/internal/pkg/config"
	"storefront/internal/pkg/errs"
	"storefront/internal/usecase/commands"

	amqp "github.com/rabbitmq/amqp091-go"
)

// AMQPPublisher fans order events out on a topic exchange. Events are
// best effort at this layer; the durable copy lives in the outbox table
// written inside the same transaction as the state change.
type AMQPPublisher struct {
	conn     *amqp.Connection
	ch       *amqp.Channel
	exchange string
}

func NewAMQPPublisher(cfg config.AMQPConfig) (*AMQPPublisher, func(), error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, nil, errs.Wrap(err, "failed to connect to amqp broker")
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, nil, errs.Wrap(err, "failed to open amqp channel")
	}

	if err := ch.ExchangeDeclare(
		cfg.Exchange,
		"topic",
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		ch.Close()
		conn.Close()
		return nil, nil, errs.Wrap(err, "failed to declare amqp exchange")
	}

	p := &AMQPPublisher{conn: conn, ch: ch, exchange: cfg.Exchange}
	cleanup := func() {
		if err := p.ch.Close(); err != nil {
			slog.Warn("failed to close amqp channel", "error", err.Error())
		}
		if err := p.conn.Close(); err != nil {
			slog.Warn("failed to close amqp connection", "error", err.Error())
		}
	}
	return p, cleanup, nil
}

func (p *AMQPPublisher) Publish(ctx context.Context, topic string, payload []byte) error {
	err := p.ch.PublishWithContext(
		ctx,
		p.exchange,
		topic,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         payload,
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
		},
	)
	if err != nil {
		return errs.Wrap(err, "failed to publish event")
	}
	return nil
}

// NopPublisher stands in when no broker is configured, e.g. in local
// development and unit tests. The outbox still records every event.
type NopPublisher struct{}

func (NopPublisher) Publish(ctx context.Context, topic string, payload []byte) error {
	slog.Debug("event publishing disabled, dropping event", "topic", topic)
	return nil
}

var (
	_ commands.EventPublisher = (*AMQPPublisher)(nil)
	_ commands.EventPublisher = NopPublisher{}
)

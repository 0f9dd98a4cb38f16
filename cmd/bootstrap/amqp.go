package bootstrap

import (
	"context"
	"log/slog"

	"storefront/internal/infra/events"
	"storefront/internal/pkg/config"
	"storefront/internal/usecase/commands"

	"go.uber.org/fx"
)

var AMQPModule = fx.Module("amqp",
	fx.Provide(
		NewEventPublisher,
	),
)

// NewEventPublisher connects to the broker when one is configured and
// otherwise drops events, leaving the outbox as the durable record.
func NewEventPublisher(lc fx.Lifecycle, cfg config.Config) (commands.EventPublisher, error) {
	if cfg.AMQP.URL == "" {
		slog.Info("no AMQP broker configured, order events will not be published")
		return events.NopPublisher{}, nil
	}

	publisher, cleanup, err := events.NewAMQPPublisher(cfg.AMQP)
	if err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			if cleanup != nil {
				cleanup()
			}
			return nil
		},
	})

	return publisher, nil
}

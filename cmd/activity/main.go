// Command activity consumes job board domain events from Kafka and writes
// them to the structured log.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/gartstein/jobboard/internal/jobboard/config"
	"github.com/gartstein/jobboard/internal/jobboard/events"
	"go.uber.org/zap"
)

func main() {
	logger, _ := zap.NewProduction()
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load("")
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}
	if len(cfg.KafkaBrokers) == 0 {
		logger.Fatal("KAFKA_BROKERS is required")
	}

	consumer := events.NewConsumer(cfg.KafkaBrokers, cfg.GroupID, cfg.Topic, logger)
	consumer.RegisterHandler(logActivity(logger))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("Consuming activity events",
		zap.Strings("brokers", cfg.KafkaBrokers),
		zap.String("topic", cfg.Topic),
		zap.String("group_id", cfg.GroupID),
	)
	consumer.Start(ctx)
	<-consumer.Done()
	consumer.Close()
	logger.Info("Activity consumer stopped")
}

func logActivity(logger *zap.Logger) events.Handler {
	logger = logger.Named("activity")
	return func(_ context.Context, event events.Event) error {
		logger.Info("Activity",
			zap.String("event_type", string(event.Type)),
			zap.String("entity_id", event.EntityID.String()),
			zap.String("actor_id", event.ActorID.String()),
			zap.Time("occurred_at", event.OccurredAt),
			zap.Any("payload", event.Payload),
		)
		return nil
	}
}

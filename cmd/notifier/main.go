package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/michalkw/traffic-status-service/internal/config"
	"github.com/michalkw/traffic-status-service/internal/logging"
	"github.com/michalkw/traffic-status-service/internal/mq"
	"github.com/michalkw/traffic-status-service/internal/notify"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

func main() {
	if err := godotenv.Load(); err == nil {
		fmt.Println("Loaded environment from .env")
	}

	app := fx.New(
		fx.Provide(
			config.Load,
			newLogger,
			ProvideMQConnection,
			ProvideDispatcher,
		),
		fx.Invoke(startNotifier),
	)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	startCtx, startCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer startCancel()
	if err := app.Start(startCtx); err != nil {
		panic(err)
	}

	<-ctx.Done()

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer stopCancel()
	if err := app.Stop(stopCtx); err != nil {
		fmt.Println("error stopping app:", err)
	}
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	return logging.NewLogger(cfg.ServiceName + "-notifier")
}

// ProvideMQConnection creates the RabbitMQ connection
func ProvideMQConnection(lc fx.Lifecycle, logger *zap.Logger, cfg *config.Config) (*mq.Connection, error) {
	return mq.NewConnection(lc, logger, cfg.RabbitMQ.URL)
}

// ProvideDispatcher creates the notification dispatcher
func ProvideDispatcher(cfg *config.Config, logger *zap.Logger) *notify.Dispatcher {
	return notify.NewDispatcher(cfg.Notifier.WebhookURL, cfg.Notifier.Timeout, logger)
}

func startNotifier(
	lc fx.Lifecycle,
	conn *mq.Connection,
	cfg *config.Config,
	logger *zap.Logger,
	dispatcher *notify.Dispatcher,
) (*mq.Consumer, error) {
	// Create context for the consumer that is cancelled on shutdown
	ctx, cancel := context.WithCancel(context.Background())

	consumer, err := mq.NewConsumer(mq.ConsumerConfig{
		Connection:    conn,
		Queue:         cfg.RabbitMQ.IncidentQueue,
		DLQQueue:      cfg.RabbitMQ.DLQQueue,
		Exchange:      cfg.RabbitMQ.IncidentExchange,
		RoutingKey:    cfg.RabbitMQ.IncidentRoutingKey,
		PrefetchCount: cfg.RabbitMQ.PrefetchCount,
		Logger:        logger,
		Handler:       dispatcher.HandleMessage,
	})
	if err != nil {
		cancel()
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStart: func(startCtx context.Context) error {
			logger.Info("starting notifier consumer",
				zap.String("queue", cfg.RabbitMQ.IncidentQueue),
				zap.Int("prefetch", cfg.RabbitMQ.PrefetchCount))
			return consumer.Start(ctx)
		},
		OnStop: func(stopCtx context.Context) error {
			cancel()
			if err := consumer.Close(); err != nil {
				logger.Error("failed to close consumer", zap.Error(err))
				return err
			}
			logger.Info("notifier stopped gracefully")
			return nil
		},
	})

	return consumer, nil
}

// payflowd runs the background side of the payment core: it connects to
// MySQL and drains the transactional outbox to the configured broker
// transport until it receives SIGINT or SIGTERM.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"paycore/config"
	"paycore/infrastructure/events"
	"paycore/infrastructure/persistence/mysql"
	"paycore/pkg/logger"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(&cfg.Log, cfg.App.Env); err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(cfg); err != nil {
		logger.Fatal("payflowd exited", zap.Error(err))
	}
}

func run(cfg *config.Config) error {
	dbConfig := &mysql.Config{
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		Username:        cfg.Database.Username,
		Password:        cfg.Database.Password,
		Database:        cfg.Database.Database,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.Database.ConnMaxIdleTime,
		PoolingDisabled: cfg.Database.PoolingDisabled,
		LogLevel:        cfg.Database.LogLevel,
	}

	db, err := dbConfig.Connect()
	if err != nil {
		return fmt.Errorf("failed to connect to mysql: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := dbConfig.Ping(ctx); err != nil {
		return fmt.Errorf("failed to ping mysql: %w", err)
	}
	logger.Info("connected to mysql",
		zap.String("host", cfg.Database.Host),
		zap.String("database", cfg.Database.Database))

	dispatcher, err := events.NewDispatcher(
		mysql.NewOutboxRepository(db),
		events.LogTransport{},
		events.DispatcherConfig{
			PollInterval: cfg.Events.PollInterval,
			BatchSize:    cfg.Events.BatchSize,
			MaxRetries:   cfg.Events.MaxRetries,
			PublishRate:  cfg.Events.PublishRate,
			PublishBurst: cfg.Events.PublishBurst,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to build outbox dispatcher: %w", err)
	}

	logger.Info("outbox dispatcher starting",
		zap.String("topic_prefix", cfg.Events.TopicPrefix),
		zap.Duration("poll_interval", cfg.Events.PollInterval),
		zap.Int("batch_size", cfg.Events.BatchSize))

	if err := dispatcher.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	logger.Info("payflowd stopped")
	return nil
}

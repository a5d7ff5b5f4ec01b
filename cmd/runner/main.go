package main

import (
	"context"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/boddenberg/nextcrm-core/internal/config"
	"github.com/boddenberg/nextcrm-core/internal/infra/cache"
	"github.com/boddenberg/nextcrm-core/internal/infra/observability"
	"github.com/boddenberg/nextcrm-core/internal/runner"
)

func main() {
	_ = config.LoadDotEnv(".env")
	cfg := config.Load()

	logger := observability.NewLogger(observability.LoggerOptions{
		Level:   cfg.LogLevel,
		Mode:    cfg.LogMode,
		Service: cfg.ServiceName + "-runner",
		Env:     cfg.Env,
	})
	defer logger.Sync()

	if cfg.RedisURL == "" {
		logger.Fatal("REDIS_URL is required for the runner")
	}
	if cfg.RunnerInterval <= 0 {
		logger.Fatal("RUNNER_INTERVAL must be positive", zap.Duration("interval", cfg.RunnerInterval))
	}

	rdb, err := cache.NewRedisClient(cfg.RedisURL)
	if err != nil {
		logger.Fatal("invalid redis configuration", zap.Error(err))
	}
	defer rdb.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	beater := runner.RedisBeater{Client: rdb, TTL: 3 * cfg.RunnerInterval}
	runner.New(beater, cfg.RunnerInterval, logger).Run(ctx)
}

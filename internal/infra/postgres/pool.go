// Package postgres implements the store ports on PostgreSQL through a pgx
// connection pool.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/boddenberg/nextcrm-core/internal/infra/resilience"
)

// PoolConfig sizes the connection pool.
type PoolConfig struct {
	URL      string
	MaxConns int
	MinConns int
}

// NewPool opens a pool and pings it, retrying with backoff while the
// database comes up. Unless retry says otherwise, only connectivity
// failures are retried; a bad password or missing database fails at once.
func NewPool(ctx context.Context, cfg PoolConfig, retry resilience.RetryConfig, logger *zap.Logger) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}

	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = int32(cfg.MaxConns)
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = int32(cfg.MinConns)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	if retry.Retryable == nil {
		retry.Retryable = IsConnectivity
	}

	attempt := 0
	err = resilience.RetryWithBackoff(ctx, retry, func() error {
		attempt++
		if err := pool.Ping(ctx); err != nil {
			logger.Warn("postgres: ping failed",
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
			return err
		}
		return nil
	})
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	logger.Info("postgres: connected",
		zap.String("host", poolCfg.ConnConfig.Host),
		zap.String("database", poolCfg.ConnConfig.Database),
		zap.Int32("max_conns", poolCfg.MaxConns),
	)
	return pool, nil
}

// Package runner implements the background heartbeat worker.
package runner

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/boddenberg/nextcrm-core/internal/infra/observability"
)

// HeartbeatKey is the Redis key refreshed on every successful tick.
const HeartbeatKey = "runner:heartbeat"

// Beater is the backing service the runner keeps a pulse on.
type Beater interface {
	Ping(ctx context.Context) error
	Beat(ctx context.Context, at time.Time) error
}

// RedisBeater pings Redis and writes the tick time under HeartbeatKey.
// The key expires after TTL so a dead runner becomes visible.
type RedisBeater struct {
	Client *redis.Client
	TTL    time.Duration
}

func (b RedisBeater) Ping(ctx context.Context) error {
	return b.Client.Ping(ctx).Err()
}

func (b RedisBeater) Beat(ctx context.Context, at time.Time) error {
	return b.Client.Set(ctx, HeartbeatKey, at.UTC().Format(time.RFC3339Nano), b.TTL).Err()
}

// Runner ticks every interval until its context ends.
type Runner struct {
	beater   Beater
	interval time.Duration
	timeout  time.Duration
	logger   *zap.Logger
	now      func() time.Time
}

// New creates a runner. Each tick is bounded by the interval.
func New(beater Beater, interval time.Duration, logger *zap.Logger) *Runner {
	return &Runner{
		beater:   beater,
		interval: interval,
		timeout:  interval,
		logger:   logger,
		now:      time.Now,
	}
}

// Run ticks once immediately and then on every interval. It returns when ctx
// is done; tick failures are logged and do not stop the loop.
func (r *Runner) Run(ctx context.Context) {
	r.logger.Info("runner_start", zap.Duration("interval", r.interval))

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		_ = r.Tick(ctx)
		select {
		case <-ctx.Done():
			r.logger.Info("runner_stop")
			return
		case <-ticker.C:
		}
	}
}

// Tick runs one heartbeat under its own trace id.
func (r *Runner) Tick(ctx context.Context) error {
	ctx = observability.WithTraceID(ctx, observability.NewTraceID())
	log := observability.LoggerWithTrace(ctx, r.logger)

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	start := r.now()
	err := r.beater.Ping(ctx)
	if err == nil {
		err = r.beater.Beat(ctx, start)
	}
	if err != nil {
		log.Error("runner_error", zap.Error(err))
		return err
	}

	log.Info("runner_tick", zap.Duration("latency", r.now().Sub(start)))
	return nil
}

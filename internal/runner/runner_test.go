package runner_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/boddenberg/nextcrm-core/internal/runner"
)

type fakeBeater struct {
	pingErr error
	beats   atomic.Int32
}

func (f *fakeBeater) Ping(context.Context) error { return f.pingErr }

func (f *fakeBeater) Beat(context.Context, time.Time) error {
	f.beats.Add(1)
	return nil
}

func TestTick_LogsWithTraceID(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	b := &fakeBeater{}
	r := runner.New(b, time.Second, zap.New(core))

	if err := r.Tick(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if b.beats.Load() != 1 {
		t.Errorf("expected one beat, got %d", b.beats.Load())
	}

	entries := logs.FilterMessage("runner_tick").All()
	if len(entries) != 1 {
		t.Fatalf("expected one runner_tick entry, got %d", len(entries))
	}
	if id, ok := entries[0].ContextMap()["trace_id"].(string); !ok || id == "" {
		t.Error("expected trace_id on runner_tick")
	}
}

func TestTick_PingFailureSkipsBeat(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	b := &fakeBeater{pingErr: errors.New("connection refused")}
	r := runner.New(b, time.Second, zap.New(core))

	if err := r.Tick(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if b.beats.Load() != 0 {
		t.Error("expected no beat after failed ping")
	}
	if logs.FilterMessage("runner_error").Len() != 1 {
		t.Error("expected runner_error entry")
	}
}

func TestRun_StopsOnCancel(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	b := &fakeBeater{}
	r := runner.New(b, 10*time.Millisecond, zap.New(core))

	ctx, cancel := context.WithTimeout(context.Background(), 55*time.Millisecond)
	defer cancel()

	done := make(chan struct{})
	go func() {
		r.Run(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("runner did not stop after cancel")
	}

	if logs.FilterMessage("runner_start").Len() != 1 {
		t.Error("expected runner_start entry")
	}
	if b.beats.Load() < 2 {
		t.Errorf("expected several beats, got %d", b.beats.Load())
	}
}

func TestRedisBeater_Unreachable(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()

	r := runner.New(runner.RedisBeater{Client: client, TTL: time.Minute}, time.Second, zap.NewNop())
	if err := r.Tick(context.Background()); err == nil {
		t.Fatal("expected error when redis is unreachable")
	}
}

package postgres

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/boddenberg/nextcrm-core/internal/domain"
	"github.com/boddenberg/nextcrm-core/internal/infra/observability"
	"github.com/boddenberg/nextcrm-core/internal/infra/resilience"
)

var tracer = otel.Tracer("postgres")

const storeName = "postgres"

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type txKey struct{}

// Store implements every store port on a pgx pool. Calls go through a
// circuit breaker that only counts connectivity failures.
type Store struct {
	pool    *pgxpool.Pool
	cb      *gobreaker.CircuitBreaker
	logger  *zap.Logger
	metrics *observability.Metrics
}

// NewStore wraps pool. metrics may be nil.
func NewStore(pool *pgxpool.Pool, logger *zap.Logger, metrics *observability.Metrics) *Store {
	return &Store{
		pool: pool,
		cb: resilience.NewCircuitBreaker(storeName, func(err error) bool {
			return err == nil || !IsConnectivity(err)
		}, logger),
		logger:  logger,
		metrics: metrics,
	}
}

// q returns the transaction bound to ctx, or the pool.
func (s *Store) q(ctx context.Context) querier {
	if tx, ok := ctx.Value(txKey{}).(pgx.Tx); ok {
		return tx
	}
	return s.pool
}

// WithinTx runs fn in one transaction. Nested calls join the outer one.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(pgx.Tx); ok {
		return fn(ctx)
	}

	var tx pgx.Tx
	_, err := s.cb.Execute(func() (any, error) {
		var err error
		tx, err = s.pool.BeginTx(ctx, pgx.TxOptions{})
		return nil, err
	})
	if err != nil {
		return s.mapError("begin", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return s.mapError("commit", err)
	}
	return nil
}

// Ping checks the pool through the breaker.
func (s *Store) Ping(ctx context.Context) error {
	_, err := s.cb.Execute(func() (any, error) {
		return nil, s.pool.Ping(ctx)
	})
	if err != nil {
		return s.mapError("ping", err)
	}
	return nil
}

// run executes fn under a span and the breaker and maps the driver error.
func (s *Store) run(ctx context.Context, op string, fn func(ctx context.Context, q querier) error) error {
	ctx, span := tracer.Start(ctx, "Postgres."+op)
	defer span.End()
	span.SetAttributes(attribute.String("db.system", "postgresql"))

	_, err := s.cb.Execute(func() (any, error) {
		return nil, fn(ctx, s.q(ctx))
	})
	if err != nil {
		span.RecordError(err)
		return s.mapError(op, err)
	}
	return nil
}

// mapError converts driver and breaker errors into domain errors. Errors that
// are already domain errors pass through.
func (s *Store) mapError(op string, err error) error {
	if resilience.IsBreakerRejection(err) {
		return &domain.ErrCircuitOpen{Service: storeName}
	}
	if IsConnectivity(err) {
		if s.metrics != nil {
			s.metrics.IncrStoreUnavailable(storeName)
		}
		s.logger.Error("postgres: store unavailable", zap.String("op", op), zap.Error(err))
		return &domain.ErrStoreUnavailable{Store: storeName, Err: err}
	}
	return translate(op, err)
}

// translate maps constraint violations. Foreign key violations raised by a
// delete mean rows still depend on the target; on writes they mean the
// payload referenced a missing row.
func translate(op string, err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case "23505":
		return &domain.ErrConflict{Message: "resource already exists"}
	case "23503":
		if strings.HasPrefix(op, "Delete") {
			return &domain.ErrConflict{Message: "resource is still referenced"}
		}
		return &domain.ErrInvalidReference{Field: referenceField(pgErr.ConstraintName), ID: ""}
	case "23514":
		return domain.InvalidField(pgErr.ColumnName, "constraint violated")
	}
	return fmt.Errorf("%s: %w", op, err)
}

// referenceField extracts the column from Postgres' default FK constraint
// name, e.g. deals_stage_id_fkey -> stage_id.
func referenceField(constraint string) string {
	name := strings.TrimSuffix(constraint, "_fkey")
	if i := strings.Index(name, "_"); i >= 0 {
		return name[i+1:]
	}
	return name
}

// IsConnectivity reports whether err means Postgres could not be reached or
// dropped the connection.
func IsConnectivity(err error) bool {
	if err == nil {
		return false
	}
	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// 08: connection exception, 57P01..03: admin shutdown / cannot connect now.
		return strings.HasPrefix(pgErr.Code, "08") || strings.HasPrefix(pgErr.Code, "57P")
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return pgconn.Timeout(err)
}

func notFound(resource, id string, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return &domain.ErrNotFound{Resource: resource, ID: id}
	}
	return err
}

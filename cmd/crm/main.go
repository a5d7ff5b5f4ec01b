package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/boddenberg/nextcrm-core/internal/config"
	"github.com/boddenberg/nextcrm-core/internal/domain"
	"github.com/boddenberg/nextcrm-core/internal/handler"
	"github.com/boddenberg/nextcrm-core/internal/infra/cache"
	"github.com/boddenberg/nextcrm-core/internal/infra/memory"
	"github.com/boddenberg/nextcrm-core/internal/infra/observability"
	"github.com/boddenberg/nextcrm-core/internal/infra/postgres"
	"github.com/boddenberg/nextcrm-core/internal/infra/resilience"
	"github.com/boddenberg/nextcrm-core/internal/port"
	"github.com/boddenberg/nextcrm-core/internal/service"
)

// store is what the server needs from a backend.
type store interface {
	port.IdentityStore
	port.CRMStore
	port.Pinger
}

func main() {
	// --- Load .env file (for local development) ---
	_ = config.LoadDotEnv(".env")

	// --- Config ---
	cfg := config.Load()

	// --- Logger ---
	logger := observability.NewLogger(observability.LoggerOptions{
		Level:   cfg.LogLevel,
		Mode:    cfg.LogMode,
		Service: cfg.ServiceName,
		Env:     cfg.Env,
	})
	defer logger.Sync()

	if err := cfg.Validate(); err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}

	logger.Info("configuration loaded",
		zap.Int("port", cfg.Port),
		zap.String("log_level", cfg.LogLevel),
		zap.String("store_driver", cfg.StoreDriver),
		zap.String("token_format", cfg.TokenFormat),
		zap.Bool("redis", cfg.RedisURL != ""),
		zap.Duration("session_ttl", cfg.SessionTTL),
		zap.Duration("tenant_cache_ttl", cfg.TenantCacheTTL),
		zap.Bool("bootstrap_enabled", cfg.BootstrapEnabled),
	)

	ctx := context.Background()

	// --- Tracing ---
	shutdownTracer, err := observability.InitTracer(ctx, observability.TracerOptions{
		Endpoint:    cfg.OTLPEndpoint,
		Insecure:    cfg.OTLPInsecure,
		ServiceName: cfg.ServiceName,
		Version:     cfg.Version,
		Env:         cfg.Env,
	})
	if err != nil {
		logger.Fatal("failed to init tracer", zap.Error(err))
	}
	defer shutdownTracer(context.Background())

	// --- Metrics ---
	metrics := observability.NewMetrics()

	// --- Store ---
	var st store
	switch cfg.StoreDriver {
	case config.DriverPostgres:
		pool, err := postgres.NewPool(ctx, postgres.PoolConfig{
			URL:      cfg.DatabaseURL,
			MaxConns: cfg.DBMaxConns,
			MinConns: cfg.DBMinConns,
		}, resilience.RetryConfig{
			MaxRetries:     cfg.DBConnectRetries,
			InitialBackoff: cfg.InitialBackoff,
			MaxBackoff:     10 * time.Second,
		}, logger)
		if err != nil {
			logger.Fatal("failed to connect to postgres", zap.Error(err))
		}
		defer pool.Close()

		if err := postgres.Migrate(ctx, pool, logger); err != nil {
			logger.Fatal("failed to migrate", zap.Error(err))
		}
		st = postgres.NewStore(pool, logger, metrics)
	default:
		logger.Warn("using in-memory store, data is lost on restart")
		st = memory.NewStore()
	}

	readiness := map[string]port.Pinger{"store": st}

	// --- Cache ---
	var tenantCache port.Cache[domain.Tenant]
	if cfg.RedisURL != "" {
		rdb, err := cache.NewRedisClient(cfg.RedisURL)
		if err != nil {
			logger.Fatal("invalid redis configuration", zap.Error(err))
		}
		defer rdb.Close()
		tenantCache = cache.NewRedis[domain.Tenant](rdb, "crm:tenant:", cfg.TenantCacheTTL, logger)
		readiness["redis"] = cache.RedisPinger{Client: rdb}
	} else {
		mem := cache.New[domain.Tenant](cfg.TenantCacheTTL)
		defer mem.Close()
		tenantCache = mem
	}

	// --- Services ---
	var codec service.TokenCodec = service.OpaqueCodec{}
	if cfg.TokenFormat == config.TokenFormatJWT {
		codec = service.NewJWTCodec(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTAudience)
	}

	hasher := service.NewPasswordHasher(cfg.BcryptCost, cfg.HashConcurrency)
	sessions := service.NewSessionService(st, codec, cfg.SessionTTL, metrics, logger)
	tenants := service.NewTenantLookup(st, tenantCache, metrics)

	svcs := handler.Services{
		Auth:      service.NewAuthService(tenants, st, sessions, hasher, metrics, logger),
		Sessions:  sessions,
		CRM:       service.NewCRMService(st, metrics, logger),
		Readiness: readiness,
		Build: domain.BuildInfo{
			Service: cfg.ServiceName,
			Env:     cfg.Env,
			LogMode: cfg.LogMode,
			Version: cfg.Version,
			GitSHA:  cfg.GitSHA,
		},
		CORSOrigins: cfg.CORSOrigins,
	}

	// --- Bootstrap ---
	if cfg.BootstrapEnabled {
		svcs.Bootstrap = service.NewBootstrapService(st, hasher, service.BootstrapConfig{
			TenantSlug:    cfg.BootstrapTenantSlug,
			AdminEmail:    cfg.BootstrapAdminEmail,
			AdminPassword: cfg.BootstrapAdminPassword,
		}, logger)

		bctx, cancel := context.WithTimeout(ctx, 30*time.Second)
		if _, err := svcs.Bootstrap.Ensure(bctx); err != nil {
			logger.Error("startup bootstrap failed", zap.Error(err))
		}
		cancel()
	}

	// --- Router ---
	router := handler.NewRouter(svcs, metrics, logger)

	// --- Server ---
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// --- Graceful shutdown ---
	go func() {
		logger.Info("server starting", zap.Int("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("server shutting down...")
	sctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(sctx); err != nil {
		logger.Fatal("server forced shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}

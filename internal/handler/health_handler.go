package handler

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/boddenberg/nextcrm-core/internal/domain"
	"github.com/boddenberg/nextcrm-core/internal/infra/observability"
	"github.com/boddenberg/nextcrm-core/internal/infra/resilience"
	"github.com/boddenberg/nextcrm-core/internal/port"
)

const readinessTimeout = 2 * time.Second

// ============================================================
// Operational: /health, /version, /readyz
// ============================================================

func healthHandler(build domain.BuildInfo) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, domain.HealthStatus{
			Status:  "ok",
			Service: build.Service,
			Env:     build.Env,
			LogMode: build.LogMode,
		})
	}
}

func versionHandler(build domain.BuildInfo) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, domain.VersionInfo{
			Service: build.Service,
			Env:     build.Env,
			Version: build.Version,
			GitSHA:  build.GitSHA,
		})
	}
}

type readinessCheck struct {
	name   string
	pinger port.Pinger
	cb     *gobreaker.CircuitBreaker
}

// newReadinessChecks gives every probe its own breaker so a dependency that
// keeps timing out is reported without waiting on it each time.
func newReadinessChecks(pingers map[string]port.Pinger, logger *zap.Logger) []readinessCheck {
	names := make([]string, 0, len(pingers))
	for name := range pingers {
		names = append(names, name)
	}
	sort.Strings(names)

	checks := make([]readinessCheck, 0, len(names))
	for _, name := range names {
		checks = append(checks, readinessCheck{
			name:   name,
			pinger: pingers[name],
			cb:     resilience.NewCircuitBreaker("readyz."+name, nil, logger),
		})
	}
	return checks
}

func readyzHandler(checks []readinessCheck, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /readyz")
		defer span.End()

		status := domain.ReadinessStatus{Status: "ready", Checks: make(map[string]string, len(checks))}
		for _, c := range checks {
			_, err := c.cb.Execute(func() (any, error) {
				pctx, cancel := context.WithTimeout(ctx, readinessTimeout)
				defer cancel()
				return nil, c.pinger.Ping(pctx)
			})
			if err != nil {
				observability.LoggerWithTrace(ctx, logger).Warn("readyz: dependency unavailable",
					zap.String("dependency", c.name),
					zap.Error(err),
				)
				status.Status = "unavailable"
				status.Checks[c.name] = "unavailable"
				continue
			}
			status.Checks[c.name] = "ok"
		}

		code := http.StatusOK
		if status.Status != "ready" {
			code = http.StatusServiceUnavailable
		}
		writeJSON(w, code, status)
	}
}

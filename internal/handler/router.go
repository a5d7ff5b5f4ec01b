package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/boddenberg/nextcrm-core/internal/domain"
	"github.com/boddenberg/nextcrm-core/internal/infra/observability"
	"github.com/boddenberg/nextcrm-core/internal/port"
	"github.com/boddenberg/nextcrm-core/internal/service"
)

var tracer = otel.Tracer("handler")

// Services is everything the router serves. Bootstrap is nil when
// bootstrapping is disabled.
type Services struct {
	Auth      *service.AuthService
	Sessions  *service.SessionService
	Bootstrap *service.BootstrapService
	CRM       *service.CRMService

	// Readiness maps a dependency name to its health probe.
	Readiness map[string]port.Pinger

	Build       domain.BuildInfo
	CORSOrigins []string
}

// NewRouter creates the HTTP router with all routes and middleware.
func NewRouter(svc Services, metrics *observability.Metrics, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.TraceIDMiddleware)
	r.Use(metrics.HTTPMiddleware)
	r.Use(observability.ZapLoggerMiddleware(logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))
	if len(svc.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   svc.CORSOrigins,
			AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Authorization", "Content-Type"},
			ExposedHeaders:   []string{observability.TraceHeader},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	// --- Operational endpoints ---
	r.Get("/health", healthHandler(svc.Build))
	r.Get("/version", versionHandler(svc.Build))
	r.Get("/readyz", readyzHandler(newReadinessChecks(svc.Readiness, logger), logger))
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	// --- Public ---
	r.Post("/bootstrap", bootstrapHandler(svc.Bootstrap, logger))
	r.Post("/auth/login", authLoginHandler(svc.Auth, logger))

	// --- Protected ---
	r.Group(func(r chi.Router) {
		r.Use(SessionAuthMiddleware(svc.Sessions, logger))

		r.Get("/auth/whoami", authWhoAmIHandler(svc.Auth))
		r.Post("/auth/logout", authLogoutHandler(svc.Auth, logger))

		r.Route("/companies", func(r chi.Router) {
			r.Post("/", createCompanyHandler(svc.CRM, logger))
			r.Get("/", listCompaniesHandler(svc.CRM, logger))
			r.Get("/{id}", getCompanyHandler(svc.CRM, logger))
			r.Patch("/{id}", updateCompanyHandler(svc.CRM, logger))
			r.Delete("/{id}", deleteCompanyHandler(svc.CRM, logger))
		})

		r.Route("/contacts", func(r chi.Router) {
			r.Post("/", createContactHandler(svc.CRM, logger))
			r.Get("/", listContactsHandler(svc.CRM, logger))
			r.Get("/{id}", getContactHandler(svc.CRM, logger))
			r.Patch("/{id}", updateContactHandler(svc.CRM, logger))
			r.Delete("/{id}", deleteContactHandler(svc.CRM, logger))
		})

		r.Route("/pipelines", func(r chi.Router) {
			r.Post("/", createPipelineHandler(svc.CRM, logger))
			r.Get("/", listPipelinesHandler(svc.CRM, logger))
			r.Get("/{id}", getPipelineHandler(svc.CRM, logger))
			r.Patch("/{id}", updatePipelineHandler(svc.CRM, logger))
			r.Delete("/{id}", deletePipelineHandler(svc.CRM, logger))
			r.Get("/{id}/board", boardHandler(svc.CRM, logger))
		})

		r.Route("/stages", func(r chi.Router) {
			r.Post("/", createStageHandler(svc.CRM, logger))
			r.Get("/", listStagesHandler(svc.CRM, logger))
			r.Get("/{id}", getStageHandler(svc.CRM, logger))
			r.Patch("/{id}", updateStageHandler(svc.CRM, logger))
			r.Delete("/{id}", deleteStageHandler(svc.CRM, logger))
		})

		r.Route("/deals", func(r chi.Router) {
			r.Post("/", createDealHandler(svc.CRM, logger))
			r.Get("/", listDealsHandler(svc.CRM, logger))
			r.Get("/{id}", getDealHandler(svc.CRM, logger))
			r.Patch("/{id}", updateDealHandler(svc.CRM, logger))
			r.Delete("/{id}", deleteDealHandler(svc.CRM, logger))
		})
	})

	return otelhttp.NewHandler(r, "http.server")
}

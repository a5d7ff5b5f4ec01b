package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/boddenberg/nextcrm-core/internal/domain"
	"github.com/boddenberg/nextcrm-core/internal/service"
)

// ============================================================
// Pipelines: /pipelines, /pipelines/{id}/board
// ============================================================

func createPipelineHandler(svc *service.CRMService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /pipelines")
		defer span.End()
		p := PrincipalFromContext(ctx)
		tagTenant(span, p)

		var in domain.PipelineCreate
		if err := decodeJSON(r, &in); err != nil {
			handleServiceError(w, r, err, logger)
			return
		}
		pl, err := svc.CreatePipeline(ctx, p.TenantID, &in)
		if err != nil {
			handleServiceError(w, r, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, pl)
	}
}

func listPipelinesHandler(svc *service.CRMService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /pipelines")
		defer span.End()
		p := PrincipalFromContext(ctx)
		tagTenant(span, p)

		page, err := parsePage(r)
		if err != nil {
			handleServiceError(w, r, err, logger)
			return
		}
		items, err := svc.ListPipelines(ctx, p.TenantID, page)
		if err != nil {
			handleServiceError(w, r, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, items)
	}
}

func getPipelineHandler(svc *service.CRMService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /pipelines/{id}")
		defer span.End()
		p := PrincipalFromContext(ctx)
		tagTenant(span, p)

		pl, err := svc.GetPipeline(ctx, p.TenantID, chi.URLParam(r, "id"))
		if err != nil {
			handleServiceError(w, r, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, pl)
	}
}

func updatePipelineHandler(svc *service.CRMService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PATCH /pipelines/{id}")
		defer span.End()
		p := PrincipalFromContext(ctx)
		tagTenant(span, p)

		var patch domain.PipelinePatch
		if err := decodeJSON(r, &patch); err != nil {
			handleServiceError(w, r, err, logger)
			return
		}
		pl, err := svc.UpdatePipeline(ctx, p.TenantID, chi.URLParam(r, "id"), &patch)
		if err != nil {
			handleServiceError(w, r, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, pl)
	}
}

func deletePipelineHandler(svc *service.CRMService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /pipelines/{id}")
		defer span.End()
		p := PrincipalFromContext(ctx)
		tagTenant(span, p)

		if err := svc.DeletePipeline(ctx, p.TenantID, chi.URLParam(r, "id")); err != nil {
			handleServiceError(w, r, err, logger)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func boardHandler(svc *service.CRMService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /pipelines/{id}/board")
		defer span.End()
		p := PrincipalFromContext(ctx)
		tagTenant(span, p)

		includeEmpty, err := parseBool(r, "include_empty", true)
		if err != nil {
			handleServiceError(w, r, err, logger)
			return
		}
		pipelineID := chi.URLParam(r, "id")
		span.SetAttributes(attribute.String("pipeline.id", pipelineID))

		board, err := svc.GetBoard(ctx, p.TenantID, pipelineID, includeEmpty)
		if err != nil {
			handleServiceError(w, r, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, board)
	}
}

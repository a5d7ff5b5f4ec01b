package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/boddenberg/nextcrm-core/internal/domain"
	"github.com/boddenberg/nextcrm-core/internal/service"
)

// ============================================================
// Stages: /stages
// ============================================================

func createStageHandler(svc *service.CRMService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /stages")
		defer span.End()
		p := PrincipalFromContext(ctx)
		tagTenant(span, p)

		var in domain.StageCreate
		if err := decodeJSON(r, &in); err != nil {
			handleServiceError(w, r, err, logger)
			return
		}
		st, err := svc.CreateStage(ctx, p.TenantID, &in)
		if err != nil {
			handleServiceError(w, r, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, st)
	}
}

// listStagesHandler supports ?pipeline_id= besides limit and offset.
func listStagesHandler(svc *service.CRMService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /stages")
		defer span.End()
		p := PrincipalFromContext(ctx)
		tagTenant(span, p)

		page, err := parsePage(r)
		if err != nil {
			handleServiceError(w, r, err, logger)
			return
		}
		items, err := svc.ListStages(ctx, p.TenantID, domain.StageFilter{
			PipelineID: r.URL.Query().Get("pipeline_id"),
			Page:       page,
		})
		if err != nil {
			handleServiceError(w, r, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, items)
	}
}

func getStageHandler(svc *service.CRMService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /stages/{id}")
		defer span.End()
		p := PrincipalFromContext(ctx)
		tagTenant(span, p)

		st, err := svc.GetStage(ctx, p.TenantID, chi.URLParam(r, "id"))
		if err != nil {
			handleServiceError(w, r, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, st)
	}
}

func updateStageHandler(svc *service.CRMService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PATCH /stages/{id}")
		defer span.End()
		p := PrincipalFromContext(ctx)
		tagTenant(span, p)

		var patch domain.StagePatch
		if err := decodeJSON(r, &patch); err != nil {
			handleServiceError(w, r, err, logger)
			return
		}
		st, err := svc.UpdateStage(ctx, p.TenantID, chi.URLParam(r, "id"), &patch)
		if err != nil {
			handleServiceError(w, r, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, st)
	}
}

func deleteStageHandler(svc *service.CRMService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /stages/{id}")
		defer span.End()
		p := PrincipalFromContext(ctx)
		tagTenant(span, p)

		if err := svc.DeleteStage(ctx, p.TenantID, chi.URLParam(r, "id")); err != nil {
			handleServiceError(w, r, err, logger)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

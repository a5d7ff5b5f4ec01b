package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/boddenberg/nextcrm-core/internal/domain"
	"github.com/boddenberg/nextcrm-core/internal/service"
)

// ============================================================
// Deals: /deals
// ============================================================

func createDealHandler(svc *service.CRMService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /deals")
		defer span.End()
		p := PrincipalFromContext(ctx)
		tagTenant(span, p)

		var in domain.DealCreate
		if err := decodeJSON(r, &in); err != nil {
			handleServiceError(w, r, err, logger)
			return
		}
		d, err := svc.CreateDeal(ctx, p.TenantID, &in)
		if err != nil {
			handleServiceError(w, r, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, d)
	}
}

// listDealsHandler supports ?pipeline_id= and ?stage_id= besides limit and offset.
func listDealsHandler(svc *service.CRMService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /deals")
		defer span.End()
		p := PrincipalFromContext(ctx)
		tagTenant(span, p)

		page, err := parsePage(r)
		if err != nil {
			handleServiceError(w, r, err, logger)
			return
		}
		q := r.URL.Query()
		items, err := svc.ListDeals(ctx, p.TenantID, domain.DealFilter{
			PipelineID: q.Get("pipeline_id"),
			StageID:    q.Get("stage_id"),
			Page:       page,
		})
		if err != nil {
			handleServiceError(w, r, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, items)
	}
}

func getDealHandler(svc *service.CRMService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /deals/{id}")
		defer span.End()
		p := PrincipalFromContext(ctx)
		tagTenant(span, p)

		d, err := svc.GetDeal(ctx, p.TenantID, chi.URLParam(r, "id"))
		if err != nil {
			handleServiceError(w, r, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, d)
	}
}

func updateDealHandler(svc *service.CRMService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PATCH /deals/{id}")
		defer span.End()
		p := PrincipalFromContext(ctx)
		tagTenant(span, p)

		var patch domain.DealPatch
		if err := decodeJSON(r, &patch); err != nil {
			handleServiceError(w, r, err, logger)
			return
		}
		d, err := svc.UpdateDeal(ctx, p.TenantID, chi.URLParam(r, "id"), &patch)
		if err != nil {
			handleServiceError(w, r, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, d)
	}
}

func deleteDealHandler(svc *service.CRMService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /deals/{id}")
		defer span.End()
		p := PrincipalFromContext(ctx)
		tagTenant(span, p)

		if err := svc.DeleteDeal(ctx, p.TenantID, chi.URLParam(r, "id")); err != nil {
			handleServiceError(w, r, err, logger)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/boddenberg/nextcrm-core/internal/domain"
	"github.com/boddenberg/nextcrm-core/internal/service"
)

// ============================================================
// Companies: /companies
// ============================================================

func createCompanyHandler(svc *service.CRMService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /companies")
		defer span.End()
		p := PrincipalFromContext(ctx)
		tagTenant(span, p)

		var in domain.CompanyCreate
		if err := decodeJSON(r, &in); err != nil {
			handleServiceError(w, r, err, logger)
			return
		}
		c, err := svc.CreateCompany(ctx, p.TenantID, &in)
		if err != nil {
			handleServiceError(w, r, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, c)
	}
}

func listCompaniesHandler(svc *service.CRMService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /companies")
		defer span.End()
		p := PrincipalFromContext(ctx)
		tagTenant(span, p)

		page, err := parsePage(r)
		if err != nil {
			handleServiceError(w, r, err, logger)
			return
		}
		items, err := svc.ListCompanies(ctx, p.TenantID, page)
		if err != nil {
			handleServiceError(w, r, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, items)
	}
}

func getCompanyHandler(svc *service.CRMService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /companies/{id}")
		defer span.End()
		p := PrincipalFromContext(ctx)
		tagTenant(span, p)

		c, err := svc.GetCompany(ctx, p.TenantID, chi.URLParam(r, "id"))
		if err != nil {
			handleServiceError(w, r, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, c)
	}
}

func updateCompanyHandler(svc *service.CRMService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PATCH /companies/{id}")
		defer span.End()
		p := PrincipalFromContext(ctx)
		tagTenant(span, p)

		var patch domain.CompanyPatch
		if err := decodeJSON(r, &patch); err != nil {
			handleServiceError(w, r, err, logger)
			return
		}
		c, err := svc.UpdateCompany(ctx, p.TenantID, chi.URLParam(r, "id"), &patch)
		if err != nil {
			handleServiceError(w, r, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, c)
	}
}

func deleteCompanyHandler(svc *service.CRMService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /companies/{id}")
		defer span.End()
		p := PrincipalFromContext(ctx)
		tagTenant(span, p)

		if err := svc.DeleteCompany(ctx, p.TenantID, chi.URLParam(r, "id")); err != nil {
			handleServiceError(w, r, err, logger)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

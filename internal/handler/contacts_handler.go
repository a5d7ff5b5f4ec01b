package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/boddenberg/nextcrm-core/internal/domain"
	"github.com/boddenberg/nextcrm-core/internal/service"
)

// ============================================================
// Contacts: /contacts
// ============================================================

func createContactHandler(svc *service.CRMService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /contacts")
		defer span.End()
		p := PrincipalFromContext(ctx)
		tagTenant(span, p)

		var in domain.ContactCreate
		if err := decodeJSON(r, &in); err != nil {
			handleServiceError(w, r, err, logger)
			return
		}
		c, err := svc.CreateContact(ctx, p.TenantID, &in)
		if err != nil {
			handleServiceError(w, r, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, c)
	}
}

// listContactsHandler supports ?company_id= besides limit and offset.
func listContactsHandler(svc *service.CRMService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /contacts")
		defer span.End()
		p := PrincipalFromContext(ctx)
		tagTenant(span, p)

		page, err := parsePage(r)
		if err != nil {
			handleServiceError(w, r, err, logger)
			return
		}
		items, err := svc.ListContacts(ctx, p.TenantID, domain.ContactFilter{
			CompanyID: r.URL.Query().Get("company_id"),
			Page:      page,
		})
		if err != nil {
			handleServiceError(w, r, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, items)
	}
}

func getContactHandler(svc *service.CRMService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /contacts/{id}")
		defer span.End()
		p := PrincipalFromContext(ctx)
		tagTenant(span, p)

		c, err := svc.GetContact(ctx, p.TenantID, chi.URLParam(r, "id"))
		if err != nil {
			handleServiceError(w, r, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, c)
	}
}

func updateContactHandler(svc *service.CRMService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PATCH /contacts/{id}")
		defer span.End()
		p := PrincipalFromContext(ctx)
		tagTenant(span, p)

		var patch domain.ContactPatch
		if err := decodeJSON(r, &patch); err != nil {
			handleServiceError(w, r, err, logger)
			return
		}
		c, err := svc.UpdateContact(ctx, p.TenantID, chi.URLParam(r, "id"), &patch)
		if err != nil {
			handleServiceError(w, r, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, c)
	}
}

func deleteContactHandler(svc *service.CRMService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /contacts/{id}")
		defer span.End()
		p := PrincipalFromContext(ctx)
		tagTenant(span, p)

		if err := svc.DeleteContact(ctx, p.TenantID, chi.URLParam(r, "id")); err != nil {
			handleServiceError(w, r, err, logger)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

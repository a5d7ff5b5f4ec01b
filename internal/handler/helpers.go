package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/boddenberg/nextcrm-core/internal/domain"
	"github.com/boddenberg/nextcrm-core/internal/infra/observability"
)

// ============================================================
// Shared helper functions
// ============================================================

type errorBody struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
}

type errorResponse struct {
	Error   errorBody `json:"error"`
	TraceID string    `json:"trace_id"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code, msg string, retryable bool) {
	writeJSON(w, status, errorResponse{
		Error:   errorBody{Code: code, Message: msg, Retryable: retryable},
		TraceID: observability.TraceIDFromContext(r.Context()),
	})
}

// decodeJSON reads the request body into dst. Any decode failure, an empty
// body included, is VALIDATION.INVALID_JSON.
func decodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return &domain.ErrValidation{Code: domain.CodeValidationJSON, Field: "body", Message: "request body is not valid JSON"}
	}
	return nil
}

// parsePage reads limit and offset. Absent values are zero and the service
// applies its defaults.
func parsePage(r *http.Request) (domain.Page, error) {
	var p domain.Page
	q := r.URL.Query()
	for _, f := range []struct {
		name string
		dst  *int
	}{{"limit", &p.Limit}, {"offset", &p.Offset}} {
		v := q.Get(f.name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return p, domain.InvalidField(f.name, f.name+" must be a non-negative integer")
		}
		*f.dst = n
	}
	return p, nil
}

func parseBool(r *http.Request, name string, fallback bool) (bool, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, domain.InvalidField(name, name+" must be a boolean")
	}
	return b, nil
}

func tagTenant(span trace.Span, p *domain.Principal) {
	span.SetAttributes(
		attribute.String("tenant.id", p.TenantID),
		attribute.String("user.id", p.UserID),
	)
}

// handleServiceError maps domain errors to the error envelope. Internal error
// text is logged and never returned.
func handleServiceError(w http.ResponseWriter, r *http.Request, err error, logger *zap.Logger) {
	log := observability.LoggerWithTrace(r.Context(), logger)

	var notFound *domain.ErrNotFound
	var validation *domain.ErrValidation
	var invalidRef *domain.ErrInvalidReference
	var mismatch *domain.ErrStagePipelineMismatch
	var conflict *domain.ErrConflict
	var unauthorized *domain.ErrUnauthorized
	var accountBlocked *domain.ErrAccountBlocked
	var unavailable *domain.ErrStoreUnavailable
	var circuitOpen *domain.ErrCircuitOpen

	switch {
	case errors.As(err, &notFound):
		log.Debug("not found", zap.String("error", err.Error()))
		writeError(w, r, http.StatusNotFound, domain.CodeNotFound, notFound.Resource+" not found", false)
	case errors.As(err, &validation):
		log.Debug("validation error", zap.String("error", err.Error()))
		writeError(w, r, http.StatusBadRequest, validation.Code, validation.Message, false)
	case errors.As(err, &invalidRef):
		log.Debug("invalid reference", zap.String("field", invalidRef.Field))
		writeError(w, r, http.StatusBadRequest, domain.CodeValidationReference, "invalid "+invalidRef.Field, false)
	case errors.As(err, &mismatch):
		log.Debug("stage pipeline mismatch", zap.String("error", err.Error()))
		writeError(w, r, http.StatusBadRequest, domain.CodeStagePipelineMismatch, "stage does not belong to pipeline", false)
	case errors.As(err, &conflict):
		log.Debug("conflict", zap.String("error", err.Error()))
		writeError(w, r, http.StatusConflict, domain.CodeConflict, conflict.Message, false)
	case errors.As(err, &unauthorized):
		log.Warn("unauthorized", zap.String("code", unauthorized.Code), zap.String("error", err.Error()))
		writeError(w, r, http.StatusUnauthorized, unauthorized.Code, unauthorized.Message, false)
	case errors.As(err, &accountBlocked):
		log.Warn("account blocked", zap.String("user_id", accountBlocked.UserID))
		writeError(w, r, http.StatusForbidden, domain.CodeUserLocked, err.Error(), false)
	case errors.As(err, &unavailable), errors.As(err, &circuitOpen):
		log.Error("store unavailable", zap.Error(err))
		writeError(w, r, http.StatusServiceUnavailable, domain.CodeStoreUnavailable, "Store temporarily unavailable.", true)
	default:
		log.Error("unhandled error", zap.Error(err))
		writeError(w, r, http.StatusInternalServerError, domain.CodeInternal, "internal server error", false)
	}
}

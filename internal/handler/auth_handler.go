package handler

import (
	"net"
	"net/http"

	"go.uber.org/zap"

	"github.com/boddenberg/nextcrm-core/internal/domain"
	"github.com/boddenberg/nextcrm-core/internal/service"
)

// ============================================================
// Bootstrap & authentication
// ============================================================

func bootstrapHandler(svc *service.BootstrapService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /bootstrap")
		defer span.End()

		if svc == nil {
			writeError(w, r, http.StatusNotFound, domain.CodeNotFound, "bootstrap is disabled", false)
			return
		}

		res, err := svc.Ensure(ctx)
		if err != nil {
			handleServiceError(w, r, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

func authLoginHandler(svc *service.AuthService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /auth/login")
		defer span.End()

		var req domain.LoginRequest
		if err := decodeJSON(r, &req); err != nil {
			handleServiceError(w, r, err, logger)
			return
		}

		resp, err := svc.Login(ctx, &req, clientInfo(r))
		if err != nil {
			handleServiceError(w, r, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func authWhoAmIHandler(svc *service.AuthService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, span := tracer.Start(r.Context(), "GET /auth/whoami")
		defer span.End()

		p := PrincipalFromContext(r.Context())
		tagTenant(span, p)
		writeJSON(w, http.StatusOK, svc.WhoAmI(p))
	}
}

func authLogoutHandler(svc *service.AuthService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /auth/logout")
		defer span.End()

		p := PrincipalFromContext(ctx)
		tagTenant(span, p)

		resp, err := svc.Logout(ctx, p)
		if err != nil {
			handleServiceError(w, r, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// clientInfo captures the caller address and agent stored with a new
// session. RemoteAddr has already been rewritten by middleware.RealIP.
func clientInfo(r *http.Request) domain.ClientInfo {
	ip := r.RemoteAddr
	if host, _, err := net.SplitHostPort(ip); err == nil {
		ip = host
	}
	return domain.ClientInfo{IP: ip, UserAgent: r.UserAgent()}
}

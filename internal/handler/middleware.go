package handler

import (
	"context"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/boddenberg/nextcrm-core/internal/domain"
	"github.com/boddenberg/nextcrm-core/internal/service"
)

type contextKey string

const principalKey contextKey = "principal"

// SessionAuthMiddleware resolves the bearer token into a Principal and puts
// it in the request context.
func SessionAuthMiddleware(sessions *service.SessionService, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				logger.Warn("auth: missing or malformed token",
					zap.String("path", r.URL.Path),
					zap.String("remote_addr", r.RemoteAddr),
				)
				writeError(w, r, http.StatusUnauthorized, domain.CodeMissingToken, "Missing bearer token.", false)
				return
			}

			principal, err := sessions.Authenticate(r.Context(), token)
			if err != nil {
				handleServiceError(w, r, err, logger)
				return
			}

			ctx := context.WithValue(r.Context(), principalKey, principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// bearerToken accepts "Bearer <token>" with a case-insensitive scheme and a
// single space before a non-empty token.
func bearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	if token == "" || strings.ContainsAny(token, " \t") {
		return "", false
	}
	return token, true
}

// PrincipalFromContext returns the authenticated principal, or nil outside
// the protected routes.
func PrincipalFromContext(ctx context.Context) *domain.Principal {
	p, _ := ctx.Value(principalKey).(*domain.Principal)
	return p
}

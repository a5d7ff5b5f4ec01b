// Package service holds the use cases: authentication, bootstrap, the
// tenant-scoped CRM services and the board view.
package service

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/boddenberg/nextcrm-core/internal/domain"
	"github.com/boddenberg/nextcrm-core/internal/infra/observability"
	"github.com/boddenberg/nextcrm-core/internal/port"
)

var authTracer = otel.Tracer("service/auth")

// AuthService implements login, whoami and logout.
type AuthService struct {
	tenants  *TenantLookup
	users    port.UserStore
	sessions *SessionService
	hasher   *PasswordHasher
	metrics  *observability.Metrics
	logger   *zap.Logger
}

// NewAuthService creates an auth service.
func NewAuthService(tenants *TenantLookup, users port.UserStore, sessions *SessionService, hasher *PasswordHasher, metrics *observability.Metrics, logger *zap.Logger) *AuthService {
	return &AuthService{
		tenants:  tenants,
		users:    users,
		sessions: sessions,
		hasher:   hasher,
		metrics:  metrics,
		logger:   logger,
	}
}

// ============================================================
// Login: POST /auth/login
// ============================================================

func (s *AuthService) Login(ctx context.Context, req *domain.LoginRequest, client domain.ClientInfo) (*domain.LoginResponse, error) {
	ctx, span := authTracer.Start(ctx, "AuthService.Login")
	defer span.End()

	slug, err := requireText("tenant", req.Tenant)
	if err != nil {
		return nil, err
	}
	email := normalizeEmail(req.Email)
	if email == "" {
		return nil, domain.RequiredField("email")
	}
	if req.Password == "" {
		return nil, domain.RequiredField("password")
	}
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("tenant.slug", slug))

	log := observability.LoggerWithTrace(ctx, s.logger)

	tenant, err := s.tenants.Resolve(ctx, slug)
	if err != nil {
		var nf *domain.ErrNotFound
		if errors.As(err, &nf) {
			s.metrics.IncrAuthOutcome("invalid_tenant")
			log.Info("login: unknown tenant", zap.String("tenant", slug))
			return nil, &domain.ErrUnauthorized{Code: domain.CodeInvalidTenant, Message: "Invalid tenant."}
		}
		return nil, fmt.Errorf("resolve tenant: %w", err)
	}

	user, err := s.users.GetUserByEmail(ctx, tenant.TenantID, email)
	if err != nil {
		var nf *domain.ErrNotFound
		if !errors.As(err, &nf) {
			return nil, fmt.Errorf("get user: %w", err)
		}
		s.hasher.burn(ctx, req.Password)
		return nil, s.invalidCredentials(log, tenant.TenantID, "unknown email")
	}

	if !s.hasher.Verify(ctx, req.Password, user.PasswordHash) {
		return nil, s.invalidCredentials(log, tenant.TenantID, "wrong password")
	}

	if !user.CanAuthenticate() {
		s.metrics.IncrAuthOutcome("user_locked")
		log.Warn("login: user locked or inactive",
			zap.String("tenant_id", tenant.TenantID),
			zap.String("user_id", user.UserID),
		)
		return nil, &domain.ErrAccountBlocked{UserID: user.UserID}
	}

	sess, access, err := s.sessions.Create(ctx, user, client)
	if err != nil {
		return nil, err
	}

	s.metrics.IncrAuthOutcome("login")
	log.Info("login: session issued",
		zap.String("tenant_id", tenant.TenantID),
		zap.String("user_id", user.UserID),
	)

	return &domain.LoginResponse{
		AccessToken: access,
		TokenType:   "bearer",
		ExpiresAt:   sess.ExpiresAt,
		TenantID:    tenant.TenantID,
		UserID:      user.UserID,
		TraceID:     observability.TraceIDFromContext(ctx),
	}, nil
}

func (s *AuthService) invalidCredentials(log *zap.Logger, tenantID, why string) error {
	s.metrics.IncrAuthOutcome("invalid_credentials")
	log.Info("login: invalid credentials",
		zap.String("tenant_id", tenantID),
		zap.String("reason", why),
	)
	return &domain.ErrUnauthorized{Code: domain.CodeInvalidCredentials, Message: "Invalid email or password."}
}

// ============================================================
// WhoAmI / Logout
// ============================================================

func (s *AuthService) WhoAmI(p *domain.Principal) *domain.WhoAmIResponse {
	return &domain.WhoAmIResponse{
		TenantID: p.TenantID,
		UserID:   p.UserID,
		Email:    p.Email,
		Role:     p.Role,
	}
}

func (s *AuthService) Logout(ctx context.Context, p *domain.Principal) (*domain.LogoutResponse, error) {
	ctx, span := authTracer.Start(ctx, "AuthService.Logout")
	defer span.End()

	revoked, err := s.sessions.Revoke(ctx, p.Token)
	if err != nil {
		return nil, err
	}

	observability.LoggerWithTrace(ctx, s.logger).Info("logout",
		zap.String("tenant_id", p.TenantID),
		zap.String("user_id", p.UserID),
		zap.Bool("revoked", revoked),
	)

	return &domain.LogoutResponse{
		OK:       true,
		Revoked:  revoked,
		TenantID: p.TenantID,
		UserID:   p.UserID,
	}, nil
}

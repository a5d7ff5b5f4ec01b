package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"go.uber.org/zap"

	"github.com/boddenberg/nextcrm-core/internal/domain"
	"github.com/boddenberg/nextcrm-core/internal/infra/observability"
	"github.com/boddenberg/nextcrm-core/internal/port"
)

// BootstrapConfig names the tenant and admin account to ensure.
type BootstrapConfig struct {
	TenantSlug    string
	AdminEmail    string
	AdminPassword string
}

// BootstrapService creates the demo tenant and its admin user if missing.
type BootstrapService struct {
	store  port.IdentityStore
	hasher *PasswordHasher
	cfg    BootstrapConfig
	logger *zap.Logger
}

// NewBootstrapService creates a bootstrap service.
func NewBootstrapService(store port.IdentityStore, hasher *PasswordHasher, cfg BootstrapConfig, logger *zap.Logger) *BootstrapService {
	return &BootstrapService{store: store, hasher: hasher, cfg: cfg, logger: logger}
}

// Ensure is idempotent. A concurrent bootstrap that wins the race surfaces as
// a conflict here; one retry then finds the rows in place.
func (s *BootstrapService) Ensure(ctx context.Context) (*domain.BootstrapResult, error) {
	ctx, span := authTracer.Start(ctx, "BootstrapService.Ensure")
	defer span.End()

	slug, err := requireText("tenant_slug", s.cfg.TenantSlug)
	if err != nil {
		return nil, err
	}
	email := normalizeEmail(s.cfg.AdminEmail)
	if email == "" {
		return nil, domain.RequiredField("admin_email")
	}

	hash, err := s.hasher.Hash(ctx, s.cfg.AdminPassword)
	if err != nil {
		return nil, err
	}

	res, err := s.ensure(ctx, slug, email, hash)
	var conflict *domain.ErrConflict
	if errors.As(err, &conflict) {
		res, err = s.ensure(ctx, slug, email, hash)
	}
	if err != nil {
		return nil, fmt.Errorf("bootstrap: %w", err)
	}

	res.TraceID = observability.TraceIDFromContext(ctx)
	observability.LoggerWithTrace(ctx, s.logger).Info("bootstrap ensured",
		zap.String("tenant_id", res.TenantID),
		zap.String("tenant_slug", res.TenantSlug),
		zap.String("admin_user_id", res.AdminUserID),
	)
	return res, nil
}

func (s *BootstrapService) ensure(ctx context.Context, slug, email, hash string) (*domain.BootstrapResult, error) {
	var res domain.BootstrapResult
	err := s.store.WithinTx(ctx, func(ctx context.Context) error {
		now := time.Now().UTC()
		var nf *domain.ErrNotFound

		tenant, err := s.store.GetTenantBySlug(ctx, slug)
		if errors.As(err, &nf) {
			tenant = &domain.Tenant{TenantID: newID(prefixTenant), Slug: slug, Name: tenantDisplayName(slug), CreatedAt: now}
			err = s.store.CreateTenant(ctx, tenant)
		}
		if err != nil {
			return err
		}

		user, err := s.store.GetUserByEmail(ctx, tenant.TenantID, email)
		if errors.As(err, &nf) {
			user = &domain.User{
				UserID:       newID(prefixUser),
				TenantID:     tenant.TenantID,
				Email:        email,
				PasswordHash: hash,
				Role:         "admin",
				IsActive:     true,
				CreatedAt:    now,
			}
			err = s.store.CreateUser(ctx, user)
		}
		if err != nil {
			return err
		}

		res = domain.BootstrapResult{
			TenantID:    tenant.TenantID,
			TenantSlug:  tenant.Slug,
			AdminUserID: user.UserID,
			AdminEmail:  user.Email,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// tenantDisplayName title-cases slug and appends " Tenant": "demo" becomes
// "Demo Tenant", "acme-corp" becomes "Acme-Corp Tenant".
func tenantDisplayName(slug string) string {
	var b strings.Builder
	prevLetter := false
	for _, r := range slug {
		if prevLetter {
			b.WriteRune(unicode.ToLower(r))
		} else {
			b.WriteRune(unicode.ToUpper(r))
		}
		prevLetter = unicode.IsLetter(r)
	}
	b.WriteString(" Tenant")
	return b.String()
}

package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/boddenberg/nextcrm-core/internal/domain"
	"github.com/boddenberg/nextcrm-core/internal/infra/cache"
	"github.com/boddenberg/nextcrm-core/internal/infra/memory"
	"github.com/boddenberg/nextcrm-core/internal/infra/observability"
	"github.com/boddenberg/nextcrm-core/internal/service"
)

type authFixture struct {
	store     *memory.Store
	metrics   *observability.Metrics
	sessions  *service.SessionService
	auth      *service.AuthService
	bootstrap *domain.BootstrapResult
}

func newAuthFixture(t *testing.T, codec service.TokenCodec) *authFixture {
	t.Helper()
	store := memory.NewStore()
	metrics := observability.NewMetrics()
	logger := zap.NewNop()
	hasher := service.NewPasswordHasher(4, 2)

	tenantCache := cache.New[domain.Tenant](time.Minute)
	t.Cleanup(tenantCache.Close)

	sessions := service.NewSessionService(store, codec, time.Hour, metrics, logger)
	auth := service.NewAuthService(service.NewTenantLookup(store, tenantCache, metrics), store, sessions, hasher, metrics, logger)

	boot := service.NewBootstrapService(store, hasher, service.BootstrapConfig{
		TenantSlug:    "demo",
		AdminEmail:    "Admin@Demo.local",
		AdminPassword: "admin123",
	}, logger)
	res, err := boot.Ensure(context.Background())
	if err != nil {
		t.Fatalf("bootstrap: %v", err)
	}

	return &authFixture{store: store, metrics: metrics, sessions: sessions, auth: auth, bootstrap: res}
}

func (f *authFixture) login(t *testing.T) *domain.LoginResponse {
	t.Helper()
	resp, err := f.auth.Login(context.Background(), &domain.LoginRequest{Tenant: "demo", Email: "admin@demo.local", Password: "admin123"}, domain.ClientInfo{IP: "10.0.0.1", UserAgent: "test"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	return resp
}

func TestPasswordHasher_HashAndVerify(t *testing.T) {
	h := service.NewPasswordHasher(4, 1)
	ctx := context.Background()

	hash, err := h.Hash(ctx, "s3cret")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if hash == "s3cret" {
		t.Fatal("expected hash to differ from plaintext")
	}
	if !h.Verify(ctx, "s3cret", hash) {
		t.Error("expected password to verify")
	}
	if h.Verify(ctx, "wrong", hash) {
		t.Error("expected wrong password to fail")
	}
	if h.Verify(ctx, "s3cret", "not-a-bcrypt-hash") {
		t.Error("expected malformed hash to fail without error")
	}
}

func TestBootstrap_Idempotent(t *testing.T) {
	f := newAuthFixture(t, service.OpaqueCodec{})

	boot := service.NewBootstrapService(f.store, service.NewPasswordHasher(4, 1), service.BootstrapConfig{
		TenantSlug: "demo", AdminEmail: "admin@demo.local", AdminPassword: "other",
	}, zap.NewNop())
	again, err := boot.Ensure(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if again.TenantID != f.bootstrap.TenantID || again.AdminUserID != f.bootstrap.AdminUserID {
		t.Errorf("expected same ids, got %+v vs %+v", again, f.bootstrap)
	}
	if f.bootstrap.AdminEmail != "admin@demo.local" {
		t.Errorf("expected lowercased email, got %q", f.bootstrap.AdminEmail)
	}
}

func TestSession_IssueValidateRevoke(t *testing.T) {
	f := newAuthFixture(t, service.OpaqueCodec{})
	ctx := context.Background()

	resp := f.login(t)
	if len(resp.AccessToken) != 64 {
		t.Errorf("expected 64 hex chars, got %d", len(resp.AccessToken))
	}
	if resp.TokenType != "bearer" {
		t.Errorf("expected bearer, got %q", resp.TokenType)
	}

	p, err := f.sessions.Authenticate(ctx, resp.AccessToken)
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if p.TenantID != f.bootstrap.TenantID || p.UserID != f.bootstrap.AdminUserID || p.Role != "admin" {
		t.Errorf("unexpected principal: %+v", p)
	}

	out, err := f.auth.Logout(ctx, p)
	if err != nil || !out.Revoked {
		t.Fatalf("expected revoked logout, got %+v %v", out, err)
	}
	again, _ := f.sessions.Revoke(ctx, resp.AccessToken)
	if again {
		t.Error("expected second revoke to report false")
	}

	var unauth *domain.ErrUnauthorized
	_, err = f.sessions.Authenticate(ctx, resp.AccessToken)
	if !errors.As(err, &unauth) || unauth.Reason != domain.TokenRevoked {
		t.Fatalf("expected revoked token, got %v", err)
	}
	if got := f.metrics.AuthOutcomeCount("token_revoked"); got != 1 {
		t.Errorf("expected 1 revoked outcome, got %v", got)
	}
}

func TestSession_Expired(t *testing.T) {
	f := newAuthFixture(t, service.OpaqueCodec{})
	ctx := context.Background()
	resp := f.login(t)

	if err := f.store.ExpireSession(ctx, resp.AccessToken, time.Now().Add(-time.Second)); err != nil {
		t.Fatal(err)
	}

	var unauth *domain.ErrUnauthorized
	_, err := f.sessions.Authenticate(ctx, resp.AccessToken)
	if !errors.As(err, &unauth) || unauth.Reason != domain.TokenExpired || unauth.Code != domain.CodeInvalidToken {
		t.Fatalf("expected expired token, got %v", err)
	}
}

func TestSession_UnknownToken(t *testing.T) {
	f := newAuthFixture(t, service.OpaqueCodec{})

	var unauth *domain.ErrUnauthorized
	_, err := f.sessions.Authenticate(context.Background(), "deadbeef")
	if !errors.As(err, &unauth) || unauth.Reason != domain.TokenNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestSession_LockedUserRejected(t *testing.T) {
	f := newAuthFixture(t, service.OpaqueCodec{})
	ctx := context.Background()
	resp := f.login(t)

	if err := f.store.SetUserFlags(ctx, f.bootstrap.TenantID, f.bootstrap.AdminUserID, true, true); err != nil {
		t.Fatal(err)
	}

	var blocked *domain.ErrAccountBlocked
	if _, err := f.sessions.Authenticate(ctx, resp.AccessToken); !errors.As(err, &blocked) {
		t.Fatalf("expected account blocked, got %v", err)
	}
}

func TestLogin_Failures(t *testing.T) {
	f := newAuthFixture(t, service.OpaqueCodec{})
	ctx := context.Background()

	tests := []struct {
		name     string
		req      domain.LoginRequest
		wantCode string
	}{
		{"unknown tenant", domain.LoginRequest{Tenant: "nope", Email: "admin@demo.local", Password: "admin123"}, domain.CodeInvalidTenant},
		{"unknown email", domain.LoginRequest{Tenant: "demo", Email: "ghost@demo.local", Password: "admin123"}, domain.CodeInvalidCredentials},
		{"wrong password", domain.LoginRequest{Tenant: "demo", Email: "admin@demo.local", Password: "nope"}, domain.CodeInvalidCredentials},
		{"blank tenant", domain.LoginRequest{Tenant: "  ", Email: "admin@demo.local", Password: "x"}, domain.CodeValidationRequired},
		{"blank password", domain.LoginRequest{Tenant: "demo", Email: "admin@demo.local"}, domain.CodeValidationRequired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.auth.Login(ctx, &tt.req, domain.ClientInfo{})
			var unauth *domain.ErrUnauthorized
			var verr *domain.ErrValidation
			switch {
			case errors.As(err, &unauth):
				if unauth.Code != tt.wantCode {
					t.Errorf("expected %s, got %s", tt.wantCode, unauth.Code)
				}
			case errors.As(err, &verr):
				if verr.Code != tt.wantCode {
					t.Errorf("expected %s, got %s", tt.wantCode, verr.Code)
				}
			default:
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestLogin_LockedUser(t *testing.T) {
	f := newAuthFixture(t, service.OpaqueCodec{})
	ctx := context.Background()
	_ = f.store.SetUserFlags(ctx, f.bootstrap.TenantID, f.bootstrap.AdminUserID, false, false)

	var blocked *domain.ErrAccountBlocked
	_, err := f.auth.Login(ctx, &domain.LoginRequest{Tenant: "demo", Email: "admin@demo.local", Password: "admin123"}, domain.ClientInfo{})
	if !errors.As(err, &blocked) {
		t.Fatalf("expected account blocked, got %v", err)
	}
}

func TestJWTCodec_RoundTripAndTamper(t *testing.T) {
	codec := service.NewJWTCodec("secret", "nextcrm", "nextcrm")
	f := newAuthFixture(t, codec)
	ctx := context.Background()

	resp := f.login(t)
	p, err := f.sessions.Authenticate(ctx, resp.AccessToken)
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if p.Token == resp.AccessToken {
		t.Error("expected principal to carry the inner session token")
	}

	other := service.NewJWTCodec("different", "nextcrm", "nextcrm")
	if _, err := other.Decode(resp.AccessToken); err == nil {
		t.Error("expected signature check to fail")
	}
	wrongAud := service.NewJWTCodec("secret", "nextcrm", "someone-else")
	if _, err := wrongAud.Decode(resp.AccessToken); err == nil {
		t.Error("expected audience check to fail")
	}

	var unauth *domain.ErrUnauthorized
	if _, err := f.sessions.Authenticate(ctx, "not.a.jwt"); !errors.As(err, &unauth) || unauth.Reason != domain.TokenNotFound {
		t.Errorf("expected not found class, got %v", err)
	}
}

func TestTenantLookup_CachesHits(t *testing.T) {
	f := newAuthFixture(t, service.OpaqueCodec{})
	tenantCache := cache.New[domain.Tenant](time.Minute)
	defer tenantCache.Close()
	lookup := service.NewTenantLookup(f.store, tenantCache, f.metrics)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := lookup.Resolve(ctx, "demo"); err != nil {
			t.Fatalf("resolve: %v", err)
		}
	}
	if got := f.metrics.CacheHitCount("tenant"); got < 1 {
		t.Errorf("expected a cache hit, got %v", got)
	}
	if _, err := lookup.Resolve(ctx, "missing"); err == nil {
		t.Error("expected not found")
	}
}

func TestJWTCodec_LogoutRevokesSession(t *testing.T) {
	f := newAuthFixture(t, service.NewJWTCodec("secret", "nextcrm", "nextcrm"))
	ctx := context.Background()

	resp := f.login(t)
	p, err := f.sessions.Authenticate(ctx, resp.AccessToken)
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}

	out, err := f.auth.Logout(ctx, p)
	if err != nil || !out.Revoked {
		t.Fatalf("expected revoked logout, got %+v %v", out, err)
	}

	var unauth *domain.ErrUnauthorized
	_, err = f.sessions.Authenticate(ctx, resp.AccessToken)
	if !errors.As(err, &unauth) || unauth.Reason != domain.TokenRevoked {
		t.Fatalf("expected signed token to be revoked with its session, got %v", err)
	}
}

func TestJWTCodec_SessionExpiryWins(t *testing.T) {
	f := newAuthFixture(t, service.NewJWTCodec("secret", "nextcrm", "nextcrm"))
	ctx := context.Background()

	resp := f.login(t)
	p, err := f.sessions.Authenticate(ctx, resp.AccessToken)
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}

	// The signed exp is still an hour out; only the stored session expires.
	if err := f.store.ExpireSession(ctx, p.Token, time.Now().Add(-time.Second)); err != nil {
		t.Fatal(err)
	}

	var unauth *domain.ErrUnauthorized
	_, err = f.sessions.Authenticate(ctx, resp.AccessToken)
	if !errors.As(err, &unauth) || unauth.Reason != domain.TokenExpired {
		t.Fatalf("expected expired session, got %v", err)
	}
}

func TestBootstrap_TenantName(t *testing.T) {
	f := newAuthFixture(t, service.OpaqueCodec{})

	tenant, err := f.store.GetTenantBySlug(context.Background(), "demo")
	if err != nil {
		t.Fatalf("get tenant: %v", err)
	}
	if tenant.Name != "Demo Tenant" {
		t.Errorf("expected Demo Tenant, got %q", tenant.Name)
	}
}

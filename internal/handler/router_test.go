package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/boddenberg/nextcrm-core/internal/domain"
	"github.com/boddenberg/nextcrm-core/internal/handler"
	"github.com/boddenberg/nextcrm-core/internal/infra/cache"
	"github.com/boddenberg/nextcrm-core/internal/infra/memory"
	"github.com/boddenberg/nextcrm-core/internal/infra/observability"
	"github.com/boddenberg/nextcrm-core/internal/port"
	"github.com/boddenberg/nextcrm-core/internal/service"
)

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

type testServer struct {
	router  http.Handler
	store   *memory.Store
	metrics *observability.Metrics
	hasher  *service.PasswordHasher
}

type serverSetup struct {
	codec       service.TokenCodec
	noBootstrap bool
	readiness   map[string]port.Pinger
}

type serverOption func(*serverSetup)

func withoutBootstrap() serverOption {
	return func(s *serverSetup) { s.noBootstrap = true }
}

func withReadiness(name string, p port.Pinger) serverOption {
	return func(s *serverSetup) { s.readiness[name] = p }
}

func withCodec(codec service.TokenCodec) serverOption {
	return func(s *serverSetup) { s.codec = codec }
}

func newTestServer(t *testing.T, opts ...serverOption) *testServer {
	t.Helper()
	store := memory.NewStore()
	metrics := observability.NewMetrics()
	logger := zap.NewNop()
	hasher := service.NewPasswordHasher(4, 2)

	tenantCache := cache.New[domain.Tenant](time.Minute)
	t.Cleanup(tenantCache.Close)

	setup := serverSetup{
		codec:     service.OpaqueCodec{},
		readiness: map[string]port.Pinger{"store": store},
	}
	for _, opt := range opts {
		opt(&setup)
	}

	sessions := service.NewSessionService(store, setup.codec, time.Hour, metrics, logger)
	svc := handler.Services{
		Auth:     service.NewAuthService(service.NewTenantLookup(store, tenantCache, metrics), store, sessions, hasher, metrics, logger),
		Sessions: sessions,
		Bootstrap: service.NewBootstrapService(store, hasher, service.BootstrapConfig{
			TenantSlug:    "demo",
			AdminEmail:    "admin@demo.local",
			AdminPassword: "admin123",
		}, logger),
		CRM:       service.NewCRMService(store, metrics, logger),
		Readiness: setup.readiness,
		Build: domain.BuildInfo{
			Service: "core",
			Env:     "test",
			LogMode: "json",
			Version: "1.2.3",
			GitSHA:  "abc123",
		},
	}
	if setup.noBootstrap {
		svc.Bootstrap = nil
	}

	return &testServer{
		router:  handler.NewRouter(svc, metrics, logger),
		store:   store,
		metrics: metrics,
		hasher:  hasher,
	}
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		if err := json.NewEncoder(&buf).Encode(b); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

// addTenant creates another tenant with its own admin through the bootstrap use case.
func (s *testServer) addTenant(t *testing.T, slug, email string) {
	t.Helper()
	boot := service.NewBootstrapService(s.store, s.hasher, service.BootstrapConfig{
		TenantSlug:    slug,
		AdminEmail:    email,
		AdminPassword: "secret123",
	}, zap.NewNop())
	if _, err := boot.Ensure(context.Background()); err != nil {
		t.Fatalf("add tenant %s: %v", slug, err)
	}
}

func (s *testServer) login(t *testing.T, tenant, email, password string) string {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/auth/login", "", map[string]string{
		"tenant": tenant, "email": email, "password": password,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("login: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp domain.LoginResponse
	decode(t, rec, &resp)
	if resp.AccessToken == "" || resp.TokenType != "bearer" {
		t.Fatalf("unexpected login response: %+v", resp)
	}
	return resp.AccessToken
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), dst); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
}

type envelope struct {
	Error struct {
		Code      string `json:"code"`
		Message   string `json:"message"`
		Retryable bool   `json:"retryable"`
	} `json:"error"`
	TraceID string `json:"trace_id"`
}

func expectError(t *testing.T, rec *httptest.ResponseRecorder, status int, code string) envelope {
	t.Helper()
	if rec.Code != status {
		t.Fatalf("expected %d, got %d: %s", status, rec.Code, rec.Body.String())
	}
	var env envelope
	decode(t, rec, &env)
	if env.Error.Code != code {
		t.Fatalf("expected code %s, got %s", code, env.Error.Code)
	}
	return env
}

// ============================================================
// Operational endpoints
// ============================================================

func TestHealth(t *testing.T) {
	srv := newTestServer(t)
	rec := srv.do(t, http.MethodGet, "/health", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var h domain.HealthStatus
	decode(t, rec, &h)
	if h.Status != "ok" || h.Service != "core" || h.Env != "test" || h.LogMode != "json" {
		t.Errorf("unexpected health payload: %+v", h)
	}
}

func TestVersion(t *testing.T) {
	srv := newTestServer(t)
	rec := srv.do(t, http.MethodGet, "/version", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var v domain.VersionInfo
	decode(t, rec, &v)
	if v.Version != "1.2.3" || v.GitSHA != "abc123" {
		t.Errorf("unexpected version payload: %+v", v)
	}
}

func TestPing(t *testing.T) {
	srv := newTestServer(t)
	if rec := srv.do(t, http.MethodGet, "/ping", "", nil); rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestMetrics(t *testing.T) {
	srv := newTestServer(t)
	srv.do(t, http.MethodGet, "/health", "", nil)

	rec := srv.do(t, http.MethodGet, "/metrics", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "crm_http_requests_total") {
		t.Error("expected http request counter in exposition")
	}
}

func TestReadyz(t *testing.T) {
	srv := newTestServer(t)
	rec := srv.do(t, http.MethodGet, "/readyz", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var st domain.ReadinessStatus
	decode(t, rec, &st)
	if st.Status != "ready" || st.Checks["store"] != "ok" {
		t.Errorf("unexpected readiness: %+v", st)
	}
}

func TestReadyz_DependencyDown(t *testing.T) {
	srv := newTestServer(t, withReadiness("redis", pingerFunc(func(context.Context) error {
		return errors.New("connection refused")
	})))

	rec := srv.do(t, http.MethodGet, "/readyz", "", nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
	var st domain.ReadinessStatus
	decode(t, rec, &st)
	if st.Checks["redis"] != "unavailable" || st.Checks["store"] != "ok" {
		t.Errorf("unexpected readiness: %+v", st)
	}
}

func TestBootstrap_Disabled(t *testing.T) {
	srv := newTestServer(t, withoutBootstrap())
	expectError(t, srv.do(t, http.MethodPost, "/bootstrap", "", nil), http.StatusNotFound, domain.CodeNotFound)
}

func TestBootstrap_Idempotent(t *testing.T) {
	srv := newTestServer(t)

	var first, second domain.BootstrapResult
	rec := srv.do(t, http.MethodPost, "/bootstrap", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	decode(t, rec, &first)
	decode(t, srv.do(t, http.MethodPost, "/bootstrap", "", nil), &second)

	if first.TenantID == "" || first.TenantID != second.TenantID || first.AdminUserID != second.AdminUserID {
		t.Errorf("expected same ids on repeat: %+v vs %+v", first, second)
	}
	if first.TenantSlug != "demo" || first.AdminEmail != "admin@demo.local" {
		t.Errorf("unexpected bootstrap result: %+v", first)
	}
}

// ============================================================
// Authentication
// ============================================================

func TestAuthFlow_BootstrapLoginWhoAmILogout(t *testing.T) {
	tests := []struct {
		name  string
		codec service.TokenCodec
	}{
		{"opaque", service.OpaqueCodec{}},
		{"jwt", service.NewJWTCodec("secret", "nextcrm", "nextcrm")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			authFlow(t, newTestServer(t, withCodec(tt.codec)))
		})
	}
}

func authFlow(t *testing.T, srv *testServer) {
	t.Helper()
	srv.do(t, http.MethodPost, "/bootstrap", "", nil)
	token := srv.login(t, "demo", "admin@demo.local", "admin123")

	rec := srv.do(t, http.MethodGet, "/auth/whoami", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("whoami: expected 200, got %d", rec.Code)
	}
	var who domain.WhoAmIResponse
	decode(t, rec, &who)
	if who.Email != "admin@demo.local" || who.Role != "admin" || who.TenantID == "" {
		t.Errorf("unexpected whoami: %+v", who)
	}

	rec = srv.do(t, http.MethodPost, "/auth/logout", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("logout: expected 200, got %d", rec.Code)
	}
	var out domain.LogoutResponse
	decode(t, rec, &out)
	if !out.OK || !out.Revoked || out.UserID != who.UserID {
		t.Errorf("unexpected logout: %+v", out)
	}

	expectError(t, srv.do(t, http.MethodGet, "/auth/whoami", token, nil), http.StatusUnauthorized, domain.CodeInvalidToken)
}

func TestLogin_Failures(t *testing.T) {
	srv := newTestServer(t)
	srv.do(t, http.MethodPost, "/bootstrap", "", nil)

	tests := []struct {
		name   string
		body   any
		status int
		code   string
	}{
		{"unknown tenant", map[string]string{"tenant": "nope", "email": "admin@demo.local", "password": "admin123"}, http.StatusUnauthorized, domain.CodeInvalidTenant},
		{"wrong password", map[string]string{"tenant": "demo", "email": "admin@demo.local", "password": "bad"}, http.StatusUnauthorized, domain.CodeInvalidCredentials},
		{"unknown email", map[string]string{"tenant": "demo", "email": "who@demo.local", "password": "admin123"}, http.StatusUnauthorized, domain.CodeInvalidCredentials},
		{"blank email", map[string]string{"tenant": "demo", "email": "  ", "password": "admin123"}, http.StatusBadRequest, domain.CodeValidationRequired},
		{"bad json", "{", http.StatusBadRequest, domain.CodeValidationJSON},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expectError(t, srv.do(t, http.MethodPost, "/auth/login", "", tt.body), tt.status, tt.code)
		})
	}
}

func TestLogin_LockedUser(t *testing.T) {
	srv := newTestServer(t)
	var boot domain.BootstrapResult
	decode(t, srv.do(t, http.MethodPost, "/bootstrap", "", nil), &boot)

	if err := srv.store.SetUserFlags(context.Background(), boot.TenantID, boot.AdminUserID, true, true); err != nil {
		t.Fatalf("lock user: %v", err)
	}
	body := map[string]string{"tenant": "demo", "email": "admin@demo.local", "password": "admin123"}
	expectError(t, srv.do(t, http.MethodPost, "/auth/login", "", body), http.StatusForbidden, domain.CodeUserLocked)
}

func TestSessionAuthMiddleware_Header(t *testing.T) {
	srv := newTestServer(t)
	srv.do(t, http.MethodPost, "/bootstrap", "", nil)
	token := srv.login(t, "demo", "admin@demo.local", "admin123")

	tests := []struct {
		name   string
		header string
		status int
		code   string
	}{
		{"missing", "", http.StatusUnauthorized, domain.CodeMissingToken},
		{"wrong scheme", "Basic " + token, http.StatusUnauthorized, domain.CodeMissingToken},
		{"scheme only", "Bearer", http.StatusUnauthorized, domain.CodeMissingToken},
		{"empty token", "Bearer ", http.StatusUnauthorized, domain.CodeMissingToken},
		{"double space", "Bearer  " + token, http.StatusUnauthorized, domain.CodeMissingToken},
		{"unknown token", "Bearer deadbeef", http.StatusUnauthorized, domain.CodeInvalidToken},
		{"lowercase scheme", "bearer " + token, http.StatusOK, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/auth/whoami", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			srv.router.ServeHTTP(rec, req)

			if tt.code == "" {
				if rec.Code != tt.status {
					t.Fatalf("expected %d, got %d: %s", tt.status, rec.Code, rec.Body.String())
				}
				return
			}
			expectError(t, rec, tt.status, tt.code)
		})
	}
}

func TestErrorEnvelope_CarriesTraceID(t *testing.T) {
	srv := newTestServer(t)
	srv.do(t, http.MethodPost, "/bootstrap", "", nil)
	token := srv.login(t, "demo", "admin@demo.local", "admin123")

	rec := srv.do(t, http.MethodPost, "/companies", token, "not json")
	env := expectError(t, rec, http.StatusBadRequest, domain.CodeValidationJSON)
	if env.TraceID == "" || env.TraceID != rec.Header().Get(observability.TraceHeader) {
		t.Errorf("expected trace id %q to match header %q", env.TraceID, rec.Header().Get(observability.TraceHeader))
	}
	if env.Error.Retryable {
		t.Error("validation errors are not retryable")
	}
}

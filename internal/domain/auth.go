package domain

import "time"

// ============================================================
// Identity: tenants, users and sessions
// ============================================================

// Tenant is the root of data isolation.
type Tenant struct {
	TenantID  string    `json:"tenant_id"`
	Slug      string    `json:"slug"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// User belongs to exactly one tenant. Users are disabled, never deleted.
type User struct {
	UserID       string    `json:"user_id"`
	TenantID     string    `json:"tenant_id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	IsActive     bool      `json:"is_active"`
	IsLocked     bool      `json:"is_locked"`
	CreatedAt    time.Time `json:"created_at"`
}

// CanAuthenticate reports whether the account may hold a valid session.
func (u *User) CanAuthenticate() bool {
	return u.IsActive && !u.IsLocked
}

// Session binds an opaque token to a tenant and user.
type Session struct {
	Token     string
	TenantID  string
	UserID    string
	CreatedAt time.Time
	ExpiresAt time.Time
	RevokedAt *time.Time
	IP        string
	UserAgent string
}

// Check classifies the session at instant now. An empty result means the
// session itself is usable; the owning user is checked separately.
func (s *Session) Check(now time.Time) TokenFailure {
	switch {
	case s.RevokedAt != nil:
		return TokenRevoked
	case !now.Before(s.ExpiresAt):
		return TokenExpired
	default:
		return ""
	}
}

// ClientInfo is captured from the login request and stored with the session.
type ClientInfo struct {
	IP        string
	UserAgent string
}

// Principal is the authenticated context of a request.
type Principal struct {
	TenantID string
	UserID   string
	Email    string
	Role     string
	Token    string
}

// ============================================================
// Auth: Request / Response types
// ============================================================

// LoginRequest is the body for POST /auth/login.
type LoginRequest struct {
	Tenant   string `json:"tenant" validate:"max=64"`
	Email    string `json:"email" validate:"max=320"`
	Password string `json:"password" validate:"max=128"`
}

// LoginResponse is the body for 200 from POST /auth/login.
type LoginResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
	TenantID    string    `json:"tenant_id"`
	UserID      string    `json:"user_id"`
	TraceID     string    `json:"trace_id,omitempty"`
}

// WhoAmIResponse is the body for GET /auth/whoami.
type WhoAmIResponse struct {
	TenantID string `json:"tenant_id"`
	UserID   string `json:"user_id"`
	Email    string `json:"email"`
	Role     string `json:"role"`
}

// LogoutResponse is the body for POST /auth/logout.
type LogoutResponse struct {
	OK       bool   `json:"ok"`
	Revoked  bool   `json:"revoked"`
	TenantID string `json:"tenant_id"`
	UserID   string `json:"user_id"`
}

// BootstrapResult is the body for POST /bootstrap.
type BootstrapResult struct {
	TenantID    string `json:"tenant_id"`
	TenantSlug  string `json:"tenant_slug"`
	AdminUserID string `json:"admin_user_id"`
	AdminEmail  string `json:"admin_email"`
	TraceID     string `json:"trace_id,omitempty"`
}

package domain_test

import (
	"testing"
	"time"

	"github.com/boddenberg/nextcrm-core/internal/domain"
)

func TestSessionCheck(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	revokedAt := now.Add(-time.Minute)

	tests := []struct {
		name    string
		session domain.Session
		want    domain.TokenFailure
	}{
		{"valid", domain.Session{ExpiresAt: now.Add(time.Hour)}, ""},
		{"expired", domain.Session{ExpiresAt: now.Add(-time.Second)}, domain.TokenExpired},
		{"expires exactly now", domain.Session{ExpiresAt: now}, domain.TokenExpired},
		{"revoked", domain.Session{ExpiresAt: now.Add(time.Hour), RevokedAt: &revokedAt}, domain.TokenRevoked},
		{"revoked and expired", domain.Session{ExpiresAt: now.Add(-time.Hour), RevokedAt: &revokedAt}, domain.TokenRevoked},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.session.Check(now); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestUserCanAuthenticate(t *testing.T) {
	if !(&domain.User{IsActive: true}).CanAuthenticate() {
		t.Error("active user should authenticate")
	}
	if (&domain.User{IsActive: true, IsLocked: true}).CanAuthenticate() {
		t.Error("locked user should not authenticate")
	}
	if (&domain.User{IsActive: false}).CanAuthenticate() {
		t.Error("inactive user should not authenticate")
	}
}

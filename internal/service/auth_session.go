package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/boddenberg/nextcrm-core/internal/domain"
	"github.com/boddenberg/nextcrm-core/internal/infra/observability"
	"github.com/boddenberg/nextcrm-core/internal/port"
)

// SessionService issues, validates and revokes store-backed sessions.
type SessionService struct {
	store   port.IdentityStore
	codec   TokenCodec
	ttl     time.Duration
	metrics *observability.Metrics
	logger  *zap.Logger
	now     func() time.Time
}

// NewSessionService creates a session service.
func NewSessionService(store port.IdentityStore, codec TokenCodec, ttl time.Duration, metrics *observability.Metrics, logger *zap.Logger) *SessionService {
	return &SessionService{
		store:   store,
		codec:   codec,
		ttl:     ttl,
		metrics: metrics,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Create persists a new session for user and returns it with the access
// token for the client.
func (s *SessionService) Create(ctx context.Context, user *domain.User, client domain.ClientInfo) (*domain.Session, string, error) {
	ctx, span := authTracer.Start(ctx, "SessionService.Create")
	defer span.End()

	token, err := generateSessionToken()
	if err != nil {
		return nil, "", err
	}
	now := s.now()
	sess := &domain.Session{
		Token:     token,
		TenantID:  user.TenantID,
		UserID:    user.UserID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
		IP:        client.IP,
		UserAgent: truncate(client.UserAgent, 512),
	}
	if err := s.store.CreateSession(ctx, sess); err != nil {
		return nil, "", fmt.Errorf("create session: %w", err)
	}

	access, err := s.codec.Encode(sess, user.Email)
	if err != nil {
		return nil, "", err
	}
	s.metrics.IncrSessionEvent("created")
	return sess, access, nil
}

// FindValid looks the session up once and classifies it.
func (s *SessionService) FindValid(ctx context.Context, token string) (*domain.Session, error) {
	sess, err := s.store.GetSession(ctx, token)
	if err != nil {
		var nf *domain.ErrNotFound
		if errors.As(err, &nf) {
			return nil, domain.InvalidToken(domain.TokenNotFound)
		}
		return nil, err
	}
	if reason := sess.Check(s.now()); reason != "" {
		return nil, domain.InvalidToken(reason)
	}
	return sess, nil
}

// Authenticate resolves a presented access token to the request principal.
func (s *SessionService) Authenticate(ctx context.Context, raw string) (*domain.Principal, error) {
	ctx, span := authTracer.Start(ctx, "SessionService.Authenticate")
	defer span.End()

	p, err := s.authenticate(ctx, raw)
	if err != nil {
		outcome := "error"
		var unauth *domain.ErrUnauthorized
		var blocked *domain.ErrAccountBlocked
		switch {
		case errors.As(err, &unauth):
			outcome = strings.ToLower(string(unauth.Reason))
			observability.LoggerWithTrace(ctx, s.logger).Info("auth: token rejected",
				zap.String("reason", string(unauth.Reason)),
			)
		case errors.As(err, &blocked):
			outcome = "user_locked"
			observability.LoggerWithTrace(ctx, s.logger).Warn("auth: user locked or inactive",
				zap.String("user_id", blocked.UserID),
			)
		}
		s.metrics.IncrAuthOutcome(outcome)
		return nil, err
	}

	span.SetAttributes(attribute.String("tenant.id", p.TenantID), attribute.String("user.id", p.UserID))
	s.metrics.IncrAuthOutcome("ok")
	return p, nil
}

func (s *SessionService) authenticate(ctx context.Context, raw string) (*domain.Principal, error) {
	token, err := s.codec.Decode(raw)
	if err != nil {
		return nil, err
	}
	sess, err := s.FindValid(ctx, token)
	if err != nil {
		return nil, err
	}

	user, err := s.store.GetUserByID(ctx, sess.TenantID, sess.UserID)
	if err != nil {
		var nf *domain.ErrNotFound
		if errors.As(err, &nf) {
			return nil, domain.InvalidToken(domain.TokenNotFound)
		}
		return nil, err
	}
	if !user.CanAuthenticate() {
		return nil, &domain.ErrAccountBlocked{UserID: user.UserID}
	}

	return &domain.Principal{
		TenantID: sess.TenantID,
		UserID:   sess.UserID,
		Email:    user.Email,
		Role:     user.Role,
		Token:    sess.Token,
	}, nil
}

// Revoke marks the session revoked. It reports false when the session was
// already revoked or never existed.
func (s *SessionService) Revoke(ctx context.Context, token string) (bool, error) {
	ctx, span := authTracer.Start(ctx, "SessionService.Revoke")
	defer span.End()

	revoked, err := s.store.RevokeSession(ctx, token, s.now())
	if err != nil {
		return false, fmt.Errorf("revoke session: %w", err)
	}
	if revoked {
		s.metrics.IncrSessionEvent("revoked")
	}
	return revoked, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

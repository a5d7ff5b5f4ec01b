package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/boddenberg/nextcrm-core/internal/domain"
)

func (s *Store) GetTenantBySlug(ctx context.Context, slug string) (*domain.Tenant, error) {
	var t domain.Tenant
	err := s.run(ctx, "GetTenantBySlug", func(ctx context.Context, q querier) error {
		err := q.QueryRow(ctx, `
			SELECT tenant_id, slug, name, created_at
			FROM tenants
			WHERE slug = $1
		`, slug).Scan(&t.TenantID, &t.Slug, &t.Name, &t.CreatedAt)
		return notFound("tenant", slug, err)
	})
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *Store) CreateTenant(ctx context.Context, t *domain.Tenant) error {
	return s.run(ctx, "CreateTenant", func(ctx context.Context, q querier) error {
		_, err := q.Exec(ctx, `
			INSERT INTO tenants (tenant_id, slug, name, created_at)
			VALUES ($1, $2, $3, $4)
		`, t.TenantID, t.Slug, t.Name, t.CreatedAt)
		return err
	})
}

const userColumns = `user_id, tenant_id, email, password_hash, role, is_active, is_locked, created_at`

func scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User
	err := row.Scan(&u.UserID, &u.TenantID, &u.Email, &u.PasswordHash, &u.Role, &u.IsActive, &u.IsLocked, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, tenantID, email string) (*domain.User, error) {
	var u *domain.User
	err := s.run(ctx, "GetUserByEmail", func(ctx context.Context, q querier) error {
		var err error
		u, err = scanUser(q.QueryRow(ctx, `
			SELECT `+userColumns+`
			FROM users
			WHERE tenant_id = $1 AND email = $2
		`, tenantID, email))
		return notFound("user", email, err)
	})
	return u, err
}

func (s *Store) GetUserByID(ctx context.Context, tenantID, userID string) (*domain.User, error) {
	var u *domain.User
	err := s.run(ctx, "GetUserByID", func(ctx context.Context, q querier) error {
		var err error
		u, err = scanUser(q.QueryRow(ctx, `
			SELECT `+userColumns+`
			FROM users
			WHERE tenant_id = $1 AND user_id = $2
		`, tenantID, userID))
		return notFound("user", userID, err)
	})
	return u, err
}

func (s *Store) CreateUser(ctx context.Context, u *domain.User) error {
	return s.run(ctx, "CreateUser", func(ctx context.Context, q querier) error {
		_, err := q.Exec(ctx, `
			INSERT INTO users (`+userColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`, u.UserID, u.TenantID, u.Email, u.PasswordHash, u.Role, u.IsActive, u.IsLocked, u.CreatedAt)
		return err
	})
}

func (s *Store) CreateSession(ctx context.Context, sess *domain.Session) error {
	return s.run(ctx, "CreateSession", func(ctx context.Context, q querier) error {
		_, err := q.Exec(ctx, `
			INSERT INTO sessions (token, tenant_id, user_id, created_at, expires_at, ip, user_agent)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, sess.Token, sess.TenantID, sess.UserID, sess.CreatedAt, sess.ExpiresAt, sess.IP, sess.UserAgent)
		return err
	})
}

func (s *Store) GetSession(ctx context.Context, token string) (*domain.Session, error) {
	var sess domain.Session
	err := s.run(ctx, "GetSession", func(ctx context.Context, q querier) error {
		var ip, ua *string
		err := q.QueryRow(ctx, `
			SELECT token, tenant_id, user_id, created_at, expires_at, revoked_at, ip, user_agent
			FROM sessions
			WHERE token = $1
		`, token).Scan(&sess.Token, &sess.TenantID, &sess.UserID, &sess.CreatedAt, &sess.ExpiresAt, &sess.RevokedAt, &ip, &ua)
		if err != nil {
			return notFound("session", "<redacted>", err)
		}
		if ip != nil {
			sess.IP = *ip
		}
		if ua != nil {
			sess.UserAgent = *ua
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &sess, nil
}

func (s *Store) RevokeSession(ctx context.Context, token string, at time.Time) (bool, error) {
	var revoked bool
	err := s.run(ctx, "RevokeSession", func(ctx context.Context, q querier) error {
		tag, err := q.Exec(ctx, `
			UPDATE sessions SET revoked_at = $2
			WHERE token = $1 AND revoked_at IS NULL
		`, token, at)
		if err != nil {
			return err
		}
		revoked = tag.RowsAffected() == 1
		return nil
	})
	return revoked, err
}

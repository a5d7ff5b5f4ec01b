// Package memory is an in-process implementation of every store port. It
// backs STORE_DRIVER=memory for local development and the test suites, and
// mirrors the Postgres adapter: tenant-filtered reads, ON DELETE SET NULL for
// company and contact references, RESTRICT for pipelines and stages that
// still hold deals, and all-or-nothing transactions.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/boddenberg/nextcrm-core/internal/domain"
)

type txKey struct{}

type row[T any] struct {
	seq int64
	v   T
}

type tables struct {
	tenants   map[string]domain.Tenant
	users     map[string]domain.User
	sessions  map[string]domain.Session
	companies map[string]row[domain.Company]
	contacts  map[string]row[domain.Contact]
	pipelines map[string]row[domain.Pipeline]
	stages    map[string]row[domain.Stage]
	deals     map[string]row[domain.Deal]
}

func newTables() tables {
	return tables{
		tenants:   map[string]domain.Tenant{},
		users:     map[string]domain.User{},
		sessions:  map[string]domain.Session{},
		companies: map[string]row[domain.Company]{},
		contacts:  map[string]row[domain.Contact]{},
		pipelines: map[string]row[domain.Pipeline]{},
		stages:    map[string]row[domain.Stage]{},
		deals:     map[string]row[domain.Deal]{},
	}
}

func (t tables) clone() tables {
	return tables{
		tenants:   cloneMap(t.tenants),
		users:     cloneMap(t.users),
		sessions:  cloneMap(t.sessions),
		companies: cloneMap(t.companies),
		contacts:  cloneMap(t.contacts),
		pipelines: cloneMap(t.pipelines),
		stages:    cloneMap(t.stages),
		deals:     cloneMap(t.deals),
	}
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Store holds all tables behind one mutex.
type Store struct {
	mu  sync.Mutex
	t   tables
	seq int64
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{t: newTables()}
}

// lock acquires the store mutex unless ctx already runs inside WithinTx.
func (s *Store) lock(ctx context.Context) func() {
	if owner, _ := ctx.Value(txKey{}).(*Store); owner == s {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func (s *Store) nextSeq() int64 {
	s.seq++
	return s.seq
}

// WithinTx serializes fn against every other store call and restores the
// previous state if fn fails.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if owner, _ := ctx.Value(txKey{}).(*Store); owner == s {
		return fn(ctx)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.t.clone()
	if err := fn(context.WithValue(ctx, txKey{}, s)); err != nil {
		s.t = snapshot
		return err
	}
	return nil
}

// Ping always succeeds.
func (s *Store) Ping(context.Context) error {
	return nil
}

// ============================================================
// Identity
// ============================================================

func (s *Store) GetTenantBySlug(ctx context.Context, slug string) (*domain.Tenant, error) {
	defer s.lock(ctx)()
	for _, t := range s.t.tenants {
		if t.Slug == slug {
			return &t, nil
		}
	}
	return nil, &domain.ErrNotFound{Resource: "tenant", ID: slug}
}

func (s *Store) CreateTenant(ctx context.Context, t *domain.Tenant) error {
	defer s.lock(ctx)()
	for _, existing := range s.t.tenants {
		if existing.Slug == t.Slug {
			return &domain.ErrConflict{Message: "tenant slug already exists"}
		}
	}
	if _, ok := s.t.tenants[t.TenantID]; ok {
		return &domain.ErrConflict{Message: "tenant already exists"}
	}
	s.t.tenants[t.TenantID] = *t
	return nil
}

func (s *Store) GetUserByEmail(ctx context.Context, tenantID, email string) (*domain.User, error) {
	defer s.lock(ctx)()
	for _, u := range s.t.users {
		if u.TenantID == tenantID && u.Email == email {
			return &u, nil
		}
	}
	return nil, &domain.ErrNotFound{Resource: "user", ID: email}
}

func (s *Store) GetUserByID(ctx context.Context, tenantID, userID string) (*domain.User, error) {
	defer s.lock(ctx)()
	u, ok := s.t.users[userID]
	if !ok || u.TenantID != tenantID {
		return nil, &domain.ErrNotFound{Resource: "user", ID: userID}
	}
	return &u, nil
}

func (s *Store) CreateUser(ctx context.Context, u *domain.User) error {
	defer s.lock(ctx)()
	if _, ok := s.t.tenants[u.TenantID]; !ok {
		return &domain.ErrInvalidReference{Field: "tenant_id", ID: u.TenantID}
	}
	for _, existing := range s.t.users {
		if existing.TenantID == u.TenantID && existing.Email == u.Email {
			return &domain.ErrConflict{Message: "email already registered in tenant"}
		}
	}
	s.t.users[u.UserID] = *u
	return nil
}

// SetUserFlags flips is_active/is_locked. There is no HTTP surface for it;
// tests and operators use it directly.
func (s *Store) SetUserFlags(ctx context.Context, tenantID, userID string, active, locked bool) error {
	defer s.lock(ctx)()
	u, ok := s.t.users[userID]
	if !ok || u.TenantID != tenantID {
		return &domain.ErrNotFound{Resource: "user", ID: userID}
	}
	u.IsActive, u.IsLocked = active, locked
	s.t.users[userID] = u
	return nil
}

func (s *Store) CreateSession(ctx context.Context, sess *domain.Session) error {
	defer s.lock(ctx)()
	if _, ok := s.t.sessions[sess.Token]; ok {
		return &domain.ErrConflict{Message: "session token collision"}
	}
	if u, ok := s.t.users[sess.UserID]; !ok || u.TenantID != sess.TenantID {
		return &domain.ErrInvalidReference{Field: "user_id", ID: sess.UserID}
	}
	s.t.sessions[sess.Token] = *sess
	return nil
}

func (s *Store) GetSession(ctx context.Context, token string) (*domain.Session, error) {
	defer s.lock(ctx)()
	sess, ok := s.t.sessions[token]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "session", ID: "<redacted>"}
	}
	return &sess, nil
}

func (s *Store) RevokeSession(ctx context.Context, token string, at time.Time) (bool, error) {
	defer s.lock(ctx)()
	sess, ok := s.t.sessions[token]
	if !ok || sess.RevokedAt != nil {
		return false, nil
	}
	sess.RevokedAt = &at
	s.t.sessions[token] = sess
	return true, nil
}

// ExpireSession moves expires_at into the past. Test helper.
func (s *Store) ExpireSession(ctx context.Context, token string, at time.Time) error {
	defer s.lock(ctx)()
	sess, ok := s.t.sessions[token]
	if !ok {
		return &domain.ErrNotFound{Resource: "session", ID: "<redacted>"}
	}
	sess.ExpiresAt = at
	s.t.sessions[token] = sess
	return nil
}

// ============================================================
// Ordering helpers
// ============================================================

// newestFirst orders rows by created_at DESC; insertion order breaks ties.
func newestFirst[T any](rows []row[T], createdAt func(T) time.Time) {
	sort.SliceStable(rows, func(i, j int) bool {
		ci, cj := createdAt(rows[i].v), createdAt(rows[j].v)
		if !ci.Equal(cj) {
			return ci.After(cj)
		}
		return rows[i].seq > rows[j].seq
	})
}

func paginate[T any](rows []row[T], page domain.Page) []T {
	start := page.Offset
	if start > len(rows) {
		start = len(rows)
	}
	end := len(rows)
	if page.Limit > 0 && start+page.Limit < end {
		end = start + page.Limit
	}
	out := make([]T, 0, end-start)
	for _, r := range rows[start:end] {
		out = append(out, r.v)
	}
	return out
}

func eqRef(ref *string, id string) bool {
	return ref != nil && *ref == id
}

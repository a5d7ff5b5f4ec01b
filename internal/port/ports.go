// Package port defines the interfaces (ports) for external dependencies.
// Following hexagonal architecture, these ports decouple the domain/service
// layer from concrete implementations.
package port

import (
	"context"
	"time"

	"github.com/boddenberg/nextcrm-core/internal/domain"
)

// Transactor runs fn inside one store transaction. Store calls made with the
// ctx passed to fn join that transaction; an error from fn rolls it back.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Pinger reports whether a backing service is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Cache provides generic caching with TTL.
type Cache[T any] interface {
	Get(ctx context.Context, key string) (T, bool)
	Set(ctx context.Context, key string, value T)
	Delete(ctx context.Context, key string)
}

// ============================================================
// Identity
// ============================================================

// TenantStore persists tenants. Lookups return *domain.ErrNotFound when absent.
type TenantStore interface {
	GetTenantBySlug(ctx context.Context, slug string) (*domain.Tenant, error)
	CreateTenant(ctx context.Context, t *domain.Tenant) error
}

// UserStore persists users, always scoped by tenant.
type UserStore interface {
	GetUserByEmail(ctx context.Context, tenantID, email string) (*domain.User, error)
	GetUserByID(ctx context.Context, tenantID, userID string) (*domain.User, error)
	CreateUser(ctx context.Context, u *domain.User) error
}

// SessionStore persists sessions keyed by token.
type SessionStore interface {
	CreateSession(ctx context.Context, s *domain.Session) error
	GetSession(ctx context.Context, token string) (*domain.Session, error)
	// RevokeSession sets revoked_at if unset and reports whether it did.
	RevokeSession(ctx context.Context, token string, at time.Time) (bool, error)
}

// IdentityStore is everything the auth flows need.
type IdentityStore interface {
	Transactor
	TenantStore
	UserStore
	SessionStore
}

// ============================================================
// CRM
// ============================================================

// CompanyStore persists companies. Deleting a company clears the references
// held by contacts and deals.
type CompanyStore interface {
	CreateCompany(ctx context.Context, c *domain.Company) error
	GetCompany(ctx context.Context, tenantID, companyID string) (*domain.Company, error)
	ListCompanies(ctx context.Context, tenantID string, page domain.Page) ([]domain.Company, error)
	UpdateCompany(ctx context.Context, c *domain.Company) error
	DeleteCompany(ctx context.Context, tenantID, companyID string) error
}

// ContactStore persists contacts. Deleting a contact clears deal references.
type ContactStore interface {
	CreateContact(ctx context.Context, c *domain.Contact) error
	GetContact(ctx context.Context, tenantID, contactID string) (*domain.Contact, error)
	ListContacts(ctx context.Context, tenantID string, filter domain.ContactFilter) ([]domain.Contact, error)
	UpdateContact(ctx context.Context, c *domain.Contact) error
	DeleteContact(ctx context.Context, tenantID, contactID string) error
}

// PipelineStore persists pipelines. Deleting a pipeline removes its stages and
// fails with *domain.ErrConflict while deals still reference it.
type PipelineStore interface {
	CreatePipeline(ctx context.Context, p *domain.Pipeline) error
	GetPipeline(ctx context.Context, tenantID, pipelineID string) (*domain.Pipeline, error)
	ListPipelines(ctx context.Context, tenantID string, page domain.Page) ([]domain.Pipeline, error)
	UpdatePipeline(ctx context.Context, p *domain.Pipeline) error
	DeletePipeline(ctx context.Context, tenantID, pipelineID string) error
}

// StageStore persists stages. Lists are ordered by pipeline, sort_order, created_at.
type StageStore interface {
	CreateStage(ctx context.Context, s *domain.Stage) error
	GetStage(ctx context.Context, tenantID, stageID string) (*domain.Stage, error)
	ListStages(ctx context.Context, tenantID string, filter domain.StageFilter) ([]domain.Stage, error)
	UpdateStage(ctx context.Context, s *domain.Stage) error
	DeleteStage(ctx context.Context, tenantID, stageID string) error
}

// DealStore persists deals.
type DealStore interface {
	CreateDeal(ctx context.Context, d *domain.Deal) error
	GetDeal(ctx context.Context, tenantID, dealID string) (*domain.Deal, error)
	ListDeals(ctx context.Context, tenantID string, filter domain.DealFilter) ([]domain.Deal, error)
	// ListPipelineDeals returns every deal of a pipeline ordered by
	// updated_at DESC, created_at DESC.
	ListPipelineDeals(ctx context.Context, tenantID, pipelineID string) ([]domain.Deal, error)
	UpdateDeal(ctx context.Context, d *domain.Deal) error
	DeleteDeal(ctx context.Context, tenantID, dealID string) error
}

// CRMStore is everything the CRM service needs.
type CRMStore interface {
	Transactor
	CompanyStore
	ContactStore
	PipelineStore
	StageStore
	DealStore
}

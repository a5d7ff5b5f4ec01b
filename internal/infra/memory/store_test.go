package memory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/boddenberg/nextcrm-core/internal/domain"
	"github.com/boddenberg/nextcrm-core/internal/infra/memory"
	"github.com/boddenberg/nextcrm-core/internal/port"
)

var (
	_ port.IdentityStore = (*memory.Store)(nil)
	_ port.CRMStore      = (*memory.Store)(nil)
	_ port.Pinger        = (*memory.Store)(nil)
)

func strPtr(s string) *string { return &s }

func seedPipeline(t *testing.T, s *memory.Store, tenantID, pipelineID, stageID string) {
	t.Helper()
	ctx := context.Background()
	now := time.Now().UTC()
	if err := s.CreatePipeline(ctx, &domain.Pipeline{PipelineID: pipelineID, TenantID: tenantID, Name: "Sales", CreatedAt: now, UpdatedAt: now}); err != nil {
		t.Fatalf("create pipeline: %v", err)
	}
	if err := s.CreateStage(ctx, &domain.Stage{StageID: stageID, TenantID: tenantID, PipelineID: pipelineID, Name: "Lead", CreatedAt: now, UpdatedAt: now}); err != nil {
		t.Fatalf("create stage: %v", err)
	}
}

func TestCompany_TenantIsolation(t *testing.T) {
	s := memory.NewStore()
	ctx := context.Background()
	now := time.Now().UTC()

	if err := s.CreateCompany(ctx, &domain.Company{CompanyID: "co_1", TenantID: "tnt_a", Name: "Acme", CreatedAt: now, UpdatedAt: now}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := s.GetCompany(ctx, "tnt_b", "co_1"); err == nil {
		t.Fatal("expected not found from another tenant")
	}
	var nf *domain.ErrNotFound
	if err := s.DeleteCompany(ctx, "tnt_b", "co_1"); !errors.As(err, &nf) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	list, _ := s.ListCompanies(ctx, "tnt_b", domain.Page{})
	if len(list) != 0 {
		t.Errorf("expected empty list for other tenant, got %d", len(list))
	}
}

func TestList_NewestFirstWithOffset(t *testing.T) {
	s := memory.NewStore()
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	for i, id := range []string{"co_1", "co_2", "co_3"} {
		at := base.Add(time.Duration(i) * time.Minute)
		_ = s.CreateCompany(ctx, &domain.Company{CompanyID: id, TenantID: "tnt_a", Name: id, CreatedAt: at, UpdatedAt: at})
	}

	list, err := s.ListCompanies(ctx, "tnt_a", domain.Page{Limit: 2, Offset: 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(list) != 2 || list[0].CompanyID != "co_2" || list[1].CompanyID != "co_1" {
		t.Errorf("unexpected page: %+v", list)
	}

	beyond, _ := s.ListCompanies(ctx, "tnt_a", domain.Page{Limit: 10, Offset: 10})
	if len(beyond) != 0 {
		t.Errorf("expected empty page past the end, got %d", len(beyond))
	}
}

func TestDeleteCompany_ClearsReferences(t *testing.T) {
	s := memory.NewStore()
	ctx := context.Background()
	now := time.Now().UTC()
	seedPipeline(t, s, "tnt_a", "pl_1", "st_1")

	_ = s.CreateCompany(ctx, &domain.Company{CompanyID: "co_1", TenantID: "tnt_a", Name: "Acme", CreatedAt: now})
	if err := s.CreateContact(ctx, &domain.Contact{ContactID: "c_1", TenantID: "tnt_a", Name: "Ann", CompanyID: strPtr("co_1"), CreatedAt: now}); err != nil {
		t.Fatalf("create contact: %v", err)
	}
	if err := s.CreateDeal(ctx, &domain.Deal{DealID: "d_1", TenantID: "tnt_a", Title: "Big", CompanyID: strPtr("co_1"), ContactID: strPtr("c_1"), PipelineID: "pl_1", StageID: "st_1", CreatedAt: now}); err != nil {
		t.Fatalf("create deal: %v", err)
	}

	if err := s.DeleteCompany(ctx, "tnt_a", "co_1"); err != nil {
		t.Fatalf("delete company: %v", err)
	}
	c, _ := s.GetContact(ctx, "tnt_a", "c_1")
	if c.CompanyID != nil {
		t.Error("expected contact company_id cleared")
	}
	d, _ := s.GetDeal(ctx, "tnt_a", "d_1")
	if d.CompanyID != nil {
		t.Error("expected deal company_id cleared")
	}

	if err := s.DeleteContact(ctx, "tnt_a", "c_1"); err != nil {
		t.Fatalf("delete contact: %v", err)
	}
	d, _ = s.GetDeal(ctx, "tnt_a", "d_1")
	if d.ContactID != nil {
		t.Error("expected deal contact_id cleared")
	}
}

func TestDeletePipeline_RestrictedByDeals(t *testing.T) {
	s := memory.NewStore()
	ctx := context.Background()
	seedPipeline(t, s, "tnt_a", "pl_1", "st_1")
	_ = s.CreateDeal(ctx, &domain.Deal{DealID: "d_1", TenantID: "tnt_a", Title: "x", PipelineID: "pl_1", StageID: "st_1"})

	var conflict *domain.ErrConflict
	if err := s.DeletePipeline(ctx, "tnt_a", "pl_1"); !errors.As(err, &conflict) {
		t.Fatalf("expected conflict deleting pipeline, got %v", err)
	}
	if err := s.DeleteStage(ctx, "tnt_a", "st_1"); !errors.As(err, &conflict) {
		t.Fatalf("expected conflict deleting stage, got %v", err)
	}

	_ = s.DeleteDeal(ctx, "tnt_a", "d_1")
	if err := s.DeletePipeline(ctx, "tnt_a", "pl_1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := s.GetStage(ctx, "tnt_a", "st_1"); err == nil {
		t.Error("expected stage removed with its pipeline")
	}
}

func TestCreateDeal_CrossTenantReference(t *testing.T) {
	s := memory.NewStore()
	ctx := context.Background()
	seedPipeline(t, s, "tnt_a", "pl_1", "st_1")

	var ref *domain.ErrInvalidReference
	err := s.CreateDeal(ctx, &domain.Deal{DealID: "d_1", TenantID: "tnt_b", Title: "x", PipelineID: "pl_1", StageID: "st_1"})
	if !errors.As(err, &ref) || ref.Field != "pipeline_id" {
		t.Fatalf("expected invalid pipeline reference, got %v", err)
	}
}

func TestListStages_SortOrder(t *testing.T) {
	s := memory.NewStore()
	ctx := context.Background()
	now := time.Now().UTC()
	_ = s.CreatePipeline(ctx, &domain.Pipeline{PipelineID: "pl_1", TenantID: "tnt_a", Name: "Sales"})
	_ = s.CreateStage(ctx, &domain.Stage{StageID: "st_b", TenantID: "tnt_a", PipelineID: "pl_1", Name: "Won", SortOrder: 2, CreatedAt: now})
	_ = s.CreateStage(ctx, &domain.Stage{StageID: "st_a", TenantID: "tnt_a", PipelineID: "pl_1", Name: "Lead", SortOrder: 1, CreatedAt: now})

	list, _ := s.ListStages(ctx, "tnt_a", domain.StageFilter{PipelineID: "pl_1"})
	if len(list) != 2 || list[0].StageID != "st_a" {
		t.Errorf("expected sort_order ascending, got %+v", list)
	}
}

func TestWithinTx_RollsBack(t *testing.T) {
	s := memory.NewStore()
	ctx := context.Background()
	boom := errors.New("boom")

	err := s.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.CreateCompany(ctx, &domain.Company{CompanyID: "co_1", TenantID: "tnt_a", Name: "Acme"}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if _, err := s.GetCompany(ctx, "tnt_a", "co_1"); err == nil {
		t.Error("expected company rolled back")
	}
}

func TestSessions_RevokeIdempotent(t *testing.T) {
	s := memory.NewStore()
	ctx := context.Background()
	now := time.Now().UTC()

	_ = s.CreateTenant(ctx, &domain.Tenant{TenantID: "tnt_a", Slug: "a", Name: "A"})
	_ = s.CreateUser(ctx, &domain.User{UserID: "u_1", TenantID: "tnt_a", Email: "a@x.io", IsActive: true})
	if err := s.CreateSession(ctx, &domain.Session{Token: "tok", TenantID: "tnt_a", UserID: "u_1", CreatedAt: now, ExpiresAt: now.Add(time.Hour)}); err != nil {
		t.Fatalf("create session: %v", err)
	}

	first, _ := s.RevokeSession(ctx, "tok", now)
	second, _ := s.RevokeSession(ctx, "tok", now)
	missing, _ := s.RevokeSession(ctx, "nope", now)
	if !first || second || missing {
		t.Errorf("expected true,false,false got %v,%v,%v", first, second, missing)
	}
}

func TestIdentity_Uniqueness(t *testing.T) {
	s := memory.NewStore()
	ctx := context.Background()
	var conflict *domain.ErrConflict

	_ = s.CreateTenant(ctx, &domain.Tenant{TenantID: "tnt_a", Slug: "a"})
	if err := s.CreateTenant(ctx, &domain.Tenant{TenantID: "tnt_b", Slug: "a"}); !errors.As(err, &conflict) {
		t.Errorf("expected slug conflict, got %v", err)
	}

	_ = s.CreateUser(ctx, &domain.User{UserID: "u_1", TenantID: "tnt_a", Email: "a@x.io"})
	if err := s.CreateUser(ctx, &domain.User{UserID: "u_2", TenantID: "tnt_a", Email: "a@x.io"}); !errors.As(err, &conflict) {
		t.Errorf("expected email conflict, got %v", err)
	}
}

package service

import (
	"context"

	"go.opentelemetry.io/otel/attribute"

	"github.com/boddenberg/nextcrm-core/internal/domain"
)

// ============================================================
// Companies
// ============================================================

func (s *CRMService) CreateCompany(ctx context.Context, tenantID string, in *domain.CompanyCreate) (*domain.Company, error) {
	ctx, span := crmTracer.Start(ctx, "CRMService.CreateCompany")
	defer span.End()
	span.SetAttributes(attribute.String("tenant.id", tenantID))

	name, err := requireText("name", in.Name)
	if err != nil {
		return nil, err
	}
	if err := validatePayload(in); err != nil {
		return nil, err
	}

	now := s.now()
	c := &domain.Company{
		CompanyID: newID(prefixCompany),
		TenantID:  tenantID,
		Name:      name,
		Domain:    optionalText(in.Domain),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.CreateCompany(ctx, c); err != nil {
		return nil, err
	}
	s.logWrite(ctx, "company_created", tenantID, c.CompanyID)
	return c, nil
}

func (s *CRMService) GetCompany(ctx context.Context, tenantID, companyID string) (*domain.Company, error) {
	ctx, span := crmTracer.Start(ctx, "CRMService.GetCompany")
	defer span.End()

	return s.store.GetCompany(ctx, tenantID, companyID)
}

func (s *CRMService) ListCompanies(ctx context.Context, tenantID string, page domain.Page) ([]domain.Company, error) {
	ctx, span := crmTracer.Start(ctx, "CRMService.ListCompanies")
	defer span.End()

	return s.store.ListCompanies(ctx, tenantID, clampPage(page, companyLimitDefault, companyLimitMax))
}

func (s *CRMService) UpdateCompany(ctx context.Context, tenantID, companyID string, patch *domain.CompanyPatch) (*domain.Company, error) {
	ctx, span := crmTracer.Start(ctx, "CRMService.UpdateCompany")
	defer span.End()

	if err := validatePayload(patch); err != nil {
		return nil, err
	}

	var out *domain.Company
	err := s.store.WithinTx(ctx, func(ctx context.Context) error {
		c, err := s.store.GetCompany(ctx, tenantID, companyID)
		if err != nil {
			return err
		}
		if c.Name, err = patchRequired("name", patch.Name, c.Name); err != nil {
			return err
		}
		c.Domain = patchOptional(patch.Domain, c.Domain)
		c.UpdatedAt = s.now()

		if err := s.store.UpdateCompany(ctx, c); err != nil {
			return err
		}
		out = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *CRMService) DeleteCompany(ctx context.Context, tenantID, companyID string) error {
	ctx, span := crmTracer.Start(ctx, "CRMService.DeleteCompany")
	defer span.End()

	if err := s.store.DeleteCompany(ctx, tenantID, companyID); err != nil {
		return err
	}
	s.logWrite(ctx, "company_deleted", tenantID, companyID)
	return nil
}

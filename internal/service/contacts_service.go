package service

import (
	"context"

	"go.opentelemetry.io/otel/attribute"

	"github.com/boddenberg/nextcrm-core/internal/domain"
)

// ============================================================
// Contacts
// ============================================================

func (s *CRMService) CreateContact(ctx context.Context, tenantID string, in *domain.ContactCreate) (*domain.Contact, error) {
	ctx, span := crmTracer.Start(ctx, "CRMService.CreateContact")
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
	c := &domain.Contact{
		ContactID: newID(prefixContact),
		TenantID:  tenantID,
		Name:      name,
		Email:     optionalText(in.Email),
		Phone:     optionalText(in.Phone),
		CompanyID: optionalText(in.CompanyID),
		CreatedAt: now,
		UpdatedAt: now,
	}

	err = s.store.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.checkCompany(ctx, tenantID, c.CompanyID); err != nil {
			return err
		}
		return s.store.CreateContact(ctx, c)
	})
	if err != nil {
		return nil, err
	}
	s.logWrite(ctx, "contact_created", tenantID, c.ContactID)
	return c, nil
}

func (s *CRMService) GetContact(ctx context.Context, tenantID, contactID string) (*domain.Contact, error) {
	ctx, span := crmTracer.Start(ctx, "CRMService.GetContact")
	defer span.End()

	return s.store.GetContact(ctx, tenantID, contactID)
}

func (s *CRMService) ListContacts(ctx context.Context, tenantID string, filter domain.ContactFilter) ([]domain.Contact, error) {
	ctx, span := crmTracer.Start(ctx, "CRMService.ListContacts")
	defer span.End()

	filter.Page = clampPage(filter.Page, contactLimitDefault, contactLimitMax)
	return s.store.ListContacts(ctx, tenantID, filter)
}

func (s *CRMService) UpdateContact(ctx context.Context, tenantID, contactID string, patch *domain.ContactPatch) (*domain.Contact, error) {
	ctx, span := crmTracer.Start(ctx, "CRMService.UpdateContact")
	defer span.End()

	if err := validatePayload(patch); err != nil {
		return nil, err
	}

	var out *domain.Contact
	err := s.store.WithinTx(ctx, func(ctx context.Context) error {
		c, err := s.store.GetContact(ctx, tenantID, contactID)
		if err != nil {
			return err
		}
		if c.Name, err = patchRequired("name", patch.Name, c.Name); err != nil {
			return err
		}
		c.Email = patchOptional(patch.Email, c.Email)
		c.Phone = patchOptional(patch.Phone, c.Phone)
		if patch.CompanyID.Set {
			c.CompanyID = optionalText(patch.CompanyID.Ptr())
			if err := s.checkCompany(ctx, tenantID, c.CompanyID); err != nil {
				return err
			}
		}
		c.UpdatedAt = s.now()

		if err := s.store.UpdateContact(ctx, c); err != nil {
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

func (s *CRMService) DeleteContact(ctx context.Context, tenantID, contactID string) error {
	ctx, span := crmTracer.Start(ctx, "CRMService.DeleteContact")
	defer span.End()

	if err := s.store.DeleteContact(ctx, tenantID, contactID); err != nil {
		return err
	}
	s.logWrite(ctx, "contact_deleted", tenantID, contactID)
	return nil
}

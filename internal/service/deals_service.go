package service

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"github.com/boddenberg/nextcrm-core/internal/domain"
)

// ============================================================
// Deals
// ============================================================

func normalizeAmount(a *domain.Amount) (*domain.Amount, error) {
	if a == nil {
		return nil, nil
	}
	n, err := a.Normalize()
	if err != nil {
		return nil, domain.InvalidField("amount", "amount must be below 10^10 in absolute value")
	}
	return &n, nil
}

// stageInPipeline loads stageID as a payload reference and checks it belongs
// to pipelineID.
func (s *CRMService) stageInPipeline(ctx context.Context, tenantID, stageID, pipelineID string) error {
	st, err := s.store.GetStage(ctx, tenantID, stageID)
	if err != nil {
		return asReference("stage_id", stageID, err)
	}
	if st.PipelineID != pipelineID {
		return &domain.ErrStagePipelineMismatch{StageID: stageID, PipelineID: pipelineID}
	}
	return nil
}

func (s *CRMService) CreateDeal(ctx context.Context, tenantID string, in *domain.DealCreate) (*domain.Deal, error) {
	ctx, span := crmTracer.Start(ctx, "CRMService.CreateDeal")
	defer span.End()
	span.SetAttributes(attribute.String("tenant.id", tenantID))

	title, err := requireText("title", in.Title)
	if err != nil {
		return nil, err
	}
	pipelineID, err := requireText("pipeline_id", in.PipelineID)
	if err != nil {
		return nil, err
	}
	stageID, err := requireText("stage_id", in.StageID)
	if err != nil {
		return nil, err
	}
	if err := validatePayload(in); err != nil {
		return nil, err
	}
	amount, err := normalizeAmount(in.Amount)
	if err != nil {
		return nil, err
	}

	now := s.now()
	d := &domain.Deal{
		DealID:     newID(prefixDeal),
		TenantID:   tenantID,
		Title:      title,
		Amount:     amount,
		Currency:   normalizeCurrency(in.Currency),
		CompanyID:  optionalText(in.CompanyID),
		ContactID:  optionalText(in.ContactID),
		PipelineID: pipelineID,
		StageID:    stageID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	err = s.store.WithinTx(ctx, func(ctx context.Context) error {
		if _, err := s.store.GetPipeline(ctx, tenantID, pipelineID); err != nil {
			return asReference("pipeline_id", pipelineID, err)
		}
		if err := s.stageInPipeline(ctx, tenantID, stageID, pipelineID); err != nil {
			return err
		}
		if err := s.checkCompany(ctx, tenantID, d.CompanyID); err != nil {
			return err
		}
		if err := s.checkContact(ctx, tenantID, d.ContactID); err != nil {
			return err
		}
		return s.store.CreateDeal(ctx, d)
	})
	if err != nil {
		return nil, err
	}
	s.logWrite(ctx, "deal_created", tenantID, d.DealID)
	return d, nil
}

func (s *CRMService) GetDeal(ctx context.Context, tenantID, dealID string) (*domain.Deal, error) {
	ctx, span := crmTracer.Start(ctx, "CRMService.GetDeal")
	defer span.End()

	return s.store.GetDeal(ctx, tenantID, dealID)
}

func (s *CRMService) ListDeals(ctx context.Context, tenantID string, filter domain.DealFilter) ([]domain.Deal, error) {
	ctx, span := crmTracer.Start(ctx, "CRMService.ListDeals")
	defer span.End()

	filter.Page = clampPage(filter.Page, dealLimitDefault, dealLimitMax)
	return s.store.ListDeals(ctx, tenantID, filter)
}

func (s *CRMService) UpdateDeal(ctx context.Context, tenantID, dealID string, patch *domain.DealPatch) (*domain.Deal, error) {
	ctx, span := crmTracer.Start(ctx, "CRMService.UpdateDeal")
	defer span.End()

	if err := validatePayload(patch); err != nil {
		return nil, err
	}

	var out *domain.Deal
	err := s.store.WithinTx(ctx, func(ctx context.Context) error {
		d, err := s.store.GetDeal(ctx, tenantID, dealID)
		if err != nil {
			return err
		}
		if patch.PipelineID.Set && (patch.PipelineID.Null || strings.TrimSpace(patch.PipelineID.Value) != d.PipelineID) {
			return domain.InvalidField("pipeline_id", "pipeline_id cannot be changed")
		}
		if d.Title, err = patchRequired("title", patch.Title, d.Title); err != nil {
			return err
		}
		if patch.Amount.Set {
			if d.Amount, err = normalizeAmount(patch.Amount.Ptr()); err != nil {
				return err
			}
		}
		if patch.Currency.Set {
			if patch.Currency.Null {
				d.Currency = domain.DefaultCurrency
			} else {
				d.Currency = normalizeCurrency(patch.Currency.Value)
			}
		}
		if patch.StageID.Set {
			stageID, err := patchRequired("stage_id", patch.StageID, d.StageID)
			if err != nil {
				return err
			}
			if err := s.stageInPipeline(ctx, tenantID, stageID, d.PipelineID); err != nil {
				return err
			}
			d.StageID = stageID
		}
		if patch.CompanyID.Set {
			d.CompanyID = optionalText(patch.CompanyID.Ptr())
			if err := s.checkCompany(ctx, tenantID, d.CompanyID); err != nil {
				return err
			}
		}
		if patch.ContactID.Set {
			d.ContactID = optionalText(patch.ContactID.Ptr())
			if err := s.checkContact(ctx, tenantID, d.ContactID); err != nil {
				return err
			}
		}
		d.UpdatedAt = s.now()

		if err := s.store.UpdateDeal(ctx, d); err != nil {
			return err
		}
		out = d
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *CRMService) DeleteDeal(ctx context.Context, tenantID, dealID string) error {
	ctx, span := crmTracer.Start(ctx, "CRMService.DeleteDeal")
	defer span.End()

	if err := s.store.DeleteDeal(ctx, tenantID, dealID); err != nil {
		return err
	}
	s.logWrite(ctx, "deal_deleted", tenantID, dealID)
	return nil
}

package service

import (
	"context"

	"go.opentelemetry.io/otel/attribute"

	"github.com/boddenberg/nextcrm-core/internal/domain"
)

// ============================================================
// Pipelines
// ============================================================

func (s *CRMService) CreatePipeline(ctx context.Context, tenantID string, in *domain.PipelineCreate) (*domain.Pipeline, error) {
	ctx, span := crmTracer.Start(ctx, "CRMService.CreatePipeline")
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
	p := &domain.Pipeline{
		PipelineID: newID(prefixPipeline),
		TenantID:   tenantID,
		Name:       name,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.store.CreatePipeline(ctx, p); err != nil {
		return nil, err
	}
	s.logWrite(ctx, "pipeline_created", tenantID, p.PipelineID)
	return p, nil
}

func (s *CRMService) GetPipeline(ctx context.Context, tenantID, pipelineID string) (*domain.Pipeline, error) {
	ctx, span := crmTracer.Start(ctx, "CRMService.GetPipeline")
	defer span.End()

	return s.store.GetPipeline(ctx, tenantID, pipelineID)
}

func (s *CRMService) ListPipelines(ctx context.Context, tenantID string, page domain.Page) ([]domain.Pipeline, error) {
	ctx, span := crmTracer.Start(ctx, "CRMService.ListPipelines")
	defer span.End()

	return s.store.ListPipelines(ctx, tenantID, clampPage(page, pipelineLimitDefault, pipelineLimitMax))
}

func (s *CRMService) UpdatePipeline(ctx context.Context, tenantID, pipelineID string, patch *domain.PipelinePatch) (*domain.Pipeline, error) {
	ctx, span := crmTracer.Start(ctx, "CRMService.UpdatePipeline")
	defer span.End()

	if err := validatePayload(patch); err != nil {
		return nil, err
	}

	var out *domain.Pipeline
	err := s.store.WithinTx(ctx, func(ctx context.Context) error {
		p, err := s.store.GetPipeline(ctx, tenantID, pipelineID)
		if err != nil {
			return err
		}
		if p.Name, err = patchRequired("name", patch.Name, p.Name); err != nil {
			return err
		}
		p.UpdatedAt = s.now()

		if err := s.store.UpdatePipeline(ctx, p); err != nil {
			return err
		}
		out = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// DeletePipeline removes the pipeline and its stages. It fails with a
// conflict while deals remain.
func (s *CRMService) DeletePipeline(ctx context.Context, tenantID, pipelineID string) error {
	ctx, span := crmTracer.Start(ctx, "CRMService.DeletePipeline")
	defer span.End()

	if err := s.store.DeletePipeline(ctx, tenantID, pipelineID); err != nil {
		return err
	}
	s.logWrite(ctx, "pipeline_deleted", tenantID, pipelineID)
	return nil
}

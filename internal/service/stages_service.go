package service

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"github.com/boddenberg/nextcrm-core/internal/domain"
)

// ============================================================
// Stages
// ============================================================

func checkOutcome(won, lost bool) error {
	if won && lost {
		return domain.InvalidField("is_won", "a stage cannot be both won and lost")
	}
	return nil
}

func (s *CRMService) CreateStage(ctx context.Context, tenantID string, in *domain.StageCreate) (*domain.Stage, error) {
	ctx, span := crmTracer.Start(ctx, "CRMService.CreateStage")
	defer span.End()
	span.SetAttributes(attribute.String("tenant.id", tenantID))

	pipelineID, err := requireText("pipeline_id", in.PipelineID)
	if err != nil {
		return nil, err
	}
	name, err := requireText("name", in.Name)
	if err != nil {
		return nil, err
	}
	if err := validatePayload(in); err != nil {
		return nil, err
	}
	if err := checkOutcome(in.IsWon, in.IsLost); err != nil {
		return nil, err
	}

	now := s.now()
	st := &domain.Stage{
		StageID:    newID(prefixStage),
		TenantID:   tenantID,
		PipelineID: pipelineID,
		Name:       name,
		SortOrder:  in.SortOrder,
		IsWon:      in.IsWon,
		IsLost:     in.IsLost,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	err = s.store.WithinTx(ctx, func(ctx context.Context) error {
		if _, err := s.store.GetPipeline(ctx, tenantID, pipelineID); err != nil {
			return asReference("pipeline_id", pipelineID, err)
		}
		return s.store.CreateStage(ctx, st)
	})
	if err != nil {
		return nil, err
	}
	s.logWrite(ctx, "stage_created", tenantID, st.StageID)
	return st, nil
}

func (s *CRMService) GetStage(ctx context.Context, tenantID, stageID string) (*domain.Stage, error) {
	ctx, span := crmTracer.Start(ctx, "CRMService.GetStage")
	defer span.End()

	return s.store.GetStage(ctx, tenantID, stageID)
}

func (s *CRMService) ListStages(ctx context.Context, tenantID string, filter domain.StageFilter) ([]domain.Stage, error) {
	ctx, span := crmTracer.Start(ctx, "CRMService.ListStages")
	defer span.End()

	filter.Page = clampPage(filter.Page, stageLimitDefault, stageLimitMax)
	return s.store.ListStages(ctx, tenantID, filter)
}

func (s *CRMService) UpdateStage(ctx context.Context, tenantID, stageID string, patch *domain.StagePatch) (*domain.Stage, error) {
	ctx, span := crmTracer.Start(ctx, "CRMService.UpdateStage")
	defer span.End()

	if err := validatePayload(patch); err != nil {
		return nil, err
	}

	var out *domain.Stage
	err := s.store.WithinTx(ctx, func(ctx context.Context) error {
		st, err := s.store.GetStage(ctx, tenantID, stageID)
		if err != nil {
			return err
		}
		if patch.PipelineID.Set && (patch.PipelineID.Null || strings.TrimSpace(patch.PipelineID.Value) != st.PipelineID) {
			return domain.InvalidField("pipeline_id", "pipeline_id cannot be changed")
		}
		if st.Name, err = patchRequired("name", patch.Name, st.Name); err != nil {
			return err
		}
		if patch.SortOrder.Set {
			if patch.SortOrder.Null {
				return domain.InvalidField("sort_order", "sort_order cannot be null")
			}
			st.SortOrder = patch.SortOrder.Value
		}
		if patch.IsWon.Set {
			st.IsWon = patch.IsWon.Value
		}
		if patch.IsLost.Set {
			st.IsLost = patch.IsLost.Value
		}
		if err := checkOutcome(st.IsWon, st.IsLost); err != nil {
			return err
		}
		st.UpdatedAt = s.now()

		if err := s.store.UpdateStage(ctx, st); err != nil {
			return err
		}
		out = st
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteStage fails with a conflict while deals remain in the stage.
func (s *CRMService) DeleteStage(ctx context.Context, tenantID, stageID string) error {
	ctx, span := crmTracer.Start(ctx, "CRMService.DeleteStage")
	defer span.End()

	if err := s.store.DeleteStage(ctx, tenantID, stageID); err != nil {
		return err
	}
	s.logWrite(ctx, "stage_deleted", tenantID, stageID)
	return nil
}

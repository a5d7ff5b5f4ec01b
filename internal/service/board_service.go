package service

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/boddenberg/nextcrm-core/internal/domain"
)

// GetBoard groups the deals of a pipeline by stage. Stages come in
// sort_order, created_at order; deals in updated_at DESC, created_at DESC.
// With includeEmpty false, stages without deals are left out.
func (s *CRMService) GetBoard(ctx context.Context, tenantID, pipelineID string, includeEmpty bool) (*domain.Board, error) {
	ctx, span := crmTracer.Start(ctx, "CRMService.GetBoard")
	defer span.End()
	span.SetAttributes(
		attribute.String("tenant.id", tenantID),
		attribute.String("pipeline.id", pipelineID),
		attribute.Bool("include_empty", includeEmpty),
	)

	start := time.Now()
	defer func() { s.metrics.RecordRequestDuration("board.build", time.Since(start)) }()

	pipeline, err := s.store.GetPipeline(ctx, tenantID, pipelineID)
	if err != nil {
		return nil, err
	}

	var (
		stages []domain.Stage
		deals  []domain.Deal
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		stages, err = s.store.ListStages(gctx, tenantID, domain.StageFilter{PipelineID: pipelineID})
		return err
	})
	g.Go(func() error {
		var err error
		deals, err = s.store.ListPipelineDeals(gctx, tenantID, pipelineID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	byStage := make(map[string][]domain.Deal, len(stages))
	for _, d := range deals {
		byStage[d.StageID] = append(byStage[d.StageID], d)
	}

	columns := make([]domain.BoardColumn, 0, len(stages))
	for _, st := range stages {
		stageDeals := byStage[st.StageID]
		if len(stageDeals) == 0 && !includeEmpty {
			continue
		}
		sum := domain.ZeroAmount()
		for _, d := range stageDeals {
			if d.Amount != nil {
				sum = sum.Plus(*d.Amount)
			}
		}
		if stageDeals == nil {
			stageDeals = []domain.Deal{}
		}
		columns = append(columns, domain.BoardColumn{
			Stage:     st,
			Deals:     stageDeals,
			Count:     len(stageDeals),
			SumAmount: sum,
		})
	}

	span.SetAttributes(attribute.Int("board.columns", len(columns)), attribute.Int("board.deals", len(deals)))
	return &domain.Board{Pipeline: *pipeline, Columns: columns}, nil
}

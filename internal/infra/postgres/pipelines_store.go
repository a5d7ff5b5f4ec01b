package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/boddenberg/nextcrm-core/internal/domain"
)

const pipelineColumns = `pipeline_id, tenant_id, name, created_at, updated_at`

func scanPipeline(row pgx.Row) (domain.Pipeline, error) {
	var p domain.Pipeline
	err := row.Scan(&p.PipelineID, &p.TenantID, &p.Name, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func (s *Store) CreatePipeline(ctx context.Context, p *domain.Pipeline) error {
	return s.run(ctx, "CreatePipeline", func(ctx context.Context, q querier) error {
		_, err := q.Exec(ctx, `
			INSERT INTO pipelines (`+pipelineColumns+`)
			VALUES ($1, $2, $3, $4, $5)
		`, p.PipelineID, p.TenantID, p.Name, p.CreatedAt, p.UpdatedAt)
		return err
	})
}

func (s *Store) GetPipeline(ctx context.Context, tenantID, pipelineID string) (*domain.Pipeline, error) {
	var p domain.Pipeline
	err := s.run(ctx, "GetPipeline", func(ctx context.Context, q querier) error {
		var err error
		p, err = scanPipeline(q.QueryRow(ctx, `
			SELECT `+pipelineColumns+`
			FROM pipelines
			WHERE tenant_id = $1 AND pipeline_id = $2
		`, tenantID, pipelineID))
		return notFound("pipeline", pipelineID, err)
	})
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *Store) ListPipelines(ctx context.Context, tenantID string, page domain.Page) ([]domain.Pipeline, error) {
	var out []domain.Pipeline
	err := s.run(ctx, "ListPipelines", func(ctx context.Context, q querier) error {
		f := newFilterQuery(tenantID)
		limit := f.page(page)
		rows, err := q.Query(ctx, `
			SELECT `+pipelineColumns+`
			FROM pipelines
			WHERE `+f.clause()+`
			ORDER BY created_at DESC, pipeline_id DESC`+limit, f.args...)
		if err != nil {
			return err
		}
		out, err = collect(rows, scanPipeline)
		return err
	})
	return out, err
}

func (s *Store) UpdatePipeline(ctx context.Context, p *domain.Pipeline) error {
	return s.run(ctx, "UpdatePipeline", func(ctx context.Context, q querier) error {
		tag, err := q.Exec(ctx, `
			UPDATE pipelines SET name = $3, updated_at = $4
			WHERE tenant_id = $1 AND pipeline_id = $2
		`, p.TenantID, p.PipelineID, p.Name, p.UpdatedAt)
		return affected(tag.RowsAffected(), err, "pipeline", p.PipelineID)
	})
}

// DeletePipeline cascades to stages; deals hold a RESTRICT reference.
func (s *Store) DeletePipeline(ctx context.Context, tenantID, pipelineID string) error {
	return s.run(ctx, "DeletePipeline", func(ctx context.Context, q querier) error {
		tag, err := q.Exec(ctx, `
			DELETE FROM pipelines WHERE tenant_id = $1 AND pipeline_id = $2
		`, tenantID, pipelineID)
		return affected(tag.RowsAffected(), err, "pipeline", pipelineID)
	})
}

package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/boddenberg/nextcrm-core/internal/domain"
)

const stageColumns = `stage_id, tenant_id, pipeline_id, name, sort_order, is_won, is_lost, created_at, updated_at`

func scanStage(row pgx.Row) (domain.Stage, error) {
	var st domain.Stage
	err := row.Scan(&st.StageID, &st.TenantID, &st.PipelineID, &st.Name, &st.SortOrder, &st.IsWon, &st.IsLost, &st.CreatedAt, &st.UpdatedAt)
	return st, err
}

func (s *Store) CreateStage(ctx context.Context, st *domain.Stage) error {
	return s.run(ctx, "CreateStage", func(ctx context.Context, q querier) error {
		_, err := q.Exec(ctx, `
			INSERT INTO stages (`+stageColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`, st.StageID, st.TenantID, st.PipelineID, st.Name, st.SortOrder, st.IsWon, st.IsLost, st.CreatedAt, st.UpdatedAt)
		return err
	})
}

func (s *Store) GetStage(ctx context.Context, tenantID, stageID string) (*domain.Stage, error) {
	var st domain.Stage
	err := s.run(ctx, "GetStage", func(ctx context.Context, q querier) error {
		var err error
		st, err = scanStage(q.QueryRow(ctx, `
			SELECT `+stageColumns+`
			FROM stages
			WHERE tenant_id = $1 AND stage_id = $2
		`, tenantID, stageID))
		return notFound("stage", stageID, err)
	})
	if err != nil {
		return nil, err
	}
	return &st, nil
}

func (s *Store) ListStages(ctx context.Context, tenantID string, filter domain.StageFilter) ([]domain.Stage, error) {
	var out []domain.Stage
	err := s.run(ctx, "ListStages", func(ctx context.Context, q querier) error {
		f := newFilterQuery(tenantID)
		f.eq("pipeline_id", filter.PipelineID)
		limit := f.page(filter.Page)
		rows, err := q.Query(ctx, `
			SELECT `+stageColumns+`
			FROM stages
			WHERE `+f.clause()+`
			ORDER BY pipeline_id, sort_order, created_at, stage_id`+limit, f.args...)
		if err != nil {
			return err
		}
		out, err = collect(rows, scanStage)
		return err
	})
	return out, err
}

func (s *Store) UpdateStage(ctx context.Context, st *domain.Stage) error {
	return s.run(ctx, "UpdateStage", func(ctx context.Context, q querier) error {
		tag, err := q.Exec(ctx, `
			UPDATE stages
			SET name = $3, sort_order = $4, is_won = $5, is_lost = $6, updated_at = $7
			WHERE tenant_id = $1 AND stage_id = $2
		`, st.TenantID, st.StageID, st.Name, st.SortOrder, st.IsWon, st.IsLost, st.UpdatedAt)
		return affected(tag.RowsAffected(), err, "stage", st.StageID)
	})
}

func (s *Store) DeleteStage(ctx context.Context, tenantID, stageID string) error {
	return s.run(ctx, "DeleteStage", func(ctx context.Context, q querier) error {
		tag, err := q.Exec(ctx, `
			DELETE FROM stages WHERE tenant_id = $1 AND stage_id = $2
		`, tenantID, stageID)
		return affected(tag.RowsAffected(), err, "stage", stageID)
	})
}

package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/boddenberg/nextcrm-core/internal/domain"
)

// amount travels as text both ways so no precision is lost to float64.
const dealSelect = `deal_id, tenant_id, title, amount::text, currency, company_id, contact_id, pipeline_id, stage_id, created_at, updated_at`

func scanDeal(row pgx.Row) (domain.Deal, error) {
	var (
		d      domain.Deal
		amount *string
	)
	err := row.Scan(&d.DealID, &d.TenantID, &d.Title, &amount, &d.Currency, &d.CompanyID, &d.ContactID, &d.PipelineID, &d.StageID, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return d, err
	}
	d.Amount, err = parseAmount(amount)
	return d, err
}

func (s *Store) CreateDeal(ctx context.Context, d *domain.Deal) error {
	return s.run(ctx, "CreateDeal", func(ctx context.Context, q querier) error {
		_, err := q.Exec(ctx, `
			INSERT INTO deals (deal_id, tenant_id, title, amount, currency, company_id, contact_id, pipeline_id, stage_id, created_at, updated_at)
			VALUES ($1, $2, $3, $4::numeric, $5, $6, $7, $8, $9, $10, $11)
		`, d.DealID, d.TenantID, d.Title, amountArg(d.Amount), d.Currency, d.CompanyID, d.ContactID, d.PipelineID, d.StageID, d.CreatedAt, d.UpdatedAt)
		return err
	})
}

func (s *Store) GetDeal(ctx context.Context, tenantID, dealID string) (*domain.Deal, error) {
	var d domain.Deal
	err := s.run(ctx, "GetDeal", func(ctx context.Context, q querier) error {
		var err error
		d, err = scanDeal(q.QueryRow(ctx, `
			SELECT `+dealSelect+`
			FROM deals
			WHERE tenant_id = $1 AND deal_id = $2
		`, tenantID, dealID))
		return notFound("deal", dealID, err)
	})
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (s *Store) ListDeals(ctx context.Context, tenantID string, filter domain.DealFilter) ([]domain.Deal, error) {
	var out []domain.Deal
	err := s.run(ctx, "ListDeals", func(ctx context.Context, q querier) error {
		f := newFilterQuery(tenantID)
		f.eq("pipeline_id", filter.PipelineID)
		f.eq("stage_id", filter.StageID)
		limit := f.page(filter.Page)
		rows, err := q.Query(ctx, `
			SELECT `+dealSelect+`
			FROM deals
			WHERE `+f.clause()+`
			ORDER BY created_at DESC, deal_id DESC`+limit, f.args...)
		if err != nil {
			return err
		}
		out, err = collect(rows, scanDeal)
		return err
	})
	return out, err
}

func (s *Store) ListPipelineDeals(ctx context.Context, tenantID, pipelineID string) ([]domain.Deal, error) {
	var out []domain.Deal
	err := s.run(ctx, "ListPipelineDeals", func(ctx context.Context, q querier) error {
		rows, err := q.Query(ctx, `
			SELECT `+dealSelect+`
			FROM deals
			WHERE tenant_id = $1 AND pipeline_id = $2
			ORDER BY updated_at DESC, created_at DESC, deal_id DESC
		`, tenantID, pipelineID)
		if err != nil {
			return err
		}
		out, err = collect(rows, scanDeal)
		return err
	})
	return out, err
}

func (s *Store) UpdateDeal(ctx context.Context, d *domain.Deal) error {
	return s.run(ctx, "UpdateDeal", func(ctx context.Context, q querier) error {
		tag, err := q.Exec(ctx, `
			UPDATE deals
			SET title = $3, amount = $4::numeric, currency = $5, company_id = $6,
			    contact_id = $7, stage_id = $8, updated_at = $9
			WHERE tenant_id = $1 AND deal_id = $2
		`, d.TenantID, d.DealID, d.Title, amountArg(d.Amount), d.Currency, d.CompanyID, d.ContactID, d.StageID, d.UpdatedAt)
		return affected(tag.RowsAffected(), err, "deal", d.DealID)
	})
}

func (s *Store) DeleteDeal(ctx context.Context, tenantID, dealID string) error {
	return s.run(ctx, "DeleteDeal", func(ctx context.Context, q querier) error {
		tag, err := q.Exec(ctx, `
			DELETE FROM deals WHERE tenant_id = $1 AND deal_id = $2
		`, tenantID, dealID)
		return affected(tag.RowsAffected(), err, "deal", dealID)
	})
}

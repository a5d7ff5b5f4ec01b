package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/boddenberg/nextcrm-core/internal/domain"
)

const companyColumns = `company_id, tenant_id, name, domain, created_at, updated_at`

func scanCompany(row pgx.Row) (domain.Company, error) {
	var c domain.Company
	err := row.Scan(&c.CompanyID, &c.TenantID, &c.Name, &c.Domain, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

func (s *Store) CreateCompany(ctx context.Context, c *domain.Company) error {
	return s.run(ctx, "CreateCompany", func(ctx context.Context, q querier) error {
		_, err := q.Exec(ctx, `
			INSERT INTO companies (`+companyColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, c.CompanyID, c.TenantID, c.Name, c.Domain, c.CreatedAt, c.UpdatedAt)
		return err
	})
}

func (s *Store) GetCompany(ctx context.Context, tenantID, companyID string) (*domain.Company, error) {
	var c domain.Company
	err := s.run(ctx, "GetCompany", func(ctx context.Context, q querier) error {
		var err error
		c, err = scanCompany(q.QueryRow(ctx, `
			SELECT `+companyColumns+`
			FROM companies
			WHERE tenant_id = $1 AND company_id = $2
		`, tenantID, companyID))
		return notFound("company", companyID, err)
	})
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *Store) ListCompanies(ctx context.Context, tenantID string, page domain.Page) ([]domain.Company, error) {
	var out []domain.Company
	err := s.run(ctx, "ListCompanies", func(ctx context.Context, q querier) error {
		f := newFilterQuery(tenantID)
		limit := f.page(page)
		rows, err := q.Query(ctx, `
			SELECT `+companyColumns+`
			FROM companies
			WHERE `+f.clause()+`
			ORDER BY created_at DESC, company_id DESC`+limit, f.args...)
		if err != nil {
			return err
		}
		out, err = collect(rows, scanCompany)
		return err
	})
	return out, err
}

func (s *Store) UpdateCompany(ctx context.Context, c *domain.Company) error {
	return s.run(ctx, "UpdateCompany", func(ctx context.Context, q querier) error {
		tag, err := q.Exec(ctx, `
			UPDATE companies SET name = $3, domain = $4, updated_at = $5
			WHERE tenant_id = $1 AND company_id = $2
		`, c.TenantID, c.CompanyID, c.Name, c.Domain, c.UpdatedAt)
		return affected(tag.RowsAffected(), err, "company", c.CompanyID)
	})
}

func (s *Store) DeleteCompany(ctx context.Context, tenantID, companyID string) error {
	return s.run(ctx, "DeleteCompany", func(ctx context.Context, q querier) error {
		tag, err := q.Exec(ctx, `
			DELETE FROM companies WHERE tenant_id = $1 AND company_id = $2
		`, tenantID, companyID)
		return affected(tag.RowsAffected(), err, "company", companyID)
	})
}

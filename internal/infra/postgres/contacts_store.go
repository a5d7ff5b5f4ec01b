package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/boddenberg/nextcrm-core/internal/domain"
)

const contactColumns = `contact_id, tenant_id, name, email, phone, company_id, created_at, updated_at`

func scanContact(row pgx.Row) (domain.Contact, error) {
	var c domain.Contact
	err := row.Scan(&c.ContactID, &c.TenantID, &c.Name, &c.Email, &c.Phone, &c.CompanyID, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

func (s *Store) CreateContact(ctx context.Context, c *domain.Contact) error {
	return s.run(ctx, "CreateContact", func(ctx context.Context, q querier) error {
		_, err := q.Exec(ctx, `
			INSERT INTO contacts (`+contactColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`, c.ContactID, c.TenantID, c.Name, c.Email, c.Phone, c.CompanyID, c.CreatedAt, c.UpdatedAt)
		return err
	})
}

func (s *Store) GetContact(ctx context.Context, tenantID, contactID string) (*domain.Contact, error) {
	var c domain.Contact
	err := s.run(ctx, "GetContact", func(ctx context.Context, q querier) error {
		var err error
		c, err = scanContact(q.QueryRow(ctx, `
			SELECT `+contactColumns+`
			FROM contacts
			WHERE tenant_id = $1 AND contact_id = $2
		`, tenantID, contactID))
		return notFound("contact", contactID, err)
	})
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *Store) ListContacts(ctx context.Context, tenantID string, filter domain.ContactFilter) ([]domain.Contact, error) {
	var out []domain.Contact
	err := s.run(ctx, "ListContacts", func(ctx context.Context, q querier) error {
		f := newFilterQuery(tenantID)
		f.eq("company_id", filter.CompanyID)
		limit := f.page(filter.Page)
		rows, err := q.Query(ctx, `
			SELECT `+contactColumns+`
			FROM contacts
			WHERE `+f.clause()+`
			ORDER BY created_at DESC, contact_id DESC`+limit, f.args...)
		if err != nil {
			return err
		}
		out, err = collect(rows, scanContact)
		return err
	})
	return out, err
}

func (s *Store) UpdateContact(ctx context.Context, c *domain.Contact) error {
	return s.run(ctx, "UpdateContact", func(ctx context.Context, q querier) error {
		tag, err := q.Exec(ctx, `
			UPDATE contacts
			SET name = $3, email = $4, phone = $5, company_id = $6, updated_at = $7
			WHERE tenant_id = $1 AND contact_id = $2
		`, c.TenantID, c.ContactID, c.Name, c.Email, c.Phone, c.CompanyID, c.UpdatedAt)
		return affected(tag.RowsAffected(), err, "contact", c.ContactID)
	})
}

func (s *Store) DeleteContact(ctx context.Context, tenantID, contactID string) error {
	return s.run(ctx, "DeleteContact", func(ctx context.Context, q querier) error {
		tag, err := q.Exec(ctx, `
			DELETE FROM contacts WHERE tenant_id = $1 AND contact_id = $2
		`, tenantID, contactID)
		return affected(tag.RowsAffected(), err, "contact", contactID)
	})
}

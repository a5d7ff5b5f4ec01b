package memory

import (
	"context"
	"sort"
	"time"

	"github.com/boddenberg/nextcrm-core/internal/domain"
)

// ============================================================
// Companies
// ============================================================

func (s *Store) CreateCompany(ctx context.Context, c *domain.Company) error {
	defer s.lock(ctx)()
	if _, ok := s.t.companies[c.CompanyID]; ok {
		return &domain.ErrConflict{Message: "company already exists"}
	}
	s.t.companies[c.CompanyID] = row[domain.Company]{seq: s.nextSeq(), v: *c}
	return nil
}

func (s *Store) GetCompany(ctx context.Context, tenantID, companyID string) (*domain.Company, error) {
	defer s.lock(ctx)()
	r, ok := s.t.companies[companyID]
	if !ok || r.v.TenantID != tenantID {
		return nil, &domain.ErrNotFound{Resource: "company", ID: companyID}
	}
	return &r.v, nil
}

func (s *Store) ListCompanies(ctx context.Context, tenantID string, page domain.Page) ([]domain.Company, error) {
	defer s.lock(ctx)()
	var rows []row[domain.Company]
	for _, r := range s.t.companies {
		if r.v.TenantID == tenantID {
			rows = append(rows, r)
		}
	}
	newestFirst(rows, func(c domain.Company) time.Time { return c.CreatedAt })
	return paginate(rows, page), nil
}

func (s *Store) UpdateCompany(ctx context.Context, c *domain.Company) error {
	defer s.lock(ctx)()
	r, ok := s.t.companies[c.CompanyID]
	if !ok || r.v.TenantID != c.TenantID {
		return &domain.ErrNotFound{Resource: "company", ID: c.CompanyID}
	}
	r.v = *c
	s.t.companies[c.CompanyID] = r
	return nil
}

func (s *Store) DeleteCompany(ctx context.Context, tenantID, companyID string) error {
	defer s.lock(ctx)()
	r, ok := s.t.companies[companyID]
	if !ok || r.v.TenantID != tenantID {
		return &domain.ErrNotFound{Resource: "company", ID: companyID}
	}
	delete(s.t.companies, companyID)

	for id, cr := range s.t.contacts {
		if eqRef(cr.v.CompanyID, companyID) {
			cr.v.CompanyID = nil
			s.t.contacts[id] = cr
		}
	}
	for id, dr := range s.t.deals {
		if eqRef(dr.v.CompanyID, companyID) {
			dr.v.CompanyID = nil
			s.t.deals[id] = dr
		}
	}
	return nil
}

// ============================================================
// Contacts
// ============================================================

func (s *Store) CreateContact(ctx context.Context, c *domain.Contact) error {
	defer s.lock(ctx)()
	if _, ok := s.t.contacts[c.ContactID]; ok {
		return &domain.ErrConflict{Message: "contact already exists"}
	}
	if c.CompanyID != nil {
		if r, ok := s.t.companies[*c.CompanyID]; !ok || r.v.TenantID != c.TenantID {
			return &domain.ErrInvalidReference{Field: "company_id", ID: *c.CompanyID}
		}
	}
	s.t.contacts[c.ContactID] = row[domain.Contact]{seq: s.nextSeq(), v: *c}
	return nil
}

func (s *Store) GetContact(ctx context.Context, tenantID, contactID string) (*domain.Contact, error) {
	defer s.lock(ctx)()
	r, ok := s.t.contacts[contactID]
	if !ok || r.v.TenantID != tenantID {
		return nil, &domain.ErrNotFound{Resource: "contact", ID: contactID}
	}
	return &r.v, nil
}

func (s *Store) ListContacts(ctx context.Context, tenantID string, filter domain.ContactFilter) ([]domain.Contact, error) {
	defer s.lock(ctx)()
	var rows []row[domain.Contact]
	for _, r := range s.t.contacts {
		if r.v.TenantID != tenantID {
			continue
		}
		if filter.CompanyID != "" && !eqRef(r.v.CompanyID, filter.CompanyID) {
			continue
		}
		rows = append(rows, r)
	}
	newestFirst(rows, func(c domain.Contact) time.Time { return c.CreatedAt })
	return paginate(rows, filter.Page), nil
}

func (s *Store) UpdateContact(ctx context.Context, c *domain.Contact) error {
	defer s.lock(ctx)()
	r, ok := s.t.contacts[c.ContactID]
	if !ok || r.v.TenantID != c.TenantID {
		return &domain.ErrNotFound{Resource: "contact", ID: c.ContactID}
	}
	if c.CompanyID != nil {
		if r, ok := s.t.companies[*c.CompanyID]; !ok || r.v.TenantID != c.TenantID {
			return &domain.ErrInvalidReference{Field: "company_id", ID: *c.CompanyID}
		}
	}
	r.v = *c
	s.t.contacts[c.ContactID] = r
	return nil
}

func (s *Store) DeleteContact(ctx context.Context, tenantID, contactID string) error {
	defer s.lock(ctx)()
	r, ok := s.t.contacts[contactID]
	if !ok || r.v.TenantID != tenantID {
		return &domain.ErrNotFound{Resource: "contact", ID: contactID}
	}
	delete(s.t.contacts, contactID)

	for id, dr := range s.t.deals {
		if eqRef(dr.v.ContactID, contactID) {
			dr.v.ContactID = nil
			s.t.deals[id] = dr
		}
	}
	return nil
}

// ============================================================
// Pipelines
// ============================================================

func (s *Store) CreatePipeline(ctx context.Context, p *domain.Pipeline) error {
	defer s.lock(ctx)()
	if _, ok := s.t.pipelines[p.PipelineID]; ok {
		return &domain.ErrConflict{Message: "pipeline already exists"}
	}
	s.t.pipelines[p.PipelineID] = row[domain.Pipeline]{seq: s.nextSeq(), v: *p}
	return nil
}

func (s *Store) GetPipeline(ctx context.Context, tenantID, pipelineID string) (*domain.Pipeline, error) {
	defer s.lock(ctx)()
	r, ok := s.t.pipelines[pipelineID]
	if !ok || r.v.TenantID != tenantID {
		return nil, &domain.ErrNotFound{Resource: "pipeline", ID: pipelineID}
	}
	return &r.v, nil
}

func (s *Store) ListPipelines(ctx context.Context, tenantID string, page domain.Page) ([]domain.Pipeline, error) {
	defer s.lock(ctx)()
	var rows []row[domain.Pipeline]
	for _, r := range s.t.pipelines {
		if r.v.TenantID == tenantID {
			rows = append(rows, r)
		}
	}
	newestFirst(rows, func(p domain.Pipeline) time.Time { return p.CreatedAt })
	return paginate(rows, page), nil
}

func (s *Store) UpdatePipeline(ctx context.Context, p *domain.Pipeline) error {
	defer s.lock(ctx)()
	r, ok := s.t.pipelines[p.PipelineID]
	if !ok || r.v.TenantID != p.TenantID {
		return &domain.ErrNotFound{Resource: "pipeline", ID: p.PipelineID}
	}
	r.v = *p
	s.t.pipelines[p.PipelineID] = r
	return nil
}

func (s *Store) DeletePipeline(ctx context.Context, tenantID, pipelineID string) error {
	defer s.lock(ctx)()
	r, ok := s.t.pipelines[pipelineID]
	if !ok || r.v.TenantID != tenantID {
		return &domain.ErrNotFound{Resource: "pipeline", ID: pipelineID}
	}
	for _, dr := range s.t.deals {
		if dr.v.PipelineID == pipelineID {
			return &domain.ErrConflict{Message: "pipeline still has deals"}
		}
	}
	delete(s.t.pipelines, pipelineID)
	for id, sr := range s.t.stages {
		if sr.v.PipelineID == pipelineID {
			delete(s.t.stages, id)
		}
	}
	return nil
}

// ============================================================
// Stages
// ============================================================

func (s *Store) CreateStage(ctx context.Context, st *domain.Stage) error {
	defer s.lock(ctx)()
	if _, ok := s.t.stages[st.StageID]; ok {
		return &domain.ErrConflict{Message: "stage already exists"}
	}
	if r, ok := s.t.pipelines[st.PipelineID]; !ok || r.v.TenantID != st.TenantID {
		return &domain.ErrInvalidReference{Field: "pipeline_id", ID: st.PipelineID}
	}
	s.t.stages[st.StageID] = row[domain.Stage]{seq: s.nextSeq(), v: *st}
	return nil
}

func (s *Store) GetStage(ctx context.Context, tenantID, stageID string) (*domain.Stage, error) {
	defer s.lock(ctx)()
	r, ok := s.t.stages[stageID]
	if !ok || r.v.TenantID != tenantID {
		return nil, &domain.ErrNotFound{Resource: "stage", ID: stageID}
	}
	return &r.v, nil
}

func (s *Store) ListStages(ctx context.Context, tenantID string, filter domain.StageFilter) ([]domain.Stage, error) {
	defer s.lock(ctx)()
	var rows []row[domain.Stage]
	for _, r := range s.t.stages {
		if r.v.TenantID != tenantID {
			continue
		}
		if filter.PipelineID != "" && r.v.PipelineID != filter.PipelineID {
			continue
		}
		rows = append(rows, r)
	}
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i].v, rows[j].v
		if a.PipelineID != b.PipelineID {
			return a.PipelineID < b.PipelineID
		}
		if a.SortOrder != b.SortOrder {
			return a.SortOrder < b.SortOrder
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return rows[i].seq < rows[j].seq
	})
	return paginate(rows, filter.Page), nil
}

func (s *Store) UpdateStage(ctx context.Context, st *domain.Stage) error {
	defer s.lock(ctx)()
	r, ok := s.t.stages[st.StageID]
	if !ok || r.v.TenantID != st.TenantID {
		return &domain.ErrNotFound{Resource: "stage", ID: st.StageID}
	}
	r.v = *st
	s.t.stages[st.StageID] = r
	return nil
}

func (s *Store) DeleteStage(ctx context.Context, tenantID, stageID string) error {
	defer s.lock(ctx)()
	r, ok := s.t.stages[stageID]
	if !ok || r.v.TenantID != tenantID {
		return &domain.ErrNotFound{Resource: "stage", ID: stageID}
	}
	for _, dr := range s.t.deals {
		if dr.v.StageID == stageID {
			return &domain.ErrConflict{Message: "stage still has deals"}
		}
	}
	delete(s.t.stages, stageID)
	return nil
}

// ============================================================
// Deals
// ============================================================

func (s *Store) checkDealRefs(d *domain.Deal) error {
	if r, ok := s.t.pipelines[d.PipelineID]; !ok || r.v.TenantID != d.TenantID {
		return &domain.ErrInvalidReference{Field: "pipeline_id", ID: d.PipelineID}
	}
	if r, ok := s.t.stages[d.StageID]; !ok || r.v.TenantID != d.TenantID {
		return &domain.ErrInvalidReference{Field: "stage_id", ID: d.StageID}
	}
	if d.CompanyID != nil {
		if r, ok := s.t.companies[*d.CompanyID]; !ok || r.v.TenantID != d.TenantID {
			return &domain.ErrInvalidReference{Field: "company_id", ID: *d.CompanyID}
		}
	}
	if d.ContactID != nil {
		if r, ok := s.t.contacts[*d.ContactID]; !ok || r.v.TenantID != d.TenantID {
			return &domain.ErrInvalidReference{Field: "contact_id", ID: *d.ContactID}
		}
	}
	return nil
}

func (s *Store) CreateDeal(ctx context.Context, d *domain.Deal) error {
	defer s.lock(ctx)()
	if _, ok := s.t.deals[d.DealID]; ok {
		return &domain.ErrConflict{Message: "deal already exists"}
	}
	if err := s.checkDealRefs(d); err != nil {
		return err
	}
	s.t.deals[d.DealID] = row[domain.Deal]{seq: s.nextSeq(), v: *d}
	return nil
}

func (s *Store) GetDeal(ctx context.Context, tenantID, dealID string) (*domain.Deal, error) {
	defer s.lock(ctx)()
	r, ok := s.t.deals[dealID]
	if !ok || r.v.TenantID != tenantID {
		return nil, &domain.ErrNotFound{Resource: "deal", ID: dealID}
	}
	return &r.v, nil
}

func (s *Store) ListDeals(ctx context.Context, tenantID string, filter domain.DealFilter) ([]domain.Deal, error) {
	defer s.lock(ctx)()
	var rows []row[domain.Deal]
	for _, r := range s.t.deals {
		if r.v.TenantID != tenantID {
			continue
		}
		if filter.PipelineID != "" && r.v.PipelineID != filter.PipelineID {
			continue
		}
		if filter.StageID != "" && r.v.StageID != filter.StageID {
			continue
		}
		rows = append(rows, r)
	}
	newestFirst(rows, func(d domain.Deal) time.Time { return d.CreatedAt })
	return paginate(rows, filter.Page), nil
}

func (s *Store) ListPipelineDeals(ctx context.Context, tenantID, pipelineID string) ([]domain.Deal, error) {
	defer s.lock(ctx)()
	var rows []row[domain.Deal]
	for _, r := range s.t.deals {
		if r.v.TenantID == tenantID && r.v.PipelineID == pipelineID {
			rows = append(rows, r)
		}
	}
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i].v, rows[j].v
		if !a.UpdatedAt.Equal(b.UpdatedAt) {
			return a.UpdatedAt.After(b.UpdatedAt)
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return rows[i].seq > rows[j].seq
	})
	return paginate(rows, domain.Page{}), nil
}

func (s *Store) UpdateDeal(ctx context.Context, d *domain.Deal) error {
	defer s.lock(ctx)()
	r, ok := s.t.deals[d.DealID]
	if !ok || r.v.TenantID != d.TenantID {
		return &domain.ErrNotFound{Resource: "deal", ID: d.DealID}
	}
	if err := s.checkDealRefs(d); err != nil {
		return err
	}
	r.v = *d
	s.t.deals[d.DealID] = r
	return nil
}

func (s *Store) DeleteDeal(ctx context.Context, tenantID, dealID string) error {
	defer s.lock(ctx)()
	r, ok := s.t.deals[dealID]
	if !ok || r.v.TenantID != tenantID {
		return &domain.ErrNotFound{Resource: "deal", ID: dealID}
	}
	delete(s.t.deals, dealID)
	return nil
}

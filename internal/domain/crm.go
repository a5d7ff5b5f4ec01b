package domain

import "time"

// Page bounds a list query.
type Page struct {
	Limit  int
	Offset int
}

// ============================================================
// Companies
// ============================================================

type Company struct {
	CompanyID string    `json:"company_id"`
	TenantID  string    `json:"tenant_id"`
	Name      string    `json:"name"`
	Domain    *string   `json:"domain"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type CompanyCreate struct {
	Name   string  `json:"name" validate:"max=200"`
	Domain *string `json:"domain" validate:"omitempty,max=200"`
}

type CompanyPatch struct {
	Name   Optional[string] `json:"name" validate:"omitempty,max=200"`
	Domain Optional[string] `json:"domain" validate:"omitempty,max=200"`
}

// ============================================================
// Contacts
// ============================================================

type Contact struct {
	ContactID string    `json:"contact_id"`
	TenantID  string    `json:"tenant_id"`
	Name      string    `json:"name"`
	Email     *string   `json:"email"`
	Phone     *string   `json:"phone"`
	CompanyID *string   `json:"company_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type ContactCreate struct {
	Name      string  `json:"name" validate:"max=200"`
	Email     *string `json:"email" validate:"omitempty,max=320,email"`
	Phone     *string `json:"phone" validate:"omitempty,max=50"`
	CompanyID *string `json:"company_id" validate:"omitempty,max=64"`
}

type ContactPatch struct {
	Name      Optional[string] `json:"name" validate:"omitempty,max=200"`
	Email     Optional[string] `json:"email" validate:"omitempty,max=320,email"`
	Phone     Optional[string] `json:"phone" validate:"omitempty,max=50"`
	CompanyID Optional[string] `json:"company_id" validate:"omitempty,max=64"`
}

type ContactFilter struct {
	CompanyID string
	Page
}

// ============================================================
// Pipelines / Stages
// ============================================================

type Pipeline struct {
	PipelineID string    `json:"pipeline_id"`
	TenantID   string    `json:"tenant_id"`
	Name       string    `json:"name"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type PipelineCreate struct {
	Name string `json:"name" validate:"max=200"`
}

type PipelinePatch struct {
	Name Optional[string] `json:"name" validate:"omitempty,max=200"`
}

type Stage struct {
	StageID    string    `json:"stage_id"`
	TenantID   string    `json:"tenant_id"`
	PipelineID string    `json:"pipeline_id"`
	Name       string    `json:"name"`
	SortOrder  int       `json:"sort_order"`
	IsWon      bool      `json:"is_won"`
	IsLost     bool      `json:"is_lost"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type StageCreate struct {
	PipelineID string `json:"pipeline_id" validate:"max=64"`
	Name       string `json:"name" validate:"max=200"`
	SortOrder  int    `json:"sort_order"`
	IsWon      bool   `json:"is_won"`
	IsLost     bool   `json:"is_lost"`
}

type StagePatch struct {
	PipelineID Optional[string] `json:"pipeline_id"`
	Name       Optional[string] `json:"name" validate:"omitempty,max=200"`
	SortOrder  Optional[int]    `json:"sort_order"`
	IsWon      Optional[bool]   `json:"is_won"`
	IsLost     Optional[bool]   `json:"is_lost"`
}

type StageFilter struct {
	PipelineID string
	Page
}

// ============================================================
// Deals
// ============================================================

type Deal struct {
	DealID     string    `json:"deal_id"`
	TenantID   string    `json:"tenant_id"`
	Title      string    `json:"title"`
	Amount     *Amount   `json:"amount"`
	Currency   string    `json:"currency"`
	CompanyID  *string   `json:"company_id"`
	ContactID  *string   `json:"contact_id"`
	PipelineID string    `json:"pipeline_id"`
	StageID    string    `json:"stage_id"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type DealCreate struct {
	Title      string  `json:"title" validate:"max=250"`
	Amount     *Amount `json:"amount"`
	Currency   string  `json:"currency" validate:"max=10"`
	CompanyID  *string `json:"company_id" validate:"omitempty,max=64"`
	ContactID  *string `json:"contact_id" validate:"omitempty,max=64"`
	PipelineID string  `json:"pipeline_id" validate:"max=64"`
	StageID    string  `json:"stage_id" validate:"max=64"`
}

type DealPatch struct {
	Title      Optional[string] `json:"title" validate:"omitempty,max=250"`
	Amount     Optional[Amount] `json:"amount"`
	Currency   Optional[string] `json:"currency" validate:"omitempty,max=10"`
	CompanyID  Optional[string] `json:"company_id" validate:"omitempty,max=64"`
	ContactID  Optional[string] `json:"contact_id" validate:"omitempty,max=64"`
	PipelineID Optional[string] `json:"pipeline_id"`
	StageID    Optional[string] `json:"stage_id" validate:"omitempty,max=64"`
}

type DealFilter struct {
	PipelineID string
	StageID    string
	Page
}

// ============================================================
// Board
// ============================================================

// Board is the Kanban view of a pipeline.
type Board struct {
	Pipeline Pipeline      `json:"pipeline"`
	Columns  []BoardColumn `json:"columns"`
}

// BoardColumn groups the deals of one stage.
type BoardColumn struct {
	Stage     Stage  `json:"stage"`
	Deals     []Deal `json:"deals"`
	Count     int    `json:"count"`
	SumAmount Amount `json:"sum_amount"`
}

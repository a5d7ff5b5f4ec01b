package postgres

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/boddenberg/nextcrm-core/internal/domain"
)

// collect scans every row and checks rows.Err.
func collect[T any](rows pgx.Rows, scan func(pgx.Row) (T, error)) ([]T, error) {
	defer rows.Close()
	out := []T{}
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func affected(n int64, err error, resource, id string) error {
	if err != nil {
		return err
	}
	if n == 0 {
		return &domain.ErrNotFound{Resource: resource, ID: id}
	}
	return nil
}

// filterQuery accumulates WHERE clauses with positional arguments.
type filterQuery struct {
	where []string
	args  []any
}

func newFilterQuery(tenantID string) *filterQuery {
	return &filterQuery{where: []string{"tenant_id = $1"}, args: []any{tenantID}}
}

func (f *filterQuery) eq(column, value string) {
	if value == "" {
		return
	}
	f.args = append(f.args, value)
	f.where = append(f.where, fmt.Sprintf("%s = $%d", column, len(f.args)))
}

// page appends LIMIT/OFFSET placeholders. A zero limit means no limit.
func (f *filterQuery) page(p domain.Page) string {
	clause := ""
	if p.Limit > 0 {
		f.args = append(f.args, p.Limit)
		clause += fmt.Sprintf(" LIMIT $%d", len(f.args))
	}
	f.args = append(f.args, p.Offset)
	clause += fmt.Sprintf(" OFFSET $%d", len(f.args))
	return clause
}

func (f *filterQuery) clause() string {
	return strings.Join(f.where, " AND ")
}

var errAmountScan = errors.New("scan amount")

func amountArg(a *domain.Amount) *string {
	if a == nil {
		return nil
	}
	s := a.String()
	return &s
}

func parseAmount(s *string) (*domain.Amount, error) {
	if s == nil {
		return nil, nil
	}
	a, err := domain.NewAmount(*s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errAmountScan, err)
	}
	return &a, nil
}

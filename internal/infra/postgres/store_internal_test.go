package postgres

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/boddenberg/nextcrm-core/internal/domain"
	"github.com/boddenberg/nextcrm-core/internal/port"
)

var (
	_ port.IdentityStore = (*Store)(nil)
	_ port.CRMStore      = (*Store)(nil)
	_ port.Pinger        = (*Store)(nil)
)

func TestTranslate(t *testing.T) {
	tests := []struct {
		name  string
		op    string
		err   error
		check func(error) bool
	}{
		{"unique violation", "CreateUser", &pgconn.PgError{Code: "23505"}, func(err error) bool {
			var c *domain.ErrConflict
			return errors.As(err, &c)
		}},
		{"fk on insert", "CreateDeal", &pgconn.PgError{Code: "23503", ConstraintName: "deals_stage_id_fkey"}, func(err error) bool {
			var r *domain.ErrInvalidReference
			return errors.As(err, &r) && r.Field == "stage_id"
		}},
		{"fk on delete", "DeletePipeline", &pgconn.PgError{Code: "23503"}, func(err error) bool {
			var c *domain.ErrConflict
			return errors.As(err, &c)
		}},
		{"domain error passes through", "GetDeal", &domain.ErrNotFound{Resource: "deal", ID: "d_1"}, func(err error) bool {
			var nf *domain.ErrNotFound
			return errors.As(err, &nf)
		}},
		{"other pg error is wrapped", "ListDeals", &pgconn.PgError{Code: "42601"}, func(err error) bool {
			var pgErr *pgconn.PgError
			return errors.As(err, &pgErr) && pgErr.Code == "42601"
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := translate(tt.op, tt.err); !tt.check(got) {
				t.Errorf("unexpected translation: %v", got)
			}
		})
	}
}

func TestIsConnectivity(t *testing.T) {
	if !IsConnectivity(&pgconn.PgError{Code: "08006"}) {
		t.Error("expected connection failure class to count")
	}
	if !IsConnectivity(fmt.Errorf("wrapped: %w", &pgconn.PgError{Code: "57P01"})) {
		t.Error("expected admin shutdown to count")
	}
	if IsConnectivity(&pgconn.PgError{Code: "23505"}) {
		t.Error("constraint violation is not a connectivity failure")
	}
	if IsConnectivity(pgx.ErrNoRows) {
		t.Error("no rows is not a connectivity failure")
	}
	if IsConnectivity(nil) {
		t.Error("nil is not a connectivity failure")
	}
}

func TestNotFound(t *testing.T) {
	var nf *domain.ErrNotFound
	if err := notFound("company", "co_1", pgx.ErrNoRows); !errors.As(err, &nf) || nf.ID != "co_1" {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if err := notFound("company", "co_1", nil); err != nil {
		t.Errorf("expected nil, got %v", err)
	}
}

func TestFilterQuery(t *testing.T) {
	f := newFilterQuery("tnt_a")
	f.eq("pipeline_id", "pl_1")
	f.eq("stage_id", "")
	limit := f.page(domain.Page{Limit: 10, Offset: 20})

	if got := f.clause(); got != "tenant_id = $1 AND pipeline_id = $2" {
		t.Errorf("unexpected clause: %q", got)
	}
	if limit != " LIMIT $3 OFFSET $4" {
		t.Errorf("unexpected limit clause: %q", limit)
	}
	if len(f.args) != 4 || f.args[2] != 10 || f.args[3] != 20 {
		t.Errorf("unexpected args: %v", f.args)
	}
}

func TestAmountRoundTrip(t *testing.T) {
	a := domain.MustAmount("100")
	arg := amountArg(&a)
	if arg == nil || *arg != "100.00" {
		t.Fatalf("expected 100.00, got %v", arg)
	}
	back, err := parseAmount(arg)
	if err != nil || back.String() != "100.00" {
		t.Fatalf("unexpected parse: %v %v", back, err)
	}
	if amountArg(nil) != nil {
		t.Error("expected nil for absent amount")
	}
	if _, err := parseAmount(strPtr("abc")); !errors.Is(err, errAmountScan) {
		t.Errorf("expected scan error, got %v", err)
	}
}

func TestMigrationsEmbedded(t *testing.T) {
	data, err := migrationFiles.ReadFile("migrations/0002_crm.sql")
	if err != nil {
		t.Fatalf("expected embedded migration: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("expected non-empty migration")
	}
}

func strPtr(s string) *string { return &s }

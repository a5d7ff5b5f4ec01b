package service

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/boddenberg/nextcrm-core/internal/domain"
	"github.com/boddenberg/nextcrm-core/internal/infra/observability"
	"github.com/boddenberg/nextcrm-core/internal/port"
)

var crmTracer = otel.Tracer("service/crm")

// List limits: default, maximum.
const (
	companyLimitDefault  = 100
	companyLimitMax      = 200
	contactLimitDefault  = 100
	contactLimitMax      = 200
	pipelineLimitDefault = 50
	pipelineLimitMax     = 200
	stageLimitDefault    = 200
	stageLimitMax        = 500
	dealLimitDefault     = 200
	dealLimitMax         = 500
)

// CRMService implements the tenant-scoped CRUD use cases and the board view.
// Every method takes the tenant id resolved from the session; payloads never
// choose it.
type CRMService struct {
	store   port.CRMStore
	metrics *observability.Metrics
	logger  *zap.Logger
	now     func() time.Time
}

// NewCRMService creates a CRM service.
func NewCRMService(store port.CRMStore, metrics *observability.Metrics, logger *zap.Logger) *CRMService {
	return &CRMService{
		store:   store,
		metrics: metrics,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// asReference turns a not-found lookup of a payload reference into
// VALIDATION.INVALID_REFERENCE.
func asReference(field, id string, err error) error {
	var nf *domain.ErrNotFound
	if errors.As(err, &nf) {
		return &domain.ErrInvalidReference{Field: field, ID: id}
	}
	return err
}

func (s *CRMService) checkCompany(ctx context.Context, tenantID string, id *string) error {
	if id == nil {
		return nil
	}
	_, err := s.store.GetCompany(ctx, tenantID, *id)
	return asReference("company_id", *id, err)
}

func (s *CRMService) checkContact(ctx context.Context, tenantID string, id *string) error {
	if id == nil {
		return nil
	}
	_, err := s.store.GetContact(ctx, tenantID, *id)
	return asReference("contact_id", *id, err)
}

func (s *CRMService) logWrite(ctx context.Context, event, tenantID, id string) {
	observability.LoggerWithTrace(ctx, s.logger).Debug(event,
		zap.String("tenant_id", tenantID),
		zap.String("id", id),
	)
}

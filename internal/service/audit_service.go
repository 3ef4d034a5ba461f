package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/hr-service/internal/events"
	"github.com/spec-kit/hr-service/internal/observability"
)

// AuditService writes an audit trail of domain events to the structured log.
type AuditService struct {
	logger  *zap.Logger
	metrics *observability.Metrics
}

// NewAuditService creates the service.
func NewAuditService(logger *zap.Logger, metrics *observability.Metrics) *AuditService {
	return &AuditService{
		logger:  logger.Named("audit"),
		metrics: metrics,
	}
}

// Record logs one event.
func (a *AuditService) Record(_ context.Context, event events.Event) error {
	fields := []zap.Field{
		zap.String("event_id", event.ID),
		zap.String("event_type", string(event.Type)),
		zap.Int64("subject_id", event.SubjectID),
		zap.Time("at", event.Timestamp),
	}
	if event.Actor.AccountID != nil {
		fields = append(fields, zap.Int64("actor_id", *event.Actor.AccountID), zap.String("actor", event.Actor.Username))
	}
	if event.Payload != nil {
		fields = append(fields, zap.Any("payload", event.Payload))
	}

	a.logger.Info("audit", fields...)
	a.metrics.RecordAuditEvent(string(event.Type))
	return nil
}

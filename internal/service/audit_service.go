package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/crew-ticket-service/internal/events"
	"github.com/spec-kit/crew-ticket-service/internal/observability"
)

// AuditService writes every domain event to the structured log.
type AuditService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	metrics    *observability.Metrics
}

// NewAuditService creates the service.
func NewAuditService(dispatcher events.Dispatcher, logger *zap.Logger, metrics *observability.Metrics) *AuditService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuditService{
		dispatcher: dispatcher,
		logger:     logger,
		metrics:    metrics,
	}
}

// RegisterHandlers subscribes to events.
func (a *AuditService) RegisterHandlers() {
	if a.dispatcher == nil {
		return
	}
	a.dispatcher.Subscribe(events.EventTicketCreated, a.handleTicketEvent)
	a.dispatcher.Subscribe(events.EventTicketTransitioned, a.handleTicketEvent)
	a.dispatcher.Subscribe(events.EventTicketMoved, a.handleTicketEvent)
	a.dispatcher.Subscribe(events.EventTicketClosed, a.handleTicketEvent)
	a.dispatcher.Subscribe(events.EventMemberRegistered, a.handleMemberEvent)
	a.dispatcher.Subscribe(events.EventMemberUpdated, a.handleMemberEvent)
	a.dispatcher.Subscribe(events.EventMemberRemoved, a.handleMemberEvent)
}

func (a *AuditService) handleTicketEvent(_ context.Context, event events.Event) error {
	a.logger.Info(string(event.Type),
		zap.String("event_id", event.ID),
		zap.String("ticket_id", event.Subject),
		zap.String("organization_id", event.OrganizationID),
		zap.String("actor_id", event.ActorID),
		zap.Any("payload", event.Payload))
	a.metrics.RecordOperation("audit." + string(event.Type))
	return nil
}

func (a *AuditService) handleMemberEvent(_ context.Context, event events.Event) error {
	a.logger.Info(string(event.Type),
		zap.String("event_id", event.ID),
		zap.String("crew_id", event.Subject),
		zap.String("organization_id", event.OrganizationID),
		zap.String("actor_id", event.ActorID),
		zap.Any("payload", event.Payload))
	a.metrics.RecordOperation("audit." + string(event.Type))
	return nil
}

package worker

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/meal-tickets/internal/events"
	"github.com/spec-kit/meal-tickets/internal/observability"
)

// TicketAuditWorker writes an audit line per ticket event and feeds the
// issuance and claim counters.
type TicketAuditWorker struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	metrics    *observability.Metrics
}

// NewTicketAuditWorker creates the worker.
func NewTicketAuditWorker(dispatcher events.Dispatcher, logger *zap.Logger, metrics *observability.Metrics) *TicketAuditWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TicketAuditWorker{dispatcher: dispatcher, logger: logger, metrics: metrics}
}

// Start subscribes to ticket events.
func (w *TicketAuditWorker) Start() {
	if w == nil || w.dispatcher == nil {
		return
	}
	w.dispatcher.Subscribe(events.EventTicketsIssued, w.handleTicketsIssued)
	w.dispatcher.Subscribe(events.EventTicketConsumed, w.handleTicketConsumed)
}

func (w *TicketAuditWorker) handleTicketsIssued(_ context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketsIssuedPayload)
	if !ok {
		w.logger.Warn("unexpected payload", zap.String("event_type", string(event.Type)), zap.String("event_id", event.ID))
		return nil
	}
	w.metrics.RecordIssued(len(payload.TicketIDs))
	w.logger.Info("TicketsIssued",
		zap.String("event_id", event.ID),
		zap.String("owner_id", event.OwnerID),
		zap.Strings("ticket_ids", payload.TicketIDs),
		zap.String("price", payload.Price.String()),
		zap.Time("issued_at", payload.IssuedAt))
	return nil
}

func (w *TicketAuditWorker) handleTicketConsumed(_ context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketConsumedPayload)
	if !ok {
		w.logger.Warn("unexpected payload", zap.String("event_type", string(event.Type)), zap.String("event_id", event.ID))
		return nil
	}
	w.metrics.RecordConsumption(observability.OutcomeClaimed)
	w.logger.Info("TicketConsumed",
		zap.String("event_id", event.ID),
		zap.String("owner_id", event.OwnerID),
		zap.String("ticket_id", payload.TicketID),
		zap.Time("used_at", payload.UsedAt))
	return nil
}

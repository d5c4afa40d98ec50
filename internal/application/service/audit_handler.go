package service

import (
	"context"

	"github.com/garyjia/sov-billing/internal/application/port"
	"github.com/garyjia/sov-billing/internal/domain/event"
)

// AuditHandler records every billing event in the job's history
type AuditHandler struct {
	repo   port.EventRepository
	logger Logger
}

// NewAuditHandler creates a new AuditHandler
func NewAuditHandler(repo port.EventRepository, logger Logger) *AuditHandler {
	return &AuditHandler{repo: repo, logger: logger}
}

// Handle appends the event
func (h *AuditHandler) Handle(ctx context.Context, evt *event.Event) error {
	if err := h.repo.Append(ctx, evt); err != nil {
		h.logger.Error("Failed to record billing event", "event_id", evt.ID, "type", evt.Type.String(), "error", err)
		return err
	}
	return nil
}

// Name identifies the handler in the dispatcher
func (h *AuditHandler) Name() string { return "audit" }

// EventTypes lists the events the handler subscribes to
func (h *AuditHandler) EventTypes() []event.Type {
	return []event.Type{
		event.TypeSOVSaved,
		event.TypeSOVApproved,
		event.TypeDrawCreated,
		event.TypeBillSubmitted,
	}
}

package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/garyjia/sov-billing/internal/application/port"
	"github.com/garyjia/sov-billing/internal/domain/entity"
	"github.com/garyjia/sov-billing/internal/domain/event"
)

// EventRepository implements port.EventRepository
type EventRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewEventRepository creates a new billing event repository
func NewEventRepository(db *sql.DB, logger *zap.Logger) port.EventRepository {
	return &EventRepository{db: db, logger: logger}
}

// Append stores one event
func (r *EventRepository) Append(ctx context.Context, evt *event.Event) error {
	payload, err := json.Marshal(evt.Payload)
	if err != nil {
		return fmt.Errorf("failed to encode event payload: %w", err)
	}

	_, err = executor(ctx, r.db).ExecContext(ctx, `
		INSERT INTO billing_events (
			id, event_type, company_id, job_id, actor_id, correlation_id, payload, occurred_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		evt.ID,
		string(evt.Type),
		evt.CompanyID,
		evt.JobID,
		evt.ActorID,
		evt.CorrelationID,
		string(payload),
		evt.Timestamp,
	)
	if err != nil {
		r.logger.Error("Failed to append event", zap.String("event_id", evt.ID), zap.Error(err))
		return fmt.Errorf("failed to append event: %w", err)
	}
	return nil
}

// ListByJob retrieves the newest events for a job first
func (r *EventRepository) ListByJob(ctx context.Context, job entity.JobKey, limit int) ([]*event.Event, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := executor(ctx, r.db).QueryContext(ctx, `
		SELECT id, event_type, company_id, job_id, actor_id, correlation_id, payload, occurred_at
		FROM billing_events
		WHERE company_id = ? AND job_id = ?
		ORDER BY occurred_at DESC
		LIMIT ?
	`, job.CompanyID, job.JobID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	defer rows.Close()

	var events []*event.Event
	for rows.Next() {
		var evt event.Event
		var typ, payload string
		if err := rows.Scan(&evt.ID, &typ, &evt.CompanyID, &evt.JobID, &evt.ActorID, &evt.CorrelationID, &payload, &evt.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		evt.Type = event.Type(typ)
		if err := json.Unmarshal([]byte(payload), &evt.Payload); err != nil {
			r.logger.Error("Unreadable event payload", zap.String("event_id", evt.ID), zap.Error(err))
		}
		events = append(events, &evt)
	}
	return events, rows.Err()
}

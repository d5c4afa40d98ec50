package event

import (
	"time"

	"github.com/google/uuid"

	"github.com/garyjia/sov-billing/internal/domain/entity"
)

// Event records something that happened to a job's billing records
type Event struct {
	ID            string         `json:"id"`
	Type          Type           `json:"type"`
	CompanyID     string         `json:"company_id"`
	JobID         string         `json:"job_id,omitempty"`
	ActorID       string         `json:"actor_id,omitempty"`
	Payload       map[string]any `json:"payload"`
	Timestamp     time.Time      `json:"timestamp"`
	CorrelationID string         `json:"correlation_id"`
}

// NewEvent creates an event for a job with a fresh ID and correlation chain
func NewEvent(eventType Type, job entity.JobKey, actor entity.Actor, payload map[string]any) *Event {
	id := uuid.NewString()
	return &Event{
		ID:            id,
		Type:          eventType,
		CompanyID:     job.CompanyID,
		JobID:         job.JobID,
		ActorID:       actor.ID,
		Payload:       payload,
		Timestamp:     time.Now(),
		CorrelationID: id,
	}
}

// WithCorrelation returns a copy linked to an existing correlation chain
func (e *Event) WithCorrelation(correlationID string) *Event {
	c := *e
	c.CorrelationID = correlationID
	return &c
}

// WithPayload returns a copy with one more payload entry
func (e *Event) WithPayload(key string, value any) *Event {
	payload := make(map[string]any, len(e.Payload)+1)
	for k, v := range e.Payload {
		payload[k] = v
	}
	payload[key] = value

	c := *e
	c.Payload = payload
	return &c
}

// Job returns the job the event belongs to
func (e *Event) Job() entity.JobKey {
	return entity.JobKey{CompanyID: e.CompanyID, JobID: e.JobID}
}

// GetPayloadString retrieves a string value from the payload
func (e *Event) GetPayloadString(key string) string {
	if val, ok := e.Payload[key]; ok {
		if str, ok := val.(string); ok {
			return str
		}
	}
	return ""
}

// GetPayloadInt retrieves an integer value from the payload
func (e *Event) GetPayloadInt(key string) int64 {
	if val, ok := e.Payload[key]; ok {
		switch v := val.(type) {
		case int64:
			return v
		case int:
			return int64(v)
		case float64:
			return int64(v)
		}
	}
	return 0
}

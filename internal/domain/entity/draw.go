package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Draw is one progress-billing application against a job's SOV.
// It maps 1:1 to the receivable invoice record that carries the same ID
type Draw struct {
	ID                string          `json:"id"`
	CompanyID         string          `json:"company_id"`
	JobID             string          `json:"job_id"`
	InvoiceNumber     string          `json:"invoice_number"`
	ApplicationNumber *int            `json:"application_number,omitempty"`
	Status            string          `json:"status"`
	IssueDate         *time.Time      `json:"issue_date,omitempty"`
	TotalAmount       decimal.Decimal `json:"total_amount"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`

	// Persisted is false for the virtual next draft that has not been created yet
	Persisted bool `json:"persisted"`
}

// IsDraft reports whether the draw is still in draft status
func (d *Draw) IsDraft() bool {
	return d.Status == DrawStatusDraft
}

package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// SOVLineItem is one billable row of a job's Schedule of Values
type SOVLineItem struct {
	ID             string          `json:"id"`
	CompanyID      string          `json:"company_id"`
	JobID          string          `json:"job_id"`
	ItemNumber     string          `json:"item_number"`
	Description    string          `json:"description"`
	ScheduledValue decimal.Decimal `json:"scheduled_value"`
	CostCodeID     *string         `json:"cost_code_id,omitempty"`
	SortOrder      int             `json:"sort_order"`
	WorkflowStatus string          `json:"workflow_status"`
	ApprovedAt     *time.Time      `json:"approved_at,omitempty"`
	ApprovedBy     *string         `json:"approved_by,omitempty"`

	// AutoNumbered is true while ItemNumber is derived from position.
	// Imported and manually numbered items keep their number on renumbering
	AutoNumbered bool `json:"auto_numbered"`

	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}

// IsApproved reports whether the item carries the approved workflow status
func (i *SOVLineItem) IsApproved() bool {
	return i.WorkflowStatus == WorkflowStatusApproved
}

// Clone returns a copy that shares no pointers with the receiver
func (i *SOVLineItem) Clone() *SOVLineItem {
	c := *i
	if i.CostCodeID != nil {
		v := *i.CostCodeID
		c.CostCodeID = &v
	}
	if i.ApprovedAt != nil {
		v := *i.ApprovedAt
		c.ApprovedAt = &v
	}
	if i.ApprovedBy != nil {
		v := *i.ApprovedBy
		c.ApprovedBy = &v
	}
	if i.DeletedAt != nil {
		v := *i.DeletedAt
		c.DeletedAt = &v
	}
	return &c
}

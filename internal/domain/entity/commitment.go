package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Commitment is a subcontract or purchase order that bills are charged against
type Commitment struct {
	ID                  string                  `json:"id"`
	CompanyID           string                  `json:"company_id"`
	Kind                string                  `json:"kind"`
	Number              string                  `json:"number"`
	VendorID            string                  `json:"vendor_id"`
	JobID               string                  `json:"job_id"`
	ContractAmount      decimal.Decimal         `json:"contract_amount"`
	RetainagePercentage decimal.Decimal         `json:"retainage_percentage"`
	CostDistribution    []CostDistributionEntry `json:"cost_distribution"`
	CreatedAt           time.Time               `json:"created_at"`
	UpdatedAt           time.Time               `json:"updated_at"`
}

// CostDistributionEntry is one stored split of a commitment.
// Exactly one of Amount or Percentage is normally set
type CostDistributionEntry struct {
	CostCodeID *string          `json:"cost_code_id,omitempty"`
	CostCode   string           `json:"cost_code,omitempty"`
	Amount     *decimal.Decimal `json:"amount,omitempty"`
	Percentage *decimal.Decimal `json:"percentage,omitempty"`
}

// CostCode is a job cost code that bill lines are coded to
type CostCode struct {
	ID          string `json:"id"`
	CompanyID   string `json:"company_id"`
	JobID       string `json:"job_id"`
	Code        string `json:"code"`
	Description string `json:"description"`
	Active      bool   `json:"active"`
}

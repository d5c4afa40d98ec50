package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Bill is the financial document being coded: an AP invoice, or the
// receivable invoice underlying a draw
type Bill struct {
	ID                  string             `json:"id"`
	CompanyID           string             `json:"company_id"`
	VendorID            string             `json:"vendor_id,omitempty"`
	CommitmentID        *string            `json:"commitment_id,omitempty"`
	BillNumber          string             `json:"bill_number"`
	Amount              decimal.Decimal    `json:"amount"`
	RetainagePercentage decimal.Decimal    `json:"retainage_percentage"`
	RetainageAmount     decimal.Decimal    `json:"retainage_amount"`
	PendingCoding       bool               `json:"pending_coding"`
	Status              string             `json:"status"`
	PayNumber           int                `json:"pay_number,omitempty"`
	Lines               []DistributionLine `json:"lines,omitempty"`
	CreatedAt           time.Time          `json:"created_at"`
	UpdatedAt           time.Time          `json:"updated_at"`
}

// SetAmount changes the bill amount and recomputes retainage from the
// current percentage
func (b *Bill) SetAmount(amount decimal.Decimal) {
	b.Amount = amount
	b.recomputeRetainage()
}

// SetRetainagePercentage changes the percentage and recomputes retainage.
// The amount is never touched
func (b *Bill) SetRetainagePercentage(pct decimal.Decimal) {
	b.RetainagePercentage = pct
	b.recomputeRetainage()
}

func (b *Bill) recomputeRetainage() {
	b.RetainageAmount = b.Amount.Mul(b.RetainagePercentage).Div(hundred).Round(2)
}

// IsRejected reports whether the bill is excluded from commitment totals
func (b *Bill) IsRejected() bool {
	return b.Status == BillStatusRejected
}

// DistributionLine allocates part of a bill to a job cost code or an
// expense account
type DistributionLine struct {
	ID               string          `json:"id,omitempty"`
	JobID            *string         `json:"job_id,omitempty"`
	ExpenseAccountID *string         `json:"expense_account_id,omitempty"`
	CostCodeID       *string         `json:"cost_code_id,omitempty"`
	Amount           decimal.Decimal `json:"amount"`
	Percentage       decimal.Decimal `json:"percentage"`
}

// HasTarget reports whether exactly one of job or expense account is set
func (l *DistributionLine) HasTarget() bool {
	hasJob := l.JobID != nil && *l.JobID != ""
	hasAccount := l.ExpenseAccountID != nil && *l.ExpenseAccountID != ""
	return hasJob != hasAccount
}

// TargetsJob reports whether the line is coded to a job
func (l *DistributionLine) TargetsJob() bool {
	return l.JobID != nil && *l.JobID != ""
}

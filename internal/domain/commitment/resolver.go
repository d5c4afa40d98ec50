package commitment

import (
	"github.com/shopspring/decimal"

	"github.com/garyjia/sov-billing/internal/domain/distribution"
	"github.com/garyjia/sov-billing/internal/domain/entity"
)

// Mode says how a bill against a commitment gets coded
type Mode string

const (
	ModeAutoApply         Mode = "autoApply"
	ModeNeedsDistribution Mode = "needsDistribution"
	ModeUncoded           Mode = "uncoded"
)

var hundred = decimal.NewFromInt(100)

// CodingPlan is the result of Resolve. Lines are only set for
// needsDistribution and are suggestions the caller may edit
type CodingPlan struct {
	Mode       Mode                      `json:"mode"`
	CostCodeID *string                   `json:"cost_code_id,omitempty"`
	Lines      []entity.DistributionLine `json:"lines,omitempty"`
}

// Unresolved reports whether an auto-applied plan could not find its code
func (p CodingPlan) Unresolved() bool {
	return p.Mode == ModeAutoApply && p.CostCodeID == nil
}

// Resolve builds the coding plan for a bill of billAmount against c.
// activeCodes are the job's currently active cost codes
func Resolve(c *entity.Commitment, billAmount decimal.Decimal, activeCodes []entity.CostCode) CodingPlan {
	entries := c.CostDistribution
	switch len(entries) {
	case 0:
		return CodingPlan{Mode: ModeUncoded}
	case 1:
		return CodingPlan{Mode: ModeAutoApply, CostCodeID: resolveCode(entries[0], activeCodes)}
	}

	weights := make([]decimal.Decimal, len(entries))
	for i, e := range entries {
		weights[i] = entryWeight(e, c.ContractAmount)
	}
	shares := distribution.Split(billAmount, weights)

	jobID := c.JobID
	lines := make([]entity.DistributionLine, len(entries))
	for i, e := range entries {
		job := jobID
		lines[i] = entity.DistributionLine{
			JobID:      &job,
			CostCodeID: resolveCode(e, activeCodes),
			Amount:     shares[i],
		}
	}
	distribution.AnnotatePercentages(lines, billAmount)
	return CodingPlan{Mode: ModeNeedsDistribution, Lines: lines}
}

// resolveCode prefers the entry's own id and falls back to an exact match
// on the code text. No match leaves the line uncoded
func resolveCode(e entity.CostDistributionEntry, activeCodes []entity.CostCode) *string {
	if e.CostCodeID != nil && *e.CostCodeID != "" {
		id := *e.CostCodeID
		return &id
	}
	if e.CostCode == "" {
		return nil
	}
	for _, cc := range activeCodes {
		if cc.Active && cc.Code == e.CostCode {
			id := cc.ID
			return &id
		}
	}
	return nil
}

func entryWeight(e entity.CostDistributionEntry, contract decimal.Decimal) decimal.Decimal {
	switch {
	case e.Amount != nil:
		return *e.Amount
	case e.Percentage != nil:
		return contract.Mul(*e.Percentage).Div(hundred)
	default:
		return decimal.Zero
	}
}

// Retainage is amount × pct / 100 rounded to cents
func Retainage(amount, pct decimal.Decimal) decimal.Decimal {
	return amount.Mul(pct).Div(hundred).Round(2)
}

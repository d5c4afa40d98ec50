package commitment

import (
	"github.com/shopspring/decimal"

	"github.com/garyjia/sov-billing/internal/domain/entity"
)

// Summary is what has been billed against a commitment so far
type Summary struct {
	CommitmentID     string          `json:"commitment_id"`
	ContractAmount   decimal.Decimal `json:"contract_amount"`
	PreviouslyBilled decimal.Decimal `json:"previously_billed"`
	ContractBalance  decimal.Decimal `json:"contract_balance"`
	PayNumber        int             `json:"pay_number"`
}

// Summarize totals non-rejected bills against c, leaving out excludeBillID
// (the bill being composed). Pay numbers are commitment scoped and unrelated
// to draw application numbers
func Summarize(c *entity.Commitment, bills []*entity.Bill, excludeBillID string) Summary {
	billed := decimal.Zero
	count := 0
	for _, b := range bills {
		if b.CommitmentID == nil || *b.CommitmentID != c.ID {
			continue
		}
		if b.IsRejected() || (excludeBillID != "" && b.ID == excludeBillID) {
			continue
		}
		billed = billed.Add(b.Amount)
		count++
	}

	return Summary{
		CommitmentID:     c.ID,
		ContractAmount:   c.ContractAmount,
		PreviouslyBilled: billed,
		ContractBalance:  c.ContractAmount.Sub(billed),
		PayNumber:        count + 1,
	}
}

// Exceeds reports whether billing amount would take the commitment past
// its contract amount
func (s Summary) Exceeds(amount decimal.Decimal) bool {
	return amount.GreaterThan(s.ContractBalance)
}

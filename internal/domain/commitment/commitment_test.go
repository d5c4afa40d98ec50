package commitment

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/sov-billing/internal/domain/entity"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func ptr[T any](v T) *T { return &v }

func activeCodes() []entity.CostCode {
	return []entity.CostCode{
		{ID: "cc-1", JobID: "job-1", Code: "01-100", Active: true},
		{ID: "cc-2", JobID: "job-1", Code: "02-200", Active: true},
		{ID: "cc-9", JobID: "job-1", Code: "09-900", Active: false},
	}
}

func TestParseCostDistribution_Shapes(t *testing.T) {
	fromString := ParseCostDistribution(`[{"cost_code":"01-100","amount":5000},{"code":"02-200","percentage":"25"}]`)
	require.Len(t, fromString, 2)
	assert.Equal(t, "01-100", fromString[0].CostCode)
	assert.True(t, fromString[0].Amount.Equal(d("5000")))
	assert.Equal(t, "02-200", fromString[1].CostCode)
	assert.True(t, fromString[1].Percentage.Equal(d("25")))

	fromBytes := ParseCostDistribution(json.RawMessage(`[{"cost_code_id":"cc-7","amount":"1,200.50"}]`))
	require.Len(t, fromBytes, 1)
	assert.Equal(t, "cc-7", *fromBytes[0].CostCodeID)
	assert.True(t, fromBytes[0].Amount.Equal(d("1200.5")))

	decoded := ParseCostDistribution([]any{map[string]any{"cost_code": "01-100", "amount": 10.0}, "junk"})
	require.Len(t, decoded, 1)
	assert.True(t, decoded[0].Amount.Equal(d("10")))

	doubleEncoded := ParseCostDistribution(`"[{\"cost_code\":\"01-100\"}]"`)
	require.Len(t, doubleEncoded, 1)
}

func TestParseCostDistribution_DegradesToEmpty(t *testing.T) {
	for name, raw := range map[string]any{
		"nil":        nil,
		"null":       "null",
		"blank":      "  ",
		"malformed":  `[{"cost_code":`,
		"object":     `{"cost_code":"01-100"}`,
		"number":     42,
		"empty list": []byte(`[]`),
	} {
		t.Run(name, func(t *testing.T) {
			got := ParseCostDistribution(raw)
			assert.NotNil(t, got)
			assert.Empty(t, got)
		})
	}
}

func TestResolve_AutoApplyByCodeText(t *testing.T) {
	c := &entity.Commitment{
		ID:               "sc-1",
		JobID:            "job-1",
		ContractAmount:   d("5000"),
		CostDistribution: ParseCostDistribution(`[{"cost_code":"01-100","amount":5000}]`),
	}

	plan := Resolve(c, d("1000"), activeCodes())

	assert.Equal(t, ModeAutoApply, plan.Mode)
	require.NotNil(t, plan.CostCodeID)
	assert.Equal(t, "cc-1", *plan.CostCodeID)
	assert.False(t, plan.Unresolved())
}

func TestResolve_AutoApplyPrefersDirectID(t *testing.T) {
	c := &entity.Commitment{CostDistribution: []entity.CostDistributionEntry{{CostCodeID: ptr("cc-5"), CostCode: "01-100"}}}
	plan := Resolve(c, d("1"), activeCodes())
	assert.Equal(t, "cc-5", *plan.CostCodeID)
}

func TestResolve_AutoApplyUnresolved(t *testing.T) {
	for _, code := range []string{"01-100 ", "01-101", "09-900"} {
		c := &entity.Commitment{CostDistribution: []entity.CostDistributionEntry{{CostCode: code}}}
		plan := Resolve(c, d("1"), activeCodes())
		assert.Equal(t, ModeAutoApply, plan.Mode, code)
		assert.Nil(t, plan.CostCodeID, code)
		assert.True(t, plan.Unresolved(), code)
	}
}

func TestResolve_NeedsDistribution(t *testing.T) {
	c := &entity.Commitment{
		JobID:          "job-1",
		ContractAmount: d("10000"),
		CostDistribution: []entity.CostDistributionEntry{
			{CostCode: "01-100", Amount: ptr(d("6000"))},
			{CostCode: "02-200", Percentage: ptr(d("40"))},
		},
	}

	plan := Resolve(c, d("2500"), activeCodes())

	assert.Equal(t, ModeNeedsDistribution, plan.Mode)
	assert.Nil(t, plan.CostCodeID)
	require.Len(t, plan.Lines, 2)
	assert.True(t, plan.Lines[0].Amount.Equal(d("1500")))
	assert.True(t, plan.Lines[1].Amount.Equal(d("1000")))
	assert.Equal(t, "cc-1", *plan.Lines[0].CostCodeID)
	assert.Equal(t, "cc-2", *plan.Lines[1].CostCodeID)
	assert.Equal(t, "job-1", *plan.Lines[0].JobID)
	assert.True(t, plan.Lines[0].Percentage.Equal(d("60")))
}

func TestResolve_Uncoded(t *testing.T) {
	plan := Resolve(&entity.Commitment{CostDistribution: ParseCostDistribution(nil)}, d("1"), nil)
	assert.Equal(t, ModeUncoded, plan.Mode)
	assert.False(t, plan.Unresolved())
}

func TestRetainageRecomputation(t *testing.T) {
	bill := &entity.Bill{}
	bill.SetAmount(d("10000"))
	bill.SetRetainagePercentage(d("5"))
	assert.True(t, bill.RetainageAmount.Equal(d("500")))

	bill.SetAmount(d("20000"))
	assert.True(t, bill.RetainageAmount.Equal(d("1000")))
	assert.True(t, bill.RetainagePercentage.Equal(d("5")))

	bill.SetRetainagePercentage(d("10"))
	assert.True(t, bill.Amount.Equal(d("20000")))
	assert.True(t, bill.RetainageAmount.Equal(d("2000")))

	assert.True(t, Retainage(d("333.33"), d("5")).Equal(d("16.67")))
}

func TestSummarize(t *testing.T) {
	c := &entity.Commitment{ID: "sc-1", ContractAmount: d("10000")}
	bills := []*entity.Bill{
		{ID: "b1", CommitmentID: ptr("sc-1"), Amount: d("3000"), Status: entity.BillStatusPaid},
		{ID: "b2", CommitmentID: ptr("sc-1"), Amount: d("2000"), Status: entity.BillStatusRejected},
		{ID: "b3", CommitmentID: ptr("sc-1"), Amount: d("1500"), Status: entity.BillStatusPending},
		{ID: "b4", CommitmentID: ptr("sc-2"), Amount: d("9999"), Status: entity.BillStatusPaid},
		{ID: "b5", Amount: d("1"), Status: entity.BillStatusPaid},
	}

	s := Summarize(c, bills, "")
	assert.True(t, s.PreviouslyBilled.Equal(d("4500")))
	assert.True(t, s.ContractBalance.Equal(d("5500")))
	assert.Equal(t, 3, s.PayNumber)
	assert.False(t, s.Exceeds(d("5500")))
	assert.True(t, s.Exceeds(d("5500.01")))

	editing := Summarize(c, bills, "b3")
	assert.True(t, editing.PreviouslyBilled.Equal(d("3000")))
	assert.Equal(t, 2, editing.PayNumber)
}

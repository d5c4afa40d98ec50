// Package commitment resolves how bills against a subcontract or purchase
// order are coded and summarizes what has been billed so far
package commitment

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/garyjia/sov-billing/internal/domain/amount"
	"github.com/garyjia/sov-billing/internal/domain/entity"
)

// ParseCostDistribution normalizes a stored cost distribution to a list.
// Storage may hand back a decoded array, a JSON string or null; anything
// that cannot be read yields an empty list
func ParseCostDistribution(raw any) []entity.CostDistributionEntry {
	switch v := raw.(type) {
	case nil:
		return []entity.CostDistributionEntry{}
	case []entity.CostDistributionEntry:
		return v
	case string:
		return parseJSON([]byte(v))
	case []byte:
		return parseJSON(v)
	case json.RawMessage:
		return parseJSON(v)
	case []map[string]any:
		out := make([]entity.CostDistributionEntry, 0, len(v))
		for _, m := range v {
			if e, ok := entryFromMap(m); ok {
				out = append(out, e)
			}
		}
		return out
	case []any:
		out := make([]entity.CostDistributionEntry, 0, len(v))
		for _, elem := range v {
			m, ok := elem.(map[string]any)
			if !ok {
				continue
			}
			if e, ok := entryFromMap(m); ok {
				out = append(out, e)
			}
		}
		return out
	default:
		return []entity.CostDistributionEntry{}
	}
}

func parseJSON(b []byte) []entity.CostDistributionEntry {
	text := strings.TrimSpace(string(b))
	if text == "" || text == "null" {
		return []entity.CostDistributionEntry{}
	}

	var decoded any
	dec := json.NewDecoder(strings.NewReader(text))
	dec.UseNumber()
	if err := dec.Decode(&decoded); err != nil {
		return []entity.CostDistributionEntry{}
	}
	// a JSON string holding JSON is unwrapped once
	if s, ok := decoded.(string); ok {
		return parseJSON([]byte(s))
	}
	if _, ok := decoded.([]any); !ok {
		return []entity.CostDistributionEntry{}
	}
	return ParseCostDistribution(decoded)
}

func entryFromMap(m map[string]any) (entity.CostDistributionEntry, bool) {
	var e entity.CostDistributionEntry
	if id := stringValue(m["cost_code_id"]); id != "" {
		e.CostCodeID = &id
	}
	e.CostCode = stringValue(m["cost_code"])
	if e.CostCode == "" {
		e.CostCode = stringValue(m["code"])
	}
	if v, ok := decimalValue(m["amount"]); ok {
		e.Amount = &v
	}
	if v, ok := decimalValue(m["percentage"]); ok {
		e.Percentage = &v
	}
	if e.CostCodeID == nil && e.CostCode == "" && e.Amount == nil && e.Percentage == nil {
		return e, false
	}
	return e, true
}

func stringValue(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case json.Number:
		return t.String()
	case float64:
		return decimal.NewFromFloat(t).String()
	case nil:
		return ""
	default:
		return strings.TrimSpace(fmt.Sprint(t))
	}
}

func decimalValue(v any) (decimal.Decimal, bool) {
	switch t := v.(type) {
	case json.Number:
		d, err := decimal.NewFromString(t.String())
		return d, err == nil
	case float64:
		return decimal.NewFromFloat(t), true
	case int:
		return decimal.NewFromInt(int64(t)), true
	case int64:
		return decimal.NewFromInt(t), true
	case string:
		if strings.TrimSpace(t) == "" {
			return decimal.Zero, false
		}
		d, err := amount.Parse(t)
		return d, err == nil
	default:
		return decimal.Zero, false
	}
}

// Package sovimport turns an uploaded table into candidate SOV line items.
// It has no side effects: callers preview the result and decide whether to
// apply it
package sovimport

import (
	"regexp"
	"strings"
)

// Field names a target column of the import
type Field string

const (
	FieldItemNumber     Field = "item_number"
	FieldDescription    Field = "description"
	FieldScheduledValue Field = "scheduled_value"
)

// ColumnMap assigns a source header to each field. An empty string means
// the field is unmapped ("none")
type ColumnMap struct {
	ItemNumber     string `json:"item_number"`
	Description    string `json:"description"`
	ScheduledValue string `json:"scheduled_value"`
}

// Missing returns the required fields that are still unmapped.
// The item number is optional; unmapped numbers are generated
func (m ColumnMap) Missing() []Field {
	var out []Field
	if m.Description == "" {
		out = append(out, FieldDescription)
	}
	if m.ScheduledValue == "" {
		out = append(out, FieldScheduledValue)
	}
	return out
}

var nonAlphanumeric = regexp.MustCompile(`[^a-z0-9]+`)

// NormalizeHeader lowercases a header and collapses every run of
// non-alphanumerics to a single space
func NormalizeHeader(h string) string {
	return strings.TrimSpace(nonAlphanumeric.ReplaceAllString(strings.ToLower(h), " "))
}

type pattern struct {
	field  Field
	exact  []string
	tokens []string
}

// Exact matches win over token matches. Token matching runs in this order
// so that "item description" resolves to description, not item number
var patterns = []pattern{
	{
		field: FieldScheduledValue,
		exact: []string{"scheduled value", "schedule value", "sched value", "value", "amount", "contract amount",
			"scheduled amount", "budget", "total", "contract value", "sov amount"},
		tokens: []string{"scheduled", "value", "amount", "budget", "total", "price"},
	},
	{
		field:  FieldDescription,
		exact:  []string{"description", "desc", "description of work", "scope", "scope of work", "work description", "name"},
		tokens: []string{"description", "desc", "scope", "work", "name", "title"},
	},
	{
		field:  FieldItemNumber,
		exact:  []string{"item", "item no", "item number", "item num", "no", "number", "line", "line no", "line number", "item id"},
		tokens: []string{"item", "line", "no", "number", "num", "id", "code"},
	},
}

// InferColumns guesses a ColumnMap from the file headers. Headers that match
// nothing are left unassigned and fields that match nothing stay "none" for
// the caller to resolve
func InferColumns(headers []string) ColumnMap {
	assigned := make(map[Field]string)
	used := make(map[int]bool)

	normalized := make([]string, len(headers))
	for i, h := range headers {
		normalized[i] = NormalizeHeader(h)
	}

	for _, p := range patterns {
		for i, n := range normalized {
			if used[i] || n == "" {
				continue
			}
			if contains(p.exact, n) {
				assigned[p.field] = headers[i]
				used[i] = true
				break
			}
		}
	}

	for _, p := range patterns {
		if _, ok := assigned[p.field]; ok {
			continue
		}
	search:
		for i, n := range normalized {
			if used[i] || n == "" {
				continue
			}
			for _, word := range strings.Fields(n) {
				if contains(p.tokens, word) {
					assigned[p.field] = headers[i]
					used[i] = true
					break search
				}
			}
		}
	}

	return ColumnMap{
		ItemNumber:     assigned[FieldItemNumber],
		Description:    assigned[FieldDescription],
		ScheduledValue: assigned[FieldScheduledValue],
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

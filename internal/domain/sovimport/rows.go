package sovimport

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/garyjia/sov-billing/internal/domain/amount"
	"github.com/garyjia/sov-billing/internal/domain/entity"
	"github.com/garyjia/sov-billing/internal/domain/errs"
)

// Mode selects how built rows relate to the existing active set
type Mode string

const (
	ModeAppend  Mode = "append"
	ModeReplace Mode = "replace"
)

// IsValid reports whether m is a known mode
func (m Mode) IsValid() bool {
	return m == ModeAppend || m == ModeReplace
}

// Table is the normalized shape every file reader produces
type Table struct {
	Headers []string            `json:"headers"`
	Rows    []map[string]string `json:"rows"`
}

// BuildRows validates every data row and returns candidate items.
// If any row fails, no items are returned and the error is a
// *errs.ValidationError carrying every problem. Fully blank rows are
// skipped silently. Replace mode never deletes anything itself
func BuildRows(headers []string, rows []map[string]string, cols ColumnMap, mode Mode, existingCount int) ([]*entity.SOVLineItem, error) {
	var problems []errs.Problem

	if !mode.IsValid() {
		problems = append(problems, errs.GeneralProblem("mode", fmt.Sprintf("unknown import mode %q", mode)))
	}
	for _, f := range cols.Missing() {
		problems = append(problems, errs.GeneralProblem(string(f), fmt.Sprintf("column for %s is not mapped", strings.ReplaceAll(string(f), "_", " "))))
	}
	for _, h := range []string{cols.ItemNumber, cols.Description, cols.ScheduledValue} {
		if h != "" && !contains(headers, h) {
			problems = append(problems, errs.GeneralProblem("columns", fmt.Sprintf("mapped column %q is not in the file", h)))
		}
	}
	if len(problems) > 0 {
		return nil, errs.NewValidationError(problems)
	}

	start := 0
	if mode == ModeAppend {
		start = existingCount
	}

	items := make([]*entity.SOVLineItem, 0, len(rows))
	for i, row := range rows {
		// header occupies source row 1
		sourceRow := i + 2

		number := cell(row, cols.ItemNumber)
		desc := cell(row, cols.Description)
		rawValue := cell(row, cols.ScheduledValue)

		if number == "" && desc == "" && rawValue == "" {
			continue
		}

		value, err := amount.ParseField(sourceRow, string(FieldScheduledValue), rawValue)
		if err != nil {
			problems = append(problems, errs.RowProblem(sourceRow, string(FieldScheduledValue),
				fmt.Sprintf("invalid scheduled value '%s'", rawValue)))
		}
		if desc == "" {
			problems = append(problems, errs.RowProblem(sourceRow, string(FieldDescription), "description is required"))
		}
		if err != nil || desc == "" {
			continue
		}

		position := start + len(items)
		item := &entity.SOVLineItem{
			ItemNumber:     number,
			Description:    desc,
			ScheduledValue: value,
			SortOrder:      position,
			WorkflowStatus: entity.WorkflowStatusDraft,
		}
		// generated numbers are fixed at import and never re-derived
		if number == "" {
			item.ItemNumber = strconv.Itoa(position + 1)
		}
		items = append(items, item)
	}

	if len(problems) > 0 {
		return nil, errs.NewValidationError(problems)
	}
	return items, nil
}

func cell(row map[string]string, header string) string {
	if header == "" {
		return ""
	}
	return strings.TrimSpace(row[header])
}

package sov

import (
	"context"
	"strings"

	"github.com/garyjia/sov-billing/internal/domain/entity"
)

// Apply replays a caller's full working set onto the draft as individual
// edits: unknown or empty IDs are added, missing IDs removed, changed items
// updated, and the result put in the working order. Each edit is checked
// against the SOV state, so an approved SOV accepts a working set that only
// renames or reorders lines
func (d *Draft) Apply(ctx context.Context, working []*entity.SOVLineItem) error {
	keep := make(map[string]bool, len(working))
	for _, w := range working {
		if w.ID != "" && d.find(w.ID) != nil {
			keep[w.ID] = true
		}
	}

	var stale []string
	for _, item := range d.items {
		if !keep[item.ID] {
			stale = append(stale, item.ID)
		}
	}
	for _, id := range stale {
		if err := d.RemoveLine(ctx, id); err != nil {
			return err
		}
	}

	order := make([]string, 0, len(working))
	for _, w := range working {
		if !keep[w.ID] {
			added, err := d.AddLine(ctx, LineInput{
				ItemNumber:     manualNumber(w),
				Description:    w.Description,
				ScheduledValue: w.ScheduledValue,
				CostCodeID:     w.CostCodeID,
			})
			if err != nil {
				return err
			}
			order = append(order, added.ID)
			continue
		}

		if upd, changed := diff(d.find(w.ID), w); changed {
			if err := d.UpdateLine(ctx, w.ID, upd); err != nil {
				return err
			}
		}
		order = append(order, w.ID)
	}

	if !sameOrder(d.items, order) {
		return d.Reorder(ctx, order)
	}
	return nil
}

func manualNumber(w *entity.SOVLineItem) string {
	if w.AutoNumbered {
		return ""
	}
	return w.ItemNumber
}

func diff(cur, w *entity.SOVLineItem) (LineUpdate, bool) {
	var upd LineUpdate
	changed := false

	switch num := strings.TrimSpace(w.ItemNumber); {
	case w.AutoNumbered || num == "":
		if !cur.AutoNumbered {
			empty := ""
			upd.ItemNumber = &empty
			changed = true
		}
	case num != cur.ItemNumber:
		upd.ItemNumber = &num
		changed = true
	}
	if desc := strings.TrimSpace(w.Description); desc != cur.Description {
		upd.Description = &desc
		changed = true
	}
	if !w.ScheduledValue.Equal(cur.ScheduledValue) {
		v := w.ScheduledValue
		upd.ScheduledValue = &v
		changed = true
	}
	if code, curCode := deref(w.CostCodeID), deref(cur.CostCodeID); code != curCode {
		upd.CostCodeID = &code
		changed = true
	}
	return upd, changed
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func sameOrder(items []*entity.SOVLineItem, ids []string) bool {
	if len(items) != len(ids) {
		return false
	}
	for i, item := range items {
		if item.ID != ids[i] {
			return false
		}
	}
	return true
}

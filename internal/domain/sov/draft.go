// Package sov holds the Schedule of Values lifecycle rules. A Draft is the
// caller's working copy of a job's active line items; every edit goes
// through the SOV state machine so draft, approved and locked SOVs accept
// exactly the edits their state allows
package sov

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/garyjia/sov-billing/internal/domain/entity"
	"github.com/garyjia/sov-billing/internal/domain/errs"
	"github.com/garyjia/sov-billing/internal/domain/sovimport"
	"github.com/garyjia/sov-billing/internal/domain/workflow"
)

// DefaultApproverRoles may approve an SOV unless configuration overrides them
var DefaultApproverRoles = []string{
	entity.RoleAdmin,
	entity.RoleController,
	entity.RoleCompanyAdmin,
	entity.RoleSuperAdmin,
}

// LineInput describes a new line item
type LineInput struct {
	ItemNumber     string          `json:"item_number"`
	Description    string          `json:"description"`
	ScheduledValue decimal.Decimal `json:"scheduled_value"`
	CostCodeID     *string         `json:"cost_code_id,omitempty"`
}

// LineUpdate carries the fields to change; nil fields are left alone
type LineUpdate struct {
	ItemNumber     *string          `json:"item_number,omitempty"`
	Description    *string          `json:"description,omitempty"`
	ScheduledValue *decimal.Decimal `json:"scheduled_value,omitempty"`
	CostCodeID     *string          `json:"cost_code_id,omitempty"`
}

func (u LineUpdate) financial() bool {
	return u.ScheduledValue != nil || u.CostCodeID != nil
}

// Draft is the working copy of one job's active line items
type Draft struct {
	job       entity.JobKey
	version   int64
	items     []*entity.SOVLineItem
	persisted map[string]bool
	removed   map[string]bool
	dirty     bool
	machine   workflow.StateMachine
}

// NewDraft wraps the stored active set. version is the job's optimistic
// concurrency token; hasDraws is whether any draw exists for the job
func NewDraft(job entity.JobKey, stored []*entity.SOVLineItem, version int64, hasDraws bool) *Draft {
	d := &Draft{
		job:       job,
		version:   version,
		persisted: make(map[string]bool, len(stored)),
		removed:   make(map[string]bool),
	}
	for _, item := range stored {
		c := item.Clone()
		d.items = append(d.items, c)
		d.persisted[c.ID] = true
	}
	sort.SliceStable(d.items, func(i, j int) bool { return d.items[i].SortOrder < d.items[j].SortOrder })
	d.machine = d.newMachine(workflow.Derive(hasDraws, allApproved(d.items)))
	return d
}

func (d *Draft) newMachine(initial workflow.State) workflow.StateMachine {
	b := workflow.NewBuilder()
	approveGuard := func(ctx context.Context) error {
		if len(d.items) == 0 {
			return errs.ErrEmptySOV
		}
		if d.dirty {
			return errs.ErrUnsavedChanges
		}
		return nil
	}

	b.Configure(workflow.StateDraft).
		Permit(workflow.TriggerEdit, workflow.StateDraft).
		Permit(workflow.TriggerEditDetails, workflow.StateDraft).
		Permit(workflow.TriggerSave, workflow.StateDraft).
		PermitIf(workflow.TriggerApprove, workflow.StateApproved, approveGuard).
		RejectWith(errs.ErrSOVNotReady)

	b.Configure(workflow.StateApproved).
		Permit(workflow.TriggerEditDetails, workflow.StateApproved).
		Permit(workflow.TriggerSave, workflow.StateApproved).
		PermitIf(workflow.TriggerApprove, workflow.StateApproved, approveGuard).
		Permit(workflow.TriggerStartDraw, workflow.StateLocked).
		RejectWith(errs.ErrApproved)

	b.Configure(workflow.StateLocked).
		Permit(workflow.TriggerStartDraw, workflow.StateLocked).
		RejectWith(errs.ErrAlreadyLocked)

	return b.Build(initial)
}

// Job returns the job the draft belongs to
func (d *Draft) Job() entity.JobKey { return d.job }

// Version returns the concurrency token the draft was loaded at
func (d *Draft) Version() int64 { return d.version }

// State returns the derived workflow state
func (d *Draft) State() workflow.State { return d.machine.State() }

// IsLocked reports whether a draw exists for the job
func (d *Draft) IsLocked() bool { return d.machine.State() == workflow.StateLocked }

// IsApproved reports whether every active item is approved
func (d *Draft) IsApproved() bool { return allApproved(d.items) }

// Dirty reports whether the draft has edits that were not saved
func (d *Draft) Dirty() bool { return d.dirty }

// Len returns the number of active items
func (d *Draft) Len() int { return len(d.items) }

// TotalScheduledValue sums the active items
func (d *Draft) TotalScheduledValue() decimal.Decimal {
	return Total(d.items)
}

// Items returns copies of the active items in sort order
func (d *Draft) Items() []*entity.SOVLineItem {
	out := make([]*entity.SOVLineItem, len(d.items))
	for i, item := range d.items {
		out[i] = item.Clone()
	}
	return out
}

// RemovedIDs returns the stored IDs that are no longer in the active set.
// Save soft-deletes exactly this set and nothing else
func (d *Draft) RemovedIDs() []string {
	out := make([]string, 0, len(d.removed))
	for id := range d.removed {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// AddLine appends a new draft item
func (d *Draft) AddLine(ctx context.Context, in LineInput) (*entity.SOVLineItem, error) {
	if err := d.machine.Fire(ctx, workflow.TriggerEdit); err != nil {
		return nil, err
	}

	now := time.Now()
	item := &entity.SOVLineItem{
		ID:             uuid.NewString(),
		CompanyID:      d.job.CompanyID,
		JobID:          d.job.JobID,
		ItemNumber:     strings.TrimSpace(in.ItemNumber),
		Description:    strings.TrimSpace(in.Description),
		ScheduledValue: in.ScheduledValue,
		CostCodeID:     in.CostCodeID,
		SortOrder:      len(d.items),
		WorkflowStatus: entity.WorkflowStatusDraft,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if item.ItemNumber == "" {
		item.ItemNumber = strconv.Itoa(item.SortOrder + 1)
		item.AutoNumbered = true
	}

	d.items = append(d.items, item)
	d.dirty = true
	return item.Clone(), nil
}

// UpdateLine edits one item. Value and cost code changes are financial and
// refused once approved; description and number edits are not
func (d *Draft) UpdateLine(ctx context.Context, id string, upd LineUpdate) error {
	trigger := workflow.TriggerEditDetails
	if upd.financial() {
		trigger = workflow.TriggerEdit
	}
	if err := d.machine.Fire(ctx, trigger); err != nil {
		return err
	}

	item := d.find(id)
	if item == nil {
		return fmt.Errorf("line item %s: %w", id, errs.ErrNotFound)
	}

	if upd.ItemNumber != nil {
		item.ItemNumber = strings.TrimSpace(*upd.ItemNumber)
		item.AutoNumbered = item.ItemNumber == ""
		if item.AutoNumbered {
			item.ItemNumber = strconv.Itoa(item.SortOrder + 1)
		}
	}
	if upd.Description != nil {
		item.Description = strings.TrimSpace(*upd.Description)
	}
	if upd.ScheduledValue != nil {
		item.ScheduledValue = *upd.ScheduledValue
	}
	if upd.CostCodeID != nil {
		code := *upd.CostCodeID
		if code == "" {
			item.CostCodeID = nil
		} else {
			item.CostCodeID = &code
		}
	}
	item.UpdatedAt = time.Now()
	d.dirty = true
	return nil
}

// RemoveLine drops one item and renumbers the rest
func (d *Draft) RemoveLine(ctx context.Context, id string) error {
	if err := d.machine.Fire(ctx, workflow.TriggerEdit); err != nil {
		return err
	}

	idx := d.index(id)
	if idx < 0 {
		return fmt.Errorf("line item %s: %w", id, errs.ErrNotFound)
	}
	d.items = append(d.items[:idx], d.items[idx+1:]...)
	if d.persisted[id] {
		d.removed[id] = true
	}
	d.renumber()
	d.dirty = true
	return nil
}

// Reorder sets a new order. ids must name every active item exactly once
func (d *Draft) Reorder(ctx context.Context, ids []string) error {
	if err := d.machine.Fire(ctx, workflow.TriggerEditDetails); err != nil {
		return err
	}
	if len(ids) != len(d.items) {
		return errs.NewValidationError([]errs.Problem{
			errs.GeneralProblem("order", fmt.Sprintf("expected %d item ids, got %d", len(d.items), len(ids))),
		})
	}

	reordered := make([]*entity.SOVLineItem, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	var problems []errs.Problem
	for i, id := range ids {
		item := d.find(id)
		if item == nil || seen[id] {
			problems = append(problems, errs.LineProblem(i, "order", fmt.Sprintf("unknown or repeated item id %q", id)))
			continue
		}
		seen[id] = true
		reordered = append(reordered, item)
	}
	if err := errs.NewValidationError(problems); err != nil {
		return err
	}

	d.items = reordered
	d.renumber()
	d.dirty = true
	return nil
}

// ApplyImport adds rows built by the import resolver. Replace mode drops the
// current active set from the draft; nothing is deleted until Save
func (d *Draft) ApplyImport(ctx context.Context, rows []*entity.SOVLineItem, mode sovimport.Mode) error {
	if err := d.machine.Fire(ctx, workflow.TriggerEdit); err != nil {
		return err
	}
	if !mode.IsValid() {
		return errs.NewValidationError([]errs.Problem{errs.GeneralProblem("mode", fmt.Sprintf("unknown import mode %q", mode))})
	}

	if mode == sovimport.ModeReplace {
		for _, item := range d.items {
			if d.persisted[item.ID] {
				d.removed[item.ID] = true
			}
		}
		d.items = d.items[:0]
	}

	now := time.Now()
	for _, row := range rows {
		c := row.Clone()
		c.ID = uuid.NewString()
		c.CompanyID, c.JobID = d.job.CompanyID, d.job.JobID
		c.WorkflowStatus = entity.WorkflowStatusDraft
		c.CreatedAt, c.UpdatedAt = now, now
		d.items = append(d.items, c)
	}
	d.renumber()
	d.dirty = true
	return nil
}

// CheckSave verifies the draft may be persisted and that every item is
// complete. All incomplete items are reported together
func (d *Draft) CheckSave(ctx context.Context) error {
	if err := d.machine.Fire(ctx, workflow.TriggerSave); err != nil {
		return err
	}
	var problems []errs.Problem
	for i, item := range d.items {
		if strings.TrimSpace(item.Description) == "" {
			problems = append(problems, errs.LineProblem(i, "description", "description is required"))
		}
	}
	return errs.NewValidationError(problems)
}

// MarkDirty records that the caller holds edits that were not saved
func (d *Draft) MarkDirty() { d.dirty = true }

// MarkSaved records a successful save at the new version
func (d *Draft) MarkSaved(version int64) {
	d.version = version
	d.persisted = make(map[string]bool, len(d.items))
	for _, item := range d.items {
		d.persisted[item.ID] = true
	}
	d.removed = make(map[string]bool)
	d.dirty = false
}

// Approve checks, in order, permission, lock, emptiness and unsaved edits,
// then stamps every item approved. It returns false when the SOV was
// already approved and nothing changed
func (d *Draft) Approve(ctx context.Context, actor entity.Actor, approverRoles []string, at time.Time) (bool, error) {
	if !CanApprove(actor, approverRoles) {
		return false, errs.ErrPermissionDenied
	}

	wasApproved := d.machine.State() == workflow.StateApproved
	if err := d.machine.Fire(ctx, workflow.TriggerApprove); err != nil {
		return false, err
	}
	if wasApproved {
		return false, nil
	}

	by := actor.ID
	for _, item := range d.items {
		stamp, who := at, by
		item.WorkflowStatus = entity.WorkflowStatusApproved
		item.ApprovedAt = &stamp
		item.ApprovedBy = &who
		item.UpdatedAt = at
	}
	return true, nil
}

// StartDraw moves an approved SOV to locked. Further draws keep it locked
func (d *Draft) StartDraw(ctx context.Context) error {
	return d.machine.Fire(ctx, workflow.TriggerStartDraw)
}

// renumber makes sort_order dense and re-derives auto item numbers
func (d *Draft) renumber() {
	for i, item := range d.items {
		item.SortOrder = i
		if item.AutoNumbered {
			item.ItemNumber = strconv.Itoa(i + 1)
		}
	}
}

func (d *Draft) find(id string) *entity.SOVLineItem {
	if i := d.index(id); i >= 0 {
		return d.items[i]
	}
	return nil
}

func (d *Draft) index(id string) int {
	for i, item := range d.items {
		if item.ID == id {
			return i
		}
	}
	return -1
}

// Package draw sequences progress-billing draws for a job
package draw

import (
	"fmt"

	"github.com/garyjia/sov-billing/internal/domain/entity"
	"github.com/garyjia/sov-billing/internal/domain/errs"
)

// NextApplicationNumber returns one more than the highest assigned
// application number. Unnumbered draws are ignored and gaps are kept
func NextApplicationNumber(existing []*entity.Draw) int {
	highest := 0
	for _, d := range existing {
		if d.ApplicationNumber != nil && *d.ApplicationNumber > highest {
			highest = *d.ApplicationNumber
		}
	}
	return highest + 1
}

// SOVStatus is the part of the SOV a draw decision depends on
type SOVStatus struct {
	ActiveCount int
	Approved    bool
	Unsaved     bool
}

// CanStartNewDraw reports whether a new draw may be started. Once a job has
// drawn, the SOV is frozen and further draws are always allowed
func CanStartNewDraw(sov SOVStatus, existing []*entity.Draw) bool {
	if len(existing) > 0 {
		return true
	}
	return sov.ActiveCount > 0 && sov.Approved && !sov.Unsaved
}

// HasOpenDraftSlot reports whether no draw is currently in draft status
func HasOpenDraftSlot(existing []*entity.Draw) bool {
	return OpenDraft(existing) == nil
}

// OpenDraft returns the draw currently in draft status, if any
func OpenDraft(existing []*entity.Draw) *entity.Draw {
	for _, d := range existing {
		if d.IsDraft() {
			return d
		}
	}
	return nil
}

// NextDraft builds the virtual next draft draw. It fails when the SOV is not
// ready for a first draw or when a draft draw is already in progress
func NextDraft(job entity.JobKey, sov SOVStatus, existing []*entity.Draw) (*entity.Draw, error) {
	if !CanStartNewDraw(sov, existing) {
		return nil, errs.ErrSOVNotReady
	}
	if open := OpenDraft(existing); open != nil {
		return nil, fmt.Errorf("draw %s is still in draft: %w", open.ID, errs.ErrDraftInProgress)
	}

	n := NextApplicationNumber(existing)
	return &entity.Draw{
		CompanyID:         job.CompanyID,
		JobID:             job.JobID,
		InvoiceNumber:     InvoiceNumber(job, n),
		ApplicationNumber: &n,
		Status:            entity.DrawStatusDraft,
	}, nil
}

// InvoiceNumber is the default invoice number for an application
func InvoiceNumber(job entity.JobKey, application int) string {
	return fmt.Sprintf("%s-%03d", job.JobID, application)
}

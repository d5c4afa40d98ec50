package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/garyjia/sov-billing/internal/application/port"
	"github.com/garyjia/sov-billing/internal/domain/draw"
	"github.com/garyjia/sov-billing/internal/domain/entity"
	"github.com/garyjia/sov-billing/internal/domain/errs"
	"github.com/garyjia/sov-billing/internal/domain/event"
	"github.com/garyjia/sov-billing/internal/domain/sov"
	"github.com/garyjia/sov-billing/internal/domain/sovimport"
	"github.com/garyjia/sov-billing/internal/domain/workflow"
)

// SOVView is a job's Schedule of Values as the caller sees it
type SOVView struct {
	CompanyID    string                `json:"company_id"`
	JobID        string                `json:"job_id"`
	Version      int64                 `json:"version"`
	State        workflow.State        `json:"state"`
	Locked       bool                  `json:"locked"`
	Approved     bool                  `json:"approved"`
	CanStartDraw bool                  `json:"can_start_draw"`
	Total        decimal.Decimal       `json:"total_scheduled_value"`
	Items        []*entity.SOVLineItem `json:"items"`
}

// SaveRequest carries the caller's full working set and the version it was loaded at
type SaveRequest struct {
	Version int64                 `json:"version"`
	Items   []*entity.SOVLineItem `json:"items"`
}

// ApproveRequest carries the version being approved and whether the caller
// still holds unsaved edits
type ApproveRequest struct {
	Version int64 `json:"version"`
	Unsaved bool  `json:"unsaved"`
}

// ImportRequest is an uploaded schedule. Columns may be nil to infer them
type ImportRequest struct {
	FileName string               `json:"file_name"`
	Data     []byte               `json:"-"`
	Columns  *sovimport.ColumnMap `json:"columns,omitempty"`
	Mode     sovimport.Mode       `json:"mode"`
	Version  int64                `json:"version"`
}

// ImportPreview is what an import would add. When Missing is non-empty the
// caller must map those fields before any rows are built
type ImportPreview struct {
	Headers []string              `json:"headers"`
	Columns sovimport.ColumnMap   `json:"columns"`
	Missing []sovimport.Field     `json:"missing"`
	Items   []*entity.SOVLineItem `json:"items"`
	Total   decimal.Decimal       `json:"total"`
}

// SOVService manages a job's Schedule of Values
type SOVService interface {
	Load(ctx context.Context, job entity.JobKey) (*SOVView, error)
	Save(ctx context.Context, actor entity.Actor, job entity.JobKey, req SaveRequest) (*SOVView, error)
	Approve(ctx context.Context, actor entity.Actor, job entity.JobKey, req ApproveRequest) (*SOVView, error)
	PreviewImport(ctx context.Context, job entity.JobKey, req ImportRequest) (*ImportPreview, error)
	Import(ctx context.Context, actor entity.Actor, job entity.JobKey, req ImportRequest) (*SOVView, error)
	Export(ctx context.Context, job entity.JobKey) ([]byte, error)
	History(ctx context.Context, job entity.JobKey, limit int) ([]*event.Event, error)
}

type sovServiceImpl struct {
	sovRepo     port.SOVRepository
	versionRepo port.SOVVersionRepository
	drawRepo    port.DrawRepository
	eventRepo   port.EventRepository
	reader      port.TableReader
	writer      port.TableWriter
	txManager   port.TransactionManager
	publisher   port.EventPublisher
	locks       *sov.LockCache
	policy      Policy
	logger      Logger
}

// NewSOVService creates a new SOVService
func NewSOVService(
	sovRepo port.SOVRepository,
	versionRepo port.SOVVersionRepository,
	drawRepo port.DrawRepository,
	eventRepo port.EventRepository,
	reader port.TableReader,
	writer port.TableWriter,
	txManager port.TransactionManager,
	publisher port.EventPublisher,
	locks *sov.LockCache,
	policy Policy,
	logger Logger,
) SOVService {
	return &sovServiceImpl{
		sovRepo:     sovRepo,
		versionRepo: versionRepo,
		drawRepo:    drawRepo,
		eventRepo:   eventRepo,
		reader:      reader,
		writer:      writer,
		txManager:   txManager,
		publisher:   publisher,
		locks:       locks,
		policy:      policy,
		logger:      logger,
	}
}

// Load returns the job's active set and its derived state
func (s *sovServiceImpl) Load(ctx context.Context, job entity.JobKey) (*SOVView, error) {
	d, err := s.loadDraft(ctx, job)
	if err != nil {
		return nil, err
	}
	draws, err := s.drawRepo.ListByJob(ctx, job)
	if err != nil {
		return nil, fmt.Errorf("failed to list draws: %w", err)
	}
	return newView(d, draws), nil
}

// Save persists the caller's working set: exactly the removed items are
// soft-deleted, the rest are upserted, and the version is bumped
func (s *sovServiceImpl) Save(ctx context.Context, actor entity.Actor, job entity.JobKey, req SaveRequest) (*SOVView, error) {
	var d *sov.Draft
	err := s.txManager.WithTransaction(ctx, func(ctx context.Context) error {
		var err error
		if d, err = s.loadDraft(ctx, job); err != nil {
			return err
		}
		if d.IsLocked() {
			return errs.ErrAlreadyLocked
		}
		if req.Version != d.Version() {
			return fmt.Errorf("sov for %s is at version %d, not %d: %w", job, d.Version(), req.Version, errs.ErrConflict)
		}
		if err := d.Apply(ctx, req.Items); err != nil {
			return err
		}
		return s.persist(ctx, d)
	})
	if err != nil {
		s.logRejected("SOV save rejected", job, err)
		return nil, err
	}

	s.logger.Info("SOV saved", "job", job.String(), "version", d.Version(), "items", d.Len())
	s.publisher.Publish(ctx, event.NewEvent(event.TypeSOVSaved, job, actor, map[string]any{
		"version": d.Version(),
		"items":   d.Len(),
		"total":   d.TotalScheduledValue().String(),
	}))
	return newView(d, nil), nil
}

// Approve stamps every active item approved. Preconditions are checked in
// the order permission, lock, emptiness, unsaved edits
func (s *sovServiceImpl) Approve(ctx context.Context, actor entity.Actor, job entity.JobKey, req ApproveRequest) (*SOVView, error) {
	var d *sov.Draft
	changed := false
	err := s.txManager.WithTransaction(ctx, func(ctx context.Context) error {
		var err error
		if d, err = s.loadDraft(ctx, job); err != nil {
			return err
		}
		if req.Unsaved {
			d.MarkDirty()
		}

		if changed, err = d.Approve(ctx, actor, s.policy.approverRoles(), time.Now()); err != nil {
			return err
		}
		if !changed {
			return nil
		}
		if req.Version != d.Version() {
			return fmt.Errorf("sov for %s is at version %d, not %d: %w", job, d.Version(), req.Version, errs.ErrConflict)
		}
		if err := s.sovRepo.UpsertMany(ctx, d.Items()); err != nil {
			return err
		}
		v, err := s.versionRepo.CompareAndSwap(ctx, job, d.Version())
		if err != nil {
			return err
		}
		d.MarkSaved(v)
		return nil
	})
	if err != nil {
		s.logRejected("SOV approval rejected", job, err)
		return nil, err
	}

	if changed {
		s.logger.Info("SOV approved", "job", job.String(), "approved_by", actor.ID, "items", d.Len())
		s.publisher.Publish(ctx, event.NewEvent(event.TypeSOVApproved, job, actor, map[string]any{
			"version": d.Version(),
			"items":   d.Len(),
			"total":   d.TotalScheduledValue().String(),
		}))
	}
	return newView(d, nil), nil
}

// PreviewImport reads the file and builds candidate rows without saving
func (s *sovServiceImpl) PreviewImport(ctx context.Context, job entity.JobKey, req ImportRequest) (*ImportPreview, error) {
	table, err := s.reader.Read(ctx, req.FileName, req.Data)
	if err != nil {
		return nil, err
	}

	cols := sovimport.InferColumns(table.Headers)
	if req.Columns != nil {
		cols = *req.Columns
	}
	preview := &ImportPreview{
		Headers: table.Headers,
		Columns: cols,
		Missing: cols.Missing(),
		Items:   []*entity.SOVLineItem{},
		Total:   decimal.Zero,
	}
	if len(preview.Missing) > 0 {
		return preview, nil
	}

	existing := 0
	if req.Mode == sovimport.ModeAppend {
		items, err := s.sovRepo.ListActive(ctx, job)
		if err != nil {
			return nil, fmt.Errorf("failed to list sov items: %w", err)
		}
		existing = len(items)
	}

	rows, err := sovimport.BuildRows(table.Headers, table.Rows, cols, req.Mode, existing)
	if err != nil {
		s.logRejected("SOV import preview rejected", job, err)
		return nil, err
	}
	preview.Items = rows
	preview.Total = sov.Total(rows)
	return preview, nil
}

// Import builds rows from the file and saves them in one step. Replace mode
// soft-deletes the previous active set as part of the save
func (s *sovServiceImpl) Import(ctx context.Context, actor entity.Actor, job entity.JobKey, req ImportRequest) (*SOVView, error) {
	table, err := s.reader.Read(ctx, req.FileName, req.Data)
	if err != nil {
		return nil, err
	}
	cols := sovimport.InferColumns(table.Headers)
	if req.Columns != nil {
		cols = *req.Columns
	}

	var d *sov.Draft
	err = s.txManager.WithTransaction(ctx, func(ctx context.Context) error {
		var err error
		if d, err = s.loadDraft(ctx, job); err != nil {
			return err
		}
		if d.IsLocked() {
			return errs.ErrAlreadyLocked
		}
		if req.Version != d.Version() {
			return fmt.Errorf("sov for %s is at version %d, not %d: %w", job, d.Version(), req.Version, errs.ErrConflict)
		}

		existing := 0
		if req.Mode == sovimport.ModeAppend {
			existing = d.Len()
		}
		rows, err := sovimport.BuildRows(table.Headers, table.Rows, cols, req.Mode, existing)
		if err != nil {
			return err
		}
		if err := d.ApplyImport(ctx, rows, req.Mode); err != nil {
			return err
		}
		return s.persist(ctx, d)
	})
	if err != nil {
		s.logRejected("SOV import rejected", job, err)
		return nil, err
	}

	s.logger.Info("SOV imported", "job", job.String(), "mode", string(req.Mode), "items", d.Len())
	s.publisher.Publish(ctx, event.NewEvent(event.TypeSOVSaved, job, actor, map[string]any{
		"version": d.Version(),
		"items":   d.Len(),
		"total":   d.TotalScheduledValue().String(),
		"import":  req.FileName,
		"mode":    string(req.Mode),
	}))
	return newView(d, nil), nil
}

// Export renders the active set as an XLSX workbook with a total row
func (s *sovServiceImpl) Export(ctx context.Context, job entity.JobKey) ([]byte, error) {
	d, err := s.loadDraft(ctx, job)
	if err != nil {
		return nil, err
	}

	rows := make([][]any, 0, d.Len()+1)
	// values are written as numeric cells so the sheet can sum them
	for _, item := range d.Items() {
		rows = append(rows, []any{item.ItemNumber, item.Description, item.ScheduledValue.Round(2).InexactFloat64(), item.WorkflowStatus})
	}
	rows = append(rows, []any{"", "Total", d.TotalScheduledValue().Round(2).InexactFloat64(), string(d.State())})

	return s.writer.Write(ctx, "Schedule of Values", []string{"Item", "Description", "Scheduled Value", "Status"}, rows)
}

// History returns the job's most recent billing events
func (s *sovServiceImpl) History(ctx context.Context, job entity.JobKey, limit int) ([]*event.Event, error) {
	return s.eventRepo.ListByJob(ctx, job, limit)
}

func (s *sovServiceImpl) loadDraft(ctx context.Context, job entity.JobKey) (*sov.Draft, error) {
	locked, err := s.locks.IsLocked(ctx, job)
	if err != nil {
		return nil, fmt.Errorf("failed to check draws: %w", err)
	}
	items, err := s.sovRepo.ListActive(ctx, job)
	if err != nil {
		return nil, fmt.Errorf("failed to list sov items: %w", err)
	}
	version, err := s.versionRepo.Get(ctx, job)
	if err != nil {
		return nil, fmt.Errorf("failed to get sov version: %w", err)
	}
	return sov.NewDraft(job, items, version, locked), nil
}

// persist writes the draft. The soft delete is limited to the draft's
// removed ids and runs before the upsert
func (s *sovServiceImpl) persist(ctx context.Context, d *sov.Draft) error {
	if err := d.CheckSave(ctx); err != nil {
		return err
	}
	if _, err := s.sovRepo.SoftDelete(ctx, d.Job(), d.RemovedIDs(), time.Now()); err != nil {
		return err
	}
	if err := s.sovRepo.UpsertMany(ctx, d.Items()); err != nil {
		return err
	}
	v, err := s.versionRepo.CompareAndSwap(ctx, d.Job(), d.Version())
	if err != nil {
		return err
	}
	d.MarkSaved(v)
	return nil
}

func (s *sovServiceImpl) logRejected(msg string, job entity.JobKey, err error) {
	if errs.Code(err) == "internal_error" {
		s.logger.Error(msg, "job", job.String(), "error", err)
		return
	}
	var verr *errs.ValidationError
	if errors.As(err, &verr) {
		s.logger.Info(msg, "job", job.String(), "reason", errs.Code(err), "problems", len(verr.Problems))
		return
	}
	s.logger.Info(msg, "job", job.String(), "reason", errs.Code(err))
}

func newView(d *sov.Draft, draws []*entity.Draw) *SOVView {
	job := d.Job()
	return &SOVView{
		CompanyID: job.CompanyID,
		JobID:     job.JobID,
		Version:   d.Version(),
		State:     d.State(),
		Locked:    d.IsLocked(),
		Approved:  d.IsApproved(),
		CanStartDraw: draw.CanStartNewDraw(draw.SOVStatus{
			ActiveCount: d.Len(),
			Approved:    d.IsApproved(),
		}, draws) && draw.HasOpenDraftSlot(draws),
		Total: d.TotalScheduledValue(),
		Items: d.Items(),
	}
}

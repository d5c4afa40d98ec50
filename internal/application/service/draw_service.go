package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/garyjia/sov-billing/internal/application/port"
	"github.com/garyjia/sov-billing/internal/domain/draw"
	"github.com/garyjia/sov-billing/internal/domain/entity"
	"github.com/garyjia/sov-billing/internal/domain/errs"
	"github.com/garyjia/sov-billing/internal/domain/event"
	"github.com/garyjia/sov-billing/internal/domain/sov"
)

// CreateDrawRequest creates the job's next draw. ApplicationNumber is the
// number the caller saw; a different next number means someone else drew first
type CreateDrawRequest struct {
	SOVVersion        int64           `json:"sov_version"`
	ApplicationNumber *int            `json:"application_number,omitempty"`
	InvoiceNumber     string          `json:"invoice_number,omitempty"`
	IssueDate         *time.Time      `json:"issue_date,omitempty"`
	TotalAmount       decimal.Decimal `json:"total_amount"`
}

// DrawService sequences progress-billing draws
type DrawService interface {
	List(ctx context.Context, job entity.JobKey) ([]*entity.Draw, error)
	NextDraft(ctx context.Context, job entity.JobKey, unsaved bool) (*entity.Draw, error)
	Create(ctx context.Context, actor entity.Actor, job entity.JobKey, req CreateDrawRequest) (*entity.Draw, error)
}

type drawServiceImpl struct {
	sovRepo     port.SOVRepository
	versionRepo port.SOVVersionRepository
	drawRepo    port.DrawRepository
	txManager   port.TransactionManager
	publisher   port.EventPublisher
	locks       *sov.LockCache
	logger      Logger
}

// NewDrawService creates a new DrawService
func NewDrawService(
	sovRepo port.SOVRepository,
	versionRepo port.SOVVersionRepository,
	drawRepo port.DrawRepository,
	txManager port.TransactionManager,
	publisher port.EventPublisher,
	locks *sov.LockCache,
	logger Logger,
) DrawService {
	return &drawServiceImpl{
		sovRepo:     sovRepo,
		versionRepo: versionRepo,
		drawRepo:    drawRepo,
		txManager:   txManager,
		publisher:   publisher,
		locks:       locks,
		logger:      logger,
	}
}

// List returns the job's draws
func (s *drawServiceImpl) List(ctx context.Context, job entity.JobKey) ([]*entity.Draw, error) {
	draws, err := s.drawRepo.ListByJob(ctx, job)
	if err != nil {
		return nil, fmt.Errorf("failed to list draws: %w", err)
	}
	return draws, nil
}

// NextDraft returns the virtual next draw without creating it
func (s *drawServiceImpl) NextDraft(ctx context.Context, job entity.JobKey, unsaved bool) (*entity.Draw, error) {
	items, err := s.sovRepo.ListActive(ctx, job)
	if err != nil {
		return nil, fmt.Errorf("failed to list sov items: %w", err)
	}
	draws, err := s.List(ctx, job)
	if err != nil {
		return nil, err
	}

	next, err := draw.NextDraft(job, draw.SOVStatus{
		ActiveCount: len(items),
		Approved:    sov.IsApproved(items),
		Unsaved:     unsaved,
	}, draws)
	if err != nil {
		return nil, err
	}
	return next, nil
}

// Create persists the next draw. The first draw locks the SOV, so it also
// takes the SOV version to fence off a concurrent save
func (s *drawServiceImpl) Create(ctx context.Context, actor entity.Actor, job entity.JobKey, req CreateDrawRequest) (*entity.Draw, error) {
	var created *entity.Draw
	first := false
	err := s.txManager.WithTransaction(ctx, func(ctx context.Context) error {
		items, err := s.sovRepo.ListActive(ctx, job)
		if err != nil {
			return fmt.Errorf("failed to list sov items: %w", err)
		}
		draws, err := s.drawRepo.ListByJob(ctx, job)
		if err != nil {
			return fmt.Errorf("failed to list draws: %w", err)
		}

		next, err := draw.NextDraft(job, draw.SOVStatus{
			ActiveCount: len(items),
			Approved:    sov.IsApproved(items),
		}, draws)
		if err != nil {
			return err
		}
		if req.ApplicationNumber != nil && *req.ApplicationNumber != *next.ApplicationNumber {
			return fmt.Errorf("application %d was taken, next is %d: %w",
				*req.ApplicationNumber, *next.ApplicationNumber, errs.ErrConflict)
		}

		if len(draws) == 0 {
			first = true
			version, err := s.versionRepo.Get(ctx, job)
			if err != nil {
				return fmt.Errorf("failed to get sov version: %w", err)
			}
			if req.SOVVersion != version {
				return fmt.Errorf("sov for %s is at version %d, not %d: %w", job, version, req.SOVVersion, errs.ErrConflict)
			}
			d := sov.NewDraft(job, items, version, false)
			if err := d.StartDraw(ctx); err != nil {
				return err
			}
			if _, err := s.versionRepo.CompareAndSwap(ctx, job, version); err != nil {
				return err
			}
		}

		now := time.Now()
		next.ID = uuid.NewString()
		next.IssueDate = req.IssueDate
		next.TotalAmount = req.TotalAmount
		next.CreatedAt = now
		next.UpdatedAt = now
		next.Persisted = true
		if inv := strings.TrimSpace(req.InvoiceNumber); inv != "" {
			next.InvoiceNumber = inv
		}
		if err := s.drawRepo.InsertIfAbsent(ctx, next); err != nil {
			return err
		}
		created = next
		return nil
	})
	if err != nil {
		if errs.Code(err) == "internal_error" {
			s.logger.Error("Draw creation failed", "job", job.String(), "error", err)
		} else {
			s.logger.Info("Draw creation rejected", "job", job.String(), "reason", errs.Code(err))
		}
		return nil, err
	}

	s.locks.MarkLocked(job)
	s.logger.Info("Draw created", "job", job.String(), "draw_id", created.ID,
		"application_number", *created.ApplicationNumber, "locked_sov", first)
	s.publisher.Publish(ctx, event.NewEvent(event.TypeDrawCreated, job, actor, map[string]any{
		"draw_id":            created.ID,
		"application_number": *created.ApplicationNumber,
		"invoice_number":     created.InvoiceNumber,
		"first":              first,
	}))
	return created, nil
}

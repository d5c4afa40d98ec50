package port

import (
	"context"
	"time"

	"github.com/garyjia/sov-billing/internal/domain/entity"
	"github.com/garyjia/sov-billing/internal/domain/event"
)

// SOVRepository stores a job's Schedule of Values line items
type SOVRepository interface {
	// ListActive returns the job's non-deleted items ordered by sort_order
	ListActive(ctx context.Context, job entity.JobKey) ([]*entity.SOVLineItem, error)

	// UpsertMany inserts new items and updates existing ones in place by ID
	UpsertMany(ctx context.Context, items []*entity.SOVLineItem) error

	// SoftDelete marks exactly the given ids deleted and returns how many changed
	SoftDelete(ctx context.Context, job entity.JobKey, ids []string, at time.Time) (int64, error)
}

// SOVVersionRepository holds the per-job optimistic concurrency token
type SOVVersionRepository interface {
	// Get returns the current version, zero when the job has never been saved
	Get(ctx context.Context, job entity.JobKey) (int64, error)

	// CompareAndSwap bumps the version if it still equals expected and returns
	// the new value; a mismatch returns errs.ErrConflict
	CompareAndSwap(ctx context.Context, job entity.JobKey, expected int64) (int64, error)
}

// DrawRepository stores progress-billing draws
type DrawRepository interface {
	ListByJob(ctx context.Context, job entity.JobKey) ([]*entity.Draw, error)
	Exists(ctx context.Context, job entity.JobKey) (bool, error)

	// InsertIfAbsent inserts the draw unless one with the same job and
	// application number exists, in which case it returns errs.ErrConflict
	InsertIfAbsent(ctx context.Context, draw *entity.Draw) error
}

// CommitmentRepository reads subcontracts and purchase orders
type CommitmentRepository interface {
	// GetByID returns errs.ErrNotFound when the commitment does not exist
	GetByID(ctx context.Context, companyID, id string) (*entity.Commitment, error)
}

// CostCodeRepository reads job cost codes
type CostCodeRepository interface {
	ListActive(ctx context.Context, job entity.JobKey) ([]entity.CostCode, error)
}

// BillRepository stores bills and their distribution lines
type BillRepository interface {
	Create(ctx context.Context, bill *entity.Bill) error
	ListByCommitment(ctx context.Context, companyID, commitmentID string) ([]*entity.Bill, error)
}

// EventRepository keeps the billing audit trail
type EventRepository interface {
	Append(ctx context.Context, evt *event.Event) error
	ListByJob(ctx context.Context, job entity.JobKey, limit int) ([]*event.Event, error)
}

// TransactionManager handles database transactions
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

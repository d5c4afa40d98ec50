package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/garyjia/sov-billing/internal/application/port"
	"github.com/garyjia/sov-billing/internal/domain/entity"
	"github.com/garyjia/sov-billing/internal/domain/errs"
)

// SOVVersionRepository implements port.SOVVersionRepository
type SOVVersionRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewSOVVersionRepository creates a new version repository
func NewSOVVersionRepository(db *sql.DB, logger *zap.Logger) port.SOVVersionRepository {
	return &SOVVersionRepository{db: db, logger: logger}
}

// Get returns the job's version, zero when no row exists yet
func (r *SOVVersionRepository) Get(ctx context.Context, job entity.JobKey) (int64, error) {
	var version int64
	err := executor(ctx, r.db).QueryRowContext(ctx,
		`SELECT version FROM sov_versions WHERE company_id = ? AND job_id = ?`,
		job.CompanyID, job.JobID,
	).Scan(&version)

	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get sov version: %w", err)
	}
	return version, nil
}

// CompareAndSwap bumps the version when it still equals expected
func (r *SOVVersionRepository) CompareAndSwap(ctx context.Context, job entity.JobKey, expected int64) (int64, error) {
	exec := executor(ctx, r.db)
	now := time.Now()

	if expected == 0 {
		_, err := exec.ExecContext(ctx,
			`INSERT INTO sov_versions (company_id, job_id, version, updated_at) VALUES (?, ?, 1, ?)`,
			job.CompanyID, job.JobID, now,
		)
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("sov for %s was saved concurrently: %w", job, errs.ErrConflict)
		}
		if err != nil {
			return 0, fmt.Errorf("failed to create sov version: %w", err)
		}
		return 1, nil
	}

	result, err := exec.ExecContext(ctx,
		`UPDATE sov_versions SET version = version + 1, updated_at = ?
		 WHERE company_id = ? AND job_id = ? AND version = ?`,
		now, job.CompanyID, job.JobID, expected,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to bump sov version: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		r.logger.Info("Stale SOV version", zap.String("job", job.String()), zap.Int64("expected", expected))
		return 0, fmt.Errorf("sov for %s changed since version %d: %w", job, expected, errs.ErrConflict)
	}
	return expected + 1, nil
}

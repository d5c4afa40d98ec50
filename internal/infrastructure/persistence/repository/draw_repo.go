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

// DrawRepository implements port.DrawRepository
type DrawRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewDrawRepository creates a new draw repository
func NewDrawRepository(db *sql.DB, logger *zap.Logger) port.DrawRepository {
	return &DrawRepository{db: db, logger: logger}
}

// ListByJob retrieves every draw for a job, oldest application first
func (r *DrawRepository) ListByJob(ctx context.Context, job entity.JobKey) ([]*entity.Draw, error) {
	query := `
		SELECT id, company_id, job_id, invoice_number, application_number, status,
			issue_date, total_amount, created_at, updated_at
		FROM draws
		WHERE company_id = ? AND job_id = ?
		ORDER BY application_number IS NULL, application_number, created_at
	`

	rows, err := executor(ctx, r.db).QueryContext(ctx, query, job.CompanyID, job.JobID)
	if err != nil {
		r.logger.Error("Failed to list draws", zap.String("job", job.String()), zap.Error(err))
		return nil, fmt.Errorf("failed to list draws: %w", err)
	}
	defer rows.Close()

	var draws []*entity.Draw
	for rows.Next() {
		var d entity.Draw
		var appNumber sql.NullInt64
		var issueDate sql.NullTime

		if err := rows.Scan(
			&d.ID,
			&d.CompanyID,
			&d.JobID,
			&d.InvoiceNumber,
			&appNumber,
			&d.Status,
			&issueDate,
			&d.TotalAmount,
			&d.CreatedAt,
			&d.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan draw: %w", err)
		}

		if appNumber.Valid {
			n := int(appNumber.Int64)
			d.ApplicationNumber = &n
		}
		d.IssueDate = timePtr(issueDate)
		d.Persisted = true
		draws = append(draws, &d)
	}

	return draws, rows.Err()
}

// Exists reports whether the job has any draw
func (r *DrawRepository) Exists(ctx context.Context, job entity.JobKey) (bool, error) {
	var one int
	err := executor(ctx, r.db).QueryRowContext(ctx,
		`SELECT 1 FROM draws WHERE company_id = ? AND job_id = ? LIMIT 1`,
		job.CompanyID, job.JobID,
	).Scan(&one)

	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check draws: %w", err)
	}
	return true, nil
}

// InsertIfAbsent relies on UNIQUE(company_id, job_id, application_number)
func (r *DrawRepository) InsertIfAbsent(ctx context.Context, d *entity.Draw) error {
	query := `
		INSERT INTO draws (
			id, company_id, job_id, invoice_number, application_number, status,
			issue_date, total_amount, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	now := time.Now()
	if d.CreatedAt.IsZero() {
		d.CreatedAt = now
	}
	d.UpdatedAt = now

	var appNumber sql.NullInt64
	if d.ApplicationNumber != nil {
		appNumber = sql.NullInt64{Int64: int64(*d.ApplicationNumber), Valid: true}
	}

	_, err := executor(ctx, r.db).ExecContext(ctx, query,
		d.ID,
		d.CompanyID,
		d.JobID,
		d.InvoiceNumber,
		appNumber,
		d.Status,
		nullTime(d.IssueDate),
		d.TotalAmount,
		d.CreatedAt,
		d.UpdatedAt,
	)
	if isUniqueViolation(err) {
		r.logger.Info("Draw already exists",
			zap.String("job", fmt.Sprintf("%s/%s", d.CompanyID, d.JobID)),
			zap.Any("application_number", d.ApplicationNumber))
		return fmt.Errorf("application number already taken: %w", errs.ErrConflict)
	}
	if err != nil {
		r.logger.Error("Failed to insert draw", zap.String("id", d.ID), zap.Error(err))
		return fmt.Errorf("failed to insert draw: %w", err)
	}

	d.Persisted = true
	return nil
}

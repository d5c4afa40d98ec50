package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/garyjia/sov-billing/internal/application/port"
	"github.com/garyjia/sov-billing/internal/domain/entity"
)

// SOVRepository implements port.SOVRepository
type SOVRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewSOVRepository creates a new SOV line item repository
func NewSOVRepository(db *sql.DB, logger *zap.Logger) port.SOVRepository {
	return &SOVRepository{db: db, logger: logger}
}

// ListActive retrieves the job's non-deleted line items in sort order
func (r *SOVRepository) ListActive(ctx context.Context, job entity.JobKey) ([]*entity.SOVLineItem, error) {
	query := `
		SELECT id, company_id, job_id, item_number, description, scheduled_value,
			cost_code_id, sort_order, workflow_status, approved_at, approved_by,
			auto_numbered, created_at, updated_at
		FROM sov_line_items
		WHERE company_id = ? AND job_id = ? AND deleted_at IS NULL
		ORDER BY sort_order, created_at
	`

	rows, err := executor(ctx, r.db).QueryContext(ctx, query, job.CompanyID, job.JobID)
	if err != nil {
		r.logger.Error("Failed to list SOV items", zap.String("job", job.String()), zap.Error(err))
		return nil, fmt.Errorf("failed to list sov items: %w", err)
	}
	defer rows.Close()

	var items []*entity.SOVLineItem
	for rows.Next() {
		var item entity.SOVLineItem
		var costCode, approvedBy sql.NullString
		var approvedAt sql.NullTime

		if err := rows.Scan(
			&item.ID,
			&item.CompanyID,
			&item.JobID,
			&item.ItemNumber,
			&item.Description,
			&item.ScheduledValue,
			&costCode,
			&item.SortOrder,
			&item.WorkflowStatus,
			&approvedAt,
			&approvedBy,
			&item.AutoNumbered,
			&item.CreatedAt,
			&item.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan sov item: %w", err)
		}

		item.CostCodeID = stringPtr(costCode)
		item.ApprovedAt = timePtr(approvedAt)
		item.ApprovedBy = stringPtr(approvedBy)
		items = append(items, &item)
	}

	return items, rows.Err()
}

// UpsertMany inserts new items and updates existing ones by ID
func (r *SOVRepository) UpsertMany(ctx context.Context, items []*entity.SOVLineItem) error {
	query := `
		INSERT INTO sov_line_items (
			id, company_id, job_id, item_number, description, scheduled_value,
			cost_code_id, sort_order, workflow_status, approved_at, approved_by,
			auto_numbered, created_at, updated_at, deleted_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, NULL)
		ON CONFLICT(id) DO UPDATE SET
			item_number = excluded.item_number,
			description = excluded.description,
			scheduled_value = excluded.scheduled_value,
			cost_code_id = excluded.cost_code_id,
			sort_order = excluded.sort_order,
			workflow_status = excluded.workflow_status,
			approved_at = excluded.approved_at,
			approved_by = excluded.approved_by,
			auto_numbered = excluded.auto_numbered,
			updated_at = excluded.updated_at,
			deleted_at = NULL
		WHERE sov_line_items.company_id = excluded.company_id
			AND sov_line_items.job_id = excluded.job_id
	`

	exec := executor(ctx, r.db)
	now := time.Now()
	for _, item := range items {
		if item.CreatedAt.IsZero() {
			item.CreatedAt = now
		}
		if item.UpdatedAt.IsZero() {
			item.UpdatedAt = now
		}

		_, err := exec.ExecContext(ctx, query,
			item.ID,
			item.CompanyID,
			item.JobID,
			item.ItemNumber,
			item.Description,
			item.ScheduledValue,
			nullString(item.CostCodeID),
			item.SortOrder,
			item.WorkflowStatus,
			nullTime(item.ApprovedAt),
			nullString(item.ApprovedBy),
			item.AutoNumbered,
			item.CreatedAt,
			item.UpdatedAt,
		)
		if err != nil {
			r.logger.Error("Failed to upsert SOV item", zap.String("id", item.ID), zap.Error(err))
			return fmt.Errorf("failed to upsert sov item %s: %w", item.ID, err)
		}
	}

	return nil
}

// SoftDelete marks exactly the given ids deleted. Ids outside the job are untouched
func (r *SOVRepository) SoftDelete(ctx context.Context, job entity.JobKey, ids []string, at time.Time) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	query := fmt.Sprintf(`
		UPDATE sov_line_items
		SET deleted_at = ?, updated_at = ?
		WHERE company_id = ? AND job_id = ? AND deleted_at IS NULL AND id IN (%s)
	`, placeholders(len(ids)))

	args := make([]interface{}, 0, len(ids)+4)
	args = append(args, at, at, job.CompanyID, job.JobID)
	for _, id := range ids {
		args = append(args, id)
	}

	result, err := executor(ctx, r.db).ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to soft delete SOV items", zap.String("job", job.String()), zap.Error(err))
		return 0, fmt.Errorf("failed to soft delete sov items: %w", err)
	}

	return result.RowsAffected()
}

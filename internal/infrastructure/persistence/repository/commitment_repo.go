package repository

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/garyjia/sov-billing/internal/application/port"
	"github.com/garyjia/sov-billing/internal/domain/commitment"
	"github.com/garyjia/sov-billing/internal/domain/entity"
	"github.com/garyjia/sov-billing/internal/domain/errs"
)

// CommitmentRepository implements port.CommitmentRepository
type CommitmentRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewCommitmentRepository creates a new commitment repository
func NewCommitmentRepository(db *sql.DB, logger *zap.Logger) port.CommitmentRepository {
	return &CommitmentRepository{db: db, logger: logger}
}

// GetByID retrieves a commitment. The cost_distribution column is stored as
// JSON text and may be NULL; it is normalized to a list here
func (r *CommitmentRepository) GetByID(ctx context.Context, companyID, id string) (*entity.Commitment, error) {
	query := `
		SELECT id, company_id, kind, number, vendor_id, job_id, contract_amount,
			retainage_percentage, cost_distribution, created_at, updated_at
		FROM commitments
		WHERE company_id = ? AND id = ?
	`

	var c entity.Commitment
	var distribution sql.NullString

	err := executor(ctx, r.db).QueryRowContext(ctx, query, companyID, id).Scan(
		&c.ID,
		&c.CompanyID,
		&c.Kind,
		&c.Number,
		&c.VendorID,
		&c.JobID,
		&c.ContractAmount,
		&c.RetainagePercentage,
		&distribution,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("commitment %s: %w", id, errs.ErrNotFound)
	}
	if err != nil {
		r.logger.Error("Failed to get commitment", zap.String("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get commitment: %w", err)
	}

	if distribution.Valid {
		c.CostDistribution = commitment.ParseCostDistribution(distribution.String)
	} else {
		c.CostDistribution = commitment.ParseCostDistribution(nil)
	}
	return &c, nil
}

// CostCodeRepository implements port.CostCodeRepository
type CostCodeRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewCostCodeRepository creates a new cost code repository
func NewCostCodeRepository(db *sql.DB, logger *zap.Logger) port.CostCodeRepository {
	return &CostCodeRepository{db: db, logger: logger}
}

// ListActive retrieves the job's active cost codes
func (r *CostCodeRepository) ListActive(ctx context.Context, job entity.JobKey) ([]entity.CostCode, error) {
	rows, err := executor(ctx, r.db).QueryContext(ctx, `
		SELECT id, company_id, job_id, code, description, active
		FROM cost_codes
		WHERE company_id = ? AND job_id = ? AND active = 1
		ORDER BY code
	`, job.CompanyID, job.JobID)
	if err != nil {
		r.logger.Error("Failed to list cost codes", zap.String("job", job.String()), zap.Error(err))
		return nil, fmt.Errorf("failed to list cost codes: %w", err)
	}
	defer rows.Close()

	var codes []entity.CostCode
	for rows.Next() {
		var cc entity.CostCode
		if err := rows.Scan(&cc.ID, &cc.CompanyID, &cc.JobID, &cc.Code, &cc.Description, &cc.Active); err != nil {
			return nil, fmt.Errorf("failed to scan cost code: %w", err)
		}
		codes = append(codes, cc)
	}
	return codes, rows.Err()
}

package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/garyjia/sov-billing/internal/application/port"
	"github.com/garyjia/sov-billing/internal/domain/entity"
)

// BillRepository implements port.BillRepository
type BillRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewBillRepository creates a new bill repository
func NewBillRepository(db *sql.DB, logger *zap.Logger) port.BillRepository {
	return &BillRepository{db: db, logger: logger}
}

// Create inserts a bill and its distribution lines. Callers wrap it in a
// transaction so a bill never exists without its lines
func (r *BillRepository) Create(ctx context.Context, bill *entity.Bill) error {
	exec := executor(ctx, r.db)
	now := time.Now()
	if bill.ID == "" {
		bill.ID = uuid.NewString()
	}
	bill.CreatedAt, bill.UpdatedAt = now, now

	var payNumber sql.NullInt64
	if bill.PayNumber > 0 {
		payNumber = sql.NullInt64{Int64: int64(bill.PayNumber), Valid: true}
	}

	_, err := exec.ExecContext(ctx, `
		INSERT INTO bills (
			id, company_id, vendor_id, commitment_id, bill_number, amount,
			retainage_percentage, retainage_amount, pending_coding, status,
			pay_number, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		bill.ID,
		bill.CompanyID,
		bill.VendorID,
		nullString(bill.CommitmentID),
		bill.BillNumber,
		bill.Amount,
		bill.RetainagePercentage,
		bill.RetainageAmount,
		bill.PendingCoding,
		bill.Status,
		payNumber,
		bill.CreatedAt,
		bill.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create bill", zap.String("bill_number", bill.BillNumber), zap.Error(err))
		return fmt.Errorf("failed to create bill: %w", err)
	}

	for i := range bill.Lines {
		line := &bill.Lines[i]
		if line.ID == "" {
			line.ID = uuid.NewString()
		}
		_, err := exec.ExecContext(ctx, `
			INSERT INTO bill_lines (
				id, bill_id, line_order, job_id, expense_account_id, cost_code_id, amount, percentage
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`,
			line.ID,
			bill.ID,
			i,
			nullString(line.JobID),
			nullString(line.ExpenseAccountID),
			nullString(line.CostCodeID),
			line.Amount,
			line.Percentage,
		)
		if err != nil {
			r.logger.Error("Failed to create bill line", zap.String("bill_id", bill.ID), zap.Int("line", i), zap.Error(err))
			return fmt.Errorf("failed to create bill line %d: %w", i, err)
		}
	}

	return nil
}

// ListByCommitment retrieves bill headers charged against a commitment
func (r *BillRepository) ListByCommitment(ctx context.Context, companyID, commitmentID string) ([]*entity.Bill, error) {
	rows, err := executor(ctx, r.db).QueryContext(ctx, `
		SELECT id, company_id, vendor_id, commitment_id, bill_number, amount,
			retainage_percentage, retainage_amount, pending_coding, status,
			pay_number, created_at, updated_at
		FROM bills
		WHERE company_id = ? AND commitment_id = ?
		ORDER BY created_at
	`, companyID, commitmentID)
	if err != nil {
		r.logger.Error("Failed to list bills", zap.String("commitment_id", commitmentID), zap.Error(err))
		return nil, fmt.Errorf("failed to list bills: %w", err)
	}
	defer rows.Close()

	var bills []*entity.Bill
	for rows.Next() {
		var b entity.Bill
		var commitmentRef sql.NullString
		var payNumber sql.NullInt64

		if err := rows.Scan(
			&b.ID,
			&b.CompanyID,
			&b.VendorID,
			&commitmentRef,
			&b.BillNumber,
			&b.Amount,
			&b.RetainagePercentage,
			&b.RetainageAmount,
			&b.PendingCoding,
			&b.Status,
			&payNumber,
			&b.CreatedAt,
			&b.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan bill: %w", err)
		}

		b.CommitmentID = stringPtr(commitmentRef)
		b.PayNumber = int(payNumber.Int64)
		bills = append(bills, &b)
	}
	return bills, rows.Err()
}

package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/garyjia/sov-billing/internal/application/port"
	"github.com/garyjia/sov-billing/internal/domain/commitment"
	"github.com/garyjia/sov-billing/internal/domain/distribution"
	"github.com/garyjia/sov-billing/internal/domain/entity"
	"github.com/garyjia/sov-billing/internal/domain/errs"
	"github.com/garyjia/sov-billing/internal/domain/event"
)

// BillRequest is a bill being composed against a commitment
type BillRequest struct {
	CommitmentID string                    `json:"commitment_id"`
	BillNumber   string                    `json:"bill_number"`
	Amount       decimal.Decimal           `json:"amount"`
	Retainage    *decimal.Decimal          `json:"retainage_percentage,omitempty"`
	Lines        []entity.DistributionLine `json:"lines,omitempty"`
}

// SummaryView is the commitment summary plus the candidate amount check
type SummaryView struct {
	commitment.Summary
	OverContract bool `json:"over_contract"`
}

// BillingService codes bills against commitments
type BillingService interface {
	PlanCoding(ctx context.Context, companyID, commitmentID string, billAmount decimal.Decimal) (*commitment.CodingPlan, error)
	Summary(ctx context.Context, companyID, commitmentID, excludeBillID string, candidate decimal.Decimal) (*SummaryView, error)
	ValidateDistribution(lines []entity.DistributionLine, declared decimal.Decimal) distribution.ValidationResult
	SubmitBill(ctx context.Context, actor entity.Actor, companyID string, req BillRequest) (*entity.Bill, error)
}

type billingServiceImpl struct {
	commitmentRepo port.CommitmentRepository
	costCodeRepo   port.CostCodeRepository
	billRepo       port.BillRepository
	txManager      port.TransactionManager
	publisher      port.EventPublisher
	policy         Policy
	logger         Logger
}

// NewBillingService creates a new BillingService
func NewBillingService(
	commitmentRepo port.CommitmentRepository,
	costCodeRepo port.CostCodeRepository,
	billRepo port.BillRepository,
	txManager port.TransactionManager,
	publisher port.EventPublisher,
	policy Policy,
	logger Logger,
) BillingService {
	return &billingServiceImpl{
		commitmentRepo: commitmentRepo,
		costCodeRepo:   costCodeRepo,
		billRepo:       billRepo,
		txManager:      txManager,
		publisher:      publisher,
		policy:         policy,
		logger:         logger,
	}
}

// PlanCoding resolves how a bill of billAmount against the commitment is coded
func (s *billingServiceImpl) PlanCoding(ctx context.Context, companyID, commitmentID string, billAmount decimal.Decimal) (*commitment.CodingPlan, error) {
	c, codes, err := s.loadCommitment(ctx, companyID, commitmentID)
	if err != nil {
		return nil, err
	}
	plan := commitment.Resolve(c, billAmount, codes)
	return &plan, nil
}

// Summary totals prior billing, leaving out the bill being edited
func (s *billingServiceImpl) Summary(ctx context.Context, companyID, commitmentID, excludeBillID string, candidate decimal.Decimal) (*SummaryView, error) {
	c, err := s.commitmentRepo.GetByID(ctx, companyID, commitmentID)
	if err != nil {
		return nil, err
	}
	bills, err := s.billRepo.ListByCommitment(ctx, companyID, commitmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list bills: %w", err)
	}
	sum := commitment.Summarize(c, bills, excludeBillID)
	return &SummaryView{Summary: sum, OverContract: sum.Exceeds(candidate)}, nil
}

// ValidateDistribution checks lines against the declared total
func (s *billingServiceImpl) ValidateDistribution(lines []entity.DistributionLine, declared decimal.Decimal) distribution.ValidationResult {
	return distribution.ValidateWithin(lines, declared, s.policy.SumTolerance)
}

// SubmitBill codes and stores a bill. Bills whose code cannot be resolved
// are stored pending coding instead of being rejected
func (s *billingServiceImpl) SubmitBill(ctx context.Context, actor entity.Actor, companyID string, req BillRequest) (*entity.Bill, error) {
	if !req.Amount.IsPositive() {
		return nil, errs.NewValidationError([]errs.Problem{
			errs.GeneralProblem("amount", "amount must be greater than zero"),
		})
	}

	c, codes, err := s.loadCommitment(ctx, companyID, req.CommitmentID)
	if err != nil {
		return nil, err
	}

	var bill *entity.Bill
	err = s.txManager.WithTransaction(ctx, func(ctx context.Context) error {
		bills, err := s.billRepo.ListByCommitment(ctx, companyID, c.ID)
		if err != nil {
			return fmt.Errorf("failed to list bills: %w", err)
		}
		sum := commitment.Summarize(c, bills, "")
		if sum.Exceeds(req.Amount) {
			if s.policy.Balance == BalanceBlock {
				return fmt.Errorf("bill of %s against balance %s: %w",
					req.Amount.StringFixed(2), sum.ContractBalance.StringFixed(2), errs.ErrOverContract)
			}
			s.logger.Info("Bill exceeds contract balance", "commitment_id", c.ID,
				"amount", req.Amount.String(), "balance", sum.ContractBalance.String())
		}

		bill, err = s.composeBill(c, codes, companyID, req)
		if err != nil {
			return err
		}
		bill.PayNumber = sum.PayNumber
		return s.billRepo.Create(ctx, bill)
	})
	if err != nil {
		if errs.Code(err) == "internal_error" {
			s.logger.Error("Bill submission failed", "commitment_id", req.CommitmentID, "error", err)
		} else {
			s.logger.Info("Bill submission rejected", "commitment_id", req.CommitmentID, "reason", errs.Code(err))
		}
		return nil, err
	}

	s.logger.Info("Bill submitted", "bill_id", bill.ID, "commitment_id", c.ID,
		"pay_number", bill.PayNumber, "pending_coding", bill.PendingCoding)
	job := entity.JobKey{CompanyID: companyID, JobID: c.JobID}
	s.publisher.Publish(ctx, event.NewEvent(event.TypeBillSubmitted, job, actor, map[string]any{
		"bill_id":        bill.ID,
		"commitment_id":  c.ID,
		"amount":         bill.Amount.String(),
		"pay_number":     bill.PayNumber,
		"pending_coding": bill.PendingCoding,
	}))
	return bill, nil
}

func (s *billingServiceImpl) composeBill(c *entity.Commitment, codes []entity.CostCode, companyID string, req BillRequest) (*entity.Bill, error) {
	commitmentID := c.ID
	now := time.Now()
	bill := &entity.Bill{
		CompanyID:    companyID,
		VendorID:     c.VendorID,
		CommitmentID: &commitmentID,
		BillNumber:   strings.TrimSpace(req.BillNumber),
		Status:       entity.BillStatusPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	pct := c.RetainagePercentage
	if req.Retainage != nil {
		pct = *req.Retainage
	}
	bill.SetRetainagePercentage(pct)
	bill.SetAmount(req.Amount)

	plan := commitment.Resolve(c, req.Amount, codes)
	lines := req.Lines
	switch plan.Mode {
	case commitment.ModeAutoApply:
		if len(lines) == 0 {
			jobID := c.JobID
			lines = []entity.DistributionLine{{JobID: &jobID, CostCodeID: plan.CostCodeID, Amount: req.Amount}}
		}
		bill.PendingCoding = plan.Unresolved() && len(req.Lines) == 0
	case commitment.ModeNeedsDistribution:
		// plan.Lines is only a suggestion; lines must come from the caller
		bill.PendingCoding = len(lines) == 0
	case commitment.ModeUncoded:
		bill.PendingCoding = len(lines) == 0
	}

	if len(lines) > 0 {
		if err := distribution.ValidateWithin(lines, req.Amount, s.policy.SumTolerance).Err(); err != nil {
			return nil, err
		}
		lines = append([]entity.DistributionLine(nil), lines...)
		distribution.Normalize(lines)
		distribution.AnnotatePercentages(lines, req.Amount)
	}
	bill.Lines = lines
	return bill, nil
}

func (s *billingServiceImpl) loadCommitment(ctx context.Context, companyID, commitmentID string) (*entity.Commitment, []entity.CostCode, error) {
	c, err := s.commitmentRepo.GetByID(ctx, companyID, commitmentID)
	if err != nil {
		return nil, nil, err
	}
	codes, err := s.costCodeRepo.ListActive(ctx, entity.JobKey{CompanyID: companyID, JobID: c.JobID})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list cost codes: %w", err)
	}
	return c, codes, nil
}

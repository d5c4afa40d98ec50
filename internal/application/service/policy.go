package service

import (
	"github.com/shopspring/decimal"

	"github.com/garyjia/sov-billing/internal/domain/distribution"
	"github.com/garyjia/sov-billing/internal/domain/sov"
)

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// BalancePolicy decides what happens when a bill exceeds its commitment's
// remaining balance
type BalancePolicy string

const (
	// BalanceWarn flags the bill but lets it through
	BalanceWarn BalancePolicy = "warn"
	// BalanceBlock rejects the bill with errs.ErrOverContract
	BalanceBlock BalancePolicy = "block"
)

// Policy holds the configurable billing rules
type Policy struct {
	ApproverRoles []string
	SumTolerance  decimal.Decimal
	Balance       BalancePolicy
}

// DefaultPolicy matches the documented defaults
func DefaultPolicy() Policy {
	return Policy{
		ApproverRoles: append([]string(nil), sov.DefaultApproverRoles...),
		SumTolerance:  distribution.Tolerance,
		Balance:       BalanceWarn,
	}
}

func (p Policy) approverRoles() []string {
	if len(p.ApproverRoles) == 0 {
		return sov.DefaultApproverRoles
	}
	return p.ApproverRoles
}

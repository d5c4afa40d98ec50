package sov

import (
	"github.com/shopspring/decimal"

	"github.com/garyjia/sov-billing/internal/domain/entity"
)

// CanApprove reports whether the actor holds one of the approver roles
func CanApprove(actor entity.Actor, approverRoles []string) bool {
	for _, r := range approverRoles {
		if actor.Role == r {
			return true
		}
	}
	return false
}

// Total sums the scheduled values of items
func Total(items []*entity.SOVLineItem) decimal.Decimal {
	sum := decimal.Zero
	for _, item := range items {
		sum = sum.Add(item.ScheduledValue)
	}
	return sum
}

func allApproved(items []*entity.SOVLineItem) bool {
	if len(items) == 0 {
		return false
	}
	for _, item := range items {
		if !item.IsApproved() {
			return false
		}
	}
	return true
}

// IsApproved reports whether a non-empty active set is fully approved
func IsApproved(items []*entity.SOVLineItem) bool {
	return allApproved(items)
}

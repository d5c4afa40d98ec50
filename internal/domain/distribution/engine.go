// Package distribution reconciles a bill's distribution lines against its
// declared total
package distribution

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/garyjia/sov-billing/internal/domain/entity"
	"github.com/garyjia/sov-billing/internal/domain/errs"
)

// Tolerance is the largest absolute difference between the declared total
// and the sum of lines that still counts as a match. It must not be widened
var Tolerance = decimal.RequireFromString("0.01")

var hundred = decimal.NewFromInt(100)

// ValidationResult is the outcome of Validate
type ValidationResult struct {
	Valid    bool           `json:"valid"`
	Reasons  []string       `json:"reasons"`
	Problems []errs.Problem `json:"-"`
}

// Err returns the result as a validation error, or nil when valid
func (r ValidationResult) Err() error {
	if r.Valid {
		return nil
	}
	return errs.NewValidationError(r.Problems)
}

// Validate checks that every line has a target and a positive amount and
// that the lines sum to declared within Tolerance
func Validate(lines []entity.DistributionLine, declared decimal.Decimal) ValidationResult {
	return ValidateWithin(lines, declared, Tolerance)
}

// ValidateWithin is Validate with a tighter tolerance. A tolerance wider than
// Tolerance, or not positive, is replaced by Tolerance
func ValidateWithin(lines []entity.DistributionLine, declared, tolerance decimal.Decimal) ValidationResult {
	if tolerance.LessThanOrEqual(decimal.Zero) || tolerance.GreaterThan(Tolerance) {
		tolerance = Tolerance
	}

	var problems []errs.Problem
	sum := decimal.Zero
	for i := range lines {
		line := &lines[i]
		if !line.HasTarget() {
			problems = append(problems, errs.LineProblem(i, "target", "choose exactly one job or expense account"))
		}
		if !line.Amount.IsPositive() {
			problems = append(problems, errs.LineProblem(i, "amount", "amount must be greater than zero"))
		}
		sum = sum.Add(line.Amount)
	}

	diff := declared.Sub(sum).Abs()
	if !diff.LessThan(tolerance) {
		problems = append(problems, errs.GeneralProblem("amount", fmt.Sprintf(
			"distributed %s does not match bill total %s (off by %s)",
			sum.StringFixed(2), declared.StringFixed(2), diff.StringFixed(2))))
	}

	res := ValidationResult{Valid: len(problems) == 0, Reasons: []string{}, Problems: problems}
	for _, p := range problems {
		res.Reasons = append(res.Reasons, p.String())
	}
	return res
}

// Normalize clears cost codes on expense-account lines, which never carry one
func Normalize(lines []entity.DistributionLine) {
	for i := range lines {
		if !lines[i].TargetsJob() {
			lines[i].CostCodeID = nil
		}
	}
}

// AnnotatePercentages records each line's share of declared for reporting.
// Amounts are never derived back from these percentages
func AnnotatePercentages(lines []entity.DistributionLine, declared decimal.Decimal) {
	for i := range lines {
		if declared.IsZero() {
			lines[i].Percentage = decimal.Zero
			continue
		}
		lines[i].Percentage = lines[i].Amount.Div(declared).Mul(hundred).Round(4)
	}
}

// Split divides total across weights proportionally, rounded to cents. The
// rounding remainder lands on the last share so the shares sum to total.
// Zero total weight splits evenly
func Split(total decimal.Decimal, weights []decimal.Decimal) []decimal.Decimal {
	if len(weights) == 0 {
		return nil
	}

	sumWeights := decimal.Zero
	for _, w := range weights {
		sumWeights = sumWeights.Add(w)
	}

	out := make([]decimal.Decimal, len(weights))
	allocated := decimal.Zero
	for i, w := range weights {
		if i == len(weights)-1 {
			out[i] = total.Sub(allocated)
			break
		}
		var share decimal.Decimal
		if sumWeights.IsZero() {
			share = total.Div(decimal.NewFromInt(int64(len(weights)))).Round(2)
		} else {
			share = total.Mul(w).Div(sumWeights).Round(2)
		}
		out[i] = share
		allocated = allocated.Add(share)
	}
	return out
}

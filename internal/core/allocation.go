package core

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// AllocationRule assigns a share of weekly income to a bucket.
type AllocationRule struct {
	Bucket  Bucket
	Percent decimal.Decimal
}

// Allocation is the computed share of one bucket.
type Allocation struct {
	Bucket  Bucket          `json:"bucket"`
	Percent decimal.Decimal `json:"percent"`
	Amount  Money           `json:"amount"`
}

// DefaultAllocation is the fixed split. The last rule is the remainder
// bucket: it receives whatever the others leave, so its nominal percent
// is informational only.
var DefaultAllocation = []AllocationRule{
	{Bucket: BucketSave, Percent: decimal.RequireFromString("0.15")},
	{Bucket: BucketWants, Percent: decimal.RequireFromString("0.15")},
	{Bucket: BucketEmergency, Percent: decimal.RequireFromString("0.10")},
	{Bucket: BucketStudentLoans, Percent: decimal.RequireFromString("0.25")},
	{Bucket: BucketExpenses, Percent: decimal.RequireFromString("0.30")},
}

// Allocate splits income across the buckets using DefaultAllocation.
// The result always sums exactly to income.
func Allocate(income Money) ([]Allocation, error) {
	return AllocateWith(income, DefaultAllocation)
}

// AllocateWith splits income using rules. Every rule but the last gets
// round(income * percent) in cents, half away from zero; the last one
// gets the remainder.
func AllocateWith(income Money, rules []AllocationRule) ([]Allocation, error) {
	if income.Cents <= 0 {
		return nil, ErrInvalidAmount
	}
	if err := validateRules(rules); err != nil {
		return nil, err
	}

	total := decimal.NewFromInt(income.Cents)
	out := make([]Allocation, 0, len(rules))
	var assigned int64
	last := len(rules) - 1
	for i, r := range rules {
		var cents int64
		if i == last {
			cents = income.Cents - assigned
		} else {
			cents = total.Mul(r.Percent).Round(0).IntPart()
			assigned += cents
		}
		out = append(out, Allocation{Bucket: r.Bucket, Percent: r.Percent, Amount: Cents(cents)})
	}
	return out, nil
}

// AllocateFloat is the decimal-amount convenience form of Allocate.
func AllocateFloat(income float64) ([]Allocation, error) {
	m, err := MoneyFromFloat(income)
	if err != nil {
		return nil, err
	}
	return Allocate(m)
}

// BuildBudgets turns the allocation of income into budget rows for a week.
func BuildBudgets(userID string, weekStart Date, income Money) ([]Budget, error) {
	if err := validateUser(userID); err != nil {
		return nil, err
	}
	allocs, err := Allocate(income)
	if err != nil {
		return nil, err
	}
	budgets := make([]Budget, len(allocs))
	for i, a := range allocs {
		budgets[i] = Budget{UserID: userID, WeekStart: weekStart, Bucket: a.Bucket, Amount: a.Amount}
	}
	return budgets, nil
}

func validateRules(rules []AllocationRule) error {
	if len(rules) == 0 {
		return Validationf("no allocation rules")
	}
	one := decimal.NewFromInt(1)
	sum := decimal.Zero
	seen := make(map[Bucket]bool, len(rules))
	for i, r := range rules {
		if !r.Bucket.Valid() {
			return fmt.Errorf("rule %d: %w", i, ErrUnknownBucket)
		}
		if seen[r.Bucket] {
			return Validationf("bucket %s allocated twice", r.Bucket)
		}
		seen[r.Bucket] = true
		if r.Percent.IsNegative() || r.Percent.GreaterThan(one) {
			return Validationf("percent for %s out of range", r.Bucket)
		}
		if i < len(rules)-1 {
			sum = sum.Add(r.Percent)
		}
	}
	if sum.GreaterThan(one) {
		return Validationf("allocation percentages exceed 100%%")
	}
	return nil
}

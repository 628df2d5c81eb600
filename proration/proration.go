// Package proration computes mid-cycle plan change amounts.
//
// Both functions price each plan by a daily rate, price / totalDays, where
// totalDays is the billing duration of the plan being switched to. The
// results are not rounded; callers round when persisting.
package proration

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// ErrInvalidCycle is returned when the billing cycle length is not positive.
var ErrInvalidCycle = errors.New("proration: billing cycle must be at least one day")

const day = 24 * time.Hour

// UpgradeCost splits a mid-cycle upgrade into the usage of the old plan so
// far and the remainder of the cycle on the new plan.
type UpgradeCost struct {
	OldPlanCost decimal.Decimal
	NewPlanCost decimal.Decimal
}

// Total is the amount to invoice for the upgrade, before credits.
func (c UpgradeCost) Total() decimal.Decimal {
	return c.OldPlanCost.Add(c.NewPlanCost)
}

// Upgrade prices daysUsed days on the old plan plus the remaining
// totalDays-daysUsed days on the new one. Day counts outside [0, totalDays]
// are not rejected and yield proportionally extrapolated costs.
func Upgrade(oldPrice, newPrice decimal.Decimal, daysUsed, totalDays int) (UpgradeCost, error) {
	if totalDays <= 0 {
		return UpgradeCost{}, ErrInvalidCycle
	}
	total := decimal.NewFromInt(int64(totalDays))
	used := decimal.NewFromInt(int64(daysUsed))
	remaining := decimal.NewFromInt(int64(totalDays - daysUsed))

	return UpgradeCost{
		OldPlanCost: oldPrice.Mul(used).Div(total),
		NewPlanCost: newPrice.Mul(remaining).Div(total),
	}, nil
}

// DowngradeCredit returns the daily rate difference between the old and new
// plans over daysRemaining days. It is negative when the new plan is the
// more expensive one; callers decide how to floor it.
func DowngradeCredit(oldPrice, newPrice decimal.Decimal, daysRemaining, totalDays int) (decimal.Decimal, error) {
	if totalDays <= 0 {
		return decimal.Zero, ErrInvalidCycle
	}
	total := decimal.NewFromInt(int64(totalDays))
	return oldPrice.Sub(newPrice).Mul(decimal.NewFromInt(int64(daysRemaining))).Div(total), nil
}

// DaysElapsed counts whole days from start to now, dropping any partial
// day. Spans where now precedes start floor toward negative infinity.
func DaysElapsed(start, now time.Time) int {
	d := now.Sub(start)
	n := d / day
	if d%day < 0 {
		n--
	}
	return int(n)
}

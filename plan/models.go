package plan

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/xraph/cadence/id"
	"github.com/xraph/cadence/types"
)

type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

// Plan is a catalog entry: a price charged once per billing period.
type Plan struct {
	types.Entity
	ID                  id.PlanID       `json:"id"`
	Name                string          `json:"name"`
	BillingDurationDays int             `json:"billing_duration"`
	Price               decimal.Decimal `json:"price"`
	Status              Status          `json:"status"`
}

// NextBillingDate returns the end of a period that starts at start.
func (p *Plan) NextBillingDate(start time.Time) time.Time {
	return start.AddDate(0, 0, p.BillingDurationDays)
}

package customer

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/xraph/cadence/id"
	"github.com/xraph/cadence/types"
)

type Status string

const (
	StatusActive    Status = "active"
	StatusCancelled Status = "cancelled"
)

// Customer is a billable party subscribed to exactly one plan.
//
// NextBillingDate is BillingStartDate plus the plan's billing duration as of
// the moment the window was last set. Credits is a non-negative balance that
// is consumed in full by the next invoice.
type Customer struct {
	types.Entity
	ID               id.CustomerID   `json:"id"`
	Name             string          `json:"name"`
	Email            string          `json:"email"`
	PlanID           id.PlanID       `json:"subscription_plan_id"`
	Status           Status          `json:"subscription_status"`
	BillingStartDate time.Time       `json:"billing_start_date"`
	NextBillingDate  time.Time       `json:"next_billing_date"`
	Credits          decimal.Decimal `json:"credits"`
}

// IsDue reports whether the customer should be invoiced by a billing sweep
// at now.
func (c *Customer) IsDue(now time.Time) bool {
	return c.Status == StatusActive && !now.Before(c.NextBillingDate)
}

// ResetWindow restarts the billing window at now for a period of days.
func (c *Customer) ResetWindow(now time.Time, days int) {
	c.BillingStartDate = now
	c.NextBillingDate = now.AddDate(0, 0, days)
}

// Page is one slice of a customer listing. An empty NextCursor means the
// listing is exhausted.
type Page struct {
	Customers  []*Customer `json:"docs"`
	NextCursor string      `json:"cursor,omitempty"`
}

package invoice

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/xraph/cadence/id"
	"github.com/xraph/cadence/types"
)

type Status string

const (
	StatusGenerated Status = "generated"
	StatusPaid      Status = "paid"
	StatusFailed    Status = "failed"
)

type Invoice struct {
	types.Entity
	ID             id.InvoiceID     `json:"id"`
	CustomerID     id.CustomerID    `json:"customer_id"`
	Amount         decimal.Decimal  `json:"amount"`
	DueDate        time.Time        `json:"due_date"`
	PaymentStatus  Status           `json:"payment_status"`
	PaymentDate    *time.Time       `json:"payment_date,omitempty"`
	IsProrated     bool             `json:"is_prorated"`
	CreditsApplied *decimal.Decimal `json:"credits_applied,omitempty"`
}

// IsPaid reports whether the invoice has been settled.
func (i *Invoice) IsPaid() bool { return i.PaymentStatus == StatusPaid }

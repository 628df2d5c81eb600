package payment

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/xraph/cadence/id"
)

type Method string

const (
	MethodCreditCard Method = "credit_card"
	MethodPayPal     Method = "paypal"
	MethodOther      Method = "other"
)

// Valid reports whether m is a known payment method.
func (m Method) Valid() bool {
	switch m {
	case MethodCreditCard, MethodPayPal, MethodOther:
		return true
	}
	return false
}

// Payment records a settled invoice. It is written once and never updated.
type Payment struct {
	ID          id.PaymentID    `json:"id"`
	InvoiceID   id.InvoiceID    `json:"invoice_id"`
	Amount      decimal.Decimal `json:"amount"`
	Method      Method          `json:"payment_method"`
	PaymentDate time.Time       `json:"payment_date"`
}

package payment

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/xraph/cadence/id"
)

// Charge is a request to collect an invoice amount.
type Charge struct {
	InvoiceID id.InvoiceID
	Amount    decimal.Decimal
	Method    Method
}

// Gateway collects payment for a charge. It reports whether the charge was
// approved; a non-nil error means the outcome is unknown.
type Gateway interface {
	Charge(ctx context.Context, c Charge) (approved bool, err error)
}

// GatewayFunc adapts a function to a Gateway.
type GatewayFunc func(ctx context.Context, c Charge) (bool, error)

// Charge implements Gateway.
func (f GatewayFunc) Charge(ctx context.Context, c Charge) (bool, error) {
	return f(ctx, c)
}

// ApproveAll is the simulated gateway: every charge succeeds.
var ApproveAll Gateway = GatewayFunc(func(context.Context, Charge) (bool, error) {
	return true, nil
})

// DeclineAll rejects every charge.
var DeclineAll Gateway = GatewayFunc(func(context.Context, Charge) (bool, error) {
	return false, nil
})

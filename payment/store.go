package payment

import (
	"context"

	"github.com/xraph/cadence/id"
)

type Store interface {
	Create(ctx context.Context, p *Payment) error
	ListByInvoice(ctx context.Context, invID id.InvoiceID) ([]*Payment, error)
}

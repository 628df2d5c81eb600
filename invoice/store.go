package invoice

import (
	"context"
	"time"

	"github.com/xraph/cadence/id"
)

type Store interface {
	Create(ctx context.Context, inv *Invoice) error
	Get(ctx context.Context, invID id.InvoiceID) (*Invoice, error)
	List(ctx context.Context, opts ListOpts) ([]*Invoice, error)
	MarkPaid(ctx context.Context, invID id.InvoiceID, paidAt time.Time) error
	MarkFailed(ctx context.Context, invID id.InvoiceID) error
	Delete(ctx context.Context, invID id.InvoiceID) error
}

// ListOpts filters an invoice listing. Zero fields match everything.
type ListOpts struct {
	CustomerID id.CustomerID
	Status     Status
	Limit      int
	Offset     int
}

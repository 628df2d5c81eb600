package customer

import (
	"context"

	"github.com/xraph/cadence/id"
)

// Store persists customers.
//
// List pages through every customer. The cursor is opaque to callers: pass
// "" for the first page and the returned NextCursor afterwards. Backends may
// visit a customer inserted during iteration zero or one times, and may
// return a customer twice; callers must tolerate both.
type Store interface {
	Create(ctx context.Context, c *Customer) error
	Get(ctx context.Context, customerID id.CustomerID) (*Customer, error)
	Update(ctx context.Context, c *Customer) error
	List(ctx context.Context, cursor string, limit int) (*Page, error)
}

// Package cadence provides a subscription billing engine for Go applications.
//
// Cadence is designed as a library, not a service. Import it directly into your
// Go application, or run cmd/cadence for the bundled HTTP API. It provides:
//
//   - A plan catalog with fixed-price, fixed-length billing cycles
//   - Customers subscribed to exactly one plan at a time
//   - Prorated upgrades billed on the spot and downgrades paid out as credit
//   - Scheduled recurring invoicing that consumes credit balances
//   - Payment settlement with retry of failed invoices
//   - Email notifications for invoices and payment outcomes
//
// # Quick Start
//
//	import (
//	    "github.com/xraph/cadence"
//	    "github.com/xraph/cadence/store/memory"
//	)
//
//	engine := cadence.New(memory.New())
//	if err := engine.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer engine.Stop()
//
//	basic, _ := engine.CreatePlan(ctx, "Basic", 30, decimal.NewFromInt(50))
//	c, _ := engine.CreateCustomerWithSubscription(ctx, "Ada", "ada@example.com", basic.ID)
//
// # Mid-cycle changes
//
// Upgrade charges the days already used at the old plan's daily rate and the
// rest of the cycle at the new plan's rate, then restarts the billing window:
//
//	pro, _ := engine.CreatePlan(ctx, "Pro", 30, decimal.NewFromInt(100))
//	inv, err := engine.Upgrade(ctx, c.ID, pro.ID)
//
// Downgrade credits the unused difference to the customer. Credits are
// consumed in full by the next invoice.
//
// # Sweeps
//
// RunRecurringInvoices and ReprocessFailedPayments are meant to run on a
// schedule; see the scheduler package. Both isolate failures per record and
// return a report.
//
// # Money
//
// Amounts are shopspring decimals rounded half away from zero to two places
// whenever they are stored on an invoice or credit balance.
//
// # TypeID
//
// All entities use TypeID for globally unique, type-safe identifiers:
//
//	plan_01h2xcejqtf2nbrexx3vqjhp41  // Plan ID
//	cus_01h2xcejqtf2nbrexx3vqjhp41   // Customer ID
//	inv_01h455vb4pex5vsknk084sn02q   // Invoice ID
//	pay_01h455vb4pex5vsknk084sn02q   // Payment ID
package cadence

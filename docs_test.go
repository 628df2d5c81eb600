package cadence_test

import (
	"context"
	"log"
	"log/slog"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/xraph/cadence"
	"github.com/xraph/cadence/payment"
	"github.com/xraph/cadence/store/memory"
	"github.com/xraph/cadence/types"
)

// TestDocumentationExamples verifies that all examples in the documentation compile
func TestDocumentationExamples(t *testing.T) {
	// Test Quick Start example from the package docs
	t.Run("QuickStartExample", func(t *testing.T) {
		// Create store (memory for demo, use PostgreSQL in production)
		store := memory.New()

		engine := cadence.New(store,
			cadence.WithLogger(slog.Default()),
			cadence.WithRetryMethod(payment.MethodCreditCard),
		)

		// Start the engine
		ctx := context.Background()
		if err := engine.Start(ctx); err != nil {
			t.Fatal(err)
		}
		defer engine.Stop()

		basic, err := engine.CreatePlan(ctx, "Basic", 30, decimal.NewFromInt(50))
		if err != nil {
			t.Fatal(err)
		}
		pro, err := engine.CreatePlan(ctx, "Pro", 30, decimal.NewFromInt(100))
		if err != nil {
			t.Fatal(err)
		}

		c, err := engine.CreateCustomerWithSubscription(ctx, "Ada", "ada@example.com", basic.ID)
		if err != nil {
			t.Fatal(err)
		}

		// Mid-cycle upgrade produces a prorated invoice
		inv, err := engine.Upgrade(ctx, c.ID, pro.ID)
		if err != nil {
			t.Fatal(err)
		}
		log.Printf("Prorated invoice: %s\n", types.FormatAmount(inv.Amount))

		if _, err := engine.ProcessPayment(ctx, inv.ID, payment.MethodCreditCard); err != nil {
			t.Fatal(err)
		}

		// Scheduled sweeps
		if _, err := engine.RunRecurringInvoices(ctx); err != nil {
			t.Fatal(err)
		}
		if _, err := engine.ReprocessFailedPayments(ctx); err != nil {
			t.Fatal(err)
		}
	})

	// Test amount helper examples
	t.Run("AmountExamples", func(t *testing.T) {
		price, err := cadence.ParseAmount("49.995")
		if err != nil {
			t.Fatal(err)
		}

		if got := cadence.FormatAmount(cadence.RoundAmount(price)); got != "50.00" {
			t.Errorf("got %s, want 50.00", got)
		}
	})
}

package sqlite

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xraph/cadence"
	"github.com/xraph/cadence/id"
	"github.com/xraph/cadence/invoice"
)

type codedErr int

func (c codedErr) Error() string { return "sqlite error" }
func (c codedErr) Code() int     { return int(c) }

func TestInsertErr(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		duplicate bool
	}{
		{"nil", nil, false},
		{"primary key", codedErr(sqliteConstraintPrimaryKey), true},
		{"unique", codedErr(sqliteConstraintUnique), true},
		{"busy", codedErr(5), false},
		{"message", errors.New("constraint failed: UNIQUE constraint failed: cadence_plans.id"), true},
		{"other", errors.New("disk I/O error"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := insertErr(tt.err)
			if tt.err == nil {
				if got != nil {
					t.Fatalf("insertErr(nil) = %v", got)
				}
				return
			}
			if errors.Is(got, cadence.ErrAlreadyExists) != tt.duplicate {
				t.Errorf("insertErr(%v) = %v, duplicate want %v", tt.err, got, tt.duplicate)
			}
		})
	}
}

func TestInvoiceModelCredits(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	inv := &invoice.Invoice{
		ID:            id.NewInvoiceID(),
		CustomerID:    id.NewCustomerID(),
		Amount:        decimal.RequireFromString("70.00"),
		DueDate:       now,
		PaymentStatus: invoice.StatusGenerated,
	}

	m := toInvoiceModel(inv)
	if m.CreditsApplied != nil {
		t.Fatalf("credits_applied = %q, want NULL", *m.CreditsApplied)
	}
	back, err := fromInvoiceModel(m)
	if err != nil {
		t.Fatal(err)
	}
	if back.CreditsApplied != nil || !back.Amount.Equal(inv.Amount) {
		t.Errorf("round trip = %+v", back)
	}

	applied := decimal.RequireFromString("30.00")
	inv.CreditsApplied = &applied
	back, err = fromInvoiceModel(toInvoiceModel(inv))
	if err != nil {
		t.Fatal(err)
	}
	if back.CreditsApplied == nil || back.CreditsApplied.StringFixed(2) != "30.00" {
		t.Errorf("credits applied = %v, want 30.00", back.CreditsApplied)
	}

	m.CustomerID = "plan_01h455vb4pex5vsknk084sn02q"
	if _, err := fromInvoiceModel(m); err == nil {
		t.Error("expected error for a customer id with the wrong prefix")
	}
}

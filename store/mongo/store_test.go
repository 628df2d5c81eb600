package mongo

import (
	"testing"
)

func TestMigrationIndexesCoverCollections(t *testing.T) {
	indexes := migrationIndexes()
	for _, col := range []string{colPlans, colCustomers, colInvoices, colPayments} {
		if len(indexes[col]) == 0 {
			t.Errorf("no indexes for %s", col)
		}
	}
}

func TestPaymentModelRejectsBadAmount(t *testing.T) {
	m := &paymentModel{
		ID:        "pay_01h455vb4pex5vsknk084sn02q",
		InvoiceID: "inv_01h455vb4pex5vsknk084sn02q",
		Amount:    "twelve",
		Method:    "paypal",
	}
	if _, err := fromPaymentModel(m); err == nil {
		t.Fatal("expected error for a non-numeric amount")
	}

	m.Amount = "12.50"
	p, err := fromPaymentModel(m)
	if err != nil {
		t.Fatal(err)
	}
	if p.Amount.StringFixed(2) != "12.50" || string(p.Method) != "paypal" {
		t.Errorf("payment = %+v", p)
	}
}

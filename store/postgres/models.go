package postgres

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/xraph/grove"

	"github.com/xraph/cadence/customer"
	"github.com/xraph/cadence/id"
	"github.com/xraph/cadence/invoice"
	"github.com/xraph/cadence/payment"
	"github.com/xraph/cadence/plan"
	"github.com/xraph/cadence/types"
)

// Decimal amounts travel as strings; the columns are NUMERIC.

// ==================== Plan models ====================

type planModel struct {
	grove.BaseModel `grove:"table:cadence_plans"`

	ID                  string    `grove:"id,pk"`
	Name                string    `grove:"name"`
	BillingDurationDays int       `grove:"billing_duration_days"`
	Price               string    `grove:"price"`
	Status              string    `grove:"status"`
	CreatedAt           time.Time `grove:"created_at"`
	UpdatedAt           time.Time `grove:"updated_at"`
}

func toPlanModel(p *plan.Plan) *planModel {
	return &planModel{
		ID:                  p.ID.String(),
		Name:                p.Name,
		BillingDurationDays: p.BillingDurationDays,
		Price:               p.Price.String(),
		Status:              string(p.Status),
		CreatedAt:           p.CreatedAt,
		UpdatedAt:           p.UpdatedAt,
	}
}

func fromPlanModel(m *planModel) (*plan.Plan, error) {
	planID, err := id.ParsePlanID(m.ID)
	if err != nil {
		return nil, err
	}
	price, err := decimal.NewFromString(m.Price)
	if err != nil {
		return nil, err
	}

	return &plan.Plan{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:                  planID,
		Name:                m.Name,
		BillingDurationDays: m.BillingDurationDays,
		Price:               price,
		Status:              plan.Status(m.Status),
	}, nil
}

// ==================== Customer models ====================

type customerModel struct {
	grove.BaseModel `grove:"table:cadence_customers"`

	ID               string    `grove:"id,pk"`
	Name             string    `grove:"name"`
	Email            string    `grove:"email"`
	PlanID           string    `grove:"plan_id"`
	Status           string    `grove:"status"`
	BillingStartDate time.Time `grove:"billing_start_date"`
	NextBillingDate  time.Time `grove:"next_billing_date"`
	Credits          string    `grove:"credits"`
	CreatedAt        time.Time `grove:"created_at"`
	UpdatedAt        time.Time `grove:"updated_at"`
}

func toCustomerModel(c *customer.Customer) *customerModel {
	return &customerModel{
		ID:               c.ID.String(),
		Name:             c.Name,
		Email:            c.Email,
		PlanID:           c.PlanID.String(),
		Status:           string(c.Status),
		BillingStartDate: c.BillingStartDate,
		NextBillingDate:  c.NextBillingDate,
		Credits:          c.Credits.String(),
		CreatedAt:        c.CreatedAt,
		UpdatedAt:        c.UpdatedAt,
	}
}

func fromCustomerModel(m *customerModel) (*customer.Customer, error) {
	customerID, err := id.ParseCustomerID(m.ID)
	if err != nil {
		return nil, err
	}
	planID, err := id.ParsePlanID(m.PlanID)
	if err != nil {
		return nil, err
	}
	credits, err := decimal.NewFromString(m.Credits)
	if err != nil {
		return nil, err
	}

	return &customer.Customer{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:               customerID,
		Name:             m.Name,
		Email:            m.Email,
		PlanID:           planID,
		Status:           customer.Status(m.Status),
		BillingStartDate: m.BillingStartDate,
		NextBillingDate:  m.NextBillingDate,
		Credits:          credits,
	}, nil
}

// ==================== Invoice models ====================

type invoiceModel struct {
	grove.BaseModel `grove:"table:cadence_invoices"`

	ID             string     `grove:"id,pk"`
	CustomerID     string     `grove:"customer_id"`
	Amount         string     `grove:"amount"`
	DueDate        time.Time  `grove:"due_date"`
	PaymentStatus  string     `grove:"payment_status"`
	PaymentDate    *time.Time `grove:"payment_date"`
	IsProrated     bool       `grove:"is_prorated"`
	CreditsApplied *string    `grove:"credits_applied"`
	CreatedAt      time.Time  `grove:"created_at"`
	UpdatedAt      time.Time  `grove:"updated_at"`
}

func toInvoiceModel(inv *invoice.Invoice) *invoiceModel {
	m := &invoiceModel{
		ID:            inv.ID.String(),
		CustomerID:    inv.CustomerID.String(),
		Amount:        inv.Amount.String(),
		DueDate:       inv.DueDate,
		PaymentStatus: string(inv.PaymentStatus),
		PaymentDate:   inv.PaymentDate,
		IsProrated:    inv.IsProrated,
		CreatedAt:     inv.CreatedAt,
		UpdatedAt:     inv.UpdatedAt,
	}
	if inv.CreditsApplied != nil {
		applied := inv.CreditsApplied.String()
		m.CreditsApplied = &applied
	}
	return m
}

func fromInvoiceModel(m *invoiceModel) (*invoice.Invoice, error) {
	invID, err := id.ParseInvoiceID(m.ID)
	if err != nil {
		return nil, err
	}
	customerID, err := id.ParseCustomerID(m.CustomerID)
	if err != nil {
		return nil, err
	}
	amount, err := decimal.NewFromString(m.Amount)
	if err != nil {
		return nil, err
	}

	inv := &invoice.Invoice{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:            invID,
		CustomerID:    customerID,
		Amount:        amount,
		DueDate:       m.DueDate,
		PaymentStatus: invoice.Status(m.PaymentStatus),
		PaymentDate:   m.PaymentDate,
		IsProrated:    m.IsProrated,
	}
	if m.CreditsApplied != nil {
		applied, err := decimal.NewFromString(*m.CreditsApplied)
		if err != nil {
			return nil, err
		}
		inv.CreditsApplied = &applied
	}
	return inv, nil
}

// ==================== Payment models ====================

type paymentModel struct {
	grove.BaseModel `grove:"table:cadence_payments"`

	ID          string    `grove:"id,pk"`
	InvoiceID   string    `grove:"invoice_id"`
	Amount      string    `grove:"amount"`
	Method      string    `grove:"payment_method"`
	PaymentDate time.Time `grove:"payment_date"`
}

func toPaymentModel(p *payment.Payment) *paymentModel {
	return &paymentModel{
		ID:          p.ID.String(),
		InvoiceID:   p.InvoiceID.String(),
		Amount:      p.Amount.String(),
		Method:      string(p.Method),
		PaymentDate: p.PaymentDate,
	}
}

func fromPaymentModel(m *paymentModel) (*payment.Payment, error) {
	paymentID, err := id.ParsePaymentID(m.ID)
	if err != nil {
		return nil, err
	}
	invID, err := id.ParseInvoiceID(m.InvoiceID)
	if err != nil {
		return nil, err
	}
	amount, err := decimal.NewFromString(m.Amount)
	if err != nil {
		return nil, err
	}

	return &payment.Payment{
		ID:          paymentID,
		InvoiceID:   invID,
		Amount:      amount,
		Method:      payment.Method(m.Method),
		PaymentDate: m.PaymentDate,
	}, nil
}

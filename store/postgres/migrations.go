package postgres

import (
	"context"

	"github.com/xraph/grove/migrate"
)

// Migrations is the grove migration group for the Cadence store (PostgreSQL).
var Migrations = migrate.NewGroup("cadence")

func init() {
	Migrations.MustRegister(
		&migrate.Migration{
			Name:    "create_cadence_plans",
			Version: "20260301000001",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS cadence_plans (
    id                    TEXT PRIMARY KEY,
    name                  TEXT NOT NULL,
    billing_duration_days INTEGER NOT NULL CHECK (billing_duration_days > 0),
    price                 NUMERIC(20, 6) NOT NULL CHECK (price >= 0),
    status                TEXT NOT NULL DEFAULT 'active',
    created_at            TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at            TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_cadence_plans_status ON cadence_plans (status);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS cadence_plans`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_cadence_customers",
			Version: "20260301000002",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS cadence_customers (
    id                 TEXT PRIMARY KEY,
    name               TEXT NOT NULL,
    email              TEXT NOT NULL,
    plan_id            TEXT NOT NULL,
    status             TEXT NOT NULL DEFAULT 'active',
    billing_start_date TIMESTAMPTZ NOT NULL,
    next_billing_date  TIMESTAMPTZ NOT NULL,
    credits            NUMERIC(20, 6) NOT NULL DEFAULT 0 CHECK (credits >= 0),
    created_at         TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at         TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_cadence_customers_plan ON cadence_customers (plan_id);
CREATE INDEX IF NOT EXISTS idx_cadence_customers_due ON cadence_customers (status, next_billing_date);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS cadence_customers`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_cadence_invoices",
			Version: "20260301000003",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS cadence_invoices (
    id              TEXT PRIMARY KEY,
    customer_id     TEXT NOT NULL,
    amount          NUMERIC(20, 2) NOT NULL CHECK (amount >= 0),
    due_date        TIMESTAMPTZ NOT NULL,
    payment_status  TEXT NOT NULL DEFAULT 'generated',
    payment_date    TIMESTAMPTZ,
    is_prorated     BOOLEAN NOT NULL DEFAULT FALSE,
    credits_applied NUMERIC(20, 2),
    created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_cadence_invoices_customer ON cadence_invoices (customer_id, created_at);
CREATE INDEX IF NOT EXISTS idx_cadence_invoices_failed ON cadence_invoices (payment_status) WHERE payment_status = 'failed';
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS cadence_invoices`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_cadence_payments",
			Version: "20260301000004",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS cadence_payments (
    id             TEXT PRIMARY KEY,
    invoice_id     TEXT NOT NULL,
    amount         NUMERIC(20, 2) NOT NULL,
    payment_method TEXT NOT NULL,
    payment_date   TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_cadence_payments_invoice ON cadence_payments (invoice_id, payment_date);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS cadence_payments`)
				return err
			},
		},
	)
}

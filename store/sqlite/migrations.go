package sqlite

import (
	"context"

	"github.com/xraph/grove/migrate"
)

// Migrations is the grove migration group for the Cadence store (SQLite).
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
    billing_duration_days INTEGER NOT NULL,
    price                 TEXT NOT NULL,
    status                TEXT NOT NULL DEFAULT 'active',
    created_at            TEXT NOT NULL DEFAULT (datetime('now')),
    updated_at            TEXT NOT NULL DEFAULT (datetime('now'))
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
    billing_start_date TEXT NOT NULL,
    next_billing_date  TEXT NOT NULL,
    credits            TEXT NOT NULL DEFAULT '0',
    created_at         TEXT NOT NULL DEFAULT (datetime('now')),
    updated_at         TEXT NOT NULL DEFAULT (datetime('now'))
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
    amount          TEXT NOT NULL,
    due_date        TEXT NOT NULL,
    payment_status  TEXT NOT NULL DEFAULT 'generated',
    payment_date    TEXT,
    is_prorated     INTEGER NOT NULL DEFAULT 0,
    credits_applied TEXT,
    created_at      TEXT NOT NULL DEFAULT (datetime('now')),
    updated_at      TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_cadence_invoices_customer ON cadence_invoices (customer_id, created_at);
CREATE INDEX IF NOT EXISTS idx_cadence_invoices_status ON cadence_invoices (payment_status);
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
    amount         TEXT NOT NULL,
    payment_method TEXT NOT NULL,
    payment_date   TEXT NOT NULL
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

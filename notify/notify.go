// Package notify delivers billing emails to customers.
package notify

import (
	"context"
	"log/slog"
	"sync"

	"github.com/xraph/cadence/id"
)

// Kind identifies a notification template.
type Kind string

const (
	KindInvoiceGenerated Kind = "invoice_generated"
	KindPaymentSucceeded Kind = "payment_succeeded"
	KindPaymentFailed    Kind = "payment_failed"
)

// Subject returns the email subject line for k.
func (k Kind) Subject() string {
	switch k {
	case KindInvoiceGenerated:
		return "Invoice Generated"
	case KindPaymentSucceeded:
		return "Payment Success"
	case KindPaymentFailed:
		return "Payment Failed"
	}
	return string(k)
}

// Body returns the plain-text body for k about invoiceID.
func (k Kind) Body(invoiceID id.InvoiceID) string {
	switch k {
	case KindInvoiceGenerated:
		return "Your invoice " + invoiceID.String() + " has been generated."
	case KindPaymentSucceeded:
		return "Payment for invoice " + invoiceID.String() + " has been received. Thank you!"
	case KindPaymentFailed:
		return "Payment for invoice " + invoiceID.String() + " has failed. Please update your payment method."
	}
	return invoiceID.String()
}

// Notifier sends a notification of kind about an invoice to email.
// Implementations return an error when delivery fails; the engine logs and
// discards it.
type Notifier interface {
	Notify(ctx context.Context, kind Kind, email string, invoiceID id.InvoiceID) error
}

// NotifierFunc adapts a function to a Notifier.
type NotifierFunc func(ctx context.Context, kind Kind, email string, invoiceID id.InvoiceID) error

// Notify implements Notifier.
func (f NotifierFunc) Notify(ctx context.Context, kind Kind, email string, invoiceID id.InvoiceID) error {
	return f(ctx, kind, email, invoiceID)
}

// Log writes notifications to a logger instead of sending them.
type Log struct {
	Logger *slog.Logger
}

// NewLog returns a Log notifier writing to logger.
func NewLog(logger *slog.Logger) *Log {
	if logger == nil {
		logger = slog.Default()
	}
	return &Log{Logger: logger}
}

// Notify implements Notifier.
func (l *Log) Notify(ctx context.Context, kind Kind, email string, invoiceID id.InvoiceID) error {
	l.Logger.InfoContext(ctx, "notification",
		"kind", string(kind),
		"to", email,
		"subject", kind.Subject(),
		"invoice_id", invoiceID.String(),
	)
	return nil
}

// Message is a notification captured by a Recorder.
type Message struct {
	Kind      Kind
	Email     string
	InvoiceID id.InvoiceID
}

// Recorder keeps every notification in memory. It is safe for concurrent
// use and is mostly useful in tests.
type Recorder struct {
	mu       sync.Mutex
	messages []Message
}

// Notify implements Notifier.
func (r *Recorder) Notify(_ context.Context, kind Kind, email string, invoiceID id.InvoiceID) error {
	r.mu.Lock()
	r.messages = append(r.messages, Message{Kind: kind, Email: email, InvoiceID: invoiceID})
	r.mu.Unlock()
	return nil
}

// Messages returns a copy of the recorded notifications.
func (r *Recorder) Messages() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Message, len(r.messages))
	copy(out, r.messages)
	return out
}

// Count returns how many notifications of kind were recorded.
func (r *Recorder) Count(kind Kind) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, m := range r.messages {
		if m.Kind == kind {
			n++
		}
	}
	return n
}

package plugin

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/xraph/cadence/customer"
	"github.com/xraph/cadence/invoice"
)

type recordingPlugin struct {
	name string

	mu    sync.Mutex
	calls []string
}

func (p *recordingPlugin) Name() string { return p.name }

func (p *recordingPlugin) record(call string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, call)
}

func (p *recordingPlugin) OnCustomerCreated(_ context.Context, _ *customer.Customer) error {
	p.record("customer")
	return nil
}

func (p *recordingPlugin) OnSweepCompleted(_ context.Context, sweep Sweep, processed, failed int, _ time.Duration) error {
	p.record(string(sweep))
	return nil
}

type failingPlugin struct{}

func (failingPlugin) Name() string { return "failing" }

func (failingPlugin) OnInvoiceGenerated(context.Context, *invoice.Invoice) error {
	return errors.New("boom")
}

func (failingPlugin) OnInvoiceFailed(context.Context, *invoice.Invoice, error) error {
	panic("hook panic")
}

type slowPlugin struct{}

func (slowPlugin) Name() string { return "slow" }

func (slowPlugin) OnShutdown(ctx context.Context) error {
	time.Sleep(200 * time.Millisecond)
	return nil
}

func quietRegistry() *Registry {
	return NewRegistry().WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	r := quietRegistry()
	if err := r.Register(&recordingPlugin{name: "a"}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := r.Register(&recordingPlugin{name: "a"}); err == nil {
		t.Fatal("expected duplicate registration error")
	}
	if got := r.Count(); got != 1 {
		t.Fatalf("Count = %d, want 1", got)
	}
	if r.Get("a") == nil || r.Get("b") != nil {
		t.Fatal("Get returned the wrong plugin")
	}
}

func TestImplementedInterfaces(t *testing.T) {
	got := implementedInterfaces(&recordingPlugin{name: "a"})
	want := []string{"OnCustomerCreated", "OnSweepCompleted"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("interfaces = %v, want %v", got, want)
	}
}

func TestEmitDispatchesInRegistrationOrder(t *testing.T) {
	r := quietRegistry()
	first := &recordingPlugin{name: "first"}
	second := &recordingPlugin{name: "second"}
	for _, p := range []Plugin{first, failingPlugin{}, second} {
		if err := r.Register(p); err != nil {
			t.Fatalf("Register(%s): %v", p.Name(), err)
		}
	}

	ctx := context.Background()
	r.EmitCustomerCreated(ctx, &customer.Customer{})
	r.EmitSweepCompleted(ctx, SweepRecurringInvoices, 3, 0, time.Second)

	// Failures and panics in one plugin do not stop the others.
	r.EmitInvoiceGenerated(ctx, &invoice.Invoice{})
	r.EmitInvoiceFailed(ctx, &invoice.Invoice{}, errors.New("declined"))

	want := []string{"customer", string(SweepRecurringInvoices)}
	for _, p := range []*recordingPlugin{first, second} {
		if !reflect.DeepEqual(p.calls, want) {
			t.Errorf("%s calls = %v, want %v", p.name, p.calls, want)
		}
	}
}

func TestCallWithTimeout(t *testing.T) {
	r := quietRegistry().WithTimeout(20 * time.Millisecond)

	start := time.Now()
	err := r.callWithTimeout(context.Background(), "slow", func() error {
		return slowPlugin{}.OnShutdown(context.Background())
	})
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if elapsed := time.Since(start); elapsed > 150*time.Millisecond {
		t.Fatalf("timeout took %v", elapsed)
	}

	err = r.callWithTimeout(context.Background(), "panics", func() error { panic("x") })
	if err == nil {
		t.Fatal("expected panic to surface as error")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = quietRegistry().callWithTimeout(ctx, "cancelled", func() error {
		time.Sleep(50 * time.Millisecond)
		return nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

package audithook

import "log/slog"

// Option configures an Extension.
type Option func(*Extension)

// WithLogger sets the logger used when the recorder rejects an event.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Extension) {
		e.logger = logger
	}
}

// WithEnabledActions audits only the given actions. Without this option
// every action is audited.
func WithEnabledActions(actions ...string) Option {
	return func(e *Extension) {
		e.enabled = make(map[string]bool, len(actions))
		for _, action := range actions {
			e.enabled[action] = true
		}
	}
}

// WithMoneyMovementOnly audits only actions that change what a customer
// owes or holds: invoices, payments and plan changes that prorate.
func WithMoneyMovementOnly() Option {
	return WithEnabledActions(moneyMovementActions()...)
}

// WithDisabledActions skips the given actions. It applies on top of any
// earlier WithEnabledActions; otherwise it starts from every action.
func WithDisabledActions(actions ...string) Option {
	return func(e *Extension) {
		if e.enabled == nil {
			all := allActions()
			e.enabled = make(map[string]bool, len(all))
			for _, action := range all {
				e.enabled[action] = true
			}
		}
		for _, action := range actions {
			delete(e.enabled, action)
		}
	}
}

// allActions returns every action the extension emits.
func allActions() []string {
	return append([]string{
		ActionPlanCreated,
		ActionCustomerCreated,
		ActionSubscriptionAssigned,
		ActionSubscriptionCancelled,
		ActionSweepCompleted,
	}, moneyMovementActions()...)
}

func moneyMovementActions() []string {
	return []string{
		ActionSubscriptionUpgraded,
		ActionSubscriptionDowngraded,
		ActionInvoiceGenerated,
		ActionInvoicePaid,
		ActionInvoiceFailed,
	}
}

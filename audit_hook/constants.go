package audithook

// Action constants for audit events.
const (
	// Catalog actions
	ActionPlanCreated     = "plan.created"
	ActionCustomerCreated = "customer.created"

	// Subscription actions
	ActionSubscriptionAssigned   = "subscription.assigned"
	ActionSubscriptionUpgraded   = "subscription.upgraded"
	ActionSubscriptionDowngraded = "subscription.downgraded"
	ActionSubscriptionCancelled  = "subscription.cancelled"

	// Invoice actions
	ActionInvoiceGenerated = "invoice.generated"
	ActionInvoicePaid      = "invoice.paid"
	ActionInvoiceFailed    = "invoice.failed"

	// Batch actions
	ActionSweepCompleted = "sweep.completed"
)

// Resource constants for audit events.
const (
	ResourcePlan         = "plan"
	ResourceCustomer     = "customer"
	ResourceSubscription = "subscription"
	ResourceInvoice      = "invoice"
	ResourceSweep        = "sweep"
)

// Category constants for audit events.
const (
	CategoryBilling      = "billing"
	CategorySubscription = "subscription"
	CategoryPayment      = "payment"
	CategoryOperations   = "operations"
)

// Severity levels for audit events.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityCritical = "critical"
)

// Outcome values for audit events.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomePartial = "partial"
)

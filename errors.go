package cadence

import (
	"errors"
	"fmt"
)

// Sentinel errors for common failure scenarios.
var (
	// General errors
	ErrNotFound      = errors.New("cadence: not found")
	ErrAlreadyExists = errors.New("cadence: already exists")
	ErrInvalidInput  = errors.New("cadence: invalid input")
	ErrConfiguration = errors.New("cadence: invalid configuration")

	// Lookup errors
	ErrCustomerNotFound    = errors.New("cadence: customer not found")
	ErrPlanNotFound        = errors.New("cadence: plan not found")
	ErrCurrentPlanNotFound = errors.New("cadence: current plan not found")
	ErrNewPlanNotFound     = errors.New("cadence: new plan not found")
	ErrInvoiceNotFound     = errors.New("cadence: invoice not found")

	// Settlement errors
	ErrAlreadyPaid     = errors.New("cadence: invoice already paid")
	ErrPaymentDeclined = errors.New("cadence: payment declined")

	// Notification errors
	ErrDeliveryFailure = errors.New("cadence: notification delivery failed")

	// Store errors
	ErrStoreNotReady = errors.New("cadence: store not ready")
	ErrStoreClosed   = errors.New("cadence: store is closed")
)

// ValidationError represents a validation failure with details.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("cadence: validation failed for %s: %s", e.Field, e.Message)
}

// Unwrap lets errors.Is match ErrInvalidInput.
func (e ValidationError) Unwrap() error { return ErrInvalidInput }

// MultiError represents multiple errors that occurred.
type MultiError struct {
	Errors []error
}

func (e MultiError) Error() string {
	if len(e.Errors) == 0 {
		return "cadence: no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	return fmt.Sprintf("cadence: %d errors occurred", len(e.Errors))
}

// Unwrap exposes the collected errors to errors.Is and errors.As.
func (e MultiError) Unwrap() []error { return e.Errors }

// Add adds an error to the multi-error.
func (e *MultiError) Add(err error) {
	if err != nil {
		e.Errors = append(e.Errors, err)
	}
}

// HasErrors returns true if there are any errors.
func (e MultiError) HasErrors() bool {
	return len(e.Errors) > 0
}

// First returns the first error or nil.
func (e MultiError) First() error {
	if len(e.Errors) > 0 {
		return e.Errors[0]
	}
	return nil
}

// IsNotFound returns true if the error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrCustomerNotFound) ||
		errors.Is(err, ErrPlanNotFound) ||
		errors.Is(err, ErrCurrentPlanNotFound) ||
		errors.Is(err, ErrNewPlanNotFound) ||
		errors.Is(err, ErrInvoiceNotFound)
}

// IsRejected returns true if the request was refused because of its content
// or the state of the records it targets, as opposed to an infrastructure
// failure.
func IsRejected(err error) bool {
	return errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrAlreadyPaid) ||
		errors.Is(err, ErrAlreadyExists) ||
		errors.Is(err, ErrPaymentDeclined) ||
		errors.Is(err, ErrConfiguration)
}

// IsRetryable returns true if the error is temporary and the operation can be retried.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrStoreNotReady) ||
		errors.Is(err, ErrPaymentDeclined) ||
		errors.Is(err, ErrDeliveryFailure)
}

package types

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// AmountPlaces is the number of fractional digits kept on stored amounts.
const AmountPlaces = 2

// Zero is the zero amount.
var Zero = decimal.Zero

// RoundAmount rounds d half away from zero to cents. Every amount written to
// an invoice or a credit balance passes through here.
func RoundAmount(d decimal.Decimal) decimal.Decimal {
	return d.Round(AmountPlaces)
}

// NonNegative clamps d at zero.
func NonNegative(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

// ApplyCredits consumes a credit balance against cost. It returns the amount
// still owed (never negative, rounded to cents) and the credit that was
// applied. The whole balance is always reported as applied, matching the
// billing rule that credits are cleared once any invoice consumes them.
func ApplyCredits(cost, credits decimal.Decimal) (owed, applied decimal.Decimal) {
	if !credits.IsPositive() {
		return RoundAmount(NonNegative(cost)), decimal.Zero
	}
	return RoundAmount(NonNegative(cost.Sub(credits))), credits
}

// ParseAmount parses a decimal string such as "49.99". Negative values are
// rejected.
func ParseAmount(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("types: parse amount %q: %w", s, err)
	}
	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("types: parse amount %q: negative", s)
	}
	return d, nil
}

// FormatAmount renders d with exactly two fractional digits.
func FormatAmount(d decimal.Decimal) string {
	return d.StringFixed(AmountPlaces)
}

package money

import (
	"errors"

	"github.com/shopspring/decimal"
)

const (
	// Scale is the number of fractional digits accepted for principal amounts.
	Scale = 2
	// StoredScale matches the numeric(20,4) columns holding balances and returns.
	StoredScale = 4
)

// MaxPrincipal keeps a single principal, and the account totals built from
// it, inside numeric(20,4), whose integer part tops out below 10^16.
var MaxPrincipal = decimal.New(1, 12)

var (
	ErrTooManyDecimals = errors.New("amount has too many decimal places")
	ErrNonPositive     = errors.New("amount must be positive")
	ErrTooLarge        = errors.New("amount exceeds the maximum principal")
)

// ValidatePrincipal accepts strictly positive amounts up to MaxPrincipal with
// at most Scale fractional digits.
func ValidatePrincipal(value decimal.Decimal) error {
	if !value.IsPositive() {
		return ErrNonPositive
	}
	if value.GreaterThan(MaxPrincipal) {
		return ErrTooLarge
	}
	if value.Exponent() < -Scale && !value.Equal(value.Truncate(Scale)) {
		return ErrTooManyDecimals
	}
	return nil
}

func Format(value decimal.Decimal) string {
	return value.StringFixed(StoredScale)
}

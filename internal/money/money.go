package money

import (
	"errors"
	"fmt"
	"strings"
)

// ErrCurrencyMismatch indicates arithmetic was attempted across two different
// currencies. This is always an upstream bug and is never recovered from.
var ErrCurrencyMismatch = errors.New("money: currency mismatch")

// Money is an amount expressed in a currency's minor units (cents, grosze).
type Money struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

// New constructs a Money value. The currency code is normalised to upper case.
func New(amount int64, currency string) Money {
	return Money{Amount: amount, Currency: normalise(currency)}
}

// Zero returns the zero amount in the given currency.
func Zero(currency string) Money {
	return New(0, currency)
}

// IsZero reports whether the amount is exactly zero.
func (m Money) IsZero() bool { return m.Amount == 0 }

// Add returns m + other.
func (m Money) Add(other Money) (Money, error) {
	if err := m.assertSameCurrency(other); err != nil {
		return Money{}, err
	}
	return Money{Amount: m.Amount + other.Amount, Currency: m.Currency}, nil
}

// Sub returns m - other without clamping. Callers that need a floor use
// SubFloor instead.
func (m Money) Sub(other Money) (Money, error) {
	if err := m.assertSameCurrency(other); err != nil {
		return Money{}, err
	}
	return Money{Amount: m.Amount - other.Amount, Currency: m.Currency}, nil
}

// SubFloor returns m - other clamped so the result never drops below floor
// minor units. Fixed-amount discounts use a floor of one minor unit so a
// generic amount coupon can never make an item free. An amount already at or
// below the floor is returned unchanged; the clamp never raises a price.
func (m Money) SubFloor(other Money, floor int64) (Money, error) {
	out, err := m.Sub(other)
	if err != nil {
		return Money{}, err
	}
	if m.Amount < floor {
		floor = m.Amount
	}
	if out.Amount < floor {
		out.Amount = floor
	}
	return out, nil
}

// PercentageOf returns the given fraction of m expressed in basis points,
// rounded half-up to the nearest minor unit. PercentageOf(10000) == m.
func (m Money) PercentageOf(bps int64) Money {
	if bps < 0 {
		bps = 0
	}
	return Money{Amount: (m.Amount*bps + 5000) / 10000, Currency: m.Currency}
}

// Compare returns -1, 0 or 1 as m is less than, equal to or greater than
// other.
func (m Money) Compare(other Money) (int, error) {
	if err := m.assertSameCurrency(other); err != nil {
		return 0, err
	}
	switch {
	case m.Amount < other.Amount:
		return -1, nil
	case m.Amount > other.Amount:
		return 1, nil
	default:
		return 0, nil
	}
}

// Min returns the smaller of m and other.
func (m Money) Min(other Money) (Money, error) {
	cmp, err := m.Compare(other)
	if err != nil {
		return Money{}, err
	}
	if cmp <= 0 {
		return m, nil
	}
	return other, nil
}

// String renders the raw minor-unit amount with its currency code.
func (m Money) String() string {
	return fmt.Sprintf("%d %s", m.Amount, m.Currency)
}

func (m Money) assertSameCurrency(other Money) error {
	if normalise(m.Currency) != normalise(other.Currency) {
		return fmt.Errorf("%w: %s vs %s", ErrCurrencyMismatch, m.Currency, other.Currency)
	}
	return nil
}

func normalise(currency string) string {
	return strings.ToUpper(strings.TrimSpace(currency))
}

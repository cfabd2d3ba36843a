package money

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	// ErrCurrencyMismatch is returned when two values carry different currencies.
	ErrCurrencyMismatch = errors.New("money: currency mismatch")
	// ErrNegativeAmount is returned when an operation requires a non-negative result.
	ErrNegativeAmount = errors.New("money: negative amount")
	// ErrInvalidAmount is returned when a decimal string cannot be represented in minor units.
	ErrInvalidAmount = errors.New("money: invalid amount")
	// ErrInvalidCurrency is returned when a currency code is missing or malformed.
	ErrInvalidCurrency = errors.New("money: invalid currency")
	// ErrNegativeQuantity is returned when multiplying by a negative quantity.
	ErrNegativeQuantity = errors.New("money: negative quantity")
)

// Money is an exact monetary value: integer minor units plus an ISO 4217 code.
// All arithmetic is integer; no float enters the pipeline.
type Money struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

// minorUnitExponents lists currencies whose minor unit is not 2 decimal places.
var minorUnitExponents = map[string]int32{
	"JPY": 0,
	"KRW": 0,
	"VND": 0,
	"BHD": 3,
	"KWD": 3,
	"OMR": 3,
	"TND": 3,
}

// New constructs a value after normalizing the currency code.
func New(amount int64, currency string) (Money, error) {
	code, err := normalizeCurrency(currency)
	if err != nil {
		return Money{}, err
	}
	return Money{Amount: amount, Currency: code}, nil
}

// Zero returns a zero value in the given currency.
func Zero(currency string) Money {
	code, err := normalizeCurrency(currency)
	if err != nil {
		return Money{}
	}
	return Money{Amount: 0, Currency: code}
}

// Add returns m + other.
func (m Money) Add(other Money) (Money, error) {
	if m.Currency != other.Currency {
		return Money{}, ErrCurrencyMismatch
	}
	return Money{Amount: m.Amount + other.Amount, Currency: m.Currency}, nil
}

// Subtract returns m - other. The result may be negative.
func (m Money) Subtract(other Money) (Money, error) {
	if m.Currency != other.Currency {
		return Money{}, ErrCurrencyMismatch
	}
	return Money{Amount: m.Amount - other.Amount, Currency: m.Currency}, nil
}

// SubtractStrict returns m - other and fails when the result would be negative.
func (m Money) SubtractStrict(other Money) (Money, error) {
	result, err := m.Subtract(other)
	if err != nil {
		return Money{}, err
	}
	if result.Amount < 0 {
		return Money{}, ErrNegativeAmount
	}
	return result, nil
}

// MultiplyQuantity returns m scaled by an integer quantity.
func (m Money) MultiplyQuantity(quantity int64) (Money, error) {
	if quantity < 0 {
		return Money{}, ErrNegativeQuantity
	}
	return Money{Amount: m.Amount * quantity, Currency: m.Currency}, nil
}

// Compare returns -1, 0 or 1 ordering m against other.
func (m Money) Compare(other Money) (int, error) {
	if m.Currency != other.Currency {
		return 0, ErrCurrencyMismatch
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

// Negate returns the value with the opposite sign.
func (m Money) Negate() Money {
	return Money{Amount: -m.Amount, Currency: m.Currency}
}

// Equal reports whether amount and currency both match.
func (m Money) Equal(other Money) bool {
	return m.Amount == other.Amount && m.Currency == other.Currency
}

// IsZero reports whether the amount is zero.
func (m Money) IsZero() bool { return m.Amount == 0 }

// IsNegative reports whether the amount is below zero.
func (m Money) IsNegative() bool { return m.Amount < 0 }

// Parse converts a decimal amount string ("19.99") into minor units for the
// currency. Parsing goes through shopspring/decimal so no float is involved;
// amounts with more precision than the currency's minor unit are rejected.
func Parse(amount, currency string) (Money, error) {
	code, err := normalizeCurrency(currency)
	if err != nil {
		return Money{}, err
	}
	dec, err := decimal.NewFromString(strings.TrimSpace(amount))
	if err != nil {
		return Money{}, ErrInvalidAmount
	}
	shifted := dec.Shift(exponentFor(code))
	if !shifted.IsInteger() {
		return Money{}, ErrInvalidAmount
	}
	if !shifted.BigInt().IsInt64() {
		return Money{}, ErrInvalidAmount
	}
	return Money{Amount: shifted.IntPart(), Currency: code}, nil
}

// Format renders the value as a decimal string in major units ("19.99").
func (m Money) Format() string {
	exp := exponentFor(m.Currency)
	return decimal.New(m.Amount, -exp).StringFixed(exp)
}

// String implements fmt.Stringer ("19.99 USD").
func (m Money) String() string {
	return m.Format() + " " + m.Currency
}

func exponentFor(currency string) int32 {
	if exp, ok := minorUnitExponents[currency]; ok {
		return exp
	}
	return 2
}

func normalizeCurrency(currency string) (string, error) {
	code := strings.ToUpper(strings.TrimSpace(currency))
	if len(code) != 3 {
		return "", ErrInvalidCurrency
	}
	return code, nil
}

// Package money converts integer minor-unit amounts between currencies.
//
// Amounts are always int64 minor units (paise, cents). Major units only
// appear inside this package, as decimals, while a conversion is in flight.
package money

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	ErrUnknownCurrency = errors.New("unknown currency")
	ErrInvalidRate     = errors.New("invalid exchange rate")
)

// zero- and three-decimal currencies; everything else uses two.
var exponents = map[string]int32{
	"JPY": 0,
	"KRW": 0,
	"VND": 0,
	"BHD": 3,
	"KWD": 3,
	"OMR": 3,
}

// Exponent returns the number of minor-unit digits of a currency.
func Exponent(currency string) int32 {
	if e, ok := exponents[strings.ToUpper(currency)]; ok {
		return e
	}
	return 2
}

// ValidCode reports whether s looks like an ISO-4217 code.
func ValidCode(s string) bool {
	if len(s) != 3 {
		return false
	}
	for _, r := range s {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}

func ToMajor(minor int64, currency string) decimal.Decimal {
	return decimal.New(minor, -Exponent(currency))
}

// FromMajor rounds half away from zero to the currency's minor unit.
func FromMajor(major decimal.Decimal, currency string) int64 {
	e := Exponent(currency)
	return major.Shift(e).Round(0).IntPart()
}

// Format renders an amount as plain text, e.g. "1234.50 INR".
func Format(minor int64, currency string) string {
	return fmt.Sprintf("%s %s", ToMajor(minor, currency).StringFixed(Exponent(currency)), strings.ToUpper(currency))
}

// Converter turns amounts into a single display currency. Rates are the price
// of one major unit of a currency expressed in the display currency.
type Converter struct {
	display string
	rates   map[string]decimal.Decimal
}

func NewConverter(display string, rates map[string]string) (*Converter, error) {
	display = strings.ToUpper(display)
	if !ValidCode(display) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCurrency, display)
	}

	c := &Converter{
		display: display,
		rates:   map[string]decimal.Decimal{display: decimal.NewFromInt(1)},
	}
	for code, raw := range rates {
		code = strings.ToUpper(code)
		if !ValidCode(code) {
			return nil, fmt.Errorf("%w: %q", ErrUnknownCurrency, code)
		}
		rate, err := decimal.NewFromString(raw)
		if err != nil || !rate.IsPositive() {
			return nil, fmt.Errorf("%w: %s=%q", ErrInvalidRate, code, raw)
		}
		if code == display && !rate.Equal(decimal.NewFromInt(1)) {
			return nil, fmt.Errorf("%w: display currency %s must have rate 1", ErrInvalidRate, code)
		}
		c.rates[code] = rate
	}
	return c, nil
}

// Supports reports whether amounts in code can be converted.
func (c *Converter) Supports(code string) bool {
	_, ok := c.rates[strings.ToUpper(code)]
	return ok
}

func (c *Converter) Display() string {
	return c.display
}

// Convert returns amount (minor units of from) in minor units of the display
// currency.
func (c *Converter) Convert(amount int64, from string) (int64, error) {
	from = strings.ToUpper(from)
	if from == c.display {
		return amount, nil
	}
	rate, ok := c.rates[from]
	if !ok {
		return 0, fmt.Errorf("%w: no rate for %s", ErrUnknownCurrency, from)
	}
	return FromMajor(ToMajor(amount, from).Mul(rate), c.display), nil
}

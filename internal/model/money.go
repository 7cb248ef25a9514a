package model

import (
	"bytes"
	"fmt"
	"math"
	"strconv"
)

// Money is an amount in cents.  It is stored in *_cents BIGINT columns and
// travels over JSON as a decimal number with two fractional digits, so
// clients can keep sending `"total_amount": 150.5`.
type Money int64

// FromFloat converts a decimal currency amount to cents, rounding half away
// from zero.
func FromFloat(v float64) Money { return Money(math.Round(v * 100)) }

// Float returns the amount in currency units.
func (m Money) Float() float64 { return float64(m) / 100 }

func (m Money) String() string {
	sign := ""
	v := int64(m)
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}

// MarshalJSON writes the amount as a JSON number such as 12.50.
func (m Money) MarshalJSON() ([]byte, error) { return []byte(m.String()), nil }

// UnmarshalJSON accepts a JSON number or a numeric string.
func (m *Money) UnmarshalJSON(b []byte) error {
	b = bytes.Trim(bytes.TrimSpace(b), `"`)
	if len(b) == 0 || string(b) == "null" {
		*m = 0
		return nil
	}
	f, err := strconv.ParseFloat(string(b), 64)
	if err != nil {
		return fmt.Errorf("invalid amount %q: %w", b, err)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return fmt.Errorf("invalid amount %q", b)
	}
	*m = FromFloat(f)
	return nil
}

// MulRatio scales the amount by num/den with rounding, used for seat type
// price multipliers.
func (m Money) MulRatio(num, den int64) Money {
	return Money(math.Round(float64(int64(m)*num) / float64(den)))
}

// Package money implements fixed-point peso amounts stored as integer
// centavos. All arithmetic stays in integers; percent application rounds
// half up to the nearest centavo.
package money

import (
	"fmt"
	"strconv"
	"strings"
)

// Cents is a monetary amount in centavos (1/100 peso).
type Cents int64

// FromParts builds an amount from whole pesos and centavos.
func FromParts(pesos int64, centavos int64) Cents {
	return Cents(pesos*100 + centavos)
}

// Parse converts a decimal string like "1250.50" into Cents. At most two
// fractional digits are accepted.
func Parse(s string) (Cents, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("money: empty amount")
	}

	neg := false
	if strings.HasPrefix(s, "-") {
		neg = true
		s = s[1:]
	}

	intPart := s
	fracPart := ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		intPart, fracPart = s[:i], s[i+1:]
	}
	if intPart == "" {
		intPart = "0"
	}
	if len(fracPart) > 2 {
		return 0, fmt.Errorf("money: more than two decimal places in %q", s)
	}
	for len(fracPart) < 2 {
		fracPart += "0"
	}

	pesos, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("money: invalid amount %q", s)
	}
	cents, err := strconv.ParseInt(fracPart, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("money: invalid amount %q", s)
	}

	total := Cents(pesos*100 + cents)
	if neg {
		total = -total
	}
	return total, nil
}

// Percent applies pct (e.g. 12.5 for 12.5%) to the amount, rounding half
// up. The percentage is carried in hundredths to stay in integer math.
func (c Cents) Percent(pct float64) Cents {
	// hundredths of a percent, e.g. 12.5% -> 1250
	bp := int64(pct*100 + 0.5)
	if pct < 0 {
		bp = int64(pct*100 - 0.5)
	}
	raw := int64(c) * bp
	// divide by 10000 with half-up rounding
	if raw >= 0 {
		return Cents((raw + 5000) / 10000)
	}
	return Cents((raw - 5000) / 10000)
}

// Mul multiplies the amount by an integer quantity.
func (c Cents) Mul(qty int64) Cents { return Cents(int64(c) * qty) }

// String renders the amount as a plain decimal with two places, e.g.
// "1250.50" or "-3.07".
func (c Cents) String() string {
	v := int64(c)
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}

// MarshalJSON renders the amount as a JSON number with exactly two decimal
// places.
func (c Cents) MarshalJSON() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalJSON accepts both a JSON number (123.45) and a string ("123.45").
func (c *Cents) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "null" {
		*c = 0
		return nil
	}
	v, err := Parse(s)
	if err != nil {
		return err
	}
	*c = v
	return nil
}

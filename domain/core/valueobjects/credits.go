package valueobjects

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Credits is an exact, immutable amount of metering units.
type Credits struct {
	value decimal.Decimal
}

// ZeroCredits is the empty balance.
var ZeroCredits = Credits{value: decimal.Zero}

// NewCredits creates a whole-unit amount.
func NewCredits(units int64) Credits {
	return Credits{value: decimal.NewFromInt(units)}
}

// NewCreditsFromDecimal wraps an existing decimal.
func NewCreditsFromDecimal(d decimal.Decimal) Credits {
	return Credits{value: d}
}

// ParseCredits parses a decimal string such as "10" or "0.5".
func ParseCredits(s string) (Credits, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Credits{}, fmt.Errorf("invalid credit amount %q: %w", s, err)
	}
	return Credits{value: d}, nil
}

func (c Credits) Decimal() decimal.Decimal { return c.value }

func (c Credits) String() string { return c.value.String() }

// Float64 returns the nearest float. Only for presentation.
func (c Credits) Float64() float64 {
	f, _ := c.value.Float64()
	return f
}

func (c Credits) Add(other Credits) Credits {
	return Credits{value: c.value.Add(other.value)}
}

func (c Credits) Sub(other Credits) Credits {
	return Credits{value: c.value.Sub(other.value)}
}

func (c Credits) LessThan(other Credits) bool {
	return c.value.LessThan(other.value)
}

func (c Credits) Equals(other Credits) bool {
	return c.value.Equal(other.value)
}

func (c Credits) IsNegative() bool {
	return c.value.IsNegative()
}

// MarshalJSON renders credits as a JSON number.
func (c Credits) MarshalJSON() ([]byte, error) {
	return []byte(c.value.String()), nil
}

// UnmarshalJSON accepts a JSON number or a quoted decimal string.
func (c *Credits) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return errors.New("credits cannot be null")
	}
	var d decimal.Decimal
	if err := d.UnmarshalJSON(data); err != nil {
		return err
	}
	c.value = d
	return nil
}

// README: Common value objects shared across modules.
package types

import (
	"fmt"
	"math"
)

type ID string

// Point is a WGS84 coordinate in decimal degrees.
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Money holds an amount in minor units (øre for NOK).
type Money struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

// FromFloat converts a major-unit amount (e.g. 1.50 NOK) to Money,
// rounding half away from zero to the nearest minor unit.
func FromFloat(amount float64, currency string) Money {
	minor := math.Round(amount * 100)
	return Money{Amount: int64(minor), Currency: currency}
}

// Float returns the amount in major units.
func (m Money) Float() float64 {
	return float64(m.Amount) / 100
}

func (m Money) String() string {
	return fmt.Sprintf("%.2f %s", m.Float(), m.Currency)
}

func (m Money) IsZero() bool {
	return m.Amount == 0
}

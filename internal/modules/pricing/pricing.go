// README: Pricing engine for metered on-demand parking sessions.
package pricing

import (
	"math"
	"time"

	"spotly/internal/types"
)

// Currency is the settlement currency for all marketplace charges.
const Currency = "NOK"

// PerMinuteRate resolves a spot's effective per-minute rate: the explicit
// per-minute price wins, otherwise the hourly price divided by 60. A spot
// with neither price set is free.
func PerMinuteRate(perMinute, perHour *float64) float64 {
	if perMinute != nil {
		return *perMinute
	}
	if perHour != nil {
		return *perHour / 60
	}
	return 0
}

// Charge computes the billed minutes and amount for a session. Elapsed time
// is rounded up to whole minutes with a floor of one billed minute, so a
// sub-minute session still pays for a full minute. The amount is rounded
// half away from zero to the nearest øre.
func Charge(ratePerMinute float64, start, end time.Time) (int, types.Money) {
	elapsed := end.Sub(start)
	if elapsed < 0 {
		elapsed = 0
	}
	minutes := int(math.Ceil(elapsed.Minutes()))
	if minutes < 1 {
		minutes = 1
	}
	return minutes, ForMinutes(ratePerMinute, minutes)
}

// ForMinutes converts an already-billed minute count back into an amount,
// with the same rounding as Charge.
func ForMinutes(ratePerMinute float64, minutes int) types.Money {
	if minutes < 0 {
		minutes = 0
	}
	return types.FromFloat(ratePerMinute*float64(minutes), Currency)
}

// Estimate is Charge with end = now; callers use it for a running total on
// an open session. For a fixed now it always returns the same value.
func Estimate(ratePerMinute float64, start, now time.Time) (int, types.Money) {
	return Charge(ratePerMinute, start, now)
}

// ServiceFee returns the platform fee added on top of the parking charge.
func ServiceFee(parking types.Money, percent float64) types.Money {
	if percent <= 0 {
		return types.Money{Amount: 0, Currency: parking.Currency}
	}
	return types.FromFloat(parking.Float()*percent/100, parking.Currency)
}

// Add sums two amounts in the same currency.
func Add(a, b types.Money) types.Money {
	return types.Money{Amount: a.Amount + b.Amount, Currency: a.Currency}
}

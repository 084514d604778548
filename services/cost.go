package services

import "math"

// NextItemCost computes the price of the next unit of an item given how many
// units the player already owns. Geometric growth: base * multiplier^owned,
// rounded half-up to a whole point (a fraction of exactly .5 rounds up).
func NextItemCost(baseCost int64, quantity int64, multiplier float64) int64 {
	raw := float64(baseCost) * math.Pow(multiplier, float64(quantity))
	return int64(math.Floor(raw + 0.5))
}

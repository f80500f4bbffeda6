package models

import "math"

// Money is stored as integer cents everywhere internally; API payloads carry
// decimal dollars like the rest of the foundation's tooling expects.

// Dollars converts cents to a decimal dollar amount for responses.
func Dollars(cents int64) float64 {
	return float64(cents) / 100
}

// CentsFromDollars converts a decimal dollar amount from a request to cents.
func CentsFromDollars(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

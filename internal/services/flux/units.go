// Package flux converts data-volume units and parses the provider's
// free-text flow package listing.
package flux

import "math"

// Multipliers to KB, powers of 1024.
var unitToKB = map[string]float64{
	"B":  1.0 / 1024,
	"KB": 1,
	"MB": 1024,
	"GB": 1024 * 1024,
	"TB": 1024 * 1024 * 1024,
}

// multiplier returns the KB multiplier for unit. Unknown units count as KB
// since the provider text format is not contractual.
func multiplier(unit string) float64 {
	if m, ok := unitToKB[unit]; ok {
		return m
	}
	return 1
}

// ToKB converts value expressed in unit to KB.
func ToKB(value float64, unit string) float64 {
	return value * multiplier(unit)
}

// FromKB converts kb to unit.
func FromKB(kb float64, unit string) float64 {
	return kb / multiplier(unit)
}

// FormatSize converts kb to unit rounded to the given number of decimals.
func FormatSize(kb int64, unit string, decimals int) float64 {
	v := FromKB(float64(kb), unit)
	p := math.Pow(10, float64(decimals))
	return math.Round(v*p) / p
}

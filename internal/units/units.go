// Package units provides shared constants and conversion for acceleration units
package units

import "strings"

// StandardGravity is one g in m/s².
const StandardGravity = 9.80665

// Unit constants
const (
	G    = "g"
	MPS2 = "mps2"
)

// ValidUnits contains all valid unit values
var ValidUnits = []string{G, MPS2}

// IsValid checks if the given unit is in the list of valid units
func IsValid(unit string) bool {
	for _, validUnit := range ValidUnits {
		if unit == validUnit {
			return true
		}
	}
	return false
}

// GetValidUnitsString returns a comma-separated string of valid units for error messages
func GetValidUnitsString() string {
	return strings.Join(ValidUnits, ", ")
}

// ScaleToGravity returns the factor that converts a reading in unit to g.
// The classifier thresholds are expressed in g.
func ScaleToGravity(unit string) float64 {
	switch unit {
	case MPS2:
		return 1 / StandardGravity
	default:
		return 1 // g, or unknown units treated as g
	}
}

// ToGravity converts an acceleration in unit to g.
func ToGravity(v float64, unit string) float64 {
	return v * ScaleToGravity(unit)
}

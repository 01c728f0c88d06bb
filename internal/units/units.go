// Package units converts the SI values the firmware logs into display units.
package units

import (
	"fmt"
	"math"
	"slices"
)

// Angle unit names
const (
	Rad = "rad"
	Deg = "deg"
)

// Speed unit names
const (
	MPS  = "mps"
	KMPH = "kmph"
	MPH  = "mph"
)

var (
	ValidAngleUnits = []string{Rad, Deg}
	ValidSpeedUnits = []string{MPS, KMPH, MPH}
)

// IsValidAngle reports whether unit is a known angle unit.
func IsValidAngle(unit string) bool {
	return slices.Contains(ValidAngleUnits, unit)
}

// IsValidSpeed reports whether unit is a known speed unit.
func IsValidSpeed(unit string) bool {
	return slices.Contains(ValidSpeedUnits, unit)
}

// ConvertAngle converts an angle in radians to unit. Unknown units return
// radians unchanged.
func ConvertAngle(rad float64, unit string) float64 {
	if unit == Deg {
		return rad * 180 / math.Pi
	}
	return rad
}

// Degrees converts each element of rad to degrees.
func Degrees(rad []float64) []float64 {
	out := make([]float64, len(rad))
	for i, r := range rad {
		out[i] = ConvertAngle(r, Deg)
	}
	return out
}

// ConvertSpeed converts a speed in m/s to unit.
func ConvertSpeed(mps float64, unit string) float64 {
	switch unit {
	case KMPH:
		return mps * 3.6
	case MPH:
		return mps * 2.2369362920544
	default:
		return mps
	}
}

// FormatSpeed renders a speed in m/s with the unit suffix.
func FormatSpeed(mps float64, unit string) string {
	if !IsValidSpeed(unit) {
		unit = MPS
	}
	suffix := map[string]string{MPS: "m/s", KMPH: "km/h", MPH: "mph"}[unit]
	return fmt.Sprintf("%.2f %s", ConvertSpeed(mps, unit), suffix)
}

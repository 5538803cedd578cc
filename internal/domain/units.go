package domain

import (
	"fmt"
	"math"
	"strings"
)

// Unit is a supported weight unit.
type Unit string

const (
	UnitLbs Unit = "lbs"
	UnitKg  Unit = "kg"
)

const (
	lbsPerKg = 2.20462

	// MaxWeightLbs and MaxWeightKg bound any weight a user may record or target.
	MaxWeightLbs = 700.0
	MaxWeightKg  = 317.5
)

// ParseUnit accepts "lbs", "lb" and "kg" (case-insensitive).
func ParseUnit(s string) (Unit, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "lbs", "lb":
		return UnitLbs, nil
	case "kg":
		return UnitKg, nil
	}
	return "", fmt.Errorf("%w: unit must be \"lbs\" or \"kg\"", ErrInvalidInput)
}

// Valid reports whether u is one of the supported units.
func (u Unit) Valid() bool {
	return u == UnitLbs || u == UnitKg
}

// ToKg converts pounds to kilograms.
func ToKg(lbs float64) float64 {
	return lbs / lbsPerKg
}

// ToLbs converts kilograms to pounds.
func ToLbs(kg float64) float64 {
	return kg * lbsPerKg
}

// ConvertWeight converts a weight value between units.
// Returns v unchanged if from == to or if either unit is unrecognised.
func ConvertWeight(v float64, from, to Unit) float64 {
	if from == to {
		return v
	}
	if from == UnitKg && to == UnitLbs {
		return ToLbs(v)
	}
	if from == UnitLbs && to == UnitKg {
		return ToKg(v)
	}
	return v
}

// RoundToOneDecimal rounds to the display precision used across the app.
func RoundToOneDecimal(v float64) float64 {
	return math.Round(v*10) / 10
}

// FormatWeight renders a weight as "180.5 lbs".
func FormatWeight(v float64, u Unit) string {
	return fmt.Sprintf("%.1f %s", v, u)
}

// ValidWeight reports whether v is a plausible body weight in unit u.
func ValidWeight(v float64, u Unit) bool {
	if v <= 0 {
		return false
	}
	switch u {
	case UnitLbs:
		return v <= MaxWeightLbs
	case UnitKg:
		return v <= MaxWeightKg
	}
	return false
}

// Package features turns raw prediction records into the numeric schema the
// demand model was trained on.
package features

import "math"

const (
	DaysPerWeek    = 7
	HoursPerDay    = 24
	MinutesPerHour = 60

	// MinuteWindow is the width of the quantized start-time window.
	MinuteWindow = 15
)

// EncodeCyclic maps value onto the unit circle for the given period so that
// the first and last values of the cycle end up next to each other.
func EncodeCyclic(value, period float64) (sin, cos float64) {
	angle := 2 * math.Pi * value / period
	return math.Sin(angle), math.Cos(angle)
}

// QuantizeMinutes rounds minutes to the nearest multiple of MinuteWindow.
// Minutes 53-59 round up to 60.
func QuantizeMinutes(minutes int) int {
	return int(math.Round(float64(minutes)/MinuteWindow)) * MinuteWindow
}

// NormalizeMinuteWindow wraps a quantized value back into [0, 60).
func NormalizeMinuteWindow(window int) int {
	window %= MinutesPerHour
	if window < 0 {
		window += MinutesPerHour
	}
	return window
}

// MinuteWindowOf is QuantizeMinutes followed by NormalizeMinuteWindow.
func MinuteWindowOf(minutes int) int {
	return NormalizeMinuteWindow(QuantizeMinutes(minutes))
}

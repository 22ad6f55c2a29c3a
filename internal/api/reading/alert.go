package reading

import "fmt"

// Safe-range thresholds. The firmware historically shipped two humidity
// rule sets (80/20 on the public path, 95/40 on the authenticated one);
// 95/40 is the canonical rule everywhere, see DESIGN.md. Thresholds are
// build-time constants: stored alert flags are never recomputed.
const (
	TempHigh     = 26.0
	TempLow      = 20.0
	HumidityHigh = 95.0
	HumidityLow  = 40.0
)

// EvaluateAlert reports whether a sample is outside the safe thresholds.
// A reading without a humidity value can only alert on temperature.
func EvaluateAlert(temperature float64, humidity *float64) bool {
	if temperature > TempHigh || temperature < TempLow {
		return true
	}
	if humidity != nil && (*humidity > HumidityHigh || *humidity < HumidityLow) {
		return true
	}
	return false
}

// alertMessage formats the human-readable notification for a sample.
func alertMessage(temperature float64, humidity *float64) string {
	if humidity != nil {
		return fmt.Sprintf("Critical values detected! Temperature: %.1f°C, Humidity: %.1f%%", temperature, *humidity)
	}
	return fmt.Sprintf("Critical values detected! Temperature: %.1f°C", temperature)
}

package sensor

import "math"

// Callendar-Van Dusen coefficients for platinum RTDs (IEC 60751).
const (
	cvdA = 3.9083e-3
	cvdB = -5.775e-7
)

// rtdToTemperature solves the Callendar-Van Dusen equation for temperature.
// The quadratic solution is exact for t >= 0 degC and within a few hundredths
// of a degree slightly below, which covers the plate's working range.
func rtdToTemperature(resistance, rNominal float64) float64 {
	z := resistance / rNominal
	return (-cvdA + math.Sqrt(cvdA*cvdA-4*cvdB*(1-z))) / (2 * cvdB)
}

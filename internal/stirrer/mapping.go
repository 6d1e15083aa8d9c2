// Package stirrer implements open-loop phase-angle control of the stir
// motor. A zero-cross detector timestamps each mains half-cycle and arms a
// one-shot delay timer; the delay callback asserts the triac gate and arms a
// second one-shot that ends the gate pulse. Delay scheduling runs in the
// edge/timer domain and shares state with the task-domain API exclusively
// through atomics, never a lock.
package stirrer

import (
	"math"
	"time"
)

// safetyMargin keeps the firing delay clear of the next zero-cross; firing
// into the following half-cycle would defeat phase control entirely.
const safetyMargin = 200 * time.Microsecond

// Tuning holds the knobs of the open-loop RPM-to-firing-delay mapping.
type Tuning struct {
	// MaxRPM is the motor speed commanded at 100 percent power; the
	// RPM-to-percent scale is linear against it.
	MaxRPM float64

	// MinPercent is the conduction floor. Pulses below it are too narrow
	// to reliably latch the triac.
	MinPercent float64

	// MaxPercent is the conduction ceiling. Above it the firing point
	// crowds the next zero-cross.
	MaxPercent float64

	// Gamma compensates the non-linear relationship between firing angle
	// and delivered RMS power, so commanded speed feels linear in torque.
	Gamma float64

	// GatePulse is the width of the triac gate pulse.
	GatePulse time.Duration
}

// DefaultTuning matches the board's 3000 RPM stir motor and MOC-series
// opto-triac driver.
func DefaultTuning() Tuning {
	return Tuning{
		MaxRPM:     3000,
		MinPercent: 5,
		MaxPercent: 95,
		Gamma:      2.0,
		GatePulse:  120 * time.Microsecond,
	}
}

// HalfCycle returns the conduction window for the given mains frequency:
// 10000 us at 50 Hz, 8333 us at 60 Hz.
func HalfCycle(mainsHz int) time.Duration {
	return time.Second / time.Duration(2*mainsHz)
}

// PercentForRPM maps a target RPM onto the linear 0-100 power scale.
// Clamping to the usable band happens in FiringDelay.
func (t Tuning) PercentForRPM(rpm float64) float64 {
	return rpm / t.MaxRPM * 100
}

// FiringDelay converts a power percentage into the delay from zero-cross to
// gate assertion. Higher percent fires earlier (more conduction). The result
// never exceeds halfCycle minus the safety margin.
func (t Tuning) FiringDelay(percent float64, halfCycle time.Duration) time.Duration {
	p := percent
	if p < t.MinPercent {
		p = t.MinPercent
	}
	if p > t.MaxPercent {
		p = t.MaxPercent
	}

	x := (p - t.MinPercent) / (t.MaxPercent - t.MinPercent)
	powerFrac := math.Pow(x, t.Gamma)
	alphaFrac := 1 - powerFrac

	d := time.Duration(alphaFrac * float64(halfCycle))
	if d > halfCycle-safetyMargin {
		d = halfCycle - safetyMargin
	}
	return d
}

// DelayForRPM is the full mapping used by SetTargetRPM.
func (t Tuning) DelayForRPM(rpm float64, halfCycle time.Duration) time.Duration {
	return t.FiringDelay(t.PercentForRPM(rpm), halfCycle)
}

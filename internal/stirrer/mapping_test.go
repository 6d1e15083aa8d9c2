package stirrer

import (
	"testing"
	"time"
)

func TestHalfCycle(t *testing.T) {
	if got := HalfCycle(50); got != 10000*time.Microsecond {
		t.Errorf("50 Hz: half cycle = %v, want 10ms", got)
	}
	if got := HalfCycle(60); got != time.Second/120 {
		t.Errorf("60 Hz: half cycle = %v, want %v", got, time.Second/120)
	}
}

func TestFiringDelayMidpoint(t *testing.T) {
	// 1500 of 3000 RPM is 50 percent, the exact middle of the 5..95 band.
	// With gamma 2 the power fraction is 0.25, so the delay is 75 percent
	// of the half cycle.
	tun := DefaultTuning()
	half := HalfCycle(50)

	d := tun.DelayForRPM(1500, half)
	if d != 7500*time.Microsecond {
		t.Errorf("delay = %v, want 7.5ms", d)
	}
}

func TestFiringDelayMonotonic(t *testing.T) {
	// More RPM means more conduction means an earlier (or equal) firing
	// point. The delay must never increase as RPM goes up.
	tun := DefaultTuning()
	half := HalfCycle(50)

	prev := tun.DelayForRPM(0, half)
	for rpm := 50.0; rpm <= 3000; rpm += 50 {
		d := tun.DelayForRPM(rpm, half)
		if d > prev {
			t.Fatalf("delay increased at %v RPM: %v after %v", rpm, d, prev)
		}
		prev = d
	}
}

func TestFiringDelaySafetyClamp(t *testing.T) {
	tun := DefaultTuning()
	half := HalfCycle(50)
	limit := half - safetyMargin

	for _, pct := range []float64{-10, 0, 5, 50, 95, 100, 250} {
		if d := tun.FiringDelay(pct, half); d > limit {
			t.Errorf("percent %v: delay %v exceeds %v", pct, d, limit)
		}
	}
}

func TestFiringDelayClampsToUsableBand(t *testing.T) {
	tun := DefaultTuning()
	half := HalfCycle(50)

	// Anything at or below the floor maps to the floor's delay.
	floor := tun.FiringDelay(tun.MinPercent, half)
	if d := tun.FiringDelay(0, half); d != floor {
		t.Errorf("below floor: delay %v, want %v", d, floor)
	}

	// Anything at or above the ceiling maps to the ceiling's delay.
	ceil := tun.FiringDelay(tun.MaxPercent, half)
	if d := tun.FiringDelay(100, half); d != ceil {
		t.Errorf("above ceiling: delay %v, want %v", d, ceil)
	}
	if ceil >= floor {
		t.Errorf("ceiling delay %v must be shorter than floor delay %v", ceil, floor)
	}
}

package heater

import "time"

const (
	// DefaultTolerance is the bang-bang half-width used when a mode setter
	// is not given one.
	DefaultTolerance = 0.5

	// holdHysteresis is the coarse restart margin for hold mode. Wider
	// than the element's own band so the two do not fight over the relay.
	holdHysteresis = 1.0
)

type rampParams struct {
	startTemp float64
	endTemp   float64
	duration  time.Duration
	startTime time.Time
	tolerance float64
}

type holdParams struct {
	targetTemp float64
	tolerance  float64
}

type timerParams struct {
	duration   time.Duration
	startTime  time.Time
	targetTemp float64
	useTemp    bool
	tolerance  float64
}

// ModeManager layers operating modes on top of the thermal loop: a linear
// temperature ramp, an indefinite hold, and a countdown timer with optional
// temperature control. Transitions happen only through the setters, plus a
// forced return to Off on completion or when the loop faults. Setting a mode
// replaces the previous mode's parameters wholesale.
//
// ModeManager is not safe for concurrent use; the owner serializes access.
type ModeManager struct {
	element *Element
	mode    Mode

	ramp  rampParams
	hold  holdParams
	timer timerParams
}

// NewModeManager creates a manager in Off controlling the given element.
func NewModeManager(element *Element) *ModeManager {
	return &ModeManager{element: element, mode: ModeOff}
}

// SetOff stops the heater and disables automatic control, entering Off.
func (m *ModeManager) SetOff(now time.Time) []Event {
	m.mode = ModeOff
	events := m.element.Stop(now)
	m.element.ClearTarget()
	return events
}

// SetRamp starts a linear ramp from startTemp to endTemp over duration.
func (m *ModeManager) SetRamp(startTemp, endTemp float64, duration time.Duration, tolerance float64, now time.Time) []Event {
	m.mode = ModeRamp
	m.ramp = rampParams{
		startTemp: startTemp,
		endTemp:   endTemp,
		duration:  duration,
		startTime: now,
		tolerance: tolerance,
	}
	m.element.SetTarget(startTemp, tolerance)
	return m.element.Start(now)
}

// SetHold holds the plate at targetTemp indefinitely.
func (m *ModeManager) SetHold(targetTemp, tolerance float64, now time.Time) []Event {
	m.mode = ModeHold
	m.hold = holdParams{targetTemp: targetTemp, tolerance: tolerance}
	m.element.SetTarget(targetTemp, tolerance)
	return m.element.Start(now)
}

// SetTimer runs the heater for duration. With useTemp, the plate is also
// regulated at targetTemp for the span of the countdown.
func (m *ModeManager) SetTimer(duration time.Duration, targetTemp float64, useTemp bool, tolerance float64, now time.Time) []Event {
	m.mode = ModeTimer
	m.timer = timerParams{
		duration:   duration,
		startTime:  now,
		targetTemp: targetTemp,
		useTemp:    useTemp,
		tolerance:  tolerance,
	}
	if useTemp {
		m.element.SetTarget(targetTemp, tolerance)
	}
	return m.element.Start(now)
}

// Update advances the active mode. A latched loop fault pre-empts everything:
// the manager emits EventModeFault and forces Off.
func (m *ModeManager) Update(now time.Time) []Event {
	if m.element.HasFault() {
		if m.mode == ModeOff {
			return nil
		}
		events := []Event{{Timestamp: now, Type: EventModeFault, Mode: m.mode}}
		return append(events, m.SetOff(now)...)
	}

	switch m.mode {
	case ModeOff:
		return m.element.Stop(now)
	case ModeRamp:
		return m.updateRamp(now)
	case ModeHold:
		return m.updateHold(now)
	case ModeTimer:
		return m.updateTimer(now)
	}
	return nil
}

func (m *ModeManager) updateRamp(now time.Time) []Event {
	elapsed := now.Sub(m.ramp.startTime)
	if elapsed >= m.ramp.duration {
		m.element.SetTarget(m.ramp.endTemp, m.ramp.tolerance)
		events := []Event{{Timestamp: now, Type: EventModeComplete, Mode: ModeRamp}}
		return append(events, m.SetOff(now)...)
	}

	progress := float64(elapsed) / float64(m.ramp.duration)
	target := m.ramp.startTemp + (m.ramp.endTemp-m.ramp.startTemp)*progress
	m.element.SetTarget(target, m.ramp.tolerance)
	return m.element.Start(now)
}

func (m *ModeManager) updateHold(now time.Time) []Event {
	// The element's own hysteresis does the regulating; this is a coarse
	// safety restart in case the loop was stopped externally.
	temp, ok := m.element.CurrentTemperature()
	if ok && !m.element.IsRunning() && temp < m.hold.targetTemp-holdHysteresis {
		return m.element.Start(now)
	}
	return nil
}

func (m *ModeManager) updateTimer(now time.Time) []Event {
	elapsed := now.Sub(m.timer.startTime)
	if elapsed >= m.timer.duration {
		events := []Event{{Timestamp: now, Type: EventModeComplete, Mode: ModeTimer}}
		return append(events, m.SetOff(now)...)
	}
	return m.element.Start(now)
}

// CurrentMode returns the active mode.
func (m *ModeManager) CurrentMode() Mode { return m.mode }

// Progress returns the completed fraction of the active operation in [0,1].
// Hold has no endpoint and reports 0; Off reports 1.
func (m *ModeManager) Progress(now time.Time) float64 {
	switch m.mode {
	case ModeOff:
		return 1
	case ModeRamp:
		return clampFraction(now.Sub(m.ramp.startTime), m.ramp.duration)
	case ModeTimer:
		return clampFraction(now.Sub(m.timer.startTime), m.timer.duration)
	}
	return 0
}

// Remaining returns the time left in the active operation, 0 if none.
func (m *ModeManager) Remaining(now time.Time) time.Duration {
	switch m.mode {
	case ModeRamp:
		return clampRemaining(now.Sub(m.ramp.startTime), m.ramp.duration)
	case ModeTimer:
		return clampRemaining(now.Sub(m.timer.startTime), m.timer.duration)
	}
	return 0
}

func clampFraction(elapsed, duration time.Duration) float64 {
	if duration <= 0 || elapsed >= duration {
		return 1
	}
	if elapsed < 0 {
		return 0
	}
	return float64(elapsed) / float64(duration)
}

func clampRemaining(elapsed, duration time.Duration) time.Duration {
	if elapsed >= duration {
		return 0
	}
	return duration - elapsed
}

package heater

import (
	"fmt"
	"math"
	"time"

	"github.com/sweeney/hotplate-controller/internal/hw"
)

const (
	// tempChangeEpsilon is the smallest change that produces an
	// EventTemperature. Suppresses noise from the converter's LSB jitter.
	tempChangeEpsilon = 0.1

	// faultClearBand is how far below maxTemp the reading must fall before
	// an over-temperature fault clears. A plain threshold would chatter
	// right at the limit; the band forces a real cool-down first. The
	// relay stays off after clearing until an explicit Start.
	faultClearBand = 5.0

	// Validity window for probe readings. Anything outside is a wiring or
	// conversion fault, not a plausible plate temperature.
	minValidTemp = -50.0
	maxValidTemp = 500.0
)

// Element is the bang-bang thermal control loop for the plate relay. It
// turns successive temperature samples into relay on/off decisions within a
// hysteresis band of target ± tolerance, trips a fault on over-temperature
// or unreadable samples, and latches a one-shot target-reached notification.
// A fault clears the setpoint: after the fault itself clears, the relay
// stays off until a mode setter provides a new target and Start is called.
//
// Element is not safe for concurrent use; the owner serializes access.
type Element struct {
	relay   hw.OutputPin
	maxTemp float64

	current   float64
	hasSample bool

	target    float64
	tolerance float64
	targetSet bool

	running bool
	fault   bool
	reached bool // target-reached latch; resets below target - tolerance
}

// NewElement creates the loop around the given relay pin. The relay is
// assumed to start de-energized.
func NewElement(relay hw.OutputPin, maxTemp float64) *Element {
	return &Element{relay: relay, maxTemp: maxTemp}
}

// SetTarget sets the bang-bang setpoint and clears the target-reached latch.
// The value itself is unconstrained; maxTemp enforces safety independently.
func (e *Element) SetTarget(target, tolerance float64) {
	e.target = target
	e.tolerance = tolerance
	e.targetSet = true
	e.reached = false
}

// ClearTarget disables automatic control. The relay keeps its current state
// until Stop or the next explicit command.
func (e *Element) ClearTarget() {
	e.targetSet = false
	e.reached = false
}

// Start energizes the relay. Refused while a fault is latched.
func (e *Element) Start(now time.Time) []Event {
	if e.fault {
		return nil
	}
	return e.setRelay(true, now)
}

// Stop de-energizes the relay.
func (e *Element) Stop(now time.Time) []Event {
	return e.setRelay(false, now)
}

// Process runs the per-sample pipeline: change detection, fault checks,
// bang-bang control, target-reached edge detection. At most one event of
// each type is produced per call.
func (e *Element) Process(s Sample) []Event {
	var events []Event

	if s.Err != nil {
		return append(events, e.tripFault(s.Time, fmt.Sprintf("sensor: %v", s.Err))...)
	}
	if math.IsNaN(s.Temperature) || s.Temperature < minValidTemp || s.Temperature > maxValidTemp {
		return append(events, e.tripFault(s.Time, fmt.Sprintf("reading out of range: %.1f", s.Temperature))...)
	}

	prev, had := e.current, e.hasSample
	e.current, e.hasSample = s.Temperature, true
	if !had || math.Abs(s.Temperature-prev) > tempChangeEpsilon {
		events = append(events, Event{Timestamp: s.Time, Type: EventTemperature, Temperature: s.Temperature})
	}

	if s.Temperature >= e.maxTemp {
		return append(events, e.tripFault(s.Time,
			fmt.Sprintf("over-temperature: %.1f >= %.1f", s.Temperature, e.maxTemp))...)
	}

	if e.fault && s.Temperature < e.maxTemp-faultClearBand {
		e.fault = false
		events = append(events, Event{Timestamp: s.Time, Type: EventFaultCleared})
	}

	if e.targetSet && !e.fault {
		if s.Temperature < e.target-e.tolerance {
			events = append(events, e.setRelay(true, s.Time)...)
		} else if s.Temperature >= e.target+e.tolerance {
			events = append(events, e.setRelay(false, s.Time)...)
		}

		if s.Temperature < e.target-e.tolerance {
			e.reached = false
		} else if e.running && !e.reached {
			e.reached = true
			events = append(events, Event{Timestamp: s.Time, Type: EventTargetReached})
		}
	}

	return events
}

// CurrentTemperature returns the last sample and whether one exists yet.
func (e *Element) CurrentTemperature() (float64, bool) {
	return e.current, e.hasSample
}

// Target returns the current setpoint.
func (e *Element) Target() float64 { return e.target }

// Tolerance returns the hysteresis half-width.
func (e *Element) Tolerance() float64 { return e.tolerance }

// TargetSet reports whether automatic control is enabled.
func (e *Element) TargetSet() bool { return e.targetSet }

// IsRunning reports whether the relay is energized.
func (e *Element) IsRunning() bool { return e.running }

// HasFault reports whether a fault is latched.
func (e *Element) HasFault() bool { return e.fault }

// tripFault latches the fault, forces the relay off, and emits a fault
// event on the off-to-fault transition. Automatic control is disabled so
// a later fault clear cannot re-engage the relay; a mode setter must set a
// fresh target first.
func (e *Element) tripFault(now time.Time, reason string) []Event {
	wasFault := e.fault
	e.fault = true
	e.targetSet = false
	e.reached = false
	events := e.setRelay(false, now)
	if !wasFault {
		events = append(events, Event{Timestamp: now, Type: EventFault, Reason: reason})
	}
	return events
}

// setRelay drives the pin and reports the transition. The relay may be
// energized only while no fault is latched.
func (e *Element) setRelay(on bool, now time.Time) []Event {
	if on == e.running {
		return nil
	}
	if on && e.fault {
		return nil
	}
	e.relay.Set(on)
	e.running = on
	if on {
		return []Event{{Timestamp: now, Type: EventHeaterOn}}
	}
	return []Event{{Timestamp: now, Type: EventHeaterOff}}
}

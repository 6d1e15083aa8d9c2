// Package heater contains the thermal control loop and the heating mode
// state machine. The package is pure control logic: the relay pin is
// injected, time always arrives as a parameter, and state changes are
// reported as returned events rather than callbacks, so any number of
// observers (MQTT, status tracker, tests) can consume them.
package heater

import "time"

// EventType identifies a heater event.
type EventType string

const (
	EventHeaterOn      EventType = "HEATER_ON"
	EventHeaterOff     EventType = "HEATER_OFF"
	EventTemperature   EventType = "TEMPERATURE"
	EventTargetReached EventType = "TARGET_REACHED"
	EventFault         EventType = "FAULT"
	EventFaultCleared  EventType = "FAULT_CLEARED"
	EventModeComplete  EventType = "MODE_COMPLETE"
	EventModeFault     EventType = "MODE_FAULT"
)

// Event is a state change to be logged and published.
type Event struct {
	Timestamp time.Time
	Type      EventType

	// Temperature carries the new reading for EventTemperature.
	Temperature float64

	// Reason describes what tripped an EventFault.
	Reason string

	// Mode names the mode that completed or faulted.
	Mode Mode
}

// Sample is one temperature reading fed to the loop.
type Sample struct {
	// Temperature in degrees Celsius. Meaningless if Err is set.
	Temperature float64

	Time time.Time

	// Err is the sensor's read error, if any. An errored sample faults
	// the loop the same way over-temperature does.
	Err error
}

// Mode is the operating mode of the heating state machine.
type Mode string

const (
	ModeOff   Mode = "OFF"
	ModeRamp  Mode = "RAMP"
	ModeHold  Mode = "HOLD"
	ModeTimer Mode = "TIMER"
)

// DisplayName returns the operator-facing name for the mode.
func (m Mode) DisplayName() string {
	switch m {
	case ModeOff:
		return "Off"
	case ModeRamp:
		return "Ramp"
	case ModeHold:
		return "Hold"
	case ModeTimer:
		return "Timer"
	}
	return string(m)
}

package status

import (
	"encoding/json"
	"math"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string      `json:"event,omitempty"`
	Reason        string      `json:"reason,omitempty"`
	Heater        HeaterJSON  `json:"heater"`
	Stirrer       StirrerJSON `json:"stirrer"`
	UptimeSeconds int64       `json:"uptime_seconds"`
	StartTime     string      `json:"start_time"`
	Timestamp     string      `json:"timestamp"`
	MQTT          MQTTStatus  `json:"mqtt"`
	Counts        CountsJSON  `json:"event_counts"`
	Config        ConfigJSON  `json:"config"`
}

// HeaterJSON is the JSON representation of the thermal loop.
type HeaterJSON struct {
	Mode             string   `json:"mode"`
	Temperature      *float64 `json:"temperature,omitempty"`
	Target           *float64 `json:"target,omitempty"`
	Heating          bool     `json:"heating"`
	Fault            bool     `json:"fault"`
	Progress         float64  `json:"progress"`
	RemainingSeconds int64    `json:"remaining_seconds"`
}

// StirrerJSON is the JSON representation of the stir controller.
type StirrerJSON struct {
	Running   bool     `json:"running"`
	TargetRPM float64  `json:"target_rpm"`
	Estimate  *float64 `json:"estimate_rpm,omitempty"`
	Fault     bool     `json:"fault"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// CountsJSON is the JSON representation of event counts.
type CountsJSON struct {
	HeaterOn  int `json:"heater_on"`
	HeaterOff int `json:"heater_off"`
	Faults    int `json:"faults"`
	Completed int `json:"completed"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	PollMs      int64   `json:"poll_ms"`
	HeartbeatMs int64   `json:"heartbeat_ms"`
	MaxTemp     float64 `json:"max_temp"`
	MainsHz     int     `json:"mains_hz"`
	Broker      string  `json:"broker"`
	HTTPAddr    string  `json:"http_addr"`
}

func buildInner(snap Snapshot) StatusInner {
	h := HeaterJSON{
		Mode:             snap.Heater.Mode.DisplayName(),
		Heating:          snap.Heater.Heating,
		Fault:            snap.Heater.Fault,
		Progress:         snap.Heater.Progress,
		RemainingSeconds: int64(snap.Heater.Remaining.Truncate(time.Second).Seconds()),
	}
	if snap.Heater.HasReading {
		temp := snap.Heater.Temperature
		h.Temperature = &temp
	}
	if snap.Heater.TargetSet {
		target := snap.Heater.Target
		h.Target = &target
	}

	s := StirrerJSON{
		Running:   snap.Stirrer.Running,
		TargetRPM: snap.Stirrer.TargetRPM,
		Fault:     snap.Stirrer.Fault,
	}
	if !math.IsNaN(snap.Stirrer.Estimate) {
		est := snap.Stirrer.Estimate
		s.Estimate = &est
	}

	return StatusInner{
		Heater:        h,
		Stirrer:       s,
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Counts: CountsJSON{
			HeaterOn:  snap.Counts.HeaterOn,
			HeaterOff: snap.Counts.HeaterOff,
			Faults:    snap.Counts.Faults,
			Completed: snap.Counts.Completed,
		},
		Config: ConfigJSON{
			PollMs:      snap.Config.PollMs,
			HeartbeatMs: snap.Config.HeartbeatMs,
			MaxTemp:     snap.Config.MaxTemp,
			MainsHz:     snap.Config.MainsHz,
			Broker:      snap.Config.Broker,
			HTTPAddr:    snap.Config.HTTPAddr,
		},
	}
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(StatusJSON{Status: buildInner(snap)}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}

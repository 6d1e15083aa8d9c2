package web

import (
	"encoding/json"
	"math"
	"time"

	"github.com/sweeney/hotplate-controller/internal/status"
)

// LiveFrame is the compact websocket update consumed by the status page
// script. The full document stays on /index.json; this only carries what
// the page repaints every second.
type LiveFrame struct {
	Timestamp        string        `json:"timestamp"`
	Mode             string        `json:"mode"`
	Temperature      *float64      `json:"temperature,omitempty"`
	Target           *float64      `json:"target,omitempty"`
	Heating          bool          `json:"heating"`
	Fault            bool          `json:"fault"`
	Progress         float64       `json:"progress"`
	RemainingSeconds int64         `json:"remaining_seconds"`
	Stirrer          StirrerFrame  `json:"stirrer"`
	MQTTConnected    bool          `json:"mqtt_connected"`
}

// StirrerFrame is the stirrer portion of a live frame.
type StirrerFrame struct {
	Running   bool     `json:"running"`
	TargetRPM float64  `json:"target_rpm"`
	Estimate  *float64 `json:"estimate_rpm,omitempty"`
}

func formatLiveFrame(snap status.Snapshot) []byte {
	frame := LiveFrame{
		Timestamp:        snap.Now.UTC().Format(time.RFC3339),
		Mode:             snap.Heater.Mode.DisplayName(),
		Heating:          snap.Heater.Heating,
		Fault:            snap.Heater.Fault,
		Progress:         snap.Heater.Progress,
		RemainingSeconds: int64(snap.Heater.Remaining.Truncate(time.Second).Seconds()),
		Stirrer: StirrerFrame{
			Running:   snap.Stirrer.Running,
			TargetRPM: snap.Stirrer.TargetRPM,
		},
		MQTTConnected: snap.MQTTConnected,
	}
	if snap.Heater.HasReading {
		temp := snap.Heater.Temperature
		frame.Temperature = &temp
	}
	if snap.Heater.TargetSet {
		target := snap.Heater.Target
		frame.Target = &target
	}
	if !math.IsNaN(snap.Stirrer.Estimate) {
		est := snap.Stirrer.Estimate
		frame.Stirrer.Estimate = &est
	}

	data, _ := json.Marshal(frame)
	return data
}

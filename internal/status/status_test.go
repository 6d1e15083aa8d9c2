package status

import (
	"encoding/json"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/sweeney/hotplate-controller/internal/heater"
)

func TestNewTracker(t *testing.T) {
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	cfg := Config{PollMs: 500, MaxTemp: 70, MainsHz: 50, Broker: "tcp://localhost:1883", HTTPAddr: ":8080"}
	tr := NewTracker(start, cfg)

	snap := tr.Snapshot()
	if !snap.StartTime.Equal(start) {
		t.Errorf("StartTime: got %v, want %v", snap.StartTime, start)
	}
	if snap.Config.PollMs != 500 {
		t.Errorf("Config.PollMs: got %d, want 500", snap.Config.PollMs)
	}
	if snap.Heater.Mode != heater.ModeOff {
		t.Errorf("initial mode: got %v, want OFF", snap.Heater.Mode)
	}
	if snap.MQTTConnected {
		t.Error("expected MQTTConnected=false initially")
	}
}

func TestUpdateAndSnapshot(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})

	tr.UpdateHeater(HeaterState{
		Mode:        heater.ModeHold,
		Temperature: 48.2,
		HasReading:  true,
		Target:      50.0,
		TargetSet:   true,
		Heating:     true,
	})
	tr.UpdateStirrer(StirrerState{Running: true, TargetRPM: 900, Estimate: 900})
	tr.SetCounts(Counts{HeaterOn: 3, Faults: 1})

	snap := tr.Snapshot()
	if snap.Heater.Mode != heater.ModeHold || !snap.Heater.Heating {
		t.Errorf("heater view: %+v", snap.Heater)
	}
	if snap.Heater.Temperature != 48.2 || snap.Heater.Target != 50.0 {
		t.Errorf("heater temps: %+v", snap.Heater)
	}
	if !snap.Stirrer.Running || snap.Stirrer.TargetRPM != 900 {
		t.Errorf("stirrer view: %+v", snap.Stirrer)
	}
	if snap.Counts.HeaterOn != 3 || snap.Counts.Faults != 1 {
		t.Errorf("counts: %+v", snap.Counts)
	}
}

func TestSetMQTTConnected(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})

	tr.SetMQTTConnected(true)
	if !tr.Snapshot().MQTTConnected {
		t.Error("expected MQTTConnected=true")
	}

	tr.SetMQTTConnected(false)
	if tr.Snapshot().MQTTConnected {
		t.Error("expected MQTTConnected=false")
	}
}

func TestSnapshotUptime(t *testing.T) {
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	snap := Snapshot{
		StartTime: start,
		Now:       start.Add(15 * time.Minute),
	}

	if snap.Uptime() != 15*time.Minute {
		t.Errorf("Uptime: got %v, want 15m", snap.Uptime())
	}
}

func TestSnapshotNowIsSet(t *testing.T) {
	tr := NewTracker(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), Config{})

	before := time.Now()
	snap := tr.Snapshot()
	after := time.Now()

	if snap.Now.Before(before) || snap.Now.After(after) {
		t.Errorf("Now (%v) not between %v and %v", snap.Now, before, after)
	}
}

func TestSnapshotIsCopy(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})
	tr.UpdateHeater(HeaterState{Mode: heater.ModeHold, Target: 50, TargetSet: true})

	snap1 := tr.Snapshot()

	tr.UpdateHeater(HeaterState{Mode: heater.ModeOff})

	if snap1.Heater.Mode != heater.ModeHold {
		t.Error("snapshot should be a copy; heater state was modified")
	}
}

func TestFormatJSON(t *testing.T) {
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	snap := Snapshot{
		Heater: HeaterState{
			Mode:        heater.ModeHold,
			Temperature: 49.7,
			HasReading:  true,
			Target:      50.0,
			TargetSet:   true,
			Heating:     true,
		},
		Stirrer:       StirrerState{Running: true, TargetRPM: 1200, Estimate: 1200},
		Counts:        Counts{HeaterOn: 5, HeaterOff: 4, Faults: 0, Completed: 2},
		StartTime:     start,
		Now:           start.Add(15 * time.Minute),
		MQTTConnected: true,
		Config:        Config{PollMs: 500, HeartbeatMs: 60000, MaxTemp: 70, MainsHz: 50, Broker: "tcp://localhost:1883", HTTPAddr: ":8080"},
	}

	data := FormatJSON(snap)

	var parsed StatusJSON
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	if parsed.Status.Heater.Mode != "Hold" {
		t.Errorf("mode: got %q, want Hold", parsed.Status.Heater.Mode)
	}
	if parsed.Status.Heater.Temperature == nil || *parsed.Status.Heater.Temperature != 49.7 {
		t.Errorf("temperature: got %v", parsed.Status.Heater.Temperature)
	}
	if parsed.Status.Heater.Target == nil || *parsed.Status.Heater.Target != 50.0 {
		t.Errorf("target: got %v", parsed.Status.Heater.Target)
	}
	if !parsed.Status.Stirrer.Running || parsed.Status.Stirrer.TargetRPM != 1200 {
		t.Errorf("stirrer: %+v", parsed.Status.Stirrer)
	}
	if parsed.Status.UptimeSeconds != 900 {
		t.Errorf("UptimeSeconds: got %d, want 900", parsed.Status.UptimeSeconds)
	}
	if !parsed.Status.MQTT.Connected {
		t.Error("expected MQTT.Connected=true")
	}
	if parsed.Status.Counts.HeaterOn != 5 {
		t.Errorf("Counts.HeaterOn: got %d, want 5", parsed.Status.Counts.HeaterOn)
	}
	// Event and Reason should be omitted for the web format.
	if parsed.Status.Event != "" {
		t.Errorf("expected empty Event for web format, got %q", parsed.Status.Event)
	}
	if parsed.Status.Reason != "" {
		t.Errorf("expected empty Reason for web format, got %q", parsed.Status.Reason)
	}
}

func TestFormatJSONOmitsUnknownValues(t *testing.T) {
	// No reading yet and no target set: both fields absent, not zero.
	snap := Snapshot{
		Stirrer:   StirrerState{Estimate: math.NaN()},
		StartTime: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		Now:       time.Date(2026, 3, 1, 0, 0, 1, 0, time.UTC),
	}

	data := FormatJSON(snap)

	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	h := raw["status"].(map[string]interface{})["heater"].(map[string]interface{})
	if _, exists := h["temperature"]; exists {
		t.Error("temperature must be omitted before the first reading")
	}
	if _, exists := h["target"]; exists {
		t.Error("target must be omitted when no target is set")
	}
	s := raw["status"].(map[string]interface{})["stirrer"].(map[string]interface{})
	if _, exists := s["estimate_rpm"]; exists {
		t.Error("NaN estimate must be omitted")
	}
}

func TestFormatStatusEvent(t *testing.T) {
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	snap := Snapshot{
		Heater:        HeaterState{Mode: heater.ModeTimer},
		StartTime:     start,
		Now:           start.Add(15 * time.Minute),
		MQTTConnected: true,
		Config:        Config{Broker: "tcp://localhost:1883"},
	}

	data := FormatStatusEvent(snap, "HEARTBEAT", "")

	var parsed StatusJSON
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	if parsed.Status.Event != "HEARTBEAT" {
		t.Errorf("Event: got %q, want HEARTBEAT", parsed.Status.Event)
	}
	if parsed.Status.Heater.Mode != "Timer" {
		t.Errorf("mode: got %q, want Timer", parsed.Status.Heater.Mode)
	}
	if parsed.Status.UptimeSeconds != 900 {
		t.Errorf("UptimeSeconds: got %d, want 900", parsed.Status.UptimeSeconds)
	}
}

func TestFormatStatusEventShutdown(t *testing.T) {
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	snap := Snapshot{
		StartTime: start,
		Now:       start.Add(30 * time.Minute),
		Config:    Config{Broker: "tcp://localhost:1883"},
	}

	data := FormatStatusEvent(snap, "SHUTDOWN", "SIGTERM")

	var parsed StatusJSON
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	if parsed.Status.Event != "SHUTDOWN" {
		t.Errorf("Event: got %q, want SHUTDOWN", parsed.Status.Event)
	}
	if parsed.Status.Reason != "SIGTERM" {
		t.Errorf("Reason: got %q, want SIGTERM", parsed.Status.Reason)
	}
}

func TestFormatStatusEventOmitsReasonWhenEmpty(t *testing.T) {
	snap := Snapshot{
		StartTime: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		Now:       time.Date(2026, 3, 1, 0, 0, 1, 0, time.UTC),
	}

	data := FormatStatusEvent(snap, "STARTUP", "")

	var raw map[string]interface{}
	json.Unmarshal(data, &raw)
	status := raw["status"].(map[string]interface{})
	if _, exists := status["reason"]; exists {
		t.Error("reason should be omitted when empty")
	}
	if status["event"] != "STARTUP" {
		t.Errorf("event: got %v, want STARTUP", status["event"])
	}
}

func TestConcurrentAccess(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			tr.UpdateHeater(HeaterState{Temperature: float64(i), HasReading: true})
			tr.UpdateStirrer(StirrerState{TargetRPM: float64(i)})
			tr.SetCounts(Counts{HeaterOn: i})
			tr.SetMQTTConnected(i%2 == 0)
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			snap := tr.Snapshot()
			_ = snap.Uptime()
		}
	}()

	wg.Wait()
}

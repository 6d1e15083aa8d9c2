// Package status provides a thread-safe status tracker for the hotplate
// controller daemon. It is read by the HTTP handlers and serialized into
// MQTT system events.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/hotplate-controller/internal/heater"
)

// HeaterState is a display copy of the thermal loop state.
type HeaterState struct {
	Mode        heater.Mode
	Temperature float64
	HasReading  bool
	Target      float64
	TargetSet   bool
	Heating     bool
	Fault       bool
	Progress    float64
	Remaining   time.Duration
}

// StirrerState is a display copy of the stir controller state.
type StirrerState struct {
	Running   bool
	TargetRPM float64
	Estimate  float64
	Fault     bool
}

// Counts tallies notable events since startup.
type Counts struct {
	HeaterOn  int
	HeaterOff int
	Faults    int
	Completed int
}

// Config contains daemon configuration for display.
type Config struct {
	PollMs      int64
	HeartbeatMs int64
	MaxTemp     float64
	MainsHz     int
	Broker      string
	HTTPAddr    string
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type, safe to use after the lock is released.
type Snapshot struct {
	Heater        HeaterState
	Stirrer       StirrerState
	Counts        Counts
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Config:    cfg,
		},
	}
}

// UpdateHeater sets the thermal loop view. Called from runLoop on every poll.
func (t *Tracker) UpdateHeater(h HeaterState) {
	t.mu.Lock()
	t.snap.Heater = h
	t.mu.Unlock()
}

// UpdateStirrer sets the stir controller view.
func (t *Tracker) UpdateStirrer(s StirrerState) {
	t.mu.Lock()
	t.snap.Stirrer = s
	t.mu.Unlock()
}

// SetCounts sets the event tallies.
func (t *Tracker) SetCounts(c Counts) {
	t.mu.Lock()
	t.snap.Counts = c
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}

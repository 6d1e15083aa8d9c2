package stirrer

import (
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sweeney/hotplate-controller/internal/hw"
)

// EventType identifies a stirrer event. Events are produced from task
// context only; the edge/timer domain never emits anything.
type EventType string

const (
	EventStarted      EventType = "STIRRER_START"
	EventStopped      EventType = "STIRRER_STOP"
	EventSpeedChanged EventType = "STIRRER_SPEED"
)

// Event is a state change to be logged and published.
type Event struct {
	Timestamp time.Time
	Type      EventType
	RPM       float64
}

// speedChangeEpsilon is the smallest estimate movement that produces an
// EventSpeedChanged.
const speedChangeEpsilon = 0.5

// Controller owns the triac gate for one stir motor. Exactly one delay
// timer and one pulse timer exist per instance; at most one of each is
// armed at a time.
//
// Task-domain methods (Begin, Start, Stop, SetTargetRPM, Update, Close,
// the getters and knob setters) are safe to call from one goroutine at a
// time. HandleZeroCross and the timer callbacks run in the edge/timer
// domain and touch only the atomic cells.
type Controller struct {
	gate  hw.OutputPin
	zc    hw.ZeroCross
	sched hw.Scheduler

	halfCycle   time.Duration
	halfCycleUs int64

	mu     sync.Mutex // guards tuning and begun
	tuning Tuning
	begun  bool

	delayTimer hw.OneShot
	pulseTimer hw.OneShot

	// Cells shared with the edge/timer domain.
	delayUs       atomic.Int64
	gatePulseUs   atomic.Int64
	lastZCUs      atomic.Int64
	fireScheduled atomic.Bool
	running       atomic.Bool
	fault         atomic.Bool

	targetRPM atomicFloat64
	estimate  atomicFloat64
}

// atomicFloat64 stores a float64 through its bit pattern.
type atomicFloat64 struct {
	bits atomic.Uint64
}

func (a *atomicFloat64) Store(v float64) { a.bits.Store(math.Float64bits(v)) }
func (a *atomicFloat64) Load() float64   { return math.Float64frombits(a.bits.Load()) }

// NewController creates a controller for the given mains frequency. Begin
// must be called before Start.
func NewController(gate hw.OutputPin, zc hw.ZeroCross, sched hw.Scheduler, mainsHz int, tuning Tuning) *Controller {
	c := &Controller{
		gate:  gate,
		zc:    zc,
		sched: sched,
	}
	c.halfCycle = HalfCycle(mainsHz)
	c.halfCycleUs = c.halfCycle.Microseconds()
	c.tuning = tuning
	c.gatePulseUs.Store(tuning.GatePulse.Microseconds())
	c.delayUs.Store(c.halfCycleUs) // no fire until a target is set
	c.estimate.Store(math.NaN())
	return c
}

// Begin de-asserts the gate, allocates the delay and pulse timers, and
// attaches the zero-cross edge handler. Calling it again is a no-op.
func (c *Controller) Begin() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.begun {
		return nil
	}

	c.gate.Set(false)
	c.delayTimer = c.sched.NewOneShot("stir-delay", c.fireGate)
	c.pulseTimer = c.sched.NewOneShot("stir-pulse", c.endPulse)

	if err := c.zc.Attach(c.HandleZeroCross); err != nil {
		return fmt.Errorf("attach zero-cross: %w", err)
	}
	c.begun = true
	return nil
}

// Start enables gate firing from the next zero-cross on. Refused before
// Begin or while faulted.
func (c *Controller) Start(now time.Time) []Event {
	c.mu.Lock()
	begun := c.begun
	c.mu.Unlock()
	if !begun || c.fault.Load() {
		return nil
	}
	if c.running.Swap(true) {
		return nil
	}
	return []Event{{Timestamp: now, Type: EventStarted, RPM: c.targetRPM.Load()}}
}

// Stop disables firing and forces the gate low immediately. The armed delay
// timer, if any, is cancelled; a callback already in flight sees
// running == false and leaves the gate alone.
func (c *Controller) Stop(now time.Time) []Event {
	if !c.running.Swap(false) {
		return nil
	}
	c.fireScheduled.Store(false)
	if c.delayTimer != nil {
		c.delayTimer.Stop()
	}
	c.gate.Set(false)
	return []Event{{Timestamp: now, Type: EventStopped}}
}

// SetTargetRPM stores the target and publishes the derived firing delay for
// the edge handler. The new delay is latched at the next zero-cross, never
// mid-cycle.
func (c *Controller) SetTargetRPM(rpm float64) {
	c.mu.Lock()
	d := c.tuning.DelayForRPM(rpm, c.halfCycle)
	c.mu.Unlock()
	c.targetRPM.Store(rpm)
	c.delayUs.Store(d.Microseconds())
}

// Update recomputes the open-loop speed estimate. With no tachometer the
// estimate is a pass-through of the target; the event exists so observers
// can track effective speed without polling.
func (c *Controller) Update(now time.Time) []Event {
	prev := c.estimate.Load()
	target := c.targetRPM.Load()
	c.estimate.Store(target)
	if math.IsNaN(prev) || math.Abs(prev-target) > speedChangeEpsilon {
		return []Event{{Timestamp: now, Type: EventSpeedChanged, RPM: target}}
	}
	return nil
}

// TargetRPM returns the commanded speed.
func (c *Controller) TargetRPM() float64 { return c.targetRPM.Load() }

// CurrentEstimate returns the open-loop speed estimate, NaN before the
// first Update.
func (c *Controller) CurrentEstimate() float64 { return c.estimate.Load() }

// IsRunning reports whether firing is enabled.
func (c *Controller) IsRunning() bool { return c.running.Load() }

// HasFault reports the fault flag. Nothing in the controller sets it
// autonomously (there is no feedback to detect a stalled motor) but the
// flag is part of the external contract and an operator-facing layer may
// latch it.
func (c *Controller) HasFault() bool { return c.fault.Load() }

// SetGatePulse adjusts the triac gate pulse width.
func (c *Controller) SetGatePulse(d time.Duration) {
	c.mu.Lock()
	c.tuning.GatePulse = d
	c.mu.Unlock()
	c.gatePulseUs.Store(d.Microseconds())
}

// SetPercentLimits adjusts the conduction floor and ceiling and rederives
// the firing delay for the current target.
func (c *Controller) SetPercentLimits(minPercent, maxPercent float64) {
	c.mu.Lock()
	c.tuning.MinPercent = minPercent
	c.tuning.MaxPercent = maxPercent
	d := c.tuning.DelayForRPM(c.targetRPM.Load(), c.halfCycle)
	c.mu.Unlock()
	c.delayUs.Store(d.Microseconds())
}

// SetMaxRPM adjusts the RPM scale and rederives the firing delay for the
// current target.
func (c *Controller) SetMaxRPM(maxRPM float64) {
	c.mu.Lock()
	c.tuning.MaxRPM = maxRPM
	d := c.tuning.DelayForRPM(c.targetRPM.Load(), c.halfCycle)
	c.mu.Unlock()
	c.delayUs.Store(d.Microseconds())
}

// Tuning returns a copy of the current knobs.
func (c *Controller) Tuning() Tuning {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tuning
}

// Close stops firing, cancels both timers, and detaches the edge handler
// before anything else is released, so no callback can touch freed
// hardware. The controller cannot be restarted afterwards.
func (c *Controller) Close() error {
	c.Stop(time.Now())
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.begun {
		return nil
	}
	c.delayTimer.Stop()
	c.pulseTimer.Stop()
	err := c.zc.Detach()
	c.gate.Set(false)
	c.begun = false
	return err
}

// HandleZeroCross runs on the edge-event goroutine once per mains
// half-cycle. No locks, no allocation, no logging.
func (c *Controller) HandleZeroCross(nowMicros int64) {
	prev := c.lastZCUs.Swap(nowMicros)
	if prev != 0 && nowMicros-prev < c.halfCycleUs/3 {
		// Contact bounce; keep at most one fire per true half-cycle.
		return
	}
	if !c.running.Load() {
		return
	}
	d := c.delayUs.Load()
	if d >= c.halfCycleUs {
		return
	}
	c.fireScheduled.Store(true)
	c.delayTimer.StartOnce(time.Duration(d) * time.Microsecond)
}

// fireGate is the delay-timer callback: assert the gate and arm the pulse
// timer. The running re-check closes the stop-vs-fire race: a Stop between
// arming and firing must not produce a gate pulse.
func (c *Controller) fireGate() {
	if !c.fireScheduled.Load() || !c.running.Load() {
		return
	}
	c.gate.Set(true)
	c.pulseTimer.StartOnce(time.Duration(c.gatePulseUs.Load()) * time.Microsecond)
	c.fireScheduled.Store(false)
}

// endPulse is the pulse-timer callback: end the conduction pulse.
func (c *Controller) endPulse() {
	c.gate.Set(false)
}

package stirrer

import (
	"math"
	"testing"
	"time"

	"github.com/sweeney/hotplate-controller/internal/hw"
)

type rig struct {
	gate  *hw.FakePin
	zc    *hw.FakeZeroCross
	sched *hw.FakeScheduler
	c     *Controller
}

func newRig(t *testing.T) *rig {
	t.Helper()
	r := &rig{
		gate:  hw.NewFakePin(),
		zc:    hw.NewFakeZeroCross(),
		sched: hw.NewFakeScheduler(),
	}
	r.c = NewController(r.gate, r.zc, r.sched, 50, DefaultTuning())
	if err := r.c.Begin(); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	return r
}

func TestBeginIsIdempotent(t *testing.T) {
	r := newRig(t)
	if err := r.c.Begin(); err != nil {
		t.Fatalf("second Begin: %v", err)
	}
	if r.zc.AttachCount != 1 {
		t.Errorf("attach count = %d, want 1", r.zc.AttachCount)
	}
}

func TestStartRefusedBeforeBegin(t *testing.T) {
	c := NewController(hw.NewFakePin(), hw.NewFakeZeroCross(), hw.NewFakeScheduler(), 50, DefaultTuning())
	if events := c.Start(time.Now()); len(events) != 0 {
		t.Error("start before Begin must be refused")
	}
	if c.IsRunning() {
		t.Error("controller must not run before Begin")
	}
}

func TestGatePulseChain(t *testing.T) {
	// zero-cross -> 7.5ms delay -> gate high -> 120us pulse -> gate low.
	r := newRig(t)
	r.c.SetTargetRPM(1500)
	r.c.Start(time.Now())

	r.zc.Pulse(100_000)
	if !r.sched.Armed("stir-delay") {
		t.Fatal("delay timer must be armed after a zero-cross")
	}
	if r.gate.Level() {
		t.Fatal("gate must stay low until the delay expires")
	}

	r.sched.Advance(7500 * time.Microsecond)
	if !r.gate.Level() {
		t.Fatal("gate must be high after the firing delay")
	}
	if !r.sched.Armed("stir-pulse") {
		t.Fatal("pulse timer must be armed while the gate is high")
	}

	r.sched.Advance(120 * time.Microsecond)
	if r.gate.Level() {
		t.Fatal("gate must be low after the pulse width")
	}

	got := r.gate.Transitions()
	want := []bool{true, false}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("gate transitions = %v, want %v", got, want)
	}
}

func TestPulseChainWithinOneAdvance(t *testing.T) {
	// A single coarse Advance fires both timers in order.
	r := newRig(t)
	r.c.SetTargetRPM(1500)
	r.c.Start(time.Now())

	r.zc.Pulse(100_000)
	r.sched.Advance(HalfCycle(50))

	if !r.gate.WentHigh() {
		t.Error("gate never fired")
	}
	if r.gate.Level() {
		t.Error("gate left high at the end of the half cycle")
	}
	if r.sched.FiredCount("stir-pulse") != 1 {
		t.Errorf("pulse fired %d times, want 1", r.sched.FiredCount("stir-pulse"))
	}
}

func TestDebounceSuppressesRepeatEdges(t *testing.T) {
	// Two edges 2ms apart are one true crossing plus contact bounce; only
	// the first schedules a fire.
	r := newRig(t)
	r.c.SetTargetRPM(1500)
	r.c.Start(time.Now())

	r.zc.Pulse(100_000)
	r.zc.Pulse(102_000)
	r.sched.Advance(HalfCycle(50))

	if n := r.sched.FiredCount("stir-delay"); n != 1 {
		t.Errorf("delay fired %d times, want 1", n)
	}
	if n := r.sched.FiredCount("stir-pulse"); n != 1 {
		t.Errorf("pulse fired %d times, want 1", n)
	}
}

func TestEdgesOneHalfCycleApartBothFire(t *testing.T) {
	r := newRig(t)
	r.c.SetTargetRPM(1500)
	r.c.Start(time.Now())

	r.zc.Pulse(100_000)
	r.sched.Advance(HalfCycle(50))
	r.zc.Pulse(110_000)
	r.sched.Advance(HalfCycle(50))

	if n := r.sched.FiredCount("stir-pulse"); n != 2 {
		t.Errorf("pulse fired %d times, want 2", n)
	}
}

func TestStopCancelsArmedFire(t *testing.T) {
	r := newRig(t)
	r.c.SetTargetRPM(1500)
	r.c.Start(time.Now())

	r.zc.Pulse(100_000)
	r.c.Stop(time.Now())
	r.sched.Advance(HalfCycle(50))

	if r.gate.WentHigh() {
		t.Error("gate fired after Stop")
	}
}

func TestNoFireWhileStopped(t *testing.T) {
	r := newRig(t)
	r.c.SetTargetRPM(1500)

	r.zc.Pulse(100_000)
	r.sched.Advance(HalfCycle(50))

	if r.sched.Armed("stir-delay") || r.gate.WentHigh() {
		t.Error("stopped controller must ignore zero-cross edges")
	}
}

func TestNoFireWithoutTarget(t *testing.T) {
	// Until a target is set the delay equals the half cycle, which the edge
	// handler treats as "do not fire".
	r := newRig(t)
	r.c.Start(time.Now())

	r.zc.Pulse(100_000)
	r.sched.Advance(HalfCycle(50))

	if r.gate.WentHigh() {
		t.Error("gate fired with no target set")
	}
}

func TestTargetChangeTakesEffectNextCrossing(t *testing.T) {
	r := newRig(t)
	r.c.SetTargetRPM(1500) // 7.5ms delay
	r.c.Start(time.Now())

	r.zc.Pulse(100_000)
	r.c.SetTargetRPM(3000) // clamps to 95 percent, near-zero delay

	// The already-armed fire keeps its old delay.
	r.sched.Advance(7400 * time.Microsecond)
	if r.gate.WentHigh() {
		t.Fatal("in-flight fire must keep the delay it was armed with")
	}
	r.sched.Advance(HalfCycle(50))

	// The next crossing fires almost immediately under the new delay.
	r.zc.Pulse(120_000)
	r.sched.Advance(time.Microsecond)
	if r.sched.FiredCount("stir-delay") != 2 {
		t.Error("new delay not applied at the next crossing")
	}
}

func TestStartStopEvents(t *testing.T) {
	r := newRig(t)
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	r.c.SetTargetRPM(900)

	events := r.c.Start(now)
	if len(events) != 1 || events[0].Type != EventStarted || events[0].RPM != 900 {
		t.Errorf("start events = %v", events)
	}
	if events := r.c.Start(now); len(events) != 0 {
		t.Error("repeat start must be quiet")
	}

	events = r.c.Stop(now)
	if len(events) != 1 || events[0].Type != EventStopped {
		t.Errorf("stop events = %v", events)
	}
	if events := r.c.Stop(now); len(events) != 0 {
		t.Error("repeat stop must be quiet")
	}
}

func TestUpdateReportsSpeedChanges(t *testing.T) {
	r := newRig(t)
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	if !math.IsNaN(r.c.CurrentEstimate()) {
		t.Error("estimate must be NaN before the first update")
	}

	r.c.SetTargetRPM(600)
	events := r.c.Update(now)
	if len(events) != 1 || events[0].Type != EventSpeedChanged || events[0].RPM != 600 {
		t.Errorf("first update events = %v", events)
	}

	// Unchanged target: quiet.
	if events := r.c.Update(now.Add(time.Second)); len(events) != 0 {
		t.Errorf("steady update must be quiet, got %v", events)
	}

	r.c.SetTargetRPM(601) // above the half-RPM reporting threshold
	if events := r.c.Update(now.Add(2 * time.Second)); len(events) != 1 {
		t.Errorf("changed update events = %v", events)
	}
}

func TestCloseDetachesAndParksGate(t *testing.T) {
	r := newRig(t)
	r.c.SetTargetRPM(1500)
	r.c.Start(time.Now())
	r.zc.Pulse(100_000)

	if err := r.c.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !r.zc.Detached {
		t.Error("Close must detach the edge handler")
	}
	r.sched.Advance(HalfCycle(50))
	if r.gate.WentHigh() {
		t.Error("no fire may land after Close")
	}
}

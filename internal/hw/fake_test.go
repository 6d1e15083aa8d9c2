package hw

import (
	"testing"
	"time"
)

func TestFakePinRecordsTransitions(t *testing.T) {
	p := NewFakePin()

	p.Set(true)
	p.Set(true) // redundant, not recorded
	p.Set(false)
	p.Set(true)

	got := p.Transitions()
	want := []bool{true, false, true}
	if len(got) != len(want) {
		t.Fatalf("expected %d transitions, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("transition %d: got %v, want %v", i, got[i], want[i])
		}
	}
	if !p.Level() {
		t.Error("expected final level high")
	}
	if !p.WentHigh() {
		t.Error("expected WentHigh")
	}
}

func TestFakePinNeverHigh(t *testing.T) {
	p := NewFakePin()
	p.Set(false)
	if p.WentHigh() {
		t.Error("pin never driven high, WentHigh should be false")
	}
	if len(p.Transitions()) != 0 {
		t.Errorf("expected no transitions, got %d", len(p.Transitions()))
	}
}

func TestFakeZeroCrossAttachDetach(t *testing.T) {
	z := NewFakeZeroCross()

	var got []int64
	if err := z.Attach(func(ts int64) { got = append(got, ts) }); err != nil {
		t.Fatalf("attach: %v", err)
	}
	if err := z.Attach(func(ts int64) {}); err == nil {
		t.Error("second attach should fail")
	}

	z.Pulse(1000)
	z.Pulse(11000)
	if len(got) != 2 || got[0] != 1000 || got[1] != 11000 {
		t.Errorf("expected timestamps [1000 11000], got %v", got)
	}

	if err := z.Detach(); err != nil {
		t.Fatalf("detach: %v", err)
	}
	z.Pulse(21000)
	if len(got) != 2 {
		t.Error("pulse after detach should not reach handler")
	}
}

func TestFakeSchedulerFiresInDeadlineOrder(t *testing.T) {
	s := NewFakeScheduler()

	var order []string
	a := s.NewOneShot("a", func() { order = append(order, "a") })
	b := s.NewOneShot("b", func() { order = append(order, "b") })

	a.StartOnce(500 * time.Microsecond)
	b.StartOnce(200 * time.Microsecond)

	s.Advance(1 * time.Millisecond)

	if len(order) != 2 || order[0] != "b" || order[1] != "a" {
		t.Errorf("expected fire order [b a], got %v", order)
	}
	if s.Now() != 1000 {
		t.Errorf("expected clock at 1000us, got %d", s.Now())
	}
}

func TestFakeSchedulerStopPreventsFire(t *testing.T) {
	s := NewFakeScheduler()

	fired := false
	a := s.NewOneShot("a", func() { fired = true })
	a.StartOnce(100 * time.Microsecond)
	a.Stop()

	s.Advance(1 * time.Millisecond)
	if fired {
		t.Error("stopped timer must not fire")
	}
}

func TestFakeSchedulerCallbackCanArmAnotherTimer(t *testing.T) {
	s := NewFakeScheduler()

	var second OneShot
	fired := false
	second = s.NewOneShot("second", func() { fired = true })
	first := s.NewOneShot("first", func() { second.StartOnce(100 * time.Microsecond) })

	first.StartOnce(300 * time.Microsecond)
	s.Advance(1 * time.Millisecond)

	if !fired {
		t.Error("timer armed from a callback should fire within the same Advance")
	}
}

func TestFakeSchedulerRearmReplacesDeadline(t *testing.T) {
	s := NewFakeScheduler()

	count := 0
	a := s.NewOneShot("a", func() { count++ })
	a.StartOnce(100 * time.Microsecond)
	a.StartOnce(800 * time.Microsecond) // replaces, does not stack

	s.Advance(1 * time.Millisecond)
	if count != 1 {
		t.Errorf("expected exactly one firing, got %d", count)
	}
}

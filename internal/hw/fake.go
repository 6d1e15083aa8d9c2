package hw

import (
	"errors"
	"sync"
	"time"
)

// FakePin is a test double that records output transitions.
type FakePin struct {
	mu sync.Mutex

	level bool

	// transitions records each level change, in order. Redundant Set calls
	// (same level) are not recorded.
	transitions []bool

	// Closed tracks if Close was called.
	Closed bool
}

// NewFakePin creates a FakePin, initially low.
func NewFakePin() *FakePin {
	return &FakePin{}
}

// Set records the level if it changed.
func (p *FakePin) Set(high bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if high == p.level {
		return
	}
	p.level = high
	p.transitions = append(p.transitions, high)
}

// Level returns the current output level.
func (p *FakePin) Level() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.level
}

// Transitions returns a copy of the recorded level changes.
func (p *FakePin) Transitions() []bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]bool, len(p.transitions))
	copy(out, p.transitions)
	return out
}

// WentHigh reports whether the pin was ever driven high.
func (p *FakePin) WentHigh() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, t := range p.transitions {
		if t {
			return true
		}
	}
	return false
}

// Close marks the pin as closed.
func (p *FakePin) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Closed = true
	return nil
}

// FakeZeroCross delivers edges to the attached handler on demand.
type FakeZeroCross struct {
	mu sync.Mutex
	fn EdgeFunc

	// AttachCount counts Attach calls, for idempotency assertions.
	AttachCount int

	// Detached tracks if Detach was called.
	Detached bool
}

// NewFakeZeroCross creates a detached FakeZeroCross.
func NewFakeZeroCross() *FakeZeroCross {
	return &FakeZeroCross{}
}

// Attach registers the handler. Fails if already attached, like the real line.
func (z *FakeZeroCross) Attach(fn EdgeFunc) error {
	z.mu.Lock()
	defer z.mu.Unlock()
	z.AttachCount++
	if z.fn != nil {
		return errors.New("fake zero-cross: already attached")
	}
	z.fn = fn
	return nil
}

// Detach unregisters the handler.
func (z *FakeZeroCross) Detach() error {
	z.mu.Lock()
	defer z.mu.Unlock()
	z.fn = nil
	z.Detached = true
	return nil
}

// Pulse simulates one zero-cross edge at the given timestamp. It calls the
// handler on the caller's goroutine, as the real event loop would.
func (z *FakeZeroCross) Pulse(timestampMicros int64) {
	z.mu.Lock()
	fn := z.fn
	z.mu.Unlock()
	if fn != nil {
		fn(timestampMicros)
	}
}

// FakeScheduler is a Scheduler driven by a manually advanced clock. Timers
// fire deterministically, in deadline order, on the goroutine that calls
// Advance.
type FakeScheduler struct {
	mu     sync.Mutex
	nowUs  int64
	timers []*FakeTimer
}

// FakeTimer is a OneShot owned by a FakeScheduler.
type FakeTimer struct {
	sched *FakeScheduler
	name  string
	fn    func()

	armed bool
	dueUs int64

	// Fired counts how many times the callback ran.
	Fired int
}

// NewFakeScheduler creates a scheduler with the clock at zero.
func NewFakeScheduler() *FakeScheduler {
	return &FakeScheduler{}
}

// NewOneShot allocates a named disarmed timer.
func (s *FakeScheduler) NewOneShot(name string, fn func()) OneShot {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &FakeTimer{sched: s, name: name, fn: fn}
	s.timers = append(s.timers, t)
	return t
}

// StartOnce arms the timer relative to the fake clock.
func (t *FakeTimer) StartOnce(d time.Duration) {
	t.sched.mu.Lock()
	defer t.sched.mu.Unlock()
	t.armed = true
	t.dueUs = t.sched.nowUs + d.Microseconds()
}

// Stop disarms the timer.
func (t *FakeTimer) Stop() {
	t.sched.mu.Lock()
	defer t.sched.mu.Unlock()
	t.armed = false
}

// Now returns the fake clock in microseconds.
func (s *FakeScheduler) Now() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nowUs
}

// Armed reports whether the named timer is currently armed.
func (s *FakeScheduler) Armed(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.timers {
		if t.name == name && t.armed {
			return true
		}
	}
	return false
}

// FiredCount returns how many times the named timer has fired.
func (s *FakeScheduler) FiredCount(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, t := range s.timers {
		if t.name == name {
			n += t.Fired
		}
	}
	return n
}

// Advance moves the clock forward by d, firing due timers in deadline order.
// Callbacks may re-arm timers; newly due timers fire within the same call.
func (s *FakeScheduler) Advance(d time.Duration) {
	s.mu.Lock()
	target := s.nowUs + d.Microseconds()
	for {
		var next *FakeTimer
		for _, t := range s.timers {
			if t.armed && t.dueUs <= target && (next == nil || t.dueUs < next.dueUs) {
				next = t
			}
		}
		if next == nil {
			break
		}
		if next.dueUs > s.nowUs {
			s.nowUs = next.dueUs
		}
		next.armed = false
		next.Fired++
		fn := next.fn
		s.mu.Unlock()
		fn()
		s.mu.Lock()
	}
	s.nowUs = target
	s.mu.Unlock()
}

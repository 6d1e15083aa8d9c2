// Package hw provides the hardware abstraction used by the control loops:
// digital output pins, mains zero-cross edge delivery, and one-shot timers.
// The real implementation uses the Linux GPIO character device and the
// runtime timer wheel. The fake implementations allow deterministic testing
// without hardware.
package hw

import "time"

// OutputPin drives a single digital output. Implementations must be safe to
// call from timer callbacks and must record rather than return write errors,
// so callers in the timing-critical path never block or branch on I/O.
type OutputPin interface {
	// Set drives the pin high (true) or low (false).
	Set(high bool)

	// Close drives the pin low and releases it.
	Close() error
}

// EdgeFunc is invoked once per detected edge with the hardware timestamp in
// microseconds (monotonic clock). It runs on the edge-event goroutine and
// must not block, allocate, or log.
type EdgeFunc func(timestampMicros int64)

// ZeroCross delivers mains zero-crossing edges to a handler.
type ZeroCross interface {
	// Attach requests the input line and registers the edge handler.
	// Attaching while already attached is an error.
	Attach(fn EdgeFunc) error

	// Detach unregisters the handler and releases the line. No edge is
	// delivered after Detach returns.
	Detach() error
}

// OneShot is a single-shot timer. At most one firing is outstanding at a
// time; re-arming replaces the previous deadline.
type OneShot interface {
	// StartOnce arms the timer to fire after d.
	StartOnce(d time.Duration)

	// Stop cancels an armed timer. A callback already running is not
	// interrupted; one not yet started will not run.
	Stop()
}

// Scheduler allocates one-shot timers. Callbacks run on their own goroutine
// with timer promptness and must not block.
type Scheduler interface {
	NewOneShot(name string, fn func()) OneShot
}

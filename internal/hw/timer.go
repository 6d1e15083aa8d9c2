package hw

import "time"

// TimerScheduler implements Scheduler on the runtime timer wheel. Callbacks
// run on the goroutine time.AfterFunc spawns for them.
type TimerScheduler struct{}

// NewOneShot allocates a disarmed one-shot timer. The name is accepted for
// interface parity with the fake scheduler; the runtime has no use for it.
func (TimerScheduler) NewOneShot(name string, fn func()) OneShot {
	t := time.AfterFunc(time.Hour, fn)
	t.Stop()
	return &runtimeTimer{t: t}
}

type runtimeTimer struct {
	t *time.Timer
}

func (r *runtimeTimer) StartOnce(d time.Duration) {
	r.t.Stop()
	r.t.Reset(d)
}

func (r *runtimeTimer) Stop() {
	r.t.Stop()
}

// Package doortimer implements the restartable one-shot door-close
// countdown: starting it again while it is already running cancels and
// rearms it, so a second stop at the same floor extends the dwell to a
// full duration measured from that call.
package doortimer

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Timer is a restartable countdown. Start arms or extends it; on expiry
// the configured action is sent to the owner's event queue. The expiry
// callback must never touch door hardware or the Order Store directly --
// only enqueue -- so all effects happen on the Controller's goroutine.
type Timer struct {
	clock    clockwork.Clock
	duration time.Duration
	onExpire func()

	mu      sync.Mutex
	running bool
	cancel  func()
}

// New creates a Timer that runs for duration and calls onExpire on
// expiry. onExpire is invoked from the clock's own goroutine and must not
// block or touch shared state directly -- it should only enqueue an
// action onto the owner's event queue.
func New(clock clockwork.Clock, duration time.Duration, onExpire func()) *Timer {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Timer{clock: clock, duration: duration, onExpire: onExpire}
}

// Start arms the timer if not running; if already running, cancels and
// rearms it, so an additional stop at the same floor extends the dwell to
// a full duration measured from this call.
func (t *Timer) Start() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.cancel != nil {
		t.cancel()
	}
	t.running = true
	timer := t.clock.AfterFunc(t.duration, t.fire)
	t.cancel = func() { timer.Stop() }
}

func (t *Timer) fire() {
	t.mu.Lock()
	t.running = false
	t.cancel = nil
	t.mu.Unlock()
	if t.onExpire != nil {
		t.onExpire()
	}
}

// IsFinished reports true when no countdown is currently active.
func (t *Timer) IsFinished() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return !t.running
}

// Stop cancels any in-flight countdown without firing onExpire. Used
// during shutdown.
func (t *Timer) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cancel != nil {
		t.cancel()
		t.cancel = nil
	}
	t.running = false
}

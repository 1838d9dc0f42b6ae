// Package alarmtimer implements displaystate.Timer against the wall
// clock, and the dispatch loop that serializes alarm expiries, GPIO
// events, and API requests onto the single goroutine the core state
// machine requires (see internal/displaystate's doc comment).
package alarmtimer

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/displaypowerd/displaypowerd/internal/displaystate"
)

// Timer is a real-clock displaystate.Timer. Fired alarms are delivered on
// Fired rather than invoked directly, so the caller can serialize them
// alongside other event sources via Dispatcher.
type Timer struct {
	nextID int64

	mu      sync.Mutex
	pending map[displaystate.AlarmID]*time.Timer

	fired chan displaystate.AlarmID
}

// New creates a Timer. The returned Timer must be stopped with Close once
// the owning daemon shuts down.
func New() *Timer {
	return &Timer{
		pending: make(map[displaystate.AlarmID]*time.Timer),
		fired:   make(chan displaystate.AlarmID, 16),
	}
}

// Fired delivers one AlarmID per un-cancelled alarm expiry, in expiry
// order. The caller must drain it (typically via Dispatcher) or alarms
// will back up.
func (t *Timer) Fired() <-chan displaystate.AlarmID {
	return t.fired
}

// Now returns the current wall-clock time.
func (t *Timer) Now() time.Time {
	return time.Now()
}

// ScheduleIn arms an alarm that, unless cancelled first, delivers its id
// on Fired at or after now+d.
func (t *Timer) ScheduleIn(d time.Duration) displaystate.AlarmID {
	id := displaystate.AlarmID(atomic.AddInt64(&t.nextID, 1))

	timer := time.AfterFunc(d, func() {
		t.mu.Lock()
		_, stillPending := t.pending[id]
		delete(t.pending, id)
		t.mu.Unlock()

		if stillPending {
			t.fired <- id
		}
	})

	t.mu.Lock()
	t.pending[id] = timer
	t.mu.Unlock()

	return id
}

// Cancel guarantees id will not be delivered on Fired afterwards.
// Cancelling an unknown or already-fired id is a no-op.
func (t *Timer) Cancel(id displaystate.AlarmID) {
	t.mu.Lock()
	timer, ok := t.pending[id]
	if ok {
		delete(t.pending, id)
	}
	t.mu.Unlock()

	if ok {
		timer.Stop()
	}
}

// Close stops every pending alarm without delivering it.
func (t *Timer) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for id, timer := range t.pending {
		timer.Stop()
		delete(t.pending, id)
	}
}

// Dispatcher serializes alarm firings from a Timer, and any number of
// other event sources registered via Submit, onto a single goroutine that
// drives a displaystate.Machine one call at a time.
type Dispatcher struct {
	timer *Timer
	tasks chan func()
	done  chan struct{}
}

// NewDispatcher creates a dispatcher that forwards t's fired alarms to the
// callback passed to Run, interleaved with tasks submitted via Submit, in
// arrival order. Run must be called to start the loop.
func NewDispatcher(t *Timer) *Dispatcher {
	return &Dispatcher{
		timer: t,
		tasks: make(chan func(), 64),
		done:  make(chan struct{}),
	}
}

// Submit enqueues fn to run on the dispatcher's single goroutine. It is
// safe to call from any goroutine, including from within another task.
func (d *Dispatcher) Submit(fn func()) {
	select {
	case d.tasks <- fn:
	case <-d.done:
	}
}

// Run drives the dispatch loop until Close is called. It should be run in
// its own goroutine.
func (d *Dispatcher) Run(onAlarm func(id displaystate.AlarmID)) {
	for {
		select {
		case id := <-d.timer.Fired():
			onAlarm(id)
		case fn := <-d.tasks:
			fn()
		case <-d.done:
			return
		}
	}
}

// Close stops the dispatch loop.
func (d *Dispatcher) Close() {
	close(d.done)
}

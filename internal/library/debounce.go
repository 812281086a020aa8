package library

import (
	"sync"
	"time"
)

// DebounceDelay is how long typing must pause before a search recomputes.
const DebounceDelay = 250 * time.Millisecond

type stopper interface {
	Stop() bool
}

type afterFunc func(d time.Duration, f func()) stopper

func realAfterFunc(d time.Duration, f func()) stopper {
	return time.AfterFunc(d, f)
}

// Debouncer runs only the last function triggered within the delay window.
type Debouncer struct {
	mu    sync.Mutex
	delay time.Duration
	after afterFunc
	timer stopper
	gen   uint64
}

func NewDebouncer(delay time.Duration) *Debouncer {
	return &Debouncer{delay: delay, after: realAfterFunc}
}

// Trigger schedules fn, replacing any pending call.
func (d *Debouncer) Trigger(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
	}
	d.gen++
	gen := d.gen
	d.timer = d.after(d.delay, func() {
		d.mu.Lock()
		stale := gen != d.gen
		if !stale {
			d.timer = nil
		}
		d.mu.Unlock()
		if !stale {
			fn()
		}
	})
}

// Cancel drops the pending call, if any.
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.gen++
}

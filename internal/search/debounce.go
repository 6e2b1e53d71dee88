package search

import (
	"sync"
	"time"
)

// DefaultDebounceInterval is the window within which rapid successive filter
// changes collapse into a single fetch.
const DefaultDebounceInterval = 300 * time.Millisecond

// Debouncer collapses bursts of Trigger calls into a single callback firing
// with the latest snapshot. Each Trigger discards the previously armed timer
// and arms a new one; the callback runs once, interval after the last call.
// In-flight work started by a previous firing is not cancelled.
type Debouncer struct {
	mu       sync.Mutex
	interval time.Duration
	timer    *time.Timer
	fire     func(FilterState)
}

// NewDebouncer creates a Debouncer calling fire with the most recent filter
// snapshot. A non-positive interval falls back to DefaultDebounceInterval.
func NewDebouncer(interval time.Duration, fire func(FilterState)) *Debouncer {
	if interval <= 0 {
		interval = DefaultDebounceInterval
	}
	return &Debouncer{interval: interval, fire: fire}
}

// Trigger schedules a firing with the given snapshot, replacing any firing
// already pending.
func (d *Debouncer) Trigger(snapshot FilterState) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.interval, func() {
		d.fire(snapshot)
	})
}

// Stop discards any pending firing. It does not wait for a callback that has
// already started.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

package watcher

import (
	"sync"
	"time"
)

// Debouncer coalesces bursts of activity per key. Each Touch restarts the
// key's timer; fire runs once the key has been quiet for the delay.
type Debouncer struct {
	delay  time.Duration
	fire   func(key string)
	mu     sync.Mutex
	timers map[string]*time.Timer
}

// NewDebouncer creates a Debouncer that calls fire after delay of quiet.
func NewDebouncer(delay time.Duration, fire func(key string)) *Debouncer {
	return &Debouncer{
		delay:  delay,
		fire:   fire,
		timers: make(map[string]*time.Timer),
	}
}

// Touch records activity for key, pushing its deadline back by the delay.
func (d *Debouncer) Touch(key string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if t, ok := d.timers[key]; ok {
		t.Stop()
	}
	var t *time.Timer
	t = time.AfterFunc(d.delay, func() {
		d.mu.Lock()
		// A later Touch may already have replaced this timer.
		if d.timers[key] != t {
			d.mu.Unlock()
			return
		}
		delete(d.timers, key)
		d.mu.Unlock()

		if d.fire != nil {
			d.fire(key)
		}
	})
	d.timers[key] = t
}

// Cancel drops the pending deadline for key, if any.
func (d *Debouncer) Cancel(key string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if t, ok := d.timers[key]; ok {
		t.Stop()
		delete(d.timers, key)
	}
}

// Stop drops every pending deadline.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for key, t := range d.timers {
		t.Stop()
		delete(d.timers, key)
	}
}

// Pending reports how many keys are waiting to fire.
func (d *Debouncer) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.timers)
}

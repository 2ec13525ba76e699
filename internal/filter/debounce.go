package filter

import (
	"sync"
	"time"
)

// DefaultDelay is the quiet period before a search is applied.
const DefaultDelay = 500 * time.Millisecond

// Debouncer delivers the latest triggered value once no new value arrived
// for the delay. Older pending values are dropped.
type Debouncer struct {
	delay time.Duration
	out   chan string

	mu      sync.Mutex
	timer   *time.Timer
	gen     uint64
	stopped bool
}

// NewDebouncer returns a debouncer; delay <= 0 selects DefaultDelay.
func NewDebouncer(delay time.Duration) *Debouncer {
	if delay <= 0 {
		delay = DefaultDelay
	}
	return &Debouncer{delay: delay, out: make(chan string, 1)}
}

// C receives settled values.
func (d *Debouncer) C() <-chan string { return d.out }

// Trigger restarts the quiet period with v as the pending value.
func (d *Debouncer) Trigger(v string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.gen++
	gen := d.gen
	d.timer = time.AfterFunc(d.delay, func() { d.fire(gen, v) })
}

func (d *Debouncer) fire(gen uint64, v string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	// a timer that lost the race with a newer Trigger
	if d.stopped || gen != d.gen {
		return
	}
	// keep only the newest settled value
	select {
	case <-d.out:
	default:
	}
	d.out <- v
}

// Stop cancels any pending value. Further triggers are ignored.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
	}
}

package login

import (
	"sync"
	"time"
)

// Ticker is the part of time.Ticker the countdown needs.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// TickerFunc creates a ticker firing every d.
type TickerFunc func(d time.Duration) Ticker

type stdTicker struct{ t *time.Ticker }

func (s stdTicker) C() <-chan time.Time { return s.t.C }
func (s stdTicker) Stop()               { s.t.Stop() }

// NewStdTicker wraps time.NewTicker.
func NewStdTicker(d time.Duration) Ticker {
	return stdTicker{t: time.NewTicker(d)}
}

// Countdown counts whole seconds down to zero on a single repeating
// one-second ticker. Starting it again cancels the previous run.
type Countdown struct {
	mu        sync.Mutex
	remaining int
	cancel    chan struct{}
	newTicker TickerFunc
}

func NewCountdown(newTicker TickerFunc) *Countdown {
	if newTicker == nil {
		newTicker = NewStdTicker
	}
	return &Countdown{newTicker: newTicker}
}

// Start restarts the countdown at seconds.
func (c *Countdown) Start(seconds int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stopLocked()
	c.remaining = seconds
	if seconds <= 0 {
		return
	}

	cancel := make(chan struct{})
	c.cancel = cancel
	go c.run(c.newTicker(time.Second), cancel)
}

// Stop cancels a running countdown and zeroes it.
func (c *Countdown) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopLocked()
	c.remaining = 0
}

func (c *Countdown) Remaining() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.remaining
}

// Running reports whether a ticker goroutine is active.
func (c *Countdown) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cancel != nil
}

func (c *Countdown) stopLocked() {
	if c.cancel != nil {
		close(c.cancel)
		c.cancel = nil
	}
}

func (c *Countdown) run(t Ticker, cancel chan struct{}) {
	defer t.Stop()
	for {
		select {
		case <-cancel:
			return
		case <-t.C():
			c.mu.Lock()
			if c.cancel != cancel {
				c.mu.Unlock()
				return
			}
			c.remaining--
			done := c.remaining <= 0
			if done {
				c.remaining = 0
				c.cancel = nil
			}
			c.mu.Unlock()
			if done {
				return
			}
		}
	}
}

package sink

import (
	"context"
	"sync"
	"time"

	"github.com/mpapenbr/livetiming-feed-go/pkg/livetiming/sessiontime"
	"github.com/mpapenbr/livetiming-feed-go/pkg/model"
)

type ClockOption func(*SessionClock)

func WithClockNow(now func() time.Time) ClockOption {
	return func(c *SessionClock) {
		c.now = now
	}
}

// SessionClock turns session time updates into a countdown that ticks once
// per second. A session time update freezes the clock, an interpolate update
// starts counting down from the last known value.
type SessionClock struct {
	model.NopPresentation
	now func() time.Time
	out chan string

	mu      sync.Mutex
	last    string
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	closed  bool
	closeMu sync.Once
}

func NewSessionClock(opts ...ClockOption) *SessionClock {
	c := &SessionClock{
		now: time.Now,
		out: make(chan string),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Ticks delivers the countdown values. It is closed by Close.
func (c *SessionClock) Ticks() <-chan string {
	return c.out
}

func (c *SessionClock) OnSessionTime(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopLocked()
	c.last = text
}

func (c *SessionClock) OnInterpolate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopLocked()
	if c.closed || c.last == "" {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	cd := sessiontime.NewCountdown(c.last, c.now(), sessiontime.WithNow(c.now))
	ticks := cd.Run(ctx)
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		for text := range ticks {
			select {
			case c.out <- text:
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Close stops a running countdown and closes the tick channel.
func (c *SessionClock) Close() {
	c.closeMu.Do(func() {
		c.mu.Lock()
		c.closed = true
		c.stopLocked()
		c.mu.Unlock()
		c.wg.Wait()
		close(c.out)
	})
}

func (c *SessionClock) stopLocked() {
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}

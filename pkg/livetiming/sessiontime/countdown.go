package sessiontime

import (
	"context"
	"time"
)

// renders are shifted by this amount so a value is shown slightly before
// the second actually elapses.
const lead = 200 * time.Millisecond

type Countdown struct {
	startSeconds int64
	startAt      time.Time
	now          func() time.Time
}

type CountdownOption func(*Countdown)

func WithNow(now func() time.Time) CountdownOption {
	return func(c *Countdown) {
		c.now = now
	}
}

// NewCountdown counts down from text, which was valid at startAt.
func NewCountdown(text string, startAt time.Time, opts ...CountdownOption) *Countdown {
	c := &Countdown{
		startSeconds: Parse(text),
		startAt:      startAt,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Remaining returns the seconds left at now.
func (c *Countdown) Remaining(now time.Time) int64 {
	return c.startSeconds - int64((now.Sub(c.startAt)+lead)/time.Second)
}

// Run emits the remaining time once per second until it reaches zero or
// ctx is done. The last value emitted on expiry is "0". The channel is
// closed when the countdown ends.
func (c *Countdown) Run(ctx context.Context) <-chan string {
	out := make(chan string)
	go func() {
		defer close(out)
		for {
			now := c.now()
			remaining := c.Remaining(now)
			text := Format(remaining)
			if remaining <= 0 {
				text = "0"
			}
			select {
			case out <- text:
			case <-ctx.Done():
				return
			}
			if remaining <= 0 {
				return
			}
			elapsed := c.now().Sub(c.startAt)
			wait := time.Second - elapsed%time.Second
			t := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				t.Stop()
				return
			case <-t.C:
			}
		}
	}()
	return out
}

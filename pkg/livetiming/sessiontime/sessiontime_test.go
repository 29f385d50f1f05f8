//nolint:thelper,funlen // ok for tests
package sessiontime

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormat(t *testing.T) {
	tests := []struct {
		secs int64
		want string
	}{
		{0, "0"},
		{7, "7"},
		{59, "59"},
		{60, "1:00"},
		{61, "1:01"},
		{599, "9:59"},
		{3599, "59:59"},
		{3600, "1:00:00"},
		{3725, "1:02:05"},
		{36000, "10:00:00"},
		{-5, "0"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, Format(tt.secs))
		})
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		in   string
		want int64
	}{
		{"", 0},
		{"0", 0},
		{"45", 45},
		{"1:02:05", 3725},
		{"12:34", 754},
		{"9:05", 545},
		{"1:2", 62},
		{"  1:00:00 ", 3600},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Parse(tt.in))
		})
	}
}

func TestFormatParse_RoundTrip(t *testing.T) {
	// Parse honors at most six digits, so the round trip covers < 100h
	for n := int64(0); n < 100*3600; n += 7 {
		if got := Parse(Format(n)); got != n {
			t.Fatalf("round trip of %d via %q gave %d", n, Format(n), got)
		}
	}
}

func TestState_Fudge(t *testing.T) {
	s := &State{}
	now := time.Now()
	s.Set("1:00", now)
	assert.Equal(t, int64(60), s.Seconds())

	assert.Equal(t, "50", s.Fudge(10, now))
	text, at := s.Last()
	assert.Equal(t, "50", text)
	assert.Equal(t, now, at)

	assert.Equal(t, "0", s.Fudge(120, now), "clamped at zero")
}

func TestState_Interpolate(t *testing.T) {
	s := &State{}
	assert.False(t, s.TakeInterpolate())
	s.MarkInterpolate()
	assert.True(t, s.TakeInterpolate())
	assert.False(t, s.TakeInterpolate())

	s.SetClockTimestamp(1234)
	assert.Equal(t, 1234, s.ClockTimestamp())
	s.Reset()
	assert.Equal(t, 0, s.ClockTimestamp())
}

func TestCountdown_Remaining(t *testing.T) {
	start := time.Date(2026, 5, 24, 14, 0, 0, 0, time.UTC)
	c := NewCountdown("1:00", start)
	assert.Equal(t, int64(60), c.Remaining(start))
	assert.Equal(t, int64(59), c.Remaining(start.Add(800*time.Millisecond)))
	assert.Equal(t, int64(60), c.Remaining(start.Add(700*time.Millisecond)))
	assert.Equal(t, int64(0), c.Remaining(start.Add(59*time.Second+800*time.Millisecond)))
}

func TestCountdown_RunExpired(t *testing.T) {
	start := time.Now().Add(-10 * time.Second)
	c := NewCountdown("5", start)
	var got []string
	for s := range c.Run(context.Background()) {
		got = append(got, s)
	}
	assert.Equal(t, []string{"0"}, got)
}

func TestCountdown_RunTicks(t *testing.T) {
	start := time.Now()
	c := NewCountdown("1", start)
	var got []string
	for s := range c.Run(context.Background()) {
		got = append(got, s)
	}
	assert.Equal(t, []string{"1", "0"}, got)
}

func TestCountdown_RunCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	c := NewCountdown("1:00:00", time.Now())
	ch := c.Run(ctx)
	assert.Equal(t, "1:00:00", <-ch)
	cancel()
	for range ch {
		// drain until closed
	}
}

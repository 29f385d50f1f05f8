// Package sessiontime converts between clock strings and seconds and keeps
// the remaining session time between server updates.
package sessiontime

import (
	"strconv"
	"sync"
	"time"
)

// Format renders seconds as H:MM:SS, M:SS or S depending on the magnitude.
// Negative values are rendered as 0.
func Format(secs int64) string {
	if secs < 0 {
		secs = 0
	}
	switch {
	case secs >= 3600:
		return strconv.FormatInt(secs/3600, 10) + ":" +
			twoDigits(secs/60%60) + ":" + twoDigits(secs%60)
	case secs >= 60:
		return strconv.FormatInt(secs/60, 10) + ":" + twoDigits(secs%60)
	default:
		return strconv.FormatInt(secs, 10)
	}
}

func twoDigits(n int64) string {
	if n < 10 {
		return "0" + strconv.FormatInt(n, 10)
	}
	return strconv.FormatInt(n, 10)
}

var units = [...]int64{1, 10, 60, 600, 3600, 36000}

// Parse scans s right to left and sums the digits weighted by their position
// within the seconds, minutes and hours groups. A separator after an odd
// number of digits moves on to the next group. At most six digits count.
func Parse(s string) int64 {
	var total int64
	n := 0
	for i := len(s) - 1; i >= 0 && n < len(units); i-- {
		c := s[i]
		switch {
		case c >= '0' && c <= '9':
			total += int64(c-'0') * units[n]
			n++
		case n%2 != 0:
			n++
		}
	}
	return total
}

// State holds the last official remaining time and when it was received.
type State struct {
	mu              sync.Mutex
	lastOfficial    string
	lastOfficialAt  time.Time
	interpolateNext bool
	clockTimestamp  int
}

func (s *State) Set(text string, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastOfficial = text
	s.lastOfficialAt = at
}

// Last returns the last official value and its wall clock time.
func (s *State) Last() (text string, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastOfficial, s.lastOfficialAt
}

func (s *State) Seconds() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Parse(s.lastOfficial)
}

// Fudge subtracts elapsed seconds from the last official value, clamped at
// zero, and returns the new value.
func (s *State) Fudge(elapsed int, at time.Time) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	remaining := Parse(s.lastOfficial) - int64(elapsed)
	if remaining < 0 {
		remaining = 0
	}
	s.lastOfficial = Format(remaining)
	s.lastOfficialAt = at
	return s.lastOfficial
}

// MarkInterpolate remembers that a decrement arrived while a keyframe was
// being loaded.
func (s *State) MarkInterpolate() {
	s.mu.Lock()
	s.interpolateNext = true
	s.mu.Unlock()
}

// TakeInterpolate reports and clears the pending interpolation flag.
func (s *State) TakeInterpolate() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	ret := s.interpolateNext
	s.interpolateNext = false
	return ret
}

func (s *State) SetClockTimestamp(ts int) {
	s.mu.Lock()
	s.clockTimestamp = ts
	s.mu.Unlock()
}

func (s *State) ClockTimestamp() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clockTimestamp
}

func (s *State) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastOfficial = ""
	s.lastOfficialAt = time.Time{}
	s.interpolateNext = false
	s.clockTimestamp = 0
}

package supervisor

import "time"

type State int

const (
	Idle State = iota
	LoadingKeyframe
	Streaming
	Retrying
	Stopped
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case LoadingKeyframe:
		return "loading-keyframe"
	case Streaming:
		return "streaming"
	case Retrying:
		return "retrying"
	case Stopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Clock is the time source of the control loop.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// Package endpoint provides the sources of keyframes and the delta stream:
// the live servers, a recorded session directory and a recording wrapper.
package endpoint

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
)

// ErrKeyframeNotFound is returned when the requested keyframe does not exist
// (yet).
var ErrKeyframeNotFound = errors.New("endpoint: keyframe not found")

// PingByte is written to the stream to ask the server for data.
const PingByte byte = 0x10

// Stream is a persistent feed connection. Writes carry keepalive pings.
// Close must unblock a pending Read.
type Stream interface {
	io.ReadWriteCloser
}

// Endpoint opens keyframes and the delta stream of a session.
type Endpoint interface {
	// OpenKeyframe opens keyframe n, 0 is the current keyframe.
	OpenKeyframe(ctx context.Context, n int) (io.ReadCloser, error)
	Open(ctx context.Context) (Stream, error)
}

// keyframeNamer builds keyframe names. Repeated requests for the current
// keyframe get an increasing counter so that caches are bypassed; a request
// for a numbered keyframe resets the counter.
type keyframeNamer struct {
	mu    sync.Mutex
	count int
}

// next returns the name suffix for keyframe n, e.g. ".bin" or "_00042.bin".
// countFmt formats repeated requests for the current keyframe.
func (k *keyframeNamer) next(n int, countFmt string) string {
	k.mu.Lock()
	defer k.mu.Unlock()
	if n == 0 {
		ret := ".bin"
		if k.count > 0 {
			ret = fmt.Sprintf(countFmt, k.count)
		}
		k.count++
		return ret
	}
	k.count = 0
	return fmt.Sprintf("_%05d.bin", n)
}

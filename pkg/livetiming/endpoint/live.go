package endpoint

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"

	"github.com/mpapenbr/livetiming-feed-go/log"
)

const (
	DefaultKeyframeURL = "http://live-timing.formula1.com/keyframe"
	DefaultStreamAddr  = "live-timing.formula1.com:4321"
)

type LiveOption func(*Live)

func WithHTTPClient(c *http.Client) LiveOption {
	return func(l *Live) {
		l.client = c
	}
}

func WithLiveLogger(logger *log.Logger) LiveOption {
	return func(l *Live) {
		l.log = logger
	}
}

// Live fetches keyframes via HTTP and reads the stream from a TCP socket.
type Live struct {
	keyframeURL string
	streamAddr  string
	client      *http.Client
	dialer      net.Dialer
	log         *log.Logger
	names       keyframeNamer
}

var _ Endpoint = (*Live)(nil)

// NewLive creates a live endpoint. keyframeURL is the base without the
// ".bin" suffix.
func NewLive(keyframeURL, streamAddr string, opts ...LiveOption) *Live {
	l := &Live{
		keyframeURL: keyframeURL,
		streamAddr:  streamAddr,
		client:      http.DefaultClient,
		log:         log.Default().Named("endpoint"),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// KeyframeURL returns the url of keyframe n and advances the counter for the
// current keyframe.
func (l *Live) KeyframeURL(n int) string {
	return l.keyframeURL + l.names.next(n, ".bin?%d")
}

func (l *Live) OpenKeyframe(ctx context.Context, n int) (io.ReadCloser, error) {
	url := l.KeyframeURL(n)
	l.log.Info("opening keyframe", log.String("url", url))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, err
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("keyframe %d: %w", n, err)
	}
	switch {
	case resp.StatusCode == http.StatusNotFound:
		resp.Body.Close()
		return nil, fmt.Errorf("%w: %s", ErrKeyframeNotFound, url)
	case resp.StatusCode != http.StatusOK:
		resp.Body.Close()
		return nil, fmt.Errorf("keyframe %d: unexpected status %s", n, resp.Status)
	}
	l.log.Debug("opened keyframe", log.Int64("length", resp.ContentLength))
	return resp.Body, nil
}

func (l *Live) Open(ctx context.Context) (Stream, error) {
	l.log.Info("connecting", log.String("addr", l.streamAddr))
	conn, err := l.dialer.DialContext(ctx, "tcp", l.streamAddr)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", l.streamAddr, err)
	}
	l.log.Debug("connected", log.String("remote", conn.RemoteAddr().String()))
	return conn, nil
}

// Package keyserver resolves session cipher keys and user credentials.
package keyserver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/mpapenbr/livetiming-feed-go/log"
)

var (
	// ErrAuthInvalid is returned when the server rejects the credentials.
	ErrAuthInvalid = errors.New("keyserver: invalid credentials")
	// ErrKeyServerUnavailable is returned after all retries failed.
	ErrKeyServerUnavailable = errors.New("keyserver: key server unavailable")
)

const (
	DefaultURL   = "http://live-timing.formula1.com"
	invalidReply = "INVALID"
	maxKeyDigits = 8
)

// DefaultRetryDelays are the pauses between the key fetch attempts.
var DefaultRetryDelays = []time.Duration{3 * time.Second, 10 * time.Second, 25 * time.Second}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(k *Client) {
		k.client = c
	}
}

func WithRetryDelays(delays ...time.Duration) Option {
	return func(k *Client) {
		k.delays = delays
	}
}

func WithLogger(l *log.Logger) Option {
	return func(k *Client) {
		k.log = l
	}
}

// Client fetches the cipher key of a session from the key server.
type Client struct {
	baseURL string
	auth    string
	client  *http.Client
	delays  []time.Duration
	log     *log.Logger
}

// New creates a client. auth is the user credential as returned by Login.
func New(baseURL, auth string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		auth:    auth,
		client:  http.DefaultClient,
		delays:  DefaultRetryDelays,
		log:     log.Default().Named("keyserver"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// schedule is a backoff with a fixed list of delays.
type schedule struct {
	delays []time.Duration
	next   int
}

func (s *schedule) Reset() { s.next = 0 }

func (s *schedule) NextBackOff() time.Duration {
	if s.next >= len(s.delays) {
		return backoff.Stop
	}
	d := s.delays[s.next]
	s.next++
	return d
}

// SessionKey returns the key of the session. An INVALID reply is not
// retried and yields ErrAuthInvalid.
func (c *Client) SessionKey(ctx context.Context, sessionID string) (uint32, error) {
	key, err := backoff.Retry(ctx,
		func() (uint32, error) { return c.fetch(ctx, sessionID) },
		backoff.WithBackOff(&schedule{delays: c.delays}),
		backoff.WithMaxTries(uint(len(c.delays)+1)),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(func(err error, d time.Duration) {
			c.log.Warn("key fetch failed, retrying",
				log.String("session", sessionID),
				log.Duration("delay", d),
				log.ErrorField(err))
		}))
	switch {
	case err == nil:
		c.log.Debug("got session key", log.String("session", sessionID))
		return key, nil
	case errors.Is(err, ErrAuthInvalid), ctx.Err() != nil:
		return 0, err
	default:
		return 0, fmt.Errorf("%w: %w", ErrKeyServerUnavailable, err)
	}
}

func (c *Client) keyURL(sessionID string) string {
	return fmt.Sprintf("%s/reg/getkey/%s.asp?auth=%s",
		c.baseURL, url.PathEscape(sessionID), url.QueryEscape(c.auth))
}

func (c *Client) fetch(ctx context.Context, sessionID string) (uint32, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.keyURL(sessionID), http.NoBody)
	if err != nil {
		return 0, backoff.Permanent(err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("unexpected status %s", resp.Status)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 64))
	if err != nil {
		return 0, err
	}
	return ParseKey(string(body))
}

// ParseKey parses a key server reply.
func ParseKey(reply string) (uint32, error) {
	reply = strings.TrimSpace(reply)
	if strings.EqualFold(reply, invalidReply) {
		return 0, backoff.Permanent(ErrAuthInvalid)
	}
	if reply == "" || len(reply) > maxKeyDigits {
		return 0, fmt.Errorf("invalid key reply %q", reply)
	}
	key, err := strconv.ParseUint(reply, 16, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid key reply %q: %w", reply, err)
	}
	return uint32(key), nil
}

// StaticKey provides a fixed key for all sessions.
type StaticKey uint32

func (k StaticKey) SessionKey(context.Context, string) (uint32, error) {
	return uint32(k), nil
}

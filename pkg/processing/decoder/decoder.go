// Package decoder turns live timing frames into presentation updates.
//
// The decoder owns the grid, the cipher and the keyframe resync state of a
// single feed. It is not safe for concurrent use: exactly one goroutine may
// call Process at a time. LastRead and RefreshRate may be read concurrently.
package decoder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/samber/lo"

	"github.com/mpapenbr/livetiming-feed-go/log"
	"github.com/mpapenbr/livetiming-feed-go/pkg/livetiming/crypt"
	"github.com/mpapenbr/livetiming-feed-go/pkg/livetiming/frame"
	"github.com/mpapenbr/livetiming-feed-go/pkg/livetiming/sessiontime"
	"github.com/mpapenbr/livetiming-feed-go/pkg/model"
)

// ErrEndOfStream is returned by Process when the server announces a refresh
// rate of 0.
var ErrEndOfStream = errors.New("decoder: end of stream")

// DefaultRefreshRate is used until the server announces one.
const DefaultRefreshRate = 5

// KeyframeLoader fetches keyframe n and feeds it into the decoder via
// LoadKeyframe.
type KeyframeLoader interface {
	LoadKeyframe(ctx context.Context, n uint16) error
}

// KeyframeLoaderFunc adapts a function to KeyframeLoader.
type KeyframeLoaderFunc func(ctx context.Context, n uint16) error

func (f KeyframeLoaderFunc) LoadKeyframe(ctx context.Context, n uint16) error {
	return f(ctx, n)
}

// SessionKeyProvider resolves the cipher key of a session.
type SessionKeyProvider interface {
	SessionKey(ctx context.Context, sessionID string) (uint32, error)
}

type Option func(*Decoder)

func WithLogger(l *log.Logger) Option {
	return func(d *Decoder) {
		d.log = l
	}
}

func WithPresentation(p model.Presentation) Option {
	return func(d *Decoder) {
		d.pres = p
	}
}

// WithLanguages sets the commentary languages to deliver. Default is 1.
// Duplicates and non-positive codes are dropped.
func WithLanguages(langs ...int) Option {
	return func(d *Decoder) {
		langs = lo.Uniq(lo.Filter(langs, func(l, _ int) bool { return l > 0 }))
		if len(langs) > 0 {
			d.languages = langs
		}
	}
}

func WithKeyProvider(p SessionKeyProvider) Option {
	return func(d *Decoder) {
		d.keys = p
	}
}

func WithKeyframeLoader(l KeyframeLoader) Option {
	return func(d *Decoder) {
		d.loader = l
	}
}

// WithCipher shares an existing cipher, e.g. one with a preset key.
func WithCipher(c *crypt.Cipher) Option {
	return func(d *Decoder) {
		d.cipher = c
	}
}

// WithLoadRetryDelay sets the pause between failed keyframe loads during
// resync. Default is 1s.
func WithLoadRetryDelay(delay time.Duration) Option {
	return func(d *Decoder) {
		d.loadRetryDelay = delay
	}
}

func WithNow(now func() time.Time) Option {
	return func(d *Decoder) {
		d.now = now
	}
}

// WithTelemetry registers the decoder counters under the given feed name.
func WithTelemetry(name string) Option {
	return func(d *Decoder) {
		d.metricsName = name
	}
}

type resyncState struct {
	target    uint16
	suppress  bool
	loadCount uint32
	loading   bool
}

type Decoder struct {
	log            *log.Logger
	pres           model.Presentation
	cipher         *crypt.Cipher
	languages      []int
	keys           SessionKeyProvider
	loader         KeyframeLoader
	loadRetryDelay time.Duration
	now            func() time.Time
	metricsName    string
	metrics        *metrics

	mode       model.SessionMode
	modeSet    bool
	sessionID  string
	slots      [frame.MaxSlots]model.GridSlot
	currentLap int
	commentary map[uint8][]string
	lastClock  int
	times      sessiontime.State
	resync     resyncState

	refreshRate atomic.Int32
	lastRead    atomic.Int64
}

func New(opts ...Option) *Decoder {
	d := &Decoder{
		log:            log.Default().Named("decoder"),
		pres:           model.NopPresentation{},
		languages:      []int{1},
		loadRetryDelay: time.Second,
		now:            time.Now,
		commentary:     make(map[uint8][]string),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.cipher == nil {
		d.cipher = crypt.New(0)
	}
	d.refreshRate.Store(DefaultRefreshRate)
	d.metrics = newMetrics(d.metricsName, d.log)
	return d
}

// Process reads frames from r until the source ends. A clean end of the
// source returns nil.
func (d *Decoder) Process(ctx context.Context, r io.Reader) error {
	fr := frame.NewReader(r, d.cipher)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		f, err := fr.ReadFrame()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		d.Touch()
		if err := d.ApplyFrame(ctx, f); err != nil {
			return err
		}
	}
}

// ApplyFrame applies a single decoded frame. Frames must be passed in stream
// order. Malformed field values are logged and dropped, all other errors are
// fatal for the current source.
func (d *Decoder) ApplyFrame(ctx context.Context, f frame.Frame) error {
	d.metrics.frames(ctx, f.IsControl())
	if d.resync.suppress {
		d.metrics.suppressed(ctx)
	}
	var err error
	if f.IsControl() {
		err = d.applyControl(ctx, f)
	} else {
		err = d.applySlot(f)
	}
	if errors.Is(err, frame.ErrMalformedField) {
		d.metrics.malformed(ctx)
		d.log.Debug("dropping malformed field",
			log.String("frame", f.String()), log.ErrorField(err))
		return nil
	}
	return err
}

// LoadKeyframe applies a complete keyframe read from r. The grid is reset
// and the cipher restarted before the first frame.
func (d *Decoder) LoadKeyframe(ctx context.Context, r io.Reader) error {
	d.BeginKeyframe()
	defer d.EndKeyframe()
	return d.Process(ctx, r)
}

// BeginKeyframe prepares the decoder for keyframe data.
func (d *Decoder) BeginKeyframe() {
	d.resetGrid()
	d.resync.loading = true
	d.resync.suppress = false
	d.resync.loadCount++
	d.modeSet = false
	d.cipher.Reset()
}

func (d *Decoder) EndKeyframe() {
	d.resync.loading = false
}

// Suppress starts fast forwarding: frames are parsed but not applied until
// the stream reaches the keyframe marker of the last loaded keyframe.
func (d *Decoder) Suppress() {
	d.resync.suppress = true
}

// Reset prepares a fresh keyframe cycle. The marker target is cleared and
// suppression is disabled.
func (d *Decoder) Reset() {
	d.resync.target = 0
	d.resync.suppress = false
}

func (d *Decoder) Suppressing() bool {
	return d.resync.suppress
}

// KeyframeTarget returns the number of the last keyframe marker seen.
func (d *Decoder) KeyframeTarget() uint16 {
	return d.resync.target
}

func (d *Decoder) Mode() model.SessionMode {
	return d.mode
}

func (d *Decoder) SessionID() string {
	return d.sessionID
}

// RefreshRate returns the last announced refresh interval in seconds.
func (d *Decoder) RefreshRate() int {
	return int(d.refreshRate.Load())
}

// Touch marks the current time as the time of the last successful read.
func (d *Decoder) Touch() {
	d.lastRead.Store(d.now().UnixNano())
}

// LastRead returns the time the last frame header was read.
func (d *Decoder) LastRead() time.Time {
	return time.Unix(0, d.lastRead.Load())
}

// Times exposes the session time state for countdown tickers.
func (d *Decoder) Times() *sessiontime.State {
	return &d.times
}

// Snapshot returns a deep copy of the grid.
func (d *Decoder) Snapshot() model.Snapshot {
	ret := model.Snapshot{Mode: d.mode, CurrentLap: d.currentLap}
	for i := range d.slots {
		ret.Slots[i] = d.slots[i]
		ret.Slots[i].Laps = append([]int(nil), d.slots[i].Laps...)
	}
	return ret
}

// resetGrid clears all slots and pending commentary. Rows that were
// displayed are blanked.
func (d *Decoder) resetGrid() {
	d.resetSlots()
	clear(d.commentary)
}

func (d *Decoder) slotAtRow(row int) int {
	for i := 1; i < len(d.slots); i++ {
		if d.slots[i].Row == row {
			return i
		}
	}
	return 0
}

// onKeyframeMarker handles the resync protocol. The cipher is reset after
// every marker.
func (d *Decoder) onKeyframeMarker(ctx context.Context, n uint16) error {
	defer d.cipher.Reset()
	switch {
	case n == d.resync.target:
		if d.resync.suppress {
			d.log.Debug("stream caught up with keyframe", log.Uint("keyframe", uint(n)))
		}
		d.resync.suppress = false
	case d.resync.suppress && n > d.resync.target:
		d.log.Info("stream ahead of keyframe, reloading",
			log.Uint("target", uint(d.resync.target)), log.Uint("keyframe", uint(n)))
		d.resync.suppress = false
		if err := d.reload(ctx, n); err != nil {
			return err
		}
	}
	d.resync.target = n
	return nil
}

func (d *Decoder) reload(ctx context.Context, n uint16) error {
	if d.loader == nil {
		return fmt.Errorf("decoder: no keyframe loader for keyframe %d", n)
	}
	for {
		err := d.loader.LoadKeyframe(ctx, n)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		d.log.Warn("could not load keyframe",
			log.Uint("keyframe", uint(n)), log.ErrorField(err))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(d.loadRetryDelay):
		}
	}
}

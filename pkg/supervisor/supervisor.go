// Package supervisor drives a decoder against a live timing endpoint. It
// loads keyframes, keeps the stream alive with pings and reconnects when the
// connection dies.
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"

	"github.com/mpapenbr/livetiming-feed-go/log"
	"github.com/mpapenbr/livetiming-feed-go/pkg/livetiming/endpoint"
	"github.com/mpapenbr/livetiming-feed-go/pkg/livetiming/keyserver"
	"github.com/mpapenbr/livetiming-feed-go/pkg/model"
	"github.com/mpapenbr/livetiming-feed-go/pkg/processing/decoder"
)

const (
	MsgArchiveUnavailable   = "The Live Timing Archive for this session is not yet available"
	MsgInvalidCredentials   = "Invalid credentials - please log off and back on again to view this stream"
	MsgKeyServerUnavailable = "Key Server error ... please try again"
)

var (
	errStopped   = errors.New("supervisor: stopped")
	errResync    = errors.New("supervisor: resync period elapsed")
	errDead      = errors.New("supervisor: connection dead")
	errConnect   = errors.New("supervisor: connect failed")
	errArchive   = errors.New("supervisor: archive unavailable")
	errFinished  = errors.New("supervisor: stream finished")
	errFatalAuth = errors.New("supervisor: session key unavailable")
)

type Option func(*Supervisor)

func WithLogger(l *log.Logger) Option {
	return func(s *Supervisor) {
		s.log = l
	}
}

// WithPresentation sets the receiver of decoded events and connection health.
func WithPresentation(p model.Presentation) Option {
	return func(s *Supervisor) {
		s.pres = p
	}
}

func WithClock(c Clock) Option {
	return func(s *Supervisor) {
		s.clock = c
	}
}

func WithTickInterval(d time.Duration) Option {
	return func(s *Supervisor) {
		s.tick = d
	}
}

// WithArchive marks the endpoint as a finished session. A missing keyframe
// stops the supervisor instead of being retried and the end of the stream
// ends the run.
func WithArchive(archive bool) Option {
	return func(s *Supervisor) {
		s.archive = archive
	}
}

// WithKeyframeOnly stops after the initial keyframe without opening the
// stream.
func WithKeyframeOnly(only bool) Option {
	return func(s *Supervisor) {
		s.keyframeOnly = only
	}
}

func WithMinCycle(d time.Duration) Option {
	return func(s *Supervisor) {
		s.minCycle = d
	}
}

// WithResyncPeriod forces a keyframe reload after d even if the stream is
// healthy. 0 disables it.
func WithResyncPeriod(d time.Duration) Option {
	return func(s *Supervisor) {
		s.resyncPeriod = d
	}
}

func WithMaxRetryDelay(d time.Duration) Option {
	return func(s *Supervisor) {
		s.maxRetryDelay = d
	}
}

// WithKeyframeRetry sets the random delay range between failed keyframe
// fetches in live mode.
func WithKeyframeRetry(minDelay, maxDelay time.Duration) Option {
	return func(s *Supervisor) {
		s.kfRetryMin = minDelay
		s.kfRetryMax = maxDelay
	}
}

func WithOnStateChange(f func(from, to State)) Option {
	return func(s *Supervisor) {
		s.onStateChange = f
	}
}

func WithDecoderOptions(opts ...decoder.Option) Option {
	return func(s *Supervisor) {
		s.decOpts = append(s.decOpts, opts...)
	}
}

func WithTelemetry(name string) Option {
	return func(s *Supervisor) {
		s.telemetry = name
	}
}

type Supervisor struct {
	ep            endpoint.Endpoint
	dec           *decoder.Decoder
	decOpts       []decoder.Option
	log           *log.Logger
	pres          model.Presentation
	clock         Clock
	tick          time.Duration
	archive       bool
	keyframeOnly  bool
	minCycle      time.Duration
	resyncPeriod  time.Duration
	maxRetryDelay time.Duration
	kfRetryMin    time.Duration
	kfRetryMax    time.Duration
	onStateChange func(from, to State)
	telemetry     string
	metrics       *metrics
	runID         string

	mu       sync.Mutex
	state    State
	health   model.Health
	stopCh   chan struct{}
	stopOnce sync.Once
}

// New creates a supervisor for ep. The decoder is built from the options
// passed via WithDecoderOptions and reloads keyframes through the supervisor.
func New(ep endpoint.Endpoint, opts ...Option) *Supervisor {
	s := &Supervisor{
		ep:            ep,
		log:           log.Default().Named("supervisor"),
		pres:          model.NopPresentation{},
		clock:         realClock{},
		tick:          time.Second,
		minCycle:      30 * time.Second,
		maxRetryDelay: time.Minute,
		kfRetryMin:    10 * time.Second,
		kfRetryMax:    20 * time.Second,
		telemetry:     "default",
		runID:         uuid.New().String(),
		state:         Idle,
		stopCh:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.pres = model.Synchronized(s.pres)
	s.log = s.log.With(log.String("run", s.runID))
	s.metrics = newMetrics(s.telemetry, s.log)
	dopts := []decoder.Option{
		decoder.WithLogger(s.log.Named("decoder")),
		decoder.WithPresentation(s.pres),
		decoder.WithNow(s.clock.Now),
		decoder.WithTelemetry(s.telemetry),
	}
	dopts = append(dopts, s.decOpts...)
	dopts = append(dopts, decoder.WithKeyframeLoader(s))
	s.dec = decoder.New(dopts...)
	return s
}

func (s *Supervisor) Decoder() *decoder.Decoder {
	return s.dec
}

func (s *Supervisor) RunID() string {
	return s.runID
}

func (s *Supervisor) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Stop ends Run. It may be called any number of times.
func (s *Supervisor) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
}

// LoadKeyframe fetches keyframe n from the endpoint and applies it to the
// decoder.
func (s *Supervisor) LoadKeyframe(ctx context.Context, n uint16) error {
	rc, err := s.ep.OpenKeyframe(ctx, int(n))
	if err != nil {
		return err
	}
	defer rc.Close()
	s.metrics.add(ctx, s.metrics.keyframes)
	s.log.Debug("loading keyframe", log.Uint("keyframe", uint(n)))
	return s.dec.LoadKeyframe(ctx, rc)
}

// Run executes the supervisor until the feed ends, a fatal error occurs, the
// context is cancelled or Stop is called. A finished feed returns nil.
func (s *Supervisor) Run(ctx context.Context) error {
	defer s.setState(Stopped)
	defer s.setHealth(model.HealthStopped)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-s.stopCh:
			cancel()
		case <-ctx.Done():
		}
	}()

	retry := &backoff.ExponentialBackOff{
		InitialInterval:     time.Second,
		RandomizationFactor: backoff.DefaultRandomizationFactor,
		Multiplier:          backoff.DefaultMultiplier,
		MaxInterval:         s.maxRetryDelay,
	}
	retry.Reset()

	for {
		select {
		case <-s.stopCh:
			return nil
		default:
		}
		cycleStart := s.clock.Now()
		err := s.cycle(ctx, cycleStart)
		switch {
		case errors.Is(err, errStopped), errors.Is(err, errArchive),
			errors.Is(err, errFinished):
			return nil
		case errors.Is(err, context.Canceled):
			return nil
		case errors.Is(err, errFatalAuth):
			return err
		case errors.Is(err, errConnect):
			s.setState(Retrying)
			s.setHealth(model.HealthError)
			delay := retry.NextBackOff()
			s.log.Warn("stream connection failed",
				log.Duration("retryIn", delay), log.ErrorField(err))
			if err := s.wait(ctx, delay); err != nil {
				return nil
			}
			continue
		case err != nil && ctx.Err() != nil:
			return nil
		}
		retry.Reset()
		s.setState(LoadingKeyframe)
		s.log.Info("reloading keyframe", log.ErrorField(err))
		if elapsed := s.clock.Now().Sub(cycleStart); elapsed < s.minCycle {
			if err := s.wait(ctx, s.minCycle-elapsed); err != nil {
				return nil
			}
		}
	}
}

func (s *Supervisor) cycle(ctx context.Context, cycleStart time.Time) error {
	s.setState(LoadingKeyframe)
	s.setHealth(model.HealthConnecting)
	s.dec.Reset()
	if err := s.loadInitial(ctx); err != nil {
		return err
	}
	if s.keyframeOnly || s.dec.RefreshRate() == 0 {
		return errFinished
	}
	s.dec.Suppress()
	return s.stream(ctx, cycleStart)
}

func (s *Supervisor) loadInitial(ctx context.Context) error {
	for {
		err := s.LoadKeyframe(ctx, 0)
		if err == nil {
			return nil
		}
		if ferr := s.fatal(err); ferr != nil {
			return ferr
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if s.archive && errors.Is(err, endpoint.ErrKeyframeNotFound) {
			s.log.Warn("archive not available", log.ErrorField(err))
			s.pres.OnSafetyMessage(MsgArchiveUnavailable)
			s.pres.OnValidity(false)
			return errArchive
		}
		delay := s.keyframeRetryDelay()
		s.log.Warn("keyframe load failed",
			log.Duration("retryIn", delay), log.ErrorField(err))
		if err := s.wait(ctx, delay); err != nil {
			return err
		}
	}
}

// fatal maps errors that end the supervisor. It returns nil for errors that
// allow a reload.
func (s *Supervisor) fatal(err error) error {
	switch {
	case errors.Is(err, decoder.ErrEndOfStream):
		s.log.Info("feed finished")
		return errFinished
	case errors.Is(err, keyserver.ErrAuthInvalid):
		s.pres.OnSafetyMessage(MsgInvalidCredentials)
		s.pres.OnValidity(false)
		s.setHealth(model.HealthError)
		return fmt.Errorf("%w: %w", errFatalAuth, err)
	case errors.Is(err, keyserver.ErrKeyServerUnavailable):
		s.pres.OnSafetyMessage(MsgKeyServerUnavailable)
		s.pres.OnValidity(false)
		s.setHealth(model.HealthError)
		return fmt.Errorf("%w: %w", errFatalAuth, err)
	}
	return nil
}

func (s *Supervisor) keyframeRetryDelay() time.Duration {
	span := s.kfRetryMax - s.kfRetryMin
	if span <= 0 {
		return s.kfRetryMin
	}
	//nolint:gosec // jitter only
	return s.kfRetryMin + rand.N(span)
}

//nolint:funlen,gocognit // control loop
func (s *Supervisor) stream(ctx context.Context, cycleStart time.Time) error {
	conn, err := s.ep.Open(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %w", errConnect, err)
	}
	s.metrics.add(ctx, s.metrics.reconnects)
	s.dec.Touch()
	s.setState(Streaming)
	s.setHealth(model.HealthStreaming)

	readerCtx, cancelReader := context.WithCancel(ctx)
	defer cancelReader()
	readerDone := make(chan error, 1)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		readerDone <- s.dec.Process(readerCtx, conn)
	}()
	closeAndJoin := func() {
		cancelReader()
		if err := conn.Close(); err != nil {
			s.log.Debug("closing stream", log.ErrorField(err))
		}
		wg.Wait()
	}

	var lastPing time.Time
	lastSeen := s.dec.LastRead()
	for {
		select {
		case <-ctx.Done():
			closeAndJoin()
			return ctx.Err()
		case <-s.stopCh:
			closeAndJoin()
			return errStopped
		case err := <-readerDone:
			closeAndJoin()
			if ferr := s.fatal(err); ferr != nil {
				return ferr
			}
			if err == nil && s.archive {
				s.log.Info("archive replay finished")
				return errFinished
			}
			if err == nil {
				err = errDead
				s.log.Info("stream closed by server")
			} else {
				s.log.Warn("stream failed", log.ErrorField(err))
			}
			s.setHealth(model.HealthDead)
			return err
		case <-s.clock.After(s.tick):
		}

		now := s.clock.Now()
		if s.resyncPeriod > 0 && now.Sub(cycleStart) >= s.resyncPeriod {
			closeAndJoin()
			return errResync
		}
		lastRead := s.dec.LastRead()
		if lastRead.After(lastSeen) {
			lastSeen = lastRead
			s.setHealth(model.HealthData)
		}
		rate := s.dec.RefreshRate()
		if rate <= 0 {
			continue
		}
		interval := time.Duration(rate) * time.Second
		if now.Sub(lastRead) <= interval {
			continue
		}
		if lastPing.After(lastRead) {
			if now.Sub(lastPing) > interval {
				s.log.Warn("no data after ping", log.Duration("silent", now.Sub(lastRead)))
				s.setHealth(model.HealthDead)
				closeAndJoin()
				return errDead
			}
			continue
		}
		lastPing = now
		s.metrics.add(ctx, s.metrics.pings)
		s.setHealth(model.HealthPinging)
		if _, err := conn.Write([]byte{endpoint.PingByte}); err != nil {
			s.log.Warn("ping failed", log.ErrorField(err))
			s.setHealth(model.HealthDead)
			closeAndJoin()
			return fmt.Errorf("%w: %w", errDead, err)
		}
	}
}

// wait blocks for d. It returns an error when the supervisor is stopped or
// ctx is done first.
func (s *Supervisor) wait(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-s.stopCh:
		return errStopped
	case <-s.clock.After(d):
		return nil
	}
}

func (s *Supervisor) setState(to State) {
	s.mu.Lock()
	from := s.state
	s.state = to
	s.mu.Unlock()
	if from == to {
		return
	}
	s.log.Debug("state change", log.String("from", from.String()), log.String("to", to.String()))
	if s.onStateChange != nil {
		s.onStateChange(from, to)
	}
}

func (s *Supervisor) setHealth(h model.Health) {
	s.mu.Lock()
	changed := s.health != h
	s.health = h
	s.mu.Unlock()
	if changed {
		s.pres.OnConnectionHealth(h)
	}
}

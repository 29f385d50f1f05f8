// Package feed wires endpoints, decoder, supervisor and sinks for the
// feed commands.
package feed

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/nats-io/nats.go"
	"github.com/spf13/cobra"

	"github.com/mpapenbr/livetiming-feed-go/log"
	"github.com/mpapenbr/livetiming-feed-go/pkg/config"
	"github.com/mpapenbr/livetiming-feed-go/pkg/livetiming/endpoint"
	"github.com/mpapenbr/livetiming-feed-go/pkg/livetiming/keyserver"
	"github.com/mpapenbr/livetiming-feed-go/pkg/model"
	"github.com/mpapenbr/livetiming-feed-go/pkg/processing/decoder"
	"github.com/mpapenbr/livetiming-feed-go/pkg/sink"
	"github.com/mpapenbr/livetiming-feed-go/pkg/supervisor"
	"github.com/mpapenbr/livetiming-feed-go/pkg/utils"
	"github.com/mpapenbr/livetiming-feed-go/pkg/utils/broadcast"
)

// AddOutputFlags registers the logging, telemetry and sink flags.
func AddOutputFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&config.LogLevel,
		"log-level",
		"info",
		"controls the log level (debug, info, warn, error, fatal)")
	cmd.Flags().StringVar(&config.LogFormat,
		"log-format",
		"text",
		"controls the log output format (json, text)")
	cmd.Flags().StringVar(&config.LogFilter,
		"log-filter",
		"",
		"zapfilter rules (LEVELS:NAMESPACES), e.g. \"*:*,-decoder\"")
	cmd.Flags().BoolVar(&config.EnableTelemetry,
		"enable-telemetry",
		false,
		"enables telemetry")
	cmd.Flags().StringVar(&config.TelemetryEndpoint,
		"telemetry-endpoint",
		"localhost:4317",
		"Endpoint that receives open telemetry data (stdout prints them)")
	cmd.Flags().StringVar(&config.NatsURL,
		"nats-url",
		"",
		"publish events to this NATS server")
	cmd.Flags().StringVar(&config.NatsSubject,
		"nats-subject",
		"ltf",
		"subject prefix for published events")
	cmd.Flags().StringVar(&config.Languages,
		"languages",
		"1",
		"comma separated commentary languages")
	cmd.Flags().BoolVarP(&config.Quiet,
		"quiet", "q",
		false,
		"do not print grid cell updates")
	cmd.Flags().IntVar(&config.Width,
		"width",
		72,
		"console width for commentary and messages")
}

// AddSupervisorFlags registers the timing flags of the connection supervisor.
func AddSupervisorFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&config.MinCycle,
		"min-cycle",
		"30s",
		"minimum duration between keyframe reloads")
	cmd.Flags().StringVar(&config.ResyncPeriod,
		"resync-period",
		"15m",
		"reload the keyframe after this duration even if the stream is healthy "+
			"(0 disables the reload, so a stream that never drops is never resynced)")
	cmd.Flags().StringVar(&config.MaxRetryDelay,
		"max-retry-delay",
		"1m",
		"upper bound of the reconnect backoff")
}

func parseLogLevel(l string, defaultVal log.Level) log.Level {
	level, err := log.ParseLevel(l)
	if err != nil {
		return defaultVal
	}
	return level
}

// SetupLogger installs the default logger according to the log flags.
func SetupLogger() error {
	var logger *log.Logger
	switch config.LogFormat {
	case "json":
		logger = log.New(
			os.Stderr,
			parseLogLevel(config.LogLevel, log.InfoLevel),
			log.WithCaller(true),
			log.AddCallerSkip(1))
	default:
		logger = log.DevLogger(
			os.Stderr,
			parseLogLevel(config.LogLevel, log.InfoLevel),
			log.WithCaller(true),
			log.AddCallerSkip(1))
	}
	filtered, err := logger.WithFilter(config.LogFilter)
	if err != nil {
		return fmt.Errorf("invalid log filter: %w", err)
	}
	log.ResetDefault(filtered)
	return nil
}

// Setup is the per command input of Run.
type Setup struct {
	Endpoint    endpoint.Endpoint
	KeyProvider decoder.SessionKeyProvider
	Options     []supervisor.Option
}

// KeyProvider resolves the user credential and returns a session key client.
func KeyProvider(ctx context.Context) (decoder.SessionKeyProvider, error) {
	auth := config.AuthToken
	if auth == "" && config.User != "" {
		var err error
		auth, err = keyserver.Login(ctx, nil, config.LoginURL, config.User, config.Password)
		if err != nil {
			return nil, err
		}
	}
	if auth == "" {
		return nil, fmt.Errorf("%w: either --auth-token or --user is required",
			keyserver.ErrAuthInvalid)
	}
	log.Debug("using credential", log.String("fingerprint", utils.Fingerprint(auth)))
	return keyserver.New(config.KeyServerURL, auth), nil
}

// Run decodes the feed of s until it ends or the process is interrupted.
//
//nolint:funlen // wiring
func Run(ctx context.Context, s Setup) error {
	cfg, err := config.Parse()
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if config.EnableTelemetry {
		log.Info("Enabling telemetry")
		if telemetry, err := config.SetupTelemetry(ctx); err == nil {
			defer telemetry.Shutdown()
		} else {
			log.Warn("Could not setup telemetry", log.ErrorField(err))
		}
	}

	console := sink.NewConsole(os.Stdout,
		sink.WithWidth(config.Width), sink.WithQuiet(config.Quiet))
	clock := sink.NewSessionClock()
	presentations := []model.Presentation{
		console.Presentation(),
		sink.NewLog(log.Default().Named("events")),
		clock,
	}
	countdownTargets := []func(<-chan string){console.Countdown}

	if config.NatsURL != "" {
		conn, err := nats.Connect(config.NatsURL, nats.Name("ltf"))
		if err != nil {
			return fmt.Errorf("connect nats: %w", err)
		}
		defer conn.Close()
		natsSink := sink.NewNats(conn, config.NatsSubject,
			sink.WithNatsLogger(log.Default().Named("nats")))
		presentations = append(presentations, natsSink.Presentation())
		countdownTargets = append(countdownTargets, natsSink.Countdown)
	}

	countdown := broadcast.NewBroadcastServer("countdown", clock.Ticks())
	var wg sync.WaitGroup
	for _, target := range countdownTargets {
		ch := countdown.Subscribe()
		wg.Add(1)
		go func() {
			defer wg.Done()
			target(ch)
		}()
	}
	defer func() {
		clock.Close()
		<-countdown.Done()
		wg.Wait()
	}()

	opts := []supervisor.Option{
		supervisor.WithPresentation(sink.Multi(presentations...)),
		supervisor.WithMinCycle(cfg.MinCycle),
		supervisor.WithResyncPeriod(cfg.ResyncPeriod),
		supervisor.WithDecoderOptions(
			decoder.WithLanguages(cfg.Languages...),
			decoder.WithKeyProvider(s.KeyProvider),
		),
	}
	if cfg.MaxRetryDelay > 0 {
		opts = append(opts, supervisor.WithMaxRetryDelay(cfg.MaxRetryDelay))
	}
	sup := supervisor.New(s.Endpoint, append(opts, s.Options...)...)
	log.Info("Starting feed", log.String("run", sup.RunID()))
	err = sup.Run(ctx)
	log.Info("Feed stopped", log.String("state", sup.State().String()))
	return err
}

// WaitForServices waits until the feed servers are reachable.
func WaitForServices(ctx context.Context) error {
	cfg, err := config.Parse()
	if err != nil {
		return err
	}
	if cfg.WaitTimeout <= 0 {
		return nil
	}
	var addrs []string
	var urls []string
	if config.StreamAddr != "" {
		addrs = append(addrs, config.StreamAddr)
	}
	if addr := utils.ExtractFromHTTPURL(config.KeyframeURL); addr != "" {
		addrs = append(addrs, addr)
		urls = append(urls, config.KeyframeURL+".bin")
	}
	if addr := utils.ExtractFromNatsURL(config.NatsURL); addr != "" {
		addrs = append(addrs, addr)
	}

	errs := make(chan error, len(addrs)+len(urls))
	var wg sync.WaitGroup
	for _, addr := range addrs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- utils.WaitForTCP(ctx, addr, cfg.WaitTimeout)
		}()
	}
	for _, url := range urls {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- utils.WaitForHTTPResponse(ctx, url, cfg.WaitTimeout)
		}()
	}
	log.Debug("Waiting for connection checks to return")
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			return fmt.Errorf("required services not ready: %w", err)
		}
	}
	log.Debug("Required services are available")
	return nil
}

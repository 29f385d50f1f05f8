package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// this holds the resolved configuration values from CLI
//
//nolint:lll // readablity
var (
	KeyframeURL       string // base URL of the keyframe files (without .bin)
	StreamAddr        string // host:port of the live stream
	KeyServerURL      string // base URL of the session key server
	LoginURL          string // URL of the login form
	User              string // email used for login
	Password          string // password used for login
	AuthToken         string // user credential, skips the login when set
	Languages         string // comma separated commentary language codes
	MinCycle          string // minimum duration between keyframe reloads
	ResyncPeriod      string // forced keyframe reload period, 0 disables
	MaxRetryDelay     string // upper bound of the reconnect backoff
	RecordDir         string // directory to record keyframes and stream into
	NatsURL           string // URL of the NATS server, empty disables publishing
	NatsSubject       string // subject prefix for published events
	WaitForServices   string // duration to wait for other services to be ready
	LogLevel          string // sets the log level (zap log level values)
	LogFormat         string // text vs json
	LogFilter         string // zapfilter rules
	EnableTelemetry   bool   // enable telemetry
	TelemetryEndpoint string // endpoint for telemetry, "stdout" prints metrics
	Quiet             bool   // do not print grid cell updates
	Width             int    // console width for wrapped text
)

// Config holds the parsed values which are used to set up a feed.
type Config struct {
	Languages     []int
	MinCycle      time.Duration
	ResyncPeriod  time.Duration
	MaxRetryDelay time.Duration
	WaitTimeout   time.Duration
}

// Parse converts the raw flag values into a Config.
func Parse() (Config, error) {
	var cfg Config
	var err error
	if cfg.Languages, err = ParseLanguages(Languages); err != nil {
		return cfg, err
	}
	for _, d := range []struct {
		name string
		raw  string
		dst  *time.Duration
	}{
		{"min-cycle", MinCycle, &cfg.MinCycle},
		{"resync-period", ResyncPeriod, &cfg.ResyncPeriod},
		{"max-retry-delay", MaxRetryDelay, &cfg.MaxRetryDelay},
		{"wait-for-services", WaitForServices, &cfg.WaitTimeout},
	} {
		if d.raw == "" {
			continue
		}
		if *d.dst, err = time.ParseDuration(d.raw); err != nil {
			return cfg, fmt.Errorf("invalid %s: %w", d.name, err)
		}
	}
	return cfg, nil
}

// ParseLanguages parses a comma separated list of language codes.
func ParseLanguages(raw string) ([]int, error) {
	var ret []int
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		lang, err := strconv.Atoi(part)
		if err != nil || lang <= 0 {
			return nil, fmt.Errorf("invalid language %q", part)
		}
		ret = append(ret, lang)
	}
	return ret, nil
}

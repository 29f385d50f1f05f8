package config

import (
	"context"
	"errors"
	"os"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/mpapenbr/livetiming-feed-go/log"
)

// Telemetry owns the meter provider installed by SetupTelemetry.
type Telemetry struct {
	provider *sdkmetric.MeterProvider
}

// SetupTelemetry installs a global meter provider exporting to
// TelemetryEndpoint via OTLP gRPC. The endpoint "stdout" prints the metrics.
func SetupTelemetry(ctx context.Context) (*Telemetry, error) {
	var exporter sdkmetric.Exporter
	var err error
	if TelemetryEndpoint == "stdout" {
		exporter, err = stdoutmetric.New(stdoutmetric.WithWriter(os.Stdout))
	} else {
		exporter, err = otlpmetricgrpc.New(ctx,
			otlpmetricgrpc.WithEndpoint(TelemetryEndpoint),
			otlpmetricgrpc.WithInsecure())
	}
	if err != nil {
		return nil, err
	}
	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter,
			sdkmetric.WithInterval(15*time.Second))),
	)
	otel.SetMeterProvider(provider)
	return &Telemetry{provider: provider}, nil
}

func (t *Telemetry) Shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := t.provider.Shutdown(ctx); err != nil &&
		!errors.Is(err, sdkmetric.ErrReaderShutdown) {
		log.Warn("telemetry shutdown", log.ErrorField(err))
	}
}

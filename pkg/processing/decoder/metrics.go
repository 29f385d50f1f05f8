package decoder

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/mpapenbr/livetiming-feed-go/log"
)

type metrics struct {
	feed           attribute.KeyValue
	attrs          metric.MeasurementOption
	frameCount     metric.Int64Counter
	suppressCount  metric.Int64Counter
	malformedCount metric.Int64Counter
}

func newMetrics(name string, l *log.Logger) *metrics {
	if name == "" {
		name = "default"
	}
	meter := otel.GetMeterProvider().Meter("ltf.decoder")
	feed := attribute.String("feed", name)
	m := &metrics{feed: feed, attrs: metric.WithAttributes(feed)}
	counter := func(metricName, desc string) metric.Int64Counter {
		c, err := meter.Int64Counter(metricName,
			metric.WithDescription(desc),
			metric.WithUnit("{count}"))
		if err != nil {
			l.Error("failed to register metric",
				log.String("metric", metricName),
				log.ErrorField(err))
		}
		return c
	}
	m.frameCount = counter("ltf.decoder.frames", "Number of decoded frames")
	m.suppressCount = counter("ltf.decoder.suppressed", "Number of frames skipped during resync")
	m.malformedCount = counter("ltf.decoder.malformed", "Number of dropped malformed fields")
	return m
}

func (m *metrics) frames(ctx context.Context, control bool) {
	if m.frameCount == nil {
		return
	}
	m.frameCount.Add(ctx, 1,
		metric.WithAttributes(m.feed, attribute.Bool("control", control)))
}

func (m *metrics) suppressed(ctx context.Context) {
	if m.suppressCount != nil {
		m.suppressCount.Add(ctx, 1, m.attrs)
	}
}

func (m *metrics) malformed(ctx context.Context) {
	if m.malformedCount != nil {
		m.malformedCount.Add(ctx, 1, m.attrs)
	}
}

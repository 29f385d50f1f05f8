package supervisor

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/mpapenbr/livetiming-feed-go/log"
)

type metrics struct {
	attrs      metric.MeasurementOption
	keyframes  metric.Int64Counter
	reconnects metric.Int64Counter
	pings      metric.Int64Counter
}

func newMetrics(name string, l *log.Logger) *metrics {
	meter := otel.GetMeterProvider().Meter("ltf.supervisor")
	m := &metrics{attrs: metric.WithAttributes(attribute.String("feed", name))}
	for _, d := range []struct {
		name string
		desc string
		dst  *metric.Int64Counter
	}{
		{"ltf.supervisor.keyframes", "Number of loaded keyframes", &m.keyframes},
		{"ltf.supervisor.reconnects", "Number of stream connections", &m.reconnects},
		{"ltf.supervisor.pings", "Number of keepalive pings", &m.pings},
	} {
		c, err := meter.Int64Counter(d.name,
			metric.WithDescription(d.desc),
			metric.WithUnit("{count}"))
		if err != nil {
			l.Error("failed to register metric",
				log.String("metric", d.name),
				log.ErrorField(err))
			continue
		}
		*d.dst = c
	}
	return m
}

func (m *metrics) add(ctx context.Context, c metric.Int64Counter) {
	if c != nil {
		c.Add(ctx, 1, m.attrs)
	}
}

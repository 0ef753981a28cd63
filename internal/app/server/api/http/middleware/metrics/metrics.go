package metrics

import (
	"strconv"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/exp/slog"
)

// Metrics counts requests and records their latency per operation.
type Metrics struct {
	requests metric.Int64Counter
	duration metric.Float64Histogram
	log      *slog.Logger
}

func New(meter metric.Meter, log *slog.Logger) *Metrics {
	m := &Metrics{log: log.With(slog.String("component", "http_metrics"))}

	var err error
	m.requests, err = meter.Int64Counter("childhealth.http.requests",
		metric.WithDescription("Handled HTTP requests"),
	)
	if err != nil {
		m.log.Warn("request counter unavailable", "error", err)
	}

	m.duration, err = meter.Float64Histogram("childhealth.http.duration",
		metric.WithDescription("HTTP request latency"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		m.log.Warn("duration histogram unavailable", "error", err)
	}

	return m
}

func (m *Metrics) Middleware() func(huma.Context, func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		start := time.Now()

		next(ctx)

		opID := ""
		if op := ctx.Operation(); op != nil {
			opID = op.OperationID
		}
		attrs := metric.WithAttributes(
			attribute.String("operation", opID),
			attribute.String("method", ctx.Method()),
			attribute.String("status", strconv.Itoa(ctx.Status())),
		)

		if m.requests != nil {
			m.requests.Add(ctx.Context(), 1, attrs)
		}
		if m.duration != nil {
			m.duration.Record(ctx.Context(), float64(time.Since(start).Microseconds())/1000, attrs)
		}
	}
}

package driver

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const (
	instrumentationName    = "github.com/andreasronge/neo4j-core/src/driver"
	instrumentationVersion = "0.1.0"
)

// ObservabilityConfig controls telemetry collection.
type ObservabilityConfig struct {
	// EnableTracing enables OpenTelemetry distributed tracing
	EnableTracing bool `yaml:"enable_tracing"`

	// EnableMetrics enables OpenTelemetry metrics collection
	EnableMetrics bool `yaml:"enable_metrics"`

	// TracingAttributes are additional attributes to add to all spans
	TracingAttributes []attribute.KeyValue `yaml:"-"`

	// MetricAttributes are additional attributes to add to all metrics
	MetricAttributes []attribute.KeyValue `yaml:"-"`
}

// DefaultObservabilityConfig enables both tracing and metrics.
func DefaultObservabilityConfig() *ObservabilityConfig {
	return &ObservabilityConfig{
		EnableTracing: true,
		EnableMetrics: true,
		TracingAttributes: []attribute.KeyValue{
			attribute.String("db.system", "neo4j"),
			attribute.String("db.driver", "neo4j-core"),
			attribute.String("db.driver.version", instrumentationVersion),
		},
		MetricAttributes: []attribute.KeyValue{
			attribute.String("db.system", "neo4j"),
			attribute.String("db.driver", "neo4j-core"),
		},
	}
}

// observabilityInstruments holds OpenTelemetry instruments.
type observabilityInstruments struct {
	tracer trace.Tracer
	meter  metric.Meter

	queryDuration    metric.Float64Histogram
	queryCount       metric.Int64Counter
	queryErrors      metric.Int64Counter
	recordsReturned  metric.Int64Counter
	connectionCount  metric.Int64UpDownCounter
	connectionErrors metric.Int64Counter
}

func initObservability() *observabilityInstruments {
	tracer := otel.Tracer(instrumentationName, trace.WithInstrumentationVersion(instrumentationVersion))
	meter := otel.Meter(instrumentationName, metric.WithInstrumentationVersion(instrumentationVersion))

	oi := &observabilityInstruments{tracer: tracer, meter: meter}

	var err error
	oi.queryDuration, err = meter.Float64Histogram(
		"db.query.duration",
		metric.WithDescription("Duration of database queries"),
		metric.WithUnit("s"),
	)
	if err != nil {
		otel.Handle(err)
	}
	oi.queryCount, err = meter.Int64Counter(
		"db.query.count",
		metric.WithDescription("Number of database queries executed"),
	)
	if err != nil {
		otel.Handle(err)
	}
	oi.queryErrors, err = meter.Int64Counter(
		"db.query.errors",
		metric.WithDescription("Number of query execution errors"),
	)
	if err != nil {
		otel.Handle(err)
	}
	oi.recordsReturned, err = meter.Int64Counter(
		"db.query.records",
		metric.WithDescription("Number of records returned by queries"),
	)
	if err != nil {
		otel.Handle(err)
	}
	oi.connectionCount, err = meter.Int64UpDownCounter(
		"db.connection.count",
		metric.WithDescription("Number of active database connections"),
	)
	if err != nil {
		otel.Handle(err)
	}
	oi.connectionErrors, err = meter.Int64Counter(
		"db.connection.errors",
		metric.WithDescription("Number of connection errors"),
	)
	if err != nil {
		otel.Handle(err)
	}

	return oi
}

type spanContext struct {
	span      trace.Span
	startTime time.Time
}

func (oi *observabilityInstruments) startQuerySpan(ctx context.Context, query string, params map[string]interface{}, config *ObservabilityConfig) (context.Context, *spanContext) {
	if !config.EnableTracing {
		return ctx, &spanContext{startTime: time.Now()}
	}

	attrs := make([]attribute.KeyValue, 0, len(config.TracingAttributes)+3)
	attrs = append(attrs, config.TracingAttributes...)
	attrs = append(attrs,
		attribute.String("db.statement", query),
		attribute.String("db.operation", inferQueryType(query)),
	)
	// Parameter values are deliberately not recorded.
	if len(params) > 0 {
		attrs = append(attrs, attribute.Int("db.statement.parameter_count", len(params)))
	}

	ctx, span := oi.tracer.Start(ctx, "db.query",
		trace.WithAttributes(attrs...),
		trace.WithSpanKind(trace.SpanKindClient),
	)
	return ctx, &spanContext{span: span, startTime: time.Now()}
}

func (oi *observabilityInstruments) finishQuerySpan(spanCtx *spanContext, summary *ResultSummary, err error, config *ObservabilityConfig) {
	duration := time.Since(spanCtx.startTime)

	if config.EnableMetrics {
		attrs := metric.WithAttributes(config.MetricAttributes...)
		oi.queryDuration.Record(context.Background(), duration.Seconds(), attrs)

		queryTypeAttr := attribute.String("query.type", summary.QueryType)
		if err != nil {
			statusAttr := attribute.String("query.status", "error")
			oi.queryErrors.Add(context.Background(), 1, metric.WithAttributes(append(config.MetricAttributes, queryTypeAttr, statusAttr)...))
		} else {
			statusAttr := attribute.String("query.status", "success")
			oi.queryCount.Add(context.Background(), 1, metric.WithAttributes(append(config.MetricAttributes, queryTypeAttr, statusAttr)...))
			if summary.RecordsConsumed > 0 {
				oi.recordsReturned.Add(context.Background(), summary.RecordsConsumed, attrs)
			}
		}
	}

	if config.EnableTracing && spanCtx.span != nil {
		spanCtx.span.SetAttributes(
			attribute.Int64("db.query.records_returned", summary.RecordsConsumed),
			attribute.Float64("db.query.duration_ms", float64(duration.Nanoseconds())/1e6),
			attribute.String("db.query.type", summary.QueryType),
		)
		if err != nil {
			spanCtx.span.RecordError(err)
			spanCtx.span.SetStatus(codes.Error, err.Error())
		} else {
			spanCtx.span.SetStatus(codes.Ok, "")
		}
		spanCtx.span.End()
	}
}

func (oi *observabilityInstruments) recordConnectionEvent(eventType string, config *ObservabilityConfig, err error) {
	if !config.EnableMetrics {
		return
	}
	attrs := metric.WithAttributes(config.MetricAttributes...)
	switch eventType {
	case "connect":
		if err != nil {
			oi.connectionErrors.Add(context.Background(), 1, attrs)
		} else {
			oi.connectionCount.Add(context.Background(), 1, attrs)
		}
	case "disconnect":
		oi.connectionCount.Add(context.Background(), -1, attrs)
	}
}

package cypher

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const instrumentationName = "github.com/andreasronge/neo4j-core/src/cypher"

// QueryEvent describes one query execution for instrumentation: the rendered
// text, the merged parameters, the caller-supplied context tag and a unique
// id per execution.
type QueryEvent struct {
	QueryID string
	Context string
	Cypher  string
	Params  map[string]interface{}
}

// Instrumenter observes query execution. It is invoked just before the
// session is contacted and returns a completion callback receiving the
// execution error, nil on success. An Instrumenter is an injectable
// observer, never a hard dependency: queries without one skip the hook
// entirely.
type Instrumenter func(ctx context.Context, ev QueryEvent) func(err error)

// OTelInstrumenter records each execution as an OpenTelemetry span carrying
// the query text, parameter count and context tag.
func OTelInstrumenter() Instrumenter {
	tracer := otel.Tracer(instrumentationName)
	return func(ctx context.Context, ev QueryEvent) func(error) {
		_, span := tracer.Start(ctx, "cypher.query",
			trace.WithSpanKind(trace.SpanKindClient),
			trace.WithAttributes(
				attribute.String("db.system", "neo4j"),
				attribute.String("db.statement", ev.Cypher),
				attribute.String("db.query.id", ev.QueryID),
				attribute.String("db.query.context", ev.Context),
				attribute.Int("db.query.parameter_count", len(ev.Params)),
			))
		return func(err error) {
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
			}
			span.End()
		}
	}
}

// ZapInstrumenter logs each execution with its outcome through a zap logger.
func ZapInstrumenter(log *zap.Logger) Instrumenter {
	return func(_ context.Context, ev QueryEvent) func(error) {
		return func(err error) {
			fields := []zap.Field{
				zap.String("query_id", ev.QueryID),
				zap.String("context", ev.Context),
				zap.String("cypher", ev.Cypher),
				zap.Int("param_count", len(ev.Params)),
			}
			if err != nil {
				log.Error("cypher query failed", append(fields, zap.Error(err))...)
				return
			}
			log.Debug("cypher query executed", fields...)
		}
	}
}

// MultiInstrumenter fans one execution event out to several instrumenters.
func MultiInstrumenter(ins ...Instrumenter) Instrumenter {
	return func(ctx context.Context, ev QueryEvent) func(error) {
		finishers := make([]func(error), 0, len(ins))
		for _, in := range ins {
			finishers = append(finishers, in(ctx, ev))
		}
		return func(err error) {
			for _, f := range finishers {
				f(err)
			}
		}
	}
}

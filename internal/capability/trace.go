package capability

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

type spanLoggerKey struct{}

// ZerologTracer implements Tracer on top of a zerolog logger. Spans are
// logged at debug level so per-message tracing stays quiet in production;
// a span that finishes with an error logs at error level.
type ZerologTracer struct {
	logger zerolog.Logger
}

// NewZerologTracer returns a tracer writing through logger.
func NewZerologTracer(logger zerolog.Logger) *ZerologTracer {
	return &ZerologTracer{logger: logger}
}

// StartSpan opens a named span and returns a context carrying the span
// logger plus a finish function to be called exactly once.
func (t *ZerologTracer) StartSpan(ctx context.Context, name string, attrs map[string]any) (context.Context, func(err error)) {
	logCtx := t.logger.With().Str("span", name)
	for k, v := range attrs {
		logCtx = logCtx.Interface(k, v)
	}
	spanLogger := logCtx.Logger()
	ctx = context.WithValue(ctx, spanLoggerKey{}, spanLogger)

	start := time.Now()
	spanLogger.Debug().Msg("span start")

	finish := func(err error) {
		evt := spanLogger.Debug()
		if err != nil {
			evt = spanLogger.Error().Err(err)
		}
		evt.Dur("duration", time.Since(start)).Msg("span end")
	}
	return ctx, finish
}

// Event logs a named event against the span in ctx, or against the base
// logger when no span is open.
func (t *ZerologTracer) Event(ctx context.Context, name string, attrs map[string]any) {
	logger := t.logger
	if spanLogger, ok := ctx.Value(spanLoggerKey{}).(zerolog.Logger); ok {
		logger = spanLogger
	}
	evt := logger.Debug().Str("event", name)
	for k, v := range attrs {
		evt = evt.Interface(k, v)
	}
	evt.Msg("trace event")
}

var _ Tracer = (*ZerologTracer)(nil)

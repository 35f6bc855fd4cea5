package observability

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	attrTraceID = "trace_id"
	attrSpanID  = "span_id"
	attrService = "service"
	attrVersion = "version"
	attrEnv     = "env"
	attrMode    = "mode"
)

// ErrInvalidLogLevel is returned by ParseLevel for an unknown level name.
var ErrInvalidLogLevel = errors.New("invalid log level")

type runAttrsKey struct{}

// WithRunAttrs returns a context whose log records carry attrs, such as the
// tree name and seed of a verify or bench run. Attributes accumulate across
// nested calls.
func WithRunAttrs(ctx context.Context, attrs ...slog.Attr) context.Context {
	prev, _ := ctx.Value(runAttrsKey{}).([]slog.Attr)

	merged := make([]slog.Attr, 0, len(prev)+len(attrs))
	merged = append(merged, prev...)
	merged = append(merged, attrs...)

	return context.WithValue(ctx, runAttrsKey{}, merged)
}

// TracingHandler is an [slog.Handler] that ties log records to the run they
// describe. The process identity (service, version, env, mode) is attached
// once at construction so it stays at the top level under groups. Each record
// also gets the active trace_id and span_id and the run attributes stored with
// WithRunAttrs. Records at error level or above are copied onto the active
// span as an event and mark the span failed, so an exported trace shows where
// a run diverged.
type TracingHandler struct {
	inner slog.Handler
}

// NewTracingHandler wraps inner with the identity described by cfg.
func NewTracingHandler(inner slog.Handler, cfg Config) *TracingHandler {
	identity := []slog.Attr{
		slog.String(attrService, cfg.ServiceName),
		slog.String(attrMode, string(cfg.Mode)),
	}

	if cfg.ServiceVersion != "" {
		identity = append(identity, slog.String(attrVersion, cfg.ServiceVersion))
	}

	if cfg.Environment != "" {
		identity = append(identity, slog.String(attrEnv, cfg.Environment))
	}

	return &TracingHandler{inner: inner.WithAttrs(identity)}
}

// Enabled delegates to the inner handler.
func (th *TracingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return th.inner.Enabled(ctx, level)
}

// Handle decorates record from ctx and passes it on.
func (th *TracingHandler) Handle(ctx context.Context, record slog.Record) error {
	span := trace.SpanFromContext(ctx)

	if record.Level >= slog.LevelError && span.IsRecording() {
		recordOnSpan(span, record)
	}

	if runAttrs, ok := ctx.Value(runAttrsKey{}).([]slog.Attr); ok {
		record.AddAttrs(runAttrs...)
	}

	if sc := span.SpanContext(); sc.IsValid() {
		record.AddAttrs(
			slog.String(attrTraceID, sc.TraceID().String()),
			slog.String(attrSpanID, sc.SpanID().String()),
		)
	}

	err := th.inner.Handle(ctx, record)
	if err != nil {
		return fmt.Errorf("tracing handler: %w", err)
	}

	return nil
}

// WithAttrs returns a handler whose inner handler carries attrs.
func (th *TracingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &TracingHandler{inner: th.inner.WithAttrs(attrs)}
}

// WithGroup returns a handler whose inner handler opens group name.
func (th *TracingHandler) WithGroup(name string) slog.Handler {
	return &TracingHandler{inner: th.inner.WithGroup(name)}
}

func recordOnSpan(span trace.Span, record slog.Record) {
	attrs := make([]attribute.KeyValue, 0, record.NumAttrs())

	record.Attrs(func(a slog.Attr) bool {
		attrs = append(attrs, spanAttr(a))

		return true
	})

	span.AddEvent(record.Message, trace.WithAttributes(attrs...))
	span.SetStatus(codes.Error, record.Message)
}

func spanAttr(a slog.Attr) attribute.KeyValue {
	value := a.Value.Resolve()

	switch value.Kind() {
	case slog.KindInt64:
		return attribute.Int64(a.Key, value.Int64())
	case slog.KindFloat64:
		return attribute.Float64(a.Key, value.Float64())
	case slog.KindBool:
		return attribute.Bool(a.Key, value.Bool())
	default:
		return attribute.String(a.Key, value.String())
	}
}

// NewLogger builds the process logger described by cfg: a text or JSON
// handler writing to cfg.LogOutput, wrapped in a TracingHandler.
func NewLogger(cfg Config) *slog.Logger {
	var out io.Writer = os.Stderr
	if cfg.LogOutput != nil {
		out = cfg.LogOutput
	}

	handlerOpts := &slog.HandlerOptions{Level: cfg.LogLevel}

	var inner slog.Handler
	if cfg.LogJSON {
		inner = slog.NewJSONHandler(out, handlerOpts)
	} else {
		inner = slog.NewTextHandler(out, handlerOpts)
	}

	return slog.New(NewTracingHandler(inner, cfg))
}

// ParseLevel converts a level name such as "debug" or "WARN" to a slog.Level.
func ParseLevel(name string) (slog.Level, error) {
	var level slog.Level

	err := level.UnmarshalText([]byte(name))
	if err != nil {
		return slog.LevelInfo, fmt.Errorf("%w: %q", ErrInvalidLogLevel, name)
	}

	return level, nil
}

// Package observability provides structured logging, tracing and metrics for
// the ostree command line tools. Metrics are collected by an OpenTelemetry
// meter provider and exposed through a Prometheus registry.
package observability

import (
	"io"
	"log/slog"
	"time"
)

// AppMode identifies the command a process was launched for.
type AppMode string

const (
	// ModeVerify is the randomized differential check.
	ModeVerify AppMode = "verify"
	// ModeBench is the throughput benchmark.
	ModeBench AppMode = "bench"
	// ModeShow renders a tree built from arguments.
	ModeShow AppMode = "show"
)

const (
	// defaultServiceName is the default OTel service name.
	defaultServiceName = "ostree"

	// defaultShutdownTimeout bounds the final flush to the collector.
	defaultShutdownTimeout = 5 * time.Second
)

// Config holds all observability configuration.
type Config struct {
	// ServiceName is the OTel resource service name.
	ServiceName string

	// ServiceVersion is the semantic version of the running binary.
	ServiceVersion string

	// Environment is the deployment environment (e.g. "ci", "dev").
	Environment string

	// Mode identifies how the binary was launched.
	Mode AppMode

	// LogLevel controls the minimum slog severity.
	LogLevel slog.Level

	// LogJSON enables JSON-formatted log output.
	LogJSON bool

	// LogOutput receives log records. Nil means os.Stderr.
	LogOutput io.Writer

	// OTLPEndpoint is the OTLP gRPC collector address (e.g. "localhost:4317").
	// Empty keeps spans in-process and metrics in the Prometheus registry only.
	OTLPEndpoint string

	// OTLPHeaders are additional gRPC metadata headers for the OTLP exporters.
	OTLPHeaders map[string]string

	// OTLPInsecure disables TLS for the OTLP gRPC connection.
	OTLPInsecure bool

	// ShutdownTimeout is the maximum time Shutdown waits for the final flush.
	ShutdownTimeout time.Duration
}

// DefaultConfig returns a Config with sensible defaults for zero-config startup.
func DefaultConfig() Config {
	return Config{
		ServiceName:     defaultServiceName,
		Mode:            ModeVerify,
		LogLevel:        slog.LevelInfo,
		ShutdownTimeout: defaultShutdownTimeout,
	}
}

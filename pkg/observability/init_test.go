package observability_test

import (
	"bytes"
	"context"
	"io"
	"net"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	colmetricpb "go.opentelemetry.io/proto/otlp/collector/metrics/v1"
	coltracepb "go.opentelemetry.io/proto/otlp/collector/trace/v1"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"

	"github.com/Sumatoshi-tech/ostree/pkg/observability"
)

const (
	testTokenHeader = "x-ostree-token"
	testToken       = "s3cret"
	testCounterName = "ostree.test.exported"
)

// received records what an in-process OTLP collector was sent.
type received struct {
	mu      sync.Mutex
	spans   []string
	metrics []string
	tokens  []string
}

func (rec *received) addTokens(ctx context.Context) {
	rec.tokens = append(rec.tokens, metadata.ValueFromIncomingContext(ctx, testTokenHeader)...)
}

type traceCollector struct {
	coltracepb.UnimplementedTraceServiceServer

	rec *received
}

func (tc *traceCollector) Export(
	ctx context.Context, req *coltracepb.ExportTraceServiceRequest,
) (*coltracepb.ExportTraceServiceResponse, error) {
	tc.rec.mu.Lock()
	defer tc.rec.mu.Unlock()

	tc.rec.addTokens(ctx)

	for _, rs := range req.GetResourceSpans() {
		for _, ss := range rs.GetScopeSpans() {
			for _, span := range ss.GetSpans() {
				tc.rec.spans = append(tc.rec.spans, span.GetName())
			}
		}
	}

	return &coltracepb.ExportTraceServiceResponse{}, nil
}

type metricCollector struct {
	colmetricpb.UnimplementedMetricsServiceServer

	rec *received
}

func (mc *metricCollector) Export(
	ctx context.Context, req *colmetricpb.ExportMetricsServiceRequest,
) (*colmetricpb.ExportMetricsServiceResponse, error) {
	mc.rec.mu.Lock()
	defer mc.rec.mu.Unlock()

	mc.rec.addTokens(ctx)

	for _, rm := range req.GetResourceMetrics() {
		for _, sm := range rm.GetScopeMetrics() {
			for _, m := range sm.GetMetrics() {
				mc.rec.metrics = append(mc.rec.metrics, m.GetName())
			}
		}
	}

	return &colmetricpb.ExportMetricsServiceResponse{}, nil
}

// startCollector serves the OTLP trace and metrics services on a loopback port.
func startCollector(t *testing.T) (string, *received) {
	t.Helper()

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	rec := &received{}
	srv := grpc.NewServer()
	coltracepb.RegisterTraceServiceServer(srv, &traceCollector{rec: rec})
	colmetricpb.RegisterMetricsServiceServer(srv, &metricCollector{rec: rec})

	go func() { _ = srv.Serve(lis) }()

	t.Cleanup(srv.Stop)

	return lis.Addr().String(), rec
}

func TestInit_Providers(t *testing.T) {
	t.Parallel()

	cfg := observability.DefaultConfig()
	cfg.ServiceVersion = "1.2.3"
	cfg.Environment = "test"

	providers, err := observability.Init(cfg)
	require.NoError(t, err)

	assert.NotNil(t, providers.Tracer)
	assert.NotNil(t, providers.Meter)
	assert.NotNil(t, providers.Registry)
	assert.NotNil(t, providers.Logger)

	err = providers.Shutdown(context.Background())
	assert.NoError(t, err)
}

func TestInit_SpanCorrelatesLogs(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	cfg := observability.DefaultConfig()
	cfg.LogJSON = true
	cfg.LogOutput = &buf

	providers, err := observability.Init(cfg)
	require.NoError(t, err)

	t.Cleanup(func() { require.NoError(t, providers.Shutdown(context.Background())) })

	ctx, span := providers.Tracer.Start(context.Background(), "verify")
	providers.Logger.InfoContext(ctx, "inside span")
	span.End()

	record := decodeRecord(t, &buf)
	assert.Equal(t, span.SpanContext().TraceID().String(), record["trace_id"])
	assert.Equal(t, span.SpanContext().SpanID().String(), record["span_id"])
}

func TestInit_ExportsToOTLPEndpoint(t *testing.T) {
	t.Parallel()

	addr, rec := startCollector(t)

	cfg := observability.DefaultConfig()
	cfg.OTLPEndpoint = addr
	cfg.OTLPInsecure = true
	cfg.OTLPHeaders = map[string]string{testTokenHeader: testToken}
	cfg.LogOutput = io.Discard

	providers, err := observability.Init(cfg)
	require.NoError(t, err)

	ctx := context.Background()

	counter, err := providers.Meter.Int64Counter(testCounterName)
	require.NoError(t, err)
	counter.Add(ctx, 3)

	_, span := providers.Tracer.Start(ctx, "bench")
	span.End()

	// The Prometheus registry keeps working alongside the OTLP reader.
	samples, err := observability.Gather(providers.Registry, "ostree_test_exported")
	require.NoError(t, err)
	require.NotEmpty(t, samples)
	assert.InDelta(t, 3, samples[0].Value, 0)

	// Shutdown flushes the batched span and the final metric collection.
	require.NoError(t, providers.Shutdown(ctx))

	rec.mu.Lock()
	defer rec.mu.Unlock()

	assert.Contains(t, rec.spans, "bench")
	assert.Contains(t, rec.metrics, testCounterName)
	assert.Contains(t, rec.tokens, testToken)
}

func TestInit_WithoutEndpointExportsNothing(t *testing.T) {
	t.Parallel()

	_, rec := startCollector(t)

	cfg := observability.DefaultConfig()
	cfg.LogOutput = io.Discard

	providers, err := observability.Init(cfg)
	require.NoError(t, err)

	_, span := providers.Tracer.Start(context.Background(), "show")
	assert.True(t, span.SpanContext().IsValid())
	span.End()

	require.NoError(t, providers.Shutdown(context.Background()))

	rec.mu.Lock()
	defer rec.mu.Unlock()

	assert.Empty(t, rec.spans)
	assert.Empty(t, rec.metrics)
}

func TestParseOTLPHeaders(t *testing.T) {
	t.Parallel()

	tests := []struct {
		want  map[string]string
		name  string
		input string
	}{
		{name: "empty", input: "", want: nil},
		{name: "blank", input: "  ", want: nil},
		{name: "single", input: "api-key=abc", want: map[string]string{"api-key": "abc"}},
		{
			name:  "multiple with spaces",
			input: " api-key = abc , tenant=ostree",
			want:  map[string]string{"api-key": "abc", "tenant": "ostree"},
		},
		{name: "skips malformed", input: "novalue,=orphan,k=v", want: map[string]string{"k": "v"}},
		{name: "only malformed", input: "novalue", want: nil},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tc.want, observability.ParseOTLPHeaders(tc.input))
		})
	}
}

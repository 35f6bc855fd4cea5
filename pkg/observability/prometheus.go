package observability

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	promexporter "go.opentelemetry.io/otel/exporters/prometheus"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
)

// scopeLabelPrefix marks the instrumentation scope labels added by the
// exporter; Gather drops them.
const scopeLabelPrefix = "otel_scope_"

// Sample is one flattened Prometheus series value.
type Sample struct {
	Name   string            `json:"name"             yaml:"name"`
	Labels map[string]string `json:"labels,omitempty" yaml:"labels,omitempty"`
	Value  float64           `json:"value"            yaml:"value"`
}

// NewPrometheusMeterProvider creates a MeterProvider whose instruments are
// exported into a fresh Prometheus registry and to any extra readers. Each
// call creates an independent registry so several providers never conflict.
func NewPrometheusMeterProvider(
	res *resource.Resource, readers ...sdkmetric.Reader,
) (*sdkmetric.MeterProvider, *prometheus.Registry, error) {
	registry := prometheus.NewRegistry()

	exporter, err := promexporter.New(
		promexporter.WithRegisterer(registry),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("create prometheus exporter: %w", err)
	}

	opts := []sdkmetric.Option{sdkmetric.WithReader(exporter)}
	for _, reader := range readers {
		opts = append(opts, sdkmetric.WithReader(reader))
	}

	if res != nil {
		opts = append(opts, sdkmetric.WithResource(res))
	}

	return sdkmetric.NewMeterProvider(opts...), registry, nil
}

// Gather collects every family from gatherer whose name starts with prefix
// and flattens it into samples sorted by name and labels. Histograms are
// reported as their _count and _sum series.
func Gather(gatherer prometheus.Gatherer, prefix string) ([]Sample, error) {
	families, err := gatherer.Gather()
	if err != nil {
		return nil, fmt.Errorf("gather metrics: %w", err)
	}

	var samples []Sample

	for _, family := range families {
		name := family.GetName()
		if !strings.HasPrefix(name, prefix) {
			continue
		}

		for _, m := range family.GetMetric() {
			labels := sampleLabels(m.GetLabel())

			switch family.GetType() {
			case dto.MetricType_COUNTER:
				samples = append(samples, Sample{Name: name, Labels: labels, Value: m.GetCounter().GetValue()})
			case dto.MetricType_GAUGE:
				samples = append(samples, Sample{Name: name, Labels: labels, Value: m.GetGauge().GetValue()})
			case dto.MetricType_HISTOGRAM:
				hist := m.GetHistogram()
				samples = append(samples,
					Sample{Name: name + "_count", Labels: labels, Value: float64(hist.GetSampleCount())},
					Sample{Name: name + "_sum", Labels: labels, Value: hist.GetSampleSum()},
				)
			default:
				samples = append(samples, Sample{Name: name, Labels: labels, Value: m.GetUntyped().GetValue()})
			}
		}
	}

	slices.SortStableFunc(samples, func(a, b Sample) int {
		return cmp.Or(
			cmp.Compare(a.Name, b.Name),
			cmp.Compare(a.LabelString(), b.LabelString()),
		)
	})

	return samples, nil
}

// LabelString renders the labels as k=v pairs sorted by key.
func (s Sample) LabelString() string {
	keys := make([]string, 0, len(s.Labels))
	for k := range s.Labels {
		keys = append(keys, k)
	}

	slices.Sort(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+s.Labels[k])
	}

	return strings.Join(parts, ",")
}

func sampleLabels(pairs []*dto.LabelPair) map[string]string {
	var labels map[string]string

	for _, pair := range pairs {
		if strings.HasPrefix(pair.GetName(), scopeLabelPrefix) {
			continue
		}

		if labels == nil {
			labels = make(map[string]string, len(pairs))
		}

		labels[pair.GetName()] = pair.GetValue()
	}

	return labels
}

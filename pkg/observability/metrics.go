package observability

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	promexporter "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// MetricsConfig holds metrics configuration.
type MetricsConfig struct {
	ServiceName string
}

// Metrics bundles the meter provider with the scrape handler backed by the
// same registry.
type Metrics struct {
	Provider *sdkmetric.MeterProvider
	Handler  http.Handler
}

// Meter returns the service meter.
func (m Metrics) Meter(cfg MetricsConfig) metric.Meter {
	return m.Provider.Meter(cfg.ServiceName)
}

// InitMetrics wires an OpenTelemetry meter provider to a private Prometheus
// registry, so tests can create several without duplicate-registration panics.
func InitMetrics(_ MetricsConfig) (Metrics, error) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	exporter, err := promexporter.New(promexporter.WithRegisterer(reg))
	if err != nil {
		return Metrics{}, fmt.Errorf("prometheus exporter: %w", err)
	}

	return Metrics{
		Provider: sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter)),
		Handler:  promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
	}, nil
}

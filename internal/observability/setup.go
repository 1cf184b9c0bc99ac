package observability

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	promreg "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"

	"github.com/ncecere/attendance/backend/internal/config"
)

const namespace = "attendance"

type Provider struct {
	tracerProvider *sdktrace.TracerProvider
	meterProvider  *metric.MeterProvider
	promHandler    http.Handler
	shutdownFuncs  []func(context.Context) error

	httpRequestCounter *promreg.CounterVec
	httpRequestLatency *promreg.HistogramVec
	checkInCounter     *promreg.CounterVec
	geocodeCounter     *promreg.CounterVec
	autoClosedCounter  promreg.Counter
	reportRowsCounter  promreg.Counter
}

// Setup wires OTLP tracing and the Prometheus registry. It returns nil when both are disabled;
// every Provider method is safe on a nil receiver.
func Setup(ctx context.Context, cfg config.ObservabilityConfig) (*Provider, error) {
	if !cfg.EnableOTLP && !cfg.EnableMetrics {
		return nil, nil
	}

	provider := &Provider{}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName("attendance"),
		),
	)
	if err != nil {
		return nil, err
	}

	if cfg.EnableOTLP {
		exporter, err := otlptrace.New(ctx, otlptracegrpc.NewClient(otlpOptions(cfg.OTLPEndpoint)...))
		if err != nil {
			return nil, err
		}
		tp := sdktrace.NewTracerProvider(
			sdktrace.WithBatcher(exporter),
			sdktrace.WithResource(res),
		)
		otel.SetTracerProvider(tp)
		provider.tracerProvider = tp
		provider.shutdownFuncs = append(provider.shutdownFuncs, tp.Shutdown)
	}

	if cfg.EnableMetrics {
		registry := promreg.NewRegistry()
		if err := provider.registerMetrics(registry); err != nil {
			return nil, err
		}
		promExporter, err := prometheus.New(prometheus.WithRegisterer(registry))
		if err != nil {
			return nil, err
		}
		mp := metric.NewMeterProvider(
			metric.WithReader(promExporter),
			metric.WithResource(res),
		)
		otel.SetMeterProvider(mp)
		provider.meterProvider = mp
		provider.promHandler = promhttp.HandlerFor(registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
		provider.shutdownFuncs = append(provider.shutdownFuncs, mp.Shutdown)
	}

	return provider, nil
}

func otlpOptions(rawEndpoint string) []otlptracegrpc.Option {
	endpoint := strings.TrimSpace(rawEndpoint)
	if endpoint == "" {
		endpoint = "localhost:4317"
	}
	var opts []otlptracegrpc.Option
	switch {
	case strings.HasPrefix(endpoint, "https://"):
		endpoint = strings.TrimPrefix(endpoint, "https://")
	default:
		endpoint = strings.TrimPrefix(endpoint, "http://")
		opts = append(opts, otlptracegrpc.WithInsecure())
	}
	return append(opts, otlptracegrpc.WithEndpoint(endpoint))
}

func (p *Provider) registerMetrics(registry *promreg.Registry) error {
	p.httpRequestCounter = promreg.NewCounterVec(
		promreg.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests processed.",
		},
		[]string{"method", "route", "status"},
	)
	p.httpRequestLatency = promreg.NewHistogramVec(
		promreg.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.2, 0.5, 1, 2, 5},
		},
		[]string{"method", "route", "status"},
	)
	p.checkInCounter = promreg.NewCounterVec(
		promreg.CounterOpts{
			Namespace: namespace,
			Name:      "checkins_total",
			Help:      "Check-ins and check-outs recorded, by kind and attendance status.",
		},
		[]string{"kind", "status"},
	)
	p.geocodeCounter = promreg.NewCounterVec(
		promreg.CounterOpts{
			Namespace: namespace,
			Name:      "geocode_lookups_total",
			Help:      "Reverse geocoding lookups by result (hit, miss, error).",
		},
		[]string{"result"},
	)
	p.autoClosedCounter = promreg.NewCounter(promreg.CounterOpts{
		Namespace: namespace,
		Name:      "auto_closed_records_total",
		Help:      "Attendance records closed by the auto checkout job.",
	})
	p.reportRowsCounter = promreg.NewCounter(promreg.CounterOpts{
		Namespace: namespace,
		Name:      "report_rows_exported_total",
		Help:      "Rows written to attendance report exports.",
	})

	for _, c := range []promreg.Collector{
		p.httpRequestCounter,
		p.httpRequestLatency,
		p.checkInCounter,
		p.geocodeCounter,
		p.autoClosedCounter,
		p.reportRowsCounter,
	} {
		if err := registry.Register(c); err != nil {
			return err
		}
	}
	return nil
}

func (p *Provider) PrometheusHandler() http.Handler {
	if p == nil || p.promHandler == nil {
		return nil
	}
	return p.promHandler
}

func (p *Provider) Shutdown(ctx context.Context) error {
	if p == nil {
		return nil
	}
	for _, fn := range p.shutdownFuncs {
		if err := fn(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (p *Provider) TracerProvider() *sdktrace.TracerProvider {
	if p == nil {
		return nil
	}
	return p.tracerProvider
}

func (p *Provider) RecordHTTPRequest(_ context.Context, method, route string, status int, duration time.Duration) {
	if p == nil {
		return
	}
	statusLabel := strconv.Itoa(status)
	if p.httpRequestCounter != nil {
		p.httpRequestCounter.WithLabelValues(method, route, statusLabel).Inc()
	}
	if p.httpRequestLatency != nil {
		p.httpRequestLatency.WithLabelValues(method, route, statusLabel).Observe(duration.Seconds())
	}
}

// RecordCheckIn counts a check-in or check-out; kind is "check_in" or "check_out".
func (p *Provider) RecordCheckIn(kind, status string) {
	if p == nil || p.checkInCounter == nil {
		return
	}
	p.checkInCounter.WithLabelValues(kind, status).Inc()
}

func (p *Provider) RecordGeocode(result string) {
	if p == nil || p.geocodeCounter == nil {
		return
	}
	p.geocodeCounter.WithLabelValues(result).Inc()
}

func (p *Provider) RecordAutoClosed(n int) {
	if p == nil || p.autoClosedCounter == nil || n <= 0 {
		return
	}
	p.autoClosedCounter.Add(float64(n))
}

func (p *Provider) RecordReportRows(n int) {
	if p == nil || p.reportRowsCounter == nil || n <= 0 {
		return
	}
	p.reportRowsCounter.Add(float64(n))
}

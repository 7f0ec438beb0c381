package observability

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.34.0"
)

const (
	defaultServiceName    = "incognish"
	defaultServiceVersion = "dev"
	metricExportInterval  = 10 * time.Second
)

// OpenTelemetryConfig mirrors config.ObservabilityConfig.
type OpenTelemetryConfig struct {
	Enabled           bool
	OTLPEndpoint      string
	OTLPTraceHeaders  map[string]string
	OTLPMetricHeaders map[string]string
	ServiceName       string
	ServiceVer        string
	Environment       string
	SamplingRatio     float64
	MetricsConsole    bool
}

func (cfg OpenTelemetryConfig) withDefaults() OpenTelemetryConfig {
	cfg.ServiceName = strings.TrimSpace(cfg.ServiceName)
	if cfg.ServiceName == "" {
		cfg.ServiceName = defaultServiceName
	}
	cfg.ServiceVer = strings.TrimSpace(cfg.ServiceVer)
	if cfg.ServiceVer == "" {
		cfg.ServiceVer = defaultServiceVersion
	}
	cfg.Environment = strings.ToLower(strings.TrimSpace(cfg.Environment))
	if cfg.Environment == "" {
		cfg.Environment = "local"
	}
	return cfg
}

// resourceAttributes identifies the process and the instrumentation scope
// used for run and broker spans.
func resourceAttributes(cfg OpenTelemetryConfig) []attribute.KeyValue {
	return []attribute.KeyValue{
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(cfg.ServiceVer),
		semconv.DeploymentEnvironmentName(cfg.Environment),
		attribute.String("incognish.run_tracer", runTracerName),
	}
}

// SetupOpenTelemetry installs global trace and meter providers when enabled
// and returns a shutdown func that flushes them in reverse order.
func SetupOpenTelemetry(ctx context.Context, log *slog.Logger, cfg OpenTelemetryConfig) (func(context.Context) error, error) {
	if !cfg.Enabled {
		return func(context.Context) error { return nil }, nil
	}
	cfg = cfg.withDefaults()

	res, err := resource.New(ctx,
		resource.WithFromEnv(),
		resource.WithProcess(),
		resource.WithTelemetrySDK(),
		resource.WithAttributes(resourceAttributes(cfg)...),
	)
	if err != nil {
		return nil, fmt.Errorf("create otel resource: %w", err)
	}

	var shutdowns []func(context.Context) error
	shutdown := func(shutdownCtx context.Context) error {
		var errs []error
		for i := len(shutdowns) - 1; i >= 0; i-- {
			errs = append(errs, shutdowns[i](shutdownCtx))
		}
		return errors.Join(errs...)
	}

	tracerProvider, err := newTracerProvider(ctx, cfg, res)
	if err != nil {
		return nil, err
	}
	if tracerProvider != nil {
		otel.SetTracerProvider(tracerProvider)
		shutdowns = append(shutdowns, tracerProvider.Shutdown)
	}

	meterProvider, err := newMeterProvider(ctx, cfg, res)
	if err != nil {
		_ = shutdown(ctx)
		return nil, err
	}
	if meterProvider != nil {
		otel.SetMeterProvider(meterProvider)
		shutdowns = append(shutdowns, meterProvider.Shutdown)
	}

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	http.DefaultTransport = otelhttp.NewTransport(http.DefaultTransport)
	http.DefaultClient.Transport = http.DefaultTransport

	log.Info("OpenTelemetry enabled",
		"service", cfg.ServiceName,
		"version", cfg.ServiceVer,
		"environment", cfg.Environment,
		"traces_enabled", tracerProvider != nil,
		"metrics_enabled", meterProvider != nil,
	)
	return shutdown, nil
}

// newTracerProvider returns nil when no OTLP trace destination is configured.
func newTracerProvider(ctx context.Context, cfg OpenTelemetryConfig, res *resource.Resource) (*sdktrace.TracerProvider, error) {
	if cfg.OTLPEndpoint == "" && len(cfg.OTLPTraceHeaders) == 0 {
		return nil, nil
	}
	var options []otlptracehttp.Option
	if cfg.OTLPEndpoint != "" {
		options = append(options, otlptracehttp.WithEndpointURL(cfg.OTLPEndpoint))
	}
	if len(cfg.OTLPTraceHeaders) > 0 {
		options = append(options, otlptracehttp.WithHeaders(cfg.OTLPTraceHeaders))
	}
	exporter, err := otlptracehttp.New(ctx, options...)
	if err != nil {
		return nil, fmt.Errorf("create otlp trace exporter: %w", err)
	}
	return sdktrace.NewTracerProvider(
		sdktrace.WithSampler(configuredSampler(cfg.SamplingRatio)),
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	), nil
}

// newMeterProvider returns nil when neither OTLP nor console metrics are on.
func newMeterProvider(ctx context.Context, cfg OpenTelemetryConfig, res *resource.Resource) (*sdkmetric.MeterProvider, error) {
	options := []sdkmetric.Option{sdkmetric.WithResource(res)}
	readers := 0
	if cfg.OTLPEndpoint != "" {
		metricOptions := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpointURL(cfg.OTLPEndpoint)}
		if len(cfg.OTLPMetricHeaders) > 0 {
			metricOptions = append(metricOptions, otlpmetrichttp.WithHeaders(cfg.OTLPMetricHeaders))
		}
		exporter, err := otlpmetrichttp.New(ctx, metricOptions...)
		if err != nil {
			return nil, fmt.Errorf("create otlp metric exporter: %w", err)
		}
		options = append(options, sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(metricExportInterval))))
		readers++
	}
	if cfg.MetricsConsole {
		exporter, err := stdoutmetric.New(stdoutmetric.WithPrettyPrint())
		if err != nil {
			return nil, fmt.Errorf("create stdout metric exporter: %w", err)
		}
		options = append(options, sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(metricExportInterval))))
		readers++
	}
	if readers == 0 {
		return nil, nil
	}
	return sdkmetric.NewMeterProvider(options...), nil
}

// HTTPClient returns a client whose requests carry trace context.
func HTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout:   timeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}
}

func configuredSampler(ratio float64) sdktrace.Sampler {
	switch {
	case ratio >= 1:
		return sdktrace.ParentBased(sdktrace.AlwaysSample())
	case ratio <= 0:
		return sdktrace.ParentBased(sdktrace.NeverSample())
	default:
		return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))
	}
}

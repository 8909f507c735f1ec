// Package otel provides OpenTelemetry tracer provider initialization and management.
package otel

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/mrzor/tasktree/internal/config"

	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
)

// logProxyConfig logs the proxy settings the OTLP/HTTP client will honor.
func logProxyConfig(endpoint string) {
	httpProxy := os.Getenv("HTTP_PROXY")
	if httpProxy == "" {
		httpProxy = os.Getenv("http_proxy")
	}
	httpsProxy := os.Getenv("HTTPS_PROXY")
	if httpsProxy == "" {
		httpsProxy = os.Getenv("https_proxy")
	}

	if httpProxy != "" || httpsProxy != "" {
		log.Printf("Proxy configuration: HTTP_PROXY=%q HTTPS_PROXY=%q", httpProxy, httpsProxy)
	} else {
		log.Printf("No proxy configured (HTTP_PROXY/HTTPS_PROXY not set)")
	}

	log.Printf("Using OTLP/HTTP endpoint %s (verified on first export)", endpoint)
}

// InitProvider initializes the OpenTelemetry tracer provider exporting to the
// configured OTLP endpoint. A non-zero traceID is used for every span that
// starts a new trace.
//
// Note: Uses OTLP/HTTP protocol. The HTTP client automatically honors HTTP_PROXY,
// HTTPS_PROXY, and NO_PROXY environment variables through Go's standard net/http transport.
func InitProvider(cfg *config.OTELConfig, traceID trace.TraceID) (*sdktrace.TracerProvider, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	endpoint, err := cfg.Endpoint()
	if err != nil {
		return nil, err
	}

	log.Printf("OTEL Configuration:")
	log.Printf("  Service Name: %s", cfg.ServiceName)
	log.Printf("  Endpoint: %s", endpoint)
	log.Printf("  Timeout: %s", cfg.Timeout())
	for _, attr := range cfg.ResourceAttributes() {
		log.Printf("  Resource Attribute: %s=%s", attr.Key, attr.Value.Emit())
	}
	if len(cfg.Headers) > 0 {
		// Header values often carry credentials
		log.Printf("  Headers: %d set", len(cfg.Headers))
	}
	if traceID.IsValid() {
		log.Printf("  Trace ID: %s", traceID)
	}

	logProxyConfig(endpoint.String())

	exporter, err := otlptracehttp.New(ctx, exporterOptions(cfg, endpoint)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP trace exporter: %w", err)
	}

	res, err := NewResource(ctx, cfg)
	if err != nil {
		return nil, err
	}

	return NewTracerProvider(exporter, res, traceID), nil
}

func exporterOptions(cfg *config.OTELConfig, endpoint config.OTLPEndpoint) []otlptracehttp.Option {
	opts := []otlptracehttp.Option{
		otlptracehttp.WithEndpoint(endpoint.Host),
		otlptracehttp.WithTimeout(cfg.Timeout()),
	}
	if endpoint.URLPath != "" {
		opts = append(opts, otlptracehttp.WithURLPath(endpoint.URLPath))
	}
	if endpoint.Insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	if len(cfg.Headers) > 0 {
		opts = append(opts, otlptracehttp.WithHeaders(cfg.Headers))
	}
	return opts
}

// NewResource builds the service resource, including OTEL_RESOURCE_ATTRIBUTES.
func NewResource(ctx context.Context, cfg *config.OTELConfig) (*resource.Resource, error) {
	resourceAttrs := []resource.Option{
		resource.WithAttributes(semconv.ServiceName(cfg.ServiceName)),
	}

	customAttrs := cfg.ResourceAttributes()
	if len(customAttrs) > 0 {
		resourceAttrs = append(resourceAttrs, resource.WithAttributes(customAttrs...))
	}

	res, err := resource.New(ctx, resourceAttrs...)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}
	return res, nil
}

// NewTracerProvider creates a tracer provider with a batch span processor in
// front of exporter.
func NewTracerProvider(exporter sdktrace.SpanExporter, res *resource.Resource, traceID trace.TraceID) *sdktrace.TracerProvider {
	opts := []sdktrace.TracerProviderOption{
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	}
	if traceID.IsValid() {
		opts = append(opts, sdktrace.WithIDGenerator(NewFixedTraceIDGenerator(traceID)))
	}
	return sdktrace.NewTracerProvider(opts...)
}

// ShutdownProvider gracefully shuts down the tracer provider, flushing any remaining spans.
func ShutdownProvider(tp *sdktrace.TracerProvider, ctx context.Context) error {
	if tp == nil {
		return nil
	}

	if err := tp.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown tracer provider: %w", err)
	}

	return nil
}

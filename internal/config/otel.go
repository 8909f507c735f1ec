package config

import (
	"cmp"
	"fmt"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"go.opentelemetry.io/otel/attribute"
)

const (
	defaultOTLPHost    = "localhost:4318"
	tracesURLPath      = "/v1/traces"
	defaultOTLPTimeout = 10 * time.Second
)

// OTELConfig is the span export configuration. It reads the standard OTEL_*
// variables so an existing collector setup applies unchanged.
type OTELConfig struct {
	ServiceName string `env:"OTEL_SERVICE_NAME" envDefault:"tasktree"`
	// Resource holds extra resource attributes, as key1=value1,key2=value2
	Resource         map[string]string `env:"OTEL_RESOURCE_ATTRIBUTES" envKeyValSeparator:"="`
	ExporterEndpoint string            `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	TracesEndpoint   string            `env:"OTEL_EXPORTER_OTLP_TRACES_ENDPOINT"`
	// Headers are sent with every export request, as key1=value1,key2=value2
	Headers map[string]string `env:"OTEL_EXPORTER_OTLP_HEADERS" envKeyValSeparator:"="`
	// TimeoutMillis bounds each export request
	TimeoutMillis int `env:"OTEL_EXPORTER_OTLP_TIMEOUT" envDefault:"10000"`
}

// ParseOTELConfig parses OTEL configuration from environment variables
func ParseOTELConfig() (*OTELConfig, error) {
	var cfg OTELConfig
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse OTEL config: %w", err)
	}
	return &cfg, nil
}

// OTLPEndpoint is where the OTLP/HTTP exporter sends spans.
type OTLPEndpoint struct {
	Host string
	// URLPath is empty when the exporter default applies
	URLPath  string
	Insecure bool
}

func (e OTLPEndpoint) String() string {
	scheme := "https"
	if e.Insecure {
		scheme = "http"
	}
	path := e.URLPath
	if path == "" {
		path = tracesURLPath
	}
	return scheme + "://" + e.Host + path
}

// Endpoint resolves the traces endpoint.
// Priority: OTEL_EXPORTER_OTLP_TRACES_ENDPOINT > OTEL_EXPORTER_OTLP_ENDPOINT > localhost:4318.
// A bare host:port uses plain HTTP. A URL picks the transport from its scheme;
// the generic endpoint gets /v1/traces appended to its path, the traces
// endpoint is used as given.
func (c *OTELConfig) Endpoint() (OTLPEndpoint, error) {
	raw, perSignal := c.TracesEndpoint, true
	if raw == "" {
		raw, perSignal = c.ExporterEndpoint, false
	}
	if raw == "" {
		return OTLPEndpoint{Host: defaultOTLPHost, Insecure: true}, nil
	}
	if !strings.Contains(raw, "://") {
		return OTLPEndpoint{Host: raw, Insecure: true}, nil
	}

	u, err := url.Parse(raw)
	if err != nil {
		return OTLPEndpoint{}, fmt.Errorf("invalid OTLP endpoint %q: %w", raw, err)
	}
	if u.Host == "" {
		return OTLPEndpoint{}, fmt.Errorf("invalid OTLP endpoint %q: missing host", raw)
	}

	ep := OTLPEndpoint{Host: u.Host, URLPath: u.Path}
	switch u.Scheme {
	case "http":
		ep.Insecure = true
	case "https":
	default:
		return OTLPEndpoint{}, fmt.Errorf("invalid OTLP endpoint %q: scheme must be http or https", raw)
	}
	if !perSignal {
		ep.URLPath = strings.TrimSuffix(u.Path, "/") + tracesURLPath
	}
	return ep, nil
}

// Timeout returns the export request timeout, falling back to ten seconds.
func (c *OTELConfig) Timeout() time.Duration {
	if c.TimeoutMillis <= 0 {
		return defaultOTLPTimeout
	}
	return time.Duration(c.TimeoutMillis) * time.Millisecond
}

// ResourceAttributes returns the extra resource attributes sorted by key.
// Surrounding spaces are trimmed and empty keys dropped.
func (c *OTELConfig) ResourceAttributes() []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, len(c.Resource))
	for key, value := range c.Resource {
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		attrs = append(attrs, attribute.String(key, strings.TrimSpace(value)))
	}
	slices.SortFunc(attrs, func(a, b attribute.KeyValue) int {
		return cmp.Compare(a.Key, b.Key)
	})
	return attrs
}

package observability

import (
	"strings"
	"time"
)

const (
	// EndpointStdout is a special endpoint value that outputs to stdout (for local development).
	EndpointStdout = "stdout"

	// ProtocolHTTP specifies OTLP over HTTP/protobuf.
	ProtocolHTTP = "http"

	// ProtocolGRPC specifies OTLP over gRPC.
	ProtocolGRPC = "grpc"

	// EnvironmentDevelopment is the default environment name for development mode.
	EnvironmentDevelopment = "development"
)

// BoolPtr returns a pointer to the provided bool value.
// Helpful when optional boolean configuration fields are used.
func BoolPtr(v bool) *bool {
	return &v
}

// Float64Ptr returns a pointer to the provided float64 value.
func Float64Ptr(v float64) *float64 {
	return &v
}

// Config defines the configuration for tracing and metrics export. It is read
// from the "observability" section of the nodeclient configuration.
type Config struct {
	// Enabled controls whether observability is active.
	// When false, all observability operations become no-ops.
	Enabled bool `koanf:"enabled"`

	// Service contains service identification metadata.
	Service ServiceConfig `koanf:"service"`

	// Environment indicates the deployment environment (e.g., production, staging, development).
	Environment string `koanf:"environment"`

	// Trace contains tracing-specific configuration.
	Trace TraceConfig `koanf:"trace"`

	// Metrics contains metrics-specific configuration.
	Metrics MetricsConfig `koanf:"metrics"`
}

// ServiceConfig contains service identification metadata.
type ServiceConfig struct {
	// Name identifies the service in traces and metrics.
	// This is required when observability is enabled.
	Name string `koanf:"name"`

	// Version specifies the version of the service.
	Version string `koanf:"version"`
}

// TraceConfig configures span export.
type TraceConfig struct {
	// Enabled defaults to true when observability is enabled. nil means unset.
	Enabled *bool `koanf:"enabled"`

	// Endpoint is "stdout", a host:port for gRPC, or a URL for HTTP.
	Endpoint string `koanf:"endpoint"`

	// Protocol is "http" or "grpc". Default: http.
	Protocol string `koanf:"protocol"`

	// Insecure disables TLS towards the collector.
	Insecure bool `koanf:"insecure"`

	// Headers are sent with every export (e.g., API keys).
	Headers map[string]string `koanf:"headers"`

	// Sample.Rate is the fraction of traces recorded, 0.0 to 1.0. Default: 1.0.
	Sample SampleConfig `koanf:"sample"`

	// Batch.Timeout is the maximum delay before a batch of spans is exported.
	Batch BatchConfig `koanf:"batch"`
}

// SampleConfig holds the trace sampling ratio.
type SampleConfig struct {
	Rate *float64 `koanf:"rate"`
}

// BatchConfig holds span batching settings.
type BatchConfig struct {
	Timeout time.Duration `koanf:"timeout"`
}

// MetricsConfig configures metric export.
type MetricsConfig struct {
	// Enabled defaults to true when observability is enabled. nil means unset.
	Enabled *bool `koanf:"enabled"`

	// Endpoint is "stdout", a host:port for gRPC, or a URL for HTTP.
	Endpoint string `koanf:"endpoint"`

	// Protocol defaults to the trace protocol.
	Protocol string `koanf:"protocol"`

	// Interval is the export period. Default: 10s.
	Interval time.Duration `koanf:"interval"`
}

// ApplyDefaults sets default values for any config fields that are not specified.
func (c *Config) ApplyDefaults() {
	if c.Service.Version == "" {
		c.Service.Version = "unknown"
	}
	if c.Environment == "" {
		c.Environment = EnvironmentDevelopment
	}

	if c.Trace.Endpoint == "" {
		c.Trace.Endpoint = EndpointStdout
	}
	// Only set when nil (unset). If explicitly set to false, preserve it.
	if c.Enabled && c.Trace.Enabled == nil {
		c.Trace.Enabled = BoolPtr(true)
	}
	if c.Trace.Protocol == "" {
		c.Trace.Protocol = ProtocolHTTP
	}
	if c.Trace.Sample.Rate == nil {
		c.Trace.Sample.Rate = Float64Ptr(1.0)
	}
	if c.Trace.Batch.Timeout == 0 {
		if c.Environment == EnvironmentDevelopment || c.Trace.Endpoint == EndpointStdout {
			c.Trace.Batch.Timeout = 500 * time.Millisecond
		} else {
			c.Trace.Batch.Timeout = 5 * time.Second
		}
	}

	if c.Metrics.Endpoint == "" {
		c.Metrics.Endpoint = EndpointStdout
	}
	if c.Enabled && c.Metrics.Enabled == nil {
		c.Metrics.Enabled = BoolPtr(true)
	}
	if c.Metrics.Protocol == "" {
		c.Metrics.Protocol = c.Trace.Protocol
	}
	if c.Metrics.Interval == 0 {
		c.Metrics.Interval = 10 * time.Second
	}
}

// Validate checks the configuration for common errors.
func (c *Config) Validate() error {
	if c == nil {
		return ErrNilConfig
	}
	if !c.Enabled {
		return nil
	}
	if c.Service.Name == "" {
		return ErrMissingServiceName
	}

	if c.Trace.Sample.Rate != nil {
		if rate := *c.Trace.Sample.Rate; rate < 0.0 || rate > 1.0 {
			return ErrInvalidSampleRate
		}
	}
	if err := validateEndpoint(c.Trace.Endpoint, c.Trace.Protocol); err != nil {
		return err
	}
	return validateEndpoint(c.Metrics.Endpoint, c.Metrics.Protocol)
}

// validateEndpoint checks that the endpoint format matches the protocol.
// gRPC endpoints must use "host:port" format without http:// or https:// scheme.
// HTTP endpoints must include the http:// or https:// scheme.
func validateEndpoint(endpoint, protocol string) error {
	if endpoint == EndpointStdout || endpoint == "" {
		return nil
	}
	if protocol == "" {
		protocol = ProtocolHTTP
	}

	hasScheme := strings.HasPrefix(endpoint, "http://") || strings.HasPrefix(endpoint, "https://")
	switch protocol {
	case ProtocolGRPC:
		if hasScheme {
			return ErrInvalidEndpointFormat
		}
	case ProtocolHTTP:
		if !hasScheme {
			return ErrInvalidEndpointFormat
		}
	default:
		return ErrInvalidProtocol
	}
	return nil
}

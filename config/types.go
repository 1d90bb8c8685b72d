package config

import (
	"time"

	"github.com/knadh/koanf/v2"
)

// Config represents the nodeclient configuration: the node endpoint, exchange
// tuning, transport timeouts and logging. Sections not modelled here (such as
// observability or named commands) stay reachable through Unmarshal and the
// getters on the underlying koanf instance.
type Config struct {
	Node      NodeConfig      `koanf:"node" json:"node" yaml:"node"`
	Exchange  ExchangeConfig  `koanf:"exchange" json:"exchange" yaml:"exchange"`
	Transport TransportConfig `koanf:"transport" json:"transport" yaml:"transport"`
	Log       LogConfig       `koanf:"log" json:"log" yaml:"log"`

	// k holds the underlying Koanf instance for flexible access to custom configurations
	k *koanf.Koanf `json:"-" yaml:"-"`
}

// NodeConfig identifies the node API endpoint and how requests are framed.
type NodeConfig struct {
	Host        string `koanf:"host" json:"host" yaml:"host" validate:"required,hostname_rfc1123|ip"`
	Port        int    `koanf:"port" json:"port" yaml:"port" validate:"min=1,max=65535"`
	Path        string `koanf:"path" json:"path" yaml:"path" validate:"required,startswith=/"`
	APIVersion  int    `koanf:"apiversion" json:"apiversion" yaml:"apiversion" validate:"min=1"`
	ContentType string `koanf:"contenttype" json:"contenttype" yaml:"contenttype" validate:"required"`
	Accept      string `koanf:"accept" json:"accept" yaml:"accept" validate:"required"`
	// CAFile is a PEM bundle used to verify the node. Empty selects the system roots.
	CAFile string `koanf:"cafile" json:"cafile" yaml:"cafile" validate:"omitempty,file"`
	TLS    bool   `koanf:"tls" json:"tls" yaml:"tls"`
}

// ExchangeConfig tunes retries, buffer sizes and rate limiting.
type ExchangeConfig struct {
	Retry         RetryConfig   `koanf:"retry" json:"retry" yaml:"retry"`
	ReceiveWindow int           `koanf:"receivewindow" json:"receivewindow" yaml:"receivewindow" validate:"min=1,max=1048576"`
	HeaderBudget  int           `koanf:"headerbudget" json:"headerbudget" yaml:"headerbudget" validate:"min=128"`
	MaxBodySize   int           `koanf:"maxbodysize" json:"maxbodysize" yaml:"maxbodysize" validate:"min=1"`
	Rate          RateConfig    `koanf:"rate" json:"rate" yaml:"rate"`
	Payloads      PayloadConfig `koanf:"payloads" json:"payloads" yaml:"payloads"`
}

// RetryConfig bounds retries of receive failures.
type RetryConfig struct {
	Ceiling int           `koanf:"ceiling" json:"ceiling" yaml:"ceiling" validate:"min=0,max=10"`
	Delay   time.Duration `koanf:"delay" json:"delay" yaml:"delay" validate:"min=0"`
}

// RateConfig limits how often exchanges start. A zero limit disables limiting.
type RateConfig struct {
	Limit float64 `koanf:"limit" json:"limit" yaml:"limit" validate:"min=0"`
	Burst int     `koanf:"burst" json:"burst" yaml:"burst" validate:"min=0"`
}

// PayloadConfig controls debug logging of request and response bodies.
type PayloadConfig struct {
	Log      bool `koanf:"log" json:"log" yaml:"log"`
	MaxBytes int  `koanf:"maxbytes" json:"maxbytes" yaml:"maxbytes" validate:"min=0"`
}

// TransportConfig holds socket and TLS settings.
type TransportConfig struct {
	Timeout   TimeoutConfig `koanf:"timeout" json:"timeout" yaml:"timeout"`
	KeepAlive time.Duration `koanf:"keepalive" json:"keepalive" yaml:"keepalive" validate:"min=0"`
	TLS       TLSConfig     `koanf:"tls" json:"tls" yaml:"tls"`
}

// TimeoutConfig bounds each blocking transport operation. Zero disables a timeout.
type TimeoutConfig struct {
	Dial  time.Duration `koanf:"dial" json:"dial" yaml:"dial" validate:"min=0"`
	Read  time.Duration `koanf:"read" json:"read" yaml:"read" validate:"min=0"`
	Write time.Duration `koanf:"write" json:"write" yaml:"write" validate:"min=0"`
}

// TLSConfig selects the minimum TLS protocol version.
type TLSConfig struct {
	MinVersion string `koanf:"minversion" json:"minversion" yaml:"minversion" validate:"oneof=1.2 1.3"`
}

// LogConfig holds logging preferences.
type LogConfig struct {
	Level  string `koanf:"level" json:"level" yaml:"level" validate:"oneof=debug info warn error"`
	Pretty bool   `koanf:"pretty" json:"pretty" yaml:"pretty"`
}

package exchange

import (
	"fmt"

	"github.com/gaborage/nodeclient/config"
	"github.com/gaborage/nodeclient/transport"
)

// RequestConfigFrom maps the node section of a loaded configuration to a
// RequestConfig, reading the CA bundle when one is configured.
func RequestConfigFrom(node *config.NodeConfig) (RequestConfig, error) {
	ca, err := node.CACertificate()
	if err != nil {
		return RequestConfig{}, err
	}
	return RequestConfig{
		Host:          node.Host,
		Port:          node.Port,
		Path:          node.Path,
		APIVersion:    node.APIVersion,
		ContentType:   node.ContentType,
		Accept:        node.Accept,
		CACertificate: ca,
	}, nil
}

// TransportConfigFrom maps the node and transport sections to session settings.
func TransportConfigFrom(cfg *config.Config) transport.Config {
	return transport.Config{
		TLS:           cfg.Node.TLS,
		MinTLSVersion: cfg.Transport.TLS.Version(),
		DialTimeout:   cfg.Transport.Timeout.Dial,
		ReadTimeout:   cfg.Transport.Timeout.Read,
		WriteTimeout:  cfg.Transport.Timeout.Write,
		KeepAlive:     cfg.Transport.KeepAlive,
	}
}

// NewClientFromConfig builds a Client from a loaded configuration. Options
// given by the caller are applied after the configured ones and win.
func NewClientFromConfig(cfg *config.Config, opts ...Option) (*Client, error) {
	if cfg == nil {
		return nil, NewNullParameterError("config")
	}

	reqCfg, err := RequestConfigFrom(&cfg.Node)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare request config: %w", err)
	}

	ex := cfg.Exchange
	retry := DefaultRetryPolicy()
	retry.Ceiling = ex.Retry.Ceiling
	retry.Delay = ex.Retry.Delay

	base := []Option{
		WithDialer(transport.NewDialer(TransportConfigFrom(cfg))),
		WithRetryPolicy(retry),
		WithRateLimit(ex.Rate.Limit, ex.Rate.Burst),
		WithReceiveWindow(ex.ReceiveWindow),
		WithHeaderBudget(ex.HeaderBudget),
		WithMaxBodySize(ex.MaxBodySize),
		WithPayloadLogging(ex.Payloads.Log, ex.Payloads.MaxBytes),
	}
	return NewClient(reqCfg, append(base, opts...)...)
}

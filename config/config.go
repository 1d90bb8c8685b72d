// Package config loads nodeclient configuration from defaults, an optional
// YAML file and NODECLIENT_* environment variables.
package config

import (
	"crypto/tls"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	envprovider "github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix is the prefix of environment variables read by Load.
const EnvPrefix = "NODECLIENT_"

// Load loads configuration from multiple sources with priority:
// 1. Environment variables (highest priority)
// 2. The YAML file at path, when path is non-empty and the file exists
// 3. Default values (lowest priority)
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := loadDefaults(k); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("failed to load %s: %w", path, err)
			}
			// missing file is fine, defaults and env still apply
			fmt.Fprintf(os.Stderr, "Warning: could not load %s: %v\n", path, err)
		}
	}

	return finish(k)
}

// LoadFromBytes loads configuration from YAML content layered over defaults
// and environment variables, as Load does for a file.
func LoadFromBytes(content []byte) (*Config, error) {
	k := koanf.New(".")

	if err := loadDefaults(k); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}
	if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return finish(k)
}

func finish(k *koanf.Koanf) (*Config, error) {
	if err := k.Load(envprovider.Provider(EnvPrefix, ".", func(s string) string {
		// Convert NODECLIENT_NODE_HOST to node.host for koanf
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "_", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.k = k

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func loadDefaults(k *koanf.Koanf) error {
	defaults := map[string]any{
		"node.host":        "localhost",
		"node.port":        14265,
		"node.path":        "/",
		"node.apiversion":  1,
		"node.contenttype": "application/json",
		"node.accept":      "application/json",
		"node.cafile":      "",
		"node.tls":         true,

		"exchange.retry.ceiling":     3,
		"exchange.retry.delay":       "0s",
		"exchange.receivewindow":     4096,
		"exchange.headerbudget":      1024,
		"exchange.maxbodysize":       16 << 20,
		"exchange.rate.limit":        0,
		"exchange.rate.burst":        1,
		"exchange.payloads.log":      false,
		"exchange.payloads.maxbytes": 1024,

		"transport.timeout.dial":     "10s",
		"transport.timeout.read":     "30s",
		"transport.timeout.write":    "30s",
		"transport.keepalive":        "30s",
		"transport.tls.minversion":   "1.2",

		"log.level":  "info",
		"log.pretty": false,
	}

	return k.Load(confmap.Provider(defaults, "."), nil)
}

// CACertificate reads the PEM bundle named by CAFile. It returns nil when no
// file is configured.
func (n *NodeConfig) CACertificate() ([]byte, error) {
	if n.CAFile == "" {
		return nil, nil
	}
	pem, err := os.ReadFile(n.CAFile)
	if err != nil {
		return nil, NewInvalidFieldError("node.cafile", fmt.Sprintf("cannot read %s: %v", n.CAFile, err), nil)
	}
	return pem, nil
}

// Version returns the crypto/tls constant for MinVersion.
func (t *TLSConfig) Version() uint16 {
	if t.MinVersion == "1.3" {
		return tls.VersionTLS13
	}
	return tls.VersionTLS12
}

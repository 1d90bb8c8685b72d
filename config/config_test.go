package config

import (
	"crypto/tls"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/knadh/koanf/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	defaultHost = "localhost"
	testYAML    = `
node:
  host: node.example.org
  port: 443
  path: /api
  tls: true
exchange:
  retry:
    ceiling: 5
    delay: 250ms
  rate:
    limit: 2.5
    burst: 3
log:
  level: debug
commands:
  balance: '{"command":"getBalances","threshold":100}'
`
)

// clearEnvironmentVariables removes every NODECLIENT_ variable for the duration of the test.
func clearEnvironmentVariables(t *testing.T) {
	t.Helper()
	for _, entry := range os.Environ() {
		key, _, _ := strings.Cut(entry, "=")
		if strings.HasPrefix(key, EnvPrefix) {
			t.Setenv(key, "")
			require.NoError(t, os.Unsetenv(key))
		}
	}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadWithDefaults(t *testing.T) {
	clearEnvironmentVariables(t)

	cfg, err := Load("")
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, defaultHost, cfg.Node.Host)
	assert.Equal(t, 14265, cfg.Node.Port)
	assert.Equal(t, "/", cfg.Node.Path)
	assert.Equal(t, 1, cfg.Node.APIVersion)
	assert.Equal(t, "application/json", cfg.Node.ContentType)
	assert.Equal(t, "application/json", cfg.Node.Accept)
	assert.True(t, cfg.Node.TLS)
	assert.Empty(t, cfg.Node.CAFile)

	assert.Equal(t, 3, cfg.Exchange.Retry.Ceiling)
	assert.Equal(t, time.Duration(0), cfg.Exchange.Retry.Delay)
	assert.Equal(t, 4096, cfg.Exchange.ReceiveWindow)
	assert.Equal(t, 1024, cfg.Exchange.HeaderBudget)
	assert.Equal(t, 16<<20, cfg.Exchange.MaxBodySize)
	assert.Equal(t, float64(0), cfg.Exchange.Rate.Limit)
	assert.False(t, cfg.Exchange.Payloads.Log)
	assert.Equal(t, 1024, cfg.Exchange.Payloads.MaxBytes)

	assert.Equal(t, 10*time.Second, cfg.Transport.Timeout.Dial)
	assert.Equal(t, 30*time.Second, cfg.Transport.Timeout.Read)
	assert.Equal(t, 30*time.Second, cfg.Transport.Timeout.Write)
	assert.Equal(t, 30*time.Second, cfg.Transport.KeepAlive)
	assert.Equal(t, "1.2", cfg.Transport.TLS.MinVersion)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.False(t, cfg.Log.Pretty)
}

func TestLoadDefaultsInternalFunction(t *testing.T) {
	k := koanf.New(".")
	require.NoError(t, loadDefaults(k))

	assert.Equal(t, defaultHost, k.String("node.host"))
	assert.Equal(t, 14265, k.Int("node.port"))
	assert.Equal(t, "30s", k.String("transport.timeout.read"))
	assert.Equal(t, 3, k.Int("exchange.retry.ceiling"))
}

func TestLoadFromYAMLFile(t *testing.T) {
	clearEnvironmentVariables(t)
	path := writeFile(t, "nodeclient.yaml", testYAML)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "node.example.org", cfg.Node.Host)
	assert.Equal(t, 443, cfg.Node.Port)
	assert.Equal(t, "/api", cfg.Node.Path)
	assert.Equal(t, 5, cfg.Exchange.Retry.Ceiling)
	assert.Equal(t, 250*time.Millisecond, cfg.Exchange.Retry.Delay)
	assert.Equal(t, 2.5, cfg.Exchange.Rate.Limit)
	assert.Equal(t, 3, cfg.Exchange.Rate.Burst)
	assert.Equal(t, "debug", cfg.Log.Level)

	// untouched keys keep their defaults
	assert.Equal(t, 4096, cfg.Exchange.ReceiveWindow)
	assert.Equal(t, "application/json", cfg.Node.ContentType)
}

func TestLoadMissingFileFallsBackToDefaults(t *testing.T) {
	clearEnvironmentVariables(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, defaultHost, cfg.Node.Host)
}

func TestLoadMalformedFile(t *testing.T) {
	clearEnvironmentVariables(t)
	path := writeFile(t, "broken.yaml", "node: [unterminated")

	cfg, err := Load(path)
	require.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "failed to load")
}

func TestLoadFromBytes(t *testing.T) {
	clearEnvironmentVariables(t)

	cfg, err := LoadFromBytes([]byte(testYAML))
	require.NoError(t, err)
	assert.Equal(t, "node.example.org", cfg.Node.Host)
	body, ok, err := cfg.CommandBody("balance")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `{"command":"getBalances","threshold":100}`, body)
}

func TestLoadWithEnvironmentVariables(t *testing.T) {
	clearEnvironmentVariables(t)
	t.Setenv("NODECLIENT_NODE_HOST", "10.0.0.5")
	t.Setenv("NODECLIENT_NODE_PORT", "8443")
	t.Setenv("NODECLIENT_NODE_TLS", "false")
	t.Setenv("NODECLIENT_EXCHANGE_RETRY_CEILING", "1")
	t.Setenv("NODECLIENT_TRANSPORT_TIMEOUT_READ", "5s")
	t.Setenv("NODECLIENT_LOG_LEVEL", "warn")

	cfg, err := LoadFromBytes([]byte(testYAML))
	require.NoError(t, err)

	// environment wins over file content
	assert.Equal(t, "10.0.0.5", cfg.Node.Host)
	assert.Equal(t, 8443, cfg.Node.Port)
	assert.False(t, cfg.Node.TLS)
	assert.Equal(t, 1, cfg.Exchange.Retry.Ceiling)
	assert.Equal(t, 5*time.Second, cfg.Transport.Timeout.Read)
	assert.Equal(t, "warn", cfg.Log.Level)

	// file content still wins over defaults
	assert.Equal(t, "/api", cfg.Node.Path)
}

func TestLoadInvalidEnvironmentVariables(t *testing.T) {
	tests := []struct {
		name    string
		envKey  string
		value   string
		wantErr string
	}{
		{
			name:    "invalid_port",
			envKey:  "NODECLIENT_NODE_PORT",
			value:   "invalid",
			wantErr: "port",
		},
		{
			name:    "port_out_of_range",
			envKey:  "NODECLIENT_NODE_PORT",
			value:   "70000",
			wantErr: "node.port",
		},
		{
			name:    "invalid_log_level",
			envKey:  "NODECLIENT_LOG_LEVEL",
			value:   "super-loud",
			wantErr: "log.level",
		},
		{
			name:    "relative_path",
			envKey:  "NODECLIENT_NODE_PATH",
			value:   "api",
			wantErr: "node.path",
		},
		{
			name:    "retry_ceiling_too_high",
			envKey:  "NODECLIENT_EXCHANGE_RETRY_CEILING",
			value:   "50",
			wantErr: "exchange.retry.ceiling",
		},
		{
			name:    "unsupported_tls_version",
			envKey:  "NODECLIENT_TRANSPORT_TLS_MINVERSION",
			value:   "1.0",
			wantErr: "transport.tls.minversion",
		},
		{
			name:    "missing_ca_file",
			envKey:  "NODECLIENT_NODE_CAFILE",
			value:   "/nonexistent/ca.pem",
			wantErr: "node.cafile",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnvironmentVariables(t)
			t.Setenv(tt.envKey, tt.value)

			cfg, err := Load("")
			require.Error(t, err)
			assert.Nil(t, cfg)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidationReturnsConfigError(t *testing.T) {
	clearEnvironmentVariables(t)
	t.Setenv("NODECLIENT_NODE_HOST", "")

	_, err := Load("")
	require.Error(t, err)

	var cfgErr *ConfigError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "missing", cfgErr.Category)
	assert.Equal(t, "node.host", cfgErr.Field)
	assert.Contains(t, err.Error(), "config_missing: node.host required set NODECLIENT_NODE_HOST env var")
}

func TestCACertificate(t *testing.T) {
	t.Run("empty path", func(t *testing.T) {
		n := NodeConfig{}
		pem, err := n.CACertificate()
		require.NoError(t, err)
		assert.Nil(t, pem)
	})

	t.Run("reads file", func(t *testing.T) {
		path := writeFile(t, "ca.pem", "-----BEGIN CERTIFICATE-----\n")
		n := NodeConfig{CAFile: path}
		pem, err := n.CACertificate()
		require.NoError(t, err)
		assert.Equal(t, "-----BEGIN CERTIFICATE-----\n", string(pem))
	})

	t.Run("unreadable file", func(t *testing.T) {
		n := NodeConfig{CAFile: filepath.Join(t.TempDir(), "gone.pem")}
		_, err := n.CACertificate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "config_invalid: node.cafile")
	})
}

func TestTLSVersion(t *testing.T) {
	assert.Equal(t, uint16(tls.VersionTLS12), (&TLSConfig{MinVersion: "1.2"}).Version())
	assert.Equal(t, uint16(tls.VersionTLS13), (&TLSConfig{MinVersion: "1.3"}).Version())
}

func TestGetters(t *testing.T) {
	clearEnvironmentVariables(t)
	cfg, err := LoadFromBytes([]byte(testYAML))
	require.NoError(t, err)

	assert.True(t, cfg.Exists("commands.balance"))
	assert.False(t, cfg.Exists("commands.absent"))

	var retry RetryConfig
	require.NoError(t, cfg.Unmarshal("exchange.retry", &retry))
	assert.Equal(t, 5, retry.Ceiling)

	var nilCfg *Config
	assert.Error(t, nilCfg.Unmarshal("node", &retry))
	assert.False(t, nilCfg.Exists("node.host"))
}

func TestCommandBody(t *testing.T) {
	clearEnvironmentVariables(t)
	cfg, err := LoadFromBytes([]byte(testYAML + "  blank: '   '\n"))
	require.NoError(t, err)

	t.Run("configured", func(t *testing.T) {
		body, ok, err := cfg.CommandBody("balance")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, `{"command":"getBalances","threshold":100}`, body)
	})

	t.Run("absent", func(t *testing.T) {
		body, ok, err := cfg.CommandBody("getTips")
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Empty(t, body)
	})

	t.Run("blank", func(t *testing.T) {
		_, ok, err := cfg.CommandBody("blank")
		require.Error(t, err)
		assert.False(t, ok)
		var cfgErr *ConfigError
		require.True(t, errors.As(err, &cfgErr))
		assert.Equal(t, "commands.blank", cfgErr.Field)
	})

	t.Run("nil config", func(t *testing.T) {
		var nilCfg *Config
		_, ok, err := nilCfg.CommandBody("balance")
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestConfigErrorFormatting(t *testing.T) {
	err := NewInvalidFieldError("log.level", "invalid value loud", []string{"debug", "info"})
	assert.Equal(t, "config_invalid: log.level invalid value loud must be one of: debug, info", err.Error())

	err = NewMissingFieldError("node.host", "NODECLIENT_NODE_HOST", "node.host")
	assert.Equal(t, "config_missing: node.host required set NODECLIENT_NODE_HOST env var or add node.host to the config file", err.Error())

	err = &ConfigError{Category: "invalid", Field: "x", Details: []string{"a", "b"}}
	assert.Equal(t, "config_invalid: x a; b", err.Error())
}

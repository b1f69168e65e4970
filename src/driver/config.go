package driver

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration that YAML-decodes from strings like "30s" as
// well as plain nanosecond integers.
type Duration time.Duration

// Std converts back to a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err == nil {
		parsed, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("parse duration %q: %w", s, err)
		}
		*d = Duration(parsed)
		return nil
	}
	var n int64
	if err := node.Decode(&n); err != nil {
		return err
	}
	*d = Duration(n)
	return nil
}

// Config holds configuration options for the driver.
type Config struct {
	// TLS holds TLS-specific configuration.
	TLS *TLSConfig `yaml:"tls"`

	// Pool holds connection pool configuration.
	Pool *PoolConfig `yaml:"pool"`

	// Observability holds telemetry configuration.
	Observability *ObservabilityConfig `yaml:"observability"`

	// Retry holds the retry policy applied to transient query failures.
	Retry *RetryPolicy `yaml:"retry"`

	// Logger is the pluggable logger implementation. Nil disables logging.
	Logger Logger `yaml:"-"`

	// LogQueryTiming enables query execution timing logs at info level.
	LogQueryTiming bool `yaml:"log_query_timing"`
}

// TLSConfig provides TLS configuration options.
type TLSConfig struct {
	// InsecureSkipVerify disables certificate verification (the +ssc URL
	// modifier forces this regardless).
	InsecureSkipVerify bool `yaml:"insecure_skip_verify"`

	// ServerName overrides the expected server name for certificate
	// validation. Defaults to the connection URL's host.
	ServerName string `yaml:"server_name"`

	// CAFile points to a PEM file of additional trusted root CAs.
	CAFile string `yaml:"ca_file"`

	// MinVersion is the minimum TLS version, default TLS 1.2.
	MinVersion uint16 `yaml:"-"`

	rootCAs *x509.CertPool
}

// PoolConfig provides connection pool configuration options.
type PoolConfig struct {
	// MaxConnections caps the number of pooled connections.
	MaxConnections int `yaml:"max_connections"`

	// MaxIdleTime is how long connections may sit idle before closing.
	MaxIdleTime Duration `yaml:"max_idle_time"`

	// ConnectionLifetime is the maximum lifetime of one connection.
	ConnectionLifetime Duration `yaml:"connection_lifetime"`

	// AcquisitionTimeout bounds waiting for a connection from the pool.
	AcquisitionTimeout Duration `yaml:"acquisition_timeout"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		TLS: &TLSConfig{
			MinVersion: tls.VersionTLS12,
		},
		Pool: &PoolConfig{
			MaxConnections:     100,
			MaxIdleTime:        Duration(30 * time.Minute),
			ConnectionLifetime: Duration(1 * time.Hour),
			AcquisitionTimeout: Duration(30 * time.Second),
		},
		Observability: DefaultObservabilityConfig(),
		Retry:         NoRetryPolicy(),
	}
}

// LoadConfig reads a YAML configuration file and merges it over the
// defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if cfg.TLS != nil && cfg.TLS.CAFile != "" {
		if err := cfg.TLS.loadCA(); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

func (c *Config) logger() Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return &NoOpLogger{}
}

func (tc *TLSConfig) loadCA() error {
	pem, err := os.ReadFile(tc.CAFile)
	if err != nil {
		return fmt.Errorf("read CA file %s: %w", tc.CAFile, err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pem) {
		return fmt.Errorf("no certificates parsed from %s", tc.CAFile)
	}
	tc.rootCAs = pool
	return nil
}

// build creates a *tls.Config, using serverName when none was configured.
func (tc *TLSConfig) build(serverName string) *tls.Config {
	cfg := &tls.Config{
		InsecureSkipVerify: tc.InsecureSkipVerify,
		ServerName:         tc.ServerName,
		RootCAs:            tc.rootCAs,
		MinVersion:         tc.MinVersion,
	}
	if cfg.MinVersion == 0 {
		cfg.MinVersion = tls.VersionTLS12
	}
	if cfg.ServerName == "" {
		cfg.ServerName = serverName
	}
	return cfg
}

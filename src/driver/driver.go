// Package driver implements a lightweight Bolt protocol client used to
// communicate with Neo4j and Memgraph databases.
package driver

import (
	"context"
	"crypto/tls"
	"net"

	"github.com/yudhasubki/netpool"

	"github.com/andreasronge/neo4j-core/src/bolt"
	"github.com/andreasronge/neo4j-core/src/urlresolver"
)

// Driver is the minimal functionality required to talk to a Cypher-compatible
// database over Bolt. Implementations manage their own connections.
type Driver interface {
	// Close releases all resources associated with the driver.
	Close() error
	// Ping verifies the server is reachable and speaks a supported Bolt
	// version.
	Ping() error
	// Run executes a Cypher query and returns the column names and rows.
	Run(ctx context.Context, query string, params map[string]interface{}, metaData map[string]interface{}) ([]string, []map[string]interface{}, error)
	// RunWithSummary executes a Cypher query and additionally returns
	// execution metadata for observability.
	RunWithSummary(ctx context.Context, query string, params map[string]interface{}, metaData map[string]interface{}) ([]string, []map[string]interface{}, *ResultSummary, error)
}

type driver struct {
	cfg           *urlresolver.Config
	pool          *netpool.Netpool
	config        *Config
	observability *observabilityInstruments
	logger        Logger
}

// NewDriver initializes a Driver from a connection URL with default
// configuration.
func NewDriver(urlString string) (Driver, error) {
	return NewDriverWithConfig(urlString, nil)
}

// NewDriverWithConfig initializes a Driver with custom configuration. It
// validates the URL, establishes a connection pool and pings the server once.
func NewDriverWithConfig(urlString string, config *Config) (Driver, error) {
	if config == nil {
		config = DefaultConfig()
	}
	d := driver{config: config, logger: config.logger()}

	d.logger.Info("Initializing neo4j-core driver", "url", urlString)

	if config.Observability != nil && (config.Observability.EnableTracing || config.Observability.EnableMetrics) {
		d.observability = initObservability()
		d.logger.Debug("Observability enabled",
			"tracing", config.Observability.EnableTracing,
			"metrics", config.Observability.EnableMetrics)
	}

	cfg, err := urlresolver.Resolve(urlString)
	if err != nil {
		d.logger.Error("Failed to resolve connection URL", "url", urlString, "error", err)
		return nil, err
	}
	d.cfg = cfg
	d.logger.Debug("Connection URL resolved",
		"host", cfg.Host, "port", cfg.Port, "ssl", cfg.SSL, "database", cfg.Database)

	d.pool, err = netpool.New(d.dial)
	if err != nil {
		d.logger.Error("Failed to create connection pool", "error", err)
		return nil, err
	}

	if err := d.Ping(); err != nil {
		d.logger.Error("Initial ping failed", "error", err)
		return nil, err
	}

	d.logger.Info("Driver initialized", "address", cfg.Address())
	return &d, nil
}

func (d *driver) dial() (net.Conn, error) {
	address := d.cfg.Address()
	if d.cfg.Secure() {
		tlsCfg := d.config.TLS.build(d.cfg.Host)
		if !d.cfg.VerifyCert() {
			tlsCfg.InsecureSkipVerify = true
			d.logger.Warn("TLS certificate verification disabled", "address", address)
		}
		d.logger.Debug("Establishing TLS connection", "address", address)
		return tls.Dial("tcp", address, tlsCfg)
	}
	d.logger.Debug("Establishing plain TCP connection", "address", address)
	return net.Dial("tcp", address)
}

// Close shuts down the driver's connection pool.
func (d *driver) Close() error {
	d.logger.Info("Closing driver")
	d.pool.Close()
	return nil
}

// prepare runs the handshake and authentication conversation on a pooled
// connection.
func (d *driver) prepare(conn net.Conn) (*bolt.Conn, error) {
	bc := bolt.NewConn(conn)
	if err := bc.Handshake(); err != nil {
		return nil, err
	}
	if err := bc.Hello(); err != nil {
		return nil, err
	}
	if err := bc.Logon(d.cfg.Username, d.cfg.Password); err != nil {
		return nil, err
	}
	return bc, nil
}

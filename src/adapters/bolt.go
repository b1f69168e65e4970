// Package adapters provides session.Session implementations over the
// supported transports: the Bolt binary protocol, the HTTP transactional
// endpoint and an embedded in-process engine.
package adapters

import (
	"context"
	"errors"

	"github.com/andreasronge/neo4j-core/src/driver"
	"github.com/andreasronge/neo4j-core/src/session"
)

// BoltSession adapts a pooled Bolt driver to the session contract.
type BoltSession struct {
	drv driver.Driver
}

// NewBoltSession opens a Bolt session for the given connection URL
// (bolt://, neo4j:// or memgraph://, with optional +ssl / +ssc modifiers).
func NewBoltSession(urlString string) (*BoltSession, error) {
	drv, err := driver.NewDriver(urlString)
	if err != nil {
		return nil, err
	}
	return &BoltSession{drv: drv}, nil
}

// NewBoltSessionWithConfig opens a Bolt session with explicit driver
// configuration.
func NewBoltSessionWithConfig(urlString string, config *driver.Config) (*BoltSession, error) {
	drv, err := driver.NewDriverWithConfig(urlString, config)
	if err != nil {
		return nil, err
	}
	return &BoltSession{drv: drv}, nil
}

// WrapDriver builds a session over an already-initialized driver. The caller
// retains ownership; Close closes the underlying driver.
func WrapDriver(drv driver.Driver) *BoltSession {
	return &BoltSession{drv: drv}
}

func (s *BoltSession) Query(ctx context.Context, cypher string, params map[string]interface{}, tag string) (session.Result, error) {
	var metaData map[string]interface{}
	if tag != "" {
		metaData = map[string]interface{}{"tx_metadata": map[string]interface{}{"context": tag}}
	}

	cols, rows, err := s.drv.Run(ctx, cypher, params, metaData)
	if err != nil {
		var dbErr *driver.DatabaseError
		if errors.As(err, &dbErr) {
			return &session.Failure{E: &session.QueryError{
				Message: dbErr.Message,
				Code:    dbErr.Code,
			}}, nil
		}
		return nil, err
	}
	return session.NewServerResult(cols, rows), nil
}

func (s *BoltSession) Close() error {
	return s.drv.Close()
}

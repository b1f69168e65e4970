//go:build !cgo

package adapters

import (
	"context"
	"errors"

	"github.com/andreasronge/neo4j-core/src/session"
)

// ErrEmbeddedUnavailable is returned when the binary was built without CGO,
// which the embedded engine requires.
var ErrEmbeddedUnavailable = errors.New("embedded engine requires a CGO-enabled build")

// EmbeddedSession is a stub for builds without CGO.
type EmbeddedSession struct{}

func NewEmbeddedSession(path string) (*EmbeddedSession, error) {
	return nil, ErrEmbeddedUnavailable
}

func (s *EmbeddedSession) Query(ctx context.Context, cypher string, params map[string]interface{}, tag string) (session.Result, error) {
	return nil, ErrEmbeddedUnavailable
}

func (s *EmbeddedSession) Close() error { return nil }

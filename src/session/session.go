// Package session defines the contract between the query builder and the
// transport adapters that actually talk to a graph database. Three adapters
// are provided: Bolt (binary wire protocol), HTTP (transactional REST
// endpoint) and an embedded in-process engine.
package session

import (
	"context"
	"fmt"
)

// Session submits rendered Cypher text with merged parameters to a database
// and returns a polymorphic Result. Implementations manage their own
// connections; Query blocks until the server answers or the context is done.
type Session interface {
	// Query executes cypher with the given parameters. tag is a
	// caller-supplied context label carried for instrumentation; adapters
	// may forward it as query metadata.
	Query(ctx context.Context, cypher string, params map[string]interface{}, tag string) (Result, error)
	// Close releases all resources held by the session.
	Close() error
}

// Result is polymorphic over success and failure. A non-nil Err means the
// server reported a query error; otherwise the concrete type is either
// *ServerResult (tabular) or *EngineResult (embedded engine, lazily
// iterable), and callers dispatch row wrapping on that type.
type Result interface {
	Err() *QueryError
}

// QueryError is a structured server-side query failure carrying the
// server's message, error code and, for HTTP transports, the status code.
type QueryError struct {
	Message string
	Code    string
	Status  int
}

func (e *QueryError) Error() string {
	switch {
	case e.Code != "" && e.Status != 0:
		return fmt.Sprintf("%s: %s (status %d)", e.Code, e.Message, e.Status)
	case e.Code != "":
		return e.Code + ": " + e.Message
	default:
		return e.Message
	}
}

// Failure is the error-result kind returned when the server rejects a query.
type Failure struct {
	E *QueryError
}

// Err returns the query error carried by the failure.
func (f *Failure) Err() *QueryError { return f.E }

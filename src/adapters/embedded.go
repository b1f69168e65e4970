//go:build cgo

package adapters

import (
	"context"
	"fmt"
	"strings"
	"sync"

	kuzu "github.com/kuzudb/go-kuzu"

	"github.com/andreasronge/neo4j-core/src/session"
)

// EmbeddedSession runs Cypher against an in-process Kuzu database. It needs
// CGO because go-kuzu wraps the engine's C library. Results are streamed
// lazily as a *session.EngineResult.
type EmbeddedSession struct {
	db   *kuzu.Database
	conn *kuzu.Connection

	mu sync.Mutex
}

// NewEmbeddedSession opens an embedded database at path. Use ":memory:" for
// a transient instance.
func NewEmbeddedSession(path string) (*EmbeddedSession, error) {
	cfg := kuzu.DefaultSystemConfig()
	db, err := kuzu.OpenDatabase(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("embedded: open database: %w", err)
	}
	conn, err := kuzu.OpenConnection(db)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("embedded: open connection: %w", err)
	}
	return &EmbeddedSession{db: db, conn: conn}, nil
}

func (s *EmbeddedSession) Query(ctx context.Context, cypher string, params map[string]interface{}, tag string) (session.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	res, err := s.run(cypher, params)
	s.mu.Unlock()
	if err != nil {
		if isSyntaxError(err.Error()) {
			return &session.Failure{E: &session.QueryError{
				Message: err.Error(),
				Code:    "Engine.Statement.SyntaxError",
			}}, nil
		}
		return nil, err
	}

	columns := res.GetColumnNames()
	next := func() ([]interface{}, bool, error) {
		if !res.HasNext() {
			return nil, false, nil
		}
		tuple, err := res.Next()
		if err != nil {
			return nil, false, fmt.Errorf("embedded: next row: %w", err)
		}
		vals, err := tuple.GetAsSlice()
		if err != nil {
			return nil, false, fmt.Errorf("embedded: row values: %w", err)
		}
		return vals, true, nil
	}
	return session.NewEngineResult(columns, next, func() { res.Close() }), nil
}

// run executes a statement, preparing it when parameters are present.
func (s *EmbeddedSession) run(cypher string, params map[string]interface{}) (*kuzu.QueryResult, error) {
	if len(params) == 0 {
		return s.conn.Query(cypher)
	}
	stmt, err := s.conn.Prepare(cypher)
	if err != nil {
		return nil, err
	}
	defer stmt.Close()
	return s.conn.Execute(stmt, params)
}

func (s *EmbeddedSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn != nil {
		s.conn.Close()
		s.conn = nil
	}
	if s.db != nil {
		s.db.Close()
		s.db = nil
	}
	return nil
}

// isSyntaxError reports whether an engine error message looks like a query
// compilation failure rather than an I/O problem.
func isSyntaxError(msg string) bool {
	lower := strings.ToLower(msg)
	return strings.Contains(lower, "parser exception") ||
		strings.Contains(lower, "binder exception") ||
		strings.Contains(lower, "syntax")
}

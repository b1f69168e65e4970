package session

// ServerResult is the tabular success-result kind produced by the Bolt and
// HTTP adapters: all rows are materialized as column-keyed maps.
type ServerResult struct {
	columns []string
	rows    []map[string]interface{}
}

// NewServerResult wraps fully-materialized tabular data.
func NewServerResult(columns []string, rows []map[string]interface{}) *ServerResult {
	return &ServerResult{columns: columns, rows: rows}
}

// Err always returns nil: a ServerResult is a success-result.
func (r *ServerResult) Err() *QueryError { return nil }

// Columns returns the column names in result order.
func (r *ServerResult) Columns() []string { return r.columns }

// Rows returns the materialized rows.
func (r *ServerResult) Rows() []map[string]interface{} { return r.rows }

// EngineResult is the success-result kind produced by the embedded engine
// adapter. Rows are pulled lazily from the engine cursor: the result is a
// single-pass stream.
type EngineResult struct {
	columns []string
	next    func() ([]interface{}, bool, error)
	closeFn func()
	done    bool
}

// NewEngineResult wraps an engine cursor. next returns the following row's
// values in column order, false when the stream is exhausted. closeFn may be
// nil.
func NewEngineResult(columns []string, next func() ([]interface{}, bool, error), closeFn func()) *EngineResult {
	return &EngineResult{columns: columns, next: next, closeFn: closeFn}
}

// Err always returns nil: an EngineResult is a success-result.
func (r *EngineResult) Err() *QueryError { return nil }

// Columns returns the column names in result order.
func (r *EngineResult) Columns() []string { return r.columns }

// Next pulls the following row. It returns false once the stream is
// exhausted, after which the underlying cursor is closed.
func (r *EngineResult) Next() ([]interface{}, bool, error) {
	if r.done {
		return nil, false, nil
	}
	values, ok, err := r.next()
	if !ok || err != nil {
		r.done = true
		if r.closeFn != nil {
			r.closeFn()
		}
	}
	return values, ok, err
}

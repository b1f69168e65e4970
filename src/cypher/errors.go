package cypher

// ArgumentError reports structurally invalid arguments to a query-building
// operation. It is returned synchronously at the call site.
type ArgumentError struct {
	Msg string
}

func (e *ArgumentError) Error() string { return e.Msg }

// InvalidOperationError reports an attempted combination of queries that
// cannot be performed, such as merging builders bound to different sessions.
type InvalidOperationError struct {
	Msg string
}

func (e *InvalidOperationError) Error() string { return e.Msg }

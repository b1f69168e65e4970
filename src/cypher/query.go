// Package cypher builds Cypher queries from fluent, immutable builder calls
// and defers rendering and execution until a result is requested.
package cypher

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/andreasronge/neo4j-core/src/session"
)

// Query is one immutable snapshot of a query under construction. Every
// fluent method returns a new snapshot carrying one more clause; the receiver
// is never mutated, so a partially built query can be forked into divergent
// continuations safely. Rendering and execution are lazy and memoized per
// snapshot.
type Query struct {
	sess    session.Session
	opts    options
	params  *Parameters
	clauses []*Clause // nil entries are segment breaks

	mu       sync.Mutex
	cypher   string
	rendered bool
	resp     session.Result
	respErr  error
	respDone bool
}

type options struct {
	contextTag   string
	dialect      string
	unwrapped    bool
	instrumenter Instrumenter
}

// Option configures a new query snapshot.
type Option func(*options)

// WithContext attaches a caller-supplied context tag, recorded by the
// instrumentation hook and forwarded to the session as query metadata.
func WithContext(tag string) Option {
	return func(o *options) { o.contextTag = tag }
}

// WithDialect prefixes rendered queries with a CYPHER dialect directive,
// e.g. WithDialect("3.5") renders "CYPHER 3.5 MATCH ...".
func WithDialect(d string) Option {
	return func(o *options) { o.dialect = d }
}

// WithInstrumenter installs an observer invoked around query execution.
func WithInstrumenter(in Instrumenter) Option {
	return func(o *options) { o.instrumenter = in }
}

// NewQuery creates an empty query bound to sess. The session may be nil for
// render-only use; execution then fails with an InvalidOperationError.
func NewQuery(sess session.Session, opts ...Option) *Query {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	return &Query{sess: sess, opts: o, params: NewParameters()}
}

// Session returns the session collaborator this query is bound to.
func (q *Query) Session() session.Session { return q.sess }

// clone produces an independent snapshot: fresh parameter store, cleared
// render and response caches. The clause slice is capacity-clamped so the
// original's backing array is shared but can never be appended into.
func (q *Query) clone() *Query {
	return &Query{
		sess:    q.sess,
		opts:    q.opts,
		params:  q.params.Copy(),
		clauses: q.clauses[:len(q.clauses):len(q.clauses)],
	}
}

// Copy produces an independent snapshot of the query. Extending the copy
// never affects the original.
func (q *Query) Copy() *Query { return q.clone() }

func (q *Query) appendClause(k Kind, flags clauseFlags, args []Arg) *Query {
	nq := q.clone()
	nq.clauses = append(nq.clauses, newClause(k, flags, args))
	return nq
}

// Start appends a START clause.
func (q *Query) Start(args ...Arg) *Query { return q.appendClause(KindStart, clauseFlags{}, args) }

// Match appends a MATCH clause.
func (q *Query) Match(args ...Arg) *Query { return q.appendClause(KindMatch, clauseFlags{}, args) }

// OptionalMatch appends an OPTIONAL MATCH clause.
func (q *Query) OptionalMatch(args ...Arg) *Query {
	return q.appendClause(KindOptionalMatch, clauseFlags{}, args)
}

// Using appends a USING hint clause.
func (q *Query) Using(args ...Arg) *Query { return q.appendClause(KindUsing, clauseFlags{}, args) }

// Where appends a WHERE clause.
func (q *Query) Where(args ...Arg) *Query { return q.appendClause(KindWhere, clauseFlags{}, args) }

// WhereNot appends a WHERE clause rendering as a negated predicate.
func (q *Query) WhereNot(args ...Arg) *Query {
	return q.appendClause(KindWhere, clauseFlags{negate: true}, args)
}

// Create appends a CREATE clause.
func (q *Query) Create(args ...Arg) *Query { return q.appendClause(KindCreate, clauseFlags{}, args) }

// CreateUnique appends a CREATE UNIQUE clause.
func (q *Query) CreateUnique(args ...Arg) *Query {
	return q.appendClause(KindCreateUnique, clauseFlags{}, args)
}

// Merge appends a MERGE clause.
func (q *Query) Merge(args ...Arg) *Query { return q.appendClause(KindMerge, clauseFlags{}, args) }

// Set appends a SET clause using whole-object replacement for mappings.
func (q *Query) Set(args ...Arg) *Query { return q.appendClause(KindSet, clauseFlags{}, args) }

// SetProps appends a SET clause assigning individual properties instead of
// replacing whole objects.
func (q *Query) SetProps(args ...Arg) *Query {
	return q.appendClause(KindSet, clauseFlags{perProp: true}, args)
}

// OnCreateSet appends an ON CREATE SET clause.
func (q *Query) OnCreateSet(args ...Arg) *Query {
	return q.appendClause(KindOnCreateSet, clauseFlags{perProp: true}, args)
}

// OnMatchSet appends an ON MATCH SET clause.
func (q *Query) OnMatchSet(args ...Arg) *Query {
	return q.appendClause(KindOnMatchSet, clauseFlags{perProp: true}, args)
}

// Remove appends a REMOVE clause.
func (q *Query) Remove(args ...Arg) *Query { return q.appendClause(KindRemove, clauseFlags{}, args) }

// Unwind appends an UNWIND clause.
func (q *Query) Unwind(args ...Arg) *Query { return q.appendClause(KindUnwind, clauseFlags{}, args) }

// Delete appends a DELETE clause.
func (q *Query) Delete(args ...Arg) *Query { return q.appendClause(KindDelete, clauseFlags{}, args) }

// With appends a WITH clause followed by an implicit segment break: WITH is a
// pipeline boundary, so whatever follows starts a fresh statement segment.
func (q *Query) With(args ...Arg) *Query {
	nq := q.appendClause(KindWith, clauseFlags{}, args)
	nq.clauses = append(nq.clauses, nil)
	return nq
}

// Return appends a RETURN clause.
func (q *Query) Return(args ...Arg) *Query { return q.appendClause(KindReturn, clauseFlags{}, args) }

// Order appends an ORDER BY clause.
func (q *Query) Order(args ...Arg) *Query { return q.appendClause(KindOrder, clauseFlags{}, args) }

// Skip appends a SKIP clause.
func (q *Query) Skip(n int) *Query {
	nq := q.clone()
	nq.clauses = append(nq.clauses, newRawClause(KindSkip, strconv.Itoa(n)))
	return nq
}

// Offset is an alias for Skip.
func (q *Query) Offset(n int) *Query { return q.Skip(n) }

// Limit appends a LIMIT clause.
func (q *Query) Limit(n int) *Query {
	nq := q.clone()
	nq.clauses = append(nq.clauses, newRawClause(KindLimit, strconv.Itoa(n)))
	return nq
}

// Break appends a segment-break marker, composing logically separate
// statements in one chain. Consecutive breaks collapse during partitioning.
func (q *Query) Break() *Query {
	nq := q.clone()
	nq.clauses = append(nq.clauses, nil)
	return nq
}

// Reorder strips all prior ORDER BY clauses and appends a new one built from
// args.
func (q *Query) Reorder(args ...Arg) *Query {
	nq := q.clone()
	kept := make([]*Clause, 0, len(nq.clauses))
	for _, c := range nq.clauses {
		if c != nil && c.kind == KindOrder {
			continue
		}
		kept = append(kept, c)
	}
	nq.clauses = append(kept, newClause(KindOrder, clauseFlags{}, args))
	return nq
}

// Params merges caller-supplied bindings into the query's parameter store.
// These always take precedence over clause-internal auto-bound names.
func (q *Query) Params(m map[string]interface{}) *Query {
	nq := q.clone()
	nq.params.AddAll(m)
	return nq
}

// Unwrapped returns a snapshot whose row iteration skips materializing Node
// and Relationship values, yielding the adapter's raw values instead.
func (q *Query) Unwrapped() *Query {
	nq := q.clone()
	nq.opts.unwrapped = true
	return nq
}

// HasClause reports whether any clause of the given kind is present.
func (q *Query) HasClause(k Kind) bool {
	for _, c := range q.clauses {
		if c != nil && c.kind == k {
			return true
		}
	}
	return false
}

// UnionCypher renders the receiver and other joined by UNION. It renders
// only; nothing is executed.
func (q *Query) UnionCypher(other *Query) string {
	return q.ToCypher() + " UNION " + other.ToCypher()
}

// UnionCypherAll is UnionCypher with the ALL modifier, keeping duplicate
// rows.
func (q *Query) UnionCypherAll(other *Query) string {
	return q.ToCypher() + " UNION ALL " + other.ToCypher()
}

// And combines two queries bound to the same session: the result's clause
// sequence is the receiver's followed by other's, and other's explicit
// parameters overwrite the receiver's on collision. Queries bound to
// different sessions cannot be combined.
func (q *Query) And(other *Query) (*Query, error) {
	if q.sess != other.sess {
		return nil, &InvalidOperationError{Msg: "cannot combine queries bound to different sessions"}
	}
	nq := q.clone()
	nq.clauses = append(nq.clauses, other.clauses...)
	nq.params.AddAll(other.params.ToMap())
	return nq, nil
}

// ToCypher renders the query as a single line. Rendering is deterministic,
// side-effect free and memoized per snapshot.
func (q *Query) ToCypher() string {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.rendered {
		q.cypher = q.render(" ")
		q.rendered = true
	}
	return q.cypher
}

// ToCypherPretty renders the query with each segment on its own line.
func (q *Query) ToCypherPretty() string {
	return q.render("\n")
}

// String implements fmt.Stringer.
func (q *Query) String() string { return q.ToCypher() }

// PrintCypher writes the rendered query to standard output.
func (q *Query) PrintCypher() {
	fmt.Println(q.ToCypher())
}

// render assembles the full text: partition the clause sequence, then emit
// each segment's kind groups in canonical order, joining same-kind clause
// fragments with the kind's own separator.
func (q *Query) render(segmentSep string) string {
	var segments []string
	for _, part := range partition(q.clauses) {
		if len(part) == 0 {
			continue
		}
		segments = append(segments, renderSegment(part))
	}
	out := strings.Join(segments, segmentSep)
	if q.opts.dialect != "" {
		out = "CYPHER " + q.opts.dialect + " " + out
	}
	return strings.TrimSpace(out)
}

func renderSegment(part []*Clause) string {
	var groups []string
	for k := Kind(0); k < kindCount; k++ {
		var frags []string
		for _, c := range part {
			if c.kind == k {
				frags = append(frags, c.fragments...)
			}
		}
		if len(frags) == 0 {
			continue
		}
		groups = append(groups, kindSpecs[k].keyword+" "+strings.Join(frags, kindSpecs[k].joiner))
	}
	return strings.Join(groups, " ")
}

// MergedParams merges all clause-internal bindings in sequence order, then
// overlays explicit Params bindings. On a cross-clause name collision the
// later clause wins; explicit bindings always win.
func (q *Query) MergedParams() map[string]interface{} {
	merged := make(map[string]interface{})
	for _, c := range q.clauses {
		if c == nil {
			continue
		}
		for k, v := range c.params {
			merged[k] = v
		}
	}
	q.params.MergeInto(merged)
	return merged
}

// Response renders the query, merges parameters and submits it to the
// session, memoizing the outcome. A server-reported failure surfaces as a
// *session.QueryError.
func (q *Query) Response(ctx context.Context) (session.Result, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.respDone {
		return q.resp, q.respErr
	}
	q.resp, q.respErr = q.execute(ctx)
	q.respDone = true
	return q.resp, q.respErr
}

func (q *Query) execute(ctx context.Context) (session.Result, error) {
	if q.sess == nil {
		return nil, &InvalidOperationError{Msg: "query has no session"}
	}
	if !q.rendered {
		q.cypher = q.render(" ")
		q.rendered = true
	}
	params := q.MergedParams()

	finish := func(error) {}
	if q.opts.instrumenter != nil {
		finish = q.opts.instrumenter(ctx, QueryEvent{
			QueryID: uuid.NewString(),
			Context: q.opts.contextTag,
			Cypher:  q.cypher,
			Params:  params,
		})
	}

	res, err := q.sess.Query(ctx, q.cypher, params, q.opts.contextTag)
	if err == nil && res != nil {
		if qe := res.Err(); qe != nil {
			err = qe
		}
	}
	finish(err)
	if err != nil {
		return nil, err
	}
	return res, nil
}

// Exec forces evaluation and discards the result.
func (q *Query) Exec(ctx context.Context) error {
	_, err := q.Response(ctx)
	return err
}

// Each forces evaluation and yields each result row to fn. Iteration is
// lazy and single-pass for engine results; returning an error from fn stops
// the iteration and propagates the error.
func (q *Query) Each(ctx context.Context, fn func(session.Row) error) error {
	res, err := q.Response(ctx)
	if err != nil {
		return err
	}
	switch r := res.(type) {
	case *session.ServerResult:
		cols := r.Columns()
		for _, record := range r.Rows() {
			if err := fn(session.NewRowFromMap(cols, record, q.opts.unwrapped)); err != nil {
				return err
			}
		}
		return nil
	case *session.EngineResult:
		cols := r.Columns()
		for {
			values, ok, err := r.Next()
			if err != nil {
				return err
			}
			if !ok {
				return nil
			}
			if err := fn(session.NewRow(cols, values, q.opts.unwrapped)); err != nil {
				return err
			}
		}
	default:
		return &InvalidOperationError{Msg: fmt.Sprintf("unsupported result kind %T", res)}
	}
}

// Pluck replaces any existing RETURN clause with one built from columns,
// executes, and extracts values: a flat slice of scalars for one column, a
// slice of per-row value tuples for several.
func (q *Query) Pluck(ctx context.Context, columns ...string) ([]interface{}, error) {
	if len(columns) == 0 {
		return nil, &ArgumentError{Msg: "pluck requires at least one column"}
	}
	nq := q.clone()
	kept := make([]*Clause, 0, len(nq.clauses))
	for _, c := range nq.clauses {
		if c != nil && c.kind == KindReturn {
			continue
		}
		kept = append(kept, c)
	}
	nq.clauses = append(kept, newRawClause(KindReturn, columns...))

	var out []interface{}
	err := nq.Each(ctx, func(row session.Row) error {
		if len(columns) == 1 {
			out = append(out, row.Values()[0])
		} else {
			out = append(out, row.Values())
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Count executes count(v) over the query, counting all rows when v is empty.
func (q *Query) Count(ctx context.Context, v string) (int64, error) {
	if v == "" {
		v = "*"
	}
	values, err := q.Pluck(ctx, "count("+v+")")
	if err != nil {
		return 0, err
	}
	if len(values) == 0 {
		return 0, nil
	}
	n, ok := toInt64(values[0])
	if !ok {
		return 0, fmt.Errorf("count returned a non-numeric value of type %T", values[0])
	}
	return n, nil
}

func toInt64(v interface{}) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case float64:
		return int64(n), true
	case uint64:
		return int64(n), true
	}
	return 0, false
}

package cypher

import "strings"

// Kind identifies the Cypher keyword a clause renders under. The declaration
// order is the canonical render order within one segment: no matter in which
// order the fluent methods were called, clause groups are emitted in this
// sequence.
type Kind int

const (
	KindStart Kind = iota
	KindMatch
	KindOptionalMatch
	KindUsing
	KindWhere
	KindCreate
	KindCreateUnique
	KindMerge
	KindSet
	KindOnCreateSet
	KindOnMatchSet
	KindRemove
	KindUnwind
	KindDelete
	KindWith
	KindReturn
	KindOrder
	KindSkip
	KindLimit

	kindCount
)

// kindSpec holds the static rendering rules for one clause kind.
type kindSpec struct {
	keyword string
	// joiner separates fragments when several clauses of the same kind
	// appear within one segment.
	joiner string
}

var kindSpecs = [kindCount]kindSpec{
	KindStart:         {keyword: "START", joiner: ", "},
	KindMatch:         {keyword: "MATCH", joiner: ", "},
	KindOptionalMatch: {keyword: "OPTIONAL MATCH", joiner: ", "},
	KindUsing:         {keyword: "USING", joiner: " USING "},
	KindWhere:         {keyword: "WHERE", joiner: " AND "},
	KindCreate:        {keyword: "CREATE", joiner: ", "},
	KindCreateUnique:  {keyword: "CREATE UNIQUE", joiner: ", "},
	KindMerge:         {keyword: "MERGE", joiner: ", "},
	KindSet:           {keyword: "SET", joiner: ", "},
	KindOnCreateSet:   {keyword: "ON CREATE SET", joiner: ", "},
	KindOnMatchSet:    {keyword: "ON MATCH SET", joiner: ", "},
	KindRemove:        {keyword: "REMOVE", joiner: ", "},
	KindUnwind:        {keyword: "UNWIND", joiner: " UNWIND "},
	KindDelete:        {keyword: "DELETE", joiner: ", "},
	KindWith:          {keyword: "WITH", joiner: ", "},
	KindReturn:        {keyword: "RETURN", joiner: ", "},
	KindOrder:         {keyword: "ORDER BY", joiner: ", "},
	KindSkip:          {keyword: "SKIP", joiner: ", "},
	KindLimit:         {keyword: "LIMIT", joiner: ", "},
}

// String returns the Cypher keyword for the kind.
func (k Kind) String() string {
	if k < 0 || k >= kindCount {
		return "UNKNOWN"
	}
	return kindSpecs[k].keyword
}

// Clause is one immutable fragment of a query. Its text fragments and
// privately bound parameters are computed once at construction; rendering a
// clause afterwards is a pure lookup.
type Clause struct {
	kind      Kind
	fragments []string
	params    map[string]interface{}
}

// Kind returns the clause's kind tag.
func (c *Clause) Kind() Kind { return c.kind }

// Fragments returns the rendered text fragments this clause contributes to
// its kind group.
func (c *Clause) Fragments() []string { return c.fragments }

// clauseFlags carries per-clause construction modifiers.
type clauseFlags struct {
	// negate wraps a WHERE clause's conditions in NOT(...).
	negate bool
	// perProp makes SET-family clauses assign individual properties
	// instead of replacing the whole object.
	perProp bool
}

// newClause builds a clause of kind k from args. Construction is total:
// every argument shape has a defined rendering, so this never fails.
func newClause(k Kind, flags clauseFlags, args []Arg) *Clause {
	b := newBinder()
	var frags []string
	for _, a := range args {
		frags = append(frags, buildFragments(k, flags, a, b)...)
	}
	if k == KindWhere && flags.negate {
		frags = []string{"NOT(" + strings.Join(frags, " AND ") + ")"}
	}
	return &Clause{kind: k, fragments: frags, params: b.params}
}

// newRawClause builds a clause from pre-rendered fragments, bypassing
// argument interpretation. Used for SKIP/LIMIT counts and pluck projections.
func newRawClause(k Kind, fragments ...string) *Clause {
	return &Clause{kind: k, fragments: fragments, params: map[string]interface{}{}}
}

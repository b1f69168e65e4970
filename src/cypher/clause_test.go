package cypher

import (
	"reflect"
	"testing"
)

func TestClauseRendering(t *testing.T) {
	tests := []struct {
		name     string
		query    *Query
		expected string
	}{
		{
			name:     "match_raw",
			query:    NewQuery(nil).Match(Raw("(n)")),
			expected: "MATCH (n)",
		},
		{
			name:     "match_label",
			query:    NewQuery(nil).Match(Props{"n": "Person"}),
			expected: "MATCH (n:Person)",
		},
		{
			name:     "match_bare_variable",
			query:    NewQuery(nil).Match(Props{"n": nil}),
			expected: "MATCH (n)",
		},
		{
			name:     "match_inline_props",
			query:    NewQuery(nil).Match(Pred{"n": {"name": "alice"}}),
			expected: "MATCH (n {name: $n_name})",
		},
		{
			name:     "optional_match",
			query:    NewQuery(nil).OptionalMatch(Raw("(n)-[:KNOWS]->(m)")),
			expected: "OPTIONAL MATCH (n)-[:KNOWS]->(m)",
		},
		{
			name:     "match_multiple_patterns",
			query:    NewQuery(nil).Match(Raw("(n)"), Raw("(m)")),
			expected: "MATCH (n), (m)",
		},
		{
			name:     "where_equality",
			query:    NewQuery(nil).Where(Props{"n.age": 30}),
			expected: "WHERE n.age = $n_age",
		},
		{
			name:     "where_null",
			query:    NewQuery(nil).Where(Props{"n.deleted_at": nil}),
			expected: "WHERE n.deleted_at IS NULL",
		},
		{
			name:     "where_membership",
			query:    NewQuery(nil).Where(Props{"n.age": []int{20, 30}}),
			expected: "WHERE n.age IN $n_age",
		},
		{
			name:     "where_not",
			query:    NewQuery(nil).WhereNot(Props{"n.age": 30}),
			expected: "WHERE NOT(n.age = $n_age)",
		},
		{
			name:     "where_nested_predicate",
			query:    NewQuery(nil).Where(Pred{"n": {"age": 30, "name": "bob"}}),
			expected: "WHERE n.age = $n_age AND n.name = $n_name",
		},
		{
			name:     "where_two_clauses_joined_with_and",
			query:    NewQuery(nil).Where(Raw("n.age > 21")).Where(Raw("n.active")),
			expected: "WHERE n.age > 21 AND n.active",
		},
		{
			name:     "create_pattern",
			query:    NewQuery(nil).Create(Pred{"n": {"name": "alice"}}),
			expected: "CREATE (n {name: $n_name})",
		},
		{
			name:     "create_unique",
			query:    NewQuery(nil).CreateUnique(Raw("(n)-[:KNOWS]->(m)")),
			expected: "CREATE UNIQUE (n)-[:KNOWS]->(m)",
		},
		{
			name:     "merge_label",
			query:    NewQuery(nil).Merge(Props{"n": "Person"}),
			expected: "MERGE (n:Person)",
		},
		{
			name:     "set_whole_object",
			query:    NewQuery(nil).Set(Props{"n": Props{"name": "x"}}),
			expected: "SET n = $n_set",
		},
		{
			name:     "set_per_property",
			query:    NewQuery(nil).SetProps(Props{"n": Props{"age": 1, "name": "x"}}),
			expected: "SET n.age = $n_age, n.name = $n_name",
		},
		{
			name:     "on_create_set",
			query:    NewQuery(nil).Merge(Props{"n": "Person"}).OnCreateSet(Props{"n": Props{"created": true}}),
			expected: "MERGE (n:Person) ON CREATE SET n.created = $n_created",
		},
		{
			name:     "on_match_set",
			query:    NewQuery(nil).Merge(Props{"n": "Person"}).OnMatchSet(Props{"n": Props{"seen": true}}),
			expected: "MERGE (n:Person) ON MATCH SET n.seen = $n_seen",
		},
		{
			name:     "remove_label",
			query:    NewQuery(nil).Remove(Props{"n": "Obsolete"}),
			expected: "REMOVE n:Obsolete",
		},
		{
			name:     "unwind_alias",
			query:    NewQuery(nil).Unwind(Props{"x": "coll"}),
			expected: "UNWIND coll AS x",
		},
		{
			name:     "unwind_bound_collection",
			query:    NewQuery(nil).Unwind(Props{"x": []int{1, 2, 3}}),
			expected: "UNWIND $x AS x",
		},
		{
			name:     "delete",
			query:    NewQuery(nil).Match(Raw("(n)")).Delete(Raw("n")),
			expected: "MATCH (n) DELETE n",
		},
		{
			name:     "return_property",
			query:    NewQuery(nil).Return(Props{"n": "name"}),
			expected: "RETURN n.name",
		},
		{
			name:     "return_property_list",
			query:    NewQuery(nil).Return(Props{"n": []string{"age", "name"}}),
			expected: "RETURN n.age, n.name",
		},
		{
			name:     "return_bound_alias",
			query:    NewQuery(nil).Return(Props{"answer": 42}),
			expected: "RETURN $answer AS answer",
		},
		{
			name:     "order_with_direction",
			query:    NewQuery(nil).Return(Raw("n")).Order(Props{"n.name": "desc"}),
			expected: "RETURN n ORDER BY n.name DESC",
		},
		{
			name:     "order_default_direction",
			query:    NewQuery(nil).Return(Raw("n")).Order(Props{"n.name": nil}),
			expected: "RETURN n ORDER BY n.name",
		},
		{
			name:     "skip_and_limit",
			query:    NewQuery(nil).Return(Raw("n")).Skip(5).Limit(10),
			expected: "RETURN n SKIP 5 LIMIT 10",
		},
		{
			name:     "offset_alias",
			query:    NewQuery(nil).Return(Raw("n")).Offset(3),
			expected: "RETURN n SKIP 3",
		},
		{
			name:     "start_legacy",
			query:    NewQuery(nil).Start(Props{"n": "node(1)"}),
			expected: "START n = node(1)",
		},
		{
			name:     "using_hint",
			query:    NewQuery(nil).Match(Raw("(n:Person)")).Using(Raw("INDEX n:Person(name)")),
			expected: "MATCH (n:Person) USING INDEX n:Person(name)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.query.ToCypher(); got != tt.expected {
				t.Errorf("got %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestClauseParameterBinding(t *testing.T) {
	q := NewQuery(nil).Match(Pred{"n": {"name": "alice"}}).Where(Props{"n.age": 30})

	params := q.MergedParams()
	want := map[string]interface{}{"n_name": "alice", "n_age": 30}
	if !reflect.DeepEqual(params, want) {
		t.Errorf("params = %v, want %v", params, want)
	}
}

func TestParameterNameCollisionWithinClause(t *testing.T) {
	// "n.age" and "n_age" sanitize to the same hint; the second binding gets
	// a numeric suffix.
	q := NewQuery(nil).Where(Props{"n.age": 1, "n_age": 2})

	if got := q.ToCypher(); got != "WHERE n.age = $n_age AND n_age = $n_age_2" {
		t.Errorf("unexpected cypher: %q", got)
	}
	params := q.MergedParams()
	if params["n_age"] != 1 || params["n_age_2"] != 2 {
		t.Errorf("unexpected params: %v", params)
	}
}

func TestParameterCollisionAcrossClausesLastWins(t *testing.T) {
	q := NewQuery(nil).Where(Props{"n.age": 1}).Where(Props{"n.age": 2})

	if got := q.MergedParams()["n_age"]; got != 2 {
		t.Errorf("n_age = %v, want 2", got)
	}
}

func TestKindString(t *testing.T) {
	if got := KindOptionalMatch.String(); got != "OPTIONAL MATCH" {
		t.Errorf("got %q", got)
	}
	if got := Kind(99).String(); got != "UNKNOWN" {
		t.Errorf("got %q", got)
	}
}

package cypher

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
)

// Arg is one argument to a clause-building method. The set of shapes is
// closed: Raw literal fragments, Props key/value mappings, and Pred nested
// variable-to-properties predicates. How a shape renders depends on the
// clause kind receiving it.
type Arg interface {
	arg()
}

// Raw is a literal Cypher fragment inserted verbatim, e.g.
// Raw("(n:Person)-[:KNOWS]->(m)") or Raw("n.age > 21").
type Raw string

func (Raw) arg() {}

// Props is a key/value mapping. Its meaning is clause-specific: variable to
// label for patterns (MATCH, CREATE, MERGE, ...), identifier to bound value
// for WHERE and SET, alias to expression for UNWIND, projection for RETURN
// and WITH, expression to sort direction for ORDER BY.
type Props map[string]interface{}

func (Props) arg() {}

// Pred maps a variable name to a property mapping. In patterns it renders an
// inline property match; in WHERE and SET-family clauses it expands to
// per-property comparisons or assignments with auto-bound parameters.
type Pred map[string]Props

func (Pred) arg() {}

// binder accumulates a clause's private parameter bindings. Auto-generated
// names follow a deterministic scheme: the sanitized hint, then
// "<hint>_2", "<hint>_3", ... on collision within the same clause.
type binder struct {
	params map[string]interface{}
}

func newBinder() *binder {
	return &binder{params: make(map[string]interface{})}
}

func (b *binder) bind(hint string, value interface{}) string {
	name := sanitizeHint(hint)
	if _, taken := b.params[name]; taken {
		for i := 2; ; i++ {
			candidate := fmt.Sprintf("%s_%d", name, i)
			if _, t := b.params[candidate]; !t {
				name = candidate
				break
			}
		}
	}
	b.params[name] = value
	return name
}

// sanitizeHint turns an arbitrary expression into a legal parameter
// identifier ("n.name" becomes "n_name").
func sanitizeHint(hint string) string {
	var sb strings.Builder
	for _, r := range hint {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			sb.WriteRune(r)
		default:
			sb.WriteByte('_')
		}
	}
	if sb.Len() == 0 {
		return "param"
	}
	return sb.String()
}

// sortedKeys returns map keys in lexical order so rendering is deterministic.
func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// asProps normalizes nested mapping values: both Props and plain
// map[string]interface{} are accepted in Props values.
func asProps(v interface{}) (Props, bool) {
	switch m := v.(type) {
	case Props:
		return m, true
	case map[string]interface{}:
		return Props(m), true
	}
	return nil, false
}

// isSequence reports whether v is a slice or array (excluding []byte, which
// binds as a scalar).
func isSequence(v interface{}) bool {
	if _, ok := v.([]byte); ok {
		return false
	}
	rv := reflect.ValueOf(v)
	return rv.IsValid() && (rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array)
}

// buildFragments renders one argument into its clause-group fragments,
// binding parameters as needed. The rule table is total over every
// (kind, shape) pair.
func buildFragments(k Kind, flags clauseFlags, a Arg, b *binder) []string {
	switch arg := a.(type) {
	case Raw:
		return []string{string(arg)}
	case Props:
		return buildProps(k, flags, arg, b)
	case Pred:
		return buildPred(k, flags, arg, b)
	}
	return nil
}

func buildProps(k Kind, flags clauseFlags, props Props, b *binder) []string {
	var frags []string
	for _, key := range sortedKeys(props) {
		frags = append(frags, buildPropEntry(k, flags, key, props[key], b)...)
	}
	return frags
}

func buildPropEntry(k Kind, flags clauseFlags, key string, val interface{}, b *binder) []string {
	switch k {
	case KindStart:
		// n: "node(1)"  =>  n = node(1)
		if s, ok := val.(string); ok {
			return []string{key + " = " + s}
		}
		return []string{key + " = $" + b.bind(key, val)}

	case KindMatch, KindOptionalMatch, KindCreate, KindCreateUnique, KindMerge:
		return []string{patternEntry(key, val, b)}

	case KindWhere:
		return []string{conditionEntry(key, val, b)}

	case KindSet, KindOnCreateSet, KindOnMatchSet:
		return assignmentEntries(key, val, flags.perProp, b)

	case KindRemove:
		// n: "Label"  =>  n:Label
		if s, ok := val.(string); ok {
			return []string{key + ":" + s}
		}
		return []string{key + "." + fmt.Sprint(val)}

	case KindUnwind:
		// x: "coll"  =>  coll AS x; non-string values bind as a parameter
		if s, ok := val.(string); ok {
			return []string{s + " AS " + key}
		}
		return []string{"$" + b.bind(key, val) + " AS " + key}

	case KindDelete:
		return []string{key}

	case KindWith, KindReturn:
		return projectionEntries(key, val, b)

	case KindOrder:
		// "n.name": "desc"  =>  n.name DESC
		if val == nil {
			return []string{key}
		}
		if s, ok := val.(string); ok && s != "" {
			return []string{key + " " + strings.ToUpper(s)}
		}
		return []string{key}

	case KindUsing:
		return []string{key + " " + fmt.Sprint(val)}
	}
	return []string{key}
}

// patternEntry renders one variable of a node pattern.
func patternEntry(key string, val interface{}, b *binder) string {
	if props, ok := asProps(val); ok {
		return "(" + key + " " + inlineProps(key, props, b) + ")"
	}
	switch v := val.(type) {
	case nil:
		return "(" + key + ")"
	case string:
		return "(" + key + ":" + v + ")"
	default:
		return "(" + key + ":" + fmt.Sprint(v) + ")"
	}
}

// inlineProps renders {name: $var_name, ...} with each value auto-bound.
func inlineProps(varName string, props Props, b *binder) string {
	parts := make([]string, 0, len(props))
	for _, p := range sortedKeys(props) {
		name := b.bind(varName+"_"+p, props[p])
		parts = append(parts, p+": $"+name)
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// conditionEntry renders one WHERE condition for an identifier.
func conditionEntry(key string, val interface{}, b *binder) string {
	switch {
	case val == nil:
		return key + " IS NULL"
	case isSequence(val):
		return key + " IN $" + b.bind(key, val)
	default:
		return key + " = $" + b.bind(key, val)
	}
}

// assignmentEntries renders SET-family assignments. Whole-object form binds
// the mapping as one parameter; per-property form expands to one assignment
// per key.
func assignmentEntries(key string, val interface{}, perProp bool, b *binder) []string {
	props, isMap := asProps(val)
	if !isMap {
		return []string{key + " = $" + b.bind(key, val)}
	}
	if !perProp {
		name := b.bind(key+"_set", map[string]interface{}(props))
		return []string{key + " = $" + name}
	}
	frags := make([]string, 0, len(props))
	for _, p := range sortedKeys(props) {
		name := b.bind(key+"_"+p, props[p])
		frags = append(frags, key+"."+p+" = $"+name)
	}
	return frags
}

// projectionEntries renders RETURN/WITH projections for one variable.
func projectionEntries(key string, val interface{}, b *binder) []string {
	switch v := val.(type) {
	case nil:
		return []string{key}
	case string:
		return []string{key + "." + v}
	case []string:
		frags := make([]string, len(v))
		for i, p := range v {
			frags[i] = key + "." + p
		}
		return frags
	case []interface{}:
		frags := make([]string, len(v))
		for i, p := range v {
			frags[i] = key + "." + fmt.Sprint(p)
		}
		return frags
	default:
		return []string{"$" + b.bind(key, v) + " AS " + key}
	}
}

func buildPred(k Kind, flags clauseFlags, pred Pred, b *binder) []string {
	var frags []string
	for _, varName := range sortedKeys(pred) {
		props := pred[varName]
		switch k {
		case KindMatch, KindOptionalMatch, KindCreate, KindCreateUnique, KindMerge:
			frags = append(frags, "("+varName+" "+inlineProps(varName, props, b)+")")
		case KindWhere:
			for _, p := range sortedKeys(props) {
				frags = append(frags, conditionEntry(varName+"."+p, props[p], b))
			}
		case KindSet, KindOnCreateSet, KindOnMatchSet:
			for _, p := range sortedKeys(props) {
				name := b.bind(varName+"_"+p, props[p])
				frags = append(frags, varName+"."+p+" = $"+name)
			}
		default:
			// Remaining kinds treat the predicate like a flattened mapping.
			for _, p := range sortedKeys(props) {
				frags = append(frags, buildPropEntry(k, flags, varName+"."+p, props[p], b)...)
			}
		}
	}
	return frags
}

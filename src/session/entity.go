package session

// Node is a materialized graph node.
type Node struct {
	ID     int64
	Labels []string
	Props  map[string]interface{}
}

// Relationship is a materialized graph relationship.
type Relationship struct {
	ID      int64
	Type    string
	StartID int64
	EndID   int64
	Props   map[string]interface{}
}

// Transport adapters normalize graph entities into tagged maps using these
// keys; WrapValue turns the tagged maps back into Node and Relationship
// values.
const (
	entityIDKey     = "_entity_id"
	entityLabelsKey = "_entity_labels"
	entityTypeKey   = "_entity_type"
	entityStartKey  = "_entity_start"
	entityEndKey    = "_entity_end"
	entityPropsKey  = "_entity_props"
)

// TagNode encodes a node as a normalized tagged map.
func TagNode(id int64, labels []string, props map[string]interface{}) map[string]interface{} {
	return map[string]interface{}{
		entityIDKey:     id,
		entityLabelsKey: labels,
		entityPropsKey:  props,
	}
}

// TagRelationship encodes a relationship as a normalized tagged map.
func TagRelationship(id int64, typ string, start, end int64, props map[string]interface{}) map[string]interface{} {
	return map[string]interface{}{
		entityIDKey:    id,
		entityTypeKey:  typ,
		entityStartKey: start,
		entityEndKey:   end,
		entityPropsKey: props,
	}
}

// WrapValue materializes tagged entity maps into Node or Relationship values
// and recurses into plain maps and slices. Values without entity tags pass
// through unchanged.
func WrapValue(v interface{}) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		if wrapped, ok := wrapEntity(val); ok {
			return wrapped
		}
		out := make(map[string]interface{}, len(val))
		for k, inner := range val {
			out[k] = WrapValue(inner)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, inner := range val {
			out[i] = WrapValue(inner)
		}
		return out
	default:
		return v
	}
}

func wrapEntity(m map[string]interface{}) (interface{}, bool) {
	id, hasID := asInt64(m[entityIDKey])
	if !hasID {
		return nil, false
	}
	props, _ := m[entityPropsKey].(map[string]interface{})
	if typ, ok := m[entityTypeKey].(string); ok {
		start, _ := asInt64(m[entityStartKey])
		end, _ := asInt64(m[entityEndKey])
		return Relationship{ID: id, Type: typ, StartID: start, EndID: end, Props: props}, true
	}
	if rawLabels, ok := m[entityLabelsKey]; ok {
		return Node{ID: id, Labels: asStrings(rawLabels), Props: props}, true
	}
	return nil, false
}

func asInt64(v interface{}) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case float64:
		return int64(n), true
	}
	return 0, false
}

func asStrings(v interface{}) []string {
	switch list := v.(type) {
	case []string:
		return list
	case []interface{}:
		out := make([]string, 0, len(list))
		for _, e := range list {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

package session

// Row is one result row exposing its requested columns by name. In wrapped
// mode (the default) tagged entity values are materialized into Node and
// Relationship; unwrapped rows carry the adapter's raw values.
type Row struct {
	columns []string
	values  []interface{}
	index   map[string]int
}

// NewRow builds a row from values in column order, wrapping entities unless
// unwrapped is set. The caller's slice is never modified.
func NewRow(columns []string, values []interface{}, unwrapped bool) Row {
	if !unwrapped {
		wrapped := make([]interface{}, len(values))
		for i, v := range values {
			wrapped[i] = WrapValue(v)
		}
		values = wrapped
	}
	index := make(map[string]int, len(columns))
	for i, c := range columns {
		index[c] = i
	}
	return Row{columns: columns, values: values, index: index}
}

// NewRowFromMap builds a row from a column-keyed map.
func NewRowFromMap(columns []string, record map[string]interface{}, unwrapped bool) Row {
	values := make([]interface{}, len(columns))
	for i, c := range columns {
		values[i] = record[c]
	}
	return NewRow(columns, values, unwrapped)
}

// Columns returns the row's column names in result order.
func (r Row) Columns() []string { return r.columns }

// Get returns the value bound to the named column, nil when absent.
func (r Row) Get(name string) interface{} {
	i, ok := r.index[name]
	if !ok {
		return nil
	}
	return r.values[i]
}

// Values returns the row's values in column order.
func (r Row) Values() []interface{} { return r.values }

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
)

func writeTable(w io.Writer, cols []string, rows []map[string]interface{}) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	defer func() { _ = tw.Flush() }()

	if len(cols) > 0 {
		_, _ = fmt.Fprintln(tw, strings.Join(cols, "\t"))
	}

	for _, row := range rows {
		line := make([]string, 0, len(cols))
		for _, col := range cols {
			line = append(line, stringifyValue(row[col]))
		}
		_, _ = fmt.Fprintln(tw, strings.Join(line, "\t"))
	}
	return nil
}

func writeJSONLines(w io.Writer, rows []map[string]interface{}) error {
	enc := json.NewEncoder(w)
	for _, row := range rows {
		if err := enc.Encode(row); err != nil {
			return err
		}
	}
	return nil
}

func writeJSONArray(w io.Writer, rows []map[string]interface{}) error {
	if rows == nil {
		rows = []map[string]interface{}{}
	}
	enc := json.NewEncoder(w)
	return enc.Encode(rows)
}

func stringifyValue(v interface{}) string {
	if v == nil {
		return "null"
	}

	switch x := v.(type) {
	case string:
		return x
	case bool:
		if x {
			return "true"
		}
		return "false"
	default:
		b, err := json.Marshal(v)
		if err == nil {
			return string(b)
		}
		return fmt.Sprint(v)
	}
}

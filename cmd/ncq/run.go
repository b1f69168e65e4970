package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/andreasronge/neo4j-core/src/driver"
)

func runCommand(args []string) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	urlFlag := fs.String("url", os.Getenv("NCQ_URL"), "Connection URL (or set NCQ_URL)")
	queryFlag := fs.String("query", "", "Query string (if no file is provided)")
	paramsFlag := fs.String("params", "", "Params as JSON object (e.g. '{\"n\": 1}')")
	paramsFileFlag := fs.String("params-file", "", "Path to JSON file containing params")
	formatFlag := fs.String("format", "table", "Output format: table|json|jsonl")
	timeoutFlag := fs.Duration("timeout", 0, "Optional context timeout (e.g. 10s, 1m). 0 disables.")
	traceFlag := fs.Bool("trace", false, "Print OpenTelemetry spans and metrics to stderr")
	noSummaryFlag := fs.Bool("no-summary", false, "Do not print summary to stderr")

	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return &exitError{code: 0}
		}
		return usageErrorf(2, "%v", err)
	}

	if *urlFlag == "" {
		return usageErrorf(2, "Missing --url (or set NCQ_URL)")
	}

	query, err := resolveQuery(*queryFlag, fs.Args())
	if err != nil {
		return err
	}

	params, err := resolveParams(*paramsFlag, *paramsFileFlag)
	if err != nil {
		return err
	}

	ctx := context.Background()
	if *timeoutFlag > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, *timeoutFlag)
		defer cancel()
	}

	if *traceFlag {
		shutdown, err := setupTelemetry()
		if err != nil {
			return err
		}
		defer shutdown()
	}

	dr, err := driver.NewDriver(*urlFlag)
	if err != nil {
		return err
	}
	defer func() { _ = dr.Close() }()

	cols, rows, summary, err := dr.RunWithSummary(ctx, query, params, nil)
	if err != nil {
		return err
	}

	switch strings.ToLower(*formatFlag) {
	case "table":
		err = writeTable(os.Stdout, cols, rows)
	case "json":
		err = writeJSONArray(os.Stdout, rows)
	case "jsonl":
		err = writeJSONLines(os.Stdout, rows)
	default:
		return usageErrorf(2, "Unknown --format %q (expected table|json|jsonl)", *formatFlag)
	}
	if err != nil {
		return err
	}

	if !*noSummaryFlag && summary != nil {
		fmt.Fprintf(os.Stderr, "rows=%d time=%s type=%s\n",
			summary.RecordsConsumed,
			summary.ExecutionTime.Truncate(time.Microsecond),
			summary.QueryType)
	}

	return nil
}

func resolveQuery(queryFlag string, remainingArgs []string) (string, error) {
	if queryFlag != "" {
		if len(remainingArgs) != 0 {
			return "", usageErrorf(2, "Provide either --query or a file path, not both")
		}
		return normalizeQuery(queryFlag), nil
	}

	if len(remainingArgs) > 1 {
		return "", usageErrorf(2, "Usage: ncq run [flags] [file|-]")
	}

	filename := "-"
	if len(remainingArgs) == 1 {
		filename = remainingArgs[0]
	}

	var content []byte
	var err error
	if filename == "-" {
		content, err = io.ReadAll(os.Stdin)
	} else {
		content, err = os.ReadFile(filename)
	}
	if err != nil {
		return "", err
	}

	query := normalizeQuery(string(content))
	if query == "" {
		return "", usageErrorf(2, "Query is empty")
	}
	return query, nil
}

func normalizeQuery(query string) string {
	q := strings.TrimSpace(query)
	q = strings.TrimSuffix(q, ";")
	return strings.TrimSpace(q)
}

func resolveParams(paramsFlag string, paramsFile string) (map[string]interface{}, error) {
	if paramsFlag != "" && paramsFile != "" {
		return nil, usageErrorf(2, "Provide either --params or --params-file, not both")
	}

	if paramsFlag == "" && paramsFile == "" {
		return map[string]interface{}{}, nil
	}

	var data []byte
	if paramsFile != "" {
		b, err := os.ReadFile(paramsFile)
		if err != nil {
			return nil, err
		}
		data = b
	} else {
		data = []byte(paramsFlag)
	}

	dec := json.NewDecoder(strings.NewReader(string(data)))
	dec.UseNumber()
	var v interface{}
	if err := dec.Decode(&v); err != nil {
		return nil, usageErrorf(2, "Invalid params JSON: %v", err)
	}

	params, ok := normalizeJSONNumbers(v).(map[string]interface{})
	if !ok {
		return nil, usageErrorf(2, "Params must be a JSON object")
	}
	return params, nil
}

func normalizeJSONNumbers(v interface{}) interface{} {
	switch x := v.(type) {
	case map[string]interface{}:
		for k, vv := range x {
			x[k] = normalizeJSONNumbers(vv)
		}
		return x
	case []interface{}:
		for i, vv := range x {
			x[i] = normalizeJSONNumbers(vv)
		}
		return x
	case json.Number:
		s := x.String()
		if !strings.ContainsAny(s, ".eE") {
			if i, err := x.Int64(); err == nil {
				return i
			}
		}
		if f, err := x.Float64(); err == nil {
			return f
		}
		return s
	default:
		return v
	}
}

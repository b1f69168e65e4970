package driver

import (
	"context"
	"errors"
	"time"

	"github.com/andreasronge/neo4j-core/src/bolt"
)

func (d *driver) Run(ctx context.Context, query string, params map[string]interface{}, metaData map[string]interface{}) ([]string, []map[string]interface{}, error) {
	cols, rows, _, err := d.RunWithSummary(ctx, query, params, metaData)
	return cols, rows, err
}

func (d *driver) RunWithSummary(ctx context.Context, query string, params map[string]interface{}, metaData map[string]interface{}) ([]string, []map[string]interface{}, *ResultSummary, error) {
	var (
		cols    []string
		rows    []map[string]interface{}
		summary *ResultSummary
	)
	run := func() error {
		var err error
		cols, rows, summary, err = d.runOnce(ctx, query, params, metaData)
		return err
	}

	var err error
	if d.config.Retry != nil && d.config.Retry.MaxAttempts > 1 {
		err = d.config.Retry.Do(ctx, run)
	} else {
		err = run()
	}
	return cols, rows, summary, err
}

func (d *driver) runOnce(ctx context.Context, query string, params map[string]interface{}, metaData map[string]interface{}) ([]string, []map[string]interface{}, *ResultSummary, error) {
	startTime := time.Now()

	if d.config.LogQueryTiming {
		d.logger.Info("Executing query", "query", query, "param_count", len(params))
	} else {
		d.logger.Debug("Executing query", "query", query, "params", params, "metadata", metaData)
	}

	summary := &ResultSummary{
		QueryText:     query,
		Parameters:    params,
		ServerAddress: d.cfg.Address(),
		QueryType:     inferQueryType(query),
	}

	var spanCtx *spanContext
	if d.observability != nil {
		ctx, spanCtx = d.observability.startQuerySpan(ctx, query, params, d.config.Observability)
	} else {
		spanCtx = &spanContext{startTime: startTime}
	}

	finish := func(err error) {
		if d.observability != nil {
			d.observability.finishQuerySpan(spanCtx, summary, err, d.config.Observability)
		}
	}

	conn, err := d.pool.Get()
	defer d.pool.Put(conn, err)
	if err != nil {
		d.logger.Error("Failed to acquire connection from pool", "error", err)
		if d.observability != nil {
			d.observability.recordConnectionEvent("connect", d.config.Observability, err)
		}
		finish(err)
		return nil, nil, summary, err
	}
	if d.observability != nil {
		d.observability.recordConnectionEvent("connect", d.config.Observability, nil)
	}

	bc, err := d.prepare(conn)
	if err != nil {
		d.logger.Error("Bolt session setup failed", "error", err)
		finish(err)
		return nil, nil, summary, err
	}

	cols, rows, err := bc.Run(query, params, metaData)
	err = wrapServerFailure(err)

	summary.ExecutionTime = time.Since(startTime)
	if rows != nil {
		summary.RecordsAvailable = int64(len(rows))
		summary.RecordsConsumed = int64(len(rows))
	}

	if err != nil {
		d.logger.Error("Query execution failed", "error", err, "duration", summary.ExecutionTime)
	} else if d.config.LogQueryTiming {
		d.logger.Info("Query completed", "duration", summary.ExecutionTime, "records", summary.RecordsConsumed, "query_type", summary.QueryType)
	} else {
		d.logger.Debug("Query completed", "duration", summary.ExecutionTime, "records", summary.RecordsConsumed, "columns", len(cols))
	}

	finish(err)
	return cols, rows, summary, err
}

// wrapServerFailure converts a Bolt FAILURE reply into a *DatabaseError so
// callers can inspect Neo4j status codes.
func wrapServerFailure(err error) error {
	if err == nil {
		return nil
	}
	var sf *bolt.ServerFailure
	if errors.As(err, &sf) {
		return &DatabaseError{Code: sf.Code, Message: sf.Message}
	}
	return err
}

package driver

import (
	"strings"
	"time"
)

// ResultSummary contains query execution metadata.
type ResultSummary struct {
	QueryText     string
	Parameters    map[string]interface{}
	ExecutionTime time.Duration

	RecordsAvailable int64
	RecordsConsumed  int64

	ServerAddress string

	// QueryType is READ, WRITE, READ_WRITE or SCHEMA_WRITE, inferred from
	// the query text.
	QueryType string
}

// inferQueryType classifies a query by scanning for write keywords.
func inferQueryType(query string) string {
	upper := strings.ToUpper(query)
	schema := strings.Contains(upper, "CREATE INDEX") ||
		strings.Contains(upper, "DROP INDEX") ||
		strings.Contains(upper, "CREATE CONSTRAINT") ||
		strings.Contains(upper, "DROP CONSTRAINT")
	if schema {
		return "SCHEMA_WRITE"
	}
	write := false
	for _, kw := range []string{"CREATE", "MERGE", "DELETE", "SET ", "REMOVE ", "DETACH"} {
		if strings.Contains(upper, kw) {
			write = true
			break
		}
	}
	read := strings.Contains(upper, "MATCH") || strings.Contains(upper, "RETURN")
	switch {
	case write && read:
		return "READ_WRITE"
	case write:
		return "WRITE"
	default:
		return "READ"
	}
}

// DatabaseError represents a database server error.
type DatabaseError struct {
	Code    string
	Message string
}

func (e *DatabaseError) Error() string {
	if e.Code != "" {
		return e.Code + ": " + e.Message
	}
	return e.Message
}

// IsRetriable returns true if the error is transient and can be retried.
func (e *DatabaseError) IsRetriable() bool {
	return e.IsTransient() || e.IsClusterError() || e.IsConflict()
}

// IsTransient returns true for transient/temporary errors.
func (e *DatabaseError) IsTransient() bool {
	code := strings.ToLower(e.Code)
	msg := strings.ToLower(e.Message)
	return strings.Contains(code, "transient") ||
		strings.Contains(msg, "timeout") ||
		strings.Contains(msg, "unavailable") ||
		strings.Contains(msg, "temporarily")
}

// IsClusterError returns true for cluster/replication errors.
func (e *DatabaseError) IsClusterError() bool {
	code := strings.ToLower(e.Code)
	msg := strings.ToLower(e.Message)
	return strings.Contains(code, "notaleader") ||
		strings.Contains(code, "readonly") ||
		strings.Contains(msg, "not a leader") ||
		strings.Contains(msg, "read-only") ||
		strings.Contains(msg, "read only")
}

// IsConflict returns true for transaction conflict/deadlock errors.
func (e *DatabaseError) IsConflict() bool {
	code := strings.ToLower(e.Code)
	msg := strings.ToLower(e.Message)
	return strings.Contains(code, "deadlock") ||
		strings.Contains(code, "conflict") ||
		strings.Contains(msg, "deadlock") ||
		strings.Contains(msg, "conflicting transactions") ||
		strings.Contains(msg, "lock timeout") ||
		strings.Contains(msg, "serialization failure")
}

// IsAuthError returns true for authentication/authorization errors.
func (e *DatabaseError) IsAuthError() bool {
	code := strings.ToLower(e.Code)
	msg := strings.ToLower(e.Message)
	return strings.Contains(code, "security") ||
		strings.Contains(code, "auth") ||
		strings.Contains(msg, "authentication") ||
		strings.Contains(msg, "unauthorized")
}

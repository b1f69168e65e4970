package cypher

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestZapInstrumenterLogsOutcome(t *testing.T) {
	core, observed := observer.New(zap.DebugLevel)
	in := ZapInstrumenter(zap.New(core))

	ev := QueryEvent{QueryID: "q-1", Context: "people.load", Cypher: "MATCH (n) RETURN n"}
	in(context.Background(), ev)(nil)
	in(context.Background(), ev)(errors.New("boom"))

	entries := observed.All()
	if len(entries) != 2 {
		t.Fatalf("expected 2 log entries, got %d", len(entries))
	}
	if entries[0].Level != zap.DebugLevel || entries[0].Message != "cypher query executed" {
		t.Errorf("unexpected success entry: %+v", entries[0].Entry)
	}
	if entries[1].Level != zap.ErrorLevel || entries[1].Message != "cypher query failed" {
		t.Errorf("unexpected failure entry: %+v", entries[1].Entry)
	}
	fields := entries[0].ContextMap()
	if fields["query_id"] != "q-1" || fields["context"] != "people.load" {
		t.Errorf("unexpected fields: %v", fields)
	}
}

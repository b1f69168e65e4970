package bolt

import (
	"bytes"
	"errors"
	"reflect"
	"testing"

	"github.com/andreasronge/neo4j-core/src/session"
)

func TestPackstreamRoundTrip(t *testing.T) {
	value := map[string]interface{}{
		"name":    "alice",
		"age":     int64(30),
		"score":   97.5,
		"active":  true,
		"manager": nil,
		"tags":    []interface{}{"admin", int64(-17), false},
	}

	var buf bytes.Buffer
	if err := NewPacker(&buf).Pack(value); err != nil {
		t.Fatalf("Pack() error: %v", err)
	}
	got, err := NewUnpacker(&buf).Unpack()
	if err != nil {
		t.Fatalf("Unpack() error: %v", err)
	}
	if !reflect.DeepEqual(got, value) {
		t.Errorf("round trip mismatch:\n got  %#v\n want %#v", got, value)
	}
}

func TestIntegerMarkerSelection(t *testing.T) {
	tests := []struct {
		value  int64
		marker byte
		size   int
	}{
		{0, 0x00, 1},
		{127, 0x7F, 1},
		{-16, 0xF0, 1},
		{-17, markerInt8, 2},
		{-128, markerInt8, 2},
		{128, markerInt16, 3},
		{-32768, markerInt16, 3},
		{32768, markerInt32, 5},
		{1 << 40, markerInt64, 9},
	}
	for _, tt := range tests {
		var buf bytes.Buffer
		if err := NewPacker(&buf).Pack(tt.value); err != nil {
			t.Fatalf("Pack(%d) error: %v", tt.value, err)
		}
		data := buf.Bytes()
		if len(data) != tt.size || data[0] != tt.marker {
			t.Errorf("Pack(%d) = % x, want marker 0x%x in %d bytes", tt.value, data, tt.marker, tt.size)
		}
		got, err := NewUnpacker(&buf).Unpack()
		if err != nil {
			t.Fatalf("Unpack after Pack(%d) error: %v", tt.value, err)
		}
		if got != tt.value {
			t.Errorf("round trip of %d = %v", tt.value, got)
		}
	}
}

func TestPackStringSizeHeaders(t *testing.T) {
	for _, size := range []int{0, 15, 16, 255, 256} {
		var buf bytes.Buffer
		s := string(bytes.Repeat([]byte("x"), size))
		if err := NewPacker(&buf).Pack(s); err != nil {
			t.Fatalf("Pack(len %d) error: %v", size, err)
		}
		got, err := NewUnpacker(&buf).Unpack()
		if err != nil {
			t.Fatalf("Unpack(len %d) error: %v", size, err)
		}
		if got != s {
			t.Errorf("string of length %d did not survive the round trip", size)
		}
	}
}

func TestPackTypedSliceReflection(t *testing.T) {
	var buf bytes.Buffer
	if err := NewPacker(&buf).Pack([]string{"a", "b"}); err != nil {
		t.Fatalf("Pack([]string) error: %v", err)
	}
	got, err := NewUnpacker(&buf).Unpack()
	if err != nil {
		t.Fatalf("Unpack() error: %v", err)
	}
	if !reflect.DeepEqual(got, []interface{}{"a", "b"}) {
		t.Errorf("got %#v", got)
	}
}

func TestPackRejectsUnsupportedTypes(t *testing.T) {
	var protoErr *ProtocolError
	err := NewPacker(&bytes.Buffer{}).Pack(struct{}{})
	if !errors.As(err, &protoErr) {
		t.Errorf("expected ProtocolError, got %v", err)
	}
	err = NewPacker(&bytes.Buffer{}).Pack([]byte{1, 2})
	if !errors.As(err, &protoErr) {
		t.Errorf("expected ProtocolError for []byte, got %v", err)
	}
}

func TestUnpackNodeStructure(t *testing.T) {
	// Node structure: B3 4E <id> <labels> <properties>
	raw := []byte{
		0xB3, 0x4E,
		0x07,
		0x91, 0x86, 'P', 'e', 'r', 's', 'o', 'n',
		0xA1, 0x84, 'n', 'a', 'm', 'e', 0x85, 'a', 'l', 'i', 'c', 'e',
	}
	got, err := NewUnpacker(bytes.NewReader(raw)).Unpack()
	if err != nil {
		t.Fatalf("Unpack() error: %v", err)
	}
	want := session.TagNode(7, []string{"Person"}, map[string]interface{}{"name": "alice"})
	if !reflect.DeepEqual(got, want) {
		t.Errorf("node decoded as %#v, want %#v", got, want)
	}

	node, ok := session.WrapValue(got).(session.Node)
	if !ok {
		t.Fatalf("WrapValue did not produce a Node: %#v", session.WrapValue(got))
	}
	if node.ID != 7 || node.Props["name"] != "alice" {
		t.Errorf("unexpected node: %#v", node)
	}
}

func TestUnpackRelationshipStructure(t *testing.T) {
	// Relationship structure: B5 52 <id> <start> <end> <type> <properties>
	raw := []byte{
		0xB5, 0x52,
		0x01, 0x02, 0x03,
		0x85, 'K', 'N', 'O', 'W', 'S',
		0xA0,
	}
	got, err := NewUnpacker(bytes.NewReader(raw)).Unpack()
	if err != nil {
		t.Fatalf("Unpack() error: %v", err)
	}
	want := session.TagRelationship(1, "KNOWS", 2, 3, map[string]interface{}{})
	if !reflect.DeepEqual(got, want) {
		t.Errorf("relationship decoded as %#v, want %#v", got, want)
	}
}

func TestUnpackUnknownStructurePassesThrough(t *testing.T) {
	// A structure with an unrecognized signature decodes to [signature, fields].
	raw := []byte{0xB1, 0x66, 0x2A}
	got, err := NewUnpacker(bytes.NewReader(raw)).Unpack()
	if err != nil {
		t.Fatalf("Unpack() error: %v", err)
	}
	want := []interface{}{byte(0x66), []interface{}{int64(42)}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %#v, want %#v", got, want)
	}
}

func TestUnpackTruncatedStream(t *testing.T) {
	var protoErr *ProtocolError
	// String header promises 5 bytes but only 2 follow.
	_, err := NewUnpacker(bytes.NewReader([]byte{0x85, 'h', 'i'})).Unpack()
	if !errors.As(err, &protoErr) {
		t.Errorf("expected ProtocolError for truncated string, got %v", err)
	}
}

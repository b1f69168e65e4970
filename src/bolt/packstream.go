// Package bolt implements the subset of the Bolt protocol needed to run
// Cypher queries: the Packstream value codec, chunked message framing and the
// handshake/RUN/PULL conversation.
package bolt

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"reflect"

	"github.com/andreasronge/neo4j-core/src/session"
)

// Packstream markers.
const (
	markerNull     = 0xC0
	markerFloat64  = 0xC1
	markerFalse    = 0xC2
	markerTrue     = 0xC3
	markerInt8     = 0xC8
	markerInt16    = 0xC9
	markerInt32    = 0xCA
	markerInt64    = 0xCB
	markerString8  = 0xD0
	markerString16 = 0xD1
	markerList8    = 0xD4
	markerList16   = 0xD5
	markerMap8     = 0xD8
	markerMap16    = 0xD9
	markerStruct8  = 0xDC
	markerStruct16 = 0xDD

	tinyStringBase = 0x80
	tinyListBase   = 0x90
	tinyMapBase    = 0xA0
	tinyStructBase = 0xB0

	highNibbleMask = 0xF0
	lowNibbleMask  = 0x0F
)

// Graph entity structure signatures.
const (
	sigNode         = 0x4E
	sigRelationship = 0x52
)

// ProtocolError reports a Packstream or Bolt framing violation.
type ProtocolError struct {
	Message string
}

func (e *ProtocolError) Error() string { return e.Message }

func protocolErrorf(format string, args ...interface{}) error {
	return &ProtocolError{Message: fmt.Sprintf(format, args...)}
}

// Packer serializes Go values to Packstream.
type Packer struct {
	w io.Writer
}

// NewPacker creates a packer writing to w.
func NewPacker(w io.Writer) *Packer {
	return &Packer{w: w}
}

// Pack serializes one value.
func (p *Packer) Pack(value interface{}) error {
	switch v := value.(type) {
	case nil:
		return p.write(markerNull)
	case bool:
		if v {
			return p.write(markerTrue)
		}
		return p.write(markerFalse)
	case string:
		return p.packString(v)
	case float64:
		var buf [9]byte
		buf[0] = markerFloat64
		binary.BigEndian.PutUint64(buf[1:], math.Float64bits(v))
		return p.write(buf[:]...)
	case int:
		return p.packInt(int64(v))
	case int8:
		return p.packInt(int64(v))
	case int16:
		return p.packInt(int64(v))
	case int32:
		return p.packInt(int64(v))
	case int64:
		return p.packInt(v)
	case map[string]interface{}:
		return p.packMap(v)
	case []interface{}:
		if err := p.packHeader(len(v), tinyListBase, markerList8, markerList16, "list"); err != nil {
			return err
		}
		for _, item := range v {
			if err := p.Pack(item); err != nil {
				return err
			}
		}
		return nil
	case []byte:
		return protocolErrorf("cannot pack type: []byte")
	default:
		rv := reflect.ValueOf(value)
		if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
			if err := p.packHeader(rv.Len(), tinyListBase, markerList8, markerList16, "list"); err != nil {
				return err
			}
			for i := 0; i < rv.Len(); i++ {
				if err := p.Pack(rv.Index(i).Interface()); err != nil {
					return err
				}
			}
			return nil
		}
		return protocolErrorf("cannot pack type: %T", value)
	}
}

func (p *Packer) packString(s string) error {
	data := []byte(s)
	if err := p.packHeader(len(data), tinyStringBase, markerString8, markerString16, "string"); err != nil {
		return err
	}
	_, err := p.w.Write(data)
	return err
}

func (p *Packer) packMap(m map[string]interface{}) error {
	if err := p.packHeader(len(m), tinyMapBase, markerMap8, markerMap16, "map"); err != nil {
		return err
	}
	for k, v := range m {
		if err := p.packString(k); err != nil {
			return err
		}
		if err := p.Pack(v); err != nil {
			return err
		}
	}
	return nil
}

// packHeader writes the size header for a composite value: tiny form below
// 16, one-byte size below 256, two-byte size below 65536.
func (p *Packer) packHeader(size int, tinyBase, marker8, marker16 byte, what string) error {
	switch {
	case size < 16:
		return p.write(tinyBase | byte(size))
	case size < 256:
		return p.write(marker8, byte(size))
	case size < 65536:
		var buf [3]byte
		buf[0] = marker16
		binary.BigEndian.PutUint16(buf[1:], uint16(size))
		return p.write(buf[:]...)
	default:
		return protocolErrorf("%s too large to pack (size %d)", what, size)
	}
}

func (p *Packer) packInt(i int64) error {
	switch {
	case i >= -16 && i <= 127:
		return p.write(byte(i))
	case i >= -128 && i <= 127:
		return p.write(markerInt8, byte(i))
	case i >= -32768 && i <= 32767:
		var buf [3]byte
		buf[0] = markerInt16
		binary.BigEndian.PutUint16(buf[1:], uint16(i))
		return p.write(buf[:]...)
	case i >= -2147483648 && i <= 2147483647:
		var buf [5]byte
		buf[0] = markerInt32
		binary.BigEndian.PutUint32(buf[1:], uint32(i))
		return p.write(buf[:]...)
	default:
		var buf [9]byte
		buf[0] = markerInt64
		binary.BigEndian.PutUint64(buf[1:], uint64(i))
		return p.write(buf[:]...)
	}
}

func (p *Packer) write(b ...byte) error {
	_, err := p.w.Write(b)
	return err
}

// Unpacker deserializes Packstream values. Graph entity structures (Node,
// Relationship) are normalized into the session package's tagged entity
// maps; other structures decode to a [signature, fields] pair.
type Unpacker struct {
	r io.Reader
}

// NewUnpacker creates an unpacker reading from r.
func NewUnpacker(r io.Reader) *Unpacker {
	return &Unpacker{r: r}
}

// Unpack deserializes the next value from the stream.
func (u *Unpacker) Unpack() (interface{}, error) {
	marker, err := u.readByte()
	if err != nil {
		return nil, err
	}
	return u.unpackValue(marker)
}

func (u *Unpacker) unpackValue(marker byte) (interface{}, error) {
	if marker < tinyStringBase {
		return int64(marker), nil
	}
	if marker >= 0xF0 {
		return int64(int8(marker)), nil
	}

	switch marker & highNibbleMask {
	case tinyStringBase:
		return u.unpackString(int(marker & lowNibbleMask))
	case tinyListBase:
		return u.unpackList(int(marker & lowNibbleMask))
	case tinyMapBase:
		return u.unpackMap(int(marker & lowNibbleMask))
	case tinyStructBase:
		return u.unpackStruct(int(marker & lowNibbleMask))
	}

	switch marker {
	case markerNull:
		return nil, nil
	case markerFalse:
		return false, nil
	case markerTrue:
		return true, nil
	case markerFloat64:
		data, err := u.readBytes(8)
		if err != nil {
			return nil, err
		}
		return math.Float64frombits(binary.BigEndian.Uint64(data)), nil
	case markerInt8, markerInt16, markerInt32, markerInt64:
		return u.readInt(1 << (marker - markerInt8))
	case markerString8, markerString16:
		size, err := u.readSize(1 << (marker - markerString8))
		if err != nil {
			return nil, err
		}
		return u.unpackString(size)
	case markerList8, markerList16:
		size, err := u.readSize(1 << (marker - markerList8))
		if err != nil {
			return nil, err
		}
		return u.unpackList(size)
	case markerMap8, markerMap16:
		size, err := u.readSize(1 << (marker - markerMap8))
		if err != nil {
			return nil, err
		}
		return u.unpackMap(size)
	case markerStruct8, markerStruct16:
		size, err := u.readSize(1 << (marker - markerStruct8))
		if err != nil {
			return nil, err
		}
		return u.unpackStruct(size)
	default:
		return nil, protocolErrorf("unknown Packstream marker: 0x%x", marker)
	}
}

func (u *Unpacker) unpackString(size int) (string, error) {
	data, err := u.readBytes(size)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (u *Unpacker) unpackList(size int) ([]interface{}, error) {
	out := make([]interface{}, size)
	for i := range out {
		v, err := u.Unpack()
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (u *Unpacker) unpackMap(size int) (map[string]interface{}, error) {
	out := make(map[string]interface{}, size)
	for i := 0; i < size; i++ {
		k, err := u.Unpack()
		if err != nil {
			return nil, err
		}
		key, ok := k.(string)
		if !ok {
			return nil, protocolErrorf("map key must be a string, got %T", k)
		}
		v, err := u.Unpack()
		if err != nil {
			return nil, err
		}
		out[key] = v
	}
	return out, nil
}

func (u *Unpacker) unpackStruct(size int) (interface{}, error) {
	signature, err := u.readByte()
	if err != nil {
		return nil, err
	}
	fields := make([]interface{}, size)
	for i := range fields {
		f, err := u.Unpack()
		if err != nil {
			return nil, err
		}
		fields[i] = f
	}

	switch signature {
	case sigNode:
		return decodeNode(fields), nil
	case sigRelationship:
		return decodeRelationship(fields), nil
	}
	return []interface{}{signature, fields}, nil
}

// decodeNode normalizes a Node structure [id, labels, properties, ...].
func decodeNode(fields []interface{}) interface{} {
	if len(fields) < 3 {
		return []interface{}{byte(sigNode), fields}
	}
	id, _ := fields[0].(int64)
	var labels []string
	if raw, ok := fields[1].([]interface{}); ok {
		for _, l := range raw {
			if s, ok := l.(string); ok {
				labels = append(labels, s)
			}
		}
	}
	props, _ := fields[2].(map[string]interface{})
	return session.TagNode(id, labels, props)
}

// decodeRelationship normalizes a Relationship structure
// [id, startId, endId, type, properties, ...].
func decodeRelationship(fields []interface{}) interface{} {
	if len(fields) < 5 {
		return []interface{}{byte(sigRelationship), fields}
	}
	id, _ := fields[0].(int64)
	start, _ := fields[1].(int64)
	end, _ := fields[2].(int64)
	typ, _ := fields[3].(string)
	props, _ := fields[4].(map[string]interface{})
	return session.TagRelationship(id, typ, start, end, props)
}

func (u *Unpacker) readByte() (byte, error) {
	var buf [1]byte
	if _, err := io.ReadFull(u.r, buf[:]); err != nil {
		return 0, protocolErrorf("unexpected end of stream: %v", err)
	}
	return buf[0], nil
}

func (u *Unpacker) readSize(n int) (int, error) {
	data, err := u.readBytes(n)
	if err != nil {
		return 0, err
	}
	switch n {
	case 1:
		return int(data[0]), nil
	case 2:
		return int(binary.BigEndian.Uint16(data)), nil
	default:
		return 0, protocolErrorf("invalid size length: %d", n)
	}
}

func (u *Unpacker) readInt(n int) (int64, error) {
	data, err := u.readBytes(n)
	if err != nil {
		return 0, err
	}
	switch n {
	case 1:
		return int64(int8(data[0])), nil
	case 2:
		return int64(int16(binary.BigEndian.Uint16(data))), nil
	case 4:
		return int64(int32(binary.BigEndian.Uint32(data))), nil
	case 8:
		return int64(binary.BigEndian.Uint64(data)), nil
	default:
		return 0, protocolErrorf("invalid int size: %d", n)
	}
}

func (u *Unpacker) readBytes(n int) ([]byte, error) {
	if n == 0 {
		return nil, nil
	}
	data := make([]byte, n)
	if _, err := io.ReadFull(u.r, data); err != nil {
		return nil, protocolErrorf("unexpected end of stream while reading %d bytes", n)
	}
	return data, nil
}

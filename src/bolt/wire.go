package bolt

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"runtime"
	"time"
)

// Bolt message signatures.
const (
	MsgHello   = 0x01
	MsgGoodbye = 0x02
	MsgReset   = 0x0F
	MsgRun     = 0x10
	MsgDiscard = 0x2F
	MsgPull    = 0x3F
	MsgLogon   = 0x6A
	MsgSuccess = 0x70
	MsgRecord  = 0x71
	MsgIgnored = 0x7E
	MsgFailure = 0x7F
)

// DefaultTimeout bounds every handshake and message exchange.
const DefaultTimeout = 30 * time.Second

// LibraryVersion is injected at build time via -ldflags.
var LibraryVersion = "dev"

// ServerFailure is a FAILURE message from the server, carrying the server's
// error code and message.
type ServerFailure struct {
	Code    string
	Message string
}

func (e *ServerFailure) Error() string {
	if e.Code != "" {
		return e.Code + ": " + e.Message
	}
	return e.Message
}

// reply is one decoded response message.
type reply struct {
	signature byte
	fields    []interface{}
}

func (r *reply) metadata() map[string]interface{} {
	if len(r.fields) > 0 {
		if m, ok := r.fields[0].(map[string]interface{}); ok {
			return m
		}
	}
	return map[string]interface{}{}
}

func (r *reply) failure() error {
	meta := r.metadata()
	code, _ := meta["code"].(string)
	msg, _ := meta["message"].(string)
	return &ServerFailure{Code: code, Message: msg}
}

// Conn drives the Bolt conversation over an established network connection.
type Conn struct {
	c net.Conn
}

// NewConn wraps an established connection. Handshake must be called before
// any message exchange.
func NewConn(c net.Conn) *Conn {
	return &Conn{c: c}
}

// Handshake negotiates the protocol version. Only Bolt 5.x is accepted.
func (c *Conn) Handshake() error {
	magic := []byte{
		0x60, 0x60, 0xB0, 0x17,
		0, 0, 8, 5,
		0, 0, 2, 5,
		0, 0, 0, 0,
		0, 0, 0, 0,
	}
	if err := c.c.SetDeadline(time.Now().Add(DefaultTimeout)); err != nil {
		return fmt.Errorf("set deadline: %w", err)
	}
	defer c.c.SetDeadline(time.Time{})

	if _, err := c.c.Write(magic); err != nil {
		return err
	}
	buf := make([]byte, 4)
	if _, err := io.ReadFull(c.c, buf); err != nil {
		return err
	}
	major, minor := buf[3], buf[2]
	if major == 'H' && minor == 'T' {
		return protocolErrorf("server answered with HTTP; Bolt usually listens on port 7687, HTTP on 7474")
	}
	if major != 5 || (minor != 8 && minor != 2) {
		return protocolErrorf("unsupported protocol version %d.%d", major, minor)
	}
	return nil
}

// Hello announces the client to the server.
func (c *Conn) Hello() error {
	goVersion := runtime.Version()
	userAgent := fmt.Sprintf("neo4j-core::Bolt/%s (%s)", LibraryVersion, goVersion)
	meta := map[string]interface{}{
		"user_agent":                     userAgent,
		"notifications_minimum_severity": "WARNING",
		"bolt_agent": map[string]interface{}{
			"product":  userAgent,
			"platform": fmt.Sprintf("%s-%s", runtime.GOARCH, runtime.GOOS),
			"language": fmt.Sprintf("%s/%s", runtime.GOOS, goVersion),
		},
	}
	r, err := c.exchange(MsgHello, meta)
	if err != nil {
		return err
	}
	if r.signature == MsgFailure {
		return r.failure()
	}
	return nil
}

// Logon authenticates with basic credentials.
func (c *Conn) Logon(username, password string) error {
	r, err := c.exchange(MsgLogon, map[string]interface{}{
		"scheme":      "basic",
		"principal":   username,
		"credentials": password,
	})
	if err != nil {
		return err
	}
	if r.signature == MsgFailure {
		return r.failure()
	}
	return nil
}

// Run executes a query and pulls every record, returning the columns and
// column-keyed rows. A server FAILURE surfaces as *ServerFailure.
func (c *Conn) Run(query string, params, metadata map[string]interface{}) ([]string, []map[string]interface{}, error) {
	if params == nil {
		params = map[string]interface{}{}
	}
	if metadata == nil {
		metadata = map[string]interface{}{}
	}

	r, err := c.exchange(MsgRun, query, params, metadata)
	if err != nil {
		return nil, nil, err
	}
	if r.signature == MsgFailure {
		return nil, nil, r.failure()
	}

	var columns []string
	if rawCols, ok := r.metadata()["fields"].([]interface{}); ok {
		for _, col := range rawCols {
			if s, ok := col.(string); ok {
				columns = append(columns, s)
			}
		}
	}

	// One PULL requests the whole stream; the server answers with zero or
	// more RECORD messages followed by SUCCESS.
	if err := c.writeMessage(MsgPull, []interface{}{map[string]interface{}{"n": -1, "qid": -1}}); err != nil {
		return columns, nil, err
	}
	rows := []map[string]interface{}{}
	for {
		rec, err := c.readMessage()
		if err != nil {
			return columns, rows, err
		}
		switch rec.signature {
		case MsgFailure:
			return columns, rows, rec.failure()
		case MsgRecord:
			if len(rec.fields) == 0 {
				return columns, rows, protocolErrorf("malformed RECORD message")
			}
			values, ok := rec.fields[0].([]interface{})
			if !ok {
				return columns, rows, protocolErrorf("malformed RECORD message")
			}
			row := make(map[string]interface{}, len(columns))
			for i, col := range columns {
				if i < len(values) {
					row[col] = values[i]
				}
			}
			rows = append(rows, row)
		default:
			// SUCCESS: stream exhausted.
			return columns, rows, nil
		}
	}
}

// exchange writes one chunked message and reads one chunked reply.
func (c *Conn) exchange(signature byte, fields ...interface{}) (*reply, error) {
	if err := c.writeMessage(signature, fields); err != nil {
		return nil, err
	}
	return c.readMessage()
}

func (c *Conn) writeMessage(signature byte, fields []interface{}) error {
	var body bytes.Buffer
	if len(fields) >= 16 {
		return protocolErrorf("too many fields in message structure")
	}
	body.WriteByte(tinyStructBase | byte(len(fields)))
	body.WriteByte(signature)
	packer := NewPacker(&body)
	for _, f := range fields {
		if err := packer.Pack(f); err != nil {
			return err
		}
	}

	var header [2]byte
	binary.BigEndian.PutUint16(header[:], uint16(body.Len()))
	if _, err := c.c.Write(header[:]); err != nil {
		return err
	}
	if _, err := c.c.Write(body.Bytes()); err != nil {
		return err
	}
	_, err := c.c.Write([]byte{0x00, 0x00})
	return err
}

func (c *Conn) readMessage() (*reply, error) {
	if err := c.c.SetReadDeadline(time.Now().Add(DefaultTimeout)); err != nil {
		return nil, fmt.Errorf("set read deadline: %w", err)
	}
	defer c.c.SetReadDeadline(time.Time{})

	var message bytes.Buffer
	for {
		var header [2]byte
		if _, err := io.ReadFull(c.c, header[:]); err != nil {
			return nil, protocolErrorf("reading chunk header: %v", err)
		}
		size := binary.BigEndian.Uint16(header[:])
		if size == 0 {
			break
		}
		if _, err := io.CopyN(&message, c.c, int64(size)); err != nil {
			return nil, protocolErrorf("reading chunk data: %v", err)
		}
	}

	unpacked, err := NewUnpacker(&message).Unpack()
	if err != nil {
		return nil, err
	}
	items, ok := unpacked.([]interface{})
	if !ok || len(items) != 2 {
		return nil, protocolErrorf("malformed message structure")
	}
	signature, _ := items[0].(byte)
	fields, _ := items[1].([]interface{})
	return &reply{signature: signature, fields: fields}, nil
}

// Goodbye ends the conversation. Best effort: the server does not answer.
func (c *Conn) Goodbye() {
	_ = c.writeMessage(MsgGoodbye, nil)
}

// Package bus implements the Handler Link and Invoker: the local
// message-passing bus to an external device handler.
//
// The wire framing is a fixed header (a 2-byte magic, a length prefix)
// then a payload; the payload is a JSON-encoded Call/Reply
// instead of a fixed action code, since method names and argument
// blobs are both variable-length.
package bus

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"io"

	"github.com/arkap/netifd/internal/libol"
	"github.com/arkap/netifd/internal/schema"
)

var magic = [2]byte{0xff, 0xff}

// maxFrame bounds a single encoded envelope; dump_stats replies are the
// largest payload this bus ever carries and comfortably fit well under
// this. The length prefix is 4 bytes, so maxFrame must never approach
// 1<<32.
const maxFrame = 1 << 20

// Call is one outbound invocation: a method name and a key-value
// argument blob.
type Call struct {
	Cookie string      `json:"cookie"`
	Method string      `json:"method"`
	Args   schema.Blob `json:"args"`
}

// Reply carries a completion status plus, for dump_info/dump_stats, the
// handler's reply blob.
type Reply struct {
	Cookie string      `json:"cookie"`
	Status int         `json:"status"`
	Data   schema.Blob `json:"data,omitempty"`
}

// Notification is an inbound event from the handler: a type string
// plus one of the two payload shapes.
type Notification struct {
	Type     string      `json:"type"`
	Devices  []string    `json:"devices,omitempty"` // create/reload/free
	Bridge   string      `json:"bridge,omitempty"`  // prepare/add/remove
	Member   string      `json:"member,omitempty"`
	Message  string      `json:"message,omitempty"` // logged at notice, not interpreted
}

func writeFrame(w io.Writer, payload []byte) error {
	if len(payload) > maxFrame {
		return libol.NewErr("bus: frame too large %d", len(payload))
	}
	hdr := make([]byte, 6)
	hdr[0], hdr[1] = magic[0], magic[1]
	binary.BigEndian.PutUint32(hdr[2:6], uint32(len(payload)))
	if _, err := w.Write(hdr); err != nil {
		return err
	}
	_, err := w.Write(payload)
	return err
}

func readFrame(r io.Reader) ([]byte, error) {
	hdr := make([]byte, 6)
	if _, err := io.ReadFull(r, hdr); err != nil {
		return nil, err
	}
	if !bytes.Equal(hdr[:2], magic[:]) {
		return nil, libol.NewErr("bus: wrong magic")
	}
	size := int(binary.BigEndian.Uint32(hdr[2:6]))
	if size > maxFrame {
		return nil, libol.NewErr("bus: wrong size %d", size)
	}
	buf := make([]byte, size)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

func encode(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

func decode(data []byte, v interface{}) error {
	return json.Unmarshal(data, v)
}

// Package wire implements the protobuf-wire-compatible messages exchanged
// with the build daemon: the fsutil STAT/REQ/DATA/FIN packets that drive
// DiffCopy, the auth and secrets probe messages, and the Control-plane
// Solve/Status/Session messages. There is no protoc step in this build, so
// each message hand-rolls Marshal/Unmarshal on top of
// google.golang.org/protobuf/encoding/protowire, the same low-level wire
// primitives a generated .pb.go would use. Field numbers are fixed and
// documented next to each type; treat them as the wire appendix the spec
// refers to.
package wire

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// Message is the minimal contract our hand-written types satisfy instead of
// proto.Message. It's all the grpc codec and the DiffCopy engine need.
type Message interface {
	Marshal() ([]byte, error)
	Unmarshal(b []byte) error
}

// EncodeError is returned when a Message's fields can't be represented on
// the wire (currently: a string field isn't valid UTF-8).
type EncodeError struct {
	Field string
	Err   error
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("encode %s: %v", e.Field, e.Err)
}

func (e *EncodeError) Unwrap() error { return e.Err }

// DecodeError is returned when a buffer can't be parsed as a Message: an
// unknown tag, a truncated varint, or a length that overruns the buffer.
type DecodeError struct {
	Type string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %v", e.Type, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

var errTruncated = fmt.Errorf("truncated message")

func appendString(b []byte, num protowire.Number, s string) ([]byte, error) {
	if !isValidUTF8(s) {
		return nil, &EncodeError{Field: fmt.Sprintf("field %d", num), Err: fmt.Errorf("invalid UTF-8")}
	}
	if s == "" {
		return b, nil
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	b = protowire.AppendString(b, s)
	return b, nil
}

func appendBytes(b []byte, num protowire.Number, v []byte) []byte {
	if len(v) == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	b = protowire.AppendBytes(b, v)
	return b
}

func appendVarint(b []byte, num protowire.Number, v uint64) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	b = protowire.AppendVarint(b, v)
	return b
}

func appendBool(b []byte, num protowire.Number, v bool) []byte {
	if !v {
		return b
	}
	return appendVarint(b, num, 1)
}

func appendMessage(b []byte, num protowire.Number, payload []byte) []byte {
	if payload == nil {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	b = protowire.AppendBytes(b, payload)
	return b
}

func appendStringMap(b []byte, num protowire.Number, m map[string]string) ([]byte, error) {
	for _, k := range sortedKeys(m) {
		entry, err := marshalStringMapEntry(k, m[k])
		if err != nil {
			return nil, err
		}
		b = appendMessage(b, num, entry)
	}
	return b, nil
}

func marshalStringMapEntry(k, v string) ([]byte, error) {
	var entry []byte
	var err error
	entry, err = appendString(entry, 1, k)
	if err != nil {
		return nil, err
	}
	entry, err = appendString(entry, 2, v)
	if err != nil {
		return nil, err
	}
	return entry, nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	// insertion order doesn't matter on the wire; sort for deterministic tests.
	for i := 1; i < len(keys); i++ {
		for j := i; j > 0 && keys[j-1] > keys[j]; j-- {
			keys[j-1], keys[j] = keys[j], keys[j-1]
		}
	}
	return keys
}

func isValidUTF8(s string) bool {
	for i := 0; i < len(s); {
		c := s[i]
		if c < 0x80 {
			i++
			continue
		}
		size := 0
		switch {
		case c&0xE0 == 0xC0:
			size = 2
		case c&0xF0 == 0xE0:
			size = 3
		case c&0xF8 == 0xF0:
			size = 4
		default:
			return false
		}
		if i+size > len(s) {
			return false
		}
		for k := 1; k < size; k++ {
			if s[i+k]&0xC0 != 0x80 {
				return false
			}
		}
		i += size
	}
	return true
}

// consumeFields walks a marshaled message, dispatching each field to fn.
func consumeFields(typeName string, b []byte, fn func(num protowire.Number, typ protowire.Type, b []byte) (n int, err error)) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return &DecodeError{Type: typeName, Err: protowire.ParseError(n)}
		}
		b = b[n:]
		used, err := fn(num, typ, b)
		if err != nil {
			return &DecodeError{Type: typeName, Err: err}
		}
		if used < 0 {
			return &DecodeError{Type: typeName, Err: errTruncated}
		}
		b = b[used:]
	}
	return nil
}

func consumeStringMapEntry(b []byte) (string, string, error) {
	var key, value string
	err := consumeFields("map entry", b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			s, n := protowire.ConsumeString(b)
			if n < 0 {
				return n, protowire.ParseError(n)
			}
			key = s
			return n, nil
		case 2:
			s, n := protowire.ConsumeString(b)
			if n < 0 {
				return n, protowire.ParseError(n)
			}
			value = s
			return n, nil
		default:
			return protowire.ConsumeFieldValue(num, typ, b), nil
		}
	})
	return key, value, err
}

// EncodeFrame wraps a marshaled message with the 5-byte frame header used
// over the outer session stream: one compression-flag byte (always 0 here)
// followed by a 4-byte big-endian payload length.
func EncodeFrame(m Message) ([]byte, error) {
	payload, err := m.Marshal()
	if err != nil {
		return nil, err
	}
	out := make([]byte, 5+len(payload))
	out[0] = 0
	be32(out[1:5], uint32(len(payload)))
	copy(out[5:], payload)
	return out, nil
}

// DecodeFrame strips one 5-byte-framed record from b and unmarshals it into
// m. If b holds less than a complete frame, rest == b and err == nil: the
// caller should retain the unread prefix and try again once more data
// arrives.
func DecodeFrame(b []byte, m Message) (rest []byte, err error) {
	if len(b) < 5 {
		return b, nil
	}
	if b[0] != 0 {
		return b, &DecodeError{Type: "frame", Err: fmt.Errorf("unsupported compression flag %d", b[0])}
	}
	length := int(be32ToUint(b[1:5]))
	if len(b) < 5+length {
		return b, nil
	}
	payload := b[5 : 5+length]
	if err := m.Unmarshal(payload); err != nil {
		return b, err
	}
	return b[5+length:], nil
}

func be32(b []byte, v uint32) {
	b[0] = byte(v >> 24)
	b[1] = byte(v >> 16)
	b[2] = byte(v >> 8)
	b[3] = byte(v)
}

func be32ToUint(b []byte) uint32 {
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}

// Package peerwire implements the per-connection message loop of a
// peer-to-peer protocol endpoint. It receives framed, type-tagged messages
// from an established connection, decodes them against a pluggable message
// schema, and dispatches each one to an application-supplied Handler with a
// well-defined policy for transport, decode, and application failures.
package peerwire

import (
	"encoding"
	"encoding/binary"
	"errors"
	"fmt"

	pkgerrors "github.com/pkg/errors"
)

// Errors returned when interpreting a received payload.
var (
	// ErrUnknownMessageType is returned when a payload carries a type tag
	// no decoder was registered for.
	ErrUnknownMessageType = errors.New("unknown message type")
	// ErrShortPayload is returned when a payload is too short to carry a
	// type tag.
	ErrShortPayload = errors.New("payload too short for type tag")
	// ErrDuplicateMessageType is returned when two decoders are registered
	// under the same type tag.
	ErrDuplicateMessageType = errors.New("duplicate message type")
)

// Message is one variant of a protocol's closed message set. Each variant
// carries a stable wire type tag and knows how to serialize its own body.
// The loop never inspects a message beyond its tag; variant semantics belong
// entirely to the Handler.
type Message interface {
	// MsgType returns the variant's wire type tag.
	MsgType() uint16
	encoding.BinaryMarshaler
}

// DecodeFunc turns a raw message body into one concrete message variant.
// Implementations must be pure: no side effects, deterministic output, and
// a plain error (never a panic) on malformed input.
type DecodeFunc func(body []byte) (Message, error)

// Unmarshaler interprets a raw received payload as one typed message.
// It is injected into the Listener so new protocols plug in without
// touching the loop.
type Unmarshaler interface {
	// Unmarshal decodes a complete payload (type tag plus body) into the
	// matching message variant, or fails with a decode error.
	Unmarshal(payload []byte) (Message, error)
}

// Schema is a closed registry of message variants for one protocol, keyed by
// wire type tag. A populated Schema is the usual Unmarshaler handed to a
// Listener. Registration happens once at startup; Unmarshal is read-only and
// safe for concurrent use afterwards.
type Schema struct {
	decoders map[uint16]DecodeFunc
}

// NewSchema returns an empty message schema.
func NewSchema() *Schema {
	return &Schema{decoders: make(map[uint16]DecodeFunc)}
}

// Register adds a decoder for the given type tag.
// Returns ErrDuplicateMessageType if the tag is already taken.
func (s *Schema) Register(msgType uint16, decode DecodeFunc) error {
	if _, ok := s.decoders[msgType]; ok {
		return pkgerrors.Wrapf(ErrDuplicateMessageType, "tag %#04x", msgType)
	}
	s.decoders[msgType] = decode
	return nil
}

// Unmarshal implements Unmarshaler. The payload layout is a 2-byte
// big-endian type tag followed by the variant body.
func (s *Schema) Unmarshal(payload []byte) (Message, error) {
	if len(payload) < 2 {
		return nil, ErrShortPayload
	}
	msgType := binary.BigEndian.Uint16(payload[:2])
	decode, ok := s.decoders[msgType]
	if !ok {
		return nil, pkgerrors.Wrapf(ErrUnknownMessageType, "tag %#04x", msgType)
	}
	msg, err := decode(payload[2:])
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "decode message %#04x", msgType)
	}
	return msg, nil
}

// marshalMessage serializes a message into its wire payload: type tag
// followed by the marshaled body. The inverse of Schema.Unmarshal.
func marshalMessage(msg Message) ([]byte, error) {
	body, err := msg.MarshalBinary()
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "marshal message %#04x", msg.MsgType())
	}
	payload := make([]byte, 2+len(body))
	binary.BigEndian.PutUint16(payload[:2], msg.MsgType())
	copy(payload[2:], body)
	return payload, nil
}

// RecvError reports that no usable message was obtained for one loop
// iteration. It covers both fault origins the loop does not distinguish:
// the transport failed to deliver bytes, or bytes arrived that did not
// decode. HandleErr receives values of this type; errors.As and errors.Is
// still reach the underlying cause.
type RecvError struct {
	// Decode is true when bytes were received but did not parse as a
	// known message variant.
	Decode bool
	// Err is the underlying transport or decode error.
	Err error
}

func (e *RecvError) Error() string {
	if e.Decode {
		return fmt.Sprintf("decode message: %v", e.Err)
	}
	return fmt.Sprintf("receive message: %v", e.Err)
}

func (e *RecvError) Unwrap() error {
	return e.Err
}

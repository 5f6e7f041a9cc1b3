package peerwire

import (
	"bytes"
	"errors"
	"testing"
)

// Wire tags used by the test protocol.
const (
	testMsgTypeEcho uint16 = 0x0101
	testMsgTypeBlob uint16 = 0x0102
)

// testMsg implements Message for testing.
type testMsg struct {
	msgType uint16
	body    []byte
}

func (m testMsg) MsgType() uint16 {
	return m.msgType
}

func (m testMsg) MarshalBinary() ([]byte, error) {
	return m.body, nil
}

// newTestSchema builds a schema decoding both test variants back into testMsg.
func newTestSchema(t *testing.T) *Schema {
	t.Helper()

	schema := NewSchema()
	for _, msgType := range []uint16{testMsgTypeEcho, testMsgTypeBlob} {
		msgType := msgType
		if err := schema.Register(msgType, func(body []byte) (Message, error) {
			return testMsg{msgType: msgType, body: body}, nil
		}); err != nil {
			t.Fatalf("register %#04x: %v", msgType, err)
		}
	}
	return schema
}

func TestSchema_Register_Duplicate(t *testing.T) {
	schema := newTestSchema(t)

	err := schema.Register(testMsgTypeEcho, func(body []byte) (Message, error) {
		return testMsg{msgType: testMsgTypeEcho, body: body}, nil
	})
	if !errors.Is(err, ErrDuplicateMessageType) {
		t.Fatalf("expected ErrDuplicateMessageType, got %v", err)
	}
}

func TestSchema_Unmarshal_RoundTrip(t *testing.T) {
	schema := newTestSchema(t)

	original := testMsg{msgType: testMsgTypeEcho, body: []byte("hello peer")}
	payload, err := marshalMessage(original)
	if err != nil {
		t.Fatalf("marshalMessage failed: %v", err)
	}

	decoded, err := schema.Unmarshal(payload)
	if err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if decoded.MsgType() != testMsgTypeEcho {
		t.Errorf("wrong type: got %#04x", decoded.MsgType())
	}
	if !bytes.Equal(decoded.(testMsg).body, original.body) {
		t.Errorf("wrong body: got %q", decoded.(testMsg).body)
	}
}

func TestSchema_Unmarshal_EmptyBody(t *testing.T) {
	schema := newTestSchema(t)

	payload, err := marshalMessage(testMsg{msgType: testMsgTypeBlob})
	if err != nil {
		t.Fatalf("marshalMessage failed: %v", err)
	}
	if len(payload) != 2 {
		t.Fatalf("expected tag-only payload, got %d bytes", len(payload))
	}

	decoded, err := schema.Unmarshal(payload)
	if err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if len(decoded.(testMsg).body) != 0 {
		t.Errorf("expected empty body, got %q", decoded.(testMsg).body)
	}
}

func TestSchema_Unmarshal_UnknownType(t *testing.T) {
	schema := newTestSchema(t)

	_, err := schema.Unmarshal([]byte{0xff, 0xff, 0x01})
	if !errors.Is(err, ErrUnknownMessageType) {
		t.Fatalf("expected ErrUnknownMessageType, got %v", err)
	}
}

func TestSchema_Unmarshal_ShortPayload(t *testing.T) {
	schema := newTestSchema(t)

	for _, payload := range [][]byte{nil, {}, {0x01}} {
		if _, err := schema.Unmarshal(payload); !errors.Is(err, ErrShortPayload) {
			t.Errorf("payload %v: expected ErrShortPayload, got %v", payload, err)
		}
	}
}

func TestSchema_Unmarshal_DecoderError(t *testing.T) {
	schema := NewSchema()
	decodeErr := errors.New("truncated body")
	if err := schema.Register(testMsgTypeEcho, func(body []byte) (Message, error) {
		return nil, decodeErr
	}); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	_, err := schema.Unmarshal([]byte{0x01, 0x01, 0x00})
	if !errors.Is(err, decodeErr) {
		t.Fatalf("expected decoder error, got %v", err)
	}
}

func TestRecvError_Unwrap(t *testing.T) {
	cause := errors.New("connection reset")

	transport := &RecvError{Err: cause}
	if !errors.Is(transport, cause) {
		t.Error("transport RecvError should unwrap to its cause")
	}

	decode := &RecvError{Decode: true, Err: ErrUnknownMessageType}
	if !errors.Is(decode, ErrUnknownMessageType) {
		t.Error("decode RecvError should unwrap to its cause")
	}
	if decode.Error() == transport.Error() {
		t.Error("decode and transport renderings should differ")
	}
}

package peerwire

import (
	"encoding/binary"
	"errors"
	"io"

	pkgerrors "github.com/pkg/errors"
)

// MaxFrameSize is the hard upper bound on a single message payload.
const MaxFrameSize = 1 << 20

// Errors returned by the frame codec.
var (
	// ErrEmptyFrame is returned when a zero-length payload is framed or
	// announced on the wire.
	ErrEmptyFrame = errors.New("empty frame")
	// ErrFrameTooLarge is returned when a payload exceeds the configured
	// size limit.
	ErrFrameTooLarge = errors.New("frame too large")
)

// readFrame reads one length-prefixed payload from r. The prefix is a
// 4-byte big-endian length; payloads of zero length or above max are
// rejected before any body bytes are read.
func readFrame(r io.Reader, max int) ([]byte, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, err
	}
	n := binary.BigEndian.Uint32(lenBuf[:])
	if n == 0 {
		return nil, ErrEmptyFrame
	}
	if max <= 0 || max > MaxFrameSize {
		max = MaxFrameSize
	}
	// Compare in uint32 space: converting first would wrap announced
	// lengths >= 2^31 negative on 32-bit platforms and slip past the limit.
	if n > uint32(max) {
		return nil, pkgerrors.Wrapf(ErrFrameTooLarge, "announced %d bytes, limit %d", n, max)
	}
	payload := make([]byte, int(n))
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, pkgerrors.Wrap(err, "frame body")
	}
	return payload, nil
}

// appendFrame appends the length prefix and payload to dst.
func appendFrame(dst, payload []byte) ([]byte, error) {
	if len(payload) == 0 {
		return nil, ErrEmptyFrame
	}
	if len(payload) > MaxFrameSize {
		return nil, pkgerrors.Wrapf(ErrFrameTooLarge, "%d bytes, limit %d", len(payload), MaxFrameSize)
	}
	dst = binary.BigEndian.AppendUint32(dst, uint32(len(payload)))
	return append(dst, payload...), nil
}

// writeFrame writes one length-prefixed payload to w in full.
func writeFrame(w io.Writer, payload []byte) error {
	frame, err := appendFrame(nil, payload)
	if err != nil {
		return err
	}
	total := 0
	for total < len(frame) {
		n, err := w.Write(frame[total:])
		if err != nil {
			return pkgerrors.Wrap(err, "write frame")
		}
		if n == 0 {
			return pkgerrors.New("short write")
		}
		total += n
	}
	return nil
}

package frame

import (
	"errors"
	"fmt"
	"io"
	"net"
	"syscall"
)

const (
	// HeaderLen is the size of the length prefix.
	HeaderLen = 1
	// MaxPayloadLen is the largest payload a one-byte prefix can describe.
	// Raising it means widening the prefix, which is a protocol version change.
	MaxPayloadLen = 255
)

var (
	ErrPayloadTooLarge  = errors.New("frame: payload too large")
	ErrConnectionClosed = errors.New("frame: connection closed")
	ErrTruncated        = errors.New("frame: truncated payload")
)

// CheckPayload reports whether payload fits in one frame.
func CheckPayload(payload []byte) error {
	if len(payload) > MaxPayloadLen {
		return ErrPayloadTooLarge
	}
	return nil
}

// EncodeFrame returns the length prefix followed by payload.
func EncodeFrame(payload []byte) ([]byte, error) {
	if err := CheckPayload(payload); err != nil {
		return nil, err
	}
	buf := make([]byte, HeaderLen+len(payload))
	buf[0] = byte(len(payload))
	copy(buf[HeaderLen:], payload)
	return buf, nil
}

// WriteFrame writes one frame. The ceiling is checked before anything is
// written to w.
func WriteFrame(w io.Writer, payload []byte) error {
	buf, err := EncodeFrame(payload)
	if err != nil {
		return err
	}
	n, err := w.Write(buf)
	if err != nil {
		return err
	}
	if n != len(buf) {
		return io.ErrShortWrite
	}
	return nil
}

// ReadFrame reads one length byte and then exactly that many payload bytes.
func ReadFrame(r io.Reader) ([]byte, error) {
	var head [HeaderLen]byte
	if _, err := io.ReadFull(r, head[:]); err != nil {
		return nil, peerGone(err, ErrConnectionClosed)
	}

	n := int(head[0])
	payload := make([]byte, n)
	if n == 0 {
		return payload, nil
	}
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, peerGone(err, ErrTruncated)
	}
	return payload, nil
}

// peerGone maps a read error caused by the peer going away to class. A reset
// or locally closed socket keeps its cause in the chain.
func peerGone(err, class error) error {
	switch {
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		return class
	case errors.Is(err, syscall.ECONNRESET), errors.Is(err, net.ErrClosed):
		return fmt.Errorf("%w: %w", class, err)
	default:
		return err
	}
}

package frame

import (
	"bytes"
	"errors"
	"io"
	"net"
	"os"
	"syscall"
	"testing"
)

func TestReadWriteFrameRoundTrip(t *testing.T) {
	payload := []byte("hello world")
	var buf bytes.Buffer
	if err := WriteFrame(&buf, payload); err != nil {
		t.Fatalf("write frame: %v", err)
	}
	if buf.Len() != HeaderLen+len(payload) {
		t.Fatalf("unexpected wire length: %d", buf.Len())
	}
	if buf.Bytes()[0] != byte(len(payload)) {
		t.Fatalf("unexpected prefix: %d", buf.Bytes()[0])
	}
	out, err := ReadFrame(&buf)
	if err != nil {
		t.Fatalf("read frame: %v", err)
	}
	if !bytes.Equal(out, payload) {
		t.Fatalf("payload mismatch: %q", out)
	}
}

func TestWriteFrameAtCeiling(t *testing.T) {
	payload := bytes.Repeat([]byte{0xab}, MaxPayloadLen)
	var buf bytes.Buffer
	if err := WriteFrame(&buf, payload); err != nil {
		t.Fatalf("write 255-byte frame: %v", err)
	}
	if buf.Bytes()[0] != 0xff {
		t.Fatalf("unexpected prefix: %d", buf.Bytes()[0])
	}
	out, err := ReadFrame(&buf)
	if err != nil {
		t.Fatalf("read frame: %v", err)
	}
	if !bytes.Equal(out, payload) {
		t.Fatalf("payload mismatch")
	}
}

func TestWriteFrameOverCeilingWritesNothing(t *testing.T) {
	payload := bytes.Repeat([]byte{0xab}, MaxPayloadLen+1)
	var buf bytes.Buffer
	err := WriteFrame(&buf, payload)
	if !errors.Is(err, ErrPayloadTooLarge) {
		t.Fatalf("expected ErrPayloadTooLarge, got %v", err)
	}
	if buf.Len() != 0 {
		t.Fatalf("expected no bytes written, got %d", buf.Len())
	}
}

func TestReadFrameEmptyPayload(t *testing.T) {
	out, err := ReadFrame(bytes.NewReader([]byte{0}))
	if err != nil {
		t.Fatalf("read frame: %v", err)
	}
	if out == nil || len(out) != 0 {
		t.Fatalf("expected empty non-nil payload, got %#v", out)
	}
}

func TestReadFrameTruncatedIsDeterministic(t *testing.T) {
	// advertises 5 bytes, delivers 2 then EOF
	_, err := ReadFrame(bytes.NewReader([]byte{5, 'a', 'b'}))
	if !errors.Is(err, ErrTruncated) {
		t.Fatalf("expected ErrTruncated, got %v", err)
	}
}

func TestReadFrameClosedBeforePrefix(t *testing.T) {
	_, err := ReadFrame(bytes.NewReader(nil))
	if !errors.Is(err, ErrConnectionClosed) {
		t.Fatalf("expected ErrConnectionClosed, got %v", err)
	}
}

type failingReader struct {
	err error
}

func (r failingReader) Read([]byte) (int, error) { return 0, r.err }

func connReset() error {
	return &net.OpError{Op: "read", Net: "tcp", Err: os.NewSyscallError("read", syscall.ECONNRESET)}
}

func TestReadFrameResetMidBodyIsTruncated(t *testing.T) {
	r := io.MultiReader(bytes.NewReader([]byte{5, 'a'}), failingReader{err: connReset()})
	_, err := ReadFrame(r)
	if !errors.Is(err, ErrTruncated) {
		t.Fatalf("expected ErrTruncated, got %v", err)
	}
	if !errors.Is(err, syscall.ECONNRESET) {
		t.Fatalf("expected reset cause kept, got %v", err)
	}
}

func TestReadFrameResetBeforePrefixIsClosed(t *testing.T) {
	for _, cause := range []error{connReset(), net.ErrClosed} {
		_, err := ReadFrame(failingReader{err: cause})
		if !errors.Is(err, ErrConnectionClosed) {
			t.Fatalf("expected ErrConnectionClosed for %v, got %v", cause, err)
		}
	}
}

func TestReadFrameOtherErrorsPassThrough(t *testing.T) {
	boom := errors.New("disk on fire")
	_, err := ReadFrame(failingReader{err: boom})
	if !errors.Is(err, boom) || errors.Is(err, ErrConnectionClosed) {
		t.Fatalf("expected raw error, got %v", err)
	}
}

type shortWriter struct{}

func (shortWriter) Write(p []byte) (int, error) { return len(p) - 1, nil }

func TestWriteFrameShortWrite(t *testing.T) {
	err := WriteFrame(shortWriter{}, []byte("abc"))
	if err == nil {
		t.Fatalf("expected short write error")
	}
}

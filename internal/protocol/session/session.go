package session

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/lyuben-todorov/piko-cli/internal/logging"
	"github.com/lyuben-todorov/piko-cli/internal/protocol"
	"github.com/lyuben-todorov/piko-cli/internal/protocol/frame"
)

var ErrConnectFailed = errors.New("session: connect failed")

// ConnectError wraps a dial failure. It matches ErrConnectFailed and the
// underlying network error.
type ConnectError struct {
	Addr string
	Err  error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("session: connect to %s failed: %v", e.Addr, e.Err)
}

func (e *ConnectError) Unwrap() []error {
	return []error{ErrConnectFailed, e.Err}
}

// Client binds a broker address to a transport config.
type Client struct {
	Addr   string
	Config Config
}

func NewClient(addr string, cfg Config) *Client {
	return &Client{Addr: addr, Config: cfg}
}

// Exchange sends req to the client's broker and returns its response.
func (c *Client) Exchange(ctx context.Context, req protocol.Request) (protocol.Response, error) {
	return Exchange(ctx, c.Addr, req, c.Config)
}

// Exchange opens a connection to addr, writes one request frame, reads one
// response frame and closes the connection on every exit path. Requests that
// do not fit in a frame are rejected before dialing.
func Exchange(ctx context.Context, addr string, req protocol.Request, cfg Config) (protocol.Response, error) {
	lg := logging.Logger("session")
	started := time.Now()

	payload, err := protocol.EncodeRequest(req)
	if err != nil {
		return nil, err
	}
	if err := frame.CheckPayload(payload); err != nil {
		return nil, fmt.Errorf("%w: %s encodes to %d bytes (max %d)", err, req.Variant(), len(payload), frame.MaxPayloadLen)
	}

	dialer := net.Dialer{Timeout: cfg.ConnectTimeout}
	conn, err := dialer.DialContext(ctx, cfg.network(), addr)
	if err != nil {
		return nil, &ConnectError{Addr: addr, Err: err}
	}
	defer conn.Close()

	if dl := deadline(ctx, cfg.WriteTimeout); !dl.IsZero() {
		if err := conn.SetWriteDeadline(dl); err != nil {
			return nil, err
		}
	}
	if err := frame.WriteFrame(conn, payload); err != nil {
		return nil, fmt.Errorf("session: write %s: %w", req.Variant(), err)
	}

	if dl := deadline(ctx, cfg.ReadTimeout); !dl.IsZero() {
		if err := conn.SetReadDeadline(dl); err != nil {
			return nil, err
		}
	}
	body, err := frame.ReadFrame(conn)
	if err != nil {
		return nil, fmt.Errorf("session: read response: %w", err)
	}
	resp, err := protocol.DecodeResponse(body)
	if err != nil {
		return nil, err
	}

	lg.Debug().
		Str("addr", addr).
		Str("request", req.Variant()).
		Str("response", resp.Variant()).
		Int("request_bytes", len(payload)).
		Int("response_bytes", len(body)).
		Dur("elapsed", time.Since(started)).
		Msg("exchange complete")
	return resp, nil
}

// deadline returns the earlier of the context deadline and now+timeout, or
// the zero time when neither applies.
func deadline(ctx context.Context, timeout time.Duration) time.Time {
	var dl time.Time
	if timeout > 0 {
		dl = time.Now().Add(timeout)
	}
	if ctxDl, ok := ctx.Deadline(); ok && (dl.IsZero() || ctxDl.Before(dl)) {
		dl = ctxDl
	}
	return dl
}

package dispatch

import (
	"errors"
	"fmt"
	"io"
	"syscall"

	"github.com/lyuben-todorov/piko-cli/internal/protocol"
	"github.com/lyuben-todorov/piko-cli/internal/protocol/frame"
	"github.com/lyuben-todorov/piko-cli/internal/protocol/session"
)

type responseRenderer struct {
	out io.Writer
}

func (r responseRenderer) OnSuccess(resp protocol.Success) {
	fmt.Fprintln(r.out, resp.Message)
}

func (r responseRenderer) OnError(resp protocol.Error) {
	fmt.Fprintf(r.out, "Error: %s\n", resp.Message)
}

// Describe turns an exchange failure into a one-line diagnostic.
func Describe(err error) string {
	var connErr *session.ConnectError
	switch {
	case errors.As(err, &connErr):
		if errors.Is(err, syscall.ECONNREFUSED) {
			return fmt.Sprintf("could not connect to %s: connection refused; verify the broker is running", connErr.Addr)
		}
		return fmt.Sprintf("could not connect to %s: %v", connErr.Addr, connErr.Err)
	case errors.Is(err, frame.ErrPayloadTooLarge):
		return fmt.Sprintf("request does not fit in one frame (max %d bytes): %v", frame.MaxPayloadLen, err)
	case errors.Is(err, frame.ErrTruncated):
		return "broker closed the connection mid-response"
	case errors.Is(err, frame.ErrConnectionClosed):
		return "broker closed the connection without responding"
	case errors.Is(err, protocol.ErrMalformedPayload):
		return fmt.Sprintf("unreadable broker response: %v", err)
	default:
		return err.Error()
	}
}

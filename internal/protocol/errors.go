package protocol

import (
	"errors"
	"fmt"
)

var (
	ErrMalformedPayload = errors.New("protocol: malformed payload")
	ErrUnknownVariant   = errors.New("protocol: unknown variant")
)

// RejectedError is a domain-level rejection returned by the broker as an
// Error response. It is not a transport fault.
type RejectedError struct {
	Message string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("protocol: broker rejected request: %s", e.Message)
}

func malformed(reason string) error {
	return fmt.Errorf("%w: %s", ErrMalformedPayload, reason)
}

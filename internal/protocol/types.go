package protocol

// Variant names as they appear on the wire.
const (
	VariantPublish     = "Publish"
	VariantSubscribe   = "Subscribe"
	VariantUnsubscribe = "Unsubscribe"
	VariantSuccess     = "Success"
	VariantError       = "Error"
)

// Request is one client->broker message. Implemented only by Publish,
// Subscribe and Unsubscribe.
type Request interface {
	Variant() string
	Client() uint64
	isRequest()
}

// Publish sends an opaque payload on behalf of a client.
type Publish struct {
	ClientID uint64
	Payload  []byte
}

// Subscribe registers the client as a subscriber.
type Subscribe struct {
	ClientID uint64
}

// Unsubscribe deregisters the client.
type Unsubscribe struct {
	ClientID uint64
}

func (Publish) Variant() string     { return VariantPublish }
func (Subscribe) Variant() string   { return VariantSubscribe }
func (Unsubscribe) Variant() string { return VariantUnsubscribe }

func (r Publish) Client() uint64     { return r.ClientID }
func (r Subscribe) Client() uint64   { return r.ClientID }
func (r Unsubscribe) Client() uint64 { return r.ClientID }

func (Publish) isRequest()     {}
func (Subscribe) isRequest()   {}
func (Unsubscribe) isRequest() {}

// ResponseHandler receives exactly one callback per response. Adding a
// response variant adds a method here, so every handler stops compiling
// until it handles the new variant.
type ResponseHandler interface {
	OnSuccess(Success)
	OnError(Error)
}

// Response is one broker->client message. Implemented only by Success and
// Error.
type Response interface {
	Variant() string
	Match(h ResponseHandler)
	isResponse()
}

// Success reports an accepted operation. Bytes is an optional opaque result
// and may be empty.
type Success struct {
	Message string
	Bytes   []byte
}

// Error reports a rejected operation.
type Error struct {
	Message string
}

func (Success) Variant() string { return VariantSuccess }
func (Error) Variant() string   { return VariantError }

func (r Success) Match(h ResponseHandler) { h.OnSuccess(r) }
func (r Error) Match(h ResponseHandler)   { h.OnError(r) }

func (Success) isResponse() {}
func (Error) isResponse()   {}

// AsError maps a response to nil on Success and to a *RejectedError on Error.
func AsError(resp Response) error {
	if resp == nil {
		return malformed("nil response")
	}
	var m errorMatcher
	resp.Match(&m)
	return m.err
}

type errorMatcher struct {
	err error
}

func (m *errorMatcher) OnSuccess(Success) { m.err = nil }
func (m *errorMatcher) OnError(r Error)   { m.err = &RejectedError{Message: r.Message} }

package protocol

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("protocol: cbor enc mode: %v", err))
	}
	decMode, err = cbor.DecOptions{DupMapKey: cbor.DupMapKeyEnforcedAPF}.DecMode()
	if err != nil {
		panic(fmt.Sprintf("protocol: cbor dec mode: %v", err))
	}
}

// Wire bodies. Pointer fields distinguish "absent" from the zero value on
// decode; unknown keys inside a body are ignored.
type clientBody struct {
	ClientID *uint64 `cbor:"client_id"`
}

type publishBody struct {
	ClientID *uint64 `cbor:"client_id"`
	Payload  []byte  `cbor:"payload"`
}

type successBody struct {
	Message *string `cbor:"message"`
	Bytes   []byte  `cbor:"bytes"`
}

type errorBody struct {
	Message *string `cbor:"message"`
}

// EncodeRequest renders req as an externally tagged CBOR map, e.g.
// {"Publish": {"client_id": 1234, "payload": h'...'}}.
func EncodeRequest(req Request) ([]byte, error) {
	var body any
	switch r := req.(type) {
	case Publish:
		id := r.ClientID
		body = publishBody{ClientID: &id, Payload: nonNil(r.Payload)}
	case Subscribe:
		id := r.ClientID
		body = clientBody{ClientID: &id}
	case Unsubscribe:
		id := r.ClientID
		body = clientBody{ClientID: &id}
	case nil:
		return nil, fmt.Errorf("%w: nil request", ErrUnknownVariant)
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownVariant, req)
	}
	return encMode.Marshal(map[string]any{req.Variant(): body})
}

// DecodeResponse parses one response payload. Anything that is not a map
// holding exactly one known variant fails with ErrMalformedPayload.
func DecodeResponse(data []byte) (Response, error) {
	variant, raw, err := splitVariant(data)
	if err != nil {
		return nil, err
	}
	switch variant {
	case VariantSuccess:
		var body successBody
		if err := decMode.Unmarshal(raw, &body); err != nil {
			return nil, malformed(err.Error())
		}
		if body.Message == nil {
			return nil, malformed("Success missing message")
		}
		return Success{Message: *body.Message, Bytes: nonNil(body.Bytes)}, nil
	case VariantError:
		var body errorBody
		if err := decMode.Unmarshal(raw, &body); err != nil {
			return nil, malformed(err.Error())
		}
		if body.Message == nil {
			return nil, malformed("Error missing message")
		}
		return Error{Message: *body.Message}, nil
	default:
		return nil, malformed(fmt.Sprintf("unknown response variant %q", variant))
	}
}

// EncodeResponse is the broker-side partner of DecodeResponse.
func EncodeResponse(resp Response) ([]byte, error) {
	if resp == nil {
		return nil, fmt.Errorf("%w: nil response", ErrUnknownVariant)
	}
	var enc responseEncoder
	resp.Match(&enc)
	return encMode.Marshal(map[string]any{resp.Variant(): enc.body})
}

type responseEncoder struct {
	body any
}

func (e *responseEncoder) OnSuccess(r Success) {
	msg := r.Message
	e.body = successBody{Message: &msg, Bytes: nonNil(r.Bytes)}
}

func (e *responseEncoder) OnError(r Error) {
	msg := r.Message
	e.body = errorBody{Message: &msg}
}

// DecodeRequest is the broker-side partner of EncodeRequest.
func DecodeRequest(data []byte) (Request, error) {
	variant, raw, err := splitVariant(data)
	if err != nil {
		return nil, err
	}
	switch variant {
	case VariantPublish:
		var body publishBody
		if err := decMode.Unmarshal(raw, &body); err != nil {
			return nil, malformed(err.Error())
		}
		if body.ClientID == nil {
			return nil, malformed("Publish missing client_id")
		}
		return Publish{ClientID: *body.ClientID, Payload: nonNil(body.Payload)}, nil
	case VariantSubscribe, VariantUnsubscribe:
		var body clientBody
		if err := decMode.Unmarshal(raw, &body); err != nil {
			return nil, malformed(err.Error())
		}
		if body.ClientID == nil {
			return nil, malformed(variant + " missing client_id")
		}
		if variant == VariantSubscribe {
			return Subscribe{ClientID: *body.ClientID}, nil
		}
		return Unsubscribe{ClientID: *body.ClientID}, nil
	default:
		return nil, malformed(fmt.Sprintf("unknown request variant %q", variant))
	}
}

func splitVariant(data []byte) (string, cbor.RawMessage, error) {
	if len(data) == 0 {
		return "", nil, malformed("empty payload")
	}
	var env map[string]cbor.RawMessage
	if err := decMode.Unmarshal(data, &env); err != nil {
		return "", nil, malformed(err.Error())
	}
	if len(env) != 1 {
		return "", nil, malformed(fmt.Sprintf("expected exactly one variant, got %d", len(env)))
	}
	for variant, raw := range env {
		return variant, raw, nil
	}
	return "", nil, malformed("empty envelope")
}

func nonNil(b []byte) []byte {
	if b == nil {
		return []byte{}
	}
	return b
}

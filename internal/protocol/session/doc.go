// Package session owns the client side of one broker exchange.
//
// Ownership boundary:
// - connection setup and teardown (one connection per request)
// - frame write/read around the CBOR codec
// - explicit, configurable deadlines (zero means none)
package session

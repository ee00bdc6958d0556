// Package protocol owns the piko wire contract between client and broker.
//
// Ownership boundary:
// - request/response variants (sealed sum types)
// - CBOR payload codec
// - frame primitives (subpackage frame)
// - one-shot transport exchange (subpackage session)
package protocol

// Package protocol owns the session wire contract shared by host and client.
//
// Ownership boundary:
// - error taxonomy (protocol, deserialization, validation, not found)
// - frame/ length-prefixed stream framing
// - codec/ allow-listed command encoding
// - session/ framed command connections
// - tlv/ and schema/ discovery packet primitives
package protocol

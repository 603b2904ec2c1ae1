// Package discovery owns LAN presence advertisement and the registry of joinable games.
//
// Ownership boundary:
// - presence packet encoding (tlv fields validated by schema)
// - Broadcaster: periodic presence datagrams from a hosting process
// - Listener: background receive loop upserting the Registry
//
// The Registry is the only structure here touched by more than one goroutine.
//
// Listener shutdown is cooperative: the running flag and context are checked once per
// receive timeout, so Stop returns within one ReceiveTimeout (default 2s) of being called.
//
// Refresh clears the registry and lets it repopulate from later broadcasts. Callers see
// an empty list until the next packet arrives and should treat empty results as
// "still searching", not as authoritative absence.
package discovery

// Package session owns framed command connections between host and clients.
//
// Ownership boundary:
// - codec + framer composition over one net.Conn
// - per-connection write serialisation and deadlines
// - join handshake helpers (hello -> welcome)
//
// Transport failures are fatal to the connection; nothing here reconnects or retries.
package session

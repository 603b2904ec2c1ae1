// Package client turns user text into commands and runs the guest side of a session.
//
// Ownership boundary:
// - Parse: text to ParsedCommandData through a declared precedence table
// - Factory: (parsed, role, state) to exactly one Command or a ValidationError hint
// - Exam: deterministic slot ordering and positional answer binding
// - Client: local command execution, host connection and server event application
//
// Client state changes only when the host says so (Welcome, StateChanged) or when the
// connection drops. Validation errors never reach the wire.
package client

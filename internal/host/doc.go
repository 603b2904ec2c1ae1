// Package host runs the authoritative side of a game session.
//
// Ownership boundary:
// - ActionContext capability interfaces the dispatcher calls into
// - Dispatcher: stamps the connection's player id and executes one command
// - Session: players, positions, journals, exam state, deduction counter
// - Server: TCP accept loop, join handshake, discovery presence, status HTTP
//
// All Session state is owned by a single run goroutine. Other goroutines reach it only
// by queueing events, so no two commands for the same session mutate state concurrently.
package host

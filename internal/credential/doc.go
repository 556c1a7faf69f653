// Package credential persists the long-lived per-bridge secrets obtained
// during pairing, so clients can re-authenticate across restarts without
// pairing again.
//
// The in-memory copy is authoritative for the process lifetime; writes to
// the durable store are best-effort and a failure is logged, never
// surfaced to the caller. At startup Load treats a missing or unreadable
// store as "no credentials" rather than a fatal error.
package credential

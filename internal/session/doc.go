// Package session issues, validates, expires, and revokes the opaque
// tokens that scope a client to one bridge.
//
// Tokens are 256-bit random values, memory-only and lost on restart by
// design - clients re-authenticate against their stored bridge credential.
// Expiry is enforced twice: lazily on lookup (an expired entry is deleted
// the moment it is seen) and proactively by a background sweeper that caps
// memory growth when tokens are abandoned without ever being looked up.
//
// Absence is a value: Lookup returns nil and Revoke returns false for
// unknown tokens, never an error.
package session

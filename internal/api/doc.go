// Package api provides the HTTP REST API and WebSocket gateway for
// Homelink Core.
//
// The REST surface covers the session lifecycle (create, revoke, refresh,
// stats) and bridge pairing. The WebSocket gateway carries the real-time
// protocol: clients authenticate in-band with a session token or demo
// mode, receive a full initial_state, then state_update deltas as the
// polling engine observes changes.
//
// The server follows the same lifecycle pattern as other infrastructure
// components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
//
// Thread Safety: All methods are safe for concurrent use from multiple goroutines.
package api

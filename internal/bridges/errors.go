package bridges

import (
	"context"
	"errors"
	"fmt"
)

// Sentinel errors for the bridge layer.
var (
	// ErrPairingRequired means no credential is stored for the bridge.
	// Surfaced with a machine-readable flag so clients can branch UI.
	ErrPairingRequired = errors.New("bridge pairing required")

	// ErrUnknownBridge means no bridge with the given id is configured.
	ErrUnknownBridge = errors.New("unknown bridge")

	// ErrUnknownService means the configured service has no registered
	// variant.
	ErrUnknownService = errors.New("unknown service")
)

// UpstreamError wraps a snapshot fetch failure, distinguishing timeouts
// from unreachable upstreams. Both are transient: the engine logs them and
// retries on the next tick.
type UpstreamError struct {
	BridgeID string
	Timeout  bool
	Err      error
}

func (e *UpstreamError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("upstream timeout for bridge %s: %v", e.BridgeID, e.Err)
	}
	return fmt.Sprintf("upstream unreachable for bridge %s: %v", e.BridgeID, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// WrapUpstream classifies a fetch error for a bridge. Context deadline
// expiry counts as a timeout; everything else as unreachable.
func WrapUpstream(bridgeID string, err error) *UpstreamError {
	return &UpstreamError{
		BridgeID: bridgeID,
		Timeout:  errors.Is(err, context.DeadlineExceeded),
		Err:      err,
	}
}

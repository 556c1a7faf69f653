package bridges

import (
	"context"
	"sync"

	"github.com/nerrad567/homelink-core/internal/infrastructure/config"
	"github.com/nerrad567/homelink-core/internal/snapshot"
)

// Service identifiers for the closed variant set.
const (
	ServiceHue  = "hue"
	ServiceHive = "hive"
	ServiceDemo = "demo"
)

// Source is the capability interface every upstream variant implements.
// The polling engine drives bridges exclusively through it.
type Source interface {
	// Connect establishes or refreshes the upstream session. It is called
	// once before the first fetch; implementations may treat it as a no-op.
	Connect(ctx context.Context) error

	// Snapshot fetches the full current state of the bridge. The caller
	// bounds ctx with the configured fetch timeout.
	Snapshot(ctx context.Context) (*snapshot.Snapshot, error)

	// IsConnected reports the last known upstream connectivity.
	IsConnected() bool
}

// Factory builds a Source for one configured bridge. The secret is the
// stored pairing credential; demo sources ignore it.
type Factory func(cfg config.BridgeConfig, secret string) (Source, error)

// CredentialGetter is the narrow view of the credential store the selector
// needs.
type CredentialGetter interface {
	Get(bridgeID string) (string, bool)
}

// Selector resolves bridge ids to live Source instances.
//
// Variants are chosen from a factory table keyed by service id; a bridge
// with the demo flag set always resolves to the demo variant. Instances
// are created once and cached.
//
// Thread Safety: all methods are safe for concurrent use.
type Selector struct {
	mu        sync.Mutex
	configs   map[string]config.BridgeConfig
	factories map[string]Factory
	instances map[string]Source
	creds     CredentialGetter
}

// NewSelector creates a selector over the configured bridges. The demo
// factory is pre-registered; real service factories are registered by the
// caller during wiring.
func NewSelector(bridgeCfgs []config.BridgeConfig, creds CredentialGetter) *Selector {
	configs := make(map[string]config.BridgeConfig, len(bridgeCfgs))
	for _, cfg := range bridgeCfgs {
		configs[cfg.ID] = cfg
	}

	s := &Selector{
		configs:   configs,
		factories: make(map[string]Factory),
		instances: make(map[string]Source),
		creds:     creds,
	}
	s.Register(ServiceDemo, NewDemoSource)
	return s
}

// Register adds a factory for a service id, replacing any previous one.
func (s *Selector) Register(service string, factory Factory) {
	s.mu.Lock()
	s.factories[service] = factory
	s.mu.Unlock()
}

// Config returns the configuration for a bridge id.
func (s *Selector) Config(bridgeID string) (config.BridgeConfig, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cfg, ok := s.configs[bridgeID]
	return cfg, ok
}

// Has reports whether a bridge id is configured.
func (s *Selector) Has(bridgeID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.configs[bridgeID]
	return ok
}

// Source resolves a bridge id to its Source, constructing and caching the
// instance on first use.
//
// It returns ErrUnknownBridge for unconfigured ids, ErrUnknownService for
// services with no registered factory, and ErrPairingRequired when a
// non-demo bridge has no stored credential.
func (s *Selector) Source(bridgeID string) (Source, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if src, ok := s.instances[bridgeID]; ok {
		return src, nil
	}

	cfg, ok := s.configs[bridgeID]
	if !ok {
		return nil, ErrUnknownBridge
	}

	service := cfg.Service
	if cfg.Demo {
		service = ServiceDemo
	}

	factory, ok := s.factories[service]
	if !ok {
		return nil, ErrUnknownService
	}

	var secret string
	if service != ServiceDemo {
		secret, ok = s.creds.Get(bridgeID)
		if !ok {
			return nil, ErrPairingRequired
		}
	}

	src, err := factory(cfg, secret)
	if err != nil {
		return nil, err
	}
	s.instances[bridgeID] = src
	return src, nil
}

// Invalidate drops the cached instance for a bridge, forcing the next
// Source call to rebuild it. Used after re-pairing changes the secret.
func (s *Selector) Invalidate(bridgeID string) {
	s.mu.Lock()
	delete(s.instances, bridgeID)
	s.mu.Unlock()
}

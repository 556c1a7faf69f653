package credential

import (
	"context"
	"sync"

	"github.com/nerrad567/homelink-core/internal/infrastructure/logging"
)

// Store caches bridge credentials in memory and mirrors them to durable
// storage. At most one active credential exists per bridge.
//
// Thread Safety: all methods are safe for concurrent use.
type Store struct {
	mu    sync.RWMutex
	creds map[string]string

	repo   Repository
	logger *logging.Logger
}

// NewStore creates a credential store over the given repository.
func NewStore(repo Repository, logger *logging.Logger) *Store {
	return &Store{
		creds:  make(map[string]string),
		repo:   repo,
		logger: logger.With("component", "credential"),
	}
}

// Load populates the in-memory table from durable storage. A read failure
// is logged and treated as an empty store - pairing will recreate what was
// lost.
func (s *Store) Load(ctx context.Context) {
	creds, err := s.repo.Load(ctx)
	if err != nil {
		s.logger.Warn("loading credentials failed, starting empty", "error", err)
		return
	}

	s.mu.Lock()
	s.creds = creds
	s.mu.Unlock()

	s.logger.Info("credentials loaded", "bridges", len(creds))
}

// Store upserts the credential for a bridge. The in-memory copy is updated
// first and remains authoritative; the durable write is synchronous but
// best-effort, so a persistence failure never fails the caller.
func (s *Store) Store(ctx context.Context, bridgeID, secret string) {
	s.mu.Lock()
	s.creds[bridgeID] = secret
	s.mu.Unlock()

	if err := s.repo.Upsert(ctx, bridgeID, secret); err != nil {
		s.logger.Error("persisting credential failed, in-memory copy remains authoritative",
			"bridge_id", bridgeID,
			"error", err,
		)
	}
}

// Get returns the credential for a bridge, if any.
func (s *Store) Get(bridgeID string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	secret, ok := s.creds[bridgeID]
	return secret, ok
}

// Clear removes the credential for a bridge and reports whether one
// existed. The durable delete is best-effort.
func (s *Store) Clear(ctx context.Context, bridgeID string) bool {
	s.mu.Lock()
	_, existed := s.creds[bridgeID]
	delete(s.creds, bridgeID)
	s.mu.Unlock()

	if err := s.repo.Delete(ctx, bridgeID); err != nil {
		s.logger.Error("deleting persisted credential failed",
			"bridge_id", bridgeID,
			"error", err,
		)
	}
	return existed
}

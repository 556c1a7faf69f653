package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"sync"
	"time"

	"github.com/nerrad567/homelink-core/internal/infrastructure/logging"
)

// tokenBytes is the number of random bytes per session token (256 bits).
const tokenBytes = 32

// Session is one issued token and its scope. Callers always receive a
// copy; the store's own entries never escape.
type Session struct {
	Token      string
	BridgeID   string
	Identity   string
	CreatedAt  time.Time
	LastUsedAt time.Time
}

// View is the result of a successful lookup.
type View struct {
	BridgeID  string
	Identity  string
	CreatedAt time.Time
}

// Stats summarises the live session table for /session/stats.
type Stats struct {
	ActiveSessions int   `json:"active_sessions"`
	OldestAgeMS    int64 `json:"oldest_age_ms"`
	NewestAgeMS    int64 `json:"newest_age_ms"`
}

// Store is the in-memory session table.
//
// Thread Safety: all methods are safe for concurrent use.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*Session

	ttl           time.Duration
	sweepInterval time.Duration
	logger        *logging.Logger

	// now is replaceable in tests.
	now func() time.Time
}

// NewStore creates a session store with the given token lifetime and
// background sweep cadence.
func NewStore(ttl, sweepInterval time.Duration, logger *logging.Logger) *Store {
	return &Store{
		sessions:      make(map[string]*Session),
		ttl:           ttl,
		sweepInterval: sweepInterval,
		logger:        logger.With("component", "session"),
		now:           time.Now,
	}
}

// TTL returns the configured session lifetime.
func (s *Store) TTL() time.Duration {
	return s.ttl
}

// Create issues a new session scoped to the given bridge and identity.
func (s *Store) Create(bridgeID, identity string) Session {
	b := make([]byte, tokenBytes)
	//nolint:errcheck // crypto/rand.Read always returns len(b) on supported platforms
	rand.Read(b)
	token := hex.EncodeToString(b)

	now := s.now()
	sess := &Session{
		Token:      token,
		BridgeID:   bridgeID,
		Identity:   identity,
		CreatedAt:  now,
		LastUsedAt: now,
	}

	s.mu.Lock()
	s.sessions[token] = sess
	s.mu.Unlock()

	s.logger.Debug("session created",
		"bridge_id", bridgeID,
		"identity", identity,
		"token_prefix", token[:8]+"...",
	)

	return *sess
}

// Lookup resolves a token to its scope.
//
// It returns nil for unknown tokens and for expired ones; an expired entry
// is deleted as a side effect (lazy eviction). A successful lookup
// refreshes LastUsedAt.
func (s *Store) Lookup(token string) *View {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[token]
	if !ok {
		return nil
	}

	// A token is expired from the instant it reaches its TTL.
	now := s.now()
	if now.Sub(sess.CreatedAt) >= s.ttl {
		delete(s.sessions, token)
		return nil
	}

	sess.LastUsedAt = now
	return &View{
		BridgeID:  sess.BridgeID,
		Identity:  sess.Identity,
		CreatedAt: sess.CreatedAt,
	}
}

// Revoke removes a token if present. It is idempotent and reports whether
// the token existed.
func (s *Store) Revoke(token string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, existed := s.sessions[token]
	delete(s.sessions, token)
	return existed
}

// Sweep deletes every entry older than the TTL. It is the safety net for
// tokens that expire without ever being looked up again.
func (s *Store) Sweep() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for token, sess := range s.sessions {
		if now.Sub(sess.CreatedAt) >= s.ttl {
			delete(s.sessions, token)
			removed++
		}
	}
	if removed > 0 {
		s.logger.Debug("session sweep", "removed", removed, "remaining", len(s.sessions))
	}
}

// StartSweeper runs Sweep on the configured cadence until the context is
// cancelled.
func (s *Store) StartSweeper(ctx context.Context) {
	ticker := time.NewTicker(s.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}

// Stats reports the live session table. Expired entries are pruned first
// so the counts never include sessions past their TTL.
func (s *Store) Stats() Stats {
	s.Sweep()

	s.mu.Lock()
	defer s.mu.Unlock()

	stats := Stats{ActiveSessions: len(s.sessions)}
	if len(s.sessions) == 0 {
		return stats
	}

	now := s.now()
	first := true
	for _, sess := range s.sessions {
		age := now.Sub(sess.CreatedAt).Milliseconds()
		if first {
			stats.OldestAgeMS = age
			stats.NewestAgeMS = age
			first = false
			continue
		}
		if age > stats.OldestAgeMS {
			stats.OldestAgeMS = age
		}
		if age < stats.NewestAgeMS {
			stats.NewestAgeMS = age
		}
	}
	return stats
}

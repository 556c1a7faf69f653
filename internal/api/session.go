package api

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// createSessionRequest is the body for POST /session.
type createSessionRequest struct {
	BridgeID   string `json:"bridge_id"`
	Credential string `json:"credential"`
	Identity   string `json:"identity"`
}

// sessionResponse is returned by session create and refresh.
type sessionResponse struct {
	Token     string `json:"token"`
	ExpiresIn int    `json:"expires_in"`
}

// pairRequest is the body for POST /bridges/{bridgeID}/pair.
type pairRequest struct {
	Secret string `json:"secret"`
}

// handleCreateSession validates a bridge credential and issues a session
// token scoped to that bridge.
//
// Responses: 404 for unknown bridges, 403 with pairing_required when the
// bridge has never been paired, 401 for a credential mismatch.
func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.BridgeID == "" {
		writeBadRequest(w, "bridge_id is required")
		return
	}

	cfg, ok := s.selector.Config(req.BridgeID)
	if !ok {
		writeNotFound(w, "unknown bridge: "+req.BridgeID)
		return
	}

	identity := req.Identity
	if identity == "" {
		identity = "owner"
	}

	// Demo bridges carry no credential; anything else is checked against
	// the stored pairing secret.
	if !cfg.Demo {
		secret, ok := s.credentials.Get(req.BridgeID)
		if !ok {
			writePairingRequired(w, "bridge has not been paired")
			return
		}
		if subtle.ConstantTimeCompare([]byte(secret), []byte(req.Credential)) != 1 {
			writeUnauthorized(w, "invalid credential")
			return
		}
	}

	sess := s.sessions.Create(req.BridgeID, identity)
	writeJSON(w, http.StatusOK, sessionResponse{
		Token:     sess.Token,
		ExpiresIn: int(s.sessions.TTL().Seconds()),
	})
}

// handleDeleteSession revokes the bearer token.
func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	if token == "" {
		writeUnauthorized(w, "bearer token is required")
		return
	}

	revoked := s.sessions.Revoke(token)
	writeJSON(w, http.StatusOK, map[string]any{"success": revoked})
}

// handleRefreshSession revokes the bearer token and issues a fresh one
// with the same scope.
func (s *Server) handleRefreshSession(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	if token == "" {
		writeUnauthorized(w, "bearer token is required")
		return
	}

	view := s.sessions.Lookup(token)
	if view == nil {
		writeUnauthorized(w, "invalid or expired session token")
		return
	}

	s.sessions.Revoke(token)
	sess := s.sessions.Create(view.BridgeID, view.Identity)
	writeJSON(w, http.StatusOK, sessionResponse{
		Token:     sess.Token,
		ExpiresIn: int(s.sessions.TTL().Seconds()),
	})
}

// handleSessionStats reports the live session table.
func (s *Server) handleSessionStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.sessions.Stats())
}

// handlePairBridge stores the pairing secret for a bridge and invalidates
// any cached source so the next fetch uses the new credential.
//
// The vendor-specific pairing dance (pressing the link button, cloud 2FA)
// happens client-side; this endpoint records its result.
func (s *Server) handlePairBridge(w http.ResponseWriter, r *http.Request) {
	bridgeID := chi.URLParam(r, "bridgeID")

	cfg, ok := s.selector.Config(bridgeID)
	if !ok {
		writeNotFound(w, "unknown bridge: "+bridgeID)
		return
	}
	if cfg.Demo {
		writeBadRequest(w, "demo bridges do not require pairing")
		return
	}

	var req pairRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Secret == "" {
		writeBadRequest(w, "secret is required")
		return
	}

	s.credentials.Store(r.Context(), bridgeID, req.Secret)
	s.selector.Invalidate(bridgeID)

	s.logger.Info("bridge paired", "bridge_id", bridgeID)
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

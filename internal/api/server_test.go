package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/nerrad567/homelink-core/internal/bridges"
	"github.com/nerrad567/homelink-core/internal/credential"
	"github.com/nerrad567/homelink-core/internal/infrastructure/config"
	"github.com/nerrad567/homelink-core/internal/infrastructure/logging"
	"github.com/nerrad567/homelink-core/internal/live"
	"github.com/nerrad567/homelink-core/internal/session"
	"github.com/nerrad567/homelink-core/internal/snapshot"
)

// memRepo is an in-memory credential repository for tests.
type memRepo struct {
	m map[string]string
}

func newMemRepo() *memRepo {
	return &memRepo{m: make(map[string]string)}
}

func (r *memRepo) Load(context.Context) (map[string]string, error) {
	out := make(map[string]string, len(r.m))
	for k, v := range r.m {
		out[k] = v
	}
	return out, nil
}

func (r *memRepo) Upsert(_ context.Context, bridgeID, secret string) error {
	r.m[bridgeID] = secret
	return nil
}

func (r *memRepo) Delete(_ context.Context, bridgeID string) error {
	delete(r.m, bridgeID)
	return nil
}

// stubHueSource is a fixed-state source standing in for a paired Hue bridge.
type stubHueSource struct {
	bridgeID string
	secret   string
}

func (s *stubHueSource) Connect(context.Context) error { return nil }
func (s *stubHueSource) IsConnected() bool             { return true }
func (s *stubHueSource) Snapshot(context.Context) (*snapshot.Snapshot, error) {
	return &snapshot.Snapshot{
		BridgeID: s.bridgeID,
		TakenAt:  time.Now().UTC(),
		Summary:  snapshot.Summary{Rooms: 1, Devices: 1},
		Rooms: []snapshot.Room{
			{ID: "r1", Name: "Hall", Devices: []snapshot.Device{
				{ID: "d1", Name: "Hall Light", Type: "light", On: true, Reachable: true},
			}},
		},
	}, nil
}

// testServer wires a full server over in-memory stores and the demo bridge.
func testServer(t *testing.T) *Server {
	t.Helper()
	return testServerTTL(t, time.Hour)
}

func testServerTTL(t *testing.T, sessionTTL time.Duration) *Server {
	t.Helper()

	log := logging.New(config.LoggingConfig{Level: "error", Format: "text", Output: "stdout"}, "test")

	sessions := session.NewStore(sessionTTL, time.Minute, log)
	creds := credential.NewStore(newMemRepo(), log)
	creds.Load(context.Background())

	selector := bridges.NewSelector([]config.BridgeConfig{
		{ID: "demo", Demo: true},
		{ID: "hue-1", Service: bridges.ServiceHue},
	}, creds)
	selector.Register(bridges.ServiceHue, func(cfg config.BridgeConfig, secret string) (bridges.Source, error) {
		return &stubHueSource{bridgeID: cfg.ID, secret: secret}, nil
	})

	wsCfg := config.WebSocketConfig{
		Path:           "/ws",
		MaxMessageSize: 8192,
		PingInterval:   30,
		PongTimeout:    10,
	}

	hub := NewHub(wsCfg, log)
	coordinator := live.NewCoordinator(live.CoordinatorDeps{
		Registry:     live.NewRegistry(),
		Sources:      selector,
		Broadcaster:  hub,
		Logger:       log,
		PollInterval: 20 * time.Millisecond,
		FetchTimeout: time.Second,
	})
	t.Cleanup(coordinator.Close)

	srv, err := New(Deps{
		Config: config.APIConfig{
			Host: "127.0.0.1",
			Port: 0,
			Timeouts: config.APITimeoutConfig{
				Read:  5,
				Write: 5,
				Idle:  5,
			},
		},
		WS:          wsCfg,
		Logger:      log,
		Sessions:    sessions,
		Credentials: creds,
		Selector:    selector,
		Coordinator: coordinator,
		Hub:         hub,
		Version:     "test",
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	return srv
}

func TestHealth(t *testing.T) {
	srv := testServer(t)
	router := srv.buildRouter()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("health status = %d, want %d", w.Code, http.StatusOK)
	}

	var resp map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if resp["status"] != "ok" {
		t.Errorf("status = %v, want ok", resp["status"])
	}
	if resp["version"] != "test" {
		t.Errorf("version = %v, want test", resp["version"])
	}
}

func TestNew_MissingDeps(t *testing.T) {
	if _, err := New(Deps{}); err == nil {
		t.Error("New() with empty deps succeeded, want error")
	}
}

package bridges

import (
	"context"
	"errors"
	"testing"

	"github.com/nerrad567/homelink-core/internal/infrastructure/config"
	"github.com/nerrad567/homelink-core/internal/snapshot"
)

// mapCreds is a CredentialGetter over a plain map.
type mapCreds map[string]string

func (m mapCreds) Get(bridgeID string) (string, bool) {
	secret, ok := m[bridgeID]
	return secret, ok
}

// stubSource records the secret it was built with.
type stubSource struct {
	secret    string
	connected bool
}

func (s *stubSource) Connect(context.Context) error { s.connected = true; return nil }
func (s *stubSource) IsConnected() bool             { return s.connected }
func (s *stubSource) Snapshot(context.Context) (*snapshot.Snapshot, error) {
	return &snapshot.Snapshot{}, nil
}

func TestSelector_UnknownBridge(t *testing.T) {
	sel := NewSelector(nil, mapCreds{})
	if _, err := sel.Source("nope"); !errors.Is(err, ErrUnknownBridge) {
		t.Errorf("Source(unknown) error = %v, want ErrUnknownBridge", err)
	}
}

func TestSelector_UnknownService(t *testing.T) {
	sel := NewSelector([]config.BridgeConfig{
		{ID: "b1", Service: "zigbee"},
	}, mapCreds{"b1": "s"})

	if _, err := sel.Source("b1"); !errors.Is(err, ErrUnknownService) {
		t.Errorf("Source() error = %v, want ErrUnknownService", err)
	}
}

func TestSelector_PairingRequired(t *testing.T) {
	sel := NewSelector([]config.BridgeConfig{
		{ID: "hue-1", Service: ServiceHue},
	}, mapCreds{})
	sel.Register(ServiceHue, func(_ config.BridgeConfig, secret string) (Source, error) {
		return &stubSource{secret: secret}, nil
	})

	if _, err := sel.Source("hue-1"); !errors.Is(err, ErrPairingRequired) {
		t.Errorf("Source() without credential error = %v, want ErrPairingRequired", err)
	}
}

func TestSelector_BuildsAndCaches(t *testing.T) {
	built := 0
	sel := NewSelector([]config.BridgeConfig{
		{ID: "hue-1", Service: ServiceHue},
	}, mapCreds{"hue-1": "app-key"})
	sel.Register(ServiceHue, func(_ config.BridgeConfig, secret string) (Source, error) {
		built++
		return &stubSource{secret: secret}, nil
	})

	src, err := sel.Source("hue-1")
	if err != nil {
		t.Fatalf("Source() error = %v", err)
	}
	if src.(*stubSource).secret != "app-key" {
		t.Errorf("factory received secret %q, want app-key", src.(*stubSource).secret)
	}

	again, err := sel.Source("hue-1")
	if err != nil {
		t.Fatalf("second Source() error = %v", err)
	}
	if src != again {
		t.Error("Source() rebuilt a cached instance")
	}
	if built != 1 {
		t.Errorf("factory called %d times, want 1", built)
	}
}

func TestSelector_InvalidateForcesRebuild(t *testing.T) {
	built := 0
	sel := NewSelector([]config.BridgeConfig{
		{ID: "hue-1", Service: ServiceHue},
	}, mapCreds{"hue-1": "key"})
	sel.Register(ServiceHue, func(_ config.BridgeConfig, secret string) (Source, error) {
		built++
		return &stubSource{secret: secret}, nil
	})

	if _, err := sel.Source("hue-1"); err != nil {
		t.Fatalf("Source() error = %v", err)
	}
	sel.Invalidate("hue-1")
	if _, err := sel.Source("hue-1"); err != nil {
		t.Fatalf("Source() after Invalidate error = %v", err)
	}
	if built != 2 {
		t.Errorf("factory called %d times after invalidate, want 2", built)
	}
}

func TestSelector_DemoNeedsNoCredential(t *testing.T) {
	sel := NewSelector([]config.BridgeConfig{
		{ID: "demo", Demo: true},
	}, mapCreds{})

	src, err := sel.Source("demo")
	if err != nil {
		t.Fatalf("Source(demo) error = %v", err)
	}
	if !src.IsConnected() {
		t.Error("demo source IsConnected() = false, want true")
	}
}

func TestDemoSource_SnapshotShape(t *testing.T) {
	src, err := NewDemoSource(config.BridgeConfig{ID: "demo"}, "")
	if err != nil {
		t.Fatalf("NewDemoSource() error = %v", err)
	}

	snap, err := src.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}
	if snap.BridgeID != "demo" {
		t.Errorf("BridgeID = %q, want demo", snap.BridgeID)
	}
	if len(snap.Rooms) != 2 {
		t.Errorf("rooms = %d, want 2", len(snap.Rooms))
	}
	if snap.Summary.Devices != 3 {
		t.Errorf("Summary.Devices = %d, want 3", snap.Summary.Devices)
	}
	if len(snap.Services) != 1 || snap.Services[0].Name != "heating" {
		t.Error("expected one heating service")
	}
}

func TestDemoSource_StateDrifts(t *testing.T) {
	src, _ := NewDemoSource(config.BridgeConfig{ID: "demo"}, "")
	ctx := context.Background()

	first, _ := src.Snapshot(ctx)
	var changed bool
	prev := first
	for i := 0; i < demoToggleEvery*2; i++ {
		cur, _ := src.Snapshot(ctx)
		if len(snapshot.Diff(prev, cur)) > 0 {
			changed = true
			break
		}
		prev = cur
	}
	if !changed {
		t.Error("demo source never produced a state change")
	}
}

func TestWrapUpstream_ClassifiesTimeout(t *testing.T) {
	err := WrapUpstream("hue-1", context.DeadlineExceeded)
	if !err.Timeout {
		t.Error("deadline exceeded not classified as timeout")
	}

	err = WrapUpstream("hue-1", errors.New("connection refused"))
	if err.Timeout {
		t.Error("connection refused wrongly classified as timeout")
	}
	if !errors.Is(err, err.Err) {
		t.Error("UpstreamError does not unwrap to its cause")
	}
}

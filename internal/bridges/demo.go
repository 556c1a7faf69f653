package bridges

import (
	"context"
	"sync"
	"time"

	"github.com/nerrad567/homelink-core/internal/infrastructure/config"
	"github.com/nerrad567/homelink-core/internal/snapshot"
)

// demoToggleEvery is how many fetches pass between synthetic state changes,
// so demo clients see a live-looking but calm stream.
const demoToggleEvery = 4

// DemoSource is the synthetic variant: a fixed two-room home whose state
// drifts slowly over successive fetches. It needs no credential and never
// fails.
type DemoSource struct {
	bridgeID string

	mu      sync.Mutex
	fetches int
	lampOn  bool
	target  float64
}

// NewDemoSource builds the demo variant. The secret is ignored.
func NewDemoSource(cfg config.BridgeConfig, _ string) (Source, error) {
	return &DemoSource{
		bridgeID: cfg.ID,
		lampOn:   true,
		target:   19.5,
	}, nil
}

// Connect is a no-op: there is no upstream.
func (d *DemoSource) Connect(_ context.Context) error {
	return nil
}

// IsConnected always reports true for the synthetic upstream.
func (d *DemoSource) IsConnected() bool {
	return true
}

// Snapshot returns the current synthetic state. Every demoToggleEvery
// fetches the living room lamp toggles and the heating target nudges, so
// subscribers receive periodic deltas.
func (d *DemoSource) Snapshot(_ context.Context) (*snapshot.Snapshot, error) {
	d.mu.Lock()
	d.fetches++
	if d.fetches%demoToggleEvery == 0 {
		d.lampOn = !d.lampOn
		if d.lampOn {
			d.target += 0.5
		} else {
			d.target -= 0.5
		}
	}
	lampOn := d.lampOn
	target := d.target
	d.mu.Unlock()

	devicesOn := 1
	brightness := 0
	if lampOn {
		devicesOn = 2
		brightness = 178
	}

	return &snapshot.Snapshot{
		BridgeID: d.bridgeID,
		TakenAt:  time.Now().UTC(),
		Summary: snapshot.Summary{
			Rooms:            2,
			Devices:          3,
			DevicesOn:        devicesOn,
			DevicesReachable: 3,
			Scenes:           2,
		},
		Rooms: []snapshot.Room{
			{
				ID: "demo-living", Name: "Living Room",
				AnyOn: true, AllOn: lampOn, Brightness: 178,
				Devices: []snapshot.Device{
					{ID: "demo-lamp-1", Name: "Floor Lamp", Type: "light", On: lampOn, Reachable: true, Brightness: brightness},
					{ID: "demo-lamp-2", Name: "Ceiling", Type: "light", On: true, Reachable: true, Brightness: 254},
				},
				Scenes: []snapshot.Scene{
					{ID: "demo-scene-1", Name: "Evening"},
					{ID: "demo-scene-2", Name: "Bright"},
				},
			},
			{
				ID: "demo-bedroom", Name: "Bedroom",
				Devices: []snapshot.Device{
					{ID: "demo-lamp-3", Name: "Bedside", Type: "light", Reachable: true},
				},
			},
		},
		Services: []snapshot.Service{
			{
				Name:      "heating",
				Connected: true,
				Data: map[string]any{
					"target":  target,
					"current": 18.9,
					"mode":    "schedule",
				},
			},
		},
	}, nil
}

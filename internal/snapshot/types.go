package snapshot

import "time"

// Snapshot is the full aggregated state of one bridge at one point in time.
//
// Snapshots are immutable once produced: sources build a fresh value per
// fetch and nothing mutates one after it is handed to the engine. TakenAt
// is metadata and is excluded from change detection.
type Snapshot struct {
	BridgeID string    `json:"bridge_id"`
	TakenAt  time.Time `json:"taken_at"`
	Summary  Summary   `json:"summary"`
	Rooms    []Room    `json:"rooms"`
	Services []Service `json:"services"`
}

// Summary holds the site-wide counters shown on dashboards.
type Summary struct {
	Rooms            int `json:"rooms"`
	Devices          int `json:"devices"`
	DevicesOn        int `json:"devices_on"`
	DevicesReachable int `json:"devices_reachable"`
	Scenes           int `json:"scenes"`
}

// Room is one logical room on a bridge, with its devices and scenes.
type Room struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	AnyOn      bool     `json:"any_on"`
	AllOn      bool     `json:"all_on"`
	Brightness int      `json:"brightness"`
	Devices    []Device `json:"devices"`
	Scenes     []Scene  `json:"scenes"`
}

// Device is one controllable or sensing unit within a room.
//
// Attrs carries service-specific extras (colour temperature, battery level)
// without the core needing to model every vendor field.
type Device struct {
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	Type       string         `json:"type"`
	On         bool           `json:"on"`
	Reachable  bool           `json:"reachable"`
	Brightness int            `json:"brightness"`
	Attrs      map[string]any `json:"attrs,omitempty"`
}

// Scene is a named preset selectable within a room.
type Scene struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Service is the sub-state of one named external service on the bridge
// (e.g. the heating service's target temperature and schedule mode).
type Service struct {
	Name      string         `json:"name"`
	Connected bool           `json:"connected"`
	Data      map[string]any `json:"data,omitempty"`
}

// DeltaKind identifies which snapshot section a delta replaces.
type DeltaKind string

// Delta kinds, in the order they are emitted by Diff.
const (
	KindSummary DeltaKind = "summary"
	KindRoom    DeltaKind = "room"
	KindDevice  DeltaKind = "device"
	KindService DeltaKind = "service"
)

// Delta is one typed unit of change between two snapshots.
//
// Payload is the entire current value of the changed section, not a
// field-level patch. Scope narrows the delta: the room id for room deltas,
// the device id for device deltas, the service name for service deltas.
// Deltas are ephemeral - produced, broadcast, and discarded.
type Delta struct {
	Kind    DeltaKind `json:"kind"`
	Scope   string    `json:"scope,omitempty"`
	Payload any       `json:"payload"`
}

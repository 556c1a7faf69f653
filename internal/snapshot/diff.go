package snapshot

import "reflect"

// RoomDevice is the payload of a device delta: the full current device
// value plus the room it belongs to, so clients can place it without a
// separate lookup.
type RoomDevice struct {
	RoomID string `json:"room_id"`
	Device Device `json:"device"`
}

// Diff compares two snapshots and returns the ordered list of deltas that
// turn previous into current.
//
// Sections are compared by structural value equality and emitted in
// deterministic order: summary first, then rooms in snapshot order, then
// devices in room order, then services in registration order. A nil
// previous (first poll after task start) emits every section of current.
// Device identity is scoped to its room, so a device that moves between
// rooms emits a delta in its new room even when its value is unchanged.
// Sections absent from current but present in previous are ignored - the
// system models presence and value changes, not deletions.
func Diff(previous, current *Snapshot) []Delta {
	if current == nil {
		return nil
	}
	// Reference-identical snapshots cannot differ.
	if previous == current {
		return nil
	}

	var deltas []Delta

	if previous == nil || !reflect.DeepEqual(previous.Summary, current.Summary) {
		deltas = append(deltas, Delta{Kind: KindSummary, Payload: current.Summary})
	}

	// Devices are keyed per room, not globally: a device that moves to a
	// different room is new in that room and must emit a delta carrying
	// the new RoomID even when its value is unchanged.
	type roomDeviceKey struct {
		roomID   string
		deviceID string
	}

	prevRooms := make(map[string]Room)
	prevDevices := make(map[roomDeviceKey]Device)
	if previous != nil {
		for _, room := range previous.Rooms {
			prevRooms[room.ID] = room
			for _, dev := range room.Devices {
				prevDevices[roomDeviceKey{room.ID, dev.ID}] = dev
			}
		}
	}

	for _, room := range current.Rooms {
		header := roomHeader(room)
		prev, seen := prevRooms[room.ID]
		if !seen || !reflect.DeepEqual(roomHeader(prev), header) {
			deltas = append(deltas, Delta{Kind: KindRoom, Scope: room.ID, Payload: header})
		}

		for _, dev := range room.Devices {
			prevDev, devSeen := prevDevices[roomDeviceKey{room.ID, dev.ID}]
			if !devSeen || !reflect.DeepEqual(prevDev, dev) {
				deltas = append(deltas, Delta{
					Kind:    KindDevice,
					Scope:   dev.ID,
					Payload: RoomDevice{RoomID: room.ID, Device: dev},
				})
			}
		}
	}

	prevServices := make(map[string]Service)
	if previous != nil {
		for _, svc := range previous.Services {
			prevServices[svc.Name] = svc
		}
	}
	for _, svc := range current.Services {
		prev, seen := prevServices[svc.Name]
		if !seen || !reflect.DeepEqual(prev, svc) {
			deltas = append(deltas, Delta{Kind: KindService, Scope: svc.Name, Payload: svc})
		}
	}

	return deltas
}

// roomHeader strips the device list from a room, leaving the room-level
// section that room deltas carry. Devices are diffed individually.
func roomHeader(r Room) Room {
	r.Devices = nil
	return r
}

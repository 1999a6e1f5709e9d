// Package fall turns per-frame fall flags into deduplicated start/finish
// events per track. A track that stops reporting a fall while still visible
// finishes immediately; a track that vanishes mid-fall is held for a grace
// period before the episode is force-finished.
package fall

import (
	"bytes"
	"sort"

	"github.com/google/uuid"

	"fallsense/analytics"
)

type trackState struct {
	lastSeenUs int64
}

// Machine holds the active fall episodes for one camera. Owned by the
// worker goroutine; no locking.
type Machine struct {
	finishGraceUs int64
	active        map[uuid.UUID]trackState
}

// NewMachine builds an empty machine with the given grace period in
// microseconds.
func NewMachine(finishGraceUs int64) *Machine {
	return &Machine{
		finishGraceUs: finishGraceUs,
		active:        make(map[uuid.UUID]trackState),
	}
}

// Observe consumes one frame's resolved detections and returns the event
// packets to emit. For every track the event sequence is strictly
// START FINISH START FINISH ...; a START is emitted at most once per
// contiguous episode.
func (m *Machine) Observe(detections []analytics.Detection, nowUs int64) []*analytics.EventMetadataPacket {
	seen := make(map[uuid.UUID]bool, len(detections))
	falling := make(map[uuid.UUID]bool)
	var order []uuid.UUID

	for _, d := range detections {
		seen[d.TrackID] = true
		if d.FallDetected && !falling[d.TrackID] {
			falling[d.TrackID] = true
			order = append(order, d.TrackID)
		}
	}

	var packets []*analytics.EventMetadataPacket

	for _, id := range order {
		if state, ok := m.active[id]; ok {
			state.lastSeenUs = nowUs
			m.active[id] = state
			continue
		}
		m.active[id] = trackState{lastSeenUs: nowUs}
		packets = append(packets, eventPacket(id, nowUs, true))
	}

	var toFinish []uuid.UUID
	for id, state := range m.active {
		if falling[id] {
			continue
		}
		if seen[id] || nowUs-state.lastSeenUs >= m.finishGraceUs {
			toFinish = append(toFinish, id)
		}
	}
	// Map iteration order is random; keep the emitted sequence a pure
	// function of the inputs.
	sort.Slice(toFinish, func(i, j int) bool {
		return bytes.Compare(toFinish[i][:], toFinish[j][:]) < 0
	})

	for _, id := range toFinish {
		delete(m.active, id)
		packets = append(packets, eventPacket(id, nowUs, false))
	}

	return packets
}

// ActiveCount returns the number of tracks currently in the falling state.
func (m *Machine) ActiveCount() int {
	return len(m.active)
}

func eventPacket(id uuid.UUID, nowUs int64, started bool) *analytics.EventMetadataPacket {
	caption := "Fall detected FINISHED"
	description := "Track " + id.String() + " exited fall state"
	if started {
		caption = "Fall detected STARTED"
		description = "Track " + id.String() + " entered fall state"
	}

	return &analytics.EventMetadataPacket{
		TimestampUs: nowUs,
		Items: []analytics.EventMetadata{{
			TypeID:      analytics.FallEventType,
			Caption:     caption,
			Description: description,
			IsActive:    started,
		}},
	}
}

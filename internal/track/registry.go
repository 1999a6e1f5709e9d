// Package track assigns stable per-object identities to detections. AI
// supplied track ids are used directly; detections without one are matched
// to recent boxes by IoU and given synthetic keys. Keys map to opaque UUIDs
// that persist until the track goes stale.
package track

import (
	"github.com/google/uuid"

	"fallsense/analytics"
)

// iouThreshold is the minimum overlap for a detection to continue an
// existing synthetic track.
const iouThreshold = 0.3

type syntheticTrack struct {
	bbox       analytics.Rect
	lastSeenUs int64
}

// Registry holds all track state for one camera. It is owned by the worker
// goroutine; no locking.
type Registry struct {
	syntheticTrackTTLUs int64
	trackMapTTLUs       int64

	nextSyntheticID int64
	synthetic       map[int64]syntheticTrack
	uuidByKey       map[int64]uuid.UUID
	lastSeenUs      map[int64]int64

	newUUID func() uuid.UUID
}

// NewRegistry builds an empty registry with the given TTLs in microseconds.
func NewRegistry(syntheticTrackTTLUs, trackMapTTLUs int64) *Registry {
	return &Registry{
		syntheticTrackTTLUs: syntheticTrackTTLUs,
		trackMapTTLUs:       trackMapTTLUs,
		nextSyntheticID:     -1,
		synthetic:           make(map[int64]syntheticTrack),
		uuidByKey:           make(map[int64]uuid.UUID),
		lastSeenUs:          make(map[int64]int64),
		newUUID:             uuid.New,
	}
}

// Resolve assigns a TrackID to every detection in place. AI ids (including
// a literal 0) are used as keys directly; synthetic keys are negative so the
// two ranges never collide.
func (r *Registry) Resolve(detections []analytics.Detection, nowUs int64) {
	for i := range detections {
		var key int64
		if detections[i].AITrackID != nil {
			key = *detections[i].AITrackID
		} else {
			key = r.resolveSynthetic(detections[i].BBox, nowUs)
		}

		detections[i].TrackID = r.getOrCreateUUID(key)
		r.lastSeenUs[key] = nowUs
	}
}

// resolveSynthetic matches the box against live synthetic tracks and picks
// the best IoU above the threshold, or allocates a new negative key.
func (r *Registry) resolveSynthetic(bbox analytics.Rect, nowUs int64) int64 {
	var bestKey int64
	var bestIoU float32

	for key, t := range r.synthetic {
		if nowUs-t.lastSeenUs > r.syntheticTrackTTLUs {
			continue
		}
		overlap := IoU(t.bbox, bbox)
		if overlap > iouThreshold && overlap > bestIoU {
			bestIoU = overlap
			bestKey = key
		}
	}

	if bestKey == 0 {
		bestKey = r.nextSyntheticID
		r.nextSyntheticID--
	}
	r.synthetic[bestKey] = syntheticTrack{bbox: bbox, lastSeenUs: nowUs}
	return bestKey
}

func (r *Registry) getOrCreateUUID(key int64) uuid.UUID {
	if id, ok := r.uuidByKey[key]; ok {
		return id
	}
	id := r.newUUID()
	r.uuidByKey[key] = id
	return id
}

// Cleanup expires synthetic tracks past their TTL and drops key→UUID
// mappings not seen within the map TTL.
func (r *Registry) Cleanup(nowUs int64) {
	for key, t := range r.synthetic {
		if nowUs-t.lastSeenUs > r.syntheticTrackTTLUs {
			delete(r.synthetic, key)
		}
	}

	for key, seen := range r.lastSeenUs {
		if nowUs-seen > r.trackMapTTLUs {
			delete(r.uuidByKey, key)
			delete(r.lastSeenUs, key)
		}
	}
}

// Size returns the number of live key→UUID mappings.
func (r *Registry) Size() int {
	return len(r.uuidByKey)
}

// SyntheticCount returns the number of live synthetic tracks.
func (r *Registry) SyntheticCount() int {
	return len(r.synthetic)
}

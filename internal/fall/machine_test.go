package fall

import (
	"math/rand"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fallsense/analytics"
)

func obs(id uuid.UUID, falling bool) analytics.Detection {
	return analytics.Detection{
		BBox:         analytics.Rect{X: 0.1, Y: 0.1, Width: 0.2, Height: 0.4},
		ClassLabel:   "person",
		FallDetected: falling,
		TrackID:      id,
	}
}

func captions(packets []*analytics.EventMetadataPacket) []string {
	var out []string
	for _, p := range packets {
		for _, item := range p.Items {
			out = append(out, item.Caption)
		}
	}
	return out
}

func TestFallStartThenImmediateFinishWhenSeen(t *testing.T) {
	m := NewMachine(3_000_000)
	id := uuid.New()

	// t=0: falling -> START.
	packets := m.Observe([]analytics.Detection{obs(id, true)}, 0)
	require.Equal(t, []string{"Fall detected STARTED"}, captions(packets))
	require.Len(t, packets, 1)
	assert.True(t, packets[0].Items[0].IsActive)
	assert.Equal(t, analytics.FallEventType, packets[0].Items[0].TypeID)
	assert.Contains(t, packets[0].Items[0].Description, id.String())

	// t=200ms: still falling -> no event.
	packets = m.Observe([]analytics.Detection{obs(id, true)}, 200_000)
	assert.Empty(t, packets)

	// t=400ms: seen upright -> immediate FINISH.
	packets = m.Observe([]analytics.Detection{obs(id, false)}, 400_000)
	require.Equal(t, []string{"Fall detected FINISHED"}, captions(packets))
	assert.False(t, packets[0].Items[0].IsActive)
	assert.Equal(t, int64(400_000), packets[0].TimestampUs)
	assert.Zero(t, m.ActiveCount())
}

func TestFallFinishByGracePeriod(t *testing.T) {
	m := NewMachine(3_000_000)
	id := uuid.New()

	packets := m.Observe([]analytics.Detection{obs(id, true)}, 0)
	require.Equal(t, []string{"Fall detected STARTED"}, captions(packets))

	// The track vanishes. Frames inside the grace period emit nothing.
	assert.Empty(t, m.Observe(nil, 1_000_000))
	assert.Empty(t, m.Observe(nil, 2_900_000))
	assert.Equal(t, 1, m.ActiveCount())

	// First frame at or past the grace deadline force-finishes.
	packets = m.Observe(nil, 3_000_000)
	require.Equal(t, []string{"Fall detected FINISHED"}, captions(packets))
	assert.Equal(t, int64(3_000_000), packets[0].TimestampUs)
	assert.Zero(t, m.ActiveCount())
}

func TestFallStartDeduplicatedPerEpisode(t *testing.T) {
	m := NewMachine(3_000_000)
	id := uuid.New()

	var all []string
	for ts := int64(0); ts < 1_000_000; ts += 200_000 {
		all = append(all, captions(m.Observe([]analytics.Detection{obs(id, true)}, ts))...)
	}
	assert.Equal(t, []string{"Fall detected STARTED"}, all, "one START per contiguous episode")
}

func TestFallGraceRefreshedWhileFlagged(t *testing.T) {
	m := NewMachine(3_000_000)
	id := uuid.New()

	m.Observe([]analytics.Detection{obs(id, true)}, 0)
	// Still flagged at t=2.5s: grace restarts from here.
	m.Observe([]analytics.Detection{obs(id, true)}, 2_500_000)

	// t=4s is within 3s of the refreshed observation.
	assert.Empty(t, m.Observe(nil, 4_000_000))
	assert.Equal(t, 1, m.ActiveCount())

	packets := m.Observe(nil, 5_500_000)
	assert.Equal(t, []string{"Fall detected FINISHED"}, captions(packets))
}

func TestFallIndependentTracks(t *testing.T) {
	m := NewMachine(3_000_000)
	a := uuid.New()
	b := uuid.New()

	packets := m.Observe([]analytics.Detection{obs(a, true), obs(b, true)}, 0)
	assert.Len(t, packets, 2)
	assert.Equal(t, 2, m.ActiveCount())

	// Only a recovers.
	packets = m.Observe([]analytics.Detection{obs(a, false), obs(b, true)}, 500_000)
	require.Len(t, packets, 1)
	assert.Contains(t, packets[0].Items[0].Description, a.String())
	assert.Equal(t, 1, m.ActiveCount())
}

// Whatever the flag stream, per track the event sequence must alternate
// START, FINISH, START, ... beginning with START. The machine is a pure
// function of (detections, timestamps), so a fixed seed keeps this
// reproducible.
func TestFallEventSequenceAlternates(t *testing.T) {
	m := NewMachine(1_000_000)
	rng := rand.New(rand.NewSource(42))

	ids := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}
	lastActive := make(map[uuid.UUID]*bool)

	ts := int64(0)
	for frame := 0; frame < 500; frame++ {
		ts += int64(rng.Intn(400_000))
		var dets []analytics.Detection
		for _, id := range ids {
			switch rng.Intn(3) {
			case 0: // absent
			case 1:
				dets = append(dets, obs(id, false))
			case 2:
				dets = append(dets, obs(id, true))
			}
		}

		for _, p := range m.Observe(dets, ts) {
			require.Len(t, p.Items, 1)
			item := p.Items[0]

			var id uuid.UUID
			found := false
			for _, candidate := range ids {
				if item.Description == "Track "+candidate.String()+" entered fall state" ||
					item.Description == "Track "+candidate.String()+" exited fall state" {
					id = candidate
					found = true
				}
			}
			require.True(t, found, "event names a known track")

			prev := lastActive[id]
			if item.IsActive {
				require.True(t, prev == nil || !*prev, "START must not repeat for track %s", id)
			} else {
				require.True(t, prev != nil && *prev, "FINISH requires a preceding START for track %s", id)
			}
			active := item.IsActive
			lastActive[id] = &active
		}
	}
}

func TestFallDeterministicOnIdenticalInput(t *testing.T) {
	run := func() []string {
		m := NewMachine(2_000_000)
		idA := uuid.MustParse("11111111-2222-3333-4444-555555555555")
		idB := uuid.MustParse("66666666-7777-8888-9999-aaaaaaaaaaaa")

		var out []string
		frames := []struct {
			ts   int64
			dets []analytics.Detection
		}{
			{0, []analytics.Detection{obs(idA, true)}},
			{300_000, []analytics.Detection{obs(idA, true), obs(idB, true)}},
			{600_000, []analytics.Detection{obs(idB, false)}},
			{2_500_000, nil},
			{4_000_000, nil},
		}
		for _, f := range frames {
			for _, p := range m.Observe(f.dets, f.ts) {
				out = append(out, p.Items[0].Description)
			}
		}
		return out
	}

	assert.Equal(t, run(), run(), "identical inputs produce identical event sequences")
}

package detector

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDetectionsNormalization(t *testing.T) {
	body := []byte(`[{"x":100,"y":100,"w":50,"h":200,"cls":"person","score":0.9,"track_id":7,"fall_detected":false}]`)

	dets, err := parseDetections(body, 640, 480)
	require.NoError(t, err)
	require.Len(t, dets, 1)

	d := dets[0]
	assert.InDelta(t, 0.15625, d.BBox.X, 1e-4)
	assert.InDelta(t, 0.2083, d.BBox.Y, 1e-4)
	assert.InDelta(t, 0.0781, d.BBox.Width, 1e-4)
	assert.InDelta(t, 0.4167, d.BBox.Height, 1e-4)
	assert.Equal(t, "person", d.ClassLabel)
	assert.InDelta(t, 0.9, d.Confidence, 1e-6)
	assert.False(t, d.FallDetected)
	require.NotNil(t, d.AITrackID)
	assert.Equal(t, int64(7), *d.AITrackID)
}

func TestParseDetectionsDropsDegenerate(t *testing.T) {
	body := []byte(`[
		{"x":10,"y":10,"w":0,"h":50},
		{"x":10,"y":10,"w":50,"h":0},
		{"x":10,"y":10,"w":-5,"h":50},
		{"x":700,"y":10,"w":20,"h":20}
	]`)

	dets, err := parseDetections(body, 640, 480)
	require.NoError(t, err)
	assert.Empty(t, dets, "zero extents and fully out-of-frame boxes are dropped")
}

func TestParseDetectionsClampsOverflow(t *testing.T) {
	// Right edge overflows by a few pixels: clamp, don't drop.
	body := []byte(`[{"x":600,"y":400,"w":60,"h":100}]`)

	dets, err := parseDetections(body, 640, 480)
	require.NoError(t, err)
	require.Len(t, dets, 1)

	d := dets[0]
	assert.LessOrEqual(t, d.BBox.X+d.BBox.Width, float32(1))
	assert.LessOrEqual(t, d.BBox.Y+d.BBox.Height, float32(1))
	assert.Greater(t, d.BBox.Width, float32(0))
	assert.Greater(t, d.BBox.Height, float32(0))
}

func TestParseDetectionsFieldAliases(t *testing.T) {
	body := []byte(`[
		{"x":10,"y":10,"w":20,"h":20,"class":"dog","confidence":0.5},
		{"x":10,"y":10,"w":20,"h":20}
	]`)

	dets, err := parseDetections(body, 640, 480)
	require.NoError(t, err)
	require.Len(t, dets, 2)

	assert.Equal(t, "dog", dets[0].ClassLabel)
	assert.InDelta(t, 0.5, dets[0].Confidence, 1e-6)

	assert.Equal(t, "person", dets[1].ClassLabel, "missing class defaults to person")
	assert.Zero(t, dets[1].Confidence)
}

func TestParseTrackIDForms(t *testing.T) {
	tests := []struct {
		name string
		body string
		want *int64
	}{
		{name: "integer", body: `[{"x":1,"y":1,"w":5,"h":5,"track_id":3}]`, want: int64Ptr(3)},
		{name: "zero is a valid id", body: `[{"x":1,"y":1,"w":5,"h":5,"track_id":0}]`, want: int64Ptr(0)},
		{name: "float rounds", body: `[{"x":1,"y":1,"w":5,"h":5,"track_id":4.6}]`, want: int64Ptr(5)},
		{name: "numeric string", body: `[{"x":1,"y":1,"w":5,"h":5,"track_id":"12"}]`, want: int64Ptr(12)},
		{name: "absent", body: `[{"x":1,"y":1,"w":5,"h":5}]`, want: nil},
		{name: "garbage string", body: `[{"x":1,"y":1,"w":5,"h":5,"track_id":"abc"}]`, want: nil},
		{name: "empty string", body: `[{"x":1,"y":1,"w":5,"h":5,"track_id":""}]`, want: nil},
		{name: "null", body: `[{"x":1,"y":1,"w":5,"h":5,"track_id":null}]`, want: nil},
		{name: "object", body: `[{"x":1,"y":1,"w":5,"h":5,"track_id":{"id":1}}]`, want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dets, err := parseDetections([]byte(tt.body), 640, 480)
			require.NoError(t, err)
			require.Len(t, dets, 1)
			if tt.want == nil {
				assert.Nil(t, dets[0].AITrackID)
			} else {
				require.NotNil(t, dets[0].AITrackID)
				assert.Equal(t, *tt.want, *dets[0].AITrackID)
			}
		})
	}
}

func TestParseDetectionsRejectsNonArray(t *testing.T) {
	_, err := parseDetections([]byte(`{"detections":[]}`), 640, 480)
	assert.Error(t, err)

	_, err = parseDetections([]byte(`not json`), 640, 480)
	assert.Error(t, err)
}

func int64Ptr(v int64) *int64 { return &v }

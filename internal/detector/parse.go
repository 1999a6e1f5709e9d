package detector

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"fallsense/analytics"
)

// rawDetection mirrors one element of the service's response array. Every
// key is optional; the service has shipped both cls/class and
// score/confidence spellings.
type rawDetection struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`

	Cls   *string `json:"cls"`
	Class *string `json:"class"`

	Score      *float64 `json:"score"`
	Confidence *float64 `json:"confidence"`

	FallDetected bool            `json:"fall_detected"`
	TrackID      json.RawMessage `json:"track_id"`
}

func clamp01(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// parseDetections decodes the response body and normalizes pixel
// coordinates of the encoded image into the unit square. Rows with
// non-positive or non-finite extents are dropped; coordinates are clamped
// and any x+w / y+h overflow is trimmed off the dimension.
func parseDetections(body []byte, imageWidth, imageHeight int) ([]analytics.Detection, error) {
	var items []rawDetection
	if err := json.Unmarshal(body, &items); err != nil {
		return nil, fmt.Errorf("AI response must be a JSON array: %w", err)
	}
	if imageWidth <= 0 || imageHeight <= 0 {
		return nil, fmt.Errorf("encoded frame dimensions are invalid")
	}

	detections := make([]analytics.Detection, 0, len(items))
	for _, item := range items {
		if item.W <= 0 || item.H <= 0 {
			continue
		}
		if !finite(item.X) || !finite(item.Y) || !finite(item.W) || !finite(item.H) {
			continue
		}

		x := clamp01(float32(item.X / float64(imageWidth)))
		y := clamp01(float32(item.Y / float64(imageHeight)))
		w := clamp01(float32(item.W / float64(imageWidth)))
		h := clamp01(float32(item.H / float64(imageHeight)))
		if x+w > 1 {
			w = 1 - x
		}
		if y+h > 1 {
			h = 1 - y
		}
		if w <= 0 || h <= 0 {
			continue
		}

		detections = append(detections, analytics.Detection{
			BBox:         analytics.Rect{X: x, Y: y, Width: w, Height: h},
			ClassLabel:   classLabel(item),
			Confidence:   confidence(item),
			FallDetected: item.FallDetected,
			AITrackID:    parseTrackID(item.TrackID),
		})
	}

	return detections, nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func classLabel(item rawDetection) string {
	if item.Cls != nil && *item.Cls != "" {
		return *item.Cls
	}
	if item.Class != nil && *item.Class != "" {
		return *item.Class
	}
	return "person"
}

func confidence(item rawDetection) float32 {
	if item.Score != nil {
		return float32(*item.Score)
	}
	if item.Confidence != nil {
		return float32(*item.Confidence)
	}
	return 0
}

// parseTrackID accepts an integer, a float (rounded) or a numeric string.
// Anything else is treated as absent.
func parseTrackID(raw json.RawMessage) *int64 {
	if len(raw) == 0 {
		return nil
	}

	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil
	}

	switch n := v.(type) {
	case float64:
		id := int64(math.Round(n))
		return &id
	case string:
		if n == "" {
			return nil
		}
		id, err := strconv.ParseInt(n, 10, 64)
		if err != nil {
			return nil
		}
		return &id
	default:
		return nil
	}
}

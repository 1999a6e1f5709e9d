package analytics

import (
	"github.com/google/uuid"
)

// Stable metadata type identifiers. These are observable by the host and
// must not change between releases within a deployment.
const (
	PersonObjectType  = "fallsense.person"
	GenericObjectType = "fallsense.object"
	FallEventType     = "fallsense.fallDetected"
)

// Rect is an axis-aligned bounding box normalized to the unit square.
// Producers clamp before emission: X+Width <= 1, Y+Height <= 1, Width > 0,
// Height > 0.
type Rect struct {
	X      float32 `json:"x"`
	Y      float32 `json:"y"`
	Width  float32 `json:"w"`
	Height float32 `json:"h"`
}

// Area returns the box area, never negative.
func (r Rect) Area() float32 {
	if r.Width <= 0 || r.Height <= 0 {
		return 0
	}
	return r.Width * r.Height
}

// Detection is one normalized bounding box returned by the AI service,
// optionally carrying the service's own track id. TrackID is assigned by the
// track registry before emission.
type Detection struct {
	BBox         Rect      `json:"bbox"`
	ClassLabel   string    `json:"class"`
	Confidence   float32   `json:"confidence"`
	FallDetected bool      `json:"fall_detected"`
	AITrackID    *int64    `json:"ai_track_id,omitempty"`
	TrackID      uuid.UUID `json:"track_id"`
}

// AttributeType distinguishes string and numeric attribute values.
type AttributeType string

const (
	AttributeString AttributeType = "string"
	AttributeNumber AttributeType = "number"
)

// Attribute is one name/value pair attached to an object metadata item.
type Attribute struct {
	Type  AttributeType `json:"type"`
	Name  string        `json:"name"`
	Value string        `json:"value"`
}

// ObjectMetadata is one detected object as delivered to the host.
type ObjectMetadata struct {
	TypeID     string      `json:"type_id"`
	TrackID    uuid.UUID   `json:"track_id"`
	BBox       Rect        `json:"bbox"`
	Confidence float32     `json:"confidence"`
	Attributes []Attribute `json:"attributes"`
}

// EventMetadata is one state-dependent event as delivered to the host.
type EventMetadata struct {
	TypeID      string `json:"type_id"`
	Caption     string `json:"caption"`
	Description string `json:"description"`
	IsActive    bool   `json:"is_active"`
}

// MetadataPacket is the closed union of object and event packets. Packets
// from one camera are emitted in non-decreasing timestamp order.
type MetadataPacket interface {
	PacketTimestampUs() int64
	metadataPacket()
}

// ObjectMetadataPacket carries all object detections for one frame.
type ObjectMetadataPacket struct {
	TimestampUs int64            `json:"timestamp_us"`
	Items       []ObjectMetadata `json:"items"`
}

func (p *ObjectMetadataPacket) PacketTimestampUs() int64 { return p.TimestampUs }
func (p *ObjectMetadataPacket) metadataPacket()          {}

// EventMetadataPacket carries one or more events stamped with one frame.
type EventMetadataPacket struct {
	TimestampUs int64           `json:"timestamp_us"`
	Items       []EventMetadata `json:"items"`
}

func (p *EventMetadataPacket) PacketTimestampUs() int64 { return p.TimestampUs }
func (p *EventMetadataPacket) metadataPacket()          {}

var (
	_ MetadataPacket = (*ObjectMetadataPacket)(nil)
	_ MetadataPacket = (*EventMetadataPacket)(nil)
)

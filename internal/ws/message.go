package ws

import (
	"fallsense/analytics"
)

// PacketMessage is the wire form of one broadcast metadata packet.
type PacketMessage struct {
	Type        string `json:"type"` // "objects" or "events"
	CameraID    string `json:"camera_id"`
	TimestampUs int64  `json:"timestamp_us"`

	Objects []analytics.ObjectMetadata `json:"objects,omitempty"`
	Events  []analytics.EventMetadata  `json:"events,omitempty"`
}

func newPacketMessage(cameraID string, packet analytics.MetadataPacket) PacketMessage {
	msg := PacketMessage{
		CameraID:    cameraID,
		TimestampUs: packet.PacketTimestampUs(),
	}

	switch p := packet.(type) {
	case *analytics.ObjectMetadataPacket:
		msg.Type = "objects"
		msg.Objects = p.Items
	case *analytics.EventMetadataPacket:
		msg.Type = "events"
		msg.Events = p.Items
	}
	return msg
}

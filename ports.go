package fallsense

import (
	"sync"

	"fallsense/analytics"
	"fallsense/imaging"
)

// VideoFrame is one uncompressed frame as delivered by the host. Plane data
// is only borrowed for the duration of PushFrame.
type VideoFrame interface {
	TimestampUs() int64
	Width() int
	Height() int
	PixelFormat() imaging.PixelFormat
	Data(plane int) []byte
	LineSize(plane int) int
}

// MetadataSink receives the packets a camera's worker produces, in
// non-decreasing timestamp order.
type MetadataSink interface {
	PushMetadata(packet analytics.MetadataPacket)
}

// DiagnosticLevel classifies diagnostic events for the host.
type DiagnosticLevel string

const (
	DiagnosticInfo    DiagnosticLevel = "info"
	DiagnosticWarning DiagnosticLevel = "warning"
	DiagnosticError   DiagnosticLevel = "error"
)

// DiagnosticSink receives throttled plugin diagnostics (frames dropped on
// queue overflow, unsupported or malformed frames). AI-service failures are
// logged by the detector client and are not sent here.
type DiagnosticSink interface {
	PushDiagnostic(level DiagnosticLevel, caption, description string)
}

// Detector produces detections for one frame. It must never block beyond
// its configured timeouts and must not fail: on any service problem it
// returns an empty list.
type Detector interface {
	Run(cameraID string, frame *imaging.Frame) []analytics.Detection
}

// maxBufferedPackets bounds PollSink memory when the host stops polling.
const maxBufferedPackets = 256

// PollSink is a MetadataSink for hosts that poll instead of accepting a
// callback. Packets buffer up to a bound, dropping oldest, and Pull drains
// them in emission order.
type PollSink struct {
	mu      sync.Mutex
	packets []analytics.MetadataPacket
}

// NewPollSink returns an empty poll sink.
func NewPollSink() *PollSink {
	return &PollSink{}
}

// PushMetadata implements MetadataSink.
func (s *PollSink) PushMetadata(packet analytics.MetadataPacket) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.packets) >= maxBufferedPackets {
		s.packets = s.packets[1:]
	}
	s.packets = append(s.packets, packet)
}

// Pull returns all buffered packets and empties the sink.
func (s *PollSink) Pull() []analytics.MetadataPacket {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.packets
	s.packets = nil
	return out
}

// TeeSink fans one packet stream out to several sinks in order.
type TeeSink struct {
	Sinks []MetadataSink
}

// PushMetadata implements MetadataSink.
func (t *TeeSink) PushMetadata(packet analytics.MetadataPacket) {
	for _, s := range t.Sinks {
		if s != nil {
			s.PushMetadata(packet)
		}
	}
}

var (
	_ MetadataSink = (*PollSink)(nil)
	_ MetadataSink = (*TeeSink)(nil)
)

package fallsense

import (
	"fmt"
	"log"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"fallsense/analytics"
	"fallsense/imaging"
	"fallsense/internal/fall"
	"fallsense/internal/track"
)

// DeviceAgent is the per-camera facade. It hosts the ingress callback,
// owns the frame queue and the worker goroutine, and emits metadata through
// the configured sink. Exactly two threads of control touch an agent: the
// host's ingress thread inside PushFrame and the agent's worker.
type DeviceAgent struct {
	cameraID string
	config   Config

	detector Detector
	sink     MetadataSink
	diag     DiagnosticSink

	queue  *frameQueue
	worker sync.WaitGroup

	// Ingress-private sampler state.
	minFrameIntervalUs      int64
	lastAcceptedTimestampUs int64

	// Worker-private pipeline state.
	tracks *track.Registry
	falls  *fall.Machine

	// Throttled diagnostics, ingress side.
	lastDiagAt atomic.Int64 // unix ms

	stats agentStats

	closeOnce sync.Once
}

type agentStats struct {
	framesOffered   atomic.Uint64
	framesSampled   atomic.Uint64
	framesConverted atomic.Uint64
	framesProcessed atomic.Uint64
	objectsEmitted  atomic.Uint64
	eventsEmitted   atomic.Uint64
	fallsActive     atomic.Int64
}

// Stats is a point-in-time snapshot of one agent's counters.
type Stats struct {
	CameraID        string `json:"camera_id"`
	FramesOffered   uint64 `json:"frames_offered"`
	FramesSampled   uint64 `json:"frames_sampled"`
	FramesConverted uint64 `json:"frames_converted"`
	FramesDropped   uint64 `json:"frames_dropped"`
	FramesProcessed uint64 `json:"frames_processed"`
	ObjectsEmitted  uint64 `json:"objects_emitted"`
	EventsEmitted   uint64 `json:"events_emitted"`
	FallsActive     int64  `json:"falls_active"`
	QueueLength     int    `json:"queue_length"`
}

// NewDeviceAgent builds an agent and starts its worker. The detector is
// typically an internal AI-service client obtained through the Engine; the
// sink and diag ports come from the host. diag may be nil.
func NewDeviceAgent(cameraID string, cfg Config, det Detector, sink MetadataSink, diag DiagnosticSink) (*DeviceAgent, error) {
	if cameraID == "" {
		return nil, fmt.Errorf("camera id is empty")
	}
	if det == nil {
		return nil, fmt.Errorf("detector is nil")
	}
	if sink == nil {
		return nil, fmt.Errorf("metadata sink is nil")
	}

	a := &DeviceAgent{
		cameraID: cameraID,
		config:   cfg,
		detector: det,
		sink:     sink,
		diag:     diag,
		queue:    newFrameQueue(cfg.MaxQueueSize),
		tracks:   track.NewRegistry(cfg.SyntheticTrackTTLUs, cfg.TrackMapTTLUs),
		falls:    fall.NewMachine(cfg.FallFinishGraceUs),
	}

	if cfg.SampleFps > 0 {
		a.minFrameIntervalUs = int64(1_000_000 / cfg.SampleFps)
	}

	a.worker.Add(1)
	go a.workerLoop()
	return a, nil
}

// PushFrame runs on the host's ingress thread: sample, convert, enqueue.
// It performs no I/O and is bounded by the conversion cost of one frame.
// The return value reports whether the frame entered the queue.
func (a *DeviceAgent) PushFrame(frame VideoFrame) bool {
	if frame == nil {
		return false
	}
	a.stats.framesOffered.Add(1)

	timestampUs := frame.TimestampUs()
	if !a.shouldSampleFrame(timestampUs) {
		return false
	}
	a.stats.framesSampled.Add(1)

	bgr, err := imaging.ConvertToBGR(frame)
	if err != nil {
		a.maybeDiag(DiagnosticWarning, "Frame dropped", err.Error())
		return false
	}
	a.stats.framesConverted.Add(1)

	a.queue.mu.Lock()
	stopped := a.queue.stopped
	a.queue.mu.Unlock()
	if stopped {
		return false
	}

	if a.queue.push(frameJob{timestampUs: timestampUs, frame: bgr}) {
		a.maybeDiag(DiagnosticWarning, "Frame queue overflow",
			fmt.Sprintf("camera %s dropped the oldest queued frame", a.cameraID))
	}
	return true
}

// shouldSampleFrame admits at most one frame per 1/sampleFps window.
// Malformed (non-positive) timestamps always pass; they are not the
// sampler's concern.
func (a *DeviceAgent) shouldSampleFrame(timestampUs int64) bool {
	if a.minFrameIntervalUs <= 0 {
		a.lastAcceptedTimestampUs = timestampUs
		return true
	}
	if timestampUs <= 0 {
		return true
	}
	if a.lastAcceptedTimestampUs > 0 && timestampUs-a.lastAcceptedTimestampUs < a.minFrameIntervalUs {
		return false
	}
	a.lastAcceptedTimestampUs = timestampUs
	return true
}

// Close stops the worker and joins it. In-flight service calls run to their
// configured timeouts; queued jobs drain first.
func (a *DeviceAgent) Close() {
	a.closeOnce.Do(func() {
		a.queue.stop()
		a.worker.Wait()
	})
}

// Stats returns a snapshot of the agent's counters.
func (a *DeviceAgent) Stats() Stats {
	return Stats{
		CameraID:        a.cameraID,
		FramesOffered:   a.stats.framesOffered.Load(),
		FramesSampled:   a.stats.framesSampled.Load(),
		FramesConverted: a.stats.framesConverted.Load(),
		FramesDropped:   a.queue.droppedCount(),
		FramesProcessed: a.stats.framesProcessed.Load(),
		ObjectsEmitted:  a.stats.objectsEmitted.Load(),
		EventsEmitted:   a.stats.eventsEmitted.Load(),
		FallsActive:     a.stats.fallsActive.Load(),
		QueueLength:     a.queue.length(),
	}
}

func (a *DeviceAgent) workerLoop() {
	defer a.worker.Done()

	for {
		job, ok := a.queue.pop()
		if !ok {
			return
		}
		a.processFrameJob(job)
	}
}

func (a *DeviceAgent) processFrameJob(job frameJob) {
	detections := a.detector.Run(a.cameraID, job.frame)
	a.tracks.Resolve(detections, job.timestampUs)

	if packet := a.makeObjectPacket(detections, job.timestampUs); packet != nil {
		a.sink.PushMetadata(packet)
		a.stats.objectsEmitted.Add(uint64(len(packet.Items)))
	}

	for _, packet := range a.falls.Observe(detections, job.timestampUs) {
		a.sink.PushMetadata(packet)
		a.stats.eventsEmitted.Add(uint64(len(packet.Items)))
	}
	a.stats.fallsActive.Store(int64(a.falls.ActiveCount()))

	a.tracks.Cleanup(job.timestampUs)
	a.stats.framesProcessed.Add(1)
}

// makeObjectPacket clamps every box to the unit square and builds one
// packet covering all valid detections, or nil when none survive.
func (a *DeviceAgent) makeObjectPacket(detections []analytics.Detection, timestampUs int64) *analytics.ObjectMetadataPacket {
	if len(detections) == 0 {
		return nil
	}

	items := make([]analytics.ObjectMetadata, 0, len(detections))
	for _, d := range detections {
		x := clamp01(d.BBox.X)
		y := clamp01(d.BBox.Y)
		w := clamp01(d.BBox.Width)
		h := clamp01(d.BBox.Height)
		if x+w > 1 {
			w = 1 - x
		}
		if y+h > 1 {
			h = 1 - y
		}
		if w <= 0 || h <= 0 {
			continue
		}

		typeID := analytics.GenericObjectType
		if d.ClassLabel == "person" {
			typeID = analytics.PersonObjectType
		}

		fallValue := "0"
		if d.FallDetected {
			fallValue = "1"
		}

		items = append(items, analytics.ObjectMetadata{
			TypeID:     typeID,
			TrackID:    d.TrackID,
			BBox:       analytics.Rect{X: x, Y: y, Width: w, Height: h},
			Confidence: d.Confidence,
			Attributes: []analytics.Attribute{
				{Type: analytics.AttributeString, Name: "classLabel", Value: d.ClassLabel},
				{Type: analytics.AttributeNumber, Name: "confidence", Value: strconv.FormatFloat(float64(d.Confidence), 'f', -1, 32)},
				{Type: analytics.AttributeNumber, Name: "fallDetected", Value: fallValue},
			},
		})
	}

	if len(items) == 0 {
		return nil
	}
	return &analytics.ObjectMetadataPacket{TimestampUs: timestampUs, Items: items}
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

// maybeDiag forwards one diagnostic per throttle window to the host and the
// log. Runs on the ingress thread, so it must stay cheap.
func (a *DeviceAgent) maybeDiag(level DiagnosticLevel, caption, description string) {
	nowMs := time.Now().UnixMilli()
	last := a.lastDiagAt.Load()
	if last != 0 && nowMs-last < int64(a.config.LogThrottleMs) {
		return
	}
	if !a.lastDiagAt.CompareAndSwap(last, nowMs) {
		return
	}

	log.Printf("[DeviceAgent][%s] %s: %s", a.cameraID, caption, description)
	if a.diag != nil {
		a.diag.PushDiagnostic(level, caption, description)
	}
}

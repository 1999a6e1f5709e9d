package main

import (
	"log"
	"os"
	"strconv"
	"time"

	"fallsense"
	"fallsense/analytics"
	"fallsense/imaging"
)

// fakeFrame implements fallsense.VideoFrame over a generated BGR buffer.
type fakeFrame struct {
	timestampUs int64
	width       int
	height      int
	pix         []byte
}

func (f *fakeFrame) TimestampUs() int64               { return f.timestampUs }
func (f *fakeFrame) Width() int                       { return f.width }
func (f *fakeFrame) Height() int                      { return f.height }
func (f *fakeFrame) PixelFormat() imaging.PixelFormat { return imaging.PixelFormatBGR24 }
func (f *fakeFrame) Data(plane int) []byte            { return f.pix }
func (f *fakeFrame) LineSize(plane int) int           { return f.width * 3 }

// fakeCamera produces 640x480 frames with a bright box sweeping across a
// gray background, enough for an object detector to lock onto.
type fakeCamera struct {
	cameraID string
	fps      float64
	stopCh   chan struct{}
}

func newFakeCamera(cameraID string, fps float64) *fakeCamera {
	if fps <= 0 {
		fps = 10
	}
	return &fakeCamera{cameraID: cameraID, fps: fps, stopCh: make(chan struct{})}
}

func (c *fakeCamera) stop() {
	close(c.stopCh)
}

func (c *fakeCamera) run(agent *fallsense.DeviceAgent) {
	const w, h = 640, 480
	interval := time.Duration(float64(time.Second) / c.fps)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	start := time.Now()
	step := 0
	for {
		select {
		case <-c.stopCh:
			return
		case <-ticker.C:
			frame := &fakeFrame{
				timestampUs: time.Since(start).Microseconds() + 1,
				width:       w,
				height:      h,
				pix:         renderFrame(w, h, step),
			}
			agent.PushFrame(frame)
			step++
		}
	}
}

func renderFrame(w, h, step int) []byte {
	pix := make([]byte, w*h*3)
	for i := range pix {
		pix[i] = 0x60
	}

	boxW, boxH := 60, 160
	x0 := (step * 4) % (w - boxW)
	y0 := h - boxH - 40
	for y := y0; y < y0+boxH; y++ {
		row := pix[(y*w+x0)*3:]
		for x := 0; x < boxW; x++ {
			row[x*3+0] = 0xf0
			row[x*3+1] = 0xf0
			row[x*3+2] = 0xf0
		}
	}
	return pix
}

// logSink prints every emitted packet to the process log.
type logSink struct{}

func (s *logSink) PushMetadata(packet analytics.MetadataPacket) {
	switch p := packet.(type) {
	case *analytics.ObjectMetadataPacket:
		log.Printf("[Sink] t=%dus objects=%d", p.TimestampUs, len(p.Items))
	case *analytics.EventMetadataPacket:
		for _, item := range p.Items {
			log.Printf("[Sink] t=%dus event %q active=%t", p.TimestampUs, item.Caption, item.IsActive)
		}
	}
}

// logDiag forwards host diagnostics to the process log.
type logDiag struct{}

func (d *logDiag) PushDiagnostic(level fallsense.DiagnosticLevel, caption, description string) {
	log.Printf("[Diag][%s] %s: %s", level, caption, description)
}

func envFloatOr(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil && parsed > 0 {
			return parsed
		}
	}
	return def
}

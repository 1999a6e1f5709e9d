package fallsense

import (
	"os"
	"strconv"

	"fallsense/internal/detector"
)

// Config is the full per-camera configuration surface. All durations below
// the detector level except LogThrottleMs (milliseconds) are in
// microseconds, matching the host's frame timestamps.
type Config struct {
	Detector detector.Config

	// SampleFps caps how many frames per second reach the worker.
	// Non-positive means every frame passes.
	SampleFps float64

	// MaxQueueSize bounds the frame queue; at capacity the oldest job is
	// dropped, never the producer blocked.
	MaxQueueSize int

	FallFinishGraceUs   int64
	SyntheticTrackTTLUs int64
	TrackMapTTLUs       int64

	LogThrottleMs int
}

// DefaultConfig returns the documented defaults.
func DefaultConfig() Config {
	return Config{
		Detector: detector.Config{
			ServiceURL: "http://127.0.0.1:18000",
		}.Normalize(),
		SampleFps:           5.0,
		MaxQueueSize:        4,
		FallFinishGraceUs:   3_000_000,
		SyntheticTrackTTLUs: 2_000_000,
		TrackMapTTLUs:       60_000_000,
		LogThrottleMs:       5000,
	}
}

// LoadConfigFromEnv reads the FS_* environment variables, clamping each
// value to its documented range. Unset or malformed values fall back to the
// defaults.
func LoadConfigFromEnv() Config {
	cfg := Config{
		Detector: detector.Config{
			ServiceURL:              envString("FS_AI_SERVICE_URL", "http://127.0.0.1:18000"),
			ConnectTimeoutMs:        envInt("FS_AI_TIMEOUT_CONNECT_MS", 250, 50, 5000),
			ReadTimeoutMs:           envInt("FS_AI_TIMEOUT_READ_MS", 400, 50, 5000),
			WriteTimeoutMs:          envInt("FS_AI_TIMEOUT_WRITE_MS", 250, 50, 5000),
			SendWidth:               envInt("FS_AI_SEND_WIDTH", 640, 160, 3840),
			JPEGQuality:             envInt("FS_AI_JPEG_QUALITY", 80, 40, 95),
			CircuitFailureThreshold: envInt("FS_AI_CIRCUIT_FAILS", 3, 1, 20),
			CircuitOpenMs:           envInt("FS_AI_CIRCUIT_OPEN_MS", 3000, 200, 60000),
			LogThrottleMs:           envInt("FS_AI_LOG_THROTTLE_MS", 5000, 200, 60000),
		},
		SampleFps:           envFloat("FS_AI_SAMPLE_FPS", 5.0, 0.1, 60.0),
		MaxQueueSize:        envInt("FS_AI_QUEUE_SIZE", 4, 1, 120),
		FallFinishGraceUs:   int64(envInt("FS_AI_FALL_FINISH_MS", 3000, 0, 120000)) * 1000,
		SyntheticTrackTTLUs: int64(envInt("FS_AI_SYNTH_TRACK_TTL_MS", 2000, 100, 120000)) * 1000,
		TrackMapTTLUs:       int64(envInt("FS_AI_TRACK_MAP_TTL_MS", 60000, 1000, 3_600_000)) * 1000,
		LogThrottleMs:       envInt("FS_AI_LOG_THROTTLE_MS", 5000, 200, 60000),
	}
	return cfg
}

func envString(key, def string) string {
	value := os.Getenv(key)
	if value == "" {
		return def
	}
	return value
}

func envInt(key string, def, min, max int) int {
	value := os.Getenv(key)
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	if parsed < min {
		return min
	}
	if parsed > max {
		return max
	}
	return parsed
}

func envFloat(key string, def, min, max float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return def
	}
	if parsed < min {
		return min
	}
	if parsed > max {
		return max
	}
	return parsed
}

// Package detector implements the AI inference client: JPEG encoding of the
// sampled frame, the POST /infer round-trip, response normalization and a
// fail-fast circuit breaker guarding the service.
package detector

import (
	"fmt"
	"strconv"
	"strings"
)

// Config controls one client instance. Zero values are replaced by the
// documented defaults; out-of-range values are clamped by Normalize.
type Config struct {
	ServiceURL string

	ConnectTimeoutMs int
	ReadTimeoutMs    int
	WriteTimeoutMs   int

	SendWidth   int
	JPEGQuality int

	CircuitFailureThreshold int
	CircuitOpenMs           int

	LogThrottleMs int
}

func clampInt(v, def, min, max int) int {
	if v == 0 {
		v = def
	}
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

// Normalize applies defaults and clamps every field to its documented range.
func (c Config) Normalize() Config {
	c.ConnectTimeoutMs = clampInt(c.ConnectTimeoutMs, 250, 50, 5000)
	c.ReadTimeoutMs = clampInt(c.ReadTimeoutMs, 400, 50, 5000)
	c.WriteTimeoutMs = clampInt(c.WriteTimeoutMs, 250, 50, 5000)
	c.SendWidth = clampInt(c.SendWidth, 640, 160, 3840)
	c.JPEGQuality = clampInt(c.JPEGQuality, 80, 40, 95)
	c.CircuitFailureThreshold = clampInt(c.CircuitFailureThreshold, 3, 1, 20)
	c.CircuitOpenMs = clampInt(c.CircuitOpenMs, 3000, 200, 60000)
	c.LogThrottleMs = clampInt(c.LogThrottleMs, 5000, 200, 60000)
	return c
}

// endpoint is the parsed form of the service URL.
type endpoint struct {
	host      string
	port      int
	inferPath string
}

func (e endpoint) baseURL() string {
	return fmt.Sprintf("http://%s:%d", e.host, e.port)
}

// parseServiceURL splits the configured URL into host, port and the
// inference path. Only http is supported; a missing scheme is assumed to be
// http and the path is normalized to end in /infer.
func parseServiceURL(raw string) (endpoint, error) {
	input := strings.TrimSpace(raw)
	if input == "" {
		return endpoint{}, fmt.Errorf("AI service URL is empty")
	}

	if strings.HasPrefix(input, "https://") {
		return endpoint{}, fmt.Errorf("https:// is not supported, use http://")
	}
	input = strings.TrimPrefix(input, "http://")

	hostPort := input
	path := ""
	if i := strings.Index(input, "/"); i >= 0 {
		hostPort = input[:i]
		path = input[i:]
	}

	ep := endpoint{port: 80}
	if i := strings.LastIndex(hostPort, ":"); i >= 0 {
		ep.host = hostPort[:i]
		port, err := strconv.Atoi(hostPort[i+1:])
		if err != nil {
			return endpoint{}, fmt.Errorf("invalid AI service URL port %q", hostPort[i+1:])
		}
		ep.port = port
	} else {
		ep.host = hostPort
	}

	if ep.host == "" {
		return endpoint{}, fmt.Errorf("invalid AI service URL host")
	}
	if ep.port <= 0 || ep.port > 65535 {
		return endpoint{}, fmt.Errorf("invalid AI service URL port %d", ep.port)
	}

	switch {
	case path == "" || path == "/":
		ep.inferPath = "/infer"
	case strings.HasSuffix(path, "/infer"):
		ep.inferPath = path
	default:
		ep.inferPath = path + "/infer"
	}

	return ep, nil
}

package detector

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"time"

	"fallsense/analytics"
	"fallsense/imaging"
)

// inferRequest is the POST /infer body.
type inferRequest struct {
	CameraID string `json:"camera_id"`
	Image    string `json:"image"`
}

// Client talks to the AI inference service for one camera pipeline. It is
// worker-private: all breaker and throttle state is touched from a single
// goroutine.
type Client struct {
	config   Config
	endpoint endpoint
	http     *http.Client

	consecutiveFailures int
	circuitOpen         bool
	circuitRetryAt      time.Time

	lastLogAt time.Time

	now func() time.Time
}

// New validates the configuration and builds a client. The URL is parsed
// eagerly so a bad configuration fails at construction, not per frame.
func New(cfg Config) (*Client, error) {
	cfg = cfg.Normalize()

	ep, err := parseServiceURL(cfg.ServiceURL)
	if err != nil {
		return nil, err
	}

	dialer := &net.Dialer{Timeout: time.Duration(cfg.ConnectTimeoutMs) * time.Millisecond}
	total := time.Duration(cfg.ConnectTimeoutMs+cfg.ReadTimeoutMs+cfg.WriteTimeoutMs) * time.Millisecond

	return &Client{
		config:   cfg,
		endpoint: ep,
		http: &http.Client{
			Timeout: total,
			Transport: &http.Transport{
				DialContext:           dialer.DialContext,
				ResponseHeaderTimeout: time.Duration(cfg.ReadTimeoutMs) * time.Millisecond,
				MaxIdleConnsPerHost:   1,
				IdleConnTimeout:       30 * time.Second,
			},
		},
		now: time.Now,
	}, nil
}

// Run encodes the frame, calls the service and returns normalized
// detections. It never fails: any transport or protocol error feeds the
// circuit breaker and yields an empty list.
func (c *Client) Run(cameraID string, frame *imaging.Frame) []analytics.Detection {
	now := c.now()
	if c.circuitOpen {
		if now.Before(c.circuitRetryAt) {
			return nil
		}
		// Half-open: let this call probe the service.
		c.circuitOpen = false
		c.consecutiveFailures = 0
	}

	detections, err := c.callService(cameraID, frame)
	if err != nil {
		c.onFailure(err)
		return nil
	}

	c.consecutiveFailures = 0
	c.circuitOpen = false
	return detections
}

// CircuitOpen reports whether the breaker is currently rejecting calls.
func (c *Client) CircuitOpen() bool {
	return c.circuitOpen && c.now().Before(c.circuitRetryAt)
}

func (c *Client) callService(cameraID string, frame *imaging.Frame) ([]analytics.Detection, error) {
	encoded, err := imaging.EncodeJPEG(frame, c.config.SendWidth, c.config.JPEGQuality)
	if err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}

	body, err := json.Marshal(inferRequest{CameraID: cameraID, Image: encoded.Base64})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	resp, err := c.http.Post(c.endpoint.baseURL()+c.endpoint.inferPath, "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("AI service did not respond: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("AI service returned HTTP %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read AI response: %w", err)
	}

	return parseDetections(raw, encoded.Width, encoded.Height)
}

func (c *Client) onFailure(cause error) {
	c.consecutiveFailures++
	if c.consecutiveFailures >= c.config.CircuitFailureThreshold {
		c.circuitOpen = true
		c.circuitRetryAt = c.now().Add(time.Duration(c.config.CircuitOpenMs) * time.Millisecond)
	}

	now := c.now()
	if c.lastLogAt.IsZero() || now.Sub(c.lastLogAt) >= time.Duration(c.config.LogThrottleMs)*time.Millisecond {
		log.Printf("[Detector] inference failure: %v (consecutive_failures=%d, circuit_open=%t)",
			cause, c.consecutiveFailures, c.circuitOpen)
		c.lastLogAt = now
	}
}

package fallsense

import (
	"fmt"
	"log"
	"sync"

	"fallsense/internal/detector"
)

// Engine creates and tracks one DeviceAgent per camera. Agents are fully
// independent; the engine only owns the shared configuration and the
// camera-id map.
type Engine struct {
	config Config

	mu     sync.Mutex
	agents map[string]*DeviceAgent
}

// NewEngine builds an engine around an explicit configuration. Use
// LoadConfigFromEnv for the environment surface.
func NewEngine(cfg Config) *Engine {
	return &Engine{
		config: cfg,
		agents: make(map[string]*DeviceAgent),
	}
}

// Manifest describes the engine's frame requirements to the host.
func (e *Engine) Manifest() string {
	return `{
    "capabilities": "needUncompressedVideoFrames_yuv420"
}`
}

// DeviceAgentManifest describes the event and object types an agent emits.
func DeviceAgentManifest() string {
	return `{
    "eventTypes": [
        {
            "id": "fallsense.fallDetected",
            "name": "Fall detected",
            "flags": "stateDependent"
        }
    ],
    "supportedTypes": [
        {
            "objectTypeId": "fallsense.person"
        },
        {
            "objectTypeId": "fallsense.object"
        }
    ]
}`
}

// ObtainDeviceAgent creates the processing core for one camera. The camera
// id must be unique among live agents.
func (e *Engine) ObtainDeviceAgent(cameraID string, sink MetadataSink, diag DiagnosticSink) (*DeviceAgent, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, exists := e.agents[cameraID]; exists {
		return nil, fmt.Errorf("agent already exists for camera %s", cameraID)
	}

	client, err := detector.New(e.config.Detector)
	if err != nil {
		return nil, fmt.Errorf("failed to create detector client: %w", err)
	}

	agent, err := NewDeviceAgent(cameraID, e.config, client, sink, diag)
	if err != nil {
		return nil, err
	}

	e.agents[cameraID] = agent
	log.Printf("[Engine] Started device agent for camera %s", cameraID)
	return agent, nil
}

// ReleaseDeviceAgent stops the camera's agent and forgets it.
func (e *Engine) ReleaseDeviceAgent(cameraID string) error {
	e.mu.Lock()
	agent, exists := e.agents[cameraID]
	if !exists {
		e.mu.Unlock()
		return fmt.Errorf("agent not found for camera %s", cameraID)
	}
	delete(e.agents, cameraID)
	e.mu.Unlock()

	agent.Close()
	log.Printf("[Engine] Stopped device agent for camera %s", cameraID)
	return nil
}

// Stats returns a snapshot for every live agent.
func (e *Engine) Stats() []Stats {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]Stats, 0, len(e.agents))
	for _, agent := range e.agents {
		out = append(out, agent.Stats())
	}
	return out
}

// Close stops every agent.
func (e *Engine) Close() {
	e.mu.Lock()
	agents := make([]*DeviceAgent, 0, len(e.agents))
	for id, agent := range e.agents {
		agents = append(agents, agent)
		delete(e.agents, id)
	}
	e.mu.Unlock()

	for _, agent := range agents {
		agent.Close()
	}
	log.Printf("[Engine] Closed all device agents")
}

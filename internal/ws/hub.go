// Package ws streams emitted metadata packets to websocket clients for
// debugging and live monitoring. It is optional: the processing core never
// depends on it.
package ws

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"fallsense/analytics"
)

// Hub manages websocket connections per camera and broadcasts every packet
// the worker emits.
type Hub struct {
	// clients maps camera id -> set of connections
	clients map[string]map[*websocket.Conn]bool
	mu      sync.RWMutex
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]map[*websocket.Conn]bool),
	}
}

// Register adds a connection for a specific camera.
func (h *Hub) Register(cameraID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.clients[cameraID] == nil {
		h.clients[cameraID] = make(map[*websocket.Conn]bool)
	}
	h.clients[cameraID][conn] = true
	log.Printf("[WS] Client registered for camera %s (total: %d)", cameraID, len(h.clients[cameraID]))
}

// Unregister removes a connection for a specific camera.
func (h *Hub) Unregister(cameraID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if conns, ok := h.clients[cameraID]; ok {
		delete(conns, conn)
		if len(conns) == 0 {
			delete(h.clients, cameraID)
		}
	}
}

// HasClients returns true if any client is subscribed to the camera.
func (h *Hub) HasClients(cameraID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	conns, ok := h.clients[cameraID]
	return ok && len(conns) > 0
}

// ClientCount returns the total number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	count := 0
	for _, conns := range h.clients {
		count += len(conns)
	}
	return count
}

// BroadcastPacket sends one metadata packet to the camera's subscribers,
// one client after another. A client whose write fails or exceeds the 5 s
// write deadline is dropped.
func (h *Hub) BroadcastPacket(cameraID string, packet analytics.MetadataPacket) {
	if !h.HasClients(cameraID) {
		return
	}

	msg, err := json.Marshal(newPacketMessage(cameraID, packet))
	if err != nil {
		log.Printf("[WS] Error marshaling packet: %v", err)
		return
	}

	h.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(h.clients[cameraID]))
	for conn := range h.clients[cameraID] {
		conns = append(conns, conn)
	}
	h.mu.RUnlock()

	for _, conn := range conns {
		conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			log.Printf("[WS] Error sending to client: %v", err)
			h.Unregister(cameraID, conn)
			conn.Close()
		}
	}
}

// Sink adapts a Hub to the core's MetadataSink shape for one camera.
type Sink struct {
	Hub      *Hub
	CameraID string
}

// PushMetadata forwards the packet to the hub.
func (s *Sink) PushMetadata(packet analytics.MetadataPacket) {
	s.Hub.BroadcastPacket(s.CameraID, packet)
}

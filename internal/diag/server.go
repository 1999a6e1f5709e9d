// Package diag exposes debug endpoints for a running engine: health,
// per-camera stats and the live metadata websocket. It is mounted only by
// the standalone harness; the plugin core never listens on a socket.
package diag

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"fallsense"
	"fallsense/internal/ws"
)

// StatsProvider yields per-camera snapshots, typically the Engine.
type StatsProvider interface {
	Stats() []fallsense.Stats
}

// NewRouter builds the debug router. hub may be nil when the websocket feed
// is not wanted.
func NewRouter(stats StatsProvider, hub *ws.Hub) http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})

	r.Get("/stats", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(stats.Stats())
	})

	if hub != nil {
		handler := ws.NewHandler(hub)
		r.Get("/ws/{cameraID}", func(w http.ResponseWriter, req *http.Request) {
			handler.Serve(w, req, chi.URLParam(req, "cameraID"))
		})
	}

	return r
}

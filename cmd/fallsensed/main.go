// fallsensed runs the processing core outside a VMS host: a synthetic
// camera feeds the engine, emitted metadata goes to the process log, and the debug
// HTTP surface (health, stats, live websocket feed) is served when
// FS_DEBUG_ADDR is set. Useful for exercising a real AI service end to end.
package main

import (
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"fallsense"
	"fallsense/internal/diag"
	"fallsense/internal/ws"
)

func main() {
	if err := godotenv.Load(); err == nil {
		log.Printf("[Main] Loaded configuration from .env")
	}

	cfg := fallsense.LoadConfigFromEnv()
	cameraID := envOr("FS_CAMERA_ID", "fake-cam-0")

	engine := fallsense.NewEngine(cfg)
	defer engine.Close()

	hub := ws.NewHub()
	sink := &fallsense.TeeSink{Sinks: []fallsense.MetadataSink{
		&logSink{},
		&ws.Sink{Hub: hub, CameraID: cameraID},
	}}

	agent, err := engine.ObtainDeviceAgent(cameraID, sink, &logDiag{})
	if err != nil {
		log.Fatalf("[Main] Failed to start device agent: %v", err)
	}

	if addr := os.Getenv("FS_DEBUG_ADDR"); addr != "" {
		router := diag.NewRouter(engine, hub)
		go func() {
			log.Printf("[Main] Debug server listening on %s", addr)
			if err := http.ListenAndServe(addr, router); err != nil {
				log.Printf("[Main] Debug server stopped: %v", err)
			}
		}()
	}

	cam := newFakeCamera(cameraID, envFloatOr("FS_FAKE_FPS", 10))
	go cam.run(agent)
	defer cam.stop()

	log.Printf("[Main] Feeding synthetic frames from camera %s (service %s)",
		cameraID, cfg.Detector.ServiceURL)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Printf("[Main] Shutting down")
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// Package fallsense is the per-camera processing core of a video-analytics
// plugin bridging a VMS host with an out-of-process AI inference service.
//
// The host delivers uncompressed frames to a DeviceAgent via PushFrame,
// which samples and converts them on the host's thread and enqueues them;
// a worker goroutine calls the AI service for person and fall
// detections, assigns stable track identities, and emits object and fall
// event metadata packets back through the host's sink. The host's frame
// thread never blocks on the network: frames pass through a bounded
// drop-oldest queue and the service sits behind fail-fast timeouts and a
// circuit breaker.
//
// One Engine manages one DeviceAgent per camera; agents share nothing.
package fallsense

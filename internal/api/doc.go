// Package api provides the HTTP API and WebSocket server for Poppy Motion.
//
// It exposes the MovePlayer trigger routes, the /api/v1 JSON API for
// sequences, runs and actuator status, and a WebSocket stream of playback
// events.
//
// The server follows the same lifecycle pattern as other infrastructure components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
//
// Thread Safety: All methods are safe for concurrent use from multiple goroutines.
//
// # Routes
//
// The MovePlayer routes keep the plain-text contract of the pypot Snap!
// server, so existing block programs can trigger recordings unchanged:
//
//	GET /primitive/MovePlayer                              wave/dance/bow
//	GET /primitive/MovePlayer/{name}/start                 duration in seconds
//	GET /primitive/MovePlayer/{name}/start/{speed}
//	GET /primitive/MovePlayer/{name}/start/{speed}/backwards
//	GET /primitive/MovePlayer/{name}/stop                  Done!
//
// Everything else lives under /api/v1 and speaks JSON. Errors use the
// {"status","code","message"} envelope.
//
// # Graceful Degradation
//
// The server runs without MQTT or InfluxDB. Playback then fails with a
// publish error, but sequence management and history still work.
package api

// Package actuator tracks the live status of each robot actuator and builds
// the position commands sent to them.
//
// Every actuator reports its status (compliance, direction, offset, load
// limit) on its own status topic. StatusSubscriber feeds those events into a
// Cache, and the playback engine reads the cache when it merges a recorded
// goal position into a Command.
//
// The cache holds only what has been observed. A channel that has never
// reported has no status, and Current says so with ErrNoStatus rather than
// returning a zero value.
package actuator

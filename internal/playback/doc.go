// Package playback replays recorded motion sequences onto the robot.
//
// The Engine plays one sequence: for every frame it reads each actuator's
// live status, merges it with the recorded goal position into a command,
// publishes the commands in actor order and then the frame's hand command.
// Frames are paced against the run start (frame i starts no earlier than
// start + i/frequency), so publish latency never accumulates as drift.
//
// The Controller sits above the Engine. It loads sequences by ID, runs them
// in the background (one run per sequence ID), accepts play and stop
// triggers from the bus, and records each run:
//
//   - run history in SQLite (SQLiteRunRepository, table playback_runs)
//   - started/finished events on the bus
//   - frame and run telemetry in InfluxDB
//   - live events for WebSocket clients
//
// Faults halt the run at the failing frame. They are reported as *FrameError,
// which unwraps to ErrStatusUnavailable, ErrPublishFailed or ErrCancelled.
package playback

// Package influxdb provides InfluxDB connectivity for Poppy Motion Core.
//
// It wraps the official influxdb-client-go v2 library for playback
// telemetry:
//   - per-frame schedule lateness (playback_frames)
//   - run outcomes (playback_runs)
//   - observed actuator status (actuator_status)
//
// # Usage
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if errors.Is(err, influxdb.ErrDisabled) {
//	    // telemetry off
//	}
//	defer client.Close()
//
//	client.WriteActuatorStatus("l_elbow_y", false, 0, 100)
//
// Writes are non-blocking and batched according to batch_size and
// flush_interval. Async write errors are delivered to the SetOnError
// callback. A nil or disconnected Client drops writes silently.
package influxdb

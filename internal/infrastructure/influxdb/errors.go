package influxdb

import "errors"

// Telemetry is best effort: writes never return errors, so these sentinels
// only come back from Connect and HealthCheck. Asynchronous write failures
// reach the callback registered with SetOnError, wrapped in ErrWriteFailed.
var (
	ErrNotConnected     = errors.New("influxdb: not connected")
	ErrConnectionFailed = errors.New("influxdb: connection failed")
	ErrWriteFailed      = errors.New("influxdb: batch write failed")

	// ErrDisabled is returned by Connect when influxdb.enabled is false.
	// Callers treat it as "run without telemetry", not as a fault.
	ErrDisabled = errors.New("influxdb: telemetry disabled")
)

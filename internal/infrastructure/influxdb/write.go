package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurement names written by this package.
const (
	MeasurementFrames   = "playback_frames"
	MeasurementRuns     = "playback_runs"
	MeasurementActuator = "actuator_status"
)

// FrameTiming describes when one frame was due and when it was emitted.
type FrameTiming struct {
	SequenceID string
	RunID      string
	Frame      int
	Scheduled  time.Time
	Started    time.Time
	Emit       time.Duration // time spent publishing the frame's commands
}

// RunSummary describes a finished playback run.
type RunSummary struct {
	SequenceID        string
	RunID             string
	Status            string
	Speed             float64
	Backwards         bool
	FramesPlayed      int
	CommandsPublished int
	Duration          time.Duration
	FinishedAt        time.Time
}

// WriteFrameTiming records the schedule lateness of one emitted frame.
//
// Lateness is Started minus Scheduled; with a deadline schedule it stays
// bounded instead of growing with the frame index.
func (c *Client) WriteFrameTiming(ft FrameTiming) {
	c.write(framePoint(ft))
}

// WriteRunSummary records the outcome of a playback run.
func (c *Client) WriteRunSummary(rs RunSummary) {
	c.write(runPoint(rs))
}

// WriteActuatorStatus records an observed actuator status.
//
//	client.WriteActuatorStatus("l_elbow_y", false, 0, 100)
func (c *Client) WriteActuatorStatus(channel string, compliant bool, offset, maxLoad float64) {
	c.write(actuatorPoint(channel, compliant, offset, maxLoad, time.Now()))
}

func framePoint(ft FrameTiming) *write.Point {
	return write.NewPoint(
		MeasurementFrames,
		map[string]string{"sequence_id": ft.SequenceID},
		map[string]interface{}{
			"run_id":      ft.RunID,
			"frame":       ft.Frame,
			"lateness_ms": durationMillis(ft.Started.Sub(ft.Scheduled)),
			"emit_ms":     durationMillis(ft.Emit),
		},
		ft.Started,
	)
}

func runPoint(rs RunSummary) *write.Point {
	direction := "forward"
	if rs.Backwards {
		direction = "backward"
	}
	return write.NewPoint(
		MeasurementRuns,
		map[string]string{
			"sequence_id": rs.SequenceID,
			"status":      rs.Status,
			"direction":   direction,
		},
		map[string]interface{}{
			"run_id":             rs.RunID,
			"speed":              rs.Speed,
			"frames_played":      rs.FramesPlayed,
			"commands_published": rs.CommandsPublished,
			"duration_ms":        durationMillis(rs.Duration),
		},
		rs.FinishedAt,
	)
}

func actuatorPoint(channel string, compliant bool, offset, maxLoad float64, at time.Time) *write.Point {
	return write.NewPoint(
		MeasurementActuator,
		map[string]string{"channel": channel},
		map[string]interface{}{
			"compliant": compliant,
			"offset":    offset,
			"max_load":  maxLoad,
		},
		at,
	)
}

func durationMillis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

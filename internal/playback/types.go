package playback

import (
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// RunStatus is the lifecycle state of a playback run.
type RunStatus string

// Run status values. Running is only ever seen on runs held by a Controller.
const (
	StatusRunning   RunStatus = "running"
	StatusCompleted RunStatus = "completed"
	StatusFailed    RunStatus = "failed"
	StatusCancelled RunStatus = "cancelled"
)

// IsTerminal reports whether the run has finished.
func (s RunStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// Options controls one playback.
type Options struct {
	// Speed multiplies the recorded frequency. Zero means 1.
	Speed float64 `json:"speed"`

	// Backwards plays frames from last to first.
	Backwards bool `json:"backwards"`

	// Observer, when set, is called after each fully emitted frame. It runs
	// on the playback goroutine and must not block.
	Observer FrameObserver `json:"-"`
}

// normalize fills defaults and validates.
func (o Options) normalize() (Options, error) {
	if o.Speed == 0 {
		o.Speed = 1
	}
	if o.Speed < 0 || math.IsNaN(o.Speed) || math.IsInf(o.Speed, 0) {
		return o, fmt.Errorf("%w: speed must be a positive finite number, got %v", ErrInvalidOptions, o.Speed)
	}
	return o, nil
}

// FrameReport describes one emitted frame.
type FrameReport struct {
	SequenceID string
	Frame      int // sequence frame index
	Step       int // position in playback order, from 0
	Scheduled  time.Time
	Started    time.Time
	Emit       time.Duration // time spent publishing the frame
	Commands   int
}

// Lateness is how far behind schedule the frame started.
func (r FrameReport) Lateness() time.Duration {
	return r.Started.Sub(r.Scheduled)
}

// FrameObserver receives a report after each fully emitted frame.
type FrameObserver func(FrameReport)

// Result is the outcome of Engine.Play.
type Result struct {
	SequenceID            string        `json:"sequence_id"`
	Status                RunStatus     `json:"status"`
	Speed                 float64       `json:"speed"`
	Backwards             bool          `json:"backwards"`
	Interval              time.Duration `json:"interval_ns"`
	FrameCount            int           `json:"frame_count"`
	FramesPlayed          int           `json:"frames_played"`
	CommandsPublished     int           `json:"commands_published"`
	HandCommandsPublished int           `json:"hand_commands_published"`
	StartedAt             time.Time     `json:"started_at"`
	FinishedAt            time.Time     `json:"finished_at"`
	Duration              time.Duration `json:"duration_ns"`

	// Err is nil for completed runs. For failed and cancelled runs it is a
	// *FrameError.
	Err error `json:"-"`
}

// HandCommand is the payload published on the hand topic once per frame.
type HandCommand struct {
	RightCmd json.RawMessage `json:"right_cmd"`
	LeftCmd  json.RawMessage `json:"left_cmd"`
}

// Trigger sources recorded on runs.
const (
	TriggerHTTP = "http"
	TriggerAPI  = "api"
	TriggerMQTT = "mqtt"
)

// Run is a controller-managed playback and its recorded outcome.
type Run struct {
	ID                    string     `json:"id"`
	SequenceID            string     `json:"sequence_id"`
	Status                RunStatus  `json:"status"`
	Trigger               string     `json:"trigger"`
	Speed                 float64    `json:"speed"`
	Backwards             bool       `json:"backwards"`
	FrameCount            int        `json:"frame_count"`
	FramesPlayed          int        `json:"frames_played"`
	CommandsPublished     int        `json:"commands_published"`
	HandCommandsPublished int        `json:"hand_commands_published"`
	FailedFrame           *int       `json:"failed_frame,omitempty"`
	FailedChannel         *string    `json:"failed_channel,omitempty"`
	Error                 *string    `json:"error,omitempty"`
	StartedAt             time.Time  `json:"started_at"`
	FinishedAt            *time.Time `json:"finished_at,omitempty"`
	DurationMS            *int64     `json:"duration_ms,omitempty"`

	// Interval is the wait between frames. It is not persisted, so runs
	// read back from a RunRepository carry zero.
	Interval time.Duration `json:"interval_ns,omitempty"`
}

// PlannedDuration is the move length reported to Snap! clients: one
// interval per frame.
func (r Run) PlannedDuration() time.Duration {
	return time.Duration(r.FrameCount) * r.Interval
}

// finish copies a Result into the run.
func (r *Run) finish(res *Result) {
	r.Status = res.Status
	r.FramesPlayed = res.FramesPlayed
	r.CommandsPublished = res.CommandsPublished
	r.HandCommandsPublished = res.HandCommandsPublished

	finished := res.FinishedAt
	r.FinishedAt = &finished
	ms := res.Duration.Milliseconds()
	r.DurationMS = &ms

	if res.Err != nil {
		msg := res.Err.Error()
		r.Error = &msg
	}
	if fe := asFrameError(res.Err); fe != nil && res.Status == StatusFailed {
		frame := fe.Frame
		r.FailedFrame = &frame
		if fe.Channel != "" {
			ch := fe.Channel
			r.FailedChannel = &ch
		}
	}
}

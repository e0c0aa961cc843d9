package playback

import (
	"errors"
	"fmt"
)

// Domain errors for the playback package.
//
// Frame-level faults are reported as *FrameError, which unwraps to one of
// these sentinels:
//
//	var fe *playback.FrameError
//	if errors.As(err, &fe) && errors.Is(err, playback.ErrStatusUnavailable) {
//	    log.Printf("channel %s never reported", fe.Channel)
//	}
var (
	// ErrStatusUnavailable is returned when a channel in the sequence has no
	// observed status at the moment its command is built.
	ErrStatusUnavailable = errors.New("playback: channel status unavailable")

	// ErrPublishFailed is returned when the bus rejects a command.
	ErrPublishFailed = errors.New("playback: publish failed")

	// ErrCancelled is returned when a run is stopped before its last frame.
	ErrCancelled = errors.New("playback: cancelled")

	// ErrInvalidOptions is returned for a non-positive, non-finite or
	// too-large speed, or a nil sequence.
	ErrInvalidOptions = errors.New("playback: invalid options")

	// ErrAlreadyRunning is returned when starting a sequence that is playing.
	ErrAlreadyRunning = errors.New("playback: sequence already running")

	// ErrNotRunning is returned when stopping a sequence that is not playing.
	ErrNotRunning = errors.New("playback: sequence not running")

	// ErrRunNotFound is returned when a run ID is unknown.
	ErrRunNotFound = errors.New("playback: run not found")

	// ErrControllerClosed is returned by Start after Close.
	ErrControllerClosed = errors.New("playback: controller closed")
)

// HandChannel is the Channel reported in a FrameError for a hand command fault.
const HandChannel = "hands"

// FrameError locates a playback fault within a sequence.
type FrameError struct {
	SequenceID string
	// Frame is the sequence frame index, not the playback step; the two
	// differ for backwards runs.
	Frame int
	// Channel is empty for faults not tied to a channel (cancellation).
	Channel string
	Err     error
}

func (e *FrameError) Error() string {
	if e.Channel == "" {
		return fmt.Sprintf("sequence %s frame %d: %v", e.SequenceID, e.Frame, e.Err)
	}
	return fmt.Sprintf("sequence %s frame %d channel %s: %v", e.SequenceID, e.Frame, e.Channel, e.Err)
}

func (e *FrameError) Unwrap() error {
	return e.Err
}

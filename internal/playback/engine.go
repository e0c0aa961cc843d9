package playback

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nerrad567/poppy-motion/internal/actuator"
	"github.com/nerrad567/poppy-motion/internal/motion"
)

// Logger defines the logging interface used by the Engine and Controller.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// StatusSource provides the latest status of each actuator.
type StatusSource interface {
	Current(channel string) (actuator.Status, error)
}

// Publisher is the interface for sending commands on the bus.
type Publisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
}

// Topics maps channels to command topics.
type Topics interface {
	ChannelCommand(channel string) string
	HandCommand() string
}

// Engine replays sequences onto the bus.
//
// Each frame publishes one command per actuator, in actor order, followed by
// one hand command. Frames are scheduled against the run start time, so
// publish latency in one frame does not push back later frames.
//
// Thread Safety: Play is safe for concurrent use; each call is an
// independent run.
type Engine struct {
	statuses StatusSource
	bus      Publisher
	topics   Topics
	qos      byte
	logger   Logger

	now func() time.Time
}

// NewEngine creates a playback engine.
//
// Parameters:
//   - statuses: Source of live actuator status (usually *actuator.Cache)
//   - bus: Publisher for commands (usually *mqtt.Client)
//   - topics: Command topic layout
//   - logger: Logger instance (may be nil)
func NewEngine(statuses StatusSource, bus Publisher, topics Topics, logger Logger) *Engine {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Engine{
		statuses: statuses,
		bus:      bus,
		topics:   topics,
		qos:      1,
		logger:   logger,
		now:      time.Now,
	}
}

// SetQoS sets the QoS used for command publishes. Default 1.
func (e *Engine) SetQoS(qos byte) {
	e.qos = qos
}

// Play runs seq to completion, failure or cancellation.
//
// Cancellation is checked before each frame and during the wait between
// frames; a frame that has started is always emitted in full or fails. There
// is no wait after the last frame.
//
// The returned Result is always non-nil unless the options are invalid. The
// returned error equals Result.Err.
func (e *Engine) Play(ctx context.Context, seq *motion.Sequence, opts Options) (*Result, error) {
	if seq == nil {
		return nil, fmt.Errorf("%w: nil sequence", ErrInvalidOptions)
	}
	opts, err := opts.normalize()
	if err != nil {
		return nil, err
	}

	actors := seq.ActorNames()
	commandTopics := make([]string, len(actors))
	for k, name := range actors {
		commandTopics[k] = e.topics.ChannelCommand(name)
	}
	handTopic := e.topics.HandCommand()

	n := seq.FrameCount()
	interval, err := frameInterval(seq, opts.Speed)
	if err != nil {
		return nil, err
	}
	start := e.now()

	res := &Result{
		SequenceID: seq.ID(),
		Status:     StatusRunning,
		Speed:      opts.Speed,
		Backwards:  opts.Backwards,
		Interval:   interval,
		FrameCount: n,
		StartedAt:  start,
	}

	e.logger.Info("playback started",
		"sequence_id", seq.ID(),
		"frames", n,
		"channels", len(actors),
		"speed", opts.Speed,
		"backwards", opts.Backwards,
		"interval", interval,
	)

	for step := 0; step < n; step++ {
		idx := step
		if opts.Backwards {
			idx = n - 1 - step
		}

		if ctx.Err() != nil {
			return e.finish(res, cancelled(seq.ID(), idx, ctx.Err()))
		}

		scheduled := start.Add(time.Duration(step) * interval)
		frameStart := e.now()

		frame := seq.Frame(idx)
		if ferr := e.emitFrame(seq.ID(), idx, actors, commandTopics, handTopic, frame, res); ferr != nil {
			return e.finish(res, ferr)
		}
		res.FramesPlayed++

		if opts.Observer != nil {
			opts.Observer(FrameReport{
				SequenceID: seq.ID(),
				Frame:      idx,
				Step:       step,
				Scheduled:  scheduled,
				Started:    frameStart,
				Emit:       e.now().Sub(frameStart),
				Commands:   len(actors) + 1,
			})
		}

		if step == n-1 {
			break
		}

		deadline := start.Add(time.Duration(step+1) * interval)
		if err := e.waitUntil(ctx, deadline); err != nil {
			next := idx + 1
			if opts.Backwards {
				next = idx - 1
			}
			return e.finish(res, cancelled(seq.ID(), next, err))
		}
	}

	return e.finish(res, nil)
}

// frameInterval returns the wait between frames of seq at speed. It fails
// with ErrInvalidOptions when the schedule would overflow a time.Duration.
func frameInterval(seq *motion.Sequence, speed float64) (time.Duration, error) {
	d, ok := motion.FrameInterval(seq.FrequencyHz()*speed, seq.FrameCount())
	if !ok {
		return 0, fmt.Errorf("%w: speed %v at %v Hz gives a frame interval out of range",
			ErrInvalidOptions, speed, seq.FrequencyHz())
	}
	return d, nil
}

// emitFrame publishes every channel command and then the hand command.
func (e *Engine) emitFrame(seqID string, idx int, actors, commandTopics []string, handTopic string, frame motion.Frame, res *Result) *FrameError {
	for k, channel := range actors {
		status, err := e.statuses.Current(channel)
		if err != nil {
			return &FrameError{
				SequenceID: seqID,
				Frame:      idx,
				Channel:    channel,
				Err:        fmt.Errorf("%w: %w", ErrStatusUnavailable, err),
			}
		}

		payload, err := json.Marshal(actuator.NewCommand(status, frame.RobotPositions[k]))
		if err != nil {
			return &FrameError{SequenceID: seqID, Frame: idx, Channel: channel, Err: fmt.Errorf("encoding command: %w", err)}
		}
		if err := e.bus.Publish(commandTopics[k], payload, e.qos, false); err != nil {
			return &FrameError{
				SequenceID: seqID,
				Frame:      idx,
				Channel:    channel,
				Err:        fmt.Errorf("%w: %w", ErrPublishFailed, err),
			}
		}
		res.CommandsPublished++
	}

	payload, err := json.Marshal(HandCommand{RightCmd: frame.RightHand, LeftCmd: frame.LeftHand})
	if err != nil {
		return &FrameError{SequenceID: seqID, Frame: idx, Channel: HandChannel, Err: fmt.Errorf("encoding hand command: %w", err)}
	}
	if err := e.bus.Publish(handTopic, payload, e.qos, false); err != nil {
		return &FrameError{
			SequenceID: seqID,
			Frame:      idx,
			Channel:    HandChannel,
			Err:        fmt.Errorf("%w: %w", ErrPublishFailed, err),
		}
	}
	res.HandCommandsPublished++
	return nil
}

// waitUntil blocks until deadline or until ctx is done.
func (e *Engine) waitUntil(ctx context.Context, deadline time.Time) error {
	d := deadline.Sub(e.now())
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func cancelled(seqID string, frame int, cause error) *FrameError {
	return &FrameError{
		SequenceID: seqID,
		Frame:      frame,
		Err:        fmt.Errorf("%w: %w", ErrCancelled, cause),
	}
}

func (e *Engine) finish(res *Result, ferr *FrameError) (*Result, error) {
	res.FinishedAt = e.now()
	res.Duration = res.FinishedAt.Sub(res.StartedAt)

	if ferr == nil {
		res.Status = StatusCompleted
		e.logger.Info("playback completed",
			"sequence_id", res.SequenceID,
			"frames_played", res.FramesPlayed,
			"commands", res.CommandsPublished,
			"duration_ms", res.Duration.Milliseconds(),
		)
		return res, nil
	}

	res.Err = ferr
	if errors.Is(ferr, ErrCancelled) {
		res.Status = StatusCancelled
		e.logger.Info("playback cancelled",
			"sequence_id", res.SequenceID,
			"frame", ferr.Frame,
			"frames_played", res.FramesPlayed,
		)
	} else {
		res.Status = StatusFailed
		e.logger.Error("playback failed",
			"sequence_id", res.SequenceID,
			"frame", ferr.Frame,
			"channel", ferr.Channel,
			"error", ferr.Err,
		)
	}
	return res, ferr
}

func asFrameError(err error) *FrameError {
	var fe *FrameError
	if errors.As(err, &fe) {
		return fe
	}
	return nil
}

package motion

import (
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// HandValue is an opaque hand command copied verbatim to the hand bus.
// It may be any JSON value: a string such as "open", a number, or an object.
type HandValue = json.RawMessage

// Frame is one time step of a sequence.
type Frame struct {
	// RobotPositions holds one goal position per actor, aligned by index
	// with Sequence.ActorNames.
	RobotPositions []float64

	RightHand HandValue
	LeftHand  HandValue
}

// clone returns a deep copy of f.
func (f Frame) clone() Frame {
	return Frame{
		RobotPositions: append([]float64(nil), f.RobotPositions...),
		RightHand:      append(HandValue(nil), f.RightHand...),
		LeftHand:       append(HandValue(nil), f.LeftHand...),
	}
}

// Sequence is a validated recorded motion. It is immutable once built:
// accessors return copies.
type Sequence struct {
	id     string
	actors []string
	freq   float64
	frames []Frame
}

// NewSequence validates and builds a Sequence. The inputs are copied.
//
// It fails with ErrMalformedSequence when the actor list is empty or has
// duplicate or empty names, when the frequency is not a positive finite
// number, or when any frame's position count differs from the actor count.
func NewSequence(id string, actors []string, frequencyHz float64, frames []Frame) (*Sequence, error) {
	if len(actors) == 0 {
		return nil, fmt.Errorf("%w: %s: actors_NAME is empty", ErrMalformedSequence, id)
	}
	seen := make(map[string]struct{}, len(actors))
	for i, name := range actors {
		if name == "" {
			return nil, fmt.Errorf("%w: %s: actor %d has an empty name", ErrMalformedSequence, id, i)
		}
		if _, dup := seen[name]; dup {
			return nil, fmt.Errorf("%w: %s: duplicate actor %q", ErrMalformedSequence, id, name)
		}
		seen[name] = struct{}{}
	}

	if frequencyHz <= 0 || math.IsInf(frequencyHz, 0) || math.IsNaN(frequencyHz) {
		return nil, fmt.Errorf("%w: %s: freq must be a positive finite number, got %v", ErrMalformedSequence, id, frequencyHz)
	}
	if _, ok := FrameInterval(frequencyHz, len(frames)); !ok {
		return nil, fmt.Errorf("%w: %s: freq %v gives a frame interval out of range", ErrMalformedSequence, id, frequencyHz)
	}

	copied := make([]Frame, len(frames))
	for i, f := range frames {
		if len(f.RobotPositions) != len(actors) {
			return nil, fmt.Errorf("%w: %s: frame %d has %d positions for %d actors",
				ErrMalformedSequence, id, i, len(f.RobotPositions), len(actors))
		}
		for k, v := range f.RobotPositions {
			if math.IsInf(v, 0) || math.IsNaN(v) {
				return nil, fmt.Errorf("%w: %s: frame %d position %d is not finite", ErrMalformedSequence, id, i, k)
			}
		}
		if len(f.RightHand) == 0 || len(f.LeftHand) == 0 {
			return nil, fmt.Errorf("%w: %s: frame %d is missing a hand command", ErrMalformedSequence, id, i)
		}
		copied[i] = f.clone()
	}

	return &Sequence{
		id:     id,
		actors: append([]string(nil), actors...),
		freq:   frequencyHz,
		frames: copied,
	}, nil
}

// ID returns the identifier the sequence was loaded under.
func (s *Sequence) ID() string { return s.id }

// ActorNames returns the ordered channel names.
func (s *Sequence) ActorNames() []string {
	return append([]string(nil), s.actors...)
}

// FrequencyHz returns the recorded playback frequency.
func (s *Sequence) FrequencyHz() float64 { return s.freq }

// FrameCount returns the number of frames.
func (s *Sequence) FrameCount() int { return len(s.frames) }

// Frame returns a copy of frame i. It panics if i is out of range.
func (s *Sequence) Frame(i int) Frame {
	return s.frames[i].clone()
}

// Interval returns the delay between frames at the recorded frequency.
func (s *Sequence) Interval() time.Duration {
	d, _ := FrameInterval(s.freq, len(s.frames))
	return d
}

// FrameInterval returns the delay between frames played at rateHz. It
// reports false when rateHz is not positive and finite, when the interval
// rounds below one nanosecond, or when frames intervals would not fit in a
// time.Duration.
func FrameInterval(rateHz float64, frames int) (time.Duration, bool) {
	if rateHz <= 0 || math.IsInf(rateHz, 0) || math.IsNaN(rateHz) {
		return 0, false
	}
	ns := float64(time.Second) / rateHz
	if frames < 1 {
		frames = 1
	}
	if ns < 1 || ns*float64(frames) >= math.MaxInt64 {
		return 0, false
	}
	return time.Duration(ns), true
}

// Duration returns the nominal playback time at the recorded frequency.
// The last frame has no trailing wait, so a sequence of n frames spans
// n-1 intervals.
func (s *Sequence) Duration() time.Duration {
	if len(s.frames) < 2 {
		return 0
	}
	return time.Duration(len(s.frames)-1) * s.Interval()
}

// Summary is the metadata view of a sequence exposed by the API.
type Summary struct {
	ID          string   `json:"id"`
	Actors      []string `json:"actors"`
	FrequencyHz float64  `json:"frequency_hz"`
	FrameCount  int      `json:"frame_count"`
	DurationMS  int64    `json:"duration_ms"`
}

// Summary returns the sequence metadata.
func (s *Sequence) Summary() Summary {
	return Summary{
		ID:          s.id,
		Actors:      s.ActorNames(),
		FrequencyHz: s.freq,
		FrameCount:  len(s.frames),
		DurationMS:  s.Duration().Milliseconds(),
	}
}

package motion

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

const maxIDLength = 128

var idRegex = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.-]*$`)

// ValidateID rejects identifiers that are empty, too long, or could address
// anything other than a single document (path separators, "..").
func ValidateID(id string) error {
	switch {
	case id == "":
		return fmt.Errorf("%w: empty", ErrInvalidID)
	case len(id) > maxIDLength:
		return fmt.Errorf("%w: exceeds %d characters", ErrInvalidID, maxIDLength)
	case strings.Contains(id, ".."):
		return fmt.Errorf("%w: %q contains \"..\"", ErrInvalidID, id)
	case !idRegex.MatchString(id):
		return fmt.Errorf("%w: %q must be letters, digits, '.', '_' or '-'", ErrInvalidID, id)
	}
	return nil
}

// document mirrors the recorder's JSON layout. Raw fields let Parse report
// a missing field separately from one of the wrong type.
type document struct {
	Actors      *[]string                  `json:"actors_NAME"`
	Freq        json.RawMessage            `json:"freq"`
	FrameNumber json.RawMessage            `json:"frame_number"`
	Position    map[string]json.RawMessage `json:"position"`
}

type documentFrame struct {
	Robot     *[]float64      `json:"Robot"`
	RightHand json.RawMessage `json:"Right_hand"`
	LeftHand  json.RawMessage `json:"Left_hand"`
}

// Parse decodes and validates a sequence document.
//
// All frames are checked before Parse returns. The position map must hold
// exactly the keys "0" through "frame_number-1". freq may be a JSON number
// or a numeric string.
func Parse(id string, data []byte) (*Sequence, error) {
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedSequence, id, err)
	}

	if doc.Actors == nil {
		return nil, missingField(id, "actors_NAME")
	}
	if len(doc.Freq) == 0 {
		return nil, missingField(id, "freq")
	}
	if len(doc.FrameNumber) == 0 {
		return nil, missingField(id, "frame_number")
	}
	if doc.Position == nil {
		return nil, missingField(id, "position")
	}

	freq, err := parseFrequency(doc.Freq)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: freq: %v", ErrMalformedSequence, id, err)
	}

	var frameCount int
	if err := json.Unmarshal(doc.FrameNumber, &frameCount); err != nil || frameCount < 0 {
		return nil, fmt.Errorf("%w: %s: frame_number must be a non-negative integer", ErrMalformedSequence, id)
	}

	if len(doc.Position) != frameCount {
		return nil, fmt.Errorf("%w: %s: position has %d frames, frame_number is %d",
			ErrMalformedSequence, id, len(doc.Position), frameCount)
	}

	frames := make([]Frame, frameCount)
	for i := range frames {
		raw, ok := doc.Position[strconv.Itoa(i)]
		if !ok {
			return nil, fmt.Errorf("%w: %s: frame indices are not contiguous, %d is missing", ErrMalformedSequence, id, i)
		}
		frame, err := parseFrame(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: frame %d: %v", ErrMalformedSequence, id, i, err)
		}
		frames[i] = frame
	}

	return NewSequence(id, *doc.Actors, freq, frames)
}

func missingField(id, field string) error {
	return fmt.Errorf("%w: %s: missing %s", ErrMalformedSequence, id, field)
}

// parseFrequency accepts 10, 10.5 or "10.5".
func parseFrequency(raw json.RawMessage) (float64, error) {
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, fmt.Errorf("expected a number, got %s", raw)
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("expected a number, got %q", s)
	}
	return f, nil
}

func parseFrame(raw json.RawMessage) (Frame, error) {
	var df documentFrame
	if err := json.Unmarshal(raw, &df); err != nil {
		return Frame{}, err
	}
	if df.Robot == nil {
		return Frame{}, fmt.Errorf("missing Robot")
	}
	right, err := compactHand(df.RightHand, "Right_hand")
	if err != nil {
		return Frame{}, err
	}
	left, err := compactHand(df.LeftHand, "Left_hand")
	if err != nil {
		return Frame{}, err
	}
	return Frame{RobotPositions: *df.Robot, RightHand: right, LeftHand: left}, nil
}

func compactHand(raw json.RawMessage, field string) (HandValue, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("missing %s", field)
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return nil, fmt.Errorf("%s: %v", field, err)
	}
	return HandValue(buf.Bytes()), nil
}

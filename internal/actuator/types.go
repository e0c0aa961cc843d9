package actuator

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// Direction is the actuator's signed rotation flag.
type Direction int

// Direction values reported by the actuators.
const (
	DirectionDirect   Direction = 1
	DirectionIndirect Direction = -1
)

// UnmarshalJSON accepts an integer or a boolean (true = direct, false = indirect).
func (d *Direction) UnmarshalJSON(data []byte) error {
	switch string(bytes.TrimSpace(data)) {
	case "true":
		*d = DirectionDirect
		return nil
	case "false":
		*d = DirectionIndirect
		return nil
	}
	var n int
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("direction must be an integer or boolean, got %s", data)
	}
	*d = Direction(n)
	return nil
}

// Status is the last reported state of one actuator.
type Status struct {
	Compliant bool      `json:"compliant"`
	Direction Direction `json:"direction"`
	Offset    float64   `json:"offset"`
	MaxLoad   float64   `json:"max_load"`

	// ObservedAt is set by the cache when the status is stored.
	ObservedAt time.Time `json:"observed_at"`
}

// statusEvent uses pointers so a missing field is distinguishable from a
// zero value.
type statusEvent struct {
	Compliant *bool      `json:"compliant"`
	Direction *Direction `json:"direction"`
	Offset    *float64   `json:"offset"`
	MaxLoad   *float64   `json:"max_load"`
}

// DecodeStatus parses a status event payload. All four fields are required.
func DecodeStatus(payload []byte) (Status, error) {
	var ev statusEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		return Status{}, fmt.Errorf("%w: %v", ErrInvalidStatus, err)
	}

	var missing []string
	if ev.Compliant == nil {
		missing = append(missing, "compliant")
	}
	if ev.Direction == nil {
		missing = append(missing, "direction")
	}
	if ev.Offset == nil {
		missing = append(missing, "offset")
	}
	if ev.MaxLoad == nil {
		missing = append(missing, "max_load")
	}
	if len(missing) > 0 {
		return Status{}, fmt.Errorf("%w: missing %v", ErrInvalidStatus, missing)
	}

	return Status{
		Compliant: *ev.Compliant,
		Direction: *ev.Direction,
		Offset:    *ev.Offset,
		MaxLoad:   *ev.MaxLoad,
	}, nil
}

// Command is the position command published to one actuator for one frame.
// Compliant is always false so the actuator holds the commanded position.
type Command struct {
	Compliant    bool      `json:"compliant"`
	Direction    Direction `json:"direction"`
	GoalPosition float64   `json:"goal_position"`
	Offset       float64   `json:"offset"`
	MaxLoad      float64   `json:"max_load"`
}

// NewCommand merges a goal position with the actuator's current status.
func NewCommand(status Status, goalPosition float64) Command {
	return Command{
		Compliant:    false,
		Direction:    status.Direction,
		GoalPosition: goalPosition,
		Offset:       status.Offset,
		MaxLoad:      status.MaxLoad,
	}
}

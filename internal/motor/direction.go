package motor

import "fmt"

// Direction is the two-bit H-bridge pattern of a motor. The high bit drives
// the motor's first latch bit, the low bit its second.
type Direction uint8

const (
	Stop    Direction = 0x0
	Rewind  Direction = 0x1
	Forward Direction = 0x2

	// both legs high, only reachable through single-pin writes
	bothHigh Direction = 0x3
)

func (d Direction) Valid() bool {
	return d <= Forward
}

func (d Direction) String() string {
	switch d {
	case Stop:
		return "stop"
	case Rewind:
		return "rewind"
	case Forward:
		return "forward"
	case bothHigh:
		return "both"
	default:
		return fmt.Sprintf("direction(%d)", uint8(d))
	}
}

// ParseDirection maps a command word onto a Direction.
func ParseDirection(s string) (Direction, error) {
	switch s {
	case "forward":
		return Forward, nil
	case "rewind", "reverse", "backward":
		return Rewind, nil
	case "stop":
		return Stop, nil
	default:
		return Stop, fmt.Errorf("invalid direction: %s", s)
	}
}

// directionOf decodes motor n's pair from a latch byte.
func directionOf(latch byte, n int) Direction {
	var d Direction
	if latch&(1<<uint(latchBits[2*n])) != 0 {
		d |= 0x2
	}
	if latch&(1<<uint(latchBits[2*n+1])) != 0 {
		d |= 0x1
	}
	return d
}

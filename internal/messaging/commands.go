package messaging

import (
	"fmt"
	"strconv"
	"strings"

	"motor-shield-service/internal/types"
)

// ParseMotorCommand parses a shield:motor value:
//
//	<n>:forward:<speed>  <n>:rewind:<speed>  <n>:stop
//	<n>:speed:<speed>    <n>:signed:<speed>  <n>:brake  <n>:release
//	all:speed:<speed>    all:brake           all:release
//
// Numbers only need to parse; range checks are left to the controller.
func ParseMotorCommand(value string) (types.MotorCommand, error) {
	parts := strings.Split(strings.TrimSpace(value), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return types.MotorCommand{}, fmt.Errorf("invalid motor command: %s", value)
	}

	var cmd types.MotorCommand
	if parts[0] == "all" {
		cmd.All = true
	} else {
		n, err := strconv.Atoi(parts[0])
		if err != nil {
			return types.MotorCommand{}, fmt.Errorf("invalid motor index in %q: %w", value, err)
		}
		cmd.Motor = n
	}

	verb := parts[1]
	withSpeed := len(parts) == 3
	if withSpeed {
		speed, err := strconv.Atoi(parts[2])
		if err != nil {
			return types.MotorCommand{}, fmt.Errorf("invalid speed in %q: %w", value, err)
		}
		cmd.Speed = speed
	}

	switch {
	case (verb == "forward" || verb == "rewind") && withSpeed && !cmd.All:
		cmd.Action = types.ActionRun
		cmd.Direction = verb
	case verb == "stop" && !withSpeed && !cmd.All:
		cmd.Action = types.ActionDirection
		cmd.Direction = verb
	case verb == "speed" && withSpeed:
		cmd.Action = types.ActionSpeed
	case verb == "signed" && withSpeed && !cmd.All:
		cmd.Action = types.ActionSigned
	case verb == "brake" && !withSpeed:
		cmd.Action = types.ActionBrake
	case verb == "release" && !withSpeed:
		cmd.Action = types.ActionRelease
	default:
		return types.MotorCommand{}, fmt.Errorf("invalid motor command: %s", value)
	}
	return cmd, nil
}

// ParseOutputCommand parses a shield:output value: <n>:on, <n>:off or
// <n>:speed:<speed>.
func ParseOutputCommand(value string) (types.OutputCommand, error) {
	parts := strings.Split(strings.TrimSpace(value), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return types.OutputCommand{}, fmt.Errorf("invalid output command: %s", value)
	}

	n, err := strconv.Atoi(parts[0])
	if err != nil {
		return types.OutputCommand{}, fmt.Errorf("invalid output index in %q: %w", value, err)
	}
	cmd := types.OutputCommand{Output: n}

	switch {
	case len(parts) == 2 && (parts[1] == "on" || parts[1] == "off"):
		cmd.On = parts[1] == "on"
	case len(parts) == 3 && parts[1] == "speed":
		speed, err := strconv.Atoi(parts[2])
		if err != nil {
			return types.OutputCommand{}, fmt.Errorf("invalid speed in %q: %w", value, err)
		}
		cmd.SetSpeed = true
		cmd.Speed = speed
	default:
		return types.OutputCommand{}, fmt.Errorf("invalid output command: %s", value)
	}
	return cmd, nil
}

func ParsePowerCommand(value string) (string, error) {
	switch value {
	case "enable", "disable", "halt":
		return value, nil
	default:
		return "", fmt.Errorf("invalid power command: %s", value)
	}
}

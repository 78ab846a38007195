package core

import (
	"fmt"

	"motor-shield-service/internal/fsm"
	"motor-shield-service/internal/motor"
	"motor-shield-service/internal/types"
)

func (s *ShieldSystem) handleMotorCommand(cmd types.MotorCommand) error {
	s.cmdMu.Lock()
	defer s.cmdMu.Unlock()

	if s.getCurrentState() == types.StateShuttingDown {
		return fmt.Errorf("shield is shutting down, ignoring motor command")
	}
	s.logger.Debugf("Handling motor command: %+v", cmd)

	var err error
	switch cmd.Action {
	case types.ActionRun, types.ActionDirection:
		dir, perr := motor.ParseDirection(cmd.Direction)
		if perr != nil {
			return perr
		}
		if cmd.Action == types.ActionRun {
			err = s.ctrl.SetDirectionAndSpeed(cmd.Motor, dir, cmd.Speed)
		} else {
			err = s.ctrl.SetDirection(cmd.Motor, dir)
		}
	case types.ActionSpeed:
		if cmd.All {
			err = s.ctrl.SetAllSpeed(cmd.Speed)
		} else {
			err = s.ctrl.SetSpeed(cmd.Motor, cmd.Speed)
		}
	case types.ActionSigned:
		err = s.ctrl.SetSignedSpeed(cmd.Motor, cmd.Speed)
	case types.ActionBrake:
		if cmd.All {
			err = s.ctrl.BrakeAll()
		} else {
			err = s.ctrl.Brake(cmd.Motor)
		}
	case types.ActionRelease:
		if cmd.All {
			err = s.ctrl.ReleaseAll()
		} else {
			err = s.ctrl.Release(cmd.Motor)
		}
	default:
		return fmt.Errorf("unknown motor action: %s", cmd.Action)
	}

	s.afterCommand(err)
	return err
}

func (s *ShieldSystem) handleOutputCommand(cmd types.OutputCommand) error {
	s.cmdMu.Lock()
	defer s.cmdMu.Unlock()

	if s.getCurrentState() == types.StateShuttingDown {
		return fmt.Errorf("shield is shutting down, ignoring output command")
	}
	s.logger.Debugf("Handling output command: %+v", cmd)

	var err error
	if cmd.SetSpeed {
		err = s.ctrl.SetPairSpeed(cmd.Output, cmd.Speed)
	} else {
		err = s.ctrl.SetSinglePin(cmd.Output, cmd.On)
	}

	s.afterCommand(err)
	return err
}

func (s *ShieldSystem) handlePowerCommand(command string) error {
	s.cmdMu.Lock()
	defer s.cmdMu.Unlock()

	if s.getCurrentState() == types.StateShuttingDown {
		return fmt.Errorf("shield is shutting down, ignoring power command")
	}
	s.logger.Infof("Handling power command: %s", command)

	var err error
	switch command {
	case "enable":
		err = s.ctrl.EnableAllPins()
	case "disable":
		err = s.ctrl.DisableAllPins()
	case "halt":
		err = s.ctrl.BrakeAll()
	default:
		return fmt.Errorf("invalid power command: %s", command)
	}

	s.afterCommand(err)
	return err
}

// afterCommand publishes the new status and moves the FSM between idle and
// running. While running, every command restarts the watchdog.
func (s *ShieldSystem) afterCommand(cmdErr error) {
	s.trackFault(cmdErr)

	if err := s.publishStatus(); err != nil {
		s.logger.Warnf("Failed to publish status: %v", err)
	}
	if s.machine == nil {
		return
	}

	running := s.ctrl.State().Running()
	switch state := s.getCurrentState(); {
	case running && state == types.StateIdle:
		if err := s.sendEvent(fsm.EvDrive); err != nil {
			s.logger.Warnf("Failed to enter running: %v", err)
		}
	case running && state == types.StateRunning:
		s.startWatchdog()
	case !running && state == types.StateRunning:
		if err := s.sendEvent(fsm.EvCoast); err != nil {
			s.logger.Warnf("Failed to return to idle: %v", err)
		}
	}
}

// trackFault raises the hardware write fault on error and clears it on the
// next success.
func (s *ShieldSystem) trackFault(err error) {
	s.mu.Lock()
	wasActive := s.faultActive
	s.faultActive = err != nil
	s.mu.Unlock()

	switch {
	case err != nil && !wasActive:
		s.logger.Errorf("Motor shield hardware write failed: %v", err)
		if ferr := s.redis.ReportFaultPresent(types.FaultHardwareWrite, "motor shield hardware write failed", err.Error()); ferr != nil {
			s.logger.Warnf("Failed to report fault: %v", ferr)
		}
	case err == nil && wasActive:
		if ferr := s.redis.ReportFaultAbsent(types.FaultHardwareWrite); ferr != nil {
			s.logger.Warnf("Failed to clear fault: %v", ferr)
		}
	}
}

func (s *ShieldSystem) publishStatus() error {
	return s.redis.PublishStatus(snapshotToStatus(s.ctrl.State()))
}

func snapshotToStatus(snap motor.Snapshot) types.ShieldStatus {
	status := types.ShieldStatus{
		Latch:  snap.Latch,
		Motors: make([]types.MotorStatus, len(snap.Motors)),
	}
	for n, m := range snap.Motors {
		status.Motors[n] = types.MotorStatus{
			Direction: m.Direction.String(),
			Speed:     int(m.Speed),
			Duty:      int(m.Duty),
			Enabled:   m.Enabled,
		}
	}
	return status
}

package core

import (
	"context"

	"github.com/librescoot/librefsm"

	"motor-shield-service/internal/fsm"
	"motor-shield-service/internal/types"
)

// Ensure ShieldSystem implements fsm.Actions
var _ fsm.Actions = (*ShieldSystem)(nil)

func stateIDToShieldState(id librefsm.StateID) types.ShieldState {
	switch id {
	case fsm.StateInit:
		return types.StateInit
	case fsm.StateIdle:
		return types.StateIdle
	case fsm.StateRunning:
		return types.StateRunning
	case fsm.StateShuttingDown:
		return types.StateShuttingDown
	default:
		return types.ShieldState(string(id))
	}
}

// initFSM initializes and starts the librefsm machine
func (s *ShieldSystem) initFSM(ctx context.Context) error {
	def := fsm.NewDefinition(s)
	machine, err := def.Build()
	if err != nil {
		return err
	}
	s.machine = machine

	s.machine.OnStateChange(func(from, to librefsm.StateID) {
		newState := stateIDToShieldState(to)
		oldState := stateIDToShieldState(from)

		s.mu.Lock()
		s.state = newState
		s.mu.Unlock()

		s.logger.Infof("State transition: %s -> %s", oldState, newState)

		// Publish the known new state; getCurrentState() on the machine would
		// deadlock inside this callback
		if err := s.redis.PublishShieldState(newState); err != nil {
			s.logger.Errorf("Failed to publish state: %v", err)
		}
	})

	if err := s.machine.Start(ctx); err != nil {
		return err
	}

	s.logger.Infof("librefsm state machine started")
	return nil
}

// sendEvent sends an event to the FSM
func (s *ShieldSystem) sendEvent(event librefsm.EventID) error {
	return s.machine.SendSync(librefsm.Event{ID: event})
}

func (s *ShieldSystem) startWatchdog() {
	if s.watchdog <= 0 || s.machine == nil {
		return
	}
	s.machine.StopTimer(fsm.TimerWatchdog)
	s.machine.StartTimer(fsm.TimerWatchdog, s.watchdog, librefsm.Event{ID: fsm.EvWatchdogTimeout})
}

// === State Entry Actions ===

func (s *ShieldSystem) EnterIdle(c *librefsm.Context) error {
	s.logger.Debugf("FSM: EnterIdle")
	return nil
}

func (s *ShieldSystem) EnterRunning(c *librefsm.Context) error {
	s.logger.Debugf("FSM: EnterRunning")
	if s.watchdog > 0 {
		s.startWatchdog()
		s.logger.Debugf("Started watchdog: %s", s.watchdog)
	}
	return nil
}

func (s *ShieldSystem) EnterShuttingDown(c *librefsm.Context) error {
	s.logger.Infof("FSM: EnterShuttingDown")
	s.shutdownOutputs()
	if err := s.publishStatus(); err != nil {
		s.logger.Warnf("Failed to publish status: %v", err)
	}
	return nil
}

// === State Exit Actions ===

func (s *ShieldSystem) ExitRunning(c *librefsm.Context) error {
	s.logger.Debugf("FSM: ExitRunning")
	if s.machine != nil {
		s.machine.StopTimer(fsm.TimerWatchdog)
	}
	return nil
}

// === Transition Actions ===

// OnWatchdogTimeout lets every motor coast when commands stopped arriving
// while something was being driven.
func (s *ShieldSystem) OnWatchdogTimeout(c *librefsm.Context) error {
	s.logger.Warnf("FSM: Watchdog expired after %s without a command, releasing all motors", s.watchdog)
	err := s.ctrl.ReleaseAll()
	s.trackFault(err)
	if perr := s.publishStatus(); perr != nil {
		s.logger.Warnf("Failed to publish status: %v", perr)
	}
	return err
}

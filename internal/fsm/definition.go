package fsm

import "github.com/librescoot/librefsm"

// NewDefinition creates the shield lifecycle FSM definition.
//
// The watchdog timer is started imperatively by EnterRunning because its
// duration comes from the board configuration.
func NewDefinition(actions Actions) *librefsm.Definition {
	return librefsm.NewDefinition().
		State(StateInit).
		State(StateIdle,
			librefsm.WithOnEnter(actions.EnterIdle),
		).
		State(StateRunning,
			librefsm.WithOnEnter(actions.EnterRunning),
			librefsm.WithOnExit(actions.ExitRunning),
		).
		State(StateShuttingDown,
			librefsm.WithOnEnter(actions.EnterShuttingDown),
		).

		// === Transitions ===

		Transition(StateInit, EvReady, StateIdle).
		Transition(StateInit, EvShutdown, StateShuttingDown).

		Transition(StateIdle, EvDrive, StateRunning).
		Transition(StateIdle, EvShutdown, StateShuttingDown).

		Transition(StateRunning, EvCoast, StateIdle).
		Transition(StateRunning, EvWatchdogTimeout, StateIdle,
			librefsm.WithAction(actions.OnWatchdogTimeout),
		).
		Transition(StateRunning, EvShutdown, StateShuttingDown).

		Initial(StateInit)
}

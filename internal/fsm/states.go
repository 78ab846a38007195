package fsm

import "github.com/librescoot/librefsm"

// Shield states
const (
	StateInit         librefsm.StateID = "init"
	StateIdle         librefsm.StateID = "idle"
	StateRunning      librefsm.StateID = "running"
	StateShuttingDown librefsm.StateID = "shutting-down"
)

// Shield events
const (
	EvReady    librefsm.EventID = "ready"
	EvDrive    librefsm.EventID = "drive" // a motor started being driven
	EvCoast    librefsm.EventID = "coast" // no motor is driven any more
	EvShutdown librefsm.EventID = "shutdown"

	// Timer events
	EvWatchdogTimeout librefsm.EventID = "watchdog-timeout"
)

// Timer names for imperative timers
const (
	TimerWatchdog = "watchdog"
)

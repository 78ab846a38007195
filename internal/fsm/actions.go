package fsm

import "github.com/librescoot/librefsm"

// Actions defines the state entry/exit hooks of the shield lifecycle.
// ShieldSystem implements this interface.
type Actions interface {
	EnterIdle(c *librefsm.Context) error
	EnterRunning(c *librefsm.Context) error
	ExitRunning(c *librefsm.Context) error
	EnterShuttingDown(c *librefsm.Context) error

	// Transition actions
	OnWatchdogTimeout(c *librefsm.Context) error
}

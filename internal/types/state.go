package types

type ShieldState string

const (
	StateInit         ShieldState = "init"
	StateIdle         ShieldState = "idle"
	StateRunning      ShieldState = "running"
	StateShuttingDown ShieldState = "shutting-down"
)

type MotorAction string

const (
	ActionRun       MotorAction = "run"       // direction and speed
	ActionDirection MotorAction = "direction" // direction only
	ActionSpeed     MotorAction = "speed"
	ActionSigned    MotorAction = "signed"
	ActionBrake     MotorAction = "brake"
	ActionRelease   MotorAction = "release"
)

// MotorCommand is a parsed shield:motor request. Motor and Speed are passed
// through unchecked; the controller ignores values out of range.
type MotorCommand struct {
	Motor     int
	All       bool
	Action    MotorAction
	Direction string
	Speed     int
}

// OutputCommand is a parsed shield:output request for single-pin mode.
type OutputCommand struct {
	Output   int
	On       bool
	SetSpeed bool
	Speed    int
}

type MotorStatus struct {
	Direction string
	Speed     int
	Duty      int
	Enabled   bool
}

type ShieldStatus struct {
	Latch  byte
	Motors []MotorStatus
}

// Fault codes reported on events:faults
const (
	FaultHardwareWrite = 201 // latch or enable pin write failed
	FaultInit          = 202 // shield bring-up failed
)

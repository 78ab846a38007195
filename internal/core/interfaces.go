package core

import (
	"motor-shield-service/internal/messaging"
	"motor-shield-service/internal/motor"
	"motor-shield-service/internal/types"
)

// MessagingClient defines the Redis operations needed by ShieldSystem
type MessagingClient interface {
	SetCallbacks(callbacks messaging.Callbacks)
	Connect() error
	StartListening() error
	Close() error

	PublishShieldState(state types.ShieldState) error
	PublishStatus(status types.ShieldStatus) error

	// Faults
	ReportFaultPresent(code int, description string, info string) error
	ReportFaultAbsent(code int) error
}

// MotorController defines the shield operations needed by ShieldSystem
type MotorController interface {
	Init() error
	Shutdown() error

	SetDirection(n int, dir motor.Direction) error
	SetSpeed(n, speed int) error
	SetDirectionAndSpeed(n int, dir motor.Direction, speed int) error
	SetSignedSpeed(n, speed int) error
	Brake(n int) error
	Release(n int) error

	// Single-pin mode
	SetSinglePin(n int, on bool) error
	SetPairSpeed(n, speed int) error

	SetAllSpeed(speed int) error
	EnableAllPins() error
	DisableAllPins() error
	BrakeAll() error
	ReleaseAll() error

	State() motor.Snapshot
}

package core

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/librescoot/librefsm"

	"motor-shield-service/internal/fsm"
	"motor-shield-service/internal/logger"
	"motor-shield-service/internal/messaging"
	"motor-shield-service/internal/types"
)

type ShieldSystem struct {
	state    types.ShieldState
	logger   *logger.Logger
	ctrl     MotorController
	redis    MessagingClient
	machine  *librefsm.Machine
	watchdog time.Duration
	mu       sync.RWMutex

	// serialises commands so status and FSM sync see each command's result
	cmdMu       sync.Mutex
	faultActive bool
}

// NewShieldSystem wires a controller and a messaging client together. A
// watchdog of zero leaves running motors alone however long no command
// arrives.
func NewShieldSystem(ctrl MotorController, redis MessagingClient, watchdog time.Duration, l *logger.Logger) *ShieldSystem {
	return &ShieldSystem{
		state:    types.StateInit,
		logger:   l,
		ctrl:     ctrl,
		redis:    redis,
		watchdog: watchdog,
	}
}

func (s *ShieldSystem) Start(ctx context.Context) error {
	s.logger.Infof("Starting motor shield system")

	s.redis.SetCallbacks(messaging.Callbacks{
		MotorCallback:  s.handleMotorCommand,
		OutputCallback: s.handleOutputCommand,
		PowerCallback:  s.handlePowerCommand,
	})

	if err := s.redis.Connect(); err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}

	if err := s.ctrl.Init(); err != nil {
		if ferr := s.redis.ReportFaultPresent(types.FaultInit, "motor shield init failed", err.Error()); ferr != nil {
			s.logger.Warnf("Failed to report init fault: %v", ferr)
		}
		return fmt.Errorf("failed to initialize motor shield: %w", err)
	}

	if err := s.initFSM(ctx); err != nil {
		return fmt.Errorf("failed to start state machine: %w", err)
	}

	if err := s.publishStatus(); err != nil {
		s.logger.Warnf("Failed to publish initial status: %v", err)
	}

	if err := s.sendEvent(fsm.EvReady); err != nil {
		return fmt.Errorf("failed to enter idle: %w", err)
	}

	// Listen only once the shield is in a known state
	if err := s.redis.StartListening(); err != nil {
		return fmt.Errorf("failed to start Redis listeners: %w", err)
	}

	s.logger.Infof("Motor shield system started")
	return nil
}

// Shutdown switches every motor off and closes the Redis client. It is safe
// to call when Start failed half way.
func (s *ShieldSystem) Shutdown() {
	s.cmdMu.Lock()
	defer s.cmdMu.Unlock()

	if s.machine != nil {
		if err := s.sendEvent(fsm.EvShutdown); err != nil {
			s.logger.Warnf("FSM shutdown failed, switching outputs off directly: %v", err)
			s.shutdownOutputs()
		}
	} else {
		s.shutdownOutputs()
	}

	if err := s.redis.Close(); err != nil {
		s.logger.Warnf("Failed to close Redis client: %v", err)
	}
}

func (s *ShieldSystem) shutdownOutputs() {
	if err := s.ctrl.Shutdown(); err != nil {
		s.logger.Errorf("Failed to switch motor outputs off: %v", err)
	}
}

func (s *ShieldSystem) getCurrentState() types.ShieldState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Package motor maps DC motor commands onto the shield latch and the four
// PWM enable lines.
//
// Numeric inputs outside their range (motor 0..3, output 0..7, speed 0..255)
// are ignored without error: a bad computed speed must never take the motor
// subsystem down. Errors are only returned for hardware failures.
package motor

import (
	"errors"
	"fmt"
	"sync"

	"motor-shield-service/internal/logger"
)

// Latch is the shift register image the controller writes through.
type Latch interface {
	Init() error
	Reset() error
	WriteBit(position int, value bool) error
	WriteBitPair(high, low int, value uint8) error
	Value() byte
}

// Output drives the PWM capable enable pins.
type Output interface {
	DigitalWrite(pin int, high bool) error
	AnalogWrite(pin int, duty uint8) error
}

// MotorState is the bookkeeping of one motor. Speed is the last requested
// duty; Duty is what the enable pin currently carries, which differs after
// Release or EnableAll.
type MotorState struct {
	Direction Direction
	Speed     uint8
	Duty      uint8
	Enabled   bool
}

type Snapshot struct {
	Latch  byte
	Motors [MotorCount]MotorState
}

// Running reports whether any motor is being driven: a bridge leg high and
// its enable line on. A braked motor is not running.
func (s Snapshot) Running() bool {
	for _, m := range s.Motors {
		if m.Duty > 0 && m.Direction != Stop {
			return true
		}
	}
	return false
}

type Controller struct {
	mu     sync.Mutex
	latch  Latch
	out    Output
	logger *logger.Logger
	motors [MotorCount]MotorState
}

func NewController(latch Latch, out Output, l *logger.Logger) *Controller {
	return &Controller{
		latch:  latch,
		out:    out,
		logger: l,
	}
}

// Init brings the shield up: latch lines low, every enable pin off, then the
// latch cleared. Disabling first keeps the bridges from being energised by
// whatever the register held at power on.
func (c *Controller) Init() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.latch.Init(); err != nil {
		return fmt.Errorf("failed to initialise latch: %w", err)
	}
	if err := c.enableAll(false); err != nil {
		return fmt.Errorf("failed to disable motor outputs: %w", err)
	}
	if err := c.latch.Reset(); err != nil {
		return fmt.Errorf("failed to clear latch: %w", err)
	}
	c.motors = [MotorCount]MotorState{}
	c.logger.Infof("Motor shield initialized")
	return nil
}

// Shutdown switches every enable line off and clears the latch, the same
// order as bring-up.
func (c *Controller) Shutdown() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.enableAll(false); err != nil {
		return fmt.Errorf("failed to disable motor outputs: %w", err)
	}
	if err := c.latch.Reset(); err != nil {
		return fmt.Errorf("failed to clear latch: %w", err)
	}
	c.logger.Infof("Motor shield outputs off")
	return nil
}

func (c *Controller) SetDirection(n int, dir Direction) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.setDirection(n, dir)
}

func (c *Controller) SetSpeed(n, speed int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.setSpeed(n, speed)
}

func (c *Controller) SetDirectionAndSpeed(n int, dir Direction, speed int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.setDirectionAndSpeed(n, dir, speed)
}

// SetSignedSpeed runs negative speeds in reverse. Zero counts as forward.
func (c *Controller) SetSignedSpeed(n, speed int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if speed < 0 {
		return c.setDirectionAndSpeed(n, Rewind, -speed)
	}
	return c.setDirectionAndSpeed(n, Forward, speed)
}

// Brake clears the direction bits and drives the enable line at full duty,
// holding both bridge legs low.
func (c *Controller) Brake(n int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.setDirectionAndSpeed(n, Stop, MaxSpeed)
}

// Release lets the motor coast. The direction bits are kept for the next
// speed command.
func (c *Controller) Release(n int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.release(n)
}

// SetSinglePin drives output n of the latch on its own, for loads wired
// between one bridge leg and ground.
func (c *Controller) SetSinglePin(n int, on bool) error {
	if !validOutput(n) {
		c.logger.Debugf("Ignoring output %d: out of range", n)
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.latch.WriteBit(latchBits[n], on); err != nil {
		return fmt.Errorf("failed to set output %d: %w", n, err)
	}
	return nil
}

// SetPairSpeed sets the enable line shared by single output n and its
// neighbour.
func (c *Controller) SetPairSpeed(n, speed int) error {
	if !validOutput(n) {
		c.logger.Debugf("Ignoring output %d: out of range", n)
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.setSpeed(n>>1, speed)
}

func (c *Controller) SetAllSpeed(speed int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var errs []error
	for n := 0; n < MotorCount; n++ {
		if err := c.setSpeed(n, speed); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// EnableAll writes every enable pin on or off at once. Latch bits and stored
// speeds are left alone, so a later SetSpeed picks up where it was.
func (c *Controller) EnableAll(on bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.enableAll(on)
}

func (c *Controller) EnableAllPins() error {
	return c.EnableAll(true)
}

func (c *Controller) DisableAllPins() error {
	return c.EnableAll(false)
}

func (c *Controller) BrakeAll() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var errs []error
	for n := 0; n < MotorCount; n++ {
		if err := c.setDirectionAndSpeed(n, Stop, MaxSpeed); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (c *Controller) ReleaseAll() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var errs []error
	for n := 0; n < MotorCount; n++ {
		if err := c.release(n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// State returns the latch image and per motor bookkeeping. Directions are
// decoded from the latch so single-pin writes show up too.
func (c *Controller) State() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Snapshot{Latch: c.latch.Value(), Motors: c.motors}
	for n := range s.Motors {
		s.Motors[n].Direction = directionOf(s.Latch, n)
	}
	return s
}

func (c *Controller) setDirection(n int, dir Direction) error {
	if !validMotor(n) {
		c.logger.Debugf("Ignoring direction for motor %d: out of range", n)
		return nil
	}
	if !dir.Valid() {
		c.logger.Debugf("Ignoring invalid direction %d for motor %d", dir, n)
		return nil
	}

	if err := c.latch.WriteBitPair(latchBits[2*n], latchBits[2*n+1], uint8(dir)); err != nil {
		return fmt.Errorf("failed to set motor %d %s: %w", n, dir, err)
	}
	c.logger.Debugf("Motor %d direction %s", n, dir)
	return nil
}

func (c *Controller) setSpeed(n, speed int) error {
	if !validSpeed(speed) {
		c.logger.Debugf("Ignoring speed %d for motor %d: out of range", speed, n)
		return nil
	}
	if !validMotor(n) {
		c.logger.Debugf("Ignoring speed for motor %d: out of range", n)
		return nil
	}

	if err := c.out.AnalogWrite(pwmPins[n], uint8(speed)); err != nil {
		return fmt.Errorf("failed to set motor %d speed %d: %w", n, speed, err)
	}
	c.motors[n].Speed = uint8(speed)
	c.motors[n].Duty = uint8(speed)
	c.motors[n].Enabled = true
	c.logger.Debugf("Motor %d speed %d", n, speed)
	return nil
}

func (c *Controller) setDirectionAndSpeed(n int, dir Direction, speed int) error {
	if !dir.Valid() {
		c.logger.Debugf("Ignoring invalid direction %d for motor %d", dir, n)
		return nil
	}
	if err := c.setDirection(n, dir); err != nil {
		return err
	}
	return c.setSpeed(n, speed)
}

func (c *Controller) release(n int) error {
	if !validMotor(n) {
		c.logger.Debugf("Ignoring release of motor %d: out of range", n)
		return nil
	}

	if err := c.out.DigitalWrite(pwmPins[n], false); err != nil {
		return fmt.Errorf("failed to release motor %d: %w", n, err)
	}
	c.motors[n].Duty = 0
	c.motors[n].Enabled = false
	c.logger.Debugf("Motor %d released", n)
	return nil
}

func (c *Controller) enableAll(on bool) error {
	var errs []error
	for n, pin := range pwmPins {
		if err := c.out.DigitalWrite(pin, on); err != nil {
			errs = append(errs, fmt.Errorf("failed to switch enable pin %d: %w", pin, err))
			continue
		}
		c.motors[n].Enabled = on
		if on {
			c.motors[n].Duty = MaxSpeed
		} else {
			c.motors[n].Duty = 0
		}
	}
	return errors.Join(errs...)
}

package hardware

import (
	"fmt"
	"sync"

	"github.com/warthog618/go-gpiocdev"

	"motor-shield-service/internal/logger"
)

// LinuxHardwareIO drives shield header pins through the GPIO character
// device and sysfs PWM. Pins are addressed by their header number.
type LinuxHardwareIO struct {
	logger   *logger.Logger
	gpioMap  map[int]GpioLine
	pwmMap   map[int]PwmRef
	periodNs int
	chips    map[int]*gpiocdev.Chip
	lines    map[int]*gpiocdev.Line
	pwms     map[int]*pwmChannel
	mu       sync.RWMutex
}

func NewLinuxHardwareIO(gpio map[int]GpioLine, pwm map[int]PwmRef, periodNs int, l *logger.Logger) *LinuxHardwareIO {
	if periodNs <= 0 {
		periodNs = DefaultPwmPeriodNs
	}
	return &LinuxHardwareIO{
		logger:   l,
		gpioMap:  gpio,
		pwmMap:   pwm,
		periodNs: periodNs,
		chips:    make(map[int]*gpiocdev.Chip),
		lines:    make(map[int]*gpiocdev.Line),
		pwms:     make(map[int]*pwmChannel),
	}
}

func (io *LinuxHardwareIO) Initialize() error {
	io.logger.Infof("Initializing hardware IO")

	io.mu.Lock()
	defer io.mu.Unlock()

	for pin, mapping := range io.gpioMap {
		chip, ok := io.chips[mapping.Chip]
		if !ok {
			var err error
			chip, err = gpiocdev.NewChip(fmt.Sprintf("gpiochip%d", mapping.Chip))
			if err != nil {
				return fmt.Errorf("failed to open GPIO chip %d: %w", mapping.Chip, err)
			}
			io.chips[mapping.Chip] = chip
		}

		// every latch line starts low, including ~OE which enables the outputs
		line, err := chip.RequestLine(mapping.Line,
			gpiocdev.AsOutput(0),
			gpiocdev.WithConsumer(Consumer))
		if err != nil {
			return fmt.Errorf("failed to request GPIO line %d for pin %d: %w", mapping.Line, pin, err)
		}

		io.lines[pin] = line
		io.logger.Infof("Configured DO pin %d: chip=%d, line=%d", pin, mapping.Chip, mapping.Line)
	}

	for pin, ref := range io.pwmMap {
		ch, err := openPwmChannel(ref, io.periodNs)
		if err != nil {
			return fmt.Errorf("failed to open PWM for pin %d: %w", pin, err)
		}
		io.pwms[pin] = ch
		io.logger.Infof("Configured PWM pin %d: chip=%d, channel=%d, period=%dns", pin, ref.Chip, ref.Channel, io.periodNs)
	}

	return nil
}

// DigitalWrite sets a GPIO line, or drives a PWM pin fully on or off.
func (io *LinuxHardwareIO) DigitalWrite(pin int, high bool) error {
	io.mu.RLock()
	line, isLine := io.lines[pin]
	ch, isPwm := io.pwms[pin]
	io.mu.RUnlock()

	switch {
	case isLine:
		val := 0
		if high {
			val = 1
		}
		if err := line.SetValue(val); err != nil {
			return fmt.Errorf("failed to set pin %d=%v: %w", pin, high, err)
		}
		return nil
	case isPwm:
		return ch.SetLevel(high)
	default:
		return fmt.Errorf("unknown digital output pin: %d", pin)
	}
}

func (io *LinuxHardwareIO) AnalogWrite(pin int, duty uint8) error {
	io.mu.RLock()
	ch, ok := io.pwms[pin]
	io.mu.RUnlock()

	if !ok {
		return fmt.Errorf("pin %d is not PWM capable", pin)
	}
	return ch.SetDuty(duty)
}

func (io *LinuxHardwareIO) ShiftOut(dataPin, clockPin int, value byte) error {
	return ShiftOutMSBFirst(io, dataPin, clockPin, value)
}

func (io *LinuxHardwareIO) DelayMicroseconds(us int) {
	DelayMicroseconds(us)
}

func (io *LinuxHardwareIO) Cleanup() {
	io.mu.Lock()
	defer io.mu.Unlock()

	io.logger.Infof("Cleaning up hardware resources")

	for pin, ch := range io.pwms {
		ch.Close()
		io.logger.Debugf("Closed PWM for pin %d", pin)
	}

	for pin, line := range io.lines {
		line.Close()
		io.logger.Debugf("Closed GPIO line for pin %d", pin)
	}

	for id, chip := range io.chips {
		chip.Close()
		io.logger.Debugf("Closed GPIO chip %d", id)
	}

	io.logger.Infof("Hardware cleanup complete")
}

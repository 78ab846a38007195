package hardware

// Header pins of the shield's 74HC595 latch.
const (
	LatchDataPin   = 8  // DS
	LatchClockPin  = 4  // SHCP
	LatchStrobePin = 12 // STCP
	LatchEnablePin = 7  // ~OE, active low

	DefaultSettleMicros = 5
	DefaultPwmPeriodNs  = 1000000 // 1 kHz

	PwmSysfsDir = "/sys/class/pwm"
	Consumer    = "motor-shield-service"

	MaxDuty = 255
)

// GpioLine addresses a gpiochip line.
type GpioLine struct {
	Chip int
	Line int
}

// PwmRef addresses a sysfs PWM channel.
type PwmRef struct {
	Chip    int
	Channel int
}

// DoMappings maps header pins driven as plain digital outputs.
var DoMappings = map[int]GpioLine{
	LatchClockPin:  {0, 4},
	LatchEnablePin: {0, 7},
	LatchDataPin:   {0, 8},
	LatchStrobePin: {0, 12},
}

// PwmMappings maps the motor enable pins to PWM channels.
var PwmMappings = map[int]PwmRef{
	11: {0, 0},
	3:  {0, 1},
	6:  {1, 0},
	5:  {1, 1},
}

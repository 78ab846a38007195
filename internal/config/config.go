// Package config loads the board description and service settings.
//
// The board file is YAML; environment variables override the service
// settings and the location of the board file itself.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v6"
	"gopkg.in/yaml.v2"

	"motor-shield-service/internal/hardware"
	"motor-shield-service/internal/latch"
	"motor-shield-service/internal/motor"
)

const DefaultPath = "/etc/motor-shield/board.yaml"

type EnvConfig struct {
	ConfigPath string `env:"SHIELD_CONFIG" envDefault:"/etc/motor-shield/board.yaml"`
	RedisHost  string `env:"SHIELD_REDIS_HOST" envDefault:"127.0.0.1"`
	RedisPort  int    `env:"SHIELD_REDIS_PORT" envDefault:"6379"`
	LogLevel   string `env:"SHIELD_LOG_LEVEL"`

	// Kept as text so an explicit 0 can be told apart from unset
	Watchdog string `env:"SHIELD_WATCHDOG"`
}

type LatchPins struct {
	Data   int `yaml:"data"`
	Clock  int `yaml:"clock"`
	Latch  int `yaml:"latch"`
	Enable int `yaml:"enable"`
}

type GpioLine struct {
	Chip int `yaml:"chip"`
	Line int `yaml:"line"`
}

type PwmChannel struct {
	Chip    int `yaml:"chip"`
	Channel int `yaml:"channel"`
}

type Board struct {
	Latch       LatchPins          `yaml:"latch"`
	Gpio        map[int]GpioLine   `yaml:"gpio"`
	Pwm         map[int]PwmChannel `yaml:"pwm"`
	PwmPeriodNs int                `yaml:"pwm_period_ns"`
	SettleUs    int                `yaml:"settle_us"`
	Watchdog    time.Duration      `yaml:"watchdog"`
}

// rawBoard mirrors Board with pointers so fields present in the file can be
// told apart from absent ones, zero values included.
type rawBoard struct {
	Latch       *rawLatchPins      `yaml:"latch"`
	Gpio        map[int]GpioLine   `yaml:"gpio"`
	Pwm         map[int]PwmChannel `yaml:"pwm"`
	PwmPeriodNs *int               `yaml:"pwm_period_ns"`
	SettleUs    *int               `yaml:"settle_us"`
	Watchdog    *time.Duration     `yaml:"watchdog"`
}

type rawLatchPins struct {
	Data   *int `yaml:"data"`
	Clock  *int `yaml:"clock"`
	Latch  *int `yaml:"latch"`
	Enable *int `yaml:"enable"`
}

type Config struct {
	Board     Board
	RedisHost string
	RedisPort int
	LogLevel  string
}

// DefaultBoard describes the shield as wired in the hardware package.
func DefaultBoard() Board {
	b := Board{
		Latch: LatchPins{
			Data:   hardware.LatchDataPin,
			Clock:  hardware.LatchClockPin,
			Latch:  hardware.LatchStrobePin,
			Enable: hardware.LatchEnablePin,
		},
		Gpio:        make(map[int]GpioLine),
		Pwm:         make(map[int]PwmChannel),
		PwmPeriodNs: hardware.DefaultPwmPeriodNs,
		SettleUs:    hardware.DefaultSettleMicros,
		Watchdog:    2 * time.Second,
	}
	for pin, m := range hardware.DoMappings {
		b.Gpio[pin] = GpioLine{Chip: m.Chip, Line: m.Line}
	}
	for pin, m := range hardware.PwmMappings {
		b.Pwm[pin] = PwmChannel{Chip: m.Chip, Channel: m.Channel}
	}
	return b
}

// Load reads the environment, then the board file it points at. A missing
// board file at the default location falls back to DefaultBoard.
func Load() (*Config, error) {
	var e EnvConfig
	if err := env.Parse(&e); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	board := DefaultBoard()
	data, err := os.ReadFile(e.ConfigPath)
	switch {
	case err == nil:
		board, err = ParseBoard(data)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", e.ConfigPath, err)
		}
	case os.IsNotExist(err) && e.ConfigPath == DefaultPath:
	default:
		return nil, fmt.Errorf("failed to read board file: %w", err)
	}

	if e.Watchdog != "" {
		d, err := time.ParseDuration(e.Watchdog)
		if err != nil {
			return nil, fmt.Errorf("invalid SHIELD_WATCHDOG: %w", err)
		}
		board.Watchdog = d
	}

	if err := board.Validate(); err != nil {
		return nil, err
	}

	return &Config{
		Board:     board,
		RedisHost: e.RedisHost,
		RedisPort: e.RedisPort,
		LogLevel:  e.LogLevel,
	}, nil
}

// ParseBoard decodes a board file on top of the defaults. Scalars and latch
// pins given in the file override their default one by one; a mapping section
// replaces the default mapping entirely.
func ParseBoard(data []byte) (Board, error) {
	b := DefaultBoard()
	var raw rawBoard
	if err := yaml.UnmarshalStrict(data, &raw); err != nil {
		return Board{}, err
	}

	if raw.Latch != nil {
		setInt(&b.Latch.Data, raw.Latch.Data)
		setInt(&b.Latch.Clock, raw.Latch.Clock)
		setInt(&b.Latch.Latch, raw.Latch.Latch)
		setInt(&b.Latch.Enable, raw.Latch.Enable)
	}
	if len(raw.Gpio) > 0 {
		b.Gpio = raw.Gpio
	}
	if len(raw.Pwm) > 0 {
		b.Pwm = raw.Pwm
	}
	setInt(&b.PwmPeriodNs, raw.PwmPeriodNs)
	setInt(&b.SettleUs, raw.SettleUs)
	if raw.Watchdog != nil {
		b.Watchdog = *raw.Watchdog
	}
	return b, nil
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

// Validate checks that every pin the driver touches is mapped.
func (b Board) Validate() error {
	if b.SettleUs <= 0 {
		return fmt.Errorf("settle_us must be positive, got %d", b.SettleUs)
	}
	if !hardware.InRange(b.PwmPeriodNs, 1, 1000000000) {
		return fmt.Errorf("pwm_period_ns out of range: %d", b.PwmPeriodNs)
	}
	if b.Watchdog < 0 {
		return fmt.Errorf("watchdog must not be negative")
	}

	for name, pin := range map[string]int{
		"data":   b.Latch.Data,
		"clock":  b.Latch.Clock,
		"latch":  b.Latch.Latch,
		"enable": b.Latch.Enable,
	} {
		if _, ok := b.Gpio[pin]; !ok {
			return fmt.Errorf("latch %s pin %d has no gpio mapping", name, pin)
		}
	}
	for n, pin := range motor.PWMPins() {
		if _, ok := b.Pwm[pin]; !ok {
			return fmt.Errorf("motor %d enable pin %d has no pwm mapping", n, pin)
		}
	}
	for pin := range b.Pwm {
		if _, ok := b.Gpio[pin]; ok {
			return fmt.Errorf("pin %d is mapped as both gpio and pwm", pin)
		}
	}
	return nil
}

func (b Board) LatchPins() latch.Pins {
	return latch.Pins{
		Data:   b.Latch.Data,
		Clock:  b.Latch.Clock,
		Latch:  b.Latch.Latch,
		Enable: b.Latch.Enable,
	}
}

func (b Board) GpioMap() map[int]hardware.GpioLine {
	m := make(map[int]hardware.GpioLine, len(b.Gpio))
	for pin, l := range b.Gpio {
		m[pin] = hardware.GpioLine{Chip: l.Chip, Line: l.Line}
	}
	return m
}

func (b Board) PwmMap() map[int]hardware.PwmRef {
	m := make(map[int]hardware.PwmRef, len(b.Pwm))
	for pin, c := range b.Pwm {
		m[pin] = hardware.PwmRef{Chip: c.Chip, Channel: c.Channel}
	}
	return m
}

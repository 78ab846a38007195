package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

const testBoard = `
latch:
  data: 8
  clock: 4
  latch: 12
  enable: 7
gpio:
  4:  {chip: 2, line: 14}
  7:  {chip: 2, line: 17}
  8:  {chip: 2, line: 18}
  12: {chip: 2, line: 22}
pwm:
  11: {chip: 0, channel: 0}
  3:  {chip: 0, channel: 1}
  6:  {chip: 1, channel: 0}
  5:  {chip: 1, channel: 1}
pwm_period_ns: 50000
settle_us: 10
watchdog: 500ms
`

func writeBoard(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "board.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write board file: %v", err)
	}
	return path
}

func TestDefaultBoardIsValid(t *testing.T) {
	if err := DefaultBoard().Validate(); err != nil {
		t.Fatalf("Default board invalid: %v", err)
	}
}

func TestParseBoard(t *testing.T) {
	b, err := ParseBoard([]byte(testBoard))
	if err != nil {
		t.Fatalf("ParseBoard failed: %v", err)
	}
	if err := b.Validate(); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}

	if b.Gpio[12] != (GpioLine{Chip: 2, Line: 22}) {
		t.Errorf("Unexpected latch line mapping: %+v", b.Gpio[12])
	}
	if b.Pwm[6] != (PwmChannel{Chip: 1, Channel: 0}) {
		t.Errorf("Unexpected PWM mapping: %+v", b.Pwm[6])
	}
	if b.PwmPeriodNs != 50000 || b.SettleUs != 10 {
		t.Errorf("Unexpected timing: period=%d settle=%d", b.PwmPeriodNs, b.SettleUs)
	}
	if b.Watchdog != 500*time.Millisecond {
		t.Errorf("Expected 500ms watchdog, got %v", b.Watchdog)
	}

	pins := b.LatchPins()
	if pins.Data != 8 || pins.Clock != 4 || pins.Latch != 12 || pins.Enable != 7 {
		t.Errorf("Unexpected latch pins: %+v", pins)
	}
	if got := b.GpioMap()[4]; got.Chip != 2 || got.Line != 14 {
		t.Errorf("Unexpected converted gpio map entry: %+v", got)
	}
	if got := b.PwmMap()[5]; got.Chip != 1 || got.Channel != 1 {
		t.Errorf("Unexpected converted pwm map entry: %+v", got)
	}
}

func TestParseBoardKeepsDefaults(t *testing.T) {
	b, err := ParseBoard([]byte("settle_us: 8\n"))
	if err != nil {
		t.Fatalf("ParseBoard failed: %v", err)
	}
	def := DefaultBoard()
	if b.SettleUs != 8 {
		t.Errorf("Expected settle 8, got %d", b.SettleUs)
	}
	if len(b.Gpio) != len(def.Gpio) || len(b.Pwm) != len(def.Pwm) {
		t.Errorf("Default mappings lost")
	}
	if b.Watchdog != def.Watchdog {
		t.Errorf("Default watchdog lost: %v", b.Watchdog)
	}
}

func TestParseBoardZeroWatchdogDisables(t *testing.T) {
	b, err := ParseBoard([]byte("watchdog: 0s\n"))
	if err != nil {
		t.Fatalf("ParseBoard failed: %v", err)
	}
	if b.Watchdog != 0 {
		t.Errorf("Expected watchdog disabled, got %v", b.Watchdog)
	}
	if err := b.Validate(); err != nil {
		t.Errorf("Disabled watchdog rejected: %v", err)
	}
}

func TestParseBoardMergesLatchPins(t *testing.T) {
	b, err := ParseBoard([]byte("latch:\n  data: 9\ngpio:\n  4: {chip: 0, line: 4}\n  7: {chip: 0, line: 7}\n  9: {chip: 0, line: 9}\n  12: {chip: 0, line: 12}\n"))
	if err != nil {
		t.Fatalf("ParseBoard failed: %v", err)
	}
	def := DefaultBoard()
	want := LatchPins{Data: 9, Clock: def.Latch.Clock, Latch: def.Latch.Latch, Enable: def.Latch.Enable}
	if b.Latch != want {
		t.Errorf("Expected latch pins %+v, got %+v", want, b.Latch)
	}
	if err := b.Validate(); err != nil {
		t.Errorf("Merged board invalid: %v", err)
	}
}

func TestParseBoardRejectsUnknownKeys(t *testing.T) {
	if _, err := ParseBoard([]byte("stepper: true\n")); err == nil {
		t.Error("Expected error for unknown key")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(b *Board)
	}{
		{"zero settle", func(b *Board) { b.SettleUs = 0 }},
		{"negative settle", func(b *Board) { b.SettleUs = -5 }},
		{"zero period", func(b *Board) { b.PwmPeriodNs = 0 }},
		{"negative watchdog", func(b *Board) { b.Watchdog = -time.Second }},
		{"unmapped latch pin", func(b *Board) { delete(b.Gpio, 12) }},
		{"unmapped motor pin", func(b *Board) { delete(b.Pwm, 11) }},
		{"pin mapped twice", func(b *Board) { b.Gpio[11] = GpioLine{Chip: 0, Line: 11} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := DefaultBoard()
			tt.mutate(&b)
			if err := b.Validate(); err == nil {
				t.Error("Expected validation error")
			}
		})
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	path := writeBoard(t, testBoard)
	t.Setenv("SHIELD_CONFIG", path)
	t.Setenv("SHIELD_REDIS_HOST", "10.0.0.5")
	t.Setenv("SHIELD_REDIS_PORT", "6380")
	t.Setenv("SHIELD_LOG_LEVEL", "debug")
	t.Setenv("SHIELD_WATCHDOG", "3s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.RedisHost != "10.0.0.5" || cfg.RedisPort != 6380 {
		t.Errorf("Unexpected redis address %s:%d", cfg.RedisHost, cfg.RedisPort)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("Unexpected log level %q", cfg.LogLevel)
	}
	if cfg.Board.Watchdog != 3*time.Second {
		t.Errorf("Environment watchdog not applied: %v", cfg.Board.Watchdog)
	}
	if cfg.Board.SettleUs != 10 {
		t.Errorf("Board file not applied: settle=%d", cfg.Board.SettleUs)
	}
}

func TestLoadZeroWatchdog(t *testing.T) {
	t.Setenv("SHIELD_CONFIG", writeBoard(t, testBoard))
	t.Setenv("SHIELD_WATCHDOG", "0s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Board.Watchdog != 0 {
		t.Errorf("Expected watchdog disabled, got %v", cfg.Board.Watchdog)
	}
}

func TestLoadWatchdogFromBoardWhenEnvUnset(t *testing.T) {
	t.Setenv("SHIELD_CONFIG", writeBoard(t, testBoard))
	t.Setenv("SHIELD_WATCHDOG", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Board.Watchdog != 500*time.Millisecond {
		t.Errorf("Expected board watchdog 500ms, got %v", cfg.Board.Watchdog)
	}
}

func TestLoadInvalidWatchdog(t *testing.T) {
	t.Setenv("SHIELD_CONFIG", writeBoard(t, testBoard))
	t.Setenv("SHIELD_WATCHDOG", "soon")
	if _, err := Load(); err == nil {
		t.Error("Expected error for unparsable watchdog")
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	t.Setenv("SHIELD_CONFIG", filepath.Join(t.TempDir(), "missing.yaml"))
	if _, err := Load(); err == nil {
		t.Error("Expected error for missing board file")
	}
}

func TestLoadInvalidBoard(t *testing.T) {
	t.Setenv("SHIELD_CONFIG", writeBoard(t, "settle_us: -1\n"))
	if _, err := Load(); err == nil {
		t.Error("Expected validation error")
	}
}

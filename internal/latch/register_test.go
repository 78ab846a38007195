package latch

import (
	"errors"
	"sync"
	"testing"

	"motor-shield-service/internal/logger"
)

type busOp struct {
	kind  string // "shift", "write", "delay"
	pin   int
	high  bool
	value byte
	us    int
}

// Mock Bus
type mockBus struct {
	ops      []busOp
	shiftErr error
	latchErr error
	latchPin int
}

func (m *mockBus) DigitalWrite(pin int, high bool) error {
	if m.latchErr != nil && pin == m.latchPin {
		return m.latchErr
	}
	m.ops = append(m.ops, busOp{kind: "write", pin: pin, high: high})
	return nil
}

func (m *mockBus) ShiftOut(dataPin, clockPin int, value byte) error {
	if m.shiftErr != nil {
		return m.shiftErr
	}
	m.ops = append(m.ops, busOp{kind: "shift", pin: dataPin, value: value})
	return nil
}

func (m *mockBus) DelayMicroseconds(us int) {
	m.ops = append(m.ops, busOp{kind: "delay", us: us})
}

func (m *mockBus) shifted() []byte {
	var out []byte
	for _, op := range m.ops {
		if op.kind == "shift" {
			out = append(out, op.value)
		}
	}
	return out
}

var testPins = Pins{Data: 8, Clock: 4, Latch: 12, Enable: 7}

func newTestRegister() (*Register, *mockBus) {
	bus := &mockBus{latchPin: testPins.Latch}
	return New(bus, testPins, 5, logger.NewLogger(nil, logger.LogLevelError)), bus
}

func TestNewRegisterStartsAtZero(t *testing.T) {
	r, bus := newTestRegister()
	if r.Value() != 0 {
		t.Errorf("Expected zero shadow, got %08b", r.Value())
	}
	if len(bus.ops) != 0 {
		t.Errorf("Constructor touched the bus: %+v", bus.ops)
	}
}

func TestNewRegisterRejectsZeroSettle(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("Expected panic for zero settle delay")
		}
	}()
	New(&mockBus{}, testPins, 0, nil)
}

func TestInitDrivesPinsLow(t *testing.T) {
	r, bus := newTestRegister()
	if err := r.Init(); err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	seen := map[int]bool{}
	for _, op := range bus.ops {
		if op.kind != "write" || op.high {
			t.Errorf("Unexpected op during init: %+v", op)
		}
		seen[op.pin] = true
	}
	for _, pin := range []int{testPins.Data, testPins.Clock, testPins.Latch, testPins.Enable} {
		if !seen[pin] {
			t.Errorf("Pin %d was not driven low", pin)
		}
	}
	if r.Commits() != 0 {
		t.Errorf("Init must not commit, got %d commits", r.Commits())
	}
}

func TestCommitSequence(t *testing.T) {
	r, bus := newTestRegister()
	if err := r.WriteBit(7, true); err != nil {
		t.Fatalf("WriteBit failed: %v", err)
	}

	want := []busOp{
		{kind: "shift", pin: testPins.Data, value: 0x80},
		{kind: "delay", us: 5},
		{kind: "write", pin: testPins.Latch, high: true},
		{kind: "delay", us: 5},
		{kind: "write", pin: testPins.Latch, high: false},
	}
	if len(bus.ops) != len(want) {
		t.Fatalf("Expected %d ops, got %d: %+v", len(want), len(bus.ops), bus.ops)
	}
	for i := range want {
		if bus.ops[i] != want[i] {
			t.Errorf("op %d: expected %+v, got %+v", i, want[i], bus.ops[i])
		}
	}
}

func TestWriteBitSuppressesRedundantCommits(t *testing.T) {
	r, bus := newTestRegister()

	steps := []struct {
		pos     int
		value   bool
		commits uint64
	}{
		{2, false, 0}, // already low
		{2, true, 1},
		{2, true, 1},
		{5, true, 2},
		{2, false, 3},
		{2, false, 3},
	}
	for i, s := range steps {
		if err := r.WriteBit(s.pos, s.value); err != nil {
			t.Fatalf("step %d: WriteBit failed: %v", i, err)
		}
		if r.Commits() != s.commits {
			t.Errorf("step %d: expected %d commits, got %d", i, s.commits, r.Commits())
		}
	}

	if r.Value() != 0x20 {
		t.Errorf("Expected shadow 00100000, got %08b", r.Value())
	}
	got := bus.shifted()
	want := []byte{0x04, 0x24, 0x20}
	if len(got) != len(want) {
		t.Fatalf("Expected shifted bytes %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("shift %d: expected %08b, got %08b", i, want[i], got[i])
		}
	}
}

func TestWriteBitPair(t *testing.T) {
	r, bus := newTestRegister()

	if err := r.WriteBitPair(2, 3, 0x2); err != nil {
		t.Fatalf("WriteBitPair failed: %v", err)
	}
	if !r.Bit(2) || r.Bit(3) {
		t.Errorf("Expected bit2=1 bit3=0, got %08b", r.Value())
	}

	// flipping both bits is one transaction
	if err := r.WriteBitPair(2, 3, 0x1); err != nil {
		t.Fatalf("WriteBitPair failed: %v", err)
	}
	if r.Bit(2) || !r.Bit(3) {
		t.Errorf("Expected bit2=0 bit3=1, got %08b", r.Value())
	}
	if r.Commits() != 2 {
		t.Errorf("Expected 2 commits, got %d", r.Commits())
	}

	if err := r.WriteBitPair(2, 3, 0x1); err != nil {
		t.Fatalf("WriteBitPair failed: %v", err)
	}
	if r.Commits() != 2 {
		t.Errorf("Unchanged pair committed again, got %d commits", r.Commits())
	}

	for _, b := range bus.shifted() {
		if b&0x0C == 0x0C || b&0x0C == 0 {
			t.Errorf("Intermediate pair state latched: %08b", b)
		}
	}
}

func TestWriteBitPairIgnoresUpperBits(t *testing.T) {
	r, _ := newTestRegister()
	if err := r.WriteBitPair(0, 6, 0xFD); err != nil {
		t.Fatalf("WriteBitPair failed: %v", err)
	}
	if r.Value() != 0x40 {
		t.Errorf("Expected only bit 6 set, got %08b", r.Value())
	}
}

func TestReset(t *testing.T) {
	r, bus := newTestRegister()

	if err := r.Reset(); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}
	if r.Commits() != 1 {
		t.Errorf("Reset must always commit, got %d commits", r.Commits())
	}

	r.WriteBit(1, true)
	r.Reset()
	if r.Value() != 0 {
		t.Errorf("Expected zero after reset, got %08b", r.Value())
	}
	if got := bus.shifted(); len(got) != 3 || got[2] != 0 {
		t.Errorf("Unexpected shift history %v", got)
	}
}

func TestOutOfRangePositionPanics(t *testing.T) {
	for _, pos := range []int{-1, 8, 100} {
		func() {
			r, bus := newTestRegister()
			defer func() {
				if recover() == nil {
					t.Errorf("Expected panic for position %d", pos)
				}
				if len(bus.ops) != 0 {
					t.Errorf("Bus touched for position %d", pos)
				}
			}()
			r.WriteBit(pos, true)
		}()
	}
}

func TestFailedCommitKeepsShadow(t *testing.T) {
	r, bus := newTestRegister()
	bus.shiftErr = errors.New("gpio busy")

	if err := r.WriteBit(3, true); err == nil {
		t.Fatal("Expected error from failed shift")
	}
	if r.Value() != 0 || r.Commits() != 0 {
		t.Errorf("Shadow changed after failed commit: %08b", r.Value())
	}

	// the same write is retried once the bus recovers
	bus.shiftErr = nil
	if err := r.WriteBit(3, true); err != nil {
		t.Fatalf("WriteBit failed: %v", err)
	}
	if r.Value() != 0x08 {
		t.Errorf("Expected 00001000, got %08b", r.Value())
	}
}

func TestFailedLatchPulse(t *testing.T) {
	r, bus := newTestRegister()
	bus.latchErr = errors.New("line released")

	if err := r.WriteBitPair(5, 7, 0x3); err == nil {
		t.Fatal("Expected error from failed latch pulse")
	}
	if r.Value() != 0 {
		t.Errorf("Shadow changed after failed latch pulse: %08b", r.Value())
	}
}

func TestConcurrentWritesAreNotLost(t *testing.T) {
	r, _ := newTestRegister()

	var wg sync.WaitGroup
	for pos := 0; pos < Bits; pos++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				r.WriteBit(p, true)
				r.WriteBit(p, false)
			}
			r.WriteBit(p, true)
		}(pos)
	}
	wg.Wait()

	if r.Value() != 0xFF {
		t.Errorf("Expected all bits set, got %08b", r.Value())
	}
}

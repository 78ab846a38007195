// Package latch keeps the shadow copy of the shield's 74HC595 shift
// register and pushes it onto the bus when, and only when, it changes.
package latch

import (
	"fmt"
	"sync"

	"motor-shield-service/internal/logger"
)

// Bits is the width of the register.
const Bits = 8

// Bus is the pin-level capability the register shifts its byte over.
type Bus interface {
	DigitalWrite(pin int, high bool) error
	ShiftOut(dataPin, clockPin int, value byte) error
	DelayMicroseconds(us int)
}

// Pins names the header pins wired to the shift register.
type Pins struct {
	Data   int // DS
	Clock  int // SHCP
	Latch  int // STCP
	Enable int // ~OE
}

// Register is the single owner of the latch state. The zero shadow value
// means all outputs low.
type Register struct {
	mu       sync.Mutex
	bus      Bus
	pins     Pins
	settleUs int
	shadow   byte
	commits  uint64
	logger   *logger.Logger
}

// New returns a register with a zero shadow. settleUs is the delay inserted
// on each side of the latch pulse and must be positive.
func New(bus Bus, pins Pins, settleUs int, l *logger.Logger) *Register {
	if settleUs <= 0 {
		panic(fmt.Sprintf("latch: settle delay must be positive, got %d", settleUs))
	}
	return &Register{
		bus:      bus,
		pins:     pins,
		settleUs: settleUs,
		logger:   l,
	}
}

// Init drives data, clock and latch low and pulls ~OE low so the parallel
// outputs follow the storage register.
func (r *Register) Init() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, pin := range []int{r.pins.Data, r.pins.Latch, r.pins.Clock, r.pins.Enable} {
		if err := r.bus.DigitalWrite(pin, false); err != nil {
			return fmt.Errorf("failed to initialise latch pin %d: %w", pin, err)
		}
	}
	return nil
}

// Reset unconditionally latches zero.
func (r *Register) Reset() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.commit(0)
}

// WriteBit sets a single output. Nothing reaches the bus unless the shadow
// value changes.
func (r *Register) WriteBit(position int, value bool) error {
	checkPosition(position)

	r.mu.Lock()
	defer r.mu.Unlock()

	next := setBit(r.shadow, position, value)
	if next == r.shadow {
		return nil
	}
	return r.commit(next)
}

// WriteBitPair replaces two outputs at once from a two-bit value: bit 1 goes
// to high, bit 0 to low. Both land in the same commit, so no intermediate
// combination is ever latched.
func (r *Register) WriteBitPair(high, low int, value uint8) error {
	checkPosition(high)
	checkPosition(low)

	r.mu.Lock()
	defer r.mu.Unlock()

	next := setBit(r.shadow, high, value&0x2 != 0)
	next = setBit(next, low, value&0x1 != 0)
	if next == r.shadow {
		return nil
	}
	return r.commit(next)
}

// Value returns the last latched byte.
func (r *Register) Value() byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.shadow
}

// Bit reports the latched state of one output.
func (r *Register) Bit(position int) bool {
	checkPosition(position)
	return r.Value()&(1<<uint(position)) != 0
}

// Commits returns how many bus transactions have completed.
func (r *Register) Commits() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.commits
}

// commit is the only path to the bus. Callers hold r.mu. The shadow is only
// updated once the byte has been latched.
func (r *Register) commit(value byte) error {
	if err := r.bus.ShiftOut(r.pins.Data, r.pins.Clock, value); err != nil {
		return fmt.Errorf("failed to shift out latch byte %#02x: %w", value, err)
	}

	r.bus.DelayMicroseconds(r.settleUs)
	if err := r.bus.DigitalWrite(r.pins.Latch, true); err != nil {
		return fmt.Errorf("failed to raise latch: %w", err)
	}
	r.bus.DelayMicroseconds(r.settleUs)
	if err := r.bus.DigitalWrite(r.pins.Latch, false); err != nil {
		return fmt.Errorf("failed to lower latch: %w", err)
	}

	r.logger.Debugf("Latched %08b (was %08b)", value, r.shadow)
	r.shadow = value
	r.commits++
	return nil
}

func setBit(b byte, position int, value bool) byte {
	if value {
		return b | 1<<uint(position)
	}
	return b &^ (1 << uint(position))
}

func checkPosition(position int) {
	if position < 0 || position >= Bits {
		panic(fmt.Sprintf("latch: bit position %d out of range", position))
	}
}

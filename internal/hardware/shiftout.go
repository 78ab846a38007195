package hardware

import (
	"fmt"
	"time"
)

// DigitalWriter sets a header pin high or low.
type DigitalWriter interface {
	DigitalWrite(pin int, high bool) error
}

// ShiftOutMSBFirst clocks value out on dataPin, most significant bit first,
// with one rising clock edge per bit. The clock is left low.
func ShiftOutMSBFirst(w DigitalWriter, dataPin, clockPin int, value byte) error {
	for i := 7; i >= 0; i-- {
		if err := w.DigitalWrite(dataPin, value&(1<<uint(i)) != 0); err != nil {
			return fmt.Errorf("failed to write data bit %d: %w", i, err)
		}
		if err := w.DigitalWrite(clockPin, true); err != nil {
			return fmt.Errorf("failed to raise clock: %w", err)
		}
		if err := w.DigitalWrite(clockPin, false); err != nil {
			return fmt.Errorf("failed to lower clock: %w", err)
		}
	}
	return nil
}

// DelayMicroseconds spins until us microseconds have passed. time.Sleep is
// far too coarse for latch settle times.
func DelayMicroseconds(us int) {
	if us <= 0 {
		return
	}
	deadline := time.Now().Add(time.Duration(us) * time.Microsecond)
	for time.Now().Before(deadline) {
	}
}

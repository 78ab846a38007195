package hardware

import (
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sys/unix"
)

// pwmChannel is a sysfs PWM output. duty_cycle and enable stay open for the
// lifetime of the channel so speed updates are a single pwrite.
type pwmChannel struct {
	ref      PwmRef
	dir      string
	periodNs int
	dutyFd   int
	enableFd int
	lock     sync.Mutex
}

func openPwmChannel(ref PwmRef, periodNs int) (*pwmChannel, error) {
	chipDir := fmt.Sprintf("%s/pwmchip%d", PwmSysfsDir, ref.Chip)
	if _, err := os.Stat(chipDir); os.IsNotExist(err) {
		return nil, fmt.Errorf("PWM chip not found: %s", chipDir)
	}

	dir := fmt.Sprintf("%s/pwm%d", chipDir, ref.Channel)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := writeSysfs(chipDir+"/export", strconv.Itoa(ref.Channel)); err != nil {
			return nil, fmt.Errorf("failed to export PWM channel %d: %w", ref.Channel, err)
		}
		// udev needs a moment to apply permissions to the new attributes
		time.Sleep(50 * time.Millisecond)
	}

	// duty_cycle may never exceed the period, clear it first
	if err := writeSysfs(dir+"/duty_cycle", "0"); err != nil {
		return nil, err
	}
	if err := writeSysfs(dir+"/period", strconv.Itoa(periodNs)); err != nil {
		return nil, err
	}

	dutyFd, err := unix.Open(dir+"/duty_cycle", unix.O_WRONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to open duty_cycle of %s: %w", dir, err)
	}
	enableFd, err := unix.Open(dir+"/enable", unix.O_WRONLY, 0)
	if err != nil {
		unix.Close(dutyFd)
		return nil, fmt.Errorf("failed to open enable of %s: %w", dir, err)
	}

	ch := &pwmChannel{
		ref:      ref,
		dir:      dir,
		periodNs: periodNs,
		dutyFd:   dutyFd,
		enableFd: enableFd,
	}
	if err := ch.setActive(true); err != nil {
		ch.Close()
		return nil, err
	}
	return ch, nil
}

// dutyToNs scales an 8-bit duty cycle onto the channel period.
func dutyToNs(duty uint8, periodNs int) int {
	return periodNs * int(duty) / MaxDuty
}

func (p *pwmChannel) SetDuty(duty uint8) error {
	return p.writeDutyNs(dutyToNs(duty, p.periodNs))
}

// SetLevel drives the channel as a digital output: fully on or fully off.
func (p *pwmChannel) SetLevel(high bool) error {
	if high {
		return p.writeDutyNs(p.periodNs)
	}
	return p.writeDutyNs(0)
}

func (p *pwmChannel) writeDutyNs(ns int) error {
	p.lock.Lock()
	defer p.lock.Unlock()

	if _, err := unix.Pwrite(p.dutyFd, []byte(strconv.Itoa(ns)), 0); err != nil {
		return fmt.Errorf("failed to set duty cycle on %s: %w", p.dir, err)
	}
	return nil
}

func (p *pwmChannel) setActive(active bool) error {
	p.lock.Lock()
	defer p.lock.Unlock()

	value := "0"
	if active {
		value = "1"
	}
	if _, err := unix.Pwrite(p.enableFd, []byte(value), 0); err != nil {
		return fmt.Errorf("failed to set active state on %s: %v", p.dir, err)
	}
	return nil
}

func (p *pwmChannel) Close() {
	p.writeDutyNs(0)
	p.setActive(false)
	unix.Close(p.dutyFd)
	unix.Close(p.enableFd)
}

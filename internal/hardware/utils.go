package hardware

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// writeSysfs writes a single attribute value.
func writeSysfs(path, value string) error {
	fd, err := unix.Open(path, unix.O_WRONLY, 0)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer unix.Close(fd)

	if _, err := unix.Write(fd, []byte(value)); err != nil {
		return fmt.Errorf("failed writing %q to %s: %w", value, path, err)
	}
	return nil
}

func InRange(v, min, max int) bool {
	return v >= min && v <= max
}

package camconfig

import (
	"path/filepath"

	"air-firmware/pkg/platform"
)

// FragmentPath returns the file holding the config.txt lines for c.
// mmal is the same on every board, the others differ between the RPi 4 class
// and older boards.
func FragmentPath(dir string, p platform.Platform, c CamConfig) string {
	if c == MMAL {
		return filepath.Join(dir, "rpi_"+c.String()+".txt")
	}
	if p.IsRPi4Class() {
		return filepath.Join(dir, "rpi_4_"+c.String()+".txt")
	}
	return filepath.Join(dir, "rpi_3_"+c.String()+".txt")
}

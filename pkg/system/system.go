// Package system runs host commands on behalf of the firmware.
package system

import (
	"fmt"
	"os/exec"
	"strings"

	"air-firmware/pkg/logger"
)

// Runner executes a command and returns its combined output
type Runner interface {
	Run(name string, args ...string) (string, error)
}

type ExecRunner struct{}

func (ExecRunner) Run(name string, args ...string) (string, error) {
	output, err := exec.Command(name, args...).CombinedOutput()
	if err != nil {
		return string(output), fmt.Errorf("%s %s: %w (output: %s)", name, strings.Join(args, " "), err, strings.TrimSpace(string(output)))
	}
	return string(output), nil
}

// Rebooter requests a host reboot. Callers do not wait for an acknowledgment.
type Rebooter interface {
	Reboot()
}

// SystemdRebooter starts the reboot target through systemctl
type SystemdRebooter struct {
	Runner Runner
}

func (r SystemdRebooter) Reboot() {
	log := logger.Named("system")
	runner := r.Runner
	if runner == nil {
		runner = ExecRunner{}
	}
	log.Warn("Requesting reboot")
	if _, err := runner.Run("systemctl", "start", "reboot.target"); err != nil {
		log.Errorf("Failed to reboot: %v", err)
	}
}

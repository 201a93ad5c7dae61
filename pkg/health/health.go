// Package health reports resource usage of the air unit.
package health

import (
	"fmt"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"

	"air-firmware/pkg/globals"
)

type Report struct {
	FirmwareVersion   string  `json:"firmwareVersion"`
	CPUPercent        float64 `json:"cpuPercent"`
	MemoryUsedPercent float64 `json:"memoryUsedPercent"`
	MemoryTotalBytes  uint64  `json:"memoryTotalBytes"`
	UptimeSeconds     uint64  `json:"uptimeSeconds"`
}

// Collect samples cpu usage since the previous call, so the first call
// after start may report 0
func Collect() (Report, error) {
	r := Report{FirmwareVersion: globals.FirmwareVersion}

	percents, err := cpu.Percent(0, false)
	if err != nil {
		return r, fmt.Errorf("failed to read cpu usage: %w", err)
	}
	if len(percents) > 0 {
		r.CPUPercent = percents[0]
	}

	vm, err := mem.VirtualMemory()
	if err != nil {
		return r, fmt.Errorf("failed to read memory usage: %w", err)
	}
	r.MemoryUsedPercent = vm.UsedPercent
	r.MemoryTotalBytes = vm.Total

	uptime, err := host.Uptime()
	if err != nil {
		return r, fmt.Errorf("failed to read uptime: %w", err)
	}
	r.UptimeSeconds = uptime
	return r, nil
}

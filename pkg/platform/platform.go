// Package platform identifies the host the firmware runs on.
package platform

import (
	"fmt"
	"strings"

	"github.com/shirou/gopsutil/v3/host"
	"github.com/spf13/afero"

	"air-firmware/pkg/globals"
)

type PlatformType int

const (
	PlatformUnknown PlatformType = iota
	PlatformX86
	PlatformRaspberryPi
	PlatformJetson
	PlatformRockchip
)

func (p PlatformType) String() string {
	switch p {
	case PlatformX86:
		return "x86"
	case PlatformRaspberryPi:
		return "rpi"
	case PlatformJetson:
		return "jetson"
	case PlatformRockchip:
		return "rockchip"
	default:
		return "unknown"
	}
}

type BoardType int

const (
	BoardUnknown BoardType = iota
	BoardGenericX86
	BoardRaspberryPiZero
	BoardRaspberryPi2B
	BoardRaspberryPi3A
	BoardRaspberryPi3B
	BoardRaspberryPiCM3
	BoardRaspberryPi4B
	BoardRaspberryPiCM4
	BoardJetsonNano
)

var boardNames = map[BoardType]string{
	BoardUnknown:         "unknown",
	BoardGenericX86:      "x86",
	BoardRaspberryPiZero: "rpi_zero",
	BoardRaspberryPi2B:   "rpi_2b",
	BoardRaspberryPi3A:   "rpi_3a",
	BoardRaspberryPi3B:   "rpi_3b",
	BoardRaspberryPiCM3:  "rpi_cm3",
	BoardRaspberryPi4B:   "rpi_4b",
	BoardRaspberryPiCM4:  "rpi_cm4",
	BoardJetsonNano:      "jetson_nano",
}

func (b BoardType) String() string {
	if name, ok := boardNames[b]; ok {
		return name
	}
	return "unknown"
}

// ParseBoard is the inverse of BoardType.String
func ParseBoard(name string) (BoardType, error) {
	for b, n := range boardNames {
		if n == name {
			return b, nil
		}
	}
	return BoardUnknown, fmt.Errorf("unknown board %q", name)
}

type Platform struct {
	Type  PlatformType `json:"platform"`
	Board BoardType    `json:"board"`
}

func (p Platform) String() string {
	return fmt.Sprintf("%s/%s", p.Type, p.Board)
}

// IsRPi4Class reports whether the newer, faster Raspberry Pi generation is used.
// Camera fragments differ between it and the older boards.
func (p Platform) IsRPi4Class() bool {
	return p.Board == BoardRaspberryPi4B || p.Board == BoardRaspberryPiCM4
}

// KernelSupportsExtraChannels is true on our own images, which ship a kernel
// patched to allow channels outside the regulatory domain.
func (p Platform) KernelSupportsExtraChannels() bool {
	return p.Type == PlatformRaspberryPi || p.Type == PlatformJetson
}

// boards by device tree model prefix, most specific first
var rpiModels = []struct {
	prefix string
	board  BoardType
}{
	{"Raspberry Pi Compute Module 4", BoardRaspberryPiCM4},
	{"Raspberry Pi 4 Model B", BoardRaspberryPi4B},
	{"Raspberry Pi Compute Module 3", BoardRaspberryPiCM3},
	{"Raspberry Pi 3 Model A", BoardRaspberryPi3A},
	{"Raspberry Pi 3 Model B", BoardRaspberryPi3B},
	{"Raspberry Pi 2 Model B", BoardRaspberryPi2B},
	{"Raspberry Pi Zero", BoardRaspberryPiZero},
}

// FromModel maps a device tree model string to a platform
func FromModel(model string) Platform {
	model = strings.TrimRight(strings.TrimSpace(model), "\x00")
	for _, m := range rpiModels {
		if strings.HasPrefix(model, m.prefix) {
			return Platform{Type: PlatformRaspberryPi, Board: m.board}
		}
	}
	switch {
	case strings.HasPrefix(model, "Raspberry Pi"):
		return Platform{Type: PlatformRaspberryPi, Board: BoardUnknown}
	case strings.Contains(model, "Jetson Nano"):
		return Platform{Type: PlatformJetson, Board: BoardJetsonNano}
	case strings.Contains(model, "Jetson"):
		return Platform{Type: PlatformJetson, Board: BoardUnknown}
	case strings.Contains(strings.ToLower(model), "rockchip"):
		return Platform{Type: PlatformRockchip, Board: BoardUnknown}
	}
	return Platform{}
}

// Detect identifies the host. The device tree model wins; Jetson images are
// also recognised by their release file and anything else by kernel arch.
func Detect(fs afero.Fs) Platform {
	if data, err := afero.ReadFile(fs, globals.DeviceTreeModelPath); err == nil {
		if p := FromModel(string(data)); p.Type != PlatformUnknown {
			return p
		}
	}
	if ok, _ := afero.Exists(fs, globals.TegraReleasePath); ok {
		return Platform{Type: PlatformJetson, Board: BoardUnknown}
	}
	return fromKernelArch(kernelArch())
}

var kernelArch = func() string {
	info, err := host.Info()
	if err != nil {
		return ""
	}
	return info.KernelArch
}

func fromKernelArch(arch string) Platform {
	switch arch {
	case "x86_64", "amd64", "i386", "i686":
		return Platform{Type: PlatformX86, Board: BoardGenericX86}
	}
	return Platform{}
}

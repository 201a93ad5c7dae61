// Package camconfig switches the camera stack the OS brings up at boot.
//
// Some cameras are auto-detected by the OS, others need explicit overlays, and
// the mmal and libcamera pipelines want different config.txt content. The part
// of config.txt below the dynamic content marker is owned by this package and
// replaced with a fragment for the selected camera on every change. The rest of
// the file stays editable by the user. A change only takes effect after a
// reboot, so at most one change is accepted per process lifetime.
package camconfig

import (
	"errors"
	"fmt"
)

// CamConfig is the camera configuration of the OS. The integer values are
// stored on disk and sent by the ground station and must never be reordered.
type CamConfig int

const (
	MMAL             CamConfig = iota // raspivid / gst-rpicamsrc
	Libcamera                         // libcamera with autodetect
	LibcameraIMX477                   // libcamera, imx477 detection only
	LibcameraArducam                  // arducam pivariety
	LibcameraIMX519                   // arducam imx519 without autofocus
	Veye327                           // veye imx290/imx327, older versions
	VeyeCSIMX307
	VeyeCSSC132
	VeyeMVCam
	VeyeCam2M // veye imx327, newer versions

	numCamConfigs = iota
)

// Default is what the image ships with
const Default = MMAL

var ErrInvalidCamConfig = errors.New("invalid camera configuration")

var names = [numCamConfigs]string{
	MMAL:             "mmal",
	Libcamera:        "libcamera",
	LibcameraIMX477:  "libcamera_imx477",
	LibcameraArducam: "libcamera_arducam",
	LibcameraIMX519:  "libcamera_imx519",
	Veye327:          "veye_327",
	VeyeCSIMX307:     "veye_csimx307",
	VeyeCSSC132:      "veye_cssc132",
	VeyeMVCam:        "veye_mvcam",
	VeyeCam2M:        "veye_cam2m",
}

func (c CamConfig) Valid() bool {
	return c >= 0 && c < numCamConfigs
}

func (c CamConfig) String() string {
	if !c.Valid() {
		return fmt.Sprintf("CamConfig(%d)", int(c))
	}
	return names[c]
}

// FromInt converts an integer received from outside; out of range values are
// rejected, never mapped to a default.
func FromInt(v int) (CamConfig, error) {
	c := CamConfig(v)
	if !c.Valid() {
		return Default, fmt.Errorf("%w: %d", ErrInvalidCamConfig, v)
	}
	return c, nil
}

func ParseName(name string) (CamConfig, error) {
	for i, n := range names {
		if n == name {
			return CamConfig(i), nil
		}
	}
	return Default, fmt.Errorf("%w: %q", ErrInvalidCamConfig, name)
}

// All lists every configuration in integer order
func All() []CamConfig {
	all := make([]CamConfig, numCamConfigs)
	for i := range all {
		all[i] = CamConfig(i)
	}
	return all
}

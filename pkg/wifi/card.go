package wifi

import (
	"encoding/json"
	"fmt"
)

// WiFiCardType is the chipset family, derived from the driver in use
type WiFiCardType int

const (
	Unknown WiFiCardType = iota
	Realtek8812au
	Realtek8814au
	Realtek88x2bu
	Realtek8188eu
	Atheros9khtc
	Atheros9k
	Ralink
	Intel
	Broadcom

	numCardTypes = iota
)

var cardTypeNames = [numCardTypes]string{
	Unknown:       "unknown",
	Realtek8812au: "Realtek8812au",
	Realtek8814au: "Realtek8814au",
	Realtek88x2bu: "Realtek88x2bu",
	Realtek8188eu: "Realtek8188eu",
	Atheros9khtc:  "Atheros9khtc",
	Atheros9k:     "Atheros9k",
	Ralink:        "Ralink",
	Intel:         "Intel",
	Broadcom:      "Broadcom",
}

func (t WiFiCardType) String() string {
	if t < 0 || t >= numCardTypes {
		return "unknown"
	}
	return cardTypeNames[t]
}

// WiFiCardTypeFromInt rejects values outside the known chipset families
func WiFiCardTypeFromInt(v int) (WiFiCardType, error) {
	if v < 0 || v >= numCardTypes {
		return Unknown, fmt.Errorf("invalid wifi card type %d", v)
	}
	return WiFiCardType(v), nil
}

// MarshalJSON writes the chipset name, Unknown becomes null
func (t WiFiCardType) MarshalJSON() ([]byte, error) {
	if t == Unknown || t < 0 || t >= numCardTypes {
		return []byte("null"), nil
	}
	return json.Marshal(cardTypeNames[t])
}

func (t *WiFiCardType) UnmarshalJSON(data []byte) error {
	var name *string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	if name == nil {
		*t = Unknown
		return nil
	}
	for i, n := range cardTypeNames {
		if WiFiCardType(i) != Unknown && n == *name {
			*t = WiFiCardType(i)
			return nil
		}
	}
	*t = Unknown
	return nil
}

// WifiUseFor is what a detected card is used for
type WifiUseFor int

const (
	UseForUnknown WifiUseFor = iota
	UseForMonitorMode
	UseForHotspot
)

func (u WifiUseFor) String() string {
	switch u {
	case UseForMonitorMode:
		return "monitor_mode"
	case UseForHotspot:
		return "hotspot"
	default:
		return "unknown"
	}
}

// WiFiCard describes a detected card. It holds capabilities only, nothing
// here is a setting.
type WiFiCard struct {
	// all (slightly different) identifiers of a card on linux
	DeviceName string
	MAC        string
	// phy0, phy1, ... for iw commands that don't take the device name
	PhyIndex   int
	DriverName string

	Type WiFiCardType

	Supports2GHz        bool
	Supports5GHz        bool
	SupportsInjection   bool
	SupportsHotspot     bool
	SupportsRTS         bool
	SupportsMonitorMode bool
}

// UseFor is the role a card takes: the wireless link if it can do monitor
// mode, otherwise a hotspot if it can run an access point.
func (c WiFiCard) UseFor() WifiUseFor {
	switch {
	case c.SupportsMonitorMode:
		return UseForMonitorMode
	case c.SupportsHotspot:
		return UseForHotspot
	default:
		return UseForUnknown
	}
}

// SupportsVariableMCS is false only for the Atheros AR9271 family
func (c WiFiCard) SupportsVariableMCS() bool {
	return c.Type != Atheros9khtc && c.Type != Atheros9k
}

// Supports40MhzChannelWidth is only known to work (and discouraged) on the 8812au
func (c WiFiCard) Supports40MhzChannelWidth() bool {
	return c.Type == Realtek8812au
}

// SupportsExtraChannels2G reports channels below and above the standard
// 2.4 GHz band, AR9271 only
func (c WiFiCard) SupportsExtraChannels2G() bool {
	return c.Type == Atheros9khtc || c.Type == Atheros9k
}

package wifi

import (
	"air-firmware/pkg/logger"
	"air-firmware/pkg/platform"
)

// SupportsFrequency reports whether card may use freq on this platform.
func SupportsFrequency(p platform.Platform, card WiFiCard, freq uint32) bool {
	channel, ok := ChannelFromFrequency(freq)
	if !ok {
		logger.Named("wifi").Debugf("Unknown frequency %d", freq)
		return false
	}

	switch channel.Space {
	case Space2G4:
		if !card.Supports2GHz {
			return false
		}
		// needs both the patched kernel and an AR9271
		if !channel.IsStandard && !(p.KernelSupportsExtraChannels() && card.SupportsExtraChannels2G()) {
			return false
		}
	case Space5G8:
		if !card.Supports5GHz {
			return false
		}
		// no card is known to do the non-standard 5.8 GHz channels
		if !channel.IsStandard {
			return false
		}
	default:
		return false
	}
	return true
}

// SupportedFrequencies lists every known frequency the card may use
func SupportedFrequencies(p platform.Platform, card WiFiCard) []uint32 {
	var out []uint32
	for _, space := range []Space{Space2G4, Space5G8} {
		for _, c := range Channels(space) {
			if SupportsFrequency(p, card, c.Frequency) {
				out = append(out, c.Frequency)
			}
		}
	}
	return out
}

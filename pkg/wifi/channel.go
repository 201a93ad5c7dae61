package wifi

import "sort"

type Space int

const (
	Space2G4 Space = iota
	Space5G8
)

func (s Space) String() string {
	if s == Space5G8 {
		return "5.8G"
	}
	return "2.4G"
}

type Channel struct {
	Frequency uint32 `json:"frequency"`
	Number    int    `json:"number"`
	Space     Space  `json:"space"`
	// false for channels outside the default legal allocations
	IsStandard bool `json:"is_standard"`
}

var channels = buildChannels()

func buildChannels() map[uint32]Channel {
	m := make(map[uint32]Channel)
	add := func(freq uint32, space Space, standard bool) {
		var number int
		switch {
		case freq == 2484:
			number = 14
		case space == Space2G4 && freq > 2472:
			// above channel 13 the numbering continues after 14
			number = 15 + (int(freq)-2477)/5
		case space == Space2G4:
			number = (int(freq) - 2407) / 5
		default:
			number = (int(freq) - 5000) / 5
		}
		m[freq] = Channel{Frequency: freq, Number: number, Space: space, IsStandard: standard}
	}

	// below the 2.4 GHz band, only reachable with a patched kernel
	for f := uint32(2312); f <= 2407; f += 5 {
		add(f, Space2G4, false)
	}
	for f := uint32(2412); f <= 2472; f += 5 {
		add(f, Space2G4, true)
	}
	add(2484, Space2G4, true)
	// above the 2.4 GHz band
	for f := uint32(2477); f <= 2532; f += 5 {
		add(f, Space2G4, false)
	}

	for f := uint32(5180); f <= 5320; f += 20 {
		add(f, Space5G8, true)
	}
	for f := uint32(5500); f <= 5720; f += 20 {
		add(f, Space5G8, true)
	}
	for f := uint32(5745); f <= 5825; f += 20 {
		add(f, Space5G8, true)
	}
	for _, f := range []uint32{5845, 5865, 5885} {
		add(f, Space5G8, false)
	}
	return m
}

// ChannelFromFrequency looks up a frequency in MHz
func ChannelFromFrequency(freq uint32) (Channel, bool) {
	c, ok := channels[freq]
	return c, ok
}

// Channels lists all known channels of a space ordered by frequency
func Channels(space Space) []Channel {
	var out []Channel
	for _, c := range channels {
		if c.Space == space {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Frequency < out[j].Frequency })
	return out
}

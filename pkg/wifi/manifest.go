package wifi

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/afero"
)

// manifestCard is what other processes get to see about a card. Phy index,
// monitor mode support and the use are not part of it. Key names, including
// the band flags, are the ones existing manifest readers parse.
type manifestCard struct {
	DriverName        string       `json:"driver_name"`
	Type              WiFiCardType `json:"type"`
	DeviceName        string       `json:"device_name"`
	MAC               string       `json:"mac"`
	Supports5GHz      bool         `json:"xx_supports_5ghz"`
	Supports2GHz      bool         `json:"xx_supports_2ghz"`
	SupportsInjection bool         `json:"supports_injection"`
	SupportsHotspot   bool         `json:"supports_hotspot"`
	SupportsRTS       bool         `json:"supports_rts"`
}

func toManifest(c WiFiCard) manifestCard {
	return manifestCard{
		DriverName:        c.DriverName,
		Type:              c.Type,
		DeviceName:        c.DeviceName,
		MAC:               c.MAC,
		Supports5GHz:      c.Supports5GHz,
		Supports2GHz:      c.Supports2GHz,
		SupportsInjection: c.SupportsInjection,
		SupportsHotspot:   c.SupportsHotspot,
		SupportsRTS:       c.SupportsRTS,
	}
}

// MarshalCards encodes cards the way the manifest stores them
func MarshalCards(cards []WiFiCard) ([]byte, error) {
	out := make([]manifestCard, 0, len(cards))
	for _, c := range cards {
		out = append(out, toManifest(c))
	}
	return json.MarshalIndent(out, "", "    ")
}

// WriteManifest overwrites the manifest at path with cards
func WriteManifest(fs afero.Fs, path string, cards []WiFiCard) error {
	data, err := MarshalCards(cards)
	if err != nil {
		return fmt.Errorf("failed to marshal wifi manifest: %w", err)
	}
	if err := afero.WriteFile(fs, path, data, 0644); err != nil {
		return fmt.Errorf("failed to write wifi manifest: %w", err)
	}
	return nil
}

// ReadManifest loads cards written by WriteManifest. Fields the manifest
// does not carry keep their zero value.
func ReadManifest(fs afero.Fs, path string) ([]WiFiCard, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read wifi manifest: %w", err)
	}
	var entries []manifestCard
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse wifi manifest: %w", err)
	}
	cards := make([]WiFiCard, 0, len(entries))
	for _, e := range entries {
		cards = append(cards, WiFiCard{
			DeviceName:        e.DeviceName,
			MAC:               e.MAC,
			PhyIndex:          -1,
			DriverName:        e.DriverName,
			Type:              e.Type,
			Supports2GHz:      e.Supports2GHz,
			Supports5GHz:      e.Supports5GHz,
			SupportsInjection: e.SupportsInjection,
			SupportsHotspot:   e.SupportsHotspot,
			SupportsRTS:       e.SupportsRTS,
		})
	}
	return cards, nil
}

// DebugCards summarises cards for a log line
func DebugCards(cards []WiFiCard) string {
	names := make([]string, 0, len(cards))
	for _, c := range cards {
		names = append(names, c.DeviceName)
	}
	return fmt.Sprintf("size:%d{%s}", len(cards), strings.Join(names, ","))
}

package wifi

import (
	"bufio"
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/afero"

	"air-firmware/pkg/globals"
	"air-firmware/pkg/logger"
	"air-firmware/pkg/system"
)

var cardsDetected = prometheus.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "wifi_cards_detected",
		Help: "Wifi cards found by the last discovery, by chipset family.",
	},
	[]string{"type"},
)

func init() {
	prometheus.MustRegister(cardsDetected)
}

// known drivers, matched on the DRIVER= line of the device uevent
var driverTypes = map[string]WiFiCardType{
	"rtl88xxau":     Realtek8812au,
	"rtl88XXau":     Realtek8812au,
	"rtl8812au":     Realtek8812au,
	"88XXau":        Realtek8812au,
	"rtl8814au":     Realtek8814au,
	"8814au":        Realtek8814au,
	"rtl88x2bu":     Realtek88x2bu,
	"88x2bu":        Realtek88x2bu,
	"rtl8188eu":     Realtek8188eu,
	"r8188eu":       Realtek8188eu,
	"8188eu":        Realtek8188eu,
	"ath9k_htc":     Atheros9khtc,
	"ath9k":         Atheros9k,
	"rt2800usb":     Ralink,
	"iwlwifi":       Intel,
	"brcmfmac":      Broadcom,
	"brcmfmac_sdio": Broadcom,
}

// CardTypeForDriver maps a kernel driver name to its chipset family
func CardTypeForDriver(driver string) WiFiCardType {
	if t, ok := driverTypes[driver]; ok {
		return t
	}
	return Unknown
}

// Discover finds wifi cards through sysfs and fills in capabilities from
// `iw phy <phy> info`. Interfaces that fail to probe are logged and skipped.
func Discover(fs afero.Fs, runner system.Runner) ([]WiFiCard, error) {
	log := logger.Named("wifi")

	entries, err := afero.ReadDir(fs, globals.SysClassNetDir)
	if err != nil {
		return nil, fmt.Errorf("failed to list network interfaces: %w", err)
	}

	var cards []WiFiCard
	for _, entry := range entries {
		name := entry.Name()
		dir := filepath.Join(globals.SysClassNetDir, name)
		if ok, _ := afero.Exists(fs, filepath.Join(dir, "phy80211")); !ok {
			continue
		}

		card, err := probe(fs, runner, dir, name)
		if err != nil {
			log.Warnf("Skipping wifi interface %s: %v", name, err)
			continue
		}
		log.Infof("Detected wifi card %s (%s, driver %s)", card.DeviceName, card.Type, card.DriverName)
		cards = append(cards, card)
	}

	sort.Slice(cards, func(i, j int) bool { return cards[i].DeviceName < cards[j].DeviceName })

	cardsDetected.Reset()
	for _, c := range cards {
		cardsDetected.WithLabelValues(c.Type.String()).Inc()
	}
	return cards, nil
}

func probe(fs afero.Fs, runner system.Runner, dir, name string) (WiFiCard, error) {
	card := WiFiCard{DeviceName: name, PhyIndex: -1}

	if data, err := afero.ReadFile(fs, filepath.Join(dir, "address")); err == nil {
		card.MAC = strings.TrimSpace(string(data))
	}

	uevent, err := afero.ReadFile(fs, filepath.Join(dir, "device", "uevent"))
	if err != nil {
		return card, fmt.Errorf("failed to read driver: %w", err)
	}
	card.DriverName = parseUeventDriver(string(uevent))
	card.Type = CardTypeForDriver(card.DriverName)

	data, err := afero.ReadFile(fs, filepath.Join(dir, "phy80211", "index"))
	if err != nil {
		return card, fmt.Errorf("failed to read phy index: %w", err)
	}
	card.PhyIndex, err = strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return card, fmt.Errorf("invalid phy index: %w", err)
	}

	output, err := runner.Run("iw", "phy", fmt.Sprintf("phy%d", card.PhyIndex), "info")
	if err != nil {
		return card, err
	}
	caps := parsePhyInfo(output)
	card.Supports2GHz = caps.band2G
	card.Supports5GHz = caps.band5G
	card.SupportsMonitorMode = caps.monitor
	card.SupportsHotspot = caps.ap

	// injection and RTS are chipset properties iw can't tell us about
	switch card.Type {
	case Realtek8812au, Realtek8814au, Realtek88x2bu, Atheros9khtc, Atheros9k:
		card.SupportsInjection = card.SupportsMonitorMode
		card.SupportsRTS = card.SupportsMonitorMode
	case Realtek8188eu, Ralink:
		card.SupportsInjection = card.SupportsMonitorMode
	}
	return card, nil
}

func parseUeventDriver(uevent string) string {
	scanner := bufio.NewScanner(strings.NewReader(uevent))
	for scanner.Scan() {
		if driver, ok := strings.CutPrefix(strings.TrimSpace(scanner.Text()), "DRIVER="); ok {
			return driver
		}
	}
	return ""
}

type phyCaps struct {
	band2G  bool
	band5G  bool
	monitor bool
	ap      bool
}

var (
	bandRe = regexp.MustCompile(`^Band (\d+):`)
	freqRe = regexp.MustCompile(`^\* (\d+)(?:\.\d+)? MHz`)
)

// parsePhyInfo reads bands from their listed frequencies (disabled ones
// excluded) and the supported interface modes.
func parsePhyInfo(output string) phyCaps {
	var caps phyCaps
	inModes := false

	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		raw := scanner.Text()
		line := strings.TrimSpace(raw)

		if bandRe.MatchString(line) {
			inModes = false
			continue
		}
		if strings.HasPrefix(line, "Supported interface modes:") {
			inModes = true
			continue
		}
		if inModes {
			if !strings.HasPrefix(line, "* ") {
				inModes = false
			} else {
				switch strings.TrimPrefix(line, "* ") {
				case "monitor":
					caps.monitor = true
				case "AP":
					caps.ap = true
				}
				continue
			}
		}

		m := freqRe.FindStringSubmatch(line)
		if m == nil || strings.Contains(line, "(disabled)") {
			continue
		}
		freq, _ := strconv.Atoi(m[1])
		switch {
		case freq >= 2300 && freq < 2600:
			caps.band2G = true
		case freq >= 5000 && freq < 6000:
			caps.band5G = true
		}
	}
	return caps
}

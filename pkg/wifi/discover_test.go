package wifi

import (
	"errors"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"air-firmware/pkg/globals"
)

const iwDualBand = `Wiphy phy1
	max # scan SSIDs: 4
	Supported Ciphers:
		* WEP40 (00-0f-ac:1)
	Supported interface modes:
		 * IBSS
		 * managed
		 * AP
		 * monitor
	Band 1:
		Frequencies:
			* 2412 MHz [1] (20.0 dBm)
			* 2484 MHz [14] (disabled)
	Band 2:
		Frequencies:
			* 5180.0 MHz [36] (23.0 dBm)
	Supported commands:
		 * new_interface
`

const iwSingleBand = `Wiphy phy0
	Supported interface modes:
		 * managed
	Band 1:
		Frequencies:
			* 2412 MHz [1] (20.0 dBm)
	Band 2:
		Frequencies:
			* 5180 MHz [36] (disabled)
`

type fakeRunner struct {
	outputs map[string]string
}

func (r fakeRunner) Run(name string, args ...string) (string, error) {
	key := name + " " + strings.Join(args, " ")
	if out, ok := r.outputs[key]; ok {
		return out, nil
	}
	return "", errors.New("unexpected command " + key)
}

func addInterface(t *testing.T, fs afero.Fs, name, driver, phy, mac string) {
	t.Helper()
	dir := globals.SysClassNetDir + "/" + name
	require.NoError(t, afero.WriteFile(fs, dir+"/address", []byte(mac+"\n"), 0644))
	require.NoError(t, afero.WriteFile(fs, dir+"/device/uevent", []byte("DEVTYPE=usb_interface\nDRIVER="+driver+"\n"), 0644))
	if phy != "" {
		require.NoError(t, afero.WriteFile(fs, dir+"/phy80211/index", []byte(phy+"\n"), 0644))
	}
}

func TestDiscover(t *testing.T) {
	fs := afero.NewMemMapFs()
	addInterface(t, fs, "wlan1", "rtl88xxau", "1", "00:c0:ca:aa:bb:cc")
	addInterface(t, fs, "wlan0", "brcmfmac", "0", "dc:a6:32:00:00:01")
	addInterface(t, fs, "eth0", "bcmgenet", "", "dc:a6:32:00:00:02")
	addInterface(t, fs, "wlan2", "ath9k_htc", "2", "00:0e:8e:00:00:03")

	runner := fakeRunner{outputs: map[string]string{
		"iw phy phy1 info": iwDualBand,
		"iw phy phy0 info": iwSingleBand,
	}}

	cards, err := Discover(fs, runner)
	require.NoError(t, err)
	require.Len(t, cards, 2, "wlan2 fails to probe and eth0 is no wifi card")

	assert.Equal(t, WiFiCard{
		DeviceName: "wlan0", MAC: "dc:a6:32:00:00:01", PhyIndex: 0, DriverName: "brcmfmac",
		Type: Broadcom, Supports2GHz: true,
	}, cards[0])
	assert.Equal(t, WiFiCard{
		DeviceName: "wlan1", MAC: "00:c0:ca:aa:bb:cc", PhyIndex: 1, DriverName: "rtl88xxau",
		Type: Realtek8812au, Supports2GHz: true, Supports5GHz: true,
		SupportsInjection: true, SupportsHotspot: true, SupportsRTS: true, SupportsMonitorMode: true,
	}, cards[1])

	assert.Equal(t, "size:2{wlan0,wlan1}", DebugCards(cards))
}

func TestDiscoverWithoutSysfs(t *testing.T) {
	_, err := Discover(afero.NewMemMapFs(), fakeRunner{})
	assert.Error(t, err)
}

func TestCardTypeForDriver(t *testing.T) {
	assert.Equal(t, Atheros9khtc, CardTypeForDriver("ath9k_htc"))
	assert.Equal(t, Atheros9k, CardTypeForDriver("ath9k"))
	assert.Equal(t, Realtek88x2bu, CardTypeForDriver("rtl88x2bu"))
	assert.Equal(t, Intel, CardTypeForDriver("iwlwifi"))
	assert.Equal(t, Unknown, CardTypeForDriver("mt7601u"))
}

func TestParsePhyInfo(t *testing.T) {
	assert.Equal(t, phyCaps{band2G: true, band5G: true, monitor: true, ap: true}, parsePhyInfo(iwDualBand))
	assert.Equal(t, phyCaps{band2G: true}, parsePhyInfo(iwSingleBand))
	assert.Equal(t, phyCaps{}, parsePhyInfo(""))
}

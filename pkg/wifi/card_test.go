package wifi

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCardPredicates(t *testing.T) {
	tests := []struct {
		t           WiFiCardType
		variableMCS bool
		width40     bool
		extra2G     bool
	}{
		{Unknown, true, false, false},
		{Realtek8812au, true, true, false},
		{Realtek8814au, true, false, false},
		{Realtek88x2bu, true, false, false},
		{Realtek8188eu, true, false, false},
		{Atheros9khtc, false, false, true},
		{Atheros9k, false, false, true},
		{Ralink, true, false, false},
		{Intel, true, false, false},
		{Broadcom, true, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.t.String(), func(t *testing.T) {
			c := WiFiCard{Type: tt.t}
			assert.Equal(t, tt.variableMCS, c.SupportsVariableMCS())
			assert.Equal(t, tt.width40, c.Supports40MhzChannelWidth())
			assert.Equal(t, tt.extra2G, c.SupportsExtraChannels2G())
		})
	}
}

func TestWiFiCardTypeFromInt(t *testing.T) {
	for v := 0; v < 10; v++ {
		ct, err := WiFiCardTypeFromInt(v)
		require.NoError(t, err)
		assert.Equal(t, v, int(ct))
	}
	for _, v := range []int{-1, 10, 99} {
		_, err := WiFiCardTypeFromInt(v)
		assert.Error(t, err, "value %d", v)
	}
}

func TestWiFiCardTypeJSON(t *testing.T) {
	data, err := json.Marshal(Atheros9khtc)
	require.NoError(t, err)
	assert.JSONEq(t, `"Atheros9khtc"`, string(data))

	data, err = json.Marshal(Unknown)
	require.NoError(t, err)
	assert.Equal(t, "null", string(data))

	var ct WiFiCardType
	require.NoError(t, json.Unmarshal([]byte(`"Realtek88x2bu"`), &ct))
	assert.Equal(t, Realtek88x2bu, ct)
	require.NoError(t, json.Unmarshal([]byte(`null`), &ct))
	assert.Equal(t, Unknown, ct)
	require.NoError(t, json.Unmarshal([]byte(`"Marvell"`), &ct))
	assert.Equal(t, Unknown, ct)
}

func TestWifiUseForString(t *testing.T) {
	assert.Equal(t, "monitor_mode", UseForMonitorMode.String())
	assert.Equal(t, "hotspot", UseForHotspot.String())
	assert.Equal(t, "unknown", UseForUnknown.String())
}

func TestCardUseFor(t *testing.T) {
	assert.Equal(t, UseForMonitorMode, WiFiCard{SupportsMonitorMode: true, SupportsHotspot: true}.UseFor())
	assert.Equal(t, UseForHotspot, WiFiCard{SupportsHotspot: true}.UseFor())
	assert.Equal(t, UseForUnknown, WiFiCard{}.UseFor())
}

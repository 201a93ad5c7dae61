package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"air-firmware/pkg/camconfig"
	"air-firmware/pkg/platform"
	"air-firmware/pkg/wifi"
)

type noReboot struct{}

func (noReboot) Reboot() {}

var rpi4 = platform.Platform{Type: platform.PlatformRaspberryPi, Board: platform.BoardRaspberryPi4B}

func newTestServer(t *testing.T) (*Server, *camconfig.Handler) {
	t.Helper()
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/boot/config.txt", []byte(camconfig.DynamicContentMarker+"\n"), 0644))
	require.NoError(t, afero.WriteFile(fs, "/boot/openhd/configs/rpi_4_libcamera.txt", []byte("camera_auto_detect=1\n"), 0644))

	h := camconfig.NewHandler(camconfig.Options{
		FS:             fs,
		Platform:       rpi4,
		Store:          camconfig.NewStore(fs, "/boot/openhd/curr_rpi_cam_config.txt", nil),
		Rebooter:       noReboot{},
		BootConfigPath: "/boot/config.txt",
		BackupPath:     "/boot/config.txt.old",
		FragmentsDir:   "/boot/openhd/configs",
		SettleDelay:    time.Millisecond,
	})

	cards := []wifi.WiFiCard{
		{DeviceName: "wlan1", PhyIndex: 1, DriverName: "ath9k_htc", Type: wifi.Atheros9khtc, Supports2GHz: true, SupportsMonitorMode: true},
		{DeviceName: "wlan0", PhyIndex: 0, DriverName: "brcmfmac", Type: wifi.Broadcom, Supports2GHz: true, SupportsHotspot: true},
	}
	s := NewServer(Deps{CamConfig: h, Platform: rpi4, Cards: func() []wifi.WiFiCard { return cards }})
	return s, h
}

func do(t *testing.T, s *Server, method, path, body string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	var out map[string]interface{}
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	}
	return rec, out
}

func TestGetCamConfig(t *testing.T) {
	s, _ := newTestServer(t)

	rec, out := do(t, s, http.MethodGet, "/api/camconfig", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(0), out["id"])
	assert.Equal(t, "mmal", out["name"])
	assert.Equal(t, camconfig.StateIdle, out["state"])
	assert.Len(t, out["options"], 10)
}

func TestSetCamConfig(t *testing.T) {
	s, h := newTestServer(t)

	rec, out := do(t, s, http.MethodPost, "/api/camconfig", `{"id": 42}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, false, out["success"])

	rec, _ = do(t, s, http.MethodPost, "/api/camconfig", `{"name": "mmal"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, out = do(t, s, http.MethodPost, "/api/camconfig", `{"id": 0}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, out["success"])
	assert.Equal(t, false, out["rebootPending"])

	rec, out = do(t, s, http.MethodPost, "/api/camconfig", `{"id": 1}`)
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, true, out["success"])

	rec, out = do(t, s, http.MethodPost, "/api/camconfig", `{"id": 2}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, false, out["success"])

	select {
	case r := <-h.Done():
		require.NoError(t, r.Err)
	case <-time.After(5 * time.Second):
		t.Fatal("apply did not finish")
	}
	_, out = do(t, s, http.MethodGet, "/api/camconfig", "")
	assert.Equal(t, "libcamera", out["name"])
	assert.Equal(t, camconfig.StateApplied, out["state"])
}

func TestGetCards(t *testing.T) {
	s, _ := newTestServer(t)

	rec, out := do(t, s, http.MethodGet, "/api/wifi/cards", "")
	require.Equal(t, http.StatusOK, rec.Code)
	cards := out["cards"].([]interface{})
	require.Len(t, cards, 2)
	card := cards[0].(map[string]interface{})
	assert.Equal(t, "Atheros9khtc", card["type"])
	assert.Equal(t, "monitor_mode", card["useFor"])
	assert.Equal(t, "hotspot", cards[1].(map[string]interface{})["useFor"])
	assert.Equal(t, false, card["supportsVariableMcs"])
	assert.Equal(t, true, card["supportsExtraChannels2G"])
	assert.Contains(t, card["frequencies"], float64(2312))
}

func TestGetFrequency(t *testing.T) {
	s, _ := newTestServer(t)

	rec, out := do(t, s, http.MethodGet, "/api/wifi/cards/wlan1/frequencies/2312", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, out["supported"])

	_, out = do(t, s, http.MethodGet, "/api/wifi/cards/wlan1/frequencies/5745", "")
	assert.Equal(t, false, out["supported"])

	rec, _ = do(t, s, http.MethodGet, "/api/wifi/cards/wlan9/frequencies/2412", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMetricsAndLogs(t *testing.T) {
	s, _ := newTestServer(t)
	do(t, s, http.MethodPost, "/api/camconfig", `{"id": -1}`)

	rec, _ := do(t, s, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `camconfig_change_requests_total{outcome="invalid"}`)

	rec, out := do(t, s, http.MethodGet, "/api/logs", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, out, "logs")
}

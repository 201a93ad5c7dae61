package relaycomm

import (
	"encoding/json"

	"air-firmware/pkg/camconfig"
	"air-firmware/pkg/health"
	"air-firmware/pkg/logger"
	"air-firmware/pkg/platform"
	"air-firmware/pkg/system"
	"air-firmware/pkg/wifi"
)

// Sender delivers a reply to the relay
type Sender interface {
	Send(messageType string, payload interface{}) error
}

// CamConfigChanger is the part of camconfig.Handler the relay needs
type CamConfigChanger interface {
	RequestChange(value int) bool
	Current() camconfig.CamConfig
	State() string
}

type Deps struct {
	CamConfig CamConfigChanger
	Platform  platform.Platform
	Cards     func() []wifi.WiFiCard
	Rebooter  system.Rebooter
}

type handlers struct {
	out  Sender
	deps Deps
}

// RegisterHandlers registers all relay message handlers
func RegisterHandlers(relay *RelayComm, deps Deps) {
	h := &handlers{out: relay, deps: deps}

	// Camera
	relay.On("changeCamConfig", h.handleChangeCamConfig)
	relay.On("getCamConfig", h.handleGetCamConfig)

	// WiFi
	relay.On("getWifiCards", h.handleGetWifiCards)

	// System
	relay.On("getHealth", h.handleGetHealth)
	relay.On("getLogs", h.handleGetLogs)
	relay.On("restart", h.handleRestart)
}

func (h *handlers) send(messageType string, payload interface{}) {
	if err := h.out.Send(messageType, payload); err != nil {
		logger.Named("relaycomm").Debugf("Cannot send %s: %v", messageType, err)
	}
}

// The ground station expects an answer within a short time, the change
// itself is applied afterwards.
func (h *handlers) handleChangeCamConfig(payload json.RawMessage) {
	var req struct {
		ID *int `json:"id"`
	}

	if err := json.Unmarshal(payload, &req); err != nil || req.ID == nil {
		h.send("changeCamConfigResult", map[string]interface{}{
			"success": false,
			"error":   "Invalid request format",
		})
		return
	}

	h.send("changeCamConfigResult", map[string]interface{}{
		"success": h.deps.CamConfig.RequestChange(*req.ID),
	})
}

func (h *handlers) handleGetCamConfig(payload json.RawMessage) {
	current := h.deps.CamConfig.Current()
	h.send("camConfigResult", map[string]interface{}{
		"id":    int(current),
		"name":  current.String(),
		"state": h.deps.CamConfig.State(),
	})
}

func (h *handlers) handleGetWifiCards(payload json.RawMessage) {
	var cards []wifi.WiFiCard
	if h.deps.Cards != nil {
		cards = h.deps.Cards()
	}
	data, err := wifi.MarshalCards(cards)
	if err != nil {
		h.send("wifiCardsResult", map[string]interface{}{"success": false})
		return
	}
	h.send("wifiCardsResult", map[string]interface{}{
		"success": true,
		"cards":   json.RawMessage(data),
	})
}

func (h *handlers) handleGetHealth(payload json.RawMessage) {
	report, err := health.Collect()
	if err != nil {
		h.send("healthResult", map[string]interface{}{
			"success": false,
			"error":   err.Error(),
		})
		return
	}

	h.send("healthResult", map[string]interface{}{
		"success":  true,
		"health":   report,
		"platform": h.deps.Platform.String(),
		"camera":   h.deps.CamConfig.Current().String(),
		"errors":   logger.DequeueForwarded(),
	})
}

func (h *handlers) handleGetLogs(payload json.RawMessage) {
	h.send("logsResult", map[string]interface{}{
		"logs": logger.GetLogs(),
	})
}

func (h *handlers) handleRestart(payload json.RawMessage) {
	// Send success response before rebooting
	h.send("restartResult", map[string]interface{}{
		"success": true,
	})

	go h.deps.Rebooter.Reboot()
}

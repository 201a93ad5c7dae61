package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"air-firmware/pkg/camconfig"
	"air-firmware/pkg/health"
	"air-firmware/pkg/logger"
	"air-firmware/pkg/platform"
	"air-firmware/pkg/wifi"
)

// CamConfigChanger is the part of camconfig.Handler the API needs
type CamConfigChanger interface {
	Submit(value int) error
	Current() camconfig.CamConfig
	State() string
}

type Deps struct {
	CamConfig CamConfigChanger
	Platform  platform.Platform
	// Cards returns the wifi cards found at startup
	Cards func() []wifi.WiFiCard
}

// Server is the local HTTP API of the air unit
type Server struct {
	deps   Deps
	router *mux.Router
	server *http.Server
}

func NewServer(deps Deps) *Server {
	if deps.Cards == nil {
		deps.Cards = func() []wifi.WiFiCard { return nil }
	}
	s := &Server{deps: deps, router: mux.NewRouter()}

	s.router.HandleFunc("/api/camconfig", s.handleGetCamConfig).Methods(http.MethodGet)
	s.router.HandleFunc("/api/camconfig", s.handleSetCamConfig).Methods(http.MethodPost)
	s.router.HandleFunc("/api/wifi/cards", s.handleGetCards).Methods(http.MethodGet)
	s.router.HandleFunc("/api/wifi/cards/{name}/frequencies/{freq:[0-9]+}", s.handleGetFrequency).Methods(http.MethodGet)
	s.router.HandleFunc("/api/health", s.handleGetHealth).Methods(http.MethodGet)
	s.router.HandleFunc("/api/logs", s.handleGetLogs).Methods(http.MethodGet)
	s.router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe blocks until ctx is done or the listener fails
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Named("api").Infof("Listening on %s", addr)
		errCh <- s.server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.server.Shutdown(shutdownCtx)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

type camConfigOption struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

func (s *Server) handleGetCamConfig(w http.ResponseWriter, r *http.Request) {
	current := s.deps.CamConfig.Current()
	options := []camConfigOption{}
	for _, c := range camconfig.All() {
		options = append(options, camConfigOption{ID: int(c), Name: c.String()})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"id":      int(current),
		"name":    current.String(),
		"state":   s.deps.CamConfig.State(),
		"options": options,
	})
}

func (s *Server) handleSetCamConfig(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID *int `json:"id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ID == nil {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{"success": false, "error": "Invalid request format"})
		return
	}

	err := s.deps.CamConfig.Submit(*req.ID)
	switch {
	case err == nil:
		writeJSON(w, http.StatusAccepted, map[string]interface{}{"success": true, "rebootPending": true})
	case errors.Is(err, camconfig.ErrNoOp):
		writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "rebootPending": false})
	case errors.Is(err, camconfig.ErrInvalidCamConfig):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]interface{}{"success": false, "error": err.Error()})
	default:
		writeJSON(w, http.StatusConflict, map[string]interface{}{"success": false, "error": err.Error()})
	}
}

// CardInfo is a card with its derived capabilities
type CardInfo struct {
	DeviceName            string            `json:"deviceName"`
	MAC                   string            `json:"mac"`
	PhyIndex              int               `json:"phyIndex"`
	DriverName            string            `json:"driverName"`
	Type                  wifi.WiFiCardType `json:"type"`
	Supports2GHz          bool              `json:"supports2GHz"`
	Supports5GHz          bool              `json:"supports5GHz"`
	SupportsInjection     bool              `json:"supportsInjection"`
	SupportsHotspot       bool              `json:"supportsHotspot"`
	SupportsRTS           bool              `json:"supportsRts"`
	SupportsMonitorMode   bool              `json:"supportsMonitorMode"`
	SupportsVariableMCS   bool              `json:"supportsVariableMcs"`
	Supports40MhzWidth    bool              `json:"supports40MhzWidth"`
	SupportsExtraChannels bool              `json:"supportsExtraChannels2G"`
	UseFor                string            `json:"useFor"`
	Frequencies           []uint32          `json:"frequencies"`
}

func NewCardInfo(p platform.Platform, c wifi.WiFiCard) CardInfo {
	freqs := wifi.SupportedFrequencies(p, c)
	if freqs == nil {
		freqs = []uint32{}
	}
	return CardInfo{
		DeviceName:            c.DeviceName,
		MAC:                   c.MAC,
		PhyIndex:              c.PhyIndex,
		DriverName:            c.DriverName,
		Type:                  c.Type,
		Supports2GHz:          c.Supports2GHz,
		Supports5GHz:          c.Supports5GHz,
		SupportsInjection:     c.SupportsInjection,
		SupportsHotspot:       c.SupportsHotspot,
		SupportsRTS:           c.SupportsRTS,
		SupportsMonitorMode:   c.SupportsMonitorMode,
		SupportsVariableMCS:   c.SupportsVariableMCS(),
		Supports40MhzWidth:    c.Supports40MhzChannelWidth(),
		SupportsExtraChannels: c.SupportsExtraChannels2G(),
		UseFor:                c.UseFor().String(),
		Frequencies:           freqs,
	}
}

func (s *Server) handleGetCards(w http.ResponseWriter, r *http.Request) {
	cards := []CardInfo{}
	for _, c := range s.deps.Cards() {
		cards = append(cards, NewCardInfo(s.deps.Platform, c))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"cards": cards})
}

func (s *Server) handleGetFrequency(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	freq, err := strconv.ParseUint(vars["freq"], 10, 32)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{"error": "invalid frequency"})
		return
	}

	for _, c := range s.deps.Cards() {
		if c.DeviceName != vars["name"] {
			continue
		}
		resp := map[string]interface{}{
			"frequency": freq,
			"supported": wifi.SupportsFrequency(s.deps.Platform, c, uint32(freq)),
		}
		if channel, ok := wifi.ChannelFromFrequency(uint32(freq)); ok {
			resp["channel"] = channel
		}
		writeJSON(w, http.StatusOK, resp)
		return
	}
	writeJSON(w, http.StatusNotFound, map[string]interface{}{"error": "card not found"})
}

func (s *Server) handleGetHealth(w http.ResponseWriter, r *http.Request) {
	report, err := health.Collect()
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]interface{}{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"health":   report,
		"platform": s.deps.Platform.String(),
	})
}

func (s *Server) handleGetLogs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"logs": logger.GetLogs()})
}

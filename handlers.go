package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"gregoryjjb/fireside/gpio"
)

const (
	msgInvalidCommand = "Invalid command type. Expected 'toggle'"
	msgInvalidAction  = "Invalid action. Expected 'ON' or 'OFF'"
	msgInvalidPin     = "Invalid GPIO pin"
)

type FireplaceControlRequest struct {
	Action string  `json:"action"`
	Device string  `json:"device"`
	Room   *string `json:"room"`
}

type ApiResponse struct {
	Success   bool           `json:"success"`
	Action    string         `json:"action"`
	Pin       uint32         `json:"pin"`
	Device    *string        `json:"device,omitempty"`
	State     *gpio.PinState `json:"state,omitempty"`
	Timestamp string         `json:"timestamp"`
}

type HealthResponse struct {
	Status   string `json:"status"`
	Version  string `json:"version"`
	Backend  string `json:"backend"`
	UptimeMs int64  `json:"uptime_ms"`
}

type StatusResponse struct {
	Room string           `json:"room"`
	Pins []gpio.PinStatus `json:"pins"`
}

type PinResponse struct {
	Pin    uint32        `json:"pin"`
	State  gpio.PinState `json:"state"`
	Device *string       `json:"device,omitempty"`
}

type HistoryResponse struct {
	Room   string          `json:"room"`
	Events []gpio.PinEvent `json:"events"`
}

type ConfigResponse struct {
	Room   string       `json:"room"`
	Pins   PinConfig    `json:"pins"`
	Safety SafetyConfig `json:"safety"`
}

type ReloadResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

func timestamp() string {
	return time.Now().Format(time.RFC3339)
}

func parseAction(action string) (string, bool, bool) {
	upper := strings.ToUpper(action)
	switch upper {
	case "ON":
		return upper, true, true
	case "OFF":
		return upper, false, true
	}
	return upper, false, false
}

func parsePin(s string) (uint32, bool) {
	v, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, false
	}
	return uint32(v), true
}

func (s *Server) deviceName(pin uint32) *string {
	if name, ok := s.config.Get().Pins.PinName(pin); ok {
		return &name
	}
	return nil
}

// handleLegacyGPIO serves
// GET /?cmdType=toggle&cmdAction=ON&v_ACTION=on&m_PIN=37&m_pulsePIN=0&m_monPIN=0&n_CYCLE=0
// Despite cmdType=toggle, the pin is set explicitly from cmdAction, and ON
// always means drive the pin high. Polarity only applies to HomeKit.
func (s *Server) handleLegacyGPIO(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	for _, key := range []string{"cmdType", "cmdAction", "v_ACTION", "m_PIN"} {
		if !q.Has(key) {
			RespondBadRequest(w, fmt.Sprintf("Missing query parameter '%s'", key))
			return
		}
	}
	for _, key := range []string{"m_pulsePIN", "m_monPIN", "n_CYCLE"} {
		if v := q.Get(key); v != "" {
			if _, ok := parsePin(v); !ok {
				RespondBadRequest(w, fmt.Sprintf("Invalid query parameter '%s'", key))
				return
			}
		}
	}

	pin, ok := parsePin(q.Get("m_PIN"))
	if !ok {
		RespondBadRequest(w, msgInvalidPin)
		return
	}

	if strings.ToLower(q.Get("cmdType")) != "toggle" {
		RespondBadRequest(w, msgInvalidCommand)
		return
	}

	action, on, ok := parseAction(q.Get("cmdAction"))
	if !ok {
		RespondBadRequest(w, msgInvalidAction)
		return
	}

	srvlog().Debug().
		Str("cmd_type", q.Get("cmdType")).
		Str("action", action).
		Uint32("pin", pin).
		Msg("Legacy GPIO request")

	if err := s.gpio.SetPin(r.Context(), pin, on, false); err != nil {
		RespondInternalServiceError(w, err)
		return
	}

	RespondJSON(w, ApiResponse{
		Success:   true,
		Action:    action,
		Pin:       pin,
		Device:    s.deviceName(pin),
		Timestamp: timestamp(),
	})
}

func (s *Server) handleFireplaceControl(w http.ResponseWriter, r *http.Request) {
	var req FireplaceControlRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondBadRequest(w, fmt.Sprintf("Invalid request body: %s", err))
		return
	}

	cfg := s.config.Get()

	pin, ok := cfg.Pins.DevicePin(req.Device)
	if !ok {
		RespondBadRequest(w, msgInvalidPin)
		return
	}

	action, on, ok := parseAction(req.Action)
	if !ok {
		RespondBadRequest(w, msgInvalidAction)
		return
	}

	srvlog().Debug().Str("device", req.Device).Str("action", action).Msg("Fireplace control request")

	// ON means set HIGH, whatever active_low says
	if err := s.gpio.SetPin(r.Context(), pin, on, false); err != nil {
		RespondInternalServiceError(w, err)
		return
	}

	device := req.Device
	RespondJSON(w, ApiResponse{
		Success:   true,
		Action:    action,
		Pin:       pin,
		Device:    &device,
		Timestamp: timestamp(),
	})
}

func (s *Server) handleGPIOStatus(w http.ResponseWriter, r *http.Request) {
	RespondJSON(w, StatusResponse{
		Room: s.config.Get().Room.Name,
		Pins: s.gpio.AllPinStates(),
	})
}

func (s *Server) handleGPIOHistory(w http.ResponseWriter, r *http.Request) {
	RespondJSON(w, HistoryResponse{
		Room:   s.config.Get().Room.Name,
		Events: s.gpio.History(),
	})
}

func (s *Server) handleGetPin(w http.ResponseWriter, r *http.Request) {
	pin, ok := parsePin(chi.URLParam(r, "pin"))
	if !ok {
		RespondBadRequest(w, msgInvalidPin)
		return
	}

	state := s.gpio.PinState(pin)
	if r.URL.Query().Get("refresh") == "true" {
		var err error
		state, err = s.gpio.RefreshPin(r.Context(), pin)
		if err != nil {
			RespondInternalServiceError(w, err)
			return
		}
	}

	RespondJSON(w, PinResponse{
		Pin:    pin,
		State:  state,
		Device: s.deviceName(pin),
	})
}

func (s *Server) handleTogglePin(w http.ResponseWriter, r *http.Request) {
	pin, ok := parsePin(chi.URLParam(r, "pin"))
	if !ok {
		RespondBadRequest(w, msgInvalidPin)
		return
	}

	if err := s.gpio.TogglePin(r.Context(), pin); err != nil {
		RespondInternalServiceError(w, err)
		return
	}

	state := s.gpio.PinState(pin)
	RespondJSON(w, ApiResponse{
		Success:   true,
		Action:    "TOGGLE",
		Pin:       pin,
		Device:    s.deviceName(pin),
		State:     &state,
		Timestamp: timestamp(),
	})
}

func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	cfg := s.config.Get()
	RespondJSON(w, ConfigResponse{
		Room:   cfg.Room.Name,
		Pins:   cfg.Pins,
		Safety: cfg.Safety,
	})
}

// handleReloadConfig rereads the config file. Only room, pins and safety
// take effect; the backend and listeners stay as they were at startup.
func (s *Server) handleReloadConfig(w http.ResponseWriter, r *http.Request) {
	srvlog().Info().Msg("Configuration reload requested")

	cfg, err := s.config.Reload()
	if errors.Is(err, ErrNoConfigFile) {
		RespondError(w, http.StatusConflict, "No configuration file in use, running on built-in defaults")
		return
	}
	if err != nil {
		RespondError(w, http.StatusInternalServerError, fmt.Sprintf("Configuration error: %s", err))
		return
	}

	RespondJSON(w, ReloadResponse{
		Success:   true,
		Message:   fmt.Sprintf("Configuration reloaded from %s", cfg.Path),
		Timestamp: timestamp(),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	version := s.build.Version
	if version == "" {
		version = "dev"
	}
	RespondJSON(w, HealthResponse{
		Status:   "healthy",
		Version:  version,
		Backend:  s.gpio.Backend(),
		UptimeMs: time.Since(s.started).Milliseconds(),
	})
}

package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"gregoryjjb/fireside/gpio"
)

/////////////////////
// Response helpers

type ErrorResponse struct {
	Error   bool   `json:"error"`
	Message string `json:"message"`
	Status  int    `json:"status"`
}

func RespondJSON(w http.ResponseWriter, body any) {
	RespondJSONStatus(w, http.StatusOK, body)
}

func RespondJSONStatus(w http.ResponseWriter, status int, body any) {
	data, err := json.Marshal(body)
	if err != nil {
		RespondError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(data)
}

func RespondError(w http.ResponseWriter, status int, message string) {
	data, _ := json.Marshal(ErrorResponse{
		Error:   true,
		Message: message,
		Status:  status,
	})
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(data)
}

func RespondBadRequest(w http.ResponseWriter, message string) {
	RespondError(w, http.StatusBadRequest, message)
}

// RespondInternalServiceError reports any failure from the GPIO layer as a
// 500 carrying the error text.
func RespondInternalServiceError(w http.ResponseWriter, err error) {
	var gerr *gpio.Error
	if errors.As(err, &gerr) {
		RespondError(w, http.StatusInternalServerError, gerr.Message)
		return
	}
	RespondError(w, http.StatusInternalServerError, err.Error())
}

// permissiveCORS lets browser dashboards on other origins call the API.
func permissiveCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "*")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type BuildInfo struct {
	Version   string
	BuildTime time.Time
	Commit    string
}

// Server holds what the handlers need: live config and the one controller.
type Server struct {
	config  *ConfigStore
	gpio    *gpio.Controller
	build   BuildInfo
	started time.Time
}

func NewServer(config *ConfigStore, controller *gpio.Controller, build BuildInfo) *Server {
	return &Server{
		config:  config,
		gpio:    controller,
		build:   build,
		started: time.Now(),
	}
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(LoggerMiddleware(srvlog()))
	r.Use(permissiveCORS)

	// Legacy endpoint, kept for existing clients
	r.Get("/", s.handleLegacyGPIO)

	r.Get("/health", s.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/fireplace/control", s.handleFireplaceControl)

		r.Get("/gpio/status", s.handleGPIOStatus)
		r.Get("/gpio/history", s.handleGPIOHistory)
		r.Get("/gpio/events", s.handleGPIOEvents)
		r.Get("/gpio/{pin}", s.handleGetPin)
		r.Post("/gpio/{pin}/toggle", s.handleTogglePin)

		r.Get("/config", s.handleGetConfig)
		r.Post("/config/reload", s.handleReloadConfig)
	})

	return r
}

// StartServer serves until ctx is cancelled, then shuts down gracefully.
func StartServer(ctx context.Context, s *Server) error {
	address := s.config.Get().Server.Address()

	httpServer := &http.Server{
		Addr:              address,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		srvlog().Info().Str("listen", address).Msg("Launching server")
		srvlog().Info().Msg("Legacy endpoint: GET /?cmdType=toggle&cmdAction=ON&v_ACTION=on&m_PIN=37&m_pulsePIN=0&m_monPIN=0&n_CYCLE=0")
		srvlog().Info().Msg("Modern endpoint: POST /api/v1/fireplace/control")
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	srvlog().Info().Msg("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

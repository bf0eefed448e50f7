// Package api exposes the humidifier over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/clambin/humidifier-cycler/internal/driver"
	"github.com/clambin/humidifier-cycler/internal/humidifier"
	"github.com/clambin/humidifier-cycler/internal/mode"
	"github.com/clambin/humidifier-cycler/internal/selector"
)

type Humidifier interface {
	Status() humidifier.Status
	SetHumidity(ctx context.Context, humidity float64) (driver.Outcome, error)
	SetMode(ctx context.Context, m mode.Mode) (driver.Outcome, error)
	TurnOn(ctx context.Context) (driver.Outcome, error)
	TurnOff(ctx context.Context) (driver.Outcome, error)
	Resync(m mode.Mode) error
}

type Server struct {
	Humidifier
	logger *slog.Logger
}

func New(h Humidifier, logger *slog.Logger) *Server {
	return &Server{Humidifier: h, logger: logger}
}

type response struct {
	Outcome driver.Outcome    `json:"outcome"`
	State   humidifier.Status `json:"state"`
}

type errorResponse struct {
	Error string            `json:"error"`
	State humidifier.Status `json:"state"`
}

// Handler registers the API's routes on a new ServeMux.
func (s *Server) Handler() *http.ServeMux {
	m := http.NewServeMux()
	m.HandleFunc("GET /api/state", s.getState)
	m.HandleFunc("POST /api/humidity", s.setHumidity)
	m.HandleFunc("POST /api/mode", s.setMode)
	m.HandleFunc("POST /api/power", s.setPower)
	m.HandleFunc("POST /api/resync", s.resync)
	return m
}

func (s *Server) getState(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.Status())
}

func (s *Server) setHumidity(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Humidity *float64 `json:"humidity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Humidity == nil {
		http.Error(w, "invalid request: humidity required", http.StatusBadRequest)
		return
	}
	outcome, err := s.SetHumidity(walkContext(r), *req.Humidity)
	s.writeResult(w, outcome, err)
}

func (s *Server) setMode(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Mode *mode.Mode `json:"mode"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Mode == nil {
		http.Error(w, "invalid request: mode required", http.StatusBadRequest)
		return
	}
	outcome, err := s.SetMode(walkContext(r), *req.Mode)
	s.writeResult(w, outcome, err)
}

func (s *Server) setPower(w http.ResponseWriter, r *http.Request) {
	var req struct {
		On *bool `json:"on"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.On == nil {
		http.Error(w, "invalid request: on required", http.StatusBadRequest)
		return
	}
	var outcome driver.Outcome
	var err error
	if *req.On {
		outcome, err = s.TurnOn(walkContext(r))
	} else {
		outcome, err = s.TurnOff(walkContext(r))
	}
	s.writeResult(w, outcome, err)
}

func (s *Server) resync(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Mode *mode.Mode `json:"mode"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Mode == nil {
		http.Error(w, "invalid request: mode required", http.StatusBadRequest)
		return
	}
	s.writeResult(w, driver.Completed, s.Resync(*req.Mode))
}

// walkContext detaches a walk from the request that starts it. Requests merged into the walk rely on it
// running to completion, even if the initiating client goes away.
func walkContext(r *http.Request) context.Context {
	return context.WithoutCancel(r.Context())
}

func (s *Server) writeResult(w http.ResponseWriter, outcome driver.Outcome, err error) {
	if err != nil {
		code := statusCode(err)
		if code >= http.StatusInternalServerError {
			s.logger.Error("request failed", "err", err)
		}
		s.writeJSON(w, code, errorResponse{Error: err.Error(), State: s.Status()})
		return
	}
	s.writeJSON(w, http.StatusOK, response{Outcome: outcome, State: s.Status()})
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(body); err != nil {
		s.logger.Warn("failed to write response", "err", err)
	}
}

func statusCode(err error) int {
	switch {
	case errors.Is(err, driver.ErrInvalidMode), errors.Is(err, selector.ErrOutOfRange):
		return http.StatusBadRequest
	case errors.Is(err, driver.ErrWalkInProgress):
		return http.StatusConflict
	case errors.Is(err, driver.ErrPressExhausted):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

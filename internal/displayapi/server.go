// Package displayapi exposes the control-plane surface that spec.md's §6
// describes only abstractly ("DBus-style surfaces... outside this spec")
// as a concrete HTTP API, mirroring the shape of the teacher's
// internal/api.Server: chi router, logger + CORS middleware,
// sendSuccess/sendError JSON envelope.
package displayapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/displaypowerd/displaypowerd/internal/displaystate"
)

// Dispatcher serializes a call onto the single goroutine that owns the
// displaystate.Machine, matching the core's requirement that Handle*
// calls never run concurrently. *alarmtimer.Dispatcher satisfies this.
type Dispatcher interface {
	Submit(fn func())
}

// Server is the HTTP control plane for a running displaystate.Machine.
type Server struct {
	router     *chi.Mux
	machine    *displaystate.Machine
	dispatcher Dispatcher
}

// APIResponse is the single JSON envelope returned by every route.
type APIResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// NewServer builds a Server that submits every request's machine call
// through dispatcher, so it is safe to call from the HTTP goroutines.
func NewServer(machine *displaystate.Machine, dispatcher Dispatcher) *Server {
	s := &Server{
		router:     chi.NewRouter(),
		machine:    machine,
		dispatcher: dispatcher,
	}

	s.router.Use(middleware.Logger)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://*", "https://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.Post("/inactivity-timeout/enable", s.enableInactivityTimeoutHandler)
	s.router.Post("/inactivity-timeout/disable", s.disableInactivityTimeoutHandler)
	s.router.Put("/inactivity-timeout", s.setInactivityTimeoutHandler)
	s.router.Post("/display/on", s.turnOnDisplayHandler)
	s.router.Post("/notification", s.notificationHandler)
	s.router.Post("/no-notification", s.noNotificationHandler)
	s.router.Post("/active-call", s.activeCallHandler)
	s.router.Post("/no-active-call", s.noActiveCallHandler)
	s.router.Get("/status", s.statusHandler)
}

// Router returns the underlying http.Handler for use with
// internal/httpserver.StartWithGracefulShutdown.
func (s *Server) Router() http.Handler {
	return s.router
}

func (s *Server) sendSuccess(w http.ResponseWriter, data any) {
	s.sendResponse(w, APIResponse{Status: "ok", Data: data}, http.StatusOK)
}

func (s *Server) sendError(w http.ResponseWriter, message string, code int) {
	s.sendResponse(w, APIResponse{Status: "error", Message: message}, code)
}

func (s *Server) sendResponse(w http.ResponseWriter, resp APIResponse, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(resp) //nolint:errcheck
}

func (s *Server) enableInactivityTimeoutHandler(w http.ResponseWriter, r *http.Request) {
	done := make(chan struct{})
	s.dispatcher.Submit(func() {
		s.machine.HandleEnableInactivityTimeout()
		close(done)
	})
	<-done
	s.sendSuccess(w, nil)
}

func (s *Server) disableInactivityTimeoutHandler(w http.ResponseWriter, r *http.Request) {
	done := make(chan struct{})
	s.dispatcher.Submit(func() {
		s.machine.HandleDisableInactivityTimeout()
		close(done)
	})
	<-done
	s.sendSuccess(w, nil)
}

type setInactivityTimeoutRequest struct {
	TimeoutSeconds *int `json:"timeout_seconds,omitempty"`
	Infinite       bool `json:"infinite,omitempty"`
}

func (s *Server) setInactivityTimeoutHandler(w http.ResponseWriter, r *http.Request) {
	var req setInactivityTimeoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	var timeout displaystate.InactivityTimeout
	switch {
	case req.Infinite:
		timeout = displaystate.InfiniteInactivityTimeout()
	case req.TimeoutSeconds != nil && *req.TimeoutSeconds > 0:
		timeout = displaystate.FiniteInactivityTimeout(time.Duration(*req.TimeoutSeconds) * time.Second)
	default:
		s.sendError(w, "one of timeout_seconds (> 0) or infinite is required", http.StatusBadRequest)
		return
	}

	done := make(chan struct{})
	s.dispatcher.Submit(func() {
		s.machine.HandleSetInactivityTimeout(timeout)
		close(done)
	})
	<-done
	s.sendSuccess(w, nil)
}

func (s *Server) turnOnDisplayHandler(w http.ResponseWriter, r *http.Request) {
	done := make(chan struct{})
	s.dispatcher.Submit(func() {
		s.machine.HandleTurnOnDisplay()
		close(done)
	})
	<-done
	s.sendSuccess(w, nil)
}

func (s *Server) notificationHandler(w http.ResponseWriter, r *http.Request) {
	done := make(chan struct{})
	s.dispatcher.Submit(func() {
		s.machine.HandleNotification()
		close(done)
	})
	<-done
	s.sendSuccess(w, nil)
}

func (s *Server) noNotificationHandler(w http.ResponseWriter, r *http.Request) {
	done := make(chan struct{})
	s.dispatcher.Submit(func() {
		s.machine.HandleNoNotification()
		close(done)
	})
	<-done
	s.sendSuccess(w, nil)
}

func (s *Server) activeCallHandler(w http.ResponseWriter, r *http.Request) {
	done := make(chan struct{})
	s.dispatcher.Submit(func() {
		s.machine.HandleActiveCall()
		close(done)
	})
	<-done
	s.sendSuccess(w, nil)
}

func (s *Server) noActiveCallHandler(w http.ResponseWriter, r *http.Request) {
	done := make(chan struct{})
	s.dispatcher.Submit(func() {
		s.machine.HandleNoActiveCall()
		close(done)
	})
	<-done
	s.sendSuccess(w, nil)
}

type statusResponse struct {
	Mode                string `json:"mode"`
	ClientAllowed       bool   `json:"client_allowed"`
	NotificationAllowed bool   `json:"notification_allowed"`
	DimOrOffAlarmArmed  bool   `json:"dim_or_off_alarm_armed"`
}

func (s *Server) statusHandler(w http.ResponseWriter, r *http.Request) {
	result := make(chan statusResponse, 1)
	s.dispatcher.Submit(func() {
		_, armed := s.machine.InactivityOffDeadline()
		result <- statusResponse{
			Mode:                s.machine.Mode().String(),
			ClientAllowed:       s.machine.Allowance(displaystate.AllowanceClient),
			NotificationAllowed: s.machine.Allowance(displaystate.AllowanceNotification),
			DimOrOffAlarmArmed:  armed,
		}
	})
	s.sendSuccess(w, <-result)
}

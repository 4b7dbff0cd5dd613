// Package http exposes the operator API: start scripts, inspect their runs
// and drive live sessions over HTTP.
package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aretw0/launchpad"
	"github.com/aretw0/launchpad/internal/logging"
	"github.com/aretw0/launchpad/pkg/domain"
	"github.com/aretw0/launchpad/pkg/service"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// StartRequest is the body of POST /runs.
type StartRequest struct {
	Ref    string         `json:"ref"`
	Params map[string]any `json:"params,omitempty"`
}

// InputRequest is the body of POST /runs/{run}/sessions/{session}/input.
type InputRequest struct {
	Input string `json:"input"`
}

// ValidationResponse summarizes a script tree check.
type ValidationResponse struct {
	Valid   bool     `json:"valid"`
	Scripts []string `json:"scripts"`
	Dynamic []string `json:"dynamic,omitempty"`
	Errors  []string `json:"errors,omitempty"`
}

// Server serves the operator API over a run manager.
type Server struct {
	runs    *service.Manager
	metrics http.Handler
	logger  *slog.Logger
}

// Option configures the Server.
type Option func(*Server)

// WithMetrics mounts h at /metrics.
func WithMetrics(h http.Handler) Option {
	return func(s *Server) {
		s.metrics = h
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewHandler creates the HTTP handler for runs.
func NewHandler(runs *service.Manager, opts ...Option) http.Handler {
	s := &Server{runs: runs, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/health", s.GetHealth)
	r.Get("/info", s.GetInfo)
	r.Get("/scripts", s.ListScripts)
	r.Get("/scripts/validate", s.ValidateScript)
	r.Get("/records", s.ListRecords)
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics)
	}

	r.Route("/runs", func(r chi.Router) {
		r.Get("/", s.ListRuns)
		r.Post("/", s.StartRun)
		r.Route("/{run}", func(r chi.Router) {
			r.Get("/", s.GetRun)
			r.Delete("/", s.StopRun)
			r.Route("/sessions/{session}", func(r chi.Router) {
				r.Get("/output", s.GetOutput)
				r.Get("/events", s.StreamOutput)
				r.Post("/input", s.SendInput)
				r.Delete("/", s.KillSession)
			})
		})
	})

	return enableCORS(r)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetHealth handles GET /health.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles GET /info.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"app":     "launchpad-http",
		"version": strings.TrimSpace(launchpad.Version),
		"root":    s.runs.Engine().Name,
	})
}

// ListScripts handles GET /scripts.
func (s *Server) ListScripts(w http.ResponseWriter, r *http.Request) {
	refs, err := s.runs.Engine().Scripts(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, refs)
}

// ValidateScript handles GET /scripts/validate?ref=...
func (s *Server) ValidateScript(w http.ResponseWriter, r *http.Request) {
	ref := r.URL.Query().Get("ref")
	if ref == "" {
		http.Error(w, "missing ref", http.StatusBadRequest)
		return
	}
	report := s.runs.Engine().Validate(r.Context(), ref)
	resp := ValidationResponse{
		Valid:   len(report.Errors) == 0,
		Scripts: report.Scripts,
		Dynamic: report.Dynamic,
	}
	for _, err := range report.Errors {
		resp.Errors = append(resp.Errors, err.Error())
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// ListRecords handles GET /records: persisted sessions across processes.
func (s *Server) ListRecords(w http.ResponseWriter, r *http.Request) {
	records, err := s.runs.Engine().Sessions(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	if records == nil {
		records = []domain.SessionRecord{}
	}
	s.writeJSON(w, http.StatusOK, records)
}

// ListRuns handles GET /runs.
func (s *Server) ListRuns(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.runs.List())
}

// StartRun handles POST /runs.
func (s *Server) StartRun(w http.ResponseWriter, r *http.Request) {
	var body StartRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		s.logger.Warn("StartRun: invalid request body", "err", err)
		return
	}
	if body.Ref == "" {
		http.Error(w, "missing ref", http.StatusBadRequest)
		return
	}

	info, err := s.runs.Start(r.Context(), body.Ref, body.Params)
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.Header().Set("Location", "/runs/"+info.ID)
	s.writeJSON(w, http.StatusCreated, info)
}

// GetRun handles GET /runs/{run}.
func (s *Server) GetRun(w http.ResponseWriter, r *http.Request) {
	info, err := s.runs.Get(chi.URLParam(r, "run"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, info)
}

// StopRun handles DELETE /runs/{run}.
func (s *Server) StopRun(w http.ResponseWriter, r *http.Request) {
	info, err := s.runs.Stop(r.Context(), chi.URLParam(r, "run"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, info)
}

// GetOutput handles GET /runs/{run}/sessions/{session}/output.
func (s *Server) GetOutput(w http.ResponseWriter, r *http.Request) {
	out, err := s.runs.Output(chi.URLParam(r, "run"), chi.URLParam(r, "session"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write(out)
}

// SendInput handles POST /runs/{run}/sessions/{session}/input.
func (s *Server) SendInput(w http.ResponseWriter, r *http.Request) {
	var body InputRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := s.runs.Send(chi.URLParam(r, "run"), chi.URLParam(r, "session"), body.Input); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// KillSession handles DELETE /runs/{run}/sessions/{session}.
func (s *Server) KillSession(w http.ResponseWriter, r *http.Request) {
	if err := s.runs.Kill(r.Context(), chi.URLParam(r, "run"), chi.URLParam(r, "session")); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// StreamOutput handles GET /runs/{run}/sessions/{session}/events (SSE).
// Each output chunk is sent as one event; the stream ends when the session exits.
func (s *Server) StreamOutput(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	runID, sessionID := chi.URLParam(r, "run"), chi.URLParam(r, "session")
	ch, cancel, err := s.runs.Subscribe(runID, sessionID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			s.logger.Debug("SSE client disconnected", "run", runID, "session", sessionID)
			return
		case chunk, ok := <-ch:
			if !ok {
				fmt.Fprintf(w, "event: exit\ndata: %s\n\n", sessionID)
				flusher.Flush()
				return
			}
			data, _ := json.Marshal(string(chunk))
			fmt.Fprintf(w, "data: %s\n\n", data)
			flusher.Flush()
		}
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("response encode failed", "err", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "err", err)
	}
	http.Error(w, err.Error(), status)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrRunNotFound),
		errors.Is(err, domain.ErrSessionNotFound),
		errors.Is(err, domain.ErrScriptResolution):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrScriptFormat):
		return http.StatusUnprocessableEntity
	case errors.Is(err, service.ErrRunStopped):
		return http.StatusConflict
	case errors.Is(err, service.ErrEmptyInput),
		errors.Is(err, service.ErrInputTooLarge),
		errors.Is(err, service.ErrInvalidUTF8):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

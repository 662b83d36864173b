// Package api exposes the metronome over HTTP.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/satindergrewal/mnome/internal/metronome"
	"github.com/satindergrewal/mnome/internal/player"
	"github.com/satindergrewal/mnome/internal/trainer"
)

// Streams are the optional audio endpoints mounted next to the API.
type Streams struct {
	HTTP   http.Handler // GET /stream
	WebRTC http.Handler // POST /offer
}

type handlers struct {
	app    *metronome.App
	logger *zap.Logger
}

// NewRouter returns the HTTP handler for the control API, metrics and streams.
func NewRouter(app *metronome.App, logger *zap.Logger, streams Streams) http.Handler {
	h := &handlers{app: app, logger: logger}

	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(requestLogger(logger))
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/healthz", h.health)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/status", h.status)
		r.Post("/start", h.start)
		r.Post("/stop", h.stop)
		r.Post("/toggle", h.toggle)
		r.Post("/bpm", h.setBPM)
		r.Post("/pattern", h.setPattern)
		r.Post("/ramp", h.setRamp)
		r.Delete("/ramp", h.stopRamp)
	})

	if streams.HTTP != nil {
		r.Get("/stream", streams.HTTP.ServeHTTP)
	}
	if streams.WebRTC != nil {
		r.Post("/offer", streams.WebRTC.ServeHTTP)
	}
	return r
}

func (h *handlers) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (h *handlers) status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.app.Status())
}

func (h *handlers) start(w http.ResponseWriter, r *http.Request) {
	h.respond(w, h.app.Start())
}

func (h *handlers) stop(w http.ResponseWriter, r *http.Request) {
	h.respond(w, h.app.Stop())
}

func (h *handlers) toggle(w http.ResponseWriter, r *http.Request) {
	h.respond(w, h.app.Toggle())
}

func (h *handlers) setBPM(w http.ResponseWriter, r *http.Request) {
	var req struct {
		BPM *int `json:"bpm"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.BPM == nil {
		writeError(w, http.StatusBadRequest, "bpm required")
		return
	}
	h.respond(w, h.app.SetBPM(*req.BPM))
}

func (h *handlers) setPattern(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Pattern string `json:"pattern"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "pattern required")
		return
	}
	h.respond(w, h.app.SetPattern(req.Pattern))
}

func (h *handlers) setRamp(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Step  int     `json:"step"`
		Every float64 `json:"every"` // seconds
		Max   int     `json:"max"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "step, every and max required")
		return
	}
	h.respond(w, h.app.Ramp(trainer.Settings{
		Step:  req.Step,
		Every: time.Duration(req.Every * float64(time.Second)),
		Max:   req.Max,
	}))
}

func (h *handlers) stopRamp(w http.ResponseWriter, r *http.Request) {
	h.app.StopRamp()
	h.respond(w, nil)
}

// respond writes the resulting status, or maps err to an HTTP error.
// Starting a running metronome or stopping a stopped one is not an error.
func (h *handlers) respond(w http.ResponseWriter, err error) {
	if err != nil && !errors.Is(err, player.ErrAlreadyRunning) && !errors.Is(err, player.ErrNotRunning) {
		code := statusCode(err)
		if code >= http.StatusInternalServerError {
			h.logger.Warn("api command failed", zap.Error(err))
		}
		writeError(w, code, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "status": h.app.Status()})
}

func statusCode(err error) int {
	switch {
	case errors.Is(err, metronome.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, player.ErrEmptyPattern):
		return http.StatusConflict
	case errors.Is(err, player.ErrDeviceInit):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]any{"ok": false, "error": msg})
}

// requestLogger logs one line per request. Long-lived audio streams are
// logged when they end.
func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Debug("http request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
				zap.String("remote", r.RemoteAddr),
			)
		})
	}
}

// Package web provides the HTTP surface of the SignBridge server: the REST
// API used by presenter and viewer clients, the /ws streaming endpoint, and
// the operational endpoints (/healthz, /readyz, /metrics).
package web

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MrWong99/signbridge/internal/health"
	"github.com/MrWong99/signbridge/internal/observe"
	"github.com/MrWong99/signbridge/internal/signs"
	"github.com/MrWong99/signbridge/internal/stream"
	"github.com/MrWong99/signbridge/pkg/provider/stt"
)

// maxUploadBytes caps the audio segment size accepted by /api/transcribe.
// Groq's Whisper endpoint rejects files over 25 MB, so there is no point
// buffering more than that.
const maxUploadBytes = 25 << 20

// Server wires the REST handlers, the WebSocket gateway, and the health and
// metrics endpoints into a single [http.Handler].
type Server struct {
	coord   *stream.Coordinator
	gateway http.Handler
	lookup  *signs.Lookup
	stt     stt.Provider
	metrics *observe.Metrics
	health  *health.Handler
}

// Config holds the collaborators for [NewServer]. Coordinator, Gateway,
// Lookup, and Metrics are required; STT and Health are optional.
type Config struct {
	Coordinator *stream.Coordinator
	Gateway     http.Handler
	Lookup      *signs.Lookup
	Metrics     *observe.Metrics

	// STT is the speech-to-text backend for /api/transcribe. When nil the
	// endpoint responds 503; clients fall back to browser transcription.
	STT stt.Provider

	// Health serves /healthz and /readyz. When nil a checker-less handler
	// is used, so both probes always pass.
	Health *health.Handler
}

// NewServer validates cfg and builds the server.
func NewServer(cfg Config) (*Server, error) {
	switch {
	case cfg.Coordinator == nil:
		return nil, errors.New("web: coordinator is required")
	case cfg.Gateway == nil:
		return nil, errors.New("web: gateway is required")
	case cfg.Lookup == nil:
		return nil, errors.New("web: sign lookup is required")
	case cfg.Metrics == nil:
		return nil, errors.New("web: metrics is required")
	}
	h := cfg.Health
	if h == nil {
		h = health.New()
	}
	return &Server{
		coord:   cfg.Coordinator,
		gateway: cfg.Gateway,
		lookup:  cfg.Lookup,
		stt:     cfg.STT,
		metrics: cfg.Metrics,
		health:  h,
	}, nil
}

// Handler returns the fully routed handler. All routes except /metrics go
// through the observability middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("GET /api/viewers", s.handleViewers)
	mux.HandleFunc("GET /api/signs/{language}", s.handleSigns)
	mux.HandleFunc("GET /api/signs/{language}/suggest", s.handleSuggest)
	mux.HandleFunc("POST /api/transcribe", s.handleTranscribe)
	mux.Handle("GET /ws", s.gateway)
	s.health.Register(mux)

	wrapped := observe.Middleware(s.metrics)(mux)

	// Scrapes bypass the middleware so Prometheus does not trace itself.
	outer := http.NewServeMux()
	outer.Handle("GET /metrics", promhttp.Handler())
	outer.Handle("/", wrapped)
	return outer
}

// healthResponse is the JSON body for GET /api/health.
type healthResponse struct {
	Status         string    `json:"status"`
	ActiveSessions int       `json:"activeSessions"`
	Viewers        int       `json:"viewers"`
	STTConfigured  bool      `json:"sttConfigured"`
	Timestamp      time.Time `json:"timestamp"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:         "ok",
		ActiveSessions: s.coord.SessionCount(),
		Viewers:        s.coord.ViewerCount(),
		STTConfigured:  s.stt != nil,
		Timestamp:      time.Now().UTC(),
	})
}

func (s *Server) handleViewers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]int{"viewers": s.coord.ViewerCount()})
}

// signsResponse is the JSON body for GET /api/signs/{language}.
type signsResponse struct {
	Language string   `json:"language"`
	Tokens   []string `json:"tokens"`
}

func (s *Server) handleSigns(w http.ResponseWriter, r *http.Request) {
	language := r.PathValue("language")
	tokens := s.lookup.Available(language)
	if tokens == nil {
		tokens = []string{}
	}
	writeJSON(w, http.StatusOK, signsResponse{Language: language, Tokens: tokens})
}

// suggestResponse is the JSON body for GET /api/signs/{language}/suggest.
type suggestResponse struct {
	Token      string `json:"token"`
	Suggestion string `json:"suggestion,omitempty"`
	Found      bool   `json:"found"`
}

func (s *Server) handleSuggest(w http.ResponseWriter, r *http.Request) {
	language := r.PathValue("language")
	token := r.URL.Query().Get("token")
	if token == "" {
		http.Error(w, "token query parameter is required", http.StatusBadRequest)
		return
	}

	suggestion, ok := s.lookup.Suggest(token, language)
	writeJSON(w, http.StatusOK, suggestResponse{
		Token:      token,
		Suggestion: suggestion,
		Found:      ok,
	})
}

// transcribeResponse is the JSON body for POST /api/transcribe.
type transcribeResponse struct {
	Text string `json:"text"`
}

// handleTranscribe accepts a multipart upload with an "audio" file part and
// an optional "language" field, and returns the transcript. A backend
// failure is surfaced as 502 so the client can tell the user instead of
// captioning silence.
func (s *Server) handleTranscribe(w http.ResponseWriter, r *http.Request) {
	if s.stt == nil {
		http.Error(w, "transcription backend not configured", http.StatusServiceUnavailable)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, header, err := r.FormFile("audio")
	if err != nil {
		http.Error(w, "audio file part is required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	audio, err := io.ReadAll(file)
	if err != nil {
		http.Error(w, "failed to read audio: "+err.Error(), http.StatusBadRequest)
		return
	}

	start := time.Now()
	text, err := s.stt.Transcribe(r.Context(), stt.Request{
		Audio:    audio,
		Filename: header.Filename,
		Language: r.FormValue("language"),
	})
	s.metrics.TranscribeDuration.Record(r.Context(), time.Since(start).Seconds())
	if err != nil {
		s.metrics.RecordProviderError(r.Context(), "stt", "transcribe")
		slog.Error("transcription failed", "error", err, "bytes", len(audio))
		http.Error(w, "transcription failed: "+err.Error(), http.StatusBadGateway)
		return
	}

	writeJSON(w, http.StatusOK, transcribeResponse{Text: text})
}

// writeJSON encodes v and writes it with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

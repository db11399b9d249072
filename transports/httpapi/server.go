package httpapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"voicebridge/core"
	contexthandler "voicebridge/handlers/context"
	"voicebridge/handlers/turn"
	"voicebridge/metrics"

	"github.com/bytedance/sonic"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Response headers carrying turn metadata next to the WAV body.
const (
	HeaderSessionID  = "X-Session-Id"
	HeaderTurnID     = "X-Turn-Id"
	HeaderTurnStatus = "X-Turn-Status"
	HeaderTurnSilent = "X-Turn-Silent"
	HeaderTranscript = "X-Transcript"
	HeaderReply      = "X-Reply"
)

// TurnRunner runs one voice turn.
type TurnRunner interface {
	Run(ctx context.Context, req turn.TurnRequest) (*turn.TurnResult, error)
}

// SessionStore is the part of the conversation store the API exposes.
type SessionStore interface {
	HistoryFor(session string) []core.LLMMessage
	Reset(session string)
	Len() int
}

type Config struct {
	Addr            string
	MaxCaptureBytes int64
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
}

func DefaultConfig() Config {
	return Config{
		Addr:            ":8080",
		MaxCaptureBytes: 10 << 20,
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    2 * time.Minute,
	}
}

// Server is the device-facing HTTP API.
type Server struct {
	config    Config
	runner    TurnRunner
	store     SessionStore
	metrics   *metrics.Metrics
	websocket http.Handler
	logger    *core.Logger
	server    *http.Server
	listener  net.Listener
	startTime time.Time
}

// NewServer builds the routes. m may be nil; ws, when set, is mounted at /ws.
func NewServer(config Config, runner TurnRunner, store SessionStore, m *metrics.Metrics, ws http.Handler, logger *core.Logger) *Server {
	if config.MaxCaptureBytes <= 0 {
		config.MaxCaptureBytes = DefaultConfig().MaxCaptureBytes
	}
	if logger == nil {
		logger = core.GetLogger()
	}
	s := &Server{
		config:    config,
		runner:    runner,
		store:     store,
		metrics:   m,
		websocket: ws,
		logger:    logger.With(map[string]any{"component": "http"}),
		startTime: time.Now(),
	}
	s.server = &http.Server{
		Addr:         config.Addr,
		Handler:      s.Handler(),
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Handler returns the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /turn", s.withMetrics("/turn", s.handleTurn))
	mux.HandleFunc("GET /sessions/{id}", s.withMetrics("/sessions/{id}", s.handleSessionHistory))
	mux.HandleFunc("DELETE /sessions/{id}", s.withMetrics("/sessions/{id}", s.handleSessionReset))
	mux.HandleFunc("GET /health", s.withMetrics("/health", s.handleHealth))
	mux.Handle("GET /metrics", promhttp.Handler())
	if s.websocket != nil {
		mux.Handle("GET /ws", s.websocket)
	}
	return mux
}

// Start binds the listener and serves in the background.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		return fmt.Errorf("httpapi: listen %s: %w", s.config.Addr, err)
	}
	s.listener = ln
	s.logger.With(map[string]any{"address": ln.Addr().String()}).Info("HTTP server listening")

	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.With(map[string]any{"error": err}).Error("HTTP server error")
		}
	}()
	return nil
}

// Addr is the bound address once Start has returned.
func (s *Server) Addr() string {
	if s.listener == nil {
		return s.config.Addr
	}
	return s.listener.Addr().String()
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping HTTP server...")
	return s.server.Shutdown(ctx)
}

// withMetrics wraps an HTTP handler with metrics collection
func (s *Server) withMetrics(endpoint string, handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		startTime := time.Now()
		ww := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		handler(ww, r)
		if s.metrics != nil {
			s.metrics.RecordHTTPRequest(r.Method, endpoint, ww.statusCode, time.Since(startTime))
		}
	}
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

type errorResponse struct {
	Error      string              `json:"error"`
	TurnID     string              `json:"turn_id,omitempty"`
	Status     turn.Status         `json:"status,omitempty"`
	Transcript string              `json:"transcript,omitempty"`
	Reply      string              `json:"reply,omitempty"`
	Failures   []turn.StageFailure `json:"failures,omitempty"`
}

func (s *Server) handleTurn(w http.ResponseWriter, r *http.Request) {
	session := r.Header.Get(HeaderSessionID)
	if session == "" {
		session = r.URL.Query().Get("session")
	}

	capture, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.config.MaxCaptureBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse{
				Error: fmt.Sprintf("capture exceeds %d bytes", tooLarge.Limit),
			})
			return
		}
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "failed to read capture"})
		return
	}

	result, err := s.runner.Run(r.Context(), turn.TurnRequest{SessionID: session, Audio: capture})
	if s.metrics != nil {
		s.metrics.SetSessions(s.store.Len())
	}
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, turn.ErrSynthesisFailed) {
			status = http.StatusBadGateway
		}
		resp := errorResponse{Error: err.Error()}
		if result != nil {
			resp.TurnID = result.TurnID
			resp.Status = result.Status
			resp.Transcript = result.Transcript
			resp.Reply = result.Reply
			resp.Failures = result.Failures
		}
		writeJSON(w, status, resp)
		return
	}

	h := w.Header()
	h.Set("Content-Type", "audio/wav")
	h.Set("Content-Length", strconv.Itoa(result.ContentLength))
	h.Set(HeaderSessionID, result.SessionID)
	h.Set(HeaderTurnID, result.TurnID)
	h.Set(HeaderTurnStatus, string(result.Status))
	h.Set(HeaderTurnSilent, strconv.FormatBool(result.Silent()))
	h.Set(HeaderTranscript, url.PathEscape(result.Transcript))
	h.Set(HeaderReply, url.PathEscape(result.Reply))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(result.Audio); err != nil {
		s.logger.With(map[string]any{"turn_id": result.TurnID, "error": err}).Warn("failed to write turn audio")
	}
}

type historyResponse struct {
	SessionID string            `json:"session_id"`
	Turns     []core.LLMMessage `json:"turns"`
}

func (s *Server) handleSessionHistory(w http.ResponseWriter, r *http.Request) {
	session := contexthandler.NormalizeSessionID(r.PathValue("id"))
	writeJSON(w, http.StatusOK, historyResponse{SessionID: session, Turns: s.store.HistoryFor(session)})
}

func (s *Server) handleSessionReset(w http.ResponseWriter, r *http.Request) {
	s.store.Reset(contexthandler.NormalizeSessionID(r.PathValue("id")))
	if s.metrics != nil {
		s.metrics.SetSessions(s.store.Len())
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "healthy",
		"uptime":   time.Since(s.startTime).Round(time.Second).String(),
		"sessions": s.store.Len(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := sonic.Marshal(v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"runtime/debug"
	"sync"
	"time"

	"go.uber.org/zap"

	"docinsight/internal/apperr"
	"docinsight/internal/config"
	"docinsight/internal/llm"
	"docinsight/internal/pipeline"
	"docinsight/internal/session"
)

const (
	sessionCookie = "docinsight_session"
	sessionHeader = "X-Session-ID"
)

// Server holds all shared state.
type Server struct {
	mu       sync.RWMutex
	cfg      *config.Config
	settings *config.SettingsStore

	sessions *session.Store
	analyzer *pipeline.Analyzer
	events   *eventHub
	logger   *zap.Logger
}

// newServer wires the pipeline around provider, which may be nil when no
// API key is configured yet.
func newServer(cfg *config.Config, settings *config.SettingsStore, provider llm.Provider, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	events := newEventHub(logger)
	return &Server{
		cfg:      cfg,
		settings: settings,
		sessions: session.NewStore(cfg.SessionTTL),
		analyzer: pipeline.New(provider, pipeline.Options{
			ChunkWords:       cfg.ChunkWords,
			SummaryMaxTokens: cfg.SummaryMaxTokens,
			AnswerMaxTokens:  cfg.AnswerMaxTokens,
			Progress:         events.publish,
			Logger:           logger,
		}),
		events: events,
		logger: logger,
	}
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/upload", s.handleUpload)
	mux.HandleFunc("/api/session", s.handleSession)
	mux.HandleFunc("/api/search", s.handleSearch)

	mux.HandleFunc("/api/query", s.handleQuery)
	mux.HandleFunc("/api/history/clear", s.handleClearHistory)

	mux.HandleFunc("/api/settings", s.handleSettings)
	mux.HandleFunc("/api/providers", s.handleProviders)
	mux.HandleFunc("/api/health", s.handleHealth)

	mux.HandleFunc("/api/events", s.handleEvents)

	mux.Handle("/", http.FileServer(http.FS(webFS())))

	return s.recoverMiddleware(s.logMiddleware(corsMiddleware(mux)))
}

// ========== Middleware ==========

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, "+sessionHeader)
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// recoverMiddleware turns a handler panic into a 500 response.
func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				s.logger.Error("handler panic",
					zap.String("path", r.URL.Path),
					zap.Any("panic", rec),
					zap.ByteString("stack", debug.Stack()))
				jsonErr(w, "Internal server error", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Unwrap exposes the underlying writer to http.ResponseController.
func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

func (s *Server) logMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/events" {
			next.ServeHTTP(w, r)
			return
		}
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("took", time.Since(start)))
	})
}

// ========== Helpers ==========

func jsonResp(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func jsonErr(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// statusFor maps pipeline errors onto HTTP status codes.
func statusFor(err error) int {
	var tooBig *http.MaxBytesError
	if errors.As(err, &tooBig) {
		return http.StatusRequestEntityTooLarge
	}
	switch apperr.Kind(err) {
	case "UnsupportedFormat", "InvalidInput":
		return http.StatusBadRequest
	case "ExtractionFailed":
		return http.StatusUnprocessableEntity
	case "SummarizationFailed", "RemoteCallFailed":
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusFor(err))
	json.NewEncoder(w).Encode(map[string]string{
		"error": apperr.UserMessage(err),
		"kind":  apperr.Kind(err),
	})
}

// session resolves the caller's session from the header or cookie, creating
// one (and setting the cookie) when none is live.
func (s *Server) session(w http.ResponseWriter, r *http.Request) *session.Session {
	id := r.Header.Get(sessionHeader)
	if id == "" {
		if c, err := r.Cookie(sessionCookie); err == nil {
			id = c.Value
		}
	}
	sess, created := s.sessions.GetOrCreate(id)
	if created {
		http.SetCookie(w, &http.Cookie{
			Name:     sessionCookie,
			Value:    sess.ID,
			Path:     "/",
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
		s.logger.Debug("session created", zap.String("session", sess.ID))
	}
	w.Header().Set(sessionHeader, sess.ID)
	return sess
}

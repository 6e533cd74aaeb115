package api

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/JakeFAU/progress-service/internal/id/uuid"
	"github.com/JakeFAU/progress-service/internal/metrics"
	"github.com/JakeFAU/progress-service/internal/progress"
	"github.com/JakeFAU/progress-service/internal/telemetry"
)

// DefaultAllowedOrigin is the single browser origin permitted to call the API.
const DefaultAllowedOrigin = "https://starfox1230.github.io"

const (
	defaultRequestTimeout = 30 * time.Second
	requestIDHeader       = "X-Request-ID"
)

// ProgressService is the domain surface the handlers depend on.
type ProgressService interface {
	GetProgress(ctx context.Context) (progress.Document, error)
	UpdateProgress(ctx context.Context, category string, value float64) (progress.Document, error)
	ResetProgress(ctx context.Context) (progress.Document, error)
	Ready(ctx context.Context) error
}

// IDGenerator mints request identifiers.
type IDGenerator interface {
	NewID() (string, error)
}

// Options tunes the HTTP surface.
type Options struct {
	// AllowedOrigin is the only origin granted CORS access.
	AllowedOrigin string
	// RequestTimeout bounds each request's context.
	RequestTimeout time.Duration
	// Feed enables GET /watchProgress when set.
	Feed ChangeFeed
	// IDs mints request IDs when the caller sends none (default UUIDv7).
	IDs    IDGenerator
	Logger *zap.Logger
}

// Server wires HTTP handlers to the progress service.
type Server struct {
	router   chi.Router
	svc      ProgressService
	feed     ChangeFeed
	update   *updateValidator
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(svc ProgressService, opts Options) (*Server, error) {
	if svc == nil {
		return nil, errors.New("api: progress service is required")
	}
	if opts.AllowedOrigin == "" {
		opts.AllowedOrigin = DefaultAllowedOrigin
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = defaultRequestTimeout
	}
	if opts.IDs == nil {
		opts.IDs = uuid.NewUUIDGenerator()
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	validator, err := newUpdateValidator()
	if err != nil {
		return nil, err
	}
	s := &Server{
		svc:      svc,
		feed:     opts.Feed,
		update:   validator,
		upgrader: newUpgrader(opts.AllowedOrigin),
		logger:   logger,
	}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware(opts.IDs))
	r.Use(telemetry.Middleware(nil))
	r.Use(loggingMiddleware(logger))
	r.Use(recoverMiddleware(logger))
	r.Use(metrics.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{opts.AllowedOrigin},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
		ExposedHeaders: []string{requestIDHeader},
		MaxAge:         300,
	}))
	r.Use(timeoutMiddleware(opts.RequestTimeout))

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Get("/getProgress", s.getProgress)
	r.Post("/updateProgress", s.updateProgress)
	r.Post("/resetProgress", s.resetProgress)
	if s.feed != nil {
		r.Get("/watchProgress", s.watchProgress)
	}

	s.router = r
	return s, nil
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Ready(r.Context()); err != nil {
		s.logger.Warn("readiness check failed", zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, "store unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// requestIDMiddleware honours a well-formed inbound X-Request-ID and mints one
// otherwise.
func requestIDMiddleware(ids IDGenerator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqID := r.Header.Get(requestIDHeader)
			if !uuid.Valid(reqID) {
				id, err := ids.NewID()
				if err != nil {
					zap.L().Warn("request id generation failed", zap.Error(err))
				}
				reqID = id
			}
			ctx := progress.WithRequestID(r.Context(), reqID)
			if reqID != "" {
				w.Header().Set(requestIDHeader, reqID)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func loggingMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(ww, r)
			logger.Info("request completed",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.status),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", progress.RequestIDFromContext(r.Context())),
			)
		})
	}
}

func recoverMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					if rec == http.ErrAbortHandler {
						panic(rec)
					}
					logger.Error("panic recovered",
						zap.Any("panic", rec),
						zap.String("path", r.URL.Path),
						zap.Stack("stack"),
					)
					writeError(w, http.StatusInternalServerError, msgInternal)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// timeoutMiddleware bounds the request context. Handlers observe the deadline
// through the service, which reports it as an internal failure.
func timeoutMiddleware(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), d)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	if err != nil {
		return n, fmt.Errorf("write response: %w", err)
	}
	return n, nil
}

func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if h, ok := rw.ResponseWriter.(http.Hijacker); ok {
		conn, buf, err := h.Hijack()
		if err != nil {
			return nil, nil, fmt.Errorf("hijack connection: %w", err)
		}
		return conn, buf, nil
	}
	return nil, nil, errors.New("hijacker not supported")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		zap.L().Error("write JSON failed", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// Package server exposes the REST and WebSocket API.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/SebastienCoste/RealTimeSpeechValidation/internal/factcheck"
	"github.com/SebastienCoste/RealTimeSpeechValidation/internal/model"
	"github.com/SebastienCoste/RealTimeSpeechValidation/internal/pipeline"
	"github.com/SebastienCoste/RealTimeSpeechValidation/internal/store"
	"github.com/SebastienCoste/RealTimeSpeechValidation/internal/ws"
	"github.com/SebastienCoste/RealTimeSpeechValidation/internal/youtube"
)

const maxBodyBytes = 1 << 20

// Deps are the components the API serves
type Deps struct {
	Pipeline  *pipeline.Pipeline
	Checker   *factcheck.Checker
	Store     store.Store
	Processor *youtube.Processor
	Hub       *ws.Hub

	// OpenAIConfigured reports whether Whisper transcription has a key
	OpenAIConfigured bool
}

// Server routes HTTP requests to the fact-check pipeline and YouTube processor
type Server struct {
	router chi.Router
	deps   Deps
	cfg    model.ServerConfig
	logger *zap.Logger
}

// NewServer builds the router
func NewServer(cfg model.ServerConfig, deps Deps, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		router: chi.NewRouter(),
		deps:   deps,
		cfg:    cfg,
		logger: logger,
	}
	s.routes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	origins := s.cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(requestLogger(s.logger))
	s.router.Use(middleware.Recoverer)
	s.router.Use(cors.Handler(cors.Options{
		AllowOriginFunc:  allowOrigin(origins),
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	s.router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, s.logger, http.StatusNotFound, errors.New("not found"))
	})
	s.router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, s.logger, http.StatusMethodNotAllowed, errors.New("method not allowed"))
	})

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Post("/fact-check", s.handleFactCheck)
		r.Post("/transcription", s.handleTranscription)
		r.Get("/sessions/{session_id}/fact-checks", s.handleSessionFactChecks)

		r.Route("/youtube", func(r chi.Router) {
			r.Post("/set-video", s.handleSetVideo)
			r.Post("/start-processing", s.handleStartProcessing)
			r.Post("/stop-processing", s.handleStopProcessing)
			r.Get("/current-session", s.handleCurrentSession)
			r.Get("/status", s.handleYouTubeStatus)
			r.Get("/sessions/{video_id}/fact-checks", s.handleVideoFactChecks)
		})
	})

	s.router.Get("/ws/youtube-live", s.handleYouTubeSocket)
	s.router.Get("/ws/{session_id}", s.handleSessionSocket)
}

// allowOrigin mirrors any origin when "*" is configured, which keeps
// credentialed requests working
func allowOrigin(origins []string) func(*http.Request, string) bool {
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		if o == "*" {
			return func(*http.Request, string) bool { return true }
		}
		allowed[o] = true
	}
	return func(_ *http.Request, origin string) bool {
		return allowed[origin]
	}
}

// ListenAndServe serves on cfg.Addr until ctx is cancelled
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.cfg.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled, then shuts the
// HTTP server down and stops background work
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	httpServer := &http.Server{
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       s.cfg.ReadTimeout,
		WriteTimeout:      s.cfg.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.logger.Info("server listening", zap.String("addr", ln.Addr().String()))
		if err := httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()

		timeout := s.cfg.ShutdownTimeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		s.logger.Info("shutting down server")
		err := httpServer.Shutdown(shutdownCtx)

		if s.deps.Processor != nil {
			s.deps.Processor.Close()
		}
		if s.deps.Hub != nil {
			s.deps.Hub.Close()
		}
		if err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	})

	return g.Wait()
}

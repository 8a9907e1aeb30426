// Package server exposes the orchestrator over HTTP: the JSON API the web
// dashboard calls, the websocket chat stream, and the Twilio voice webhooks.
// Every surface funnels into the same Orchestrator.Process call, which is
// what keeps the channels' answers identical.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jarvis-assistant/jarvis/internal/agent"
	"github.com/jarvis-assistant/jarvis/internal/auth"
	"github.com/jarvis-assistant/jarvis/internal/config"
	"github.com/jarvis-assistant/jarvis/internal/tools"
)

// Server holds the HTTP surface and its collaborators.
type Server struct {
	orch     *agent.Orchestrator
	auth     *auth.Aggregator
	registry *tools.Registry
	limiter  *Limiter

	port            int
	publicURL       string
	twilioAuthToken string
	metricsEnabled  bool
}

// New wires the server from config.
func New(cfg *config.Config, orch *agent.Orchestrator, agg *auth.Aggregator, registry *tools.Registry) *Server {
	return &Server{
		orch:     orch,
		auth:     agg,
		registry: registry,
		limiter: NewLimiter(
			cfg.Security.RateLimitPerMin,
			cfg.Security.LockoutThreshold,
			time.Duration(cfg.Security.LockoutMinutes)*time.Minute,
		),
		port:            cfg.Server.Port,
		publicURL:       cfg.Server.PublicURL,
		twilioAuthToken: cfg.Security.TwilioAuthToken,
		metricsEnabled:  cfg.Server.MetricsEnabled,
	}
}

// Limiter exposes the rate limiter for the pruning cron job.
func (s *Server) Limiter() *Limiter { return s.limiter }

// Handler builds the route table with middleware applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/jarvis/process", s.rateLimitByIP(s.handleProcess))
	mux.HandleFunc("GET /api/jarvis/stream", s.handleStream)
	mux.HandleFunc("GET /api/jarvis/health", s.handleHealth)
	mux.HandleFunc("GET /api/jarvis/auth-status", s.handleAuthStatus)
	mux.HandleFunc("GET /api/jarvis/capabilities", s.handleCapabilities)

	mux.HandleFunc("POST /webhook/voice", s.requireTwilioSignature(s.handleVoice))
	mux.HandleFunc("POST /webhook/process-speech", s.requireTwilioSignature(s.handleProcessSpeech))

	if s.metricsEnabled {
		mux.Handle("GET /metrics", promhttp.Handler())
	}

	return secureHeaders(limitBody(mux))
}

// Start runs the HTTP server until ctx is cancelled, then shuts it down
// gracefully.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.port),
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server listening", "addr", srv.Addr, "metrics", s.metricsEnabled)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	slog.Info("http server stopped")
	return <-errCh
}

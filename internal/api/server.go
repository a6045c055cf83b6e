package api

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/connectedopslab/fleet-engine/internal/config"
	"github.com/connectedopslab/fleet-engine/internal/services"
)

// Server wraps the HTTP server implementation and lifecycle helpers.
type Server struct {
	cfg        config.ServerConfig
	logger     *slog.Logger
	httpServer *http.Server
	listener   net.Listener
	hub        *StreamHub
}

// NewServer constructs an HTTP server bound to the configured address with
// the full route table and middleware installed.
func NewServer(cfg config.ServerConfig, logger *slog.Logger, service *services.TelemetryService) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}

	lis, err := net.Listen("tcp", cfg.Address)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", cfg.Address, err)
	}

	hub := NewStreamHub(logger)
	service.SetBroadcaster(hub)

	handlers := NewHandlers(logger, service)

	router := mux.NewRouter()
	router.Use(requestIDMiddleware)
	router.Use(accessLogMiddleware(logger))

	router.HandleFunc("/telemetry", handlers.Ingest).Methods(http.MethodPost)
	router.HandleFunc("/telemetry", handlers.ReadRecent).Methods(http.MethodGet)
	router.HandleFunc("/assessments", handlers.Assessments).Methods(http.MethodGet)
	router.HandleFunc("/fleet/summary", handlers.FleetSummary).Methods(http.MethodGet)
	router.HandleFunc("/simulate_anomaly", handlers.InjectAnomaly).Methods(http.MethodPost)
	router.HandleFunc("/scenario", handlers.Scenario).Methods(http.MethodGet)
	router.HandleFunc("/scenario/reset", handlers.ResetScenario).Methods(http.MethodPost)
	router.HandleFunc("/anomaly_stats", handlers.AnomalyStats).Methods(http.MethodGet)
	router.HandleFunc("/costs", handlers.Costs).Methods(http.MethodGet)
	router.HandleFunc("/healthz", handlers.Health).Methods(http.MethodGet)
	router.HandleFunc("/ws/telemetry", hub.ServeWS).Methods(http.MethodGet)

	httpServer := &http.Server{
		Handler:      router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	return &Server{
		cfg:        cfg,
		logger:     logger,
		httpServer: httpServer,
		listener:   lis,
		hub:        hub,
	}, nil
}

// Start serves incoming requests until Shutdown is invoked. The stream hub
// runs for the lifetime of the server.
func (s *Server) Start() error {
	if s.httpServer == nil || s.listener == nil {
		return fmt.Errorf("server not initialised")
	}
	go s.hub.Run()
	return s.httpServer.Serve(s.listener)
}

// Shutdown attempts a graceful shutdown, falling back to Close after the
// context expires.
func (s *Server) Shutdown(ctx context.Context) {
	if s.httpServer == nil {
		return
	}
	s.hub.Stop()
	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.httpServer.Close()
	}
}

// Address exposes the bound listener address (useful for tests).
func (s *Server) Address() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// GracefulTimeout returns the configured graceful timeout duration.
func (s *Server) GracefulTimeout() time.Duration {
	return s.cfg.GracefulTimeout
}

// requestIDMiddleware tags every request with an id for log correlation and
// echoes it back to the caller.
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", requestID)
		next.ServeHTTP(w, r.WithContext(withRequestID(r.Context(), requestID)))
	})
}

// accessLogMiddleware emits one debug line per request with the correlation
// id. The WebSocket upgrade path is skipped; its lifecycle is logged by the
// hub instead.
func accessLogMiddleware(logger *slog.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)
			if r.URL.Path == "/ws/telemetry" {
				return
			}
			logger.Debug("request handled",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Duration("elapsed", time.Since(start)),
				slog.String("request_id", RequestID(r.Context())),
			)
		})
	}
}

type requestIDKey struct{}

func withRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestID extracts the request id installed by the middleware.
func RequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok {
		return id
	}
	return ""
}

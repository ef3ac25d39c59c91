// Package httpapi exposes the scan service over HTTP: submission, status,
// score history, health and Prometheus metrics.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/sawpanic/tokensleuth/internal/domain"
	"github.com/sawpanic/tokensleuth/internal/pipeline"
	"github.com/sawpanic/tokensleuth/internal/store"
)

// Service is the pipeline surface the API depends on
type Service interface {
	Submit(ctx context.Context, req pipeline.SubmitRequest) (*domain.ScanJob, error)
	Status(ctx context.Context, requestID string) (*domain.ScanJob, *domain.RiskScore, error)
	QueueDepths() map[domain.Chain]int
}

// Config holds the server listen and timeout settings
type Config struct {
	Addr           string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	RequestTimeout time.Duration

	// Diagnostics, when set, contributes extra sections to /health
	// (reservoir state, worker counts)
	Diagnostics func() map[string]interface{}
}

// DefaultConfig returns the local-only default server configuration
func DefaultConfig() Config {
	return Config{
		Addr:           "127.0.0.1:8080",
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Second,
		IdleTimeout:    60 * time.Second,
		RequestTimeout: 5 * time.Second,
	}
}

// Server is the HTTP front end
type Server struct {
	router  *mux.Router
	server  *http.Server
	service Service
	scores  store.Scores
	config  Config
}

// NewServer wires routes and middleware over the pipeline and score store
func NewServer(service Service, scores store.Scores, config Config) *Server {
	s := &Server{
		router:  mux.NewRouter(),
		service: service,
		scores:  scores,
		config:  config,
	}
	s.routes()
	s.server = &http.Server{
		Addr:         config.Addr,
		Handler:      s.router,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		IdleTimeout:  config.IdleTimeout,
	}
	return s
}

func (s *Server) routes() {
	s.router.Use(s.requestIDMiddleware)
	s.router.Use(s.loggingMiddleware)
	s.router.Use(s.timeoutMiddleware)

	api := s.router.PathPrefix("/").Subrouter()
	api.Use(jsonContentTypeMiddleware)
	api.HandleFunc("/scan", s.handleSubmit).Methods(http.MethodPost)
	api.HandleFunc("/scan/history", s.handleHistory).Methods(http.MethodGet)
	api.HandleFunc("/scan/{requestID}", s.handleStatus).Methods(http.MethodGet)
	api.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	s.router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	s.router.NotFoundHandler = http.HandlerFunc(s.handleNotFound)
}

// Handler exposes the routed handler, for tests
func (s *Server) Handler() http.Handler { return s.router }

// Start serves until the listener fails or Shutdown is called
func (s *Server) Start() error {
	log.Info().Str("addr", s.config.Addr).Msg("http server listening")
	return s.server.ListenAndServe()
}

// Shutdown drains in-flight requests
func (s *Server) Shutdown(ctx context.Context) error {
	log.Info().Msg("http server shutting down")
	return s.server.Shutdown(ctx)
}

// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/okian/claimsorted/internal/domain/claim"
	"github.com/okian/claimsorted/pkg/logger"
	"github.com/okian/claimsorted/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const defaultMaxBodyBytes = 1 << 20

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	// Submit validates, computes and saves a claim, returning its id.
	Submit(ctx context.Context, req claim.Request) (int64, error)

	// Quote validates and computes a claim without saving it.
	Quote(ctx context.Context, req claim.Request) ([]claim.AdjustedItem, claim.Breakdown, error)

	// ListRecent returns the most recent calculations, newest first.
	ListRecent(ctx context.Context) ([]claim.Calculation, error)

	// Ready reports whether storage is reachable.
	Ready(ctx context.Context) error
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler *HealthHandler
	statsHandler  *StatsHandler
	claimsHandler *ClaimsHandler

	metrics      *metrics.Manager
	gatherer     prometheus.Gatherer
	logger       logger.Logger
	maxBodyBytes int64
}

// Option applies a configuration option to the Server.
type Option func(*Server)

// WithMetrics records HTTP metrics on m and serves gatherer on /metrics.
func WithMetrics(m *metrics.Manager, gatherer prometheus.Gatherer) Option {
	return func(s *Server) {
		if m != nil {
			s.metrics = m
		}
		if gatherer != nil {
			s.gatherer = gatherer
		}
	}
}

// WithLogger sets the request logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMaxBodyBytes caps request bodies.
func WithMaxBodyBytes(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxBodyBytes = n
		}
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...Option) *Server {
	s := &Server{
		metrics:      metrics.Default(),
		gatherer:     metrics.GetRegistry(),
		maxBodyBytes: defaultMaxBodyBytes,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get()
	}

	s.healthHandler = NewHealthHandler(deps)
	s.statsHandler = NewStatsHandler(statsProvider)
	s.claimsHandler = NewClaimsHandler(deps, s.logger)
	return s
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	// Specific paths first (most specific to least specific)
	mux.Handle("/claim-calc/quote", s.wrap(s.claimsHandler.HandleQuote, "claim-calc-quote"))
	mux.Handle("/claim-calc", s.wrap(s.claimsHandler.HandleClaimCalc, "claim-calc"))
	mux.Handle("/healthz", s.wrap(s.healthHandler.HandleHealth, "healthz"))
	mux.Handle("/stats", s.wrap(s.statsHandler.HandleStats, "stats"))
	mux.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
}

// wrap applies the middleware chain, outermost first: request id, metrics, body limit.
func (s *Server) wrap(h http.HandlerFunc, endpoint string) http.Handler {
	return RequestIDMiddleware(
		MetricsMiddleware(
			BodyLimitMiddleware(h, s.maxBodyBytes),
			endpoint, s.metrics,
		),
	)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	if message == "" {
		message = http.StatusText(status)
	}
	writeJSON(w, status, errorResponse{Code: code, Message: message})
}

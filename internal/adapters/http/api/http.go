// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"golang.org/x/time/rate"

	"github.com/okian/recovery/internal/domain/decay"
	"github.com/okian/recovery/internal/domain/types"
	"github.com/okian/recovery/pkg/logger"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	EstimateDependencies
	CurveDependencies
	LiveDependencies
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler    *HealthHandler
	statsHandler     *StatsHandler
	estimateHandler  *EstimateHandler
	curveHandler     *CurveHandler
	liveHandler      *LiveHandler
	dashboardHandler *dashboardHandler

	limiter     *rate.Limiter
	liveEnabled bool
	logger      logger.Logger
}

// Option applies a configuration option to the Server.
type Option func(*Server)

// WithRateLimit enables a shared token bucket of rps tokens per second.
// A non-positive rps disables limiting.
func WithRateLimit(rps float64, burst int) Option {
	return func(s *Server) {
		if rps <= 0 {
			s.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithLive mounts or hides the /live websocket endpoint.
func WithLive(enabled bool) Option {
	return func(s *Server) {
		s.liveEnabled = enabled
	}
}

// WithLogger sets the logger used by handlers.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...Option) *Server {
	s := &Server{liveEnabled: true}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Named("api")
	}

	s.healthHandler = NewHealthHandler()
	s.statsHandler = NewStatsHandler(statsProvider)
	s.estimateHandler = NewEstimateHandler(deps)
	s.curveHandler = NewCurveHandler(deps)
	s.liveHandler = NewLiveHandler(deps, s.logger)
	s.dashboardHandler = newdashboardHandler()
	return s
}

// Register attaches all HTTP routes to mux. Live sessions are closed when
// ctx is cancelled, since http.Server.Shutdown does not track hijacked
// connections.
func (s *Server) Register(ctx context.Context, mux *http.ServeMux) {
	s.liveHandler.bind(ctx)

	// Specific paths first (most specific to least specific)
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/dashboard", s.dashboardHandler.HandleDashboard)
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/estimate", s.guard("estimate", MetricsMiddleware(s.estimateHandler.HandleEstimate, "estimate")))
	mux.HandleFunc("/curve", s.guard("curve", MetricsMiddleware(s.curveHandler.HandleCurve, "curve")))
	if s.liveEnabled {
		// Not wrapped by MetricsMiddleware: the upgrade needs the raw writer.
		mux.HandleFunc("/live", s.guard("live", s.liveHandler.HandleLive))
	}
}

// guard applies request ids and rate limiting to a business route.
func (s *Server) guard(endpoint string, next http.HandlerFunc) http.HandlerFunc {
	return RequestIDMiddleware(RateLimitMiddleware(s.limiter, endpoint, next))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// writeJSON encodes v before touching the response, so an encoding failure
// still reaches the client as a 500.
func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		status = http.StatusInternalServerError
		body, _ = json.Marshal(errorResponse{Code: "internal_error", Message: Wrap("api.encode", err).Error()})
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(append(body, '\n'))
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// classifyError maps errors returned by Dependencies to a status and body.
func classifyError(op string, err error) (int, errorResponse) {
	switch {
	case errors.Is(err, decay.ErrInvalidParams):
		return http.StatusBadRequest, errorResponse{Code: "invalid_params", Message: WrapKind(op, ErrBadRequest, err).Error()}
	case errors.Is(err, types.ErrInvalidInput):
		return http.StatusBadRequest, errorResponse{Code: "bad_request", Message: WrapKind(op, ErrBadRequest, err).Error()}
	default:
		return http.StatusInternalServerError, errorResponse{Code: "internal_error", Message: Wrap(op, err).Error()}
	}
}

func writeServiceError(w http.ResponseWriter, op string, err error) {
	status, body := classifyError(op, err)
	writeJSON(w, status, body)
}

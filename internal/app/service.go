// Package service provides the estimation service that implements
// the dependencies required by the HTTP API and the CLI.
package service

import (
	"context"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/recovery/internal/domain/curve"
	"github.com/okian/recovery/internal/domain/decay"
	"github.com/okian/recovery/internal/domain/summary"
	"github.com/okian/recovery/internal/domain/types"
	"github.com/okian/recovery/internal/render/theme"
	"github.com/okian/recovery/pkg/logger"
	"github.com/okian/recovery/pkg/metrics"
)

// gradientBands is the number of shaded bands between the threshold and full load.
const gradientBands = 8

// Service evaluates the recovery model with configured defaults.
//
// Evaluation holds no lock: params and sampling bounds are fixed at
// construction and every call owns its own result.
type Service struct {
	mu sync.RWMutex

	// Configuration
	params         decay.Params
	defaultHorizon float64
	maxHorizon     float64
	stepHours      float64
	theme          theme.Theme

	// Counters
	evaluations  atomic.Int64
	rejected     atomic.Int64
	liveSessions atomic.Int64

	// State
	started   bool
	startedAt time.Time

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithParams sets the model parameters used when a request has no overrides.
func WithParams(p decay.Params) Option {
	return func(s *Service) {
		s.params = p
	}
}

// WithHorizon sets the default and maximum curve horizon in hours.
func WithHorizon(defaultHours, maxHours float64) Option {
	return func(s *Service) {
		if maxHours > 0 {
			s.maxHorizon = maxHours
		}
		if defaultHours > 0 {
			s.defaultHorizon = math.Min(defaultHours, s.maxHorizon)
		}
	}
}

// WithStepHours sets the default sampling step.
func WithStepHours(step float64) Option {
	return func(s *Service) {
		if step > 0 {
			s.stepHours = step
		}
	}
}

// WithTheme sets the chart theme served with curves.
func WithTheme(t theme.Theme) Option {
	return func(s *Service) {
		if t.Name != "" {
			s.theme = t
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(logger logger.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		params:         decay.NewParams(decay.WithTauPerIntensity(decay.DashboardTauPerIntensity)),
		defaultHorizon: curve.DefaultHorizonHours,
		maxHorizon:     curve.MaxHorizonHours,
		stepHours:      curve.DefaultStepHours,
		theme:          theme.Light(),
		logger:         nil, // Will be replaced when service starts
	}

	// Apply all options
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start marks the service ready to serve.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if err := s.params.Validate(); err != nil {
		return fmt.Errorf("service params: %w", err)
	}
	if err := s.theme.Validate(); err != nil {
		return fmt.Errorf("service theme: %w", err)
	}

	// Initialize logger if not already set
	if s.logger == nil {
		s.logger = logger.Get()
	}

	s.started = true
	s.startedAt = time.Now()
	s.logger.Info(ctx, "recovery service started",
		logger.Float64("intensityExponent", s.params.IntensityExponent),
		logger.Float64("baseTauHours", s.params.BaseTauHours),
		logger.Float64("tauPerIntensity", s.params.TauPerIntensity),
		logger.Float64("readyFraction", s.params.ReadyFraction),
		logger.Float64("defaultHorizonHours", s.defaultHorizon),
		logger.String("theme", s.theme.Name),
	)

	return nil
}

// Stop shuts down the service.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	s.started = false
	s.logger.Info(context.Background(), "recovery service stopped",
		logger.Int("evaluations", int(s.evaluations.Load())),
	)
}

// Params returns the default model parameters.
func (s *Service) Params() decay.Params { return s.params }

// Theme returns the default chart theme.
func (s *Service) Theme() theme.Theme { return s.theme }

// Estimate evaluates req against the configured defaults.
func (s *Service) Estimate(ctx context.Context, req types.EstimateRequest) (types.EstimateResponse, error) {
	start := time.Now()
	r, err := s.evaluate(ctx, req)
	if err != nil {
		return types.EstimateResponse{}, err
	}

	resp := types.EstimateResponse{
		Result:  r,
		Summary: summary.Build(r),
	}
	if req.IncludeCurve {
		series, err := s.sample(ctx, r, req)
		if err != nil {
			return types.EstimateResponse{}, err
		}
		resp.Curve = &series
	}

	s.record(ctx, start, r)
	return resp, nil
}

// Curve evaluates req and returns a chartable series with zones in the named
// theme. An empty name selects the service theme.
func (s *Service) Curve(ctx context.Context, req types.EstimateRequest, themeName string) (types.CurveResponse, error) {
	start := time.Now()
	th := s.theme
	if themeName != "" {
		t, err := theme.ByName(themeName)
		if err != nil {
			s.reject(ctx, "theme", err)
			return types.CurveResponse{}, fmt.Errorf("%w: %w", types.ErrInvalidInput, err)
		}
		th = t
	}

	r, err := s.evaluate(ctx, req)
	if err != nil {
		return types.CurveResponse{}, err
	}
	series, err := s.sample(ctx, r, req)
	if err != nil {
		return types.CurveResponse{}, err
	}

	ready, fatigued := theme.Zones(series.Threshold, th)
	resp := types.CurveResponse{
		Series:  series,
		Summary: summary.Build(r),
		Zones: []types.Zone{
			{Name: "ready", From: ready.From, To: ready.To, Color: ready.Color},
			{Name: "fatigued", From: fatigued.From, To: fatigued.To, Color: fatigued.Color},
		},
		Theme: th.Name,
	}
	for i, seg := range theme.Shade(series.Threshold, 1, th, gradientBands) {
		resp.Gradient = append(resp.Gradient, types.Zone{
			Name:  fmt.Sprintf("band-%d", i),
			From:  seg.From,
			To:    seg.To,
			Color: seg.Color,
		})
	}

	s.record(ctx, start, r)
	return resp, nil
}

// evaluate validates req and runs the model.
func (s *Service) evaluate(ctx context.Context, req types.EstimateRequest) (decay.Result, error) {
	for name, v := range map[string]float64{
		"intensity":    req.Intensity,
		"duration_min": req.DurationMin,
		"hours_since":  req.HoursSince,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			err := fmt.Errorf("%w: %s must be a finite number", types.ErrInvalidInput, name)
			s.reject(ctx, name, err)
			return decay.Result{}, err
		}
	}

	p := req.ApplyTo(s.params)
	if err := p.Validate(); err != nil {
		s.reject(ctx, "params", err)
		return decay.Result{}, err
	}
	r := decay.Evaluate(req.Inputs(), p)
	for _, f := range []struct {
		name string
		v    float64
	}{
		{"load", r.Load},
		{"tau_hours", r.TauHours},
		{"fatigue_now", r.FatigueNow},
	} {
		if math.IsNaN(f.v) || math.IsInf(f.v, 0) {
			err := fmt.Errorf("%w: %s is not finite for these params", decay.ErrInvalidParams, f.name)
			s.reject(ctx, "params", err)
			return decay.Result{}, err
		}
	}
	return r, nil
}

func (s *Service) sample(ctx context.Context, r decay.Result, req types.EstimateRequest) (curve.Series, error) {
	horizon, step := req.HorizonHours, req.StepHours
	if math.IsNaN(horizon) || math.IsNaN(step) || horizon < 0 || step < 0 {
		err := fmt.Errorf("%w: horizon_hours and step_hours must not be negative", types.ErrInvalidInput)
		s.reject(ctx, "sampling", err)
		return curve.Series{}, err
	}
	if horizon == 0 {
		horizon = s.defaultHorizon
	}
	if step == 0 {
		step = s.stepHours
	}
	series := curve.Sample(r, math.Min(horizon, s.maxHorizon), step)
	metrics.RecordCurvePoints(len(series.Points))
	return series, nil
}

func (s *Service) record(ctx context.Context, start time.Time, r decay.Result) {
	s.evaluations.Add(1)
	latencyMs := float64(time.Since(start).Microseconds()) / 1000
	metrics.RecordEvaluation(types.SourceFrom(ctx), latencyMs, r.RecoveryPercent, r.HoursUntilReady)
	s.log().Debug(ctx, "evaluated",
		logger.Float64("intensity", r.Inputs.Intensity),
		logger.Float64("durationMin", r.Inputs.DurationMin),
		logger.Float64("hoursSince", r.Inputs.HoursSince),
		logger.Float64("recoveryPercent", r.RecoveryPercent),
		logger.Float64("hoursUntilReady", r.HoursUntilReady),
	)
}

func (s *Service) reject(ctx context.Context, reason string, err error) {
	s.rejected.Add(1)
	metrics.RecordRejectedParams(reason)
	s.log().Debug(ctx, "rejected request", logger.String("reason", reason), logger.Error(err))
}

func (s *Service) log() logger.Logger {
	s.mu.RLock()
	l := s.logger
	s.mu.RUnlock()
	if l == nil {
		return logger.Get()
	}
	return l
}

// LiveSessionOpened records a new live session.
func (s *Service) LiveSessionOpened(ctx context.Context) {
	n := s.liveSessions.Add(1)
	metrics.UpdateLiveSessions(1)
	s.log().Debug(ctx, "live session opened", logger.Int("sessions", int(n)))
}

// LiveSessionClosed records the end of a live session.
func (s *Service) LiveSessionClosed(ctx context.Context) {
	n := s.liveSessions.Add(-1)
	metrics.UpdateLiveSessions(-1)
	s.log().Debug(ctx, "live session closed", logger.Int("sessions", int(n)))
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":        s.started,
		"evaluations":    s.evaluations.Load(),
		"rejected":       s.rejected.Load(),
		"liveSessions":   s.liveSessions.Load(),
		"params":         s.params,
		"defaultHorizon": s.defaultHorizon,
		"maxHorizon":     s.maxHorizon,
		"stepHours":      s.stepHours,
		"theme":          s.theme.Name,
	}
	if s.started {
		stats["uptimeSeconds"] = time.Since(s.startedAt).Seconds()
	}

	return stats
}

// Package cli implements the recovery command line: local or remote
// estimation from flags and scenario files, and config inspection.
package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	service "github.com/okian/recovery/internal/app"
	"github.com/okian/recovery/internal/config"
	"github.com/okian/recovery/internal/domain/types"
	"github.com/okian/recovery/internal/render/theme"
	"github.com/okian/recovery/pkg/logger"
)

const defaultRemoteTimeout = 10 * time.Second

type estimateFlags struct {
	intensity         float64
	durationMin       float64
	hoursSince        float64
	readyFraction     float64
	intensityExponent float64
	baseTauHours      float64
	tauPerIntensity   float64
	horizonHours      float64
	stepHours         float64

	scenario string
	remote   string
	timeout  time.Duration
	format   string
	theme    string
	noColor  bool
}

// NewRootCommand builds the recovery command tree.
func NewRootCommand() *cobra.Command {
	var logLevel string

	root := &cobra.Command{
		Use:   "recovery",
		Short: "Estimate post-workout fatigue and time to readiness",
		Long: `recovery estimates how much of a workout's load is left and how long until
another session should be comparatively efficient.

Load is duration * intensity^exponent and decays exponentially with a time
constant of base_tau + tau_per_intensity * intensity hours.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := logger.Init(logger.WithOutput(cmd.ErrOrStderr())); err != nil {
				return err
			}
			return logger.SetLevelString(logLevel)
		},
	}
	root.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level: debug, info, warn, error")

	root.AddCommand(newEstimateCommand(), newServeConfigCommand())
	return root
}

// Execute runs the command tree with ctx.
func Execute(ctx context.Context) error {
	return NewRootCommand().ExecuteContext(ctx)
}

func newEstimateCommand() *cobra.Command {
	f := &estimateFlags{}
	cmd := &cobra.Command{
		Use:   "estimate",
		Short: "Estimate recovery for one workout",
		Long: `Estimate recovery for one workout.

Values come from --scenario (a YAML file) when given; flags set explicitly
override the file. With --remote the estimate is computed by a running server.`,
		Example: `  recovery estimate --intensity 3 --duration 60 --hours-since 12
  recovery estimate --scenario tempo.yaml --hours-since 30 --theme dark
  recovery estimate --intensity 4 --duration 90 --remote http://localhost:9080 --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runEstimate(cmd, f)
		},
	}

	fl := cmd.Flags()
	fl.Float64Var(&f.intensity, "intensity", 3, "session intensity, 1 (easy) to 5 (max)")
	fl.Float64Var(&f.durationMin, "duration", 60, "session duration in minutes")
	fl.Float64Var(&f.hoursSince, "hours-since", 0, "hours since the session ended")
	fl.Float64Var(&f.readyFraction, "ready-fraction", 0, "remaining-load fraction treated as ready")
	fl.Float64Var(&f.intensityExponent, "exponent", 0, "exponent applied to intensity")
	fl.Float64Var(&f.baseTauHours, "base-tau", 0, "time constant at zero intensity, hours")
	fl.Float64Var(&f.tauPerIntensity, "tau-per-intensity", 0, "hours each intensity point adds to the time constant")
	fl.Float64Var(&f.horizonHours, "horizon", 0, "chart horizon in hours (0 = default)")
	fl.Float64Var(&f.stepHours, "step", 0, "chart sampling step in hours (0 = default)")
	fl.StringVar(&f.scenario, "scenario", "", "YAML scenario file")
	fl.StringVar(&f.remote, "remote", "", "base URL of a recovery server to estimate with")
	fl.DurationVar(&f.timeout, "timeout", defaultRemoteTimeout, "remote request timeout")
	fl.StringVar(&f.format, "format", FormatText, "output format: text or json")
	fl.StringVar(&f.theme, "theme", "", "chart theme: light or dark")
	fl.BoolVar(&f.noColor, "no-color", false, "disable coloured output")
	return cmd
}

func runEstimate(cmd *cobra.Command, f *estimateFlags) error {
	if f.format != FormatText && f.format != FormatJSON {
		return fmt.Errorf("%w: --format must be text or json, got %q", ErrUsage, f.format)
	}
	ctx := types.ContextWithSource(commandContext(cmd), types.SourceCLI)

	sc := Scenario{EstimateRequest: types.EstimateRequest{Intensity: 3, DurationMin: 60}}
	if f.scenario != "" {
		loaded, err := LoadScenario(f.scenario)
		if err != nil {
			return err
		}
		sc = loaded
	}
	sc = f.overrides(cmd).Apply(sc)
	req := sc.EstimateRequest
	req.IncludeCurve = true

	var (
		resp    types.EstimateResponse
		err     error
		themeNm = sc.Theme
	)
	if f.remote != "" {
		logger.Get().Debug(ctx, "estimating remotely", logger.String("remote", f.remote))
		resp, err = NewClient(f.remote, f.timeout).Estimate(ctx, req)
	} else {
		var cfgTheme string
		resp, cfgTheme, err = estimateLocal(ctx, req)
		if themeNm == "" {
			themeNm = cfgTheme
		}
	}
	if err != nil {
		return err
	}

	th, err := theme.ByName(themeNm)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUsage, err)
	}
	return WriteReport(cmd.OutOrStdout(), resp, ReportOptions{
		Format: f.format,
		Theme:  th,
		Color:  !f.noColor,
	})
}

// overrides collects the flags the user actually set.
func (f *estimateFlags) overrides(cmd *cobra.Command) Overrides {
	fl := cmd.Flags()
	pick := func(name string, v *float64) *float64 {
		if fl.Changed(name) {
			return v
		}
		return nil
	}
	o := Overrides{
		Intensity:         pick("intensity", &f.intensity),
		DurationMin:       pick("duration", &f.durationMin),
		HoursSince:        pick("hours-since", &f.hoursSince),
		ReadyFraction:     pick("ready-fraction", &f.readyFraction),
		IntensityExponent: pick("exponent", &f.intensityExponent),
		BaseTauHours:      pick("base-tau", &f.baseTauHours),
		TauPerIntensity:   pick("tau-per-intensity", &f.tauPerIntensity),
		HorizonHours:      pick("horizon", &f.horizonHours),
		StepHours:         pick("step", &f.stepHours),
	}
	if fl.Changed("theme") {
		o.Theme = &f.theme
	}
	return o
}

// estimateLocal evaluates req in process with the layered config as defaults.
func estimateLocal(ctx context.Context, req types.EstimateRequest) (types.EstimateResponse, string, error) {
	cfg, err := config.Load(ctx)
	if err != nil {
		return types.EstimateResponse{}, "", err
	}
	svc := service.New(
		service.WithParams(cfg.Params()),
		service.WithHorizon(cfg.DefaultHorizonHours, cfg.MaxHorizonHours),
		service.WithStepHours(cfg.SampleStepHours),
	)
	if err := svc.Start(ctx); err != nil {
		return types.EstimateResponse{}, "", err
	}
	defer svc.Stop()

	resp, err := svc.Estimate(ctx, req)
	return resp, cfg.Theme, err
}

func newServeConfigCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve-config",
		Short: "Print the effective server configuration",
		Long: `Print the configuration the server would run with after layering
defaults, the .env file, the YAML file at RECOVERY_CONFIG and RECOVERY_* variables.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(commandContext(cmd))
			if err != nil {
				return err
			}
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(cfg); err != nil {
				return err
			}
			return enc.Close()
		},
	}
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

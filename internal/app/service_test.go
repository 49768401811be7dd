package service_test

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"

	service "github.com/okian/recovery/internal/app"
	"github.com/okian/recovery/internal/domain/decay"
	"github.com/okian/recovery/internal/domain/types"
	"github.com/okian/recovery/internal/render/theme"
	"github.com/okian/recovery/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	// Initialize logging for tests
	err := logger.Init()
	if err != nil {
		panic(err)
	}
}

// scenario is one hard hour, evaluated right after the session.
func scenario() types.EstimateRequest {
	return types.EstimateRequest{Intensity: 3, DurationMin: 60, HoursSince: 0}
}

func TestService_New(t *testing.T) {
	Convey("Given a new service with default options", t, func() {
		svc := service.New()

		Convey("Then it uses the dashboard tau slope", func() {
			So(svc, ShouldNotBeNil)
			So(svc.Params().TauPerIntensity, ShouldEqual, decay.DashboardTauPerIntensity)
			So(svc.Theme().Name, ShouldEqual, theme.NameLight)
		})
	})

	Convey("Given a new service with custom options", t, func() {
		svc := service.New(
			service.WithParams(decay.DefaultParams()),
			service.WithHorizon(48, 96),
			service.WithStepHours(2),
			service.WithTheme(theme.Dark()),
		)

		Convey("Then the options are applied", func() {
			So(svc.Params(), ShouldResemble, decay.DefaultParams())
			So(svc.Theme().Name, ShouldEqual, theme.NameDark)
			stats := svc.GetStats()
			So(stats["defaultHorizon"], ShouldEqual, 48.0)
			So(stats["maxHorizon"], ShouldEqual, 96.0)
			So(stats["stepHours"], ShouldEqual, 2.0)
		})
	})
}

func TestService_Lifecycle(t *testing.T) {
	Convey("Given a new service", t, func() {
		svc := service.New()
		defer svc.Stop()
		ctx := context.Background()

		Convey("When starting the service", func() {
			err := svc.Start(ctx)

			Convey("Then it should start successfully", func() {
				So(err, ShouldBeNil)
				So(svc.Start(ctx), ShouldBeNil)
			})

			Convey("And it should be marked as started", func() {
				stats := svc.GetStats()
				So(stats["started"], ShouldEqual, true)
				So(stats, ShouldContainKey, "uptimeSeconds")
			})

			Convey("And stopping marks it stopped", func() {
				svc.Stop()
				svc.Stop()
				So(svc.GetStats()["started"], ShouldEqual, false)
			})
		})

		Convey("When the configured params are invalid", func() {
			bad := service.New(service.WithParams(decay.NewParams(decay.WithBaseTauHours(0))))
			err := bad.Start(ctx)
			So(errors.Is(err, decay.ErrInvalidParams), ShouldBeTrue)
		})

		Convey("When the configured theme has a colour that does not parse", func() {
			broken := theme.Light()
			broken.Name = "custom"
			broken.Ready = "green"
			bad := service.New(service.WithTheme(broken))
			err := bad.Start(ctx)
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "service theme")
			So(bad.GetStats()["started"], ShouldBeFalse)
		})
	})
}

func TestService_Estimate(t *testing.T) {
	Convey("Given a service with the model defaults", t, func() {
		svc := service.New(service.WithParams(decay.DefaultParams()))
		ctx := context.Background()
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		Convey("When estimating right after the session", func() {
			resp, err := svc.Estimate(ctx, scenario())

			Convey("Then the model result matches the closed form", func() {
				So(err, ShouldBeNil)
				So(resp.Result.Load, ShouldAlmostEqual, 60*math.Pow(3, 1.25), 1e-9)
				So(resp.Result.TauHours, ShouldEqual, 26)
				So(resp.Result.RecoveryPercent, ShouldAlmostEqual, 0, 1e-9)
				So(resp.Result.HoursUntilReady, ShouldAlmostEqual, 36.0437, 1e-3)
			})

			Convey("And the summary is filled in", func() {
				So(resp.Summary.Ready, ShouldBeFalse)
				So(resp.Summary.TimeToRecover, ShouldEqual, "1.5d")
				So(resp.Summary.RemainingLoadPct, ShouldEqual, 100)
			})

			Convey("And no curve is attached", func() {
				So(resp.Curve, ShouldBeNil)
			})

			Convey("And the evaluation is counted", func() {
				So(svc.GetStats()["evaluations"], ShouldEqual, int64(1))
			})
		})

		Convey("When overriding params and asking for a curve", func() {
			req := scenario()
			req.HoursSince = 40
			req.ReadyFraction = types.Float64(0.5)
			req.IncludeCurve = true
			req.HorizonHours = 24
			req.StepHours = 6

			resp, err := svc.Estimate(ctx, req)

			So(err, ShouldBeNil)
			So(resp.Result.ReadyFraction, ShouldEqual, 0.5)
			So(resp.Summary.Ready, ShouldBeTrue)
			So(resp.Curve, ShouldNotBeNil)
			So(len(resp.Curve.Points), ShouldEqual, 5)
			So(resp.Curve.Now, ShouldEqual, 40)
		})

		Convey("When the horizon exceeds the configured maximum", func() {
			capped := service.New(service.WithHorizon(24, 48))
			req := scenario()
			req.IncludeCurve = true
			req.HorizonHours = 500

			resp, err := capped.Estimate(ctx, req)
			So(err, ShouldBeNil)
			So(resp.Curve.HorizonHours, ShouldEqual, 48)
		})

		Convey("When the request overrides make the params invalid", func() {
			req := scenario()
			req.BaseTauHours = types.Float64(-3)

			_, err := svc.Estimate(ctx, req)

			So(errors.Is(err, decay.ErrInvalidParams), ShouldBeTrue)
			So(svc.GetStats()["rejected"], ShouldEqual, int64(1))
		})

		Convey("When the exponent overflows the load", func() {
			req := types.EstimateRequest{Intensity: 5, DurationMin: 100, IntensityExponent: types.Float64(1000)}

			_, err := svc.Estimate(ctx, req)

			So(errors.Is(err, decay.ErrInvalidParams), ShouldBeTrue)
			So(err.Error(), ShouldContainSubstring, "load is not finite")
			So(svc.GetStats()["evaluations"], ShouldEqual, int64(0))
		})

		Convey("When an input is not a number", func() {
			req := scenario()
			req.HoursSince = math.NaN()

			_, err := svc.Estimate(ctx, req)
			So(errors.Is(err, types.ErrInvalidInput), ShouldBeTrue)
		})

		Convey("When the horizon is negative", func() {
			req := scenario()
			req.IncludeCurve = true
			req.HorizonHours = -1

			_, err := svc.Estimate(ctx, req)
			So(errors.Is(err, types.ErrInvalidInput), ShouldBeTrue)
		})
	})
}

func TestService_Curve(t *testing.T) {
	Convey("Given a started service", t, func() {
		svc := service.New()
		ctx := types.ContextWithSource(context.Background(), types.SourceHTTP)
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		Convey("When requesting a curve in the default theme", func() {
			resp, err := svc.Curve(ctx, scenario(), "")

			So(err, ShouldBeNil)
			So(resp.Theme, ShouldEqual, theme.NameLight)
			So(len(resp.Series.Points), ShouldEqual, 73)

			Convey("Then the zones split at the threshold", func() {
				So(len(resp.Zones), ShouldEqual, 2)
				So(resp.Zones[0].Name, ShouldEqual, "ready")
				So(resp.Zones[0].To, ShouldEqual, 0.25)
				So(resp.Zones[1].From, ShouldEqual, 0.25)
				So(resp.Zones[1].Color, ShouldEqual, theme.Light().Fatigued)
			})

			Convey("And the gradient covers threshold to full load", func() {
				So(len(resp.Gradient), ShouldEqual, 8)
				So(resp.Gradient[0].From, ShouldEqual, 0.25)
				So(resp.Gradient[7].To, ShouldEqual, 1)
			})
		})

		Convey("When requesting the dark theme", func() {
			resp, err := svc.Curve(ctx, scenario(), "dark")
			So(err, ShouldBeNil)
			So(resp.Theme, ShouldEqual, theme.NameDark)
		})

		Convey("When requesting an unknown theme", func() {
			_, err := svc.Curve(ctx, scenario(), "sepia")
			So(errors.Is(err, types.ErrInvalidInput), ShouldBeTrue)
		})
	})
}

func TestService_Concurrency(t *testing.T) {
	Convey("Given a service shared by many callers", t, func() {
		svc := service.New()
		ctx := types.ContextWithSource(context.Background(), types.SourceLive)
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		Convey("When estimating the same request concurrently", func() {
			const callers = 16
			results := make([]types.EstimateResponse, callers)
			var wg sync.WaitGroup
			for i := 0; i < callers; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					svc.LiveSessionOpened(ctx)
					defer svc.LiveSessionClosed(ctx)
					results[i], _ = svc.Estimate(ctx, scenario())
				}(i)
			}
			wg.Wait()

			Convey("Then every caller sees the same result", func() {
				for _, r := range results[1:] {
					So(r.Result, ShouldResemble, results[0].Result)
				}
			})

			Convey("And the counters balance", func() {
				stats := svc.GetStats()
				So(stats["evaluations"], ShouldEqual, int64(callers))
				So(stats["liveSessions"], ShouldEqual, int64(0))
			})
		})
	})
}

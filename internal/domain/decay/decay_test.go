package decay_test

import (
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/okian/recovery/internal/domain/decay"
	. "github.com/smartystreets/goconvey/convey"
)

const tolerance = 1e-6

func TestEvaluate_Scenario(t *testing.T) {
	Convey("Given a moderate one hour session with the model defaults", t, func() {
		in := decay.Inputs{Intensity: 3, DurationMin: 60, HoursSince: 0}
		p := decay.NewParams(decay.WithTauPerIntensity(4), decay.WithReadyFraction(0.25))

		Convey("When evaluating right after the session", func() {
			r := decay.Evaluate(in, p)

			Convey("Then load follows duration times intensity^exponent", func() {
				So(r.Load, ShouldAlmostEqual, 60*math.Pow(3, 1.25), tolerance)
				So(r.Load, ShouldAlmostEqual, 236.8933, 1e-3)
			})

			Convey("And tau grows linearly with intensity", func() {
				So(r.TauHours, ShouldEqual, 26.0)
			})

			Convey("And all of the load is still present", func() {
				So(r.FatigueNow, ShouldAlmostEqual, r.Load, tolerance)
				So(r.FatigueFractionNow, ShouldAlmostEqual, 1.0, tolerance)
				So(r.RecoveryFractionNow, ShouldAlmostEqual, 0.0, tolerance)
				So(r.RecoveryPercent, ShouldAlmostEqual, 0.0, tolerance)
			})

			Convey("And time until ready is -tau*ln(readyFraction)", func() {
				So(r.HoursUntilReady, ShouldAlmostEqual, 36.0437, 1e-3)
				So(r.HoursToReady, ShouldAlmostEqual, r.HoursUntilReady, tolerance)
				So(r.Ready(), ShouldBeFalse)
			})
		})

		Convey("When evaluating forty hours later", func() {
			in.HoursSince = 40
			r := decay.Evaluate(in, p)

			Convey("Then most of the fatigue has cleared", func() {
				So(r.FatigueFractionNow, ShouldAlmostEqual, math.Exp(-40.0/26.0), tolerance)
				So(r.RecoveryPercent, ShouldAlmostEqual, 78.5289, 1e-3)
			})

			Convey("And the ready threshold has already been crossed", func() {
				So(r.HoursUntilReady, ShouldEqual, 0)
				So(r.HoursToReady, ShouldAlmostEqual, 36.0437, 1e-3)
				So(r.Ready(), ShouldBeTrue)
			})
		})
	})
}

func TestEvaluate_ZeroDuration(t *testing.T) {
	Convey("Given a session with no duration", t, func() {
		r := decay.Evaluate(decay.Inputs{Intensity: 5, DurationMin: 0, HoursSince: 3}, decay.DefaultParams())

		Convey("Then every derived quantity collapses instead of going NaN", func() {
			So(r.Load, ShouldEqual, 0)
			So(r.FatigueNow, ShouldEqual, 0)
			So(r.FatigueFractionNow, ShouldEqual, 0)
			So(r.RecoveryPercent, ShouldEqual, 100)
			So(r.HoursUntilReady, ShouldEqual, 0)
			So(r.HoursToReady, ShouldEqual, 0)
			So(r.FatigueAt(10), ShouldEqual, 0)
			So(r.FatigueFractionAt(10), ShouldEqual, 0)
			So(r.HoursToReachFatigue(1), ShouldEqual, 0)
		})
	})
}

func TestEvaluate_ZeroParams(t *testing.T) {
	Convey("Given the zero Params", t, func() {
		in := decay.Inputs{Intensity: 3, DurationMin: 60}
		r := decay.Evaluate(in, decay.Params{})

		Convey("Then the defaults are used", func() {
			want := decay.Evaluate(in, decay.DefaultParams())
			So(r.Params, ShouldResemble, decay.DefaultParams())
			So(r.TauHours, ShouldEqual, 26)
			So(r.RecoveryPercent, ShouldEqual, want.RecoveryPercent)
			So(r.HoursUntilReady, ShouldAlmostEqual, want.HoursUntilReady, tolerance)
		})
	})

	Convey("Given a result with no time constant", t, func() {
		r := decay.Evaluate(decay.Inputs{Intensity: 1, DurationMin: 60},
			decay.NewParams(decay.WithBaseTauHours(0), decay.WithTauPerIntensity(0)))

		Convey("Then nothing is NaN and fatigue has cleared", func() {
			So(r.TauHours, ShouldEqual, 0)
			So(r.FatigueNow, ShouldEqual, 0)
			So(r.FatigueFractionNow, ShouldEqual, 0)
			So(r.RecoveryPercent, ShouldEqual, 100)
			So(r.HoursUntilReady, ShouldEqual, 0)
			So(r.HoursToReachFatigue(1), ShouldEqual, 0)
			So(math.IsNaN(r.FatigueAt(0)), ShouldBeFalse)
		})
	})
}

func TestEvaluate_Clamping(t *testing.T) {
	Convey("Given out of range inputs", t, func() {
		Convey("When intensity is below the scale", func() {
			r := decay.Evaluate(decay.Inputs{Intensity: -4, DurationMin: 30}, decay.DefaultParams())
			So(r.Inputs.Intensity, ShouldEqual, decay.MinIntensity)
			So(r.TauHours, ShouldEqual, decay.DefaultBaseTauHours+decay.DefaultTauPerIntensity)
		})

		Convey("When intensity is above the scale", func() {
			r := decay.Evaluate(decay.Inputs{Intensity: 11, DurationMin: 30}, decay.DefaultParams())
			So(r.Inputs.Intensity, ShouldEqual, decay.MaxIntensity)
		})

		Convey("When duration and elapsed hours are negative or huge", func() {
			r := decay.Evaluate(decay.Inputs{Intensity: 2, DurationMin: -10, HoursSince: 1e9}, decay.DefaultParams())
			So(r.Inputs.DurationMin, ShouldEqual, 0)
			So(r.Inputs.HoursSince, ShouldEqual, decay.MaxHoursSince)

			r = decay.Evaluate(decay.Inputs{Intensity: 2, DurationMin: 1e9, HoursSince: -3}, decay.DefaultParams())
			So(r.Inputs.DurationMin, ShouldEqual, decay.MaxDurationMin)
			So(r.Inputs.HoursSince, ShouldEqual, 0)
		})

		Convey("When the ready fraction is at the extremes", func() {
			in := decay.Inputs{Intensity: 3, DurationMin: 60}

			low := decay.Evaluate(in, decay.NewParams(decay.WithReadyFraction(0)))
			So(low.ReadyFraction, ShouldEqual, 0.01)
			So(low.Params.ReadyFraction, ShouldEqual, 0.01)

			high := decay.Evaluate(in, decay.NewParams(decay.WithReadyFraction(1)))
			So(high.ReadyFraction, ShouldEqual, 0.99)
			So(high.HoursUntilReady, ShouldBeGreaterThan, 0)
			So(high.HoursUntilReady, ShouldBeLessThan, low.HoursUntilReady)
		})
	})
}

func TestResult_FatigueAt(t *testing.T) {
	Convey("Given evaluations across the input space", t, func() {
		cases := []decay.Inputs{
			{Intensity: 1, DurationMin: 5},
			{Intensity: 2.5, DurationMin: 45, HoursSince: 12},
			{Intensity: 5, DurationMin: 240, HoursSince: 100},
			{Intensity: 4, DurationMin: 10000},
		}

		for _, in := range cases {
			r := decay.Evaluate(in, decay.DefaultParams())

			Convey("Then fatigue starts at the load for "+describe(in), func() {
				So(r.FatigueAt(0), ShouldEqual, r.Load)
			})

			Convey("And it never increases for "+describe(in), func() {
				prev := r.FatigueAt(0)
				for h := 0.5; h <= 500; h += 0.5 {
					cur := r.FatigueAt(h)
					So(cur, ShouldBeLessThanOrEqualTo, prev)
					prev = cur
				}
			})

			Convey("And it is negligible after ten time constants for "+describe(in), func() {
				So(r.FatigueAt(10*r.TauHours)/r.Load, ShouldBeLessThan, 1e-4)
			})

			Convey("And the inverse solve round-trips for "+describe(in), func() {
				for _, h := range []float64{0, 0.25, 1, 7, 24, 72, 200} {
					So(r.HoursToReachFatigue(r.FatigueAt(h)), ShouldAlmostEqual, h, 1e-6)
				}
			})
		}
	})
}

func TestResult_HoursToReachFatigue(t *testing.T) {
	Convey("Given a loaded result", t, func() {
		r := decay.Evaluate(decay.Inputs{Intensity: 3, DurationMin: 60}, decay.DefaultParams())

		Convey("When the target exceeds the load", func() {
			Convey("Then the solve floors at zero hours", func() {
				So(r.HoursToReachFatigue(r.Load*2), ShouldEqual, 0)
			})
		})

		Convey("When the target is zero", func() {
			Convey("Then the solve stays finite", func() {
				h := r.HoursToReachFatigue(0)
				So(math.IsInf(h, 0), ShouldBeFalse)
				So(h, ShouldAlmostEqual, -r.TauHours*math.Log(1e-12/r.Load), 1e-6)
			})
		})

		Convey("When asking for the half life", func() {
			So(r.FatigueAt(r.HalfLifeHours()), ShouldAlmostEqual, r.Load/2, 1e-9)
		})
	})
}

func TestParams(t *testing.T) {
	Convey("Given parameter construction", t, func() {
		Convey("When no options are given", func() {
			p := decay.NewParams()
			So(p, ShouldResemble, decay.DefaultParams())
			So(p.TauPerIntensity, ShouldEqual, 4.0)
		})

		Convey("When the dashboard slope is applied", func() {
			p := decay.NewParams(decay.WithTauPerIntensity(decay.DashboardTauPerIntensity))
			r := decay.Evaluate(decay.Inputs{Intensity: 3, DurationMin: 60}, p)
			So(r.TauHours, ShouldEqual, 20.0)
			So(r.HoursUntilReady, ShouldAlmostEqual, 20*math.Log(4), tolerance)
		})

		Convey("When every option is applied", func() {
			p := decay.NewParams(
				decay.WithIntensityExponent(1.5),
				decay.WithBaseTauHours(10),
				decay.WithTauPerIntensity(3),
				decay.WithReadyFraction(0.4),
			)
			So(p.IntensityExponent, ShouldEqual, 1.5)
			So(p.BaseTauHours, ShouldEqual, 10)
			So(p.TauPerIntensity, ShouldEqual, 3)
			So(p.ReadyFraction, ShouldEqual, 0.4)
		})

		Convey("When validating", func() {
			So(decay.DefaultParams().Validate(), ShouldBeNil)

			bad := []decay.Params{
				decay.NewParams(decay.WithIntensityExponent(0)),
				decay.NewParams(decay.WithBaseTauHours(-1)),
				decay.NewParams(decay.WithTauPerIntensity(-0.5)),
				decay.NewParams(decay.WithReadyFraction(math.NaN())),
				decay.NewParams(decay.WithBaseTauHours(math.Inf(1))),
			}
			for _, p := range bad {
				err := p.Validate()
				So(err, ShouldNotBeNil)
				So(errors.Is(err, decay.ErrInvalidParams), ShouldBeTrue)
			}
		})

		Convey("When the ready fraction is out of range", func() {
			So(decay.NewParams(decay.WithReadyFraction(2)).Validate(), ShouldBeNil)
			So(decay.NewParams(decay.WithReadyFraction(2)).Effective().ReadyFraction, ShouldEqual, 0.99)
		})
	})
}

func describe(in decay.Inputs) string {
	return fmt.Sprintf("intensity %g duration %g", in.Intensity, in.DurationMin)
}

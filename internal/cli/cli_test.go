package cli_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/okian/recovery/internal/adapters/http/api"
	service "github.com/okian/recovery/internal/app"
	"github.com/okian/recovery/internal/cli"
	"github.com/okian/recovery/internal/domain/decay"
	"github.com/okian/recovery/internal/domain/types"
	"github.com/okian/recovery/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(logger.WithOutput(&bytes.Buffer{})); err != nil {
		panic(err)
	}
}

func run(args ...string) (string, error) {
	var out, errOut bytes.Buffer
	cmd := cli.NewRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func writeScenario(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestEstimateCommand(t *testing.T) {
	Convey("Given the estimate command evaluating locally", t, func() {
		Convey("When rendering text", func() {
			out, err := run("estimate", "--intensity", "3", "--duration", "60", "--hours-since", "0",
				"--tau-per-intensity", "4", "--no-color")

			Convey("Then the summary and chart are printed", func() {
				So(err, ShouldBeNil)
				So(out, ShouldContainSubstring, "Recovery       0%")
				So(out, ShouldContainSubstring, "Remaining load 100% (ready at 25%)")
				So(out, ShouldContainSubstring, "Time to ready  1.5d")
				So(out, ShouldContainSubstring, "1 day from now")
				So(out, ShouldContainSubstring, "Remaining load is above the threshold.")
				So(out, ShouldContainSubstring, "ready threshold (25%)")
				So(out, ShouldNotContainSubstring, "\x1b[")
			})
		})

		Convey("When rendering JSON", func() {
			out, err := run("estimate", "--intensity", "3", "--duration", "60", "--hours-since", "40",
				"--tau-per-intensity", "4", "--format", "json")
			So(err, ShouldBeNil)

			var resp types.EstimateResponse
			So(json.Unmarshal([]byte(out), &resp), ShouldBeNil)
			So(resp.Result.TauHours, ShouldEqual, 26)
			So(resp.Result.RecoveryPercent, ShouldAlmostEqual, 78.5289, 1e-3)
			So(resp.Summary.Ready, ShouldBeTrue)
			So(resp.Curve, ShouldNotBeNil)
		})

		Convey("When the format is unknown", func() {
			_, err := run("estimate", "--format", "xml")
			So(errors.Is(err, cli.ErrUsage), ShouldBeTrue)
		})

		Convey("When the theme is unknown", func() {
			_, err := run("estimate", "--theme", "neon", "--no-color")
			So(errors.Is(err, cli.ErrUsage), ShouldBeTrue)
		})

		Convey("When params are invalid", func() {
			_, err := run("estimate", "--base-tau=-1")
			So(errors.Is(err, decay.ErrInvalidParams), ShouldBeTrue)
		})
	})
}

func TestScenario(t *testing.T) {
	Convey("Given a scenario file", t, func() {
		path := writeScenario(t, `name: tempo run
theme: dark
intensity: 3
duration_min: 60
hours_since: 40
tau_per_intensity: 4
`)

		Convey("When estimating from the file alone", func() {
			out, err := run("estimate", "--scenario", path, "--format", "json")
			So(err, ShouldBeNil)

			var resp types.EstimateResponse
			So(json.Unmarshal([]byte(out), &resp), ShouldBeNil)
			So(resp.Summary.RecoveryPct, ShouldEqual, 79)
		})

		Convey("When a flag overrides the file", func() {
			out, err := run("estimate", "--scenario", path, "--hours-since", "0", "--format", "json")
			So(err, ShouldBeNil)

			var resp types.EstimateResponse
			So(json.Unmarshal([]byte(out), &resp), ShouldBeNil)
			So(resp.Summary.RecoveryPct, ShouldEqual, 0)
			So(resp.Result.TauHours, ShouldEqual, 26)
		})

		Convey("When decoding it directly", func() {
			sc, err := cli.LoadScenario(path)
			So(err, ShouldBeNil)
			So(sc.Name, ShouldEqual, "tempo run")
			So(sc.Theme, ShouldEqual, "dark")
			So(sc.HoursSince, ShouldEqual, 40)
			So(*sc.TauPerIntensity, ShouldEqual, 4)
			So(sc.ReadyFraction, ShouldBeNil)
		})
	})

	Convey("Given malformed scenarios", t, func() {
		Convey("Unknown keys are rejected", func() {
			_, err := cli.DecodeScenario(strings.NewReader("intensity: 3\neffort: hard\n"))
			So(errors.Is(err, cli.ErrScenario), ShouldBeTrue)
		})

		Convey("Empty documents are rejected", func() {
			_, err := cli.DecodeScenario(strings.NewReader(""))
			So(errors.Is(err, cli.ErrScenario), ShouldBeTrue)
		})

		Convey("Missing files are reported", func() {
			_, err := run("estimate", "--scenario", filepath.Join(t.TempDir(), "missing.yaml"))
			So(errors.Is(err, cli.ErrScenario), ShouldBeTrue)
		})
	})

	Convey("Given overrides", t, func() {
		base := cli.Scenario{Theme: "light", EstimateRequest: types.EstimateRequest{Intensity: 2, DurationMin: 30}}
		rf, theme := 0.5, "dark"

		Convey("Only set fields replace the scenario", func() {
			got := cli.Overrides{ReadyFraction: &rf, Theme: &theme}.Apply(base)
			So(got.Intensity, ShouldEqual, 2)
			So(got.DurationMin, ShouldEqual, 30)
			So(*got.ReadyFraction, ShouldEqual, 0.5)
			So(got.Theme, ShouldEqual, "dark")
		})

		Convey("The override value is copied", func() {
			got := cli.Overrides{ReadyFraction: &rf}.Apply(base)
			rf = 0.9
			So(*got.ReadyFraction, ShouldEqual, 0.5)
		})
	})
}

func TestRemote(t *testing.T) {
	Convey("Given a running server", t, func() {
		svc := service.New(service.WithParams(decay.DefaultParams()))
		So(svc.Start(context.Background()), ShouldBeNil)
		defer svc.Stop()

		mux := http.NewServeMux()
		api.NewServer(svc, svc).Register(context.Background(), mux)
		ts := httptest.NewServer(mux)
		defer ts.Close()

		Convey("When estimating with --remote", func() {
			out, err := run("estimate", "--remote", ts.URL, "--intensity", "3", "--duration", "60",
				"--hours-since", "12", "--format", "json")
			So(err, ShouldBeNil)

			var resp types.EstimateResponse
			So(json.Unmarshal([]byte(out), &resp), ShouldBeNil)
			So(resp.Result.TauHours, ShouldEqual, 26)
			So(resp.Curve, ShouldNotBeNil)
			So(svc.GetStats()["evaluations"], ShouldEqual, int64(1))
		})

		Convey("When the server rejects the request", func() {
			_, err := cli.NewClient(ts.URL, time.Second).Estimate(context.Background(),
				types.EstimateRequest{Intensity: 3, DurationMin: 60, BaseTauHours: types.Float64(0)})

			var remote *cli.RemoteError
			So(errors.As(err, &remote), ShouldBeTrue)
			So(errors.Is(err, cli.ErrRemote), ShouldBeTrue)
			So(remote.Status, ShouldEqual, http.StatusBadRequest)
			So(remote.Code, ShouldEqual, "invalid_params")
			So(remote.RequestID, ShouldNotBeEmpty)
		})

		Convey("When the server is unreachable", func() {
			_, err := cli.NewClient("http://127.0.0.1:1", time.Second).Estimate(context.Background(), types.EstimateRequest{})
			So(errors.Is(err, cli.ErrRemote), ShouldBeTrue)
		})
	})
}

func TestServeConfigCommand(t *testing.T) {
	Convey("Given the serve-config command", t, func() {
		t.Setenv("RECOVERY_ADDR", ":7070")

		Convey("When printing the effective config", func() {
			out, err := run("serve-config")
			So(err, ShouldBeNil)
			So(out, ShouldContainSubstring, ":7070")
			So(out, ShouldContainSubstring, "tau_per_intensity: 2")
			So(out, ShouldContainSubstring, "theme: light")
		})
	})
}

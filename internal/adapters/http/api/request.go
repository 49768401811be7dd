package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/okian/recovery/internal/domain/types"
)

// maxBodyBytes bounds POST bodies.
const maxBodyBytes = 1 << 20

// parseQuery builds an EstimateRequest from URL query parameters. Absent
// fields keep their zero value; absent parameter overrides stay nil.
func parseQuery(q url.Values) (types.EstimateRequest, error) {
	var req types.EstimateRequest
	var err error

	number := func(name string, dst *float64, aliases ...string) {
		if err != nil {
			return
		}
		raw := q.Get(name)
		for _, a := range aliases {
			if raw == "" {
				raw = q.Get(a)
			}
		}
		if raw == "" {
			return
		}
		v, perr := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if perr != nil {
			err = fmt.Errorf("invalid %s: %q is not a number", name, raw)
			return
		}
		*dst = v
	}
	override := func(name string, dst **float64) {
		if err != nil || q.Get(name) == "" {
			return
		}
		var v float64
		number(name, &v)
		if err == nil {
			*dst = &v
		}
	}

	number("intensity", &req.Intensity)
	number("duration_min", &req.DurationMin, "duration")
	number("hours_since", &req.HoursSince, "hours")
	override("ready_fraction", &req.ReadyFraction)
	override("intensity_exponent", &req.IntensityExponent)
	override("base_tau_hours", &req.BaseTauHours)
	override("tau_per_intensity", &req.TauPerIntensity)
	number("horizon_hours", &req.HorizonHours, "horizon")
	number("step_hours", &req.StepHours, "step")
	if err != nil {
		return types.EstimateRequest{}, err
	}

	if raw := q.Get("curve"); raw != "" {
		b, perr := strconv.ParseBool(raw)
		if perr != nil {
			return types.EstimateRequest{}, fmt.Errorf("invalid curve: %q is not a boolean", raw)
		}
		req.IncludeCurve = b
	}
	return req, nil
}

// decodeBody reads a JSON EstimateRequest from r.
func decodeBody(w http.ResponseWriter, r *http.Request) (types.EstimateRequest, error) {
	var req types.EstimateRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		if err == io.EOF {
			return req, fmt.Errorf("empty body")
		}
		return req, err
	}
	return req, nil
}

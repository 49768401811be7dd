package cli

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/okian/recovery/internal/domain/types"
)

// Scenario is a saved workout plus model overrides, read from YAML:
//
//	name: tempo run
//	theme: dark
//	intensity: 3
//	duration_min: 60
//	hours_since: 12
//	tau_per_intensity: 4
type Scenario struct {
	Name  string `yaml:"name,omitempty"`
	Theme string `yaml:"theme,omitempty"`

	types.EstimateRequest `yaml:",inline"`
}

// LoadScenario reads and decodes the scenario at path.
func LoadScenario(path string) (Scenario, error) {
	f, err := os.Open(path)
	if err != nil {
		return Scenario{}, fmt.Errorf("%w: %w", ErrScenario, err)
	}
	defer f.Close()
	return DecodeScenario(f)
}

// DecodeScenario decodes one scenario document. Unknown keys are rejected.
func DecodeScenario(r io.Reader) (Scenario, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Scenario{}, fmt.Errorf("%w: %w", ErrScenario, err)
	}
	var s Scenario
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		if err == io.EOF {
			return Scenario{}, fmt.Errorf("%w: empty document", ErrScenario)
		}
		return Scenario{}, fmt.Errorf("%w: %w", ErrScenario, err)
	}
	return s, nil
}

// Overrides holds the values given explicitly on the command line. Nil
// fields leave the scenario value in place.
type Overrides struct {
	Intensity         *float64
	DurationMin       *float64
	HoursSince        *float64
	ReadyFraction     *float64
	IntensityExponent *float64
	BaseTauHours      *float64
	TauPerIntensity   *float64
	HorizonHours      *float64
	StepHours         *float64
	Theme             *string
}

// Apply returns s with o laid over it.
func (o Overrides) Apply(s Scenario) Scenario {
	set := func(dst *float64, v *float64) {
		if v != nil {
			*dst = *v
		}
	}
	setPtr := func(dst **float64, v *float64) {
		if v != nil {
			x := *v
			*dst = &x
		}
	}
	set(&s.Intensity, o.Intensity)
	set(&s.DurationMin, o.DurationMin)
	set(&s.HoursSince, o.HoursSince)
	set(&s.HorizonHours, o.HorizonHours)
	set(&s.StepHours, o.StepHours)
	setPtr(&s.ReadyFraction, o.ReadyFraction)
	setPtr(&s.IntensityExponent, o.IntensityExponent)
	setPtr(&s.BaseTauHours, o.BaseTauHours)
	setPtr(&s.TauPerIntensity, o.TauPerIntensity)
	if o.Theme != nil {
		s.Theme = *o.Theme
	}
	return s
}

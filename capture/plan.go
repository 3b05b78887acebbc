package capture

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v2"

	"github.com/moonlab/bracket/exposure"
	"github.com/moonlab/bracket/util"
)

// Mode is the strategy used to get images off the camera
type Mode string

const (
	// ModeStandard transfers each image to the host right after it is shot
	ModeStandard Mode = "standard"

	// ModeFast keeps images on the card and downloads them in bulk at the end
	ModeFast Mode = "fast"
)

// Direction is the end of the focus range a stack starts from
type Direction string

const (
	// DirectionNear starts at the near limit and moves farther
	DirectionNear Direction = "near"

	// DirectionFar starts at the far limit and moves closer
	DirectionFar Direction = "far"
)

// Sign is the sign of focus moves for a stack starting at d
func (d Direction) Sign() int {
	if d == DirectionFar {
		return -1
	}
	return 1
}

// defaults applied to an enabled focus stack with zero fields
const (
	defaultStackSteps    = 10
	defaultStackStepSize = 3
	defaultStackSpeed    = 2
)

// BracketSpec is one bracket of a plan, shot Frames times
type BracketSpec struct {
	Name         string  `json:"name" yaml:"name"`
	ISO          int     `json:"iso" yaml:"iso"`
	Aperture     float64 `json:"aperture" yaml:"aperture"`
	ShutterSpeed string  `json:"shutter_speed" yaml:"shutter_speed"`
	Frames       int     `json:"frames" yaml:"frames"`

	// Delay is the pause after each frame in seconds; zero uses the mode default
	Delay float64 `json:"delay,omitempty" yaml:"delay,omitempty"`

	// AdditionalSettings are passed through; "white_balance" is applied
	AdditionalSettings map[string]interface{} `json:"additional_settings,omitempty" yaml:"additional_settings,omitempty"`
}

// Settings returns the exposure settings of the bracket
func (b BracketSpec) Settings() exposure.Settings {
	s := exposure.Settings{ISO: b.ISO, Aperture: b.Aperture, ShutterSpeed: b.ShutterSpeed}
	if wb, ok := b.AdditionalSettings["white_balance"]; ok {
		s.WhiteBalance = wb
	}
	return s
}

// FromBrackets turns generated brackets into plan brackets.  Brackets that
// carry their own frame count or delay keep them; the rest get frames and delay.
func FromBrackets(in []exposure.Bracket, frames int, delay float64) []BracketSpec {
	out := make([]BracketSpec, 0, len(in))
	for _, b := range in {
		spec := BracketSpec{
			Name:         b.Name,
			ISO:          b.ISO,
			Aperture:     b.Aperture,
			ShutterSpeed: b.ShutterSpeed,
			Frames:       frames,
			Delay:        delay,
		}
		if b.Frames > 0 {
			spec.Frames = b.Frames
		}
		if b.Delay > 0 {
			spec.Delay = b.Delay
		}
		if b.WhiteBalance != nil {
			spec.AdditionalSettings = map[string]interface{}{"white_balance": b.WhiteBalance}
		}
		out = append(out, spec)
	}
	return out
}

// FocusStackConfig describes the focus stack shot for every frame
type FocusStackConfig struct {
	Enabled bool `json:"enabled" yaml:"enabled"`

	// Steps is the number of focus positions
	Steps int `json:"steps" yaml:"steps"`

	// StepSize is informational; moves are made at Speed
	StepSize int `json:"step_size" yaml:"step_size"`

	// Speed is the focus motor speed, 1 (fine) to 3 (coarse)
	Speed int `json:"speed" yaml:"speed"`

	Direction Direction `json:"direction" yaml:"direction"`
}

// Plan is a capture to execute
type Plan struct {
	Mode          Mode              `json:"capture_mode" yaml:"capture_mode"`
	SaveDirectory string            `json:"save_directory,omitempty" yaml:"save_directory,omitempty"`
	Brackets      []BracketSpec     `json:"brackets" yaml:"brackets"`
	FocusStack    *FocusStackConfig `json:"focus_stack,omitempty" yaml:"focus_stack,omitempty"`
}

// Stacking reports whether the plan shoots a focus stack per frame
func (p Plan) Stacking() bool {
	return p.FocusStack != nil && p.FocusStack.Enabled
}

// TotalFrames is the number of exposures the plan will take: the sum of the
// bracket frame counts, times steps+1 when focus stacking
func (p Plan) TotalFrames() int {
	total := 0
	for _, b := range p.Brackets {
		total += b.Frames
	}
	if p.Stacking() {
		steps := p.FocusStack.Steps
		if steps <= 0 {
			steps = defaultStackSteps
		}
		total *= steps + 1
	}
	return total
}

// Normalize returns a deep copy of the plan with defaults filled in: an empty
// mode is standard and an enabled focus stack gets 10 steps of size 3 at
// speed 2 from the near end.  A plan without brackets, an unknown mode or
// direction, and negative frame counts or delays are an ErrInvalidPlan.
func (p Plan) Normalize() (Plan, error) {
	out := p
	switch out.Mode {
	case "":
		out.Mode = ModeStandard
	case ModeStandard, ModeFast:
	default:
		return Plan{}, fmt.Errorf("%w: unknown capture mode %q", ErrInvalidPlan, p.Mode)
	}
	if len(p.Brackets) == 0 {
		return Plan{}, fmt.Errorf("%w: no brackets specified", ErrInvalidPlan)
	}
	out.Brackets = make([]BracketSpec, len(p.Brackets))
	for i, b := range p.Brackets {
		if b.Frames < 0 {
			return Plan{}, fmt.Errorf("%w: bracket %d has %d frames", ErrInvalidPlan, i+1, b.Frames)
		}
		if b.Delay < 0 {
			return Plan{}, fmt.Errorf("%w: bracket %d has a negative delay", ErrInvalidPlan, i+1)
		}
		if b.AdditionalSettings != nil {
			m := make(map[string]interface{}, len(b.AdditionalSettings))
			for k, v := range b.AdditionalSettings {
				m[k] = v
			}
			b.AdditionalSettings = m
		}
		out.Brackets[i] = b
	}
	if p.FocusStack != nil {
		fs := *p.FocusStack
		if fs.Enabled {
			if fs.Steps <= 0 {
				fs.Steps = defaultStackSteps
			}
			if fs.StepSize <= 0 {
				fs.StepSize = defaultStackStepSize
			}
			if fs.Speed == 0 {
				fs.Speed = defaultStackSpeed
			}
			fs.Speed = util.ClampInt(fs.Speed, 1, 3)
			switch fs.Direction {
			case "":
				fs.Direction = DirectionNear
			case DirectionNear, DirectionFar:
			default:
				return Plan{}, fmt.Errorf("%w: unknown focus direction %q", ErrInvalidPlan, fs.Direction)
			}
		}
		out.FocusStack = &fs
	}
	return out, nil
}

// LoadPlan decodes a plan from YAML (or JSON, which YAML accepts)
func LoadPlan(r io.Reader) (Plan, error) {
	var p Plan
	if err := yaml.NewDecoder(r).Decode(&p); err != nil {
		if errors.Is(err, io.EOF) {
			return Plan{}, fmt.Errorf("%w: empty plan", ErrInvalidPlan)
		}
		return Plan{}, fmt.Errorf("%w: %v", ErrInvalidPlan, err)
	}
	for i := range p.Brackets {
		for k, v := range p.Brackets[i].AdditionalSettings {
			p.Brackets[i].AdditionalSettings[k] = stringKeys(v)
		}
	}
	return p, nil
}

// ReadPlanFile loads a plan from a YAML or JSON file
func ReadPlanFile(path string) (Plan, error) {
	f, err := os.Open(path)
	if err != nil {
		return Plan{}, err
	}
	defer f.Close()
	return LoadPlan(f)
}

// stringKeys converts the map[interface{}]interface{} values yaml.v2 produces
// into map[string]interface{} so they can be encoded as JSON
func stringKeys(v interface{}) interface{} {
	switch t := v.(type) {
	case map[interface{}]interface{}:
		m := make(map[string]interface{}, len(t))
		for k, vv := range t {
			m[fmt.Sprint(k)] = stringKeys(vv)
		}
		return m
	case []interface{}:
		for i := range t {
			t[i] = stringKeys(t[i])
		}
		return t
	default:
		return v
	}
}

package exposure

import (
	"errors"
	"fmt"
	"math"

	"github.com/moonlab/bracket/mathx"
)

// Bracket is a named set of exposure settings produced by one of the generators
type Bracket struct {
	// Name is a human readable label, e.g. "Under 1.0EV"
	Name string `json:"name" yaml:"name"`

	Settings `yaml:",inline"`

	// EV is the EV100 of the bracket
	EV float64 `json:"ev" yaml:"ev"`

	// EVDiff is base EV minus this bracket's EV.  Only set by GenerateBracketsByEV
	EVDiff float64 `json:"ev_diff,omitempty" yaml:"ev_diff,omitempty"`

	// Frames and Delay are carried through from a DirectSpec
	Frames int     `json:"frames,omitempty" yaml:"frames,omitempty"`
	Delay  float64 `json:"delay,omitempty" yaml:"delay,omitempty"`
}

// Ladder returns the count EV values of a bracket ladder around baseEV,
// highest EV first, spaced by evStep.  Odd counts are centered on baseEV.
// Even counts start half a step above the odd-count formula, so the ladder is
// not symmetric about baseEV; that convention is kept as-is.
func Ladder(baseEV, evStep float64, count int) []float64 {
	if count <= 0 {
		return nil
	}
	var start float64
	if count%2 == 1 {
		start = baseEV + evStep*float64(count/2)
	} else {
		start = baseEV + evStep*float64((count-1)/2) + evStep/2
	}
	out := make([]float64, count)
	for i := range out {
		out[i] = start - float64(i)*evStep
	}
	return out
}

// BracketName labels an EV offset (base minus bracket EV)
func BracketName(diff float64) string {
	switch {
	case diff > 0:
		return fmt.Sprintf("Under %.1fEV", diff)
	case diff < 0:
		return fmt.Sprintf("Over %.1fEV", math.Abs(diff))
	default:
		return "Base Exposure"
	}
}

// GenerateBracketsByEV produces count brackets spaced evStep apart around the
// EV of base, ordered by decreasing EV.
func GenerateBracketsByEV(base Settings, evStep float64, count int, priority Priority) ([]Bracket, error) {
	baseEV, err := base.EV()
	if err != nil {
		return nil, err
	}
	ladder := Ladder(baseEV, evStep, count)
	out := make([]Bracket, 0, len(ladder))
	for _, ev := range ladder {
		s, err := SettingsForEV(ev, base.ISO, priority, base.Aperture)
		if err != nil {
			return nil, err
		}
		s.WhiteBalance = base.WhiteBalance
		diff := mathx.Round(baseEV-ev, 1e-9)
		out = append(out, Bracket{Name: BracketName(diff), Settings: s, EV: ev, EVDiff: diff})
	}
	return out, nil
}

// DirectSpec is a bracket as specified by a user or preset.  Pointer fields
// distinguish "absent" from zero.
type DirectSpec struct {
	Name         string      `json:"name" yaml:"name"`
	ISO          *int        `json:"iso" yaml:"iso"`
	Aperture     *float64    `json:"aperture" yaml:"aperture"`
	ShutterSpeed *string     `json:"shutter_speed" yaml:"shutter_speed"`
	WhiteBalance interface{} `json:"white_balance,omitempty" yaml:"white_balance,omitempty"`
	Frames       int         `json:"frames,omitempty" yaml:"frames,omitempty"`
	Delay        float64     `json:"delay,omitempty" yaml:"delay,omitempty"`
}

// RejectFunc is told about each DirectSpec dropped by GenerateBracketsDirect
type RejectFunc func(spec DirectSpec, err error)

// ErrMissingField is reported for direct specs lacking iso, aperture, or shutter speed
var ErrMissingField = errors.New("exposure: bracket requires iso, aperture, and shutter_speed")

// GenerateBracketsDirect validates directly specified brackets.  Each value
// not present verbatim in its third-stop table is snapped to the nearest
// entry.  Entries missing a field or with an unparseable shutter speed are
// dropped and reported to reject, which may be nil.
func GenerateBracketsDirect(specs []DirectSpec, reject RejectFunc) []Bracket {
	out := make([]Bracket, 0, len(specs))
	for _, spec := range specs {
		if spec.ISO == nil || spec.Aperture == nil || spec.ShutterSpeed == nil {
			if reject != nil {
				reject(spec, ErrMissingField)
			}
			continue
		}
		iso := *spec.ISO
		if !containsInt(ISOThird, iso) {
			iso = nearestISOThird(float64(iso))
		}
		aperture := *spec.Aperture
		if !containsFloat(ApertureThird, aperture) {
			aperture = nearestApertureThird(aperture)
		}
		shutter := *spec.ShutterSpeed
		if !containsString(ShutterThird, shutter) {
			secs, err := ParseShutter(shutter)
			if err != nil {
				if reject != nil {
					reject(spec, err)
				}
				continue
			}
			shutter = nearestShutterThird(secs)
		}
		s := Settings{ISO: iso, Aperture: aperture, ShutterSpeed: shutter, WhiteBalance: spec.WhiteBalance}
		ev, err := s.EV()
		if err != nil {
			if reject != nil {
				reject(spec, err)
			}
			continue
		}
		out = append(out, Bracket{Name: spec.Name, Settings: s, EV: ev, Frames: spec.Frames, Delay: spec.Delay})
	}
	return out
}

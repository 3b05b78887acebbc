/*Package exposure implements exposure value arithmetic and bracket generation.

All EVs are normalized to ISO 100 ("EV100"):

	EV100 = log2(N² × 100 / (t × ISO))

where N is the f-number and t the shutter time in seconds.  Shutter speeds
are carried as strings in the form photographers write them, either a
fraction "1/125" or a decimal number of seconds "2.5".

Two sets of reference tables are kept.  Brackets generated from EV steps are
snapped to the coarse full-stop tables, while brackets specified directly are
snapped to the finer third-stop tables so intentional fine detail survives.
*/
package exposure

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Priority selects which exposure parameter is held fixed when solving for an EV
type Priority string

const (
	// PriorityAperture holds the aperture (nearest full stop to the preferred value) and solves the shutter
	PriorityAperture Priority = "aperture"

	// PriorityShutter holds the shutter at ReferenceShutter and solves the aperture
	PriorityShutter Priority = "shutter"

	// PriorityISO holds ReferenceAperture and ReferenceISOShutter and solves the ISO
	PriorityISO Priority = "iso"
)

const (
	// ReferenceShutter is the anchor shutter speed for shutter priority
	ReferenceShutter = "1/60"

	// ReferenceAperture is the anchor aperture for ISO priority
	ReferenceAperture = 8.0

	// ReferenceISOShutter is the anchor shutter speed for ISO priority
	ReferenceISOShutter = "1/125"
)

var (
	// ErrInvalidSettings is returned when ISO or aperture are not positive
	ErrInvalidSettings = errors.New("exposure: iso and aperture must be positive")

	// ErrUnknownPriority is returned for a priority other than aperture, shutter, or iso
	ErrUnknownPriority = errors.New("exposure: unknown priority")
)

// ParseError is returned when a shutter speed cannot be turned into seconds
type ParseError struct {
	// Input is the offending shutter speed
	Input string

	// Reason describes what was wrong with it
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("exposure: cannot parse shutter speed %q: %s", e.Input, e.Reason)
}

// Settings is an exposure triple plus an opaque white balance
type Settings struct {
	ISO          int         `json:"iso" yaml:"iso"`
	Aperture     float64     `json:"aperture" yaml:"aperture"`
	ShutterSpeed string      `json:"shutter_speed" yaml:"shutter_speed"`
	WhiteBalance interface{} `json:"white_balance,omitempty" yaml:"white_balance,omitempty"`
}

// String formats the settings the way they are written on a camera display
func (s Settings) String() string {
	return fmt.Sprintf("ISO %d, f/%g, %s", s.ISO, s.Aperture, s.ShutterSpeed)
}

// Seconds returns the shutter time in seconds
func (s Settings) Seconds() (float64, error) {
	return ParseShutter(s.ShutterSpeed)
}

// EV computes the EV100 of the settings
func (s Settings) EV() (float64, error) {
	return CalculateEV(s.ISO, s.Aperture, s.ShutterSpeed)
}

// ParseShutter converts "N/D" or a decimal string to seconds.  The result is
// always finite and positive if err is nil.
func ParseShutter(shutter string) (float64, error) {
	s := strings.TrimSpace(shutter)
	if s == "" {
		return 0, &ParseError{Input: shutter, Reason: "empty"}
	}
	var secs float64
	if strings.Contains(s, "/") {
		parts := strings.Split(s, "/")
		if len(parts) != 2 {
			return 0, &ParseError{Input: shutter, Reason: "expected a single fraction N/D"}
		}
		num, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
		if err != nil {
			return 0, &ParseError{Input: shutter, Reason: "bad numerator"}
		}
		den, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
		if err != nil {
			return 0, &ParseError{Input: shutter, Reason: "bad denominator"}
		}
		if den == 0 {
			return 0, &ParseError{Input: shutter, Reason: "division by zero"}
		}
		secs = num / den
	} else {
		var err error
		secs, err = strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, &ParseError{Input: shutter, Reason: "not a number"}
		}
	}
	if math.IsNaN(secs) || math.IsInf(secs, 0) || secs <= 0 {
		return 0, &ParseError{Input: shutter, Reason: "must be a finite positive number of seconds"}
	}
	return secs, nil
}

// CalculateEV returns the EV100 for the given settings
func CalculateEV(iso int, aperture float64, shutter string) (float64, error) {
	t, err := ParseShutter(shutter)
	if err != nil {
		return 0, err
	}
	if iso <= 0 || aperture <= 0 {
		return 0, ErrInvalidSettings
	}
	return math.Log2(aperture * aperture * 100 / (t * float64(iso))), nil
}

// SettingsForEV solves for settings that produce ev.  The priority parameter
// is held (see the Priority constants) and the solved parameter is snapped to
// the nearest full-stop table entry.
func SettingsForEV(ev float64, iso int, priority Priority, preferredAperture float64) (Settings, error) {
	switch priority {
	case PriorityAperture:
		if iso <= 0 {
			return Settings{}, ErrInvalidSettings
		}
		n := NearestAperture(preferredAperture)
		t := n * n * 100 / (float64(iso) * math.Exp2(ev))
		return Settings{ISO: iso, Aperture: n, ShutterSpeed: NearestShutter(t)}, nil
	case PriorityShutter:
		if iso <= 0 {
			return Settings{}, ErrInvalidSettings
		}
		t, _ := ParseShutter(ReferenceShutter)
		n := math.Sqrt(float64(iso) * t * math.Exp2(ev) / 100)
		return Settings{ISO: iso, Aperture: NearestAperture(n), ShutterSpeed: ReferenceShutter}, nil
	case PriorityISO:
		n := ReferenceAperture
		t, _ := ParseShutter(ReferenceISOShutter)
		solved := n * n * 100 / (t * math.Exp2(ev))
		return Settings{ISO: NearestISO(solved), Aperture: n, ShutterSpeed: ReferenceISOShutter}, nil
	default:
		return Settings{}, fmt.Errorf("%w %q", ErrUnknownPriority, priority)
	}
}

// AdjustExposure shifts settings by evChange stops.  Positive changes brighten
// the exposure (lower EV100).  White balance is carried over.
func AdjustExposure(s Settings, evChange float64, priority Priority) (Settings, error) {
	current, err := s.EV()
	if err != nil {
		return Settings{}, err
	}
	out, err := SettingsForEV(current-evChange, s.ISO, priority, s.Aperture)
	if err != nil {
		return Settings{}, err
	}
	out.WhiteBalance = s.WhiteBalance
	return out, nil
}

package exposure

import (
	"fmt"
	"strings"
)

// supported ranges of typical bodies; values outside produce warnings, not errors
const (
	minSupportedISO      = 100
	maxSupportedISO      = 6400
	minSupportedAperture = 1.4
	maxSupportedAperture = 22
	minSupportedShutter  = 1. / 8000
	maxSupportedShutter  = 30
	manyFrames           = 100
)

// Verdict is the outcome of checking one bracket before a capture
type Verdict struct {
	Valid    bool   `json:"valid"`
	Error    string `json:"error,omitempty"`
	Warnings string `json:"warning,omitempty"`
}

// Check validates settings and a frame count the way a camera body would
// accept them.  Invalid values mark the verdict invalid; values merely outside
// the commonly supported range add a warning.
func Check(s Settings, frames int) Verdict {
	var (
		errs  []string
		warns []string
	)
	switch {
	case s.ISO <= 0:
		errs = append(errs, fmt.Sprintf("invalid ISO value: %d", s.ISO))
	case s.ISO < minSupportedISO || s.ISO > maxSupportedISO:
		warns = append(warns, fmt.Sprintf("ISO value %d may be out of supported range (%d-%d)", s.ISO, minSupportedISO, maxSupportedISO))
	}

	switch {
	case s.Aperture <= 0:
		errs = append(errs, fmt.Sprintf("invalid aperture value: %g", s.Aperture))
	case s.Aperture < minSupportedAperture || s.Aperture > maxSupportedAperture:
		warns = append(warns, fmt.Sprintf("aperture value f/%g may be out of supported range (f/%g-f/%d)", s.Aperture, minSupportedAperture, maxSupportedAperture))
	}

	if s.ShutterSpeed == "" {
		errs = append(errs, "missing shutter speed")
	} else if secs, err := ParseShutter(s.ShutterSpeed); err != nil {
		errs = append(errs, err.Error())
	} else if secs < minSupportedShutter || secs > maxSupportedShutter {
		warns = append(warns, fmt.Sprintf("shutter speed %s may be out of supported range (30s-1/8000s)", s.ShutterSpeed))
	}

	switch {
	case frames <= 0:
		errs = append(errs, fmt.Sprintf("invalid number of frames: %d", frames))
	case frames > manyFrames:
		warns = append(warns, fmt.Sprintf("large number of frames (%d) may cause long capture times", frames))
	}

	return Verdict{
		Valid:    len(errs) == 0,
		Error:    strings.Join(errs, "; "),
		Warnings: strings.Join(warns, "; "),
	}
}

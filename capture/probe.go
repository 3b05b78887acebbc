package capture

import (
	"fmt"
	"os"

	"github.com/moonlab/bracket/exposure"
)

// TestResult is the outcome of checking one bracket with TestBrackets
type TestResult struct {
	Index int    `json:"bracket_index"`
	Name  string `json:"bracket_name"`
	exposure.Verdict

	// TestShot is true when a test exposure was taken with the bracket
	TestShot bool   `json:"test_shot"`
	Message  string `json:"message,omitempty"`
}

// TestBrackets checks every bracket and, if shoot is true, takes one test
// exposure with each valid bracket into dir, falling back once to the
// conservative settings if the camera rejects it.  It reports whether every
// bracket passed.  ErrDeviceBusy is returned while a capture owns the camera.
func (o *Orchestrator) TestBrackets(brackets []BracketSpec, shoot bool, dir string) ([]TestResult, bool, error) {
	results := make([]TestResult, len(brackets))
	for i, b := range brackets {
		results[i] = TestResult{Index: i, Name: b.Name, Verdict: exposure.Check(b.Settings(), b.Frames)}
	}

	if shoot {
		if !o.device.TryLock() {
			return nil, false, ErrDeviceBusy
		}
		defer o.device.Unlock()
		if err := o.gw.StartSession(); err != nil {
			return nil, false, fmt.Errorf("%w: %v", ErrSessionStart, err)
		}
		if err := os.MkdirAll(dir, 0777); err != nil {
			return nil, false, err
		}
		if err := o.gw.PrepareDownload(dir); err != nil {
			return nil, false, err
		}
		shots := 0
		for i := range results {
			r := &results[i]
			if !r.Valid {
				continue
			}
			if shots > 0 {
				o.pause(o.timing.TestShot)
			}
			shots++
			o.testShot(r, brackets[i])
		}
	}

	ok := true
	for _, r := range results {
		ok = ok && r.Valid
	}
	return results, ok, nil
}

func (o *Orchestrator) testShot(r *TestResult, b BracketSpec) {
	if err := o.gw.ApplySettings(b.Settings()); err != nil {
		if err2 := o.gw.ApplySettings(o.fallback); err2 != nil {
			r.Valid = false
			r.Error = fmt.Sprintf("%v: %v", ErrSettingsRejected, err)
			return
		}
		msg := fmt.Sprintf("Original settings failed, used fallback settings: %s", o.fallback)
		if r.Warnings != "" {
			r.Warnings += "; " + msg
		} else {
			r.Warnings = msg
		}
	}
	if err := o.gw.TakePicture(true); err != nil {
		r.Valid = false
		r.Error = fmt.Sprintf("%v: %v", ErrShotFailed, err)
		return
	}
	r.TestShot = true
	r.Message = "Test shot successful"
}

package exposure_test

import (
	"errors"
	"math"
	"testing"

	"github.com/moonlab/bracket/exposure"
)

func TestLadderPinned(t *testing.T) {
	cases := []struct {
		base  float64
		step  float64
		count int
		want  []float64
	}{
		{10, 1, 3, []float64{11, 10, 9}},
		{10, 1, 4, []float64{11.5, 10.5, 9.5, 8.5}},
		{0, 1, 2, []float64{0.5, -0.5}},
		{10, 2, 1, []float64{10}},
		{10, 1, 0, nil},
	}
	for _, c := range cases {
		got := exposure.Ladder(c.base, c.step, c.count)
		if len(got) != len(c.want) {
			t.Errorf("count %d: expected %d values, got %d", c.count, len(c.want), len(got))
			continue
		}
		for i := range got {
			if got[i] != c.want[i] {
				t.Errorf("count %d: value %d expected %g got %g", c.count, i, c.want[i], got[i])
			}
		}
	}
}

func TestGenerateBracketsByEVScenarioB(t *testing.T) {
	base := exposure.Settings{ISO: 100, Aperture: 8.0, ShutterSpeed: "1/125"}
	brackets, err := exposure.GenerateBracketsByEV(base, 1.0, 3, exposure.PriorityShutter)
	if err != nil {
		t.Fatal(err)
	}
	if len(brackets) != 3 {
		t.Fatalf("expected 3 brackets, got %d", len(brackets))
	}
	wantNames := []string{"Over 1.0EV", "Base Exposure", "Under 1.0EV"}
	wantApertures := []float64{16, 11, 8}
	for i, b := range brackets {
		if b.Name != wantNames[i] {
			t.Errorf("bracket %d: expected name %q got %q", i, wantNames[i], b.Name)
		}
		if b.Aperture != wantApertures[i] {
			t.Errorf("bracket %d: expected f/%g got f/%g", i, wantApertures[i], b.Aperture)
		}
		if b.ShutterSpeed != exposure.ReferenceShutter {
			t.Errorf("bracket %d: expected shutter held at %s, got %s", i, exposure.ReferenceShutter, b.ShutterSpeed)
		}
		if i > 0 {
			step := brackets[i-1].EV - b.EV
			if math.Abs(step-1.0) > 1e-9 {
				t.Errorf("expected EV step of 1 between brackets %d and %d, got %f", i-1, i, step)
			}
		}
	}
}

func TestGenerateBracketsByEVCountAndOrder(t *testing.T) {
	base := exposure.Settings{ISO: 200, Aperture: 5.6, ShutterSpeed: "1/250"}
	for _, n := range []int{1, 2, 5, 6, 9} {
		for _, p := range []exposure.Priority{exposure.PriorityAperture, exposure.PriorityShutter, exposure.PriorityISO} {
			brackets, err := exposure.GenerateBracketsByEV(base, 0.7, n, p)
			if err != nil {
				t.Fatal(err)
			}
			if len(brackets) != n {
				t.Errorf("n=%d %s: expected %d brackets, got %d", n, p, n, len(brackets))
			}
			for i := 1; i < len(brackets); i++ {
				if brackets[i].EV >= brackets[i-1].EV {
					t.Errorf("n=%d %s: EVs not strictly decreasing at %d", n, p, i)
				}
			}
		}
	}
}

func TestGenerateBracketsByEVBadBase(t *testing.T) {
	_, err := exposure.GenerateBracketsByEV(exposure.Settings{ISO: 100, Aperture: 8, ShutterSpeed: "1/0"}, 1, 3, exposure.PriorityShutter)
	if err == nil {
		t.Fatal("expected an error for a base with a malformed shutter speed")
	}
}

func intp(i int) *int           { return &i }
func floatp(f float64) *float64 { return &f }
func strp(s string) *string     { return &s }

func TestGenerateBracketsDirectScenarioC(t *testing.T) {
	var rejected []error
	specs := []exposure.DirectSpec{{ISO: intp(100), Aperture: floatp(8.0), ShutterSpeed: strp("garbage")}}
	out := exposure.GenerateBracketsDirect(specs, func(_ exposure.DirectSpec, err error) {
		rejected = append(rejected, err)
	})
	if len(out) != 0 {
		t.Fatalf("expected the entry to be dropped, got %v", out)
	}
	if len(rejected) != 1 {
		t.Fatalf("expected one rejection, got %d", len(rejected))
	}
	var perr *exposure.ParseError
	if !errors.As(rejected[0], &perr) {
		t.Errorf("expected the rejection to be a ParseError, got %v", rejected[0])
	}
}

func TestGenerateBracketsDirectNilRejectFunc(t *testing.T) {
	specs := []exposure.DirectSpec{{ISO: intp(100), Aperture: floatp(8.0), ShutterSpeed: strp("garbage")}}
	if out := exposure.GenerateBracketsDirect(specs, nil); len(out) != 0 {
		t.Errorf("expected empty output, got %v", out)
	}
}

func TestGenerateBracketsDirectSnapsToThirdStops(t *testing.T) {
	specs := []exposure.DirectSpec{
		{Name: "snapped", ISO: intp(120), Aperture: floatp(7.5), ShutterSpeed: strp("1/120"), Frames: 10, Delay: 2},
		{Name: "verbatim", ISO: intp(160), Aperture: floatp(6.3), ShutterSpeed: strp("0.3"), Frames: 1},
		{Name: "missing", ISO: intp(100), Aperture: floatp(8)},
	}
	var missing int
	out := exposure.GenerateBracketsDirect(specs, func(_ exposure.DirectSpec, err error) {
		if errors.Is(err, exposure.ErrMissingField) {
			missing++
		}
	})
	if len(out) != 2 {
		t.Fatalf("expected 2 brackets, got %d", len(out))
	}
	if missing != 1 {
		t.Errorf("expected one missing-field rejection, got %d", missing)
	}
	s := out[0]
	if s.ISO != 125 || s.Aperture != 7.1 || s.ShutterSpeed != "1/125" {
		t.Errorf("expected ISO 125, f/7.1, 1/125, got %v", s.Settings)
	}
	if s.Frames != 10 || s.Delay != 2 || s.Name != "snapped" {
		t.Errorf("expected name, frames and delay to carry through, got %+v", s)
	}
	wantEV, _ := exposure.CalculateEV(125, 7.1, "1/125")
	if s.EV != wantEV {
		t.Errorf("expected EV %f, got %f", wantEV, s.EV)
	}
	v := out[1]
	if v.ISO != 160 || v.Aperture != 6.3 || v.ShutterSpeed != "0.3" {
		t.Errorf("expected verbatim values to be kept, got %v", v.Settings)
	}
}

func TestCheck(t *testing.T) {
	ok := exposure.Check(exposure.Settings{ISO: 100, Aperture: 8, ShutterSpeed: "1/125"}, 3)
	if !ok.Valid || ok.Error != "" || ok.Warnings != "" {
		t.Errorf("expected a clean verdict, got %+v", ok)
	}
	warn := exposure.Check(exposure.Settings{ISO: 12800, Aperture: 8, ShutterSpeed: "60"}, 150)
	if !warn.Valid || warn.Warnings == "" {
		t.Errorf("expected a valid verdict with warnings, got %+v", warn)
	}
	bad := exposure.Check(exposure.Settings{ISO: 100, Aperture: 8, ShutterSpeed: "1/0"}, 0)
	if bad.Valid || bad.Error == "" {
		t.Errorf("expected an invalid verdict, got %+v", bad)
	}
}

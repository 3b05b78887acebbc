package mathx_test

import (
	"fmt"
	"testing"

	"github.com/moonlab/bracket/mathx"
)

func ExampleRound() {
	fmt.Println(mathx.Round(1.25, 0.5), mathx.Round(-1.3, 0.5))
	// Output: 1.5 -1.5
}

func ExampleNearest() {
	apertures := []float64{1.0, 1.4, 2.0, 2.8, 4.0, 5.6, 8.0, 11.0}
	fmt.Println(apertures[mathx.Nearest(apertures, 7.1)])
	// Output: 8
}

func TestNearestTieGoesToFirst(t *testing.T) {
	vals := []float64{10, 20, 30}
	idx := mathx.Nearest(vals, 15)
	if idx != 0 {
		t.Errorf("expected tie at 15 to resolve to index 0, got %d", idx)
	}
}

func TestNearestEmpty(t *testing.T) {
	if idx := mathx.Nearest(nil, 1); idx != -1 {
		t.Errorf("expected -1 for empty slice, got %d", idx)
	}
}

func TestRoundAbsorbsNoise(t *testing.T) {
	x := 0.1 + 0.2 - 0.3
	if mathx.Round(x, 1e-9) != 0 {
		t.Errorf("expected %g to round to zero", x)
	}
}

func TestInts(t *testing.T) {
	out := mathx.Ints([]int{100, 200})
	if len(out) != 2 || out[0] != 100 || out[1] != 200 {
		t.Errorf("unexpected conversion %v", out)
	}
}

package util_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/moonlab/bracket/util"
)

func ExampleClampInt() {
	fmt.Println(util.ClampInt(5, 1, 3), util.ClampInt(-2, 1, 3))
	// Output: 3 1
}

func TestClampInt(t *testing.T) {
	if out := util.ClampInt(5, 1, 3); out != 3 {
		t.Errorf("expected 3, got %d", out)
	}
	if out := util.ClampInt(0, 1, 3); out != 1 {
		t.Errorf("expected 1, got %d", out)
	}
	if out := util.ClampInt(2, 1, 3); out != 2 {
		t.Errorf("expected 2, got %d", out)
	}
}

func TestSecsToDuration(t *testing.T) {
	var dur time.Duration = 123456789
	secs := dur.Seconds()
	out := util.SecsToDuration(secs)
	if out != dur {
		t.Errorf("expected SecsToDuration to round trip, output %v != expected %v", out, dur)
	}
}

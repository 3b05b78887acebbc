package exposure

import "github.com/moonlab/bracket/mathx"

// Full-stop tables, used when solving settings for an EV
var (
	// ISOFull holds the full-stop ISO values
	ISOFull = []int{50, 100, 200, 400, 800, 1600, 3200, 6400, 12800, 25600, 51200, 102400}

	// ApertureFull holds the full-stop f-numbers
	ApertureFull = []float64{1.0, 1.4, 2.0, 2.8, 4.0, 5.6, 8.0, 11.0, 16.0, 22.0, 32.0}

	// ShutterFull holds the full-stop shutter speeds, longest first
	ShutterFull = []string{
		"512", "256", "128", "64", "30", "15", "8", "4", "2", "1", "1/2", "1/4", "1/8", "1/15", "1/30",
		"1/60", "1/125", "1/250", "1/500", "1/1000", "1/2000", "1/4000", "1/8000",
	}
)

// Third-stop tables, used when validating directly specified brackets
var (
	// ISOThird holds the third-stop ISO values
	ISOThird = []int{
		50, 64, 80, 100, 125, 160, 200, 250, 320, 400, 500, 640, 800, 1000, 1250,
		1600, 2000, 2500, 3200, 4000, 5000, 6400, 8000, 10000, 12800, 16000, 20000,
		25600, 32000, 40000, 51200, 64000, 80000, 102400,
	}

	// ApertureThird holds the third-stop f-numbers
	ApertureThird = []float64{
		1.0, 1.1, 1.2, 1.4, 1.6, 1.8, 2.0, 2.2, 2.5, 2.8, 3.2, 3.5, 4.0, 4.5, 5.0,
		5.6, 6.3, 7.1, 8.0, 9.0, 10.0, 11.0, 13.0, 14.0, 16.0, 18.0, 20.0, 22.0,
		25.0, 29.0, 32.0,
	}

	// ShutterThird holds the third-stop shutter speeds, longest first
	ShutterThird = []string{
		"512", "400", "320", "256", "200", "160", "128", "100", "80", "64", "50", "40", "30", "25", "20", "15", "13", "10", "8", "6", "5", "4", "3.2", "2.5", "2",
		"1.6", "1.3", "1", "0.8", "0.6", "0.5", "0.4", "0.3", "1/4", "1/5", "1/6",
		"1/8", "1/10", "1/13", "1/15", "1/20", "1/25", "1/30", "1/40", "1/50",
		"1/60", "1/80", "1/100", "1/125", "1/160", "1/200", "1/250", "1/320",
		"1/400", "1/500", "1/640", "1/800", "1/1000", "1/1250", "1/1600", "1/2000",
		"1/2500", "1/3200", "1/4000", "1/5000", "1/6400", "1/8000",
	}
)

// float views of the tables, computed once
var (
	isoFullF       = mathx.Ints(ISOFull)
	isoThirdF      = mathx.Ints(ISOThird)
	shutterFullSec = mustSeconds(ShutterFull)
	shutterThirdS  = mustSeconds(ShutterThird)
)

func mustSeconds(speeds []string) []float64 {
	out := make([]float64, len(speeds))
	for i, s := range speeds {
		secs, err := ParseShutter(s)
		if err != nil {
			panic(err)
		}
		out[i] = secs
	}
	return out
}

// NearestISO snaps iso to the closest full-stop ISO
func NearestISO(iso float64) int {
	return ISOFull[mathx.Nearest(isoFullF, iso)]
}

// NearestAperture snaps an f-number to the closest full-stop aperture
func NearestAperture(fnum float64) float64 {
	return ApertureFull[mathx.Nearest(ApertureFull, fnum)]
}

// NearestShutter snaps a duration in seconds to the closest full-stop shutter speed
func NearestShutter(seconds float64) string {
	return ShutterFull[mathx.Nearest(shutterFullSec, seconds)]
}

func nearestISOThird(iso float64) int {
	return ISOThird[mathx.Nearest(isoThirdF, iso)]
}

func nearestApertureThird(fnum float64) float64 {
	return ApertureThird[mathx.Nearest(ApertureThird, fnum)]
}

func nearestShutterThird(seconds float64) string {
	return ShutterThird[mathx.Nearest(shutterThirdS, seconds)]
}

func containsInt(tbl []int, v int) bool {
	for _, x := range tbl {
		if x == v {
			return true
		}
	}
	return false
}

func containsFloat(tbl []float64, v float64) bool {
	for _, x := range tbl {
		if x == v {
			return true
		}
	}
	return false
}

func containsString(tbl []string, v string) bool {
	for _, x := range tbl {
		if x == v {
			return true
		}
	}
	return false
}

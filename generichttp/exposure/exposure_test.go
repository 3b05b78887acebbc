package exposure_test

import (
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi"

	"github.com/moonlab/bracket/exposure"
	"github.com/moonlab/bracket/generichttp"
	httpexp "github.com/moonlab/bracket/generichttp/exposure"
)

func router() http.Handler {
	mux := chi.NewRouter()
	httpexp.NewHTTPExposure().RT().Bind(mux)
	return mux
}

func post(h http.Handler, path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, path, strings.NewReader(body)))
	return w
}

func TestCalculateEV(t *testing.T) {
	w := post(router(), "/exposure/ev", `{"iso": 100, "aperture": 8, "shutter_speed": "1/125"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d %s", w.Code, w.Body)
	}
	var f generichttp.FloatT
	if err := json.NewDecoder(w.Body).Decode(&f); err != nil {
		t.Fatal(err)
	}
	if math.Abs(f.F64-12.9658) > 1e-3 {
		t.Errorf("expected EV 12.97, got %f", f.F64)
	}
}

func TestCalculateEVBadInput(t *testing.T) {
	h := router()
	tests := []string{
		`{"iso": 100, "aperture": 8, "shutter_speed": "garbage"}`,
		`{"iso": 0, "aperture": 8, "shutter_speed": "1/125"}`,
		`not json`,
	}
	for _, body := range tests {
		if w := post(h, "/exposure/ev", body); w.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", body, w.Code)
		}
	}
}

func TestSettingsForEVDefaults(t *testing.T) {
	w := post(router(), "/exposure/settings", `{"ev": 0}`)
	var s exposure.Settings
	if err := json.NewDecoder(w.Body).Decode(&s); err != nil {
		t.Fatal(err)
	}
	if s.ISO != 100 || s.Aperture != 8 || s.ShutterSpeed != "64" {
		t.Errorf("expected ISO 100, f/8, 64, got %s", s)
	}
	if w := post(router(), "/exposure/settings", `{"ev": 0, "priority": "sideways"}`); w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for an unknown priority, got %d", w.Code)
	}
}

func TestAdjust(t *testing.T) {
	w := post(router(), "/exposure/adjust", `{"settings": {"iso": 100, "aperture": 8, "shutter_speed": "1/125", "white_balance": "daylight"}, "ev_change": 1}`)
	var s exposure.Settings
	if err := json.NewDecoder(w.Body).Decode(&s); err != nil {
		t.Fatal(err)
	}
	if s.ShutterSpeed != "1/60" || s.WhiteBalance != "daylight" {
		t.Errorf("expected 1/60 with daylight white balance, got %s %v", s, s.WhiteBalance)
	}
}

func TestBracketsByEV(t *testing.T) {
	w := post(router(), "/exposure/brackets/ev", `{"base": {"iso": 100, "aperture": 8, "shutter_speed": "1/125"}, "ev_step": 1, "count": 3, "priority": "shutter"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d %s", w.Code, w.Body)
	}
	var resp httpexp.BracketsResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	names := []string{"Over 1.0EV", "Base Exposure", "Under 1.0EV"}
	if len(resp.Brackets) != len(names) {
		t.Fatalf("expected %d brackets, got %d", len(names), len(resp.Brackets))
	}
	for i, b := range resp.Brackets {
		if b.Name != names[i] {
			t.Errorf("bracket %d: expected %s got %s", i, names[i], b.Name)
		}
		if i > 0 && b.EV >= resp.Brackets[i-1].EV {
			t.Errorf("expected decreasing EV, got %f after %f", b.EV, resp.Brackets[i-1].EV)
		}
	}
	if w := post(router(), "/exposure/brackets/ev", `{"base": {"iso": 100, "aperture": 8, "shutter_speed": "1/125"}, "ev_step": 1, "count": 0}`); w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for a zero count, got %d", w.Code)
	}
}

func TestBracketsDirect(t *testing.T) {
	body := `{"brackets": [
		{"name": "ok", "iso": 120, "aperture": 7.5, "shutter_speed": "1/120"},
		{"name": "garbage", "iso": 100, "aperture": 8, "shutter_speed": "garbage"},
		{"name": "partial", "iso": 100}]}`
	w := post(router(), "/exposure/brackets/direct", body)
	var resp httpexp.BracketsResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Brackets) != 1 || resp.Brackets[0].ISO != 125 || resp.Brackets[0].ShutterSpeed != "1/125" {
		t.Errorf("unexpected brackets %+v", resp.Brackets)
	}
	if len(resp.Rejected) != 2 || resp.Rejected[0].Name != "garbage" || resp.Rejected[1].Name != "partial" {
		t.Errorf("unexpected rejections %+v", resp.Rejected)
	}
}

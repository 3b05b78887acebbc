package camera_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi"

	"github.com/moonlab/bracket/camera"
	"github.com/moonlab/bracket/exposure"
	"github.com/moonlab/bracket/generichttp"
	httpcam "github.com/moonlab/bracket/generichttp/camera"
	"github.com/moonlab/bracket/server/middleware/locker"
)

func setup() (*camera.Mock, *locker.Locker, http.Handler) {
	m := camera.NewMock()
	lk := locker.New()
	h := httpcam.NewHTTPCamera(m)
	locker.Inject(h, lk)
	mux := chi.NewRouter()
	mux.Use(lk.Check)
	h.RT().Bind(mux)
	return m, lk, mux
}

func do(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	h.ServeHTTP(w, req)
	return w
}

func TestManualControl(t *testing.T) {
	m, _, h := setup()
	if w := do(h, http.MethodPost, "/session", ""); w.Code != http.StatusOK {
		t.Fatalf("session: %d %s", w.Code, w.Body)
	}
	if w := do(h, http.MethodPost, "/settings", `{"iso": 400, "aperture": 5.6, "shutter_speed": "1/250"}`); w.Code != http.StatusOK {
		t.Fatalf("settings: %d %s", w.Code, w.Body)
	}
	if s := m.Settings(); s.ISO != 400 || s.ShutterSpeed != "1/250" {
		t.Errorf("unexpected settings %s", s)
	}
	if w := do(h, http.MethodPost, "/picture", `{"bool": true}`); w.Code != http.StatusOK {
		t.Fatalf("picture: %d %s", w.Code, w.Body)
	}
	if w := do(h, http.MethodPost, "/picture", ""); w.Code != http.StatusOK {
		t.Fatalf("picture without a body: %d %s", w.Code, w.Body)
	}
	shots := m.Shots()
	if len(shots) != 2 || !shots[0].OnDevice || shots[1].OnDevice {
		t.Errorf("unexpected shots %+v", shots)
	}
	if w := do(h, http.MethodPost, "/focus", `{"int": -2}`); w.Code != http.StatusOK {
		t.Fatalf("focus: %d %s", w.Code, w.Body)
	}
	if m.Focus() != -2 {
		t.Errorf("expected focus -2, got %d", m.Focus())
	}

	w := do(h, http.MethodGet, "/images", "")
	var count generichttp.IntT
	if err := json.NewDecoder(w.Body).Decode(&count); err != nil || count.Int != 1 {
		t.Errorf("expected 1 image on the card, got %v %v", count.Int, err)
	}

	w = do(h, http.MethodPost, "/images/download", `{"dir": "/tmp/x", "max": 5}`)
	var files struct{ Files []string }
	if err := json.NewDecoder(w.Body).Decode(&files); err != nil || len(files.Files) != 1 {
		t.Errorf("expected one file, got %v %v", files.Files, err)
	}
}

func TestRejectedSettings(t *testing.T) {
	m, _, h := setup()
	m.Reject = func(exposure.Settings) error { return errors.New("no") }
	if w := do(h, http.MethodPost, "/settings", `{"iso": 100}`); w.Code != http.StatusUnprocessableEntity {
		t.Errorf("expected 422, got %d", w.Code)
	}
	if w := do(h, http.MethodPost, "/settings", `{`); w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
	if w := do(h, http.MethodPost, "/images/download", `{"dir": ""}`); w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestLockedDuringCapture(t *testing.T) {
	m, lk, h := setup()
	lk.Lock()
	if w := do(h, http.MethodPost, "/picture", ""); w.Code != http.StatusLocked {
		t.Errorf("expected 423, got %d", w.Code)
	}
	if len(m.Shots()) != 0 {
		t.Error("expected no picture while locked")
	}
	if w := do(h, http.MethodGet, "/lock", ""); w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "true") {
		t.Errorf("expected the lock to read true, got %d %s", w.Code, w.Body)
	}
	lk.Unlock()
	if w := do(h, http.MethodPost, "/picture", ""); w.Code != http.StatusOK {
		t.Errorf("expected 200 after unlock, got %d", w.Code)
	}
}

package main

import (
	"bytes"
	"context"
	"io"
	"log"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi"

	"github.com/moonlab/bracket/camera"
	"github.com/moonlab/bracket/capture"
	httpcap "github.com/moonlab/bracket/generichttp/capture"
)

func server(t *testing.T, m *camera.Mock) string {
	t.Helper()
	hub := httpcap.NewHub()
	o := capture.NewOrchestrator(m, capture.Options{
		Sink:   hub,
		Sleep:  func(time.Duration) {},
		Logger: log.New(io.Discard, "", 0),
	})
	mux := chi.NewRouter()
	httpcap.NewHTTPCapture(o, hub, nil).RT().Bind(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv.URL
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err := cmd.ExecuteContext(ctx)
	return out.String(), err
}

func writePlan(t *testing.T, body string) string {
	t.Helper()
	fn := filepath.Join(t.TempDir(), "plan.yml")
	if err := os.WriteFile(fn, []byte(body), 0666); err != nil {
		t.Fatal(err)
	}
	return fn
}

const testPlan = `capture_mode: standard
brackets:
  - name: Base
    iso: 100
    aperture: 8
    shutter_speed: 1/125
    frames: 3
`

func TestSubmitAndWatch(t *testing.T) {
	m := camera.NewMock()
	addr := server(t, m)
	fn := writePlan(t, testPlan)
	out, err := run(t, "--addr", addr, "submit", fn, "--dir", t.TempDir(), "--watch", "--interval", "10ms")
	if err != nil {
		t.Fatalf("%v: %s", err, out)
	}
	if !strings.Contains(out, "completed  bracket 1/1  frames 3/3") {
		t.Errorf("expected a completed capture, got\n%s", out)
	}
	if len(m.Shots()) != 3 {
		t.Errorf("expected 3 shots, got %d", len(m.Shots()))
	}

	id := strings.SplitN(out, "\n", 2)[0]
	out, err = run(t, "--addr", addr, "list")
	if err != nil || !strings.Contains(out, id) {
		t.Errorf("expected %s listed, got %v\n%s", id, err, out)
	}
	out, err = run(t, "--addr", addr, "status", id)
	if err != nil || !strings.Contains(out, "capture "+id) {
		t.Errorf("unexpected status %v\n%s", err, out)
	}
	if _, err = run(t, "--addr", addr, "stop", id); err == nil || !strings.Contains(err.Error(), "409") {
		t.Errorf("expected a conflict stopping a finished capture, got %v", err)
	}
}

func TestSubmitRejectsBadPlansLocally(t *testing.T) {
	m := camera.NewMock()
	addr := server(t, m)
	fn := writePlan(t, "capture_mode: turbo\nbrackets:\n  - frames: 1\n")
	if _, err := run(t, "--addr", addr, "submit", fn); err == nil {
		t.Error("expected an error for an unknown mode")
	}
	if m.Sessions() != 0 {
		t.Error("expected the plan to never reach the camera")
	}
}

func TestEnvironmentAddress(t *testing.T) {
	addr := server(t, camera.NewMock())
	t.Setenv("BRACKETD_URL", addr)
	if _, err := run(t, "list"); err != nil {
		t.Errorf("expected BRACKETD_URL to be used, got %v", err)
	}
}

func TestEV(t *testing.T) {
	out, err := run(t, "ev", "--iso", "100", "--aperture", "8", "--shutter", "1/125")
	if err != nil || strings.TrimSpace(out) != "EV 12.97" {
		t.Errorf("unexpected output %q %v", out, err)
	}
	if _, err := run(t, "ev", "--shutter", "1/0"); err == nil {
		t.Error("expected an error for a bad shutter speed")
	}
}

func TestBracketsAsPlan(t *testing.T) {
	out, err := run(t, "brackets", "--count", "3", "--frames", "2", "--plan")
	if err != nil {
		t.Fatal(err)
	}
	p, err := capture.LoadPlan(strings.NewReader(out))
	if err != nil {
		t.Fatal(err)
	}
	if len(p.Brackets) != 3 || p.TotalFrames() != 6 || p.Mode != capture.ModeStandard {
		t.Errorf("unexpected plan %+v", p)
	}
	if _, err := run(t, "brackets", "--count", "0"); err == nil {
		t.Error("expected an error for zero brackets")
	}
}

func TestNewClientAddsScheme(t *testing.T) {
	tests := []struct {
		in, out string
	}{
		{"localhost:8000", "http://localhost:8000"},
		{"http://cam.local/bracket/", "http://cam.local/bracket"},
	}
	for _, tt := range tests {
		if got := newClient(tt.in).base; got != tt.out {
			t.Errorf("newClient(%q).base = %q, expected %q", tt.in, got, tt.out)
		}
	}
}

package server_test

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/moonlab/bracket/server"
)

func TestReplyWithFile(t *testing.T) {
	dir := t.TempDir()
	err := os.WriteFile(filepath.Join(dir, "capture_info.json"), []byte(`{"version":"1.1"}`), 0644)
	if err != nil {
		t.Fatal(err)
	}
	w := httptest.NewRecorder()
	server.ReplyWithFile(w, httptest.NewRequest(http.MethodGet, "/", nil), "capture_info.json", dir)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if w.Body.String() != `{"version":"1.1"}` {
		t.Errorf("unexpected body %q", w.Body.String())
	}
}

func TestReplyWithFileMissing(t *testing.T) {
	w := httptest.NewRecorder()
	server.ReplyWithFile(w, httptest.NewRequest(http.MethodGet, "/", nil), "nope.json", t.TempDir())
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}

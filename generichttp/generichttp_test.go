package generichttp_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"go/types"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi"
	"github.com/moonlab/bracket/generichttp"
)

func ExampleSubMuxSanitize() {
	fmt.Println(generichttp.SubMuxSanitize("bracket/"), generichttp.SubMuxSanitize(""), generichttp.SubMuxSanitize("/"))
	// Output: /bracket / /
}

func TestEndpointsSorted(t *testing.T) {
	rt := generichttp.RouteTable{
		{Method: http.MethodPost, Path: "/b"}: nil,
		{Method: http.MethodGet, Path: "/b"}:  nil,
		{Method: http.MethodGet, Path: "/a"}:  nil,
	}
	got := strings.Join(rt.Endpoints(), ",")
	want := "GET /a,GET /b,POST /b"
	if got != want {
		t.Errorf("expected %s got %s", want, got)
	}
}

func TestBindServesRoutesAndEndpoints(t *testing.T) {
	val := 0
	rt := generichttp.RouteTable{
		{Method: http.MethodGet, Path: "/val"}:  generichttp.GetInt(func() (int, error) { return val, nil }),
		{Method: http.MethodPost, Path: "/val"}: generichttp.SetInt(func(i int) error { val = i; return nil }),
	}
	r := chi.NewRouter()
	rt.Bind(r)
	srv := httptest.NewServer(r)
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/val", "application/json", strings.NewReader(`{"int": 7}`))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || val != 7 {
		t.Fatalf("expected 200 and val 7, got %d and %d", resp.StatusCode, val)
	}

	resp, err = http.Get(srv.URL + "/val")
	if err != nil {
		t.Fatal(err)
	}
	var it generichttp.IntT
	err = json.NewDecoder(resp.Body).Decode(&it)
	resp.Body.Close()
	if err != nil || it.Int != 7 {
		t.Errorf("expected {int: 7}, got %+v, %v", it, err)
	}

	resp, err = http.Get(srv.URL + "/endpoints")
	if err != nil {
		t.Fatal(err)
	}
	var eps []string
	err = json.NewDecoder(resp.Body).Decode(&eps)
	resp.Body.Close()
	if err != nil || len(eps) != 2 {
		t.Errorf("expected two endpoints, got %v, %v", eps, err)
	}
}

func TestSetIntBadBody(t *testing.T) {
	h := generichttp.SetInt(func(int) error { return nil })
	w := httptest.NewRecorder()
	h(w, httptest.NewRequest(http.MethodPost, "/", strings.NewReader("{")))
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestGetStringError(t *testing.T) {
	h := generichttp.GetString(func() (string, error) { return "", errors.New("boom") })
	w := httptest.NewRecorder()
	h(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if w.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", w.Code)
	}
}

func TestHumanPayloadPlainText(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Accept", "text/plain")
	generichttp.HumanPayload{T: types.String, String: "abc"}.EncodeAndRespond(w, r)
	if body := w.Body.String(); body != "abc" {
		t.Errorf("expected abc, got %q", body)
	}
}

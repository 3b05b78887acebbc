/*Package capture exposes a capture orchestrator over HTTP.

Plans are submitted with POST /capture and run in the background; clients
poll GET /capture/{id} or follow GET /capture/{id}/events, a server-sent
event stream of "capture_update" events whose data is the capture's snapshot.
The stream ends after the capture reaches a terminal status.
*/
package capture

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-contrib/sse"
	"github.com/go-chi/chi"

	"github.com/moonlab/bracket/capture"
	"github.com/moonlab/bracket/generichttp"
	"github.com/moonlab/bracket/server"
)

// EventName is the SSE event name of snapshots
const EventName = "capture_update"

// Orchestrator is the subset of *capture.Orchestrator used over HTTP
type Orchestrator interface {
	Start(capture.Plan) (string, error)
	Stop(id string) bool
	Status(id string) (capture.Snapshot, error)
	List() []capture.Snapshot
	Forget(id string) error
	TestBrackets(brackets []capture.BracketSpec, shoot bool, dir string) ([]capture.TestResult, bool, error)
}

// TestDirer makes the directory test shots are saved to
type TestDirer interface {
	TestDir() (string, error)
}

// StartResponse is the reply to a submitted plan
type StartResponse struct {
	ID string `json:"capture_id"`
}

// TestRequest is the body of POST /capture/test
type TestRequest struct {
	Brackets []capture.BracketSpec `json:"brackets"`
	Shoot    bool                  `json:"shoot"`
}

// TestResponse is the reply to POST /capture/test
type TestResponse struct {
	Success bool                 `json:"success"`
	Results []capture.TestResult `json:"results"`
}

// HTTPCapture is an HTTP wrapper around a capture orchestrator
type HTTPCapture struct {
	o    Orchestrator
	hub  *Hub
	dirs TestDirer

	// Poll is how often an event stream checks on its capture in case a
	// terminal snapshot was dropped; defaults to one second
	Poll time.Duration

	// RouteTable maps method, path pairs to http handlers
	RouteTable generichttp.RouteTable
}

// NewHTTPCapture returns a new HTTP wrapper.  hub should be the sink the
// orchestrator publishes to; dirs may be nil if test shots are not saved.
func NewHTTPCapture(o Orchestrator, hub *Hub, dirs TestDirer) *HTTPCapture {
	h := &HTTPCapture{o: o, hub: hub, dirs: dirs, Poll: time.Second}
	rt := generichttp.RouteTable{
		{Method: http.MethodPost, Path: "/capture"}:             h.Execute,
		{Method: http.MethodGet, Path: "/capture"}:              h.List,
		{Method: http.MethodPost, Path: "/capture/test"}:        h.Test,
		{Method: http.MethodGet, Path: "/capture/{id}"}:         h.Status,
		{Method: http.MethodDelete, Path: "/capture/{id}"}:      h.Forget,
		{Method: http.MethodPost, Path: "/capture/{id}/stop"}:   h.Stop,
		{Method: http.MethodGet, Path: "/capture/{id}/events"}:  h.Events,
		{Method: http.MethodGet, Path: "/capture/{id}/summary"}: h.Summary,
	}
	h.RouteTable = rt
	return h
}

// RT satisfies generichttp.HTTPer
func (h *HTTPCapture) RT() generichttp.RouteTable {
	return h.RouteTable
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, capture.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, capture.ErrInvalidPlan):
		return http.StatusBadRequest
	case errors.Is(err, capture.ErrSessionActive), errors.Is(err, capture.ErrDeviceBusy):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Execute starts the plan in the body of a POST request and replies with its id
func (h *HTTPCapture) Execute(w http.ResponseWriter, r *http.Request) {
	plan := capture.Plan{}
	err := json.NewDecoder(r.Body).Decode(&plan)
	defer r.Body.Close()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	id, err := h.o.Start(plan)
	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}
	generichttp.WriteJSON(w, http.StatusAccepted, StartResponse{ID: id})
}

// List replies with every capture, newest first
func (h *HTTPCapture) List(w http.ResponseWriter, r *http.Request) {
	generichttp.WriteJSON(w, http.StatusOK, h.o.List())
}

// Status replies with a snapshot of one capture
func (h *HTTPCapture) Status(w http.ResponseWriter, r *http.Request) {
	snap, err := h.o.Status(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}
	generichttp.WriteJSON(w, http.StatusOK, snap)
}

// Forget removes a finished capture from the registry
func (h *HTTPCapture) Forget(w http.ResponseWriter, r *http.Request) {
	if err := h.o.Forget(chi.URLParam(r, "id")); err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}
	w.WriteHeader(http.StatusOK)
}

// Stop asks a running capture to stop.  Captures that are not running are a 409.
func (h *HTTPCapture) Stop(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := h.o.Status(id); err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}
	if !h.o.Stop(id) {
		http.Error(w, "capture is not running", http.StatusConflict)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// Test checks the brackets in the body and, if shoot is set, takes one test
// shot with each valid bracket
func (h *HTTPCapture) Test(w http.ResponseWriter, r *http.Request) {
	req := TestRequest{}
	err := json.NewDecoder(r.Body).Decode(&req)
	defer r.Body.Close()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if len(req.Brackets) == 0 {
		http.Error(w, "no brackets specified", http.StatusBadRequest)
		return
	}
	dir := ""
	if req.Shoot {
		if h.dirs == nil {
			http.Error(w, "test shots are not enabled", http.StatusNotImplemented)
			return
		}
		dir, err = h.dirs.TestDir()
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	}
	results, ok, err := h.o.TestBrackets(req.Brackets, req.Shoot, dir)
	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}
	generichttp.WriteJSON(w, http.StatusOK, TestResponse{Success: ok, Results: results})
}

// Summary serves the summary file of a completed capture
func (h *HTTPCapture) Summary(w http.ResponseWriter, r *http.Request) {
	snap, err := h.o.Status(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}
	server.ReplyWithFile(w, r, capture.SummaryFile, snap.SaveDirectory)
}

// Events streams snapshots of a capture as server-sent events until it
// finishes or the client goes away
func (h *HTTPCapture) Events(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	ch, cancel := h.hub.Subscribe(id)
	defer cancel()
	snap, err := h.o.Status(id)
	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}

	hdr := w.Header()
	hdr.Set("Content-Type", sse.ContentType)
	hdr.Set("Cache-Control", "no-cache")
	hdr.Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	// send reports whether the stream is finished
	send := func(s capture.Snapshot) bool {
		err := sse.Encode(w, sse.Event{Event: EventName, Id: s.ID, Data: s})
		if err != nil {
			log.Printf("capture %s: event stream: %v", id, err)
			return true
		}
		flusher.Flush()
		return s.Status.Terminal()
	}
	if send(snap) {
		return
	}

	poll := h.Poll
	if poll <= 0 {
		poll = time.Second
	}
	tick := time.NewTicker(poll)
	defer tick.Stop()
	for {
		select {
		case s := <-ch:
			if send(s) {
				return
			}
		case <-tick.C:
			s, err := h.o.Status(id)
			if err != nil {
				return
			}
			if s.Status.Terminal() {
				send(s)
				return
			}
		case <-r.Context().Done():
			return
		}
	}
}

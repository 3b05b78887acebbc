/*Package capture executes capture plans against a single camera.

A Plan is a list of brackets, each shot some number of frames, optionally with
a focus stack at every frame.  An Orchestrator accepts plans with Start, which
returns a session id at once, and runs each plan on its own goroutine.  Only
one session talks to the camera at a time; later sessions wait in
StatusInitializing until the camera is free.

Nothing that goes wrong during a capture is returned to the caller.  Failures
are appended to the session's Errors and the coarse outcome is its Status,
which callers poll with Status or receive through a Sink.
*/
package capture

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/moonlab/bracket/camera"
	"github.com/moonlab/bracket/exposure"
)

var (
	// ErrNotFound is returned for an unknown session id
	ErrNotFound = errors.New("capture not found")

	// ErrInvalidPlan is returned by Start for a plan that cannot be run
	ErrInvalidPlan = errors.New("invalid capture plan")

	// ErrSessionActive is returned by Forget for a session that has not finished
	ErrSessionActive = errors.New("capture is still active")

	// ErrDeviceBusy is returned by TestBrackets while a capture owns the camera
	ErrDeviceBusy = errors.New("camera is busy with a capture")

	// ErrSessionStart is recorded when the camera session cannot be opened
	ErrSessionStart = errors.New("failed to start capture session")

	// ErrSettingsRejected is recorded when a bracket and the fallback are both rejected
	ErrSettingsRejected = errors.New("failed to apply settings")

	// ErrShotFailed is recorded for each exposure that fails
	ErrShotFailed = errors.New("failed to take picture")

	// ErrFocusMove is recorded when the focus motor does not move
	ErrFocusMove = errors.New("failed to adjust focus")

	// ErrReconcile is recorded when fast mode images cannot be counted or downloaded
	ErrReconcile = errors.New("failed to download images")

	// errStopped ends a worker that noticed a stop request
	errStopped = errors.New("capture stopped")
)

// DefaultFallback is tried once when the camera rejects a bracket's settings
var DefaultFallback = exposure.Settings{ISO: 100, Aperture: 8.0, ShutterSpeed: "1/125"}

// Timing holds the pauses the worker makes to let the camera keep up
type Timing struct {
	// FastFrame and StandardFrame follow each frame of a bracket without a delay
	FastFrame     time.Duration
	StandardFrame time.Duration

	// FastPosition and StandardPosition follow each focus stack exposure
	FastPosition     time.Duration
	StandardPosition time.Duration

	// Settle follows each focus move within a stack
	Settle time.Duration

	// Compensate follows the move back to the start of the stack
	Compensate time.Duration

	// Center follows the neutral centering move that ends a stack
	Center time.Duration

	// TestShot separates the shots of TestBrackets
	TestShot time.Duration
}

// DefaultTiming returns the pauses used with real cameras
func DefaultTiming() Timing {
	return Timing{
		FastFrame:        1 * time.Second,
		StandardFrame:    3 * time.Second,
		FastPosition:     500 * time.Millisecond,
		StandardPosition: 1 * time.Second,
		Settle:           500 * time.Millisecond,
		Compensate:       1 * time.Second,
		Center:           500 * time.Millisecond,
		TestShot:         3 * time.Second,
	}
}

// DeviceLock is engaged while a session owns the camera, e.g. to lock out
// manual control over HTTP
type DeviceLock interface {
	Lock()
	Unlock()
}

// Options configure an Orchestrator.  The zero value is usable.
type Options struct {
	// Sink receives every snapshot; nil discards them
	Sink Sink

	// Archiver persists the summary of completed captures; nil uses JSONArchiver
	Archiver Archiver

	// Logger defaults to the standard logger
	Logger *log.Logger

	// Sleep defaults to time.Sleep
	Sleep func(time.Duration)

	// Fallback replaces DefaultFallback when its ISO is not zero
	Fallback exposure.Settings

	// Lock, if not nil, is held while a session owns the camera
	Lock DeviceLock

	// SaveDir creates the directory for plans without one.  By default a
	// capture_<yyyymmdd_hhmmss> directory is made in the working directory.
	SaveDir func() (string, error)

	// Timing replaces DefaultTiming when Timing.StandardFrame is not zero
	Timing *Timing
}

// Orchestrator runs capture plans on one camera and keeps a registry of
// every session it has started
type Orchestrator struct {
	gw       camera.Gateway
	sink     Sink
	archiver Archiver
	log      *log.Logger
	sleep    func(time.Duration)
	fallback exposure.Settings
	lock     DeviceLock
	saveDir  func() (string, error)
	timing   Timing

	device sync.Mutex // held by the worker that owns the camera

	mu       sync.RWMutex
	sessions map[string]*session
}

// NewOrchestrator returns an Orchestrator driving gw
func NewOrchestrator(gw camera.Gateway, opts Options) *Orchestrator {
	o := &Orchestrator{
		gw:       gw,
		sink:     opts.Sink,
		archiver: opts.Archiver,
		log:      opts.Logger,
		sleep:    opts.Sleep,
		fallback: DefaultFallback,
		lock:     opts.Lock,
		saveDir:  opts.SaveDir,
		timing:   DefaultTiming(),
		sessions: make(map[string]*session),
	}
	if o.archiver == nil {
		o.archiver = JSONArchiver{}
	}
	if o.log == nil {
		o.log = log.Default()
	}
	if o.sleep == nil {
		o.sleep = time.Sleep
	}
	if opts.Fallback.ISO != 0 {
		o.fallback = opts.Fallback
	}
	if o.saveDir == nil {
		o.saveDir = timestampDir
	}
	if opts.Timing != nil {
		o.timing = *opts.Timing
	}
	return o
}

func timestampDir() (string, error) {
	dir := "capture_" + time.Now().Format("20060102_150405")
	return dir, os.MkdirAll(dir, 0777)
}

// Start validates plan, registers a new session and begins executing it in
// the background.  It never waits on the camera.
func (o *Orchestrator) Start(plan Plan) (string, error) {
	plan, err := plan.Normalize()
	if err != nil {
		return "", err
	}
	id := uuid.New().String()
	s := newSession(id, plan, time.Now())

	o.mu.Lock()
	o.sessions[id] = s
	o.mu.Unlock()

	o.log.Printf("capture %s: accepted, %d brackets, %d frames, %s mode", id, len(plan.Brackets), s.progress.TotalFrames, plan.Mode)
	o.publish(s)
	go o.run(s)
	return id, nil
}

// Stop asks a running session to stop.  It returns false if the session is
// unknown or not running.
func (o *Orchestrator) Stop(id string) bool {
	s, ok := o.get(id)
	if !ok {
		return false
	}
	s.mu.Lock()
	if s.status != StatusRunning {
		s.mu.Unlock()
		return false
	}
	s.status = StatusStopping
	s.mu.Unlock()
	o.log.Printf("capture %s: stopping", id)
	o.publish(s)
	return true
}

// Status returns a snapshot of a session
func (o *Orchestrator) Status(id string) (Snapshot, error) {
	s, ok := o.get(id)
	if !ok {
		return Snapshot{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return s.snapshot(), nil
}

// List returns a snapshot of every session, newest first
func (o *Orchestrator) List() []Snapshot {
	o.mu.RLock()
	out := make([]Snapshot, 0, len(o.sessions))
	for _, s := range o.sessions {
		out = append(out, s.snapshot())
	}
	o.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].StartTime.Equal(out[j].StartTime) {
			return out[i].ID < out[j].ID
		}
		return out[i].StartTime.After(out[j].StartTime)
	})
	return out
}

// Forget drops a finished session from the registry
func (o *Orchestrator) Forget(id string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	s, ok := o.sessions[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if !s.getStatus().Terminal() {
		return fmt.Errorf("%w: %s", ErrSessionActive, id)
	}
	delete(o.sessions, id)
	return nil
}

// Wait blocks until a session reaches a terminal status or ctx is done, and
// returns its final snapshot
func (o *Orchestrator) Wait(ctx context.Context, id string) (Snapshot, error) {
	s, ok := o.get(id)
	if !ok {
		return Snapshot{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	select {
	case <-s.done:
		return s.snapshot(), nil
	case <-ctx.Done():
		return s.snapshot(), ctx.Err()
	}
}

func (o *Orchestrator) get(id string) (*session, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	s, ok := o.sessions[id]
	return s, ok
}

// publish sends a snapshot to the sink; a panicking sink is logged and ignored
func (o *Orchestrator) publish(s *session) {
	if o.sink == nil {
		return
	}
	snap := s.snapshot()
	defer func() {
		if r := recover(); r != nil {
			o.log.Printf("capture %s: status sink failed: %v", s.id, r)
		}
	}()
	o.sink.Publish(snap)
}

// transition moves s to status to and publishes it.  If a stop was requested
// and to is not an error, the session is stopped instead and errStopped
// returned.
func (o *Orchestrator) transition(s *session, to Status) error {
	s.mu.Lock()
	from := s.status
	if from == StatusStopping && to != StatusError {
		to = StatusStopped
	}
	if err := ValidateTransition(from, to); err != nil {
		s.mu.Unlock()
		o.log.Printf("capture %s: %v", s.id, err)
		return err
	}
	s.status = to
	if to.Terminal() {
		now := time.Now()
		s.end = &now
	}
	s.mu.Unlock()
	o.publish(s)
	if to == StatusStopped {
		o.log.Printf("capture %s: stopped", s.id)
		return errStopped
	}
	return nil
}

// fail records err and moves s to StatusError unless it already finished
func (o *Orchestrator) fail(s *session, err error) {
	o.log.Printf("capture %s: %v", s.id, err)
	s.mu.Lock()
	s.errors = append(s.errors, err.Error())
	if !s.status.Terminal() {
		s.status = StatusError
		now := time.Now()
		s.end = &now
	}
	s.mu.Unlock()
	o.publish(s)
}

// record appends a recoverable error to s and publishes it
func (o *Orchestrator) record(s *session, err error) {
	o.log.Printf("capture %s: %v", s.id, err)
	s.addError(err)
	o.publish(s)
}

func (o *Orchestrator) pause(d time.Duration) {
	if d > 0 {
		o.sleep(d)
	}
}

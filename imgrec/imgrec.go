// Package imgrec lays out capture directories on disk in yyyy-mm-dd subfolders.
package imgrec

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/moonlab/bracket/generichttp"
)

// DefaultPrefix is the prefix of capture directories
const DefaultPrefix = "capture_"

// Recorder hands out fresh directories for captures under Root, one per
// call, in a subfolder for the current day.  It is safe for concurrent use.
type Recorder struct {
	mu sync.Mutex

	// Root is the root path
	Root string

	// Prefix is the prefix for capture directory names
	Prefix string

	// Now returns the current time; defaults to time.Now
	Now func() time.Time
}

// NewRecorder returns a Recorder rooted at root with the default prefix
func NewRecorder(root string) *Recorder {
	return &Recorder{Root: root, Prefix: DefaultPrefix}
}

func (r *Recorder) now() time.Time {
	if r.Now == nil {
		return time.Now()
	}
	return r.Now()
}

// dayFolder is the yyyy-mm-dd subfolder for t
func (r *Recorder) dayFolder(t time.Time) string {
	return filepath.Join(r.Root, t.Format("2006-01-02"))
}

// CaptureDir makes and returns a new directory <root>/<yyyy-mm-dd>/<prefix><hhmmss>.
// If that directory already exists a counter is appended, _2, _3, ...
func (r *Recorder) CaptureDir() (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t := r.now()
	fldr := r.dayFolder(t)
	if err := os.MkdirAll(fldr, 0777); err != nil {
		return "", err
	}
	base := filepath.Join(fldr, r.Prefix+t.Format("150405"))
	dir := base
	for i := 2; ; i++ {
		err := os.Mkdir(dir, 0777)
		if err == nil {
			return dir, nil
		}
		if !os.IsExist(err) {
			return "", err
		}
		dir = fmt.Sprintf("%s_%d", base, i)
	}
}

// TestDir makes and returns <root>/<yyyy-mm-dd>/test_shots, shared by every
// test shot of the day
func (r *Recorder) TestDir() (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	dir := filepath.Join(r.dayFolder(r.now()), "test_shots")
	return dir, os.MkdirAll(dir, 0777)
}

// SetRoot changes the root folder, creating it
func (r *Recorder) SetRoot(root string) error {
	if err := os.MkdirAll(root, 0777); err != nil {
		return err
	}
	r.mu.Lock()
	r.Root = root
	r.mu.Unlock()
	return nil
}

// GetRoot returns the root folder
func (r *Recorder) GetRoot() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.Root
}

// HTTPWrapper is an HTTP wrapper around a recorder that allows the folder and prefix to be changed on the fly
//
// it does not implement generichttp.HTTPer, offering an Inject method allowing it to be injected
// into another HTTPer
type HTTPWrapper struct {
	*Recorder
}

// NewHTTPWrapper returns an HTTP wrapper around a recorder
func NewHTTPWrapper(r *Recorder) HTTPWrapper {
	return HTTPWrapper{r}
}

// HTTPSetRoot updates the root folder of the recorder, creating it
func (h HTTPWrapper) HTTPSetRoot(w http.ResponseWriter, r *http.Request) {
	generichttp.SetString(h.Recorder.SetRoot)(w, r)
}

// HTTPGetRoot gets the recorder's root folder and sends it back as JSON
func (h HTTPWrapper) HTTPGetRoot(w http.ResponseWriter, r *http.Request) {
	generichttp.GetString(func() (string, error) { return h.Recorder.GetRoot(), nil })(w, r)
}

// HTTPSetPrefix updates the directory prefix of the recorder
func (h HTTPWrapper) HTTPSetPrefix(w http.ResponseWriter, r *http.Request) {
	generichttp.SetString(func(prefix string) error {
		h.Recorder.mu.Lock()
		defer h.Recorder.mu.Unlock()
		h.Recorder.Prefix = prefix
		return nil
	})(w, r)
}

// HTTPGetPrefix gets the recorder's prefix and sends it back as JSON
func (h HTTPWrapper) HTTPGetPrefix(w http.ResponseWriter, r *http.Request) {
	generichttp.GetString(func() (string, error) {
		h.Recorder.mu.Lock()
		defer h.Recorder.mu.Unlock()
		return h.Recorder.Prefix, nil
	})(w, r)
}

// Inject adds GET and POST routes for /autowrite/root and /autowrite/prefix to the HTTPer which manipulate this wrapper's recorder
func (h HTTPWrapper) Inject(other generichttp.HTTPer) {
	rt := other.RT()
	rt[generichttp.MethodPath{Method: http.MethodPost, Path: "/autowrite/root"}] = h.HTTPSetRoot
	rt[generichttp.MethodPath{Method: http.MethodGet, Path: "/autowrite/root"}] = h.HTTPGetRoot
	rt[generichttp.MethodPath{Method: http.MethodPost, Path: "/autowrite/prefix"}] = h.HTTPSetPrefix
	rt[generichttp.MethodPath{Method: http.MethodGet, Path: "/autowrite/prefix"}] = h.HTTPGetPrefix
}

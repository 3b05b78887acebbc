package camera

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/moonlab/bracket/exposure"
)

// ErrMockSession is returned by Mock.StartSession while FailSessions > 0
var ErrMockSession = errors.New("mock camera: could not open session")

// Shot is a record of one exposure taken by a Mock
type Shot struct {
	Settings exposure.Settings
	OnDevice bool
	Dir      string
}

// Mock is an in-memory Gateway.  Images shot with saveOnDevice=true are kept
// on a simulated card and named IMG_0001.JPG, IMG_0002.JPG, ...
//
// The exported function fields inject failures; they are read under the lock
// and may be set before the Mock is shared.
type Mock struct {
	sync.Mutex

	// Latency is slept at the start of every call
	Latency time.Duration

	// WriteFiles makes downloads and host transfers create empty files
	WriteFiles bool

	// FailSessions is the number of upcoming StartSession calls that fail
	FailSessions int

	// Reject, if not nil, is asked about every ApplySettings call
	Reject func(exposure.Settings) error

	// ShotErr, if not nil, is asked about shot n (1-based, counting attempts)
	ShotErr func(n int) error

	// FocusErr, if not nil, is asked about focus move n (1-based) with its step
	FocusErr func(n, step int) error

	// CountErr and DownloadErr are returned by CountImages and Download
	CountErr    error
	DownloadErr error

	// OnShot is called, without the lock held, after each successful shot
	OnShot func(n int)

	sessions int
	attempts int
	current  exposure.Settings
	shots    []Shot
	moves    []int
	card     []string
	target   string
}

// NewMock returns a Mock with an empty card
func NewMock() *Mock {
	return &Mock{}
}

func (m *Mock) wait() {
	if m.Latency > 0 {
		time.Sleep(m.Latency)
	}
}

// StartSession opens a fresh simulated session
func (m *Mock) StartSession() error {
	m.wait()
	m.Lock()
	defer m.Unlock()
	if m.FailSessions > 0 {
		m.FailSessions--
		return ErrMockSession
	}
	m.sessions++
	return nil
}

// ApplySettings stores s unless Reject objects to it
func (m *Mock) ApplySettings(s exposure.Settings) error {
	m.wait()
	m.Lock()
	defer m.Unlock()
	if m.Reject != nil {
		if err := m.Reject(s); err != nil {
			return err
		}
	}
	m.current = s
	return nil
}

// TakePicture records a shot with the current settings
func (m *Mock) TakePicture(saveOnDevice bool) error {
	m.wait()
	m.Lock()
	m.attempts++
	n := m.attempts
	if m.ShotErr != nil {
		if err := m.ShotErr(n); err != nil {
			m.Unlock()
			return err
		}
	}
	shot := Shot{Settings: m.current, OnDevice: saveOnDevice}
	var err error
	if saveOnDevice {
		m.card = append(m.card, cardName(len(m.card)+1))
	} else {
		shot.Dir = m.target
		if m.WriteFiles && m.target != "" {
			err = touch(filepath.Join(m.target, fmt.Sprintf("shot_%04d.jpg", len(m.shots)+1)))
		}
	}
	m.shots = append(m.shots, shot)
	hook := m.OnShot
	m.Unlock()
	if err != nil {
		return err
	}
	if hook != nil {
		hook(n)
	}
	return nil
}

// AdjustFocus records the move
func (m *Mock) AdjustFocus(step int) error {
	m.wait()
	m.Lock()
	defer m.Unlock()
	if m.FocusErr != nil {
		if err := m.FocusErr(len(m.moves)+1, step); err != nil {
			return err
		}
	}
	m.moves = append(m.moves, step)
	return nil
}

// CountImages returns the number of images on the simulated card
func (m *Mock) CountImages() (int, error) {
	m.wait()
	m.Lock()
	defer m.Unlock()
	if m.CountErr != nil {
		return 0, m.CountErr
	}
	return len(m.card), nil
}

// PrepareDownload sets the host transfer directory
func (m *Mock) PrepareDownload(dir string) error {
	m.wait()
	m.Lock()
	defer m.Unlock()
	m.target = dir
	return nil
}

// Download returns up to max card images, newest first, as paths in dir
func (m *Mock) Download(dir string, max int) ([]string, error) {
	m.wait()
	m.Lock()
	defer m.Unlock()
	if m.DownloadErr != nil {
		return nil, m.DownloadErr
	}
	var out []string
	for i := len(m.card) - 1; i >= 0 && len(out) < max; i-- {
		p := filepath.Join(dir, m.card[i])
		if m.WriteFiles {
			if err := touch(p); err != nil {
				return out, err
			}
		}
		out = append(out, p)
	}
	return out, nil
}

// Preload puts n images on the card as if they were shot before
func (m *Mock) Preload(n int) {
	m.Lock()
	defer m.Unlock()
	for i := 0; i < n; i++ {
		m.card = append(m.card, cardName(len(m.card)+1))
	}
}

// Sessions returns the number of sessions opened successfully
func (m *Mock) Sessions() int {
	m.Lock()
	defer m.Unlock()
	return m.sessions
}

// Shots returns a copy of the shots taken
func (m *Mock) Shots() []Shot {
	m.Lock()
	defer m.Unlock()
	return append([]Shot(nil), m.shots...)
}

// Moves returns a copy of the focus moves applied
func (m *Mock) Moves() []int {
	m.Lock()
	defer m.Unlock()
	return append([]int(nil), m.moves...)
}

// Focus returns the net focus position, the sum of all applied moves
func (m *Mock) Focus() int {
	m.Lock()
	defer m.Unlock()
	sum := 0
	for _, mv := range m.moves {
		sum += mv
	}
	return sum
}

// Settings returns the settings last applied
func (m *Mock) Settings() exposure.Settings {
	m.Lock()
	defer m.Unlock()
	return m.current
}

func cardName(n int) string {
	return fmt.Sprintf("IMG_%04d.JPG", n)
}

func touch(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0777); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	return f.Close()
}

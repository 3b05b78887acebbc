package capture

import (
	"sync"
	"time"
)

// Progress counts how far a session has come.  Every field only grows while
// a session runs, except CurrentFrame which restarts with each bracket.
type Progress struct {
	// CurrentBracket is 1-based; 0 before the first bracket
	CurrentBracket int `json:"current_bracket" yaml:"current_bracket"`
	TotalBrackets  int `json:"total_brackets" yaml:"total_brackets"`

	// CurrentFrame is 1-based within the current bracket
	CurrentFrame    int `json:"current_frame" yaml:"current_frame"`
	TotalFrames     int `json:"total_frames" yaml:"total_frames"`
	CompletedFrames int `json:"completed_frames" yaml:"completed_frames"`
	FailedFrames    int `json:"failed_frames" yaml:"failed_frames"`
}

// Snapshot is a copy of a session's state at one instant
type Snapshot struct {
	ID            string     `json:"id"`
	Status        Status     `json:"status"`
	Plan          Plan       `json:"plan"`
	SaveDirectory string     `json:"save_directory"`
	Progress      Progress   `json:"progress"`
	Results       []string   `json:"results"`
	Errors        []string   `json:"errors"`
	StartTime     time.Time  `json:"start_time"`
	EndTime       *time.Time `json:"end_time,omitempty"`
}

// session is the live record of one capture.  Its worker is the only writer
// of everything but status, which Stop may flip from running to stopping.
type session struct {
	mu       sync.Mutex
	id       string
	plan     Plan
	dir      string
	status   Status
	progress Progress
	results  []string
	errors   []string
	start    time.Time
	end      *time.Time
	done     chan struct{}
}

func newSession(id string, plan Plan, now time.Time) *session {
	return &session{
		id:     id,
		plan:   plan,
		dir:    plan.SaveDirectory,
		status: StatusInitializing,
		progress: Progress{
			TotalBrackets: len(plan.Brackets),
			TotalFrames:   plan.TotalFrames(),
		},
		start: now,
		done:  make(chan struct{}),
	}
}

func (s *session) snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := Snapshot{
		ID:            s.id,
		Status:        s.status,
		Plan:          s.plan,
		SaveDirectory: s.dir,
		Progress:      s.progress,
		Results:       append(make([]string, 0, len(s.results)), s.results...),
		Errors:        append(make([]string, 0, len(s.errors)), s.errors...),
		StartTime:     s.start,
	}
	if s.end != nil {
		end := *s.end
		snap.EndTime = &end
	}
	return snap
}

func (s *session) getStatus() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

func (s *session) update(fn func(p *Progress)) {
	s.mu.Lock()
	fn(&s.progress)
	s.mu.Unlock()
}

func (s *session) addError(err error) {
	s.mu.Lock()
	s.errors = append(s.errors, err.Error())
	s.mu.Unlock()
}

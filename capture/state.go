package capture

import "fmt"

// Status is the coarse state of a capture session
type Status string

const (
	// StatusInitializing is a session that has been accepted but whose worker
	// has not yet obtained the camera
	StatusInitializing Status = "initializing"

	// StatusRunning is a session shooting brackets
	StatusRunning Status = "running"

	// StatusStopping is a running session asked to stop; the worker notices
	// at the top of the next frame
	StatusStopping Status = "stopping"

	// StatusDownloading is a fast mode session transferring images from the card
	StatusDownloading Status = "downloading"

	// StatusCompleted is a session that ran to the end
	StatusCompleted Status = "completed"

	// StatusStopped is a session that was stopped
	StatusStopped Status = "stopped"

	// StatusError is a session that could not continue
	StatusError Status = "error"
)

var allowedTransitions = map[Status]map[Status]bool{
	StatusInitializing: {StatusRunning: true, StatusError: true},
	StatusRunning:      {StatusStopping: true, StatusDownloading: true, StatusCompleted: true, StatusError: true},
	StatusStopping:     {StatusStopped: true, StatusError: true},
	StatusDownloading:  {StatusCompleted: true, StatusError: true},
}

// Terminal reports whether no further transitions are possible from s
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusStopped || s == StatusError
}

// ValidateTransition returns an error if a session may not move from one status to another
func ValidateTransition(from, to Status) error {
	if allowedTransitions[from][to] {
		return nil
	}
	return fmt.Errorf("invalid capture transition: %s -> %s", from, to)
}

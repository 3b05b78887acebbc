package capture

import "log"

// Sink receives a snapshot after every change to a session.  Publish must
// not block for long; it is called from the session's worker.
type Sink interface {
	Publish(Snapshot)
}

// SinkFunc adapts a func to a Sink
type SinkFunc func(Snapshot)

// Publish calls f
func (f SinkFunc) Publish(s Snapshot) {
	f(s)
}

// MultiSink publishes to each sink in order
type MultiSink []Sink

// Publish sends s to every sink
func (m MultiSink) Publish(s Snapshot) {
	for _, sink := range m {
		if sink != nil {
			sink.Publish(s)
		}
	}
}

// LogSink writes a one line progress report per snapshot
type LogSink struct {
	// Logger defaults to the standard logger
	Logger *log.Logger
}

// Publish logs the snapshot
func (l LogSink) Publish(s Snapshot) {
	lg := l.Logger
	if lg == nil {
		lg = log.Default()
	}
	p := s.Progress
	lg.Printf("capture %s: %s bracket %d/%d frame %d, %d/%d done, %d failed",
		s.ID, s.Status, p.CurrentBracket, p.TotalBrackets, p.CurrentFrame,
		p.CompletedFrames, p.TotalFrames, p.FailedFrames)
}

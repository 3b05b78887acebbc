package capture

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/moonlab/bracket/util"
)

// run is the body of a session's goroutine
func (o *Orchestrator) run(s *session) {
	defer close(s.done)
	o.device.Lock()
	defer o.device.Unlock()
	if o.lock != nil {
		o.lock.Lock()
		defer o.lock.Unlock()
	}
	defer func() {
		if r := recover(); r != nil {
			o.fail(s, fmt.Errorf("capture aborted: %v", r))
		}
	}()
	if err := o.execute(s); err != nil && !errors.Is(err, errStopped) {
		o.fail(s, err)
	}
}

func (o *Orchestrator) execute(s *session) error {
	if err := o.transition(s, StatusRunning); err != nil {
		return err
	}
	plan := s.plan
	dir, err := o.prepareDir(plan.SaveDirectory)
	if err != nil {
		return fmt.Errorf("failed to create save directory: %w", err)
	}
	s.mu.Lock()
	s.dir = dir
	s.mu.Unlock()
	o.log.Printf("capture %s: saving to %s", s.id, dir)

	if err := o.gw.StartSession(); err != nil {
		return fmt.Errorf("%w: %v", ErrSessionStart, err)
	}

	onDevice := plan.Mode == ModeFast
	before := 0
	if onDevice {
		n, err := o.gw.CountImages()
		if err != nil {
			o.record(s, fmt.Errorf("%w: counting images before capture: %v", ErrReconcile, err))
		} else {
			before = n
		}
	} else if err := o.gw.PrepareDownload(dir); err != nil {
		return fmt.Errorf("failed to prepare download to %s: %w", dir, err)
	}

	for i, b := range plan.Brackets {
		idx := i
		s.update(func(p *Progress) {
			p.CurrentBracket = idx + 1
			p.CurrentFrame = 0
		})
		o.publish(s)
		if !o.apply(s, i, b) {
			continue
		}
		delay := o.frameDelay(plan.Mode, b)
		for f := 0; f < b.Frames; f++ {
			if s.getStatus() == StatusStopping {
				return o.transition(s, StatusStopped)
			}
			frame := f
			s.update(func(p *Progress) { p.CurrentFrame = frame + 1 })
			o.publish(s)
			if plan.Stacking() {
				o.focusStack(s, i, f, plan)
			} else {
				o.shoot(s, i, f, -1, onDevice)
			}
			o.pause(delay)
		}
	}

	if onDevice {
		if err := o.transition(s, StatusDownloading); err != nil {
			return err
		}
		o.reconcile(s, dir, before)
	}
	if s.getStatus() == StatusStopping {
		return o.transition(s, StatusStopped)
	}
	if err := o.archiver.Save(dir, o.summary(s)); err != nil {
		o.record(s, fmt.Errorf("failed to save capture summary: %w", err))
	}
	if err := o.transition(s, StatusCompleted); err != nil {
		return err
	}
	o.log.Printf("capture %s: completed", s.id)
	return nil
}

func (o *Orchestrator) prepareDir(dir string) (string, error) {
	if dir == "" {
		return o.saveDir()
	}
	return dir, os.MkdirAll(dir, 0777)
}

// apply sets a bracket's exposure, falling back once to the conservative
// settings.  It reports whether the bracket should be shot.
func (o *Orchestrator) apply(s *session, i int, b BracketSpec) bool {
	err := o.gw.ApplySettings(b.Settings())
	if err == nil {
		return true
	}
	o.log.Printf("capture %s: bracket %d (%s) rejected %s: %v, trying %s", s.id, i+1, b.Name, b.Settings(), err, o.fallback)
	if err := o.gw.ApplySettings(o.fallback); err != nil {
		o.record(s, fmt.Errorf("%w for bracket %d (%s): %v", ErrSettingsRejected, i+1, b.Name, err))
		return false
	}
	return true
}

func (o *Orchestrator) frameDelay(m Mode, b BracketSpec) time.Duration {
	if b.Delay > 0 {
		return util.SecsToDuration(b.Delay)
	}
	if m == ModeFast {
		return o.timing.FastFrame
	}
	return o.timing.StandardFrame
}

func (o *Orchestrator) positionDelay(m Mode) time.Duration {
	if m == ModeFast {
		return o.timing.FastPosition
	}
	return o.timing.StandardPosition
}

// shoot takes one exposure and counts it.  focus is the stack position, or
// negative outside a focus stack.
func (o *Orchestrator) shoot(s *session, bracket, frame, focus int, onDevice bool) {
	err := o.gw.TakePicture(onDevice)
	if err != nil {
		s.update(func(p *Progress) { p.FailedFrames++ })
		if focus < 0 {
			err = fmt.Errorf("%w %d for bracket %d: %v", ErrShotFailed, frame+1, bracket+1, err)
		} else {
			err = fmt.Errorf("%w %d (focus %d) for bracket %d: %v", ErrShotFailed, frame+1, focus, bracket+1, err)
		}
		o.record(s, err)
		return
	}
	s.update(func(p *Progress) { p.CompletedFrames++ })
	o.publish(s)
}

// focusStack shoots steps exposures walking the focus motor away from where
// it started, returns it by the distance actually travelled, shoots once more
// at the start and finally issues a neutral centering move
func (o *Orchestrator) focusStack(s *session, bracket, frame int, plan Plan) {
	fs := plan.FocusStack
	onDevice := plan.Mode == ModeFast
	step := fs.Direction.Sign() * fs.Speed
	position := o.positionDelay(plan.Mode)

	total := 0
	for pos := 0; pos < fs.Steps; pos++ {
		o.shoot(s, bracket, frame, pos, onDevice)
		if pos == fs.Steps-1 {
			break
		}
		if err := o.gw.AdjustFocus(step); err != nil {
			o.record(s, fmt.Errorf("%w at position %d of frame %d for bracket %d, abandoning %d positions: %v",
				ErrFocusMove, pos+1, frame+1, bracket+1, fs.Steps-pos-1, err))
			break
		}
		total += step
		o.pause(o.timing.Settle)
		o.pause(position)
	}

	if total != 0 {
		if err := o.gw.AdjustFocus(-total); err != nil {
			o.record(s, fmt.Errorf("%w returning %d steps for bracket %d: %v", ErrFocusMove, -total, bracket+1, err))
		}
		o.pause(o.timing.Compensate)
	}
	o.shoot(s, bracket, frame, fs.Steps, onDevice)
	o.pause(position)
	if err := o.gw.AdjustFocus(0); err != nil {
		o.record(s, fmt.Errorf("%w centering for bracket %d: %v", ErrFocusMove, bracket+1, err))
	}
	o.pause(o.timing.Center)
}

// reconcile downloads the images a fast mode capture left on the card,
// identified by how much the card count grew since before.  Images added or
// removed by anything else in between are miscounted.
func (o *Orchestrator) reconcile(s *session, dir string, before int) {
	if err := o.gw.StartSession(); err != nil {
		o.record(s, fmt.Errorf("%w: reopening session: %v", ErrReconcile, err))
	}
	now, err := o.gw.CountImages()
	if err != nil {
		o.record(s, fmt.Errorf("%w: counting images: %v", ErrReconcile, err))
		return
	}
	n := now - before
	if n <= 0 {
		o.log.Printf("capture %s: no new images on the camera (%d before, %d after), skipping download", s.id, before, now)
		return
	}
	files, err := o.gw.Download(dir, n)
	s.mu.Lock()
	s.results = append(s.results, files...)
	s.mu.Unlock()
	if err != nil {
		o.record(s, fmt.Errorf("%w: %d of %d images: %v", ErrReconcile, len(files), n, err))
		return
	}
	o.log.Printf("capture %s: downloaded %d images to %s", s.id, len(files), dir)
	o.publish(s)
}

// summary is written just before a session completes, so its status is
// always completed
func (o *Orchestrator) summary(s *session) Summary {
	snap := s.snapshot()
	return Summary{
		ID:          snap.ID,
		StartTime:   snap.StartTime,
		EndTime:     time.Now(),
		Status:      StatusCompleted,
		CaptureMode: snap.Plan.Mode,
		Brackets:    snap.Plan.Brackets,
		Progress:    snap.Progress,
		Errors:      snap.Errors,
		Version:     SummaryVersion,
	}
}

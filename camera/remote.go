package camera

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff"
	"golang.org/x/time/rate"

	"github.com/moonlab/bracket/comm"
	"github.com/moonlab/bracket/exposure"
	"github.com/moonlab/bracket/util"
)

// RemoteConfig describes how to reach a camera bridge
type RemoteConfig struct {
	// Addr is host:port for TCP, or the serial port name if Serial is true
	Addr string `yaml:"Addr"`

	// Serial selects a serial port instead of TCP
	Serial bool `yaml:"Serial"`

	// Baud is the serial baud rate
	Baud int `yaml:"Baud"`

	// Timeout is the limit on each exchange with the bridge, in seconds.
	// Shots with long shutter speeds need a generous value.
	Timeout float64 `yaml:"Timeout"`

	// MinSpacing is the minimum time between commands, in seconds
	MinSpacing float64 `yaml:"MinSpacing"`

	// Idle is how long an unused connection is kept open, in seconds
	Idle float64 `yaml:"Idle"`

	// SessionRetry bounds how long StartSession keeps retrying, in seconds
	SessionRetry float64 `yaml:"SessionRetry"`
}

// Remote is a Gateway that drives a camera bridge with a line protocol over
// comm.  Commands are serialized over a single pooled connection and paced so
// the bridge sees at most one command per MinSpacing.
type Remote struct {
	pool         *comm.Pool
	limiter      *rate.Limiter
	timeout      time.Duration
	sessionRetry time.Duration
}

// NewRemote creates a new Remote.  No connection is made until the first
// command.
func NewRemote(cfg RemoteConfig) *Remote {
	rd := comm.NewRemoteDevice(cfg.Addr, cfg.Serial)
	if cfg.Baud != 0 {
		rd.Baud = cfg.Baud
	}
	timeout := util.SecsToDuration(cfg.Timeout)
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	// TCP uses it to dial, serial ports as the read timeout
	rd.Timeout = comm.DefaultTimeout
	if cfg.Serial {
		rd.Timeout = timeout
	}
	idle := util.SecsToDuration(cfg.Idle)
	if idle <= 0 {
		idle = 30 * time.Second
	}
	lim := rate.NewLimiter(rate.Inf, 1)
	if spacing := util.SecsToDuration(cfg.MinSpacing); spacing > 0 {
		lim = rate.NewLimiter(rate.Every(spacing), 1)
	}
	retry := util.SecsToDuration(cfg.SessionRetry)
	if retry <= 0 {
		retry = 10 * time.Second
	}
	return &Remote{
		pool:         comm.NewPool(1, idle, comm.Dialer(&rd)),
		limiter:      lim,
		timeout:      timeout,
		sessionRetry: retry,
	}
}

// Close frees the idle connection to the bridge
func (r *Remote) Close() error {
	return r.pool.Close()
}

// do sends one command and returns the payload of its OK reply
func (r *Remote) do(args ...string) (string, error) {
	cmd := strings.Join(args, " ")
	if err := r.limiter.Wait(context.Background()); err != nil {
		return "", err
	}
	conn, err := r.pool.Get()
	if err != nil {
		return "", err
	}
	resp, err := comm.Exchange(conn, Frame(cmd), r.timeout)
	if err != nil {
		// the connection may be desynchronized, do not reuse it
		r.pool.Destroy(conn)
		return "", err
	}
	r.pool.Put(conn)
	body, err := Unframe(resp)
	if err != nil {
		return "", err
	}
	return parseReply(args[0], body)
}

// StartSession opens a fresh session on the bridge.  Transport failures are
// retried with an exponential backoff; an ERR reply is final.
func (r *Remote) StartSession() error {
	op := func() error {
		_, err := r.do("SESSION")
		var berr *BridgeError
		if errors.As(err, &berr) {
			return backoff.Permanent(err)
		}
		return err
	}
	return backoff.Retry(op, &backoff.ExponentialBackOff{
		InitialInterval:     100 * time.Millisecond,
		RandomizationFactor: 0.,
		Multiplier:          2.,
		MaxInterval:         2 * time.Second,
		MaxElapsedTime:      r.sessionRetry,
		Clock:               backoff.SystemClock})
}

// ApplySettings sends ISO, aperture, shutter and, if set, white balance
func (r *Remote) ApplySettings(s exposure.Settings) error {
	args := []string{
		"SET",
		"ISO=" + strconv.Itoa(s.ISO),
		"F=" + strconv.FormatFloat(s.Aperture, 'g', -1, 64),
		"T=" + s.ShutterSpeed,
	}
	if s.WhiteBalance != nil {
		args = append(args, fmt.Sprintf("WB=%v", s.WhiteBalance))
	}
	_, err := r.do(args...)
	return err
}

// TakePicture shoots one frame to the card or to the host
func (r *Remote) TakePicture(saveOnDevice bool) error {
	dest := "HOST"
	if saveOnDevice {
		dest = "CARD"
	}
	_, err := r.do("SHOOT", dest)
	return err
}

// AdjustFocus drives the focus motor one step
func (r *Remote) AdjustFocus(step int) error {
	_, err := r.do("FOCUS", strconv.Itoa(step))
	return err
}

// CountImages asks the bridge how many images are on the card
func (r *Remote) CountImages() (int, error) {
	payload, err := r.do("COUNT")
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(strings.TrimSpace(payload))
	if err != nil {
		return 0, fmt.Errorf("camera bridge: bad image count %q: %w", payload, err)
	}
	return n, nil
}

// PrepareDownload sets the bridge's host transfer directory
func (r *Remote) PrepareDownload(dir string) error {
	_, err := r.do("TARGET", dir)
	return err
}

// Download asks the bridge to transfer the max most recent images to dir.
// The reply lists the written paths, newest first, separated by '|'.
func (r *Remote) Download(dir string, max int) ([]string, error) {
	payload, err := r.do("FETCH", strconv.Itoa(max), dir)
	if err != nil {
		return nil, err
	}
	if payload == "" {
		return nil, nil
	}
	return strings.Split(payload, "|"), nil
}

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/moonlab/bracket/capture"
	httpcap "github.com/moonlab/bracket/generichttp/capture"
)

// client talks to a bracketd server
type client struct {
	base string
	hc   *http.Client
}

func newClient(addr string) *client {
	addr = strings.TrimRight(addr, "/")
	if !strings.Contains(addr, "://") {
		addr = "http://" + addr
	}
	return &client{base: addr, hc: &http.Client{Timeout: 30 * time.Second}}
}

// do sends body as JSON and decodes the reply into out if it is not nil.
// Replies outside the 2xx range become errors carrying the server's text.
func (c *client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var rdr io.Reader
	if body != nil {
		buf := &bytes.Buffer{}
		if err := json.NewEncoder(buf).Encode(body); err != nil {
			return err
		}
		rdr = buf
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, rdr)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.hc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%s %s: %s: %s", method, path, resp.Status, strings.TrimSpace(string(msg)))
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *client) submit(ctx context.Context, p capture.Plan) (string, error) {
	var resp httpcap.StartResponse
	err := c.do(ctx, http.MethodPost, "/capture", p, &resp)
	return resp.ID, err
}

func (c *client) status(ctx context.Context, id string) (capture.Snapshot, error) {
	var snap capture.Snapshot
	err := c.do(ctx, http.MethodGet, "/capture/"+id, nil, &snap)
	return snap, err
}

func (c *client) list(ctx context.Context) ([]capture.Snapshot, error) {
	var snaps []capture.Snapshot
	err := c.do(ctx, http.MethodGet, "/capture", nil, &snaps)
	return snaps, err
}

func (c *client) stop(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodPost, "/capture/"+id+"/stop", nil, nil)
}

func (c *client) test(ctx context.Context, brackets []capture.BracketSpec, shoot bool) (httpcap.TestResponse, error) {
	var resp httpcap.TestResponse
	err := c.do(ctx, http.MethodPost, "/capture/test", httpcap.TestRequest{Brackets: brackets, Shoot: shoot}, &resp)
	return resp, err
}

// watch polls a capture every interval, calling fn with each snapshot, until
// it reaches a terminal status or ctx is done
func (c *client) watch(ctx context.Context, id string, interval time.Duration, fn func(capture.Snapshot)) (capture.Snapshot, error) {
	tick := time.NewTicker(interval)
	defer tick.Stop()
	for {
		snap, err := c.status(ctx, id)
		if err != nil {
			return snap, err
		}
		fn(snap)
		if snap.Status.Terminal() {
			return snap, nil
		}
		select {
		case <-tick.C:
		case <-ctx.Done():
			return snap, ctx.Err()
		}
	}
}

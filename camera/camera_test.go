package camera_test

import (
	"bufio"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/moonlab/bracket/camera"
	"github.com/moonlab/bracket/exposure"
)

var _ camera.Gateway = (*camera.Mock)(nil)
var _ camera.Gateway = (*camera.Remote)(nil)

func ExampleFrame() {
	fmt.Println(string(camera.Frame("COUNT")))
	body, err := camera.Unframe(camera.Frame("OK 12"))
	fmt.Println(body, err)
	// Output:
	// COUNT*C444
	// OK 12 <nil>
}

func TestUnframeRejectsBadChecksum(t *testing.T) {
	if _, err := camera.Unframe([]byte("OK 12*0000")); !errors.Is(err, camera.ErrChecksum) {
		t.Errorf("expected ErrChecksum, got %v", err)
	}
	if _, err := camera.Unframe([]byte("OK 12")); !errors.Is(err, camera.ErrMalformedReply) {
		t.Errorf("expected ErrMalformedReply, got %v", err)
	}
}

func TestMockCardAndDownload(t *testing.T) {
	m := camera.NewMock()
	m.Preload(2)
	for i := 0; i < 3; i++ {
		if err := m.TakePicture(true); err != nil {
			t.Fatal(err)
		}
	}
	n, _ := m.CountImages()
	if n != 5 {
		t.Fatalf("expected 5 images on the card, got %d", n)
	}
	dir := t.TempDir()
	m.WriteFiles = true
	files, err := m.Download(dir, 3)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"IMG_0005.JPG", "IMG_0004.JPG", "IMG_0003.JPG"}
	if len(files) != len(want) {
		t.Fatalf("expected %d files, got %v", len(want), files)
	}
	for i := range want {
		if files[i] != filepath.Join(dir, want[i]) {
			t.Errorf("file %d: expected %s got %s", i, want[i], files[i])
		}
		if _, err := os.Stat(files[i]); err != nil {
			t.Errorf("expected %s to exist: %v", files[i], err)
		}
	}
}

func TestMockFailureInjection(t *testing.T) {
	m := camera.NewMock()
	m.FailSessions = 1
	if err := m.StartSession(); !errors.Is(err, camera.ErrMockSession) {
		t.Errorf("expected first session to fail, got %v", err)
	}
	if err := m.StartSession(); err != nil || m.Sessions() != 1 {
		t.Errorf("expected second session to open, got %v", err)
	}
	m.Reject = func(s exposure.Settings) error {
		if s.ISO > 6400 {
			return errors.New("unsupported iso")
		}
		return nil
	}
	if err := m.ApplySettings(exposure.Settings{ISO: 12800}); err == nil {
		t.Error("expected ISO 12800 to be rejected")
	}
	if err := m.ApplySettings(exposure.Settings{ISO: 200, Aperture: 4, ShutterSpeed: "1/60"}); err != nil {
		t.Error(err)
	}
	if m.Settings().ISO != 200 {
		t.Errorf("expected ISO 200 to be applied, got %d", m.Settings().ISO)
	}
	m.FocusErr = func(n, step int) error {
		if n == 3 {
			return errors.New("motor stalled")
		}
		return nil
	}
	m.AdjustFocus(2)
	m.AdjustFocus(-1)
	if err := m.AdjustFocus(6); err == nil {
		t.Error("expected the third focus move to fail")
	}
	if m.Focus() != 1 {
		t.Errorf("expected net focus 1, got %d", m.Focus())
	}
}

// fakeBridge speaks the bridge line protocol on a loopback listener
type fakeBridge struct {
	mu    sync.Mutex
	cmds  []string
	reply func(cmd string) string
}

func (b *fakeBridge) serve(t *testing.T) string {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { ln.Close() })
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go b.handle(conn)
		}
	}()
	return ln.Addr().String()
}

func (b *fakeBridge) handle(conn net.Conn) {
	defer conn.Close()
	rd := bufio.NewReader(conn)
	for {
		line, err := rd.ReadString('\r')
		if err != nil {
			return
		}
		cmd, err := camera.Unframe([]byte(line))
		var body string
		if err != nil {
			body = "ERR checksum"
		} else {
			b.mu.Lock()
			b.cmds = append(b.cmds, cmd)
			b.mu.Unlock()
			body = b.reply(cmd)
		}
		conn.Write(append(camera.Frame(body), '\r'))
	}
}

func (b *fakeBridge) commands() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.cmds...)
}

func TestRemoteAgainstBridge(t *testing.T) {
	b := &fakeBridge{reply: func(cmd string) string {
		switch {
		case cmd == "COUNT":
			return "OK 42"
		case strings.HasPrefix(cmd, "FETCH 2 "):
			return "OK /data/IMG_0042.JPG|/data/IMG_0041.JPG"
		case strings.HasPrefix(cmd, "SET ISO=12800"):
			return "ERR unsupported iso"
		default:
			return "OK"
		}
	}}
	addr := b.serve(t)
	r := camera.NewRemote(camera.RemoteConfig{Addr: addr, Timeout: 2, SessionRetry: 1})
	defer r.Close()

	if err := r.StartSession(); err != nil {
		t.Fatal(err)
	}
	if err := r.ApplySettings(exposure.Settings{ISO: 100, Aperture: 5.6, ShutterSpeed: "1/125", WhiteBalance: "daylight"}); err != nil {
		t.Fatal(err)
	}
	err := r.ApplySettings(exposure.Settings{ISO: 12800, Aperture: 8, ShutterSpeed: "1/125"})
	var berr *camera.BridgeError
	if !errors.As(err, &berr) || berr.Msg != "unsupported iso" {
		t.Errorf("expected a bridge error, got %v", err)
	}
	if err := r.TakePicture(true); err != nil {
		t.Fatal(err)
	}
	if err := r.AdjustFocus(-2); err != nil {
		t.Fatal(err)
	}
	n, err := r.CountImages()
	if err != nil || n != 42 {
		t.Errorf("expected 42 images, got %d, %v", n, err)
	}
	files, err := r.Download("/data", 2)
	if err != nil || len(files) != 2 || files[0] != "/data/IMG_0042.JPG" {
		t.Errorf("unexpected download result %v, %v", files, err)
	}

	want := []string{
		"SESSION",
		"SET ISO=100 F=5.6 T=1/125 WB=daylight",
		"SET ISO=12800 F=8 T=1/125",
		"SHOOT CARD",
		"FOCUS -2",
		"COUNT",
		"FETCH 2 /data",
	}
	got := b.commands()
	if strings.Join(got, "\n") != strings.Join(want, "\n") {
		t.Errorf("unexpected command sequence:\n%s", strings.Join(got, "\n"))
	}
}

func TestRemoteSessionErrorIsFinal(t *testing.T) {
	b := &fakeBridge{reply: func(cmd string) string { return "ERR no camera attached" }}
	addr := b.serve(t)
	r := camera.NewRemote(camera.RemoteConfig{Addr: addr, Timeout: 2, SessionRetry: 5})
	defer r.Close()
	err := r.StartSession()
	var berr *camera.BridgeError
	if !errors.As(err, &berr) {
		t.Fatalf("expected a bridge error, got %v", err)
	}
	if n := len(b.commands()); n != 1 {
		t.Errorf("expected a single attempt, got %d", n)
	}
}

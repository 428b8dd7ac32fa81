package main

import (
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/momentics/govna-shell/internal/testutil/testlog"
	"github.com/momentics/govna-shell/pkg/govna"
)

// fakeNanoVNA отвечает на scan/sweep/info/capture как оболочка прибора.
type fakeNanoVNA struct {
	mu     sync.Mutex
	out    []byte
	closed bool
	lines  []string
}

func (d *fakeNanoVNA) Write(p []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return &govna.ConnectionError{Op: "write"}
	}
	line := strings.TrimSuffix(string(p), "\r\n")
	d.lines = append(d.lines, line)
	fields := strings.Fields(line)
	var payload string
	switch fields[0] {
	case "scan":
		var start, stop int64
		var points int
		fmt.Sscan(strings.Join(fields[1:4], " "), &start, &stop, &points)
		var sb strings.Builder
		for i, f := range govna.Linspace(float64(start), float64(stop), points) {
			fmt.Fprintf(&sb, "%d 0.5 %g 0.1 0.1\r\n", int64(f), 0.01*float64(i))
		}
		payload = sb.String()
	case "info":
		payload = "NanoVNA-H 4\r\n"
	case "capture":
		d.out = append(d.out, []byte{0x1F, 0x00, 0x00, 0xF8}...)
		return nil
	}
	d.out = append(d.out, []byte(line+"\r\n"+payload+"ch>")...)
	return nil
}

func (d *fakeNanoVNA) ReadAvailable() ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil, &govna.ConnectionError{Op: "read"}
	}
	b := d.out
	d.out = nil
	return b, nil
}

func (d *fakeNanoVNA) Reset() error { return nil }

func (d *fakeNanoVNA) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}

func (d *fakeNanoVNA) Lines() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.lines...)
}

// fleet хранит последнее устройство, открытое для каждого порта.
type fleet struct {
	mu      sync.Mutex
	devices map[string]*fakeNanoVNA
}

func (f *fleet) get(path string) *fakeNanoVNA {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.devices[path]
}

// testPool открывает fakeNanoVNA для любого порта, кроме "/dev/missing".
func testPool(t *testing.T) (*govna.VNAPool, *fleet) {
	t.Helper()
	testlog.Start(t)
	cfg := govna.DefaultConfig()
	cfg.PollInterval = time.Millisecond
	cfg.ScanTimeout = time.Second
	cfg.Device = govna.DeviceProfile{Name: "test", MaxPoints: 101, MinFreq: 1e5, MaxFreq: 3e9, ScreenWidth: 2, ScreenHeight: 1}
	cfg.Logger = testlog.Logger(t)

	f := &fleet{devices: make(map[string]*fakeNanoVNA)}
	pool := govna.NewVNAPoolWithOpener(cfg, func(path string, cfg govna.Config) (*govna.Session, error) {
		if path == "/dev/missing" {
			return nil, &govna.ConnectionError{Port: path, Op: "open"}
		}
		f.mu.Lock()
		defer f.mu.Unlock()
		d := &fakeNanoVNA{}
		f.devices[path] = d
		return govna.NewSession(d, cfg), nil
	})
	t.Cleanup(pool.CloseAll)
	return pool, f
}

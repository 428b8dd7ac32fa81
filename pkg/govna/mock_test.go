package govna

import (
	"bytes"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/momentics/govna-shell/internal/testutil/testlog"
)

// MockSerialPort для симуляции порта устройства
type MockSerialPort struct {
	mu          sync.Mutex
	readBuffer  bytes.Buffer
	writeBuffer bytes.Buffer
	readTimeout time.Duration
	resets      int
	closed      bool
	writeErr    error
}

func (m *MockSerialPort) Read(p []byte) (n int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.readBuffer.Read(p)
}

func (m *MockSerialPort) Write(p []byte) (n int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.writeErr != nil {
		return 0, m.writeErr
	}
	return m.writeBuffer.Write(p)
}

func (m *MockSerialPort) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *MockSerialPort) SetReadTimeout(t time.Duration) error {
	m.readTimeout = t
	return nil
}

func (m *MockSerialPort) ResetInputBuffer() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resets++
	m.readBuffer.Reset()
	return nil
}

func (m *MockSerialPort) ResetOutputBuffer() error { return nil }

func (m *MockSerialPort) SetReadData(data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.readBuffer.Write(data)
}

func (m *MockSerialPort) Written() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writeBuffer.String()
}

// fakeDevice - Transport, отвечающий на команды как оболочка прибора.
// Ответ выдается порциями по chunk байт за чтение.
type fakeDevice struct {
	mu      sync.Mutex
	writes  []string
	resets  int
	closed  bool
	out     []byte
	chunk   int
	replies map[string]func(line string) []byte
}

func newFakeDevice() *fakeDevice {
	return &fakeDevice{replies: make(map[string]func(string) []byte)}
}

// reply регистрирует текстовый ответ: эхо, payload и приглашение.
func (d *fakeDevice) reply(name, payload string) {
	d.replies[name] = func(line string) []byte {
		return []byte(line + "\r\n" + payload + "ch>")
	}
}

func (d *fakeDevice) Write(p []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return &ConnectionError{Op: "write"}
	}
	line := strings.TrimSuffix(string(p), "\r\n")
	d.writes = append(d.writes, string(p))
	name := strings.Fields(line)[0]
	if fn, ok := d.replies[name]; ok {
		d.out = append(d.out, fn(line)...)
	}
	return nil
}

func (d *fakeDevice) ReadAvailable() ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil, &ConnectionError{Op: "read"}
	}
	n := len(d.out)
	if d.chunk > 0 && n > d.chunk {
		n = d.chunk
	}
	b := d.out[:n:n]
	d.out = d.out[n:]
	return b, nil
}

func (d *fakeDevice) Reset() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.resets++
	return nil
}

func (d *fakeDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}

func (d *fakeDevice) Writes() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.writes...)
}

// queue добавляет байты в поток без команды.
func (d *fakeDevice) queue(b []byte) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.out = append(d.out, b...)
}

func testConfig(t *testing.T) Config {
	t.Helper()
	testlog.Start(t)
	cfg := DefaultConfig()
	cfg.PollInterval = time.Millisecond
	cfg.ScanTimeout = 200 * time.Millisecond
	cfg.CaptureTimeout = 200 * time.Millisecond
	cfg.Logger = testlog.Logger(t)
	return cfg
}

func newTestSession(t *testing.T) (*Session, *fakeDevice) {
	t.Helper()
	dev := newFakeDevice()
	s := NewSession(dev, testConfig(t))
	return s, dev
}

package govna

import (
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// s11Lines генерирует n строк "re im" с ненулевыми значениями.
func s11Lines(n int) string {
	var sb strings.Builder
	for i := 0; i < n; i++ {
		fmt.Fprintf(&sb, "%.6f %.6f\r\n", 0.5-float64(i)*0.001, -0.25+float64(i)*0.0005)
	}
	return sb.String()
}

func TestScanS11_EndToEnd(t *testing.T) {
	s, dev := newTestSession(t)
	dev.chunk = 64
	dev.reply("scan", s11Lines(200))

	res, err := s.ScanS11(1_000_000_000, 3_000_000_000, 200)
	require.NoError(t, err)
	require.Equal(t, 200, res.Len())
	assert.Empty(t, res.Skipped)

	want := Linspace(1e9, 3e9, 200)
	assert.Equal(t, want, res.Frequencies())
	assert.Equal(t, 1e9, res.Points[0].Frequency)
	assert.Equal(t, 3e9, res.Points[199].Frequency)
	assert.Equal(t, []string{"scan 1000000000 3000000000 200 2\r\n"}, dev.Writes())

	s0 := complex(0.5, -0.25)
	assert.InDelta(t, 20*math.Log10(math.Hypot(0.5, -0.25)), res.MagnitudeDB[0], 1e-9)
	assert.Equal(t, s0, res.Points[0].S)
}

func TestScan_ResponseIsCleaned(t *testing.T) {
	s, dev := newTestSession(t)
	dev.reply("scan", "0.1 0.2\r\n")

	resp, err := s.Scan(1e6, 2e6, 1, OutmaskS11)
	require.NoError(t, err)
	assert.Equal(t, ResponseText, resp.Kind)
	assert.Equal(t, "0.1 0.2\r\n", resp.Text())
}

func TestScan_TimeoutReturnsPartial(t *testing.T) {
	s, dev := newTestSession(t)
	dev.replies["scan"] = func(line string) []byte {
		return []byte(line + "\r\n" + s11Lines(3))
	}

	res, err := s.ScanS11(1e6, 2e6, 10)
	require.ErrorIs(t, err, ErrFramingTimeout)
	require.NotNil(t, res)
	assert.Equal(t, 3, res.Len())
	assert.Equal(t, 10, res.Requested)
	assert.Equal(t, Linspace(1e6, 2e6, 3), res.Frequencies())
}

func TestSession_PromptCommand(t *testing.T) {
	s, dev := newTestSession(t)
	dev.chunk = 5
	dev.reply("version", "1.2.27\r\n")

	resp, err := s.Version()
	require.NoError(t, err)
	assert.Equal(t, "1.2.27\r\n", resp.Text())
	assert.Equal(t, 1, dev.resets)
}

func TestSession_StaleBytesDiscarded(t *testing.T) {
	s, dev := newTestSession(t)
	dev.reply("info", "board\r\n")

	// два ответа в одном чтении: остаток после первого приглашения
	// не должен попасть в ответ следующей команды
	dev.replies["pause"] = func(line string) []byte {
		return []byte(line + "\r\nch>garbage")
	}
	_, err := s.Pause()
	require.NoError(t, err)
	assert.Equal(t, "garbage", string(s.r.Pending()))

	resp, err := s.Info()
	require.NoError(t, err)
	assert.Equal(t, "board\r\n", resp.Text())
}

func TestSession_CloseThenConnectionError(t *testing.T) {
	s, dev := newTestSession(t)
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
	assert.True(t, s.Closed())
	assert.True(t, dev.closed)

	resp, err := s.Info()
	require.ErrorIs(t, err, ErrConnection)
	assert.Equal(t, ResponseError, resp.Kind)
	assert.Empty(t, resp.Payload)
	assert.Empty(t, dev.Writes())
}

func TestSession_TransportErrorReturnsSentinel(t *testing.T) {
	cfg := testConfig(t)
	cfg.ErrorSentinel = true
	dev := newFakeDevice()
	s := NewSession(dev, cfg)
	dev.Close()

	resp, err := s.Help()
	require.ErrorIs(t, err, ErrConnection)
	assert.Equal(t, "ERROR", resp.Text())
}

func TestSession_ResetClosesSession(t *testing.T) {
	s, dev := newTestSession(t)

	require.NoError(t, s.Reset())
	assert.Equal(t, []string{"reset\r\n"}, dev.Writes())
	assert.True(t, s.Closed())
	assert.True(t, dev.closed)

	_, err := s.Info()
	assert.ErrorIs(t, err, ErrConnection)
}

func TestCaptureScreen(t *testing.T) {
	cfg := testConfig(t)
	cfg.Device = DeviceProfile{Name: "tiny", MaxPoints: 101, MinFreq: 1e5, MaxFreq: 1e9, ScreenWidth: 2, ScreenHeight: 1}
	dev := newFakeDevice()
	s := NewSession(dev, cfg)
	dev.replies["capture"] = func(line string) []byte {
		// белый и чистый синий (BGR565: синий в старших битах)
		return append([]byte(line+"\r\n"), 0xFF, 0xFF, 0x00, 0xF8)
	}

	img, err := s.CaptureScreen()
	require.NoError(t, err)
	assert.Equal(t, []byte{255, 255, 255, 255, 0, 0, 255, 255}, img.Pix)
	assert.Equal(t, []string{"capture\r\n"}, dev.Writes())
}

func TestCapture_IsBinary(t *testing.T) {
	cfg := testConfig(t)
	cfg.Device = DeviceProfile{Name: "tiny", MaxPoints: 101, MinFreq: 1e5, MaxFreq: 1e9, ScreenWidth: 1, ScreenHeight: 2}
	dev := newFakeDevice()
	s := NewSession(dev, cfg)
	// ">" внутри бинарных данных не должен завершать чтение
	dev.replies["capture"] = func(string) []byte { return []byte{'>', '\r', '\n', '>'} }

	resp, err := s.Capture()
	require.NoError(t, err)
	assert.Equal(t, ResponseBinary, resp.Kind)
	assert.Equal(t, []byte{'>', '\r', '\n', '>'}, resp.Payload)
}

func TestSession_String(t *testing.T) {
	s, _ := newTestSession(t)
	assert.Equal(t, "Session{profile=ultra closed=false}", s.String())
}

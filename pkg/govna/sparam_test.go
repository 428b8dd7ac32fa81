package govna

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLinspace(t *testing.T) {
	assert.Equal(t, []float64{}, Linspace(0, 1, 0))
	assert.Equal(t, []float64{5}, Linspace(5, 10, 1))
	assert.Equal(t, []float64{0, 0.25, 0.5, 0.75, 1}, Linspace(0, 1, 5))

	xs := Linspace(1e9, 3e9, 200)
	require.Len(t, xs, 200)
	assert.Equal(t, 1e9, xs[0])
	assert.Equal(t, 3e9, xs[199])
}

func TestDecodeSParameters_Magnitude(t *testing.T) {
	res := DecodeSParameters([]byte("0.6 0.8\r\n"), 1e6, 1e6, 1)
	require.Equal(t, 1, res.Len())
	assert.InDelta(t, 0.0, res.MagnitudeDB[0], 1e-9)
	assert.InDelta(t, math.Atan2(0.8, 0.6)*180/math.Pi, res.PhaseDeg[0], 1e-9)

	res = DecodeSParameters([]byte("0.1 0\r\n"), 1e6, 2e6, 1)
	assert.InDelta(t, -20.0, res.MagnitudeDB[0], 1e-9)
}

func TestDecodeSParameters_SkipsBadLines(t *testing.T) {
	payload := []byte("0.1 0.2\r\n" +
		"\r\n" +
		"0.3\r\n" +
		"abc def\r\n" +
		"0 0\r\n" +
		"0.1 0.2 0.3\r\n" +
		"0.4 -0.5\r\n")

	res := DecodeSParameters(payload, 1e6, 2e6, 2)
	require.Equal(t, 2, res.Len())
	assert.Equal(t, complex(0.1, 0.2), res.Points[0].S)
	assert.Equal(t, complex(0.4, -0.5), res.Points[1].S)
	assert.Equal(t, []float64{1e6, 2e6}, res.Frequencies())

	// пустая строка и заполнение 0 0 не считаются ошибками
	require.Len(t, res.Skipped, 3)
	assert.Equal(t, 3, res.Skipped[0].Line)
	assert.Equal(t, "0.3", res.Skipped[0].Text)
	assert.ErrorIs(t, res.Skipped[1], ErrDecode)
	assert.Equal(t, 6, res.Skipped[2].Line)
}

func TestDecodeSParameters_ErrorTokenReplaced(t *testing.T) {
	res := DecodeSParameters([]byte("-:.0 0.5\r\n0.25 -:.0\r\n"), 1e6, 2e6, 2)
	require.Equal(t, 2, res.Len())
	assert.Equal(t, complex(-10.0, 0.5), res.Points[0].S)
	assert.Equal(t, complex(0.25, -10.0), res.Points[1].S)
	assert.Empty(t, res.Skipped)
}

func TestDecodeSParameters_ShortResponseRebuildsAxis(t *testing.T) {
	res := DecodeSParameters([]byte("0.1 0.1\r\n0.2 0.2\r\n0.3 0.3\r\n"), 1e9, 3e9, 101)
	require.Equal(t, 3, res.Len())
	assert.Equal(t, 101, res.Requested)
	assert.Equal(t, []float64{1e9, 2e9, 3e9}, res.Frequencies())
}

func TestDecodeSParameters_Empty(t *testing.T) {
	res := DecodeSParameters(nil, 1e9, 3e9, 101)
	assert.Zero(t, res.Len())
	assert.Empty(t, res.Frequencies())
}

func TestDecodeScanOutput_AllChannels(t *testing.T) {
	payload := []byte("1000000 0.1 0.2 0.3 0.4\r\n" +
		"2000000 0 0 0 0\r\n" +
		"3000000 0.5 0.6 0.7 0.8\r\n")

	data, skipped := DecodeScanOutput(payload, outmaskAll, 1e6, 3e6, 3)
	assert.Empty(t, skipped)
	assert.Equal(t, []float64{1e6, 3e6}, data.Frequencies)
	assert.Equal(t, []complex128{complex(0.1, 0.2), complex(0.5, 0.6)}, data.S11)
	assert.Equal(t, []complex128{complex(0.3, 0.4), complex(0.7, 0.8)}, data.S21)
}

func TestDecodeScanOutput_WithoutFrequency(t *testing.T) {
	payload := []byte("0.3 0.4\r\n0.7 0.8\r\n")

	data, skipped := DecodeScanOutput(payload, OutmaskS21, 1e6, 3e6, 2)
	assert.Empty(t, skipped)
	assert.Nil(t, data.S11)
	assert.Equal(t, []complex128{complex(0.3, 0.4), complex(0.7, 0.8)}, data.S21)
	assert.Equal(t, []float64{1e6, 3e6}, data.Frequencies)
}

func TestDecodeScanOutput_ColumnMismatch(t *testing.T) {
	data, skipped := DecodeScanOutput([]byte("1000000 0.1 0.2\r\n"), outmaskAll, 1e6, 3e6, 1)
	require.Len(t, skipped, 1)
	assert.Empty(t, data.S11)
}

func TestDecodeFrequencies(t *testing.T) {
	freqs, skipped := DecodeFrequencies([]byte("1000000\r\n1500000\r\nbad\r\n2000000\r\n"))
	assert.Equal(t, []float64{1e6, 1.5e6, 2e6}, freqs)
	require.Len(t, skipped, 1)
	assert.Equal(t, "bad", skipped[0].Text)
}

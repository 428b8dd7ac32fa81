package govna

import (
	"bytes"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeScreen_ExactSize(t *testing.T) {
	w, h := 4, 3
	buf := make([]byte, w*h*2)
	for i := range buf {
		buf[i] = byte(i * 7)
	}

	sc, err := DecodeScreen(buf, w, h)
	require.NoError(t, err)
	require.Len(t, sc.Pix, w*h*4)
	assert.False(t, sc.Padded)
	assert.False(t, sc.Truncated)
	for i := 0; i < w*h; i++ {
		assert.Equal(t, byte(0xFF), sc.Pix[i*4+3])
	}
}

func TestDecodeScreen_ChannelMapping(t *testing.T) {
	cases := []struct {
		name    string
		word    [2]byte
		r, g, b byte
	}{
		{"black", [2]byte{0x00, 0x00}, 0, 0, 0},
		{"white", [2]byte{0xFF, 0xFF}, 255, 255, 255},
		{"low bits are red", [2]byte{0x1F, 0x00}, 255, 0, 0},
		{"middle bits are green", [2]byte{0xE0, 0x07}, 0, 255, 0},
		{"high bits are blue", [2]byte{0x00, 0xF8}, 0, 0, 255},
		{"half green", [2]byte{0x00, 0x04}, 0, 32 * 255 / 63, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			sc, err := DecodeScreen(tc.word[:], 1, 1)
			require.NoError(t, err)
			assert.Equal(t, []byte{tc.r, tc.g, tc.b, 0xFF}, sc.Pix)
		})
	}
}

func TestDecodeScreen_PadsOneByte(t *testing.T) {
	sc, err := DecodeScreen([]byte{0xFF, 0xFF, 0x1F}, 2, 1)
	require.NoError(t, err)
	assert.True(t, sc.Padded)
	assert.Equal(t, []byte{255, 255, 255, 255, 255, 0, 0, 255}, sc.Pix)
}

func TestDecodeScreen_TruncatesLonger(t *testing.T) {
	sc, err := DecodeScreen([]byte{0x1F, 0x00, 0xAA, 0xBB, 0xCC}, 1, 1)
	require.NoError(t, err)
	assert.True(t, sc.Truncated)
	assert.Equal(t, []byte{255, 0, 0, 255}, sc.Pix)
}

func TestDecodeScreen_Mismatch(t *testing.T) {
	_, err := DecodeScreen([]byte{0x00}, 2, 1)
	require.ErrorIs(t, err, ErrImageSizeMismatch)

	var mismatch *ImageSizeMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, 4, mismatch.Expected)
	assert.Equal(t, 1, mismatch.Got)
}

func TestDecodeScreen_BadDimensions(t *testing.T) {
	_, err := DecodeScreen(nil, 0, 10)
	assert.Error(t, err)
}

func TestScreenCapture_WritePNG(t *testing.T) {
	sc, err := DecodeScreen([]byte{0x1F, 0x00, 0x00, 0xF8}, 2, 1)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, sc.WritePNG(&buf))

	img, err := png.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, 2, img.Bounds().Dx())
	r, g, b, a := img.At(1, 0).RGBA()
	assert.Equal(t, []uint32{0, 0, 0xFFFF, 0xFFFF}, []uint32{r, g, b, a})
}

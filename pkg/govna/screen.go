package govna

import (
	"encoding/binary"
	"fmt"
	"image"
	"image/png"
	"io"
)

// ScreenCapture - декодированный снимок экрана: width*height точек RGBA,
// альфа всегда 0xFF.
type ScreenCapture struct {
	Width  int
	Height int
	Pix    []byte
	// Padded выставляется, если буфер был короче на один байт и дополнен нулем.
	Padded bool
	// Truncated выставляется, если лишние байты были отброшены.
	Truncated bool
}

// DecodeScreen декодирует дамп экрана BGR565 (слова little-endian).
// Буфер короче на один байт дополняется нулем, длиннее - обрезается,
// короче более чем на байт - ImageSizeMismatchError.
func DecodeScreen(buf []byte, width, height int) (*ScreenCapture, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("некорректное разрешение экрана %dx%d", width, height)
	}
	expected := width * height * 2
	sc := &ScreenCapture{Width: width, Height: height}
	switch {
	case len(buf) == expected-1:
		padded := make([]byte, expected)
		copy(padded, buf)
		buf = padded
		sc.Padded = true
	case len(buf) > expected:
		buf = buf[:expected]
		sc.Truncated = true
	case len(buf) < expected:
		return nil, &ImageSizeMismatchError{Expected: expected, Got: len(buf)}
	}

	sc.Pix = make([]byte, width*height*4)
	for i := 0; i < width*height; i++ {
		w := uint32(binary.LittleEndian.Uint16(buf[i*2:]))
		blue := ((w & 0xF800) >> 11) * 255 / 31
		green := ((w & 0x07E0) >> 5) * 255 / 63
		red := (w & 0x001F) * 255 / 31
		o := i * 4
		sc.Pix[o] = byte(red)
		sc.Pix[o+1] = byte(green)
		sc.Pix[o+2] = byte(blue)
		sc.Pix[o+3] = 0xFF
	}
	return sc, nil
}

// Image возвращает снимок как *image.RGBA без копирования буфера.
func (sc *ScreenCapture) Image() *image.RGBA {
	return &image.RGBA{
		Pix:    sc.Pix,
		Stride: sc.Width * 4,
		Rect:   image.Rect(0, 0, sc.Width, sc.Height),
	}
}

// WritePNG кодирует снимок в PNG.
func (sc *ScreenCapture) WritePNG(w io.Writer) error {
	return png.Encode(w, sc.Image())
}

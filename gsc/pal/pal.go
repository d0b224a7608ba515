// Package pal reads game palettes and maps canonical pixel buffers through them.
package pal

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"
	"strings"

	"github.com/cam-per/gsframes/gsc/pixbuf"
)

type Channel uint8

const (
	ChannelAlpha Channel = iota
	ChannelR
	ChannelG
	ChannelB
	ChannelGray
	ChannelRGB
	ChannelARGB
)

var ErrUnknownChannel = errors.New("pal: unknown channel layout")

var channelNames = map[string]Channel{
	"alpha": ChannelAlpha,
	"r":     ChannelR,
	"g":     ChannelG,
	"b":     ChannelB,
	"gray":  ChannelGray,
	"rgb":   ChannelRGB,
	"argb":  ChannelARGB,
}

func ParseChannel(s string) (Channel, error) {
	if ch, ok := channelNames[strings.ToLower(s)]; ok {
		return ch, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownChannel, s)
}

func (ch Channel) depth() int {
	switch ch {
	case ChannelAlpha, ChannelR, ChannelG, ChannelB, ChannelGray:
		return 1
	case ChannelRGB:
		return 3
	case ChannelARGB:
		return 4
	}
	return 0
}

// Read decodes size entries laid out as ch.
func Read(r io.Reader, ch Channel, size int) (color.Palette, error) {
	depth := ch.depth()
	if depth == 0 {
		return nil, fmt.Errorf("%w: %d", ErrUnknownChannel, ch)
	}
	raw := make([]byte, depth*size)
	if _, err := io.ReadFull(r, raw); err != nil {
		return nil, fmt.Errorf("pal: read %d entries: %w", size, err)
	}

	palette := make(color.Palette, size)
	for i := range palette {
		buf := raw[i*depth:]
		switch ch {
		case ChannelAlpha:
			palette[i] = color.RGBA{A: buf[0]}
		case ChannelR:
			palette[i] = color.RGBA{R: buf[0], A: 255}
		case ChannelG:
			palette[i] = color.RGBA{G: buf[0], A: 255}
		case ChannelB:
			palette[i] = color.RGBA{B: buf[0], A: 255}
		case ChannelGray:
			palette[i] = color.RGBA{R: buf[0], G: buf[0], B: buf[0], A: 255}
		case ChannelRGB:
			palette[i] = color.RGBA{R: buf[0], G: buf[1], B: buf[2], A: 255}
		case ChannelARGB:
			palette[i] = color.RGBA{R: buf[1], G: buf[2], B: buf[3], A: buf[0]}
		}
	}
	return palette, nil
}

// Gray spreads 1<<bpp levels evenly from black to white.
func Gray(bpp int) color.Palette {
	n := 1 << bpp
	palette := make(color.Palette, n)
	for i := range palette {
		v := uint8(i * 255 / max(n-1, 1))
		palette[i] = color.RGBA{R: v, G: v, B: v, A: 255}
	}
	return palette
}

// Paletted wraps buffer as an image sharing its pixels.
func Paletted(buffer *pixbuf.Buffer, palette color.Palette) (*image.Paletted, error) {
	for y := 0; y < buffer.Height; y++ {
		for x, v := range buffer.Row(y) {
			if int(v) >= len(palette) {
				return nil, fmt.Errorf("pal: pixel (%d,%d)=%d outside %d entry palette", x, y, v, len(palette))
			}
		}
	}
	return &image.Paletted{
		Pix:     buffer.Pix,
		Stride:  buffer.Stride,
		Rect:    buffer.Bounds(),
		Palette: palette,
	}, nil
}

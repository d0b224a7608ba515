package pixbuf

import (
	"errors"
	"fmt"
	"image"

	"github.com/cam-per/gsframes/gsc"
)

var (
	ErrUnsupportedDepth = errors.New("pixbuf: unsupported bit depth")
)

// Buffer holds one byte per pixel. Pix is Stride*Height bytes long.
type Buffer struct {
	Pix    []byte
	Width  int
	Height int
	Stride int
}

func New(width, height int) *Buffer {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	return &Buffer{
		Pix:    make([]byte, width*height),
		Width:  width,
		Height: height,
		Stride: width,
	}
}

// Wrap uses pix as a width x height buffer with stride == width.
func Wrap(pix []byte, width, height int) (*Buffer, error) {
	if width < 0 || height < 0 || len(pix) != width*height {
		return nil, fmt.Errorf("pixbuf: %d bytes for %dx%d: %w", len(pix), width, height, gsc.ErrDimensionMismatch)
	}
	return &Buffer{Pix: pix, Width: width, Height: height, Stride: width}, nil
}

func (buffer *Buffer) Bounds() image.Rectangle { return image.Rect(0, 0, buffer.Width, buffer.Height) }
func (buffer *Buffer) Row(y int) []byte {
	off := y * buffer.Stride
	return buffer.Pix[off : off+buffer.Width]
}

func (buffer *Buffer) At(x, y int) byte         { return buffer.Pix[y*buffer.Stride+x] }
func (buffer *Buffer) Set(x, y int, value byte) { buffer.Pix[y*buffer.Stride+x] = value }

func (buffer *Buffer) Clone() *Buffer {
	pix := make([]byte, len(buffer.Pix))
	copy(pix, buffer.Pix)
	return &Buffer{Pix: pix, Width: buffer.Width, Height: buffer.Height, Stride: buffer.Stride}
}

// Packed returns the pixels without stride padding.
func (buffer *Buffer) Packed() []byte {
	if buffer.Stride == buffer.Width {
		return buffer.Pix[:buffer.Width*buffer.Height]
	}
	out := make([]byte, 0, buffer.Width*buffer.Height)
	for y := 0; y < buffer.Height; y++ {
		out = append(out, buffer.Row(y)...)
	}
	return out
}

func (buffer *Buffer) validate() error {
	if buffer == nil {
		return fmt.Errorf("pixbuf: nil buffer: %w", gsc.ErrDimensionMismatch)
	}
	if buffer.Width < 0 || buffer.Height < 0 || buffer.Stride < buffer.Width || len(buffer.Pix) < buffer.Stride*buffer.Height {
		return fmt.Errorf("pixbuf: %dx%d stride %d with %d bytes: %w",
			buffer.Width, buffer.Height, buffer.Stride, len(buffer.Pix), gsc.ErrDimensionMismatch)
	}
	return nil
}

// RowStride is the packed row length in bytes for width pixels of bpp bits.
func RowStride(width, bpp int) int { return (width*bpp + 7) / 8 }

func checkDepth(bpp int) error {
	switch bpp {
	case 1, 2, 4, 8:
		return nil
	}
	return fmt.Errorf("%w: %d", ErrUnsupportedDepth, bpp)
}

// ToCanonical unpacks MSB-first rows of bpp-bit pixels. A zero stride means
// RowStride(width, bpp). Padding bits at the end of each row are ignored.
func ToCanonical(raw []byte, width, height, bpp, stride int) (*Buffer, error) {
	if err := checkDepth(bpp); err != nil {
		return nil, err
	}
	if width < 0 || height < 0 {
		return nil, fmt.Errorf("pixbuf: negative size %dx%d: %w", width, height, gsc.ErrDimensionMismatch)
	}
	packed := RowStride(width, bpp)
	if stride == 0 {
		stride = packed
	}
	if stride < packed {
		return nil, fmt.Errorf("pixbuf: stride %d below %d: %w", stride, packed, gsc.ErrDimensionMismatch)
	}
	if need := stride * height; len(raw) < need {
		return nil, fmt.Errorf("pixbuf: need %d bytes, got %d: %w", need, len(raw), gsc.ErrDimensionMismatch)
	}

	buffer := New(width, height)
	if bpp == 8 {
		for y := 0; y < height; y++ {
			copy(buffer.Row(y), raw[y*stride:y*stride+width])
		}
		return buffer, nil
	}

	mask := byte(1<<bpp - 1)
	perByte := 8 / bpp
	for y := 0; y < height; y++ {
		src := raw[y*stride:]
		dst := buffer.Row(y)
		for x := range dst {
			b := src[x/perByte]
			shift := 8 - bpp*(x%perByte+1)
			dst[x] = (b >> shift) & mask
		}
	}
	return buffer, nil
}

// FromCanonical packs buffer into bpp-bit rows and returns them with the row stride.
func FromCanonical(buffer *Buffer, bpp int) ([]byte, int, error) {
	if err := checkDepth(bpp); err != nil {
		return nil, 0, err
	}
	if err := buffer.validate(); err != nil {
		return nil, 0, err
	}

	stride := RowStride(buffer.Width, bpp)
	raw := make([]byte, stride*buffer.Height)
	limit := 1 << bpp
	perByte := 8 / bpp
	for y := 0; y < buffer.Height; y++ {
		row := buffer.Row(y)
		dst := raw[y*stride : (y+1)*stride]
		for x, v := range row {
			if int(v) >= limit {
				return nil, 0, fmt.Errorf("pixbuf: pixel (%d,%d)=%d does not fit %d bits: %w", x, y, v, bpp, gsc.ErrValueOutOfRange)
			}
			if bpp == 8 {
				dst[x] = v
				continue
			}
			shift := 8 - bpp*(x%perByte+1)
			dst[x/perByte] |= v << shift
		}
	}
	return raw, stride, nil
}

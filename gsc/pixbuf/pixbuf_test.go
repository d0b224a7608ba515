package pixbuf

import (
	"bytes"
	"errors"
	"image"
	"testing"

	"github.com/cam-per/gsframes/gsc"
)

func TestRowStride(t *testing.T) {
	for _, tc := range []struct {
		width, bpp, want int
	}{
		{5, 4, 3},
		{8, 1, 1},
		{9, 1, 2},
		{3, 2, 1},
		{7, 8, 7},
		{0, 4, 0},
	} {
		if got := RowStride(tc.width, tc.bpp); got != tc.want {
			t.Errorf("RowStride(%d, %d) = %d, want %d", tc.width, tc.bpp, got, tc.want)
		}
	}
}

func TestCanonicalRoundTripOddWidth4bpp(t *testing.T) {
	// Two rows of five 4-bit pixels; the low nibble of each third byte is padding.
	raw := []byte{
		0x12, 0x34, 0x5F,
		0xAB, 0xCD, 0xE7,
	}
	buf, err := ToCanonical(raw, 5, 2, 4, 0)
	if err != nil {
		t.Fatalf("ToCanonical: %v", err)
	}
	want := []byte{1, 2, 3, 4, 5, 0xA, 0xB, 0xC, 0xD, 0xE}
	if !bytes.Equal(buf.Pix, want) {
		t.Fatalf("pixels = %x, want %x", buf.Pix, want)
	}

	back, stride, err := FromCanonical(buf, 4)
	if err != nil {
		t.Fatalf("FromCanonical: %v", err)
	}
	if stride != 3 {
		t.Fatalf("stride = %d, want 3", stride)
	}
	wantRaw := []byte{0x12, 0x34, 0x50, 0xAB, 0xCD, 0xE0}
	if !bytes.Equal(back, wantRaw) {
		t.Fatalf("raw = %x, want %x", back, wantRaw)
	}
}

func TestCanonicalRoundTripDepths(t *testing.T) {
	for _, bpp := range []int{1, 2, 4, 8} {
		width, height := 13, 4
		buf := New(width, height)
		for i := range buf.Pix {
			buf.Pix[i] = byte(i*7) & byte(1<<bpp-1)
		}
		raw, stride, err := FromCanonical(buf, bpp)
		if err != nil {
			t.Fatalf("bpp %d: FromCanonical: %v", bpp, err)
		}
		if stride != RowStride(width, bpp) {
			t.Fatalf("bpp %d: stride = %d", bpp, stride)
		}
		got, err := ToCanonical(raw, width, height, bpp, stride)
		if err != nil {
			t.Fatalf("bpp %d: ToCanonical: %v", bpp, err)
		}
		if !bytes.Equal(got.Pix, buf.Pix) {
			t.Fatalf("bpp %d: round trip mismatch", bpp)
		}
	}
}

func TestToCanonicalWideStride(t *testing.T) {
	raw := []byte{
		0b10100000, 0xFF, 0xFF,
		0b01010000, 0xFF, 0xFF,
	}
	buf, err := ToCanonical(raw, 4, 2, 1, 3)
	if err != nil {
		t.Fatalf("ToCanonical: %v", err)
	}
	want := []byte{1, 0, 1, 0, 0, 1, 0, 1}
	if !bytes.Equal(buf.Pix, want) {
		t.Fatalf("pixels = %v, want %v", buf.Pix, want)
	}
}

func TestToCanonicalErrors(t *testing.T) {
	if _, err := ToCanonical(make([]byte, 2), 5, 2, 4, 0); !errors.Is(err, gsc.ErrDimensionMismatch) {
		t.Errorf("short input: err = %v", err)
	}
	if _, err := ToCanonical(make([]byte, 8), 5, 2, 4, 2); !errors.Is(err, gsc.ErrDimensionMismatch) {
		t.Errorf("narrow stride: err = %v", err)
	}
	if _, err := ToCanonical(make([]byte, 8), 2, 2, 3, 0); !errors.Is(err, ErrUnsupportedDepth) {
		t.Errorf("3 bpp: err = %v", err)
	}
}

func TestFromCanonicalOutOfRange(t *testing.T) {
	buf := New(3, 1)
	buf.Pix[2] = 16
	if _, _, err := FromCanonical(buf, 4); !errors.Is(err, gsc.ErrValueOutOfRange) {
		t.Fatalf("err = %v, want ErrValueOutOfRange", err)
	}
}

func fill(w, h int, v byte) *Buffer {
	b := New(w, h)
	for i := range b.Pix {
		b.Pix[i] = v
	}
	return b
}

func TestBlit(t *testing.T) {
	dst := fill(4, 3, 9)
	src, _ := Wrap([]byte{1, 0, 2, 0}, 2, 2)

	if err := Blit(dst, src, image.Rect(1, 1, 3, 3), BlitOptions{}); err != nil {
		t.Fatalf("Blit: %v", err)
	}
	want := []byte{
		9, 9, 9, 9,
		9, 1, 0, 9,
		9, 2, 0, 9,
	}
	if !bytes.Equal(dst.Pix, want) {
		t.Fatalf("dst = %v, want %v", dst.Pix, want)
	}
}

func TestBlitSkipValues(t *testing.T) {
	dst := fill(3, 2, 9)
	src, _ := Wrap([]byte{1, 0, 2, 0, 3, 0}, 3, 2)
	if err := Blit(dst, src, image.Rect(0, 0, 3, 2), BlitOptions{Skip: []byte{0}}); err != nil {
		t.Fatalf("Blit: %v", err)
	}
	want := []byte{1, 9, 2, 9, 3, 9}
	if !bytes.Equal(dst.Pix, want) {
		t.Fatalf("dst = %v, want %v", dst.Pix, want)
	}
}

func TestBlitOntoItself(t *testing.T) {
	buffer, _ := Wrap([]byte{1, 2, 3}, 1, 3)
	if err := Blit(buffer, buffer, image.Rect(0, 1, 1, 3), BlitOptions{}); err != nil {
		t.Fatalf("Blit: %v", err)
	}
	if want := []byte{1, 1, 2}; !bytes.Equal(buffer.Pix, want) {
		t.Fatalf("pix = %v, want %v", buffer.Pix, want)
	}
}

func TestBlitBounds(t *testing.T) {
	src := fill(2, 2, 1)

	t.Run("outside", func(t *testing.T) {
		dst := fill(3, 3, 0)
		err := Blit(dst, src, image.Rect(2, 2, 4, 4), BlitOptions{})
		if !errors.Is(err, gsc.ErrDimensionMismatch) {
			t.Fatalf("err = %v, want ErrDimensionMismatch", err)
		}
		if !bytes.Equal(dst.Pix, make([]byte, 9)) {
			t.Fatalf("dst modified on failure: %v", dst.Pix)
		}
	})

	t.Run("clip", func(t *testing.T) {
		dst := fill(3, 3, 0)
		if err := Blit(dst, src, image.Rect(2, 2, 4, 4), BlitOptions{Clip: true}); err != nil {
			t.Fatalf("Blit: %v", err)
		}
		want := []byte{0, 0, 0, 0, 0, 0, 0, 0, 1}
		if !bytes.Equal(dst.Pix, want) {
			t.Fatalf("dst = %v, want %v", dst.Pix, want)
		}
	})

	t.Run("clip negative origin", func(t *testing.T) {
		dst := fill(3, 3, 0)
		s, _ := Wrap([]byte{1, 2, 3, 4}, 2, 2)
		if err := Blit(dst, s, image.Rect(-1, -1, 1, 1), BlitOptions{Clip: true}); err != nil {
			t.Fatalf("Blit: %v", err)
		}
		if dst.At(0, 0) != 4 {
			t.Fatalf("dst(0,0) = %d, want 4", dst.At(0, 0))
		}
	})

	t.Run("larger than source", func(t *testing.T) {
		dst := fill(4, 4, 0)
		err := Blit(dst, src, image.Rect(0, 0, 3, 3), BlitOptions{Clip: true})
		if !errors.Is(err, gsc.ErrDimensionMismatch) {
			t.Fatalf("err = %v, want ErrDimensionMismatch", err)
		}
	})
}

func TestCopyRect(t *testing.T) {
	src, _ := Wrap([]byte{
		1, 2, 3,
		4, 5, 6,
		7, 8, 9,
	}, 3, 3)
	got, err := CopyRect(src, image.Rect(1, 1, 3, 3))
	if err != nil {
		t.Fatalf("CopyRect: %v", err)
	}
	if !bytes.Equal(got.Pix, []byte{5, 6, 8, 9}) {
		t.Fatalf("crop = %v", got.Pix)
	}
	if _, err := CopyRect(src, image.Rect(2, 2, 4, 3)); !errors.Is(err, gsc.ErrDimensionMismatch) {
		t.Fatalf("err = %v, want ErrDimensionMismatch", err)
	}
}

func TestPackedStride(t *testing.T) {
	b := &Buffer{Pix: []byte{1, 2, 0, 3, 4, 0}, Width: 2, Height: 2, Stride: 3}
	if got := b.Packed(); !bytes.Equal(got, []byte{1, 2, 3, 4}) {
		t.Fatalf("Packed = %v", got)
	}
}

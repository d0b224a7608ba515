package pixbuf

import (
	"fmt"
	"image"

	"github.com/cam-per/gsframes/gsc"
)

type BlitOptions struct {
	// Skip lists source values left out of the copy, typically the
	// transparent background index of a partial frame.
	Skip []byte
	// Clip clamps a destination rectangle reaching outside dst instead of failing.
	Clip bool
}

// Blit copies the r.Size() area at the origin of src into dst at r.Min.
// dst and src may be the same buffer.
func Blit(dst, src *Buffer, r image.Rectangle, opts BlitOptions) error {
	if err := dst.validate(); err != nil {
		return err
	}
	if err := src.validate(); err != nil {
		return err
	}
	if dst == src {
		src = src.Clone()
	}
	r = r.Canon()
	if r.Dx() > src.Width || r.Dy() > src.Height {
		return fmt.Errorf("pixbuf: blit %v from %dx%d source: %w", r, src.Width, src.Height, gsc.ErrDimensionMismatch)
	}

	sx, sy := 0, 0
	if !r.In(dst.Bounds()) {
		if !opts.Clip {
			return fmt.Errorf("pixbuf: blit %v outside %v: %w", r, dst.Bounds(), gsc.ErrDimensionMismatch)
		}
		clipped := r.Intersect(dst.Bounds())
		if clipped.Empty() {
			return nil
		}
		sx = clipped.Min.X - r.Min.X
		sy = clipped.Min.Y - r.Min.Y
		r = clipped
	}

	var skip [256]bool
	for _, v := range opts.Skip {
		skip[v] = true
	}

	w := r.Dx()
	for y := 0; y < r.Dy(); y++ {
		from := src.Pix[(sy+y)*src.Stride+sx:]
		to := dst.Pix[(r.Min.Y+y)*dst.Stride+r.Min.X:]
		if len(opts.Skip) == 0 {
			copy(to[:w], from[:w])
			continue
		}
		for x := 0; x < w; x++ {
			if v := from[x]; !skip[v] {
				to[x] = v
			}
		}
	}
	return nil
}

// CopyRect crops r out of src into a new buffer.
func CopyRect(src *Buffer, r image.Rectangle) (*Buffer, error) {
	if err := src.validate(); err != nil {
		return nil, err
	}
	r = r.Canon()
	if !r.In(src.Bounds()) {
		return nil, fmt.Errorf("pixbuf: crop %v outside %v: %w", r, src.Bounds(), gsc.ErrDimensionMismatch)
	}

	out := New(r.Dx(), r.Dy())
	for y := 0; y < out.Height; y++ {
		off := (r.Min.Y+y)*src.Stride + r.Min.X
		copy(out.Row(y), src.Pix[off:off+out.Width])
	}
	return out, nil
}

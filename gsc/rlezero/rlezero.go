// Package rlezero compresses pixel rows dominated by the zero (background)
// value. Zero runs are stored as a marker plus a count, everything else as a
// count plus literal bytes. Every row is a self-contained sub-stream behind a
// length prefix, so row starts can be found without decoding.
package rlezero

import (
	"errors"
	"fmt"

	"github.com/cam-per/gsframes/gsc"
	"github.com/cam-per/gsframes/utils"
)

type Variant uint8

const (
	// VariantByte: uint16 row length including the prefix, 8-bit counts.
	VariantByte Variant = iota + 1
	// VariantWord: uint16 row length excluding the prefix, 16-bit counts.
	VariantWord
)

var (
	ErrUnknownVariant = errors.New("rlezero: unknown variant")
)

func (v Variant) String() string {
	switch v {
	case VariantByte:
		return "byte"
	case VariantWord:
		return "word"
	}
	return fmt.Sprintf("Variant(%d)", uint8(v))
}

func ParseVariant(s string) (Variant, error) {
	switch s {
	case "byte", "":
		return VariantByte, nil
	case "word":
		return VariantWord, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownVariant, s)
}

func (v Variant) maxCount() int {
	if v == VariantWord {
		return 0xFFFF
	}
	return 0xFF
}

// minZeroRun is the shortest zero run worth a marker instead of riding
// along in a literal run.
func (v Variant) minZeroRun() int {
	if v == VariantWord {
		return 5
	}
	return 3
}

func (v Variant) valid() error {
	switch v {
	case VariantByte, VariantWord:
		return nil
	}
	return fmt.Errorf("%w: %d", ErrUnknownVariant, uint8(v))
}

// Block is a compressed image; Raw reports that Data holds the pixels as is.
type Block struct {
	Data []byte
	Raw  bool
}

func checkSize(n, width, height int) error {
	if width < 0 || height < 0 || n != width*height {
		return fmt.Errorf("rlezero: %d bytes for %dx%d: %w", n, width, height, gsc.ErrDimensionMismatch)
	}
	return nil
}

// Compress encodes width x height pixels. With allowRaw the pixels are stored
// unchanged whenever that is not longer than the encoded form.
func Compress(data []byte, width, height int, variant Variant, allowRaw bool) (Block, error) {
	if err := variant.valid(); err != nil {
		return Block{}, err
	}
	if err := checkSize(len(data), width, height); err != nil {
		return Block{}, err
	}

	var out []byte
	for y := 0; y < height; y++ {
		var err error
		out, err = appendRow(out, data[y*width:(y+1)*width], variant)
		if err != nil {
			return Block{}, err
		}
	}

	if allowRaw && len(data) <= len(out) {
		raw := make([]byte, len(data))
		copy(raw, data)
		return Block{Data: raw, Raw: true}, nil
	}
	return Block{Data: out}, nil
}

func (v Variant) appendCount(dst []byte, n int) []byte {
	if v == VariantWord {
		return utils.AppendUint16LE(dst, uint16(n))
	}
	return append(dst, byte(n))
}

func appendRow(dst []byte, row []byte, variant Variant) ([]byte, error) {
	prefix := len(dst)
	dst = append(dst, 0, 0)

	limit := variant.maxCount()
	minZero := variant.minZeroRun()
	for x := 0; x < len(row); {
		zeros := 0
		for x+zeros < len(row) && row[x+zeros] == 0 {
			zeros++
		}
		if zeros >= minZero || (zeros > 0 && x+zeros == len(row)) {
			for zeros > 0 {
				n := min(zeros, limit)
				dst = variant.appendCount(dst, 0)
				dst = variant.appendCount(dst, n)
				zeros -= n
				x += n
			}
			continue
		}

		// Literal run up to the next zero run worth a marker.
		end := x
		for end < len(row) && end-x < limit {
			if row[end] == 0 {
				z := 0
				for end+z < len(row) && row[end+z] == 0 {
					z++
				}
				if z >= minZero || end+z == len(row) {
					break
				}
			}
			end++
		}
		dst = variant.appendCount(dst, end-x)
		dst = append(dst, row[x:end]...)
		x = end
	}

	size := len(dst) - prefix
	if variant == VariantWord {
		size -= 2
	}
	if size > 0xFFFF {
		return nil, fmt.Errorf("rlezero: encoded row of %d bytes exceeds prefix: %w", size, gsc.ErrValueOutOfRange)
	}
	dst[prefix] = byte(size)
	dst[prefix+1] = byte(size >> 8)
	return dst, nil
}

// rowSpan reads the prefix at data[pos] and returns the body bounds.
func rowSpan(data []byte, pos int, variant Variant) (int, int, error) {
	at := pos
	size, ok := utils.Uint16LE(data, &at)
	if !ok {
		return 0, 0, fmt.Errorf("rlezero: truncated row prefix at %d: %w", pos, gsc.ErrCorruptData)
	}
	end := at + int(size)
	if variant == VariantByte {
		if size < 2 {
			return 0, 0, fmt.Errorf("rlezero: row length %d at %d: %w", size, pos, gsc.ErrCorruptData)
		}
		end = pos + int(size)
	}
	if end > len(data) {
		return 0, 0, fmt.Errorf("rlezero: row at %d runs past %d bytes: %w", pos, len(data), gsc.ErrCorruptData)
	}
	return at, end, nil
}

// RowOffsets returns the start of each encoded row within data.
func RowOffsets(data []byte, height int, variant Variant) ([]int, error) {
	if err := variant.valid(); err != nil {
		return nil, err
	}
	offsets := make([]int, height)
	pos := 0
	for y := range offsets {
		offsets[y] = pos
		_, end, err := rowSpan(data, pos, variant)
		if err != nil {
			return nil, err
		}
		pos = end
	}
	return offsets, nil
}

// Decompress decodes width x height pixels from data[*start:] and advances
// *start past the consumed bytes. raw selects a block stored by Compress as is.
func Decompress(data []byte, start *int, width, height int, variant Variant, raw bool) ([]byte, error) {
	if err := variant.valid(); err != nil {
		return nil, err
	}
	if err := checkSize(width*height, width, height); err != nil {
		return nil, err
	}
	pos := *start
	if pos < 0 || pos > len(data) {
		return nil, fmt.Errorf("rlezero: start %d outside %d bytes: %w", pos, len(data), gsc.ErrCorruptData)
	}

	out := make([]byte, width*height)
	if raw {
		if len(data)-pos < len(out) {
			return nil, fmt.Errorf("rlezero: raw block needs %d bytes, has %d: %w", len(out), len(data)-pos, gsc.ErrCorruptData)
		}
		copy(out, data[pos:])
		*start = pos + len(out)
		return out, nil
	}

	for y := 0; y < height; y++ {
		body, end, err := rowSpan(data, pos, variant)
		if err != nil {
			return nil, err
		}
		if err := decodeRow(data[body:end], out[y*width:(y+1)*width], variant); err != nil {
			return nil, fmt.Errorf("row %d: %w", y, err)
		}
		pos = end
	}
	*start = pos
	return out, nil
}

func (v Variant) readCount(data []byte, pos *int) (int, bool) {
	if v == VariantWord {
		n, ok := utils.Uint16LE(data, pos)
		return int(n), ok
	}
	if *pos >= len(data) {
		return 0, false
	}
	n := data[*pos]
	*pos++
	return int(n), true
}

func decodeRow(src, dst []byte, variant Variant) error {
	sp, dp := 0, 0
	for sp < len(src) {
		count, ok := variant.readCount(src, &sp)
		if !ok {
			return fmt.Errorf("rlezero: truncated command: %w", gsc.ErrCorruptData)
		}
		if count == 0 {
			zeros, ok := variant.readCount(src, &sp)
			if !ok {
				return fmt.Errorf("rlezero: truncated zero run: %w", gsc.ErrCorruptData)
			}
			if zeros > len(dst)-dp {
				return fmt.Errorf("rlezero: zero run of %d overflows row: %w", zeros, gsc.ErrCorruptData)
			}
			clear(dst[dp : dp+zeros])
			dp += zeros
			continue
		}
		if count > len(dst)-dp || count > len(src)-sp {
			return fmt.Errorf("rlezero: literal run of %d overflows row: %w", count, gsc.ErrCorruptData)
		}
		copy(dst[dp:], src[sp:sp+count])
		sp += count
		dp += count
	}
	if dp != len(dst) {
		return fmt.Errorf("rlezero: row decoded to %d of %d pixels: %w", dp, len(dst), gsc.ErrCorruptData)
	}
	return nil
}

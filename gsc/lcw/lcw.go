// Package lcw implements the LCW byte compression used by sprite, animation,
// font and tileset blocks.
//
// Every command starts with one control byte:
//
//	0cccpppp pppppppp      copy ccc+3 bytes from pppppppppppp bytes back
//	10cccccc               copy cccccc literal bytes; 0x80 ends the stream
//	11cccccc aaaa          copy cccccc+3 bytes from absolute offset aaaa
//	11111110 cccc vv       fill cccc bytes with vv
//	11111111 cccc aaaa     copy cccc bytes from absolute offset aaaa
//
// Words are little-endian. Absolute offsets count from the start of the
// output of the current stream. Copies may overlap the bytes they produce.
package lcw

import (
	"fmt"

	"github.com/cam-per/gsframes/gsc"
)

const (
	cmdEnd  byte = 0x80
	cmdFill byte = 0xFE
	cmdLong byte = 0xFF

	maxLiteral   = 0x3F
	minCopy      = 3
	maxShortCopy = 10
	maxShortDist = 0x0FFF
	maxMedCopy   = 0x3D + minCopy
	maxLongCopy  = 0xFFFF
	maxAbsolute  = 0xFFFF
)

func corrupt(format string, args ...any) error {
	return fmt.Errorf("lcw: "+format+": %w", append(args, gsc.ErrCorruptData)...)
}

// Decompress decodes the stream at src[*start:] into dst[dstStart:] and
// returns the number of bytes written. It stops at the end marker or once dst
// is full, in which case a directly following end marker is consumed too.
// *start is advanced past the consumed input.
func Decompress(src []byte, start *int, dst []byte, dstStart int) (int, error) {
	sp := *start
	if sp < 0 || sp > len(src) {
		return 0, corrupt("start %d outside %d byte stream", sp, len(src))
	}
	if dstStart < 0 || dstStart > len(dst) {
		return 0, corrupt("destination start %d outside %d bytes", dstStart, len(dst))
	}
	dp := dstStart

	need := func(n int) error {
		if len(src)-sp < n {
			return corrupt("truncated command at %d", sp)
		}
		return nil
	}
	word := func() int {
		w := int(src[sp]) | int(src[sp+1])<<8
		sp += 2
		return w
	}
	room := func(n int) error {
		if n > len(dst)-dp {
			return corrupt("run of %d overflows destination at %d", n, dp-dstStart)
		}
		return nil
	}
	copyFrom := func(from, n int) error {
		if from < dstStart || from >= dp {
			return corrupt("reference to %d outside [0,%d)", from-dstStart, dp-dstStart)
		}
		if err := room(n); err != nil {
			return err
		}
		for i := 0; i < n; i++ {
			dst[dp] = dst[from+i]
			dp++
		}
		return nil
	}

	for {
		if dp == len(dst) {
			if sp < len(src) && src[sp] == cmdEnd {
				sp++
			}
			break
		}
		if err := need(1); err != nil {
			return 0, err
		}
		cmd := src[sp]
		sp++

		switch {
		case cmd&0x80 == 0:
			if err := need(1); err != nil {
				return 0, err
			}
			count := int(cmd>>4) + minCopy
			dist := int(cmd&0x0F)<<8 | int(src[sp])
			sp++
			if err := copyFrom(dp-dist, count); err != nil {
				return 0, err
			}
		case cmd == cmdEnd:
			*start = sp
			return dp - dstStart, nil
		case cmd&0x40 == 0:
			count := int(cmd & maxLiteral)
			if err := need(count); err != nil {
				return 0, err
			}
			if err := room(count); err != nil {
				return 0, err
			}
			copy(dst[dp:], src[sp:sp+count])
			sp += count
			dp += count
		case cmd == cmdFill:
			if err := need(3); err != nil {
				return 0, err
			}
			count := word()
			value := src[sp]
			sp++
			if err := room(count); err != nil {
				return 0, err
			}
			for i := 0; i < count; i++ {
				dst[dp+i] = value
			}
			dp += count
		case cmd == cmdLong:
			if err := need(4); err != nil {
				return 0, err
			}
			count := word()
			from := word()
			if count == 0 {
				continue
			}
			if err := copyFrom(dstStart+from, count); err != nil {
				return 0, err
			}
		default:
			if err := need(2); err != nil {
				return 0, err
			}
			count := int(cmd&0x3F) + minCopy
			if err := copyFrom(dstStart+word(), count); err != nil {
				return 0, err
			}
		}
	}

	*start = sp
	return dp - dstStart, nil
}

// DecompressSize decodes a whole stream into a new buffer of exactly size bytes.
func DecompressSize(src []byte, size int) ([]byte, error) {
	if size < 0 {
		return nil, corrupt("negative size %d", size)
	}
	dst := make([]byte, size)
	start := 0
	n, err := Decompress(src, &start, dst, 0)
	if err != nil {
		return nil, err
	}
	if n != size {
		return nil, corrupt("stream ended after %d of %d bytes", n, size)
	}
	return dst, nil
}

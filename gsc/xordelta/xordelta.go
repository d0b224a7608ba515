// Package xordelta stores the difference between two equal-length buffers as
// a stream of skip, XOR-literal and XOR-fill commands.
//
//	0x00 nn vv         XOR nn bytes with vv
//	0x01..0x7F         XOR the next n bytes with the n bytes that follow
//	0x81..0xFF         skip n&0x7F bytes
//	0x80 wwww          w == 0: end of stream
//	                   w&0x8000 == 0: skip w bytes
//	                   w&0xC000 == 0x8000: XOR literal of w&0x3FFF bytes
//	                   w&0xC000 == 0xC000: XOR fill of w&0x3FFF bytes, value follows
package xordelta

import (
	"fmt"

	"github.com/cam-per/gsframes/gsc"
	"github.com/cam-per/gsframes/utils"
)

const (
	cmdFill byte = 0x00
	cmdWord byte = 0x80

	maxShortSkip  = 0x7F
	maxLongSkip   = 0x7FFF
	maxShortXor   = 0x7F
	maxShortFill  = 0xFF
	maxLongCount  = 0x3FFF
	longLiteral   = 0x8000
	longFill      = 0xC000
	minFillRun    = 4
	maxInlineZero = 2
)

// End is the three byte end-of-stream marker.
var End = []byte{cmdWord, 0, 0}

func corrupt(format string, args ...any) error {
	return fmt.Errorf("xordelta: "+format+": %w", append(args, gsc.ErrCorruptData)...)
}

// Generate encodes the positions where current differs from reference.
// Applying the result to a copy of reference yields current.
func Generate(current, reference []byte) ([]byte, error) {
	if len(current) != len(reference) {
		return nil, fmt.Errorf("xordelta: %d and %d byte buffers: %w", len(current), len(reference), gsc.ErrDimensionMismatch)
	}

	x := make([]byte, len(current))
	for i := range current {
		x[i] = current[i] ^ reference[i]
	}

	var out []byte
	for pos := 0; pos < len(x); {
		skip := 0
		for pos+skip < len(x) && x[pos+skip] == 0 {
			skip++
		}
		if pos+skip == len(x) {
			break
		}
		out = appendSkip(out, skip)
		pos += skip

		// The changed span ends at a zero run longer than maxInlineZero.
		end := pos
		for end < len(x) {
			if x[end] == 0 {
				z := 0
				for end+z < len(x) && x[end+z] == 0 {
					z++
				}
				if z > maxInlineZero || end+z == len(x) {
					break
				}
				end += z
				continue
			}
			end++
		}
		out = appendChanges(out, x[pos:end])
		pos = end
	}
	return append(out, End...), nil
}

func appendSkip(out []byte, n int) []byte {
	for n > 0 {
		if n <= maxShortSkip {
			return append(out, cmdWord|byte(n))
		}
		step := min(n, maxLongSkip)
		out = append(out, cmdWord)
		out = utils.AppendUint16LE(out, uint16(step))
		n -= step
	}
	return out
}

func appendChanges(out []byte, span []byte) []byte {
	lit := 0
	for pos := 0; pos < len(span); {
		run := 1
		for pos+run < len(span) && span[pos+run] == span[pos] && run < maxLongCount {
			run++
		}
		if run < minFillRun {
			pos += run
			continue
		}
		out = appendLiteral(out, span[lit:pos])
		out = appendFill(out, run, span[pos])
		pos += run
		lit = pos
	}
	return appendLiteral(out, span[lit:])
}

func appendLiteral(out []byte, lit []byte) []byte {
	for len(lit) > 0 {
		if len(lit) <= maxShortXor {
			out = append(out, byte(len(lit)))
			return append(out, lit...)
		}
		n := min(len(lit), maxLongCount)
		out = append(out, cmdWord)
		out = utils.AppendUint16LE(out, uint16(longLiteral|n))
		out = append(out, lit[:n]...)
		lit = lit[n:]
	}
	return out
}

func appendFill(out []byte, n int, value byte) []byte {
	if n <= maxShortFill {
		return append(out, cmdFill, byte(n), value)
	}
	out = append(out, cmdWord)
	out = utils.AppendUint16LE(out, uint16(longFill|n))
	return append(out, value)
}

// Apply XORs the delta at delta[*start:] into target. It stops at the end
// marker or once maxLen delta bytes are consumed; a negative maxLen reads to
// the end of delta. *start is advanced past the consumed bytes.
func Apply(target, delta []byte, start *int, maxLen int) error {
	_, err := apply(target, delta, start, maxLen)
	return err
}

// ApplyAll XORs a complete delta into target. The stream must end with the
// end marker as its last bytes.
func ApplyAll(target, delta []byte) error {
	pos := 0
	ended, err := apply(target, delta, &pos, -1)
	if err != nil {
		return err
	}
	if !ended {
		return corrupt("stream of %d bytes has no end marker", len(delta))
	}
	if pos != len(delta) {
		return corrupt("%d bytes after the end marker", len(delta)-pos)
	}
	return nil
}

// apply reports whether it stopped at the end marker.
func apply(target, delta []byte, start *int, maxLen int) (bool, error) {
	sp := *start
	if sp < 0 || sp > len(delta) {
		return false, corrupt("start %d outside %d byte stream", sp, len(delta))
	}
	stop := len(delta)
	if maxLen >= 0 && sp+maxLen < stop {
		stop = sp + maxLen
	}

	dp := 0
	need := func(n int) error {
		if stop-sp < n {
			return corrupt("truncated command at %d", sp)
		}
		return nil
	}
	room := func(n int) error {
		if n > len(target)-dp {
			return corrupt("command of %d bytes at %d overflows %d byte target", n, dp, len(target))
		}
		return nil
	}
	xorLiteral := func(n int) error {
		if err := need(n); err != nil {
			return err
		}
		if err := room(n); err != nil {
			return err
		}
		for i := 0; i < n; i++ {
			target[dp+i] ^= delta[sp+i]
		}
		sp += n
		dp += n
		return nil
	}
	xorFill := func(n int, value byte) error {
		if err := room(n); err != nil {
			return err
		}
		for i := 0; i < n; i++ {
			target[dp+i] ^= value
		}
		dp += n
		return nil
	}

	for sp < stop {
		cmd := delta[sp]
		sp++

		switch {
		case cmd == cmdFill:
			if err := need(2); err != nil {
				return false, err
			}
			n, value := int(delta[sp]), delta[sp+1]
			sp += 2
			if err := xorFill(n, value); err != nil {
				return false, err
			}
		case cmd < cmdWord:
			if err := xorLiteral(int(cmd)); err != nil {
				return false, err
			}
		case cmd > cmdWord:
			n := int(cmd & maxShortSkip)
			if err := room(n); err != nil {
				return false, err
			}
			dp += n
		default:
			if err := need(2); err != nil {
				return false, err
			}
			w, _ := utils.Uint16LE(delta, &sp)
			switch {
			case w == 0:
				*start = sp
				return true, nil
			case w&longLiteral == 0:
				if err := room(int(w)); err != nil {
					return false, err
				}
				dp += int(w)
			case w&longFill == longLiteral:
				if err := xorLiteral(int(w & maxLongCount)); err != nil {
					return false, err
				}
			default:
				if err := need(1); err != nil {
					return false, err
				}
				value := delta[sp]
				sp++
				if err := xorFill(int(w&maxLongCount), value); err != nil {
					return false, err
				}
			}
		}
	}
	*start = sp
	return false, nil
}

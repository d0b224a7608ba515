package lcw

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/cam-per/gsframes/utils"
)

// Decoder is a streaming LCW reader producing at most unpackLength bytes.
// The whole output is kept as history for absolute references.
type Decoder struct {
	r         *bufio.Reader
	history   []byte
	out       bytes.Buffer
	remaining int64
	done      bool
}

func NewDecoder(r io.Reader, unpackLength int64) *Decoder {
	decoder := &Decoder{
		r:         bufio.NewReader(r),
		remaining: unpackLength,
	}
	if unpackLength > 0 && unpackLength <= 1<<20 {
		decoder.history = make([]byte, 0, unpackLength)
	}
	return decoder
}

func (decoder *Decoder) Read(p []byte) (n int, err error) {
	for n < len(p) {
		if decoder.out.Len() > 0 {
			w, _ := decoder.out.Read(p[n:])
			n += w
			continue
		}
		if decoder.done && decoder.remaining > 0 {
			return n, fmt.Errorf("lcw: end marker with %d bytes missing: %w", decoder.remaining, io.ErrUnexpectedEOF)
		}
		if decoder.done || decoder.remaining <= 0 {
			if n == 0 {
				return 0, io.EOF
			}
			return n, nil
		}
		if err := decoder.readCom(); err != nil {
			if errors.Is(err, io.EOF) {
				err = io.ErrUnexpectedEOF
			}
			return n, err
		}
	}
	return n, nil
}

func (decoder *Decoder) emit(b ...byte) error {
	if int64(len(b)) > decoder.remaining {
		return corrupt("run of %d overflows %d remaining bytes", len(b), decoder.remaining)
	}
	decoder.history = append(decoder.history, b...)
	decoder.out.Write(b)
	decoder.remaining -= int64(len(b))
	return nil
}

func (decoder *Decoder) copyFrom(from, count int) error {
	pos := len(decoder.history)
	if from < 0 || from >= pos {
		return corrupt("reference to %d outside [0,%d)", from, pos)
	}
	if int64(count) > decoder.remaining {
		return corrupt("run of %d overflows %d remaining bytes", count, decoder.remaining)
	}
	for i := 0; i < count; i++ {
		decoder.history = append(decoder.history, decoder.history[from+i])
	}
	decoder.out.Write(decoder.history[pos:])
	decoder.remaining -= int64(count)
	return nil
}

func (decoder *Decoder) readCom() error {
	cmd, err := utils.ReadByte(decoder.r)
	if err != nil {
		return err
	}

	switch {
	case cmd&0x80 == 0:
		lo, err := utils.ReadByte(decoder.r)
		if err != nil {
			return err
		}
		dist := int(cmd&0x0F)<<8 | int(lo)
		return decoder.copyFrom(len(decoder.history)-dist, int(cmd>>4)+minCopy)
	case cmd == cmdEnd:
		decoder.done = true
		return nil
	case cmd&0x40 == 0:
		lit := make([]byte, cmd&maxLiteral)
		if _, err := io.ReadFull(decoder.r, lit); err != nil {
			return err
		}
		return decoder.emit(lit...)
	case cmd == cmdFill:
		count, err := utils.ReadUint16LE(decoder.r)
		if err != nil {
			return err
		}
		value, err := utils.ReadByte(decoder.r)
		if err != nil {
			return err
		}
		return decoder.emit(bytes.Repeat([]byte{value}, int(count))...)
	case cmd == cmdLong:
		count, err := utils.ReadUint16LE(decoder.r)
		if err != nil {
			return err
		}
		from, err := utils.ReadUint16LE(decoder.r)
		if err != nil {
			return err
		}
		if count == 0 {
			return nil
		}
		return decoder.copyFrom(int(from), int(count))
	default:
		from, err := utils.ReadUint16LE(decoder.r)
		if err != nil {
			return err
		}
		return decoder.copyFrom(int(from), int(cmd&0x3F)+minCopy)
	}
}

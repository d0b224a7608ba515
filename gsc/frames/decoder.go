package frames

import (
	"bytes"
	"fmt"

	"github.com/cam-per/gsframes/gsc"
	"github.com/cam-per/gsframes/gsc/lcw"
	"github.com/cam-per/gsframes/gsc/xordelta"
)

// DecodeBlock decompresses one LCW block into exactly expectedLen bytes.
func DecodeBlock(block []byte, expectedLen int) ([]byte, error) {
	return lcw.DecompressSize(block, expectedLen)
}

// maxDeltaLen bounds the XOR stream of a frameLen byte frame: no command
// spends more than two bytes per target byte, plus the end marker.
func maxDeltaLen(frameLen int) int { return 2*frameLen + len(xordelta.End) + 8 }

func (index Index) block(stream []byte, i int) ([]byte, error) {
	e := index[i]
	if e.Offset < 0 || e.Length < 0 || e.Offset > len(stream) || e.Length > len(stream)-e.Offset {
		return nil, fmt.Errorf("frames: frame %d block [%d,+%d) outside %d byte stream: %w",
			i, e.Offset, e.Length, len(stream), gsc.ErrCorruptData)
	}
	return stream[e.Offset : e.Offset+e.Length], nil
}

func applyDelta(frame, block []byte) error {
	delta := make([]byte, maxDeltaLen(len(frame)))
	start := 0
	n, err := lcw.Decompress(block, &start, delta, 0)
	if err != nil {
		return err
	}
	if start != len(block) {
		return fmt.Errorf("frames: delta stream longer than %d bytes: %w", len(delta), gsc.ErrCorruptData)
	}
	return xordelta.ApplyAll(frame, delta[:n])
}

// DecodeFrames rebuilds every frame in ascending order. Nothing is returned
// unless the whole sequence decodes.
func DecodeFrames(stream []byte, index Index, frameLen int) ([][]byte, error) {
	if err := index.Validate(); err != nil {
		return nil, err
	}

	out := make([][]byte, len(index))
	for i, e := range index {
		block, err := index.block(stream, i)
		if err != nil {
			return nil, err
		}

		var frame []byte
		switch e.Tag {
		case Keyframe:
			frame, err = DecodeBlock(block, frameLen)
		case XorBase, XorChain:
			frame = bytes.Clone(out[e.Ref])
			err = applyDelta(frame, block)
		}
		if err != nil {
			return nil, fmt.Errorf("frames: frame %d (%s): %w", i, e.Tag, err)
		}
		out[i] = frame
	}
	return out, nil
}

// Decode is DecodeFrames over seq.
func (seq *Sequence) Decode() ([][]byte, error) {
	return DecodeFrames(seq.Stream, seq.Index, seq.FrameLen)
}

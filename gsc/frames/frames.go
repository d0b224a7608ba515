// Package frames encodes sequences of equal-sized frames as LCW keyframes and
// LCW-compressed XOR deltas, choosing per frame whichever form is smallest.
package frames

import (
	"fmt"
	"runtime"

	"github.com/cam-per/gsframes/gsc"
	"github.com/cam-per/gsframes/gsc/rlezero"
)

type Tag uint8

const (
	// Keyframe blocks decompress on their own.
	Keyframe Tag = iota
	// XorBase blocks are deltas against the keyframe named by Ref.
	XorBase
	// XorChain blocks are deltas against the previous frame.
	XorChain
)

func (tag Tag) String() string {
	switch tag {
	case Keyframe:
		return "key"
	case XorBase:
		return "xor-base"
	case XorChain:
		return "xor-chain"
	}
	return fmt.Sprintf("Tag(%d)", uint8(tag))
}

// NoRef marks a keyframe that owns its stored block.
const NoRef = -1

// Entry locates one frame's block in the stream. For a keyframe sharing an
// earlier keyframe's block, Ref names the owner.
type Entry struct {
	Offset int
	Length int
	Tag    Tag
	Ref    int
}

type Index []Entry

type Options struct {
	// ChainGuard stops a chain of XorChain frames once its accumulated size
	// reaches the size of a delta against the keyframe.
	ChainGuard bool
	// Dedup looks for identical keyframes and blocks across the whole
	// sequence instead of only the previous frame.
	Dedup bool
	// Variant is the RLE-Zero wire variant for independent items.
	Variant rlezero.Variant
	// Workers bounds concurrent candidate compression; values below 2 run inline.
	Workers int
}

func DefaultOptions() Options {
	return Options{
		ChainGuard: true,
		Dedup:      true,
		Variant:    rlezero.VariantByte,
		Workers:    runtime.GOMAXPROCS(0),
	}
}

type Sequence struct {
	Stream   []byte
	Index    Index
	FrameLen int
}

type Stats struct {
	Frames      int
	Keyframes   int
	Shared      int
	XorBase     int
	XorChain    int
	StoredBytes int
	RawBytes    int
}

func (seq *Sequence) Stats() Stats {
	stats := Stats{
		Frames:      len(seq.Index),
		StoredBytes: len(seq.Stream),
		RawBytes:    len(seq.Index) * seq.FrameLen,
	}
	for _, e := range seq.Index {
		switch e.Tag {
		case Keyframe:
			if e.Ref != NoRef {
				stats.Shared++
			} else {
				stats.Keyframes++
			}
		case XorBase:
			stats.XorBase++
		case XorChain:
			stats.XorChain++
		}
	}
	return stats
}

func badRef(i int, format string, args ...any) error {
	return fmt.Errorf("frames: frame %d: "+format+": %w", append([]any{i}, append(args, gsc.ErrBadReference)...)...)
}

// Validate checks that every reference points backwards and that every delta
// resolves to a keyframe.
func (index Index) Validate() error {
	for i, e := range index {
		switch e.Tag {
		case Keyframe:
			if e.Ref == NoRef {
				continue
			}
			if e.Ref < 0 || e.Ref >= i {
				return badRef(i, "shared keyframe refers to %d", e.Ref)
			}
			if index[e.Ref].Tag != Keyframe {
				return badRef(i, "shared keyframe refers to %s frame %d", index[e.Ref].Tag, e.Ref)
			}
		case XorBase:
			if e.Ref < 0 || e.Ref >= i {
				return badRef(i, "delta base %d", e.Ref)
			}
			if index[e.Ref].Tag != Keyframe {
				return badRef(i, "delta base %d is %s", e.Ref, index[e.Ref].Tag)
			}
		case XorChain:
			if i == 0 || e.Ref != i-1 {
				return badRef(i, "chain refers to %d", e.Ref)
			}
			if prev := index[i-1].Tag; prev != XorBase && prev != XorChain {
				return badRef(i, "chain follows %s frame", prev)
			}
		default:
			return badRef(i, "unknown %s", e.Tag)
		}
	}
	return nil
}

package frames

import (
	"bytes"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/cam-per/gsframes/gsc"
	"github.com/cam-per/gsframes/gsc/intern"
	"github.com/cam-per/gsframes/gsc/lcw"
	"github.com/cam-per/gsframes/gsc/xordelta"
)

// candidates holds the per-frame blocks that do not depend on earlier
// choices: the frame alone and its delta against the previous frame.
type candidates struct {
	key   [][]byte
	chain [][]byte
}

func deltaBlock(current, reference []byte) ([]byte, error) {
	delta, err := xordelta.Generate(current, reference)
	if err != nil {
		return nil, err
	}
	return lcw.Compress(delta), nil
}

func computeCandidates(frames [][]byte, workers int) (*candidates, error) {
	c := &candidates{
		key:   make([][]byte, len(frames)),
		chain: make([][]byte, len(frames)),
	}
	one := func(i int) error {
		c.key[i] = lcw.Compress(frames[i])
		if i == 0 {
			return nil
		}
		var err error
		c.chain[i], err = deltaBlock(frames[i], frames[i-1])
		return err
	}

	if workers < 2 {
		for i := range frames {
			if err := one(i); err != nil {
				return nil, err
			}
		}
		return c, nil
	}

	var g errgroup.Group
	g.SetLimit(workers)
	for i := range frames {
		g.Go(func() error { return one(i) })
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return c, nil
}

type encoder struct {
	opts    Options
	frames  [][]byte
	cand    *candidates
	stream  *intern.Builder
	index   Index
	keys    map[string]int
	current int
	chain   int
}

// EncodeFrames encodes frames, which must all have the same length. Frame 0
// is a keyframe; every later frame becomes a shared keyframe when it repeats
// an earlier keyframe, and otherwise the smallest of a new keyframe, a delta
// against the current keyframe or a delta against the previous frame.
func EncodeFrames(frames [][]byte, opts Options) (*Sequence, error) {
	if len(frames) == 0 {
		return &Sequence{}, nil
	}
	frameLen := len(frames[0])
	for i, f := range frames {
		if len(f) != frameLen {
			return nil, fmt.Errorf("frames: frame %d has %d bytes, frame 0 has %d: %w", i, len(f), frameLen, gsc.ErrDimensionMismatch)
		}
	}

	cand, err := computeCandidates(frames, opts.Workers)
	if err != nil {
		return nil, err
	}

	enc := &encoder{
		opts:    opts,
		frames:  frames,
		cand:    cand,
		stream:  intern.NewBuilder(),
		index:   make(Index, len(frames)),
		keys:    make(map[string]int),
		current: -1,
	}
	for i := range frames {
		if err := enc.commit(i); err != nil {
			return nil, err
		}
	}

	return &Sequence{
		Stream:   bytes.Clone(enc.stream.Bytes()),
		Index:    enc.index,
		FrameLen: frameLen,
	}, nil
}

// sharedKeyframe finds an earlier keyframe with the same pixels as frame i.
func (enc *encoder) sharedKeyframe(i int) (int, bool) {
	if enc.opts.Dedup {
		k, ok := enc.keys[string(enc.frames[i])]
		return k, ok
	}
	prev := i - 1
	if enc.index[prev].Tag != Keyframe || !bytes.Equal(enc.frames[prev], enc.frames[i]) {
		return 0, false
	}
	if owner := enc.index[prev].Ref; owner != NoRef {
		return owner, true
	}
	return prev, true
}

func (enc *encoder) store(block []byte) int {
	if enc.opts.Dedup {
		off, _ := enc.stream.Add(block)
		return off
	}
	return enc.stream.Append(block)
}

func (enc *encoder) commit(i int) error {
	if i > 0 {
		if k, ok := enc.sharedKeyframe(i); ok {
			owner := enc.index[k]
			enc.index[i] = Entry{Offset: owner.Offset, Length: owner.Length, Tag: Keyframe, Ref: k}
			enc.current = i
			enc.chain = 0
			return nil
		}
	}

	tag, ref, block, err := enc.choose(i)
	if err != nil {
		return err
	}
	enc.index[i] = Entry{Offset: enc.store(block), Length: len(block), Tag: tag, Ref: ref}

	switch tag {
	case Keyframe:
		enc.current = i
		enc.chain = 0
		if _, ok := enc.keys[string(enc.frames[i])]; !ok {
			enc.keys[string(enc.frames[i])] = i
		}
	case XorBase:
		enc.chain = len(block)
	case XorChain:
		enc.chain += len(block)
	}
	return nil
}

func (enc *encoder) choose(i int) (Tag, int, []byte, error) {
	a := enc.cand.key[i]
	if i == 0 {
		return Keyframe, NoRef, a, nil
	}

	var b []byte
	if enc.current == i-1 {
		b = enc.cand.chain[i]
	} else {
		var err error
		if b, err = deltaBlock(enc.frames[i], enc.frames[enc.current]); err != nil {
			return 0, 0, nil, err
		}
	}

	c := enc.cand.chain[i]
	chainOK := enc.index[i-1].Tag != Keyframe
	if chainOK && enc.opts.ChainGuard && enc.chain+len(c) >= len(b) {
		chainOK = false
	}

	switch {
	case len(a) <= len(b) && (!chainOK || len(a) <= len(c)):
		return Keyframe, NoRef, a, nil
	case !chainOK || len(b) <= len(c):
		return XorBase, enc.current, b, nil
	default:
		return XorChain, i - 1, c, nil
	}
}

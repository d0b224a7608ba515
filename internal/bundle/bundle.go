package bundle

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
	"golang.org/x/text/encoding/charmap"

	"github.com/cam-per/gsframes/gsc/frames"
	"github.com/cam-per/gsframes/utils"
)

const (
	version   uint16 = 1
	nameSize         = 32
	maxFrames        = 1 << 16
	maxStream        = 1 << 30
)

const (
	FlagZstd uint16 = 1 << iota
)

var (
	ErrBadDescriptor = errors.New("bundle: bad descriptor")
	ErrBadVersion    = errors.New("bundle: unsupported version")
	ErrBadHeader     = errors.New("bundle: bad header")

	descriptor = [4]byte{'G', 'S', 'F', 'B'}
)

type header struct {
	Descriptor [4]byte
	Version    uint16
	Flags      uint16
	Width      uint16
	Height     uint16
	BPP        uint8
	Reserved   uint8
	Frames     uint32
	StreamSize uint32
	Name       [nameSize]byte
}

type entryHeader struct {
	Offset uint32
	Length uint32
	Tag    uint8
	Ref    int32
}

// Bundle is one encoded frame sequence with the dimensions needed to
// rebuild the source pixels.
type Bundle struct {
	Name     string
	Width    int
	Height   int
	BPP      int
	Flags    uint16
	Sequence *frames.Sequence
}

type WriteOptions struct {
	Zstd      bool
	ZstdLevel int
}

func Write(w io.Writer, b *Bundle, opts WriteOptions) error {
	if b.Width < 0 || b.Width > 0xFFFF || b.Height < 0 || b.Height > 0xFFFF {
		return fmt.Errorf("%w: size %dx%d", ErrBadHeader, b.Width, b.Height)
	}
	seq := b.Sequence
	if seq == nil {
		seq = &frames.Sequence{}
	}
	if len(seq.Index) > maxFrames || len(seq.Stream) > maxStream {
		return fmt.Errorf("%w: %d frames, %d stream bytes", ErrBadHeader, len(seq.Index), len(seq.Stream))
	}
	name, err := utils.EncodeCString(b.Name, nameSize, charmap.CodePage866)
	if err != nil {
		return fmt.Errorf("bundle: %w", err)
	}

	h := header{
		Descriptor: descriptor,
		Version:    version,
		Width:      uint16(b.Width),
		Height:     uint16(b.Height),
		BPP:        uint8(b.BPP),
		Frames:     uint32(len(seq.Index)),
		StreamSize: uint32(len(seq.Stream)),
	}
	copy(h.Name[:], name)
	if opts.Zstd {
		h.Flags |= FlagZstd
	}

	bw := bufio.NewWriter(w)
	if err := binary.Write(bw, binary.LittleEndian, &h); err != nil {
		return err
	}

	var payload io.Writer = bw
	var enc *zstd.Encoder
	if opts.Zstd {
		level := zstd.SpeedDefault
		if opts.ZstdLevel > 0 {
			level = zstd.EncoderLevelFromZstd(opts.ZstdLevel)
		}
		enc, err = zstd.NewWriter(bw, zstd.WithEncoderLevel(level))
		if err != nil {
			return fmt.Errorf("zstd encode: %w", err)
		}
		payload = enc
	}

	entries := make([]entryHeader, len(seq.Index))
	for i, e := range seq.Index {
		entries[i] = entryHeader{
			Offset: uint32(e.Offset),
			Length: uint32(e.Length),
			Tag:    uint8(e.Tag),
			Ref:    int32(e.Ref),
		}
	}
	if err := binary.Write(payload, binary.LittleEndian, entries); err != nil {
		return err
	}
	if _, err := payload.Write(seq.Stream); err != nil {
		return err
	}
	if enc != nil {
		if err := enc.Close(); err != nil {
			return fmt.Errorf("zstd encode: %w", err)
		}
	}
	return bw.Flush()
}

func Read(r io.Reader) (*Bundle, error) {
	var h header
	if err := binary.Read(r, binary.LittleEndian, &h); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadHeader, err)
	}
	if h.Descriptor != descriptor {
		return nil, fmt.Errorf("%w: %q", ErrBadDescriptor, h.Descriptor[:])
	}
	if h.Version != version {
		return nil, fmt.Errorf("%w: %d", ErrBadVersion, h.Version)
	}
	if h.Frames > maxFrames || h.StreamSize > maxStream {
		return nil, fmt.Errorf("%w: %d frames, %d stream bytes", ErrBadHeader, h.Frames, h.StreamSize)
	}

	payload := r
	if h.Flags&FlagZstd != 0 {
		dec, err := zstd.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("zstd decode: %w", err)
		}
		defer dec.Close()
		payload = dec
	}

	entries := make([]entryHeader, h.Frames)
	if err := binary.Read(payload, binary.LittleEndian, &entries); err != nil {
		return nil, fmt.Errorf("bundle: read index: %w", err)
	}
	var stream bytes.Buffer
	if _, err := io.CopyN(&stream, payload, int64(h.StreamSize)); err != nil {
		return nil, fmt.Errorf("bundle: read stream: %w", err)
	}

	index := make(frames.Index, len(entries))
	for i, e := range entries {
		index[i] = frames.Entry{
			Offset: int(e.Offset),
			Length: int(e.Length),
			Tag:    frames.Tag(e.Tag),
			Ref:    int(e.Ref),
		}
	}
	if err := index.Validate(); err != nil {
		return nil, err
	}

	return &Bundle{
		Name:   utils.CString(h.Name[:]).Decode(charmap.CodePage866),
		Width:  int(h.Width),
		Height: int(h.Height),
		BPP:    int(h.BPP),
		Flags:  h.Flags,
		Sequence: &frames.Sequence{
			Stream:   stream.Bytes(),
			Index:    index,
			FrameLen: int(h.Width) * int(h.Height),
		},
	}, nil
}

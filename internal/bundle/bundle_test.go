package bundle

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/cam-per/gsframes/gsc"
	"github.com/cam-per/gsframes/gsc/frames"
)

func testSequence(t *testing.T) *frames.Sequence {
	t.Helper()
	src := make([][]byte, 6)
	for i := range src {
		f := make([]byte, 16*8)
		for j := range f {
			f[j] = byte(j % 7)
		}
		f[i*3] = 0x55
		src[i] = f
	}
	src[4] = bytes.Clone(src[0])
	seq, err := frames.EncodeFrames(src, frames.DefaultOptions())
	if err != nil {
		t.Fatalf("EncodeFrames: %v", err)
	}
	return seq
}

func TestRoundTrip(t *testing.T) {
	for _, opts := range []WriteOptions{
		{},
		{Zstd: true},
		{Zstd: true, ZstdLevel: 19},
	} {
		seq := testSequence(t)
		in := &Bundle{Name: "Пехота", Width: 16, Height: 8, BPP: 4, Sequence: seq}

		var buf bytes.Buffer
		if err := Write(&buf, in, opts); err != nil {
			t.Fatalf("Write(%+v): %v", opts, err)
		}
		out, err := Read(&buf)
		if err != nil {
			t.Fatalf("Read(%+v): %v", opts, err)
		}

		if out.Name != in.Name || out.Width != 16 || out.Height != 8 || out.BPP != 4 {
			t.Fatalf("header = %+v", out)
		}
		if (out.Flags&FlagZstd != 0) != opts.Zstd {
			t.Errorf("flags = %#x, zstd %v", out.Flags, opts.Zstd)
		}
		if !bytes.Equal(out.Sequence.Stream, seq.Stream) {
			t.Errorf("stream differs")
		}
		if len(out.Sequence.Index) != len(seq.Index) {
			t.Fatalf("index has %d entries, want %d", len(out.Sequence.Index), len(seq.Index))
		}
		for i := range seq.Index {
			if out.Sequence.Index[i] != seq.Index[i] {
				t.Errorf("entry %d = %+v, want %+v", i, out.Sequence.Index[i], seq.Index[i])
			}
		}

		want, _ := seq.Decode()
		got, err := out.Sequence.Decode()
		if err != nil {
			t.Fatalf("Decode: %v", err)
		}
		for i := range want {
			if !bytes.Equal(got[i], want[i]) {
				t.Errorf("frame %d differs", i)
			}
		}
	}
}

func TestEmptySequence(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, &Bundle{Width: 2, Height: 2, BPP: 8}, WriteOptions{}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	out, err := Read(&buf)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(out.Sequence.Index) != 0 || len(out.Sequence.Stream) != 0 {
		t.Fatalf("sequence = %+v", out.Sequence)
	}
}

func TestWriteErrors(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, &Bundle{Width: 70000, Height: 1}, WriteOptions{}); !errors.Is(err, ErrBadHeader) {
		t.Errorf("oversized width: err = %v", err)
	}
	long := string(bytes.Repeat([]byte{'a'}, nameSize))
	if err := Write(&buf, &Bundle{Name: long, Width: 1, Height: 1}, WriteOptions{}); err == nil {
		t.Error("name without room for the terminator was accepted")
	}
}

func TestReadErrors(t *testing.T) {
	var good bytes.Buffer
	if err := Write(&good, &Bundle{Width: 16, Height: 8, BPP: 8, Sequence: testSequence(t)}, WriteOptions{}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	data := good.Bytes()

	t.Run("descriptor", func(t *testing.T) {
		bad := bytes.Clone(data)
		bad[0] = 'X'
		if _, err := Read(bytes.NewReader(bad)); !errors.Is(err, ErrBadDescriptor) {
			t.Fatalf("err = %v", err)
		}
	})
	t.Run("version", func(t *testing.T) {
		bad := bytes.Clone(data)
		binary.LittleEndian.PutUint16(bad[4:], 9)
		if _, err := Read(bytes.NewReader(bad)); !errors.Is(err, ErrBadVersion) {
			t.Fatalf("err = %v", err)
		}
	})
	t.Run("short header", func(t *testing.T) {
		if _, err := Read(bytes.NewReader(data[:10])); !errors.Is(err, ErrBadHeader) {
			t.Fatalf("err = %v", err)
		}
	})
	t.Run("truncated stream", func(t *testing.T) {
		if _, err := Read(bytes.NewReader(data[:len(data)-1])); err == nil {
			t.Fatal("truncated bundle was accepted")
		}
	})
	t.Run("forward reference", func(t *testing.T) {
		bad := bytes.Clone(data)
		// Ref of entry 0 sits after offset, length and tag.
		refPos := binary.Size(header{}) + 4 + 4 + 1
		binary.LittleEndian.PutUint32(bad[refPos:], 3)
		if _, err := Read(bytes.NewReader(bad)); !errors.Is(err, gsc.ErrBadReference) {
			t.Fatalf("err = %v", err)
		}
	})
}

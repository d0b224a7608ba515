package frames

import (
	"bytes"
	"fmt"

	"github.com/cam-per/gsframes/gsc"
	"github.com/cam-per/gsframes/gsc/intern"
	"github.com/cam-per/gsframes/gsc/pixbuf"
	"github.com/cam-per/gsframes/gsc/rlezero"
)

// Item is one independently stored bitmap, such as a glyph or a tile.
type Item struct {
	Offset int
	Length int
	Width  int
	Height int
	Raw    bool
	// Ref is the first item whose stored bytes this item shares.
	Ref int
}

type ItemSet struct {
	Data    []byte
	Items   []Item
	Variant rlezero.Variant
}

// EncodeItems RLE-Zero compresses every item on its own and stores identical
// blocks once.
func EncodeItems(items []*pixbuf.Buffer, opts Options) (*ItemSet, error) {
	variant := opts.Variant
	if variant == 0 {
		variant = rlezero.VariantByte
	}

	set := &ItemSet{Items: make([]Item, len(items)), Variant: variant}
	blocks := make([][]byte, len(items))
	for i, item := range items {
		if item == nil {
			return nil, fmt.Errorf("frames: item %d is nil: %w", i, gsc.ErrDimensionMismatch)
		}
		block, err := rlezero.Compress(item.Packed(), item.Width, item.Height, variant, true)
		if err != nil {
			return nil, fmt.Errorf("frames: item %d: %w", i, err)
		}
		blocks[i] = block.Data
		set.Items[i] = Item{Length: len(block.Data), Width: item.Width, Height: item.Height, Raw: block.Raw, Ref: i}
	}

	if opts.Dedup {
		table := intern.Intern(blocks)
		for i := range set.Items {
			set.Items[i].Offset = table.Offsets[i]
			set.Items[i].Ref = table.Refs[i]
		}
		set.Data = bytes.Clone(table.Data)
		return set, nil
	}

	stream := intern.NewBuilder()
	for i, block := range blocks {
		set.Items[i].Offset = stream.Append(block)
	}
	set.Data = bytes.Clone(stream.Bytes())
	return set, nil
}

func (set *ItemSet) block(i int) []byte {
	it := set.Items[i]
	return set.Data[it.Offset : it.Offset+it.Length]
}

// Decode returns item i as a canonical buffer.
func (set *ItemSet) Decode(i int) (*pixbuf.Buffer, error) {
	if i < 0 || i >= len(set.Items) {
		return nil, fmt.Errorf("frames: item %d of %d: %w", i, len(set.Items), gsc.ErrBadReference)
	}
	it := set.Items[i]
	if it.Offset < 0 || it.Length < 0 || it.Offset > len(set.Data) || it.Length > len(set.Data)-it.Offset {
		return nil, fmt.Errorf("frames: item %d block outside %d byte stream: %w", i, len(set.Data), gsc.ErrCorruptData)
	}
	start := 0
	pix, err := rlezero.Decompress(set.block(i), &start, it.Width, it.Height, set.Variant, it.Raw)
	if err != nil {
		return nil, fmt.Errorf("frames: item %d: %w", i, err)
	}
	return pixbuf.Wrap(pix, it.Width, it.Height)
}

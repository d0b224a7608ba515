package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v3"

	"github.com/cam-per/gsframes/gsc/frames"
	"github.com/cam-per/gsframes/gsc/lcw"
	"github.com/cam-per/gsframes/gsc/pal"
	"github.com/cam-per/gsframes/gsc/pixbuf"
	"github.com/cam-per/gsframes/internal/bundle"
	"github.com/cam-per/gsframes/internal/config"
	"github.com/cam-per/gsframes/utils"
)

var errUsage = errors.New("usage")

func geometryFlags() []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{Name: "width", Aliases: []string{"W"}, Required: true},
		&cli.IntFlag{Name: "height", Aliases: []string{"H"}, Required: true},
		&cli.IntFlag{Name: "bpp", Value: 8, Usage: "bits per pixel: 1, 2, 4 or 8"},
		&cli.IntFlag{Name: "stride", Usage: "bytes per source row, 0 for packed rows"},
	}
}

// readFrames splits every input file into frames of stride*height bytes.
func readFrames(paths []string, width, height, bpp, stride int) ([][]byte, error) {
	if stride == 0 {
		stride = pixbuf.RowStride(width, bpp)
	}
	size := stride * height
	if size <= 0 {
		return nil, fmt.Errorf("%w: empty frame geometry %dx%d", errUsage, width, height)
	}

	var out [][]byte
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if len(data)%size != 0 {
			return nil, fmt.Errorf("%s: %d bytes is not a multiple of the %d byte frame", path, len(data), size)
		}
		for off := 0; off < len(data); off += size {
			buffer, err := pixbuf.ToCanonical(data[off:off+size], width, height, bpp, stride)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", path, err)
			}
			out = append(out, buffer.Pix)
		}
		slog.Debug("read frames", "file", path, "size", humanize.Bytes(uint64(len(data))), "frames", len(data)/size)
	}
	return out, nil
}

func encodeCommand() *cli.Command {
	return &cli.Command{
		Name:      "encode",
		Usage:     "encode raw frames into a bundle",
		ArgsUsage: "<frames.raw>...",
		Flags: append(geometryFlags(),
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Required: true},
			&cli.StringFlag{Name: "name", Usage: "sequence name stored in the bundle"},
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "YAML encode profile"},
			&cli.BoolFlag{Name: "zstd", Usage: "zstd-compress the bundle payload"},
			&cli.BoolFlag{Name: "no-guard", Usage: "disable the chain guard"},
			&cli.BoolFlag{Name: "no-dedup", Usage: "only reuse the previous frame"},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.Args().Len() == 0 {
				return fmt.Errorf("%w: encode needs at least one input file", errUsage)
			}
			profile, err := config.Load(cmd.String("config"))
			if err != nil {
				return err
			}
			if cmd.IsSet("zstd") {
				profile.Zstd = cmd.Bool("zstd")
			}
			if cmd.Bool("no-guard") {
				profile.ChainGuard = false
			}
			if cmd.Bool("no-dedup") {
				profile.Dedup = false
			}
			opts, err := profile.FrameOptions()
			if err != nil {
				return err
			}

			width, height, bpp := cmd.Int("width"), cmd.Int("height"), cmd.Int("bpp")
			src, err := readFrames(cmd.Args().Slice(), width, height, bpp, cmd.Int("stride"))
			if err != nil {
				return err
			}
			seq, err := frames.EncodeFrames(src, opts)
			if err != nil {
				return err
			}

			f, err := os.Create(cmd.String("output"))
			if err != nil {
				return err
			}
			defer f.Close()
			b := &bundle.Bundle{Name: cmd.String("name"), Width: width, Height: height, BPP: bpp, Sequence: seq}
			if err := bundle.Write(f, b, bundle.WriteOptions{Zstd: profile.Zstd, ZstdLevel: profile.ZstdLevel}); err != nil {
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}

			stats := seq.Stats()
			slog.Info("encoded",
				"frames", stats.Frames,
				"keyframes", stats.Keyframes,
				"shared", stats.Shared,
				"xor_base", stats.XorBase,
				"xor_chain", stats.XorChain,
				"raw", humanize.Bytes(uint64(stats.RawBytes)),
				"stored", humanize.Bytes(uint64(stats.StoredBytes)),
			)
			return nil
		},
	}
}

func openBundle(path string) (*bundle.Bundle, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	b, err := bundle.Read(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return b, nil
}

func bundleArg(cmd *cli.Command) (*bundle.Bundle, error) {
	path := cmd.Args().Get(0)
	if path == "" {
		return nil, fmt.Errorf("%w: %s needs a bundle path", errUsage, cmd.Name)
	}
	return openBundle(path)
}

func loadPalette(path, layout string, bpp int) (color.Palette, error) {
	if path == "" {
		return pal.Gray(bpp), nil
	}
	ch, err := pal.ParseChannel(layout)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return pal.Read(f, ch, 1<<bpp)
}

func writePNG(path string, buffer *pixbuf.Buffer, palette color.Palette) error {
	img, err := pal.Paletted(buffer, palette)
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		return err
	}
	return f.Close()
}

func decodeCommand() *cli.Command {
	return &cli.Command{
		Name:      "decode",
		Usage:     "decode a bundle back into packed raw frames",
		ArgsUsage: "<bundle>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Required: true},
			&cli.StringFlag{Name: "png", Usage: "also write every frame as a PNG into this directory"},
			&cli.StringFlag{Name: "palette", Usage: "palette file for --png, grayscale when empty"},
			&cli.StringFlag{Name: "palette-layout", Value: "rgb", Usage: "alpha, r, g, b, gray, rgb or argb"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			b, err := bundleArg(cmd)
			if err != nil {
				return err
			}
			decoded, err := b.Sequence.Decode()
			if err != nil {
				return err
			}

			var palette color.Palette
			pngDir := cmd.String("png")
			if pngDir != "" {
				if palette, err = loadPalette(cmd.String("palette"), cmd.String("palette-layout"), b.BPP); err != nil {
					return err
				}
				if err := os.MkdirAll(pngDir, 0o755); err != nil {
					return err
				}
			}

			var out bytes.Buffer
			for i, pix := range decoded {
				buffer, err := pixbuf.Wrap(pix, b.Width, b.Height)
				if err != nil {
					return fmt.Errorf("frame %d: %w", i, err)
				}
				if pngDir != "" {
					if err := writePNG(filepath.Join(pngDir, fmt.Sprintf("frame_%04d.png", i)), buffer, palette); err != nil {
						return fmt.Errorf("frame %d: %w", i, err)
					}
				}
				raw, _, err := pixbuf.FromCanonical(buffer, b.BPP)
				if err != nil {
					return fmt.Errorf("frame %d: %w", i, err)
				}
				out.Write(raw)
			}
			if err := os.WriteFile(cmd.String("output"), out.Bytes(), 0o644); err != nil {
				return err
			}
			slog.Info("decoded", "name", b.Name, "frames", len(decoded), "size", humanize.Bytes(uint64(out.Len())))
			return nil
		},
	}
}

func statCommand() *cli.Command {
	return &cli.Command{
		Name:      "stat",
		Usage:     "print the frame index of a bundle",
		ArgsUsage: "<bundle>",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "index", Usage: "list every frame entry"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			b, err := bundleArg(cmd)
			if err != nil {
				return err
			}
			stats := b.Sequence.Stats()
			w := cmd.Root().Writer
			fmt.Fprintf(w, "name:      %s\n", b.Name)
			fmt.Fprintf(w, "geometry:  %dx%d @ %d bpp\n", b.Width, b.Height, b.BPP)
			fmt.Fprintf(w, "frames:    %d (key %d, shared %d, xor-base %d, xor-chain %d)\n",
				stats.Frames, stats.Keyframes, stats.Shared, stats.XorBase, stats.XorChain)
			fmt.Fprintf(w, "raw:       %s\n", humanize.Bytes(uint64(stats.RawBytes)))
			fmt.Fprintf(w, "stored:    %s\n", humanize.Bytes(uint64(stats.StoredBytes)))
			if stats.RawBytes > 0 {
				fmt.Fprintf(w, "ratio:     %.1f%%\n", 100*float64(stats.StoredBytes)/float64(stats.RawBytes))
			}
			if b.Flags&bundle.FlagZstd != 0 {
				fmt.Fprintln(w, "payload:   zstd")
			}
			if cmd.Bool("index") {
				for i, e := range b.Sequence.Index {
					fmt.Fprintf(w, "%5d  %-9s ref %-5d off %-8d len %d\n", i, e.Tag, e.Ref, e.Offset, e.Length)
				}
			}
			return nil
		},
	}
}

func dumpCommand() *cli.Command {
	return &cli.Command{
		Name:      "dump",
		Usage:     "hex dump the stored block of one frame",
		ArgsUsage: "<bundle>",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "frame", Aliases: []string{"f"}},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			b, err := bundleArg(cmd)
			if err != nil {
				return err
			}
			i := cmd.Int("frame")
			if i < 0 || i >= len(b.Sequence.Index) {
				return fmt.Errorf("%w: frame %d of %d", errUsage, i, len(b.Sequence.Index))
			}
			e := b.Sequence.Index[i]
			fmt.Fprintf(cmd.Root().Writer, "frame %d: %s ref %d, %d bytes\n", i, e.Tag, e.Ref, e.Length)
			return utils.HexDump(cmd.Root().Writer, bytes.NewReader(b.Sequence.Stream), int64(e.Offset), int64(e.Length))
		},
	}
}

func unlcwCommand() *cli.Command {
	return &cli.Command{
		Name:      "unlcw",
		Usage:     "decompress a bare LCW stream",
		ArgsUsage: "<input>",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "size", Required: true, Usage: "unpacked size in bytes"},
			&cli.IntFlag{Name: "offset", Usage: "stream start within the input"},
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Required: true},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			path := cmd.Args().Get(0)
			if path == "" {
				return fmt.Errorf("%w: unlcw needs an input file", errUsage)
			}
			in, err := os.Open(path)
			if err != nil {
				return err
			}
			defer in.Close()
			if _, err := in.Seek(int64(cmd.Int("offset")), io.SeekStart); err != nil {
				return err
			}

			out, err := os.Create(cmd.String("output"))
			if err != nil {
				return err
			}
			defer out.Close()
			n, err := io.Copy(out, lcw.NewDecoder(in, int64(cmd.Int("size"))))
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			slog.Info("unpacked", "file", path, "size", humanize.Bytes(uint64(n)))
			return out.Close()
		},
	}
}

func tilesCommand() *cli.Command {
	return &cli.Command{
		Name:      "tiles",
		Usage:     "cut a raw image into tiles and RLE-Zero encode them as items",
		ArgsUsage: "<image.raw>",
		Flags: append(geometryFlags(),
			&cli.IntFlag{Name: "tile-width", Value: 24},
			&cli.IntFlag{Name: "tile-height", Value: 24},
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "YAML encode profile"},
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "write the item data here"},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			path := cmd.Args().Get(0)
			if path == "" {
				return fmt.Errorf("%w: tiles needs an input file", errUsage)
			}
			profile, err := config.Load(cmd.String("config"))
			if err != nil {
				return err
			}
			opts, err := profile.FrameOptions()
			if err != nil {
				return err
			}

			width, height := cmd.Int("width"), cmd.Int("height")
			src, err := readFrames([]string{path}, width, height, cmd.Int("bpp"), cmd.Int("stride"))
			if err != nil {
				return err
			}
			if len(src) != 1 {
				return fmt.Errorf("%w: %s holds %d images, want 1", errUsage, path, len(src))
			}
			img, err := pixbuf.Wrap(src[0], width, height)
			if err != nil {
				return err
			}

			tw, th := cmd.Int("tile-width"), cmd.Int("tile-height")
			if tw <= 0 || th <= 0 {
				return fmt.Errorf("%w: tile size %dx%d", errUsage, tw, th)
			}
			var tiles []*pixbuf.Buffer
			for y := 0; y < height; y += th {
				for x := 0; x < width; x += tw {
					tile, err := pixbuf.CopyRect(img, image.Rect(x, y, min(x+tw, width), min(y+th, height)))
					if err != nil {
						return err
					}
					tiles = append(tiles, tile)
				}
			}

			set, err := frames.EncodeItems(tiles, opts)
			if err != nil {
				return err
			}
			shared, raw := 0, 0
			for i, it := range set.Items {
				if it.Ref != i {
					shared++
				}
				if it.Raw {
					raw++
				}
			}
			slog.Info("tiles encoded",
				"tiles", len(set.Items),
				"shared", shared,
				"raw", raw,
				"variant", set.Variant,
				"source", humanize.Bytes(uint64(width*height)),
				"stored", humanize.Bytes(uint64(len(set.Data))),
			)

			if out := cmd.String("output"); out != "" {
				return os.WriteFile(out, set.Data, 0o644)
			}
			return nil
		},
	}
}

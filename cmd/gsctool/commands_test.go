package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/urfave/cli/v3"
)

func run(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	cmd := &cli.Command{
		Name:     "gsctool",
		Writer:   &out,
		Commands: []*cli.Command{encodeCommand(), decodeCommand(), statCommand(), dumpCommand(), tilesCommand()},
	}
	if err := cmd.Run(context.Background(), append([]string{"gsctool"}, args...)); err != nil {
		t.Fatalf("gsctool %s: %v", strings.Join(args, " "), err)
	}
	return out.String()
}

func TestEncodeDecode(t *testing.T) {
	dir := t.TempDir()
	// Eight 4bpp frames of 10x6, packed rows of 5 bytes.
	var raw []byte
	for i := 0; i < 8; i++ {
		frame := make([]byte, 5*6)
		for j := range frame {
			frame[j] = byte(j*17) ^ byte(i%3)
		}
		raw = append(raw, frame...)
	}
	in := filepath.Join(dir, "in.raw")
	if err := os.WriteFile(in, raw, 0o644); err != nil {
		t.Fatal(err)
	}

	bundlePath := filepath.Join(dir, "anim.gsfb")
	run(t, "encode", "--width", "10", "--height", "6", "--bpp", "4", "--zstd", "--name", "walk", "-o", bundlePath, in)

	out := filepath.Join(dir, "out.raw")
	pngDir := filepath.Join(dir, "png")
	run(t, "decode", "-o", out, "--png", pngDir, bundlePath)
	if _, err := os.Stat(filepath.Join(pngDir, "frame_0007.png")); err != nil {
		t.Errorf("png export: %v", err)
	}
	got, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, raw) {
		t.Fatalf("decoded frames differ from input")
	}

	stat := run(t, "stat", "--index", bundlePath)
	for _, want := range []string{"name:      walk", "10x6 @ 4 bpp", "frames:    8", "payload:   zstd"} {
		if !strings.Contains(stat, want) {
			t.Errorf("stat output lacks %q:\n%s", want, stat)
		}
	}

	dump := run(t, "dump", "--frame", "0", bundlePath)
	if !strings.HasPrefix(dump, "frame 0: key") {
		t.Errorf("dump output = %q", dump)
	}
}

func TestReadFramesRejectsPartialFrame(t *testing.T) {
	path := filepath.Join(t.TempDir(), "short.raw")
	if err := os.WriteFile(path, make([]byte, 7), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := readFrames([]string{path}, 2, 2, 8, 0); err == nil {
		t.Fatal("partial frame accepted")
	}
}

func TestTiles(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "sheet.raw")
	img := make([]byte, 8*4)
	for i := range img {
		if i%8 >= 4 {
			img[i] = 3
		}
	}
	if err := os.WriteFile(in, img, 0o644); err != nil {
		t.Fatal(err)
	}
	out := filepath.Join(dir, "tiles.bin")
	run(t, "tiles", "--width", "8", "--height", "4", "--tile-width", "4", "--tile-height", "2", "-o", out, in)
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if len(data) == 0 {
		t.Fatal("no item data written")
	}
}

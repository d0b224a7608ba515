package utils

import (
	"bytes"
	"strings"
	"testing"

	"golang.org/x/text/encoding/charmap"
)

func TestCStringRoundTrip(t *testing.T) {
	field, err := EncodeCString("Пехота", 16, charmap.CodePage866)
	if err != nil {
		t.Fatalf("EncodeCString: %v", err)
	}
	if len(field) != 16 || field[15] != 0 {
		t.Fatalf("field = % x", field)
	}
	if got := field.Decode(charmap.CodePage866); got != "Пехота" {
		t.Fatalf("Decode = %q", got)
	}
	if _, err := EncodeCString("0123456789abcdef", 16, charmap.CodePage866); err == nil {
		t.Fatal("oversized name accepted")
	}
}

func TestUint16LE(t *testing.T) {
	data := AppendUint16LE([]byte{9}, 0xBEEF)
	pos := 1
	v, ok := Uint16LE(data, &pos)
	if !ok || v != 0xBEEF || pos != 3 {
		t.Fatalf("Uint16LE = %x, %v, pos %d", v, ok, pos)
	}
	if _, ok := Uint16LE(data, &pos); ok {
		t.Fatal("read past end")
	}
}

func TestReadHelpers(t *testing.T) {
	r := strings.NewReader("\x07\x34\x12")
	b, err := ReadByte(r)
	if err != nil || b != 7 {
		t.Fatalf("ReadByte = %d, %v", b, err)
	}
	w, err := ReadUint16LE(r)
	if err != nil || w != 0x1234 {
		t.Fatalf("ReadUint16LE = %x, %v", w, err)
	}
	if _, err := ReadByte(r); err == nil {
		t.Fatal("ReadByte at EOF succeeded")
	}
}

func TestHexDump(t *testing.T) {
	var out bytes.Buffer
	data := []byte("LCW\x80\x00block")
	if err := HexDump(&out, bytes.NewReader(data), 0, int64(len(data))); err != nil {
		t.Fatalf("HexDump: %v", err)
	}
	want := "00000000  4c 43 57 80 00 62 6c 6f 63 6b " + strings.Repeat(" ", 18) + " |LCW..block|\n"
	if out.String() != want {
		t.Fatalf("HexDump =\n%q\nwant\n%q", out.String(), want)
	}
}

package utils

import (
	"encoding/hex"
	"fmt"
	"io"
	"unicode"
)

func HexDump(w io.Writer, r io.ReaderAt, offset, length int64) error {
	buf := make([]byte, length)
	if _, err := r.ReadAt(buf, offset); err != nil {
		return err
	}

	for i := 0; i < len(buf); i += 16 {
		end := i + 16
		if end > len(buf) {
			end = len(buf)
		}
		chunk := buf[i:end]

		fmt.Fprintf(w, "%08x  ", offset+int64(i))
		// hex
		hexStr := hex.EncodeToString(chunk)
		for j := 0; j < len(hexStr); j += 2 {
			fmt.Fprintf(w, "%s ", hexStr[j:j+2])
		}
		// padding if not full 16
		for j := len(chunk); j < 16; j++ {
			fmt.Fprint(w, "   ")
		}

		// ascii
		fmt.Fprint(w, " |")
		for _, b := range chunk {
			if b < 0x80 && unicode.IsPrint(rune(b)) {
				fmt.Fprintf(w, "%c", b)
			} else {
				fmt.Fprint(w, ".")
			}
		}
		fmt.Fprintln(w, "|")
	}

	return nil
}

package utils

import (
	"bytes"
	"fmt"

	"golang.org/x/text/encoding/charmap"
)

type CString []byte

func (c CString) NullTerminateBytes() []byte {
	i := bytes.IndexByte(c, 0)
	if i == -1 {
		return c
	} else if i == 0 {
		return nil
	} else {
		return c[:i]
	}
}

func (c CString) String() string { return string(c.NullTerminateBytes()) }

func (c CString) Decode(encoding *charmap.Charmap) string {
	buf, err := encoding.NewDecoder().Bytes(c.NullTerminateBytes())
	if err != nil {
		return c.String()
	}
	return string(buf)
}

// EncodeCString encodes s into a zero padded field of size bytes. The last
// byte always stays zero.
func EncodeCString(s string, size int, encoding *charmap.Charmap) (CString, error) {
	buf, err := encoding.NewEncoder().Bytes([]byte(s))
	if err != nil {
		return nil, fmt.Errorf("encode %q: %w", s, err)
	}
	if len(buf) >= size {
		return nil, fmt.Errorf("name %q needs %d bytes, field holds %d", s, len(buf)+1, size)
	}
	field := make(CString, size)
	copy(field, buf)
	return field, nil
}

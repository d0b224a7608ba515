package utils

import (
	"encoding/binary"
	"io"
)

func ReadByte(reader io.Reader) (byte, error) {
	if br, ok := reader.(io.ByteReader); ok {
		return br.ReadByte()
	}
	var buf [1]byte
	if _, err := io.ReadFull(reader, buf[:]); err != nil {
		return 0, err
	}
	return buf[0], nil
}

func ReadUint16LE(reader io.Reader) (uint16, error) {
	var buf [2]byte
	if _, err := io.ReadFull(reader, buf[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(buf[:]), nil
}

// Uint16LE reads a little-endian word at data[*pos] and advances pos.
// ok is false when fewer than two bytes remain.
func Uint16LE(data []byte, pos *int) (uint16, bool) {
	if *pos < 0 || len(data)-*pos < 2 {
		return 0, false
	}
	v := binary.LittleEndian.Uint16(data[*pos:])
	*pos += 2
	return v, true
}

func AppendUint16LE(dst []byte, v uint16) []byte {
	return binary.LittleEndian.AppendUint16(dst, v)
}

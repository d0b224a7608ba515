package gsc

import "errors"

// Error kinds shared by every codec package. Packages wrap them with context,
// match with errors.Is.
var (
	ErrCorruptData       = errors.New("corrupt data")
	ErrDimensionMismatch = errors.New("dimension mismatch")
	ErrValueOutOfRange   = errors.New("value out of range")
	ErrBadReference      = errors.New("bad frame reference")
)

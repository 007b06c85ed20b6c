package gpcc

import "github.com/pkg/errors"

var (
	ErrInvalidConfig        = errors.New("gpcc: invalid configuration")
	ErrUnsupportedAttribute = errors.New("gpcc: unsupported attribute")
	ErrUnsupportedTransform = errors.New("gpcc: unsupported attribute transform")
	ErrPointCountMismatch   = errors.New("gpcc: point count mismatch")
	ErrEmptySlice           = errors.New("gpcc: empty slice")
)

package engine

import "errors"

var (
	// ErrBadMagic means the file is not an index file.
	ErrBadMagic = errors.New("not a typeahead index file")
	// ErrVersion means the file was written by an incompatible format version.
	ErrVersion = errors.New("unsupported index file version")
	// ErrChecksum means the file content does not match its checksum.
	ErrChecksum = errors.New("index file checksum mismatch")
)

package forward

import "errors"

var (
	// ErrInvalidCompletionID is returned for ids at or beyond NumDocs.
	ErrInvalidCompletionID = errors.New("invalid completion id")
	// ErrPermutationMismatch means a record's permutation and sorted list disagree in length.
	ErrPermutationMismatch = errors.New("permutation length does not match sorted list")
	// ErrCorrupt means the offsets or record headers are inconsistent.
	ErrCorrupt = errors.New("corrupt forward index")
	// ErrInvalidLength is returned when a completion has no terms or too many.
	ErrInvalidLength = errors.New("invalid number of terms")
)

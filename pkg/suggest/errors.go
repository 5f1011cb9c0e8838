package suggest

import "errors"

var (
	// ErrEmptyQuery is returned when the query holds no terms.
	ErrEmptyQuery = errors.New("empty query")
	// ErrTooManyTerms is returned when the query holds MaxNumTermsPerQuery terms or more.
	ErrTooManyTerms = errors.New("too many query terms")
)

package suggest

import (
	"fmt"
	"strings"

	"github.com/bastiangx/typeahead/internal/utils"
	"github.com/bastiangx/typeahead/pkg/forward"
)

// MaxNumTermsPerQuery bounds the number of terms in a query.
const MaxNumTermsPerQuery = forward.MaxNumTermsPerQuery

// Mode selects how query terms must appear in a completion.
type Mode uint8

const (
	// Conjunctive requires every term anywhere in the completion.
	Conjunctive Mode = iota
	// Prefix requires the completion to start with the terms.
	Prefix
)

func (m Mode) String() string {
	switch m {
	case Conjunctive:
		return "conjunctive"
	case Prefix:
		return "prefix"
	default:
		return fmt.Sprintf("mode(%d)", uint8(m))
	}
}

// ParseMode accepts "conjunctive" and "prefix".
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "conjunctive", "and":
		return Conjunctive, nil
	case "prefix":
		return Prefix, nil
	}
	return 0, fmt.Errorf("unknown search mode %q", s)
}

// Request is a single top-k query.
type Request struct {
	Query string
	K     int
	Mode  Mode
}

// parse splits a raw query into complete terms and the trailing suffix.
func parse(raw, sep string) (complete []string, suffix string, err error) {
	terms := utils.Tokenize(raw, sep)
	switch {
	case len(terms) == 0:
		return nil, "", ErrEmptyQuery
	case len(terms) >= MaxNumTermsPerQuery:
		return nil, "", fmt.Errorf("%w: %d terms, limit %d", ErrTooManyTerms, len(terms), MaxNumTermsPerQuery-1)
	}
	return terms[:len(terms)-1], terms[len(terms)-1], nil
}

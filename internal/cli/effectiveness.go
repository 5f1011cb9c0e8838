package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/bastiangx/typeahead/internal/utils"
	"github.com/bastiangx/typeahead/pkg/suggest"
	"github.com/charmbracelet/log"
)

// Report compares prefix search with conjunctive search over a query log.
type Report struct {
	NumQueries int
	// Failed counts queries rejected by either search, such as queries
	// with a complete term missing from the dictionary.
	Failed int
	// PrefixStrings is the number of completions prefix search returned.
	PrefixStrings uint64
	// ExtraStrings is how many more completions conjunctive search
	// returned, summed over queries where it returned at least as many.
	ExtraStrings uint64
}

// Percentage is ExtraStrings relative to PrefixStrings.
func (r Report) Percentage() float64 {
	if r.PrefixStrings == 0 {
		return 0
	}
	return float64(r.ExtraStrings) * 100 / float64(r.PrefixStrings)
}

// Log prints the report.
func (r Report) Log(l *log.Logger) {
	l.Info("effectiveness",
		"queries", utils.FormatWithCommas(int64(r.NumQueries)),
		"failed", r.Failed,
		"prefix_strings", utils.FormatWithCommas(int64(r.PrefixStrings)),
		"extra_conjunctive_strings", utils.FormatWithCommas(int64(r.ExtraStrings)),
		"extra_percentage", fmt.Sprintf("%.2f%%", r.Percentage()))
}

// LoadQueries reads up to limit queries, one per line, from r. When keep is
// in (0, 1) only that fraction of the last term's bytes is kept, at least
// one. limit <= 0 reads every line.
func LoadQueries(r io.Reader, limit int, keep float64, sep string) ([]string, error) {
	var queries []string
	sc := bufio.NewScanner(r)
	for sc.Scan() && (limit <= 0 || len(queries) < limit) {
		terms := utils.Tokenize(sc.Text(), sep)
		if len(terms) == 0 {
			continue
		}
		if keep > 0 && keep < 1 {
			last := terms[len(terms)-1]
			n := max(1, int(math.Ceil(keep*float64(len(last)))))
			terms[len(terms)-1] = last[:n]
		}
		join := sep
		if join == "" {
			join = " "
		}
		queries = append(queries, strings.Join(terms, join))
	}
	return queries, sc.Err()
}

// Effectiveness runs every query in both modes with k results each, using
// up to workers goroutines. With a non-nil verbose logger the scores of
// each query are printed.
func Effectiveness(ctx context.Context, s *suggest.Searcher, queries []string, k, workers int, verbose *log.Logger) (Report, error) {
	reqs := make([]suggest.Request, 0, 2*len(queries))
	for _, q := range queries {
		reqs = append(reqs,
			suggest.Request{Query: q, K: k, Mode: suggest.Prefix},
			suggest.Request{Query: q, K: k, Mode: suggest.Conjunctive})
	}
	results, err := s.SearchBatch(ctx, reqs, workers)
	if err != nil {
		return Report{}, err
	}

	rep := Report{NumQueries: len(queries)}
	for i, q := range queries {
		prefix, conj := results[2*i], results[2*i+1]
		if prefix.Err != nil || conj.Err != nil {
			rep.Failed++
			continue
		}
		np, nc := prefix.Results.Len(), conj.Results.Len()
		rep.PrefixStrings += uint64(np)
		var more int
		if nc >= np {
			more = nc - np
		}
		rep.ExtraStrings += uint64(more)

		if verbose != nil {
			verbose.Info(q,
				"prefix_scores", prefix.Results.Scores(),
				"conjunctive_scores", conj.Results.Scores(),
				"more", more)
		}
	}
	return rep, nil
}

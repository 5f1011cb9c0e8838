// Package collection reads a raw completion collection and derives the
// plain-text inputs of the index builders.
//
// A collection named basename is a text file with one completion per line,
// "<score> <text>", sorted by text. Prepare writes three companions:
//
//	basename.dict     one term per line, sorted and unique
//	basename.forward  "n id_1 ... id_n" per completion, ids into .dict (1-based)
//	basename.stats    "num_terms num_completions"
package collection

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/bastiangx/typeahead/internal/utils"
	"github.com/bastiangx/typeahead/pkg/completion"
	"github.com/bastiangx/typeahead/pkg/dictionary"
	"github.com/bastiangx/typeahead/pkg/forward"
	"github.com/charmbracelet/log"
)

const (
	DictSuffix    = ".dict"
	ForwardSuffix = ".forward"
	StatsSuffix   = ".stats"
)

// Entry is one line of a collection.
type Entry struct {
	Score uint32
	Text  string
}

// Stats describes a prepared collection.
type Stats struct {
	NumTerms       uint64
	NumCompletions int
}

// ReadEntries parses "<score> <text>" lines. Blank lines are skipped.
func ReadEntries(r io.Reader) ([]Entry, error) {
	var entries []Entry
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	line := 0
	for sc.Scan() {
		line++
		raw := strings.TrimSpace(sc.Text())
		if raw == "" {
			continue
		}
		scoreText, text, ok := strings.Cut(raw, " ")
		if !ok {
			return nil, fmt.Errorf("line %d: missing text", line)
		}
		score, err := strconv.ParseUint(scoreText, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("line %d: score: %w", line, err)
		}
		entries = append(entries, Entry{Score: uint32(score), Text: strings.TrimSpace(text)})
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

// Prepare derives the .dict, .forward and .stats files of basename.
func Prepare(basename, sep string) (Stats, error) {
	f, err := os.Open(basename)
	if err != nil {
		return Stats{}, err
	}
	defer f.Close()

	entries, err := ReadEntries(f)
	if err != nil {
		return Stats{}, fmt.Errorf("read %s: %w", basename, err)
	}
	log.Infof("Loaded %s completions from %s", utils.FormatWithCommas(int64(len(entries))), basename)

	docs := make([][]string, len(entries))
	vocab := make(map[string]struct{})
	for i, e := range entries {
		tokens := utils.Tokenize(e.Text, sep)
		if len(tokens) == 0 || len(tokens) >= forward.MaxNumTermsPerQuery {
			return Stats{}, fmt.Errorf("completion %d %q: %w: %d terms", i, e.Text, forward.ErrInvalidLength, len(tokens))
		}
		if i > 0 && slices.Compare(docs[i-1], tokens) > 0 {
			return Stats{}, fmt.Errorf("completion %d %q: %w", i, e.Text, completion.ErrNotSorted)
		}
		docs[i] = tokens
		for _, t := range tokens {
			vocab[t] = struct{}{}
		}
	}

	terms := make([]string, 0, len(vocab))
	for t := range vocab {
		terms = append(terms, t)
	}
	slices.Sort(terms)
	dict, err := dictionary.New(terms)
	if err != nil {
		return Stats{}, err
	}

	err = writeLines(basename+DictSuffix, func(w *bufio.Writer) error {
		for _, t := range terms {
			w.WriteString(t)
			w.WriteByte('\n')
		}
		return nil
	})
	if err != nil {
		return Stats{}, err
	}

	err = writeLines(basename+ForwardSuffix, func(w *bufio.Writer) error {
		for _, doc := range docs {
			w.WriteString(strconv.Itoa(len(doc)))
			for _, t := range doc {
				id, err := dict.Locate(t)
				if err != nil {
					return err
				}
				w.WriteByte(' ')
				w.WriteString(strconv.FormatUint(uint64(id), 10))
			}
			w.WriteByte('\n')
		}
		return nil
	})
	if err != nil {
		return Stats{}, err
	}

	stats := Stats{NumTerms: uint64(len(terms)), NumCompletions: len(docs)}
	err = writeLines(basename+StatsSuffix, func(w *bufio.Writer) error {
		_, err := fmt.Fprintf(w, "%d %d\n", stats.NumTerms, stats.NumCompletions)
		return err
	})
	if err != nil {
		return Stats{}, err
	}
	log.Infof("Prepared %s: %s terms, %s completions", basename,
		utils.FormatWithCommas(int64(stats.NumTerms)), utils.FormatWithCommas(int64(stats.NumCompletions)))
	return stats, nil
}

func writeLines(path string, fill func(w *bufio.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(f)
	if err := fill(w); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

// LoadStats reads basename.stats.
func LoadStats(basename string) (Stats, error) {
	data, err := os.ReadFile(basename + StatsSuffix)
	if err != nil {
		return Stats{}, err
	}
	var s Stats
	if _, err := fmt.Sscan(string(data), &s.NumTerms, &s.NumCompletions); err != nil {
		return Stats{}, fmt.Errorf("parse %s%s: %w", basename, StatsSuffix, err)
	}
	return s, nil
}

// ReadScores returns the score column of basename in completion-id order.
func ReadScores(basename string) (completion.Scores, error) {
	f, err := os.Open(basename)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	entries, err := ReadEntries(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", basename, err)
	}
	scores := make(completion.Scores, len(entries))
	for i, e := range entries {
		scores[i] = e.Score
	}
	return scores, nil
}

// ReadDictionary loads basename.dict.
func ReadDictionary(basename string) (*dictionary.Dictionary, error) {
	f, err := os.Open(basename + DictSuffix)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return dictionary.ReadFrom(f)
}

// OpenForward opens basename.forward for forward.Builder.ReadFrom.
func OpenForward(basename string) (*os.File, error) {
	return os.Open(basename + ForwardSuffix)
}

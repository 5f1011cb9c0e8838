// Package cli handles cmd line input and suggestions for DBG and testing various features
package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/bastiangx/typeahead/internal/utils"
	"github.com/bastiangx/typeahead/pkg/suggest"
	"github.com/charmbracelet/log"
)

// InputHandler reads queries line by line and prints the top completions.
// Lines starting with ':' change settings:
//
//	:mode prefix|conjunctive
//	:k 20
//	:ids
type InputHandler struct {
	searcher  *suggest.Searcher
	extractor suggest.Extractor
	mode      suggest.Mode
	limit     int
	showIDs   bool
	in        io.Reader
	logger    *log.Logger
}

// NewInputHandler handles initialization of the InputHandler with basic parameters
func NewInputHandler(s *suggest.Searcher, x suggest.Extractor, mode suggest.Mode, limit int, showIDs bool, in io.Reader, l *log.Logger) *InputHandler {
	return &InputHandler{
		searcher:  s,
		extractor: x,
		mode:      mode,
		limit:     limit,
		showIDs:   showIDs,
		in:        in,
		logger:    l,
	}
}

// Start runs the loop until the input ends.
func (h *InputHandler) Start(ctx context.Context) error {
	h.logger.Print("typeahead CLI")
	h.logger.Printf("mode: %s, k: %d. type a query and press Enter (Ctrl+C to exit):", h.mode, h.limit)
	reader := bufio.NewReader(h.in)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		line, err := reader.ReadString('\n')
		if line = strings.TrimSpace(line); line != "" {
			if strings.HasPrefix(line, ":") {
				h.handleCommand(line[1:])
			} else {
				h.handleInput(ctx, line)
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
	}
}

func (h *InputHandler) handleCommand(cmd string) {
	fields := strings.Fields(cmd)
	if len(fields) == 0 {
		return
	}
	switch fields[0] {
	case "mode":
		if len(fields) != 2 {
			h.logger.Error("usage: :mode prefix|conjunctive")
			return
		}
		m, err := suggest.ParseMode(fields[1])
		if err != nil {
			h.logger.Error(err)
			return
		}
		h.mode = m
		h.logger.Printf("mode: %s", h.mode)
	case "k":
		if len(fields) != 2 {
			h.logger.Error("usage: :k <n>")
			return
		}
		k, err := strconv.Atoi(fields[1])
		if err != nil || k < 1 {
			h.logger.Errorf("invalid k: %s", fields[1])
			return
		}
		h.limit = k
		h.logger.Printf("k: %d", h.limit)
	case "ids":
		h.showIDs = !h.showIDs
		h.logger.Printf("show ids: %t", h.showIDs)
	default:
		h.logger.Errorf("unknown command: %s", fields[0])
	}
}

// handleInput runs one query and prints the ranked completions.
func (h *InputHandler) handleInput(ctx context.Context, query string) {
	res, err := h.searcher.Search(ctx, suggest.Request{Query: query, K: h.limit, Mode: h.mode})
	if err != nil {
		h.logger.Errorf("Query '%s': %v", query, err)
		return
	}
	h.logger.Debugf("Took [ %v ] for query '%s'", res.Timings.Total(), query)

	if res.Len() == 0 {
		h.logger.Warnf("No completions found for query: '%s'", query)
		return
	}
	texts, err := res.Texts(h.extractor, h.searcher.Separator())
	if err != nil {
		h.logger.Errorf("Rendering '%s': %v", query, err)
		return
	}

	h.logger.Printf("Found %d completions for '%s':", len(texts), query)
	scores := res.Scores()
	ids := res.IDs()
	for i, text := range texts {
		score := utils.FormatWithCommas(int64(scores[i]))
		colored := fmt.Sprintf("\033[38;5;75m%s\033[0m", text)
		if h.showIDs {
			h.logger.Printf("%2d. %-40s (score: %8s, id: %d)", i+1, colored, score, ids[i])
			continue
		}
		h.logger.Printf("%2d. %-40s (score: %8s)", i+1, colored, score)
	}
}

package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/bastiangx/typeahead/internal/logger"
	"github.com/bastiangx/typeahead/internal/metrics"
	"github.com/bastiangx/typeahead/pkg/config"
	"github.com/bastiangx/typeahead/pkg/dictionary"
	"github.com/bastiangx/typeahead/pkg/engine"
	"github.com/bastiangx/typeahead/pkg/suggest"
	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"
)

// Option configures a Server.
type Option func(*Server)

// WithIO replaces stdin and stdout.
func WithIO(in io.Reader, out io.Writer) Option {
	return func(s *Server) {
		s.in, s.out = in, out
	}
}

// WithWire selects the message encoding, msgpack by default.
func WithWire(w Wire) Option {
	return func(s *Server) { s.wire = w }
}

// WithMetrics records requests and query stages in m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// Server handles the IPC for completions. Requests are served one at a
// time in arrival order.
type Server struct {
	engine   *engine.Engine
	searcher *suggest.Searcher
	cfg      *config.Config
	limiter  *rate.Limiter
	metrics  *metrics.Metrics
	logger   *log.Logger
	in       io.Reader
	out      io.Writer
	wire     Wire
	served   uint64
}

// NewServer creates a completion server using stdin/stdout for IPC.
func NewServer(eng *engine.Engine, cfg *config.Config, opts ...Option) *Server {
	s := &Server{
		engine: eng,
		cfg:    cfg,
		in:     os.Stdin,
		out:    os.Stdout,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.New("server")
	}

	searchOpts := []suggest.Option{suggest.WithLogger(s.logger)}
	if s.metrics != nil {
		searchOpts = append(searchOpts, suggest.WithObserver(s.metrics.Observe))
		s.metrics.SetIndexSize(eng.Stats().Components())
	}
	s.searcher = eng.Searcher(searchOpts...)

	limit, burst := rate.Inf, 0
	if cfg.Server.RateLimit > 0 {
		limit, burst = rate.Limit(cfg.Server.RateLimit), max(cfg.Server.Burst, 1)
	}
	s.limiter = rate.NewLimiter(limit, burst)
	return s
}

// Start serves requests until the input ends or ctx is canceled. ctx is
// checked between requests.
func (s *Server) Start(ctx context.Context) error {
	s.logger.Debug("Starting server", "wire", s.wire)
	f := newFramer(s.wire, s.in, s.out)

	if err := f.write(StatusResponse{Status: "ready"}); err != nil {
		return fmt.Errorf("write ready: %w", err)
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		raw, err := f.next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				s.logger.Debug("Input closed", "served", s.served)
				return nil
			}
			s.logger.Errorf("Reading request: %v", err)
			return fmt.Errorf("read request: %w", err)
		}
		resp := s.handleRequest(ctx, f, raw)
		if err := f.write(resp); err != nil {
			s.logger.Errorf("Writing response: %v", err)
			return fmt.Errorf("write response: %w", err)
		}
	}
}

// handleRequest decodes and answers one message.
func (s *Server) handleRequest(ctx context.Context, f framer, raw []byte) any {
	var req Request
	if err := f.unmarshal(raw, &req); err != nil {
		s.logger.Debugf("Unmarshaling request: %v", err)
		return s.fail("invalid", "", "invalid request", CodeBadRequest)
	}

	if !s.limiter.Allow() {
		if s.metrics != nil {
			s.metrics.RateLimited.Inc()
		}
		return s.fail(req.action(), req.ID, "rate limit exceeded", CodeRateLimited)
	}

	switch req.action() {
	case ActionComplete:
		return s.handleComplete(ctx, req)
	case ActionHealth:
		s.count(ActionHealth, "ok")
		return StatusResponse{ID: req.ID, Status: "ok"}
	case ActionStats:
		s.count(ActionStats, "ok")
		return s.stats(req.ID)
	default:
		return s.fail("unknown", req.ID, fmt.Sprintf("unknown action: %s", req.Action), CodeBadRequest)
	}
}

func (r Request) action() string {
	if r.Action == "" {
		return ActionComplete
	}
	return r.Action
}

// handleComplete validates a completion request, runs the query and
// renders the completions.
func (s *Server) handleComplete(ctx context.Context, req Request) any {
	if maxLen := s.cfg.Server.MaxQueryLen; maxLen > 0 && len(req.Query) > maxLen {
		return s.fail(ActionComplete, req.ID,
			fmt.Sprintf("query exceeds maximum length of %d bytes", maxLen), CodeBadRequest)
	}

	mode := s.cfg.Mode()
	if req.Mode != "" {
		m, err := suggest.ParseMode(req.Mode)
		if err != nil {
			return s.fail(ActionComplete, req.ID, err.Error(), CodeBadRequest)
		}
		mode = m
	}

	k := req.K
	switch {
	case k < 0:
		return s.fail(ActionComplete, req.ID, "k must not be negative", CodeBadRequest)
	case k == 0:
		k = s.cfg.Query.DefaultK
	case k > s.cfg.Query.MaxK:
		k = s.cfg.Query.MaxK
	}
	k = min(k, config.MaxK)

	start := time.Now()
	res, err := s.searcher.Search(ctx, suggest.Request{Query: req.Query, K: k, Mode: mode})
	if err != nil {
		return s.fail(ActionComplete, req.ID, err.Error(), errorCode(err))
	}
	texts, err := res.Texts(s.engine.Dictionary(), s.engine.Separator())
	if err != nil {
		s.logger.Errorf("Rendering completions for %q: %v", req.Query, err)
		return s.fail(ActionComplete, req.ID, "internal error", CodeInternal)
	}

	suggestions := make([]CompletionSuggestion, len(texts))
	scores := res.Scores()
	for i, text := range texts {
		suggestions[i] = CompletionSuggestion{Text: text, Score: scores[i], Rank: uint16(i + 1)}
	}
	resp := CompletionResponse{
		ID:          req.ID,
		Suggestions: suggestions,
		Count:       len(suggestions),
	}
	if req.Extra {
		i := 0
		for c, err := range res.All() {
			if err != nil {
				return s.fail(ActionComplete, req.ID, "internal error", CodeInternal)
			}
			suggestions[i].ID = &c.ID
			suggestions[i].Terms = c.Terms
			i++
		}
		resp.Stages = &StageTimings{
			Parse:      res.Timings.Parse.Microseconds(),
			Dictionary: res.Timings.Dictionary.Microseconds(),
			Search:     res.Timings.Search.Microseconds(),
			Reporting:  res.Timings.Reporting.Microseconds(),
		}
	}
	resp.TimeTaken = time.Since(start).Microseconds()

	s.served++
	s.count(ActionComplete, "ok")
	return resp
}

func (s *Server) stats(id string) StatsResponse {
	st := s.engine.Stats()
	return StatsResponse{
		ID:             id,
		Status:         "ok",
		NumTerms:       st.NumTerms,
		NumCompletions: st.NumCompletions,
		SortedCodec:    st.SortedCodec.String(),
		Pointers:       st.Pointers.String(),
		Bytes:          st.Components(),
		Served:         s.served,
	}
}

// fail builds an error response and counts it.
func (s *Server) fail(kind, id, message string, code int) CompletionError {
	s.count(kind, strconv.Itoa(code))
	return CompletionError{ID: id, Error: message, Code: code}
}

func (s *Server) count(kind, status string) {
	if s.metrics != nil {
		s.metrics.RequestsTotal.WithLabelValues(kind, status).Inc()
	}
}

// errorCode maps query errors to protocol codes.
func errorCode(err error) int {
	switch {
	case errors.Is(err, suggest.ErrEmptyQuery), errors.Is(err, suggest.ErrTooManyTerms):
		return CodeBadRequest
	case errors.Is(err, dictionary.ErrUnknownTerm):
		return CodeUnknownTerm
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return CodeUnavailable
	default:
		return CodeInternal
	}
}

// ServeMetrics exposes h on addr until ctx is canceled.
func ServeMetrics(ctx context.Context, addr string, h http.Handler) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", h)
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

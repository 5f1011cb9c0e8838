/*
Package server implements msgpack IPC for typeahead.

Clients write requests to stdin and read responses from stdout. Each
message is a single msgpack map, or with the JSON wire a single line of
JSON. Requests are answered in order, one response per request, with the
id of the request echoed back.

A completion request carries the raw query, an optional k and an optional
mode ("conjunctive" or "prefix"):

	{"id": "req_001", "q": "new yo", "k": 5}

The response lists completions best first. "s" is the static score and
"r" the 1-based rank. "t" is the time spent in microseconds:

	{"id": "req_001", "s": [{"w": "new york", "s": 90, "r": 1}, {"w": "new york city", "s": 10, "r": 2}], "c": 2, "t": 38}

Setting "x" also returns the term ids of every completion and the stage
timings of the query.

Other actions:

	{"id": "h1", "a": "health"}
	{"id": "s1", "a": "stats"}

Failures are reported as {"id": ..., "e": message, "c": code} where code
is 400 for malformed requests, 404 for a complete term missing from the
dictionary, 429 when rate limited and 500 otherwise.

On start the server writes {"status": "ready"}.
*/
package server

// Actions accepted in Request.Action. An empty action means ActionComplete.
const (
	ActionComplete = "complete"
	ActionHealth   = "health"
	ActionStats    = "stats"
)

// Error codes.
const (
	CodeBadRequest  = 400
	CodeUnknownTerm = 404
	CodeRateLimited = 429
	CodeInternal    = 500
	CodeUnavailable = 503
)

// Request is any client message.
type Request struct {
	ID     string `msgpack:"id" json:"id"`
	Action string `msgpack:"a,omitempty" json:"a,omitempty"`
	Query  string `msgpack:"q,omitempty" json:"q,omitempty"`
	K      int    `msgpack:"k,omitempty" json:"k,omitempty"`
	Mode   string `msgpack:"m,omitempty" json:"m,omitempty"`
	Extra  bool   `msgpack:"x,omitempty" json:"x,omitempty"`
}

// CompletionSuggestion is one ranked completion.
type CompletionSuggestion struct {
	Text  string   `msgpack:"w" json:"w"`
	Score uint32   `msgpack:"s" json:"s"`
	Rank  uint16   `msgpack:"r" json:"r"`
	ID    *int     `msgpack:"id,omitempty" json:"id,omitempty"`
	Terms []uint32 `msgpack:"ids,omitempty" json:"ids,omitempty"`
}

// StageTimings is the per-stage breakdown in microseconds.
type StageTimings struct {
	Parse      int64 `msgpack:"parse" json:"parse"`
	Dictionary int64 `msgpack:"dict" json:"dict"`
	Search     int64 `msgpack:"search" json:"search"`
	Reporting  int64 `msgpack:"report" json:"report"`
}

// CompletionResponse answers a completion request.
type CompletionResponse struct {
	ID          string                 `msgpack:"id" json:"id"`
	Suggestions []CompletionSuggestion `msgpack:"s" json:"s"`
	Count       int                    `msgpack:"c" json:"c"`
	TimeTaken   int64                  `msgpack:"t" json:"t"`
	Stages      *StageTimings          `msgpack:"st,omitempty" json:"st,omitempty"`
}

// StatusResponse answers health requests and announces readiness.
type StatusResponse struct {
	ID     string `msgpack:"id,omitempty" json:"id,omitempty"`
	Status string `msgpack:"status" json:"status"`
}

// StatsResponse describes the loaded index.
type StatsResponse struct {
	ID             string         `msgpack:"id" json:"id"`
	Status         string         `msgpack:"status" json:"status"`
	NumTerms       uint64         `msgpack:"terms" json:"terms"`
	NumCompletions int            `msgpack:"completions" json:"completions"`
	SortedCodec    string         `msgpack:"codec" json:"codec"`
	Pointers       string         `msgpack:"pointers" json:"pointers"`
	Bytes          map[string]int `msgpack:"bytes" json:"bytes"`
	Served         uint64         `msgpack:"served" json:"served"`
}

// CompletionError reports a failed request.
type CompletionError struct {
	ID    string `msgpack:"id" json:"id"`
	Error string `msgpack:"e" json:"e"`
	Code  int    `msgpack:"c" json:"c"`
}

package completion

// Scores holds the static relevance of every completion, higher is better.
type Scores []uint32

// Score returns the score of completion id, zero when unknown.
func (s Scores) Score(id int) uint32 {
	if id < 0 || id >= len(s) {
		return 0
	}
	return s[id]
}

// Bytes returns the memory held by the scores.
func (s Scores) Bytes() int { return 4 * len(s) }

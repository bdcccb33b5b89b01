package hashing

import (
	"context"

	"github.com/viant/crystalize/embedding"
)

var negativeWords = wordSet(
	"error", "errors", "fail", "failed", "failure", "fatal", "panic", "exception",
	"timeout", "timed", "refused", "denied", "unauthorized", "forbidden", "invalid",
	"crash", "crashed", "corrupt", "corrupted", "lost", "unavailable", "unreachable",
	"critical", "abort", "aborted", "broken", "bad", "missing", "rejected", "warning",
	"warn", "slow", "leak", "overflow", "killed", "oom", "down", "degraded",
)

var positiveWords = wordSet(
	"ok", "success", "successful", "successfully", "succeeded", "completed", "complete",
	"done", "ready", "started", "healthy", "connected", "accepted", "passed", "good",
	"resolved", "recovered", "up", "available", "saved", "created", "finished", "valid",
)

func wordSet(words ...string) map[string]bool {
	out := make(map[string]bool, len(words))
	for _, w := range words {
		out[w] = true
	}
	return out
}

// Classifier counts lexicon hits. Texts without hits are positive with a
// score of 0.5.
type Classifier struct{}

func (Classifier) Classify(_ context.Context, text string) (embedding.Sentiment, error) {
	var pos, neg int
	for _, tok := range Tokens(text) {
		switch {
		case negativeWords[tok]:
			neg++
		case positiveWords[tok]:
			pos++
		}
	}
	if pos+neg == 0 {
		return embedding.Sentiment{Positive: true, Score: 0.5}, nil
	}
	positive := pos >= neg
	major := max(pos, neg)
	return embedding.Sentiment{Positive: positive, Score: float64(major) / float64(pos+neg)}, nil
}

// Load builds the offline model with dims semantic dimensions.
func Load(dims int) (*embedding.Model, error) {
	enc, err := NewEncoder(dims)
	if err != nil {
		return nil, err
	}
	return &embedding.Model{Encoder: enc, Classifier: Classifier{}}, nil
}

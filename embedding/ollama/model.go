package ollama

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/viant/crystalize/embedding"
)

// Encoder embeds text with an Ollama embedding model.
type Encoder struct {
	client *Client
	model  string
}

func NewEncoder(client *Client, model string) *Encoder {
	return &Encoder{client: client, model: model}
}

func (e *Encoder) Encode(ctx context.Context, text string) ([]float32, error) {
	return e.client.Embed(ctx, e.model, text)
}

const sentimentPrompt = `Classify the sentiment of the following log text as POSITIVE or NEGATIVE.
Answer with JSON only: {"label": "POSITIVE" or "NEGATIVE", "score": confidence between 0 and 1}.

Text:
%s`

// maxPromptRunes keeps prompts for long records inside small context windows.
const maxPromptRunes = 2000

// Classifier asks a generation model for a binary sentiment.
type Classifier struct {
	client *Client
	model  string
}

func NewClassifier(client *Client, model string) *Classifier {
	return &Classifier{client: client, model: model}
}

type sentimentAnswer struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

func (c *Classifier) Classify(ctx context.Context, text string) (embedding.Sentiment, error) {
	if r := []rune(text); len(r) > maxPromptRunes {
		text = string(r[:maxPromptRunes])
	}
	out, err := c.client.Generate(ctx, c.model, fmt.Sprintf(sentimentPrompt, text), "json")
	if err != nil {
		return embedding.Sentiment{}, err
	}
	return parseSentiment(out)
}

func parseSentiment(out string) (embedding.Sentiment, error) {
	var ans sentimentAnswer
	if err := json.Unmarshal([]byte(strings.TrimSpace(out)), &ans); err != nil || ans.Label == "" {
		// models without JSON mode answer in prose
		upper := strings.ToUpper(out)
		switch {
		case strings.Contains(upper, "NEGATIVE"):
			return embedding.Sentiment{Positive: false, Score: 0.5}, nil
		case strings.Contains(upper, "POSITIVE"):
			return embedding.Sentiment{Positive: true, Score: 0.5}, nil
		}
		return embedding.Sentiment{}, fmt.Errorf("ollama: unrecognised sentiment answer %q", out)
	}
	score := ans.Score
	if score < 0 || score > 1 {
		score = 0.5
	}
	switch strings.ToUpper(strings.TrimSpace(ans.Label)) {
	case "POSITIVE":
		return embedding.Sentiment{Positive: true, Score: score}, nil
	case "NEGATIVE":
		return embedding.Sentiment{Positive: false, Score: score}, nil
	}
	return embedding.Sentiment{}, fmt.Errorf("ollama: unrecognised sentiment label %q", ans.Label)
}

// Load checks that the embedding model, and the sentiment model when set,
// exist on the server and returns them as one model. With no sentiment model
// the caller supplies the classifier.
func Load(ctx context.Context, client *Client, embedModel, sentimentModel string) (*embedding.Model, error) {
	if err := client.Show(ctx, embedModel); err != nil {
		return nil, err
	}
	m := &embedding.Model{Name: "ollama:" + embedModel, Encoder: NewEncoder(client, embedModel)}
	if sentimentModel != "" {
		if err := client.Show(ctx, sentimentModel); err != nil {
			return nil, err
		}
		m.Classifier = NewClassifier(client, sentimentModel)
	}
	return m, nil
}

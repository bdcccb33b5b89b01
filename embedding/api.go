package embedding

import (
	"context"
	"fmt"
)

// Encoder produces a fixed-dimension semantic vector for a text.
type Encoder interface {
	Encode(ctx context.Context, text string) ([]float32, error)
}

// Sentiment is a binary classification with the model's confidence.
type Sentiment struct {
	Positive bool
	Score    float64
}

// Bit encodes the label as 1 for positive and 0 for negative.
func (s Sentiment) Bit() int {
	if s.Positive {
		return 1
	}
	return 0
}

func (s Sentiment) String() string {
	label := "NEGATIVE"
	if s.Positive {
		label = "POSITIVE"
	}
	return fmt.Sprintf("%s(%.2f)", label, s.Score)
}

// Classifier labels a text as positive or negative.
type Classifier interface {
	Classify(ctx context.Context, text string) (Sentiment, error)
}

// Reducer maps n points of equal dimension onto n 3D points, keeping order.
type Reducer interface {
	Reduce(ctx context.Context, points [][]float64) ([][3]float64, error)
}

// Model pairs the encoder and classifier loaded from one identifier.
type Model struct {
	Name string
	Encoder
	Classifier
}

package domain

import (
	"context"
	"math"
)

type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNegative Sentiment = "negative"
	SentimentNeutral  Sentiment = "neutral"
)

// Valid reports whether s is one of the three known labels.
func (s Sentiment) Valid() bool {
	switch s {
	case SentimentPositive, SentimentNegative, SentimentNeutral:
		return true
	default:
		return false
	}
}

// SentimentResult is a label plus a score in [0,1].
type SentimentResult struct {
	Sentiment Sentiment `json:"sentiment"`
	Score     float64   `json:"score"`
}

// Percent is the score rounded for display.
func (r SentimentResult) Percent() int {
	return int(math.Round(r.Score * 100))
}

type ClassificationSource string

const (
	SourceRemote   ClassificationSource = "remote"
	SourceFallback ClassificationSource = "fallback"
)

// Classification is a SentimentResult tagged with the path that produced it.
// Callers consume Result; Source is kept for metrics, logs and storage.
type Classification struct {
	Result     SentimentResult
	Source     ClassificationSource
	Confidence float64
}

// RemoteAnalysis is the normalized answer of a remote classifier.
type RemoteAnalysis struct {
	Sentiment  Sentiment
	Score      float64
	Confidence float64
}

// RemoteClassifier asks an external service for a sentiment label.
type RemoteClassifier interface {
	Analyze(ctx context.Context, text string) (RemoteAnalysis, error)
}

// Classifier always produces a classification; failures of the remote path
// are absorbed by the local fallback.
type Classifier interface {
	Classify(ctx context.Context, text string) Classification
}

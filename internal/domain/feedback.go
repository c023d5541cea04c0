package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const (
	MinFeedbackLength = 10
	MaxFeedbackLength = 1000
)

type Feedback struct {
	ID             uuid.UUID
	UserID         *uuid.UUID
	Content        string
	Sentiment      Sentiment
	SentimentScore float64
	Source         ClassificationSource
	CreatedAt      time.Time
}

// Result returns the stored classification as a SentimentResult.
func (f *Feedback) Result() SentimentResult {
	return SentimentResult{Sentiment: f.Sentiment, Score: f.SentimentScore}
}

type SentimentCounts struct {
	Positive int `json:"positive"`
	Negative int `json:"negative"`
	Neutral  int `json:"neutral"`
}

func (c SentimentCounts) Total() int {
	return c.Positive + c.Negative + c.Neutral
}

// Add increments the counter matching s. Unknown labels are ignored.
func (c *SentimentCounts) Add(s Sentiment, n int) {
	switch s {
	case SentimentPositive:
		c.Positive += n
	case SentimentNegative:
		c.Negative += n
	case SentimentNeutral:
		c.Neutral += n
	}
}

// FeedbackFilter narrows a listing. Zero values mean "no restriction".
type FeedbackFilter struct {
	UserID    *uuid.UUID
	Sentiment Sentiment
	Limit     int
}

type FeedbackRepository interface {
	Create(ctx context.Context, feedback *Feedback) error
	GetByID(ctx context.Context, id uuid.UUID) (*Feedback, error)
	List(ctx context.Context, filter FeedbackFilter) ([]*Feedback, error)
	Delete(ctx context.Context, id uuid.UUID) error
	CountBySentiment(ctx context.Context, userID *uuid.UUID) (SentimentCounts, error)
}

// StatsSource serves global sentiment counts, typically from a cache.
type StatsSource interface {
	GlobalCounts(ctx context.Context) (SentimentCounts, error)
	Invalidate(ctx context.Context) error
}

package sentiment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/failsafe-go/failsafe-go/circuitbreaker"
	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/feedbackpulse/internal/adapter/metrics"
	"github.com/pscheid92/feedbackpulse/internal/domain"
)

const (
	reasonDisabled    = "disabled"
	reasonCircuitOpen = "circuit_open"
	reasonTimeout     = "timeout"
	reasonError       = "error"
	reasonInvalid     = "invalid"
)

// Classifier asks the remote classifier first and falls back to Score.
type Classifier struct {
	remote  domain.RemoteClassifier
	metrics *metrics.ClassificationMetrics
	clock   clockwork.Clock
}

// NewClassifier builds a classifier. remote may be nil, in which case every
// call is answered by the heuristic scorer. m may be nil.
func NewClassifier(remote domain.RemoteClassifier, m *metrics.ClassificationMetrics, clock clockwork.Clock) *Classifier {
	return &Classifier{remote: remote, metrics: m, clock: clock}
}

func (c *Classifier) Classify(ctx context.Context, text string) domain.Classification {
	if c.remote == nil {
		return c.fallback(text, reasonDisabled)
	}

	start := c.clock.Now()
	analysis, err := c.remote.Analyze(ctx, text)
	if c.metrics != nil {
		c.metrics.RemoteDuration.Observe(c.clock.Since(start).Seconds())
	}

	if err != nil {
		reason := fallbackReason(err)
		slog.WarnContext(ctx, "Remote classification failed, using heuristic", "reason", reason, "error", err)
		return c.fallback(text, reason)
	}

	if err := validateAnalysis(analysis); err != nil {
		slog.WarnContext(ctx, "Remote classification invalid, using heuristic", "error", err)
		return c.fallback(text, reasonInvalid)
	}

	c.record(domain.SourceRemote, analysis.Sentiment)
	return domain.Classification{
		Result:     domain.SentimentResult{Sentiment: analysis.Sentiment, Score: analysis.Score},
		Source:     domain.SourceRemote,
		Confidence: analysis.Confidence,
	}
}

func (c *Classifier) fallback(text, reason string) domain.Classification {
	result := Score(text)

	if c.metrics != nil {
		c.metrics.Fallbacks.WithLabelValues(reason).Inc()
	}
	c.record(domain.SourceFallback, result.Sentiment)

	return domain.Classification{Result: result, Source: domain.SourceFallback}
}

func (c *Classifier) record(source domain.ClassificationSource, label domain.Sentiment) {
	if c.metrics == nil {
		return
	}
	c.metrics.Classifications.WithLabelValues(string(source), string(label)).Inc()
}

func validateAnalysis(a domain.RemoteAnalysis) error {
	if !a.Sentiment.Valid() {
		return fmt.Errorf("unknown sentiment label %q", a.Sentiment)
	}
	if math.IsNaN(a.Score) || a.Score < 0 || a.Score > 1 {
		return fmt.Errorf("score %v outside [0,1]", a.Score)
	}
	return nil
}

func fallbackReason(err error) string {
	switch {
	case errors.Is(err, circuitbreaker.ErrOpen):
		return reasonCircuitOpen
	case errors.Is(err, context.DeadlineExceeded):
		return reasonTimeout
	default:
		return reasonError
	}
}

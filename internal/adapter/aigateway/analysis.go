package aigateway

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/pscheid92/feedbackpulse/internal/domain"
)

const (
	defaultScore      = 0.5
	defaultConfidence = 0.8
)

// Models often wrap the JSON in prose or code fences; take the outermost object.
var jsonObjectPattern = regexp.MustCompile(`(?s)\{.*\}`)

type rawAnalysis struct {
	Sentiment  string          `json:"sentiment"`
	Score      json.RawMessage `json:"score"`
	Confidence json.RawMessage `json:"confidence"`
}

// parseAnalysis extracts {"sentiment","score","confidence"} from model output.
// A missing or unparsable score becomes 0.5 and a missing confidence 0.8.
// An explicit 0 is kept.
func parseAnalysis(content string) (domain.RemoteAnalysis, error) {
	raw := jsonObjectPattern.FindString(content)
	if raw == "" {
		raw = content
	}

	var a rawAnalysis
	if err := json.Unmarshal([]byte(raw), &a); err != nil {
		return domain.RemoteAnalysis{}, fmt.Errorf("%w: %w", ErrMalformedAnalysis, err)
	}

	label := domain.Sentiment(strings.ToLower(strings.TrimSpace(a.Sentiment)))
	if !label.Valid() {
		return domain.RemoteAnalysis{}, fmt.Errorf("%w: invalid sentiment %q", ErrMalformedAnalysis, a.Sentiment)
	}

	return domain.RemoteAnalysis{
		Sentiment:  label,
		Score:      parseNumber(a.Score, defaultScore),
		Confidence: parseNumber(a.Confidence, defaultConfidence),
	}, nil
}

// parseNumber accepts a JSON number or a numeric string.
func parseNumber(raw json.RawMessage, fallback float64) float64 {
	if len(raw) == 0 || string(raw) == "null" {
		return fallback
	}

	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			return f
		}
	}
	return fallback
}

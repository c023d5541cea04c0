package sentiment

import (
	"strings"
	"unicode"

	"github.com/pscheid92/feedbackpulse/internal/domain"
)

const (
	phraseBonus = 2

	positiveThreshold = 0.6
	negativeThreshold = 0.4
	scoreNudge        = 0.1
	maxPositiveScore  = 0.9
	minNegativeScore  = 0.1
	neutralScore      = 0.5
)

// Score classifies text with keyword counting. It is pure, never fails and
// is safe for concurrent use.
func Score(text string) domain.SentimentResult {
	lower := strings.ToLower(text)

	positive, negative := countWords(lower)
	for _, phrase := range strongNegativePhrases {
		if strings.Contains(lower, phrase) {
			negative += phraseBonus
		}
	}

	total := positive + negative
	if total == 0 {
		return domain.SentimentResult{Sentiment: domain.SentimentNeutral, Score: neutralScore}
	}

	ratio := float64(positive) / float64(total)
	switch {
	case ratio > positiveThreshold:
		return domain.SentimentResult{Sentiment: domain.SentimentPositive, Score: min(maxPositiveScore, ratio+scoreNudge)}
	case ratio < negativeThreshold:
		return domain.SentimentResult{Sentiment: domain.SentimentNegative, Score: max(minNegativeScore, ratio-scoreNudge)}
	default:
		return domain.SentimentResult{Sentiment: domain.SentimentNeutral, Score: ratio}
	}
}

// countWords tokenizes on non-letter runes in a single pass, so "goodbye"
// never counts as "good".
func countWords(lower string) (positive, negative int) {
	for _, token := range strings.FieldsFunc(lower, isSeparator) {
		switch {
		case positiveWords.contains(token):
			positive++
		case negativeWords.contains(token):
			negative++
		}
	}
	return positive, negative
}

func isSeparator(r rune) bool {
	return !unicode.IsLetter(r)
}

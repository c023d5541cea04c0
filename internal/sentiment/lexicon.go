package sentiment

var positiveWords = newWordSet(
	"good", "great", "excellent", "amazing", "wonderful", "fantastic",
	"love", "like", "happy", "pleased", "satisfied", "awesome",
	"brilliant", "outstanding", "superb", "perfect", "incredible", "marvelous",
	"terrific", "fabulous", "splendid", "magnificent", "delighted", "thrilled",
	"ecstatic", "joyful", "cheerful", "content", "grateful", "appreciate",
	"recommend", "best",
)

var negativeWords = newWordSet(
	"bad", "terrible", "awful", "horrible", "hate", "dislike",
	"angry", "frustrated", "disappointed", "sad", "annoyed", "upset",
	"worst", "useless", "worthless", "pathetic", "disgusting", "ridiculous",
	"stupid", "idiotic", "furious", "enraged", "livid", "displeased",
	"dissatisfied", "unhappy", "miserable", "depressed", "gloomy", "grim",
	"bleak", "hopeless", "desperate", "failed", "failure", "broken",
	"defective", "faulty", "problem", "issue", "complaint", "loathe",
)

// strongNegativePhrases are matched as literal substrings of the lower-cased text.
var strongNegativePhrases = []string{
	"not good",
	"not great",
	"not happy",
	"not satisfied",
	"not pleased",
	"very bad",
	"really terrible",
	"extremely awful",
	"absolutely horrible",
	"completely disappointed",
	"totally frustrated",
	"extremely upset",
}

type wordSet map[string]struct{}

func newWordSet(words ...string) wordSet {
	set := make(wordSet, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

func (s wordSet) contains(word string) bool {
	_, ok := s[word]
	return ok
}

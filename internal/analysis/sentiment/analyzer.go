package sentiment

import (
	"math"
	"strings"
	"unicode"
)

// Label 表示一条消息的情感极性。
type Label string

const (
	Positive Label = "positive"
	Neutral  Label = "neutral"
	Negative Label = "negative"
)

// Score gives the lexicon hits and the derived label for one message.
type Score struct {
	Label        Label
	PositiveHits int
	NegativeHits int
	Net          int // PositiveHits - NegativeHits
	WordCount    int
	Confidence   float64
}

// The lexicons are small, fixed, English-only word lists. This is a known
// heuristic limitation, not an attempt at semantic fidelity.
var positiveLexicon = []string{
	"great", "good", "wonderful", "excellent", "fair", "reasonable", "deal",
	"perfect", "happy", "glad", "appreciate", "thanks", "thank", "love",
	"interested", "agree", "agreed", "nice", "fantastic", "awesome", "best",
}

var negativeLexicon = []string{
	"bad", "terrible", "unfair", "low", "lowball", "insulting", "ridiculous",
	"no", "never", "refuse", "reject", "overpriced", "expensive", "waste",
	"disappointed", "unacceptable", "worst", "awful", "scam", "joke",
}

var (
	positiveSet = toSet(positiveLexicon)
	negativeSet = toSet(negativeLexicon)
)

func toSet(words []string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

// Analyze scores a message word by word against the two lexicons.
// 置信度 = min(|净得分| / 词数 × 10, 1)。
func Analyze(text string) Score {
	words := tokenize(text)
	score := Score{WordCount: len(words), Label: Neutral}
	if len(words) == 0 {
		return score
	}

	for _, w := range words {
		if _, ok := positiveSet[w]; ok {
			score.PositiveHits++
		}
		if _, ok := negativeSet[w]; ok {
			score.NegativeHits++
		}
	}

	score.Net = score.PositiveHits - score.NegativeHits
	switch {
	case score.Net > 0:
		score.Label = Positive
	case score.Net < 0:
		score.Label = Negative
	}

	score.Confidence = math.Min(math.Abs(float64(score.Net))/float64(score.WordCount)*10, 1)
	return score
}

// tokenize lowercases and splits on anything that is not a letter or digit.
func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

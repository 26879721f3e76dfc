// Package patterns holds the fixed keyword groups and numeric extractors used
// to turn free-form negotiation text into candidate actions and prices.
package patterns

import (
	"regexp"
	"strconv"
	"strings"
)

// ActionMatch is the result of scanning text against the keyword groups.
type ActionMatch struct {
	Action     string  // accept | reject | counter
	Keyword    string  // the phrase that matched
	Confidence float64 // fixed weight of the matched group
}

// Keyword groups are scanned in priority order; the first group with a hit
// wins regardless of where its keyword appears in the text.
type group struct {
	action     string
	confidence float64
	phrases    []string
}

var actionGroups = []group{
	{
		action:     "accept",
		confidence: 0.9,
		phrases: []string{
			"accept", "it's a deal", "its a deal", "you have a deal",
			"sold", "i'll take it", "ill take it", "agreed", "works for me",
			"sounds good", "let's do it", "lets do it",
		},
	},
	{
		action:     "reject",
		confidence: 0.8,
		phrases: []string{
			"reject", "no deal", "cannot accept", "can't accept", "cant accept",
			"not interested", "too low", "walk away", "declined", "no thanks",
			"won't work", "wont work", "final answer is no",
		},
	},
	{
		action:     "counter",
		confidence: 0.7,
		phrases: []string{
			"counter", "how about", "what about", "i can do", "i could do",
			"meet me at", "meet in the middle", "best i can do", "would you take",
			"can you do", "what if", "my offer is",
		},
	},
}

// Negation words that flip a phrase's meaning when they sit right before it.
// "cannot accept" must reach the reject group, not short-circuit as accept.
var negations = []string{"cannot ", "can't ", "cant ", "won't ", "wont ", "don't ", "dont ", "not ", "never "}

// DetectAction 按固定优先级扫描关键词组，命中即返回。
func DetectAction(text string) (ActionMatch, bool) {
	lowered := strings.ToLower(text)
	for _, g := range actionGroups {
		for _, phrase := range g.phrases {
			if hasUnnegated(lowered, phrase) {
				return ActionMatch{Action: g.action, Keyword: phrase, Confidence: g.confidence}, true
			}
		}
	}
	return ActionMatch{}, false
}

// hasUnnegated reports whether phrase occurs in lowered at least once without
// a negation word immediately before it.
func hasUnnegated(lowered, phrase string) bool {
	for start := 0; ; {
		idx := strings.Index(lowered[start:], phrase)
		if idx < 0 {
			return false
		}
		idx += start
		if !endsWithNegation(lowered[:idx]) {
			return true
		}
		start = idx + len(phrase)
	}
}

func endsWithNegation(prefix string) bool {
	for _, n := range negations {
		if strings.HasSuffix(prefix, n) {
			return true
		}
	}
	return false
}

// Price extraction patterns, scanned in order. All captured candidates are
// collected; filtering and tie-breaking happen in the interpreter.
var pricePatterns = []*regexp.Regexp{
	regexp.MustCompile(`\$\s*([0-9][0-9,]*(?:\.[0-9]+)?)`),
	regexp.MustCompile(`(?i)([0-9][0-9,]*(?:\.[0-9]+)?)\s*(?:dollars|usd|bucks)`),
	regexp.MustCompile(`(?i)(?:offer|pay|price of|for|at)\s+\$?([0-9][0-9,]*(?:\.[0-9]+)?)\b`),
	regexp.MustCompile(`\b([0-9]{2,7}(?:\.[0-9]+)?)\b`),
}

// ExtractPrices returns every distinct numeric candidate found in the text.
func ExtractPrices(text string) []float64 {
	seen := make(map[float64]struct{})
	var out []float64
	for _, re := range pricePatterns {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			raw := strings.ReplaceAll(m[1], ",", "")
			value, err := strconv.ParseFloat(raw, 64)
			if err != nil || value <= 0 {
				continue
			}
			if _, dup := seen[value]; dup {
				continue
			}
			seen[value] = struct{}{}
			out = append(out, value)
		}
	}
	return out
}

// ClosestTo picks the candidate nearest target. Ties keep the earlier candidate.
func ClosestTo(candidates []float64, target float64) (float64, bool) {
	if len(candidates) == 0 {
		return 0, false
	}
	best := candidates[0]
	bestDist := abs(best - target)
	for _, c := range candidates[1:] {
		if d := abs(c - target); d < bestDist {
			best, bestDist = c, d
		}
	}
	return best, true
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

package insight

import (
	"math"
	"strings"

	"github.com/nsxzhou/haggle/backend/internal/model/negotiation"
)

// Per-step price change thresholds for strategy classification.
const (
	aggressiveChangePct = 10.0
	moderateChangePct   = 5.0
)

// CommunicationStats describes one participant's messaging patterns.
type CommunicationStats struct {
	MessageCount           int     `json:"messageCount"`
	AverageLength          float64 `json:"averageLength"`
	HourHistogram          [24]int `json:"hourHistogram"`
	AverageResponseSeconds float64 `json:"averageResponseSeconds"`
}

// StyleScores counts keyword evidence per negotiation-style dimension.
type StyleScores struct {
	Assertiveness int `json:"assertiveness"`
	Cooperation   int `json:"cooperation"`
	Flexibility   int `json:"flexibility"`
	Directness    int `json:"directness"`
}

// OfferReply classifies the message following an offer.
type OfferReply struct {
	Index int    `json:"index"` // index of the replying message
	Kind  string `json:"kind"`  // counter_offer | discussion
}

// ResponsePatterns summarizes turn-taking behavior.
type ResponsePatterns struct {
	AverageTurnSeconds float64      `json:"averageTurnSeconds"`
	OfferReplies       []OfferReply `json:"offerReplies,omitempty"`
}

// OfferBehavior describes how prices moved over the conversation.
type OfferBehavior struct {
	Count       int       `json:"count"`
	Progression []float64 `json:"progression,omitempty"`
	Strategy    string    `json:"strategy"` // aggressive | moderate | conservative | insufficient_data
	Trend       string    `json:"trend"`    // increasing | decreasing | fluctuating | insufficient_data
}

// BehaviorInsight bundles the behavioral analyses.
type BehaviorInsight struct {
	Communication    map[negotiation.Sender]*CommunicationStats `json:"communication"`
	Styles           map[negotiation.Sender]*StyleScores        `json:"styles"`
	ResponsePatterns ResponsePatterns                           `json:"responsePatterns"`
	Offers           OfferBehavior                              `json:"offers"`
}

// The behavioral keyword sets are fixed English-only lists, same caveat as the
// sentiment lexicons.
var styleKeywords = map[string][]string{
	"assertiveness": {"must", "need", "final", "won't", "wont", "take it or leave", "last offer"},
	"cooperation":   {"we", "together", "both", "fair", "work with", "happy to", "meet"},
	"flexibility":   {"maybe", "could", "perhaps", "open to", "consider", "flexible", "might"},
	"directness":    {"no", "yes", "now", "exactly", "simply", "bottom line", "straight"},
}

func (e *Engine) generateBehavior(msgs []negotiation.Message) *BehaviorInsight {
	out := &BehaviorInsight{
		Communication: make(map[negotiation.Sender]*CommunicationStats),
		Styles:        make(map[negotiation.Sender]*StyleScores),
	}

	respTotals := make(map[negotiation.Sender]float64)
	respCounts := make(map[negotiation.Sender]int)

	for i, m := range msgs {
		stats := out.Communication[m.Sender]
		if stats == nil {
			stats = &CommunicationStats{}
			out.Communication[m.Sender] = stats
		}
		stats.MessageCount++
		stats.AverageLength += float64(len([]rune(m.Content))) // summed here, divided below
		stats.HourHistogram[m.CreatedAt.Hour()]++

		if i > 0 && msgs[i-1].Sender != m.Sender {
			respTotals[m.Sender] += m.CreatedAt.Sub(msgs[i-1].CreatedAt).Seconds()
			respCounts[m.Sender]++
		}

		scoreStyles(out.Styles, m)

		// A reply following an offer either counters with a number or discusses.
		if i > 0 && msgs[i-1].Offer != nil && msgs[i-1].Sender != m.Sender {
			kind := "discussion"
			if m.Offer != nil {
				kind = "counter_offer"
			}
			out.ResponsePatterns.OfferReplies = append(out.ResponsePatterns.OfferReplies, OfferReply{Index: i, Kind: kind})
		}
	}

	for sender, stats := range out.Communication {
		if stats.MessageCount > 0 {
			stats.AverageLength /= float64(stats.MessageCount)
		}
		if respCounts[sender] > 0 {
			stats.AverageResponseSeconds = respTotals[sender] / float64(respCounts[sender])
		}
	}

	out.ResponsePatterns.AverageTurnSeconds = meanResponseSeconds(msgs)
	out.Offers = analyzeOffers(offerAmounts(msgs))
	return out
}

func scoreStyles(styles map[negotiation.Sender]*StyleScores, m negotiation.Message) {
	s := styles[m.Sender]
	if s == nil {
		s = &StyleScores{}
		styles[m.Sender] = s
	}

	lowered := strings.ToLower(m.Content)
	for dim, words := range styleKeywords {
		for _, w := range words {
			if !strings.Contains(lowered, w) {
				continue
			}
			switch dim {
			case "assertiveness":
				s.Assertiveness++
			case "cooperation":
				s.Cooperation++
			case "flexibility":
				s.Flexibility++
			case "directness":
				s.Directness++
			}
			break // one hit per dimension per message
		}
	}
}

func analyzeOffers(amounts []float64) OfferBehavior {
	out := OfferBehavior{
		Count:       len(amounts),
		Progression: amounts,
	}

	if len(amounts) < 3 {
		out.Strategy = "insufficient_data"
		out.Trend = "insufficient_data"
		return out
	}

	// Strategy: mean absolute percent change per step.
	var totalPct float64
	steps := 0
	increases, decreases, ties := 0, 0, 0
	for i := 1; i < len(amounts); i++ {
		prev, cur := amounts[i-1], amounts[i]
		if prev != 0 {
			totalPct += math.Abs(cur-prev) / prev * 100
			steps++
		}
		switch {
		case cur > prev:
			increases++
		case cur < prev:
			decreases++
		default:
			ties++
		}
	}

	meanPct := 0.0
	if steps > 0 {
		meanPct = totalPct / float64(steps)
	}
	switch {
	case meanPct > aggressiveChangePct:
		out.Strategy = "aggressive"
	case meanPct > moderateChangePct:
		out.Strategy = "moderate"
	default:
		out.Strategy = "conservative"
	}

	switch {
	case increases > decreases && increases > ties:
		out.Trend = "increasing"
	case decreases > increases && decreases > ties:
		out.Trend = "decreasing"
	default:
		out.Trend = "fluctuating"
	}
	return out
}

func behaviorRecommendations(b *BehaviorInsight) []string {
	var recs []string
	if b.Offers.Trend == "fluctuating" && b.Offers.Count >= 3 {
		recs = append(recs, "offers are fluctuating; anchor the discussion on a single number")
	}
	if b.Offers.Strategy == "aggressive" {
		recs = append(recs, "large price swings detected; smaller concessions may steady the negotiation")
	}
	return recs
}

package insight

import (
	"math"
	"time"

	"github.com/nsxzhou/haggle/backend/internal/model/negotiation"
)

// Success probability increments. 经验常数，与报表口径一致。
const (
	baseSuccessProbability = 0.5
	engagementWeight       = 0.3
	multiRoundBonus        = 0.2
	recentOfferBonus       = 0.2

	completionLookahead = 5 // fixed look-ahead in messages
	inactivityThreshold = 24 * time.Hour
	recentWindow        = 5
	recentOfferCount    = 4
	initialOfferCount   = 2
)

// Factor is one named risk or opportunity.
type Factor struct {
	Kind        string `json:"kind"`
	Severity    string `json:"severity,omitempty"` // low | medium | high
	Description string `json:"description"`
}

// Convergence describes whether offers are settling toward a price.
type Convergence struct {
	HasData              bool    `json:"hasData"`
	Converging           bool    `json:"converging"`
	Rate                 float64 `json:"rate"` // relative shrinkage of the price range
	EstimatedSettlePrice float64 `json:"estimatedSettlePrice,omitempty"`
}

// PredictionInsight is the forward-looking analysis of the negotiation.
type PredictionInsight struct {
	SuccessProbability         float64     `json:"successProbability"`
	EstimatedCompletionSeconds *float64    `json:"estimatedCompletionSeconds,omitempty"`
	PriceConvergence           Convergence `json:"priceConvergence"`
	RiskFactors                []Factor    `json:"riskFactors,omitempty"`
	Opportunities              []Factor    `json:"opportunities,omitempty"`
}

func (e *Engine) generatePrediction(msgs []negotiation.Message, neg negotiation.Negotiation) *PredictionInsight {
	out := &PredictionInsight{}

	engagement := engagementOf(msgs)

	probability := baseSuccessProbability + engagement.Level*engagementWeight
	if neg.Rounds > 1 {
		probability += multiRoundBonus
	}
	if anyRecentOffer(msgs, recentWindow) {
		probability += recentOfferBonus
	}
	out.SuccessProbability = math.Min(probability, 1)

	if len(msgs) >= 2 {
		estimate := meanResponseSeconds(msgs) * completionLookahead
		out.EstimatedCompletionSeconds = &estimate
	}

	out.PriceConvergence = convergenceOf(offerAmounts(msgs))

	if neg.MaxRounds > 0 && float64(neg.Rounds) > 0.8*float64(neg.MaxRounds) {
		out.RiskFactors = append(out.RiskFactors, Factor{
			Kind:        "round_limit",
			Severity:    "medium",
			Description: "negotiation is approaching its round limit",
		})
	}
	if len(msgs) > 0 && e.now().Sub(msgs[len(msgs)-1].CreatedAt) > inactivityThreshold {
		out.RiskFactors = append(out.RiskFactors, Factor{
			Kind:        "inactivity",
			Severity:    "high",
			Description: "no message in over 24 hours",
		})
	}

	if recentCount(msgs, recentWindow) >= 3 {
		out.Opportunities = append(out.Opportunities, Factor{
			Kind:        "active_engagement",
			Description: "steady message flow in the recent window",
		})
	}
	if out.PriceConvergence.Converging {
		out.Opportunities = append(out.Opportunities, Factor{
			Kind:        "price_convergence",
			Description: "offers are narrowing toward a settle price",
		})
	}
	return out
}

// anyRecentOffer reports whether one of the last n messages carries an offer.
func anyRecentOffer(msgs []negotiation.Message, n int) bool {
	start := len(msgs) - n
	if start < 0 {
		start = 0
	}
	for _, m := range msgs[start:] {
		if m.Offer != nil {
			return true
		}
	}
	return false
}

func recentCount(msgs []negotiation.Message, n int) int {
	if len(msgs) < n {
		return len(msgs)
	}
	return n
}

// convergenceOf compares the spread of the last up-to-4 offers against the
// spread of the first 2. Converging iff the recent range is strictly smaller.
func convergenceOf(amounts []float64) Convergence {
	if len(amounts) < initialOfferCount+2 {
		return Convergence{}
	}

	initial := amounts[:initialOfferCount]
	recent := amounts[len(amounts)-min(recentOfferCount, len(amounts)):]

	initialRange := spread(initial)
	recentRange := spread(recent)

	conv := Convergence{
		HasData:              true,
		Converging:           recentRange < initialRange,
		EstimatedSettlePrice: mean(recent),
	}
	if initialRange > 0 {
		conv.Rate = (initialRange - recentRange) / initialRange
	}
	return conv
}

func spread(values []float64) float64 {
	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return hi - lo
}

func mean(values []float64) float64 {
	var total float64
	for _, v := range values {
		total += v
	}
	return total / float64(len(values))
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func predictionRecommendations(p *PredictionInsight) []string {
	var recs []string
	if p.SuccessProbability >= 0.8 {
		recs = append(recs, "high success probability; push toward a closing offer")
	}
	for _, r := range p.RiskFactors {
		if r.Kind == "inactivity" {
			recs = append(recs, "conversation has gone quiet; send a re-engagement message")
		}
	}
	return recs
}

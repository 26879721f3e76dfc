package insight

import (
	"math"
	"time"

	"github.com/nsxzhou/haggle/backend/internal/model/negotiation"
)

// Efficiency holds throughput-style metrics for the negotiation.
type Efficiency struct {
	MessagesPerRound       float64 `json:"messagesPerRound"`
	AverageResponseSeconds float64 `json:"averageResponseSeconds"`
	MessagesPerOffer       float64 `json:"messagesPerOffer"`
	RoundsPerHour          float64 `json:"roundsPerHour"`
}

// Engagement measures how invested the participants are.
type Engagement struct {
	Level              float64 `json:"level"`              // min(messages/20, 1)
	ParticipantBalance float64 `json:"participantBalance"` // min(count)/max(count)
}

// Milestone marks a notable point in the conversation.
type Milestone struct {
	Index     int       `json:"index"`
	Kind      string    `json:"kind"` // first_offer | offer | acceptance
	Amount    float64   `json:"amount,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Progression tracks advancement toward a conclusion.
type Progression struct {
	RoundCompletion    float64     `json:"roundCompletion"` // rounds/maxRounds
	Milestones         []Milestone `json:"milestones,omitempty"`
	StagnationPoints   []int       `json:"stagnationPoints,omitempty"`
	AccelerationPoints []int       `json:"accelerationPoints,omitempty"`
}

// PerformanceInsight bundles efficiency, engagement and progression.
type PerformanceInsight struct {
	Efficiency  Efficiency  `json:"efficiency"`
	Engagement  Engagement  `json:"engagement"`
	Progression Progression `json:"progression"`
}

func (e *Engine) generatePerformance(msgs []negotiation.Message, neg negotiation.Negotiation) *PerformanceInsight {
	out := &PerformanceInsight{}

	offers := offerAmounts(msgs)
	messageCount := len(msgs)

	if neg.Rounds > 0 {
		out.Efficiency.MessagesPerRound = float64(messageCount) / float64(neg.Rounds)
	}
	out.Efficiency.AverageResponseSeconds = meanResponseSeconds(msgs)
	if len(offers) > 0 {
		out.Efficiency.MessagesPerOffer = float64(messageCount) / float64(len(offers))
	}
	if messageCount > 1 {
		hours := msgs[messageCount-1].CreatedAt.Sub(msgs[0].CreatedAt).Hours()
		if hours > 0 {
			out.Efficiency.RoundsPerHour = float64(neg.Rounds) / hours
		}
	}

	out.Engagement = engagementOf(msgs)

	if neg.MaxRounds > 0 {
		out.Progression.RoundCompletion = float64(neg.Rounds) / float64(neg.MaxRounds)
	}
	out.Progression.Milestones = milestones(msgs)
	out.Progression.StagnationPoints, out.Progression.AccelerationPoints = paceChanges(msgs)
	return out
}

func engagementOf(msgs []negotiation.Message) Engagement {
	eng := Engagement{Level: math.Min(float64(len(msgs))/20, 1)}

	counts := make(map[negotiation.Sender]int)
	for _, m := range msgs {
		counts[m.Sender]++
	}
	if len(counts) > 1 {
		lo, hi := math.MaxInt, 0
		for _, c := range counts {
			if c < lo {
				lo = c
			}
			if c > hi {
				hi = c
			}
		}
		eng.ParticipantBalance = float64(lo) / float64(hi)
	} else if len(counts) == 1 {
		eng.ParticipantBalance = 0
	}
	return eng
}

func milestones(msgs []negotiation.Message) []Milestone {
	var out []Milestone
	seenOffer := false
	for i, m := range msgs {
		switch {
		case m.Type == negotiation.TypeAcceptance:
			out = append(out, Milestone{Index: i, Kind: "acceptance", Timestamp: m.CreatedAt})
		case m.Offer != nil:
			kind := "offer"
			if !seenOffer {
				kind = "first_offer"
				seenOffer = true
			}
			out = append(out, Milestone{Index: i, Kind: kind, Amount: m.Offer.Amount, Timestamp: m.CreatedAt})
		}
	}
	return out
}

// paceChanges compares each inter-message gap to the median gap: more than
// twice the median is a stagnation point, less than half an acceleration point.
func paceChanges(msgs []negotiation.Message) (stagnation, acceleration []int) {
	if len(msgs) < 3 {
		return nil, nil
	}

	gaps := make([]float64, 0, len(msgs)-1)
	for i := 1; i < len(msgs); i++ {
		gaps = append(gaps, msgs[i].CreatedAt.Sub(msgs[i-1].CreatedAt).Seconds())
	}

	med := median(gaps)
	if med <= 0 {
		return nil, nil
	}

	for i, g := range gaps {
		switch {
		case g > 2*med:
			stagnation = append(stagnation, i+1)
		case g < med/2:
			acceleration = append(acceleration, i+1)
		}
	}
	return stagnation, acceleration
}

func median(values []float64) float64 {
	sorted := append([]float64(nil), values...)
	for i := 1; i < len(sorted); i++ {
		for j := i; j > 0 && sorted[j] < sorted[j-1]; j-- {
			sorted[j], sorted[j-1] = sorted[j-1], sorted[j]
		}
	}
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}

func performanceRecommendations(p *PerformanceInsight) []string {
	var recs []string
	if p.Engagement.Level < 0.3 {
		recs = append(recs, "low engagement; a direct question or fresh offer may restart momentum")
	}
	if len(p.Progression.StagnationPoints) > 0 {
		recs = append(recs, "conversation pace has stalled at least once; follow up proactively")
	}
	return recs
}

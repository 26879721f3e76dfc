package insight

import (
	"fmt"
	"time"

	"github.com/nsxzhou/haggle/backend/internal/analysis/sentiment"
	"github.com/nsxzhou/haggle/backend/internal/model/negotiation"
)

// triggerConfidence flags strongly negative messages as escalation triggers.
const triggerConfidence = 0.8

// SentimentPoint is one message on the sentiment timeline.
type SentimentPoint struct {
	Index      int                `json:"index"`
	Sender     negotiation.Sender `json:"sender"`
	Label      sentiment.Label    `json:"label"`
	Confidence float64            `json:"confidence"`
	Timestamp  time.Time          `json:"timestamp"`
}

// ParticipantSentiment tallies labels per sender.
type ParticipantSentiment struct {
	Positive int `json:"positive"`
	Neutral  int `json:"neutral"`
	Negative int `json:"negative"`
}

// Trigger marks a message whose negativity crossed the alert threshold.
type Trigger struct {
	Index      int                `json:"index"`
	Sender     negotiation.Sender `json:"sender"`
	Content    string             `json:"content"`
	Confidence float64            `json:"confidence"`
	Timestamp  time.Time          `json:"timestamp"`
}

// SentimentInsight aggregates lexicon scoring over the whole conversation.
type SentimentInsight struct {
	Overall      sentiment.Label                                  `json:"overall"`
	Positive     int                                              `json:"positive"`
	Negative     int                                              `json:"negative"`
	Total        int                                              `json:"total"`
	Timeline     []SentimentPoint                                 `json:"timeline"`
	Participants map[negotiation.Sender]*ParticipantSentiment     `json:"participants"`
	Triggers     []Trigger                                        `json:"triggers,omitempty"`
}

func (e *Engine) generateSentiment(msgs []negotiation.Message) *SentimentInsight {
	out := &SentimentInsight{
		Participants: make(map[negotiation.Sender]*ParticipantSentiment),
	}

	net := 0
	for i, m := range msgs {
		score := sentiment.Analyze(m.Content)
		net += score.Net

		out.Timeline = append(out.Timeline, SentimentPoint{
			Index:      i,
			Sender:     m.Sender,
			Label:      score.Label,
			Confidence: score.Confidence,
			Timestamp:  m.CreatedAt,
		})

		p := out.Participants[m.Sender]
		if p == nil {
			p = &ParticipantSentiment{}
			out.Participants[m.Sender] = p
		}
		switch score.Label {
		case sentiment.Positive:
			p.Positive++
			out.Positive++
		case sentiment.Negative:
			p.Negative++
			out.Negative++
			if score.Confidence > triggerConfidence {
				out.Triggers = append(out.Triggers, Trigger{
					Index:      i,
					Sender:     m.Sender,
					Content:    m.Content,
					Confidence: score.Confidence,
					Timestamp:  m.CreatedAt,
				})
			}
		default:
			p.Neutral++
		}
	}

	out.Total = len(msgs)
	switch {
	case net > 0:
		out.Overall = sentiment.Positive
	case net < 0:
		out.Overall = sentiment.Negative
	default:
		out.Overall = sentiment.Neutral
	}
	return out
}

func sentimentRecommendations(s *SentimentInsight) []string {
	var recs []string
	if len(s.Triggers) > 0 {
		recs = append(recs, fmt.Sprintf("de-escalate: %d strongly negative messages detected", len(s.Triggers)))
	}
	if s.Overall == sentiment.Negative {
		recs = append(recs, "overall tone is negative; consider a goodwill concession")
	}
	return recs
}

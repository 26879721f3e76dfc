// Package insight computes sentiment, behavioral, performance and predictive
// analytics over a negotiation's full message history. All generators are pure
// functions of their inputs; nothing here mutates the history.
package insight

import (
	"fmt"
	"time"

	"github.com/nsxzhou/haggle/backend/internal/model/negotiation"
)

// Type 枚举四种洞察。集合封闭，新增类型必须同时扩展 Generate 的分发。
type Type string

const (
	TypeSentiment   Type = "sentiment"
	TypeBehavior    Type = "behavior"
	TypePerformance Type = "performance"
	TypePrediction  Type = "prediction"
)

// ParseType validates a caller-supplied insight type.
func ParseType(raw string) (Type, error) {
	switch Type(raw) {
	case TypeSentiment, TypeBehavior, TypePerformance, TypePrediction:
		return Type(raw), nil
	}
	return "", fmt.Errorf("unknown insight type %q", raw)
}

// Bundle is one generated insight. Exactly one of the typed fields is set.
type Bundle struct {
	Type            Type                `json:"type"`
	NegotiationID   string              `json:"negotiationId"`
	GeneratedAt     time.Time           `json:"generatedAt"`
	Sentiment       *SentimentInsight   `json:"sentiment,omitempty"`
	Behavior        *BehaviorInsight    `json:"behavior,omitempty"`
	Performance     *PerformanceInsight `json:"performance,omitempty"`
	Prediction      *PredictionInsight  `json:"prediction,omitempty"`
	Recommendations []string            `json:"recommendations,omitempty"`
}

// Engine generates insight bundles. It holds no per-negotiation state.
type Engine struct {
	now func() time.Time
}

// NewEngine creates an Engine with the real clock.
func NewEngine() *Engine {
	return &Engine{now: time.Now}
}

// NewEngineWithClock injects a time source for tests.
func NewEngineWithClock(now func() time.Time) *Engine {
	return &Engine{now: now}
}

// Generate dispatches to the requested generator.
func (e *Engine) Generate(t Type, msgs []negotiation.Message, neg negotiation.Negotiation) (Bundle, error) {
	bundle := Bundle{Type: t, NegotiationID: neg.ID, GeneratedAt: e.now()}

	switch t {
	case TypeSentiment:
		bundle.Sentiment = e.generateSentiment(msgs)
		bundle.Recommendations = sentimentRecommendations(bundle.Sentiment)
	case TypeBehavior:
		bundle.Behavior = e.generateBehavior(msgs)
		bundle.Recommendations = behaviorRecommendations(bundle.Behavior)
	case TypePerformance:
		bundle.Performance = e.generatePerformance(msgs, neg)
		bundle.Recommendations = performanceRecommendations(bundle.Performance)
	case TypePrediction:
		bundle.Prediction = e.generatePrediction(msgs, neg)
		bundle.Recommendations = predictionRecommendations(bundle.Prediction)
	default:
		return Bundle{}, fmt.Errorf("unknown insight type %q", t)
	}
	return bundle, nil
}

// offerAmounts collects the amounts of every message carrying an offer, in order.
func offerAmounts(msgs []negotiation.Message) []float64 {
	var out []float64
	for _, m := range msgs {
		if m.Offer != nil {
			out = append(out, m.Offer.Amount)
		}
	}
	return out
}

// meanResponseSeconds averages the gap between consecutive messages from
// different senders.
func meanResponseSeconds(msgs []negotiation.Message) float64 {
	var total float64
	count := 0
	for i := 1; i < len(msgs); i++ {
		if msgs[i].Sender == msgs[i-1].Sender {
			continue
		}
		total += msgs[i].CreatedAt.Sub(msgs[i-1].CreatedAt).Seconds()
		count++
	}
	if count == 0 {
		return 0
	}
	return total / float64(count)
}

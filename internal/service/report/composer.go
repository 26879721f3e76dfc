// Package report composes caller-facing documents from negotiation metadata
// and insight bundles. Reports are pure transformations of their inputs; any
// caching sits outside this package.
package report

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/nsxzhou/haggle/backend/internal/model/negotiation"
	"github.com/nsxzhou/haggle/backend/internal/service/insight"
	"github.com/nsxzhou/haggle/backend/internal/store"
)

// ErrTooFewNegotiations is returned when a comparison is requested with
// fewer than two negotiation ids.
var ErrTooFewNegotiations = errors.New("comparison requires at least two negotiation ids")

// Type 枚举支持的报表种类，集合封闭。
type Type string

const (
	TypeSummary    Type = "summary"
	TypeDetailed   Type = "detailed"
	TypeComparison Type = "comparison"
)

// ParseType validates a caller-supplied report type.
func ParseType(raw string) (Type, error) {
	switch Type(raw) {
	case TypeSummary, TypeDetailed, TypeComparison:
		return Type(raw), nil
	}
	return "", fmt.Errorf("unknown report type %q", raw)
}

// Phase boundaries in the message sequence.
const (
	initiationLength  = 5
	conclusionLength  = 3
	swingThresholdPct = 10.0
)

// Overview summarizes the negotiation's shape.
type Overview struct {
	Status          negotiation.Status `json:"status"`
	DurationSeconds float64            `json:"durationSeconds"`
	Messages        int                `json:"messages"`
	Rounds          int                `json:"rounds"`
	MaxRounds       int                `json:"maxRounds"`
}

// KeyMetrics collects the headline numbers for a summary.
type KeyMetrics struct {
	AverageResponseSeconds float64 `json:"averageResponseSeconds"`
	EngagementLevel        float64 `json:"engagementLevel"`
	NetSentiment           float64 `json:"netSentiment"` // (positive-negative)/total
	SuccessProbability     float64 `json:"successProbability"`
}

// Summary is the compact report.
type Summary struct {
	Overview        Overview   `json:"overview"`
	KeyMetrics      KeyMetrics `json:"keyMetrics"`
	Recommendations []string   `json:"recommendations,omitempty"`
	NextSteps       []string   `json:"nextSteps,omitempty"`
}

// Profile describes one participant in a detailed report.
type Profile struct {
	MessageCount  int     `json:"messageCount"`
	AverageLength float64 `json:"averageLength"`
	OfferCount    int     `json:"offerCount"`
	Share         float64 `json:"share"` // fraction of all messages
}

// Phase labels a contiguous span of the conversation.
type Phase struct {
	Name  string `json:"name"` // initiation | negotiation | conclusion
	Start int    `json:"start"`
	End   int    `json:"end"` // inclusive
}

// Moment is a critical point extracted from the history.
type Moment struct {
	Index       int       `json:"index"`
	Kind        string    `json:"kind"` // first_offer | acceptance | price_swing
	Description string    `json:"description"`
	Timestamp   time.Time `json:"timestamp"`
}

// Detailed is the full report with all four insight bundles.
type Detailed struct {
	Overview        Overview                        `json:"overview"`
	Milestones      []insight.Milestone             `json:"milestones,omitempty"`
	Insights        map[insight.Type]insight.Bundle `json:"insights"`
	Participants    map[negotiation.Sender]*Profile `json:"participants"`
	Phases          []Phase                         `json:"phases,omitempty"`
	CriticalMoments []Moment                        `json:"criticalMoments,omitempty"`
}

// ComparisonEntry carries per-negotiation metrics for a comparison report.
type ComparisonEntry struct {
	NegotiationID      string             `json:"negotiationId"`
	Status             negotiation.Status `json:"status"`
	DurationSeconds    float64            `json:"durationSeconds"`
	EngagementLevel    float64            `json:"engagementLevel"`
	NetSentiment       float64            `json:"netSentiment"`
	SuccessProbability float64            `json:"successProbability"`
	MessagesPerRound   float64            `json:"messagesPerRound"`
}

// Comparison contrasts several negotiations.
type Comparison struct {
	Entries  []ComparisonEntry `json:"entries"`
	Patterns []string          `json:"patterns,omitempty"`
}

// Report is the composed output. Exactly one typed field is set.
type Report struct {
	Type          Type        `json:"type"`
	NegotiationID string      `json:"negotiationId,omitempty"`
	GeneratedAt   time.Time   `json:"generatedAt"`
	Summary       *Summary    `json:"summary,omitempty"`
	Detailed      *Detailed   `json:"detailed,omitempty"`
	Comparison    *Comparison `json:"comparison,omitempty"`
}

// Composer assembles reports from insights and the persistence collaborators.
type Composer struct {
	insights     *insight.Engine
	negotiations store.NegotiationStore
	history      store.MessageHistory
	now          func() time.Time
}

// NewComposer creates a Composer. The stores are only needed for comparisons.
func NewComposer(engine *insight.Engine, negotiations store.NegotiationStore, history store.MessageHistory) *Composer {
	return &Composer{
		insights:     engine,
		negotiations: negotiations,
		history:      history,
		now:          time.Now,
	}
}

// WithNow injects a time source, used by tests.
func (c *Composer) WithNow(now func() time.Time) *Composer {
	c.now = now
	return c
}

// Summary builds the compact report for one negotiation.
func (c *Composer) Summary(neg negotiation.Negotiation, msgs []negotiation.Message) (Report, error) {
	sentimentB, err := c.insights.Generate(insight.TypeSentiment, msgs, neg)
	if err != nil {
		return Report{}, err
	}
	performanceB, err := c.insights.Generate(insight.TypePerformance, msgs, neg)
	if err != nil {
		return Report{}, err
	}
	predictionB, err := c.insights.Generate(insight.TypePrediction, msgs, neg)
	if err != nil {
		return Report{}, err
	}

	summary := &Summary{
		Overview: overviewOf(neg, msgs),
		KeyMetrics: KeyMetrics{
			AverageResponseSeconds: performanceB.Performance.Efficiency.AverageResponseSeconds,
			EngagementLevel:        performanceB.Performance.Engagement.Level,
			NetSentiment:           netSentiment(sentimentB.Sentiment),
			SuccessProbability:     predictionB.Prediction.SuccessProbability,
		},
		NextSteps: nextSteps(neg, predictionB.Prediction),
	}
	// Consolidated recommendations: every per-insight list, in order.
	summary.Recommendations = append(summary.Recommendations, sentimentB.Recommendations...)
	summary.Recommendations = append(summary.Recommendations, performanceB.Recommendations...)
	summary.Recommendations = append(summary.Recommendations, predictionB.Recommendations...)

	return Report{
		Type:          TypeSummary,
		NegotiationID: neg.ID,
		GeneratedAt:   c.now(),
		Summary:       summary,
	}, nil
}

// Detailed builds the full report with all four insight bundles.
func (c *Composer) Detailed(neg negotiation.Negotiation, msgs []negotiation.Message) (Report, error) {
	bundles := make(map[insight.Type]insight.Bundle, 4)
	for _, t := range []insight.Type{insight.TypeSentiment, insight.TypeBehavior, insight.TypePerformance, insight.TypePrediction} {
		b, err := c.insights.Generate(t, msgs, neg)
		if err != nil {
			return Report{}, err
		}
		bundles[t] = b
	}

	detailed := &Detailed{
		Overview:        overviewOf(neg, msgs),
		Milestones:      bundles[insight.TypePerformance].Performance.Progression.Milestones,
		Insights:        bundles,
		Participants:    profiles(msgs),
		Phases:          phases(len(msgs)),
		CriticalMoments: criticalMoments(msgs),
	}

	return Report{
		Type:          TypeDetailed,
		NegotiationID: neg.ID,
		GeneratedAt:   c.now(),
		Detailed:      detailed,
	}, nil
}

// Comparison loads each negotiation and contrasts their metrics.
func (c *Composer) Comparison(ctx context.Context, negotiationIDs []string) (Report, error) {
	if c.negotiations == nil || c.history == nil {
		return Report{}, fmt.Errorf("comparison requires negotiation and history stores")
	}
	if len(negotiationIDs) < 2 {
		return Report{}, ErrTooFewNegotiations
	}

	comparison := &Comparison{}
	accepted := 0
	for _, id := range negotiationIDs {
		neg, err := c.negotiations.Load(ctx, id)
		if err != nil {
			return Report{}, fmt.Errorf("load negotiation %s: %w", id, err)
		}
		msgs, err := c.history.History(ctx, id, store.HistoryOptions{})
		if err != nil {
			return Report{}, fmt.Errorf("load history %s: %w", id, err)
		}

		sentimentB, err := c.insights.Generate(insight.TypeSentiment, msgs, neg)
		if err != nil {
			return Report{}, err
		}
		performanceB, err := c.insights.Generate(insight.TypePerformance, msgs, neg)
		if err != nil {
			return Report{}, err
		}
		predictionB, err := c.insights.Generate(insight.TypePrediction, msgs, neg)
		if err != nil {
			return Report{}, err
		}

		comparison.Entries = append(comparison.Entries, ComparisonEntry{
			NegotiationID:      neg.ID,
			Status:             neg.Status,
			DurationSeconds:    overviewOf(neg, msgs).DurationSeconds,
			EngagementLevel:    performanceB.Performance.Engagement.Level,
			NetSentiment:       netSentiment(sentimentB.Sentiment),
			SuccessProbability: predictionB.Prediction.SuccessProbability,
			MessagesPerRound:   performanceB.Performance.Efficiency.MessagesPerRound,
		})
		if neg.Status == negotiation.StatusAccepted {
			accepted++
		}
	}

	comparison.Patterns = comparisonPatterns(comparison.Entries, accepted)

	return Report{
		Type:        TypeComparison,
		GeneratedAt: c.now(),
		Comparison:  comparison,
	}, nil
}

func overviewOf(neg negotiation.Negotiation, msgs []negotiation.Message) Overview {
	o := Overview{
		Status:    neg.Status,
		Messages:  len(msgs),
		Rounds:    neg.Rounds,
		MaxRounds: neg.MaxRounds,
	}
	if len(msgs) > 1 {
		o.DurationSeconds = msgs[len(msgs)-1].CreatedAt.Sub(msgs[0].CreatedAt).Seconds()
	}
	return o
}

func netSentiment(s *insight.SentimentInsight) float64 {
	if s == nil || s.Total == 0 {
		return 0
	}
	return float64(s.Positive-s.Negative) / float64(s.Total)
}

func profiles(msgs []negotiation.Message) map[negotiation.Sender]*Profile {
	out := make(map[negotiation.Sender]*Profile)
	for _, m := range msgs {
		p := out[m.Sender]
		if p == nil {
			p = &Profile{}
			out[m.Sender] = p
		}
		p.MessageCount++
		p.AverageLength += float64(len([]rune(m.Content)))
		if m.Offer != nil {
			p.OfferCount++
		}
	}
	for _, p := range out {
		if p.MessageCount > 0 {
			p.AverageLength /= float64(p.MessageCount)
		}
		if len(msgs) > 0 {
			p.Share = float64(p.MessageCount) / float64(len(msgs))
		}
	}
	return out
}

// phases splits the message sequence into initiation (first 5), conclusion
// (last 3) and negotiation (the remainder). Short conversations collapse to
// fewer phases.
func phases(count int) []Phase {
	if count == 0 {
		return nil
	}
	if count <= initiationLength {
		return []Phase{{Name: "initiation", Start: 0, End: count - 1}}
	}

	out := []Phase{{Name: "initiation", Start: 0, End: initiationLength - 1}}
	middleEnd := count - conclusionLength - 1
	if middleEnd >= initiationLength {
		out = append(out, Phase{Name: "negotiation", Start: initiationLength, End: middleEnd})
	}
	conclusionStart := count - conclusionLength
	if conclusionStart < initiationLength {
		conclusionStart = initiationLength
	}
	out = append(out, Phase{Name: "conclusion", Start: conclusionStart, End: count - 1})
	return out
}

func criticalMoments(msgs []negotiation.Message) []Moment {
	var out []Moment
	var lastOffer *float64
	seenOffer := false

	for i, m := range msgs {
		if m.Type == negotiation.TypeAcceptance {
			out = append(out, Moment{
				Index:       i,
				Kind:        "acceptance",
				Description: "offer accepted",
				Timestamp:   m.CreatedAt,
			})
		}
		if m.Offer == nil {
			continue
		}
		amount := m.Offer.Amount
		if !seenOffer {
			out = append(out, Moment{
				Index:       i,
				Kind:        "first_offer",
				Description: fmt.Sprintf("first offer at %.2f", amount),
				Timestamp:   m.CreatedAt,
			})
			seenOffer = true
		} else if lastOffer != nil && *lastOffer != 0 {
			swing := math.Abs(amount-*lastOffer) / *lastOffer * 100
			if swing > swingThresholdPct {
				out = append(out, Moment{
					Index:       i,
					Kind:        "price_swing",
					Description: fmt.Sprintf("offer moved %.1f%% to %.2f", swing, amount),
					Timestamp:   m.CreatedAt,
				})
			}
		}
		lastOffer = &amount
	}
	return out
}

func nextSteps(neg negotiation.Negotiation, p *insight.PredictionInsight) []string {
	if neg.Status.Terminal() {
		return []string{"negotiation concluded; archive the conversation"}
	}
	var steps []string
	if p.SuccessProbability >= 0.7 {
		steps = append(steps, "momentum is good; consider a closing offer")
	} else {
		steps = append(steps, "keep the conversation active with a concrete counter")
	}
	if neg.MaxRounds > 0 && neg.Rounds >= neg.MaxRounds-1 {
		steps = append(steps, "final round approaching; prepare a best-and-final number")
	}
	return steps
}

func comparisonPatterns(entries []ComparisonEntry, accepted int) []string {
	var out []string
	out = append(out, fmt.Sprintf("%d of %d negotiations accepted", accepted, len(entries)))

	best := entries[0]
	for _, e := range entries[1:] {
		if e.SuccessProbability > best.SuccessProbability {
			best = e
		}
	}
	out = append(out, fmt.Sprintf("negotiation %s shows the highest success probability (%.2f)",
		best.NegotiationID, best.SuccessProbability))

	var totalEngagement float64
	for _, e := range entries {
		totalEngagement += e.EngagementLevel
	}
	if totalEngagement/float64(len(entries)) < 0.3 {
		out = append(out, "engagement is low across the set; negotiations may be stalling")
	}
	return out
}

// Package interpreter turns free-form negotiation replies into structured,
// confidence-scored decisions.
package interpreter

import (
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/nsxzhou/haggle/backend/internal/analysis/patterns"
	"github.com/nsxzhou/haggle/backend/internal/model/negotiation"
	"github.com/nsxzhou/haggle/backend/internal/pricing"
	"github.com/nsxzhou/haggle/backend/internal/service/contextstore"
)

// Context carries the negotiation state a response is interpreted against.
type Context struct {
	NegotiationID string
	PersonaID     string
	BasePrice     float64
	MinPrice      float64
	CurrentOffer  float64
	Rounds        int
	MaxRounds     int
}

// Tuning holds the empirically chosen constants of the decision heuristics.
// 这些阈值来自线上标定，保持原值，不要重新推导。
type Tuning struct {
	TerminalConfidence float64 // forced resolution at the round limit
	InferredAccept     float64 // offerQuality >= AcceptQuality
	InferredCounter    float64 // offerQuality >= CounterQuality
	InferredReject     float64 // offer below the floor
	InferredContinue   float64

	AcceptQuality  float64 // currentOffer/basePrice threshold for accept
	CounterQuality float64 // threshold for counter

	ExtractedConfidence  float64
	CalculatedConfidence float64
	FallbackConfidence   float64

	CandidateFloorRatio float64 // candidates below minPrice×ratio are discarded
	CandidateCeilRatio  float64 // candidates above basePrice×ratio are discarded

	InvalidPenalty float64 // multiplier applied to invalid decisions
}

// DefaultTuning returns the production constants.
func DefaultTuning() Tuning {
	return Tuning{
		TerminalConfidence:   0.85,
		InferredAccept:       0.75,
		InferredCounter:      0.65,
		InferredReject:       0.7,
		InferredContinue:     0.5,
		AcceptQuality:        0.9,
		CounterQuality:       0.7,
		ExtractedConfidence:  0.8,
		CalculatedConfidence: 0.6,
		FallbackConfidence:   0.5,
		CandidateFloorRatio:  0.8,
		CandidateCeilRatio:   1.1,
		InvalidPenalty:       0.5,
	}
}

// Recorder receives validated decisions; the context store implements it.
type Recorder interface {
	Record(negotiationID string, d negotiation.Decision, input contextstore.Snapshot)
}

// Interpreter classifies provider text and assembles decisions.
type Interpreter struct {
	tuning   Tuning
	recorder Recorder
	now      func() time.Time
}

// Option configures an Interpreter.
type Option func(*Interpreter)

// WithTuning overrides the heuristic constants.
func WithTuning(t Tuning) Option {
	return func(i *Interpreter) { i.tuning = t }
}

// WithClock injects a time source for tests.
func WithClock(now func() time.Time) Option {
	return func(i *Interpreter) { i.now = now }
}

// New creates an Interpreter. recorder may be nil when no rolling context is kept.
func New(recorder Recorder, opts ...Option) *Interpreter {
	i := &Interpreter{
		tuning:   DefaultTuning(),
		recorder: recorder,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Interpret sanitizes rawText, classifies the action, resolves the offer and
// returns a validated Decision. Invalid decisions are returned with degraded
// confidence rather than discarded; callers inspect Metadata.Validation.
func (i *Interpreter) Interpret(rawText string, ctx Context) negotiation.Decision {
	sanitized := Sanitize(rawText)

	action, confidence, reasoning := i.classify(sanitized, ctx)

	d := negotiation.Decision{
		ID:            uuid.NewString(),
		NegotiationID: ctx.NegotiationID,
		Action:        action,
		Confidence:    confidence,
		Content:       cleanContent(sanitized, negotiation.MaxContentLength),
		Reasoning:     reasoning,
		CreatedAt:     i.now(),
		Metadata:      negotiation.DecisionMetadata{RawText: rawText},
	}

	switch action {
	case negotiation.ActionAccept:
		// Accepting always snapshots the offer on the table, never a new number.
		d.Offer = &negotiation.Offer{Amount: ctx.CurrentOffer, Final: true}
	case negotiation.ActionCounter:
		offer, extractionConfidence := i.resolveCounterOffer(sanitized, ctx)
		d.Offer = &offer
		if extractionConfidence < d.Confidence {
			d.Confidence = extractionConfidence
		}
		d.Reasoning = fmt.Sprintf("%s; offer %s at %.2f", d.Reasoning, offer.Source, offer.Amount)
	}

	d.Metadata.Validation = negotiation.ValidateDecision(d)
	if !d.Metadata.Validation.Valid {
		d.Confidence *= i.tuning.InvalidPenalty
		log.Printf("[interpret] decision %s failed validation: %v", d.ID, d.Metadata.Validation.Errors)
	}

	if i.recorder != nil && ctx.NegotiationID != "" {
		i.recorder.Record(ctx.NegotiationID, d, snapshotOf(ctx))
	}
	return d
}

func (i *Interpreter) classify(sanitized string, ctx Context) (negotiation.Action, float64, string) {
	if match, ok := patterns.DetectAction(sanitized); ok {
		action := negotiation.Action(match.Action)
		// A counter keyword cannot extend the conversation past the round
		// limit; explicit accept/reject still win there.
		if action != negotiation.ActionCounter || ctx.Rounds < ctx.MaxRounds {
			// Group weights already encode the accept > reject > counter priority.
			return action, match.Confidence,
				fmt.Sprintf("matched %s keyword %q", match.Action, match.Keyword)
		}
	}

	// No explicit pattern, or an impossible counter: infer from price context.
	if ctx.Rounds >= ctx.MaxRounds {
		// Round limit reached, the engine must resolve to a terminal action.
		if ctx.CurrentOffer >= ctx.MinPrice {
			return negotiation.ActionAccept, i.tuning.TerminalConfidence,
				"round limit reached with offer at or above the floor"
		}
		return negotiation.ActionReject, i.tuning.TerminalConfidence,
			"round limit reached with offer below the floor"
	}

	if ctx.BasePrice > 0 {
		quality := ctx.CurrentOffer / ctx.BasePrice
		switch {
		case quality >= i.tuning.AcceptQuality:
			return negotiation.ActionAccept, i.tuning.InferredAccept,
				fmt.Sprintf("offer quality %.2f warrants acceptance", quality)
		case quality >= i.tuning.CounterQuality:
			return negotiation.ActionCounter, i.tuning.InferredCounter,
				fmt.Sprintf("offer quality %.2f invites a counter", quality)
		}
	}
	if ctx.CurrentOffer < ctx.MinPrice {
		return negotiation.ActionReject, i.tuning.InferredReject,
			"offer below the seller floor"
	}
	return negotiation.ActionContinue, i.tuning.InferredContinue,
		"no signal in text, keep the conversation going"
}

// resolveCounterOffer extracts a counter amount from the text, or computes one
// when extraction yields nothing usable. An extraction miss is recovered
// locally and only reflected in the offer source.
func (i *Interpreter) resolveCounterOffer(sanitized string, ctx Context) (negotiation.Offer, float64) {
	candidates := patterns.ExtractPrices(sanitized)

	floor := ctx.MinPrice * i.tuning.CandidateFloorRatio
	ceil := ctx.BasePrice * i.tuning.CandidateCeilRatio
	var valid []float64
	for _, c := range candidates {
		if c >= floor && c <= ceil {
			valid = append(valid, c)
		}
	}

	midpoint := (ctx.BasePrice + ctx.CurrentOffer) / 2
	if amount, ok := patterns.ClosestTo(valid, midpoint); ok {
		return negotiation.Offer{Amount: amount, Source: negotiation.SourceExtracted},
			i.tuning.ExtractedConfidence
	}

	amount := pricing.CounterOffer(ctx.CurrentOffer, ctx.BasePrice, ctx.MinPrice)
	if len(candidates) > 0 {
		// Numbers were present but none survived the sanity window.
		return negotiation.Offer{Amount: amount, Source: negotiation.SourceCalculated},
			i.tuning.CalculatedConfidence
	}
	return negotiation.Offer{Amount: amount, Source: negotiation.SourceFallback},
		i.tuning.FallbackConfidence
}

func snapshotOf(ctx Context) contextstore.Snapshot {
	return contextstore.Snapshot{
		BasePrice:    ctx.BasePrice,
		MinPrice:     ctx.MinPrice,
		CurrentOffer: ctx.CurrentOffer,
		Rounds:       ctx.Rounds,
	}
}

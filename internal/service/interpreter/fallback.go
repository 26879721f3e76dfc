package interpreter

import (
	"fmt"
	"hash/fnv"
	"time"

	"github.com/google/uuid"

	"github.com/nsxzhou/haggle/backend/internal/model/negotiation"
	"github.com/nsxzhou/haggle/backend/internal/model/persona"
	"github.com/nsxzhou/haggle/backend/internal/pricing"
)

// Fallback thresholds relative to the seller floor.
const (
	fallbackCounterRatio = 1.1
	fallbackRejectRatio  = 0.8
	fallbackConfidence   = 0.4
)

var defaultFallbackLines = []string{
	"Thanks for your message. Let me get back to you with a number shortly.",
	"I need a moment to look at the figures. Bear with me.",
}

// FallbackResponder produces a deterministic canned decision when the
// completion provider is unavailable. It is total: it never fails.
type FallbackResponder struct {
	personas persona.Store
	recorder Recorder
	now      func() time.Time
	// pick selects a line index for (negotiationID, round, len). Deterministic
	// by default so replays are stable; injectable for tests.
	pick func(negotiationID string, round, n int) int
}

// NewFallbackResponder creates the responder. personas and recorder may be nil.
func NewFallbackResponder(personas persona.Store, recorder Recorder) *FallbackResponder {
	return &FallbackResponder{
		personas: personas,
		recorder: recorder,
		now:      time.Now,
		pick:     hashPick,
	}
}

// WithPick overrides line selection, used by tests.
func (f *FallbackResponder) WithPick(pick func(negotiationID string, round, n int) int) *FallbackResponder {
	f.pick = pick
	return f
}

// WithNow overrides the time source, used by tests.
func (f *FallbackResponder) WithNow(now func() time.Time) *FallbackResponder {
	f.now = now
	return f
}

// Respond derives a low-confidence decision from price thresholds alone.
// currentOffer ≥ minPrice×1.1 → counter, currentOffer < minPrice×0.8 → reject,
// otherwise continue.
func (f *FallbackResponder) Respond(ctx Context) negotiation.Decision {
	var (
		action    negotiation.Action
		offer     *negotiation.Offer
		reasoning string
	)

	switch {
	case ctx.MaxRounds > 0 && ctx.Rounds >= ctx.MaxRounds:
		// The round budget is spent, only a terminal action is allowed.
		if ctx.CurrentOffer >= ctx.MinPrice {
			action = negotiation.ActionAccept
			offer = &negotiation.Offer{Amount: ctx.CurrentOffer, Final: true}
			reasoning = "provider unavailable; round limit reached with offer at or above the floor"
		} else {
			action = negotiation.ActionReject
			reasoning = "provider unavailable; round limit reached with offer below the floor"
		}
	case ctx.CurrentOffer >= ctx.MinPrice*fallbackCounterRatio:
		action = negotiation.ActionCounter
		amount := pricing.CounterOffer(ctx.CurrentOffer, ctx.BasePrice, ctx.MinPrice)
		offer = &negotiation.Offer{Amount: amount, Source: negotiation.SourceFallback}
		reasoning = "provider unavailable; healthy offer countered heuristically"
	case ctx.CurrentOffer < ctx.MinPrice*fallbackRejectRatio:
		action = negotiation.ActionReject
		reasoning = "provider unavailable; offer well below the floor"
	default:
		action = negotiation.ActionContinue
		reasoning = "provider unavailable; keeping the conversation open"
	}

	d := negotiation.Decision{
		ID:            uuid.NewString(),
		NegotiationID: ctx.NegotiationID,
		Action:        action,
		Offer:         offer,
		Confidence:    fallbackConfidence,
		Content:       f.line(ctx),
		Reasoning:     reasoning,
		CreatedAt:     f.now(),
		Metadata:      negotiation.DecisionMetadata{IsFallback: true},
	}
	if offer != nil {
		d.Reasoning = fmt.Sprintf("%s at %.2f", d.Reasoning, offer.Amount)
	}

	d.Metadata.Validation = negotiation.ValidateDecision(d)

	if f.recorder != nil && ctx.NegotiationID != "" {
		f.recorder.Record(ctx.NegotiationID, d, snapshotOf(ctx))
	}
	return d
}

func (f *FallbackResponder) line(ctx Context) string {
	lines := defaultFallbackLines
	if f.personas != nil && ctx.PersonaID != "" {
		if p, ok := f.personas.FindByID(ctx.PersonaID); ok && len(p.FallbackLines) > 0 {
			lines = p.FallbackLines
		}
	}
	return lines[f.pick(ctx.NegotiationID, ctx.Rounds, len(lines))]
}

func hashPick(negotiationID string, round, n int) int {
	h := fnv.New32a()
	fmt.Fprintf(h, "%s:%d", negotiationID, round)
	return int(h.Sum32() % uint32(n))
}

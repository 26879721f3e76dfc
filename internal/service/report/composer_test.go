package report

import (
	"context"
	"testing"
	"time"

	"github.com/nsxzhou/haggle/backend/internal/model/negotiation"
	"github.com/nsxzhou/haggle/backend/internal/service/insight"
	"github.com/nsxzhou/haggle/backend/internal/store"
)

var base = time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return base.Add(time.Hour) }

func seedHistory(t *testing.T, mem *store.Memory, id string, amounts []float64) negotiation.Negotiation {
	t.Helper()
	ctx := context.Background()

	neg := negotiation.Negotiation{
		ID:        id,
		ProductID: "p1",
		BasePrice: 1000,
		MinPrice:  500,
		Rounds:    3,
		MaxRounds: 10,
		Status:    negotiation.StatusInProgress,
		CreatedAt: base,
	}
	if err := mem.Create(ctx, &neg); err != nil {
		t.Fatalf("Create err: %v", err)
	}

	sender := negotiation.SenderBuyer
	for i, a := range amounts {
		m := negotiation.Message{
			NegotiationID: id,
			Sender:        sender,
			Content:       "offer update",
			Type:          negotiation.TypeOffer,
			CreatedAt:     base.Add(time.Duration(i) * time.Minute),
		}
		if a > 0 {
			m.Offer = &negotiation.Offer{Amount: a}
		}
		if err := mem.Append(ctx, m); err != nil {
			t.Fatalf("Append err: %v", err)
		}
		if sender == negotiation.SenderBuyer {
			sender = negotiation.SenderSeller
		} else {
			sender = negotiation.SenderBuyer
		}
	}
	return neg
}

func newComposer(mem *store.Memory) *Composer {
	engine := insight.NewEngineWithClock(fixedClock)
	return NewComposer(engine, mem, mem).WithNow(fixedClock)
}

func TestSummaryReport(t *testing.T) {
	mem := store.NewMemory()
	neg := seedHistory(t, mem, "n1", []float64{100, 500, 300, 320, 310, 305})
	msgs, _ := mem.History(context.Background(), "n1", store.HistoryOptions{})

	rep, err := newComposer(mem).Summary(neg, msgs)
	if err != nil {
		t.Fatalf("Summary err: %v", err)
	}
	if rep.Type != TypeSummary || rep.Summary == nil {
		t.Fatalf("unexpected report shape: %+v", rep)
	}

	s := rep.Summary
	if s.Overview.Messages != 6 || s.Overview.Rounds != 3 {
		t.Fatalf("unexpected overview: %+v", s.Overview)
	}
	if s.Overview.DurationSeconds != 300 {
		t.Fatalf("unexpected duration: %f", s.Overview.DurationSeconds)
	}
	if s.KeyMetrics.SuccessProbability <= 0.5 {
		t.Fatalf("unexpected success probability: %f", s.KeyMetrics.SuccessProbability)
	}
	if s.KeyMetrics.NetSentiment != 0 {
		t.Fatalf("neutral offers should net to zero sentiment: %f", s.KeyMetrics.NetSentiment)
	}
	if len(s.NextSteps) == 0 {
		t.Fatal("expected next steps for an active negotiation")
	}
}

func TestDetailedReport(t *testing.T) {
	mem := store.NewMemory()
	neg := seedHistory(t, mem, "n1", []float64{100, 500, 300, 320, 310, 305, 0, 0, 0})
	msgs, _ := mem.History(context.Background(), "n1", store.HistoryOptions{})

	rep, err := newComposer(mem).Detailed(neg, msgs)
	if err != nil {
		t.Fatalf("Detailed err: %v", err)
	}
	d := rep.Detailed

	if len(d.Insights) != 4 {
		t.Fatalf("expected all four insight bundles, got %d", len(d.Insights))
	}
	if d.Participants[negotiation.SenderBuyer].MessageCount != 5 {
		t.Fatalf("unexpected buyer profile: %+v", d.Participants[negotiation.SenderBuyer])
	}

	// 9 messages: initiation 0-4, negotiation 5, conclusion 6-8.
	if len(d.Phases) != 3 {
		t.Fatalf("unexpected phases: %+v", d.Phases)
	}
	if d.Phases[0].Name != "initiation" || d.Phases[0].End != 4 {
		t.Fatalf("unexpected initiation phase: %+v", d.Phases[0])
	}
	if d.Phases[2].Name != "conclusion" || d.Phases[2].Start != 6 {
		t.Fatalf("unexpected conclusion phase: %+v", d.Phases[2])
	}

	// First offer plus the 100→500 (+400%) and 500→300 (-40%) swings.
	kinds := map[string]int{}
	for _, m := range d.CriticalMoments {
		kinds[m.Kind]++
	}
	if kinds["first_offer"] != 1 {
		t.Fatalf("expected one first_offer moment: %v", kinds)
	}
	if kinds["price_swing"] < 2 {
		t.Fatalf("expected price swings: %v", kinds)
	}
}

func TestDetailedPhasesShortConversation(t *testing.T) {
	if got := phases(4); len(got) != 1 || got[0].Name != "initiation" {
		t.Fatalf("unexpected phases for short conversation: %+v", got)
	}
	if got := phases(0); got != nil {
		t.Fatalf("expected no phases, got %+v", got)
	}
	// 7 messages: initiation 0-4, conclusion 5-6, no middle.
	got := phases(7)
	if len(got) != 2 || got[1].Name != "conclusion" || got[1].Start != 5 {
		t.Fatalf("unexpected phases: %+v", got)
	}
}

func TestComparisonReport(t *testing.T) {
	mem := store.NewMemory()
	seedHistory(t, mem, "n1", []float64{100, 500, 300, 320, 310, 305})
	seedHistory(t, mem, "n2", []float64{900, 920})

	rep, err := newComposer(mem).Comparison(context.Background(), []string{"n1", "n2"})
	if err != nil {
		t.Fatalf("Comparison err: %v", err)
	}
	c := rep.Comparison

	if len(c.Entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(c.Entries))
	}
	if c.Entries[0].NegotiationID != "n1" || c.Entries[1].NegotiationID != "n2" {
		t.Fatalf("entries out of order: %+v", c.Entries)
	}
	if len(c.Patterns) == 0 {
		t.Fatal("expected cross-negotiation patterns")
	}
}

func TestComparisonRequiresTwoIDs(t *testing.T) {
	mem := store.NewMemory()
	if _, err := newComposer(mem).Comparison(context.Background(), []string{"n1"}); err == nil {
		t.Fatal("expected error for a single id")
	}
}

func TestComparisonUnknownNegotiation(t *testing.T) {
	mem := store.NewMemory()
	seedHistory(t, mem, "n1", []float64{100, 200})
	_, err := newComposer(mem).Comparison(context.Background(), []string{"n1", "missing"})
	if err == nil {
		t.Fatal("expected error for unknown negotiation")
	}
}

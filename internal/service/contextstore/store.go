// Package contextstore keeps a per-negotiation rolling memory of decisions
// with derived aggregates, bounded by a hard TTL rather than an LRU. An active
// negotiation older than the TTL loses its rolling analytics; the durable
// message history is unaffected.
package contextstore

import (
	"log"
	"sync"
	"time"

	"github.com/nsxzhou/haggle/backend/internal/model/negotiation"
)

const (
	// DefaultMaxAge 上下文的硬性存活时间，自创建起计算，与访问无关。
	DefaultMaxAge = 24 * time.Hour
	// DefaultSweepInterval controls how often expired contexts are removed.
	DefaultSweepInterval = time.Hour
)

// Snapshot records the negotiation state a decision was interpreted against.
type Snapshot struct {
	BasePrice    float64 `json:"basePrice"`
	MinPrice     float64 `json:"minPrice"`
	CurrentOffer float64 `json:"currentOffer"`
	Rounds       int     `json:"rounds"`
}

// Entry is one recorded decision with its input snapshot.
type Entry struct {
	Timestamp time.Time            `json:"timestamp"`
	Decision  negotiation.Decision `json:"decision"`
	Input     Snapshot             `json:"input"`
}

// PricePoint is one step of the observed price progression.
type PricePoint struct {
	Round     int       `json:"round"`
	Amount    float64   `json:"amount"`
	Timestamp time.Time `json:"timestamp"`
}

// Analytics are the rolling aggregates recomputed on every record.
type Analytics struct {
	AverageConfidence float64                    `json:"averageConfidence"`
	ActionCounts      map[negotiation.Action]int `json:"actionCounts"`
	PriceProgression  []PricePoint               `json:"priceProgression"`
}

// Context is the per-negotiation rolling memory owned by the store.
type Context struct {
	NegotiationID string    `json:"negotiationId"`
	StartTime     time.Time `json:"startTime"`
	Entries       []Entry   `json:"entries"`
	Analytics     Analytics `json:"analytics"`
}

type entry struct {
	mu  sync.Mutex
	ctx Context
}

// Store owns the keyed contexts. Updates to one negotiation id are serialized
// by a per-key mutex; different ids never block one another beyond the brief
// map access.
type Store struct {
	mu       sync.RWMutex
	contexts map[string]*entry

	now           func() time.Time
	maxAge        time.Duration
	sweepInterval time.Duration
}

// Option configures a Store.
type Option func(*Store)

// WithClock injects a time source so tests can simulate the TTL.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithMaxAge overrides the hard context TTL.
func WithMaxAge(d time.Duration) Option {
	return func(s *Store) { s.maxAge = d }
}

// WithSweepInterval overrides the eviction sweep cadence.
func WithSweepInterval(d time.Duration) Option {
	return func(s *Store) { s.sweepInterval = d }
}

// NewStore creates an empty context store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		contexts:      make(map[string]*entry),
		now:           time.Now,
		maxAge:        DefaultMaxAge,
		sweepInterval: DefaultSweepInterval,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Record appends a decision to the context for negotiationID, creating the
// context on first use, and recomputes the rolling aggregates.
func (s *Store) Record(negotiationID string, decision negotiation.Decision, input Snapshot) {
	if negotiationID == "" {
		return
	}

	s.mu.Lock()
	e, ok := s.contexts[negotiationID]
	if !ok {
		e = &entry{ctx: Context{
			NegotiationID: negotiationID,
			StartTime:     s.now(),
			Analytics:     Analytics{ActionCounts: make(map[negotiation.Action]int)},
		}}
		s.contexts[negotiationID] = e
	}
	s.mu.Unlock()

	e.mu.Lock()
	defer e.mu.Unlock()

	e.ctx.Entries = append(e.ctx.Entries, Entry{
		Timestamp: s.now(),
		Decision:  decision,
		Input:     input,
	})
	recompute(&e.ctx)
}

// Get returns a copy of the context for negotiationID, if present.
func (s *Store) Get(negotiationID string) (Context, bool) {
	s.mu.RLock()
	e, ok := s.contexts[negotiationID]
	s.mu.RUnlock()
	if !ok {
		return Context{}, false
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return cloneContext(e.ctx), true
}

// Len reports the number of live contexts.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.contexts)
}

// Sweep removes every context whose age exceeds the TTL and returns the count.
func (s *Store) Sweep() int {
	cutoff := s.now().Add(-s.maxAge)

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, e := range s.contexts {
		// Take the per-key lock so a delete never races an in-flight record.
		e.mu.Lock()
		expired := e.ctx.StartTime.Before(cutoff)
		e.mu.Unlock()
		if expired {
			delete(s.contexts, id)
			removed++
		}
	}
	return removed
}

// Start runs the periodic eviction sweep until ctx is done.
func (s *Store) Start(done <-chan struct{}) {
	ticker := time.NewTicker(s.sweepInterval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if removed := s.Sweep(); removed > 0 {
					log.Printf("[contextstore] swept %d expired contexts", removed)
				}
			}
		}
	}()
}

func recompute(ctx *Context) {
	counts := make(map[negotiation.Action]int, 4)
	total := 0.0
	var progression []PricePoint

	for i, entry := range ctx.Entries {
		d := entry.Decision
		counts[d.Action]++
		total += d.Confidence
		if d.Offer != nil {
			progression = append(progression, PricePoint{
				Round:     i + 1,
				Amount:    d.Offer.Amount,
				Timestamp: entry.Timestamp,
			})
		}
	}

	ctx.Analytics = Analytics{
		AverageConfidence: total / float64(len(ctx.Entries)),
		ActionCounts:      counts,
		PriceProgression:  progression,
	}
}

func cloneContext(ctx Context) Context {
	out := ctx
	out.Entries = append([]Entry(nil), ctx.Entries...)
	out.Analytics.PriceProgression = append([]PricePoint(nil), ctx.Analytics.PriceProgression...)
	counts := make(map[negotiation.Action]int, len(ctx.Analytics.ActionCounts))
	for k, v := range ctx.Analytics.ActionCounts {
		counts[k] = v
	}
	out.Analytics.ActionCounts = counts
	return out
}

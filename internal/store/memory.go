package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nsxzhou/haggle/backend/internal/model/negotiation"
)

// Memory implements both collaborators with mutex-guarded maps, suitable for
// tests and for running without a database.
type Memory struct {
	mu           sync.RWMutex
	negotiations map[string]negotiation.Negotiation
	messages     map[string][]negotiation.Message
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		negotiations: make(map[string]negotiation.Negotiation),
		messages:     make(map[string][]negotiation.Message),
	}
}

// Create registers a new negotiation, assigning an id when absent.
func (m *Memory) Create(_ context.Context, n *negotiation.Negotiation) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if _, ok := m.negotiations[n.ID]; ok {
		return ErrNegotiationExists
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	m.negotiations[n.ID] = *n
	m.messages[n.ID] = make([]negotiation.Message, 0, 16)
	return nil
}

// Load retrieves a negotiation by id.
func (m *Memory) Load(_ context.Context, id string) (negotiation.Negotiation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	n, ok := m.negotiations[id]
	if !ok {
		return negotiation.Negotiation{}, ErrNegotiationNotFound
	}
	return n, nil
}

// Update replaces a stored negotiation.
func (m *Memory) Update(_ context.Context, n negotiation.Negotiation) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.negotiations[n.ID]; !ok {
		return ErrNegotiationNotFound
	}
	m.negotiations[n.ID] = n
	return nil
}

// Append adds a message to the negotiation's history.
func (m *Memory) Append(_ context.Context, msg negotiation.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.negotiations[msg.NegotiationID]; !ok {
		return ErrNegotiationNotFound
	}
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}
	m.messages[msg.NegotiationID] = append(m.messages[msg.NegotiationID], msg)
	return nil
}

// History returns stored messages in insertion order, bounded by opts.Limit
// (the most recent messages win when a limit applies).
func (m *Memory) History(_ context.Context, negotiationID string, opts HistoryOptions) ([]negotiation.Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	msgs, ok := m.messages[negotiationID]
	if !ok {
		return nil, ErrNegotiationNotFound
	}

	start := 0
	if opts.Limit > 0 && len(msgs) > opts.Limit {
		start = len(msgs) - opts.Limit
	}
	copied := make([]negotiation.Message, len(msgs)-start)
	copy(copied, msgs[start:])
	return copied, nil
}
